package conf

import (
	"fmt"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/rosterbridge/rosterbridge/pkg/cache"
	"github.com/rosterbridge/rosterbridge/pkg/crypt"
	"github.com/rosterbridge/rosterbridge/pkg/database"
	httpx "github.com/rosterbridge/rosterbridge/pkg/http"
	"github.com/rosterbridge/rosterbridge/pkg/log"
)

type AppConfig struct {
	Log       log.Conf
	Http      httpx.Http
	Database  database.MySQL
	MongoDB   database.MongoDB
	Redis     cache.Redis
	Crypto    crypt.Conf
	Migration Migration
}

// Migration holds the batch-ingestion and reconciliation knobs. Resolved
// once at startup and passed down explicitly; nothing reads viper at
// request time.
type Migration struct {
	// RetryBudget is the number of reconciliation-pass failures a batch
	// survives before it is marked FAILED.
	RetryBudget int `mapstructure:"retryBudget"`
	// MaxAttempts bounds how many passes may leave a claim unmatched
	// before it is escalated to REJECTED.
	MaxAttempts int `mapstructure:"maxAttempts"`
	// Workers is the size of the per-pass claim worker pool.
	Workers int `mapstructure:"workers"`
	// Cron is the reconciliation schedule.
	Cron string `mapstructure:"cron"`
	// MandatoryColumns lists canonical field names that every row must fill.
	MandatoryColumns []string `mapstructure:"mandatoryColumns"`
	// SupportedColumns lists the recognized spreadsheet header names.
	SupportedColumns []string `mapstructure:"supportedColumns"`
}

// Defaults mirror the reference deployment.
func (m *Migration) SetDefaults() {
	if m.RetryBudget <= 0 {
		m.RetryBudget = 2
	}
	if m.MaxAttempts <= 0 {
		m.MaxAttempts = 5
	}
	if m.Workers <= 0 {
		m.Workers = 4
	}
	if m.Cron == "" {
		m.Cron = "0 */10 * * * *"
	}
	if len(m.MandatoryColumns) == 0 {
		m.MandatoryColumns = []string{"email", "userExternalId"}
	}
	if len(m.SupportedColumns) == 0 {
		m.SupportedColumns = []string{"email", "phone", "name", "externalUserId", "externalOrgId", "status"}
	}
}

var (
	cfg  AppConfig
	once sync.Once
)

func NewConf(confFile string) AppConfig {
	once.Do(func() {
		var err error
		cfg, err = LoadConfigFile(confFile)
		if err != nil {
			panic(fmt.Sprintf("load conf file error: %s", err))
		}
		cfg.Migration.SetDefaults()
	})
	return cfg
}

// LoadConfigFile loads the conf file.
func LoadConfigFile(confFile string) (AppConfig, error) {
	config := viper.New()
	config.SetConfigFile(confFile)
	config.AddConfigPath("./conf.d")
	config.SetConfigName("config")
	config.SetConfigType("toml")
	if err := config.ReadInConfig(); err != nil {
		return cfg, fmt.Errorf("failed to read configuration file: %v", err)
	}

	config.WatchConfig()
	config.OnConfigChange(func(e fsnotify.Event) {
		log.Infof("configuration changed, re-reading: %s", e.Name)
		if err := config.Unmarshal(&cfg); err != nil {
			log.Errorf("failed to unmarshal configuration file: %v", err)
		}
	})
	if err := config.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("failed to unmarshal configuration file: %v", err)
	}

	return cfg, nil
}
