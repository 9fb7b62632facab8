package main

import (
	"context"
	"flag"

	"github.com/rosterbridge/rosterbridge/internal/engine/conf"
	"github.com/rosterbridge/rosterbridge/internal/engine/job"
	"github.com/rosterbridge/rosterbridge/internal/engine/logic"
	"github.com/rosterbridge/rosterbridge/internal/engine/repo"
	"github.com/rosterbridge/rosterbridge/internal/engine/router"
	"github.com/rosterbridge/rosterbridge/pkg/cache"
	"github.com/rosterbridge/rosterbridge/pkg/crypt"
	"github.com/rosterbridge/rosterbridge/pkg/database"
	httpx "github.com/rosterbridge/rosterbridge/pkg/http"
	"github.com/rosterbridge/rosterbridge/pkg/log"
)

var configFile string

func init() {
	flag.StringVar(&configFile, "conf", "conf.d/config.toml", "conf file path, e.g. -conf ./conf.d/config.toml")
}

func main() {
	flag.Parse()

	appConf := conf.NewConf(configFile)

	log.MustInit(&appConf.Log)

	db, err := database.NewMySQL(appConf.Database)
	if err != nil {
		log.Fatalf("failed to init mysql: %v", err)
	}

	mongoIns, err := database.NewMongoDB(appConf.MongoDB, context.Background())
	if err != nil {
		log.Fatalf("failed to init mongodb: %v", err)
	}
	defer func() {
		if err := mongoIns.Close(context.Background()); err != nil {
			log.Errorw("failed to close mongodb", "error", err)
		}
	}()

	redisClient, err := cache.NewRedis(appConf.Redis)
	if err != nil {
		log.Fatalf("failed to init redis: %v", err)
	}
	redisCache := cache.NewRedisCache(redisClient)

	enc, err := crypt.New(appConf.Crypto)
	if err != nil {
		log.Fatalf("failed to init encryptor: %v", err)
	}

	batchRepo := repo.NewBatchRepo(db)
	shadowRepo := repo.NewShadowUserRepo(db)
	gateway := repo.NewDirectoryRepo(db, mongoIns, redisCache)

	uploadLogic := logic.NewUploadLogic(appConf.Migration, gateway, batchRepo)
	reconcileLogic := logic.NewReconcileLogic(appConf.Migration, batchRepo, shadowRepo, gateway, enc)

	scheduler := job.NewScheduler(appConf.Migration.Cron, reconcileLogic)
	if err := scheduler.Start(); err != nil {
		log.Fatalf("failed to start scheduler: %v", err)
	}
	defer scheduler.Stop()

	app := httpx.NewApp(appConf.Http)
	route := router.NewRouter(&appConf.Http, uploadLogic)
	route.Register(app)

	httpClean := appConf.Http.Server(app)
	httpClean()
}
