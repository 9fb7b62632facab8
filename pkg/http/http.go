package http

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	fiberrecover "github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rosterbridge/rosterbridge/pkg/log"
)

type Http struct {
	Host            string
	Port            int
	ContextPath     string `mapstructure:"contextPath"`
	ExposeMetrics   bool
	AccessLog       bool
	PProf           bool
	BodyLimitMB     int `mapstructure:"bodyLimitMB"`
	ReadTimeout     int
	WriteTimeout    int
	IdleTimeout     int
	ShutdownTimeout int
}

// NewApp builds the fiber application with the common middleware stack.
func NewApp(cfg Http) *fiber.App {
	bodyLimit := cfg.BodyLimitMB
	if bodyLimit <= 0 {
		bodyLimit = 16
	}
	app := fiber.New(fiber.Config{
		ReadTimeout:           time.Duration(cfg.ReadTimeout) * time.Second,
		WriteTimeout:          time.Duration(cfg.WriteTimeout) * time.Second,
		IdleTimeout:           time.Duration(cfg.IdleTimeout) * time.Second,
		BodyLimit:             bodyLimit << 20,
		DisableStartupMessage: true,
	})

	app.Use(fiberrecover.New())
	if cfg.AccessLog {
		app.Use(fiberlogger.New())
	}

	return app
}

// Server starts the listener and returns the shutdown hook.
// The hook blocks until a termination signal arrives.
func (h *Http) Server(app *fiber.App) func() {
	addr := fmt.Sprintf("%s:%d", h.Host, h.Port)

	go func() {
		log.Infow("http server started", "addr", addr)
		if err := app.Listen(addr); err != nil {
			panic(err)
		}
	}()

	sc := make(chan os.Signal, 1)
	signal.Notify(sc, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	return func() {
		<-sc
		log.Info("http server shutting down...")

		timeout := time.Duration(h.ShutdownTimeout) * time.Second
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		if err := app.ShutdownWithTimeout(timeout); err != nil {
			log.Errorw("http server shutdown error", "error", err)
			return
		}
		log.Info("http server shut down gracefully")
	}
}
