package router

import (
	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rosterbridge/rosterbridge/internal/engine/logic"
	httpx "github.com/rosterbridge/rosterbridge/pkg/http"
	"github.com/rosterbridge/rosterbridge/pkg/metrics"
	"github.com/rosterbridge/rosterbridge/pkg/version"
)

type Router struct {
	Http   *httpx.Http
	Upload *logic.UploadLogic
}

func NewRouter(httpConf *httpx.Http, upload *logic.UploadLogic) *Router {
	return &Router{
		Http:   httpConf,
		Upload: upload,
	}
}

// Register mounts all routes on the given app.
func (rt *Router) Register(app *fiber.App) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})

	app.Get("/version", func(c *fiber.Ctx) error {
		return c.JSON(version.GetVersion())
	})

	if rt.Http.PProf {
		rt.debugRouter(app.Group("/debug/pprof"))
	}

	if rt.Http.ExposeMetrics {
		metrics.Register()
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))
	}

	contextPath := rt.Http.ContextPath
	if contextPath == "" {
		contextPath = "/api/v1"
	}
	api := app.Group(contextPath)
	{
		rt.migrationRouter(api)
	}
}
