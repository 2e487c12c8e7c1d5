package httptransport

import (
	"log/slog"

	"github.com/ErlanBelekov/cronhost/internal/health"
	"github.com/ErlanBelekov/cronhost/internal/transport/http/handler"
	"github.com/ErlanBelekov/cronhost/internal/transport/http/middleware"
	"github.com/ErlanBelekov/cronhost/internal/usecase"
	"github.com/gin-gonic/gin"
)

// NewRouter wires the gin engine the gateway serves: health checks are
// unauthenticated, every job/run/status/event route requires the shared
// bearer token (a no-op check when authToken is empty).
func NewRouter(facade *usecase.Facade, checker *health.Checker, authToken string, logger *slog.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Metrics())

	r.GET("/healthz", func(c *gin.Context) { c.JSON(200, checker.Liveness(c.Request.Context())) })
	r.GET("/readyz", func(c *gin.Context) {
		result := checker.Readiness(c.Request.Context())
		status := 200
		if result.Status != "up" {
			status = 503
		}
		c.JSON(status, result)
	})

	jobHandler := handler.NewJobHandler(facade, logger)
	runHandler := handler.NewRunHandler(facade, logger)
	statusHandler := handler.NewStatusHandler(facade, logger)
	eventHandler := handler.NewEventHandler(facade, logger)

	api := r.Group("/", middleware.Auth(authToken))

	jobs := api.Group("/jobs")
	jobs.POST("", jobHandler.Create)
	jobs.GET("", jobHandler.List)
	jobs.GET("/tags", jobHandler.ListTags)
	jobs.POST("/validate-cron", jobHandler.ValidateCron)
	jobs.GET("/:name", jobHandler.Get)
	jobs.PATCH("/:name", jobHandler.Update)
	jobs.POST("/:name/enable", jobHandler.Enable)
	jobs.POST("/:name/disable", jobHandler.Disable)
	jobs.DELETE("/:name", jobHandler.Delete)
	jobs.POST("/:name/trigger", jobHandler.Trigger)
	jobs.GET("/:name/runs/last", runHandler.LastForJob)

	runs := api.Group("/runs")
	runs.GET("", runHandler.List)
	runs.GET("/:id", runHandler.Get)
	runs.POST("/purge", runHandler.Purge)

	api.GET("/status", statusHandler.Get)
	api.GET("/events", eventHandler.Stream)

	return r
}
