package dependency

import (
	"context"
	"net/http"
	"time"

	"github.com/devscore/integrity/infrastructure/cache"
	"github.com/devscore/integrity/infrastructure/metrics"
	"github.com/devscore/integrity/infrastructure/persistence/database"
	"github.com/devscore/integrity/presentation/controllers/integrity"
	"github.com/devscore/integrity/presentation/controllers/proctor"
	"github.com/devscore/integrity/presentation/controllers/submission"
	"github.com/devscore/integrity/presentation/middlewares"
	"github.com/devscore/integrity/presentation/routes"
	"github.com/getsentry/sentry-go"
	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"go.uber.org/zap"
)

func (c *Container) initControllers() {
	c.ProctorController = proctor.NewProctorController(c.ProctorUC)
	c.IntegrityController = integrity.NewIntegrityController(c.IntegrityUC)
	c.SubmissionController = submission.NewSubmissionController(c.SubmissionUC)

	c.Logger.Info("Controllers initialized successfully")
}

func (c *Container) SetupRouter() *gin.Engine {
	switch c.Config.Server.RunMode {
	case "release", "production":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
	}

	binding.Validator = new(middlewares.DefaultValidator)

	router := gin.New()
	router.Use(gin.Recovery())

	router.Use(sentrygin.New(sentrygin.Options{
		Repanic:         true,
		WaitForDelivery: false,
		Timeout:         5 * time.Second,
	}))

	router.Use(middlewares.GinLogger(c.Logger))
	router.Use(middlewares.CorsMiddleware(c.Config))
	router.Use(middlewares.MetricsMiddleware(c.MetricsManager))

	router.GET("/health", c.healthCheckHandler)

	c.registerObservabilityRoutes(router)

	c.registerAPIRoutes(router)

	c.Logger.Info("Router configured successfully")

	return router
}

func (c *Container) registerAPIRoutes(router *gin.Engine) {
	v1 := router.Group("/api/v1")
	{
		v1.Use(func(ctx *gin.Context) {
			if hub := sentrygin.GetHubFromContext(ctx); hub != nil {
				hub.Scope().SetUser(sentry.User{IPAddress: ctx.ClientIP()})
				if id := ctx.Param("submissionId"); id != "" {
					hub.Scope().SetTag("submission_id", id)
				}
			}
			ctx.Next()
		})

		p := c.Config.Proctoring
		ingestLimiter := middlewares.RateLimiterMiddleware(c.Logger,
			middlewares.IngestRateLimiterConfig(p.IngestRatePerSecond, p.IngestBurst))

		routes.ProctorRoutes(v1, c.ProctorController, ingestLimiter)
		routes.IntegrityRoutes(v1, c.IntegrityController)
		routes.SubmissionRoutes(v1, c.SubmissionController)
	}
}

func (c *Container) healthCheckHandler(ctx *gin.Context) {
	status := http.StatusOK
	body := gin.H{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	}

	if sqlDB, err := c.DB.DB(); err != nil || sqlDB.PingContext(ctx.Request.Context()) != nil {
		status = http.StatusServiceUnavailable
		body["status"] = "unhealthy"
		body["database"] = "unreachable"
	}

	ctx.JSON(status, body)
}

func (c *Container) registerObservabilityRoutes(router *gin.Engine) {
	metricsGroup := router.Group("/observability")
	{
		metrics.GetHandler(metricsGroup, c.MetricsManager)
	}
}

// Shutdown stops background work before closing the stores it writes to.
func (c *Container) Shutdown() error {
	c.Logger.Info("Shutting down dependencies...")

	if c.OrphanCleanupJob != nil {
		c.OrphanCleanupJob.Stop()
	}

	if c.EventBus != nil {
		c.EventBus.Stop()
	}

	if c.cancel != nil {
		c.cancel()
	}

	if c.TracerProvider != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := c.TracerProvider.Shutdown(ctx); err != nil {
			c.Logger.Error("failed to shutdown tracer provider", zap.Error(err))
		}
	}

	sentry.Flush(2 * time.Second)

	cache.CloseRedis()
	database.CloseDb()

	return nil
}
