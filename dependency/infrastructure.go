package dependency

import (
	"context"
	"fmt"
	"time"

	"github.com/devscore/integrity/infrastructure/events"
	"github.com/devscore/integrity/infrastructure/jobs"
	"github.com/devscore/integrity/infrastructure/metrics"
	"github.com/devscore/integrity/infrastructure/metrics/exporters"
	"github.com/getsentry/sentry-go"
	"go.uber.org/zap"
)

func (c *Container) initInfrastructure() error {
	if c.Config.Jaeger.Enabled {
		tracerProvider, err := exporters.InitJaegerExporter(c.Config)
		if err != nil {
			c.Logger.Error("failed to initialize Jaeger exporter", zap.Error(err))
			c.Logger.Warn("Using noop tracer provider as fallback")
		} else {
			c.TracerProvider = tracerProvider
			c.Logger.Info("Jaeger exporter initialized successfully",
				zap.String("endpoint", c.Config.Jaeger.Endpoint),
				zap.String("service", c.Config.Jaeger.ServiceName),
			)
		}
	}

	meter, err := exporters.Prometheus(c.Config.Jaeger, c.Config.Server.RunMode, nil)
	if err != nil {
		return fmt.Errorf("failed to initialize Prometheus exporter: %w", err)
	}

	c.MetricsManager = metrics.NewMetricsManager(meter, c.Logger)
	metrics.RegisterApplicationMetrics(c.MetricsManager)

	c.Logger.Info("Metrics initialized successfully")

	p := c.Config.Proctoring
	c.EventBus = events.NewEventBus(p.FinalizeWorkers, p.FinalizeQueueSize, c.Logger, c.MetricsManager)

	if c.Config.Sentry.Dsn != "" {
		err := sentry.Init(sentry.ClientOptions{
			Dsn:            c.Config.Sentry.Dsn,
			Debug:          c.Config.Sentry.Debug,
			SendDefaultPII: c.Config.Sentry.SendDefaultPII,
			Environment:    c.Config.Server.RunMode,
			Release:        c.Config.Jaeger.ServiceVersion,
		})
		if err != nil {
			c.Logger.Error("failed to initialize Sentry", zap.Error(err))
		} else {
			c.Logger.Info("Sentry initialized successfully")
		}
	}

	return nil
}

func (c *Container) initBackgroundWorkers(ctx context.Context) {
	p := c.Config.Proctoring

	c.EventBus.RegisterHandler(events.EventSubmissionFinalized, c.SubmissionUC.HandleFinalized)
	c.EventBus.Start(ctx)

	if p.OrphanCleanupInterval > 0 {
		c.OrphanCleanupJob = jobs.NewOrphanCleanupJob(
			c.ProctorLogRepo,
			c.SubmissionRepo,
			c.MetricsManager,
			c.Logger,
			p.OrphanCleanupInterval,
		)

		go func() {
			// let the server come up before the first sweep
			select {
			case <-time.After(2 * time.Second):
			case <-ctx.Done():
				return
			}
			c.Logger.Info("Starting background jobs...")
			c.OrphanCleanupJob.Start(ctx)
		}()
	}

	c.Logger.Info("Background workers initialized and started successfully")
}
