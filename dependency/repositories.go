package dependency

import (
	"fmt"

	"github.com/devscore/integrity/infrastructure/cache"
	"github.com/devscore/integrity/infrastructure/config"
	"github.com/devscore/integrity/infrastructure/persistence/database"
	"github.com/devscore/integrity/infrastructure/persistence/migration"
	"github.com/devscore/integrity/infrastructure/persistence/repository"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

func (c *Container) initRepositories() error {
	if err := database.InitDb(c.Config, c.Logger.Log); err != nil {
		return fmt.Errorf("error initializing database: %w", err)
	}
	c.DB = database.GetDb()

	if err := migration.Up1(c.DB); err != nil {
		return fmt.Errorf("error migrating database: %w", err)
	}

	tracer := otel.Tracer(c.Config.Jaeger.ServiceName)

	c.SubmissionRepo = repository.NewGormSubmissionRepository(c.DB, tracer)

	switch c.Config.Storage.LogDriver {
	case config.LogDriverRedis:
		if err := cache.InitRedis(c.Config); err != nil {
			return fmt.Errorf("error initializing cache: %w", err)
		}
		c.ProctorLogRepo = repository.NewRedisProctorLogRepository(cache.GetRedis(), tracer, c.Logger)
	default:
		c.ProctorLogRepo = repository.NewGormProctorLogRepository(c.DB, tracer)
	}

	p := c.Config.Proctoring
	c.SubmissionLookup = cache.NewSubmissionLookup(c.SubmissionRepo, p.LookupCacheSize, p.LookupCacheTTL)

	c.Logger.Info("Repositories initialized successfully",
		zap.String("database", c.Config.Database.Driver),
		zap.String("logDriver", c.Config.Storage.LogDriver),
	)
	return nil
}
