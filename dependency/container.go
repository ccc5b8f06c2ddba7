package dependency

import (
	"context"
	"fmt"

	"github.com/devscore/integrity/application/services/flagging"
	"github.com/devscore/integrity/application/services/timeline"
	integrityUseCase "github.com/devscore/integrity/application/usecases/integrity"
	proctorUseCase "github.com/devscore/integrity/application/usecases/proctor"
	submissionUseCase "github.com/devscore/integrity/application/usecases/submission"
	"github.com/devscore/integrity/domain/repository"
	"github.com/devscore/integrity/infrastructure/cache"
	"github.com/devscore/integrity/infrastructure/config"
	"github.com/devscore/integrity/infrastructure/events"
	"github.com/devscore/integrity/infrastructure/jobs"
	"github.com/devscore/integrity/infrastructure/logger"
	"github.com/devscore/integrity/infrastructure/metrics"
	"github.com/devscore/integrity/presentation/controllers/integrity"
	"github.com/devscore/integrity/presentation/controllers/proctor"
	"github.com/devscore/integrity/presentation/controllers/submission"
	"go.opentelemetry.io/otel/sdk/trace"
	"gorm.io/gorm"
)

type Container struct {
	Config *config.Config
	Logger *logger.Logger

	TracerProvider *trace.TracerProvider
	MetricsManager metrics.Manager

	DB *gorm.DB

	ProctorLogRepo   repository.ProctorLogRepository
	SubmissionRepo   repository.SubmissionRepository
	SubmissionLookup *cache.SubmissionLookup

	Assembler timeline.Assembler
	Policy    flagging.Policy

	EventBus         *events.EventBus
	OrphanCleanupJob *jobs.OrphanCleanupJob

	ProctorUC    proctorUseCase.ProctorUseCase
	IntegrityUC  integrityUseCase.IntegrityUseCase
	SubmissionUC submissionUseCase.SubmissionUseCase

	ProctorController    proctor.ProctorController
	IntegrityController  integrity.IntegrityController
	SubmissionController submission.SubmissionController

	ctx    context.Context
	cancel context.CancelFunc
}

func NewContainer(cfg *config.Config) (*Container, error) {
	c := &Container{Config: cfg}

	loggerInstance, err := logger.NewLogger(cfg.Logger)
	if err != nil {
		return nil, fmt.Errorf("error initializing logger: %w", err)
	}
	c.Logger = loggerInstance

	c.Logger.Info("Initializing integrity service dependencies")

	if err := c.initInfrastructure(); err != nil {
		return nil, fmt.Errorf("error initializing infrastructure: %w", err)
	}

	if err := c.initRepositories(); err != nil {
		return nil, fmt.Errorf("error initializing repositories: %w", err)
	}

	c.initServices()

	c.initUseCases()

	c.initControllers()

	c.ctx, c.cancel = context.WithCancel(context.Background())
	c.initBackgroundWorkers(c.ctx)

	c.Logger.Info("All dependencies initialized successfully")

	return c, nil
}
