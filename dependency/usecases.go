package dependency

import (
	"github.com/devscore/integrity/application/services/flagging"
	"github.com/devscore/integrity/application/services/timeline"
	integrityUseCase "github.com/devscore/integrity/application/usecases/integrity"
	proctorUseCase "github.com/devscore/integrity/application/usecases/proctor"
	submissionUseCase "github.com/devscore/integrity/application/usecases/submission"
)

func (c *Container) initServices() {
	c.Assembler = timeline.NewAssembler(c.Logger)
	c.Policy = flagging.NewPolicy(c.Config.Proctoring)
}

func (c *Container) initUseCases() {
	c.ProctorUC = proctorUseCase.NewProctorUseCase(
		c.ProctorLogRepo,
		c.SubmissionLookup,
		c.Config.Proctoring,
		c.MetricsManager,
		c.Logger,
	)
	c.IntegrityUC = integrityUseCase.NewIntegrityUseCase(
		c.ProctorLogRepo,
		c.SubmissionRepo,
		c.Assembler,
		c.Policy,
		c.Logger,
	)
	c.SubmissionUC = submissionUseCase.NewSubmissionUseCase(
		c.SubmissionRepo,
		c.EventBus,
		c.Policy,
		c.MetricsManager,
		c.Logger,
	)

	c.Logger.Info("Use cases initialized successfully")
}
