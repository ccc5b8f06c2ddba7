package jobs

import (
	"context"
	"time"

	"github.com/devscore/integrity/domain/repository"
	"github.com/devscore/integrity/infrastructure/logger"
	"github.com/devscore/integrity/infrastructure/metrics"
	"go.uber.org/zap"
)

// OrphanCleanupJob removes proctor logs whose submission no longer exists.
// The relational store cascades deletes on its own; the job covers log
// stores without foreign keys.
type OrphanCleanupJob struct {
	logs        repository.ProctorLogRepository
	submissions repository.SubmissionRepository
	metrics     metrics.Manager
	logger      *logger.Logger
	interval    time.Duration
	stopChan    chan struct{}
}

func NewOrphanCleanupJob(
	logs repository.ProctorLogRepository,
	submissions repository.SubmissionRepository,
	metrics metrics.Manager,
	logger *logger.Logger,
	interval time.Duration,
) *OrphanCleanupJob {
	return &OrphanCleanupJob{
		logs:        logs,
		submissions: submissions,
		metrics:     metrics,
		logger:      logger,
		interval:    interval,
		stopChan:    make(chan struct{}),
	}
}

func (j *OrphanCleanupJob) Start(ctx context.Context) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	j.logger.Info("Orphan log cleanup job started",
		zap.Duration("interval", j.interval),
	)

	j.runCleanup(ctx)

	for {
		select {
		case <-ticker.C:
			j.runCleanup(ctx)
		case <-j.stopChan:
			j.logger.Info("Orphan log cleanup job stopped")
			return
		case <-ctx.Done():
			j.logger.Info("Orphan log cleanup job context cancelled")
			return
		}
	}
}

func (j *OrphanCleanupJob) Stop() {
	close(j.stopChan)
}

func (j *OrphanCleanupJob) runCleanup(ctx context.Context) {
	startTime := time.Now()

	deleted, err := j.RunOnce(ctx)
	if err != nil {
		j.logger.Error("Orphan log cleanup failed",
			zap.Error(err),
			zap.Duration("duration", time.Since(startTime)),
		)
		return
	}

	j.logger.Info("Orphan log cleanup completed",
		zap.Int64("deleted", deleted),
		zap.Duration("duration", time.Since(startTime)),
	)
}

// RunOnce performs a single sweep and returns the number of logs removed.
// A failure on one submission is logged and the sweep moves on.
func (j *OrphanCleanupJob) RunOnce(ctx context.Context) (int64, error) {
	ids, err := j.logs.ListSubmissionIDs(ctx)
	if err != nil {
		return 0, err
	}

	var total int64
	for _, id := range ids {
		if ctx.Err() != nil {
			return total, ctx.Err()
		}

		exists, err := j.submissions.Exists(ctx, id)
		if err != nil {
			j.logger.Warn("Could not check submission for orphan logs",
				zap.String("submissionID", id),
				zap.Error(err),
			)
			continue
		}
		if exists {
			continue
		}

		n, err := j.logs.DeleteBySubmission(ctx, id)
		if err != nil {
			j.logger.Warn("Could not delete orphan logs",
				zap.String("submissionID", id),
				zap.Error(err),
			)
			continue
		}

		total += n
		j.logger.Debug("Deleted orphan logs",
			zap.String("submissionID", id),
			zap.Int64("count", n),
		)
	}

	if total > 0 {
		j.metrics.AddCounter(ctx, metrics.OrphanLogsDeleted, float64(total))
	}
	return total, nil
}
