package proctor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/devscore/integrity/domain/model"
	"github.com/devscore/integrity/domain/repository"
	"github.com/devscore/integrity/infrastructure/config"
	"github.com/devscore/integrity/infrastructure/logger"
	"github.com/devscore/integrity/infrastructure/metrics"
	"go.uber.org/zap"
)

var (
	ErrInvalidEntry   = errors.New("invalid log entry")
	ErrEmptyBatch     = errors.New("batch is empty")
	ErrBatchTooLarge  = errors.New("batch exceeds the maximum size")
	ErrNothingWritten = errors.New("no log entry could be persisted")
)

type Outcome string

const (
	OutcomeSaved   Outcome = "saved"
	OutcomeSkipped Outcome = "skipped"
)

// LogEntry is an unvalidated telemetry entry as received from a recorder.
// A nil Timestamp means the receive time is used. DecodeErr marks an entry
// whose wire form could not be decoded; it is always rejected as invalid.
type LogEntry struct {
	SubmissionID   string
	LogType        string
	Data           string
	SequenceNumber *int64
	Timestamp      *time.Time
	DecodeErr      error
}

type BatchResult struct {
	Accepted int
	Skipped  int
	Failed   int
}

type ProctorUseCase interface {
	// LogSingle stores one entry. An unknown submission is not an error: the
	// entry is dropped and OutcomeSkipped returned. This includes a submission
	// deleted between the existence check and the write.
	LogSingle(ctx context.Context, entry LogEntry) (Outcome, error)
	// LogBatch stores what it can. Entries for unknown submissions or with an
	// invalid shape are skipped, and a storage failure of one entry never
	// prevents the others from being written.
	LogBatch(ctx context.Context, entries []LogEntry) (BatchResult, error)
}

type proctorUseCase struct {
	logs         repository.ProctorLogRepository
	submissions  repository.SubmissionRepository
	maxBatchSize int
	metrics      metrics.Manager
	logger       *logger.Logger
	now          func() time.Time
}

func NewProctorUseCase(
	logs repository.ProctorLogRepository,
	submissions repository.SubmissionRepository,
	cfg config.ProctoringConfig,
	metricsManager metrics.Manager,
	logger *logger.Logger,
) ProctorUseCase {
	return &proctorUseCase{
		logs:         logs,
		submissions:  submissions,
		maxBatchSize: cfg.MaxBatchSize,
		metrics:      metricsManager,
		logger:       logger,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

func (uc *proctorUseCase) LogSingle(ctx context.Context, entry LogEntry) (Outcome, error) {
	log, err := uc.toModel(entry, uc.now())
	if err != nil {
		return "", err
	}

	exists, err := uc.submissions.Exists(ctx, log.SubmissionID)
	if err != nil {
		uc.logger.Error("failed to look up submission", zap.Error(err), zap.String("submissionID", log.SubmissionID))
		uc.count(ctx, metrics.ProctorLogsFailed, "single", 1)
		return "", fmt.Errorf("look up submission: %w", err)
	}
	if !exists {
		uc.logger.Warn("Skipping proctor log for unknown submission",
			zap.String("submissionID", log.SubmissionID),
			zap.String("logType", string(log.LogType)),
		)
		uc.count(ctx, metrics.ProctorLogsSkipped, "single", 1)
		return OutcomeSkipped, nil
	}

	if err := uc.logs.Append(ctx, log); err != nil {
		if uc.vanished(ctx, log.SubmissionID, err) {
			uc.logger.Warn("Skipping proctor log for deleted submission",
				zap.String("submissionID", log.SubmissionID),
				zap.String("logType", string(log.LogType)),
			)
			uc.count(ctx, metrics.ProctorLogsSkipped, "single", 1)
			return OutcomeSkipped, nil
		}
		uc.logger.Error("failed to append proctor log", zap.Error(err), zap.String("submissionID", log.SubmissionID))
		uc.count(ctx, metrics.ProctorLogsFailed, "single", 1)
		return "", fmt.Errorf("append proctor log: %w", err)
	}

	uc.count(ctx, metrics.ProctorLogsAccepted, "single", 1)
	return OutcomeSaved, nil
}

func (uc *proctorUseCase) LogBatch(ctx context.Context, entries []LogEntry) (BatchResult, error) {
	var result BatchResult

	if len(entries) == 0 {
		return result, ErrEmptyBatch
	}
	if uc.maxBatchSize > 0 && len(entries) > uc.maxBatchSize {
		return result, fmt.Errorf("%w: %d > %d", ErrBatchTooLarge, len(entries), uc.maxBatchSize)
	}

	receivedAt := uc.now()
	known := make(map[string]bool)
	accepted := make([]*model.ProctorLog, 0, len(entries))

	for i, entry := range entries {
		log, err := uc.toModel(entry, receivedAt)
		if err != nil {
			uc.logger.Warn("Skipping invalid batch entry", zap.Int("index", i), zap.Error(err))
			result.Skipped++
			continue
		}

		exists, seen := known[log.SubmissionID]
		if !seen {
			exists, err = uc.submissions.Exists(ctx, log.SubmissionID)
			if err != nil {
				uc.logger.Error("failed to look up submission", zap.Error(err), zap.String("submissionID", log.SubmissionID))
				result.Failed++
				continue
			}
			known[log.SubmissionID] = exists
		}
		if !exists {
			uc.logger.Warn("Skipping proctor log for unknown submission",
				zap.Int("index", i),
				zap.String("submissionID", log.SubmissionID),
			)
			result.Skipped++
			continue
		}

		accepted = append(accepted, log)
	}

	if len(accepted) > 0 {
		if err := uc.logs.AppendBatch(ctx, accepted); err != nil {
			uc.logger.Warn("Batch append failed, retrying entries one by one",
				zap.Int("entries", len(accepted)),
				zap.Error(err),
			)
			gone := make(map[string]bool)
			for _, log := range accepted {
				if err := uc.logs.Append(ctx, log); err != nil {
					deleted, checked := gone[log.SubmissionID]
					if !checked {
						deleted = uc.vanished(ctx, log.SubmissionID, err)
						gone[log.SubmissionID] = deleted
					}
					if deleted {
						uc.logger.Warn("Skipping proctor log for deleted submission",
							zap.String("submissionID", log.SubmissionID),
							zap.String("logID", log.ID),
						)
						result.Skipped++
						continue
					}
					uc.logger.Error("failed to append proctor log",
						zap.Error(err),
						zap.String("submissionID", log.SubmissionID),
						zap.String("logID", log.ID),
					)
					result.Failed++
					continue
				}
				result.Accepted++
			}
		} else {
			result.Accepted = len(accepted)
		}
	}

	uc.count(ctx, metrics.ProctorLogsAccepted, "batch", result.Accepted)
	uc.count(ctx, metrics.ProctorLogsSkipped, "batch", result.Skipped)
	uc.count(ctx, metrics.ProctorLogsFailed, "batch", result.Failed)

	if result.Accepted == 0 && result.Failed > 0 {
		return result, ErrNothingWritten
	}
	return result, nil
}

// forgetter is implemented by submission lookups that cache identities.
type forgetter interface {
	Forget(id string)
}

// vanished reports whether a failed write was caused by the submission being
// deleted after its existence was confirmed. The cached identity is dropped
// before asking the store again.
func (uc *proctorUseCase) vanished(ctx context.Context, submissionID string, writeErr error) bool {
	if !repository.IsStorageError(writeErr) {
		return false
	}
	if f, ok := uc.submissions.(forgetter); ok {
		f.Forget(submissionID)
	}
	exists, err := uc.submissions.Exists(ctx, submissionID)
	if err != nil {
		uc.logger.Error("failed to re-check submission", zap.Error(err), zap.String("submissionID", submissionID))
		return false
	}
	return !exists
}

func (uc *proctorUseCase) toModel(entry LogEntry, receivedAt time.Time) (*model.ProctorLog, error) {
	if entry.DecodeErr != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEntry, entry.DecodeErr)
	}

	submissionID := strings.TrimSpace(entry.SubmissionID)
	if submissionID == "" {
		return nil, fmt.Errorf("%w: submission ID cannot be empty", ErrInvalidEntry)
	}

	logType, err := model.ParseLogType(entry.LogType)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEntry, err)
	}

	ts := receivedAt
	if entry.Timestamp != nil && !entry.Timestamp.IsZero() {
		ts = entry.Timestamp.UTC()
	}

	return &model.ProctorLog{
		SubmissionID:   submissionID,
		Timestamp:      ts,
		SequenceNumber: entry.SequenceNumber,
		LogType:        logType,
		Payload:        entry.Data,
	}, nil
}

func (uc *proctorUseCase) count(ctx context.Context, name, mode string, n int) {
	if n == 0 {
		return
	}
	uc.metrics.AddCounter(ctx, name, float64(n), "mode", mode)
}
