package repository

import (
	"context"

	"github.com/devscore/integrity/domain/model"
)

// ProctorLogRepository is an append-only log store keyed by submission.
// ListBySubmission returns entries ordered by timestamp, sequence number and id.
type ProctorLogRepository interface {
	Append(ctx context.Context, log *model.ProctorLog) error
	AppendBatch(ctx context.Context, logs []*model.ProctorLog) error
	ListBySubmission(ctx context.Context, submissionID string) ([]*model.ProctorLog, error)
	CountBySubmission(ctx context.Context, submissionID string) (int64, error)
	DeleteBySubmission(ctx context.Context, submissionID string) (int64, error)
	ListSubmissionIDs(ctx context.Context) ([]string, error)
}
