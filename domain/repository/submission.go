package repository

import (
	"context"

	"github.com/devscore/integrity/domain/model"
)

// PeerFingerprint is another submission's fingerprint within the same assessment.
type PeerFingerprint struct {
	SubmissionID string
	Fingerprint  []int64
}

// PenaltyUpdate describes a flag to attach to a submission together with the
// penalty to subtract from its integrity score. The penalty is applied only
// when no existing flag carries FlagPrefix.
type PenaltyUpdate struct {
	Flag       string
	FlagPrefix string
	Penalty    float64
}

type SubmissionRepository interface {
	Create(ctx context.Context, submission *model.Submission) error
	Exists(ctx context.Context, id string) (bool, error)
	GetByID(ctx context.Context, id string) (*model.Submission, error)
	GetAssessmentID(ctx context.Context, id string) (string, error)
	ListFingerprints(ctx context.Context, assessmentID, excludeID string) ([]PeerFingerprint, error)
	SetFingerprint(ctx context.Context, id string, fingerprint []int64) error
	SetSimilarity(ctx context.Context, id string, similarity float64, peerID string) error
	SetBaseScore(ctx context.Context, id string, baseScore float64, score *int) (*model.Submission, error)
	// ApplyPenalty reports whether the penalty was applied by this call.
	ApplyPenalty(ctx context.Context, id string, update PenaltyUpdate) (bool, error)
	ListByAssessment(ctx context.Context, assessmentID string) ([]*model.Submission, error)
	// MarkFinalized keeps the submission time of an already finalized submission.
	MarkFinalized(ctx context.Context, id string) error
}
