package submission

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/devscore/integrity/application/services/fingerprint"
	"github.com/devscore/integrity/application/services/flagging"
	"github.com/devscore/integrity/domain/model"
	"github.com/devscore/integrity/domain/repository"
	"github.com/devscore/integrity/infrastructure/events"
	"github.com/devscore/integrity/infrastructure/logger"
	"github.com/devscore/integrity/infrastructure/metrics"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrInvalidScore      = errors.New("integrity score must be between 0 and 100")
	ErrAlreadyExists     = errors.New("submission already exists")
	ErrMissingAssessment = errors.New("assessment ID cannot be empty")
)

// FinalizePublisher hands fingerprinting off to a background worker.
type FinalizePublisher interface {
	PublishSubmissionFinalized(ctx context.Context, submissionID, assessmentID string, answers []model.CodeAnswer) (string, error)
}

type FinalizeResult struct {
	EventID string
	// Fingerprinted is false when there was no code to compare.
	Fingerprinted bool
}

// PlagiarismResult is the outcome of comparing one submission with its peers.
type PlagiarismResult struct {
	Fingerprint []int64
	Match       fingerprint.Match
	Suspected   bool
}

type SubmissionUseCase interface {
	// Register opens a submission in the RECORDING state. An empty id is
	// replaced by a generated one.
	Register(ctx context.Context, id, assessmentID, candidateID string) (*model.Submission, error)
	// Finalize enqueues the plagiarism check and then marks the submission
	// FINALIZED. Finalizing again keeps the first submission time.
	Finalize(ctx context.Context, submissionID string, answers []model.CodeAnswer) (*FinalizeResult, error)
	// CheckPlagiarism fingerprints the answers, stores the fingerprint and
	// flags both sides of a suspect pair. It returns nil when there is no code.
	CheckPlagiarism(ctx context.Context, submissionID, assessmentID string, answers []model.CodeAnswer) (*PlagiarismResult, error)
	HandleFinalized(ctx context.Context, event *events.Event) error
	UpdateEvaluation(ctx context.Context, submissionID string, integrityScore float64, score *int) (*model.Submission, error)
}

type submissionUseCase struct {
	submissions repository.SubmissionRepository
	publisher   FinalizePublisher
	policy      flagging.Policy
	metrics     metrics.Manager
	logger      *logger.Logger
}

func NewSubmissionUseCase(
	submissions repository.SubmissionRepository,
	publisher FinalizePublisher,
	policy flagging.Policy,
	metricsManager metrics.Manager,
	logger *logger.Logger,
) SubmissionUseCase {
	return &submissionUseCase{
		submissions: submissions,
		publisher:   publisher,
		policy:      policy,
		metrics:     metricsManager,
		logger:      logger,
	}
}

func (uc *submissionUseCase) Register(ctx context.Context, id, assessmentID, candidateID string) (*model.Submission, error) {
	if assessmentID == "" {
		return nil, ErrMissingAssessment
	}

	if id == "" {
		generated, err := uuid.NewV7()
		if err != nil {
			return nil, fmt.Errorf("generate submission ID: %w", err)
		}
		id = generated.String()
	} else {
		exists, err := uc.submissions.Exists(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("look up submission: %w", err)
		}
		if exists {
			return nil, ErrAlreadyExists
		}
	}

	submission := model.NewSubmission(id, assessmentID, candidateID)
	if err := uc.submissions.Create(ctx, submission); err != nil {
		return nil, fmt.Errorf("create submission: %w", err)
	}

	uc.logger.Info("Submission registered",
		zap.String("submissionID", id),
		zap.String("assessmentID", assessmentID),
	)
	return submission, nil
}

func (uc *submissionUseCase) Finalize(ctx context.Context, submissionID string, answers []model.CodeAnswer) (*FinalizeResult, error) {
	if submissionID == "" {
		return nil, fmt.Errorf("submission ID cannot be empty")
	}

	assessmentID, err := uc.submissions.GetAssessmentID(ctx, submissionID)
	if err != nil {
		return nil, fmt.Errorf("get submission %s: %w", submissionID, err)
	}

	// The check is enqueued before the status changes so a full queue leaves
	// the submission untouched and the client can retry.
	var result FinalizeResult
	if fingerprint.ConcatAnswers(answers) == "" {
		uc.logger.Info("No code to fingerprint, skipping plagiarism check", zap.String("submissionID", submissionID))
	} else {
		eventID, err := uc.publisher.PublishSubmissionFinalized(ctx, submissionID, assessmentID, answers)
		if err != nil {
			uc.logger.Error("failed to enqueue finalized submission", zap.Error(err), zap.String("submissionID", submissionID))
			return nil, fmt.Errorf("enqueue plagiarism check: %w", err)
		}
		result = FinalizeResult{EventID: eventID, Fingerprinted: true}
	}

	if err := uc.submissions.MarkFinalized(ctx, submissionID); err != nil {
		return nil, fmt.Errorf("mark submission finalized: %w", err)
	}

	uc.logger.Info("Submission finalized",
		zap.String("submissionID", submissionID),
		zap.String("assessmentID", assessmentID),
		zap.String("eventID", result.EventID),
	)
	return &result, nil
}

func (uc *submissionUseCase) HandleFinalized(ctx context.Context, event *events.Event) error {
	_, err := uc.CheckPlagiarism(ctx, event.SubmissionID, event.AssessmentID, event.Answers())
	return err
}

func (uc *submissionUseCase) CheckPlagiarism(ctx context.Context, submissionID, assessmentID string, answers []model.CodeAnswer) (*PlagiarismResult, error) {
	start := time.Now()
	defer func() {
		uc.metrics.RecordHistogram(ctx, metrics.FinalizeDuration, time.Since(start).Seconds())
	}()

	code := fingerprint.ConcatAnswers(answers)
	if code == "" {
		return nil, nil
	}

	fp := fingerprint.Compute(code)

	// Own fingerprint goes first so a concurrent peer scan sees it.
	if err := uc.submissions.SetFingerprint(ctx, submissionID, fp); err != nil {
		return nil, fmt.Errorf("store fingerprint: %w", err)
	}

	peers, err := uc.submissions.ListFingerprints(ctx, assessmentID, submissionID)
	if err != nil {
		return nil, fmt.Errorf("list peer fingerprints: %w", err)
	}

	result := &PlagiarismResult{
		Fingerprint: fp,
		Match:       fingerprint.BestMatch(fp, peers),
	}

	if result.Match.PeerID == "" {
		return result, nil
	}

	if err := uc.submissions.SetSimilarity(ctx, submissionID, result.Match.Similarity, result.Match.PeerID); err != nil {
		return nil, fmt.Errorf("store similarity: %w", err)
	}

	if !uc.policy.IsPlagiarismSuspect(result.Match.Similarity) {
		return result, nil
	}
	result.Suspected = true

	uc.logger.Warn("Plagiarism suspected",
		zap.String("submissionID", submissionID),
		zap.String("peerID", result.Match.PeerID),
		zap.Float64("similarity", result.Match.Similarity),
	)

	if err := uc.flag(ctx, submissionID, result.Match.PeerID, result.Match.Similarity); err != nil {
		return nil, err
	}
	if err := uc.submissions.SetSimilarity(ctx, result.Match.PeerID, result.Match.Similarity, submissionID); err != nil {
		return nil, fmt.Errorf("store peer similarity: %w", err)
	}
	if err := uc.flag(ctx, result.Match.PeerID, submissionID, result.Match.Similarity); err != nil {
		return nil, err
	}

	return result, nil
}

func (uc *submissionUseCase) flag(ctx context.Context, submissionID, peerID string, similarity float64) error {
	applied, err := uc.submissions.ApplyPenalty(ctx, submissionID, uc.policy.PlagiarismPenaltyUpdate(similarity, peerID))
	if err != nil {
		return fmt.Errorf("flag submission %s: %w", submissionID, err)
	}
	if applied {
		uc.metrics.IncrementCounter(ctx, metrics.PlagiarismFlags, "severity", flagging.Severity(similarity))
	}
	return nil
}

func (uc *submissionUseCase) UpdateEvaluation(ctx context.Context, submissionID string, integrityScore float64, score *int) (*model.Submission, error) {
	if submissionID == "" {
		return nil, fmt.Errorf("submission ID cannot be empty")
	}
	if integrityScore < model.MinIntegrityScore || integrityScore > model.MaxIntegrityScore {
		return nil, ErrInvalidScore
	}

	submission, err := uc.submissions.SetBaseScore(ctx, submissionID, integrityScore, score)
	if err != nil {
		return nil, fmt.Errorf("store evaluation for %s: %w", submissionID, err)
	}
	return submission, nil
}
