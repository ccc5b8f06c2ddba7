package integrity

import (
	"context"
	"fmt"

	"github.com/devscore/integrity/application/services/flagging"
	"github.com/devscore/integrity/application/services/timeline"
	"github.com/devscore/integrity/domain/model"
	"github.com/devscore/integrity/domain/repository"
	"github.com/devscore/integrity/infrastructure/logger"
	"go.uber.org/zap"
)

type IntegrityUseCase interface {
	// GetReport rebuilds the report from stored logs. A submission without
	// logs yields an empty report; only a missing submission is an error.
	GetReport(ctx context.Context, submissionID string) (*model.IntegrityReport, error)
	GetLeaderboard(ctx context.Context, assessmentID string) ([]model.LeaderboardEntry, error)
}

type integrityUseCase struct {
	logs        repository.ProctorLogRepository
	submissions repository.SubmissionRepository
	assembler   timeline.Assembler
	policy      flagging.Policy
	logger      *logger.Logger
}

func NewIntegrityUseCase(
	logs repository.ProctorLogRepository,
	submissions repository.SubmissionRepository,
	assembler timeline.Assembler,
	policy flagging.Policy,
	logger *logger.Logger,
) IntegrityUseCase {
	return &integrityUseCase{
		logs:        logs,
		submissions: submissions,
		assembler:   assembler,
		policy:      policy,
		logger:      logger,
	}
}

func (uc *integrityUseCase) GetReport(ctx context.Context, submissionID string) (*model.IntegrityReport, error) {
	if submissionID == "" {
		return nil, fmt.Errorf("submission ID cannot be empty")
	}

	submission, err := uc.submissions.GetByID(ctx, submissionID)
	if err != nil {
		return nil, fmt.Errorf("get submission %s: %w", submissionID, err)
	}

	logs, err := uc.logs.ListBySubmission(ctx, submissionID)
	if err != nil {
		uc.logger.Error("failed to list proctor logs", zap.Error(err), zap.String("submissionID", submissionID))
		return nil, fmt.Errorf("list proctor logs: %w", err)
	}

	tl := uc.assembler.Assemble(submissionID, logs)

	flags := []string(submission.IntegrityFlags)
	if flags == nil {
		flags = []string{}
	}

	return &model.IntegrityReport{
		SubmissionID:   submission.ID,
		IntegrityScore: submission.IntegrityScore,
		IntegrityFlags: flags,
		Status:         uc.policy.Status(int64(len(logs))),
		LogCount:       len(logs),
		Snapshots:      tl.Snapshots,
		Anomalies:      tl.Anomalies,
		Events:         tl.Events,
	}, nil
}

func (uc *integrityUseCase) GetLeaderboard(ctx context.Context, assessmentID string) ([]model.LeaderboardEntry, error) {
	if assessmentID == "" {
		return nil, fmt.Errorf("assessment ID cannot be empty")
	}

	submissions, err := uc.submissions.ListByAssessment(ctx, assessmentID)
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}

	entries := make([]model.LeaderboardEntry, 0, len(submissions))
	for _, s := range submissions {
		count, err := uc.logs.CountBySubmission(ctx, s.ID)
		if err != nil {
			return nil, fmt.Errorf("count logs for %s: %w", s.ID, err)
		}

		flags := []string(s.IntegrityFlags)
		if flags == nil {
			flags = []string{}
		}

		entries = append(entries, model.LeaderboardEntry{
			SubmissionID:   s.ID,
			CandidateID:    s.CandidateID,
			Score:          s.Score,
			IntegrityScore: s.IntegrityScore,
			IntegrityFlags: flags,
			Status:         uc.policy.Status(count),
			SubmittedAt:    s.SubmittedAt,
		})
	}

	return entries, nil
}
