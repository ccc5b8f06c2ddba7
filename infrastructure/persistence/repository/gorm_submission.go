package repository

import (
	"context"
	"time"

	"github.com/devscore/integrity/domain/model"
	"github.com/devscore/integrity/domain/repository"
	"github.com/devscore/integrity/infrastructure/persistence/database"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type gormSubmissionRepository struct {
	db     *gorm.DB
	tracer trace.Tracer
}

func NewGormSubmissionRepository(db *gorm.DB, tracer trace.Tracer) repository.SubmissionRepository {
	return &gormSubmissionRepository{
		db:     db,
		tracer: tracer,
	}
}

func (r *gormSubmissionRepository) Create(ctx context.Context, submission *model.Submission) error {
	ctx, span := r.tracer.Start(ctx, "submissionRepository.Create")
	defer span.End()

	span.SetAttributes(
		attribute.String("submission.id", submission.ID),
		attribute.String("assessment.id", submission.AssessmentID),
	)

	if err := r.db.WithContext(ctx).Create(submission).Error; err != nil {
		return failSpan(span, repository.NewStorageError("create submission", errors.Wrap(err, "insert submission")))
	}

	span.SetStatus(codes.Ok, "submission created")
	return nil
}

func (r *gormSubmissionRepository) Exists(ctx context.Context, id string) (bool, error) {
	ctx, span := r.tracer.Start(ctx, "submissionRepository.Exists")
	defer span.End()

	span.SetAttributes(attribute.String("submission.id", id))

	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.Submission{}).
		Where("id = ?", id).
		Count(&count).
		Error
	if err != nil {
		return false, failSpan(span, repository.NewStorageError("exists", errors.Wrap(err, "count submissions")))
	}

	span.SetStatus(codes.Ok, "submission looked up")
	return count > 0, nil
}

func (r *gormSubmissionRepository) GetByID(ctx context.Context, id string) (*model.Submission, error) {
	ctx, span := r.tracer.Start(ctx, "submissionRepository.GetByID")
	defer span.End()

	span.SetAttributes(attribute.String("submission.id", id))

	var submission model.Submission
	if err := r.db.WithContext(ctx).Where("id = ?", id).Take(&submission).Error; err != nil {
		return nil, failSpan(span, notFoundOr("get submission", err))
	}

	span.SetStatus(codes.Ok, "submission retrieved")
	return &submission, nil
}

func (r *gormSubmissionRepository) GetAssessmentID(ctx context.Context, id string) (string, error) {
	ctx, span := r.tracer.Start(ctx, "submissionRepository.GetAssessmentID")
	defer span.End()

	span.SetAttributes(attribute.String("submission.id", id))

	var submission model.Submission
	err := r.db.WithContext(ctx).
		Select("id", "assessment_id").
		Where("id = ?", id).
		Take(&submission).
		Error
	if err != nil {
		return "", failSpan(span, notFoundOr("get assessment id", err))
	}

	span.SetStatus(codes.Ok, "assessment id retrieved")
	return submission.AssessmentID, nil
}

// ListFingerprints returns peers in submission order so the first peer reaching
// the maximum similarity is stable across runs.
func (r *gormSubmissionRepository) ListFingerprints(ctx context.Context, assessmentID, excludeID string) ([]repository.PeerFingerprint, error) {
	ctx, span := r.tracer.Start(ctx, "submissionRepository.ListFingerprints")
	defer span.End()

	span.SetAttributes(
		attribute.String("assessment.id", assessmentID),
		attribute.String("submission.id", excludeID),
	)

	var submissions []model.Submission
	err := r.db.WithContext(ctx).
		Select("id", "code_fingerprint").
		Where("assessment_id = ? AND id <> ?", assessmentID, excludeID).
		Order("submitted_at ASC").
		Order("id ASC").
		Find(&submissions).
		Error
	if err != nil {
		return nil, failSpan(span, repository.NewStorageError("list fingerprints", errors.Wrap(err, "select fingerprints")))
	}

	peers := make([]repository.PeerFingerprint, 0, len(submissions))
	for _, s := range submissions {
		peers = append(peers, repository.PeerFingerprint{
			SubmissionID: s.ID,
			Fingerprint:  []int64(s.CodeFingerprint),
		})
	}

	span.SetAttributes(attribute.Int("peer.count", len(peers)))
	span.SetStatus(codes.Ok, "fingerprints listed")
	return peers, nil
}

func (r *gormSubmissionRepository) SetFingerprint(ctx context.Context, id string, fingerprint []int64) error {
	ctx, span := r.tracer.Start(ctx, "submissionRepository.SetFingerprint")
	defer span.End()

	span.SetAttributes(
		attribute.String("submission.id", id),
		attribute.Int("fingerprint.size", len(fingerprint)),
	)

	if fingerprint == nil {
		fingerprint = []int64{}
	}

	result := r.db.WithContext(ctx).
		Model(&model.Submission{}).
		Where("id = ?", id).
		Update("code_fingerprint", datatypes.JSONSlice[int64](fingerprint))
	if err := rowsOrNotFound("set fingerprint", result); err != nil {
		return failSpan(span, err)
	}

	span.SetStatus(codes.Ok, "fingerprint stored")
	return nil
}

// SetSimilarity raises the recorded maximum similarity; lower values are ignored.
func (r *gormSubmissionRepository) SetSimilarity(ctx context.Context, id string, similarity float64, peerID string) error {
	ctx, span := r.tracer.Start(ctx, "submissionRepository.SetSimilarity")
	defer span.End()

	span.SetAttributes(
		attribute.String("submission.id", id),
		attribute.String("peer.id", peerID),
		attribute.Float64("similarity", similarity),
	)

	err := r.db.WithContext(ctx).
		Model(&model.Submission{}).
		Where("id = ? AND max_similarity < ?", id, similarity).
		Updates(map[string]any{
			"max_similarity":       similarity,
			"most_similar_peer_id": peerID,
		}).
		Error
	if err != nil {
		return failSpan(span, repository.NewStorageError("set similarity", errors.Wrap(err, "update similarity")))
	}

	span.SetStatus(codes.Ok, "similarity stored")
	return nil
}

func (r *gormSubmissionRepository) SetBaseScore(ctx context.Context, id string, baseScore float64, score *int) (*model.Submission, error) {
	ctx, span := r.tracer.Start(ctx, "submissionRepository.SetBaseScore")
	defer span.End()

	span.SetAttributes(
		attribute.String("submission.id", id),
		attribute.Float64("integrity.base", baseScore),
	)

	var updated model.Submission
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := forUpdate(tx).Where("id = ?", id).Take(&updated).Error; err != nil {
			return err
		}

		updated.BaseIntegrityScore = baseScore
		updated.IntegrityScore = model.EffectiveIntegrityScore(baseScore, updated.IntegrityPenalty)
		columns := map[string]any{
			"base_integrity_score": updated.BaseIntegrityScore,
			"integrity_score":      updated.IntegrityScore,
		}
		if score != nil {
			updated.Score = *score
			columns["score"] = *score
		}

		return tx.Model(&model.Submission{}).Where("id = ?", id).Updates(columns).Error
	})
	if err != nil {
		return nil, failSpan(span, notFoundOr("set base score", err))
	}

	span.SetStatus(codes.Ok, "base score stored")
	return &updated, nil
}

func (r *gormSubmissionRepository) ApplyPenalty(ctx context.Context, id string, update repository.PenaltyUpdate) (bool, error) {
	ctx, span := r.tracer.Start(ctx, "submissionRepository.ApplyPenalty")
	defer span.End()

	span.SetAttributes(
		attribute.String("submission.id", id),
		attribute.Float64("integrity.penalty", update.Penalty),
	)

	applied := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var submission model.Submission
		if err := forUpdate(tx).Where("id = ?", id).Take(&submission).Error; err != nil {
			return err
		}

		if submission.HasFlagPrefix(update.FlagPrefix) {
			return nil
		}

		flags := append([]string{}, submission.IntegrityFlags...)
		flags = append(flags, update.Flag)
		penalty := submission.IntegrityPenalty + update.Penalty

		err := tx.Model(&model.Submission{}).
			Where("id = ?", id).
			Updates(map[string]any{
				"integrity_flags":   datatypes.JSONSlice[string](flags),
				"integrity_penalty": penalty,
				"integrity_score":   model.EffectiveIntegrityScore(submission.BaseIntegrityScore, penalty),
			}).
			Error
		if err != nil {
			return err
		}

		applied = true
		return nil
	})
	if err != nil {
		return false, failSpan(span, notFoundOr("apply penalty", err))
	}

	span.SetAttributes(attribute.Bool("integrity.penalty_applied", applied))
	span.SetStatus(codes.Ok, "penalty evaluated")
	return applied, nil
}

func (r *gormSubmissionRepository) ListByAssessment(ctx context.Context, assessmentID string) ([]*model.Submission, error) {
	ctx, span := r.tracer.Start(ctx, "submissionRepository.ListByAssessment")
	defer span.End()

	span.SetAttributes(attribute.String("assessment.id", assessmentID))

	var submissions []*model.Submission
	err := r.db.WithContext(ctx).
		Where("assessment_id = ?", assessmentID).
		Order("score DESC").
		Order("submitted_at ASC").
		Order("id ASC").
		Find(&submissions).
		Error
	if err != nil {
		return nil, failSpan(span, repository.NewStorageError("list by assessment", errors.Wrap(err, "select submissions")))
	}

	span.SetStatus(codes.Ok, "submissions listed")
	return submissions, nil
}

func (r *gormSubmissionRepository) MarkFinalized(ctx context.Context, id string) error {
	ctx, span := r.tracer.Start(ctx, "submissionRepository.MarkFinalized")
	defer span.End()

	span.SetAttributes(attribute.String("submission.id", id))

	result := r.db.WithContext(ctx).
		Model(&model.Submission{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status": model.SubmissionFinalized,
			"submitted_at": gorm.Expr("CASE WHEN status = ? THEN submitted_at ELSE ? END",
				model.SubmissionFinalized, time.Now().UTC()),
		})
	if err := rowsOrNotFound("mark finalized", result); err != nil {
		return failSpan(span, err)
	}

	span.SetStatus(codes.Ok, "submission finalized")
	return nil
}

// forUpdate takes a row lock where the dialect supports one. SQLite
// serialises writers on its own.
func forUpdate(tx *gorm.DB) *gorm.DB {
	if database.IsPostgres(tx) {
		return tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return tx
}

func notFoundOr(op string, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return repository.ErrNotFound
	}
	return repository.NewStorageError(op, errors.Wrap(err, op))
}

func rowsOrNotFound(op string, result *gorm.DB) error {
	if result.Error != nil {
		return repository.NewStorageError(op, errors.Wrap(result.Error, op))
	}
	if result.RowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}
