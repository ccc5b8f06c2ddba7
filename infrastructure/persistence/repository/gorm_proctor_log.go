package repository

import (
	"context"

	"github.com/devscore/integrity/domain/model"
	"github.com/devscore/integrity/domain/repository"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const insertBatchSize = 100

type gormProctorLogRepository struct {
	db     *gorm.DB
	tracer trace.Tracer
}

func NewGormProctorLogRepository(db *gorm.DB, tracer trace.Tracer) repository.ProctorLogRepository {
	return &gormProctorLogRepository{
		db:     db,
		tracer: tracer,
	}
}

func (r *gormProctorLogRepository) Append(ctx context.Context, log *model.ProctorLog) error {
	ctx, span := r.tracer.Start(ctx, "proctorLogRepository.Append")
	defer span.End()

	if err := prepareLog(log); err != nil {
		return failSpan(span, repository.NewStorageError("append", errors.Wrap(err, "generate log id")))
	}

	span.SetAttributes(
		attribute.String("submission.id", log.SubmissionID),
		attribute.String("log.type", string(log.LogType)),
	)

	if err := r.db.WithContext(ctx).Omit("Submission").Create(log).Error; err != nil {
		return failSpan(span, repository.NewStorageError("append", errors.Wrap(err, "insert proctor log")))
	}

	span.SetStatus(codes.Ok, "log appended")
	return nil
}

func (r *gormProctorLogRepository) AppendBatch(ctx context.Context, logs []*model.ProctorLog) error {
	ctx, span := r.tracer.Start(ctx, "proctorLogRepository.AppendBatch")
	defer span.End()

	span.SetAttributes(attribute.Int("batch.size", len(logs)))

	if len(logs) == 0 {
		return nil
	}

	for _, log := range logs {
		if err := prepareLog(log); err != nil {
			return failSpan(span, repository.NewStorageError("append batch", errors.Wrap(err, "generate log id")))
		}
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Omit("Submission").CreateInBatches(logs, insertBatchSize).Error
	})
	if err != nil {
		return failSpan(span, repository.NewStorageError("append batch", errors.Wrap(err, "insert proctor logs")))
	}

	span.SetStatus(codes.Ok, "batch appended")
	return nil
}

func (r *gormProctorLogRepository) ListBySubmission(ctx context.Context, submissionID string) ([]*model.ProctorLog, error) {
	ctx, span := r.tracer.Start(ctx, "proctorLogRepository.ListBySubmission")
	defer span.End()

	span.SetAttributes(attribute.String("submission.id", submissionID))

	var logs []*model.ProctorLog
	err := r.db.WithContext(ctx).
		Where("submission_id = ?", submissionID).
		Order(clause.OrderByColumn{Column: clause.Column{Name: "timestamp"}}).
		Order("COALESCE(sequence_number, 0) ASC").
		Order("id ASC").
		Find(&logs).
		Error
	if err != nil {
		return nil, failSpan(span, repository.NewStorageError("list", errors.Wrap(err, "select proctor logs")))
	}

	span.SetAttributes(attribute.Int("log.count", len(logs)))
	span.SetStatus(codes.Ok, "logs listed")
	return logs, nil
}

func (r *gormProctorLogRepository) CountBySubmission(ctx context.Context, submissionID string) (int64, error) {
	ctx, span := r.tracer.Start(ctx, "proctorLogRepository.CountBySubmission")
	defer span.End()

	span.SetAttributes(attribute.String("submission.id", submissionID))

	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.ProctorLog{}).
		Where("submission_id = ?", submissionID).
		Count(&count).
		Error
	if err != nil {
		return 0, failSpan(span, repository.NewStorageError("count", errors.Wrap(err, "count proctor logs")))
	}

	span.SetStatus(codes.Ok, "logs counted")
	return count, nil
}

func (r *gormProctorLogRepository) DeleteBySubmission(ctx context.Context, submissionID string) (int64, error) {
	ctx, span := r.tracer.Start(ctx, "proctorLogRepository.DeleteBySubmission")
	defer span.End()

	span.SetAttributes(attribute.String("submission.id", submissionID))

	result := r.db.WithContext(ctx).
		Where("submission_id = ?", submissionID).
		Delete(&model.ProctorLog{})
	if result.Error != nil {
		return 0, failSpan(span, repository.NewStorageError("delete", errors.Wrap(result.Error, "delete proctor logs")))
	}

	span.SetAttributes(attribute.Int64("log.deleted", result.RowsAffected))
	span.SetStatus(codes.Ok, "logs deleted")
	return result.RowsAffected, nil
}

func (r *gormProctorLogRepository) ListSubmissionIDs(ctx context.Context) ([]string, error) {
	ctx, span := r.tracer.Start(ctx, "proctorLogRepository.ListSubmissionIDs")
	defer span.End()

	var ids []string
	err := r.db.WithContext(ctx).
		Model(&model.ProctorLog{}).
		Distinct("submission_id").
		Order("submission_id").
		Pluck("submission_id", &ids).
		Error
	if err != nil {
		return nil, failSpan(span, repository.NewStorageError("list submissions", errors.Wrap(err, "select submission ids")))
	}

	span.SetStatus(codes.Ok, "submission ids listed")
	return ids, nil
}

func failSpan(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
