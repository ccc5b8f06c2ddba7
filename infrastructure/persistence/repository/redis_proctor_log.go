package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/devscore/integrity/domain/model"
	"github.com/devscore/integrity/domain/repository"
	"github.com/devscore/integrity/infrastructure/logger"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const submissionIndexKey = "proctor:submissions"

func proctorLogKey(submissionID string) string {
	return fmt.Sprintf("proctor:%s:logs", submissionID)
}

// redisProctorLogRepository keeps one sorted set per submission scored by
// timestamp in milliseconds. Ties are resolved in memory on read.
type redisProctorLogRepository struct {
	client *redis.Client
	tracer trace.Tracer
	logger *logger.Logger
}

func NewRedisProctorLogRepository(client *redis.Client, tracer trace.Tracer, logger *logger.Logger) repository.ProctorLogRepository {
	return &redisProctorLogRepository{
		client: client,
		tracer: tracer,
		logger: logger,
	}
}

func (r *redisProctorLogRepository) Append(ctx context.Context, log *model.ProctorLog) error {
	return r.write(ctx, "proctorLogRepository.Append", "append", []*model.ProctorLog{log})
}

func (r *redisProctorLogRepository) AppendBatch(ctx context.Context, logs []*model.ProctorLog) error {
	if len(logs) == 0 {
		return nil
	}
	return r.write(ctx, "proctorLogRepository.AppendBatch", "append batch", logs)
}

func (r *redisProctorLogRepository) write(ctx context.Context, spanName, op string, logs []*model.ProctorLog) error {
	ctx, span := r.tracer.Start(ctx, spanName)
	defer span.End()

	span.SetAttributes(attribute.Int("batch.size", len(logs)))

	members := make([]redis.Z, len(logs))
	for i, log := range logs {
		if err := prepareLog(log); err != nil {
			return failSpan(span, repository.NewStorageError(op, errors.Wrap(err, "generate log id")))
		}
		data, err := json.Marshal(log)
		if err != nil {
			return failSpan(span, repository.NewStorageError(op, errors.Wrap(err, "marshal proctor log")))
		}
		members[i] = redis.Z{
			Score:  float64(log.Timestamp.UnixMilli()),
			Member: data,
		}
	}

	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, log := range logs {
			pipe.ZAdd(ctx, proctorLogKey(log.SubmissionID), members[i])
			pipe.SAdd(ctx, submissionIndexKey, log.SubmissionID)
		}
		return nil
	})
	if err != nil {
		return failSpan(span, repository.NewStorageError(op, errors.Wrap(err, "exec redis transaction")))
	}

	span.SetStatus(codes.Ok, "logs appended")
	return nil
}

func (r *redisProctorLogRepository) ListBySubmission(ctx context.Context, submissionID string) ([]*model.ProctorLog, error) {
	ctx, span := r.tracer.Start(ctx, "proctorLogRepository.ListBySubmission")
	defer span.End()

	span.SetAttributes(attribute.String("submission.id", submissionID))

	results, err := r.client.ZRange(ctx, proctorLogKey(submissionID), 0, -1).Result()
	if err != nil {
		return nil, failSpan(span, repository.NewStorageError("list", errors.Wrap(err, "zrange proctor logs")))
	}

	logs := make([]*model.ProctorLog, 0, len(results))
	for _, data := range results {
		var log model.ProctorLog
		if err := json.Unmarshal([]byte(data), &log); err != nil {
			r.logger.Warn("Skipping unreadable proctor log",
				zap.String("submissionID", submissionID),
				zap.Error(err),
			)
			continue
		}
		logs = append(logs, &log)
	}

	model.SortProctorLogs(logs)

	span.SetAttributes(attribute.Int("log.count", len(logs)))
	span.SetStatus(codes.Ok, "logs listed")
	return logs, nil
}

func (r *redisProctorLogRepository) CountBySubmission(ctx context.Context, submissionID string) (int64, error) {
	ctx, span := r.tracer.Start(ctx, "proctorLogRepository.CountBySubmission")
	defer span.End()

	span.SetAttributes(attribute.String("submission.id", submissionID))

	count, err := r.client.ZCard(ctx, proctorLogKey(submissionID)).Result()
	if err != nil {
		return 0, failSpan(span, repository.NewStorageError("count", errors.Wrap(err, "zcard proctor logs")))
	}

	span.SetStatus(codes.Ok, "logs counted")
	return count, nil
}

func (r *redisProctorLogRepository) DeleteBySubmission(ctx context.Context, submissionID string) (int64, error) {
	ctx, span := r.tracer.Start(ctx, "proctorLogRepository.DeleteBySubmission")
	defer span.End()

	span.SetAttributes(attribute.String("submission.id", submissionID))

	var card *redis.IntCmd
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		card = pipe.ZCard(ctx, proctorLogKey(submissionID))
		pipe.Del(ctx, proctorLogKey(submissionID))
		pipe.SRem(ctx, submissionIndexKey, submissionID)
		return nil
	})
	if err != nil {
		return 0, failSpan(span, repository.NewStorageError("delete", errors.Wrap(err, "delete proctor logs")))
	}

	deleted := card.Val()
	span.SetAttributes(attribute.Int64("log.deleted", deleted))
	span.SetStatus(codes.Ok, "logs deleted")
	return deleted, nil
}

func (r *redisProctorLogRepository) ListSubmissionIDs(ctx context.Context) ([]string, error) {
	ctx, span := r.tracer.Start(ctx, "proctorLogRepository.ListSubmissionIDs")
	defer span.End()

	ids, err := r.client.SMembers(ctx, submissionIndexKey).Result()
	if err != nil {
		return nil, failSpan(span, repository.NewStorageError("list submissions", errors.Wrap(err, "smembers submission index")))
	}

	span.SetStatus(codes.Ok, "submission ids listed")
	return ids, nil
}
