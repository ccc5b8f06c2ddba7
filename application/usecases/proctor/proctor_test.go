package proctor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/devscore/integrity/domain/model"
	"github.com/devscore/integrity/domain/repository"
	"github.com/devscore/integrity/infrastructure/cache"
	"github.com/devscore/integrity/infrastructure/config"
	"github.com/devscore/integrity/infrastructure/logger"
	"github.com/devscore/integrity/infrastructure/metrics"
	"github.com/devscore/integrity/infrastructure/persistence/dbtest"
	persistence "github.com/devscore/integrity/infrastructure/persistence/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

type fixture struct {
	uc          ProctorUseCase
	logs        repository.ProctorLogRepository
	submissions repository.SubmissionRepository
}

func testMetrics() metrics.Manager {
	m := metrics.NewMetricsManager(noop.NewMeterProvider().Meter("test"), logger.NewNopLogger())
	metrics.RegisterApplicationMetrics(m)
	return m
}

func newFixture(t *testing.T, submissionIDs ...string) fixture {
	t.Helper()
	db := dbtest.New(t)
	tracer := tracenoop.NewTracerProvider().Tracer("test")

	f := fixture{
		logs:        persistence.NewGormProctorLogRepository(db, tracer),
		submissions: persistence.NewGormSubmissionRepository(db, tracer),
	}
	for _, id := range submissionIDs {
		require.NoError(t, f.submissions.Create(context.Background(), model.NewSubmission(id, "a1", "c-"+id)))
	}
	f.uc = NewProctorUseCase(f.logs, f.submissions, config.Default().Proctoring, testMetrics(), logger.NewNopLogger())
	return f
}

func TestLogSingle(t *testing.T) {
	f := newFixture(t, "s1")
	ctx := context.Background()

	outcome, err := f.uc.LogSingle(ctx, LogEntry{SubmissionID: "s1", LogType: "TAB_SWITCH", Data: `{}`})
	require.NoError(t, err)
	assert.Equal(t, OutcomeSaved, outcome)

	outcome, err = f.uc.LogSingle(ctx, LogEntry{SubmissionID: "ghost", LogType: "SNAPSHOT", Data: "iVBOR"})
	require.NoError(t, err)
	assert.Equal(t, OutcomeSkipped, outcome)

	_, err = f.uc.LogSingle(ctx, LogEntry{SubmissionID: "s1", LogType: "KEYLOGGER"})
	assert.ErrorIs(t, err, ErrInvalidEntry)

	_, err = f.uc.LogSingle(ctx, LogEntry{SubmissionID: " ", LogType: "SNAPSHOT"})
	assert.ErrorIs(t, err, ErrInvalidEntry)

	count, err := f.logs.CountBySubmission(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestLogSingle_ClientTimestamp(t *testing.T) {
	f := newFixture(t, "s1")
	ctx := context.Background()

	captured := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	_, err := f.uc.LogSingle(ctx, LogEntry{SubmissionID: "s1", LogType: "SNAPSHOT", Data: "x", Timestamp: &captured})
	require.NoError(t, err)
	_, err = f.uc.LogSingle(ctx, LogEntry{SubmissionID: "s1", LogType: "SNAPSHOT", Data: "y"})
	require.NoError(t, err)

	logs, err := f.logs.ListBySubmission(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.True(t, logs[0].Timestamp.Equal(captured))
	assert.Equal(t, "x", logs[0].Payload)
}

func TestLogBatch_SkipsUnknownSubmission(t *testing.T) {
	f := newFixture(t, "S1")
	ctx := context.Background()

	result, err := f.uc.LogBatch(ctx, []LogEntry{
		{SubmissionID: "S1", LogType: "SNAPSHOT", Data: "iVBOR"},
		{SubmissionID: "ZZZ", LogType: "SNAPSHOT", Data: "iVBOR"},
		{SubmissionID: "S1", LogType: "TAB_SWITCH", Data: `{}`},
	})
	require.NoError(t, err)
	assert.Equal(t, BatchResult{Accepted: 2, Skipped: 1}, result)

	logs, err := f.logs.ListBySubmission(ctx, "S1")
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, model.LogTypeSnapshot, logs[0].LogType)
	assert.Equal(t, model.LogTypeTabSwitch, logs[1].LogType)
}

func TestLogBatch_InvalidEntriesAreSkipped(t *testing.T) {
	f := newFixture(t, "s1")

	result, err := f.uc.LogBatch(context.Background(), []LogEntry{
		{SubmissionID: "s1", LogType: "bogus"},
		{SubmissionID: "", LogType: "SNAPSHOT"},
		{SubmissionID: "s1", LogType: "replay", Data: `[]`},
	})
	require.NoError(t, err)
	assert.Equal(t, BatchResult{Accepted: 1, Skipped: 2}, result)
}

func TestLogBatch_Limits(t *testing.T) {
	f := newFixture(t, "s1")

	_, err := f.uc.LogBatch(context.Background(), nil)
	assert.ErrorIs(t, err, ErrEmptyBatch)

	cfg := config.Default().Proctoring
	cfg.MaxBatchSize = 2
	uc := NewProctorUseCase(f.logs, f.submissions, cfg, testMetrics(), logger.NewNopLogger())
	_, err = uc.LogBatch(context.Background(), make([]LogEntry, 3))
	assert.ErrorIs(t, err, ErrBatchTooLarge)
}

// flakyLogs fails every batch write and single writes for one submission.
type flakyLogs struct {
	repository.ProctorLogRepository
	failFor string
	stored  []*model.ProctorLog
}

func (r *flakyLogs) AppendBatch(context.Context, []*model.ProctorLog) error {
	return &repository.StorageError{Op: "append batch", Err: errors.New("constraint violation")}
}

func (r *flakyLogs) Append(_ context.Context, log *model.ProctorLog) error {
	if log.SubmissionID == r.failFor {
		return &repository.StorageError{Op: "append", Err: errors.New("foreign key")}
	}
	r.stored = append(r.stored, log)
	return nil
}

func TestLogBatch_PartialFailureKeepsTheRest(t *testing.T) {
	f := newFixture(t, "s1", "s2")
	logs := &flakyLogs{failFor: "s2"}
	uc := NewProctorUseCase(logs, f.submissions, config.Default().Proctoring, testMetrics(), logger.NewNopLogger())

	entries := []LogEntry{
		{SubmissionID: "s1", LogType: "SNAPSHOT", Data: "a"},
		{SubmissionID: "s2", LogType: "SNAPSHOT", Data: "b"},
		{SubmissionID: "s1", LogType: "SNAPSHOT", Data: "c"},
		{SubmissionID: "s1", LogType: "SNAPSHOT", Data: "d"},
	}
	result, err := uc.LogBatch(context.Background(), entries)
	require.NoError(t, err)
	assert.Equal(t, BatchResult{Accepted: 3, Failed: 1}, result)
	assert.Len(t, logs.stored, 3)
}

func TestLogBatch_NothingWritten(t *testing.T) {
	f := newFixture(t, "s1")
	logs := &flakyLogs{failFor: "s1"}
	uc := NewProctorUseCase(logs, f.submissions, config.Default().Proctoring, testMetrics(), logger.NewNopLogger())

	result, err := uc.LogBatch(context.Background(), []LogEntry{{SubmissionID: "s1", LogType: "SNAPSHOT", Data: "a"}})
	assert.ErrorIs(t, err, ErrNothingWritten)
	assert.Equal(t, 1, result.Failed)
}

func TestLog_SubmissionDeletedBehindCache(t *testing.T) {
	db := dbtest.New(t)
	tracer := tracenoop.NewTracerProvider().Tracer("test")
	ctx := context.Background()

	logs := persistence.NewGormProctorLogRepository(db, tracer)
	submissions := persistence.NewGormSubmissionRepository(db, tracer)
	require.NoError(t, submissions.Create(ctx, model.NewSubmission("s1", "a1", "c-s1")))
	require.NoError(t, submissions.Create(ctx, model.NewSubmission("s2", "a1", "c-s2")))

	lookup := cache.NewSubmissionLookup(submissions, 16, time.Minute)
	uc := NewProctorUseCase(logs, lookup, config.Default().Proctoring, testMetrics(), logger.NewNopLogger())

	outcome, err := uc.LogSingle(ctx, LogEntry{SubmissionID: "s1", LogType: "SNAPSHOT", Data: "a"})
	require.NoError(t, err)
	require.Equal(t, OutcomeSaved, outcome)
	_, err = uc.LogSingle(ctx, LogEntry{SubmissionID: "s2", LogType: "SNAPSHOT", Data: "a"})
	require.NoError(t, err)
	require.Equal(t, 2, lookup.Len())

	require.NoError(t, db.Exec("DELETE FROM submissions WHERE id = ?", "s1").Error)

	outcome, err = uc.LogSingle(ctx, LogEntry{SubmissionID: "s1", LogType: "TAB_SWITCH", Data: `{}`})
	require.NoError(t, err)
	assert.Equal(t, OutcomeSkipped, outcome)
	assert.Equal(t, 1, lookup.Len())

	require.NoError(t, db.Exec("DELETE FROM submissions WHERE id = ?", "s2").Error)
	require.NoError(t, submissions.Create(ctx, model.NewSubmission("s3", "a1", "c-s3")))

	result, err := uc.LogBatch(ctx, []LogEntry{
		{SubmissionID: "s2", LogType: "SNAPSHOT", Data: "b"},
		{SubmissionID: "s3", LogType: "SNAPSHOT", Data: "c"},
		{SubmissionID: "s2", LogType: "TAB_SWITCH", Data: `{}`},
	})
	require.NoError(t, err)
	assert.Equal(t, BatchResult{Accepted: 1, Skipped: 2}, result)

	result, err = uc.LogBatch(ctx, []LogEntry{{SubmissionID: "s2", LogType: "SNAPSHOT", Data: "d"}})
	require.NoError(t, err)
	assert.Equal(t, BatchResult{Skipped: 1}, result)

	count, err := logs.CountBySubmission(ctx, "s3")
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}
