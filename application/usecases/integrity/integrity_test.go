package integrity

import (
	"context"
	"testing"
	"time"

	"github.com/devscore/integrity/application/services/flagging"
	"github.com/devscore/integrity/application/services/timeline"
	"github.com/devscore/integrity/domain/model"
	"github.com/devscore/integrity/domain/repository"
	"github.com/devscore/integrity/infrastructure/config"
	"github.com/devscore/integrity/infrastructure/logger"
	"github.com/devscore/integrity/infrastructure/persistence/dbtest"
	persistence "github.com/devscore/integrity/infrastructure/persistence/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

type fixture struct {
	uc          IntegrityUseCase
	logs        repository.ProctorLogRepository
	submissions repository.SubmissionRepository
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	db := dbtest.New(t)
	tracer := tracenoop.NewTracerProvider().Tracer("test")
	f := fixture{
		logs:        persistence.NewGormProctorLogRepository(db, tracer),
		submissions: persistence.NewGormSubmissionRepository(db, tracer),
	}
	f.uc = NewIntegrityUseCase(
		f.logs,
		f.submissions,
		timeline.NewAssembler(logger.NewNopLogger()),
		flagging.NewPolicy(config.Default().Proctoring),
		logger.NewNopLogger(),
	)
	return f
}

func (f fixture) addSubmission(t *testing.T, id, assessmentID string) {
	t.Helper()
	require.NoError(t, f.submissions.Create(context.Background(), model.NewSubmission(id, assessmentID, "c-"+id)))
}

func (f fixture) addLogs(t *testing.T, submissionID string, n int, t0 time.Time) {
	t.Helper()
	for i := 0; i < n; i++ {
		require.NoError(t, f.logs.Append(context.Background(), &model.ProctorLog{
			SubmissionID: submissionID,
			Timestamp:    t0.Add(time.Duration(i) * time.Minute),
			LogType:      model.LogTypeTabSwitch,
			Payload:      `{}`,
		}))
	}
}

func TestGetReport(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addSubmission(t, "s1", "a1")

	t0 := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	for _, l := range []*model.ProctorLog{
		{SubmissionID: "s1", Timestamp: t0.Add(150 * time.Second), LogType: model.LogTypeSnapshot, Payload: "/9j/c"},
		{SubmissionID: "s1", Timestamp: t0, LogType: model.LogTypeSnapshot, Payload: "/9j/a"},
		{SubmissionID: "s1", Timestamp: t0.Add(30 * time.Second), LogType: model.LogTypeTabSwitch, Payload: `{"image":"/9j/b"}`},
		{SubmissionID: "s1", Timestamp: t0.Add(40 * time.Second), LogType: model.LogTypeReplay, Payload: `[{"k":"a"}]`},
	} {
		require.NoError(t, f.logs.Append(ctx, l))
	}

	report, err := f.uc.GetReport(ctx, "s1")
	require.NoError(t, err)

	assert.Equal(t, "s1", report.SubmissionID)
	assert.Equal(t, 100.0, report.IntegrityScore)
	assert.Equal(t, model.StatusCompleted, report.Status)
	assert.Equal(t, 4, report.LogCount)
	require.Len(t, report.Snapshots, 3)
	assert.Equal(t, []int64{0, 30, 150}, []int64{
		report.Snapshots[0].TimeOffset,
		report.Snapshots[1].TimeOffset,
		report.Snapshots[2].TimeOffset,
	})
	assert.Equal(t, "Suspect: TAB_SWITCH", report.Snapshots[1].Reason)
	assert.Len(t, report.Events, 1)
}

func TestGetReport_EmptyAndMissing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addSubmission(t, "s1", "a1")

	report, err := f.uc.GetReport(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, report.Snapshots)
	assert.Empty(t, report.Events)
	assert.NotNil(t, report.IntegrityFlags)
	assert.Equal(t, 100.0, report.IntegrityScore)

	_, err = f.uc.GetReport(ctx, "ghost")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestGetReport_VolumeThreshold(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	t0 := time.Now().Add(-time.Hour)

	f.addSubmission(t, "five", "a1")
	f.addLogs(t, "five", 5, t0)
	f.addSubmission(t, "six", "a1")
	f.addLogs(t, "six", 6, t0)

	report, err := f.uc.GetReport(ctx, "five")
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, report.Status)

	report, err = f.uc.GetReport(ctx, "six")
	require.NoError(t, err)
	assert.Equal(t, model.StatusFlagged, report.Status)
}

func TestGetLeaderboard(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	t0 := time.Now().Add(-time.Hour)

	f.addSubmission(t, "s1", "a1")
	f.addSubmission(t, "s2", "a1")
	f.addSubmission(t, "other", "a2")
	f.addLogs(t, "s2", 6, t0)

	high := 95
	_, err := f.submissions.SetBaseScore(ctx, "s2", 100, &high)
	require.NoError(t, err)

	board, err := f.uc.GetLeaderboard(ctx, "a1")
	require.NoError(t, err)
	require.Len(t, board, 2)
	assert.Equal(t, "s2", board[0].SubmissionID)
	assert.Equal(t, model.StatusFlagged, board[0].Status)
	assert.Equal(t, 95, board[0].Score)
	assert.Equal(t, "s1", board[1].SubmissionID)
	assert.Equal(t, model.StatusCompleted, board[1].Status)

	empty, err := f.uc.GetLeaderboard(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, empty)
}
