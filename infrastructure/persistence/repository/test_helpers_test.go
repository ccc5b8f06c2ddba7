package repository

import (
	"context"
	"testing"
	"time"

	"github.com/devscore/integrity/domain/model"
	"github.com/devscore/integrity/infrastructure/persistence/dbtest"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"gorm.io/gorm"
)

var testTracer trace.Tracer = noop.NewTracerProvider().Tracer("test")

func createTestDB(t *testing.T) *gorm.DB {
	return dbtest.New(t)
}

func seedSubmission(t *testing.T, repo interface {
	Create(context.Context, *model.Submission) error
}, id, assessmentID string) *model.Submission {
	t.Helper()
	s := model.NewSubmission(id, assessmentID, "candidate-"+id)
	require.NoError(t, repo.Create(context.Background(), s))
	return s
}

func newTestLog(submissionID string, ts time.Time, seq *int64) *model.ProctorLog {
	return &model.ProctorLog{
		SubmissionID:   submissionID,
		Timestamp:      ts,
		SequenceNumber: seq,
		LogType:        model.LogTypeTabSwitch,
		Payload:        `{"count":1}`,
	}
}

func seq(n int64) *int64 {
	return &n
}
