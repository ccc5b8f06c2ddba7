package events

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/devscore/integrity/domain/model"
	"github.com/devscore/integrity/infrastructure/logger"
	"github.com/devscore/integrity/infrastructure/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"
)

func newTestBus(partitions, queue int) *EventBus {
	m := metrics.NewMetricsManager(noop.NewMeterProvider().Meter("test"), logger.NewNopLogger())
	metrics.RegisterApplicationMetrics(m)
	return NewEventBus(partitions, queue, logger.NewNopLogger(), m)
}

func TestEventBus_SamePartitionKeepsOrder(t *testing.T) {
	bus := newTestBus(4, 64)

	var mu sync.Mutex
	var seen []string
	bus.RegisterHandler(EventSubmissionFinalized, func(_ context.Context, e *Event) error {
		mu.Lock()
		seen = append(seen, e.SubmissionID)
		mu.Unlock()
		return nil
	})

	bus.Start(context.Background())

	want := []string{"s1", "s2", "s3", "s4", "s5"}
	for _, id := range want {
		_, err := bus.PublishSubmissionFinalized(context.Background(), id, "a1", nil)
		require.NoError(t, err)
	}

	bus.Stop()
	assert.Equal(t, want, seen)
}

func TestEventBus_SameAssessmentIsSerial(t *testing.T) {
	bus := newTestBus(8, 64)

	var inFlight, maxInFlight int32
	bus.RegisterHandler(EventSubmissionFinalized, func(_ context.Context, _ *Event) error {
		n := atomic.AddInt32(&inFlight, 1)
		for {
			m := atomic.LoadInt32(&maxInFlight)
			if n <= m || atomic.CompareAndSwapInt32(&maxInFlight, m, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		atomic.AddInt32(&inFlight, -1)
		return nil
	})
	bus.Start(context.Background())

	for i := 0; i < 10; i++ {
		_, err := bus.PublishSubmissionFinalized(context.Background(), "s", "same-assessment", nil)
		require.NoError(t, err)
	}
	bus.Stop()

	assert.Equal(t, int32(1), maxInFlight)
}

func TestEventBus_CarriesAnswers(t *testing.T) {
	bus := newTestBus(1, 4)

	got := make(chan []model.CodeAnswer, 1)
	bus.RegisterHandler(EventSubmissionFinalized, func(_ context.Context, e *Event) error {
		got <- e.Answers()
		return nil
	})
	bus.Start(context.Background())

	answers := []model.CodeAnswer{{QuestionID: "q1", Position: 1, Code: "print(1)"}}
	id, err := bus.PublishSubmissionFinalized(context.Background(), "s1", "a1", answers)
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	bus.Stop()
	assert.Equal(t, answers, <-got)
}

func TestEventBus_HandlerErrorsDoNotStopWorker(t *testing.T) {
	bus := newTestBus(1, 4)

	var calls int32
	bus.RegisterHandler(EventSubmissionFinalized, func(_ context.Context, e *Event) error {
		atomic.AddInt32(&calls, 1)
		if e.SubmissionID == "bad" {
			return errors.New("boom")
		}
		if e.SubmissionID == "panic" {
			panic("boom")
		}
		return nil
	})
	bus.Start(context.Background())

	for _, id := range []string{"bad", "panic", "ok"} {
		_, err := bus.PublishSubmissionFinalized(context.Background(), id, "a1", nil)
		require.NoError(t, err)
	}
	bus.Stop()

	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestEventBus_Backpressure(t *testing.T) {
	bus := newTestBus(1, 1)

	_, err := bus.PublishSubmissionFinalized(context.Background(), "s1", "a1", nil)
	require.NoError(t, err)
	_, err = bus.PublishSubmissionFinalized(context.Background(), "s2", "a1", nil)
	assert.ErrorIs(t, err, ErrQueueFull)

	bus.Stop()
	_, err = bus.PublishSubmissionFinalized(context.Background(), "s3", "a1", nil)
	assert.ErrorIs(t, err, ErrBusClosed)
}
