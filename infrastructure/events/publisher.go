package events

import (
	"context"
	"errors"
	"time"

	"github.com/devscore/integrity/domain/model"
	"github.com/devscore/integrity/infrastructure/metrics"
	"github.com/google/uuid"
)

var (
	ErrBusClosed = errors.New("event bus is closed")
	ErrQueueFull = errors.New("event queue is full")
)

// Publish enqueues an event without blocking. A full partition is reported as
// ErrQueueFull so callers can shed load.
func (b *EventBus) Publish(ctx context.Context, event *Event) error {
	if event.ID == "" {
		event.ID = generateEventID()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return ErrBusClosed
	}

	select {
	case b.partitions[b.partitionFor(event.PartitionKey())] <- event:
		b.metrics.DeltaUpDownCounter(ctx, metrics.FinalizeQueueDepth, 1, "type", string(event.Type))
		return nil
	default:
		return ErrQueueFull
	}
}

// PublishSubmissionFinalized publishes a submission finalized event
func (b *EventBus) PublishSubmissionFinalized(ctx context.Context, submissionID, assessmentID string, answers []model.CodeAnswer) (string, error) {
	event := &Event{
		ID:           generateEventID(),
		Type:         EventSubmissionFinalized,
		SubmissionID: submissionID,
		AssessmentID: assessmentID,
		Data: map[string]any{
			"answers": answers,
		},
	}
	if err := b.Publish(ctx, event); err != nil {
		return "", err
	}
	return event.ID, nil
}

// Answers extracts the code answers carried by a finalized event.
func (e *Event) Answers() []model.CodeAnswer {
	answers, _ := e.Data["answers"].([]model.CodeAnswer)
	return answers
}

func generateEventID() string {
	return "evt_" + uuid.NewString()
}
