package events

import (
	"context"
	"fmt"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/devscore/integrity/infrastructure/logger"
	"github.com/devscore/integrity/infrastructure/metrics"
	"go.uber.org/zap"
)

// EventHandler is a function that handles a specific event type
type EventHandler func(ctx context.Context, event *Event) error

// EventBus fans events out to a fixed set of partitions, one worker each.
// Events sharing a partition key are handled one at a time in publish order.
type EventBus struct {
	partitions []chan *Event
	handlers   map[EventType]EventHandler
	logger     *logger.Logger
	metrics    metrics.Manager

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

func NewEventBus(partitions, queueSize int, logger *logger.Logger, metricsManager metrics.Manager) *EventBus {
	if partitions < 1 {
		partitions = 1
	}
	if queueSize < 1 {
		queueSize = 1
	}

	b := &EventBus{
		partitions: make([]chan *Event, partitions),
		handlers:   make(map[EventType]EventHandler),
		logger:     logger,
		metrics:    metricsManager,
	}
	for i := range b.partitions {
		b.partitions[i] = make(chan *Event, queueSize)
	}
	return b
}

// RegisterHandler registers a handler for a specific event type. Handlers must
// be registered before Start.
func (b *EventBus) RegisterHandler(eventType EventType, handler EventHandler) {
	b.handlers[eventType] = handler
}

// Start launches one worker per partition.
func (b *EventBus) Start(ctx context.Context) {
	for i, ch := range b.partitions {
		b.wg.Add(1)
		go b.work(ctx, i, ch)
	}
	b.logger.Info("Event bus started", zap.Int("partitions", len(b.partitions)))
}

// Stop refuses new events, lets the workers drain what is queued and waits
// for them to exit.
func (b *EventBus) Stop() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	for _, ch := range b.partitions {
		close(ch)
	}
	b.mu.Unlock()

	b.wg.Wait()
	b.logger.Info("Event bus stopped")
}

func (b *EventBus) partitionFor(key string) int {
	return int(xxhash.Sum64String(key) % uint64(len(b.partitions)))
}

func (b *EventBus) work(ctx context.Context, partition int, ch <-chan *Event) {
	defer b.wg.Done()

	for event := range ch {
		b.metrics.DeltaUpDownCounter(ctx, metrics.FinalizeQueueDepth, -1, "type", string(event.Type))
		if err := b.process(ctx, event); err != nil {
			b.logger.Error("Error processing event",
				zap.Int("partition", partition),
				zap.String("eventID", event.ID),
				zap.String("eventType", string(event.Type)),
				zap.Error(err),
			)
		}
	}
}

func (b *EventBus) process(ctx context.Context, event *Event) (err error) {
	handler, exists := b.handlers[event.Type]
	if !exists {
		b.logger.Warn("No handler registered for event type", zap.String("eventType", string(event.Type)))
		return nil
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panicked: %v", r)
		}
	}()

	if err := handler(ctx, event); err != nil {
		return fmt.Errorf("handler failed for event %s: %w", event.Type, err)
	}
	return nil
}
