package channel

import (
	"context"

	"github.com/kiranms1996/job-management/internal/domain"
	"github.com/kiranms1996/job-management/internal/metrics"
)

// EventBus carries application-received events from the API handler to the
// webhook notifier over a buffered channel.
type EventBus struct {
	ch      chan domain.ApplicationReceived
	metrics metrics.Sink
}

func NewEventBus(buffer int, sink metrics.Sink) *EventBus {
	if sink == nil {
		sink = metrics.NewNoopSink()
	}
	sink.BufferCapacitySet(buffer)
	return &EventBus{
		ch:      make(chan domain.ApplicationReceived, buffer),
		metrics: sink,
	}
}

// Emit publishes an event, blocking until there is buffer space or the
// context is cancelled.
func (b *EventBus) Emit(ctx context.Context, event domain.ApplicationReceived) error {
	select {
	case b.ch <- event:
		b.metrics.BufferSizeUpdate(len(b.ch))
		return nil
	case <-ctx.Done():
		b.metrics.EmitError()
		return ctx.Err()
	}
}

func (b *EventBus) Channel() <-chan domain.ApplicationReceived {
	return b.ch
}
