package bus

import (
	"context"

	"github.com/zmlAEQ/blscache/pkg/metrics"
)

type Kind string

const (
	// KindBatch carries a signature batch awaiting aggregate verification.
	KindBatch Kind = "batch"
	// KindResult carries the outcome of a verified batch.
	KindResult Kind = "result"
)

type Event struct {
	Kind    Kind
	Body    any
	TraceID string
}

type Subscriber <-chan Event

type Bus struct {
	pub chan Event
}

func New(size int) *Bus {
	if size <= 0 {
		size = 128
	}
	return &Bus{pub: make(chan Event, size)}
}

// Publish never blocks; the event is dropped on backpressure.
func (b *Bus) Publish(_ context.Context, ev Event) bool {
	select {
	case b.pub <- ev:
		return true
	default:
		metrics.Inc("bus_dropped_total", map[string]string{"kind": string(ev.Kind)})
		return false
	}
}

// PublishWait blocks until the event is queued or ctx is done.
func (b *Bus) PublishWait(ctx context.Context, ev Event) error {
	select {
	case b.pub <- ev:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *Bus) Subscribe() Subscriber { return b.pub }

// Len reports queued events.
func (b *Bus) Len() int { return len(b.pub) }
