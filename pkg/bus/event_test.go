package bus

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/zmlAEQ/blscache/pkg/metrics"
)

func TestPublish_DropsOnBackpressure(t *testing.T) {
	metrics.Reset()
	b := New(1)
	if !b.Publish(context.Background(), Event{Kind: KindBatch}) {
		t.Fatalf("first publish should queue")
	}
	if b.Publish(context.Background(), Event{Kind: KindBatch}) {
		t.Fatalf("second publish should drop")
	}
	if !strings.Contains(metrics.DumpProm(), `bus_dropped_total{kind="batch"} 1`) {
		t.Fatalf("drop not counted: %q", metrics.DumpProm())
	}
	ev := <-b.Subscribe()
	if ev.Kind != KindBatch {
		t.Fatalf("kind=%s", ev.Kind)
	}
}

func TestPublishWait_HonoursContext(t *testing.T) {
	b := New(1)
	_ = b.PublishWait(context.Background(), Event{Kind: KindBatch})
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := b.PublishWait(ctx, Event{Kind: KindBatch}); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("want deadline, got %v", err)
	}
	if b.Len() != 1 {
		t.Fatalf("len=%d", b.Len())
	}
}
