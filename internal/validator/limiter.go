package validator

import (
	"sync/atomic"

	"github.com/zmlAEQ/blscache/pkg/metrics"
)

// Limiter caps the number of batches being verified at once. A nil or
// non-positive limiter admits everything.
type Limiter struct {
	max  int64
	open atomic.Int64
}

func NewLimiter(max int64) *Limiter { return &Limiter{max: max} }

// TryOpen admits one batch, or records the rejection and returns false.
func (l *Limiter) TryOpen() bool {
	if l == nil || l.max <= 0 {
		return true
	}
	for {
		o := l.open.Load()
		if o >= l.max {
			metrics.Inc("validator_rate_limited_total", nil)
			return false
		}
		if l.open.CompareAndSwap(o, o+1) {
			metrics.AddGauge("validator_inflight", nil, 1)
			return true
		}
	}
}

// Close releases a slot taken by TryOpen.
func (l *Limiter) Close() {
	if l == nil || l.max <= 0 {
		return
	}
	for {
		o := l.open.Load()
		if o <= 0 {
			return
		}
		if l.open.CompareAndSwap(o, o-1) {
			metrics.AddGauge("validator_inflight", nil, -1)
			return
		}
	}
}

// Open reports the batches currently admitted.
func (l *Limiter) Open() int64 {
	if l == nil {
		return 0
	}
	return l.open.Load()
}
