package pairingcache

import "math"

// Heuristic selects which lookups count against a batch's abort budget.
type Heuristic string

const (
	// CountMisses aborts a non-forced call once too many pairs would have
	// to be computed: a mostly cold batch is cheaper through the
	// cache-free verifier, and its entries would only churn the LRU.
	CountMisses Heuristic = "misses"
	// CountHits reproduces the legacy policy, which counts hits instead.
	CountHits Heuristic = "hits"
)

const DefaultThreshold = 0.5

func (h Heuristic) valid() bool { return h == CountMisses || h == CountHits }

// budget tracks the counted lookups of one call.
type budget struct {
	mode  Heuristic
	limit int
	count int
	off   bool
}

// newBudget allows floor(n*threshold) counted lookups; one more aborts.
func newBudget(mode Heuristic, threshold float64, n int, force bool) *budget {
	return &budget{
		mode:  mode,
		limit: int(math.Floor(float64(n) * threshold)),
		off:   force,
	}
}

// observe records one lookup and reports whether the call must abort.
func (b *budget) observe(hit bool) bool {
	if b.off {
		return false
	}
	if hit == (b.mode == CountHits) {
		b.count++
	}
	return b.count > b.limit
}
