// Package pairingcache memoizes the per-signer pairings of BLS aggregate
// verification. A node sees the same (public key, message) pairs again as
// transactions move from the mempool into blocks; each cached pair saves a
// hash-to-curve and a Miller loop on the next verification.
package pairingcache

import (
	"errors"
	"fmt"
	"sync"

	"github.com/hashicorp/golang-lru/v2/simplelru"
	"github.com/zmlAEQ/blscache/internal/bls381"
	"github.com/zmlAEQ/blscache/pkg/metrics"
)

const DefaultCapacity = 50000

var (
	ErrLengthMismatch  = errors.New("pairingcache: public key and message counts differ")
	ErrInvalidCapacity = errors.New("pairingcache: capacity must be positive")
)

// Key is SHA-256(pk ‖ msg).
type Key = [32]byte

// Stats are cumulative counters of one cache.
type Stats struct {
	Hits      uint64 `json:"hits"`
	Misses    uint64 `json:"misses"`
	Inserts   uint64 `json:"inserts"`
	Evictions uint64 `json:"evictions"`
	Aborts    uint64 `json:"aborts"`
	Fallbacks uint64 `json:"fallbacks"`
}

func (s *Stats) add(o Stats) {
	s.Hits += o.Hits
	s.Misses += o.Misses
	s.Inserts += o.Inserts
	s.Evictions += o.Evictions
	s.Aborts += o.Aborts
	s.Fallbacks += o.Fallbacks
}

// Cache is a bounded LRU of pairing results. Every method holds the cache
// mutex for the whole call.
type Cache struct {
	mu        sync.Mutex
	lru       *simplelru.LRU[Key, *bls381.GT]
	capacity  int
	threshold float64
	heuristic Heuristic
	stats     Stats
	purging   bool
}

type Option func(*Cache)

// WithThreshold sets the fraction of counted lookups a non-forced call may
// see before it aborts.
func WithThreshold(t float64) Option { return func(c *Cache) { c.threshold = t } }

// WithHeuristic selects what the abort budget counts.
func WithHeuristic(h Heuristic) Option { return func(c *Cache) { c.heuristic = h } }

// New returns an empty cache holding at most capacity pairings.
func New(capacity int, opts ...Option) (*Cache, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidCapacity, capacity)
	}
	c := &Cache{capacity: capacity, threshold: DefaultThreshold, heuristic: CountMisses}
	for _, o := range opts {
		o(c)
	}
	if !c.heuristic.valid() {
		return nil, fmt.Errorf("%w: unknown heuristic %q", ErrInvalidConfig, c.heuristic)
	}
	if c.threshold < 0 || c.threshold > 1 {
		return nil, fmt.Errorf("%w: threshold %v outside [0,1]", ErrInvalidConfig, c.threshold)
	}
	lru, err := simplelru.NewLRU[Key, *bls381.GT](capacity, c.onEvict)
	if err != nil {
		return nil, err
	}
	c.lru = lru
	return c, nil
}

// NewDefault returns a cache of DefaultCapacity.
func NewDefault() *Cache {
	c, _ := New(DefaultCapacity)
	return c
}

// onEvict runs under c.mu, from inside lru.Add or lru.Purge.
func (c *Cache) onEvict(Key, *bls381.GT) {
	metrics.AddGauge("pairing_cache_entries", nil, -1)
	if c.purging {
		return
	}
	c.stats.Evictions++
	metrics.Inc("pairing_cache_evictions_total", nil)
}

func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

func (c *Cache) Capacity() int { return c.capacity }

// Contains reports whether the pair is cached without refreshing it.
func (c *Cache) Contains(pk, msg []byte) bool {
	k := cacheKey(pk, msg)
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Contains(k)
}

// Purge drops every entry. Stats are kept.
func (c *Cache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.purging = true
	c.lru.Purge()
	c.purging = false
}

func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}
