package pairingcache

import (
	"fmt"
	"sync/atomic"

	"github.com/zmlAEQ/blscache/internal/bls381"
	"golang.org/x/sync/errgroup"
)

// Sharded spreads entries over independent caches selected by the first
// byte of the cache key, so validators working on different keys do not
// contend on one lock. Recency is tracked per shard.
type Sharded struct {
	shards    []*Cache
	threshold float64
	heuristic Heuristic
	fallbacks atomic.Uint64
}

// NewSharded splits capacity evenly (rounding up) over n shards.
func NewSharded(n, capacity int, opts ...Option) (*Sharded, error) {
	if n <= 0 || n > 256 {
		return nil, fmt.Errorf("%w: shard count %d outside [1,256]", ErrInvalidConfig, n)
	}
	if capacity <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidCapacity, capacity)
	}
	per := (capacity + n - 1) / n
	s := &Sharded{shards: make([]*Cache, n)}
	for i := range s.shards {
		c, err := New(per, opts...)
		if err != nil {
			return nil, err
		}
		s.shards[i] = c
	}
	s.threshold = s.shards[0].threshold
	s.heuristic = s.shards[0].heuristic
	return s, nil
}

func (s *Sharded) shardOf(k Key) int { return int(k[0]) % len(s.shards) }

// GetPairings behaves like Cache.GetPairings. The abort budget covers the
// whole batch across shards; misses are computed concurrently, one
// goroutine per shard.
func (s *Sharded) GetPairings(pks, msgs [][]byte, forceCache bool) ([]*bls381.GT, error) {
	if len(pks) != len(msgs) {
		return nil, fmt.Errorf("%w: %d keys, %d messages", ErrLengthMismatch, len(pks), len(msgs))
	}
	if len(pks) == 0 {
		return nil, nil
	}
	parts := make([]*part, len(s.shards))
	for i := range pks {
		k := cacheKey(pks[i], msgs[i])
		idx := s.shardOf(k)
		if parts[idx] == nil {
			parts[idx] = &part{}
		}
		parts[idx].add(i, k, pks[i], msgs[i])
	}

	b := newBudget(s.heuristic, s.threshold, len(pks), forceCache)
	for idx, p := range parts {
		if p == nil {
			continue
		}
		c := s.shards[idx]
		c.mu.Lock()
		ok := c.lookupLocked(p, b)
		c.mu.Unlock()
		if !ok {
			return nil, nil
		}
	}

	var g errgroup.Group
	for idx, p := range parts {
		if p == nil || !p.pending() {
			continue
		}
		c := s.shards[idx]
		g.Go(func() error {
			c.mu.Lock()
			defer c.mu.Unlock()
			return c.fillLocked(p)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]*bls381.GT, len(pks))
	for _, p := range parts {
		if p == nil {
			continue
		}
		for i, pos := range p.pos {
			out[pos] = p.gts[i]
		}
	}
	return out, nil
}

func (s *Sharded) noteFallback() { s.fallbacks.Add(1) }

// AggregateVerify behaves like Cache.AggregateVerify.
func (s *Sharded) AggregateVerify(pks, msgs [][]byte, sig *bls381.Signature, forceCache bool) (bool, error) {
	return aggregateVerify(s, pks, msgs, sig, forceCache)
}

func (s *Sharded) Len() int {
	n := 0
	for _, c := range s.shards {
		n += c.Len()
	}
	return n
}

func (s *Sharded) Capacity() int {
	n := 0
	for _, c := range s.shards {
		n += c.capacity
	}
	return n
}

func (s *Sharded) Contains(pk, msg []byte) bool {
	return s.shards[s.shardOf(cacheKey(pk, msg))].Contains(pk, msg)
}

func (s *Sharded) Purge() {
	for _, c := range s.shards {
		c.Purge()
	}
}

func (s *Sharded) Stats() Stats {
	var st Stats
	for _, c := range s.shards {
		st.add(c.Stats())
	}
	st.Fallbacks += s.fallbacks.Load()
	return st
}
