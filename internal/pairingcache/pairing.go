package pairingcache

import (
	"fmt"
	"time"

	"github.com/minio/sha256-simd"
	"github.com/zmlAEQ/blscache/internal/bls381"
	"github.com/zmlAEQ/blscache/pkg/logger"
	"github.com/zmlAEQ/blscache/pkg/metrics"
)

// cacheKey is SHA-256(pk ‖ msg) with no separator.
func cacheKey(pk, msg []byte) Key {
	h := sha256.New()
	h.Write(pk)
	h.Write(msg)
	var k Key
	h.Sum(k[:0])
	return k
}

// part is the slice of a batch served by one cache. gts[i] stays nil
// until pair i is looked up or computed.
type part struct {
	pos  []int
	keys []Key
	pks  [][]byte
	msgs [][]byte
	gts  []*bls381.GT
}

func (p *part) add(pos int, k Key, pk, msg []byte) {
	p.pos = append(p.pos, pos)
	p.keys = append(p.keys, k)
	p.pks = append(p.pks, pk)
	p.msgs = append(p.msgs, msg)
	p.gts = append(p.gts, nil)
}

func (p *part) pending() bool {
	for _, gt := range p.gts {
		if gt == nil {
			return true
		}
	}
	return false
}

// GetPairings returns e(pk_i, H(pk_i ‖ msg_i)) for every pair, in input
// order, serving hits from the cache and inserting every computed miss.
// A nil slice with a nil error means the heuristic gave up on the batch
// (or the batch is empty) and the caller should verify without the cache.
// Nothing is inserted by an aborted call. Returned values are shared with
// the cache and must not be modified.
func (c *Cache) GetPairings(pks, msgs [][]byte, forceCache bool) ([]*bls381.GT, error) {
	if len(pks) != len(msgs) {
		return nil, fmt.Errorf("%w: %d keys, %d messages", ErrLengthMismatch, len(pks), len(msgs))
	}
	if len(pks) == 0 {
		return nil, nil
	}
	p := &part{}
	for i := range pks {
		p.add(i, cacheKey(pks[i], msgs[i]), pks[i], msgs[i])
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.lookupLocked(p, newBudget(c.heuristic, c.threshold, len(pks), forceCache)) {
		return nil, nil
	}
	if err := c.fillLocked(p); err != nil {
		return nil, err
	}
	return p.gts, nil
}

// lookupLocked fills p.gts with cached values, charging b for every
// lookup. It reports false once b is exhausted.
func (c *Cache) lookupLocked(p *part, b *budget) bool {
	for i, k := range p.keys {
		gt, hit := c.lru.Get(k)
		if hit {
			c.stats.Hits++
			metrics.Inc("pairing_cache_lookups_total", map[string]string{"result": "hit"})
		} else {
			c.stats.Misses++
			metrics.Inc("pairing_cache_lookups_total", map[string]string{"result": "miss"})
		}
		if b.observe(hit) {
			c.stats.Aborts++
			metrics.Inc("pairing_cache_heuristic_aborts_total", nil)
			return false
		}
		p.gts[i] = gt
	}
	return true
}

// fillLocked computes and inserts the misses of p. Keys are parsed with the
// subgroup check, once per distinct key.
func (c *Cache) fillLocked(p *part) error {
	parsed := make(map[string]*bls381.PublicKey)
	for i, k := range p.keys {
		if p.gts[i] != nil {
			continue
		}
		// filled earlier in this call, or by another caller between passes
		if gt, ok := c.lru.Peek(k); ok {
			p.gts[i] = gt
			continue
		}
		pk, ok := parsed[string(p.pks[i])]
		if !ok {
			var err error
			pk, err = bls381.PublicKeyFromBytes(p.pks[i])
			if err != nil {
				return fmt.Errorf("key %d: %w", p.pos[i], err)
			}
			parsed[string(p.pks[i])] = pk
		}
		gt := bls381.MessagePairing(pk, p.msgs[i])
		c.lru.Add(k, gt)
		c.stats.Inserts++
		metrics.AddGauge("pairing_cache_entries", nil, 1)
		p.gts[i] = gt
	}
	return nil
}

func (c *Cache) noteFallback() {
	c.mu.Lock()
	c.stats.Fallbacks++
	c.mu.Unlock()
}

// AggregateVerify checks sig against the batch, taking per-pair pairings
// from the cache when the heuristic allows and falling back to the
// cache-free verifier otherwise. Only a length mismatch is an error; an
// invalid key or signature is a failed verification.
func (c *Cache) AggregateVerify(pks, msgs [][]byte, sig *bls381.Signature, forceCache bool) (bool, error) {
	return aggregateVerify(c, pks, msgs, sig, forceCache)
}

type pairingSource interface {
	GetPairings(pks, msgs [][]byte, forceCache bool) ([]*bls381.GT, error)
	noteFallback()
}

func aggregateVerify(src pairingSource, pks, msgs [][]byte, sig *bls381.Signature, forceCache bool) (bool, error) {
	start := time.Now()
	if len(pks) != len(msgs) {
		return false, fmt.Errorf("%w: %d keys, %d messages", ErrLengthMismatch, len(pks), len(msgs))
	}
	if sig == nil || !sig.IsValid() {
		logger.InfoJ("pairing_cache_verify", map[string]any{"result": "rejected", "reason": "invalid_signature", "pairs": len(pks)})
		return false, nil
	}
	gts, err := src.GetPairings(pks, msgs, forceCache)
	if err != nil {
		logger.InfoJ("pairing_cache_verify", map[string]any{"result": "rejected", "reason": "invalid_public_key", "err": err.Error()})
		return false, nil
	}
	if len(gts) == 0 {
		src.noteFallback()
		return fallbackVerify(pks, msgs, sig, start), nil
	}
	return cachedVerify(gts, sig, start), nil
}

// fallbackVerify runs the cache-free verifier with checked key parsing.
func fallbackVerify(pks, msgs [][]byte, sig *bls381.Signature, start time.Time) bool {
	ok := bls381.AggregateVerifyBytes(sig, pks, msgs)
	observeVerify("fallback", ok, start)
	return ok
}

// cachedVerify compares Π gts with e(g1, sig).
func cachedVerify(gts []*bls381.GT, sig *bls381.Signature, start time.Time) bool {
	acc := bls381.GTOne()
	for _, gt := range gts {
		acc.MulAssign(gt)
	}
	ok := acc.Equal(sig.Pair(bls381.G1Generator()))
	observeVerify("cached", ok, start)
	return ok
}

func observeVerify(path string, ok bool, start time.Time) {
	result := "ok"
	if !ok {
		result = "fail"
	}
	metrics.Inc("pairing_cache_verify_total", map[string]string{"path": path, "result": result})
	metrics.ObserveSummary("pairing_cache_verify_ms", map[string]string{"path": path}, float64(time.Since(start).Milliseconds()))
}
