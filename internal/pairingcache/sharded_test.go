package pairingcache

import (
	"errors"
	"sync"
	"testing"

	"github.com/zmlAEQ/blscache/internal/bls381"
)

func TestNewSharded_Validation(t *testing.T) {
	if _, err := NewSharded(0, 10); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("zero shards: %v", err)
	}
	if _, err := NewSharded(4, 0); !errors.Is(err, ErrInvalidCapacity) {
		t.Fatalf("zero capacity: %v", err)
	}
	s, err := NewSharded(4, 10)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if s.Capacity() != 12 {
		t.Fatalf("capacity=%d", s.Capacity())
	}
}

func TestSharded_MatchesCache(t *testing.T) {
	pks, msgs, sig := batch(t, 1, 2, 3, 4, 5, 6)
	s, err := NewSharded(4, 64)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	ok, err := s.AggregateVerify(pks, msgs, sig, true)
	if err != nil || !ok {
		t.Fatalf("valid: ok=%v err=%v", ok, err)
	}
	if s.Len() != 6 {
		t.Fatalf("len=%d", s.Len())
	}
	for i := range pks {
		if !s.Contains(pks[i], msgs[i]) {
			t.Fatalf("pair %d missing", i)
		}
	}

	gts, err := s.GetPairings(pks, msgs, false)
	if err != nil || len(gts) != len(pks) {
		t.Fatalf("warm: gts=%d err=%v", len(gts), err)
	}
	c := mustNew(t, 64)
	want, _ := c.GetPairings(pks, msgs, true)
	for i := range gts {
		if !gts[i].Equal(want[i]) {
			t.Fatalf("pairing %d differs from unsharded cache", i)
		}
	}

	forged := append([][]byte(nil), msgs...)
	forged[2] = []byte("forged")
	if ok, _ := s.AggregateVerify(pks, forged, sig, true); ok {
		t.Fatalf("forged batch accepted")
	}
}

func TestSharded_BudgetSpansShards(t *testing.T) {
	pks, msgs, sig := batch(t, 1, 2, 3, 4)
	s, err := NewSharded(4, 64)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	ok, err := s.AggregateVerify(pks, msgs, sig, false)
	if err != nil || !ok {
		t.Fatalf("ok=%v err=%v", ok, err)
	}
	st := s.Stats()
	if s.Len() != 0 || st.Aborts != 1 || st.Fallbacks != 1 {
		t.Fatalf("len=%d stats=%+v", s.Len(), st)
	}
	s.Purge()
}

func TestSharded_InvalidKey(t *testing.T) {
	pks, msgs, sig := batch(t, 1, 2)
	s, err := NewSharded(2, 8)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	bad := make([]byte, bls381.PublicKeySize)
	bad[0] = 0xc0
	if _, err := s.GetPairings([][]byte{pks[0], bad}, msgs, true); !errors.Is(err, bls381.ErrInvalidPublicKey) {
		t.Fatalf("get pairings: %v", err)
	}
	if ok, err := s.AggregateVerify([][]byte{pks[0], bad}, msgs, sig, true); ok || err != nil {
		t.Fatalf("verify: ok=%v err=%v", ok, err)
	}
}

func TestSharded_Concurrent(t *testing.T) {
	s, err := NewSharded(8, 256)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	type fixture struct {
		pks, msgs [][]byte
		sig       *bls381.Signature
	}
	var fx []fixture
	for i := byte(0); i < 4; i++ {
		pks, msgs, sig := batch(t, 10*i+1, 10*i+2, 10*i+3)
		fx = append(fx, fixture{pks, msgs, sig})
	}
	var wg sync.WaitGroup
	errs := make(chan string, 64)
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for r := 0; r < 3; r++ {
				f := fx[(w+r)%len(fx)]
				ok, err := s.AggregateVerify(f.pks, f.msgs, f.sig, r%2 == 0)
				if err != nil || !ok {
					errs <- "verification failed under concurrency"
					return
				}
			}
		}()
	}
	wg.Wait()
	close(errs)
	for e := range errs {
		t.Fatal(e)
	}
	if s.Len() > 12 {
		t.Fatalf("len=%d exceeds distinct pairs", s.Len())
	}
}
