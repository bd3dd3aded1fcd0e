package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"testing"

	"github.com/zmlAEQ/blscache/internal/bls381"
	"github.com/zmlAEQ/blscache/internal/pairingcache"
	"github.com/zmlAEQ/blscache/internal/validator"
)

func fixture(t *testing.T) validator.Batch {
	t.Helper()
	b := validator.Batch{ID: "fx"}
	var sigs []*bls381.Signature
	for i := byte(1); i <= 3; i++ {
		sk, err := bls381.SecretKeyFromSeed(bytes.Repeat([]byte{i}, 32))
		if err != nil {
			t.Fatalf("keygen: %v", err)
		}
		pk := sk.PublicKey().Bytes()
		m := []byte{i}
		b.PublicKeys = append(b.PublicKeys, pk[:])
		b.Messages = append(b.Messages, m)
		sigs = append(sigs, sk.Sign(m))
	}
	agg, _ := bls381.Aggregate(sigs...)
	s := agg.Bytes()
	b.Signature = s[:]
	return b
}

func TestRun_WarmsCacheAcrossRounds(t *testing.T) {
	var out bytes.Buffer
	ok, err := run(&out, pairingcache.Config{Capacity: 16}, []validator.Batch{fixture(t)}, 2, true)
	if err != nil || !ok {
		t.Fatalf("ok=%v err=%v", ok, err)
	}
	sc := bufio.NewScanner(&out)
	var rounds []round
	for sc.Scan() {
		var r round
		if err := json.Unmarshal(sc.Bytes(), &r); err == nil && r.Round > 0 {
			rounds = append(rounds, r)
		}
	}
	if len(rounds) != 2 || rounds[0].CacheLen != 3 || rounds[1].CacheLen != 3 {
		t.Fatalf("rounds %+v", rounds)
	}
}

func TestRun_ColdWithoutForceFallsBack(t *testing.T) {
	var out bytes.Buffer
	ok, err := run(&out, pairingcache.Config{Capacity: 16}, []validator.Batch{fixture(t)}, 1, false)
	if err != nil || !ok {
		t.Fatalf("ok=%v err=%v", ok, err)
	}
	if !bytes.Contains(out.Bytes(), []byte(`"cache_len":0`)) || !bytes.Contains(out.Bytes(), []byte(`"fallbacks":1`)) {
		t.Fatalf("output %s", out.String())
	}
}

func TestRun_ForgedFails(t *testing.T) {
	b := fixture(t)
	b.Messages[1] = []byte("forged")
	var out bytes.Buffer
	ok, err := run(&out, pairingcache.Config{Capacity: 16}, []validator.Batch{b}, 1, true)
	if err != nil || ok {
		t.Fatalf("ok=%v err=%v", ok, err)
	}
}
