package main

import (
	"crypto/rand"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/minio/sha256-simd"
	"github.com/zmlAEQ/blscache/internal/bls381"
	"github.com/zmlAEQ/blscache/internal/validator"
	"github.com/zmlAEQ/blscache/pkg/trace"
)

func main() {
	var (
		n        int
		seedHex  string
		children int
		msg      string
		out      string
		force    bool
	)
	flag.IntVar(&n, "n", 4, "Number of root key pairs")
	flag.StringVar(&seedHex, "seed", "", "Hex base seed (>= 32 bytes); random when empty")
	flag.IntVar(&children, "children", 0, "Unhardened children signing alongside each root key")
	flag.StringVar(&msg, "msg", "blscache", "Message prefix; each signer signs prefix/index")
	flag.StringVar(&out, "out", "batch.json", "Output batch file ('-' for stdout)")
	flag.BoolVar(&force, "force-cache", false, "Mark the batch as force_cache")
	flag.Parse()

	if n <= 0 || children < 0 {
		fmt.Fprintln(os.Stderr, "invalid -n/-children")
		os.Exit(2)
	}
	seed, err := baseSeed(seedHex)
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(2)
	}
	b, err := buildBatch(seed, n, children, msg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
	b.ForceCache = force
	raw, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
	raw = append(raw, '\n')
	if out == "-" {
		_, _ = os.Stdout.Write(raw)
		return
	}
	if err := os.WriteFile(out, raw, 0o644); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
	fmt.Printf("wrote %d signers to %s\n", len(b.PublicKeys), out)
}

func baseSeed(h string) ([]byte, error) {
	if h == "" {
		seed := make([]byte, 32)
		if _, err := rand.Read(seed); err != nil {
			return nil, err
		}
		return seed, nil
	}
	seed, err := hex.DecodeString(h)
	if err != nil {
		return nil, fmt.Errorf("seed: %w", err)
	}
	if len(seed) < 32 {
		return nil, errors.New("seed: need at least 32 bytes")
	}
	return seed, nil
}

// keySeed is SHA-256(base ‖ BE32(i)).
func keySeed(base []byte, i int) []byte {
	var idx [4]byte
	binary.BigEndian.PutUint32(idx[:], uint32(i))
	h := sha256.New()
	h.Write(base)
	h.Write(idx[:])
	return h.Sum(nil)
}

func buildBatch(seed []byte, n, children int, prefix string) (validator.Batch, error) {
	b := validator.Batch{ID: trace.NewID()}
	var sigs []*bls381.Signature
	add := func(sk *bls381.SecretKey) {
		pk := sk.PublicKey().Bytes()
		m := []byte(fmt.Sprintf("%s/%d", prefix, len(b.PublicKeys)))
		b.PublicKeys = append(b.PublicKeys, pk[:])
		b.Messages = append(b.Messages, m)
		sigs = append(sigs, sk.Sign(m))
	}
	for i := 0; i < n; i++ {
		sk, err := bls381.SecretKeyFromSeed(keySeed(seed, i))
		if err != nil {
			return validator.Batch{}, err
		}
		add(sk)
		for c := 0; c < children; c++ {
			add(sk.DeriveUnhardened(uint32(c)))
		}
	}
	agg, err := bls381.Aggregate(sigs...)
	if err != nil {
		return validator.Batch{}, err
	}
	sig := agg.Bytes()
	b.Signature = sig[:]
	return b, nil
}
