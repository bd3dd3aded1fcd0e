package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/zmlAEQ/blscache/internal/pairingcache"
	"github.com/zmlAEQ/blscache/internal/validator"
	"github.com/zmlAEQ/blscache/pkg/logger"
)

type round struct {
	Round    int    `json:"round"`
	ID       string `json:"id"`
	OK       bool   `json:"ok"`
	Err      string `json:"err,omitempty"`
	CacheLen int    `json:"cache_len"`
	Latency  int64  `json:"latency_ms"`
}

func main() {
	var (
		in       string
		capacity int
		force    bool
		repeat   int
		cfgPath  string
		logLevel string
	)
	flag.StringVar(&in, "in", "batch.json", "Batch file: one or more JSON batches ('-' for stdin)")
	flag.IntVar(&capacity, "capacity", 0, "Cache capacity (overrides config)")
	flag.BoolVar(&force, "force-cache", false, "Force cache use for every batch")
	flag.IntVar(&repeat, "repeat", 2, "Verify the file this many times through one cache")
	flag.StringVar(&cfgPath, "config", "", "Optional cache config JSON")
	flag.StringVar(&logLevel, "log-level", "warn", "Log level")
	flag.Parse()

	if err := logger.SetLevel(logLevel); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(2)
	}
	defer func() { _ = logger.Sync() }()

	cfg := pairingcache.Config{}
	if cfgPath != "" {
		c, err := pairingcache.LoadConfig(cfgPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, err.Error())
			os.Exit(2)
		}
		cfg = c
	}
	if capacity > 0 {
		cfg.Capacity = capacity
	}
	batches, err := readInput(in)
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
	ok, err := run(os.Stdout, cfg, batches, repeat, force)
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
	if !ok {
		os.Exit(3)
	}
}

func readInput(path string) ([]validator.Batch, error) {
	if path == "-" {
		return validator.ReadBatches(os.Stdin)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return validator.ReadBatches(f)
}

// run verifies every batch repeat times and writes one JSON line per
// verification. It reports whether all verifications passed.
func run(w io.Writer, cfg pairingcache.Config, batches []validator.Batch, repeat int, force bool) (bool, error) {
	v, err := pairingcache.FromConfig(cfg)
	if err != nil {
		return false, err
	}
	svc := validator.New(nil, v, validator.Config{Workers: 1})
	enc := json.NewEncoder(w)
	allOK := true
	for r := 1; r <= repeat; r++ {
		for _, b := range batches {
			b.ForceCache = b.ForceCache || force
			res := svc.VerifyNow(context.Background(), b)
			allOK = allOK && res.OK
			if err := enc.Encode(round{Round: r, ID: res.ID, OK: res.OK, Err: res.Err, CacheLen: v.Len(), Latency: res.LatencyMs}); err != nil {
				return false, err
			}
		}
	}
	st := v.Stats()
	if err := enc.Encode(st); err != nil {
		return false, err
	}
	return allOK, nil
}
