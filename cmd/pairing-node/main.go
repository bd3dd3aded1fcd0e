package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"go.uber.org/fx"

	"github.com/zmlAEQ/blscache/internal/monitoring"
	"github.com/zmlAEQ/blscache/internal/pairingcache"
	"github.com/zmlAEQ/blscache/internal/validator"
	"github.com/zmlAEQ/blscache/pkg/bus"
	"github.com/zmlAEQ/blscache/pkg/lifecycle"
	"github.com/zmlAEQ/blscache/pkg/logger"
	"github.com/zmlAEQ/blscache/pkg/trace"
)

type options struct {
	ConfigPath  string
	MonAddr     string
	Workers     int
	Shards      int
	MaxInFlight int64
	Batches     string
	BusSize     int
}

func main() {
	var o options
	flag.StringVar(&o.ConfigPath, "config", "", "Cache config JSON (defaults when empty)")
	flag.StringVar(&o.MonAddr, "monitoring", "127.0.0.1:4620", "Monitoring listen address")
	flag.IntVar(&o.Workers, "workers", 4, "Verification workers")
	flag.IntVar(&o.Shards, "shards", 0, "Cache shards (overrides config)")
	flag.Int64Var(&o.MaxInFlight, "max-in-flight", 0, "Batches verified at once (0 = 2*workers)")
	flag.StringVar(&o.Batches, "batches", "", "Optional file of JSON batches to publish after start")
	flag.IntVar(&o.BusSize, "bus-size", 256, "Event bus capacity")
	flag.Parse()

	app := fx.New(
		fx.NopLogger,
		fx.Supply(o),
		fx.Provide(
			newCacheConfig,
			pairingcache.FromConfig,
			newBus,
			newValidator,
			newMonitoring,
		),
		fx.Invoke(register),
	)
	if err := app.Err(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
	app.Run()
}

func newCacheConfig(o options) (pairingcache.Config, error) {
	cfg := pairingcache.Config{}
	if o.ConfigPath != "" {
		c, err := pairingcache.LoadConfig(o.ConfigPath)
		if err != nil {
			return cfg, err
		}
		cfg = c
	}
	if o.Shards > 0 {
		cfg.Shards = o.Shards
	}
	return pairingcache.Resolve(cfg)
}

func newBus(o options) *bus.Bus { return bus.New(o.BusSize) }

func newValidator(o options, b *bus.Bus, v pairingcache.Verifier) *validator.Service {
	svc := validator.New(b.Subscribe(), v, validator.Config{Workers: o.Workers, MaxInFlight: o.MaxInFlight})
	svc.OnResult(func(r validator.Result) {
		logger.InfoJ("batch_result", map[string]any{"id": r.ID, "ok": r.OK, "err": r.Err, "latency_ms": r.LatencyMs, "trace_id": r.TraceID})
	})
	return svc
}

func newMonitoring(o options, b *bus.Bus) *monitoring.Service {
	m := monitoring.New(o.MonAddr)
	m.SetReadiness(func() error {
		if n := b.Len(); o.BusSize > 0 && n >= o.BusSize {
			return fmt.Errorf("event bus saturated: %d queued", n)
		}
		return nil
	})
	return m
}

// register hands both services to a lifecycle.Manager driven by the fx
// lifecycle, then feeds the optional batch file.
func register(lc fx.Lifecycle, o options, b *bus.Bus, val *validator.Service, mon *monitoring.Service) {
	m := lifecycle.New()
	m.Add(mon)
	m.Add(val)
	feedCtx, cancel := context.WithCancel(context.Background())
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := m.StartAll(ctx); err != nil {
				return err
			}
			if o.Batches != "" {
				go feed(feedCtx, b, o.Batches)
			}
			return nil
		},
		OnStop: func(ctx context.Context) error {
			cancel()
			return m.StopAll(ctx)
		},
	})
}

func feed(ctx context.Context, b *bus.Bus, path string) {
	f, err := os.Open(path)
	if err != nil {
		logger.ErrorJ("batch_feed", map[string]any{"result": "error", "err": err.Error()})
		return
	}
	defer f.Close()
	batches, err := validator.ReadBatches(f)
	if err != nil {
		logger.ErrorJ("batch_feed", map[string]any{"result": "error", "err": err.Error()})
		return
	}
	for _, bt := range batches {
		ev := bus.Event{Kind: bus.KindBatch, Body: bt, TraceID: trace.NewID()}
		if err := b.PublishWait(ctx, ev); err != nil {
			return
		}
	}
	logger.InfoJ("batch_feed", map[string]any{"result": "ok", "batches": len(batches)})
}
