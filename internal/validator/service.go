// Package validator runs aggregate verification of signature batches
// received on the event bus, over one pairing cache shared by a pool of
// workers.
package validator

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/zmlAEQ/blscache/internal/bls381"
	"github.com/zmlAEQ/blscache/pkg/bus"
	"github.com/zmlAEQ/blscache/pkg/lifecycle"
	"github.com/zmlAEQ/blscache/pkg/logger"
	"github.com/zmlAEQ/blscache/pkg/metrics"
	"github.com/zmlAEQ/blscache/pkg/trace"
	"golang.org/x/sync/errgroup"
)

// Verifier is satisfied by pairingcache.Cache and pairingcache.Sharded.
type Verifier interface {
	AggregateVerify(pks, msgs [][]byte, sig *bls381.Signature, forceCache bool) (bool, error)
	Len() int
}

type Config struct {
	Workers     int   `json:"workers,omitempty"`
	MaxInFlight int64 `json:"max_in_flight,omitempty"`
}

func defaultConfig(c Config) Config {
	if c.Workers <= 0 {
		c.Workers = 4
	}
	if c.MaxInFlight <= 0 {
		c.MaxInFlight = int64(c.Workers) * 2
	}
	return c
}

var ErrBusy = errors.New("validator: too many batches in flight")

type Service struct {
	sub      bus.Subscriber
	out      *bus.Bus
	v        Verifier
	cfg      Config
	clk      clock.Clock
	limiter  *Limiter
	onResult func(Result)

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

var _ lifecycle.Service = (*Service)(nil)

func New(sub bus.Subscriber, v Verifier, cfg Config) *Service {
	cfg = defaultConfig(cfg)
	return &Service{
		sub:     sub,
		v:       v,
		cfg:     cfg,
		clk:     clock.New(),
		limiter: NewLimiter(cfg.MaxInFlight),
	}
}

func (s *Service) Name() string { return "validator" }

// SetClock replaces the latency clock; tests pass a clock.Mock.
func (s *Service) SetClock(c clock.Clock) { s.clk = c }

// OnResult registers fn to receive every result produced by the workers.
// fn is called concurrently from worker goroutines.
func (s *Service) OnResult(fn func(Result)) { s.onResult = fn }

// PublishResults sends every worker result to b as a KindResult event.
func (s *Service) PublishResults(b *bus.Bus) { s.out = b }

// Start launches the worker pool. The pool outlives ctx: it runs until
// Stop.
func (s *Service) Start(ctx context.Context) error {
	begin := s.clk.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return nil
	}
	if s.sub == nil || s.v == nil {
		logger.Info("validator start (idle: no subscriber or verifier)")
		return nil
	}
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel
	s.done = make(chan struct{})
	g, gctx := errgroup.WithContext(runCtx)
	for i := 0; i < s.cfg.Workers; i++ {
		g.Go(func() error { return s.worker(gctx) })
	}
	go func() {
		if err := g.Wait(); err != nil {
			logger.ErrorJ("validator_pool", map[string]any{"result": "error", "err": err.Error()})
		}
		close(s.done)
	}()
	s.logOp("start", begin)
	return nil
}

func (s *Service) Stop(ctx context.Context) error {
	begin := s.clk.Now()
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel = nil
	s.mu.Unlock()
	if cancel == nil {
		return nil
	}
	cancel()
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}
	s.logOp("stop", begin)
	return nil
}

func (s *Service) logOp(op string, begin time.Time) {
	ms := s.clk.Since(begin).Milliseconds()
	logger.InfoJ("service_op", map[string]any{"service": s.Name(), "op": op, "result": "ok", "workers": s.cfg.Workers, "latency_ms": ms})
	metrics.ObserveSummary("service_op_ms", map[string]string{"service": s.Name(), "op": op}, float64(ms))
}

func (s *Service) worker(ctx context.Context) error {
	for {
		select {
		case ev, ok := <-s.sub:
			if !ok {
				return nil
			}
			metrics.Inc("validator_events_total", map[string]string{"kind": string(ev.Kind)})
			if ev.Kind != bus.KindBatch {
				continue
			}
			b, ok := asBatch(ev.Body)
			if !ok {
				logger.ErrorJ("validator_verify", map[string]any{"result": "error", "err": "unexpected event body", "trace_id": ev.TraceID})
				continue
			}
			tid := ev.TraceID
			if tid == "" {
				tid = trace.NewID()
			}
			s.deliver(ctx, s.process(b, tid))
		case <-ctx.Done():
			return nil
		}
	}
}

func asBatch(body any) (Batch, bool) {
	switch b := body.(type) {
	case Batch:
		return b, true
	case *Batch:
		if b != nil {
			return *b, true
		}
	}
	return Batch{}, false
}

func (s *Service) deliver(ctx context.Context, r Result) {
	if s.out != nil {
		s.out.Publish(ctx, bus.Event{Kind: bus.KindResult, Body: r, TraceID: r.TraceID})
	}
	if s.onResult != nil {
		s.onResult(r)
	}
}

// VerifyNow verifies b on the calling goroutine. It shares the limiter and
// cache with the worker pool.
func (s *Service) VerifyNow(ctx context.Context, b Batch) Result {
	_, tid := trace.Ensure(ctx)
	return s.process(b, tid)
}

func (s *Service) process(b Batch, traceID string) Result {
	begin := s.clk.Now()
	res := Result{ID: b.ID, TraceID: traceID}
	if res.ID == "" {
		res.ID = traceID
	}
	if !s.limiter.TryOpen() {
		res.Err = ErrBusy.Error()
		s.record(&res, "busy", begin)
		return res
	}
	defer s.limiter.Close()

	sig, err := bls381.SignatureFromBytes(b.Signature)
	if err != nil {
		res.Err = err.Error()
		s.record(&res, "rejected", begin)
		return res
	}
	ok, err := s.v.AggregateVerify(b.PublicKeys, b.Messages, sig, b.ForceCache)
	switch {
	case err != nil:
		res.Err = err.Error()
		s.record(&res, "error", begin)
	case ok:
		res.OK = true
		s.record(&res, "ok", begin)
	default:
		s.record(&res, "fail", begin)
	}
	return res
}

func (s *Service) record(res *Result, result string, begin time.Time) {
	ms := s.clk.Since(begin).Milliseconds()
	res.LatencyMs = ms
	metrics.Inc("validator_batches_total", map[string]string{"result": result})
	metrics.ObserveSummary("validator_verify_ms", map[string]string{"result": result}, float64(ms))
	metrics.SetGauge("validator_cache_entries", nil, float64(s.v.Len()))
	fields := map[string]any{"id": res.ID, "result": result, "trace_id": res.TraceID, "latency_ms": ms}
	if res.Err != "" {
		fields["err"] = res.Err
	}
	if result == "error" {
		logger.ErrorJ("validator_verify", fields)
		return
	}
	logger.InfoJ("validator_verify", fields)
}
