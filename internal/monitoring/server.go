// Package monitoring serves the Prometheus metrics and liveness endpoints.
package monitoring

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/zmlAEQ/blscache/pkg/lifecycle"
	"github.com/zmlAEQ/blscache/pkg/logger"
	"github.com/zmlAEQ/blscache/pkg/metrics"
)

type Service struct {
	addr  string
	ready func() error

	mu  sync.Mutex
	srv *http.Server
	ln  net.Listener
}

var _ lifecycle.Service = (*Service)(nil)

func New(addr string) *Service { return &Service{addr: addr} }

func (s *Service) Name() string { return "monitoring" }

// SetReadiness makes /healthz report 503 while fn returns an error.
func (s *Service) SetReadiness(fn func() error) { s.ready = fn }

// Addr returns the bound address once started.
func (s *Service) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return s.addr
	}
	return s.ln.Addr().String()
}

func (s *Service) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.Gatherer(), promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", s.handleHealth)
	return mux
}

func (s *Service) handleHealth(w http.ResponseWriter, _ *http.Request) {
	if s.ready != nil {
		if err := s.ready(); err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok\n"))
}

func (s *Service) Start(ctx context.Context) error {
	begin := time.Now()
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		logger.ErrorJ("service_op", map[string]any{"service": s.Name(), "op": "start", "result": "error", "err": err.Error()})
		return err
	}
	srv := &http.Server{Handler: s.Handler(), ReadHeaderTimeout: 5 * time.Second}
	s.mu.Lock()
	s.srv, s.ln = srv, ln
	s.mu.Unlock()
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.ErrorJ("monitoring_serve", map[string]any{"result": "error", "err": err.Error()})
		}
	}()
	ms := time.Since(begin).Milliseconds()
	logger.InfoJ("service_op", map[string]any{"service": s.Name(), "op": "start", "result": "ok", "addr": ln.Addr().String(), "latency_ms": ms})
	metrics.ObserveSummary("service_op_ms", map[string]string{"service": s.Name(), "op": "start"}, float64(ms))
	return nil
}

func (s *Service) Stop(ctx context.Context) error {
	begin := time.Now()
	s.mu.Lock()
	srv := s.srv
	s.srv = nil
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	err := srv.Shutdown(ctx)
	ms := time.Since(begin).Milliseconds()
	result := "ok"
	if err != nil {
		result = "error"
	}
	logger.InfoJ("service_op", map[string]any{"service": s.Name(), "op": "stop", "result": result, "latency_ms": ms})
	metrics.ObserveSummary("service_op_ms", map[string]string{"service": s.Name(), "op": "stop"}, float64(ms))
	return err
}
