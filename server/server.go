// Package server exposes Intcode machines over the network: a connect
// service that creates, drives and checkpoints machines held in memory, a
// Prometheus endpoint, and an LSP server for program files.
package server

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/tliron/commonlog"

	"github.com/chazu/intcode/pkg/snapshot"
)

var log = commonlog.GetLogger("intcode.server")

const (
	DefaultSweepInterval = 5 * time.Minute
	DefaultTTL           = 30 * time.Minute
	DefaultMaxSteps      = 10_000_000
)

// MachineServer serves the machine service and metrics on one mux.
type MachineServer struct {
	worker   *Worker
	machines *MachineStore
	metrics  *Metrics
	mux      *http.ServeMux

	mu     sync.Mutex
	http   *http.Server
	closed bool

	stopSweeper func()
}

// ServerOption configures a MachineServer.
type ServerOption func(*serverConfig)

type serverConfig struct {
	sweepInterval time.Duration
	ttl           time.Duration
	maxSteps      uint64
	snapshots     *snapshot.Store
}

// WithSweepInterval sets how often idle machines are swept.
func WithSweepInterval(d time.Duration) ServerOption {
	return func(c *serverConfig) { c.sweepInterval = d }
}

// WithTTL sets how long a machine may sit unused before it is swept.
func WithTTL(d time.Duration) ServerOption {
	return func(c *serverConfig) { c.ttl = d }
}

// WithMaxSteps bounds the instructions a single Run or Drain may execute.
// 0 removes the bound.
func WithMaxSteps(n uint64) ServerOption {
	return func(c *serverConfig) { c.maxSteps = n }
}

// WithSnapshotStore enables Save and Restore. The server does not close the
// store.
func WithSnapshotStore(store *snapshot.Store) ServerOption {
	return func(c *serverConfig) { c.snapshots = store }
}

// New creates a MachineServer and starts its worker and sweeper.
func New(opts ...ServerOption) *MachineServer {
	cfg := &serverConfig{
		sweepInterval: DefaultSweepInterval,
		ttl:           DefaultTTL,
		maxSteps:      DefaultMaxSteps,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	metrics := NewMetrics()
	machines := NewMachineStore(metrics)
	worker := NewWorker(machines)

	s := &MachineServer{
		worker:   worker,
		machines: machines,
		metrics:  metrics,
		mux:      http.NewServeMux(),
	}

	svc := NewMachineService(worker, cfg.snapshots, metrics, cfg.maxSteps)
	path, handler := NewMachineServiceHandler(svc)
	s.mux.Handle(path, handler)
	s.mux.Handle("/metrics", metrics.Handler())

	s.stopSweeper = machines.StartSweeper(cfg.sweepInterval, cfg.ttl)

	return s
}

// Handler returns the HTTP handler serving every endpoint.
func (s *MachineServer) Handler() http.Handler {
	return s.mux
}

// Machines returns the server's machine store.
func (s *MachineServer) Machines() *MachineStore {
	return s.machines
}

// Metrics returns the server's collectors.
func (s *MachineServer) Metrics() *Metrics {
	return s.metrics
}

// ListenAndServe serves on addr until Shutdown is called.
func (s *MachineServer) ListenAndServe(addr string) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	hs := &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.http = hs
	s.mu.Unlock()

	log.Noticef("intcode machine server listening on %s", addr)
	log.Infof("  Connect (HTTP/JSON): http://%s%s", addr, CreateProcedure)
	log.Infof("  Metrics:             http://%s/metrics", addr)
	err := hs.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown stops accepting requests, waits for in-flight ones, then stops
// the worker and sweeper.
func (s *MachineServer) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	hs := s.http
	s.mu.Unlock()

	var err error
	if hs != nil {
		err = hs.Shutdown(ctx)
	}
	s.Stop()
	return err
}

// Stop stops the sweeper and the worker.
func (s *MachineServer) Stop() {
	if s.stopSweeper != nil {
		s.stopSweeper()
	}
	s.worker.Stop()
}
