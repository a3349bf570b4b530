// Package health provides liveness and readiness probe endpoints. Registered
// checks run periodically in a single background goroutine; the HTTP
// endpoints report the last observed state.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// CheckFunc probes one component. It returns nil when the component is
// healthy.
type CheckFunc func(ctx context.Context) error

type check struct {
	name    string
	timeout time.Duration
	fn      CheckFunc
}

// Service runs health checks and serves probe endpoints.
type Service struct {
	mu        sync.RWMutex
	liveness  []check
	readiness []check
	lastErr   map[string]error

	ready  atomic.Bool
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates an empty health Service. Register checks before Start.
func New() *Service {
	return &Service{lastErr: make(map[string]error)}
}

// AddLivenessCheck registers a check that gates the liveness probe.
func (s *Service) AddLivenessCheck(name string, timeout time.Duration, fn CheckFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.liveness = append(s.liveness, check{name: name, timeout: timeout, fn: fn})
}

// AddReadinessCheck registers a check that gates the readiness probe.
func (s *Service) AddReadinessCheck(name string, timeout time.Duration, fn CheckFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.readiness = append(s.readiness, check{name: name, timeout: timeout, fn: fn})
}

// SetReady flips the manual readiness gate. Shutdown sets it to false so
// load balancers drain before the listener stops.
func (s *Service) SetReady(ready bool) {
	s.ready.Store(ready)
}

// Start launches the background check loop with the given interval. All
// checks also run once immediately.
func (s *Service) Start(ctx context.Context, interval time.Duration) {
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})

	go func() {
		defer close(s.done)
		s.runAll(ctx)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.runAll(ctx)
			}
		}
	}()
}

// Stop terminates the background loop and waits for it to exit.
func (s *Service) Stop() {
	if s.cancel != nil {
		s.cancel()
		<-s.done
	}
}

func (s *Service) runAll(ctx context.Context) {
	s.mu.RLock()
	checks := make([]check, 0, len(s.liveness)+len(s.readiness))
	checks = append(checks, s.liveness...)
	checks = append(checks, s.readiness...)
	s.mu.RUnlock()

	for _, c := range checks {
		checkCtx, cancel := context.WithTimeout(ctx, c.timeout)
		err := c.fn(checkCtx)
		cancel()

		s.mu.Lock()
		s.lastErr[c.name] = err
		s.mu.Unlock()
	}
}

// LiveEndpoint serves the liveness probe.
func (s *Service) LiveEndpoint(w http.ResponseWriter, r *http.Request) {
	s.respond(w, s.snapshot(s.liveness), true)
}

// ReadyEndpoint serves the readiness probe. It fails while the manual gate
// is down regardless of check results.
func (s *Service) ReadyEndpoint(w http.ResponseWriter, r *http.Request) {
	s.respond(w, s.snapshot(s.readiness), s.ready.Load())
}

func (s *Service) snapshot(checks []check) map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]string, len(checks))
	for _, c := range checks {
		if err := s.lastErr[c.name]; err != nil {
			out[c.name] = err.Error()
		} else {
			out[c.name] = "ok"
		}
	}
	return out
}

func (s *Service) respond(w http.ResponseWriter, checks map[string]string, gate bool) {
	healthy := gate
	for _, v := range checks {
		if v != "ok" {
			healthy = false
		}
	}

	status := "ok"
	code := http.StatusOK
	if !healthy {
		status = "unavailable"
		code = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status": status,
		"checks": checks,
	})
}
