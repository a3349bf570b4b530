package httpmiddleware

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"
)

// RateLimitConfig controls the per-client fixed window rate limiter.
type RateLimitConfig struct {
	// Max requests allowed per window. Zero disables limiting.
	Max int
	// Window duration.
	Window time.Duration
}

type window struct {
	start time.Time
	count int
}

type limiter struct {
	mu      sync.Mutex
	clients map[string]*window
	cfg     RateLimitConfig
	now     func() time.Time
}

// allow reports whether the client identified by key may proceed.
func (l *limiter) allow(key string) bool {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.clients[key]
	if !ok || now.Sub(w.start) >= l.cfg.Window {
		l.clients[key] = &window{start: now, count: 1}
		return true
	}
	if w.count >= l.cfg.Max {
		return false
	}
	w.count++
	return true
}

// cleanup removes windows that expired before the last full window.
func (l *limiter) cleanup() {
	cutoff := l.now().Add(-2 * l.cfg.Window)

	l.mu.Lock()
	defer l.mu.Unlock()
	for key, w := range l.clients {
		if w.start.Before(cutoff) {
			delete(l.clients, key)
		}
	}
}

// RateLimitWithCleanup returns a per-client rate limiting middleware. Clients
// are keyed by remote IP. A background goroutine evicts idle clients until
// ctx is cancelled.
func RateLimitWithCleanup(ctx context.Context, cfg RateLimitConfig) Middleware {
	l := &limiter{
		clients: make(map[string]*window),
		cfg:     cfg,
		now:     time.Now,
	}

	if cfg.Max > 0 {
		go func() {
			ticker := time.NewTicker(cfg.Window)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					l.cleanup()
				}
			}
		}()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if cfg.Max <= 0 {
				next.ServeHTTP(w, r)
				return
			}

			key, _, err := net.SplitHostPort(r.RemoteAddr)
			if err != nil {
				key = r.RemoteAddr
			}
			if !l.allow(key) {
				w.Header().Set("Retry-After", cfg.Window.String())
				http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
