package api

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/star/solarweather/internal/httputil"
	"github.com/star/solarweather/internal/metrics"
)

// ipLimiter is a token bucket with the last time it was used.
type ipLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// IPRateLimiter keeps one token bucket per client IP.
type IPRateLimiter struct {
	mu      sync.Mutex
	clients map[string]*ipLimiter
	r       rate.Limit
	b       int
	idle    time.Duration
	now     func() time.Time
}

// NewIPRateLimiter allows rps requests per second per IP with the given burst.
// Buckets unused for idle are dropped by Start.
func NewIPRateLimiter(rps float64, burst int, idle time.Duration) *IPRateLimiter {
	if burst < 1 {
		burst = 1
	}
	return &IPRateLimiter{
		clients: make(map[string]*ipLimiter),
		r:       rate.Limit(rps),
		b:       burst,
		idle:    idle,
		now:     time.Now,
	}
}

// Allow reports whether a request from ip may proceed.
func (l *IPRateLimiter) Allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	c, ok := l.clients[ip]
	if !ok {
		c = &ipLimiter{limiter: rate.NewLimiter(l.r, l.b)}
		l.clients[ip] = c
	}
	c.lastSeen = l.now()
	return c.limiter.AllowN(c.lastSeen, 1)
}

// sweep drops buckets idle for longer than the idle window.
func (l *IPRateLimiter) sweep() int {
	cutoff := l.now().Add(-l.idle)

	l.mu.Lock()
	defer l.mu.Unlock()

	var removed int
	for ip, c := range l.clients {
		if c.lastSeen.Before(cutoff) {
			delete(l.clients, ip)
			removed++
		}
	}
	return removed
}

// count returns the number of tracked clients.
func (l *IPRateLimiter) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.clients)
}

// Start sweeps idle buckets until ctx is cancelled.
func (l *IPRateLimiter) Start(ctx context.Context) {
	ticker := time.NewTicker(l.idle)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.sweep()
		}
	}
}

// rateLimitMiddleware rejects requests over the per-IP limit with 429.
// Probe and metrics paths are never limited.
func rateLimitMiddleware(l *IPRateLimiter, trustProxy bool, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if probePath(r.URL.Path) || r.URL.Path == "/metrics" {
				next.ServeHTTP(w, r)
				return
			}

			ip := httputil.ClientIP(r, trustProxy)
			if !l.Allow(ip) {
				metrics.IncRateLimited()
				logger.Debug("rate limited", "remote_ip", ip, "path", r.URL.Path)
				w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds(l.r)))
				httputil.WriteError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func retryAfterSeconds(r rate.Limit) int {
	if r <= 0 {
		return 60
	}
	return max(1, int(1/float64(r)+0.5))
}
