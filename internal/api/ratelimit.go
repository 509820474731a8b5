// Fixed-window per-client rate limiter for the import endpoint: snapshot
// imports rebuild the whole cache, so a misbehaving script should not be
// able to hammer them.
package api

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// RateLimiter allows maxRate requests per client per window.
type RateLimiter struct {
	mu      sync.Mutex
	windows map[string]*window
	maxRate int
	length  time.Duration
}

type window struct {
	count   int
	started time.Time
}

// NewRateLimiter creates a limiter allowing maxRate requests per window.
func NewRateLimiter(maxRate int, length time.Duration) *RateLimiter {
	return &RateLimiter{
		windows: make(map[string]*window),
		maxRate: maxRate,
		length:  length,
	}
}

// Allow records a request for the client and reports whether it is within
// the limit. Stale windows are dropped opportunistically.
func (rl *RateLimiter) Allow(client string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	if len(rl.windows) > 1024 {
		for c, win := range rl.windows {
			if now.Sub(win.started) > rl.length {
				delete(rl.windows, c)
			}
		}
	}

	win, ok := rl.windows[client]
	if !ok || now.Sub(win.started) >= rl.length {
		rl.windows[client] = &window{count: 1, started: now}
		return true
	}
	win.count++
	return win.count <= rl.maxRate
}

// RetryAfter returns seconds until the client's window resets.
func (rl *RateLimiter) RetryAfter(client string) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	win, ok := rl.windows[client]
	if !ok {
		return 0
	}
	remaining := rl.length - time.Since(win.started)
	if remaining < 0 {
		return 0
	}
	return int(remaining.Seconds()) + 1
}

func clientFor(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if i := strings.IndexByte(xff, ','); i >= 0 {
			return strings.TrimSpace(xff[:i])
		}
		return strings.TrimSpace(xff)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// rateLimited wraps a handler; limited clients get 429 with Retry-After.
func rateLimited(rl *RateLimiter, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		client := clientFor(r)
		if !rl.Allow(client) {
			w.Header().Set("Retry-After", strconv.Itoa(rl.RetryAfter(client)))
			http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
			return
		}
		next(w, r)
	}
}
