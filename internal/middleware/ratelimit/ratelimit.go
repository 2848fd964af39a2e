// Package ratelimit throttles writes per client IP with a fixed one-minute
// window.
package ratelimit

import (
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"churchadmin/internal/log"
)

const window = time.Minute

type Limiter struct {
	mu      sync.Mutex
	clients map[string]*clientInfo
	hits    atomic.Int64
	now     func() time.Time

	requestsPerMinute int
	staleAfter        time.Duration
}

type clientInfo struct {
	windowStart time.Time
	lastRequest time.Time
	requests    int
}

type Config struct {
	RequestsPerMinute int
	// StaleAfter is how long an idle client is remembered.
	StaleAfter time.Duration
	Now        func() time.Time
}

func DefaultConfig() Config {
	return Config{
		RequestsPerMinute: 60,
		StaleAfter:        10 * time.Minute,
	}
}

func NewLimiter(config Config) *Limiter {
	def := DefaultConfig()
	if config.RequestsPerMinute <= 0 {
		config.RequestsPerMinute = def.RequestsPerMinute
	}
	if config.StaleAfter <= 0 {
		config.StaleAfter = def.StaleAfter
	}
	if config.Now == nil {
		config.Now = time.Now
	}
	return &Limiter{
		clients:           make(map[string]*clientInfo),
		now:               config.Now,
		requestsPerMinute: config.RequestsPerMinute,
		staleAfter:        config.StaleAfter,
	}
}

// Allow counts a request from clientIP and reports whether it fits in the
// current window.
func (rl *Limiter) Allow(clientIP string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	client, ok := rl.clients[clientIP]
	if !ok || now.Sub(client.windowStart) >= window {
		rl.clients[clientIP] = &clientInfo{windowStart: now, lastRequest: now, requests: 1}
		return true
	}
	client.requests++
	client.lastRequest = now
	if client.requests > rl.requestsPerMinute {
		rl.hits.Add(1)
		return false
	}
	return true
}

// RetryAfter is the time left in clientIP's window.
func (rl *Limiter) RetryAfter(clientIP string) time.Duration {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	client, ok := rl.clients[clientIP]
	if !ok {
		return 0
	}
	left := window - rl.now().Sub(client.windowStart)
	if left < 0 {
		return 0
	}
	return left
}

// CleanExpired forgets idle clients. It satisfies cache.Cleaner so the
// server's cache manager sweeps the limiter with everything else.
func (rl *Limiter) CleanExpired() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := rl.now().Add(-rl.staleAfter)
	removed := 0
	for ip, client := range rl.clients {
		if client.lastRequest.Before(cutoff) {
			delete(rl.clients, ip)
			removed++
		}
	}
	return removed
}

func (rl *Limiter) ActiveClients() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.clients)
}

type Metrics struct {
	TotalHits   int64
	ClientCount int64
}

// GetMetrics reports rejected requests and tracked clients.
func (rl *Limiter) GetMetrics() Metrics {
	return Metrics{
		TotalHits:   rl.hits.Load(),
		ClientCount: int64(rl.ActiveClients()),
	}
}

// Middleware rejects requests over the limit with 429. Safe methods pass
// through untouched when mutatingOnly is set.
func (rl *Limiter) Middleware(extractIP func(*http.Request) string, mutatingOnly bool, onLimit func(http.ResponseWriter, *http.Request)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if mutatingOnly && isSafe(r.Method) {
				next.ServeHTTP(w, r)
				return
			}
			clientIP := extractIP(r)
			if rl.Allow(clientIP) {
				next.ServeHTTP(w, r)
				return
			}

			log.FromContext(r.Context()).WithComponent(log.ComponentRateLimit).
				WarnContext(r.Context(), "Rate limit exceeded", log.FieldClientIP, clientIP, log.FieldPath, r.URL.Path)
			retry := int(rl.RetryAfter(clientIP).Seconds()) + 1
			w.Header().Set("Retry-After", strconv.Itoa(retry))
			if onLimit != nil {
				onLimit(w, r)
				return
			}
			http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
		})
	}
}

func isSafe(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	}
	return false
}
