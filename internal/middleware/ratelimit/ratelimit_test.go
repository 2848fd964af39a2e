package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestLimiter(perMinute int) (*Limiter, *clock) {
	c := &clock{t: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
	return NewLimiter(Config{RequestsPerMinute: perMinute, Now: c.now}), c
}

func TestLimiter_Window(t *testing.T) {
	rl, c := newTestLimiter(3)

	for i := range 3 {
		assert.True(t, rl.Allow("10.0.0.1"), "request %d", i+1)
	}
	assert.False(t, rl.Allow("10.0.0.1"))
	assert.True(t, rl.Allow("10.0.0.2"), "clients are limited independently")

	c.advance(30 * time.Second)
	assert.False(t, rl.Allow("10.0.0.1"), "window is fixed, not sliding")
	assert.Equal(t, 30*time.Second, rl.RetryAfter("10.0.0.1"))

	c.advance(30 * time.Second)
	assert.True(t, rl.Allow("10.0.0.1"))

	m := rl.GetMetrics()
	assert.Equal(t, int64(2), m.TotalHits)
	assert.Equal(t, int64(2), m.ClientCount)
}

func TestLimiter_CleanExpired(t *testing.T) {
	rl, c := newTestLimiter(10)
	rl.Allow("a")
	c.advance(5 * time.Minute)
	rl.Allow("b")
	c.advance(6 * time.Minute)

	assert.Equal(t, 1, rl.CleanExpired())
	assert.Equal(t, 1, rl.ActiveClients())
	assert.Zero(t, rl.RetryAfter("a"))
}

func TestNewLimiter_Defaults(t *testing.T) {
	rl := NewLimiter(Config{})
	assert.Equal(t, 60, rl.requestsPerMinute)
	assert.Equal(t, 10*time.Minute, rl.staleAfter)
}

func TestMiddleware(t *testing.T) {
	rl, _ := newTestLimiter(1)
	ip := func(*http.Request) string { return "192.0.2.1" }
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })
	h := rl.Middleware(ip, true, nil)(ok)

	for range 3 {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/churches", nil))
		assert.Equal(t, http.StatusNoContent, rec.Code, "reads are not limited")
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/forms/x/submit", nil))
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/forms/x/submit", nil))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "61", rec.Header().Get("Retry-After"))
}

func TestMiddleware_OnLimit(t *testing.T) {
	rl, _ := newTestLimiter(1)
	called := 0
	h := rl.Middleware(func(*http.Request) string { return "x" }, false, func(w http.ResponseWriter, r *http.Request) {
		called++
		w.WriteHeader(http.StatusServiceUnavailable)
	})(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, 1, called)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
