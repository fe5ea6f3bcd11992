package httpmiddleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimiterAllow(t *testing.T) {
	rl := newRateLimiter(RateLimitConfig{Max: 3, Window: time.Minute})
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	for i := range 3 {
		_, _, ok := rl.allow("k", now.Add(time.Duration(i)*time.Second))
		require.True(t, ok, "request %d should pass", i)
	}

	_, resetAt, ok := rl.allow("k", now.Add(5*time.Second))
	assert.False(t, ok)
	assert.False(t, resetAt.IsZero())
}

func TestRateLimiterSlidingWindow(t *testing.T) {
	rl := newRateLimiter(RateLimitConfig{Max: 10, Window: time.Minute})
	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	for i := range 10 {
		_, _, ok := rl.allow("k", start.Add(time.Duration(i)*time.Second))
		require.True(t, ok)
	}
	_, _, ok := rl.allow("k", start.Add(30*time.Second))
	assert.False(t, ok, "window saturated")

	// Halfway into the next window half of the previous count has decayed.
	_, _, ok = rl.allow("k", start.Add(90*time.Second))
	assert.True(t, ok)

	// After two idle windows the counter resets entirely.
	for i := range 10 {
		_, _, ok := rl.allow("k", start.Add(5*time.Minute).Add(time.Duration(i)*time.Second))
		require.True(t, ok, "request %d after idle period", i)
	}
}

func TestRateLimiterKeysAreIndependent(t *testing.T) {
	rl := newRateLimiter(RateLimitConfig{Max: 1, Window: time.Minute})
	now := time.Now()

	_, _, ok := rl.allow("a", now)
	require.True(t, ok)
	_, _, ok = rl.allow("a", now)
	require.False(t, ok)

	_, _, ok = rl.allow("b", now)
	assert.True(t, ok, "other keys keep their own budget")
}

func TestRateLimiterEvict(t *testing.T) {
	rl := newRateLimiter(RateLimitConfig{Max: 5, Window: time.Minute})
	now := time.Now()

	rl.allow("stale", now)
	rl.allow("fresh", now.Add(3*time.Minute))
	rl.evict(now.Add(3 * time.Minute))

	rl.mu.Lock()
	defer rl.mu.Unlock()
	assert.NotContains(t, rl.windows, "stale")
	assert.Contains(t, rl.windows, "fresh")
}

func TestRateLimitMiddlewareHeaders(t *testing.T) {
	mw := RateLimit(RateLimitConfig{Max: 2, Window: time.Minute})
	h := mw(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for i := range 2 {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		require.Equal(t, http.StatusOK, rec.Code, "request %d", i)
		assert.Equal(t, "2", rec.Header().Get("X-RateLimit-Limit"))
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.JSONEq(t, `{"error":"rate limit exceeded"}`, rec.Body.String())
}

func TestClientIP(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "192.0.2.10:4321"
	assert.Equal(t, "192.0.2.10", clientIP(r))

	r.Header.Set("X-Real-IP", "198.51.100.7")
	assert.Equal(t, "198.51.100.7", clientIP(r))

	r.Header.Set("X-Forwarded-For", "203.0.113.5, 198.51.100.7")
	assert.Equal(t, "203.0.113.5", clientIP(r))
}
