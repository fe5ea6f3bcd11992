package health

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okCheck(_ context.Context) error { return nil }

func failCheck(_ context.Context) error { return errors.New("boom") }

func TestProbeThresholds(t *testing.T) {
	var healthy atomic.Bool
	healthy.Store(true)

	p := newProbe("flaky", time.Second, func(_ context.Context) error {
		if healthy.Load() {
			return nil
		}
		return errors.New("down")
	})

	ctx := context.Background()

	// One failure is not enough to flip the probe.
	healthy.Store(false)
	p.observe(ctx)
	_, failed := p.failure()
	assert.False(t, failed)

	// Three consecutive failures are.
	p.observe(ctx)
	p.observe(ctx)
	msg, failed := p.failure()
	require.True(t, failed)
	assert.Equal(t, "down", msg)

	// A single success recovers.
	healthy.Store(true)
	p.observe(ctx)
	_, failed = p.failure()
	assert.False(t, failed)
}

func TestIsReady(t *testing.T) {
	h := New()
	assert.False(t, h.IsReady(), "not ready before SetReady")

	h.SetReady(true)
	assert.True(t, h.IsReady())

	h.AddReadinessCheck("db", time.Second, failCheck)
	h.mu.RLock()
	p := h.readiness[0]
	h.mu.RUnlock()
	for range 3 {
		p.observe(context.Background())
	}
	assert.False(t, h.IsReady(), "failing readiness check blocks readiness")

	h.SetReady(false)
	assert.False(t, h.IsReady())
}

func TestLiveEndpoint(t *testing.T) {
	h := New()
	h.AddLivenessCheck("goroutines", time.Second, okCheck)

	rec := httptest.NewRecorder()
	h.LiveEndpoint(rec, httptest.NewRequest(http.MethodGet, "/livez", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestLiveEndpointUnhealthy(t *testing.T) {
	h := New()
	h.AddLivenessCheck("stuck", time.Second, failCheck)

	h.mu.RLock()
	p := h.liveness[0]
	h.mu.RUnlock()
	for range 3 {
		p.observe(context.Background())
	}

	rec := httptest.NewRecorder()
	h.LiveEndpoint(rec, httptest.NewRequest(http.MethodGet, "/livez", nil))

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var resp struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "unhealthy", resp.Status)
	assert.Equal(t, "boom", resp.Checks["stuck"])
}

func TestReadyEndpointNotReady(t *testing.T) {
	h := New()

	rec := httptest.NewRecorder()
	h.ReadyEndpoint(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "service is not ready")
}

func TestStartAndStop(t *testing.T) {
	h := New()

	var calls atomic.Int32
	h.AddReadinessCheck("counter", time.Second, func(_ context.Context) error {
		calls.Add(1)
		return nil
	})

	h.Start(context.Background(), 10*time.Millisecond)
	defer h.Stop()

	assert.Eventually(t, func() bool {
		return calls.Load() >= 2
	}, time.Second, 5*time.Millisecond)

	h.SetReady(true)
	assert.True(t, h.IsReady())
}

func TestGoroutineCountCheck(t *testing.T) {
	assert.NoError(t, GoroutineCountCheck(100000)(context.Background()))
	assert.Error(t, GoroutineCountCheck(0)(context.Background()))
}

type stubPinger struct{ err error }

func (s stubPinger) Ping(_ context.Context) error { return s.err }

func TestPingCheck(t *testing.T) {
	assert.NoError(t, PingCheck(stubPinger{})(context.Background()))

	err := PingCheck(stubPinger{err: errors.New("refused")})(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ping database")
}
