package janitor

import (
	"context"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alexschlessinger/companion/internal/metrics"
	"github.com/alexschlessinger/companion/sessions"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSweepExpiresIdleSessions(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	store := sessions.NewSyncMapSessionStore(
		&sessions.SessionConfig{MaxHistory: 20, TTL: time.Minute},
		sessions.WithClock(func() time.Time { return now }),
	)
	store.Create()
	store.Create()

	m := metrics.NewMetrics()
	j, err := New("@every 1h", store, m)
	require.NoError(t, err)
	j.now = func() time.Time { return now.Add(2 * time.Minute) }

	assert.Equal(t, 2, j.Sweep())
	assert.Equal(t, 0, store.Len())

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "companion_sessions_expired_total 2")
	assert.Contains(t, string(body), "companion_sessions_active 0")
}

func TestSweepKeepsFreshSessions(t *testing.T) {
	store := sessions.NewSyncMapSessionStore(&sessions.SessionConfig{MaxHistory: 20, TTL: time.Hour})
	store.Create()

	j, err := New("*/5 * * * *", store, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, j.Sweep())
	assert.Equal(t, 1, store.Len())
}

func TestNewRejectsBadSchedule(t *testing.T) {
	_, err := New("every minute", sessions.NewSyncMapSessionStore(nil), nil)
	assert.ErrorContains(t, err, "invalid expiry schedule")
}

func TestRunStopsWithContext(t *testing.T) {
	j, err := New("@every 1h", sessions.NewSyncMapSessionStore(nil), nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- j.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
