package session

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixir/research-assistant-service/internal/domain"
	"github.com/helixir/research-assistant-service/internal/observability"
)

func TestRegistry_Lifecycle(t *testing.T) {
	metrics := observability.NewMetricsWithRegisterer("test", prometheus.NewRegistry())
	r := NewRegistry(RegistryConfig{}, metrics, zerolog.Nop())

	s, err := r.Create()
	require.NoError(t, err)
	assert.Len(t, s.ID(), 36)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.ActiveSessions))

	got, err := r.Get(s.ID())
	require.NoError(t, err)
	assert.Same(t, s, got)

	require.NoError(t, r.Delete(s.ID()))
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.ActiveSessions))

	_, err = r.Get(s.ID())
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, r.Delete(s.ID()), domain.ErrNotFound)
}

func TestRegistry_Sweep(t *testing.T) {
	r := NewRegistry(RegistryConfig{IdleTTL: time.Minute}, nil, zerolog.Nop())
	idle, err := r.Create()
	require.NoError(t, err)
	fresh, err := r.Create()
	require.NoError(t, err)

	now := time.Now()
	r.now = func() time.Time { return now.Add(2 * time.Minute) }
	fresh.mu.Lock()
	fresh.lastAccess = now.Add(90 * time.Second)
	fresh.mu.Unlock()

	assert.Equal(t, 1, r.Sweep())
	_, err = r.Get(idle.ID())
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = r.Get(fresh.ID())
	assert.NoError(t, err)
}

func TestRegistry_MaxSessions(t *testing.T) {
	r := NewRegistry(RegistryConfig{MaxSessions: 1, IdleTTL: time.Hour}, nil, zerolog.Nop())
	_, err := r.Create()
	require.NoError(t, err)

	_, err = r.Create()
	assert.ErrorIs(t, err, ErrRegistryFull)

	r.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = r.Create()
	assert.NoError(t, err, "idle sessions are evicted to make room")
	assert.Equal(t, 1, r.Len())
}

func TestRegistry_Run(t *testing.T) {
	r := NewRegistry(RegistryConfig{IdleTTL: time.Nanosecond, SweepInterval: 5 * time.Millisecond}, nil, zerolog.Nop())
	_, err := r.Create()
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	assert.Eventually(t, func() bool { return r.Len() == 0 }, time.Second, 5*time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}
