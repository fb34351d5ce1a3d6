package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLimiterFixedWindow(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	backend := NewMemoryBackend()
	backend.now = func() time.Time { return now }
	limiter := New(backend, time.Minute, 3)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		ok, err := limiter.Allow(ctx, "acct-1")
		require.NoError(t, err)
		assert.True(t, ok, "request %d should pass", i+1)
	}

	ok, err := limiter.Allow(ctx, "acct-1")
	require.NoError(t, err)
	assert.False(t, ok, "fourth request in window should be limited")

	// Other keys have their own window.
	ok, err = limiter.Allow(ctx, "acct-2")
	require.NoError(t, err)
	assert.True(t, ok)

	// A new window resets the count.
	now = now.Add(time.Minute)
	ok, err = limiter.Allow(ctx, "acct-1")
	require.NoError(t, err)
	assert.True(t, ok)
}

type failingBackend struct{}

func (failingBackend) Incr(context.Context, string, time.Duration) (int64, error) {
	return 0, context.DeadlineExceeded
}

func TestLimiterFailsOpen(t *testing.T) {
	limiter := New(failingBackend{}, time.Minute, 1)
	ok, err := limiter.Allow(context.Background(), "acct-1")
	assert.Error(t, err)
	assert.True(t, ok, "backend failure must not block traffic")
}

func TestNilLimiterAllows(t *testing.T) {
	var limiter *Limiter
	ok, err := limiter.Allow(context.Background(), "acct-1")
	require.NoError(t, err)
	assert.True(t, ok)
}
