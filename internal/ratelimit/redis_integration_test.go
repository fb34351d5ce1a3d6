//go:build integration

package ratelimit_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"charter/internal/ratelimit"
	"charter/pkg/testutil/containers"
)

func TestRedisBackendWindow(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	rc := containers.NewRedisContainer(t)
	ctx := context.Background()
	require.NoError(t, rc.FlushAll(ctx))

	backend := ratelimit.NewRedisBackend(rc.Client)
	limiter := ratelimit.New(backend, 2*time.Second, 3)

	for i := 0; i < 3; i++ {
		ok, err := limiter.Allow(ctx, "acct-1")
		require.NoError(t, err)
		assert.True(t, ok, "request %d should pass", i+1)
	}

	ok, err := limiter.Allow(ctx, "acct-1")
	require.NoError(t, err)
	assert.False(t, ok, "over-limit request should be refused")

	// The key expires with the window and the counter starts over.
	time.Sleep(2500 * time.Millisecond)
	ok, err = limiter.Allow(ctx, "acct-1")
	require.NoError(t, err)
	assert.True(t, ok)
}
