package ratelimiter

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllowWithinBurst(t *testing.T) {
	limiter := New(10, 5)

	for i := 0; i < 5; i++ {
		assert.True(t, limiter.Allow(), "request %d should be within burst", i)
	}
	assert.False(t, limiter.Allow(), "burst exhausted, request should be rejected")
}

func TestZeroRateIsUnlimited(t *testing.T) {
	limiter := New(0, 0)

	for i := 0; i < 10_000; i++ {
		require.True(t, limiter.Allow())
	}
}

func TestWaitRespectsCancellation(t *testing.T) {
	limiter := New(1, 1)
	require.True(t, limiter.Allow())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := limiter.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestWaitAcquiresToken(t *testing.T) {
	limiter := New(100, 1)
	require.True(t, limiter.Allow())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	err := limiter.Wait(ctx)
	assert.NoError(t, err)
}

func TestTokensReplenish(t *testing.T) {
	limiter := New(1000, 10)

	for i := 0; i < 10; i++ {
		require.True(t, limiter.Allow())
	}
	assert.Less(t, limiter.Tokens(), 1.0)

	time.Sleep(20 * time.Millisecond)
	assert.Greater(t, limiter.Tokens(), 1.0)
}
