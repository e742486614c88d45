package ratelimit_test

import (
	"context"
	"testing"
	"time"

	"github.com/ownlingo/gamelingo/translator/ratelimit"
	"github.com/stretchr/testify/require"
)

func TestLimiterWaitWithinLimits(t *testing.T) {
	limiter := ratelimit.NewLimiter(1000, 10)

	start := time.Now()
	require.NoError(t, limiter.Wait(context.Background(), 100))
	require.Less(t, time.Since(start), 100*time.Millisecond)
}

func TestLimiterContextCancellation(t *testing.T) {
	limiter := ratelimit.NewLimiter(100, 1)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, limiter.Wait(ctx, 100))

	cancel()
	require.ErrorIs(t, limiter.Wait(ctx, 100), context.Canceled)
}

func TestLimiterBlocksWhenExhausted(t *testing.T) {
	limiter := ratelimit.NewLimiter(0, 1)
	require.NoError(t, limiter.Wait(context.Background(), 10))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	require.Error(t, limiter.Wait(ctx, 10))
}

func TestLimiterOversizedRequest(t *testing.T) {
	limiter := ratelimit.NewLimiter(50, 0)
	require.NoError(t, limiter.Wait(context.Background(), 500))
}

func TestLimiterUnlimited(t *testing.T) {
	limiter := ratelimit.NewLimiter(0, 0)
	for range 100 {
		require.NoError(t, limiter.Wait(context.Background(), 1_000_000))
	}
}

func TestLimiterSetLimits(t *testing.T) {
	limiter := ratelimit.NewLimiter(0, 1)
	require.NoError(t, limiter.Wait(context.Background(), 1))

	limiter.SetRPM(0)
	limiter.SetTPM(0)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, limiter.Wait(ctx, 1))
}
