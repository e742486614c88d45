package retry_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ownlingo/gamelingo/translator/retry"
	"github.com/stretchr/testify/require"
)

func fastConfig(maxRetries int) *retry.Config {
	return &retry.Config{
		MaxRetries:     maxRetries,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     10 * time.Millisecond,
		Multiplier:     2.0,
	}
}

func TestRetryableError(t *testing.T) {
	baseErr := errors.New("base error")
	retryErr := &retry.RetryableError{Err: baseErr, StatusCode: 429}

	require.Equal(t, baseErr.Error(), retryErr.Error())
	require.ErrorIs(t, retryErr, baseErr)
	require.NoError(t, retry.Retryable(nil))
	require.True(t, retry.IsRetryable(retry.Retryable(baseErr)))
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "retryable error", err: &retry.RetryableError{Err: errors.New("test")}, want: true},
		{name: "wrapped retryable error", err: errors.Join(errors.New("ctx"), retry.Retryable(errors.New("test"))), want: true},
		{name: "non-retryable error", err: errors.New("test"), want: false},
		{name: "nil error", err: nil, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, retry.IsRetryable(tt.err))
		})
	}
}

func TestDefaultConfig(t *testing.T) {
	config := retry.DefaultConfig()
	require.Positive(t, config.MaxRetries)
	require.Positive(t, config.InitialBackoff)
	require.Positive(t, config.MaxBackoff)
	require.Greater(t, config.Multiplier, 1.0)
}

func TestAttempts(t *testing.T) {
	base := retry.DefaultConfig()
	require.Equal(t, 2, base.Attempts(3).MaxRetries)
	require.Equal(t, 0, base.Attempts(0).MaxRetries)
	require.Equal(t, 3, base.MaxRetries, "Attempts must not modify the receiver")
}

func TestDoSuccess(t *testing.T) {
	calls := 0
	err := retry.Do(context.Background(), retry.DefaultConfig(), func(int) error {
		calls++
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 1, calls)
}

func TestDoNonRetryableError(t *testing.T) {
	expectedErr := errors.New("non-retryable error")
	calls := 0
	err := retry.Do(context.Background(), retry.DefaultConfig(), func(int) error {
		calls++
		return expectedErr
	})
	require.ErrorIs(t, err, expectedErr)
	require.Equal(t, 1, calls)
}

func TestDoRetryableError(t *testing.T) {
	config := fastConfig(2)

	var attempts []int
	var hooked []int
	config.OnRetry = func(attempt int, err error, backoff time.Duration) {
		hooked = append(hooked, attempt)
		require.Positive(t, backoff)
	}

	err := retry.Do(context.Background(), config, func(attempt int) error {
		attempts = append(attempts, attempt)
		return retry.Retryable(errors.New("retryable error"))
	})
	require.Error(t, err)
	require.True(t, retry.IsRetryable(err))
	require.Equal(t, []int{0, 1, 2}, attempts)
	require.Equal(t, []int{1, 2}, hooked)
}

func TestDoSuccessAfterRetries(t *testing.T) {
	calls := 0
	err := retry.Do(context.Background(), fastConfig(3), func(int) error {
		calls++
		if calls < 3 {
			return retry.Retryable(errors.New("retryable error"))
		}
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 3, calls)
}

func TestDoContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	config := &retry.Config{
		MaxRetries:     5,
		InitialBackoff: 100 * time.Millisecond,
		MaxBackoff:     time.Second,
		Multiplier:     2.0,
	}

	calls := 0
	err := retry.Do(ctx, config, func(int) error {
		calls++
		if calls == 2 {
			cancel()
		}
		return retry.Retryable(errors.New("retryable error"))
	})
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, 2, calls)
}

func TestDoCancelledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := retry.Do(ctx, nil, func(int) error {
		calls++
		return nil
	})
	require.ErrorIs(t, err, context.Canceled)
	require.Zero(t, calls)
}

func TestDoNilConfig(t *testing.T) {
	calls := 0
	err := retry.Do(context.Background(), nil, func(int) error {
		calls++
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 1, calls)
}
