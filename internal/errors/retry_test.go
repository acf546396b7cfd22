package errors

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastRetry(n int) RetryConfig {
	return RetryConfig{
		MaxRetries:   n,
		InitialDelay: time.Millisecond,
		MaxDelay:     2 * time.Millisecond,
		Multiplier:   2,
	}
}

func TestRetry_SucceedsAfterTransientFailures(t *testing.T) {
	// Given: a call that fails twice
	calls := 0
	fn := func(context.Context) (int, error) {
		calls++
		if calls < 3 {
			return 0, errors.New("503 service unavailable")
		}
		return 42, nil
	}

	// When: retrying with three retries
	got, err := Retry(context.Background(), fastRetry(3), fn)

	// Then: the third attempt wins
	require.NoError(t, err)
	assert.Equal(t, 42, got)
	assert.Equal(t, 3, calls)
}

func TestRetry_ExhaustsAttempts(t *testing.T) {
	boom := errors.New("connection refused")
	calls := 0

	_, err := Retry(context.Background(), fastRetry(2), func(context.Context) (string, error) {
		calls++
		return "", boom
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "failed after 2 retries")
	assert.Equal(t, 3, calls)
}

func TestRetry_StopsOnNonRetryable(t *testing.T) {
	fatal := errors.New("401 unauthorized")
	cfg := fastRetry(5)
	cfg.Retryable = func(err error) bool { return !errors.Is(err, fatal) }
	calls := 0

	_, err := Retry(context.Background(), cfg, func(context.Context) (int, error) {
		calls++
		return 0, fatal
	})

	assert.Equal(t, fatal, err)
	assert.Equal(t, 1, calls)
}

func TestRetry_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	calls := 0

	_, err := Retry(ctx, fastRetry(3), func(context.Context) (int, error) {
		calls++
		return 0, nil
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, calls)
}

func TestRetry_CancelledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := fastRetry(3)
	cfg.InitialDelay = time.Hour

	_, err := Retry(ctx, cfg, func(context.Context) (int, error) {
		cancel()
		return 0, errors.New("timeout")
	})

	assert.ErrorIs(t, err, context.Canceled)
}

func TestDefaultRetryConfig(t *testing.T) {
	cfg := DefaultRetryConfig()
	assert.Equal(t, 3, cfg.MaxRetries)
	assert.Less(t, cfg.InitialDelay, cfg.MaxDelay)
	assert.Nil(t, cfg.Retryable)
}

func TestRetry_ZeroRetriesReturnsErrorUnwrapped(t *testing.T) {
	boom := errors.New("bad gateway")

	_, err := Retry(context.Background(), RetryConfig{}, func(context.Context) (int, error) {
		return 0, boom
	})

	assert.Equal(t, boom, err)
}
