package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errFlaky = errors.New("flaky")

type verdict struct {
	error
	retry bool
}

func (v verdict) Retryable() bool { return v.retry }
func (v verdict) Unwrap() error   { return v.error }

func TestDo_SucceedsAfterRecovery(t *testing.T) {
	calls, recoveries := 0, 0
	err := Do(context.Background(), Once(), func(context.Context) error {
		calls++
		if calls == 1 {
			return errFlaky
		}
		return nil
	}, func(_ context.Context, attempt int, err error) {
		recoveries++
		assert.Equal(t, 1, attempt)
		assert.ErrorIs(t, err, errFlaky)
	})

	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.Equal(t, 1, recoveries)
}

func TestDo_ExhaustsWithoutTrailingRecovery(t *testing.T) {
	calls, recoveries := 0, 0
	err := Do(context.Background(), Once(), func(context.Context) error {
		calls++
		return errFlaky
	}, func(context.Context, int, error) { recoveries++ })

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrExhausted)
	assert.ErrorIs(t, err, errFlaky)
	assert.Equal(t, 2, calls)
	assert.Equal(t, 1, recoveries, "no recovery after the final attempt")
}

func TestDo_NonRetryableStopsImmediately(t *testing.T) {
	calls, recoveries := 0, 0
	stop := verdict{error: errFlaky, retry: false}
	err := Do(context.Background(), Config{MaxAttempts: 5}, func(context.Context) error {
		calls++
		return fmt.Errorf("attempt: %w", stop)
	}, func(context.Context, int, error) { recoveries++ })

	assert.ErrorIs(t, err, errFlaky)
	assert.NotErrorIs(t, err, ErrExhausted)
	assert.Equal(t, 1, calls)
	assert.Zero(t, recoveries)
}

func TestDo_RetryableIsRetried(t *testing.T) {
	calls := 0
	err := Do(context.Background(), Config{MaxAttempts: 3}, func(context.Context) error {
		calls++
		return verdict{error: errFlaky, retry: true}
	}, nil)

	assert.ErrorIs(t, err, ErrExhausted)
	assert.Equal(t, 3, calls)
}

func TestDo_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := Do(ctx, Config{MaxAttempts: 3, InitialBackoff: time.Hour}, func(context.Context) error {
		calls++
		cancel()
		return errFlaky
	}, nil)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestCalculateBackoff(t *testing.T) {
	cfg := Config{InitialBackoff: time.Second, MaxBackoff: 3 * time.Second, Multiplier: 2}
	assert.Equal(t, time.Second, calculateBackoff(0, cfg))
	assert.Equal(t, 2*time.Second, calculateBackoff(1, cfg))
	assert.Equal(t, 3*time.Second, calculateBackoff(2, cfg))
	assert.Zero(t, calculateBackoff(3, Once()))
}
