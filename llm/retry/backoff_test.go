package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"pgregory.net/rapid"

	"github.com/BaSui01/tripflow/types"
)

func fastPolicy(maxRetries int) *RetryPolicy {
	return &RetryPolicy{
		MaxRetries:   maxRetries,
		InitialDelay: 5 * time.Millisecond,
		MaxDelay:     20 * time.Millisecond,
		Multiplier:   2.0,
		Jitter:       false,
	}
}

func TestBackoffRetryer_Success(t *testing.T) {
	retryer := NewBackoffRetryer(fastPolicy(3), zap.NewNop())

	callCount := 0
	err := retryer.Do(context.Background(), func() error {
		callCount++
		return nil
	})

	assert.NoError(t, err)
	assert.Equal(t, 1, callCount, "应该只调用一次")
}

func TestBackoffRetryer_RetryAndSuccess(t *testing.T) {
	retryer := NewBackoffRetryer(fastPolicy(3), zap.NewNop())

	callCount := 0
	err := retryer.Do(context.Background(), func() error {
		callCount++
		if callCount < 3 {
			return errors.New("temporary error")
		}
		return nil
	})

	assert.NoError(t, err)
	assert.Equal(t, 3, callCount)
}

func TestBackoffRetryer_MaxRetriesExceeded(t *testing.T) {
	retryer := NewBackoffRetryer(fastPolicy(2), zap.NewNop())

	callCount := 0
	testErr := errors.New("persistent error")
	err := retryer.Do(context.Background(), func() error {
		callCount++
		return testErr
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, testErr)
	assert.Contains(t, err.Error(), "重试 2 次后仍失败")
	assert.Equal(t, 3, callCount, "初始 + 2 次重试")
}

func TestBackoffRetryer_ContextCanceled(t *testing.T) {
	policy := &RetryPolicy{
		MaxRetries:   5,
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     time.Second,
		Multiplier:   2.0,
	}
	retryer := NewBackoffRetryer(policy, zap.NewNop())
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	callCount := 0
	err := retryer.Do(ctx, func() error {
		callCount++
		return errors.New("error")
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, callCount)
}

func TestBackoffRetryer_RetryIf(t *testing.T) {
	policy := fastPolicy(3)
	policy.RetryIf = types.IsRetryable
	retryer := NewBackoffRetryer(policy, zap.NewNop())
	ctx := context.Background()

	t.Run("transient error is retried", func(t *testing.T) {
		callCount := 0
		err := retryer.Do(ctx, func() error {
			callCount++
			if callCount < 3 {
				return types.NewTimeoutError("store slow")
			}
			return nil
		})
		assert.NoError(t, err)
		assert.Equal(t, 3, callCount)
	})

	t.Run("permanent error stops immediately", func(t *testing.T) {
		callCount := 0
		permanent := types.NewError(types.ErrInvalidArguments, "bad input")
		err := retryer.Do(ctx, func() error {
			callCount++
			return permanent
		})
		assert.Same(t, permanent, err)
		assert.Equal(t, 1, callCount)
	})
}

func TestRetryPolicy_Backoff(t *testing.T) {
	policy := &RetryPolicy{
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     time.Second,
		Multiplier:   2.0,
	}

	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{0, 0},
		{1, 100 * time.Millisecond},
		{2, 200 * time.Millisecond},
		{3, 400 * time.Millisecond},
		{4, 800 * time.Millisecond},
		{5, time.Second},
		{9, time.Second},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, policy.Backoff(tt.attempt), "attempt %d", tt.attempt)
	}
}

func TestRetryPolicy_BackoffJitterBounds(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		initial := time.Duration(rapid.IntRange(1, 500).Draw(t, "initial_ms")) * time.Millisecond
		maxDelay := initial * time.Duration(rapid.IntRange(1, 20).Draw(t, "max_factor"))
		attempt := rapid.IntRange(1, 12).Draw(t, "attempt")

		policy := &RetryPolicy{
			InitialDelay: initial,
			MaxDelay:     maxDelay,
			Multiplier:   2.0,
			Jitter:       true,
		}
		d := policy.Backoff(attempt)

		if d < initial {
			t.Fatalf("delay %v below initial %v", d, initial)
		}
		if upper := maxDelay + maxDelay/4; d > upper {
			t.Fatalf("delay %v above jittered ceiling %v", d, upper)
		}
	})
}

func TestBackoffRetryer_OnRetryCallback(t *testing.T) {
	callbackCount := 0
	var lastAttempt int
	var lastErr error
	var lastDelay time.Duration

	policy := fastPolicy(2)
	policy.OnRetry = func(attempt int, err error, delay time.Duration) {
		callbackCount++
		lastAttempt = attempt
		lastErr = err
		lastDelay = delay
	}

	retryer := NewBackoffRetryer(policy, zap.NewNop())

	testErr := errors.New("test error")
	callCount := 0
	_ = retryer.Do(context.Background(), func() error {
		callCount++
		if callCount < 3 {
			return testErr
		}
		return nil
	})

	assert.Equal(t, 2, callbackCount)
	assert.Equal(t, 2, lastAttempt)
	assert.Equal(t, testErr, lastErr)
	assert.Equal(t, 10*time.Millisecond, lastDelay)
}

func TestNewBackoffRetryer_NormalizesPolicy(t *testing.T) {
	policy := &RetryPolicy{MaxRetries: -1, Multiplier: 0.5}
	_ = NewBackoffRetryer(policy, nil)

	assert.Equal(t, 0, policy.MaxRetries)
	assert.Equal(t, 200*time.Millisecond, policy.InitialDelay)
	assert.Equal(t, 2*time.Second, policy.MaxDelay)
	assert.Equal(t, 2.0, policy.Multiplier)
}

// ---------------------------------------------------------------------------
// DoWithResultTyped (generic wrapper)
// ---------------------------------------------------------------------------

func TestDoWithResultTyped_Success(t *testing.T) {
	r := NewBackoffRetryer(fastPolicy(3), zap.NewNop())

	val, err := DoWithResultTyped[int](r, context.Background(), func() (int, error) {
		return 42, nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 42, val)
}

func TestDoWithResultTyped_Error(t *testing.T) {
	r := NewBackoffRetryer(fastPolicy(0), zap.NewNop())

	val, err := DoWithResultTyped[int](r, context.Background(), func() (int, error) {
		return 0, errors.New("fail")
	})
	assert.Error(t, err)
	assert.Equal(t, 0, val)
}

func TestDoWithResultTyped_Pointer(t *testing.T) {
	type snapshot struct{ N int }

	r := NewBackoffRetryer(fastPolicy(3), zap.NewNop())

	callCount := 0
	val, err := DoWithResultTyped[*snapshot](r, context.Background(), func() (*snapshot, error) {
		callCount++
		if callCount < 2 {
			return nil, errors.New("not yet")
		}
		return &snapshot{N: 7}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 7, val.N)
	assert.Equal(t, 2, callCount)
}

func TestDoWithResultTyped_NilInterface(t *testing.T) {
	r := NewBackoffRetryer(fastPolicy(0), zap.NewNop())

	val, err := DoWithResultTyped[fmt.Stringer](r, context.Background(), func() (fmt.Stringer, error) {
		return nil, nil
	})
	require.NoError(t, err)
	assert.Nil(t, val)
}
