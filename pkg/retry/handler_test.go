package retry_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rohmanhakim/docs-link-crawler/pkg/failure"
	"github.com/rohmanhakim/docs-link-crawler/pkg/retry"
	"github.com/rohmanhakim/docs-link-crawler/pkg/timeutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockError is a mock implementation of failure.ClassifiedError for testing
type mockError struct {
	msg       string
	retryable bool
}

func (m *mockError) Error() string {
	return m.msg
}

func (m *mockError) Severity() failure.Severity {
	if m.retryable {
		return failure.SeverityRecoverable
	}
	return failure.SeverityFatal
}

func (m *mockError) IsRetryable() bool {
	return m.retryable
}

func fastParam(maxAttempts int) retry.RetryParam {
	return retry.NewRetryParam(
		0,
		1,
		maxAttempts,
		timeutil.NewBackoffParam(time.Millisecond, 2.0, 5*time.Millisecond),
	)
}

func TestRetry_SuccessOnFirstAttempt(t *testing.T) {
	calls := 0
	result, err := retry.Retry(context.Background(), fastParam(3), func(int) (string, failure.ClassifiedError) {
		calls++
		return "ok", nil
	})

	require.Nil(t, err)
	assert.Equal(t, "ok", result)
	assert.Equal(t, 1, calls)
}

func TestRetry_SucceedsAfterRetryableFailures(t *testing.T) {
	calls := 0
	result, err := retry.Retry(context.Background(), fastParam(3), func(attempt int) (int, failure.ClassifiedError) {
		calls++
		if attempt < 3 {
			return 0, &mockError{msg: "temporary", retryable: true}
		}
		return 42, nil
	})

	require.Nil(t, err)
	assert.Equal(t, 42, result)
	assert.Equal(t, 3, calls)
}

func TestRetry_NonRetryableReturnsImmediately(t *testing.T) {
	calls := 0
	_, err := retry.Retry(context.Background(), fastParam(5), func(int) (int, failure.ClassifiedError) {
		calls++
		return 0, &mockError{msg: "permanent", retryable: false}
	})

	require.NotNil(t, err)
	assert.Equal(t, 1, calls)
	var mErr *mockError
	assert.True(t, errors.As(err, &mErr))
}

func TestRetry_ExhaustedAttempts(t *testing.T) {
	calls := 0
	_, err := retry.Retry(context.Background(), fastParam(3), func(int) (int, failure.ClassifiedError) {
		calls++
		return 0, &mockError{msg: "still failing", retryable: true}
	})

	require.NotNil(t, err)
	assert.Equal(t, 3, calls)

	var retryErr *retry.RetryError
	require.True(t, errors.As(err, &retryErr))
	assert.Equal(t, retry.ErrExhaustedAttempts, retryErr.Cause)
	assert.Equal(t, 3, retryErr.Attempts)

	var last *mockError
	assert.True(t, errors.As(err, &last), "last attempt error should be reachable")
}

func TestRetry_ZeroAttempts(t *testing.T) {
	_, err := retry.Retry(context.Background(), fastParam(0), func(int) (int, failure.ClassifiedError) {
		t.Fatal("fn must not be called")
		return 0, nil
	})

	var retryErr *retry.RetryError
	require.True(t, errors.As(err, &retryErr))
	assert.Equal(t, retry.ErrZeroAttempt, retryErr.Cause)
}

func TestRetry_CancelledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	param := retry.NewRetryParam(0, 1, 5, timeutil.NewBackoffParam(time.Minute, 2.0, time.Minute))

	calls := 0
	_, err := retry.Retry(ctx, param, func(int) (int, failure.ClassifiedError) {
		calls++
		cancel()
		return 0, &mockError{msg: "temporary", retryable: true}
	})

	var retryErr *retry.RetryError
	require.True(t, errors.As(err, &retryErr))
	assert.Equal(t, retry.ErrCancelled, retryErr.Cause)
	assert.Equal(t, 1, calls)
}
