package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"skillbridge/resume-matcher/internal/pipeline"
)

func testPolicy(recorded *[]time.Duration) RetryPolicy {
	return RetryPolicy{
		MaxRetries:   3,
		InitialDelay: 2 * time.Second,
		Sleep: func(_ context.Context, d time.Duration) error {
			*recorded = append(*recorded, d)
			return nil
		},
	}
}

func TestRetrySucceedsWithoutRetrying(t *testing.T) {
	var delays []time.Duration
	calls := 0

	out, err := Retry(context.Background(), "op", testPolicy(&delays), func(context.Context) (string, error) {
		calls++
		return "ok", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.Equal(t, 1, calls)
	assert.Empty(t, delays)
}

func TestRetryDoublesDelayBetweenAttempts(t *testing.T) {
	var delays []time.Duration
	calls := 0

	out, err := Retry(context.Background(), "op", testPolicy(&delays), func(context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", genai.APIError{Code: 429, Status: "RESOURCE_EXHAUSTED"}
		}
		return "recovered", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "recovered", out)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []time.Duration{2 * time.Second, 4 * time.Second}, delays)
}

func TestRetryExhaustionReturnsServiceUnavailable(t *testing.T) {
	var delays []time.Duration
	calls := 0
	serverErr := genai.APIError{Code: 503, Status: "UNAVAILABLE"}

	_, err := Retry(context.Background(), "gemini.generate_text", testPolicy(&delays), func(context.Context) (string, error) {
		calls++
		return "", serverErr
	})

	require.Error(t, err)
	var unavailable *pipeline.ServiceUnavailableError
	require.ErrorAs(t, err, &unavailable)
	assert.Equal(t, "gemini.generate_text", unavailable.Op)
	assert.Equal(t, 4, unavailable.Attempts) // initial call plus three retries
	assert.Equal(t, 4, calls)
	assert.Equal(t, []time.Duration{2 * time.Second, 4 * time.Second, 8 * time.Second}, delays)

	var apiErr genai.APIError
	assert.ErrorAs(t, err, &apiErr)
}

func TestRetryAuthErrorIsFatal(t *testing.T) {
	var delays []time.Duration
	calls := 0

	_, err := Retry(context.Background(), "op", testPolicy(&delays), func(context.Context) (string, error) {
		calls++
		return "", genai.APIError{Code: 403, Status: "PERMISSION_DENIED"}
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.Empty(t, delays)

	var unavailable *pipeline.ServiceUnavailableError
	assert.False(t, errors.As(err, &unavailable))
}

func TestRetryBadRequestIsFatal(t *testing.T) {
	calls := 0
	var delays []time.Duration

	_, err := Retry(context.Background(), "op", testPolicy(&delays), func(context.Context) (string, error) {
		calls++
		return "", genai.APIError{Code: 400, Status: "INVALID_ARGUMENT"}
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestRetryUnknownErrorGetsBoundedRetries(t *testing.T) {
	calls := 0
	var delays []time.Duration

	_, err := Retry(context.Background(), "op", testPolicy(&delays), func(context.Context) (string, error) {
		calls++
		return "", errors.New("no text content in response")
	})

	require.Error(t, err)
	assert.Equal(t, 4, calls)
}

func TestRetryStopsWhenSleepCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	policy := RetryPolicy{
		MaxRetries:   3,
		InitialDelay: time.Second,
		Sleep: func(ctx context.Context, _ time.Duration) error {
			cancel()
			return ctx.Err()
		},
	}
	calls := 0

	_, err := Retry(ctx, "op", policy, func(context.Context) (string, error) {
		calls++
		return "", genai.APIError{Code: 500, Status: "INTERNAL"}
	})

	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestRetryEachPreservesOrderAndIsolation(t *testing.T) {
	var delays []time.Duration
	policy := testPolicy(&delays)

	inputs := []int{1, 2, 3, 4}
	results, errs := RetryEach(context.Background(), "op", policy, 2, inputs, func(_ context.Context, in int) (int, error) {
		if in == 3 {
			return 0, genai.APIError{Code: 401, Status: "UNAUTHENTICATED"}
		}
		return in * 10, nil
	})

	require.Len(t, results, 4)
	require.Len(t, errs, 4)
	assert.Equal(t, 10, results[0])
	assert.Equal(t, 20, results[1])
	assert.Error(t, errs[2])
	assert.Equal(t, 40, results[3])
	assert.NoError(t, errs[0])
	assert.NoError(t, errs[1])
	assert.NoError(t, errs[3])
}

func TestFirstErrorFindsEarliestFailure(t *testing.T) {
	boom := errors.New("boom")

	i, err := firstError([]error{nil, nil, boom, errors.New("later")})
	assert.Equal(t, 2, i)
	assert.ErrorIs(t, err, boom)

	i, err = firstError([]error{nil, nil})
	assert.Equal(t, -1, i)
	assert.NoError(t, err)

	i, err = firstError(nil)
	assert.Equal(t, -1, i)
	assert.NoError(t, err)
}
