package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"google.golang.org/genai"

	"skillbridge/resume-matcher/internal/pipeline"
)

// Retry defaults matching the upstream quota behavior of the Gemini
// API: three retries after the first attempt, starting at two seconds
// and doubling.
const (
	DefaultMaxRetries   = 3
	DefaultInitialDelay = 2 * time.Second
	DefaultMaxInFlight  = 5
)

// RetryPolicy controls how a failed call is retried. Sleep is
// injectable so tests can observe the delay sequence without waiting
// it out.
type RetryPolicy struct {
	MaxRetries   int
	InitialDelay time.Duration
	Sleep        func(ctx context.Context, d time.Duration) error
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:   DefaultMaxRetries,
		InitialDelay: DefaultInitialDelay,
		Sleep:        sleepCtx,
	}
}

func (p RetryPolicy) normalized() RetryPolicy {
	if p.MaxRetries <= 0 {
		p.MaxRetries = DefaultMaxRetries
	}
	if p.InitialDelay <= 0 {
		p.InitialDelay = DefaultInitialDelay
	}
	if p.Sleep == nil {
		p.Sleep = sleepCtx
	}
	return p
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Retry runs fn up to 1+MaxRetries times with exponentially doubling
// delays between attempts. Fatal errors (authentication, bad request)
// return immediately; everything else is retried. Exhaustion comes
// back as a ServiceUnavailableError wrapping the last failure.
func Retry[T any](ctx context.Context, op string, policy RetryPolicy, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	policy = policy.normalized()

	delay := policy.InitialDelay
	var lastErr error
	attempts := 0

	for attempt := 0; attempt <= policy.MaxRetries; attempt++ {
		attempts++
		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if isFatal(err) {
			return zero, fmt.Errorf("%s: %w", op, err)
		}
		if attempt == policy.MaxRetries {
			break
		}

		log.Printf("⚠️  %s attempt %d failed, retrying in %s: %v\n", op, attempt+1, delay, err)
		if sleepErr := policy.Sleep(ctx, delay); sleepErr != nil {
			return zero, fmt.Errorf("%s: %w", op, sleepErr)
		}
		delay *= 2
	}

	return zero, &pipeline.ServiceUnavailableError{Op: op, Attempts: attempts, Err: lastErr}
}

// RetryEach runs fn over every input with bounded concurrency, each
// element under the retry policy. Results preserve input order; one
// element's exhaustion does not cancel its siblings.
func RetryEach[In, Out any](ctx context.Context, op string, policy RetryPolicy, maxInFlight int, inputs []In, fn func(ctx context.Context, in In) (Out, error)) ([]Out, []error) {
	if maxInFlight <= 0 {
		maxInFlight = DefaultMaxInFlight
	}

	results := make([]Out, len(inputs))
	errs := make([]error, len(inputs))

	sem := make(chan struct{}, maxInFlight)
	var wg sync.WaitGroup
	for i, in := range inputs {
		wg.Add(1)
		go func(slot int, in In) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			results[slot], errs[slot] = Retry(ctx, op, policy, func(ctx context.Context) (Out, error) {
				return fn(ctx, in)
			})
		}(i, in)
	}
	wg.Wait()

	return results, errs
}

// firstError returns the index and value of the first non-nil error,
// or (-1, nil) when every element succeeded.
func firstError(errs []error) (int, error) {
	for i, err := range errs {
		if err != nil {
			return i, err
		}
	}
	return -1, nil
}

// isFatal reports whether an error will not improve with retrying.
// Auth failures and malformed requests are fatal; quota and server
// errors are transient.
func isFatal(err error) bool {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Code == 401 || apiErr.Code == 403:
			return true
		case apiErr.Code == 400:
			return true
		case apiErr.Code == 429:
			return false
		case apiErr.Code >= 500:
			return false
		}
	}
	// Unknown errors, including empty or malformed responses, get the
	// bounded retry budget.
	return false
}
