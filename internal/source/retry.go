package source

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/mgirault/postule/internal/model"
	"github.com/mgirault/postule/internal/normalize"
)

// RetrySource is a decorator that retries transient fetch failures with
// exponential backoff and jitter before delegating to the wrapped Source.
type RetrySource struct {
	inner      Source
	maxRetries int
	baseDelay  time.Duration
	logger     *slog.Logger
}

var _ Source = (*RetrySource)(nil)

// WithRetry wraps a source with retry logic. maxRetries is the number of
// additional attempts after the first failure; baseDelay is the delay
// before the first retry, doubled on each subsequent one.
func WithRetry(inner Source, maxRetries int, baseDelay time.Duration, logger *slog.Logger) *RetrySource {
	return &RetrySource{
		inner:      inner,
		maxRetries: maxRetries,
		baseDelay:  baseDelay,
		logger:     logger,
	}
}

func (s *RetrySource) Name() string  { return s.inner.Name() }
func (s *RetrySource) Board() string { return s.inner.Board() }

// Fetch attempts the inner fetch, retrying on transient errors.
func (s *RetrySource) Fetch(ctx context.Context) ([]normalize.RawPosting, error) {
	raws, err := s.inner.Fetch(ctx)
	if err == nil {
		return raws, nil
	}

	if !isRetryable(err) {
		return nil, err
	}

	lastErr := err
	for attempt := 1; attempt <= s.maxRetries; attempt++ {
		delay := s.backoffDelay(attempt, lastErr)

		s.logger.Warn("retrying after transient error",
			"source", s.inner.Name(),
			"attempt", attempt,
			"max_retries", s.maxRetries,
			"delay", delay,
			"error", lastErr,
		)

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("retry cancelled: %w", ctx.Err())
		case <-time.After(delay):
		}

		raws, err = s.inner.Fetch(ctx)
		if err == nil {
			return raws, nil
		}

		if !isRetryable(err) {
			return nil, err
		}
		lastErr = err
	}

	return nil, lastErr
}

// backoffDelay computes the delay for a given attempt with ±30% jitter.
// If the error includes a Retry-After duration (HTTP 429), that takes precedence.
func (s *RetrySource) backoffDelay(attempt int, err error) time.Duration {
	var fetchErr *model.FetchError
	if errors.As(err, &fetchErr) && fetchErr.RetryAfter > 0 {
		return fetchErr.RetryAfter
	}

	// Exponential: baseDelay * 2^(attempt-1)
	delay := s.baseDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
	}

	// Apply ±30% jitter
	jitter := float64(delay) * 0.3
	delay = time.Duration(float64(delay) + (rand.Float64()*2-1)*jitter)

	return delay
}

// isRetryable returns true if the error represents a transient failure worth retrying.
func isRetryable(err error) bool {
	if err == nil {
		return false
	}

	// Context cancellation is never retried.
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var fetchErr *model.FetchError
	if errors.As(err, &fetchErr) && fetchErr.StatusCode != 0 {
		// 429 and 5xx are transient. Any other 4xx will not get better
		// on a retry.
		return fetchErr.StatusCode == 429 || fetchErr.StatusCode >= 500
	}

	// No HTTP status: network, DNS or parse trouble, worth another try.
	return true
}
