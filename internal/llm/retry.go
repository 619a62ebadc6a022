package llm

import (
	"context"
	"errors"
	"io"
	"math"
	"math/rand"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
)

// RetryConfig configures retry behavior.
type RetryConfig struct {
	MaxAttempts int
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
}

// DefaultRetryConfig returns sensible defaults for rate limit retries.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: 5,
		BaseBackoff: 1 * time.Second,
		MaxBackoff:  30 * time.Second,
	}
}

// RateLimitError reports an upstream rate limit with an optional wait hint.
type RateLimitError struct {
	Message    string
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return e.Message
}

// IsLongWait returns true if the retry wait is too long for automatic retry.
func (e *RateLimitError) IsLongWait() bool {
	return e.RetryAfter > 2*time.Minute
}

// RetryProvider wraps a provider with automatic retry on transient errors.
//
// A stream is only re-issued while nothing has been forwarded from it yet:
// once any event reached the consumer, a later failure is surfaced rather
// than retried, since replaying the stream would duplicate already-consumed
// deltas.
type RetryProvider struct {
	inner  Provider
	config RetryConfig
}

// WrapWithRetry wraps a provider with retry logic.
func WrapWithRetry(p Provider, config RetryConfig) Provider {
	return &RetryProvider{inner: p, config: config}
}

func (r *RetryProvider) Name() string {
	return r.inner.Name()
}

func (r *RetryProvider) Credential() string {
	return r.inner.Credential()
}

func (r *RetryProvider) Capabilities() Capabilities {
	return r.inner.Capabilities()
}

// ListModels forwards to the inner provider if it supports model listing.
func (r *RetryProvider) ListModels(ctx context.Context) ([]ModelInfo, error) {
	if lister, ok := r.inner.(ModelLister); ok {
		return lister.ListModels(ctx)
	}
	return nil, errors.New("provider does not support model listing")
}

func (r *RetryProvider) Stream(ctx context.Context, req Request) (Stream, error) {
	return newEventStream(ctx, func(ctx context.Context, events chan<- Event) error {
		var lastErr error

		for attempt := 1; attempt <= r.config.MaxAttempts; attempt++ {
			stream, err := r.inner.Stream(ctx, req)
			if err != nil {
				if !isRetryable(err) {
					return err
				}
				lastErr = err
			} else {
				forwarded, err := r.forwardEvents(ctx, stream, events)
				if err == nil {
					return nil
				}
				if forwarded || !isRetryable(err) {
					return err
				}
				lastErr = err
			}

			if ctx.Err() != nil {
				return ctx.Err()
			}
			if attempt >= r.config.MaxAttempts {
				break
			}

			wait := r.calculateBackoff(attempt, lastErr)

			// Emit retry event so the UI can show progress
			events <- Event{
				Type:             EventRetry,
				RetryAttempt:     attempt,
				RetryMaxAttempts: r.config.MaxAttempts,
				RetryWaitSecs:    wait.Seconds(),
			}

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
		}

		return lastErr
	}), nil
}

// forwardEvents reads events from the inner stream and forwards them.
// It reports whether any event was forwarded before returning.
func (r *RetryProvider) forwardEvents(ctx context.Context, stream Stream, events chan<- Event) (bool, error) {
	defer stream.Close()

	forwarded := false
	for {
		event, err := stream.Recv()
		if err == io.EOF {
			return forwarded, nil
		}
		if err != nil {
			return forwarded, err
		}

		select {
		case events <- event:
			forwarded = true
		case <-ctx.Done():
			return forwarded, ctx.Err()
		}
	}
}

// isRetryable returns true if the error is a transient error worth retrying.
func isRetryable(err error) bool {
	if err == nil {
		return false
	}

	// Rate limits with a known wait are retried unless the wait is long.
	var rle *RateLimitError
	if errors.As(err, &rle) {
		return !rle.IsLongWait()
	}

	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return retryableStatus(httpErr.Status)
	}
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return retryableStatus(apiErr.StatusCode)
	}

	errStr := strings.ToLower(err.Error())

	// HTTP status codes and rate limit messages
	if strings.Contains(errStr, "429") ||
		strings.Contains(errStr, "rate limit") ||
		strings.Contains(errStr, "too many requests") ||
		strings.Contains(errStr, "502") ||
		strings.Contains(errStr, "bad gateway") ||
		strings.Contains(errStr, "503") ||
		strings.Contains(errStr, "service unavailable") ||
		strings.Contains(errStr, "529") ||
		strings.Contains(errStr, "overloaded") {
		return true
	}

	// Connection errors
	if strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "connection reset") ||
		strings.Contains(errStr, "timeout") ||
		strings.Contains(errStr, "deadline exceeded") ||
		strings.Contains(errStr, "temporary failure") ||
		strings.Contains(errStr, "no such host") {
		return true
	}

	return false
}

func retryableStatus(status int) bool {
	switch status {
	case 408, 429, 500, 502, 503, 504, 529:
		return true
	}
	return false
}

// retryAfterRegex matches Retry-After values in error messages.
var retryAfterRegex = regexp.MustCompile(`(?i)retry[- ]?after[:\s]+(\d+)`)

// calculateBackoff computes the wait duration for a retry attempt.
func (r *RetryProvider) calculateBackoff(attempt int, err error) time.Duration {
	// An explicit server wait hint wins over the exponential schedule.
	var rle *RateLimitError
	if errors.As(err, &rle) && rle.RetryAfter > 0 {
		return minDuration(rle.RetryAfter, r.config.MaxBackoff)
	}
	var httpErr *HTTPError
	if errors.As(err, &httpErr) && httpErr.RetryAfter > 0 {
		return minDuration(httpErr.RetryAfter, r.config.MaxBackoff)
	}

	// Try to parse Retry-After from error messages
	if err != nil {
		if matches := retryAfterRegex.FindStringSubmatch(err.Error()); len(matches) > 1 {
			if secs, parseErr := strconv.Atoi(matches[1]); parseErr == nil && secs > 0 {
				return minDuration(time.Duration(secs)*time.Second, r.config.MaxBackoff)
			}
		}
	}

	// Exponential backoff: base * 2^(attempt-1), +/- 25% jitter
	backoff := float64(r.config.BaseBackoff) * math.Pow(2, float64(attempt-1))
	jitter := (rand.Float64() - 0.5) * 0.5 * backoff
	backoff += jitter

	if backoff > float64(r.config.MaxBackoff) {
		backoff = float64(r.config.MaxBackoff)
	}
	return time.Duration(backoff)
}

func minDuration(a, b time.Duration) time.Duration {
	if a < b {
		return a
	}
	return b
}
