package embedding

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/sethvargo/go-retry"
)

const remoteMaxRetries = 3

// withRetry runs call with Fibonacci backoff, retrying only errors that
// permanent reports false for.
func withRetry(ctx context.Context, base time.Duration, permanent func(error) bool, call func(context.Context) error) error {
	if base <= 0 {
		base = 500 * time.Millisecond
	}
	b := retry.WithMaxRetries(remoteMaxRetries, retry.NewFibonacci(base))
	return retry.Do(ctx, b, func(ctx context.Context) error {
		err := call(ctx)
		if err == nil {
			return nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || permanent(err) {
			return err
		}
		slog.Debug("embedding request failed, will retry", "err", err)
		return retry.RetryableError(err)
	})
}

// upstream tags a remote failure with ErrUpstream. Cancellation passes
// through untouched.
func upstream(provider string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s embeddings: %w", provider, err)
	}
	return fmt.Errorf("%w: %s: %w", ErrUpstream, provider, err)
}

// permanentStatus reports whether an HTTP status will not improve on retry.
func permanentStatus(code int) bool {
	return code >= 400 && code < 500 && code != http.StatusTooManyRequests && code != http.StatusRequestTimeout
}
