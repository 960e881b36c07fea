package pipeline

import (
	"context"
	"errors"
	"math/rand/v2"
	"net"
	"net/http"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/dgallion1/dealgest/internal/extract"
	"github.com/dgallion1/dealgest/internal/pathstore"
)

const MaxRetries = 3

// IsRetryable checks if an error is worth retrying: transient LLM errors,
// pathstore 429/5xx responses, Postgres errors that are safe to resend and
// network errors.
func IsRetryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if extract.IsRetryable(err) {
		return true
	}
	var se *pathstore.StatusError
	if errors.As(err, &se) {
		return se.Status == http.StatusTooManyRequests || se.Status >= 500
	}
	if pgconn.SafeToRetry(err) || pgconn.Timeout(err) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// Backoff returns a duration for attempt n (0-indexed) with jitter.
func Backoff(attempt int) time.Duration {
	base := time.Duration(1<<uint(attempt)) * time.Second
	if base > 30*time.Second {
		base = 30 * time.Second
	}
	jitter := time.Duration(rand.Int64N(int64(base) / 2))
	return base + jitter
}

// backoffFunc is swapped out by tests.
var backoffFunc = Backoff

// withRetry runs fn up to MaxRetries times, sleeping Backoff between
// attempts, while the error is retryable.
func withRetry(ctx context.Context, fn func() error, onRetry func(n uint, err error)) error {
	return retry.Do(fn,
		retry.Context(ctx),
		retry.Attempts(MaxRetries),
		retry.DelayType(func(n uint, _ error, _ *retry.Config) time.Duration {
			return backoffFunc(int(n))
		}),
		retry.RetryIf(IsRetryable),
		retry.LastErrorOnly(true),
		retry.OnRetry(onRetry),
	)
}
