// Package retry runs store operations under an exponential backoff policy.
// Caller and business errors (permission denied, failed precondition) are
// returned at once; everything else is treated as transient.
package retry

import (
	"context"
	"slices"
	"time"

	goretry "github.com/sethvargo/go-retry"
	"google.golang.org/grpc/codes"

	"temple-services-backend/internal/apperr"
	"temple-services-backend/internal/logger"
)

var DefaultNonRetryable = []codes.Code{codes.PermissionDenied, codes.FailedPrecondition}

// Terminal are outcomes another attempt cannot change. Callers add them to
// NonRetryable when their operation leaves no trace on failure.
var Terminal = []codes.Code{codes.InvalidArgument, codes.NotFound, codes.AlreadyExists, codes.Unauthenticated}

type Policy struct {
	MaxAttempts  int
	BaseDelay    time.Duration
	NonRetryable []codes.Code

	// OnRetry, when set, is called before each backoff sleep.
	OnRetry func(attempt int, delay time.Duration, err error)
}

func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:  3,
		BaseDelay:    100 * time.Millisecond,
		NonRetryable: DefaultNonRetryable,
	}
}

func (p Policy) retryable(err error) bool {
	nonRetryable := p.NonRetryable
	if nonRetryable == nil {
		nonRetryable = DefaultNonRetryable
	}
	return !slices.Contains(nonRetryable, apperr.Code(err))
}

// Do runs op until it succeeds, fails with a non-retryable error or
// MaxAttempts attempts were made. The n-th retry waits BaseDelay * 2^n.
func Do(ctx context.Context, name string, p Policy, op func(ctx context.Context) error) error {
	attempts := max(p.MaxAttempts, 1)
	base := p.BaseDelay
	if base <= 0 {
		base = time.Millisecond
	}

	attempt := 0
	var lastErr error
	inner := goretry.WithMaxRetries(uint64(attempts-1), goretry.NewExponential(base))
	backoff := goretry.BackoffFunc(func() (time.Duration, bool) {
		delay, stop := inner.Next()
		if !stop {
			logger.Warn("Retrying operation", "operation", name, "attempt", attempt, "delay", delay, "error", lastErr)
			if p.OnRetry != nil {
				p.OnRetry(attempt, delay, lastErr)
			}
		}
		return delay, stop
	})

	return goretry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		err := op(ctx)
		if err == nil {
			return nil
		}
		lastErr = err
		if !p.retryable(err) {
			return err
		}
		return goretry.RetryableError(err)
	})
}
