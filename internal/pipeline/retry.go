package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/kurochkinivan/tddf_pipeline/internal/domain"
)

// RetryPolicy is exponential backoff for storage calls: Attempts tries in
// total, starting at Delay and doubling up to MaxDelay.
type RetryPolicy struct {
	Attempts int
	Delay    time.Duration
	MaxDelay time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		Attempts: 4,
		Delay:    200 * time.Millisecond,
		MaxDelay: 5 * time.Second,
	}
}

// permanent errors are answers, not outages, and are never retried.
func permanent(err error) bool {
	var verr *domain.ValidationError

	return errors.Is(err, domain.ErrContentNotFound) ||
		errors.Is(err, domain.ErrUploadNotFound) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.As(err, &verr)
}

// retry runs fn until it succeeds, fails permanently or the policy is
// exhausted, in which case the last error is wrapped in ErrStorageUnavailable.
func retry(ctx context.Context, log *slog.Logger, policy RetryPolicy, op string, fn func(ctx context.Context) error) error {
	attempts := max(policy.Attempts, 1)
	delay := policy.Delay

	for attempt := 1; ; attempt++ {
		err := fn(ctx)
		if err == nil || permanent(err) {
			return err
		}

		if attempt >= attempts {
			return fmt.Errorf("%w: %s: %w", domain.ErrStorageUnavailable, op, err)
		}

		log.DebugContext(ctx, "storage call failed, retrying",
			slog.String("op", op),
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", attempts),
			slog.Duration("delay", delay),
			slog.String("err", err.Error()),
		)

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}

		delay = min(delay*2, max(policy.MaxDelay, policy.Delay))
	}
}
