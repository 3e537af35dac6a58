package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/kotoba-api/internal/config"
	"github.com/phrazzld/kotoba-api/internal/platform/logger"
	"github.com/phrazzld/kotoba-api/internal/store"
	"github.com/sethvargo/go-retry"
)

// Default retry settings, matching the config defaults.
const (
	DefaultRetryAttempts  = 5
	DefaultRetryBaseDelay = 20 * time.Millisecond
)

// RetryPolicy bounds how often a read-modify-write is re-run when the store
// reports a conflicting write or a transient outage.
type RetryPolicy struct {
	// Attempts is the total number of runs, including the first.
	Attempts uint64
	// BaseDelay is the first backoff; later ones double.
	BaseDelay time.Duration
}

// DefaultRetryPolicy returns the policy used when none is configured.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{Attempts: DefaultRetryAttempts, BaseDelay: DefaultRetryBaseDelay}
}

// RetryPolicyFromConfig builds a policy from the store section of the config.
func RetryPolicyFromConfig(cfg config.StoreConfig) RetryPolicy {
	p := RetryPolicy{Attempts: cfg.RetryAttempts, BaseDelay: cfg.RetryBaseDelay}
	if p.Attempts == 0 {
		p.Attempts = DefaultRetryAttempts
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = DefaultRetryBaseDelay
	}
	return p
}

// Run calls fn until it succeeds, fails with a non-retryable error, or the
// attempts are used up. fn must re-read any state it writes. When conflicts
// persist the returned error wraps both ErrRetriesExhausted and the last
// store error.
func (p RetryPolicy) Run(ctx context.Context, log *slog.Logger, operation string, fn func(ctx context.Context) error) error {
	log = logger.FromContextOrDefault(ctx, log)

	attempts := max(p.Attempts, 1)
	backoff := retry.NewExponential(p.BaseDelay)
	backoff = retry.WithJitterPercent(20, backoff)
	backoff = retry.WithMaxRetries(attempts-1, backoff)

	var attempt uint64
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		err := fn(ctx)
		if err != nil && store.IsRetryable(err) {
			log.Debug("retrying after store conflict",
				slog.String("operation", operation),
				slog.Uint64("attempt", attempt),
				slog.String("error", err.Error()))
			return retry.RetryableError(err)
		}
		return err
	})

	if err != nil && store.IsRetryable(err) && !errors.Is(err, context.Canceled) {
		log.Warn("giving up after repeated store conflicts",
			slog.String("operation", operation),
			slog.Uint64("attempts", attempt))
		if errors.Is(err, store.ErrConcurrentUpdate) {
			return fmt.Errorf("%w: %w", ErrRetriesExhausted, err)
		}
	}
	return err
}
