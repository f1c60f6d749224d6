// Package wait implements the bounded wait used by every stage that waits on
// browser or server state.
package wait

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/neboloop/extharness/internal/failure"
)

// DefaultInterval is the poll period when none is given.
const DefaultInterval = 200 * time.Millisecond

// Condition reports whether the awaited state holds. A non-nil error aborts
// the wait and is returned as is.
type Condition func(ctx context.Context) (bool, error)

// Options bound a wait.
type Options struct {
	Timeout  time.Duration
	Interval time.Duration
}

// For polls cond until it holds, it errors, or opts.Timeout expires. what names
// the awaited state in the returned failure.Timeout. The condition is checked
// once immediately, then every Interval. Cancellation of ctx by the caller is
// reported as ctx.Err(), not as a timeout.
func For(ctx context.Context, what string, opts Options, cond Condition) error {
	if opts.Timeout <= 0 {
		return fmt.Errorf("wait for %s: timeout must be positive", what)
	}
	interval := opts.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}

	waitCtx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var lastErr error
	for {
		ok, err := cond(waitCtx)
		switch {
		case err == nil && ok:
			return nil
		case err != nil && !isDeadline(err):
			return err
		case err != nil:
			lastErr = err
		}

		select {
		case <-waitCtx.Done():
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return failure.Timeout(fmt.Sprintf("wait for %s (%s)", what, opts.Timeout), lastErr)
		case <-ticker.C:
		}
	}
}

// Do runs fn under a deadline of timeout. A deadline hit inside fn is reported
// as failure.Timeout; other errors are returned unchanged.
func Do(ctx context.Context, what string, timeout time.Duration, fn func(ctx context.Context) error) error {
	opCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	err := fn(opCtx)
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if isDeadline(err) || opCtx.Err() != nil {
		return failure.Timeout(fmt.Sprintf("%s (%s)", what, timeout), err)
	}
	return err
}

func isDeadline(err error) bool {
	return errors.Is(err, context.DeadlineExceeded)
}
