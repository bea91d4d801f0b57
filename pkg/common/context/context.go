// Package context holds small context helpers shared by the enrichment and
// worker packages.
package context

import (
	"context"
	"errors"
	"time"
)

// WithOptionalTimeout bounds parent by timeout when timeout is positive.
// A zero or negative timeout only adds a cancel func, so callers can always
// defer the returned cancel.
func WithOptionalTimeout(parent context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, timeout)
}

// IsCanceled returns true if the context has been canceled
func IsCanceled(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return true
	default:
		return false
	}
}

// IsTimedOut returns true if the context was canceled due to a timeout
func IsTimedOut(ctx context.Context) bool {
	return errors.Is(ctx.Err(), context.DeadlineExceeded)
}

// Sleep waits for d or until ctx is done, whichever comes first.
// It reports whether the full duration elapsed.
func Sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return !IsCanceled(ctx)
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
