package ratelimit

import (
	"context"
	"math"
	"time"

	"github.com/vnykmshr/ideaflow/pkg/metrics"
)

// Limit is a refill rate in tokens per second.
type Limit float64

// Inf never limits.
var Inf = Limit(math.Inf(1))

// Every converts a minimum interval between events to a Limit.
func Every(interval time.Duration) Limit {
	if interval <= 0 {
		return Inf
	}
	return Limit(time.Second) / Limit(interval)
}

// Limiter grants permission for one event at a time.
type Limiter interface {
	// Allow reports whether an event may happen now without waiting.
	Allow(ctx context.Context) bool

	// Wait blocks until an event may happen or ctx is done.
	Wait(ctx context.Context) error
}

// Clock provides the current time. It can be mocked for testing.
type Clock interface {
	Now() time.Time
}

// SystemClock implements Clock using the system time.
type SystemClock struct{}

// Now returns the current system time.
func (SystemClock) Now() time.Time {
	return time.Now()
}

type instrumented struct {
	Limiter
	name string
	reg  *metrics.Registry
}

// Instrument records the time spent in Wait under the given limiter name.
// A nil registry returns l unchanged.
func Instrument(l Limiter, name string, reg *metrics.Registry) Limiter {
	if reg == nil {
		return l
	}
	return &instrumented{Limiter: l, name: name, reg: reg}
}

func (i *instrumented) Wait(ctx context.Context) error {
	start := time.Now()
	err := i.Limiter.Wait(ctx)
	i.reg.RateLimitWaitTime.WithLabelValues(i.name).Observe(time.Since(start).Seconds())
	return err
}
