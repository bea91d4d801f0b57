package ratelimit

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/vnykmshr/ideaflow/pkg/common/errors"
)

// Config holds configuration options for a token bucket.
type Config struct {
	// Rate is the number of tokens added per second.
	Rate Limit

	// Burst is the maximum number of tokens that can be stored.
	Burst int

	// Clock provides the current time. If nil, SystemClock is used.
	Clock Clock

	// InitialTokens is the number of tokens to start with.
	// If negative, starts with full capacity.
	InitialTokens int
}

// Bucket is the in-process token bucket Limiter.
type Bucket struct {
	mu         sync.Mutex
	limit      Limit
	burst      int
	tokens     float64
	lastUpdate time.Time
	clock      Clock
}

// NewLocal creates an in-process token bucket.
func NewLocal(config Config) (*Bucket, error) {
	if config.Rate < 0 {
		return nil, errors.NewValidationError("ratelimit", "rate", config.Rate, "rate cannot be negative").
			WithHint("use 0 to allow only the initial tokens or a positive value")
	}
	if config.Burst <= 0 {
		return nil, errors.NewValidationError("ratelimit", "burst", config.Burst, "burst must be positive").
			WithHint("burst determines how many calls can start at once")
	}
	if config.Clock == nil {
		config.Clock = SystemClock{}
	}

	initial := float64(config.InitialTokens)
	if config.InitialTokens < 0 {
		initial = float64(config.Burst)
	}

	return &Bucket{
		limit:      config.Rate,
		burst:      config.Burst,
		tokens:     math.Min(initial, float64(config.Burst)),
		lastUpdate: config.Clock.Now(),
		clock:      config.Clock,
	}, nil
}

// Allow reports whether a token is available now and consumes it if so.
func (tb *Bucket) Allow(context.Context) bool {
	_, ok := tb.reserve(tb.clock.Now(), 0)
	return ok
}

// Wait consumes a token, sleeping until one has accrued. If ctx ends first the
// reservation is returned to the bucket.
func (tb *Bucket) Wait(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	now := tb.clock.Now()
	maxWait := time.Duration(math.MaxInt64)
	if deadline, ok := ctx.Deadline(); ok {
		maxWait = deadline.Sub(now)
	}

	delay, ok := tb.reserve(now, maxWait)
	if !ok {
		return errors.ErrRateLimited
	}
	if delay <= 0 {
		return nil
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		tb.cancel()
		return ctx.Err()
	}
}

// Tokens returns the number of tokens currently available.
func (tb *Bucket) Tokens() float64 {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.refill(tb.clock.Now())
	return tb.tokens
}

// reserve takes one token, possibly driving the balance negative, and returns
// how long the caller must wait before acting on it.
func (tb *Bucket) reserve(now time.Time, maxWait time.Duration) (time.Duration, bool) {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	if tb.limit == Inf {
		return 0, true
	}

	tb.refill(now)
	if tb.tokens >= 1 {
		tb.tokens--
		return 0, true
	}
	if tb.limit == 0 {
		return 0, false
	}

	wait := time.Duration(float64(time.Second) * (1 - tb.tokens) / float64(tb.limit))
	if wait > maxWait {
		return 0, false
	}
	tb.tokens--
	return wait, true
}

func (tb *Bucket) cancel() {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.refill(tb.clock.Now())
	tb.tokens = math.Min(tb.tokens+1, float64(tb.burst))
}

// refill adds tokens based on the time elapsed since the last update.
func (tb *Bucket) refill(now time.Time) {
	if tb.limit == Inf {
		tb.tokens = float64(tb.burst)
		tb.lastUpdate = now
		return
	}

	elapsed := now.Sub(tb.lastUpdate)
	if elapsed <= 0 {
		return
	}
	tb.tokens = math.Min(tb.tokens+elapsed.Seconds()*float64(tb.limit), float64(tb.burst))
	tb.lastUpdate = now
}
