package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vnykmshr/ideaflow/pkg/common/errors"
	"github.com/vnykmshr/ideaflow/pkg/common/validation"
)

// RedisConfig holds configuration for a Redis-backed token bucket.
type RedisConfig struct {
	// Client is the Redis connection used for coordination.
	Client redis.UniversalClient

	// Key prefixes the bucket's Redis keys.
	Key string

	// Rate is the number of tokens added per second.
	Rate float64

	// Burst is the maximum number of tokens that can be stored.
	Burst int

	// Timeout bounds each Redis round trip. Defaults to 500ms.
	Timeout time.Duration

	// KeyTTL is how long idle bucket state survives. Defaults to 1 hour.
	KeyTTL time.Duration

	// Fallback is consulted when Redis cannot be reached. If nil, Redis
	// errors are returned to the caller.
	Fallback Limiter
}

// RedisBucket is a token bucket whose state lives in Redis.
type RedisBucket struct {
	config    RedisConfig
	tokensKey string
	lastKey   string
	script    *redis.Script
}

// NewRedis creates a Redis-backed token bucket. The connection is not
// verified until the first call.
func NewRedis(config RedisConfig) (*RedisBucket, error) {
	if config.Client == nil {
		return nil, errors.NewValidationError("ratelimit", "redis", nil, "client is required")
	}
	if err := validation.ValidateNotEmpty("ratelimit", "key", config.Key); err != nil {
		return nil, err
	}
	if err := validation.ValidatePositiveFloat("ratelimit", "rate", config.Rate); err != nil {
		return nil, err
	}
	if err := validation.ValidatePositive("ratelimit", "burst", config.Burst); err != nil {
		return nil, err
	}
	if config.Timeout <= 0 {
		config.Timeout = 500 * time.Millisecond
	}
	if config.KeyTTL <= 0 {
		config.KeyTTL = time.Hour
	}

	return &RedisBucket{
		config:    config,
		tokensKey: config.Key + ":tokens",
		lastKey:   config.Key + ":last_refill",
		script:    redis.NewScript(luaTake),
	}, nil
}

// Allow reports whether a token is available now and consumes it if so.
func (rb *RedisBucket) Allow(ctx context.Context) bool {
	ok, _, err := rb.take(ctx)
	if err != nil {
		if rb.config.Fallback != nil {
			return rb.config.Fallback.Allow(ctx)
		}
		return false
	}
	return ok
}

// Wait blocks until a token has been taken from the shared bucket. Each
// denied attempt sleeps for the delay the bucket reports and tries again.
func (rb *RedisBucket) Wait(ctx context.Context) error {
	for {
		ok, delay, err := rb.take(ctx)
		if err != nil {
			if rb.config.Fallback != nil {
				return rb.config.Fallback.Wait(ctx)
			}
			return err
		}
		if ok {
			return nil
		}

		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
	}
}

// Reset clears the bucket state so it starts full again.
func (rb *RedisBucket) Reset(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, rb.config.Timeout)
	defer cancel()

	if err := rb.config.Client.Del(ctx, rb.tokensKey, rb.lastKey).Err(); err != nil {
		return errors.NewOperationError("ratelimit", "Reset", err).WithContext("key " + rb.config.Key)
	}
	return nil
}

func (rb *RedisBucket) take(ctx context.Context) (bool, time.Duration, error) {
	ctx, cancel := context.WithTimeout(ctx, rb.config.Timeout)
	defer cancel()

	now := float64(time.Now().UnixNano()) / 1e9
	res, err := rb.script.Run(ctx, rb.config.Client,
		[]string{rb.tokensKey, rb.lastKey},
		now, rb.config.Rate, rb.config.Burst, rb.config.KeyTTL.Milliseconds(),
	).Slice()
	if err != nil {
		return false, 0, errors.NewOperationError("ratelimit", "Wait", err).WithContext("key " + rb.config.Key)
	}
	if len(res) != 2 {
		return false, 0, errors.NewOperationError("ratelimit", "Wait",
			fmt.Errorf("unexpected script result %v", res))
	}

	allowed, _ := res[0].(int64)
	delayStr, _ := res[1].(string)
	delay, _ := strconv.ParseFloat(delayStr, 64)

	return allowed == 1, time.Duration(delay * float64(time.Second)), nil
}

// luaTake refills and takes one token atomically.
// Returns {1, "0"} when a token was taken, {0, delay_seconds} otherwise.
const luaTake = `
local tokens_key = KEYS[1]
local last_key = KEYS[2]

local now = tonumber(ARGV[1])
local rate = tonumber(ARGV[2])
local capacity = tonumber(ARGV[3])
local ttl = tonumber(ARGV[4])

local tokens = tonumber(redis.call('GET', tokens_key) or capacity)
local last = tonumber(redis.call('GET', last_key) or now)

local elapsed = math.max(0, now - last)
tokens = math.min(capacity, tokens + elapsed * rate)

local allowed = 0
local delay = 0
if tokens >= 1 then
    tokens = tokens - 1
    allowed = 1
else
    delay = (1 - tokens) / rate
end

redis.call('SET', tokens_key, tostring(tokens), 'PX', ttl)
redis.call('SET', last_key, tostring(now), 'PX', ttl)

return {allowed, tostring(delay)}
`
