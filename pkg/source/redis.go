package source

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/vnykmshr/ideaflow/pkg/common/errors"
	"github.com/vnykmshr/ideaflow/pkg/common/validation"
)

// Redis rotates a Redis list: each Next moves the head to the tail and
// returns it. Processes sharing the key share one feed.
type Redis struct {
	client redis.UniversalClient
	key    string
}

// NewRedis creates a Redis source over the list at key.
func NewRedis(client redis.UniversalClient, key string) (*Redis, error) {
	if client == nil {
		return nil, errors.NewValidationError("source", "redis", nil, "client is required")
	}
	if err := validation.ValidateNotEmpty("source", "key", key); err != nil {
		return nil, err
	}
	return &Redis{client: client, key: key}, nil
}

// Next implements Source.
func (r *Redis) Next(ctx context.Context) (string, error) {
	s, err := r.client.LMove(ctx, r.key, r.key, "LEFT", "RIGHT").Result()
	if err == redis.Nil {
		return "", errors.NewOperationError("source", "Next", fmt.Errorf("list %q is empty", r.key))
	}
	if err != nil {
		return "", errors.NewOperationError("source", "Next", err).WithContext("key " + r.key)
	}
	return s, nil
}

// Load replaces the list with items.
func (r *Redis) Load(ctx context.Context, items []string) error {
	if len(items) == 0 {
		return errors.NewValidationError("source", "items", 0, "cannot be empty")
	}
	args := make([]any, len(items))
	for i, s := range items {
		args[i] = s
	}

	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, r.key)
		pipe.RPush(ctx, r.key, args...)
		return nil
	})
	if err != nil {
		return errors.NewOperationError("source", "Load", err).WithContext("key " + r.key)
	}
	return nil
}

// Len returns the length of the list.
func (r *Redis) Len(ctx context.Context) (int64, error) {
	return r.client.LLen(ctx, r.key).Result()
}
