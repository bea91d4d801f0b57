package coordinator

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sort"
	"sync"
	"time"

	ctxutil "github.com/vnykmshr/ideaflow/pkg/common/context"
	"github.com/vnykmshr/ideaflow/pkg/common/errors"
	"github.com/vnykmshr/ideaflow/pkg/common/validation"
	"github.com/vnykmshr/ideaflow/pkg/enrich"
	"github.com/vnykmshr/ideaflow/pkg/idea"
	"github.com/vnykmshr/ideaflow/pkg/metrics"
	"github.com/vnykmshr/ideaflow/pkg/queue"
)

// DefaultEnrichTimeout bounds one Score or Generate call.
const DefaultEnrichTimeout = 30 * time.Second

// Queue is the queue type held in the registry.
type Queue = queue.PriorityQueue[*idea.Item]

// Config configures a Coordinator.
type Config struct {
	// Scorer rates items. Required.
	Scorer enrich.Scorer

	// Generator proposes child seeds. Required.
	Generator enrich.Generator

	// EnrichTimeout bounds each enrichment call. Zero uses DefaultEnrichTimeout.
	EnrichTimeout time.Duration

	// Logger defaults to slog.Default().
	Logger *slog.Logger

	// Metrics is optional.
	Metrics *metrics.Registry
}

// Coordinator is the shared state of one pipeline session.
type Coordinator struct {
	scorer    enrich.Scorer
	generator enrich.Generator
	timeout   time.Duration
	logger    *slog.Logger
	metrics   *metrics.Registry

	mu       sync.RWMutex
	queues   map[string]*Queue
	criteria any

	convMu       sync.RWMutex
	conversation []enrich.Message
}

// New creates a Coordinator with an empty registry and conversation.
func New(config Config) (*Coordinator, error) {
	if err := validation.ValidateNotNil("coordinator", "scorer", config.Scorer); err != nil {
		return nil, err
	}
	if err := validation.ValidateNotNil("coordinator", "generator", config.Generator); err != nil {
		return nil, err
	}
	if config.EnrichTimeout < 0 {
		return nil, errors.NewValidationError("coordinator", "enrich_timeout", config.EnrichTimeout, "cannot be negative")
	}
	if config.EnrichTimeout == 0 {
		config.EnrichTimeout = DefaultEnrichTimeout
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	return &Coordinator{
		scorer:    config.Scorer,
		generator: config.Generator,
		timeout:   config.EnrichTimeout,
		logger:    config.Logger,
		metrics:   config.Metrics,
		queues:    make(map[string]*Queue),
	}, nil
}

// AddQueue registers q under name. Names are unique.
func (c *Coordinator) AddQueue(name string, q *Queue) error {
	if err := validation.ValidateNotEmpty("coordinator", "queue", name); err != nil {
		return err
	}
	if q == nil {
		return errors.NewValidationError("coordinator", "queue", name, "queue cannot be nil")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.queues[name]; exists {
		return errors.NewValidationError("coordinator", "queue", name, "already registered")
	}
	c.queues[name] = q
	return nil
}

// Queue returns the queue registered under name.
func (c *Coordinator) Queue(name string) (*Queue, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	q, ok := c.queues[name]
	return q, ok
}

// Lookup is Queue with an error wrapping errors.ErrQueueNotFound.
func (c *Coordinator) Lookup(name string) (*Queue, error) {
	q, ok := c.Queue(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", errors.ErrQueueNotFound, name)
	}
	return q, nil
}

// QueueNames returns the registered names in sorted order.
func (c *Coordinator) QueueNames() []string {
	c.mu.RLock()
	names := make([]string, 0, len(c.queues))
	for name := range c.queues {
		names = append(names, name)
	}
	c.mu.RUnlock()

	sort.Strings(names)
	return names
}

// Criteria returns the current criteria value, nil if unset.
func (c *Coordinator) Criteria() any {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.criteria
}

// SetCriteria replaces the criteria value.
func (c *Coordinator) SetCriteria(v any) {
	c.mu.Lock()
	c.criteria = v
	c.mu.Unlock()
	c.logger.Debug("criteria updated", "criteria", v)
}

// Conversation returns a copy of the conversation.
func (c *Coordinator) Conversation() []enrich.Message {
	c.convMu.RLock()
	defer c.convMu.RUnlock()
	return append([]enrich.Message(nil), c.conversation...)
}

// SetConversation replaces the conversation with a copy of msgs. Call it only
// between sessions.
func (c *Coordinator) SetConversation(msgs []enrich.Message) {
	cp := append([]enrich.Message(nil), msgs...)
	c.convMu.Lock()
	c.conversation = cp
	c.convMu.Unlock()
}

// AppendMessage adds one record to the conversation. Call it only between
// sessions.
func (c *Coordinator) AppendMessage(m enrich.Message) {
	c.convMu.Lock()
	c.conversation = append(c.conversation, m)
	c.convMu.Unlock()
}

// Score rates item, returning enrich.MinRating if the Scorer fails, panics,
// times out or answers outside the rating range.
func (c *Coordinator) Score(ctx context.Context, item *idea.Item) int {
	var rating int
	err := c.call(ctx, "score", func(ctx context.Context) error {
		r, err := c.scorer.Score(ctx, item)
		if err != nil {
			return err
		}
		if r < enrich.MinRating || r > enrich.MaxRating {
			return fmt.Errorf("rating %d out of range [%d, %d]", r, enrich.MinRating, enrich.MaxRating)
		}
		rating = r
		return nil
	})
	if err != nil {
		c.logger.Warn("score failed, using fallback", "item", item.ID, "fallback", enrich.MinRating, "error", err)
		return enrich.MinRating
	}
	return rating
}

// Evolve derives a child of item from the Generator's proposal and rates it.
// On failure item itself is returned unchanged.
func (c *Coordinator) Evolve(ctx context.Context, item *idea.Item) *idea.Item {
	req := enrich.Request{
		Item:         item,
		Conversation: c.Conversation(),
		Criteria:     c.Criteria(),
	}

	var seed string
	err := c.call(ctx, "evolve", func(ctx context.Context) error {
		s, err := c.generator.Generate(ctx, req)
		if err != nil {
			return err
		}
		if s == "" {
			return fmt.Errorf("empty seed")
		}
		seed = s
		return nil
	})
	if err != nil {
		c.logger.Warn("evolve failed, keeping original", "item", item.ID, "depth", item.Depth, "error", err)
		return item
	}

	child := idea.Derive(item, seed)
	child.SetRating(c.Score(ctx, child))
	c.logger.Debug("evolved", "parent", item.ID, "child", child.ID, "depth", child.Depth)
	return child
}

// call runs fn under the enrichment timeout, converting panics to errors and
// recording metrics under op.
func (c *Coordinator) call(ctx context.Context, op string, fn func(context.Context) error) (err error) {
	ctx, cancel := ctxutil.WithOptionalTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: panic: %v", errors.ErrEnrichment, r)
			c.logger.Error("enrichment panic", "op", op, "panic", r, "stack", string(debug.Stack()))
		}
		c.metrics.ObserveEnrich(op, time.Since(start).Seconds(), err != nil)
	}()

	if err := fn(ctx); err != nil {
		if ctxutil.IsTimedOut(ctx) {
			err = fmt.Errorf("%w: %w", errors.ErrTimeout, err)
		}
		return errors.NewOperationError("coordinator", op, fmt.Errorf("%w: %w", errors.ErrEnrichment, err))
	}
	return nil
}
