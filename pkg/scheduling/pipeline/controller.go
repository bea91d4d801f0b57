package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	ctxutil "github.com/vnykmshr/ideaflow/pkg/common/context"
	"github.com/vnykmshr/ideaflow/pkg/common/errors"
	"github.com/vnykmshr/ideaflow/pkg/common/validation"
	"github.com/vnykmshr/ideaflow/pkg/coordinator"
	"github.com/vnykmshr/ideaflow/pkg/idea"
	"github.com/vnykmshr/ideaflow/pkg/queue"
	"github.com/vnykmshr/ideaflow/pkg/scheduling/worker"
	"github.com/vnykmshr/ideaflow/pkg/source"
)

// Queue is the queue type used between stages.
type Queue = queue.PriorityQueue[*idea.Item]

// Dependencies are the external collaborators of a Controller.
type Dependencies struct {
	// Source feeds seed_queue. If nil, no source worker is created and
	// seeds arrive only through Seed.
	Source source.Source
}

// Controller owns one session: its queues, its workers and their shared
// stop signal.
type Controller struct {
	config Config
	coord  *coordinator.Coordinator
	logger *slog.Logger

	seed    *Queue
	explore *Queue
	staging *Queue
	signal  *worker.Signal

	mu      sync.Mutex
	workers []*worker.Worker
	cancel  context.CancelFunc
	started bool
	stopped bool
}

// New builds the session queues, registers them in coord and wires the
// built-in workers.
func New(config Config, coord *coordinator.Coordinator, deps Dependencies) (*Controller, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if coord == nil {
		return nil, errors.NewValidationError("pipeline", "coordinator", nil, "cannot be nil")
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	c := &Controller{
		config: config,
		coord:  coord,
		logger: config.Logger.With("component", "pipeline"),
		signal: worker.NewSignal(),
	}

	var err error
	if c.seed, err = c.newQueue(SeedQueue, config.SeedPriority); err != nil {
		return nil, err
	}
	if c.explore, err = c.newQueue(ExploreQueue, config.ExplorePriority); err != nil {
		return nil, err
	}
	// staged items are presented in order, so ties prefer shallow, short seeds
	if c.staging, err = c.newQueue(StagingQueue, config.StagingPriority,
		queue.WithLess[*idea.Item](idea.Less)); err != nil {
		return nil, err
	}

	if deps.Source != nil {
		if err := c.addBuiltin(worker.Config{
			Name:     "source",
			Outputs:  []*Queue{c.seed},
			Stage:    &SourceStage{Source: deps.Source, LowWater: config.LowWater},
			Interval: config.SourceInterval,
		}); err != nil {
			return nil, err
		}
	}
	if err := c.addBuiltin(worker.Config{
		Name:     "rate",
		Input:    c.seed,
		Outputs:  []*Queue{c.explore},
		Stage:    &RateStage{Rater: coord, Batch: config.RateBatch},
		Interval: config.RateInterval,
	}); err != nil {
		return nil, err
	}
	if err := c.addBuiltin(worker.Config{
		Name:     "explore",
		Input:    c.explore,
		Outputs:  []*Queue{c.staging},
		Stage:    &ExploreStage{Evolver: coord, Batch: config.ExploreBatch, DepthCap: config.DepthCap},
		Interval: config.ExploreInterval,
	}); err != nil {
		return nil, err
	}

	return c, nil
}

func (c *Controller) newQueue(name, priority string, opts ...queue.Option[*idea.Item]) (*Queue, error) {
	fn, err := idea.LookupPriority(priority)
	if err != nil {
		return nil, err
	}
	opts = append(opts, queue.WithMetrics[*idea.Item](c.config.Metrics))
	q, err := queue.New[*idea.Item](name, fn, opts...)
	if err != nil {
		return nil, err
	}
	if err := c.coord.AddQueue(name, q); err != nil {
		return nil, err
	}
	return q, nil
}

func (c *Controller) addBuiltin(cfg worker.Config) error {
	cfg.Signal = c.signal
	cfg.Logger = c.config.Logger
	cfg.Metrics = c.config.Metrics
	w, err := worker.New(cfg)
	if err != nil {
		return err
	}
	return c.AddWorker(w)
}

// Coordinator returns the session's Coordinator.
func (c *Controller) Coordinator() *coordinator.Coordinator { return c.coord }

// SeedQueue returns the entry queue.
func (c *Controller) SeedQueue() *Queue { return c.seed }

// ExploreQueue returns the queue of rated items awaiting evolution.
func (c *Controller) ExploreQueue() *Queue { return c.explore }

// StagingQueue returns the terminal queue.
func (c *Controller) StagingQueue() *Queue { return c.staging }

// Signal returns the stop signal shared by the built-in workers.
func (c *Controller) Signal() *worker.Signal { return c.signal }

// AddWorker adds w to the session. Workers are joined in the order they were
// added. It fails once the session has started.
func (c *Controller) AddWorker(w *worker.Worker) error {
	if w == nil {
		return errors.NewValidationError("pipeline", "worker", nil, "cannot be nil")
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.started {
		return errors.NewOperationError("pipeline", "AddWorker",
			fmt.Errorf("%w: session already started", errors.ErrInvalidConfiguration)).WithContext("worker " + w.Name())
	}
	for _, existing := range c.workers {
		if existing.Name() == w.Name() {
			return errors.NewValidationError("pipeline", "worker", w.Name(), "name already in use")
		}
	}
	c.workers = append(c.workers, w)
	return nil
}

// Workers returns the workers in join order.
func (c *Controller) Workers() []*worker.Worker {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*worker.Worker(nil), c.workers...)
}

// Start launches every worker. Later calls, and calls after Stop, have no
// effect.
func (c *Controller) Start(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.started || c.stopped {
		return
	}
	c.started = true

	ctx, c.cancel = context.WithCancel(ctx)
	for _, w := range c.workers {
		w.Start(ctx)
	}
	c.logger.Info("session started", "workers", len(c.workers), "depth_cap", c.config.DepthCap)
}

// Seed pushes a depth-0 item per text onto seed_queue.
func (c *Controller) Seed(texts []string) error {
	for _, text := range texts {
		if err := validation.ValidateNotEmpty("pipeline", "seed", text); err != nil {
			return err
		}
		if err := c.seed.Push(idea.New(text)); err != nil {
			return err
		}
	}
	return nil
}

// Run starts the session, lets it run for d or until ctx is done, stops it
// and returns the staged items. If ctx ended the session early, the items
// are returned along with ctx.Err().
func (c *Controller) Run(ctx context.Context, d time.Duration) ([]*idea.Item, error) {
	if err := validation.ValidatePositiveDuration("pipeline", "duration", d); err != nil {
		return nil, err
	}
	c.Start(ctx)

	if !ctxutil.Sleep(ctx, d) {
		return c.Stop(), ctx.Err()
	}
	return c.Stop(), nil
}

// Stop raises the stop signal, joins every worker in order and drains
// staging_queue in priority order. A worker still inside a tick after
// StopGrace has its enrichment calls cancelled. Only the first call returns
// items; later calls return nil.
func (c *Controller) Stop() []*idea.Item {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return nil
	}
	c.stopped = true
	workers := append([]*worker.Worker(nil), c.workers...)
	cancel := c.cancel
	c.mu.Unlock()

	c.signal.Set()
	for _, w := range workers {
		w.Stop()
	}

	if cancel == nil {
		cancel = func() {}
	}
	defer cancel()

	for _, w := range workers {
		if c.config.StopGrace > 0 {
			err := w.JoinTimeout(c.config.StopGrace)
			if err == nil {
				continue
			}
			c.logger.Warn("worker slow to stop, cancelling", "worker", w.Name(), "error", err)
		}
		cancel()
		w.Join()
	}

	var staged []*idea.Item
	for !c.staging.IsEmpty() {
		staged = append(staged, c.staging.PollMany(c.staging.Size())...)
	}

	if m := c.config.Metrics; m != nil {
		m.SessionsCompleted.Inc()
		m.ItemsStaged.Add(float64(len(staged)))
	}
	c.logger.Info("session stopped", "staged", len(staged))
	return staged
}

// WorkerStats returns per-worker counters keyed by worker name.
func (c *Controller) WorkerStats() map[string]worker.Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := make(map[string]worker.Stats, len(c.workers))
	for _, w := range c.workers {
		stats[w.Name()] = w.Stats()
	}
	return stats
}
