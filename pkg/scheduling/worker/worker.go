package worker

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vnykmshr/ideaflow/pkg/common/errors"
	"github.com/vnykmshr/ideaflow/pkg/common/validation"
	"github.com/vnykmshr/ideaflow/pkg/idea"
	"github.com/vnykmshr/ideaflow/pkg/metrics"
	"github.com/vnykmshr/ideaflow/pkg/queue"
)

// Queue is the queue type workers read from and write to.
type Queue = queue.PriorityQueue[*idea.Item]

// Stage is the body of one tick.
type Stage interface {
	Run(ctx context.Context, w *Worker) error
}

// StageFunc adapts a function to the Stage interface.
type StageFunc func(ctx context.Context, w *Worker) error

// Run calls f(ctx, w).
func (f StageFunc) Run(ctx context.Context, w *Worker) error {
	return f(ctx, w)
}

// Config holds configuration options for creating a Worker.
type Config struct {
	// Name identifies the worker in logs and metrics. Required.
	Name string

	// Input is the queue the stage polls. Nil for source stages.
	Input *Queue

	// Outputs are the queues the stage pushes to, in routing order.
	Outputs []*Queue

	// Stage is run once per tick. Required.
	Stage Stage

	// Signal stops the worker between ticks. If nil the worker gets its own.
	Signal *Signal

	// Interval is the pause after each tick.
	Interval time.Duration

	// Logger defaults to slog.Default().
	Logger *slog.Logger

	// Metrics is optional.
	Metrics *metrics.Registry
}

// Stats is a snapshot of a worker's counters.
type Stats struct {
	Ticks        int64
	Failures     int64
	LastDuration time.Duration
}

// Worker runs a Stage in a loop on a dedicated goroutine.
type Worker struct {
	name     string
	input    *Queue
	outputs  []*Queue
	stage    Stage
	signal   *Signal
	interval time.Duration
	logger   *slog.Logger
	metrics  *metrics.Registry

	startOnce sync.Once
	started   atomic.Bool
	done      chan struct{}

	ticks    atomic.Int64
	failures atomic.Int64
	lastTick atomic.Int64
}

// New validates config and creates a stopped Worker.
func New(config Config) (*Worker, error) {
	if err := validation.ValidateNotEmpty("worker", "name", config.Name); err != nil {
		return nil, err
	}
	if err := validation.ValidateNotNil("worker", "stage", config.Stage); err != nil {
		return nil, err
	}
	if config.Interval < 0 {
		return nil, errors.NewValidationError("worker", "interval", config.Interval, "cannot be negative")
	}
	for i, out := range config.Outputs {
		if out == nil {
			return nil, errors.NewValidationError("worker", "outputs", i, "output queue cannot be nil")
		}
	}
	if config.Signal == nil {
		config.Signal = NewSignal()
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	return &Worker{
		name:     config.Name,
		input:    config.Input,
		outputs:  append([]*Queue(nil), config.Outputs...),
		stage:    config.Stage,
		signal:   config.Signal,
		interval: config.Interval,
		logger:   config.Logger.With("worker", config.Name),
		metrics:  config.Metrics,
		done:     make(chan struct{}),
	}, nil
}

// Name returns the worker's name.
func (w *Worker) Name() string { return w.name }

// Input returns the input queue, nil for a source worker.
func (w *Worker) Input() *Queue { return w.input }

// Outputs returns the output queues in routing order.
func (w *Worker) Outputs() []*Queue { return w.outputs }

// Output returns the i-th output queue or nil.
func (w *Worker) Output(i int) *Queue {
	if i < 0 || i >= len(w.outputs) {
		return nil
	}
	return w.outputs[i]
}

// Logger returns the worker-scoped logger.
func (w *Worker) Logger() *slog.Logger { return w.logger }

// Signal returns the stop signal the worker observes.
func (w *Worker) Signal() *Signal { return w.signal }

// Start launches the worker goroutine. Calling Start again has no effect.
// Cancelling ctx stops the loop at the next tick boundary, like Stop.
func (w *Worker) Start(ctx context.Context) {
	w.startOnce.Do(func() {
		w.started.Store(true)
		go w.run(ctx)
	})
}

// Stop raises the shared signal. Every worker sharing it stops after its
// current tick.
func (w *Worker) Stop() {
	w.signal.Set()
}

// Join blocks until the worker goroutine has exited. It returns immediately
// for a worker that was never started.
func (w *Worker) Join() {
	if !w.started.Load() {
		return
	}
	<-w.done
}

// JoinTimeout is Join bounded by d. It returns errors.ErrTimeout if the
// worker is still running when d elapses.
func (w *Worker) JoinTimeout(d time.Duration) error {
	if !w.started.Load() {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-w.done:
		return nil
	case <-timer.C:
		return fmt.Errorf("%w: worker %s still running after %v", errors.ErrTimeout, w.name, d)
	}
}

// Stats returns a snapshot of the worker's counters.
func (w *Worker) Stats() Stats {
	return Stats{
		Ticks:        w.ticks.Load(),
		Failures:     w.failures.Load(),
		LastDuration: time.Duration(w.lastTick.Load()),
	}
}

func (w *Worker) run(ctx context.Context) {
	defer close(w.done)

	if w.metrics != nil {
		w.metrics.WorkersRunning.Inc()
		defer w.metrics.WorkersRunning.Dec()
	}

	w.logger.Info("worker started", "interval", w.interval)
	defer w.logger.Info("worker stopped", "ticks", w.ticks.Load(), "failures", w.failures.Load())

	for !w.signal.IsSet() && ctx.Err() == nil {
		w.tick(ctx)
		if !w.pause(ctx) {
			return
		}
	}
}

// pause waits out the pacing interval. It returns false if the worker was
// stopped meanwhile.
func (w *Worker) pause(ctx context.Context) bool {
	if w.interval <= 0 {
		return true
	}
	timer := time.NewTimer(w.interval)
	defer timer.Stop()

	select {
	case <-timer.C:
		return true
	case <-w.signal.Done():
		return false
	case <-ctx.Done():
		return false
	}
}

// tick runs the stage once. Failures never escape.
func (w *Worker) tick(ctx context.Context) {
	start := time.Now()
	var err error

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("tick panicked: %v", r)
			w.logger.Error("tick panicked", "panic", r, "stack", string(debug.Stack()))
		} else if err != nil {
			w.logger.Error("tick failed", "error", err)
		}

		elapsed := time.Since(start)
		w.ticks.Add(1)
		w.lastTick.Store(int64(elapsed))
		if err != nil {
			w.failures.Add(1)
		}

		if w.metrics != nil {
			w.metrics.WorkerTicks.WithLabelValues(w.name).Inc()
			w.metrics.WorkerTickDuration.WithLabelValues(w.name).Observe(elapsed.Seconds())
			if err != nil {
				w.metrics.WorkerTickFailures.WithLabelValues(w.name).Inc()
			}
		}
	}()

	err = w.stage.Run(ctx, w)
}
