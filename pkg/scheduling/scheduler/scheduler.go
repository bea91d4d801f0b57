package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/vnykmshr/ideaflow/pkg/common/errors"
	"github.com/vnykmshr/ideaflow/pkg/common/validation"
)

// Job is a unit of scheduled work.
type Job interface {
	Run(ctx context.Context) error
}

// JobFunc adapts a function to the Job interface.
type JobFunc func(ctx context.Context) error

// Run calls f(ctx).
func (f JobFunc) Run(ctx context.Context) error {
	return f(ctx)
}

// Task describes a scheduled job.
type Task struct {
	ID       string
	RunAt    time.Time
	Interval time.Duration // Zero for one-time and cron tasks
	Cron     string
	Runs     int64
	Created  time.Time
}

// Config holds scheduler configuration.
type Config struct {
	Location     *time.Location // For cron scheduling
	TickInterval time.Duration  // How often to check for ready tasks (default: 50ms)
	MaxTasks     int            // Maximum number of scheduled tasks (default: 1000)
	Logger       *slog.Logger
}

type scheduledTask struct {
	id           string
	job          Job
	runAt        time.Time
	interval     time.Duration
	cronExpr     string
	cronSchedule cron.Schedule
	created      time.Time
	running      atomic.Bool
	runs         atomic.Int64
}

// Scheduler fires jobs from a single ticker goroutine.
type Scheduler struct {
	location     *time.Location
	tickInterval time.Duration
	maxTasks     int
	cronParser   cron.Parser
	logger       *slog.Logger

	mu      sync.Mutex
	tasks   map[string]*scheduledTask
	running bool
	ctx     context.Context
	cancel  context.CancelFunc
	loop    sync.WaitGroup
	jobs    sync.WaitGroup
}

// New creates a scheduler. Zero Config fields take defaults.
func New(cfg Config) *Scheduler {
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = 50 * time.Millisecond
	}
	if cfg.MaxTasks <= 0 {
		cfg.MaxTasks = 1000
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Scheduler{
		location:     cfg.Location,
		tickInterval: cfg.TickInterval,
		maxTasks:     cfg.MaxTasks,
		cronParser:   cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor),
		logger:       cfg.Logger.With("component", "scheduler"),
		tasks:        make(map[string]*scheduledTask),
	}
}

// ParseCron validates a cron expression and returns its schedule.
func (s *Scheduler) ParseCron(expr string) (cron.Schedule, error) {
	if err := validation.ValidateNotEmpty("scheduler", "cron", expr); err != nil {
		return nil, err
	}
	schedule, err := s.cronParser.Parse(expr)
	if err != nil {
		return nil, errors.NewValidationError("scheduler", "cron", expr, err.Error()).
			WithHint(`use five fields like "*/5 * * * *" or a descriptor like "@hourly"`)
	}
	return schedule, nil
}

// Schedule runs job once at runAt.
func (s *Scheduler) Schedule(id string, job Job, runAt time.Time) error {
	if runAt.IsZero() {
		return errors.NewValidationError("scheduler", "run_at", runAt, "cannot be zero")
	}
	return s.add(&scheduledTask{id: id, job: job, runAt: runAt})
}

// ScheduleAfter runs job once after delay.
func (s *Scheduler) ScheduleAfter(id string, job Job, delay time.Duration) error {
	return s.Schedule(id, job, time.Now().Add(delay))
}

// ScheduleRepeating runs job now and then every interval.
func (s *Scheduler) ScheduleRepeating(id string, job Job, interval time.Duration) error {
	if err := validation.ValidatePositiveDuration("scheduler", "interval", interval); err != nil {
		return err
	}
	return s.add(&scheduledTask{id: id, job: job, runAt: time.Now(), interval: interval})
}

// ScheduleCron runs job at every time matched by cronExpr.
func (s *Scheduler) ScheduleCron(id, cronExpr string, job Job) error {
	schedule, err := s.ParseCron(cronExpr)
	if err != nil {
		return err
	}
	return s.add(&scheduledTask{
		id:           id,
		job:          job,
		runAt:        schedule.Next(time.Now().In(s.location)),
		cronExpr:     cronExpr,
		cronSchedule: schedule,
	})
}

func (s *Scheduler) add(t *scheduledTask) error {
	if err := validation.ValidateNotEmpty("scheduler", "id", t.id); err != nil {
		return err
	}
	if t.job == nil {
		return errors.NewValidationError("scheduler", "job", t.id, "cannot be nil")
	}
	t.created = time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.tasks[t.id]; exists {
		return errors.NewValidationError("scheduler", "id", t.id, "already scheduled").
			WithHint("cancel the existing task first")
	}
	if len(s.tasks) >= s.maxTasks {
		return fmt.Errorf("%w: scheduler holds %d tasks", errors.ErrCapacityExceeded, s.maxTasks)
	}
	s.tasks[t.id] = t
	return nil
}

// Cancel removes a task. A firing already in progress is not interrupted.
func (s *Scheduler) Cancel(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.tasks[id]; exists {
		delete(s.tasks, id)
		return true
	}
	return false
}

// CancelAll removes every task.
func (s *Scheduler) CancelAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks = make(map[string]*scheduledTask)
}

// List returns the scheduled tasks ordered by next run time.
func (s *Scheduler) List() []Task {
	s.mu.Lock()
	tasks := make([]Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		tasks = append(tasks, Task{
			ID:       t.id,
			RunAt:    t.runAt,
			Interval: t.interval,
			Cron:     t.cronExpr,
			Runs:     t.runs.Load(),
			Created:  t.created,
		})
	}
	s.mu.Unlock()

	sort.Slice(tasks, func(i, j int) bool {
		return tasks[i].RunAt.Before(tasks[j].RunAt)
	})
	return tasks
}

// Start begins firing tasks.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("scheduler already running, call Stop() first")
	}
	s.running = true
	s.ctx, s.cancel = context.WithCancel(context.Background())

	s.loop.Add(1)
	go s.run(s.ctx)
	return nil
}

// Stop halts the ticker and cancels the context passed to running jobs. The
// returned channel closes once every running job has returned.
func (s *Scheduler) Stop() <-chan struct{} {
	s.mu.Lock()
	if s.running {
		s.running = false
		s.cancel()
	}
	s.mu.Unlock()

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		s.loop.Wait()
		s.jobs.Wait()
	}()
	return stopped
}

func (s *Scheduler) run(ctx context.Context) {
	defer s.loop.Done()

	ticker := time.NewTicker(s.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			s.fireReady(ctx, now)
		}
	}
}

func (s *Scheduler) fireReady(ctx context.Context, now time.Time) {
	s.mu.Lock()
	ready := make([]*scheduledTask, 0, len(s.tasks))
	for id, t := range s.tasks {
		if now.Before(t.runAt) {
			continue
		}
		ready = append(ready, t)

		switch {
		case t.interval > 0:
			t.runAt = now.Add(t.interval)
		case t.cronSchedule != nil:
			t.runAt = t.cronSchedule.Next(now.In(s.location))
		default:
			delete(s.tasks, id)
		}
	}
	s.mu.Unlock()

	for _, t := range ready {
		if !t.running.CompareAndSwap(false, true) {
			s.logger.Warn("skipping firing, previous run still active", "task", t.id)
			continue
		}
		s.jobs.Add(1)
		go s.execute(ctx, t)
	}
}

func (s *Scheduler) execute(ctx context.Context, t *scheduledTask) {
	defer s.jobs.Done()
	defer t.running.Store(false)

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("job panicked", "task", t.id, "panic", r, "stack", string(debug.Stack()))
		}
	}()

	t.runs.Add(1)
	if err := t.job.Run(ctx); err != nil {
		s.logger.Error("job failed", "task", t.id, "error", err, "duration", time.Since(start))
		return
	}
	s.logger.Debug("job finished", "task", t.id, "duration", time.Since(start))
}
