package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/vnykmshr/ideaflow/internal/testutil"
	gferrors "github.com/vnykmshr/ideaflow/pkg/common/errors"
)

func started(t *testing.T, cfg Config) *Scheduler {
	t.Helper()
	if cfg.TickInterval == 0 {
		cfg.TickInterval = 5 * time.Millisecond
	}
	s := New(cfg)
	testutil.AssertNoError(t, s.Start())
	t.Cleanup(func() { <-s.Stop() })
	return s
}

func counter(n *int32) JobFunc {
	return func(context.Context) error {
		atomic.AddInt32(n, 1)
		return nil
	}
}

func TestScheduler_OneShot(t *testing.T) {
	s := started(t, Config{})

	var executed int32
	testutil.AssertNoError(t, s.Schedule("now", counter(&executed), time.Now()))
	testutil.AssertNoError(t, s.ScheduleAfter("later", counter(&executed), 30*time.Millisecond))

	testutil.WaitForInt32(t, &executed, 2, time.Second)
	testutil.AssertEventually(t, func() bool { return len(s.List()) == 0 })
}

func TestScheduler_Repeating(t *testing.T) {
	s := started(t, Config{})

	var executed int32
	testutil.AssertNoError(t, s.ScheduleRepeating("observer", counter(&executed), 20*time.Millisecond))
	testutil.WaitForInt32(t, &executed, 3, time.Second)

	testutil.AssertEqual(t, s.Cancel("observer"), true)
	testutil.AssertEqual(t, s.Cancel("observer"), false)

	time.Sleep(30 * time.Millisecond)
	after := atomic.LoadInt32(&executed)
	time.Sleep(60 * time.Millisecond)
	testutil.AssertEqual(t, atomic.LoadInt32(&executed), after)
}

func TestScheduler_Cron(t *testing.T) {
	s := started(t, Config{})

	var executed int32
	testutil.AssertNoError(t, s.ScheduleCron("every-second", "* * * * * *", counter(&executed)))
	testutil.WaitForInt32(t, &executed, 1, 2500*time.Millisecond)

	tasks := s.List()
	testutil.AssertEqual(t, len(tasks), 1)
	testutil.AssertEqual(t, tasks[0].Cron, "* * * * * *")
}

func TestScheduler_ParseCron(t *testing.T) {
	s := New(Config{})
	for _, expr := range []string{"*/5 * * * *", "0 2 * * *", "30 */5 * * * *", "@hourly", "@every 10m"} {
		if _, err := s.ParseCron(expr); err != nil {
			t.Errorf("ParseCron(%q) = %v", expr, err)
		}
	}
	for _, expr := range []string{"", "not a cron", "61 * * * *"} {
		if _, err := s.ParseCron(expr); !gferrors.IsValidationError(err) {
			t.Errorf("ParseCron(%q) = %v, want validation error", expr, err)
		}
	}
}

func TestScheduler_Validation(t *testing.T) {
	s := New(Config{MaxTasks: 1})
	job := counter(new(int32))

	testutil.AssertError(t, s.Schedule("", job, time.Now()))
	testutil.AssertError(t, s.Schedule("nil", nil, time.Now()))
	testutil.AssertError(t, s.Schedule("zero", job, time.Time{}))
	testutil.AssertError(t, s.ScheduleRepeating("neg", job, -time.Second))

	testutil.AssertNoError(t, s.ScheduleAfter("a", job, time.Hour))
	if err := s.ScheduleAfter("a", job, time.Hour); !gferrors.IsValidationError(err) {
		t.Errorf("duplicate id: got %v", err)
	}
	if err := s.ScheduleAfter("b", job, time.Hour); !errors.Is(err, gferrors.ErrCapacityExceeded) {
		t.Errorf("over capacity: got %v", err)
	}

	s.CancelAll()
	testutil.AssertEqual(t, len(s.List()), 0)
}

func TestScheduler_NoOverlap(t *testing.T) {
	s := started(t, Config{})

	var concurrent, maxConcurrent, runs int32
	job := JobFunc(func(context.Context) error {
		c := atomic.AddInt32(&concurrent, 1)
		for {
			m := atomic.LoadInt32(&maxConcurrent)
			if c <= m || atomic.CompareAndSwapInt32(&maxConcurrent, m, c) {
				break
			}
		}
		time.Sleep(40 * time.Millisecond)
		atomic.AddInt32(&concurrent, -1)
		atomic.AddInt32(&runs, 1)
		return nil
	})

	testutil.AssertNoError(t, s.ScheduleRepeating("session", job, 5*time.Millisecond))
	testutil.WaitForInt32(t, &runs, 3, time.Second)
	testutil.AssertEqual(t, atomic.LoadInt32(&maxConcurrent), int32(1))
}

func TestScheduler_FailuresIsolated(t *testing.T) {
	s := started(t, Config{})

	var good int32
	testutil.AssertNoError(t, s.ScheduleRepeating("errs", JobFunc(func(context.Context) error {
		return errors.New("boom")
	}), 5*time.Millisecond))
	testutil.AssertNoError(t, s.ScheduleRepeating("panics", JobFunc(func(context.Context) error {
		panic("bad job")
	}), 5*time.Millisecond))
	testutil.AssertNoError(t, s.ScheduleRepeating("good", counter(&good), 5*time.Millisecond))

	testutil.WaitForInt32(t, &good, 5, time.Second)
}

func TestScheduler_StopCancelsRunningJobs(t *testing.T) {
	s := New(Config{TickInterval: 5 * time.Millisecond})
	testutil.AssertNoError(t, s.Start())
	testutil.AssertError(t, s.Start())

	var entered int32
	testutil.AssertNoError(t, s.Schedule("long", JobFunc(func(ctx context.Context) error {
		atomic.StoreInt32(&entered, 1)
		<-ctx.Done()
		return ctx.Err()
	}), time.Now()))
	testutil.WaitForInt32(t, &entered, 1, time.Second)

	select {
	case <-s.Stop():
	case <-time.After(time.Second):
		t.Fatal("Stop did not wait for the running job to observe cancellation")
	}
}
