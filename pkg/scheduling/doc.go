/*
Package scheduling groups the components that decide when work runs.

  - worker: a Stage run in a loop on its own goroutine, stopped by a shared Signal
  - pipeline: the Controller wiring source, rate and explore workers over queues
  - scheduler: one-shot, interval and cron jobs

Worker:

	w, _ := worker.New(worker.Config{
		Name:     "rate",
		Input:    seedQueue,
		Outputs:  []*worker.Queue{exploreQueue},
		Stage:    &pipeline.RateStage{Rater: coord, Batch: 3},
		Interval: 200 * time.Millisecond,
	})
	w.Start(ctx)
	defer w.Join()
	defer w.Stop()

Pipeline:

	ctrl, _ := pipeline.New(pipeline.DefaultConfig(), coord, pipeline.Dependencies{Source: src})
	staged, err := ctrl.Run(ctx, 10*time.Second)

Scheduler:

	s := scheduler.New(scheduler.Config{})
	s.ScheduleRepeating("observe", observer.Job(os.Stdout), time.Second)
	s.ScheduleCron("nightly", "0 3 * * *", sessionJob)
	s.Start()
	defer func() { <-s.Stop() }()

All components are safe for concurrent use. Stops are cooperative and happen
at tick or job boundaries.
*/
package scheduling
