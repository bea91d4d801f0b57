/*
Package scheduler runs jobs at fixed times, at fixed intervals or on cron
expressions.

ideaflow uses it for two things: refreshing the queue observer while a session
runs, and starting whole pipeline sessions on a cron schedule.

	s := scheduler.New(scheduler.Config{})
	if err := s.Start(); err != nil {
		return err
	}
	defer func() { <-s.Stop() }()

	s.ScheduleRepeating("observer", observer.Job(os.Stdout), 500*time.Millisecond)
	s.ScheduleCron("nightly", "0 2 * * *", sessionJob)

Cron expressions use the standard five fields with an optional leading
seconds field, and descriptors such as "@hourly" or "@every 10m".

Each firing runs on its own goroutine. A job that is still running when it
fires again is skipped for that firing, so one slow session never overlaps
the next. Errors and panics from jobs are logged and do not affect other jobs.
*/
package scheduler
