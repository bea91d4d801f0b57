/*
Package worker runs one pipeline stage on its own goroutine.

A Worker repeatedly executes a tick, one call of its Stage, then waits its
pacing Interval. The shared Signal is checked only between ticks, so a tick in
progress always completes. Errors and panics inside a tick are recovered,
logged with the stack and counted; the loop then continues with the next tick.

	stop := worker.NewSignal()
	w, err := worker.New(worker.Config{
		Name:     "rater",
		Input:    seedQueue,
		Outputs:  []*worker.Queue{exploreQueue},
		Stage:    rateStage,
		Signal:   stop,
		Interval: 200 * time.Millisecond,
	})
	if err != nil {
		return err
	}
	w.Start(ctx)
	...
	stop.Set()
	w.Join()

Several workers usually share one Signal so a single Set stops them all.
*/
package worker
