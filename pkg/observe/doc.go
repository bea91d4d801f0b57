// Package observe renders read-only views of a session's queues.
//
// An Observer never polls or pushes. Snapshot copies each registered queue
// through PeekAll, Render prints the snapshot as text and Job adapts Render
// for the scheduler so a view can be refreshed on an interval:
//
//	obs := observe.New(coord, observe.Config{TopN: 10, Metrics: metrics.DefaultRegistry})
//	sched.ScheduleRepeating("observe", obs.Job(os.Stderr), time.Second)
package observe
