/*
Package ideaflow is a concurrent pipeline that seeds, rates and evolves ideas
across shared priority queues.

Core (pkg):
  - idea: the Item flowing through the pipeline, its lineage and priority heuristics
  - queue: a mutex-guarded priority queue with a pluggable priority function
  - coordinator: per-session queue registry, conversation and criteria, with
    Score and Evolve that fall back instead of failing
  - scheduling/worker: a Stage run on its own goroutine until a shared Signal is set
  - scheduling/pipeline: the Controller wiring source, rate and explore workers
  - scheduling/scheduler: interval and cron jobs

Collaborators (pkg):
  - enrich: scorers and generators, offline or backed by a chat completions API
  - ratelimit: local and Redis token buckets pacing enrichment calls
  - source: seed feeds from memory, files, HTTP or a Redis list
  - observe: read-only queue views
  - metrics: Prometheus collectors

Example usage:

	import (
		"github.com/vnykmshr/ideaflow/pkg/coordinator"
		"github.com/vnykmshr/ideaflow/pkg/enrich"
		"github.com/vnykmshr/ideaflow/pkg/scheduling/pipeline"
	)

	coord, _ := coordinator.New(coordinator.Config{
		Scorer:    enrich.NewRandomScorer(0),
		Generator: enrich.NewVariantGenerator(),
	})
	ctrl, _ := pipeline.New(pipeline.DefaultConfig(), coord, pipeline.Dependencies{})
	_ = ctrl.Seed([]string{"a bicycle courier"})
	staged, _ := ctrl.Run(ctx, 5*time.Second)

The ideaflow command (cmd/ideaflow) runs interactive or cron-scheduled
sessions configured from YAML and IDEAFLOW_* environment variables.
*/
package ideaflow
