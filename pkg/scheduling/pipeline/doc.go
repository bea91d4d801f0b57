/*
Package pipeline wires queues and workers into the idea topology and runs
bounded sessions over it.

The topology is

	source -> seed_queue -> rate -> explore_queue -> explore -> staging_queue
	                                     ^              |
	                                     +--------------+  (depth < DepthCap)

Each arrow out of a worker is one of its output queues. The explore worker
pushes an evolved item back onto its own input until the item reaches
DepthCap, so every item leaves the loop after at most DepthCap evolutions.

# Quick Start

	coord, _ := coordinator.New(coordinator.Config{
		Scorer:    enrich.NewRandomScorer(0),
		Generator: enrich.NewVariantGenerator(),
	})

	src, _ := source.NewCycle(personas, source.WithShuffle(42))
	ctrl, _ := pipeline.New(pipeline.DefaultConfig(), coord, pipeline.Dependencies{Source: src})

	staged, err := ctrl.Run(ctx, 10*time.Second)

Run starts every worker, waits for the duration or for ctx, then calls Stop.
Stop raises the shared signal, joins the workers in the order they were added
and drains staging_queue in priority order. Stop is idempotent; only the first
call returns items.

# Stages

SourceStage, RateStage and ExploreStage implement worker.Stage. Rate and
explore poll a batch per tick and fan the enrichment calls out with an
errgroup, joining before anything is routed, so no goroutine outlives its
tick. Custom workers can be added with AddWorker before Start.
*/
package pipeline
