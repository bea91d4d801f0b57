package benchmark

import (
	"context"
	"strconv"
	"testing"

	"github.com/vnykmshr/ideaflow/pkg/coordinator"
	"github.com/vnykmshr/ideaflow/pkg/enrich/enrichtest"
	"github.com/vnykmshr/ideaflow/pkg/idea"
	"github.com/vnykmshr/ideaflow/pkg/scheduling/pipeline"
	"github.com/vnykmshr/ideaflow/pkg/scheduling/worker"
)

func newCoordinator(b *testing.B) *coordinator.Coordinator {
	b.Helper()
	coord, err := coordinator.New(coordinator.Config{
		Scorer:    &enrichtest.Scorer{Rating: 3},
		Generator: &enrichtest.Generator{Suffix: "!"},
	})
	if err != nil {
		b.Fatal(err)
	}
	return coord
}

func newWorker(b *testing.B, name string, stage worker.Stage, in, out *worker.Queue) *worker.Worker {
	b.Helper()
	w, err := worker.New(worker.Config{
		Name:    name,
		Input:   in,
		Outputs: []*worker.Queue{out},
		Stage:   stage,
	})
	if err != nil {
		b.Fatal(err)
	}
	return w
}

// BenchmarkRateStage measures one rate tick over a full batch, including the
// errgroup fan-out and the push to the next queue.
func BenchmarkRateStage(b *testing.B) {
	for _, batch := range []int{1, 3, 10} {
		b.Run("batch_"+strconv.Itoa(batch), func(b *testing.B) {
			in, out := newQueue(b, idea.PrioritySeedLength), newQueue(b, idea.PriorityRating)
			stage := &pipeline.RateStage{Rater: newCoordinator(b), Batch: batch}
			w := newWorker(b, "rate", stage, in, out)
			items := makeItems(batch)
			ctx := context.Background()

			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				for _, it := range items {
					_ = in.Push(it)
				}
				if err := stage.Run(ctx, w); err != nil {
					b.Fatal(err)
				}
				out.PollMany(batch)
			}
		})
	}
}

// BenchmarkExploreStage measures one explore tick where every result is staged.
func BenchmarkExploreStage(b *testing.B) {
	in, out := newQueue(b, idea.PriorityRating), newQueue(b, idea.PriorityDepthRating)
	stage := &pipeline.ExploreStage{Evolver: newCoordinator(b), Batch: 5, DepthCap: 1}
	w := newWorker(b, "explore", stage, in, out)
	items := makeItems(5)
	ctx := context.Background()

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		for _, it := range items {
			_ = in.Push(it)
		}
		if err := stage.Run(ctx, w); err != nil {
			b.Fatal(err)
		}
		out.PollMany(5)
	}
}
