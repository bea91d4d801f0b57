package pipeline

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/vnykmshr/ideaflow/pkg/idea"
	"github.com/vnykmshr/ideaflow/pkg/scheduling/worker"
	"github.com/vnykmshr/ideaflow/pkg/source"
)

// Rater scores items. It never fails; *coordinator.Coordinator implements it.
type Rater interface {
	Score(ctx context.Context, item *idea.Item) int
}

// Evolver derives children. A failed evolution returns the item itself;
// *coordinator.Coordinator implements it.
type Evolver interface {
	Evolve(ctx context.Context, item *idea.Item) *idea.Item
}

// SourceStage tops up its output from a Source, one seed per tick, while the
// output holds fewer than LowWater items. The size check races with
// consumers, so LowWater is approximate.
type SourceStage struct {
	Source   source.Source
	LowWater int
}

// Run implements worker.Stage.
func (s *SourceStage) Run(ctx context.Context, w *worker.Worker) error {
	out := w.Output(0)
	if out == nil {
		return fmt.Errorf("source stage %s has no output queue", w.Name())
	}
	if out.Size() >= s.LowWater {
		return nil
	}

	text, err := s.Source.Next(ctx)
	if err != nil {
		return err
	}
	return out.Push(idea.New(text))
}

// RateStage scores a batch from its input concurrently and forwards every
// item to its first output.
type RateStage struct {
	Rater Rater
	Batch int
}

// Run implements worker.Stage.
func (s *RateStage) Run(ctx context.Context, w *worker.Worker) error {
	in, out := w.Input(), w.Output(0)
	if in == nil || out == nil {
		return fmt.Errorf("rate stage %s needs an input and an output queue", w.Name())
	}

	items := in.PollMany(s.Batch)
	if len(items) == 0 {
		return nil
	}

	ratings := make([]int, len(items))
	var g errgroup.Group
	for i, item := range items {
		g.Go(func() error {
			ratings[i] = s.Rater.Score(ctx, item)
			return nil
		})
	}
	_ = g.Wait()

	var errs []error
	for i, item := range items {
		item.SetRating(ratings[i])
		if err := out.Push(item); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// ExploreStage evolves a batch concurrently. Results shallower than DepthCap
// go back to the input queue, the rest to the first output.
type ExploreStage struct {
	Evolver  Evolver
	Batch    int
	DepthCap int
}

// Run implements worker.Stage.
func (s *ExploreStage) Run(ctx context.Context, w *worker.Worker) error {
	in, out := w.Input(), w.Output(0)
	if in == nil || out == nil {
		return fmt.Errorf("explore stage %s needs an input and an output queue", w.Name())
	}

	items := in.PollMany(s.Batch)
	if len(items) == 0 {
		return nil
	}

	evolved := make([]*idea.Item, len(items))
	var g errgroup.Group
	for i, item := range items {
		g.Go(func() error {
			evolved[i] = s.Evolver.Evolve(ctx, item)
			return nil
		})
	}
	_ = g.Wait()

	var errs []error
	for _, item := range evolved {
		dst := out
		if item.Depth < s.DepthCap {
			dst = in
		}
		if err := dst.Push(item); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
