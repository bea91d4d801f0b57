package pipeline

import (
	"log/slog"
	"time"

	"github.com/vnykmshr/ideaflow/pkg/common/validation"
	"github.com/vnykmshr/ideaflow/pkg/idea"
	"github.com/vnykmshr/ideaflow/pkg/metrics"
)

// Queue names registered in the Coordinator.
const (
	SeedQueue    = "seed_queue"
	ExploreQueue = "explore_queue"
	StagingQueue = "staging_queue"
)

// Default topology parameters.
const (
	DefaultLowWater        = 10
	DefaultRateBatch       = 3
	DefaultExploreBatch    = 5
	DefaultDepthCap        = 1
	DefaultSourceInterval  = 50 * time.Millisecond
	DefaultRateInterval    = 200 * time.Millisecond
	DefaultExploreInterval = 500 * time.Millisecond
	DefaultStopGrace       = 5 * time.Second
)

// Config holds configuration options for a Controller.
type Config struct {
	// LowWater is the seed_queue size below which the source pushes.
	LowWater int

	// RateBatch is the number of items rated per tick.
	RateBatch int

	// ExploreBatch is the number of items evolved per tick.
	ExploreBatch int

	// DepthCap is the depth at which an evolved item leaves the explore loop.
	DepthCap int

	// Pacing between ticks for each built-in worker.
	SourceInterval  time.Duration
	RateInterval    time.Duration
	ExploreInterval time.Duration

	// Priority heuristic names, see idea.PriorityNames.
	SeedPriority    string
	ExplorePriority string
	StagingPriority string

	// StopGrace is how long Stop waits for workers to finish their current
	// tick before cancelling in-flight enrichment calls.
	StopGrace time.Duration

	// Logger defaults to slog.Default().
	Logger *slog.Logger

	// Metrics is optional.
	Metrics *metrics.Registry
}

// DefaultConfig returns the standard session topology.
func DefaultConfig() Config {
	return Config{
		LowWater:        DefaultLowWater,
		RateBatch:       DefaultRateBatch,
		ExploreBatch:    DefaultExploreBatch,
		DepthCap:        DefaultDepthCap,
		SourceInterval:  DefaultSourceInterval,
		RateInterval:    DefaultRateInterval,
		ExploreInterval: DefaultExploreInterval,
		SeedPriority:    idea.PrioritySeedLength,
		ExplorePriority: idea.PriorityRating,
		StagingPriority: idea.PriorityDepthRating,
		StopGrace:       DefaultStopGrace,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if err := validation.ValidatePositive("pipeline", "low_water", c.LowWater); err != nil {
		return err
	}
	if err := validation.ValidatePositive("pipeline", "rate_batch", c.RateBatch); err != nil {
		return err
	}
	if err := validation.ValidatePositive("pipeline", "explore_batch", c.ExploreBatch); err != nil {
		return err
	}
	if err := validation.ValidateNonNegative("pipeline", "depth_cap", c.DepthCap); err != nil {
		return err
	}
	for field, d := range map[string]time.Duration{
		"source_interval":  c.SourceInterval,
		"rate_interval":    c.RateInterval,
		"explore_interval": c.ExploreInterval,
		"stop_grace":       c.StopGrace,
	} {
		if d < 0 {
			return validation.ValidatePositiveDuration("pipeline", field, d)
		}
	}
	for field, name := range map[string]string{
		"seed_priority":    c.SeedPriority,
		"explore_priority": c.ExplorePriority,
		"staging_priority": c.StagingPriority,
	} {
		if err := validation.ValidateOneOf("pipeline", field, name, idea.PriorityNames()...); err != nil {
			return err
		}
	}
	return nil
}
