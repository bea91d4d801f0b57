package cli

import (
	"context"
	"errors"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/vnykmshr/ideaflow/internal/config"
	"github.com/vnykmshr/ideaflow/pkg/enrich"
	"github.com/vnykmshr/ideaflow/pkg/metrics"
	"github.com/vnykmshr/ideaflow/pkg/ratelimit"
	"github.com/vnykmshr/ideaflow/pkg/scheduling/pipeline"
	"github.com/vnykmshr/ideaflow/pkg/source"
)

// Components are the long-lived collaborators shared by every session of
// one process.
type Components struct {
	Scorer    enrich.Scorer
	Generator enrich.Generator
	Source    source.Source
	Metrics   *metrics.Registry
	Logger    *slog.Logger

	closers []func() error
}

// Close releases connections opened by Build.
func (c *Components) Close() error {
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		errs = append(errs, c.closers[i]())
	}
	c.closers = nil
	return errors.Join(errs...)
}

// Build wires enrichment, rate limiting and the seed source from cfg.
func Build(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Components, error) {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Components{Logger: logger}
	if cfg.Metrics.Enabled {
		c.Metrics = metrics.DefaultConfig().Build()
	}

	var rdb *redis.Client
	if cfg.RateLimit.Backend == "redis" || cfg.Source.Kind == "redis" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		c.closers = append(c.closers, rdb.Close)
	}

	var err error
	if c.Scorer, c.Generator, err = buildEnrichers(cfg, logger); err != nil {
		_ = c.Close()
		return nil, err
	}

	limiter, err := buildLimiter(cfg, rdb, c.Metrics)
	if err != nil {
		_ = c.Close()
		return nil, err
	}
	c.Scorer = enrich.LimitScorer(c.Scorer, limiter)
	c.Generator = enrich.LimitGenerator(c.Generator, limiter)

	if c.Source, err = buildSource(ctx, cfg, rdb); err != nil {
		_ = c.Close()
		return nil, err
	}
	return c, nil
}

func buildEnrichers(cfg *config.Config, logger *slog.Logger) (enrich.Scorer, enrich.Generator, error) {
	if cfg.Enrich.Mode != "llm" {
		return enrich.NewRandomScorer(cfg.Enrich.Seed), enrich.NewVariantGenerator(), nil
	}

	client, err := enrich.NewChatClient(enrich.ClientConfig{
		BaseURL: cfg.Enrich.BaseURL,
		APIKey:  cfg.Enrich.APIKey,
		Model:   cfg.Enrich.Model,
		Logger:  logger,
	})
	if err != nil {
		return nil, nil, err
	}
	gen := enrich.NewLLMGenerator(client).WithOptions(enrich.CompleteOptions{
		Temperature: cfg.Enrich.Temperature,
		MaxTokens:   cfg.Enrich.MaxTokens,
	})
	return enrich.NewLLMScorer(client), gen, nil
}

// buildLimiter returns nil when rate limiting is off. The redis bucket falls
// back to a local one while redis is unreachable.
func buildLimiter(cfg *config.Config, rdb redis.UniversalClient, reg *metrics.Registry) (ratelimit.Limiter, error) {
	rl := cfg.RateLimit
	if rl.Backend == "none" || rl.Backend == "" {
		return nil, nil
	}

	local, err := ratelimit.NewLocal(ratelimit.Config{
		Rate:          ratelimit.Limit(rl.Rate),
		Burst:         rl.Burst,
		InitialTokens: -1,
	})
	if err != nil {
		return nil, err
	}
	if rl.Backend == "local" {
		return ratelimit.Instrument(local, "local", reg), nil
	}

	shared, err := ratelimit.NewRedis(ratelimit.RedisConfig{
		Client:   rdb,
		Key:      rl.Key,
		Rate:     rl.Rate,
		Burst:    rl.Burst,
		Fallback: local,
	})
	if err != nil {
		return nil, err
	}
	return ratelimit.Instrument(shared, "redis", reg), nil
}

func buildSource(ctx context.Context, cfg *config.Config, rdb redis.UniversalClient) (source.Source, error) {
	sc := cfg.Source
	var opts []source.CycleOption
	if sc.Shuffle {
		opts = append(opts, source.WithShuffle(sc.Seed))
	}

	switch sc.Kind {
	case "file":
		return source.FromFile(sc.Path, opts...)
	case "http":
		return source.NewHTTP(sc.URL, nil)
	case "redis":
		r, err := source.NewRedis(rdb, sc.Key)
		if err != nil {
			return nil, err
		}
		// seed an empty list from the configured items
		n, err := r.Len(ctx)
		if err != nil {
			return nil, err
		}
		if n == 0 && len(sc.Items) > 0 {
			if err := r.Load(ctx, sc.Items); err != nil {
				return nil, err
			}
		}
		return r, nil
	default:
		return source.NewCycle(sc.Items, opts...)
	}
}

// pipelineConfig maps the file configuration onto the controller's.
func pipelineConfig(cfg *config.Config, logger *slog.Logger, reg *metrics.Registry) pipeline.Config {
	p := cfg.Pipeline
	return pipeline.Config{
		LowWater:        p.LowWater,
		RateBatch:       p.RateBatch,
		ExploreBatch:    p.ExploreBatch,
		DepthCap:        p.DepthCap,
		SourceInterval:  p.SourceInterval,
		RateInterval:    p.RateInterval,
		ExploreInterval: p.ExploreInterval,
		SeedPriority:    cfg.Queues.Seed,
		ExplorePriority: cfg.Queues.Explore,
		StagingPriority: cfg.Queues.Staging,
		StopGrace:       p.StopGrace,
		Logger:          logger,
		Metrics:         reg,
	}
}
