// Package config loads ideaflow settings from a YAML file, IDEAFLOW_*
// environment variables and built-in defaults, in that order of precedence
// after explicit flags.
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/vnykmshr/ideaflow/internal/logging"
	gferrors "github.com/vnykmshr/ideaflow/pkg/common/errors"
	"github.com/vnykmshr/ideaflow/pkg/common/validation"
	"github.com/vnykmshr/ideaflow/pkg/idea"
)

// EnvPrefix prefixes every environment override, e.g. IDEAFLOW_ENRICH_API_KEY.
const EnvPrefix = "IDEAFLOW"

// Config is the complete ideaflow configuration.
type Config struct {
	Session   SessionConfig   `mapstructure:"session"`
	Pipeline  PipelineConfig  `mapstructure:"pipeline"`
	Queues    QueuesConfig    `mapstructure:"queues"`
	Enrich    EnrichConfig    `mapstructure:"enrich"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Source    SourceConfig    `mapstructure:"source"`
	Observer  ObserverConfig  `mapstructure:"observer"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Schedule  ScheduleConfig  `mapstructure:"schedule"`
}

// SessionConfig controls one run of the pipeline.
type SessionConfig struct {
	Duration time.Duration `mapstructure:"duration"`
	// Criteria is handed to the generator with every request.
	Criteria string `mapstructure:"criteria"`
}

// PipelineConfig mirrors pipeline.Config.
type PipelineConfig struct {
	LowWater        int           `mapstructure:"low_water"`
	RateBatch       int           `mapstructure:"rate_batch"`
	ExploreBatch    int           `mapstructure:"explore_batch"`
	DepthCap        int           `mapstructure:"depth_cap"`
	SourceInterval  time.Duration `mapstructure:"source_interval"`
	RateInterval    time.Duration `mapstructure:"rate_interval"`
	ExploreInterval time.Duration `mapstructure:"explore_interval"`
	StopGrace       time.Duration `mapstructure:"stop_grace"`
}

// QueuesConfig names the priority heuristic of each queue.
type QueuesConfig struct {
	Seed    string `mapstructure:"seed"`
	Explore string `mapstructure:"explore"`
	Staging string `mapstructure:"staging"`
}

// EnrichConfig selects and configures the scorer and generator.
type EnrichConfig struct {
	// Mode is "offline" or "llm".
	Mode        string        `mapstructure:"mode"`
	BaseURL     string        `mapstructure:"base_url"`
	APIKey      string        `mapstructure:"api_key"`
	Model       string        `mapstructure:"model"`
	Temperature float64       `mapstructure:"temperature"`
	MaxTokens   int           `mapstructure:"max_tokens"`
	Timeout     time.Duration `mapstructure:"timeout"`
	// Seed drives the offline scorer; zero picks a random seed.
	Seed uint64 `mapstructure:"seed"`
}

// RateLimitConfig paces enrichment calls.
type RateLimitConfig struct {
	// Backend is "none", "local" or "redis".
	Backend string  `mapstructure:"backend"`
	Rate    float64 `mapstructure:"rate"`
	Burst   int     `mapstructure:"burst"`
	Key     string  `mapstructure:"key"`
}

// RedisConfig is shared by the redis rate limiter and the redis source.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// SourceConfig selects where seed texts come from.
type SourceConfig struct {
	// Kind is "static", "file", "http" or "redis".
	Kind    string   `mapstructure:"kind"`
	Items   []string `mapstructure:"items"`
	Path    string   `mapstructure:"path"`
	URL     string   `mapstructure:"url"`
	Key     string   `mapstructure:"key"`
	Shuffle bool     `mapstructure:"shuffle"`
	Seed    uint64   `mapstructure:"seed"`
}

// ObserverConfig controls the periodic queue view.
type ObserverConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Interval time.Duration `mapstructure:"interval"`
	TopN     int           `mapstructure:"top_n"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

// LoggingConfig controls the default slog handler.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// ScheduleConfig drives `ideaflow schedule`.
type ScheduleConfig struct {
	Cron   string `mapstructure:"cron"`
	Prompt string `mapstructure:"prompt"`
}

// Allowed enumerations.
var (
	EnrichModes  = []string{"offline", "llm"}
	Backends     = []string{"none", "local", "redis"}
	SourceKinds  = []string{"static", "file", "http", "redis"}
	LogFormats   = []string{"text", "json"}
	defaultItems = []string{
		"a retired lighthouse keeper who restores clocks",
		"a high school chemistry tutor in Lagos",
		"a freelance cartographer mapping hiking trails",
		"a night-shift nurse learning to code",
		"a beekeeper running a small honey co-op",
		"a jazz drummer touring small towns",
	}
)

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Session: SessionConfig{
			Duration: 10 * time.Second,
		},
		Pipeline: PipelineConfig{
			LowWater:        10,
			RateBatch:       3,
			ExploreBatch:    5,
			DepthCap:        1,
			SourceInterval:  50 * time.Millisecond,
			RateInterval:    200 * time.Millisecond,
			ExploreInterval: 500 * time.Millisecond,
			StopGrace:       5 * time.Second,
		},
		Queues: QueuesConfig{
			Seed:    idea.PrioritySeedLength,
			Explore: idea.PriorityRating,
			Staging: idea.PriorityDepthRating,
		},
		Enrich: EnrichConfig{
			Mode:        "offline",
			BaseURL:     "http://localhost:11434/v1",
			Model:       "llama3.1:8b",
			Temperature: 0.7,
			MaxTokens:   150,
			Timeout:     30 * time.Second,
		},
		RateLimit: RateLimitConfig{
			Backend: "none",
			Rate:    5,
			Burst:   5,
			Key:     "ideaflow:ratelimit:enrich",
		},
		Redis: RedisConfig{
			Addr: "localhost:6379",
		},
		Source: SourceConfig{
			Kind:    "static",
			Items:   append([]string(nil), defaultItems...),
			Key:     "ideaflow:personas",
			Shuffle: true,
			Seed:    42,
		},
		Observer: ObserverConfig{
			Interval: time.Second,
			TopN:     10,
		},
		Metrics: MetricsConfig{
			Addr: ":9090",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Schedule: ScheduleConfig{
			Cron: "@hourly",
		},
	}
}

// SetDefaults registers every default on v so that environment overrides
// are visible to Unmarshal.
func SetDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("session.duration", d.Session.Duration)
	v.SetDefault("session.criteria", d.Session.Criteria)

	v.SetDefault("pipeline.low_water", d.Pipeline.LowWater)
	v.SetDefault("pipeline.rate_batch", d.Pipeline.RateBatch)
	v.SetDefault("pipeline.explore_batch", d.Pipeline.ExploreBatch)
	v.SetDefault("pipeline.depth_cap", d.Pipeline.DepthCap)
	v.SetDefault("pipeline.source_interval", d.Pipeline.SourceInterval)
	v.SetDefault("pipeline.rate_interval", d.Pipeline.RateInterval)
	v.SetDefault("pipeline.explore_interval", d.Pipeline.ExploreInterval)
	v.SetDefault("pipeline.stop_grace", d.Pipeline.StopGrace)

	v.SetDefault("queues.seed", d.Queues.Seed)
	v.SetDefault("queues.explore", d.Queues.Explore)
	v.SetDefault("queues.staging", d.Queues.Staging)

	v.SetDefault("enrich.mode", d.Enrich.Mode)
	v.SetDefault("enrich.base_url", d.Enrich.BaseURL)
	v.SetDefault("enrich.api_key", d.Enrich.APIKey)
	v.SetDefault("enrich.model", d.Enrich.Model)
	v.SetDefault("enrich.temperature", d.Enrich.Temperature)
	v.SetDefault("enrich.max_tokens", d.Enrich.MaxTokens)
	v.SetDefault("enrich.timeout", d.Enrich.Timeout)
	v.SetDefault("enrich.seed", d.Enrich.Seed)

	v.SetDefault("ratelimit.backend", d.RateLimit.Backend)
	v.SetDefault("ratelimit.rate", d.RateLimit.Rate)
	v.SetDefault("ratelimit.burst", d.RateLimit.Burst)
	v.SetDefault("ratelimit.key", d.RateLimit.Key)

	v.SetDefault("redis.addr", d.Redis.Addr)
	v.SetDefault("redis.password", d.Redis.Password)
	v.SetDefault("redis.db", d.Redis.DB)

	v.SetDefault("source.kind", d.Source.Kind)
	v.SetDefault("source.items", d.Source.Items)
	v.SetDefault("source.path", d.Source.Path)
	v.SetDefault("source.url", d.Source.URL)
	v.SetDefault("source.key", d.Source.Key)
	v.SetDefault("source.shuffle", d.Source.Shuffle)
	v.SetDefault("source.seed", d.Source.Seed)

	v.SetDefault("observer.enabled", d.Observer.Enabled)
	v.SetDefault("observer.interval", d.Observer.Interval)
	v.SetDefault("observer.top_n", d.Observer.TopN)

	v.SetDefault("metrics.enabled", d.Metrics.Enabled)
	v.SetDefault("metrics.addr", d.Metrics.Addr)

	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)

	v.SetDefault("schedule.cron", d.Schedule.Cron)
	v.SetDefault("schedule.prompt", d.Schedule.Prompt)
}

// New returns a viper instance with defaults and IDEAFLOW_* environment
// lookups configured.
func New() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	SetDefaults(v)
	return v
}

// Load reads path (if not empty) into v, unmarshals and validates.
func Load(v *viper.Viper, path string) (*Config, error) {
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, gferrors.NewOperationError("config", "Load", err).WithContext(path)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, gferrors.NewOperationError("config", "Load", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports every invalid setting, joined.
func (c *Config) Validate() error {
	var errs []error
	check := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}

	check(validation.ValidatePositiveDuration("config", "session.duration", c.Session.Duration))

	check(validation.ValidatePositive("config", "pipeline.low_water", c.Pipeline.LowWater))
	check(validation.ValidatePositive("config", "pipeline.rate_batch", c.Pipeline.RateBatch))
	check(validation.ValidatePositive("config", "pipeline.explore_batch", c.Pipeline.ExploreBatch))
	check(validation.ValidateNonNegative("config", "pipeline.depth_cap", c.Pipeline.DepthCap))

	priorities := idea.PriorityNames()
	check(validation.ValidateOneOf("config", "queues.seed", c.Queues.Seed, priorities...))
	check(validation.ValidateOneOf("config", "queues.explore", c.Queues.Explore, priorities...))
	check(validation.ValidateOneOf("config", "queues.staging", c.Queues.Staging, priorities...))

	check(validation.ValidateOneOf("config", "enrich.mode", c.Enrich.Mode, EnrichModes...))
	check(validation.ValidatePositiveDuration("config", "enrich.timeout", c.Enrich.Timeout))
	if c.Enrich.Mode == "llm" {
		check(validation.ValidateNotEmpty("config", "enrich.base_url", c.Enrich.BaseURL))
		check(validation.ValidateNotEmpty("config", "enrich.model", c.Enrich.Model))
		check(validation.ValidatePositive("config", "enrich.max_tokens", c.Enrich.MaxTokens))
	}

	check(validation.ValidateOneOf("config", "ratelimit.backend", c.RateLimit.Backend, Backends...))
	if c.RateLimit.Backend != "none" {
		check(validation.ValidatePositiveFloat("config", "ratelimit.rate", c.RateLimit.Rate))
		check(validation.ValidatePositive("config", "ratelimit.burst", c.RateLimit.Burst))
	}

	check(validation.ValidateOneOf("config", "source.kind", c.Source.Kind, SourceKinds...))
	switch c.Source.Kind {
	case "static":
		if len(c.Source.Items) == 0 {
			check(gferrors.NewValidationError("config", "source.items", 0, "cannot be empty"))
		}
	case "file":
		check(validation.ValidateNotEmpty("config", "source.path", c.Source.Path))
	case "http":
		check(validation.ValidateNotEmpty("config", "source.url", c.Source.URL))
	case "redis":
		check(validation.ValidateNotEmpty("config", "source.key", c.Source.Key))
	}
	if c.RateLimit.Backend == "redis" || c.Source.Kind == "redis" {
		check(validation.ValidateNotEmpty("config", "redis.addr", c.Redis.Addr))
	}

	if c.Observer.Enabled {
		check(validation.ValidatePositiveDuration("config", "observer.interval", c.Observer.Interval))
	}
	if c.Metrics.Enabled {
		check(validation.ValidateNotEmpty("config", "metrics.addr", c.Metrics.Addr))
	}
	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		check(err)
	}
	check(validation.ValidateOneOf("config", "logging.format", c.Logging.Format, LogFormats...))

	return errors.Join(errs...)
}
