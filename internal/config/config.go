package config

import (
	"fmt"
	"time"
)

type Config struct {
	Server    ServerConfig
	Storage   StorageConfig
	Log       LogConfig
	Feed      FeedConfig
	Worker    WorkerConfig
	RateLimit RateLimitConfig
}

type ServerConfig struct {
	Port int
}

type StorageConfig struct {
	DataDir string
}

type LogConfig struct {
	Level string
}

// FeedConfig holds ranking defaults applied when a request leaves them out.
type FeedConfig struct {
	Preset       string
	DefaultLimit int
	RelatedLimit int
	// CandidateLimit caps how many of the newest public items a feed or
	// related lookup scores.
	CandidateLimit int
	Perturb        bool
	TopFraction    float64
}

type WorkerConfig struct {
	PollInterval string
}

type RateLimitConfig struct {
	RequestsPerMinute int
}

func defaults() Config {
	return Config{
		Server:  ServerConfig{Port: 4100},
		Storage: StorageConfig{DataDir: defaultDataDir()},
		Log:     LogConfig{Level: "info"},
		Feed: FeedConfig{
			Preset:         "balanced",
			DefaultLimit:   20,
			RelatedLimit:   12,
			CandidateLimit: 500,
			Perturb:        true,
			TopFraction:    0.3,
		},
		Worker:    WorkerConfig{PollInterval: "500ms"},
		RateLimit: RateLimitConfig{RequestsPerMinute: 600},
	}
}

// Load reads configuration from the JSON file at ConfigFilePath and
// applies CLIPFEED_* environment overrides on top.
func Load() (Config, error) {
	return loadWith(newFileBackend(ConfigFilePath()))
}

func loadWith(b ConfigBackend) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}
	applyEnvOverrides(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks value ranges that the type system cannot express.
func (c Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid config: server.port %d out of range", c.Server.Port)
	}
	if c.Storage.DataDir == "" {
		return fmt.Errorf("invalid config: storage.data_dir is empty")
	}
	if c.Feed.DefaultLimit < 1 {
		return fmt.Errorf("invalid config: feed.default_limit must be positive, got %d", c.Feed.DefaultLimit)
	}
	if c.Feed.RelatedLimit < 1 {
		return fmt.Errorf("invalid config: feed.related_limit must be positive, got %d", c.Feed.RelatedLimit)
	}
	if c.Feed.CandidateLimit < c.Feed.DefaultLimit {
		return fmt.Errorf("invalid config: feed.candidate_limit must be at least feed.default_limit (%d), got %d", c.Feed.DefaultLimit, c.Feed.CandidateLimit)
	}
	if c.Feed.TopFraction <= 0 || c.Feed.TopFraction > 1 {
		return fmt.Errorf("invalid config: feed.top_fraction must be in (0, 1], got %v", c.Feed.TopFraction)
	}
	if _, err := c.PollInterval(); err != nil {
		return fmt.Errorf("invalid config: worker.poll_interval: %w", err)
	}
	if c.RateLimit.RequestsPerMinute < 0 {
		return fmt.Errorf("invalid config: ratelimit.requests_per_minute must not be negative")
	}
	return nil
}

// PollInterval parses Worker.PollInterval.
func (c Config) PollInterval() (time.Duration, error) {
	d, err := time.ParseDuration(c.Worker.PollInterval)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("must be positive, got %s", d)
	}
	return d, nil
}
