package config

import (
	"fmt"
	"os"
	"strconv"
)

type keyType int

const (
	kString keyType = iota
	kInt
	kBool
	kFloat
)

type keySpec struct {
	key     string
	typ     keyType
	env     string
	apply   func(cfg *Config, v any)
	extract func(cfg Config) any
}

var specs = []keySpec{
	{
		key: "server.port", typ: kInt, env: "CLIPFEED_SERVER_PORT",
		apply:   func(cfg *Config, v any) { cfg.Server.Port = v.(int) },
		extract: func(cfg Config) any { return cfg.Server.Port },
	},
	{
		key: "storage.data_dir", typ: kString, env: "CLIPFEED_STORAGE_DATA_DIR",
		apply:   func(cfg *Config, v any) { cfg.Storage.DataDir = v.(string) },
		extract: func(cfg Config) any { return cfg.Storage.DataDir },
	},
	{
		key: "log.level", typ: kString, env: "CLIPFEED_LOG_LEVEL",
		apply:   func(cfg *Config, v any) { cfg.Log.Level = v.(string) },
		extract: func(cfg Config) any { return cfg.Log.Level },
	},
	{
		key: "feed.preset", typ: kString, env: "CLIPFEED_FEED_PRESET",
		apply:   func(cfg *Config, v any) { cfg.Feed.Preset = v.(string) },
		extract: func(cfg Config) any { return cfg.Feed.Preset },
	},
	{
		key: "feed.default_limit", typ: kInt, env: "CLIPFEED_FEED_DEFAULT_LIMIT",
		apply:   func(cfg *Config, v any) { cfg.Feed.DefaultLimit = v.(int) },
		extract: func(cfg Config) any { return cfg.Feed.DefaultLimit },
	},
	{
		key: "feed.related_limit", typ: kInt, env: "CLIPFEED_FEED_RELATED_LIMIT",
		apply:   func(cfg *Config, v any) { cfg.Feed.RelatedLimit = v.(int) },
		extract: func(cfg Config) any { return cfg.Feed.RelatedLimit },
	},
	{
		key: "feed.candidate_limit", typ: kInt, env: "CLIPFEED_FEED_CANDIDATE_LIMIT",
		apply:   func(cfg *Config, v any) { cfg.Feed.CandidateLimit = v.(int) },
		extract: func(cfg Config) any { return cfg.Feed.CandidateLimit },
	},
	{
		key: "feed.perturb", typ: kBool, env: "CLIPFEED_FEED_PERTURB",
		apply:   func(cfg *Config, v any) { cfg.Feed.Perturb = v.(bool) },
		extract: func(cfg Config) any { return cfg.Feed.Perturb },
	},
	{
		key: "feed.top_fraction", typ: kFloat, env: "CLIPFEED_FEED_TOP_FRACTION",
		apply:   func(cfg *Config, v any) { cfg.Feed.TopFraction = v.(float64) },
		extract: func(cfg Config) any { return cfg.Feed.TopFraction },
	},
	{
		key: "worker.poll_interval", typ: kString, env: "CLIPFEED_WORKER_POLL_INTERVAL",
		apply:   func(cfg *Config, v any) { cfg.Worker.PollInterval = v.(string) },
		extract: func(cfg Config) any { return cfg.Worker.PollInterval },
	},
	{
		key: "ratelimit.requests_per_minute", typ: kInt, env: "CLIPFEED_RATELIMIT_REQUESTS_PER_MINUTE",
		apply:   func(cfg *Config, v any) { cfg.RateLimit.RequestsPerMinute = v.(int) },
		extract: func(cfg Config) any { return cfg.RateLimit.RequestsPerMinute },
	},
}

func applyBackend(cfg *Config, b ConfigBackend) error {
	for _, s := range specs {
		switch s.typ {
		case kString:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		case kInt:
			v, ok, err := b.GetInt(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		case kBool:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok && v != "" {
				if bv, err := strconv.ParseBool(v); err == nil {
					s.apply(cfg, bv)
				} else {
					fmt.Fprintf(os.Stderr, "[WARN] could not parse bool from config key %s=%q: %v. Using default value.\n", s.key, v, err)
				}
			}
		case kFloat:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok && v != "" {
				if f, err := strconv.ParseFloat(v, 64); err == nil {
					s.apply(cfg, f)
				} else {
					fmt.Fprintf(os.Stderr, "[WARN] could not parse float from config key %s=%q: %v. Using default value.\n", s.key, v, err)
				}
			}
		}
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	for _, s := range specs {
		if s.env == "" {
			continue
		}
		raw := os.Getenv(s.env)
		if raw == "" {
			continue
		}
		switch s.typ {
		case kString:
			s.apply(cfg, raw)
		case kInt:
			if i, err := strconv.Atoi(raw); err == nil {
				s.apply(cfg, i)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse integer from env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			}
		case kBool:
			if b, err := strconv.ParseBool(raw); err == nil {
				s.apply(cfg, b)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse bool from env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			}
		case kFloat:
			if f, err := strconv.ParseFloat(raw, 64); err == nil {
				s.apply(cfg, f)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse float from env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			}
		}
	}
}
