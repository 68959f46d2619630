package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	envPrefix  = "VALUATOR_"
	envCfgPath = "VALUATOR_CONFIG"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if VALUATOR_CONFIG is set
//  3. env (prefix VALUATOR_)
func Load(_ context.Context) (*Config, error) {
	base := New()
	k := koanf.New(".")

	if path := os.Getenv(envCfgPath); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrLoadConfig, path, err)
		}
	}

	// VALUATOR_WORKER_COUNT -> worker_count; keys stay flat to match koanf tags.
	envProvider := env.Provider(envPrefix, ".", func(s string) string {
		return strings.TrimPrefix(strings.ToLower(s), strings.ToLower(envPrefix))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %v", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks ranges that would otherwise fail deep inside a run.
func (c *Config) Validate() error {
	switch {
	case c.WorkerCount < 1:
		return fmt.Errorf("%w: worker_count must be positive", ErrInvalidConfig)
	case c.QueueSize < 1:
		return fmt.Errorf("%w: queue_size must be positive", ErrInvalidConfig)
	case c.PlayerTimeoutMS < 1:
		return fmt.Errorf("%w: player_timeout_ms must be positive", ErrInvalidConfig)
	case c.ModelVersion == "":
		return fmt.Errorf("%w: model_version must not be empty", ErrInvalidConfig)
	case c.StoreDriver != "memory" && c.StoreDriver != "sqlite":
		return fmt.Errorf("%w: store_driver %q (want memory or sqlite)", ErrInvalidConfig, c.StoreDriver)
	case c.MaxNullFraction < 0 || c.MaxNullFraction > 1:
		return fmt.Errorf("%w: max_null_fraction must be in [0,1]", ErrInvalidConfig)
	case c.ExplanationTopK < 1:
		return fmt.Errorf("%w: explanation_top_k must be positive", ErrInvalidConfig)
	case c.BattingReliability <= 0 || c.PitchingReliability <= 0:
		return fmt.Errorf("%w: reliability constants must be positive", ErrInvalidConfig)
	case c.TrajectoryHorizon < 1:
		return fmt.Errorf("%w: trajectory_horizon must be positive", ErrInvalidConfig)
	case len(c.CompositeWeights) == 0:
		return fmt.Errorf("%w: composite_weights must not be empty", ErrInvalidConfig)
	}
	return nil
}
