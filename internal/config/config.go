// Package config defines engine configuration and its layered loader.
//
// Conventions:
// - New() returns a Config populated with defaults.
// - Load(ctx) layers an optional YAML file and VALUATOR_ env vars on top.
// - Errors returned by Load wrap ErrLoadConfig or ErrInvalidConfig.
package config

import (
	"runtime"
	"time"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log handler: text or json.
	LogFormat string `koanf:"log_format"`

	// MetricsAddr exposes /metrics during a run when non-empty, e.g. ":9090".
	MetricsAddr string `koanf:"metrics_addr"`

	// WorkerCount sets the number of per-player workers.
	WorkerCount int `koanf:"worker_count"`

	// QueueSize bounds the in-memory player job queue.
	QueueSize int `koanf:"queue_size"`

	// PlayerTimeoutMS bounds one player's pipeline stage.
	PlayerTimeoutMS int `koanf:"player_timeout_ms"`

	// ModelVersion identifies the model set; together with the run date it names a run.
	ModelVersion string `koanf:"model_version"`

	// ArtifactsDir holds <family>_<domain>.yaml model artifacts.
	ArtifactsDir string `koanf:"artifacts_dir"`

	// StoreDriver is "memory" or "sqlite".
	StoreDriver string `koanf:"store_driver"`

	// StoreDSN is the sqlite database path.
	StoreDSN string `koanf:"store_dsn"`

	// MaxNullFraction is the share of null model inputs above which confidence is zero.
	MaxNullFraction float64 `koanf:"max_null_fraction"`

	// ExplanationTopK caps the contributions kept per score.
	ExplanationTopK int `koanf:"explanation_top_k"`

	// Marcel reliability constants: plate appearances (batting) and outs (pitching).
	BattingReliability  float64 `koanf:"batting_reliability"`
	PitchingReliability float64 `koanf:"pitching_reliability"`

	// AgeDeltaPerYear is the Marcel age adjustment per year from peak.
	AgeDeltaPerYear float64 `koanf:"age_delta_per_year"`

	// TrajectoryHorizon is the maximum number of projected seasons.
	TrajectoryHorizon int `koanf:"trajectory_horizon"`

	// RetirementThreshold is the projected value under which a curve ends at zero.
	RetirementThreshold float64 `koanf:"retirement_threshold"`

	// CompositeWeights maps component name to weight; must sum to 1.
	CompositeWeights map[string]float64 `koanf:"composite_weights"`

	// TrainingSeed seeds bootstrap sampling in the train command.
	TrainingSeed int64 `koanf:"training_seed"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:            "info",
		LogFormat:           "text",
		MetricsAddr:         "",
		WorkerCount:         runtime.NumCPU() * 2,
		QueueSize:           10_000,
		PlayerTimeoutMS:     2_000,
		ModelVersion:        "dev",
		ArtifactsDir:        "artifacts",
		StoreDriver:         "memory",
		StoreDSN:            "valuator.db",
		MaxNullFraction:     0.5,
		ExplanationTopK:     3,
		BattingReliability:  1200,
		PitchingReliability: 134,
		AgeDeltaPerYear:     0.006,
		TrajectoryHorizon:   7,
		RetirementThreshold: 0.5,
		CompositeWeights: map[string]float64{
			"projected_value": 0.30,
			"sleeper_upside":  0.15,
			"bust_safety":     0.15,
			"consistency":     0.20,
			"age_curve":       0.12,
			"opportunity":     0.08,
		},
		TrainingSeed: 42,
	}
}

// PlayerTimeout returns PlayerTimeoutMS as a duration.
func (c *Config) PlayerTimeout() time.Duration {
	return time.Duration(c.PlayerTimeoutMS) * time.Millisecond
}
