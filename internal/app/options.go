package app

import (
	"time"

	"github.com/okian/valuator/internal/adapters/repository"
	"github.com/okian/valuator/internal/domain/model"
	"github.com/okian/valuator/internal/domain/scoring"
	"github.com/okian/valuator/pkg/logger"
)

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithStore sets where finished runs are published. Without a store nothing is published.
func WithStore(s repository.Store) Option {
	return func(e *Engine) { e.store = s }
}

// WithArtifactLoader sets how model artifacts are loaded. Without a loader every family runs
// on the Marcel-only fallback.
func WithArtifactLoader(l scoring.ArtifactLoader) Option {
	return func(e *Engine) { e.loader = l }
}

// WithScorer serves one model family and domain with sc in every run, in place of its artifact.
func WithScorer(family string, d model.Domain, sc scoring.Scorer) Option {
	return func(e *Engine) { e.scorers = append(e.scorers, scoring.WithScorer(family, d, sc)) }
}

// WithLogger sets a custom logger for the engine.
func WithLogger(l logger.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithClock sets the clock used for the default run date and durations.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}
