package worker

import (
	"time"

	"github.com/okian/valuator/pkg/logger"
)

// Option applies a configuration option to the Pool.
type Option func(*Pool)

// WithName sets the pool name used in logs.
func WithName(name string) Option {
	return func(p *Pool) {
		if name != "" {
			p.name = name
		}
	}
}

// WithLogger sets a custom logger for the pool.
func WithLogger(l logger.Logger) Option {
	return func(p *Pool) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithJobTimeout bounds the time one job may take. Zero disables the bound.
func WithJobTimeout(d time.Duration) Option {
	return func(p *Pool) {
		if d >= 0 {
			p.timeout = d
		}
	}
}
