// Package features turns season lines into the model-ready feature vector of one player key.
package features

import (
	"github.com/okian/valuator/internal/domain/bounds"
	"github.com/okian/valuator/internal/domain/model"
	"github.com/okian/valuator/internal/domain/types"
	"gonum.org/v1/gonum/stat"
)

const component = "features"

// DefaultVersion tags vectors built with the current catalogue.
const DefaultVersion = "fv1"

// Option applies a configuration option to the Builder.
type Option func(*Builder)

// WithTally counts clamped features in t.
func WithTally(t *bounds.Tally) Option {
	return func(b *Builder) { b.tally = t }
}

// WithVersion overrides the feature-vector version tag.
func WithVersion(v string) Option {
	return func(b *Builder) {
		if v != "" {
			b.version = v
		}
	}
}

// Builder computes feature vectors. It holds no per-player state and is safe for concurrent use.
type Builder struct {
	tally   *bounds.Tally
	version string
}

// NewBuilder creates a Builder.
func NewBuilder(opts ...Option) *Builder {
	b := &Builder{version: DefaultVersion}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build computes the declared features of in for the evaluation season named by avgs.
// Zero usable seasons is an InsufficientDataError.
func (b *Builder) Build(in model.PlayerInput, avgs model.LeagueAverages) (model.FeatureVector, error) {
	seasons := in.SeasonsDesc(avgs.Season)
	if len(seasons) == 0 {
		return model.FeatureVector{}, model.NewInsufficientData(component, "no season lines for "+in.Key().String())
	}
	c := &buildContext{in: in, seasons: seasons, table: avgs.Table(in.Domain)}

	defs := Catalogue(in.Domain)
	values := make([]model.FeatureValue, len(defs))
	for i, def := range defs {
		v, ok := def.compute(c)
		if ok && !types.Finite(v) {
			ok = false
		}
		if ok {
			v = b.tally.Clamp(component, def.Name, v, def.Min, def.Max)
		} else {
			v = 0
		}
		values[i] = model.FeatureValue{Name: def.Name, Value: v, Valid: ok}
	}
	return model.NewFeatureVector(in.Key(), avgs.Season, b.version, values), nil
}

type buildContext struct {
	in      model.PlayerInput
	seasons []model.SeasonStatLine // most recent first
	table   model.LeagueTable
}

// latest returns a finite stat from the most recent season.
func (c *buildContext) latest(name string) (float64, bool) {
	return finiteStat(c.seasons[0], name)
}

// history returns up to n finite values of a stat, most recent first, skipping seasons without it.
func (c *buildContext) history(name string, n int) []float64 {
	out := make([]float64, 0, n)
	for _, s := range c.seasons {
		if v, ok := finiteStat(s, name); ok {
			out = append(out, v)
			if len(out) == n {
				break
			}
		}
	}
	return out
}

func finiteStat(s model.SeasonStatLine, name string) (float64, bool) {
	v, ok := s.Stat(name)
	if !ok || !types.Finite(v) {
		return 0, false
	}
	return v, true
}

// expectedGap is actual - expected on the latest season; null without either side.
func expectedGap(actual, expected string) func(c *buildContext) (float64, bool) {
	return func(c *buildContext) (float64, bool) {
		a, okA := c.latest(actual)
		e, okE := c.latest(expected)
		if !okA || !okE {
			return 0, false
		}
		return a - e, true
	}
}

// leagueGap compares the latest value with the league mean. flip makes league - value.
func leagueGap(name string, fallback float64, flip bool) func(c *buildContext) (float64, bool) {
	return func(c *buildContext) (float64, bool) {
		v, ok := c.latest(name)
		if !ok {
			return 0, false
		}
		league, ok := c.table.Mean(name)
		if !ok {
			league = fallback
		}
		if flip {
			return league - v, true
		}
		return v - league, true
	}
}

func yoyDelta(name string) func(c *buildContext) (float64, bool) {
	return func(c *buildContext) (float64, bool) {
		h := c.history(name, 2)
		if len(h) < 2 {
			return 0, false
		}
		return h[0] - h[1], true
	}
}

// slope fits value ~ season index (oldest = 0) over the last n seasons with the stat.
func slope(name string, n int) func(c *buildContext) (float64, bool) {
	return func(c *buildContext) (float64, bool) {
		h := c.history(name, n)
		if len(h) < n {
			return 0, false
		}
		xs := make([]float64, len(h))
		ys := make([]float64, len(h))
		for i := range h {
			xs[i] = float64(i)
			ys[i] = h[len(h)-1-i]
		}
		_, beta := stat.LinearRegression(xs, ys, nil, false)
		return beta, true
	}
}
