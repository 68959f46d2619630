package scoring

import (
	"github.com/okian/valuator/internal/domain/bounds"
	"github.com/okian/valuator/internal/domain/model"
)

// settings are shared by every scorer of a model set.
type settings struct {
	maxNullFraction float64
	topK            int
	battingR        float64
	pitchingR       float64
	tally           *bounds.Tally
	scorers         map[string]Scorer
}

func defaultSettings() settings {
	return settings{
		maxNullFraction: DefaultMaxNullFraction,
		topK:            DefaultTopK,
		battingR:        1200,
		pitchingR:       134,
	}
}

// Option applies a configuration option to a model set and its scorers.
type Option func(*settings)

// WithMaxNullFraction sets the null share above which confidence is zero.
func WithMaxNullFraction(f float64) Option {
	return func(s *settings) {
		if f >= 0 && f <= 1 {
			s.maxNullFraction = f
		}
	}
}

// WithTopK sets how many contributions an explanation keeps.
func WithTopK(k int) Option {
	return func(s *settings) {
		if k > 0 {
			s.topK = k
		}
	}
}

// WithReliability sets the sample sizes regression confidence is blended with.
func WithReliability(batting, pitching float64) Option {
	return func(s *settings) {
		if batting > 0 {
			s.battingR = batting
		}
		if pitching > 0 {
			s.pitchingR = pitching
		}
	}
}

// WithTally counts clamped scores in t.
func WithTally(t *bounds.Tally) Option {
	return func(s *settings) { s.tally = t }
}

// WithScorer serves one family and domain with sc instead of a loaded artifact.
func WithScorer(family string, d model.Domain, sc Scorer) Option {
	return func(s *settings) {
		if sc == nil {
			return
		}
		if s.scorers == nil {
			s.scorers = make(map[string]Scorer)
		}
		s.scorers[modelKey(family, d)] = sc
	}
}

func (s settings) reliability(batting bool) float64 {
	if batting {
		return s.battingR
	}
	return s.pitchingR
}
