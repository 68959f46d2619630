package scoring

import (
	"context"
	"fmt"
	"math"

	"github.com/okian/valuator/internal/domain/features"
	"github.com/okian/valuator/internal/domain/model"
	"github.com/okian/valuator/internal/domain/types"
)

// Marcel-only fallback constants.
const (
	fallbackConfidenceCap = 0.2
	fallbackGainWeight    = 4.0
	fallbackBias          = -1.5
	fallbackDiffShrink    = 0.5
	relGainFeature        = "marcel_relative_gain"
)

// differentialWeight scales the primary differential into logit units.
func differentialWeight(d model.Domain) float64 {
	if d == model.Pitching {
		return 1.2
	}
	return 40
}

// Fallback scores a family from the Marcel baseline and the primary differential alone.
// It is used when the family's artifact is unavailable; every result is marked Degraded and
// its confidence capped.
type Fallback struct {
	family string
	cfg    settings
}

// NewFallback returns the Marcel-only scorer for a family.
func NewFallback(family string, opts ...Option) *Fallback {
	cfg := defaultSettings()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Fallback{family: family, cfg: cfg}
}

// Name returns the model family.
func (f *Fallback) Name() string {
	return f.family
}

// Score implements Scorer.
func (f *Fallback) Score(ctx context.Context, in Input) (model.ModelScore, error) {
	if err := ctx.Err(); err != nil {
		return model.ModelScore{}, fmt.Errorf("context cancelled: %w", err)
	}
	if in.Marcel == nil {
		return model.ModelScore{}, model.NewInsufficientData(f.family, "no marcel projection for fallback")
	}
	d := in.Domain()
	primary := features.PrimaryDifferential(d)
	diff, diffOK := in.Value(primary)
	if !diffOK {
		diff = 0
	}
	gain, delta, gainOK := relativeGain(in)

	nulls := 0
	if !diffOK {
		nulls++
	}
	if !gainOK {
		nulls++
	}
	conf, low := confidence(nulls, 2, in.seasons(), f.cfg.maxNullFraction)
	conf = math.Min(conf, fallbackConfidenceCap)

	switch f.family {
	case model.FamilyRegression:
		return f.direction(d, delta, diff, conf, low), nil
	case model.FamilySleeper, model.FamilyBust:
		return f.classify(d, primary, gain, diff, conf, low), nil
	default:
		return model.ModelScore{}, fmt.Errorf("%w: family %q", ErrArtifactShape, f.family)
	}
}

func (f *Fallback) classify(d model.Domain, primary string, gain, diff, conf float64, low bool) model.ModelScore {
	k := differentialWeight(d)
	gainTerm := fallbackGainWeight * gain
	diffTerm := -k * diff
	if f.family == model.FamilyBust {
		gainTerm, diffTerm = -gainTerm, -diffTerm
	}
	p := f.cfg.tally.Probability(f.family, "probability", sigmoid(gainTerm+diffTerm+fallbackBias))
	cs := []contribution{
		{Contribution: model.Contribution{Feature: relGainFeature, Value: gainTerm}, decl: -1},
		{Contribution: model.Contribution{Feature: primary, Value: diffTerm}, decl: declIndex[d][primary]},
	}
	return model.ModelScore{
		Model:         f.family,
		Score:         f.cfg.tally.Score(f.family, "score", maxScoreValue*p),
		Probability:   p,
		Confidence:    conf,
		LowConfidence: low,
		Degraded:      true,
		Explanation:   topK(cs, f.cfg.topK),
	}
}

// direction shrinks the Marcel change by half the luck gap: lucky players are expected to give back.
func (f *Fallback) direction(d model.Domain, delta, diff, conf float64, low bool) model.ModelScore {
	limit := DirectionLimit(d)
	raw := delta - fallbackDiffShrink*diff
	dir := f.cfg.tally.Clamp(model.FamilyRegression, "direction", raw, -limit, limit)
	half := fallbackDiffShrink*math.Abs(diff) + 0.1*limit
	lower := math.Max(-limit, dir-half)
	upper := math.Min(limit, dir+half)
	cs := []contribution{
		{Contribution: model.Contribution{Feature: MarcelDeltaName(types.RegressionStat(d)), Value: delta}, decl: -1},
		{Contribution: model.Contribution{Feature: features.PrimaryDifferential(d), Value: -fallbackDiffShrink * diff},
			decl: declIndex[d][features.PrimaryDifferential(d)]},
	}
	return model.ModelScore{
		Model:         model.FamilyRegression,
		Score:         directionScore(dir, limit),
		Confidence:    conf,
		LowConfidence: low,
		Degraded:      true,
		Explanation:   topK(cs, f.cfg.topK),
		Direction:     dir,
		Magnitude:     math.Abs(dir),
		Lower:         lower,
		Upper:         upper,
	}
}

// relativeGain returns the oriented Marcel change of the regression stat relative to the latest
// value, and the oriented absolute change.
func relativeGain(in Input) (float64, float64, bool) {
	d := in.Domain()
	name := types.RegressionStat(d)
	ps, ok := in.Marcel.Stat(name)
	if !ok || ps.MeanFallback {
		return 0, 0, false
	}
	latest, ok := in.Latest[name]
	if !ok || !types.Finite(latest) || latest == 0 {
		return 0, 0, false
	}
	delta := types.Better(d, name, ps.Value, latest)
	return delta / math.Abs(latest), delta, true
}
