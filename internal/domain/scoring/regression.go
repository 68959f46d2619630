package scoring

import (
	"context"
	"fmt"
	"math"

	"github.com/okian/valuator/internal/domain/model"
	"gonum.org/v1/gonum/stat"
)

// bandZ is the standard normal 90th percentile.
const bandZ = 1.2816

// DirectionLimit is the clamp on the regression direction in primary stat units.
func DirectionLimit(d model.Domain) float64 {
	if d == model.Pitching {
		return 3.0
	}
	return 0.15
}

// Regression is the linear-ensemble direction model. Direction is positive when the player
// should improve in the domain's primary stat (wOBA for batting, FIP for pitching).
type Regression struct {
	art  *Artifact
	decl []int
	cfg  settings
}

// NewRegression validates a regression artifact and wraps it as a Scorer.
func NewRegression(art *Artifact, opts ...Option) (*Regression, error) {
	if art == nil {
		return nil, fmt.Errorf("%w: nil artifact", ErrArtifactShape)
	}
	if art.Family != model.FamilyRegression {
		return nil, fmt.Errorf("%w: %s is not the regression family", ErrArtifactShape, art.Family)
	}
	if err := art.Validate(); err != nil {
		return nil, err
	}
	cfg := defaultSettings()
	for _, opt := range opts {
		opt(&cfg)
	}
	idx := declIndex[art.Domain]
	decl := make([]int, len(art.Features))
	for i, f := range art.Features {
		decl[i] = idx[f]
	}
	return &Regression{art: art, decl: decl, cfg: cfg}, nil
}

// Name returns the model family.
func (r *Regression) Name() string {
	return model.FamilyRegression
}

// Score predicts the signed direction, its band and confidence.
func (r *Regression) Score(ctx context.Context, in Input) (model.ModelScore, error) {
	if err := ctx.Err(); err != nil {
		return model.ModelScore{}, fmt.Errorf("context cancelled: %w", err)
	}
	d := r.art.Domain
	if in.Domain() != d {
		return model.ModelScore{}, fmt.Errorf("%w: %s model scoring %s input", ErrArtifactShape, d, in.Domain())
	}

	centered := make([]float64, len(r.art.Features))
	valid := make([]bool, len(r.art.Features))
	nulls := 0
	for i, name := range r.art.Features {
		x, ok := in.Value(name)
		if !ok {
			nulls++
			continue
		}
		centered[i] = x - r.art.Means[i]
		valid[i] = true
	}

	preds := make([]float64, len(r.art.Members))
	avgCoef := make([]float64, len(r.art.Features))
	for m, mem := range r.art.Members {
		p := mem.Intercept
		for i, c := range mem.Coefficients {
			p += c * centered[i]
			avgCoef[i] += c / float64(len(r.art.Members))
		}
		preds[m] = p
	}
	mean := stat.Mean(preds, nil)
	sigma := 0.0
	if len(preds) > 1 {
		sigma = stat.StdDev(preds, nil)
	}

	limit := DirectionLimit(d)
	component := model.FamilyRegression
	dir := r.cfg.tally.Clamp(component, "direction", mean, -limit, limit)
	lower := r.cfg.tally.Clamp(component, "lower", mean+r.art.ResidualQ10-bandZ*sigma, -limit, dir)
	upper := r.cfg.tally.Clamp(component, "upper", mean+r.art.ResidualQ90+bandZ*sigma, dir, limit)

	cs := make([]contribution, 0, len(r.art.Features))
	for i, name := range r.art.Features {
		if valid[i] {
			cs = append(cs, contribution{
				Contribution: model.Contribution{Feature: name, Value: avgCoef[i] * centered[i]},
				decl:         r.decl[i],
			})
		}
	}

	conf, low := regressionConfidence(in, nulls, len(r.art.Features), r.cfg)
	return model.ModelScore{
		Model:         component,
		Score:         directionScore(dir, limit),
		Confidence:    conf,
		LowConfidence: low,
		Explanation:   topK(cs, r.cfg.topK),
		Direction:     dir,
		Magnitude:     math.Abs(dir),
		Lower:         lower,
		Upper:         upper,
	}, nil
}

// regressionConfidence is n/(n+R) of the Marcel sample scaled by the non-null share.
func regressionConfidence(in Input, nulls, total int, cfg settings) (float64, bool) {
	if total == 0 {
		return 0, true
	}
	frac := float64(nulls) / float64(total)
	if frac > cfg.maxNullFraction || in.Marcel == nil {
		return 0, true
	}
	n := in.Marcel.SampleSize
	rel := cfg.reliability(in.Domain() == model.Batting)
	return n / (n + rel) * (1 - frac), false
}

// directionScore maps a direction onto 0-100 with 50 meaning no expected change.
func directionScore(dir, limit float64) float64 {
	return 50 * (1 + dir/limit)
}
