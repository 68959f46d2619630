// Package trajectory projects a player's value over future seasons.
package trajectory

import (
	"math"

	"github.com/okian/valuator/internal/domain/bounds"
	"github.com/okian/valuator/internal/domain/model"
	"github.com/okian/valuator/internal/domain/scoring"
	"github.com/okian/valuator/internal/domain/types"
)

const component = "trajectory"

// Defaults.
const (
	DefaultHorizon             = 7
	DefaultRetirementThreshold = 0.5
	regressionScale            = 0.15
	minHalfWidthPerYear        = 0.5
	minConsistencyFactor       = 0.5
)

// Regression adjustment decays and stops after the second projected season.
var regressionDecay = []float64{1.0, 0.5}

// Option applies a configuration option to the Projector.
type Option func(*Projector)

// WithHorizon sets the maximum number of projected seasons.
func WithHorizon(h int) Option {
	return func(p *Projector) {
		if h > 0 {
			p.horizon = h
		}
	}
}

// WithRetirementThreshold sets the value under which a curve ends at zero.
func WithRetirementThreshold(v float64) Option {
	return func(p *Projector) {
		if v >= 0 {
			p.retirement = v
		}
	}
}

// WithTally counts clamped values in t.
func WithTally(t *bounds.Tally) Option {
	return func(p *Projector) { p.tally = t }
}

// Input is what the projector needs for one player key.
type Input struct {
	Key        model.PlayerKey
	Age        int
	EvalSeason int

	// CurrentValue is the 0-100 projected value the curve starts from.
	CurrentValue float64
	// HasProjection is false when no Marcel projection exists; no curve is produced then.
	HasProjection bool

	Regression  *model.ModelScore
	Consistency *float64
	Improvement *float64
}

// Projector builds trajectory curves. It is stateless and safe for concurrent use.
type Projector struct {
	horizon    int
	retirement float64
	tally      *bounds.Tally
}

// NewProjector creates a Projector.
func NewProjector(opts ...Option) *Projector {
	p := &Projector{horizon: DefaultHorizon, retirement: DefaultRetirementThreshold}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Horizon returns the configured maximum horizon.
func (p *Projector) Horizon() int {
	return p.horizon
}

// Project returns the curve of in, or nil when there is no projection to start from.
// The curve stops at the first season whose value falls to zero.
func (p *Projector) Project(in Input) *model.TrajectoryCurve {
	if !in.HasProjection {
		return nil
	}
	d := in.Key.Domain
	curve := &model.TrajectoryCurve{CurrentValue: in.CurrentValue}

	cf := minConsistencyFactor
	if in.Consistency != nil {
		cf = math.Max(minConsistencyFactor, *in.Consistency/100)
	}

	v := in.CurrentValue
	hw := 0.0
	for h := 1; h <= p.horizon; h++ {
		age := in.Age + h
		prev := Curve(d, age-1)
		if prev > 0 {
			v *= Curve(d, age) / prev
		} else {
			v = 0
		}
		if h <= len(regressionDecay) && in.Regression != nil {
			dirNorm := in.Regression.Direction / scoring.DirectionLimit(d)
			v *= 1 + regressionScale*dirNorm*in.Regression.Confidence*regressionDecay[h-1]
		}
		v = p.tally.Clamp(component, "projected_value", v, 0, 100)
		if v < p.retirement {
			v = 0
		}

		oldAge := 1.0
		if age > oldAgeStart {
			oldAge += oldAgeWidening * float64(age-oldAgeStart)
		}
		hw = math.Max(hw, math.Max(v*bandWidth(h)/cf*oldAge, float64(h)*minHalfWidthPerYear))

		pt := model.TrajectoryPoint{
			Season:         in.EvalSeason + h,
			Age:            age,
			ProjectedValue: v,
			LowerBound:     math.Max(0, v-hw),
			UpperBound:     v + hw,
		}
		curve.Points = append(curve.Points, pt)
		curve.CareerValueRemaining += v
		if len(curve.Points) == 1 || v > curve.PeakValue {
			curve.PeakValue = v
			curve.PeakSeason = pt.Season
		}
		if v == 0 {
			break
		}
	}

	improvement := 0.0
	if in.Improvement != nil {
		improvement = *in.Improvement
	}
	curve.Grade = Grade(in.Age-types.PeakAge(d), improvement, curve.Points[0].ProjectedValue, in.CurrentValue)
	return curve
}

// Grade labels a curve from the player's distance to peak, improvement score and the first
// projected step.
func Grade(yearsFromPeak int, improvement, firstValue, currentValue float64) string {
	switch {
	case yearsFromPeak < -1:
		return model.GradeRising
	case yearsFromPeak >= -1 && yearsFromPeak <= 1:
		if improvement < -10 {
			return model.GradeDeclining
		}
		return model.GradeAtPeak
	case yearsFromPeak <= 4:
		if firstValue >= 0.9*currentValue {
			return model.GradePlateau
		}
		return model.GradeDeclining
	default:
		return model.GradeLateCareer
	}
}
