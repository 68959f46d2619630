// Package valuation prices players for a league and combines model outputs into one value.
package valuation

import (
	"fmt"
	"math"

	"github.com/okian/valuator/internal/domain/bounds"
	"github.com/okian/valuator/internal/domain/model"
	"github.com/okian/valuator/internal/domain/types"
)

const component = "composite"

const weightTolerance = 1e-6

// Opportunity blend of projected playing-time share and its year-over-year trend.
const (
	shareWeight   = 0.8
	trendWeight   = 0.2
	maxTrendSwing = 0.5
	trendBaseline = 0.5
)

// Weights maps component name to weight.
type Weights map[string]float64

// DefaultWeights returns the run-level default weights.
func DefaultWeights() Weights {
	return Weights{
		model.ComponentProjectedValue: 0.30,
		model.ComponentSleeperUpside:  0.15,
		model.ComponentBustSafety:     0.15,
		model.ComponentConsistency:    0.20,
		model.ComponentAgeCurve:       0.12,
		model.ComponentOpportunity:    0.08,
	}
}

// ValidateWeights requires known components, non-negative weights and a sum of 1.
func ValidateWeights(w Weights) error {
	known := make(map[string]bool, len(model.ComponentNames))
	for _, n := range model.ComponentNames {
		known[n] = true
	}
	sum := 0.0
	for _, name := range sortedKeys(w) {
		v := w[name]
		if !known[name] {
			return fmt.Errorf("%w: unknown component %q", ErrInvalidWeights, name)
		}
		if v < 0 || !types.Finite(v) {
			return fmt.Errorf("%w: %s weight %v", ErrInvalidWeights, name, v)
		}
		sum += v
	}
	if math.Abs(sum-1) > weightTolerance {
		return fmt.Errorf("%w: weights sum to %v", ErrInvalidWeights, sum)
	}
	return nil
}

// Inputs carries everything the composite needs for one player key. Nil fields are absent
// components.
type Inputs struct {
	Key         model.PlayerKey
	Age         int
	Price       *model.LeaguePrice
	Current     *float64 // league-agnostic current-value percentile, see CurrentPercentiles
	Sleeper     *model.ModelScore
	Bust        *model.ModelScore
	Consistency *float64
	Marcel      *model.MarcelProjection
	Features    *model.FeatureVector
	Trajectory  *model.TrajectoryCurve
	ModelRefs   []string
}

// Composite combines component scores with fixed run-level weights.
type Composite struct {
	weights Weights
	minBid  float64
	horizon int
	tally   *bounds.Tally
}

// CompositeOption configures a Composite.
type CompositeOption func(*Composite)

// WithMinBid sets the replacement-level cost used for surplus value.
func WithMinBid(v float64) CompositeOption {
	return func(c *Composite) { c.minBid = v }
}

// WithHorizon sets the trajectory horizon that scales dynasty value.
func WithHorizon(h int) CompositeOption {
	return func(c *Composite) {
		if h > 0 {
			c.horizon = h
		}
	}
}

// WithTally counts clamped values in t.
func WithTally(t *bounds.Tally) CompositeOption {
	return func(c *Composite) { c.tally = t }
}

// NewComposite validates the weights and returns a Composite.
func NewComposite(w Weights, opts ...CompositeOption) (*Composite, error) {
	if err := ValidateWeights(w); err != nil {
		return nil, err
	}
	c := &Composite{weights: w, minBid: 1, horizon: 7}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Components computes every available component in declaration order.
func (c *Composite) Components(in Inputs) []model.ComponentValue {
	var out []model.ComponentValue
	add := func(name string, v float64) {
		out = append(out, model.ComponentValue{
			Name:   name,
			Value:  c.tally.Score(component, name, v),
			Weight: c.weights[name],
		})
	}
	if in.Price != nil {
		add(model.ComponentProjectedValue, 100*in.Price.Percentile)
	}
	if in.Sleeper != nil {
		pct := 0.5
		if in.Current != nil {
			pct = *in.Current
		}
		add(model.ComponentSleeperUpside, in.Sleeper.Score*(1-pct))
	}
	if in.Bust != nil {
		add(model.ComponentBustSafety, 100-in.Bust.Score)
	}
	if in.Consistency != nil {
		add(model.ComponentConsistency, *in.Consistency)
	}
	if in.Age > 0 {
		add(model.ComponentAgeCurve, AgeCurveScore(in.Age, types.PeakAge(in.Key.Domain)))
	}
	if v, ok := opportunity(in); ok {
		add(model.ComponentOpportunity, v)
	}
	return out
}

// Score returns the composite valuation. Missing components are dropped and the remaining
// weights renormalized; with nothing available the result is InsufficientDataError.
func (c *Composite) Score(in Inputs) (model.CompositeValuation, error) {
	comps := c.Components(in)
	score, ok := weighted(comps)
	if !ok {
		return model.CompositeValuation{}, model.NewInsufficientData(component, "no components for "+in.Key.String())
	}
	out := model.CompositeValuation{
		AIValueScore: c.tally.Score(component, "ai_value_score", score),
		Components:   comps,
		ModelRefs:    append([]string(nil), in.ModelRefs...),
	}
	if in.Price != nil {
		out.AuctionValue = model.Float(in.Price.AuctionValue)
		out.SurplusValue = model.Float(in.Price.AuctionValue - c.minBid)
	}
	if in.Trajectory != nil {
		out.DynastyValue = model.Float(c.dynasty(comps, in.Trajectory))
	}
	return out, nil
}

// dynasty swaps the single-season projected value for the average remaining career value.
func (c *Composite) dynasty(comps []model.ComponentValue, curve *model.TrajectoryCurve) float64 {
	swapped := make([]model.ComponentValue, 0, len(comps)+1)
	for _, cv := range comps {
		if cv.Name != model.ComponentProjectedValue {
			swapped = append(swapped, cv)
		}
	}
	swapped = append(swapped, model.ComponentValue{
		Name:   model.ComponentProjectedValue,
		Value:  c.tally.Score(component, "dynasty_projected_value", curve.CareerValueRemaining/float64(c.horizon)),
		Weight: c.weights[model.ComponentProjectedValue],
	})
	v, _ := weighted(swapped)
	return c.tally.Score(component, "dynasty_value", v)
}

func weighted(comps []model.ComponentValue) (float64, bool) {
	var sum, wsum float64
	for _, cv := range comps {
		sum += cv.Weight * cv.Value
		wsum += cv.Weight
	}
	if wsum <= 0 {
		return 0, false
	}
	return sum / wsum, true
}

// AgeCurveScore buckets a player's position on the aging curve.
func AgeCurveScore(age, peak int) float64 {
	switch {
	case age < peak-2:
		return 90
	case age < peak:
		return 85
	case age <= peak+2:
		return 75
	case age <= 32:
		return 55
	case age <= 35:
		return 35
	default:
		return 15
	}
}

// opportunity scores projected playing-time share, nudged by the latest playing-time trend.
func opportunity(in Inputs) (float64, bool) {
	if in.Marcel == nil {
		return 0, false
	}
	full := types.FullTimePlayingTime(in.Key.Domain)
	share := math.Min(1, math.Max(0, in.Marcel.ProjectedPlayingTime/full))
	trend := 0.0
	if in.Features != nil {
		if delta, ok := in.Features.Get(types.PlayingTimeStat(in.Key.Domain) + "_yoy_delta"); ok {
			trend = math.Max(-maxTrendSwing, math.Min(maxTrendSwing, delta/full))
		}
	}
	return 100 * (shareWeight*share + trendWeight*(trendBaseline+trend)), true
}
