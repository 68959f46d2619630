package valuation

import (
	"math"

	"github.com/okian/valuator/internal/domain/model"
	"github.com/okian/valuator/internal/domain/scoring"
	"github.com/okian/valuator/internal/domain/types"
)

// Bounds on the regression adjustment applied to projected stats before pricing.
const (
	minAdjust = 0.8
	maxAdjust = 1.2
)

// AdjustFactor turns a regression score into a multiplicative skill factor in [0.8, 1.2].
// The direction is scaled by confidence and expressed relative to the projected primary stat.
func AdjustFactor(proj *model.MarcelProjection, reg *model.ModelScore) float64 {
	if proj == nil || reg == nil {
		return 1
	}
	primary, ok := proj.Stat(types.RegressionStat(proj.Domain))
	if !ok || primary.Value == 0 || !types.Finite(reg.Direction) {
		return 1
	}
	dir := math.Max(-scoring.DirectionLimit(proj.Domain), math.Min(scoring.DirectionLimit(proj.Domain), reg.Direction))
	f := 1 + reg.Confidence*dir/math.Abs(primary.Value)
	return math.Max(minAdjust, math.Min(maxAdjust, f))
}

// AdjustedStats returns the Marcel values moved by the regression factor. Higher-is-better
// stats are multiplied and lower-is-better stats divided; playing time is left alone.
func AdjustedStats(proj *model.MarcelProjection, reg *model.ModelScore) map[string]float64 {
	out := proj.Values()
	if out == nil {
		return nil
	}
	f := AdjustFactor(proj, reg)
	if f == 1 {
		return out
	}
	pt := types.PlayingTimeStat(proj.Domain)
	for name, v := range out {
		if name == pt {
			continue
		}
		st, ok := types.Lookup(proj.Domain, name)
		if !ok {
			continue
		}
		if st.Direction == types.LowerBetter {
			v /= f
		} else {
			v *= f
		}
		out[name], _ = st.Clamp(v)
	}
	return out
}
