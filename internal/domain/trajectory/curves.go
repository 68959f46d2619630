package trajectory

import "github.com/okian/valuator/internal/domain/model"

const (
	curveMinAge    = 20
	youngDiscount  = 0.9
	oldAgeStart    = 32
	oldAgeWidening = 0.1
)

// Share of peak production by age, from age 20. Values run to zero past 40.
var agingCurves = map[model.Domain][]float64{
	model.Batting: {
		0.55, 0.65, 0.75, 0.83, 0.90, 0.95, 0.98, 1.00, 0.98, 0.95, // 20-29
		0.91, 0.87, 0.82, 0.76, 0.70, 0.63, 0.55, 0.47, 0.39, 0.32, // 30-39
		0.25, 0.18, 0.11, 0.05, 0, // 40-44
	},
	model.Pitching: {
		0.60, 0.70, 0.78, 0.85, 0.91, 0.96, 1.00, 0.98, 0.95, 0.91, // 20-29
		0.86, 0.81, 0.75, 0.68, 0.61, 0.53, 0.45, 0.37, 0.30, 0.23, // 30-39
		0.17, 0.11, 0.05, 0, // 40-43
	},
}

// Curve returns the aging-curve multiplier of a domain at an age.
func Curve(d model.Domain, age int) float64 {
	c := agingCurves[d]
	switch {
	case age < curveMinAge:
		return c[0] * youngDiscount
	case age-curveMinAge >= len(c):
		return 0
	default:
		return c[age-curveMinAge]
	}
}

// Half-width of the band, as a share of the projected value, by horizon.
var bandWidths = []float64{0.08, 0.14, 0.20, 0.26, 0.32, 0.38, 0.44, 0.50}

func bandWidth(h int) float64 {
	if h > len(bandWidths) {
		return bandWidths[len(bandWidths)-1]
	}
	return bandWidths[h-1]
}
