// Package improvement scores multi-season skill development.
package improvement

import (
	"math"

	"github.com/okian/valuator/internal/domain/bounds"
	"github.com/okian/valuator/internal/domain/model"
	"github.com/okian/valuator/internal/domain/types"
	"gonum.org/v1/gonum/stat"
)

const component = "improvement"

const (
	minSeasons       = 2
	maxSeasons       = 3
	scale            = 500
	flatThreshold    = 0.01
	minMeanMagnitude = 1e-6
)

type skill struct {
	stat   string
	weight float64
}

// Skill stats by stickiness tier. Direction comes from the stat catalogue.
var skills = map[model.Domain][]skill{
	model.Batting: {
		{"k_pct", 1.0}, {"bb_pct", 1.0},
		{"barrel_pct", 0.7}, {"hard_hit_pct", 0.7}, {"avg_exit_velocity", 0.7},
		{"sprint_speed", 0.4},
	},
	model.Pitching: {
		{"k_pct", 1.0}, {"bb_pct", 1.0}, {"k_bb_pct", 1.0},
		{"swstr_pct", 0.7}, {"csw_pct", 0.7}, {"gb_pct", 0.7},
	},
}

// minPlayingTime is the PA or IP a season needs to count.
func minPlayingTime(d model.Domain) float64 {
	if d == model.Pitching {
		return 40
	}
	return 200
}

// AgeMultiplier discounts improvement that runs against the aging curve.
func AgeMultiplier(age int) float64 {
	switch {
	case age < 27:
		return 1.2
	case age < 30:
		return 1.0
	case age < 33:
		return 0.6
	default:
		return 0.3
	}
}

// Result is an improvement score in [-100, 100] with its breakdown.
type Result struct {
	Score     float64
	Breakdown model.ImprovementBreakdown
}

// Scorer computes improvement scores. It is stateless and safe for concurrent use.
type Scorer struct {
	tally *bounds.Tally
}

// NewScorer creates a Scorer; t may be nil.
func NewScorer(t *bounds.Tally) *Scorer {
	return &Scorer{tally: t}
}

// Score fits each skill stat over the last three qualifying seasons: slope normalized by the
// stat's mean, signed so that positive is improvement, and discounted by r².
func (s *Scorer) Score(in model.PlayerInput, evalSeason int) (*Result, error) {
	d := in.Domain
	pt := types.PlayingTimeStat(d)
	var qualifying []model.SeasonStatLine
	for _, line := range in.SeasonsDesc(evalSeason) {
		if v, ok := line.Stat(pt); ok && v >= minPlayingTime(d) {
			qualifying = append(qualifying, line)
			if len(qualifying) == maxSeasons {
				break
			}
		}
	}
	if len(qualifying) < minSeasons {
		return nil, model.NewInsufficientData(component, "fewer than two qualifying seasons")
	}

	bd := model.ImprovementBreakdown{AgeMultiplier: AgeMultiplier(in.Age)}
	for i := len(qualifying) - 1; i >= 0; i-- {
		bd.SeasonsUsed = append(bd.SeasonsUsed, qualifying[i].Season)
	}

	var sum, wsum float64
	for _, sk := range skills[d] {
		ys := make([]float64, 0, len(qualifying))
		for i := len(qualifying) - 1; i >= 0; i-- {
			if v, ok := qualifying[i].Stat(sk.stat); ok && types.Finite(v) {
				ys = append(ys, v)
			}
		}
		if len(ys) < minSeasons {
			continue
		}
		trend := fitTrend(d, sk.stat, ys)
		trend.Weight = sk.weight
		bd.Stats = append(bd.Stats, trend)
		sum += sk.weight * trend.Signal
		wsum += sk.weight
	}
	if wsum == 0 {
		return nil, model.NewInsufficientData(component, "no skill stat in two qualifying seasons")
	}
	bd.Signal = sum / wsum
	score := math.Round(bd.Signal*bd.AgeMultiplier*scale*10) / 10
	return &Result{
		Score:     s.tally.Clamp(component, "score", score, -100, 100),
		Breakdown: bd,
	}, nil
}

// fitTrend regresses values (oldest first) on season index.
func fitTrend(d model.Domain, name string, ys []float64) model.StatTrend {
	xs := make([]float64, len(ys))
	for i := range xs {
		xs[i] = float64(i)
	}
	alpha, beta := stat.LinearRegression(xs, ys, nil, false)
	r2 := 0.0
	if stat.Variance(ys, nil) > 0 {
		r2 = math.Max(0, stat.RSquared(xs, ys, nil, alpha, beta))
	}
	norm := beta
	if m := math.Abs(stat.Mean(ys, nil)); m > minMeanMagnitude {
		norm = beta / m
	}
	if s, ok := types.Lookup(d, name); ok && s.Direction == types.LowerBetter {
		norm = -norm
	}
	signal := norm * r2
	dir := "flat"
	switch {
	case signal > flatThreshold:
		dir = "improving"
	case signal < -flatThreshold:
		dir = "declining"
	}
	return model.StatTrend{
		Stat:            name,
		Slope:           beta,
		RSquared:        r2,
		NormalizedSlope: norm,
		Signal:          signal,
		Direction:       dir,
	}
}
