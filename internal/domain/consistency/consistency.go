// Package consistency scores month-to-month stability of a player's primary stat.
//
// Scoring runs in two phases. Measure computes a blended raw instability per player from
// monthly splits; Normalize ranks instabilities within each domain across the run.
package consistency

import (
	"math"
	"sort"

	"github.com/okian/valuator/internal/domain/bounds"
	"github.com/okian/valuator/internal/domain/model"
	"github.com/okian/valuator/internal/domain/types"
	"gonum.org/v1/gonum/stat"
)

const component = "consistency"

// Component weights of one season's instability.
const (
	weightCV       = 0.4
	weightIQR      = 0.3
	weightBelowAvg = 0.2
	weightDrawdown = 0.1
	minMonths      = 2
)

// SeasonWeights blend the evaluation season and the two before it.
var SeasonWeights = []float64{0.6, 0.3, 0.1}

// Measurement is the phase-one output of one player key.
type Measurement struct {
	Key         model.PlayerKey
	Instability float64
	Breakdown   model.ConsistencyBreakdown
}

// Result is the normalized score of one player key.
type Result struct {
	Key       model.PlayerKey
	Score     float64
	Breakdown model.ConsistencyBreakdown
}

// Scorer measures instability. It is stateless and safe for concurrent use.
type Scorer struct {
	tally *bounds.Tally
}

// NewScorer creates a Scorer; t may be nil.
func NewScorer(t *bounds.Tally) *Scorer {
	return &Scorer{tally: t}
}

// Measure computes the blended raw instability of in. Seasons with fewer than two monthly
// values are skipped and the remaining season weights renormalized. No usable season is an
// InsufficientDataError.
func (s *Scorer) Measure(in model.PlayerInput, avgs model.LeagueAverages) (*Measurement, error) {
	d := in.Domain
	name := types.ConsistencyStat(d)
	table := avgs.Table(d)
	leagueMean, hasMean := table.Mean(name)

	bd := model.ConsistencyBreakdown{Stat: name}
	var blended, wsum float64
	for i, w := range SeasonWeights {
		season := avgs.Season - i
		monthly := orientedMonths(in.SplitsFor(season), d, name)
		if len(monthly) < minMonths {
			continue
		}
		sc := model.SeasonConsistency{Season: season, Months: len(monthly)}
		raw := rawMonths(in.SplitsFor(season), name)

		mean := stat.Mean(raw, nil)
		if mean != 0 {
			sc.CV = stat.StdDev(raw, nil) / math.Abs(mean)
		}
		sc.IQRRatio = ratio(IQR(raw), table.MonthlyIQR)
		if hasMean {
			ref := orient(d, name, leagueMean)
			below := 0
			for _, v := range monthly {
				if v < ref {
					below++
				}
			}
			sc.BelowAverage = float64(below) / float64(len(monthly))
		}
		sc.DrawdownRatio = ratio(MaxDrawdown(monthly), table.MonthlyDrawdown)
		sc.Instability = weightCV*sc.CV + weightIQR*sc.IQRRatio + weightBelowAvg*sc.BelowAverage + weightDrawdown*sc.DrawdownRatio
		sc.Weight = w

		blended += w * sc.Instability
		wsum += w
		bd.Seasons = append(bd.Seasons, sc)
	}
	if wsum == 0 {
		return nil, model.NewInsufficientData(component, "fewer than two monthly splits in every season")
	}
	for i := range bd.Seasons {
		bd.Seasons[i].Weight /= wsum
	}
	bd.RawInstability = blended / wsum
	return &Measurement{Key: in.Key(), Instability: bd.RawInstability, Breakdown: bd}, nil
}

// Normalize converts instabilities to scores by percentile within each domain:
// score = 100 - 100*pct. Output order follows input order.
func (s *Scorer) Normalize(ms []*Measurement) []Result {
	byDomain := make(map[model.Domain][]int)
	for i, m := range ms {
		byDomain[m.Key.Domain] = append(byDomain[m.Key.Domain], i)
	}
	out := make([]Result, len(ms))
	domains := make([]string, 0, len(byDomain))
	for d := range byDomain {
		domains = append(domains, string(d))
	}
	sort.Strings(domains)
	for _, d := range domains {
		idx := byDomain[model.Domain(d)]
		vals := make([]float64, len(idx))
		for k, i := range idx {
			vals[k] = ms[i].Instability
		}
		pcts := types.PercentileRanks(vals)
		for k, i := range idx {
			bd := ms[i].Breakdown
			bd.Percentile = pcts[k]
			out[i] = Result{
				Key:       ms[i].Key,
				Score:     s.tally.Score(component, "score", 100-100*pcts[k]),
				Breakdown: bd,
			}
		}
	}
	return out
}

// IQR is the interquartile range with linear interpolation.
func IQR(vs []float64) float64 {
	if len(vs) < 2 {
		return 0
	}
	sorted := append([]float64(nil), vs...)
	sort.Float64s(sorted)
	return stat.Quantile(0.75, stat.LinInterp, sorted, nil) - stat.Quantile(0.25, stat.LinInterp, sorted, nil)
}

// MaxDrawdown is the largest single-month shortfall below the series mean in an oriented
// series; it is zero when no month falls below the mean.
func MaxDrawdown(vs []float64) float64 {
	if len(vs) == 0 {
		return 0
	}
	mean := stat.Mean(vs, nil)
	dd := 0.0
	for _, v := range vs {
		if mean-v > dd {
			dd = mean - v
		}
	}
	return dd
}

func rawMonths(splits []model.MonthlySplit, name string) []float64 {
	out := make([]float64, 0, len(splits))
	for _, sp := range splits {
		if v, ok := sp.Stats[name]; ok && types.Finite(v) {
			out = append(out, v)
		}
	}
	return out
}

// orientedMonths returns monthly values flipped so that higher is better.
func orientedMonths(splits []model.MonthlySplit, d model.Domain, name string) []float64 {
	raw := rawMonths(splits, name)
	for i, v := range raw {
		raw[i] = orient(d, name, v)
	}
	return raw
}

func orient(d model.Domain, name string, v float64) float64 {
	if s, ok := types.Lookup(d, name); ok && s.Direction == types.LowerBetter {
		return -v
	}
	return v
}

// ratio divides by a league reference, falling back to the raw value without one.
func ratio(v, ref float64) float64 {
	if ref <= 0 || !types.Finite(ref) {
		return v
	}
	return v / ref
}
