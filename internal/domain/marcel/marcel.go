// Package marcel implements the weighted-history baseline projection.
//
// Each target stat is a 5/4/3 weighted average over the three most recent seasons that carry
// it, blended toward the league mean by n/(n+R) and adjusted for age. Counting stats are
// projected as per-playing-time rates and scaled by projected playing time.
package marcel

import (
	"errors"
	"fmt"
	"math"

	"github.com/okian/valuator/internal/domain/bounds"
	"github.com/okian/valuator/internal/domain/model"
	"github.com/okian/valuator/internal/domain/types"
)

const component = "marcel"

// Defaults.
const (
	DefaultBattingReliability  = 1200.0 // plate appearances
	DefaultPitchingReliability = 134.0  // outs
	DefaultAgeDelta            = 0.006
	playingTimeDecay           = 0.02
	playingTimeFloor           = 0.5
)

// Weights are assigned most recent first.
var Weights = []float64{5, 4, 3}

// ErrMissingLeagueStat is returned by ValidateTables when a target stat has no league mean.
var ErrMissingLeagueStat = errors.New("league table missing target stat")

// Option applies a configuration option to the Projector.
type Option func(*Projector)

// WithReliability sets the regression sample sizes for batting (PA) and pitching (outs).
func WithReliability(batting, pitching float64) Option {
	return func(p *Projector) {
		if batting > 0 {
			p.battingR = batting
		}
		if pitching > 0 {
			p.pitchingR = pitching
		}
	}
}

// WithAgeDelta sets the per-year age adjustment.
func WithAgeDelta(d float64) Option {
	return func(p *Projector) {
		if d >= 0 {
			p.ageDelta = d
		}
	}
}

// WithTally counts clamped projections in t.
func WithTally(t *bounds.Tally) Option {
	return func(p *Projector) { p.tally = t }
}

// Projector produces Marcel projections. It is stateless and safe for concurrent use.
type Projector struct {
	battingR  float64
	pitchingR float64
	ageDelta  float64
	tally     *bounds.Tally
}

// NewProjector creates a Projector.
func NewProjector(opts ...Option) *Projector {
	p := &Projector{
		battingR:  DefaultBattingReliability,
		pitchingR: DefaultPitchingReliability,
		ageDelta:  DefaultAgeDelta,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ValidateTables checks that every target stat of the given domains has a league mean.
func ValidateTables(avgs model.LeagueAverages, domains ...model.Domain) error {
	for _, d := range domains {
		table := avgs.Table(d)
		for _, name := range types.ProjectedStats(d) {
			v, ok := table.Mean(name)
			if !ok || !types.Finite(v) {
				return fmt.Errorf("%w: %s/%s", ErrMissingLeagueStat, d, name)
			}
		}
	}
	return nil
}

// Project builds the next-season projection of in. avgs.Season is the evaluation season.
func (p *Projector) Project(in model.PlayerInput, avgs model.LeagueAverages) (*model.MarcelProjection, error) {
	seasons := in.SeasonsDesc(avgs.Season)
	if len(seasons) == 0 {
		return nil, model.NewInsufficientData(component, "no season lines for "+in.Key().String())
	}
	d := in.Domain
	table := avgs.Table(d)
	ptStat := types.PlayingTimeStat(d)
	years := float64(in.Age - types.PeakAge(d))
	if in.Age <= 0 {
		years = 0
	}

	recent := seasons
	if len(recent) > len(Weights) {
		recent = recent[:len(Weights)]
	}
	sw := make([]model.SeasonWeight, len(recent))
	total := 0.0
	for i := range recent {
		total += Weights[i]
	}
	var sample float64
	for i, s := range recent {
		sw[i] = model.SeasonWeight{Season: s.Season, Weight: Weights[i] / total}
		pt, _ := s.Stat(ptStat)
		if types.Finite(pt) && pt > 0 {
			sample += types.SampleUnits(d, pt)
		}
	}

	projPT := p.playingTime(recent, ptStat, years)
	r := p.reliabilityConstant(d)

	out := &model.MarcelProjection{
		PlayerID:             in.PlayerID,
		Domain:               d,
		Season:               avgs.Season + 1,
		SeasonWeights:        sw,
		SampleSize:           sample,
		Reliability:          sample / (sample + r),
		ProjectedPlayingTime: projPT,
		AgeFactorYears:       years,
	}

	for _, name := range types.ProjectedStats(d) {
		st, _ := types.Lookup(d, name)
		mean, _ := table.Mean(name)

		weighted, n, ok := weightedHistory(seasons, name, ptStat, d, st.Counting)
		ps := model.ProjectedStat{Stat: name, Counting: st.Counting}
		if !ok {
			weighted = mean
			ps.MeanFallback = true
		}
		f := n / (n + r)
		regressed := f*weighted + (1-f)*mean
		ps.Weighted = weighted
		ps.Regressed = regressed

		var value float64
		if st.Counting {
			value = regressed * projPT
		} else {
			value = regressed * p.ageFactor(st.Direction, years)
		}
		ps.Value = p.tally.Clamp(component, name, value, st.Min, st.Max)
		out.Stats = append(out.Stats, ps)
	}

	ptDecl, _ := types.Lookup(d, ptStat)
	out.Stats = append(out.Stats, model.ProjectedStat{
		Stat:      ptStat,
		Weighted:  projPT,
		Regressed: projPT,
		Value:     p.tally.Clamp(component, ptStat, projPT, ptDecl.Min, ptDecl.Max),
	})
	return out, nil
}

// ageFactor is additive per year from peak; aging lowers higher-is-better stats and raises
// lower-is-better stats.
func (p *Projector) ageFactor(dir types.Direction, years float64) float64 {
	if dir == types.LowerBetter {
		return 1 + p.ageDelta*years
	}
	return 1 - p.ageDelta*years
}

func (p *Projector) reliabilityConstant(d model.Domain) float64 {
	if d == model.Pitching {
		return p.pitchingR
	}
	return p.battingR
}

// playingTime is the 5/4/3 weighted history of playing time, decayed after peak.
func (p *Projector) playingTime(recent []model.SeasonStatLine, ptStat string, years float64) float64 {
	var sum, wsum float64
	for i, s := range recent {
		pt, ok := s.Stat(ptStat)
		if !ok || !types.Finite(pt) || pt < 0 {
			pt = 0
		}
		sum += Weights[i] * pt
		wsum += Weights[i]
	}
	if wsum == 0 {
		return 0
	}
	base := sum / wsum
	if years > 0 {
		base *= math.Max(playingTimeFloor, 1-playingTimeDecay*years)
	}
	return base
}

// weightedHistory returns the 5/4/3 weighted average of a stat over the three most recent seasons
// that carry it, and the playing-time sample of those seasons. Counting stats are averaged as
// per-playing-time rates.
func weightedHistory(seasons []model.SeasonStatLine, name, ptStat string, d model.Domain, counting bool) (float64, float64, bool) {
	var sum, wsum, n float64
	used := 0
	for _, s := range seasons {
		if used == len(Weights) {
			break
		}
		v, ok := s.Stat(name)
		if !ok || !types.Finite(v) {
			continue
		}
		pt, _ := s.Stat(ptStat)
		if !types.Finite(pt) || pt < 0 {
			pt = 0
		}
		if counting {
			if pt <= 0 {
				continue
			}
			v /= pt
		}
		w := Weights[used]
		sum += w * v
		wsum += w
		n += types.SampleUnits(d, pt)
		used++
	}
	if wsum == 0 {
		return 0, 0, false
	}
	return sum / wsum, n, true
}
