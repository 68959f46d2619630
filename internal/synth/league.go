package synth

import (
	"sort"

	"github.com/okian/valuator/internal/domain/consistency"
	"github.com/okian/valuator/internal/domain/model"
	"github.com/okian/valuator/internal/domain/types"
	"gonum.org/v1/gonum/stat"
)

// LeagueTables computes evalSeason league references from the players' own lines. Rate stats
// are playing-time weighted means; counting stats are league totals per playing-time unit.
// Monthly references are the average monthly IQR and drawdown of the consistency stat.
func LeagueTables(players []model.PlayerInput, evalSeason int) model.LeagueAverages {
	out := model.LeagueAverages{Season: evalSeason, Tables: make(map[model.Domain]model.LeagueTable)}
	for _, d := range []model.Domain{model.Batting, model.Pitching} {
		table, ok := leagueTable(players, evalSeason, d)
		if ok {
			out.Tables[d] = table
		}
	}
	return out
}

func leagueTable(players []model.PlayerInput, evalSeason int, d model.Domain) (model.LeagueTable, bool) {
	ptStat := types.PlayingTimeStat(d)
	cStat := types.ConsistencyStat(d)

	values := make(map[string][]float64)
	weights := make(map[string][]float64)
	var iqrs, drawdowns []float64
	for _, p := range players {
		if p.Domain != d {
			continue
		}
		for _, s := range p.SeasonsDesc(evalSeason) {
			if s.Season != evalSeason {
				continue
			}
			pt, _ := s.Stat(ptStat)
			if pt <= 0 {
				continue
			}
			for name, v := range s.Stats {
				if !types.Finite(v) {
					continue
				}
				values[name] = append(values[name], v)
				weights[name] = append(weights[name], pt)
			}
		}
		monthly := monthlyValues(p.SplitsFor(evalSeason), cStat)
		if len(monthly) >= 2 {
			iqrs = append(iqrs, consistency.IQR(monthly))
			oriented := monthly
			if st, ok := types.Lookup(d, cStat); ok && st.Direction == types.LowerBetter {
				oriented = make([]float64, len(monthly))
				for i, v := range monthly {
					oriented[i] = -v
				}
			}
			drawdowns = append(drawdowns, consistency.MaxDrawdown(oriented))
		}
	}
	if len(values) == 0 {
		return model.LeagueTable{}, false
	}

	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)

	table := model.LeagueTable{Means: make(map[string]float64, len(names))}
	for _, name := range names {
		st, known := types.Lookup(d, name)
		if known && st.Counting {
			total, pt := 0.0, 0.0
			for i, v := range values[name] {
				total += v
				pt += weights[name][i]
			}
			table.Means[name] = total / pt
			continue
		}
		table.Means[name] = stat.Mean(values[name], weights[name])
	}
	if len(iqrs) > 0 {
		table.MonthlyIQR = stat.Mean(iqrs, nil)
		table.MonthlyDrawdown = stat.Mean(drawdowns, nil)
	}
	return table, true
}

func monthlyValues(splits []model.MonthlySplit, name string) []float64 {
	out := make([]float64, 0, len(splits))
	for _, sp := range splits {
		if v, ok := sp.Stats[name]; ok && types.Finite(v) {
			out = append(out, v)
		}
	}
	return out
}
