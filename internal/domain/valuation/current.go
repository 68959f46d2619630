package valuation

import (
	"github.com/okian/valuator/internal/domain/model"
	"github.com/okian/valuator/internal/domain/types"
)

// CurrentPercentiles ranks each domain pool on its primary rate stat, oriented so that a
// higher percentile is a better player. Entries without the stat are left out. League
// settings play no part, so components built on it do not move between leagues.
func CurrentPercentiles(pool []PoolEntry) map[model.PlayerKey]float64 {
	byDomain := make(map[model.Domain][]PoolEntry)
	for _, e := range pool {
		byDomain[e.Key.Domain] = append(byDomain[e.Key.Domain], e)
	}
	out := make(map[model.PlayerKey]float64, len(pool))
	for d, entries := range byDomain {
		name := types.RegressionStat(d)
		keys := make([]model.PlayerKey, 0, len(entries))
		values := make([]float64, 0, len(entries))
		for _, e := range entries {
			v, ok := e.Stats[name]
			if !ok || !types.Finite(v) {
				continue
			}
			keys = append(keys, e.Key)
			values = append(values, types.Better(d, name, v, 0))
		}
		for i, pct := range types.PercentileRanks(values) {
			out[keys[i]] = pct
		}
	}
	return out
}
