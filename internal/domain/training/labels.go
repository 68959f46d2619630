package training

import (
	"github.com/okian/valuator/internal/domain/model"
	"github.com/okian/valuator/internal/domain/types"
)

// Label cut-offs on percentile ranks.
const (
	sleeperMaxCostPct  = 0.60
	sleeperMinValuePct = 0.60
	bustMinCostPct     = 0.70
	bustMaxValuePct    = 0.40
	bustPlayingTimeCut = 0.50
)

// Sample is one player-season with the next season's realized outcome.
type Sample struct {
	Player model.PlayerInput `yaml:"player"`

	// Cost is the preseason auction price.
	Cost float64 `yaml:"cost"`
	// NextValue is the realized fantasy value of the following season.
	NextValue float64 `yaml:"next_value"`
	// NextPlayingTime is the following season's PA or IP.
	NextPlayingTime float64 `yaml:"next_playing_time"`
	// NextPrimary is the following season's regression stat (wOBA or FIP); nil when unknown.
	NextPrimary *float64 `yaml:"next_primary"`
}

// HistorySeason groups samples that share an evaluation season and league tables.
type HistorySeason struct {
	League  model.LeagueAverages `yaml:"league"`
	Samples []Sample             `yaml:"samples"`
}

// History is the training input file.
type History struct {
	Seasons []HistorySeason `yaml:"seasons"`
}

// Labels holds the binary targets of one cohort.
type Labels struct {
	Sleeper []bool
	Bust    []bool
}

// BuildLabels labels a cohort of one season and domain.
//
// Sleeper: cost in the bottom 60% and value in the top 40%.
// Bust: cost in the top 30% and value outside the top 60%, or at least half of the expected
// playing time lost. The cost cut-offs make the two sets disjoint.
func BuildLabels(cohort []Sample, expectedPlayingTime []float64) Labels {
	costs := make([]float64, len(cohort))
	values := make([]float64, len(cohort))
	for i, s := range cohort {
		costs[i] = s.Cost
		values[i] = s.NextValue
	}
	costPct := types.PercentileRanks(costs)
	valuePct := types.PercentileRanks(values)

	out := Labels{Sleeper: make([]bool, len(cohort)), Bust: make([]bool, len(cohort))}
	for i, s := range cohort {
		out.Sleeper[i] = costPct[i] <= sleeperMaxCostPct && valuePct[i] >= sleeperMinValuePct
		if costPct[i] < bustMinCostPct {
			continue
		}
		lostTime := i < len(expectedPlayingTime) && expectedPlayingTime[i] > 0 &&
			s.NextPlayingTime <= bustPlayingTimeCut*expectedPlayingTime[i]
		out.Bust[i] = valuePct[i] < bustMaxValuePct || lostTime
	}
	return out
}
