// Package types is the stat catalogue shared across the domain packages.
package types

import (
	"math"

	"github.com/okian/valuator/internal/domain/model"
)

// Direction says which way a stat is better.
type Direction int

// Better directions.
const (
	HigherBetter Direction = 1
	LowerBetter  Direction = -1
)

// Stat declares one stat of a domain.
type Stat struct {
	Name      string
	Domain    model.Domain
	Direction Direction
	Min       float64
	Max       float64
	// Counting stats are projected as a per-playing-time rate times projected playing time.
	Counting bool
}

// Clamp limits v to the declared range.
func (s Stat) Clamp(v float64) (float64, bool) {
	if v < s.Min {
		return s.Min, true
	}
	if v > s.Max {
		return s.Max, true
	}
	return v, false
}

// Peak ages.
const (
	BattingPeakAge  = 27
	PitchingPeakAge = 26
)

// Playing-time stats.
const (
	PlateAppearances = "pa"
	InningsPitched   = "ip"
)

var catalogue = map[model.Domain][]Stat{
	model.Batting: {
		{Name: "pa", Direction: HigherBetter, Min: 0, Max: 800},
		{Name: "ab", Direction: HigherBetter, Min: 0, Max: 750},
		{Name: "h", Direction: HigherBetter, Min: 0, Max: 270, Counting: true},
		{Name: "hr", Direction: HigherBetter, Min: 0, Max: 80, Counting: true},
		{Name: "r", Direction: HigherBetter, Min: 0, Max: 180, Counting: true},
		{Name: "rbi", Direction: HigherBetter, Min: 0, Max: 190, Counting: true},
		{Name: "sb", Direction: HigherBetter, Min: 0, Max: 130, Counting: true},
		{Name: "bb", Direction: HigherBetter, Min: 0, Max: 250, Counting: true},
		{Name: "so", Direction: LowerBetter, Min: 0, Max: 300, Counting: true},
		{Name: "avg", Direction: HigherBetter, Min: 0, Max: 1},
		{Name: "obp", Direction: HigherBetter, Min: 0, Max: 1},
		{Name: "slg", Direction: HigherBetter, Min: 0, Max: 4},
		{Name: "ops", Direction: HigherBetter, Min: 0, Max: 5},
		{Name: "woba", Direction: HigherBetter, Min: 0, Max: 2},
		{Name: "xwoba", Direction: HigherBetter, Min: 0, Max: 2},
		{Name: "xba", Direction: HigherBetter, Min: 0, Max: 1},
		{Name: "xslg", Direction: HigherBetter, Min: 0, Max: 4},
		{Name: "babip", Direction: HigherBetter, Min: 0, Max: 1},
		{Name: "iso", Direction: HigherBetter, Min: 0, Max: 3},
		{Name: "k_pct", Direction: LowerBetter, Min: 0, Max: 1},
		{Name: "bb_pct", Direction: HigherBetter, Min: 0, Max: 1},
		{Name: "barrel_pct", Direction: HigherBetter, Min: 0, Max: 1},
		{Name: "hard_hit_pct", Direction: HigherBetter, Min: 0, Max: 1},
		{Name: "avg_exit_velocity", Direction: HigherBetter, Min: 40, Max: 125},
		{Name: "sprint_speed", Direction: HigherBetter, Min: 10, Max: 40},
	},
	model.Pitching: {
		{Name: "ip", Direction: HigherBetter, Min: 0, Max: 300},
		{Name: "g", Direction: HigherBetter, Min: 0, Max: 100},
		{Name: "gs", Direction: HigherBetter, Min: 0, Max: 40},
		{Name: "w", Direction: HigherBetter, Min: 0, Max: 30, Counting: true},
		{Name: "sv", Direction: HigherBetter, Min: 0, Max: 70, Counting: true},
		{Name: "so", Direction: HigherBetter, Min: 0, Max: 400, Counting: true},
		{Name: "era", Direction: LowerBetter, Min: 0, Max: 30},
		{Name: "whip", Direction: LowerBetter, Min: 0, Max: 5},
		{Name: "fip", Direction: LowerBetter, Min: -5, Max: 30},
		{Name: "xfip", Direction: LowerBetter, Min: -5, Max: 30},
		{Name: "xera", Direction: LowerBetter, Min: 0, Max: 30},
		{Name: "babip", Direction: LowerBetter, Min: 0, Max: 1},
		{Name: "lob_pct", Direction: HigherBetter, Min: 0, Max: 1},
		{Name: "hr_fb", Direction: LowerBetter, Min: 0, Max: 1},
		{Name: "k_pct", Direction: HigherBetter, Min: 0, Max: 1},
		{Name: "bb_pct", Direction: LowerBetter, Min: 0, Max: 1},
		{Name: "k_bb_pct", Direction: HigherBetter, Min: -1, Max: 1},
		{Name: "swstr_pct", Direction: HigherBetter, Min: 0, Max: 1},
		{Name: "csw_pct", Direction: HigherBetter, Min: 0, Max: 1},
		{Name: "gb_pct", Direction: HigherBetter, Min: 0, Max: 1},
	},
}

// Marcel targets in declaration order.
var projected = map[model.Domain][]string{
	model.Batting: {
		"avg", "obp", "slg", "ops", "woba", "iso", "babip", "k_pct", "bb_pct",
		"hr", "r", "rbi", "sb", "bb",
	},
	model.Pitching: {
		"era", "whip", "fip", "k_pct", "bb_pct", "k_bb_pct",
		"w", "sv", "so",
	},
}

var index = func() map[model.Domain]map[string]Stat {
	out := make(map[model.Domain]map[string]Stat, len(catalogue))
	for d, stats := range catalogue {
		m := make(map[string]Stat, len(stats))
		for _, s := range stats {
			s.Domain = d
			m[s.Name] = s
		}
		out[d] = m
	}
	return out
}()

// Lookup returns the declaration of a stat in a domain.
func Lookup(d model.Domain, name string) (Stat, bool) {
	s, ok := index[d][name]
	return s, ok
}

// Stats returns the domain's declared stats in declaration order.
func Stats(d model.Domain) []Stat {
	out := make([]Stat, 0, len(catalogue[d]))
	for _, s := range catalogue[d] {
		s.Domain = d
		out = append(out, s)
	}
	return out
}

// ProjectedStats returns the Marcel target stats of a domain.
func ProjectedStats(d model.Domain) []string {
	return append([]string(nil), projected[d]...)
}

// PeakAge returns the domain's peak age.
func PeakAge(d model.Domain) int {
	if d == model.Pitching {
		return PitchingPeakAge
	}
	return BattingPeakAge
}

// PlayingTimeStat returns "pa" or "ip".
func PlayingTimeStat(d model.Domain) string {
	if d == model.Pitching {
		return InningsPitched
	}
	return PlateAppearances
}

// SampleUnits converts playing time to the unit the reliability constant is expressed in:
// plate appearances for batting, outs for pitching.
func SampleUnits(d model.Domain, playingTime float64) float64 {
	if d == model.Pitching {
		return 3 * playingTime
	}
	return playingTime
}

// FullTimePlayingTime is a full season of plate appearances or innings.
func FullTimePlayingTime(d model.Domain) float64 {
	if d == model.Pitching {
		return 180
	}
	return 650
}

// ConsistencyStat is the monthly stat consistency is measured on.
func ConsistencyStat(d model.Domain) string {
	if d == model.Pitching {
		return "era"
	}
	return "woba"
}

// RegressionStat is the stat the regression direction is expressed in.
func RegressionStat(d model.Domain) string {
	if d == model.Pitching {
		return "fip"
	}
	return "woba"
}

// Better orients a difference a-b so that a positive result means a is better.
func Better(d model.Domain, name string, a, b float64) float64 {
	s, ok := Lookup(d, name)
	if ok && s.Direction == LowerBetter {
		return b - a
	}
	return a - b
}

// Finite reports whether v is neither NaN nor infinite.
func Finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
