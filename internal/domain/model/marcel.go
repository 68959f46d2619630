package model

// SeasonWeight is the normalized weight one season received in a Marcel projection.
type SeasonWeight struct {
	Season int     `json:"season"`
	Weight float64 `json:"weight"`
}

// ProjectedStat is a single Marcel output.
//
// Weighted is the raw 5/4/3 weighted average over the seasons with the stat, Regressed
// blends it toward the league mean, and Value applies the age adjustment (and playing time
// for counting stats). MeanFallback marks a stat absent from every season.
type ProjectedStat struct {
	Stat         string  `json:"stat"`
	Weighted     float64 `json:"weighted"`
	Regressed    float64 `json:"regressed"`
	Value        float64 `json:"value"`
	Counting     bool    `json:"counting,omitempty"`
	MeanFallback bool    `json:"mean_fallback,omitempty"`
}

// MarcelProjection is the next-season baseline of one player key.
type MarcelProjection struct {
	PlayerID             string          `json:"player_id"`
	Domain               Domain          `json:"domain"`
	Season               int             `json:"season"`
	Stats                []ProjectedStat `json:"stats"`
	SeasonWeights        []SeasonWeight  `json:"season_weights"`
	SampleSize           float64         `json:"sample_size"`
	Reliability          float64         `json:"reliability"`
	ProjectedPlayingTime float64         `json:"projected_playing_time"`
	AgeFactorYears       float64         `json:"age_factor_years"`
}

// Stat returns the projected stat by name.
func (m *MarcelProjection) Stat(name string) (ProjectedStat, bool) {
	if m == nil {
		return ProjectedStat{}, false
	}
	for _, s := range m.Stats {
		if s.Stat == name {
			return s, true
		}
	}
	return ProjectedStat{}, false
}

// Values returns stat -> projected value, the form published on records.
func (m *MarcelProjection) Values() map[string]float64 {
	if m == nil {
		return nil
	}
	out := make(map[string]float64, len(m.Stats)+1)
	for _, s := range m.Stats {
		out[s.Stat] = s.Value
	}
	return out
}
