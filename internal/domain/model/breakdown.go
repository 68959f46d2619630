package model

// SeasonConsistency holds the instability components of one season.
type SeasonConsistency struct {
	Season        int     `json:"season"`
	Months        int     `json:"months"`
	CV            float64 `json:"cv"`
	IQRRatio      float64 `json:"iqr_ratio"`
	BelowAverage  float64 `json:"below_average_share"`
	DrawdownRatio float64 `json:"drawdown_ratio"`
	Instability   float64 `json:"instability"`
	Weight        float64 `json:"weight"`
}

// ConsistencyBreakdown explains a consistency score.
type ConsistencyBreakdown struct {
	Stat           string              `json:"stat"`
	Seasons        []SeasonConsistency `json:"seasons"`
	RawInstability float64             `json:"raw_instability"`
	Percentile     float64             `json:"percentile"`
}

// StatTrend is one skill stat's multi-season trend.
type StatTrend struct {
	Stat            string  `json:"stat"`
	Slope           float64 `json:"slope"`
	RSquared        float64 `json:"r_squared"`
	NormalizedSlope float64 `json:"normalized_slope"`
	Signal          float64 `json:"signal"`
	Weight          float64 `json:"weight"`
	Direction       string  `json:"direction"`
}

// ImprovementBreakdown explains an improvement score.
type ImprovementBreakdown struct {
	SeasonsUsed   []int       `json:"seasons_used"`
	AgeMultiplier float64     `json:"age_multiplier"`
	Signal        float64     `json:"signal"`
	Stats         []StatTrend `json:"stats"`
}
