package model

// LeagueTable holds league reference values for one domain of the evaluation season.
// Counting stats are stored as rates per playing-time unit (per PA or per IP).
type LeagueTable struct {
	Means map[string]float64 `yaml:"means" json:"means"`

	// Monthly references for the primary skill stat.
	MonthlyIQR      float64 `yaml:"monthly_iqr" json:"monthly_iqr"`
	MonthlyDrawdown float64 `yaml:"monthly_drawdown" json:"monthly_drawdown"`
}

// Mean returns the league mean of a stat and whether the table carries it.
func (t LeagueTable) Mean(stat string) (float64, bool) {
	v, ok := t.Means[stat]
	return v, ok
}

// LeagueAverages is the read-only reference table shared by every worker in a run.
type LeagueAverages struct {
	Season int                    `yaml:"season" json:"season"`
	Tables map[Domain]LeagueTable `yaml:"tables" json:"tables"`
}

// Table returns the domain table, or an empty table when the domain is missing.
func (a LeagueAverages) Table(d Domain) LeagueTable {
	return a.Tables[d]
}

// ScoringType selects how a league turns projected stats into value.
type ScoringType string

// Supported scoring types.
const (
	Roto          ScoringType = "roto"
	H2HCategories ScoringType = "h2h_categories"
	H2HPoints     ScoringType = "h2h_points"
)

const (
	defaultMinBid      = 1.0
	defaultBudget      = 260.0
	defaultTeams       = 12
	defaultHitterShare = 0.65
)

// LeagueSettings describes the fantasy league a run prices players for.
type LeagueSettings struct {
	ScoringType ScoringType                   `yaml:"scoring_type" json:"scoring_type"`
	NumTeams    int                           `yaml:"num_teams" json:"num_teams"`
	Budget      float64                       `yaml:"budget" json:"budget"`
	HitterShare float64                       `yaml:"hitter_share" json:"hitter_share"`
	MinBid      float64                       `yaml:"min_bid" json:"min_bid"`
	Roster      map[Domain]int                `yaml:"roster" json:"roster"`
	Categories  map[Domain][]string           `yaml:"categories" json:"categories"`
	SGP         map[string]float64            `yaml:"sgp" json:"sgp"`
	Points      map[Domain]map[string]float64 `yaml:"points" json:"points"`
}

// DefaultLeagueSettings returns a 12-team 5x5 roto league.
func DefaultLeagueSettings() LeagueSettings {
	return LeagueSettings{
		ScoringType: Roto,
		NumTeams:    defaultTeams,
		Budget:      defaultBudget,
		HitterShare: defaultHitterShare,
		MinBid:      defaultMinBid,
		Roster:      map[Domain]int{Batting: 14, Pitching: 10},
		Categories: map[Domain][]string{
			Batting:  {"hr", "rbi", "r", "sb", "avg"},
			Pitching: {"w", "sv", "so", "era", "whip"},
		},
		SGP: map[string]float64{
			"hr": 8.5, "rbi": 25, "r": 25, "sb": 8,
			"avg": 0.004, "obp": 0.005, "slg": 0.007, "ops": 0.010,
			"w": 3, "sv": 7, "so": 30, "era": -0.18, "whip": -0.015,
		},
		Points: map[Domain]map[string]float64{
			Batting:  {"hr": 4, "r": 1, "rbi": 1, "sb": 2, "bb": 1},
			Pitching: {"ip": 3, "so": 1, "w": 5, "sv": 5},
		},
	}
}

// WithDefaults fills zero fields from DefaultLeagueSettings.
func (s LeagueSettings) WithDefaults() LeagueSettings {
	d := DefaultLeagueSettings()
	if s.ScoringType == "" {
		s.ScoringType = d.ScoringType
	}
	if s.NumTeams == 0 {
		s.NumTeams = d.NumTeams
	}
	if s.Budget == 0 {
		s.Budget = d.Budget
	}
	if s.HitterShare == 0 {
		s.HitterShare = d.HitterShare
	}
	if s.MinBid == 0 {
		s.MinBid = d.MinBid
	}
	if len(s.Roster) == 0 {
		s.Roster = d.Roster
	}
	if len(s.Categories) == 0 {
		s.Categories = d.Categories
	}
	if len(s.SGP) == 0 {
		s.SGP = d.SGP
	}
	if len(s.Points) == 0 {
		s.Points = d.Points
	}
	return s
}

// ShareFor returns the budget share of a domain.
func (s LeagueSettings) ShareFor(d Domain) float64 {
	if d == Batting {
		return s.HitterShare
	}
	return 1 - s.HitterShare
}

// SlotsFor returns the number of rostered players league-wide for a domain.
func (s LeagueSettings) SlotsFor(d Domain) int {
	return s.Roster[d] * s.NumTeams
}
