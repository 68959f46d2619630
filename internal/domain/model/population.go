package model

// Population is the run input: league reference tables and the players to evaluate.
type Population struct {
	EvalSeason     int            `yaml:"eval_season" json:"eval_season"`
	LeagueAverages LeagueAverages `yaml:"league_averages" json:"league_averages"`
	Players        []PlayerInput  `yaml:"players" json:"players"`
}

// Averages returns the league tables with the evaluation season filled in.
func (p Population) Averages() LeagueAverages {
	a := p.LeagueAverages
	if a.Season == 0 {
		a.Season = p.EvalSeason
	}
	return a
}
