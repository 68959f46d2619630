package synth

import "runtime"

// Config holds the generator settings.
type Config struct {
	Players        int     // number of players in the population
	EvalSeason     int     // last completed season
	Seasons        int     // maximum seasons of history per player
	HistorySeasons int     // cohorts in the training history
	PitcherShare   float64 // share of pitchers
	ProspectShare  float64 // share of players without any season line
	Seed           int64   // base seed; same seed, same output
	Workers        int     // concurrent generator goroutines
}

// Default generator settings.
const (
	DefaultPlayers        = 300
	DefaultEvalSeason     = 2024
	DefaultSeasons        = 4
	DefaultHistorySeasons = 3
	DefaultPitcherShare   = 0.4
	DefaultProspectShare  = 0.02
	DefaultSeed           = 7
)

// DefaultConfig returns the default generator settings.
func DefaultConfig() Config {
	return Config{
		Players:        DefaultPlayers,
		EvalSeason:     DefaultEvalSeason,
		Seasons:        DefaultSeasons,
		HistorySeasons: DefaultHistorySeasons,
		PitcherShare:   DefaultPitcherShare,
		ProspectShare:  DefaultProspectShare,
		Seed:           DefaultSeed,
		Workers:        runtime.NumCPU(),
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Players <= 0 {
		c.Players = d.Players
	}
	if c.EvalSeason <= 0 {
		c.EvalSeason = d.EvalSeason
	}
	if c.Seasons <= 0 {
		c.Seasons = d.Seasons
	}
	if c.HistorySeasons <= 0 {
		c.HistorySeasons = d.HistorySeasons
	}
	if c.PitcherShare <= 0 || c.PitcherShare >= 1 {
		c.PitcherShare = d.PitcherShare
	}
	if c.ProspectShare < 0 || c.ProspectShare >= 1 {
		c.ProspectShare = d.ProspectShare
	}
	if c.Workers <= 0 {
		c.Workers = d.Workers
	}
	return c
}
