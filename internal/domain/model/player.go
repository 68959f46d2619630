// Package model contains domain models passed between layers.
package model

import "fmt"

// Domain is the evaluation domain of a player record.
type Domain string

// Supported domains. A two-way player is evaluated once per domain.
const (
	Batting  Domain = "batting"
	Pitching Domain = "pitching"
)

// Valid reports whether d is a known domain.
func (d Domain) Valid() bool {
	return d == Batting || d == Pitching
}

// PlayerKey identifies one evaluation unit in a run.
type PlayerKey struct {
	PlayerID string
	Domain   Domain
}

func (k PlayerKey) String() string {
	return fmt.Sprintf("%s/%s", k.PlayerID, k.Domain)
}

// Less orders keys by player id, then domain.
func (k PlayerKey) Less(o PlayerKey) bool {
	if k.PlayerID != o.PlayerID {
		return k.PlayerID < o.PlayerID
	}
	return k.Domain < o.Domain
}

// SeasonStatLine is one player's season of aggregate stats. A missing key is an absent stat.
type SeasonStatLine struct {
	PlayerID string             `yaml:"player_id" json:"player_id"`
	Season   int                `yaml:"season" json:"season"`
	Domain   Domain             `yaml:"domain" json:"domain"`
	Stats    map[string]float64 `yaml:"stats" json:"stats"`
}

// Stat returns the named stat and whether it is present.
func (s SeasonStatLine) Stat(name string) (float64, bool) {
	v, ok := s.Stats[name]
	return v, ok
}

// MonthlySplit is one month of a season for the primary skill stat and friends.
type MonthlySplit struct {
	PlayerID string             `yaml:"player_id" json:"player_id"`
	Season   int                `yaml:"season" json:"season"`
	Month    int                `yaml:"month" json:"month"`
	Stats    map[string]float64 `yaml:"stats" json:"stats"`
}

// PlayerInput is everything the per-player stage reads for one key.
type PlayerInput struct {
	PlayerID string           `yaml:"player_id"`
	Name     string           `yaml:"name"`
	Domain   Domain           `yaml:"domain"`
	Age      int              `yaml:"age"`
	Seasons  []SeasonStatLine `yaml:"seasons"`
	Splits   []MonthlySplit   `yaml:"splits"`

	// AuctionCost is the preseason price used as a training label input. Zero when unknown.
	AuctionCost float64 `yaml:"auction_cost"`
}

// Key returns the player's evaluation key.
func (p PlayerInput) Key() PlayerKey {
	return PlayerKey{PlayerID: p.PlayerID, Domain: p.Domain}
}

// SeasonsDesc returns the seasons belonging to the player's domain, most recent first,
// keeping only seasons at or before evalSeason.
func (p PlayerInput) SeasonsDesc(evalSeason int) []SeasonStatLine {
	out := make([]SeasonStatLine, 0, len(p.Seasons))
	for _, s := range p.Seasons {
		if s.Domain != "" && s.Domain != p.Domain {
			continue
		}
		if evalSeason > 0 && s.Season > evalSeason {
			continue
		}
		out = append(out, s)
	}
	// insertion sort; season lists are short
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].Season > out[j-1].Season; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}

// SplitsFor returns the monthly splits of one season ordered by month.
func (p PlayerInput) SplitsFor(season int) []MonthlySplit {
	var out []MonthlySplit
	for _, s := range p.Splits {
		if s.Season == season {
			out = append(out, s)
		}
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].Month < out[j-1].Month; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}
