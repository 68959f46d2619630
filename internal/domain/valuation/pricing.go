package valuation

import (
	"fmt"
	"math"
	"sort"

	"github.com/okian/valuator/internal/domain/bounds"
	"github.com/okian/valuator/internal/domain/model"
	"github.com/okian/valuator/internal/domain/types"
	"github.com/shopspring/decimal"
	"gonum.org/v1/gonum/stat"
)

// Replacement quantiles for category SGP.
const (
	replacementHigher = 0.25
	replacementLower  = 0.75
)

// PoolEntry is one player key's projected stats entering league pricing.
type PoolEntry struct {
	Key   model.PlayerKey
	Stats map[string]float64
}

// Pricer converts projected stats into league value and auction dollars.
type Pricer struct {
	league model.LeagueSettings
	tally  *bounds.Tally
}

// NewPricer validates league settings and returns a Pricer.
func NewPricer(league model.LeagueSettings, tally *bounds.Tally) (*Pricer, error) {
	league = league.WithDefaults()
	if err := ValidateLeague(league); err != nil {
		return nil, err
	}
	return &Pricer{league: league, tally: tally}, nil
}

// League returns the effective league settings.
func (p *Pricer) League() model.LeagueSettings {
	return p.league
}

// ValidateLeague checks that settings can price both domains.
func ValidateLeague(s model.LeagueSettings) error {
	switch s.ScoringType {
	case model.Roto, model.H2HCategories, model.H2HPoints:
	default:
		return fmt.Errorf("%w: unknown scoring type %q", ErrInvalidLeague, s.ScoringType)
	}
	if s.NumTeams <= 0 || s.Budget <= 0 || s.MinBid <= 0 {
		return fmt.Errorf("%w: teams, budget and min bid must be positive", ErrInvalidLeague)
	}
	if s.HitterShare <= 0 || s.HitterShare >= 1 {
		return fmt.Errorf("%w: hitter share %v outside (0,1)", ErrInvalidLeague, s.HitterShare)
	}
	for _, d := range []model.Domain{model.Batting, model.Pitching} {
		slots := s.SlotsFor(d)
		if slots <= 0 {
			return fmt.Errorf("%w: no %s roster slots", ErrInvalidLeague, d)
		}
		if s.Budget*float64(s.NumTeams)*s.ShareFor(d) < float64(slots)*s.MinBid {
			return fmt.Errorf("%w: %s budget cannot cover the minimum bids", ErrInvalidLeague, d)
		}
		if s.ScoringType == model.H2HPoints {
			if len(s.Points[d]) == 0 {
				return fmt.Errorf("%w: no %s point weights", ErrInvalidLeague, d)
			}
			continue
		}
		if len(s.Categories[d]) == 0 {
			return fmt.Errorf("%w: no %s categories", ErrInvalidLeague, d)
		}
		for _, c := range s.Categories[d] {
			den, ok := s.SGP[c]
			if !ok || den == 0 || !types.Finite(den) {
				return fmt.Errorf("%w: category %s has no SGP denominator", ErrInvalidLeague, c)
			}
		}
	}
	return nil
}

// Price values every entry against the rest of its domain pool. The result does not depend
// on the order of entries.
func (p *Pricer) Price(pool []PoolEntry) map[model.PlayerKey]model.LeaguePrice {
	byDomain := make(map[model.Domain][]PoolEntry)
	for _, e := range pool {
		byDomain[e.Key.Domain] = append(byDomain[e.Key.Domain], e)
	}
	out := make(map[model.PlayerKey]model.LeaguePrice, len(pool))
	for d, entries := range byDomain {
		sort.Slice(entries, func(i, j int) bool { return entries[i].Key.Less(entries[j].Key) })
		var values []float64
		if p.league.ScoringType == model.H2HPoints {
			values = p.points(d, entries)
		} else {
			values = p.sgp(d, entries)
		}
		p.dollars(d, entries, values, out)
	}
	return out
}

func (p *Pricer) points(d model.Domain, entries []PoolEntry) []float64 {
	weights := p.league.Points[d]
	names := sortedKeys(weights)
	out := make([]float64, len(entries))
	for i, e := range entries {
		for _, name := range names {
			if v, ok := e.Stats[name]; ok && types.Finite(v) {
				out[i] += weights[name] * v
			}
		}
	}
	return out
}

// sgp sums standings gain points per category against a quantile replacement level. A player
// missing a category contributes nothing for it.
func (p *Pricer) sgp(d model.Domain, entries []PoolEntry) []float64 {
	out := make([]float64, len(entries))
	for _, c := range p.league.Categories[d] {
		den := p.league.SGP[c]
		lower := den < 0
		if st, ok := types.Lookup(d, c); ok && st.Direction == types.LowerBetter {
			lower = true
		}

		present := make([]float64, 0, len(entries))
		for _, e := range entries {
			if v, ok := e.Stats[c]; ok && types.Finite(v) {
				present = append(present, v)
			}
		}
		if len(present) == 0 {
			continue
		}
		sort.Float64s(present)
		q := replacementHigher
		if lower {
			q = replacementLower
		}
		repl := stat.Quantile(q, stat.LinInterp, present, nil)

		for i, e := range entries {
			v, ok := e.Stats[c]
			if !ok || !types.Finite(v) {
				continue
			}
			if lower {
				out[i] += (repl - v) / math.Abs(den)
			} else {
				out[i] += (v - repl) / math.Abs(den)
			}
		}
	}
	return out
}

// dollars ranks the pool, takes the first unrostered value as replacement and splits the
// distributable budget by value above replacement.
func (p *Pricer) dollars(d model.Domain, entries []PoolEntry, values []float64, out map[model.PlayerKey]model.LeaguePrice) {
	order := make([]int, len(entries))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		if values[order[a]] != values[order[b]] {
			return values[order[a]] > values[order[b]]
		}
		return entries[order[a]].Key.Less(entries[order[b]].Key)
	})

	slots := p.league.SlotsFor(d)
	replacement := 0.0
	if len(order) > slots {
		replacement = values[order[slots]]
	}

	vars := make([]decimal.Decimal, len(entries))
	total := decimal.Zero
	for i, v := range values {
		if over := v - replacement; over > 0 && types.Finite(over) {
			vars[i] = decimal.NewFromFloat(over)
			total = total.Add(vars[i])
		}
	}

	minBid := decimal.NewFromFloat(p.league.MinBid)
	pot := decimal.NewFromFloat(p.league.Budget).
		Mul(decimal.NewFromInt(int64(p.league.NumTeams))).
		Mul(decimal.NewFromFloat(p.league.ShareFor(d))).
		Sub(minBid.Mul(decimal.NewFromInt(int64(slots))))

	pcts := types.PercentileRanks(values)
	rostered := make([]bool, len(entries))
	for rank, i := range order {
		rostered[i] = rank < slots
	}
	for i, e := range entries {
		dollars := minBid
		if vars[i].IsPositive() && total.IsPositive() {
			dollars = vars[i].Div(total).Mul(pot).Add(minBid)
		}
		auction, _ := dollars.Round(2).Float64()
		out[e.Key] = model.LeaguePrice{
			LeagueValue:  values[i],
			Percentile:   p.tally.Probability(component, "percentile", pcts[i]),
			AuctionValue: auction,
			Rostered:     rostered[i],
		}
	}
}

func sortedKeys(m map[string]float64) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
