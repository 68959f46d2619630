package features

import (
	"fmt"

	"github.com/okian/valuator/internal/domain/model"
	"github.com/okian/valuator/internal/domain/types"
)

// Definition declares one feature: its formula, valid range and how to compute it.
type Definition struct {
	Name         string
	Formula      string
	Min          float64
	Max          float64
	Differential bool

	compute func(c *buildContext) (float64, bool)
}

// League fallbacks used when a reference table omits the stat.
const (
	defaultLeagueBABIP = 0.296
	defaultLeagueLOB   = 0.72
	defaultLeagueHRFB  = 0.132
)

var (
	battingTrendStats = []string{
		"barrel_pct", "hard_hit_pct", "k_pct", "bb_pct", "avg_exit_velocity",
		"woba", "xwoba", "iso", "sprint_speed",
	}
	battingLatestStats = []string{
		"barrel_pct", "hard_hit_pct", "k_pct", "bb_pct", "avg_exit_velocity",
		"sprint_speed", "woba", "xwoba", "iso", "babip",
	}
	pitchingTrendStats = []string{
		"k_pct", "bb_pct", "k_bb_pct", "swstr_pct", "csw_pct", "gb_pct",
		"era", "fip", "whip",
	}
	pitchingLatestStats = []string{
		"k_pct", "bb_pct", "k_bb_pct", "swstr_pct", "csw_pct", "era", "fip",
		"xfip", "xera", "whip", "gb_pct", "lob_pct", "hr_fb",
	}
)

var catalogues = map[model.Domain][]Definition{
	model.Batting:  buildCatalogue(model.Batting),
	model.Pitching: buildCatalogue(model.Pitching),
}

// Catalogue returns the declared features of a domain in declaration order.
func Catalogue(d model.Domain) []Definition {
	return catalogues[d]
}

// Names returns the feature names of a domain in declaration order.
func Names(d model.Domain) []string {
	defs := catalogues[d]
	out := make([]string, len(defs))
	for i, def := range defs {
		out[i] = def.Name
	}
	return out
}

// DifferentialNames returns the names of the domain's outcome-minus-quality features.
func DifferentialNames(d model.Domain) []string {
	var out []string
	for _, def := range catalogues[d] {
		if def.Differential {
			out = append(out, def.Name)
		}
	}
	return out
}

// PrimaryDifferential is the differential the regression model leans on hardest.
func PrimaryDifferential(d model.Domain) string {
	if d == model.Pitching {
		return "fip_minus_era"
	}
	return "woba_minus_xwoba"
}

func buildCatalogue(d model.Domain) []Definition {
	var defs []Definition
	if d == model.Batting {
		defs = append(defs,
			differential("woba_minus_xwoba", "latest woba - xwoba", 0.3, expectedGap("woba", "xwoba")),
			differential("avg_minus_xba", "latest avg - xba", 0.3, expectedGap("avg", "xba")),
			differential("slg_minus_xslg", "latest slg - xslg", 0.6, expectedGap("slg", "xslg")),
			differential("babip_minus_league", "latest babip - league babip", 0.3,
				leagueGap("babip", defaultLeagueBABIP, false)),
		)
	} else {
		defs = append(defs,
			differential("fip_minus_era", "latest fip - era", 6, expectedGap("fip", "era")),
			differential("xera_minus_era", "latest xera - era", 6, expectedGap("xera", "era")),
			differential("xfip_minus_fip", "latest xfip - fip", 4, expectedGap("xfip", "fip")),
			differential("league_babip_minus_babip", "league babip - latest babip", 0.3,
				leagueGap("babip", defaultLeagueBABIP, true)),
			differential("lob_pct_minus_league", "latest lob% - league lob%", 0.4,
				leagueGap("lob_pct", defaultLeagueLOB, false)),
			differential("league_hr_fb_minus_hr_fb", "league hr/fb - latest hr/fb", 0.4,
				leagueGap("hr_fb", defaultLeagueHRFB, true)),
		)
	}

	trend := battingTrendStats
	latest := battingLatestStats
	if d == model.Pitching {
		trend = pitchingTrendStats
		latest = pitchingLatestStats
	}
	for _, name := range trend {
		span := statSpan(d, name)
		defs = append(defs,
			Definition{
				Name:    name + "_yoy_delta",
				Formula: fmt.Sprintf("%s in the latest season with it minus the one before", name),
				Min:     -span, Max: span,
				compute: yoyDelta(name),
			},
			Definition{
				Name:    name + "_3yr_slope",
				Formula: fmt.Sprintf("OLS slope of %s over the last three seasons with it", name),
				Min:     -span, Max: span,
				compute: slope(name, 3),
			},
		)
	}

	peak := float64(types.PeakAge(d))
	defs = append(defs,
		Definition{Name: "age", Formula: "age in the evaluation season", Min: 15, Max: 50,
			compute: func(c *buildContext) (float64, bool) { return float64(c.in.Age), c.in.Age > 0 }},
		Definition{Name: "years_from_peak", Formula: "age - peak age", Min: -35, Max: 35,
			compute: func(c *buildContext) (float64, bool) { return float64(c.in.Age) - peak, c.in.Age > 0 }},
		Definition{Name: "age_bucket", Formula: "0 pre-peak, 1 peak, 2 early decline, 3 late decline", Min: 0, Max: 3,
			compute: func(c *buildContext) (float64, bool) { return float64(AgeBucket(c.in.Age, int(peak))), c.in.Age > 0 }},
		Definition{Name: "pre_peak", Formula: "1 when age < peak age", Min: 0, Max: 1,
			compute: func(c *buildContext) (float64, bool) { return boolFloat(c.in.Age < int(peak)), c.in.Age > 0 }},
	)

	pt := types.PlayingTimeStat(d)
	ptSpan := statSpan(d, pt)
	if d == model.Pitching {
		defs = append(defs, Definition{Name: "is_starter", Formula: "1 when latest gs > 5", Min: 0, Max: 1,
			compute: func(c *buildContext) (float64, bool) {
				gs, ok := c.latest("gs")
				return boolFloat(gs > 5), ok
			}})
	}
	defs = append(defs,
		Definition{Name: pt + "_latest", Formula: "latest " + pt, Min: 0, Max: ptSpan,
			compute: func(c *buildContext) (float64, bool) { return c.latest(pt) }},
		Definition{Name: pt + "_yoy_delta", Formula: pt + " change from the prior season", Min: -ptSpan, Max: ptSpan,
			compute: yoyDelta(pt)},
	)

	for _, name := range latest {
		s, _ := types.Lookup(d, name)
		n := name
		defs = append(defs, Definition{Name: "latest_" + name, Formula: "latest season " + name, Min: s.Min, Max: s.Max,
			compute: func(c *buildContext) (float64, bool) { return c.latest(n) }})
	}

	defs = append(defs, Definition{Name: "seasons_available", Formula: "count of usable seasons", Min: 0, Max: 30,
		compute: func(c *buildContext) (float64, bool) { return float64(len(c.seasons)), true }})
	return defs
}

func differential(name, formula string, span float64, fn func(c *buildContext) (float64, bool)) Definition {
	return Definition{Name: name, Formula: formula, Min: -span, Max: span, Differential: true, compute: fn}
}

// AgeBucket encodes age relative to peak: 0 pre-peak, 1 peak, 2 early decline, 3 late decline.
func AgeBucket(age, peak int) int {
	switch {
	case age < peak:
		return 0
	case age <= peak+2:
		return 1
	case age <= 32:
		return 2
	default:
		return 3
	}
}

func statSpan(d model.Domain, name string) float64 {
	s, ok := types.Lookup(d, name)
	if !ok {
		return 1
	}
	return s.Max - s.Min
}

func boolFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
