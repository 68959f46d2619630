// Package synth generates deterministic synthetic populations and training history.
package synth

import (
	"context"
	"fmt"
	"math"
	"math/rand"

	"github.com/google/uuid"
	"github.com/okian/valuator/internal/domain/model"
	"github.com/okian/valuator/internal/domain/types"
	"github.com/okian/valuator/pkg/logger"
)

// Months of a season with monthly splits.
const (
	firstMonth = 4
	lastMonth  = 9
)

// Age range of generated players in the evaluation season.
const (
	minAge   = 21
	ageRange = 17
)

var idSpace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("valuator.synth"))

// career is one generated player with every season up to the last generated one.
type career struct {
	input    model.PlayerInput
	outcome  *model.SeasonStatLine
	prospect bool
}

// player holds the latent traits a career is drawn from.
type player struct {
	domain     model.Domain
	talent     float64
	volatility float64
	speed      float64
	starter    bool
	closer     bool
	ageAtEval  int
	seasons    int
	prospect   bool
}

// Generate builds a population for cfg.EvalSeason with league tables computed from it.
func Generate(ctx context.Context, cfg Config) (*model.Population, error) {
	cfg = cfg.withDefaults()
	careers, err := generateCareers(ctx, cfg, cfg.EvalSeason, false, cfg.Seed)
	if err != nil {
		return nil, err
	}
	pop := &model.Population{EvalSeason: cfg.EvalSeason, Players: make([]model.PlayerInput, len(careers))}
	for i, c := range careers {
		pop.Players[i] = c.input
	}
	pop.LeagueAverages = LeagueTables(pop.Players, cfg.EvalSeason)
	logger.Get().Info(ctx, "generated synthetic population",
		logger.Int("players", len(pop.Players)),
		logger.Int("evalSeason", cfg.EvalSeason),
		logger.Int64("seed", cfg.Seed))
	return pop, nil
}

// generateCareers draws cfg.Players careers concurrently. Each index has its own seeded source
// and writes only its own slot, so the result does not depend on scheduling.
func generateCareers(ctx context.Context, cfg Config, evalSeason int, withOutcome bool, seed int64) ([]career, error) {
	type result struct {
		index int
		c     career
		err   error
	}
	out := make([]career, cfg.Players)
	results := make(chan result, cfg.Players)

	workers := min(cfg.Workers, cfg.Players)
	per := cfg.Players / workers
	for w := 0; w < workers; w++ {
		start := w * per
		end := start + per
		if w == workers-1 {
			end = cfg.Players
		}
		go func(start, end int) {
			for i := start; i < end; i++ {
				select {
				case <-ctx.Done():
					results <- result{index: i, err: ctx.Err()}
					return
				default:
					rng := rand.New(rand.NewSource(seed*1_000_003 + int64(i))) //nolint:gosec // reproducible synthetic data
					results <- result{index: i, c: generateCareer(rng, cfg, seed, i, evalSeason, withOutcome)}
				}
			}
		}(start, end)
	}

	for i := 0; i < cfg.Players; i++ {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("generation cancelled: %w", ctx.Err())
		case r := <-results:
			if r.err != nil {
				return nil, fmt.Errorf("generate player %d: %w", r.index, r.err)
			}
			out[r.index] = r.c
		}
	}
	return out, nil
}

func drawPlayer(rng *rand.Rand, cfg Config) player {
	p := player{
		domain:     model.Batting,
		talent:     rng.NormFloat64(),
		volatility: 0.5 + rng.Float64(),
		speed:      rng.NormFloat64(),
		ageAtEval:  minAge + rng.Intn(ageRange),
		seasons:    1 + rng.Intn(cfg.Seasons),
	}
	if rng.Float64() < cfg.PitcherShare {
		p.domain = model.Pitching
		p.starter = rng.Float64() < 0.6
		p.closer = !p.starter && p.talent > 0.8
	}
	if rng.Float64() < cfg.ProspectShare {
		p.prospect = true
		p.seasons = 0
	}
	return p
}

func generateCareer(rng *rand.Rand, cfg Config, seed int64, idx, evalSeason int, withOutcome bool) career {
	p := drawPlayer(rng, cfg)
	id := uuid.NewSHA1(idSpace, []byte(fmt.Sprintf("%d/%d/%d", seed, evalSeason, idx))).String()
	in := model.PlayerInput{
		PlayerID: id,
		Name:     fmt.Sprintf("Player %04d", idx),
		Domain:   p.domain,
		Age:      p.ageAtEval,
	}
	c := career{prospect: p.prospect}

	first := evalSeason - p.seasons + 1
	last := evalSeason
	if withOutcome {
		last++
	}
	var latest model.SeasonStatLine
	for season := first; season <= last; season++ {
		if p.prospect && season <= evalSeason {
			continue
		}
		age := p.ageAtEval - (evalSeason - season)
		skill := p.talent + ageDrift(p.domain, age)
		line, splits := p.season(rng, id, season, skill)
		if season > evalSeason {
			c.outcome = &line
			continue
		}
		in.Seasons = append(in.Seasons, line)
		in.Splits = append(in.Splits, splits...)
		latest = line
	}
	if !p.prospect {
		in.AuctionCost = math.Max(1, math.Round(seasonValue(latest)+rng.NormFloat64()*3))
	} else {
		in.AuctionCost = 1
	}
	c.input = in
	return c
}

// ageDrift moves skill toward the peak and away from it afterwards.
func ageDrift(d model.Domain, age int) float64 {
	gap := float64(age - types.PeakAge(d))
	if gap < 0 {
		return 0.06 * gap
	}
	return -0.05 * gap
}

func (p player) season(rng *rand.Rand, id string, season int, skill float64) (model.SeasonStatLine, []model.MonthlySplit) {
	if p.domain == model.Pitching {
		return p.pitchingSeason(rng, id, season, skill)
	}
	return p.battingSeason(rng, id, season, skill)
}

func (p player) battingSeason(rng *rand.Rand, id string, season int, skill float64) (model.SeasonStatLine, []model.MonthlySplit) {
	pa := math.Round(clamp(420+120*p.talent+rng.NormFloat64()*90, 80, 720))
	trueW := 0.315 + 0.032*skill
	luck := rng.NormFloat64() * 0.020 * math.Sqrt(600/pa)
	woba := trueW + luck
	xwoba := trueW + rng.NormFloat64()*0.006
	kp := clamp(0.225-0.035*skill+rng.NormFloat64()*0.015, 0.08, 0.40)
	bbp := clamp(0.083+0.015*skill+rng.NormFloat64()*0.01, 0.02, 0.20)
	babip := 0.296 + 1.6*luck + rng.NormFloat64()*0.008
	xba := 0.250 + 0.5*(trueW-0.315) - 0.3*(kp-0.225)
	avg := xba + 0.7*(babip-0.296)
	slg := 0.400 + 2.4*(woba-0.315)
	xslg := 0.400 + 2.4*(xwoba-0.315)
	iso := slg - avg
	obp := avg + 0.9*bbp + 0.01
	ab := math.Round(pa * (1 - bbp - 0.01))

	stats := map[string]float64{
		"pa":                pa,
		"ab":                ab,
		"h":                 math.Round(ab * avg),
		"hr":                math.Round(pa * math.Max(0.003, 0.03+0.25*(iso-0.151))),
		"r":                 math.Round(pa * math.Max(0.02, 0.115+0.4*(obp-0.315))),
		"rbi":               math.Round(pa * math.Max(0.02, 0.11+0.5*(slg-0.400))),
		"sb":                math.Round(pa * math.Max(0, 0.015+0.012*p.speed)),
		"bb":                math.Round(pa * bbp),
		"so":                math.Round(pa * kp),
		"avg":               round(avg, 3),
		"obp":               round(obp, 3),
		"slg":               round(slg, 3),
		"ops":               round(obp+slg, 3),
		"woba":              round(woba, 3),
		"xwoba":             round(xwoba, 3),
		"xba":               round(xba, 3),
		"xslg":              round(xslg, 3),
		"babip":             round(babip, 3),
		"iso":               round(iso, 3),
		"k_pct":             round(kp, 3),
		"bb_pct":            round(bbp, 3),
		"barrel_pct":        round(clamp(0.075+0.025*skill+rng.NormFloat64()*0.01, 0, 0.3), 3),
		"hard_hit_pct":      round(clamp(0.385+0.04*skill+rng.NormFloat64()*0.02, 0.1, 0.7), 3),
		"avg_exit_velocity": round(88.5+1.8*skill+rng.NormFloat64()*0.6, 1),
		"sprint_speed":      round(26.5+1.5*p.speed+rng.NormFloat64()*0.3, 1),
	}
	line := model.SeasonStatLine{PlayerID: id, Season: season, Domain: model.Batting, Stats: stats}
	return line, p.splits(rng, id, season, "woba", woba, 0.03, "pa", pa)
}

func (p player) pitchingSeason(rng *rand.Rand, id string, season int, skill float64) (model.SeasonStatLine, []model.MonthlySplit) {
	var ip float64
	if p.starter {
		ip = clamp(165+25*p.talent+rng.NormFloat64()*25, 40, 215)
	} else {
		ip = clamp(62+8*p.talent+rng.NormFloat64()*8, 20, 85)
	}
	ip = round(ip, 1)
	fipTrue := 4.10 - 0.55*skill
	luck := rng.NormFloat64() * 0.55 * math.Sqrt(150/ip)
	era := math.Max(0.5, fipTrue+luck)
	kp := clamp(0.225+0.04*skill+rng.NormFloat64()*0.01, 0.1, 0.45)
	bbp := clamp(0.083-0.012*skill+rng.NormFloat64()*0.008, 0.02, 0.18)

	gs, g, w, sv := 0.0, math.Round(ip/1.05), math.Round(ip/9*0.25), 0.0
	if p.starter {
		gs = math.Round(ip / 5.8)
		g = gs
		w = math.Round(ip / 9 * math.Max(0.1, 0.45+0.08*skill))
	}
	if p.closer {
		sv = math.Round(math.Max(0, 25+5*p.talent+rng.NormFloat64()*4))
	}

	stats := map[string]float64{
		"ip":        ip,
		"g":         g,
		"gs":        gs,
		"w":         w,
		"sv":        sv,
		"so":        math.Round(ip * kp * 4.3),
		"era":       round(era, 2),
		"whip":      round(math.Max(0.6, 1.28-0.1*skill+0.08*luck), 2),
		"fip":       round(fipTrue+rng.NormFloat64()*0.1, 2),
		"xfip":      round(fipTrue+rng.NormFloat64()*0.2, 2),
		"xera":      round(math.Max(0.5, fipTrue+rng.NormFloat64()*0.15), 2),
		"babip":     round(clamp(0.292+0.03*luck, 0.2, 0.4), 3),
		"lob_pct":   round(clamp(0.72-0.04*luck, 0.5, 0.95), 3),
		"hr_fb":     round(clamp(0.125+0.015*luck+rng.NormFloat64()*0.01, 0.02, 0.3), 3),
		"k_pct":     round(kp, 3),
		"bb_pct":    round(bbp, 3),
		"k_bb_pct":  round(kp-bbp, 3),
		"swstr_pct": round(clamp(0.11+0.02*skill, 0.04, 0.2), 3),
		"csw_pct":   round(clamp(0.285+0.015*skill, 0.2, 0.38), 3),
		"gb_pct":    round(clamp(0.43+rng.NormFloat64()*0.05, 0.25, 0.65), 3),
	}
	line := model.SeasonStatLine{PlayerID: id, Season: season, Domain: model.Pitching, Stats: stats}
	return line, p.splits(rng, id, season, "era", era, 1.2, "ip", ip)
}

// splits draws monthly values around the season value. One player in ten loses part of
// the season.
func (p player) splits(rng *rand.Rand, id string, season int, stat string, value, spread float64, ptStat string, pt float64) []model.MonthlySplit {
	months := lastMonth - firstMonth + 1
	if rng.Float64() < 0.1 {
		months = 1 + rng.Intn(3)
	}
	out := make([]model.MonthlySplit, months)
	for i := range out {
		v := value + rng.NormFloat64()*spread*p.volatility
		if stat == "era" {
			v = math.Max(0, v)
		}
		out[i] = model.MonthlySplit{
			PlayerID: id,
			Season:   season,
			Month:    firstMonth + i,
			Stats: map[string]float64{
				stat:   round(v, 3),
				ptStat: round(pt/float64(months), 1),
			},
		}
	}
	return out
}

// seasonValue is a rough fantasy value of one season used for costs and outcomes.
func seasonValue(line model.SeasonStatLine) float64 {
	if line.Domain == model.Pitching {
		era, _ := line.Stat("era")
		ip, _ := line.Stat("ip")
		return (5.0 - era) * ip / 10
	}
	woba, _ := line.Stat("woba")
	pa, _ := line.Stat("pa")
	return (woba - 0.290) * pa / 2
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
