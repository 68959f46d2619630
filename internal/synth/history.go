package synth

import (
	"context"

	"github.com/okian/valuator/internal/domain/model"
	"github.com/okian/valuator/internal/domain/training"
	"github.com/okian/valuator/internal/domain/types"
	"github.com/okian/valuator/pkg/logger"
)

// History builds cfg.HistorySeasons labelled cohorts ending the season before cfg.EvalSeason.
// Each cohort is an independent population whose following season is the outcome.
func History(ctx context.Context, cfg Config) (*training.History, error) {
	cfg = cfg.withDefaults()
	h := &training.History{}
	for k := cfg.HistorySeasons; k >= 1; k-- {
		eval := cfg.EvalSeason - k
		careers, err := generateCareers(ctx, cfg, eval, true, cfg.Seed+int64(eval))
		if err != nil {
			return nil, err
		}
		players := make([]model.PlayerInput, 0, len(careers))
		for _, c := range careers {
			players = append(players, c.input)
		}
		hs := training.HistorySeason{League: LeagueTables(players, eval)}
		for _, c := range careers {
			if c.prospect || c.outcome == nil {
				continue
			}
			hs.Samples = append(hs.Samples, sample(c))
		}
		h.Seasons = append(h.Seasons, hs)
	}
	logger.Get().Info(ctx, "generated synthetic training history",
		logger.Int("cohorts", len(h.Seasons)),
		logger.Int("playersPerCohort", cfg.Players))
	return h, nil
}

func sample(c career) training.Sample {
	d := c.input.Domain
	s := training.Sample{
		Player:    c.input,
		Cost:      c.input.AuctionCost,
		NextValue: seasonValue(*c.outcome),
	}
	s.NextPlayingTime, _ = c.outcome.Stat(types.PlayingTimeStat(d))
	if v, ok := c.outcome.Stat(types.RegressionStat(d)); ok {
		s.NextPrimary = &v
	}
	return s
}
