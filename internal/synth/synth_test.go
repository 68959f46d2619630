package synth_test

import (
	"context"
	"testing"

	"github.com/okian/valuator/internal/domain/marcel"
	"github.com/okian/valuator/internal/domain/model"
	"github.com/okian/valuator/internal/synth"
	"github.com/okian/valuator/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func TestGenerate(t *testing.T) {
	Convey("Given a small generator config", t, func() {
		ctx := context.Background()
		cfg := synth.Config{Players: 60, EvalSeason: 2024, Seed: 11, Workers: 4, ProspectShare: 0.1}

		pop, err := synth.Generate(ctx, cfg)
		So(err, ShouldBeNil)

		Convey("Then every player is generated with a unique key", func() {
			So(pop.Players, ShouldHaveLength, 60)
			seen := map[model.PlayerKey]bool{}
			for _, p := range pop.Players {
				So(seen[p.Key()], ShouldBeFalse)
				seen[p.Key()] = true
				So(p.Domain.Valid(), ShouldBeTrue)
			}
		})

		Convey("Then no season lies after the evaluation season", func() {
			for _, p := range pop.Players {
				for _, s := range p.Seasons {
					So(s.Season, ShouldBeLessThanOrEqualTo, 2024)
				}
			}
		})

		Convey("Then the league tables cover every projected stat", func() {
			So(pop.LeagueAverages.Season, ShouldEqual, 2024)
			So(marcel.ValidateTables(pop.LeagueAverages, model.Batting, model.Pitching), ShouldBeNil)
			So(pop.LeagueAverages.Table(model.Batting).MonthlyIQR, ShouldBeGreaterThan, 0)
		})

		Convey("Then the same seed yields the same population regardless of workers", func() {
			cfg.Workers = 1
			again, err := synth.Generate(ctx, cfg)
			So(err, ShouldBeNil)
			So(again, ShouldResemble, pop)
		})

		Convey("Then a different seed yields different players", func() {
			cfg.Seed = 12
			other, err := synth.Generate(ctx, cfg)
			So(err, ShouldBeNil)
			So(other.Players[0].PlayerID, ShouldNotEqual, pop.Players[0].PlayerID)
		})
	})

	Convey("Given a cancelled context", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := synth.Generate(ctx, synth.Config{Players: 50, Workers: 2})

		Convey("Then generation fails", func() {
			So(err, ShouldNotBeNil)
		})
	})
}

func TestHistory(t *testing.T) {
	Convey("Given a history config", t, func() {
		h, err := synth.History(context.Background(), synth.Config{Players: 40, EvalSeason: 2024, HistorySeasons: 2, Seed: 3, Workers: 2})
		So(err, ShouldBeNil)

		Convey("Then cohorts run in season order before the evaluation season", func() {
			So(h.Seasons, ShouldHaveLength, 2)
			So(h.Seasons[0].League.Season, ShouldEqual, 2022)
			So(h.Seasons[1].League.Season, ShouldEqual, 2023)
		})

		Convey("Then every sample carries its outcome", func() {
			for _, hs := range h.Seasons {
				So(hs.Samples, ShouldNotBeEmpty)
				for _, s := range hs.Samples {
					So(s.NextPrimary, ShouldNotBeNil)
					So(s.NextPlayingTime, ShouldBeGreaterThan, 0)
					So(s.Cost, ShouldBeGreaterThanOrEqualTo, 1)
					for _, line := range s.Player.Seasons {
						So(line.Season, ShouldBeLessThanOrEqualTo, hs.League.Season)
					}
				}
			}
		})
	})
}
