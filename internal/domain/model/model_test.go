package model_test

import (
	"errors"
	"fmt"
	"testing"

	model "github.com/okian/valuator/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

func TestPlayerInput(t *testing.T) {
	convey.Convey("Given a two-way player with unordered seasons", t, func() {
		in := model.PlayerInput{
			PlayerID: "p1",
			Domain:   model.Batting,
			Seasons: []model.SeasonStatLine{
				{Season: 2022, Domain: model.Batting},
				{Season: 2024, Domain: model.Batting},
				{Season: 2024, Domain: model.Pitching},
				{Season: 2023, Domain: model.Batting},
				{Season: 2025, Domain: model.Batting},
			},
			Splits: []model.MonthlySplit{
				{Season: 2024, Month: 6},
				{Season: 2024, Month: 4},
				{Season: 2023, Month: 5},
			},
		}

		convey.Convey("When seasons are selected for the evaluation season", func() {
			seasons := in.SeasonsDesc(2024)

			convey.Convey("Then only the domain's seasons up to it remain, most recent first", func() {
				convey.So(len(seasons), convey.ShouldEqual, 3)
				convey.So(seasons[0].Season, convey.ShouldEqual, 2024)
				convey.So(seasons[1].Season, convey.ShouldEqual, 2023)
				convey.So(seasons[2].Season, convey.ShouldEqual, 2022)
			})
		})

		convey.Convey("When splits are selected", func() {
			splits := in.SplitsFor(2024)

			convey.Convey("Then they are ordered by month", func() {
				convey.So(len(splits), convey.ShouldEqual, 2)
				convey.So(splits[0].Month, convey.ShouldEqual, 4)
				convey.So(splits[1].Month, convey.ShouldEqual, 6)
			})
		})

		convey.Convey("Then the key names player and domain", func() {
			convey.So(in.Key().String(), convey.ShouldEqual, "p1/batting")
			convey.So(in.Key().Less(model.PlayerKey{PlayerID: "p1", Domain: model.Pitching}), convey.ShouldBeTrue)
		})
	})
}

func TestFeatureVector(t *testing.T) {
	convey.Convey("Given a feature vector with a null", t, func() {
		fv := model.NewFeatureVector(model.PlayerKey{PlayerID: "p", Domain: model.Batting}, 2024, "v1",
			[]model.FeatureValue{{Name: "age", Value: 27, Valid: true}, {Name: "woba_minus_xwoba"}})

		convey.So(fv.NullCount(), convey.ShouldEqual, 1)
		v, ok := fv.Get("age")
		convey.So(ok, convey.ShouldBeTrue)
		convey.So(v, convey.ShouldEqual, 27)
		_, ok = fv.Get("woba_minus_xwoba")
		convey.So(ok, convey.ShouldBeFalse)
		_, ok = fv.Get("unknown")
		convey.So(ok, convey.ShouldBeFalse)
	})
}

func TestRunID(t *testing.T) {
	convey.Convey("Given a run date and model version", t, func() {
		a := model.NewRunID("2025-03-01", "v3")
		b := model.NewRunID("2025-03-01", "v3")
		c := model.NewRunID("2025-03-01", "v4")

		convey.So(a, convey.ShouldEqual, b)
		convey.So(a, convey.ShouldNotEqual, c)
		convey.So(len(a), convey.ShouldEqual, 36)
	})
}

func TestErrors(t *testing.T) {
	convey.Convey("Given typed domain errors", t, func() {
		ins := fmt.Errorf("player p1: %w", model.NewInsufficientData("marcel", "no seasons"))
		convey.So(errors.Is(ins, model.ErrInsufficientData), convey.ShouldBeTrue)
		var target *model.InsufficientDataError
		convey.So(errors.As(ins, &target), convey.ShouldBeTrue)
		convey.So(target.Component, convey.ShouldEqual, "marcel")

		cause := errors.New("bad coefficient")
		mu := &model.ModelUnavailableError{Family: model.FamilySleeper, Domain: model.Batting, Err: cause}
		convey.So(errors.Is(mu, model.ErrModelUnavailable), convey.ShouldBeTrue)
		convey.So(errors.Is(mu, cause), convey.ShouldBeTrue)
		convey.So(mu.Error(), convey.ShouldContainSubstring, "sleeper/batting")
	})
}

func TestLeagueSettings(t *testing.T) {
	convey.Convey("Given partial league settings", t, func() {
		s := model.LeagueSettings{NumTeams: 10}.WithDefaults()

		convey.So(s.NumTeams, convey.ShouldEqual, 10)
		convey.So(s.Budget, convey.ShouldEqual, 260)
		convey.So(s.SlotsFor(model.Batting), convey.ShouldEqual, 140)
		convey.So(s.ShareFor(model.Pitching), convey.ShouldAlmostEqual, 0.35, 1e-9)
	})
}
