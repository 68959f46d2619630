package types_test

import (
	"math"
	"testing"

	"github.com/okian/valuator/internal/domain/model"
	types "github.com/okian/valuator/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

func TestCatalogue(t *testing.T) {
	Convey("Given the stat catalogue", t, func() {
		Convey("When a stat exists in both domains", func() {
			bat, okBat := types.Lookup(model.Batting, "k_pct")
			pit, okPit := types.Lookup(model.Pitching, "k_pct")

			Convey("Then each domain keeps its own direction", func() {
				So(okBat, ShouldBeTrue)
				So(okPit, ShouldBeTrue)
				So(bat.Direction, ShouldEqual, types.LowerBetter)
				So(pit.Direction, ShouldEqual, types.HigherBetter)
				So(bat.Domain, ShouldEqual, model.Batting)
			})
		})

		Convey("When every projected stat is looked up", func() {
			Convey("Then it is declared", func() {
				for _, d := range []model.Domain{model.Batting, model.Pitching} {
					for _, name := range types.ProjectedStats(d) {
						_, ok := types.Lookup(d, name)
						So(ok, ShouldBeTrue)
					}
				}
			})
		})

		Convey("When a value is clamped", func() {
			s, _ := types.Lookup(model.Batting, "avg")
			v, clamped := s.Clamp(1.4)
			So(v, ShouldEqual, 1)
			So(clamped, ShouldBeTrue)
			v, clamped = s.Clamp(0.3)
			So(v, ShouldEqual, 0.3)
			So(clamped, ShouldBeFalse)
		})

		Convey("When differences are oriented", func() {
			So(types.Better(model.Pitching, "era", 3.0, 4.0), ShouldEqual, 1.0)
			So(types.Better(model.Batting, "woba", 0.350, 0.320), ShouldAlmostEqual, 0.03, 1e-12)
		})

		Convey("Then domain helpers follow the domain", func() {
			So(types.PeakAge(model.Batting), ShouldEqual, 27)
			So(types.PeakAge(model.Pitching), ShouldEqual, 26)
			So(types.SampleUnits(model.Pitching, 100), ShouldEqual, 300)
			So(types.PlayingTimeStat(model.Batting), ShouldEqual, "pa")
			So(types.RegressionStat(model.Pitching), ShouldEqual, "fip")
			So(types.ConsistencyStat(model.Pitching), ShouldEqual, "era")
			So(types.Finite(math.NaN()), ShouldBeFalse)
			So(types.Finite(math.Inf(-1)), ShouldBeFalse)
			So(types.Finite(1), ShouldBeTrue)
		})
	})
}

func TestPercentileRanks(t *testing.T) {
	Convey("Given values to rank", t, func() {
		Convey("When there are ties", func() {
			p := types.PercentileRanks([]float64{3, 1, 3, 2, 5})

			Convey("Then ties share the average rank", func() {
				So(p[1], ShouldEqual, 0)
				So(p[3], ShouldEqual, 0.25)
				So(p[0], ShouldEqual, 0.625)
				So(p[2], ShouldEqual, 0.625)
				So(p[4], ShouldEqual, 1)
			})
		})

		Convey("When there is a single value", func() {
			So(types.PercentileRanks([]float64{7}), ShouldResemble, []float64{0.5})
		})

		Convey("When all values tie", func() {
			So(types.PercentileRanks([]float64{2, 2}), ShouldResemble, []float64{0.5, 0.5})
		})

		Convey("When empty", func() {
			So(len(types.PercentileRanks(nil)), ShouldEqual, 0)
		})
	})
}

func TestMergeSeasons(t *testing.T) {
	Convey("Given a batter traded mid-season", t, func() {
		in := model.PlayerInput{PlayerID: "b1", Domain: model.Batting, Seasons: []model.SeasonStatLine{
			{Season: 2024, Stats: map[string]float64{"pa": 300, "hr": 10, "woba": 0.300}},
			{Season: 2023, Stats: map[string]float64{"pa": 550, "hr": 20, "woba": 0.320}},
			{Season: 2024, Stats: map[string]float64{"pa": 100, "hr": 5, "woba": 0.380, "sb": 4}},
		}}
		out := types.MergeSeasons(in)

		Convey("Then each season appears once in first-stint order", func() {
			So(out.Seasons, ShouldHaveLength, 2)
			So(out.Seasons[0].Season, ShouldEqual, 2024)
			So(out.Seasons[1].Season, ShouldEqual, 2023)
			So(in.Seasons, ShouldHaveLength, 3)
		})

		Convey("Then volume and counting stats add up", func() {
			So(out.Seasons[0].Stats["pa"], ShouldEqual, 400)
			So(out.Seasons[0].Stats["hr"], ShouldEqual, 15)
			So(out.Seasons[0].Stats["sb"], ShouldEqual, 4)
		})

		Convey("Then rate stats are weighted by playing time", func() {
			So(out.Seasons[0].Stats["woba"], ShouldAlmostEqual, (300*0.300+100*0.380)/400, 1e-12)
			So(out.SeasonsDesc(2024), ShouldHaveLength, 2)
		})
	})

	Convey("Given seasons that do not repeat", t, func() {
		in := model.PlayerInput{PlayerID: "p1", Domain: model.Pitching, Seasons: []model.SeasonStatLine{
			{Season: 2024, Stats: map[string]float64{"ip": 60}},
			{Season: 2024, Domain: model.Batting, Stats: map[string]float64{"pa": 20}},
		}}
		So(types.MergeSeasons(in).Seasons, ShouldHaveLength, 2)
	})
}
