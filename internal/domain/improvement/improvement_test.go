package improvement_test

import (
	"errors"
	"testing"

	"github.com/okian/valuator/internal/domain/improvement"
	"github.com/okian/valuator/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func line(season int, stats map[string]float64) model.SeasonStatLine {
	return model.SeasonStatLine{PlayerID: "b1", Season: season, Domain: model.Batting, Stats: stats}
}

func TestScore(t *testing.T) {
	Convey("Given an improvement scorer", t, func() {
		s := improvement.NewScorer(nil)

		Convey("When a young batter cuts strikeouts every year", func() {
			in := model.PlayerInput{PlayerID: "b1", Domain: model.Batting, Age: 24, Seasons: []model.SeasonStatLine{
				line(2022, map[string]float64{"pa": 400, "k_pct": 0.30}),
				line(2023, map[string]float64{"pa": 500, "k_pct": 0.27}),
				line(2024, map[string]float64{"pa": 550, "k_pct": 0.24}),
			}}
			res, err := s.Score(in, 2024)

			Convey("Then the score is positive and the stat is improving", func() {
				So(err, ShouldBeNil)
				So(res.Score, ShouldBeGreaterThan, 0)
				So(res.Breakdown.SeasonsUsed, ShouldResemble, []int{2022, 2023, 2024})
				So(res.Breakdown.AgeMultiplier, ShouldEqual, 1.2)
				So(len(res.Breakdown.Stats), ShouldEqual, 1)
				k := res.Breakdown.Stats[0]
				So(k.Slope, ShouldAlmostEqual, -0.03, 1e-9)
				So(k.RSquared, ShouldAlmostEqual, 1, 1e-9)
				So(k.Direction, ShouldEqual, "improving")
				// -0.03/0.27 flipped, x 1.2 x 500
				So(res.Score, ShouldAlmostEqual, 66.7, 0.05)
			})
		})

		Convey("When a veteran's contact rate collapses", func() {
			in := model.PlayerInput{PlayerID: "b1", Domain: model.Batting, Age: 35, Seasons: []model.SeasonStatLine{
				line(2023, map[string]float64{"pa": 500, "k_pct": 0.15}),
				line(2024, map[string]float64{"pa": 500, "k_pct": 0.40}),
			}}
			res, err := s.Score(in, 2024)

			Convey("Then the score is negative and bounded", func() {
				So(err, ShouldBeNil)
				So(res.Score, ShouldBeLessThan, 0)
				So(res.Score, ShouldBeGreaterThanOrEqualTo, -100)
			})
		})

		Convey("When only one season qualifies", func() {
			in := model.PlayerInput{PlayerID: "b1", Domain: model.Batting, Age: 25, Seasons: []model.SeasonStatLine{
				line(2023, map[string]float64{"pa": 120, "k_pct": 0.20}),
				line(2024, map[string]float64{"pa": 500, "k_pct": 0.22}),
			}}
			_, err := s.Score(in, 2024)
			So(errors.Is(err, model.ErrInsufficientData), ShouldBeTrue)
		})
	})

	Convey("Given ages across the curve", t, func() {
		So(improvement.AgeMultiplier(26), ShouldEqual, 1.2)
		So(improvement.AgeMultiplier(29), ShouldEqual, 1.0)
		So(improvement.AgeMultiplier(32), ShouldEqual, 0.6)
		So(improvement.AgeMultiplier(33), ShouldEqual, 0.3)
	})
}
