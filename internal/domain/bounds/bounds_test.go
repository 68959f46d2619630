package bounds_test

import (
	"math"
	"sync"
	"testing"

	"github.com/okian/valuator/internal/domain/bounds"
	. "github.com/smartystreets/goconvey/convey"
)

func TestTally(t *testing.T) {
	Convey("Given a tally", t, func() {
		tally := bounds.NewTally()

		Convey("When values are in range", func() {
			v := tally.Score("sleeper", "score", 55)

			Convey("Then they pass through uncounted", func() {
				So(v, ShouldEqual, 55)
				So(tally.Total(), ShouldEqual, 0)
			})
		})

		Convey("When values are out of range or not finite", func() {
			So(tally.Score("sleeper", "score", 120), ShouldEqual, 100)
			So(tally.Score("sleeper", "score", -3), ShouldEqual, 0)
			So(tally.Probability("bust", "probability", math.NaN()), ShouldEqual, 0)
			So(tally.Clamp("trajectory", "value", math.Inf(1), 0, 10), ShouldEqual, 10)

			Convey("Then every clamp is counted by component and field", func() {
				snap := tally.Snapshot()
				So(len(snap), ShouldEqual, 3)
				So(snap[0], ShouldResemble, bounds.Count{Component: "bust", Field: "probability", N: 1})
				So(snap[1], ShouldResemble, bounds.Count{Component: "sleeper", Field: "score", N: 2})
				So(tally.Total(), ShouldEqual, 4)
			})
		})

		Convey("When many goroutines clamp concurrently", func() {
			var wg sync.WaitGroup
			for i := 0; i < 50; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					tally.Score("composite", "ai_value_score", 101)
				}()
			}
			wg.Wait()

			So(tally.Total(), ShouldEqual, 50)
		})

		Convey("When the tally is nil", func() {
			var nilTally *bounds.Tally

			Convey("Then clamping still works", func() {
				So(nilTally.Score("x", "y", 200), ShouldEqual, 100)
				So(nilTally.Total(), ShouldEqual, 0)
			})
		})
	})
}
