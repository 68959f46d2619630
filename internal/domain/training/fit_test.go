package training

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestFitIsotonic(t *testing.T) {
	Convey("Given scores with a violation", t, func() {
		raw := []float64{0.1, 0.2, 0.3, 0.4, 0.5}
		y := []bool{false, true, false, true, true}
		pts := fitIsotonic(raw, y)

		Convey("Then adjacent violators are pooled", func() {
			So(pts, ShouldHaveLength, 4)
			So(pts[1].Raw, ShouldAlmostEqual, 0.25, 1e-12)
			So(pts[1].Calibrated, ShouldEqual, 0.5)
		})

		Convey("Then the table is monotone", func() {
			for i := 1; i < len(pts); i++ {
				So(pts[i].Raw, ShouldBeGreaterThan, pts[i-1].Raw)
				So(pts[i].Calibrated, ShouldBeGreaterThanOrEqualTo, pts[i-1].Calibrated)
			}
		})
	})
}

func TestFitRidge(t *testing.T) {
	Convey("Given a centered linear relation", t, func() {
		z := [][]float64{{-2}, {-1}, {0}, {1}, {2}}
		y := []float64{-3, -1, 1, 3, 5}

		intercept, w, err := fitRidge(z, y, 1e-9)
		So(err, ShouldBeNil)

		Convey("Then the slope and mean are recovered", func() {
			So(intercept, ShouldAlmostEqual, 1, 1e-9)
			So(w[0], ShouldAlmostEqual, 2, 1e-6)
		})
	})
}
