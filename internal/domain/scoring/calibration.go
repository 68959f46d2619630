package scoring

import "sort"

// Calibrate maps a raw probability through a piecewise-linear, non-decreasing table.
// Values outside the table take the nearest endpoint. An empty table is the identity.
func Calibrate(points []CalibrationPoint, raw float64) float64 {
	n := len(points)
	if n == 0 {
		return raw
	}
	if raw <= points[0].Raw {
		return points[0].Calibrated
	}
	if raw >= points[n-1].Raw {
		return points[n-1].Calibrated
	}
	i := sort.Search(n, func(i int) bool { return points[i].Raw >= raw })
	lo, hi := points[i-1], points[i]
	t := (raw - lo.Raw) / (hi.Raw - lo.Raw)
	return lo.Calibrated + t*(hi.Calibrated-lo.Calibrated)
}
