package training

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"

	"github.com/okian/valuator/internal/domain/scoring"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"
	"gonum.org/v1/gonum/stat"
)

// ErrFitFailed is returned when an optimizer produced no usable parameters.
var ErrFitFailed = errors.New("fit failed")

// design is a centered and scaled feature matrix. Nulls sit at zero.
type design struct {
	names []string
	means []float64
	sds   []float64
	z     [][]float64
}

// newDesign centers each column on the mean of its valid values and scales by its spread.
func newDesign(names []string, rows [][]float64, valid [][]bool) *design {
	p := len(names)
	d := &design{names: names, means: make([]float64, p), sds: make([]float64, p), z: make([][]float64, len(rows))}
	col := make([]float64, 0, len(rows))
	for j := 0; j < p; j++ {
		col = col[:0]
		for i := range rows {
			if valid[i][j] {
				col = append(col, rows[i][j])
			}
		}
		if len(col) > 0 {
			d.means[j] = stat.Mean(col, nil)
		}
		if len(col) > 1 {
			d.sds[j] = stat.StdDev(col, nil)
		}
	}
	for i := range rows {
		d.z[i] = make([]float64, p)
		for j := 0; j < p; j++ {
			if valid[i][j] && d.sds[j] > 0 {
				d.z[i][j] = (rows[i][j] - d.means[j]) / d.sds[j]
			}
		}
	}
	return d
}

// unscale converts standardized weights to coefficients on centered raw inputs.
func (d *design) unscale(w []float64) []float64 {
	out := make([]float64, len(w))
	for j, v := range w {
		if d.sds[j] > 0 {
			out[j] = v / d.sds[j]
		}
	}
	return out
}

// fitLogistic minimizes the L2-penalized mean log loss with L-BFGS. x[0] is the intercept.
func fitLogistic(z [][]float64, y []bool, l2 float64) (float64, []float64, error) {
	n := float64(len(z))
	p := len(z[0])
	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			loss := 0.0
			for i, row := range z {
				eta := x[0] + floats.Dot(x[1:], row)
				// log(1+exp(eta)) - y*eta, written to stay finite for large |eta|
				loss += math.Max(eta, 0) + math.Log1p(math.Exp(-math.Abs(eta)))
				if y[i] {
					loss -= eta
				}
			}
			return loss/n + 0.5*l2*floats.Dot(x[1:], x[1:])
		},
		Grad: func(grad, x []float64) {
			for j := range grad {
				grad[j] = 0
			}
			for i, row := range z {
				r := sigmoid(x[0] + floats.Dot(x[1:], row))
				if y[i] {
					r--
				}
				grad[0] += r / n
				for j, v := range row {
					grad[j+1] += r * v / n
				}
			}
			for j := 1; j <= p; j++ {
				grad[j] += l2 * x[j]
			}
		},
	}
	res, err := optimize.Minimize(problem, make([]float64, p+1), nil, &optimize.LBFGS{})
	if res == nil {
		return 0, nil, fmt.Errorf("%w: %v", ErrFitFailed, err)
	}
	for _, v := range res.X {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, nil, fmt.Errorf("%w: non-finite logistic weights", ErrFitFailed)
		}
	}
	return res.X[0], res.X[1:], nil
}

// fitIsotonic builds a non-decreasing calibration table with pool-adjacent-violators.
func fitIsotonic(raw []float64, y []bool) []scoring.CalibrationPoint {
	type block struct {
		sumX, sumY, w float64
	}
	idx := make([]int, len(raw))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return raw[idx[a]] < raw[idx[b]] })

	var blocks []block
	for k := 0; k < len(idx); {
		b := block{}
		x := raw[idx[k]]
		for k < len(idx) && raw[idx[k]] == x {
			b.sumX += x
			if y[idx[k]] {
				b.sumY++
			}
			b.w++
			k++
		}
		blocks = append(blocks, b)
		for len(blocks) > 1 {
			last, prev := blocks[len(blocks)-1], blocks[len(blocks)-2]
			if prev.sumY/prev.w <= last.sumY/last.w {
				break
			}
			blocks = blocks[:len(blocks)-2]
			blocks = append(blocks, block{sumX: prev.sumX + last.sumX, sumY: prev.sumY + last.sumY, w: prev.w + last.w})
		}
	}

	out := make([]scoring.CalibrationPoint, len(blocks))
	for i, b := range blocks {
		out[i] = scoring.CalibrationPoint{Raw: b.sumX / b.w, Calibrated: b.sumY / b.w}
	}
	return out
}

// fitRidge solves (ZᵀZ + λI)β = Zᵀ(y - ȳ) and returns ȳ as the intercept.
func fitRidge(z [][]float64, y []float64, l2 float64) (float64, []float64, error) {
	n, p := len(z), len(z[0])
	ybar := stat.Mean(y, nil)
	X := mat.NewDense(n, p, nil)
	yc := mat.NewVecDense(n, nil)
	for i, row := range z {
		X.SetRow(i, row)
		yc.SetVec(i, y[i]-ybar)
	}
	var A mat.Dense
	A.Mul(X.T(), X)
	for j := 0; j < p; j++ {
		A.Set(j, j, A.At(j, j)+l2*float64(n))
	}
	var b mat.VecDense
	b.MulVec(X.T(), yc)
	var beta mat.VecDense
	if err := beta.SolveVec(&A, &b); err != nil {
		return 0, nil, fmt.Errorf("%w: ridge solve: %v", ErrFitFailed, err)
	}
	out := make([]float64, p)
	for j := range out {
		out[j] = beta.AtVec(j)
	}
	return ybar, out, nil
}

// bootstrap returns n indices drawn with replacement.
func bootstrap(rng *rand.Rand, n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = rng.Intn(n)
	}
	return out
}

func sigmoid(x float64) float64 {
	if x >= 0 {
		return 1 / (1 + math.Exp(-x))
	}
	e := math.Exp(x)
	return e / (1 + e)
}
