// Package training fits the sleeper, bust and regression artifacts from labelled history.
package training

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"

	"github.com/okian/valuator/internal/domain/features"
	"github.com/okian/valuator/internal/domain/marcel"
	"github.com/okian/valuator/internal/domain/model"
	"github.com/okian/valuator/internal/domain/scoring"
	"github.com/okian/valuator/internal/domain/types"
	"gonum.org/v1/gonum/stat"
)

// Defaults.
const (
	DefaultSeed       = 42
	DefaultL2         = 0.05
	DefaultMembers    = 10
	minPositiveLabels = 6
	minRegressionRows = 10
	primaryCeiling    = -1e-6
)

// ErrInsufficientLabels is returned for a family/domain without enough positive examples.
var ErrInsufficientLabels = errors.New("insufficient labels")

// Option applies a configuration option to the Trainer.
type Option func(*Trainer)

// WithSeed seeds bootstrap sampling.
func WithSeed(seed int64) Option {
	return func(t *Trainer) { t.seed = seed }
}

// WithL2 sets the ridge/logistic penalty.
func WithL2(l2 float64) Option {
	return func(t *Trainer) {
		if l2 > 0 {
			t.l2 = l2
		}
	}
}

// WithMembers sets the regression ensemble size.
func WithMembers(n int) Option {
	return func(t *Trainer) {
		if n > 0 {
			t.members = n
		}
	}
}

// WithVersion tags produced artifacts.
func WithVersion(v string) Option {
	return func(t *Trainer) { t.version = v }
}

// WithProjector replaces the Marcel projector used to build training inputs.
func WithProjector(p *marcel.Projector) Option {
	return func(t *Trainer) { t.projector = p }
}

// Trainer fits artifacts deterministically for a given seed.
type Trainer struct {
	builder   *features.Builder
	projector *marcel.Projector
	seed      int64
	l2        float64
	members   int
	version   string
}

// NewTrainer creates a Trainer.
func NewTrainer(opts ...Option) *Trainer {
	t := &Trainer{
		builder:   features.NewBuilder(),
		projector: marcel.NewProjector(),
		seed:      DefaultSeed,
		l2:        DefaultL2,
		members:   DefaultMembers,
		version:   "dev",
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Result holds the fitted artifacts and the families that could not be fitted.
type Result struct {
	Artifacts []*scoring.Artifact
	Skipped   map[string]error
}

type row struct {
	x       []float64
	valid   []bool
	sleeper bool
	bust    bool
	target  float64
	hasY    bool
}

// Train fits every family for every domain present in h.
func (t *Trainer) Train(ctx context.Context, h History) (*Result, error) {
	res := &Result{Skipped: make(map[string]error)}
	for _, d := range scoring.Domains {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("training cancelled: %w", err)
		}
		rows, err := t.rows(h, d)
		if err != nil {
			return nil, err
		}
		names := scoring.VectorNames(d)
		for _, fam := range scoring.Families {
			key := fmt.Sprintf("%s_%s", fam, d)
			var art *scoring.Artifact
			if fam == model.FamilyRegression {
				art, err = t.fitRegression(d, names, rows)
			} else {
				art, err = t.fitClassifier(fam, d, names, rows)
			}
			if err != nil {
				res.Skipped[key] = err
				continue
			}
			if err := art.Validate(); err != nil {
				res.Skipped[key] = err
				continue
			}
			res.Artifacts = append(res.Artifacts, art)
		}
	}
	return res, nil
}

// rows builds model inputs and labels for one domain, cohort by cohort.
func (t *Trainer) rows(h History, d model.Domain) ([]row, error) {
	names := scoring.VectorNames(d)
	var out []row
	for _, hs := range h.Seasons {
		var cohort []Sample
		var inputs []scoring.Input
		var expected []float64
		for _, s := range hs.Samples {
			if s.Player.Domain != d {
				continue
			}
			player := types.MergeSeasons(s.Player)
			fv, err := t.builder.Build(player, hs.League)
			if err != nil {
				if errors.Is(err, model.ErrInsufficientData) {
					continue
				}
				return nil, err
			}
			proj, err := t.projector.Project(player, hs.League)
			if err != nil {
				continue
			}
			cohort = append(cohort, s)
			inputs = append(inputs, scoring.NewInput(fv, proj, player))
			expected = append(expected, proj.ProjectedPlayingTime)
		}
		labels := BuildLabels(cohort, expected)
		for i, in := range inputs {
			r := row{x: make([]float64, len(names)), valid: make([]bool, len(names)),
				sleeper: labels.Sleeper[i], bust: labels.Bust[i]}
			for j, n := range names {
				r.x[j], r.valid[j] = in.Value(n)
			}
			r.target, r.hasY = regressionTarget(d, cohort[i], in)
			out = append(out, r)
		}
	}
	return out, nil
}

// regressionTarget is next season's primary stat change, oriented so positive is improvement.
func regressionTarget(d model.Domain, s Sample, in scoring.Input) (float64, bool) {
	if s.NextPrimary == nil {
		return 0, false
	}
	name := types.RegressionStat(d)
	cur, ok := in.Latest[name]
	if !ok || !types.Finite(cur) || !types.Finite(*s.NextPrimary) {
		return 0, false
	}
	return types.Better(d, name, *s.NextPrimary, cur), true
}

func (t *Trainer) fitClassifier(fam string, d model.Domain, names []string, rows []row) (*scoring.Artifact, error) {
	y := make([]bool, len(rows))
	pos := 0
	for i, r := range rows {
		if fam == model.FamilySleeper {
			y[i] = r.sleeper
		} else {
			y[i] = r.bust
		}
		if y[i] {
			pos++
		}
	}
	if pos < minPositiveLabels {
		return nil, fmt.Errorf("%w: %s/%s has %d positives", ErrInsufficientLabels, fam, d, pos)
	}

	xs, valid := split(rows)
	des := newDesign(names, xs, valid)
	intercept, w, err := fitLogistic(des.z, y, t.l2)
	if err != nil {
		return nil, err
	}
	coefs := des.unscale(w)
	diffs := map[string]bool{}
	for _, n := range features.DifferentialNames(d) {
		diffs[n] = true
	}
	for j, n := range names {
		if !diffs[n] {
			continue
		}
		if fam == model.FamilySleeper && coefs[j] > 0 {
			coefs[j] = 0
		}
		if fam == model.FamilyBust && coefs[j] < 0 {
			coefs[j] = 0
		}
	}

	art := &scoring.Artifact{
		Family:       fam,
		Domain:       d,
		Version:      t.version,
		Samples:      len(rows),
		Features:     names,
		Means:        des.means,
		Intercept:    intercept,
		Coefficients: coefs,
	}
	raw := make([]float64, len(rows))
	for i := range rows {
		eta := intercept
		for j := range names {
			if valid[i][j] {
				eta += coefs[j] * (xs[i][j] - des.means[j])
			}
		}
		raw[i] = sigmoid(eta)
	}
	art.Calibration = fitIsotonic(raw, y)
	return art, nil
}

func (t *Trainer) fitRegression(d model.Domain, names []string, rows []row) (*scoring.Artifact, error) {
	var kept []row
	for _, r := range rows {
		if r.hasY {
			kept = append(kept, r)
		}
	}
	if len(kept) < minRegressionRows {
		return nil, fmt.Errorf("%w: regression/%s has %d targets", ErrInsufficientLabels, d, len(kept))
	}
	xs, valid := split(kept)
	des := newDesign(names, xs, valid)
	y := make([]float64, len(kept))
	for i, r := range kept {
		y[i] = r.target
	}

	primary := indexOf(names, features.PrimaryDifferential(d))
	rng := rand.New(rand.NewSource(t.seed)) //nolint:gosec // deterministic bootstrap
	art := &scoring.Artifact{
		Family:   model.FamilyRegression,
		Domain:   d,
		Version:  t.version,
		Samples:  len(kept),
		Features: names,
		Means:    des.means,
	}
	for m := 0; m < t.members; m++ {
		idx := bootstrap(rng, len(kept))
		zb := make([][]float64, len(idx))
		yb := make([]float64, len(idx))
		for i, k := range idx {
			zb[i] = des.z[k]
			yb[i] = y[k]
		}
		intercept, w, err := fitRidge(zb, yb, t.l2)
		if err != nil {
			return nil, err
		}
		coefs := des.unscale(w)
		if coefs[primary] > primaryCeiling {
			coefs[primary] = primaryCeiling
		}
		art.Members = append(art.Members, scoring.Member{Intercept: intercept, Coefficients: coefs})
	}

	residuals := make([]float64, len(kept))
	for i := range kept {
		pred := 0.0
		for _, mem := range art.Members {
			p := mem.Intercept
			for j, c := range mem.Coefficients {
				if valid[i][j] {
					p += c * (xs[i][j] - des.means[j])
				}
			}
			pred += p / float64(len(art.Members))
		}
		residuals[i] = y[i] - pred
	}
	sort.Float64s(residuals)
	art.ResidualQ10 = math.Min(0, stat.Quantile(0.10, stat.LinInterp, residuals, nil))
	art.ResidualQ90 = math.Max(0, stat.Quantile(0.90, stat.LinInterp, residuals, nil))
	return art, nil
}

func split(rows []row) ([][]float64, [][]bool) {
	xs := make([][]float64, len(rows))
	valid := make([][]bool, len(rows))
	for i, r := range rows {
		xs[i] = r.x
		valid[i] = r.valid
	}
	return xs, valid
}

func indexOf(names []string, name string) int {
	for i, n := range names {
		if n == name {
			return i
		}
	}
	return -1
}
