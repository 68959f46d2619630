package scoring

import (
	"errors"
	"fmt"
	"math"

	"github.com/okian/valuator/internal/domain/features"
	"github.com/okian/valuator/internal/domain/model"
	"github.com/okian/valuator/internal/domain/types"
)

// Artifact validation errors.
var (
	ErrArtifactShape      = errors.New("artifact shape mismatch")
	ErrUnknownFeature     = errors.New("artifact references unknown feature")
	ErrMonotonicity       = errors.New("artifact violates monotonicity")
	ErrCalibration        = errors.New("calibration table not non-decreasing")
	ErrNonFiniteParameter = errors.New("artifact parameter not finite")
)

// CalibrationPoint maps a raw probability to a calibrated one.
type CalibrationPoint struct {
	Raw        float64 `yaml:"raw"`
	Calibrated float64 `yaml:"calibrated"`
}

// Member is one linear member of the regression ensemble.
type Member struct {
	Intercept    float64   `yaml:"intercept"`
	Coefficients []float64 `yaml:"coefficients"`
}

// Artifact is a trained model as stored on disk (<family>_<domain>.yaml).
// Classifiers use Intercept/Coefficients/Calibration, the regression family uses Members
// and the residual quantiles.
type Artifact struct {
	Family       string             `yaml:"family"`
	Domain       model.Domain       `yaml:"domain"`
	Version      string             `yaml:"version"`
	Samples      int                `yaml:"samples"`
	Features     []string           `yaml:"features"`
	Means        []float64          `yaml:"means"`
	Intercept    float64            `yaml:"intercept,omitempty"`
	Coefficients []float64          `yaml:"coefficients,omitempty"`
	Calibration  []CalibrationPoint `yaml:"calibration,omitempty"`
	Members      []Member           `yaml:"members,omitempty"`
	ResidualQ10  float64            `yaml:"residual_q10,omitempty"`
	ResidualQ90  float64            `yaml:"residual_q90,omitempty"`
}

// Name returns the artifact's file stem.
func (a *Artifact) Name() string {
	return modelKey(a.Family, a.Domain)
}

// Validate checks shape, finiteness and the monotonicity constraints of the family:
// sleeper differential coefficients must be <= 0, bust differential coefficients >= 0, and
// every regression member must weigh the primary differential negatively.
func (a *Artifact) Validate() error {
	if !a.Domain.Valid() {
		return fmt.Errorf("%w: domain %q", ErrArtifactShape, a.Domain)
	}
	if len(a.Features) == 0 || len(a.Means) != len(a.Features) {
		return fmt.Errorf("%w: %d features, %d means", ErrArtifactShape, len(a.Features), len(a.Means))
	}
	idx := declIndex[a.Domain]
	for _, f := range a.Features {
		if _, ok := idx[f]; !ok {
			return fmt.Errorf("%w: %s", ErrUnknownFeature, f)
		}
	}
	if err := finite(a.Means); err != nil {
		return err
	}

	switch a.Family {
	case model.FamilySleeper, model.FamilyBust:
		return a.validateClassifier()
	case model.FamilyRegression:
		return a.validateRegression()
	default:
		return fmt.Errorf("%w: family %q", ErrArtifactShape, a.Family)
	}
}

func (a *Artifact) validateClassifier() error {
	if len(a.Coefficients) != len(a.Features) {
		return fmt.Errorf("%w: %d coefficients for %d features", ErrArtifactShape, len(a.Coefficients), len(a.Features))
	}
	if err := finite(append([]float64{a.Intercept}, a.Coefficients...)); err != nil {
		return err
	}
	diffs := differentialSet(a.Domain)
	for i, f := range a.Features {
		if !diffs[f] {
			continue
		}
		c := a.Coefficients[i]
		if a.Family == model.FamilySleeper && c > 0 {
			return fmt.Errorf("%w: sleeper coefficient on %s is %g, want <= 0", ErrMonotonicity, f, c)
		}
		if a.Family == model.FamilyBust && c < 0 {
			return fmt.Errorf("%w: bust coefficient on %s is %g, want >= 0", ErrMonotonicity, f, c)
		}
	}
	return validateCalibration(a.Calibration)
}

func (a *Artifact) validateRegression() error {
	if len(a.Members) == 0 {
		return fmt.Errorf("%w: no ensemble members", ErrArtifactShape)
	}
	if err := finite([]float64{a.ResidualQ10, a.ResidualQ90}); err != nil {
		return err
	}
	if a.ResidualQ10 > 0 || a.ResidualQ90 < 0 {
		return fmt.Errorf("%w: residual quantiles [%g, %g] must bracket zero", ErrArtifactShape, a.ResidualQ10, a.ResidualQ90)
	}
	primary := -1
	for i, f := range a.Features {
		if f == features.PrimaryDifferential(a.Domain) {
			primary = i
		}
	}
	if primary < 0 {
		return fmt.Errorf("%w: regression must use %s", ErrArtifactShape, features.PrimaryDifferential(a.Domain))
	}
	for m, mem := range a.Members {
		if len(mem.Coefficients) != len(a.Features) {
			return fmt.Errorf("%w: member %d has %d coefficients", ErrArtifactShape, m, len(mem.Coefficients))
		}
		if err := finite(append([]float64{mem.Intercept}, mem.Coefficients...)); err != nil {
			return err
		}
		if mem.Coefficients[primary] >= 0 {
			return fmt.Errorf("%w: member %d weighs %s at %g, want < 0",
				ErrMonotonicity, m, a.Features[primary], mem.Coefficients[primary])
		}
	}
	return nil
}

func validateCalibration(points []CalibrationPoint) error {
	for i, p := range points {
		if !types.Finite(p.Raw) || !types.Finite(p.Calibrated) || p.Calibrated < 0 || p.Calibrated > 1 {
			return fmt.Errorf("%w: point %d out of [0,1]", ErrCalibration, i)
		}
		if i == 0 {
			continue
		}
		prev := points[i-1]
		if p.Raw <= prev.Raw || p.Calibrated < prev.Calibrated {
			return fmt.Errorf("%w: point %d", ErrCalibration, i)
		}
	}
	return nil
}

func differentialSet(d model.Domain) map[string]bool {
	out := make(map[string]bool)
	for _, n := range features.DifferentialNames(d) {
		out[n] = true
	}
	return out
}

func finite(vs []float64) error {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return ErrNonFiniteParameter
		}
	}
	return nil
}
