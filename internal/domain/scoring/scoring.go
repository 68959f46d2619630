// Package scoring defines the model scorers: sleeper and bust classifiers, the regression
// direction ensemble and their Marcel-only fallbacks.
package scoring

import (
	"context"
	"fmt"
	"strings"

	"github.com/okian/valuator/internal/domain/features"
	"github.com/okian/valuator/internal/domain/model"
	"github.com/okian/valuator/internal/domain/types"
)

// Default scoring configuration constants.
const (
	DefaultMaxNullFraction = 0.5
	DefaultTopK            = 3
	maxScoreValue          = 100
	fullConfidenceSeasons  = 3.0
	marcelDeltaPrefix      = "marcel_delta_"
)

// Scorer produces one model score for one player key.
type Scorer interface {
	// Name returns the model family.
	Name() string
	// Score computes a score, honoring ctx for cancellation.
	Score(ctx context.Context, in Input) (model.ModelScore, error)
}

// Input is what every scorer reads: the feature vector, the Marcel baseline and the latest
// actual season line the Marcel deltas are measured against.
type Input struct {
	Features model.FeatureVector
	Marcel   *model.MarcelProjection
	Latest   map[string]float64
}

// NewInput assembles a scorer input from the per-player stage outputs.
func NewInput(fv model.FeatureVector, proj *model.MarcelProjection, in model.PlayerInput) Input {
	var latest map[string]float64
	if seasons := in.SeasonsDesc(fv.EvalSeason); len(seasons) > 0 {
		latest = seasons[0].Stats
	}
	return Input{Features: fv, Marcel: proj, Latest: latest}
}

// Domain returns the input's domain.
func (in Input) Domain() model.Domain {
	return in.Features.Domain
}

// Value returns a model input by name: a declared feature or a Marcel delta.
func (in Input) Value(name string) (float64, bool) {
	if stat, ok := strings.CutPrefix(name, marcelDeltaPrefix); ok {
		return in.marcelDelta(stat)
	}
	return in.Features.Get(name)
}

// marcelDelta is the Marcel projection minus the latest actual value of a stat.
func (in Input) marcelDelta(stat string) (float64, bool) {
	ps, ok := in.Marcel.Stat(stat)
	if !ok || ps.MeanFallback {
		return 0, false
	}
	latest, ok := in.Latest[stat]
	if !ok || !types.Finite(latest) {
		return 0, false
	}
	return ps.Value - latest, true
}

// seasons returns the seasons_available feature, 0 when missing.
func (in Input) seasons() float64 {
	v, _ := in.Features.Get("seasons_available")
	return v
}

var marcelDeltaStats = map[model.Domain][]string{
	model.Batting:  {"woba", "avg", "obp", "slg", "iso", "k_pct", "bb_pct"},
	model.Pitching: {"era", "whip", "fip", "k_pct", "bb_pct", "k_bb_pct"},
}

// VectorNames returns the model input names of a domain in declaration order:
// the feature catalogue followed by the Marcel deltas.
func VectorNames(d model.Domain) []string {
	names := features.Names(d)
	for _, s := range marcelDeltaStats[d] {
		names = append(names, marcelDeltaPrefix+s)
	}
	return names
}

// MarcelDeltaName returns the model input name of a stat's Marcel delta.
func MarcelDeltaName(stat string) string {
	return marcelDeltaPrefix + stat
}

func declarationIndex(d model.Domain) map[string]int {
	names := VectorNames(d)
	idx := make(map[string]int, len(names))
	for i, n := range names {
		idx[n] = i
	}
	return idx
}

var declIndex = map[model.Domain]map[string]int{
	model.Batting:  declarationIndex(model.Batting),
	model.Pitching: declarationIndex(model.Pitching),
}

func modelKey(family string, d model.Domain) string {
	return fmt.Sprintf("%s_%s", family, d)
}
