package scoring

import (
	"errors"
	"fmt"

	"github.com/okian/valuator/internal/domain/model"
)

// Families lists the learned model families in load order.
var Families = []string{model.FamilySleeper, model.FamilyBust, model.FamilyRegression}

// Domains lists the evaluation domains.
var Domains = []model.Domain{model.Batting, model.Pitching}

var errNoLoader = errors.New("no artifact loader")

// ArtifactLoader fetches the artifact of one family and domain.
type ArtifactLoader func(family string, d model.Domain) (*Artifact, error)

// versionCustom marks a family served by a scorer supplied through WithScorer.
const versionCustom = "custom"

// Degradation records a family that fell back to the Marcel-only scorer.
type Degradation struct {
	Family string
	Domain model.Domain
	Err    error
}

// ModelSet is the immutable set of scorers used by one run.
type ModelSet struct {
	scorers  map[string]Scorer
	degraded []Degradation
	versions map[string]string
}

// NewModelSet loads every family/domain artifact once. A load or validation failure never
// fails the set: that family/domain is served by the Marcel-only fallback and recorded as a
// ModelUnavailableError in Degraded. Families given a scorer through WithScorer are not loaded.
func NewModelSet(load ArtifactLoader, opts ...Option) *ModelSet {
	st := defaultSettings()
	for _, opt := range opts {
		opt(&st)
	}
	ms := &ModelSet{
		scorers:  make(map[string]Scorer),
		versions: make(map[string]string),
	}
	for _, d := range Domains {
		for _, fam := range Families {
			key := modelKey(fam, d)
			if sc, ok := st.scorers[key]; ok {
				ms.scorers[key] = sc
				ms.versions[key] = versionCustom
				continue
			}
			s, version, err := build(load, fam, d, opts)
			if err != nil {
				ms.degraded = append(ms.degraded, Degradation{
					Family: fam,
					Domain: d,
					Err:    &model.ModelUnavailableError{Family: fam, Domain: d, Err: err},
				})
				ms.scorers[key] = NewFallback(fam, opts...)
				ms.versions[key] = "marcel-fallback"
				continue
			}
			ms.scorers[key] = s
			ms.versions[key] = version
		}
	}
	return ms
}

func build(load ArtifactLoader, fam string, d model.Domain, opts []Option) (Scorer, string, error) {
	if load == nil {
		return nil, "", errNoLoader
	}
	art, err := load(fam, d)
	if err != nil {
		return nil, "", err
	}
	if art.Family != fam || art.Domain != d {
		return nil, "", fmt.Errorf("%w: file holds %s", ErrArtifactShape, art.Name())
	}
	if fam == model.FamilyRegression {
		r, err := NewRegression(art, opts...)
		return r, art.Version, err
	}
	c, err := NewClassifier(art, opts...)
	return c, art.Version, err
}

// Scorer returns the scorer of a family and domain; never nil for known pairs.
func (m *ModelSet) Scorer(family string, d model.Domain) Scorer {
	return m.scorers[modelKey(family, d)]
}

// Degraded returns the families served by the fallback, in load order.
func (m *ModelSet) Degraded() []Degradation {
	return append([]Degradation(nil), m.degraded...)
}

// IsDegraded reports whether a family/domain is served by the fallback.
func (m *ModelSet) IsDegraded(family string, d model.Domain) bool {
	_, ok := m.scorers[modelKey(family, d)].(*Fallback)
	return ok
}

// Refs returns "<family>_<domain>@<version>" for the scorers a domain uses.
func (m *ModelSet) Refs(d model.Domain) []string {
	out := make([]string, 0, len(Families))
	for _, fam := range Families {
		key := modelKey(fam, d)
		out = append(out, key+"@"+m.versions[key])
	}
	return out
}
