package scoring

import (
	"context"
	"fmt"
	"math"

	"github.com/okian/valuator/internal/domain/model"
)

// Classifier is a calibrated logistic model over centered inputs. A null input contributes
// zero, which is the same as sitting at its training mean.
type Classifier struct {
	art  *Artifact
	decl []int
	cfg  settings
}

// NewClassifier validates a sleeper or bust artifact and wraps it as a Scorer.
func NewClassifier(art *Artifact, opts ...Option) (*Classifier, error) {
	if art == nil {
		return nil, fmt.Errorf("%w: nil artifact", ErrArtifactShape)
	}
	if art.Family != model.FamilySleeper && art.Family != model.FamilyBust {
		return nil, fmt.Errorf("%w: %s is not a classifier family", ErrArtifactShape, art.Family)
	}
	if err := art.Validate(); err != nil {
		return nil, err
	}
	cfg := defaultSettings()
	for _, opt := range opts {
		opt(&cfg)
	}
	idx := declIndex[art.Domain]
	decl := make([]int, len(art.Features))
	for i, f := range art.Features {
		decl[i] = idx[f]
	}
	return &Classifier{art: art, decl: decl, cfg: cfg}, nil
}

// Name returns the model family.
func (c *Classifier) Name() string {
	return c.art.Family
}

// Score computes the calibrated probability, the 0-100 score, confidence and explanation.
func (c *Classifier) Score(ctx context.Context, in Input) (model.ModelScore, error) {
	if err := ctx.Err(); err != nil {
		return model.ModelScore{}, fmt.Errorf("context cancelled: %w", err)
	}
	if in.Domain() != c.art.Domain {
		return model.ModelScore{}, fmt.Errorf("%w: %s model scoring %s input", ErrArtifactShape, c.art.Domain, in.Domain())
	}

	logit := c.art.Intercept
	nulls := 0
	cs := make([]contribution, 0, len(c.art.Features))
	for i, name := range c.art.Features {
		x, ok := in.Value(name)
		if !ok {
			nulls++
			continue
		}
		v := c.art.Coefficients[i] * (x - c.art.Means[i])
		logit += v
		cs = append(cs, contribution{Contribution: model.Contribution{Feature: name, Value: v}, decl: c.decl[i]})
	}

	raw := sigmoid(logit)
	p := c.cfg.tally.Probability(c.art.Family, "probability", Calibrate(c.art.Calibration, raw))
	conf, low := confidence(nulls, len(c.art.Features), in.seasons(), c.cfg.maxNullFraction)

	return model.ModelScore{
		Model:         c.art.Family,
		Score:         c.cfg.tally.Score(c.art.Family, "score", maxScoreValue*p),
		Probability:   p,
		Confidence:    conf,
		LowConfidence: low,
		Explanation:   topK(cs, c.cfg.topK),
	}, nil
}

// confidence is (1 - null fraction) scaled by history depth, or zero past the null limit.
func confidence(nulls, total int, seasons, maxNull float64) (float64, bool) {
	if total == 0 {
		return 0, true
	}
	frac := float64(nulls) / float64(total)
	if frac > maxNull {
		return 0, true
	}
	return (1 - frac) * math.Min(1, seasons/fullConfidenceSeasons), false
}

func sigmoid(x float64) float64 {
	if x >= 0 {
		return 1 / (1 + math.Exp(-x))
	}
	e := math.Exp(x)
	return e / (1 + e)
}
