package app

import (
	"context"
	"errors"
	"math"

	"github.com/okian/valuator/internal/domain/consistency"
	"github.com/okian/valuator/internal/domain/improvement"
	"github.com/okian/valuator/internal/domain/model"
	"github.com/okian/valuator/internal/domain/scoring"
	"github.com/okian/valuator/internal/domain/trajectory"
	"github.com/okian/valuator/internal/domain/valuation"
	"github.com/okian/valuator/pkg/metrics"
)

// playerState is one player key's slot in the run. Each stage writes only to its own slot,
// and only after the job finished inside its deadline.
type playerState struct {
	input model.PlayerInput

	// per-player stage
	scored      bool
	features    *model.FeatureVector
	marcel      *model.MarcelProjection
	scores      map[string]*model.ModelScore
	improvement *improvement.Result
	measurement *consistency.Measurement
	degraded    bool

	// population stage
	consistency *consistency.Result
	price       *model.LeaguePrice
	current     *float64

	// value stage
	valued    bool
	curve     *model.TrajectoryCurve
	valuation *model.CompositeValuation

	issues []model.Issue
}

func (st *playerState) issue(kind model.IssueKind, component, detail string) {
	st.issues = append(st.issues, model.Issue{
		PlayerID:  st.input.PlayerID,
		Domain:    st.input.Domain,
		Kind:      kind,
		Component: component,
		Detail:    detail,
	})
}

// componentIssue records err as insufficient_data when it is one, otherwise as model_degraded.
func (st *playerState) componentIssue(component string, err error) {
	if errors.Is(err, model.ErrInsufficientData) {
		st.issue(model.IssueInsufficientData, component, err.Error())
		return
	}
	metrics.RecordErrorByComponent(component, "error")
	st.issue(model.IssueModelDegraded, component, err.Error())
}

// stageA is the per-player stage output before it is committed to the slot.
type stageA struct {
	features    *model.FeatureVector
	marcel      *model.MarcelProjection
	scores      map[string]*model.ModelScore
	improvement *improvement.Result
	measurement *consistency.Measurement
	issues      []model.Issue
	degraded    bool
}

// scorePlayer builds features and the Marcel baseline, runs every model family and the
// per-player halves of consistency and improvement.
func (p *pipeline) scorePlayer(ctx context.Context, st *playerState) error {
	in := st.input
	out := stageA{scores: make(map[string]*model.ModelScore, len(scoring.Families))}
	scratch := &playerState{input: in}

	fv, err := p.builder.Build(in, p.avgs)
	if err != nil {
		scratch.componentIssue("features", err)
	} else {
		out.features = &fv
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	proj, err := p.projector.Project(in, p.avgs)
	if err != nil {
		scratch.componentIssue("marcel", err)
	} else {
		out.marcel = proj
	}

	if out.features != nil {
		sin := scoring.NewInput(*out.features, out.marcel, in)
		for _, fam := range scoring.Families {
			if err := ctx.Err(); err != nil {
				return err
			}
			ms, err := p.models.Scorer(fam, in.Domain).Score(ctx, sin)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				scratch.componentIssue(fam, err)
				continue
			}
			out.scores[fam] = &ms
			if ms.LowConfidence {
				metrics.RecordLowConfidence(fam)
				scratch.issue(model.IssueLowConfidence, fam, "")
			}
			if ms.Degraded {
				out.degraded = true
				scratch.issue(model.IssueModelDegraded, fam, "marcel fallback")
			}
		}
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	if imp, err := p.improvement.Score(in, p.avgs.Season); err != nil {
		scratch.componentIssue("improvement", err)
	} else {
		out.improvement = imp
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	if m, err := p.consistency.Measure(in, p.avgs); err != nil {
		scratch.componentIssue("consistency", err)
	} else {
		out.measurement = m
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	st.features = out.features
	st.marcel = out.marcel
	st.scores = out.scores
	st.improvement = out.improvement
	st.measurement = out.measurement
	st.degraded = out.degraded
	st.issues = append(st.issues, scratch.issues...)
	st.scored = true
	return nil
}

// population normalizes consistency and prices the pool. It runs on one goroutine and visits
// players in slot order, so its output does not depend on worker scheduling.
func (p *pipeline) population(states []*playerState) {
	var (
		ms    []*consistency.Measurement
		owner []*playerState
		pool  []valuation.PoolEntry
	)
	for _, st := range states {
		if !st.scored {
			continue
		}
		if st.measurement != nil {
			ms = append(ms, st.measurement)
			owner = append(owner, st)
		}
		if st.marcel != nil {
			pool = append(pool, valuation.PoolEntry{
				Key:   st.input.Key(),
				Stats: valuation.AdjustedStats(st.marcel, st.scores[model.FamilyRegression]),
			})
		}
	}

	for i, r := range p.consistency.Normalize(ms) {
		owner[i].consistency = &r
	}

	prices := p.pricer.Price(pool)
	current := valuation.CurrentPercentiles(pool)
	for _, st := range states {
		if lp, ok := prices[st.input.Key()]; ok {
			st.price = &lp
		}
		if pct, ok := current[st.input.Key()]; ok {
			st.current = model.Float(pct)
		}
	}
}

// valuePlayer projects the trajectory and computes the composite value.
func (p *pipeline) valuePlayer(ctx context.Context, st *playerState) error {
	if !st.scored {
		st.valued = true
		return nil
	}
	in := st.input
	scratch := &playerState{input: in}

	var cons, imp *float64
	if st.consistency != nil {
		cons = model.Float(st.consistency.Score)
	}
	if st.improvement != nil {
		imp = model.Float(st.improvement.Score)
	}

	var curve *model.TrajectoryCurve
	if st.price != nil {
		curve = p.trajectory.Project(trajectory.Input{
			Key:           in.Key(),
			Age:           in.Age,
			EvalSeason:    p.avgs.Season,
			CurrentValue:  100 * st.price.Percentile,
			HasProjection: st.marcel != nil,
			Regression:    st.scores[model.FamilyRegression],
			Consistency:   cons,
			Improvement:   imp,
		})
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	var val *model.CompositeValuation
	if st.features == nil {
		scratch.issue(model.IssueInsufficientData, "composite", "no usable seasons")
	} else {
		cv, err := p.composite.Score(valuation.Inputs{
			Key:         in.Key(),
			Age:         in.Age,
			Price:       st.price,
			Current:     st.current,
			Sleeper:     st.scores[model.FamilySleeper],
			Bust:        st.scores[model.FamilyBust],
			Consistency: cons,
			Marcel:      st.marcel,
			Features:    st.features,
			Trajectory:  curve,
			ModelRefs:   p.models.Refs(in.Domain),
		})
		if err != nil {
			scratch.componentIssue("composite", err)
		} else {
			val = &cv
		}
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	st.curve = curve
	st.valuation = val
	st.issues = append(st.issues, scratch.issues...)
	st.valued = true
	return nil
}

// record renders the published record of st.
func (st *playerState) record(meta model.RunMeta) model.ProjectionRecord {
	rec := model.ProjectionRecord{
		RunDate:      meta.RunDate,
		ModelVersion: meta.ModelVersion,
		PlayerID:     st.input.PlayerID,
		Domain:       st.input.Domain,
		Issues:       st.issues,
	}
	if s := st.scores[model.FamilySleeper]; s != nil {
		rec.SleeperScore = model.Float(s.Score)
	}
	if s := st.scores[model.FamilyBust]; s != nil {
		rec.BustScore = model.Float(s.Score)
	}
	if s := st.scores[model.FamilyRegression]; s != nil {
		rec.RegressionDirection = model.Float(s.Direction)
		rec.RegressionMagnitude = model.Float(s.Magnitude)
	}
	if st.consistency != nil {
		rec.ConsistencyScore = model.Float(st.consistency.Score)
		bd := st.consistency.Breakdown
		rec.StatConsistencyBreakdown = &bd
	}
	if st.improvement != nil {
		rec.ImprovementScore = model.Float(st.improvement.Score)
		bd := st.improvement.Breakdown
		rec.StatImprovementBreakdown = &bd
	}

	var confSum float64
	var confN int
	for _, fam := range scoring.Families {
		s := st.scores[fam]
		if s == nil {
			continue
		}
		confSum += s.Confidence
		confN++
		if len(s.Explanation) > 0 {
			if rec.ShapExplanations == nil {
				rec.ShapExplanations = make(map[string][]model.Contribution)
			}
			rec.ShapExplanations[fam] = s.Explanation
		}
	}
	if confN > 0 {
		rec.Confidence = model.Float(math.Round(confSum/float64(confN)*1e6) / 1e6)
	}

	if st.marcel != nil {
		rec.MarcelProjections = st.marcel.Values()
	}
	if v := st.valuation; v != nil {
		rec.AIValueScore = model.Float(v.AIValueScore)
		rec.AuctionValue = v.AuctionValue
		rec.SurplusValue = v.SurplusValue
		rec.DynastyValue = v.DynastyValue
		rec.Components = v.Components
	}
	return rec
}
