// Package app runs the valuation pipeline end to end: validate, score every player, price the
// pool, project trajectories and publish one immutable run.
package app

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/okian/valuator/internal/adapters/mq/queue"
	"github.com/okian/valuator/internal/adapters/mq/worker"
	"github.com/okian/valuator/internal/adapters/repository"
	"github.com/okian/valuator/internal/config"
	"github.com/okian/valuator/internal/domain/bounds"
	"github.com/okian/valuator/internal/domain/consistency"
	"github.com/okian/valuator/internal/domain/dedupe"
	"github.com/okian/valuator/internal/domain/features"
	"github.com/okian/valuator/internal/domain/improvement"
	"github.com/okian/valuator/internal/domain/marcel"
	"github.com/okian/valuator/internal/domain/model"
	"github.com/okian/valuator/internal/domain/scoring"
	"github.com/okian/valuator/internal/domain/trajectory"
	"github.com/okian/valuator/internal/domain/types"
	"github.com/okian/valuator/internal/domain/valuation"
	"github.com/okian/valuator/pkg/logger"
	"github.com/okian/valuator/pkg/metrics"
)

const runDateLayout = "2006-01-02"

// RunRequest is one inference run over a population.
type RunRequest struct {
	Population *model.Population
	League     model.LeagueSettings

	// RunDate names the run together with the model version; defaults to today (UTC).
	RunDate string

	// Weights overrides the configured composite weights when non-nil.
	Weights valuation.Weights
}

// RunResult is a completed run. When the engine has a store, the same content was published.
type RunResult struct {
	Meta         model.RunMeta
	Records      []model.ProjectionRecord
	Trajectories []model.TrajectoryRecord
	Issues       []model.Issue
	Clamps       []bounds.Count
	Stats        Stats
}

// Stats counts per-player outcomes of a run.
type Stats struct {
	Players    int
	Duplicates int
	TimedOut   int
	Degraded   int
	Duration   time.Duration
}

// Engine runs the pipeline. It holds no per-run state and may run sequential or concurrent runs.
type Engine struct {
	cfg     *config.Config
	store   repository.Store
	loader  scoring.ArtifactLoader
	scorers []scoring.Option
	logger  logger.Logger
	now     func() time.Time
}

// New creates an Engine. A nil cfg uses config.New().
func New(cfg *config.Config, opts ...Option) *Engine {
	if cfg == nil {
		cfg = config.New()
	}
	e := &Engine{
		cfg:    cfg,
		logger: logger.Get().Named("engine"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// pipeline is the per-run set of components, all sharing one clamp tally.
type pipeline struct {
	avgs        model.LeagueAverages
	tally       *bounds.Tally
	builder     *features.Builder
	projector   *marcel.Projector
	models      *scoring.ModelSet
	consistency *consistency.Scorer
	improvement *improvement.Scorer
	pricer      *valuation.Pricer
	trajectory  *trajectory.Projector
	composite   *valuation.Composite
}

// Run executes one run. Invalid reference tables, league settings or weights fail before any
// player is processed. Cancelling ctx at any point returns ErrRunCancelled and publishes nothing.
func (e *Engine) Run(ctx context.Context, req RunRequest) (*RunResult, error) {
	start := e.now()
	res, err := e.run(ctx, req)
	metrics.RecordRunDuration(e.now().Sub(start).Seconds())
	switch {
	case err == nil:
		metrics.RecordRun("published")
	case errors.Is(err, ErrRunCancelled):
		metrics.RecordRun("cancelled")
	default:
		metrics.RecordRun("failed")
	}
	if res != nil {
		res.Stats.Duration = e.now().Sub(start)
	}
	return res, err
}

func (e *Engine) run(ctx context.Context, req RunRequest) (*RunResult, error) {
	if req.Population == nil {
		return nil, fmt.Errorf("%w: no population", ErrInvalidRequest)
	}
	for i, in := range req.Population.Players {
		if in.PlayerID == "" || !in.Domain.Valid() {
			return nil, fmt.Errorf("%w: player %d has key %q", ErrInvalidRequest, i, in.Key())
		}
	}
	p, err := e.newPipeline(req)
	if err != nil {
		return nil, err
	}

	runDate := req.RunDate
	if runDate == "" {
		runDate = e.now().UTC().Format(runDateLayout)
	}
	meta := model.RunMeta{
		RunID:        model.NewRunID(runDate, e.cfg.ModelVersion),
		RunDate:      runDate,
		ModelVersion: e.cfg.ModelVersion,
		EvalSeason:   p.avgs.Season,
		League:       p.pricer.League().ScoringType,
	}
	for _, dg := range p.models.Degraded() {
		meta.Degraded = append(meta.Degraded, fmt.Sprintf("%s_%s", dg.Family, dg.Domain))
		metrics.RecordModelDegraded(dg.Family, string(dg.Domain))
		e.logger.Warn(ctx, "model unavailable, using marcel fallback",
			logger.String("family", dg.Family),
			logger.String("domain", string(dg.Domain)),
			logger.Error(dg.Err))
	}

	guard := dedupe.NewInMemoryGuard(dedupe.WithCapacity(len(req.Population.Players)))
	players, duplicates := dedupe.Split(ctx, guard, req.Population.Players)
	states := make([]*playerState, len(players))
	for i, in := range players {
		states[i] = &playerState{input: types.MergeSeasons(in)}
	}
	dupCount := make(map[model.PlayerKey]int)
	for _, d := range duplicates {
		dupCount[d.Key()]++
	}
	for _, st := range states {
		if n := dupCount[st.input.Key()]; n > 0 {
			st.issue(model.IssueDuplicate, "dedupe", fmt.Sprintf("%d duplicate input(s) dropped", n))
		}
	}

	e.logger.Info(ctx, "run started",
		logger.String("run_id", meta.RunID),
		logger.Int64("players", guard.Size()),
		logger.Int("duplicates", len(duplicates)),
		logger.Int("degraded_models", len(meta.Degraded)))

	if err := e.stage(ctx, "player", states, func(ctx context.Context, st *playerState) error {
		return p.scorePlayer(ctx, st)
	}); err != nil {
		return nil, err
	}
	for _, st := range states {
		if !st.scored {
			st.issue(model.IssueTimeout, "player", "scoring exceeded "+e.cfg.PlayerTimeout().String())
		}
	}

	popStart := e.now()
	p.population(states)
	metrics.RecordStageLatency("population", float64(e.now().Sub(popStart).Milliseconds()))
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRunCancelled, err)
	}

	if err := e.stage(ctx, "value", states, func(ctx context.Context, st *playerState) error {
		return p.valuePlayer(ctx, st)
	}); err != nil {
		return nil, err
	}
	for _, st := range states {
		if st.scored && !st.valued {
			st.issue(model.IssueTimeout, "value", "valuation exceeded "+e.cfg.PlayerTimeout().String())
		}
	}

	res := e.assemble(meta, states)
	res.Stats.Duplicates = len(duplicates)
	res.Clamps = p.tally.Snapshot()
	for _, c := range res.Clamps {
		metrics.RecordClamps(c.Component, c.Field, c.N)
	}
	if len(res.Clamps) > 0 {
		e.logger.Info(ctx, "clamped values",
			logger.Int("total", p.tally.Total()),
			logger.Any("counts", res.Clamps))
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRunCancelled, err)
	}
	if e.store != nil {
		run := repository.Run{Meta: res.Meta, Records: res.Records, Trajectories: res.Trajectories}
		if err := e.store.Publish(ctx, run); err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("%w: %w", ErrRunCancelled, ctx.Err())
			}
			return nil, fmt.Errorf("%w: %w", ErrPublish, err)
		}
		metrics.UpdateRunLastPublished(float64(e.now().Unix()))
	}
	metrics.UpdateRunPlayers(len(res.Records))

	e.logger.Info(ctx, "run published",
		logger.String("run_id", meta.RunID),
		logger.Int("records", len(res.Records)),
		logger.Int("trajectories", len(res.Trajectories)),
		logger.Int("issues", len(res.Issues)),
		logger.Int("timed_out", res.Stats.TimedOut))
	return res, nil
}

func (e *Engine) newPipeline(req RunRequest) (*pipeline, error) {
	avgs := req.Population.Averages()
	if avgs.Season == 0 {
		return nil, fmt.Errorf("%w: no evaluation season", ErrReferenceTables)
	}
	if err := marcel.ValidateTables(avgs, domainsOf(req.Population.Players)...); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrReferenceTables, err)
	}

	tally := bounds.NewTally()
	pricer, err := valuation.NewPricer(req.League, tally)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidLeague, err)
	}

	weights := req.Weights
	if weights == nil {
		weights = valuation.Weights(e.cfg.CompositeWeights)
	}
	composite, err := valuation.NewComposite(weights,
		valuation.WithMinBid(pricer.League().MinBid),
		valuation.WithHorizon(e.cfg.TrajectoryHorizon),
		valuation.WithTally(tally))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidWeights, err)
	}

	return &pipeline{
		avgs:      avgs,
		tally:     tally,
		builder:   features.NewBuilder(features.WithTally(tally)),
		projector: marcel.NewProjector(
			marcel.WithReliability(e.cfg.BattingReliability, e.cfg.PitchingReliability),
			marcel.WithAgeDelta(e.cfg.AgeDeltaPerYear),
			marcel.WithTally(tally)),
		models: scoring.NewModelSet(e.loader, append([]scoring.Option{
			scoring.WithMaxNullFraction(e.cfg.MaxNullFraction),
			scoring.WithTopK(e.cfg.ExplanationTopK),
			scoring.WithReliability(e.cfg.BattingReliability, e.cfg.PitchingReliability),
			scoring.WithTally(tally),
		}, e.scorers...)...),
		consistency: consistency.NewScorer(tally),
		improvement: improvement.NewScorer(tally),
		pricer:      pricer,
		trajectory: trajectory.NewProjector(
			trajectory.WithHorizon(e.cfg.TrajectoryHorizon),
			trajectory.WithRetirementThreshold(e.cfg.RetirementThreshold),
			trajectory.WithTally(tally)),
		composite: composite,
	}, nil
}

// stage runs fn for every state on the worker pool. Jobs are fed through the bounded queue
// while workers drain it; results land in the state addressed by the job index.
func (e *Engine) stage(ctx context.Context, name string, states []*playerState, fn func(context.Context, *playerState) error) error {
	start := e.now()
	q := queue.NewInMemoryQueue(queue.WithCapacity(e.cfg.QueueSize))
	pool := worker.NewPool(e.cfg.WorkerCount,
		worker.WithName(name),
		worker.WithLogger(e.logger.Named(name)),
		worker.WithJobTimeout(e.cfg.PlayerTimeout()))

	submitErr := make(chan error, 1)
	go func() {
		defer func() { _ = q.Close() }()
		for i, st := range states {
			if err := q.Submit(ctx, queue.Job{Index: i, Key: st.input.Key()}); err != nil {
				submitErr <- err
				return
			}
		}
		submitErr <- nil
	}()

	stats, err := pool.Run(ctx, q, func(jctx context.Context, j queue.Job) error {
		return fn(jctx, states[j.Index])
	})
	if serr := <-submitErr; err == nil && serr != nil {
		err = serr
	}
	metrics.RecordStageLatency(name, float64(e.now().Sub(start).Milliseconds()))
	if err != nil || ctx.Err() != nil {
		if err == nil {
			err = ctx.Err()
		}
		e.logger.Warn(ctx, "stage cancelled", logger.String("stage", name), logger.Error(err))
		return fmt.Errorf("%w: %s stage: %w", ErrRunCancelled, name, err)
	}
	e.logger.Debug(ctx, "stage done",
		logger.String("stage", name),
		logger.Int64("processed", stats.Processed),
		logger.Int64("timed_out", stats.TimedOut),
		logger.Int64("failed", stats.Failed))
	return nil
}

// assemble builds the published records sorted by (player_id, domain).
func (e *Engine) assemble(meta model.RunMeta, states []*playerState) *RunResult {
	sorted := append([]*playerState(nil), states...)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].input.Key().Less(sorted[j].input.Key())
	})

	res := &RunResult{Records: make([]model.ProjectionRecord, 0, len(sorted))}
	for _, st := range sorted {
		rec := st.record(meta)
		res.Records = append(res.Records, rec)
		if st.curve != nil {
			res.Trajectories = append(res.Trajectories, model.TrajectoryRecord{
				PlayerID:        st.input.PlayerID,
				Domain:          st.input.Domain,
				TrajectoryCurve: *st.curve,
			})
		}
		res.Issues = append(res.Issues, st.issues...)

		outcome := "ok"
		switch {
		case !st.scored || !st.valued:
			outcome = "timeout"
			res.Stats.TimedOut++
		case rec.AIValueScore == nil:
			outcome = "insufficient_data"
		}
		metrics.RecordPlayerProcessed(string(st.input.Domain), outcome)
		if st.degraded {
			res.Stats.Degraded++
		}
	}
	for _, is := range res.Issues {
		metrics.RecordPlayerIssue(string(is.Kind))
	}
	meta.Players = len(res.Records)
	res.Meta = meta
	res.Stats.Players = len(res.Records)
	return res
}

func domainsOf(players []model.PlayerInput) []model.Domain {
	seen := make(map[model.Domain]bool)
	var out []model.Domain
	for _, d := range scoring.Domains {
		for _, p := range players {
			if p.Domain == d && !seen[d] {
				seen[d] = true
				out = append(out, d)
			}
		}
	}
	return out
}
