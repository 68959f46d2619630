package app_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/valuator/internal/adapters/repository"
	"github.com/okian/valuator/internal/adapters/source"
	"github.com/okian/valuator/internal/app"
	"github.com/okian/valuator/internal/config"
	"github.com/okian/valuator/internal/domain/model"
	"github.com/okian/valuator/internal/domain/scoring"
	"github.com/okian/valuator/internal/domain/training"
	"github.com/okian/valuator/internal/domain/types"
	"github.com/okian/valuator/internal/domain/valuation"
	"github.com/okian/valuator/internal/synth"
	"github.com/okian/valuator/pkg/logger"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

const runDate = "2025-03-01"

func population(t *testing.T, players int) *model.Population {
	t.Helper()
	pop, err := synth.Generate(context.Background(), synth.Config{Players: players, EvalSeason: 2024, Seed: 11, Workers: 4})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	return pop
}

func testConfig(workers int) *config.Config {
	cfg := config.New()
	cfg.WorkerCount = workers
	cfg.QueueSize = 16
	cfg.PlayerTimeoutMS = 30_000
	cfg.ModelVersion = "test"
	return cfg
}

func hasIssue(rec model.ProjectionRecord, kind model.IssueKind) bool {
	for _, is := range rec.Issues {
		if is.Kind == kind {
			return true
		}
	}
	return false
}

func inRange(v *float64, lo, hi float64) bool {
	return v == nil || (*v >= lo && *v <= hi)
}

// stallingScorer blocks on one player until its deadline and delegates the rest.
type stallingScorer struct {
	scoring.Scorer
	player string
}

func (s stallingScorer) Score(ctx context.Context, in scoring.Input) (model.ModelScore, error) {
	if in.Features.PlayerID == s.player {
		<-ctx.Done()
		return model.ModelScore{}, ctx.Err()
	}
	return s.Scorer.Score(ctx, in)
}

func TestEngineRun(t *testing.T) {
	Convey("Given a synthetic population and an engine without model artifacts", t, func() {
		ctx := context.Background()
		pop := population(t, 120)
		store := repository.NewTreapStore()
		engine := app.New(testConfig(4), app.WithStore(store))

		Convey("When the run completes", func() {
			res, err := engine.Run(ctx, app.RunRequest{Population: pop, RunDate: runDate})
			So(err, ShouldBeNil)

			Convey("Then every player key has one record in key order", func() {
				So(len(res.Records), ShouldEqual, len(pop.Players))
				So(res.Meta.Players, ShouldEqual, len(pop.Players))
				for i := 1; i < len(res.Records); i++ {
					So(res.Records[i-1].Key().Less(res.Records[i].Key()), ShouldBeTrue)
				}
			})

			Convey("Then every family runs on the fallback and is reported", func() {
				So(len(res.Meta.Degraded), ShouldEqual, 6)
				So(res.Stats.Degraded, ShouldBeGreaterThan, 0)
			})

			Convey("Then scores stay within their bounds", func() {
				for _, rec := range res.Records {
					So(inRange(rec.SleeperScore, 0, 100), ShouldBeTrue)
					So(inRange(rec.BustScore, 0, 100), ShouldBeTrue)
					So(inRange(rec.ConsistencyScore, 0, 100), ShouldBeTrue)
					So(inRange(rec.ImprovementScore, -100, 100), ShouldBeTrue)
					So(inRange(rec.AIValueScore, 0, 100), ShouldBeTrue)
					So(inRange(rec.Confidence, 0, 1), ShouldBeTrue)
					if rec.AuctionValue != nil {
						So(*rec.AuctionValue, ShouldBeGreaterThanOrEqualTo, 1)
					}
				}
			})

			Convey("Then trajectory bounds enclose the projection", func() {
				So(len(res.Trajectories), ShouldBeGreaterThan, 0)
				for _, tr := range res.Trajectories {
					for _, pt := range tr.Points {
						So(pt.LowerBound, ShouldBeLessThanOrEqualTo, pt.ProjectedValue)
						So(pt.ProjectedValue, ShouldBeLessThanOrEqualTo, pt.UpperBound)
					}
				}
			})

			Convey("Then the run is published under its deterministic id", func() {
				meta, err := store.Latest(ctx)
				So(err, ShouldBeNil)
				So(meta.RunID, ShouldEqual, model.NewRunID(runDate, "test"))
				n, err := store.Count(ctx, meta.RunID)
				So(err, ShouldBeNil)
				So(n, ShouldEqual, len(res.Records))
			})

			Convey("Then rerunning the same date is rejected by the store", func() {
				_, err := engine.Run(ctx, app.RunRequest{Population: pop, RunDate: runDate})
				So(errors.Is(err, app.ErrPublish), ShouldBeTrue)
				So(errors.Is(err, repository.ErrRunExists), ShouldBeTrue)
			})
		})
	})
}

func TestEngineDeterminism(t *testing.T) {
	Convey("Given the same inputs run with different worker counts", t, func() {
		ctx := context.Background()
		pop := population(t, 80)

		first, err := app.New(testConfig(1)).Run(ctx, app.RunRequest{Population: pop, RunDate: runDate})
		So(err, ShouldBeNil)
		second, err := app.New(testConfig(8)).Run(ctx, app.RunRequest{Population: pop, RunDate: runDate})
		So(err, ShouldBeNil)

		Convey("Then the records are byte-identical", func() {
			a, err := json.Marshal(first.Records)
			So(err, ShouldBeNil)
			b, err := json.Marshal(second.Records)
			So(err, ShouldBeNil)
			So(string(a), ShouldEqual, string(b))

			ta, _ := json.Marshal(first.Trajectories)
			tb, _ := json.Marshal(second.Trajectories)
			So(string(ta), ShouldEqual, string(tb))
		})
	})
}

func TestEnginePlayerIssues(t *testing.T) {
	Convey("Given a population with a player without seasons and a duplicated key", t, func() {
		ctx := context.Background()
		pop := population(t, 40)
		empty := model.PlayerInput{PlayerID: "zz-no-seasons", Domain: model.Batting, Age: 22}
		dup := pop.Players[0]
		pop.Players = append(pop.Players, empty, dup)

		res, err := app.New(testConfig(3)).Run(ctx, app.RunRequest{Population: pop, RunDate: runDate})

		Convey("Then the run still completes", func() {
			So(err, ShouldBeNil)
			So(len(res.Records), ShouldEqual, len(pop.Players)-1)
			So(res.Stats.Duplicates, ShouldEqual, 1)
		})

		Convey("Then the seasonless player is published without scores", func() {
			var rec *model.ProjectionRecord
			for i := range res.Records {
				if res.Records[i].PlayerID == empty.PlayerID {
					rec = &res.Records[i]
				}
			}
			So(rec, ShouldNotBeNil)
			So(rec.AIValueScore, ShouldBeNil)
			So(rec.SleeperScore, ShouldBeNil)
			So(rec.MarcelProjections, ShouldBeNil)
			So(hasIssue(*rec, model.IssueInsufficientData), ShouldBeTrue)
		})

		Convey("Then the duplicate is reported on the kept record", func() {
			for _, rec := range res.Records {
				if rec.Key() == dup.Key() {
					So(hasIssue(rec, model.IssueDuplicate), ShouldBeTrue)
				}
			}
			kinds := map[model.IssueKind]int{}
			for _, is := range res.Issues {
				kinds[is.Kind]++
			}
			So(kinds[model.IssueDuplicate], ShouldEqual, 1)
			So(kinds[model.IssueModelDegraded], ShouldBeGreaterThan, 0)
		})
	})
}

func TestEnginePlayerTimeout(t *testing.T) {
	Convey("Given a scorer that stalls on one player", t, func() {
		ctx := context.Background()
		pop := population(t, 40)
		slow := pop.Players[0]
		cfg := testConfig(4)
		cfg.PlayerTimeoutMS = 200
		store := repository.NewTreapStore()
		engine := app.New(cfg,
			app.WithStore(store),
			app.WithScorer(model.FamilySleeper, slow.Domain, stallingScorer{
				Scorer: scoring.NewFallback(model.FamilySleeper),
				player: slow.PlayerID,
			}))

		res, err := engine.Run(ctx, app.RunRequest{Population: pop, RunDate: runDate})

		Convey("Then the run completes and is published", func() {
			So(err, ShouldBeNil)
			So(len(res.Records), ShouldEqual, len(pop.Players))
			n, err := store.Count(ctx, res.Meta.RunID)
			So(err, ShouldBeNil)
			So(n, ShouldEqual, len(pop.Players))
		})

		Convey("Then only the stalled player timed out and has no outputs", func() {
			So(res.Stats.TimedOut, ShouldEqual, 1)
			timeouts := 0
			for _, rec := range res.Records {
				if !hasIssue(rec, model.IssueTimeout) {
					So(rec.Key(), ShouldNotResemble, slow.Key())
					continue
				}
				timeouts++
				So(rec.Key(), ShouldResemble, slow.Key())
				So(rec.SleeperScore, ShouldBeNil)
				So(rec.BustScore, ShouldBeNil)
				So(rec.MarcelProjections, ShouldBeNil)
				So(rec.AIValueScore, ShouldBeNil)
			}
			So(timeouts, ShouldEqual, 1)
		})
	})
}

func TestEngineSplitSeason(t *testing.T) {
	Convey("Given a player whose latest season arrives as two stints", t, func() {
		ctx := context.Background()
		pop := population(t, 30)
		split := *pop
		split.Players = append([]model.PlayerInput(nil), pop.Players...)
		traded := split.Players[0]
		volume := map[string]bool{"pa": true, "ab": true, "ip": true, "g": true, "gs": true}
		latest := traded.SeasonsDesc(pop.EvalSeason)[0]
		first := model.SeasonStatLine{PlayerID: latest.PlayerID, Season: latest.Season, Domain: latest.Domain, Stats: map[string]float64{}}
		second := model.SeasonStatLine{PlayerID: latest.PlayerID, Season: latest.Season, Domain: latest.Domain, Stats: map[string]float64{}}
		for name, v := range latest.Stats {
			if s, ok := types.Lookup(traded.Domain, name); (ok && s.Counting) || volume[name] {
				first.Stats[name], second.Stats[name] = v/2, v/2
				continue
			}
			first.Stats[name], second.Stats[name] = v, v
		}
		var seasons []model.SeasonStatLine
		for _, s := range traded.Seasons {
			if s.Season != latest.Season {
				seasons = append(seasons, s)
			}
		}
		traded.Seasons = append(seasons, first, second)
		split.Players[0] = traded

		whole, err := app.New(testConfig(2)).Run(ctx, app.RunRequest{Population: pop, RunDate: runDate})
		So(err, ShouldBeNil)
		stints, err := app.New(testConfig(2)).Run(ctx, app.RunRequest{Population: &split, RunDate: runDate})
		So(err, ShouldBeNil)

		Convey("Then the stints project like the whole season", func() {
			var a, b model.ProjectionRecord
			for i := range whole.Records {
				if whole.Records[i].Key() == traded.Key() {
					a, b = whole.Records[i], stints.Records[i]
				}
			}
			So(b.Key(), ShouldResemble, traded.Key())
			So(len(b.MarcelProjections), ShouldEqual, len(a.MarcelProjections))
			for name, v := range a.MarcelProjections {
				So(b.MarcelProjections[name], ShouldAlmostEqual, v, 1e-9)
			}
		})
	})
}

func TestEngineLeagueSettings(t *testing.T) {
	Convey("Given one population priced for two different leagues", t, func() {
		ctx := context.Background()
		pop := population(t, 80)

		roto, err := app.New(testConfig(4)).Run(ctx, app.RunRequest{Population: pop, RunDate: runDate})
		So(err, ShouldBeNil)
		points := model.DefaultLeagueSettings()
		points.ScoringType = model.H2HPoints
		points.NumTeams = 4
		other, err := app.New(testConfig(4)).Run(ctx, app.RunRequest{Population: pop, League: points, RunDate: runDate})
		So(err, ShouldBeNil)
		So(len(other.Records), ShouldEqual, len(roto.Records))

		Convey("Then only the projected value component differs", func() {
			for i, rec := range roto.Records {
				alt := other.Records[i]
				So(alt.Key(), ShouldResemble, rec.Key())
				So(len(alt.Components), ShouldEqual, len(rec.Components))
				for j, cv := range rec.Components {
					if cv.Name == model.ComponentProjectedValue {
						continue
					}
					So(alt.Components[j].Name, ShouldEqual, cv.Name)
					So(alt.Components[j].Value, ShouldEqual, cv.Value)
				}
			}
		})
	})
}

func TestEngineFailures(t *testing.T) {
	Convey("Given an engine with a store", t, func() {
		ctx := context.Background()
		pop := population(t, 30)
		store := repository.NewTreapStore()
		engine := app.New(testConfig(2), app.WithStore(store))

		Convey("A cancelled run publishes nothing", func() {
			cctx, cancel := context.WithCancel(ctx)
			cancel()
			res, err := engine.Run(cctx, app.RunRequest{Population: pop, RunDate: runDate})
			So(res, ShouldBeNil)
			So(errors.Is(err, app.ErrRunCancelled), ShouldBeTrue)
			_, err = store.Latest(ctx)
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
		})

		Convey("Missing reference tables fail before any player is scored", func() {
			broken := *pop
			broken.LeagueAverages = model.LeagueAverages{Season: pop.EvalSeason}
			_, err := engine.Run(ctx, app.RunRequest{Population: &broken, RunDate: runDate})
			So(errors.Is(err, app.ErrReferenceTables), ShouldBeTrue)
		})

		Convey("Weights that do not sum to one are rejected", func() {
			w := valuation.DefaultWeights()
			w[model.ComponentConsistency] = 0.9
			_, err := engine.Run(ctx, app.RunRequest{Population: pop, RunDate: runDate, Weights: w})
			So(errors.Is(err, app.ErrInvalidWeights), ShouldBeTrue)
		})

		Convey("Unpriceable league settings are rejected", func() {
			league := model.DefaultLeagueSettings()
			league.HitterShare = 1.5
			_, err := engine.Run(ctx, app.RunRequest{Population: pop, League: league, RunDate: runDate})
			So(errors.Is(err, app.ErrInvalidLeague), ShouldBeTrue)
		})

		Convey("A player without a domain is an invalid request", func() {
			bad := *pop
			bad.Players = append([]model.PlayerInput{{PlayerID: "x"}}, pop.Players...)
			_, err := engine.Run(ctx, app.RunRequest{Population: &bad, RunDate: runDate})
			So(errors.Is(err, app.ErrInvalidRequest), ShouldBeTrue)
		})

		Convey("A nil population is an invalid request", func() {
			_, err := engine.Run(ctx, app.RunRequest{})
			So(errors.Is(err, app.ErrInvalidRequest), ShouldBeTrue)
		})
	})
}

func TestEngineWithTrainedModels(t *testing.T) {
	Convey("Given artifacts trained on synthetic history", t, func() {
		ctx := context.Background()
		h, err := synth.History(ctx, synth.Config{Players: 150, EvalSeason: 2024, HistorySeasons: 3, Seed: 5, Workers: 4})
		So(err, ShouldBeNil)
		trained, err := training.NewTrainer(training.WithSeed(9), training.WithMembers(3), training.WithVersion("test")).Train(ctx, *h)
		So(err, ShouldBeNil)
		dir := t.TempDir()
		So(source.WriteArtifacts(dir, trained.Artifacts), ShouldBeNil)

		engine := app.New(testConfig(4), app.WithArtifactLoader(source.ArtifactLoader(dir)))
		res, err := engine.Run(ctx, app.RunRequest{Population: population(t, 60), RunDate: runDate})
		So(err, ShouldBeNil)

		Convey("Then only families that could not be trained are degraded", func() {
			So(len(res.Meta.Degraded), ShouldEqual, len(trained.Skipped))
		})

		Convey("Then composite values are computed", func() {
			found := false
			for _, rec := range res.Records {
				if rec.AIValueScore != nil {
					found = true
				}
			}
			So(found, ShouldBeTrue)
		})
	})
}
