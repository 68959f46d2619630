package repository_test

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/valuator/internal/adapters/repository"
	"github.com/okian/valuator/internal/domain/model"
)

func record(id string, d model.Domain, score *float64) model.ProjectionRecord {
	return model.ProjectionRecord{
		RunDate:      "2025-03-01",
		ModelVersion: "test",
		PlayerID:     id,
		Domain:       d,
		AIValueScore: score,
	}
}

func sampleRun(runDate string) repository.Run {
	meta := model.RunMeta{
		RunID:        model.NewRunID(runDate, "test"),
		RunDate:      runDate,
		ModelVersion: "test",
		EvalSeason:   2024,
		Players:      5,
	}
	return repository.Run{
		Meta: meta,
		Records: []model.ProjectionRecord{
			record("c", model.Batting, model.Float(70)),
			record("a", model.Batting, model.Float(90)),
			record("b", model.Pitching, model.Float(70)),
			record("d", model.Batting, nil),
			record("e", model.Pitching, model.Float(40.5)),
		},
		Trajectories: []model.TrajectoryRecord{{
			PlayerID: "a",
			Domain:   model.Batting,
			TrajectoryCurve: model.TrajectoryCurve{
				CurrentValue: 80,
				PeakSeason:   2026,
				PeakValue:    84,
				Grade:        model.GradeRising,
				Points: []model.TrajectoryPoint{
					{Season: 2025, Age: 25, ProjectedValue: 82, LowerBound: 78, UpperBound: 86},
					{Season: 2026, Age: 26, ProjectedValue: 84, LowerBound: 77, UpperBound: 91},
				},
			},
		}},
	}
}

type storeCase struct {
	name string
	open func(t *testing.T) repository.Store
}

func storeCases() []storeCase {
	return []storeCase{
		{"treap", func(*testing.T) repository.Store {
			return repository.NewTreapStore(repository.WithTopCacheSize(2))
		}},
		{"sqlite", func(t *testing.T) repository.Store {
			s, err := repository.NewSQLiteStore(context.Background(), filepath.Join(t.TempDir(), "runs.db"))
			if err != nil {
				t.Fatalf("open sqlite: %v", err)
			}
			return s
		}},
	}
}

func TestStores(t *testing.T) {
	for _, tc := range storeCases() {
		Convey(fmt.Sprintf("Given an empty %s store", tc.name), t, func() {
			ctx := context.Background()
			store := tc.open(t)
			defer func() { _ = store.Close() }()

			Convey("Latest reports nothing published", func() {
				_, err := store.Latest(ctx)
				So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
			})

			Convey("Queries on an unknown run fail with ErrNotFound", func() {
				_, err := store.Count(ctx, "missing")
				So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
				_, err = store.TopN(ctx, "missing", 3)
				So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
			})

			Convey("A run without an id is rejected", func() {
				err := store.Publish(ctx, repository.Run{})
				So(errors.Is(err, repository.ErrInvalidRun), ShouldBeTrue)
			})

			Convey("When a run is published", func() {
				run := sampleRun("2025-03-01")
				So(store.Publish(ctx, run), ShouldBeNil)
				runID := run.Meta.RunID

				Convey("Then it is the latest run", func() {
					meta, err := store.Latest(ctx)
					So(err, ShouldBeNil)
					So(meta, ShouldResemble, run.Meta)
				})

				Convey("Then every record can be read back", func() {
					n, err := store.Count(ctx, runID)
					So(err, ShouldBeNil)
					So(n, ShouldEqual, 5)

					rec, err := store.Record(ctx, runID, model.PlayerKey{PlayerID: "e", Domain: model.Pitching})
					So(err, ShouldBeNil)
					So(*rec.AIValueScore, ShouldEqual, 40.5)

					_, err = store.Record(ctx, runID, model.PlayerKey{PlayerID: "e", Domain: model.Batting})
					So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
				})

				Convey("Then the trajectory round-trips", func() {
					tr, err := store.Trajectory(ctx, runID, model.PlayerKey{PlayerID: "a", Domain: model.Batting})
					So(err, ShouldBeNil)
					So(tr, ShouldResemble, run.Trajectories[0])

					_, err = store.Trajectory(ctx, runID, model.PlayerKey{PlayerID: "c", Domain: model.Batting})
					So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
				})

				Convey("Then TopN orders by score desc and key asc with shared ranks", func() {
					top, err := store.TopN(ctx, runID, 10)
					So(err, ShouldBeNil)
					So(len(top), ShouldEqual, 5)

					ids := make([]string, len(top))
					ranks := make([]int, len(top))
					for i, e := range top {
						ids[i] = e.Key.String()
						ranks[i] = e.Rank
					}
					So(ids, ShouldResemble, []string{"a/batting", "b/pitching", "c/batting", "e/pitching", "d/batting"})
					So(ranks, ShouldResemble, []int{1, 2, 2, 4, 5})
				})

				Convey("Then a short TopN is a prefix of the full ranking", func() {
					top, err := store.TopN(ctx, runID, 3)
					So(err, ShouldBeNil)
					So(len(top), ShouldEqual, 3)
					So(top[2].Key.PlayerID, ShouldEqual, "c")
					So(top[2].Rank, ShouldEqual, 2)

					_, err = store.TopN(ctx, runID, 0)
					So(errors.Is(err, repository.ErrInvalidLimit), ShouldBeTrue)
				})

				Convey("Then Rank agrees with TopN", func() {
					e, err := store.Rank(ctx, runID, model.PlayerKey{PlayerID: "c", Domain: model.Batting})
					So(err, ShouldBeNil)
					So(e.Rank, ShouldEqual, 2)
					So(e.Score, ShouldEqual, 70)

					e, err = store.Rank(ctx, runID, model.PlayerKey{PlayerID: "d", Domain: model.Batting})
					So(err, ShouldBeNil)
					So(e.Rank, ShouldEqual, 5)

					_, err = store.Rank(ctx, runID, model.PlayerKey{PlayerID: "zz", Domain: model.Batting})
					So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
				})

				Convey("Then publishing the same run again fails and changes nothing", func() {
					again := sampleRun("2025-03-01")
					again.Records = again.Records[:1]
					err := store.Publish(ctx, again)
					So(errors.Is(err, repository.ErrRunExists), ShouldBeTrue)

					n, err := store.Count(ctx, runID)
					So(err, ShouldBeNil)
					So(n, ShouldEqual, 5)
				})

				Convey("Then a later run becomes latest while the earlier stays readable", func() {
					next := sampleRun("2025-03-02")
					So(store.Publish(ctx, next), ShouldBeNil)

					meta, err := store.Latest(ctx)
					So(err, ShouldBeNil)
					So(meta.RunID, ShouldEqual, next.Meta.RunID)

					n, err := store.Count(ctx, runID)
					So(err, ShouldBeNil)
					So(n, ShouldEqual, 5)
				})
			})

			Convey("A run with a duplicated key is rejected whole", func() {
				run := sampleRun("2025-04-01")
				run.Records = append(run.Records, record("a", model.Batting, model.Float(10)))
				So(store.Publish(ctx, run), ShouldNotBeNil)

				_, err := store.Count(ctx, run.Meta.RunID)
				So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
				_, err = store.Latest(ctx)
				So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
			})
		})
	}
}

func TestTreapStoreLarge(t *testing.T) {
	Convey("Given a treap store holding a large run", t, func() {
		ctx := context.Background()
		store := repository.NewTreapStore(repository.WithTopCacheSize(10))
		run := repository.Run{Meta: model.RunMeta{RunID: "large"}}
		for i := 0; i < 1000; i++ {
			run.Records = append(run.Records,
				record(fmt.Sprintf("p%04d", i), model.Batting, model.Float(float64(i%100))))
		}
		So(store.Publish(ctx, run), ShouldBeNil)

		Convey("TopN beyond the cache walks the tree in order", func() {
			top, err := store.TopN(ctx, "large", 25)
			So(err, ShouldBeNil)
			So(len(top), ShouldEqual, 25)
			for i := 1; i < len(top); i++ {
				prev, cur := top[i-1], top[i]
				So(prev.Score > cur.Score || (prev.Score == cur.Score && prev.Key.PlayerID < cur.Key.PlayerID), ShouldBeTrue)
			}
			// ten players share each score
			So(top[0].Score, ShouldEqual, 99)
			So(top[10].Rank, ShouldEqual, 11)
			So(top[10].Score, ShouldEqual, 98)
		})

		Convey("Rank counts strictly higher scores", func() {
			e, err := store.Rank(ctx, "large", model.PlayerKey{PlayerID: "p0050", Domain: model.Batting})
			So(err, ShouldBeNil)
			So(e.Score, ShouldEqual, 50)
			So(e.Rank, ShouldEqual, 491)
		})

		Convey("Publishing after Close fails", func() {
			So(store.Close(), ShouldBeNil)
			err := store.Publish(ctx, repository.Run{Meta: model.RunMeta{RunID: "later"}})
			So(err, ShouldNotBeNil)
		})
	})
}
