package source_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/okian/valuator/internal/adapters/source"
	"github.com/okian/valuator/internal/domain/model"
	"github.com/okian/valuator/internal/domain/scoring"
	"github.com/okian/valuator/internal/synth"
	"github.com/okian/valuator/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestPopulation(t *testing.T) {
	Convey("Given a generated population written to disk", t, func() {
		dir := t.TempDir()
		pop, err := synth.Generate(context.Background(), synth.Config{Players: 20, Seed: 1, Workers: 2})
		So(err, ShouldBeNil)
		path := filepath.Join(dir, "nested", "population.yaml")
		So(source.WriteYAML(path, pop), ShouldBeNil)

		Convey("Then reading it back yields the same population", func() {
			got, err := source.ReadPopulation(path)
			So(err, ShouldBeNil)
			So(got.EvalSeason, ShouldEqual, pop.EvalSeason)
			So(got.Players, ShouldHaveLength, len(pop.Players))
			So(got.Players[0].Key(), ShouldResemble, pop.Players[0].Key())
			So(got.LeagueAverages.Table(model.Batting).Means["woba"], ShouldEqual, pop.LeagueAverages.Table(model.Batting).Means["woba"])
		})
	})

	Convey("Given invalid population files", t, func() {
		dir := t.TempDir()

		Convey("When a player has an unknown domain", func() {
			path := writeFile(t, dir, "bad.yaml", "eval_season: 2024\nplayers:\n  - player_id: p1\n    domain: fielding\n")
			_, err := source.ReadPopulation(path)
			So(errors.Is(err, source.ErrInvalidInput), ShouldBeTrue)
		})

		Convey("When the evaluation season is missing", func() {
			path := writeFile(t, dir, "noseason.yaml", "players: []\n")
			_, err := source.ReadPopulation(path)
			So(errors.Is(err, source.ErrInvalidInput), ShouldBeTrue)
		})

		Convey("When a field is misspelled", func() {
			path := writeFile(t, dir, "typo.yaml", "eval_seasn: 2024\n")
			_, err := source.ReadPopulation(path)
			So(err, ShouldNotBeNil)
		})

		Convey("When the file is empty", func() {
			path := writeFile(t, dir, "empty.yaml", "")
			_, err := source.ReadPopulation(path)
			So(errors.Is(err, source.ErrInvalidInput), ShouldBeTrue)
		})

		Convey("When the file does not exist", func() {
			_, err := source.ReadPopulation(filepath.Join(dir, "missing.yaml"))
			So(err, ShouldNotBeNil)
		})
	})
}

func TestLeague(t *testing.T) {
	Convey("Given league files", t, func() {
		dir := t.TempDir()

		Convey("When no path is given the default league is used", func() {
			s, err := source.ReadLeague("")
			So(err, ShouldBeNil)
			So(s, ShouldResemble, model.DefaultLeagueSettings())
		})

		Convey("When a partial league is given the rest is defaulted", func() {
			path := writeFile(t, dir, "league.yaml", "scoring_type: h2h_points\nnum_teams: 10\nroster:\n  batting: 13\n  pitching: 9\n")
			s, err := source.ReadLeague(path)
			So(err, ShouldBeNil)
			So(s.ScoringType, ShouldEqual, model.H2HPoints)
			So(s.NumTeams, ShouldEqual, 10)
			So(s.SlotsFor(model.Batting), ShouldEqual, 130)
			So(s.Budget, ShouldEqual, 260)
		})
	})
}

func TestArtifacts(t *testing.T) {
	Convey("Given an artifact directory", t, func() {
		dir := t.TempDir()
		art := &scoring.Artifact{
			Family:       model.FamilySleeper,
			Domain:       model.Batting,
			Version:      "v1",
			Features:     []string{"age"},
			Means:        []float64{27},
			Intercept:    -1,
			Coefficients: []float64{-0.1},
			Calibration:  []scoring.CalibrationPoint{{Raw: 0.1, Calibrated: 0.05}, {Raw: 0.9, Calibrated: 0.8}},
		}
		So(source.WriteArtifacts(dir, []*scoring.Artifact{art}), ShouldBeNil)
		load := source.ArtifactLoader(dir)

		Convey("Then a written artifact loads back", func() {
			got, err := load(model.FamilySleeper, model.Batting)
			So(err, ShouldBeNil)
			So(got, ShouldResemble, art)
		})

		Convey("Then a missing artifact is an error", func() {
			_, err := load(model.FamilyBust, model.Pitching)
			So(err, ShouldNotBeNil)
		})
	})
}

func TestHistory(t *testing.T) {
	Convey("Given generated history written to disk", t, func() {
		h, err := synth.History(context.Background(), synth.Config{Players: 10, HistorySeasons: 1, Seed: 2, Workers: 1})
		So(err, ShouldBeNil)
		path := filepath.Join(t.TempDir(), "history.yaml")
		So(source.WriteYAML(path, h), ShouldBeNil)

		Convey("Then it reads back", func() {
			got, err := source.ReadHistory(path)
			So(err, ShouldBeNil)
			So(got.Seasons, ShouldHaveLength, 1)
			So(got.Seasons[0].Samples, ShouldHaveLength, len(h.Seasons[0].Samples))
		})
	})
}
