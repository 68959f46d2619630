package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/okian/valuator/internal/adapters/repository"
	"github.com/okian/valuator/internal/adapters/source"
	"github.com/okian/valuator/internal/app"
	"github.com/okian/valuator/internal/config"
	"github.com/okian/valuator/internal/domain/model"
	"github.com/okian/valuator/pkg/logger"
	"github.com/okian/valuator/pkg/metrics"
)

// HTTP server timeout constants for the metrics endpoint.
const (
	readHeaderTimeout = 5 * time.Second
	writeTimeout      = 10 * time.Second
	shutdownTimeout   = 5 * time.Second
)

type runFlags struct {
	population string
	league     string
	date       string
	out        string
	top        int
}

// runOutput is the JSON document written by run --out.
type runOutput struct {
	Run          model.RunMeta            `json:"run"`
	Records      []model.ProjectionRecord `json:"records"`
	Trajectories []model.TrajectoryRecord `json:"trajectories"`
	Issues       []model.Issue            `json:"issues,omitempty"`
}

func newRunCmd(c *cli) *cobra.Command {
	var f runFlags
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Score a population and publish one run",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.run(cmd, f)
		},
	}
	cmd.Flags().StringVar(&f.population, "population", "", "population YAML file (required)")
	cmd.Flags().StringVar(&f.league, "league", "", "league settings YAML file (default 12-team 5x5 roto)")
	cmd.Flags().StringVar(&f.date, "date", "", "run date YYYY-MM-DD (default today)")
	cmd.Flags().StringVar(&f.out, "out", "", "write records and trajectories as JSON to this file")
	cmd.Flags().IntVar(&f.top, "top", 10, "print the top N players of the run")
	_ = cmd.MarkFlagRequired("population")
	return cmd
}

func (c *cli) run(cmd *cobra.Command, f runFlags) error {
	ctx := cmd.Context()
	log := logger.Get().Named("run")

	pop, err := source.ReadPopulation(f.population)
	if err != nil {
		return err
	}
	league, err := source.ReadLeague(f.league)
	if err != nil {
		return err
	}

	store, err := openStore(ctx, c.cfg)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	if c.cfg.MetricsAddr != "" {
		stopMetrics := serveMetrics(ctx, c.cfg.MetricsAddr, log)
		defer stopMetrics()
	}

	engine := app.New(c.cfg,
		app.WithStore(store),
		app.WithArtifactLoader(source.ArtifactLoader(c.cfg.ArtifactsDir)),
		app.WithLogger(log))
	res, err := engine.Run(ctx, app.RunRequest{Population: pop, League: league, RunDate: f.date})
	if err != nil {
		return err
	}

	if f.out != "" {
		if err := writeJSON(f.out, runOutput{
			Run:          res.Meta,
			Records:      res.Records,
			Trajectories: res.Trajectories,
			Issues:       res.Issues,
		}); err != nil {
			return err
		}
	}

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "run %s (%s, model %s): %d records, %d issues, %d degraded models\n",
		res.Meta.RunID, res.Meta.RunDate, res.Meta.ModelVersion, len(res.Records), len(res.Issues), len(res.Meta.Degraded))
	if f.top > 0 {
		top, err := store.TopN(ctx, res.Meta.RunID, f.top)
		if err != nil {
			return err
		}
		for _, e := range top {
			_, _ = fmt.Fprintf(out, "%3d  %-40s %6.2f\n", e.Rank, e.Key, e.Score)
		}
	}
	return nil
}

func openStore(ctx context.Context, cfg *config.Config) (repository.Store, error) {
	switch cfg.StoreDriver {
	case "sqlite":
		return repository.NewSQLiteStore(ctx, cfg.StoreDSN)
	default:
		return repository.NewTreapStore(), nil
	}
}

// serveMetrics exposes the metrics registry until the returned stop function is called.
func serveMetrics(ctx context.Context, addr string, log logger.Logger) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}))
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: readHeaderTimeout,
		WriteTimeout:      writeTimeout,
	}
	go func() {
		log.Info(ctx, "serving metrics", logger.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error(ctx, "metrics server failed", logger.Error(err))
		}
	}()
	return func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(sctx); err != nil {
			log.Warn(ctx, "metrics server shutdown failed", logger.Error(err))
		}
	}
}

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrapf(err, "create %s", filepath.Dir(path))
	}
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "create %s", path)
	}
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		_ = f.Close()
		return eris.Wrapf(err, "encode %s", path)
	}
	return eris.Wrapf(f.Close(), "close %s", path)
}
