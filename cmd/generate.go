package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/okian/valuator/internal/adapters/source"
	"github.com/okian/valuator/internal/synth"
)

type generateFlags struct {
	synth.Config
	out     string
	history string
}

func newGenerateCmd(c *cli) *cobra.Command {
	f := generateFlags{Config: synth.DefaultConfig()}
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Write a synthetic population and, optionally, a training history",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.generate(cmd, f)
		},
	}
	fl := cmd.Flags()
	fl.IntVar(&f.Players, "players", f.Players, "number of players")
	fl.IntVar(&f.EvalSeason, "season", f.EvalSeason, "evaluation season")
	fl.IntVar(&f.Seasons, "seasons", f.Seasons, "maximum seasons of history per player")
	fl.IntVar(&f.HistorySeasons, "history-seasons", f.HistorySeasons, "cohorts in the training history")
	fl.Float64Var(&f.PitcherShare, "pitcher-share", f.PitcherShare, "share of pitchers")
	fl.Int64Var(&f.Seed, "seed", f.Seed, "generator seed")
	fl.StringVar(&f.out, "out", "population.yaml", "population output file")
	fl.StringVar(&f.history, "history-out", "", "history output file; skipped when empty")
	return cmd
}

func (c *cli) generate(cmd *cobra.Command, f generateFlags) error {
	ctx := cmd.Context()
	f.Workers = c.cfg.WorkerCount

	pop, err := synth.Generate(ctx, f.Config)
	if err != nil {
		return err
	}
	if err := source.WriteYAML(f.out, pop); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "wrote %d players to %s\n", len(pop.Players), f.out)

	if f.history == "" {
		return nil
	}
	h, err := synth.History(ctx, f.Config)
	if err != nil {
		return err
	}
	if err := source.WriteYAML(f.history, h); err != nil {
		return err
	}
	samples := 0
	for _, s := range h.Seasons {
		samples += len(s.Samples)
	}
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "wrote %d history samples in %d cohorts to %s\n", samples, len(h.Seasons), f.history)
	return nil
}
