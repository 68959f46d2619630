package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/okian/valuator/internal/adapters/source"
	"github.com/okian/valuator/internal/domain/marcel"
	"github.com/okian/valuator/internal/domain/training"
	"github.com/okian/valuator/pkg/logger"
)

type trainFlags struct {
	history string
	members int
	l2      float64
}

func newTrainCmd(c *cli) *cobra.Command {
	var f trainFlags
	cmd := &cobra.Command{
		Use:   "train",
		Short: "Fit model artifacts from a labeled history file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.train(cmd, f)
		},
	}
	cmd.Flags().StringVar(&f.history, "history", "", "history YAML file (required)")
	cmd.Flags().IntVar(&f.members, "members", training.DefaultMembers, "bootstrap members of the regression ensemble")
	cmd.Flags().Float64Var(&f.l2, "l2", training.DefaultL2, "L2 penalty of the logistic models")
	_ = cmd.MarkFlagRequired("history")
	return cmd
}

func (c *cli) train(cmd *cobra.Command, f trainFlags) error {
	ctx := cmd.Context()
	log := logger.Get().Named("train")

	h, err := source.ReadHistory(f.history)
	if err != nil {
		return err
	}

	tr := training.NewTrainer(
		training.WithSeed(c.cfg.TrainingSeed),
		training.WithMembers(f.members),
		training.WithL2(f.l2),
		training.WithVersion(c.cfg.ModelVersion),
		training.WithProjector(marcel.NewProjector(
			marcel.WithReliability(c.cfg.BattingReliability, c.cfg.PitchingReliability),
			marcel.WithAgeDelta(c.cfg.AgeDeltaPerYear))),
	)
	res, err := tr.Train(ctx, *h)
	if err != nil {
		return err
	}

	skipped := make([]string, 0, len(res.Skipped))
	for name := range res.Skipped {
		skipped = append(skipped, name)
	}
	sort.Strings(skipped)
	for _, name := range skipped {
		log.Warn(ctx, "model not trained", logger.String("model", name), logger.Error(res.Skipped[name]))
	}

	if err := source.WriteArtifacts(c.cfg.ArtifactsDir, res.Artifacts); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "wrote %d artifacts to %s (%d skipped)\n",
		len(res.Artifacts), c.cfg.ArtifactsDir, len(skipped))
	return nil
}
