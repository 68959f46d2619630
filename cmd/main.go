package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/okian/valuator/internal/config"
	"github.com/okian/valuator/pkg/logger"
)

// cli carries state shared by the subcommands after PersistentPreRunE ran.
type cli struct {
	cfg *config.Config

	configPath   string
	logLevel     string
	logFormat    string
	workers      int
	modelVersion string
	storeDriver  string
	storeDSN     string
	artifactsDir string
	metricsAddr  string
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:           "valuator",
		Short:         "Player valuation and projection engine",
		Long:          "Scores players for sleeper, bust and regression risk, projects multi-season value and prices them for a fantasy league.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.setup(cmd)
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			_ = logger.Sync()
		},
	}

	f := root.PersistentFlags()
	f.StringVar(&c.configPath, "config", "", "YAML config file (overrides VALUATOR_CONFIG)")
	f.StringVar(&c.logLevel, "log-level", "", "log level: debug, info, warn, error")
	f.StringVar(&c.logFormat, "log-format", "", "log format: text or json")
	f.IntVar(&c.workers, "workers", 0, "per-player worker count")
	f.StringVar(&c.modelVersion, "model-version", "", "model set version")
	f.StringVar(&c.storeDriver, "store", "", "run store: memory or sqlite")
	f.StringVar(&c.storeDSN, "store-dsn", "", "sqlite database path")
	f.StringVar(&c.artifactsDir, "artifacts", "", "model artifacts directory")
	f.StringVar(&c.metricsAddr, "metrics-addr", "", "serve /metrics on this address during a run")

	root.AddCommand(newRunCmd(c), newTrainCmd(c), newGenerateCmd(c))
	return root
}

// setup loads config (defaults, file, env), applies flag overrides and initializes logging.
func (c *cli) setup(cmd *cobra.Command) error {
	if c.configPath != "" {
		if err := os.Setenv("VALUATOR_CONFIG", c.configPath); err != nil {
			return fmt.Errorf("set config path: %w", err)
		}
	}
	cfg, err := config.Load(cmd.Context())
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.LogLevel = c.logLevel
	}
	if flags.Changed("log-format") {
		cfg.LogFormat = c.logFormat
	}
	if flags.Changed("workers") {
		cfg.WorkerCount = c.workers
	}
	if flags.Changed("model-version") {
		cfg.ModelVersion = c.modelVersion
	}
	if flags.Changed("store") {
		cfg.StoreDriver = c.storeDriver
	}
	if flags.Changed("store-dsn") {
		cfg.StoreDSN = c.storeDSN
	}
	if flags.Changed("artifacts") {
		cfg.ArtifactsDir = c.artifactsDir
	}
	if flags.Changed("metrics-addr") {
		cfg.MetricsAddr = c.metricsAddr
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	if err := logger.Init(
		logger.WithLevel(cfg.LogLevel),
		logger.WithFormat(cfg.LogFormat),
		logger.WithWriter(cmd.ErrOrStderr()),
	); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	c.cfg = cfg
	return nil
}

func main() {
	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		_, _ = os.Stderr.WriteString("valuator: " + err.Error() + "\n")
		stop()
		os.Exit(1)
	}
}
