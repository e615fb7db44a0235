package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/rxtech-lab/argo-sim/internal/backtest/engine"
	"github.com/rxtech-lab/argo-sim/internal/config"
	"github.com/rxtech-lab/argo-sim/internal/journal"
	"github.com/rxtech-lab/argo-sim/internal/logger"
	"github.com/rxtech-lab/argo-sim/internal/strategy"
	"github.com/rxtech-lab/argo-sim/internal/version"
	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// runAction loads every config given as argument and runs them, at most
// --concurrency at a time. Runs share the journal registry only.
func runAction(ctx context.Context, cmd *cli.Command) error {
	paths := cmd.Args().Slice()
	if len(paths) == 0 {
		return fmt.Errorf("at least one config file is required")
	}

	log, err := logger.NewLoggerWithLevel(logger.ParseLevel(cmd.String("log-level")))
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer log.Sync()

	configs := make([]*config.Config, 0, len(paths))
	for _, path := range paths {
		cfg, err := config.Load(path)
		if err != nil {
			return fmt.Errorf("failed to load %s: %w", path, err)
		}

		configs = append(configs, cfg)
	}

	journals := journal.NewRegistry(log)
	defer journals.Close()

	deps := engine.Dependencies{
		Strategies: strategy.NewDefaultRegistry(),
		Journals:   journals,
		Logger:     log,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(int(cmd.Int("concurrency")), 1))

	for _, cfg := range configs {
		g.Go(func() error {
			return runOne(ctx, cfg, deps, progressOutput(cmd), log)
		})
	}

	return g.Wait()
}

func runOne(ctx context.Context, cfg *config.Config, deps engine.Dependencies, out io.Writer, log *logger.Logger) error {
	run, err := engine.FromConfig(ctx, cfg, deps)
	if err != nil {
		return fmt.Errorf("failed to set up %s: %w", cfg.RunName(), err)
	}
	defer run.Close()

	var bar *progressbar.ProgressBar

	callbacks := engine.LifecycleCallbacks{
		OnRunStart: func(runID string, total int) error {
			bar = progressbar.NewOptions(total,
				progressbar.OptionSetWriter(out),
				progressbar.OptionSetDescription(cfg.RunName()),
				progressbar.OptionShowCount(),
			)

			return nil
		},
		OnProcessData: func(current int, total int) error {
			return bar.Set(current)
		},
	}

	result, err := run.Execute(ctx, callbacks)
	if bar != nil {
		_ = bar.Finish()
	}

	if err != nil {
		return err
	}

	log.Info("Run completed",
		zap.String("name", cfg.RunName()),
		zap.String("run_id", result.Stats.ID),
		zap.Int("events", result.Stats.Events),
		zap.Int("fills", result.Stats.Fills),
		zap.Float64("final_equity", result.Stats.FinalEquity),
		zap.String("results", run.ResultFolder()),
	)

	return nil
}

func progressOutput(cmd *cli.Command) io.Writer {
	if cmd.Bool("no-progress") {
		return io.Discard
	}

	return os.Stderr
}

func schemaAction(ctx context.Context, cmd *cli.Command) error {
	cfg := config.Defaults()

	schema, err := cfg.GenerateSchemaJSON()
	if err != nil {
		return fmt.Errorf("failed to generate schema: %w", err)
	}

	_, err = fmt.Fprintln(cmd.Root().Writer, schema)

	return err
}

func strategiesAction(ctx context.Context, cmd *cli.Command) error {
	for _, name := range strategy.NewDefaultRegistry().List() {
		if _, err := fmt.Fprintln(cmd.Root().Writer, name); err != nil {
			return err
		}
	}

	return nil
}

func newCommand() *cli.Command {
	return &cli.Command{
		Name:    "backtest",
		Usage:   "Run strategy backtests over historical bars",
		Version: version.GetVersion(),
		Commands: []*cli.Command{
			{
				Name:      "run",
				Usage:     "Run one backtest per config file",
				ArgsUsage: "CONFIG [CONFIG...]",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:    "concurrency",
						Aliases: []string{"c"},
						Usage:   "Maximum number of runs executed at the same time",
						Value:   1,
					},
					&cli.StringFlag{
						Name:    "log-level",
						Aliases: []string{"l"},
						Usage:   "Log level (debug, info, warn, error)",
						Value:   "info",
						Sources: cli.EnvVars("ARGO_LOG_LEVEL"),
					},
					&cli.BoolFlag{
						Name:  "no-progress",
						Usage: "Hide the progress bars",
					},
				},
				Action: runAction,
			},
			{
				Name:   "schema",
				Usage:  "Print the JSON schema of the config file",
				Action: schemaAction,
			},
			{
				Name:   "strategies",
				Usage:  "List the available strategies",
				Action: strategiesAction,
			},
		},
	}
}

func main() {
	if err := newCommand().Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}
