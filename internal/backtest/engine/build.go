package engine

import (
	"context"
	"os"
	"path/filepath"

	"github.com/rxtech-lab/argo-sim/internal/account"
	"github.com/rxtech-lab/argo-sim/internal/broker"
	"github.com/rxtech-lab/argo-sim/internal/broker/commission_fee"
	"github.com/rxtech-lab/argo-sim/internal/config"
	"github.com/rxtech-lab/argo-sim/internal/datasource"
	"github.com/rxtech-lab/argo-sim/internal/journal"
	"github.com/rxtech-lab/argo-sim/internal/logger"
	"github.com/rxtech-lab/argo-sim/internal/pricing"
	"github.com/rxtech-lab/argo-sim/internal/strategy"
	"github.com/rxtech-lab/argo-sim/internal/types"
	"github.com/rxtech-lab/argo-sim/pkg/errors"
	"go.uber.org/zap"
)

// Dependencies are the shared objects a configured run is built with.
type Dependencies struct {
	// Strategies defaults to strategy.NewDefaultRegistry()
	Strategies *strategy.Registry
	// Journals is required when the config names a journal path
	Journals *journal.Registry
	Logger   *logger.Logger
}

// Run is a backtest assembled from a config. It owns its event source and journal handle.
type Run struct {
	*Engine
	config  *config.Config
	source  datasource.EventSource
	journal *journal.Handle
	logger  *logger.Logger
}

// FromConfig builds every collaborator named by cfg.
func FromConfig(ctx context.Context, cfg *config.Config, deps Dependencies) (*Run, error) {
	log := deps.Logger
	if log == nil {
		log = logger.NewNop()
	}

	registry := deps.Strategies
	if registry == nil {
		registry = strategy.NewDefaultRegistry()
	}

	strategies := make([]strategy.Strategy, 0, len(cfg.Strategies))
	for _, sc := range cfg.Strategies {
		s, err := registry.Create(sc.Name, sc.Params)
		if err != nil {
			return nil, err
		}

		strategies = append(strategies, s)
	}

	b, err := newBroker(cfg, log)
	if err != nil {
		return nil, err
	}

	source, err := datasource.NewDuckDB(ctx, cfg.DataPath,
		datasource.WithRange(cfg.Range()),
		datasource.WithLogger(log),
	)
	if err != nil {
		return nil, err
	}

	run := &Run{config: cfg, source: source, logger: log}

	var sink journal.Sink = journal.NewMemory()

	if cfg.JournalPath != "" {
		if deps.Journals == nil {
			source.Close()

			return nil, errors.New(errors.ErrCodeBacktestConfigError, "journal_path is set but no journal registry was provided")
		}

		handle, err := deps.Journals.Open(ctx, cfg.JournalPath)
		if err != nil {
			source.Close()

			return nil, err
		}

		run.journal = handle
		sink = handle
	}

	acct := types.NewAccount(cfg.InitialCash, cfg.BaseCurrency)

	run.Engine, err = New(Setup{
		Strategies: strategies,
		Policy:     cfg.Resolver,
		Broker:     b,
		Source:     source,
		Sink:       sink,
		Range:      cfg.Range(),
		Account:    acct,
	}, log)
	if err != nil {
		run.Close()

		return nil, err
	}

	return run, nil
}

func newBroker(cfg *config.Config, log *logger.Logger) (*broker.Broker, error) {
	engine, err := pricing.NewEngine(cfg.Pricing)
	if err != nil {
		return nil, err
	}

	commission, err := commission_fee.GetCommissionFeeHandler(cfg.Broker)
	if err != nil {
		return nil, err
	}

	var converter account.CurrencyConverter = account.IdentityConverter{}
	if len(cfg.Rates) > 0 {
		converter, err = account.NewRateTable(cfg.Rates)
		if err != nil {
			return nil, err
		}
	}

	model, err := account.NewCash(converter, account.CashConfig{Minimum: cfg.MinimumReserve})
	if err != nil {
		return nil, err
	}

	return broker.New(engine, commission, model, broker.Config{
		Allocation:       cfg.Allocation,
		DecimalPrecision: cfg.DecimalPrecision,
		AllowShort:       cfg.AllowShort,
	}, log)
}

// Execute runs the backtest and writes its results to ResultFolder.
func (r *Run) Execute(ctx context.Context, callbacks LifecycleCallbacks) (Result, error) {
	result, err := r.Engine.Run(ctx, callbacks)
	if err != nil {
		return result, errors.Wrapf(errors.ErrCodeBacktestRunFailed, err, "backtest %s failed", r.config.RunName())
	}

	if err := r.writeResults(ctx, result); err != nil {
		return result, err
	}

	return result, nil
}

// ResultFolder returns the folder the results of the run are written to.
func (r *Run) ResultFolder() string {
	return getResultFolder(r.config)
}

func (r *Run) writeResults(ctx context.Context, result Result) error {
	folder := r.ResultFolder()

	if err := os.MkdirAll(folder, 0755); err != nil {
		return errors.Wrap(errors.ErrCodeBacktestRunFailed, "failed to create result folder", err)
	}

	if err := types.WriteRunStats(filepath.Join(folder, "stats.yaml"), result.Stats); err != nil {
		return errors.Wrap(errors.ErrCodeBacktestRunFailed, "failed to write stats", err)
	}

	if r.journal != nil {
		if err := r.journal.Export(ctx, filepath.Join(folder, "journal")); err != nil {
			return err
		}
	}

	r.logger.Info("Wrote results", zap.String("folder", folder))

	return nil
}

// Close releases the event source and the journal handle.
func (r *Run) Close() error {
	var firstErr error

	if err := r.source.Close(); err != nil {
		firstErr = err
	}

	if r.journal != nil {
		if err := r.journal.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	return firstErr
}
