package journal

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/Masterminds/squirrel"
	_ "github.com/marcboeker/go-duckdb"
	"github.com/rxtech-lab/argo-sim/internal/logger"
	"github.com/rxtech-lab/argo-sim/internal/types"
	"github.com/rxtech-lab/argo-sim/pkg/errors"
	"go.uber.org/zap"
)

// DuckDB records entries into DuckDB tables: accounts, signals and instructions.
type DuckDB struct {
	db     *sql.DB
	logger *logger.Logger
	sq     squirrel.StatementBuilderType
	mu     sync.RWMutex
	closed bool
}

// Summary aggregates the entries of one run.
type Summary struct {
	Events       int
	Signals      int
	Instructions int
	TotalFees    float64
}

var tables = []string{"accounts", "signals", "instructions"}

// NewDuckDB opens the journal database at path. An empty path keeps it in memory.
func NewDuckDB(ctx context.Context, path string, log *logger.Logger) (*DuckDB, error) {
	if log == nil {
		log = logger.NewNop()
	}

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeJournalWriteFailed, "failed to open journal database", err)
	}

	d := &DuckDB{
		db:     db,
		logger: log,
		sq:     squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question),
	}

	if err := d.initialize(ctx); err != nil {
		db.Close()

		return nil, err
	}

	return d, nil
}

// initialize creates the journal tables. Squirrel has no CREATE TABLE, so the
// statements are raw SQL.
func (d *DuckDB) initialize(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS accounts (
			run_id TEXT,
			time TIMESTAMP,
			cash DOUBLE,
			buying_power DOUBLE,
			equity DOUBLE,
			positions INTEGER
		)`,
		`CREATE TABLE IF NOT EXISTS signals (
			run_id TEXT,
			time TIMESTAMP,
			symbol TEXT,
			class TEXT,
			rating DOUBLE,
			signal_type TEXT,
			strategy_name TEXT,
			reason TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS instructions (
			run_id TEXT,
			instruction_id TEXT,
			time TIMESTAMP,
			symbol TEXT,
			class TEXT,
			quantity DOUBLE,
			price DOUBLE,
			fee DOUBLE,
			strategy_name TEXT,
			reason TEXT
		)`,
	}

	for _, statement := range statements {
		if _, err := d.db.ExecContext(ctx, statement); err != nil {
			return errors.Wrap(errors.ErrCodeJournalWriteFailed, "failed to create journal tables", err)
		}
	}

	return nil
}

// Record implements Sink. The entry is written in one transaction.
func (d *DuckDB) Record(ctx context.Context, entry Entry) error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		return errors.New(errors.ErrCodeJournalClosed, "journal is closed")
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(errors.ErrCodeJournalWriteFailed, "failed to begin transaction", err)
	}

	if err := d.insert(ctx, tx, entry); err != nil {
		tx.Rollback()

		return err
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(errors.ErrCodeJournalWriteFailed, "failed to commit journal entry", err)
	}

	return nil
}

func (d *DuckDB) insert(ctx context.Context, tx *sql.Tx, entry Entry) error {
	account := entry.Account

	_, err := d.sq.Insert("accounts").
		Columns("run_id", "time", "cash", "buying_power", "equity", "positions").
		Values(entry.RunID, entry.Event.Time, account.Cash, account.BuyingPower, account.Equity(), len(account.Positions)).
		RunWith(tx).
		ExecContext(ctx)
	if err != nil {
		return errors.Wrap(errors.ErrCodeJournalWriteFailed, "failed to insert account", err)
	}

	if len(entry.Signals) > 0 {
		insert := d.sq.Insert("signals").
			Columns("run_id", "time", "symbol", "class", "rating", "signal_type", "strategy_name", "reason")

		for _, signal := range entry.Signals {
			insert = insert.Values(entry.RunID, entry.Event.Time, signal.Asset.Symbol, string(signal.Asset.Class),
				signal.Rating, string(signal.Type), signal.Strategy, signal.Reason)
		}

		if _, err := insert.RunWith(tx).ExecContext(ctx); err != nil {
			return errors.Wrap(errors.ErrCodeJournalWriteFailed, "failed to insert signals", err)
		}
	}

	if len(entry.Instructions) > 0 {
		insert := d.sq.Insert("instructions").
			Columns("run_id", "instruction_id", "time", "symbol", "class", "quantity", "price", "fee", "strategy_name", "reason")

		for _, instruction := range entry.Instructions {
			insert = insert.Values(entry.RunID, instruction.ID, instruction.Time, instruction.Asset.Symbol,
				string(instruction.Asset.Class), instruction.Quantity, instruction.Price, instruction.Fee,
				instruction.Strategy, instruction.Reason)
		}

		if _, err := insert.RunWith(tx).ExecContext(ctx); err != nil {
			return errors.Wrap(errors.ErrCodeJournalWriteFailed, "failed to insert instructions", err)
		}
	}

	return nil
}

// Summary aggregates the entries recorded for runID.
func (d *DuckDB) Summary(ctx context.Context, runID string) (Summary, error) {
	var summary Summary

	counts := []struct {
		table string
		out   *int
	}{
		{table: "accounts", out: &summary.Events},
		{table: "signals", out: &summary.Signals},
		{table: "instructions", out: &summary.Instructions},
	}

	for _, count := range counts {
		err := d.sq.Select("COUNT(*)").
			From(count.table).
			Where(squirrel.Eq{"run_id": runID}).
			RunWith(d.db).
			QueryRowContext(ctx).
			Scan(count.out)
		if err != nil {
			return Summary{}, errors.Wrapf(errors.ErrCodeJournalReadFailed, err, "failed to count %s", count.table)
		}
	}

	err := d.sq.Select("COALESCE(SUM(fee), 0)").
		From("instructions").
		Where(squirrel.Eq{"run_id": runID}).
		RunWith(d.db).
		QueryRowContext(ctx).
		Scan(&summary.TotalFees)
	if err != nil {
		return Summary{}, errors.Wrap(errors.ErrCodeJournalReadFailed, "failed to sum fees", err)
	}

	return summary, nil
}

// RunSummary describes one run stored in the journal.
type RunSummary struct {
	RunID  string
	Events int
	First  time.Time
	Last   time.Time
}

// Runs lists the runs of the journal, oldest first.
func (d *DuckDB) Runs(ctx context.Context) ([]RunSummary, error) {
	rows, err := d.sq.Select("run_id", "COUNT(*)", "MIN(time)", "MAX(time)").
		From("accounts").
		GroupBy("run_id").
		OrderBy("MIN(time)", "run_id").
		RunWith(d.db).
		QueryContext(ctx)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeJournalReadFailed, "failed to query runs", err)
	}
	defer rows.Close()

	runs := make([]RunSummary, 0)

	for rows.Next() {
		var run RunSummary
		if err := rows.Scan(&run.RunID, &run.Events, &run.First, &run.Last); err != nil {
			return nil, errors.Wrap(errors.ErrCodeJournalReadFailed, "failed to scan run", err)
		}

		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeJournalReadFailed, "failed to read runs", err)
	}

	return runs, nil
}

// Instructions returns the fills of runID in time order. A non-empty symbols list keeps
// only fills of those symbols.
func (d *DuckDB) Instructions(ctx context.Context, runID string, symbols []string) ([]types.Instruction, error) {
	query := d.sq.Select("instruction_id", "time", "symbol", "class", "quantity", "price", "fee", "strategy_name", "reason").
		From("instructions").
		Where(squirrel.Eq{"run_id": runID}).
		OrderBy("time", "symbol")

	if len(symbols) > 0 {
		query = query.Where(squirrel.Eq{"symbol": symbols})
	}

	rows, err := query.RunWith(d.db).QueryContext(ctx)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeJournalReadFailed, "failed to query instructions", err)
	}
	defer rows.Close()

	instructions := make([]types.Instruction, 0)

	for rows.Next() {
		var (
			instruction types.Instruction
			class       string
		)

		err := rows.Scan(&instruction.ID, &instruction.Time, &instruction.Asset.Symbol, &class,
			&instruction.Quantity, &instruction.Price, &instruction.Fee, &instruction.Strategy, &instruction.Reason)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeJournalReadFailed, "failed to scan instruction", err)
		}

		instruction.Asset.Class = types.AssetClass(class)
		instructions = append(instructions, instruction)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeJournalReadFailed, "failed to read instructions", err)
	}

	return instructions, nil
}

// Export writes every journal table to a Parquet file in dir.
func (d *DuckDB) Export(ctx context.Context, dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.Wrap(errors.ErrCodeJournalWriteFailed, "failed to create export directory", err)
	}

	for _, table := range tables {
		path := filepath.Join(dir, table+".parquet")
		quoted := "'" + strings.ReplaceAll(path, "'", "''") + "'"

		// Squirrel doesn't support COPY
		if _, err := d.db.ExecContext(ctx, fmt.Sprintf(`COPY %s TO %s (FORMAT PARQUET)`, table, quoted)); err != nil {
			return errors.Wrapf(errors.ErrCodeJournalWriteFailed, err, "failed to export %s", table)
		}
	}

	d.logger.Info("Exported journal to Parquet", zap.String("dir", dir))

	return nil
}

// Close implements Sink.
func (d *DuckDB) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil
	}

	d.closed = true

	return d.db.Close()
}
