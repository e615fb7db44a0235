package writer

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/marcboeker/go-duckdb"
	"github.com/rxtech-lab/argo-sim/internal/logger"
	"github.com/rxtech-lab/argo-sim/internal/types"
	"github.com/rxtech-lab/argo-sim/pkg/errors"
	"go.uber.org/zap"
)

// DuckDBWriter buffers bars in an in-memory DuckDB table and exports them to a Parquet
// file with the columns the DuckDB event source reads.
type DuckDBWriter struct {
	db         *sql.DB
	tx         *sql.Tx
	stmt       *sql.Stmt
	outputPath string
	written    int
	logger     *logger.Logger
}

// NewDuckDBWriter creates a writer exporting to outputPath.
func NewDuckDBWriter(outputPath string, log *logger.Logger) *DuckDBWriter {
	if log == nil {
		log = logger.NewNop()
	}

	return &DuckDBWriter{
		outputPath: outputPath,
		logger:     log,
	}
}

// Initialize implements BarWriter.
func (w *DuckDBWriter) Initialize(ctx context.Context) (err error) {
	if w.db != nil {
		return nil
	}

	db, err := sql.Open("duckdb", "")
	if err != nil {
		return errors.Wrap(errors.ErrCodeBarWriteFailed, "failed to open duckdb", err)
	}

	defer func() {
		if err != nil {
			db.Close()
		}
	}()

	_, err = db.ExecContext(ctx, `
		CREATE TABLE bars (
			time TIMESTAMP,
			symbol VARCHAR,
			class VARCHAR,
			open DOUBLE,
			high DOUBLE,
			low DOUBLE,
			close DOUBLE,
			volume DOUBLE
		)
	`)
	if err != nil {
		return errors.Wrap(errors.ErrCodeBarWriteFailed, "failed to create bars table", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(errors.ErrCodeBarWriteFailed, "failed to begin transaction", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO bars (time, symbol, class, open, high, low, close, volume)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		tx.Rollback()

		return errors.Wrap(errors.ErrCodeBarWriteFailed, "failed to prepare insert", err)
	}

	w.db, w.tx, w.stmt = db, tx, stmt

	return nil
}

// Write implements BarWriter.
func (w *DuckDBWriter) Write(bar types.Bar) error {
	if w.stmt == nil {
		return errors.New(errors.ErrCodeBarWriteFailed, "writer is not initialized")
	}

	_, err := w.stmt.Exec(
		bar.Time.UTC(),
		bar.Asset.Symbol,
		string(bar.Asset.Class),
		bar.Open,
		bar.High,
		bar.Low,
		bar.Close,
		bar.Volume,
	)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeBarWriteFailed, err, "failed to insert %s bar at %s", bar.Asset.Symbol, bar.Time)
	}

	w.written++

	return nil
}

// Finalize implements BarWriter. Rows are exported ordered by time then symbol.
func (w *DuckDBWriter) Finalize(ctx context.Context) (string, error) {
	if w.tx == nil {
		return "", errors.New(errors.ErrCodeBarWriteFailed, "writer is not initialized or already finalized")
	}

	if err := w.stmt.Close(); err != nil {
		return "", errors.Wrap(errors.ErrCodeBarWriteFailed, "failed to close insert statement", err)
	}

	w.stmt = nil

	if err := w.tx.Commit(); err != nil {
		w.tx.Rollback()
		w.tx = nil

		return "", errors.Wrap(errors.ErrCodeBarWriteFailed, "failed to commit bars", err)
	}

	w.tx = nil

	// COPY takes no parameters, so the path is quoted inline.
	query := fmt.Sprintf(
		"COPY (SELECT * FROM bars ORDER BY time, symbol) TO '%s' (FORMAT PARQUET)",
		strings.ReplaceAll(w.outputPath, "'", "''"),
	)

	if _, err := w.db.ExecContext(ctx, query); err != nil {
		return "", errors.Wrapf(errors.ErrCodeBarWriteFailed, err, "failed to export bars to %s", w.outputPath)
	}

	w.logger.Info("Exported bars", zap.String("path", w.outputPath), zap.Int("rows", w.written))

	return w.outputPath, nil
}

// Close implements BarWriter.
func (w *DuckDBWriter) Close() error {
	if w.stmt != nil {
		w.stmt.Close()
		w.stmt = nil
	}

	if w.tx != nil {
		if err := w.tx.Rollback(); err != nil {
			w.logger.Warn("Failed to roll back bar transaction", zap.Error(err))
		}

		w.tx = nil
	}

	if w.db == nil {
		return nil
	}

	err := w.db.Close()
	w.db = nil

	if err != nil {
		return errors.Wrap(errors.ErrCodeBarWriteFailed, "failed to close duckdb", err)
	}

	return nil
}

// OutputPath implements BarWriter.
func (w *DuckDBWriter) OutputPath() string {
	return w.outputPath
}
