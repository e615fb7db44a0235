// Package testhelper prepares Parquet bar files for end-to-end backtests.
package testhelper

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/marcboeker/go-duckdb"
	"github.com/rxtech-lab/argo-sim/internal/types"
	"github.com/rxtech-lab/argo-sim/pkg/marketdata/writer"
)

// WriteBars writes bars to a Parquet file at path, creating its directory.
func WriteBars(ctx context.Context, path string, bars []types.Bar) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	w := writer.NewDuckDBWriter(path, nil)
	defer w.Close()

	if err := w.Initialize(ctx); err != nil {
		return err
	}

	for _, bar := range bars {
		if err := w.Write(bar); err != nil {
			return err
		}
	}

	_, err := w.Finalize(ctx)

	return err
}

// UpdateParquetSymbol copies inputPath to outputPath with every row moved to symbol.
func UpdateParquetSymbol(inputPath, outputPath, symbol string) error {
	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	return withDuckDB(func(db *sql.DB) error {
		_, err := db.Exec(fmt.Sprintf(
			"COPY (SELECT * REPLACE (%s AS symbol) FROM read_parquet(%s)) TO %s (FORMAT PARQUET)",
			quote(symbol), quote(inputPath), quote(outputPath),
		))
		if err != nil {
			return fmt.Errorf("failed to rewrite %s: %w", inputPath, err)
		}

		return nil
	})
}

// MergeParquet writes the rows of every input into one file ordered by time and symbol.
func MergeParquet(outputPath string, inputPaths ...string) error {
	if len(inputPaths) == 0 {
		return fmt.Errorf("no input files to merge")
	}

	quoted := make([]string, 0, len(inputPaths))
	for _, path := range inputPaths {
		quoted = append(quoted, quote(path))
	}

	return withDuckDB(func(db *sql.DB) error {
		_, err := db.Exec(fmt.Sprintf(
			"COPY (SELECT * FROM read_parquet([%s]) ORDER BY time, symbol) TO %s (FORMAT PARQUET)",
			strings.Join(quoted, ", "), quote(outputPath),
		))
		if err != nil {
			return fmt.Errorf("failed to merge parquet files: %w", err)
		}

		return nil
	})
}

func withDuckDB(fn func(db *sql.DB) error) error {
	db, err := sql.Open("duckdb", "")
	if err != nil {
		return fmt.Errorf("failed to open DuckDB connection: %w", err)
	}
	defer db.Close()

	return fn(db)
}

func quote(text string) string {
	return "'" + strings.ReplaceAll(text, "'", "''") + "'"
}
