package datasource

import (
	"context"
	"database/sql"
	"fmt"
	"iter"
	"path/filepath"
	"strings"

	"github.com/Masterminds/squirrel"
	_ "github.com/marcboeker/go-duckdb"
	"github.com/rxtech-lab/argo-sim/internal/logger"
	"github.com/rxtech-lab/argo-sim/internal/types"
	"github.com/rxtech-lab/argo-sim/pkg/errors"
	"go.uber.org/zap"
)

const barsView = "market_data"

// DuckDB reads bars from a CSV or Parquet file through an in-memory DuckDB database.
//
// The file needs the columns time, symbol, open, high, low, close and volume. An optional
// class column sets the asset class; rows without one use the default class.
type DuckDB struct {
	db           *sql.DB
	logger       *logger.Logger
	sq           squirrel.StatementBuilderType
	window       Range
	defaultClass types.AssetClass
}

// DuckDBOption configures a DuckDB source.
type DuckDBOption func(*DuckDB)

// WithRange limits the source to events inside r.
func WithRange(r Range) DuckDBOption {
	return func(d *DuckDB) {
		d.window = r
	}
}

// WithDefaultClass sets the class of assets whose rows carry no class.
func WithDefaultClass(class types.AssetClass) DuckDBOption {
	return func(d *DuckDB) {
		d.defaultClass = class
	}
}

// WithLogger sets the logger of the source.
func WithLogger(log *logger.Logger) DuckDBOption {
	return func(d *DuckDB) {
		d.logger = log
	}
}

// NewDuckDB opens path, a .csv or .parquet file, as an event source.
func NewDuckDB(ctx context.Context, path string, opts ...DuckDBOption) (*DuckDB, error) {
	d := &DuckDB{
		logger:       logger.NewNop(),
		sq:           squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
		defaultClass: types.AssetClassEquity,
	}

	for _, opt := range opts {
		opt(d)
	}

	reader, err := readerFor(path)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeSourceUnavailable, "failed to open duckdb", err)
	}

	d.db = db

	if err := d.initialize(ctx, reader); err != nil {
		db.Close()

		return nil, err
	}

	d.logger.Debug("Opened bar file", zap.String("path", path))

	return d, nil
}

func readerFor(path string) (string, error) {
	quoted := "'" + strings.ReplaceAll(path, "'", "''") + "'"

	switch strings.ToLower(filepath.Ext(path)) {
	case ".parquet":
		return fmt.Sprintf("read_parquet(%s)", quoted), nil
	case ".csv":
		return fmt.Sprintf("read_csv_auto(%s, header=true)", quoted), nil
	default:
		return "", errors.Newf(errors.ErrCodeSourceUnavailable, "unsupported bar file %q (expected .csv or .parquet)", path)
	}
}

// initialize creates the bars view over the file. Squirrel has no CREATE VIEW, so the
// statement is raw SQL.
func (d *DuckDB) initialize(ctx context.Context, reader string) error {
	columns, err := d.columns(ctx, reader)
	if err != nil {
		return err
	}

	for _, required := range []string{"time", "symbol", "open", "high", "low", "close", "volume"} {
		if !columns[required] {
			return errors.Newf(errors.ErrCodeSourceReadFailed, "bar file has no %s column", required)
		}
	}

	class := "'" + strings.ReplaceAll(string(d.defaultClass), "'", "''") + "'"
	if columns["class"] {
		class = fmt.Sprintf("COALESCE(CAST(class AS VARCHAR), %s)", class)
	}

	query := fmt.Sprintf(`
		CREATE OR REPLACE VIEW %s AS
		SELECT CAST(time AS TIMESTAMP) AS time, CAST(symbol AS VARCHAR) AS symbol, %s AS class,
			CAST(open AS DOUBLE) AS open, CAST(high AS DOUBLE) AS high, CAST(low AS DOUBLE) AS low,
			CAST(close AS DOUBLE) AS close, CAST(volume AS DOUBLE) AS volume
		FROM %s;
	`, barsView, class, reader)

	if _, err := d.db.ExecContext(ctx, query); err != nil {
		return errors.Wrap(errors.ErrCodeSourceReadFailed, "failed to create bars view", err)
	}

	return nil
}

func (d *DuckDB) columns(ctx context.Context, reader string) (map[string]bool, error) {
	rows, err := d.db.QueryContext(ctx, fmt.Sprintf("DESCRIBE SELECT * FROM %s", reader))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeSourceReadFailed, "failed to read bar file schema", err)
	}
	defer rows.Close()

	names, err := rows.Columns()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeSourceReadFailed, "failed to read bar file schema", err)
	}

	columns := make(map[string]bool)

	for rows.Next() {
		values := make([]any, len(names))
		pointers := make([]any, len(names))

		for i := range values {
			pointers[i] = &values[i]
		}

		if err := rows.Scan(pointers...); err != nil {
			return nil, errors.Wrap(errors.ErrCodeSourceReadFailed, "failed to read bar file schema", err)
		}

		// first column of DESCRIBE is column_name
		if name, ok := values[0].(string); ok {
			columns[strings.ToLower(name)] = true
		}
	}

	return columns, rows.Err()
}

func (d *DuckDB) filter(builder squirrel.SelectBuilder) squirrel.SelectBuilder {
	if d.window.Start.IsSome() {
		builder = builder.Where(squirrel.GtOrEq{"time": d.window.Start.Unwrap()})
	}

	if d.window.End.IsSome() {
		builder = builder.Where(squirrel.LtOrEq{"time": d.window.End.Unwrap()})
	}

	return builder
}

// Count implements EventSource.
func (d *DuckDB) Count(ctx context.Context) (int, error) {
	query, args, err := d.filter(d.sq.Select("COUNT(DISTINCT time)").From(barsView)).ToSql()
	if err != nil {
		return 0, errors.Wrap(errors.ErrCodeSourceReadFailed, "failed to build count query", err)
	}

	var count int
	if err := d.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, errors.Wrap(errors.ErrCodeSourceReadFailed, "failed to count events", err)
	}

	return count, nil
}

// Events implements EventSource. Rows sharing a time form one event.
func (d *DuckDB) Events(ctx context.Context) iter.Seq2[types.Event, error] {
	return func(yield func(types.Event, error) bool) {
		query, args, err := d.filter(
			d.sq.Select("time", "symbol", "class", "open", "high", "low", "close", "volume").From(barsView),
		).OrderBy("time ASC", "symbol ASC").ToSql()
		if err != nil {
			yield(types.Event{}, errors.Wrap(errors.ErrCodeSourceReadFailed, "failed to build bars query", err))

			return
		}

		rows, err := d.db.QueryContext(ctx, query, args...)
		if err != nil {
			yield(types.Event{}, errors.Wrap(errors.ErrCodeSourceReadFailed, "failed to query bars", err))

			return
		}
		defer rows.Close()

		var current *types.Event

		for rows.Next() {
			var (
				bar    types.Bar
				symbol string
				class  string
			)

			if err := rows.Scan(&bar.Time, &symbol, &class, &bar.Open, &bar.High, &bar.Low, &bar.Close, &bar.Volume); err != nil {
				yield(types.Event{}, errors.Wrap(errors.ErrCodeSourceReadFailed, "failed to scan bar", err))

				return
			}

			bar.Asset = types.NewAsset(symbol, types.AssetClass(class))

			if current != nil && !current.Time.Equal(bar.Time) {
				if !yield(*current, nil) {
					return
				}

				current = nil
			}

			if current == nil {
				event := types.NewEvent(bar.Time)
				current = &event
			}

			current.Bars[bar.Asset] = bar
		}

		if err := rows.Err(); err != nil {
			yield(types.Event{}, errors.Wrap(errors.ErrCodeSourceReadFailed, "failed to read bars", err))

			return
		}

		if current != nil {
			yield(*current, nil)
		}
	}
}

// Close implements EventSource.
func (d *DuckDB) Close() error {
	if d.db == nil {
		return nil
	}

	return d.db.Close()
}
