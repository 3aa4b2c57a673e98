// Package analytics computes pivot cross-tabulations in an in-memory DuckDB database.
package analytics

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/carrier-dashboard/backend/internal/models"
	"github.com/carrier-dashboard/backend/internal/pivot"
	"github.com/google/uuid"
	"github.com/marcboeker/go-duckdb"
	"go.uber.org/zap"
)

// ErrUnknownField reports a pivot attribute that is not a matrix column.
var ErrUnknownField = errors.New("analytics: unknown field")

// Options tunes the DuckDB instance.
type Options struct {
	Threads     int
	MemoryLimit string
	// MaxConcurrent bounds the number of cross-tabs computed at once.
	MaxConcurrent int
	Logger        *zap.Logger
}

// Engine owns an in-memory DuckDB database. Each cross-tab loads the matrix into its own
// table, queries it and drops it, so calls do not share state.
type Engine struct {
	db       *sql.DB
	logger   *zap.Logger
	querySem chan struct{}
}

// Open starts an in-memory DuckDB instance.
func Open(opts Options) (*Engine, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("analytics")
	if opts.Threads <= 0 {
		opts.Threads = 2
	}
	if opts.MemoryLimit == "" {
		opts.MemoryLimit = "256MB"
	}
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = 3
	}

	connector, err := duckdb.NewConnector("", func(execer driver.ExecerContext) error {
		pragmas := []string{
			fmt.Sprintf("PRAGMA memory_limit='%s'", strings.ReplaceAll(opts.MemoryLimit, "'", "")),
			fmt.Sprintf("PRAGMA threads=%d", opts.Threads),
			"PRAGMA enable_progress_bar=false",
		}
		for _, pragma := range pragmas {
			if _, err := execer.ExecContext(context.Background(), pragma, nil); err != nil {
				return fmt.Errorf("%s: %w", pragma, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create DuckDB connector: %w", err)
	}

	db := sql.OpenDB(connector)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to open DuckDB: %w", err)
	}
	logger.Debug("analytics engine ready",
		zap.Int("threads", opts.Threads),
		zap.String("memory_limit", opts.MemoryLimit))

	return &Engine{
		db:       db,
		logger:   logger,
		querySem: make(chan struct{}, opts.MaxConcurrent),
	}, nil
}

// Close releases the database.
func (e *Engine) Close() error {
	return e.db.Close()
}

// CrossTab aggregates the matrix according to settings. Rows and Cols name matrix columns;
// Vals name the column the aggregator reads.
func (e *Engine) CrossTab(ctx context.Context, m models.Matrix, settings models.PivotSettings) (models.CrossTab, error) {
	settings = pivot.Normalize(settings)
	if err := pivot.Validate(settings); err != nil {
		return models.CrossTab{}, err
	}

	result := models.CrossTab{
		Settings:  settings,
		RowKeys:   [][]string{},
		ColKeys:   [][]string{},
		Cells:     map[string]map[string]float64{},
		RowTotals: map[string]float64{},
		ColTotals: map[string]float64{},
	}
	header := m.Header()
	if len(header) == 0 {
		return result, nil
	}

	// Table columns are named by position. Record keys may be empty or differ only by
	// case, which DuckDB identifiers cannot express.
	columns := make(map[string]string, len(header))
	for i, h := range header {
		if _, ok := columns[h]; !ok {
			columns[h] = columnName(i)
		}
	}
	resolve := func(fields []string) ([]string, error) {
		out := make([]string, len(fields))
		for i, f := range fields {
			col, ok := columns[f]
			if !ok {
				return nil, fmt.Errorf("%w: %q", ErrUnknownField, f)
			}
			out[i] = col
		}
		return out, nil
	}
	rowCols, err := resolve(settings.Rows)
	if err != nil {
		return models.CrossTab{}, err
	}
	colCols, err := resolve(settings.Cols)
	if err != nil {
		return models.CrossTab{}, err
	}
	valCols, err := resolve(settings.Vals)
	if err != nil {
		return models.CrossTab{}, err
	}

	select {
	case e.querySem <- struct{}{}:
		defer func() { <-e.querySem }()
	case <-ctx.Done():
		return models.CrossTab{}, ctx.Err()
	}

	start := time.Now()
	conn, err := e.db.Conn(ctx)
	if err != nil {
		return models.CrossTab{}, fmt.Errorf("failed to get connection: %w", err)
	}
	defer conn.Close()

	table := "pivot_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	if err := createTable(ctx, conn, table, len(header)); err != nil {
		return models.CrossTab{}, err
	}
	defer func() {
		if _, err := conn.ExecContext(context.WithoutCancel(ctx), "DROP TABLE IF EXISTS "+quoteIdent(table)); err != nil {
			e.logger.Warn("failed to drop pivot table", zap.String("table", table), zap.Error(err))
		}
	}()

	if err := appendRows(conn, table, m.Rows()); err != nil {
		return models.CrossTab{}, err
	}

	expr := aggregateExpr(settings.AggregatorName, valCols)
	q := query{conn: conn, table: table, expr: expr}

	both := append(append([]string{}, rowCols...), colCols...)
	cells, err := q.groups(ctx, both)
	if err != nil {
		return models.CrossTab{}, err
	}
	nr := len(settings.Rows)
	for _, g := range cells {
		rk, ck := models.FlatKey(g.keys[:nr]), models.FlatKey(g.keys[nr:])
		if _, ok := result.Cells[rk]; !ok {
			result.Cells[rk] = map[string]float64{}
		}
		if g.valid {
			result.Cells[rk][ck] = g.value
		}
	}

	rowGroups, err := q.groups(ctx, rowCols)
	if err != nil {
		return models.CrossTab{}, err
	}
	for _, g := range rowGroups {
		result.RowKeys = append(result.RowKeys, g.keys)
		if g.valid {
			result.RowTotals[models.FlatKey(g.keys)] = g.value
		}
	}

	colGroups, err := q.groups(ctx, colCols)
	if err != nil {
		return models.CrossTab{}, err
	}
	for _, g := range colGroups {
		result.ColKeys = append(result.ColKeys, g.keys)
		if g.valid {
			result.ColTotals[models.FlatKey(g.keys)] = g.value
		}
	}

	grand, err := q.groups(ctx, nil)
	if err != nil {
		return models.CrossTab{}, err
	}
	if len(grand) == 1 && grand[0].valid {
		result.GrandTotal = grand[0].value
	}

	e.logger.Debug("cross-tab computed",
		zap.String("aggregator", settings.AggregatorName),
		zap.Int("rows", len(result.RowKeys)),
		zap.Int("cols", len(result.ColKeys)),
		zap.Duration("elapsed", time.Since(start)))
	return result, nil
}

func columnName(i int) string {
	return fmt.Sprintf("c%d", i)
}

func createTable(ctx context.Context, conn *sql.Conn, table string, width int) error {
	cols := make([]string, width)
	for i := range cols {
		cols[i] = quoteIdent(columnName(i)) + " VARCHAR NOT NULL"
	}
	stmt := fmt.Sprintf("CREATE TABLE %s (%s)", quoteIdent(table), strings.Join(cols, ", "))
	if _, err := conn.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}
	return nil
}

// appendRows loads the matrix through the native Appender API.
func appendRows(conn *sql.Conn, table string, rows [][]string) error {
	err := conn.Raw(func(driverConn interface{}) error {
		dConn, ok := driverConn.(*duckdb.Conn)
		if !ok {
			return fmt.Errorf("failed to cast to duckdb.Conn")
		}

		appender, err := duckdb.NewAppenderFromConn(dConn, "", table)
		if err != nil {
			return fmt.Errorf("failed to create appender: %w", err)
		}
		defer appender.Close()

		args := make([]driver.Value, 0)
		for i, row := range rows {
			args = args[:0]
			for _, v := range row {
				args = append(args, v)
			}
			if err := appender.AppendRow(args...); err != nil {
				return fmt.Errorf("failed to append row %d: %w", i, err)
			}
		}
		return appender.Flush()
	})
	if err != nil {
		return fmt.Errorf("appender error: %w", err)
	}
	return nil
}

// aggregateExpr builds the aggregate over the table columns in vals.
func aggregateExpr(aggregator string, vals []string) string {
	switch aggregator {
	case pivot.AggSum:
		return fmt.Sprintf("COALESCE(SUM(COALESCE(TRY_CAST(%s AS DOUBLE), 0)), 0)", quoteIdent(vals[0]))
	case pivot.AggAverage:
		return fmt.Sprintf("AVG(TRY_CAST(%s AS DOUBLE))", quoteIdent(vals[0]))
	case pivot.AggCountUnique:
		return fmt.Sprintf("CAST(COUNT(DISTINCT %s) AS DOUBLE)", quoteIdent(vals[0]))
	default:
		return "CAST(COUNT(*) AS DOUBLE)"
	}
}

func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

type group struct {
	keys  []string
	value float64
	valid bool
}

type query struct {
	conn  *sql.Conn
	table string
	expr  string
}

// groups runs the aggregate grouped by cols, ordered by the group keys.
func (q query) groups(ctx context.Context, cols []string) ([]group, error) {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = quoteIdent(c)
	}
	var stmt string
	if len(cols) == 0 {
		stmt = fmt.Sprintf("SELECT %s FROM %s", q.expr, quoteIdent(q.table))
	} else {
		list := strings.Join(quoted, ", ")
		stmt = fmt.Sprintf("SELECT %s, %s FROM %s GROUP BY %s ORDER BY %s",
			list, q.expr, quoteIdent(q.table), list, list)
	}

	rows, err := q.conn.QueryContext(ctx, stmt)
	if err != nil {
		return nil, fmt.Errorf("cross-tab query failed: %w", err)
	}
	defer rows.Close()

	var out []group
	for rows.Next() {
		keys := make([]string, len(cols))
		var value sql.NullFloat64
		dest := make([]any, 0, len(cols)+1)
		for i := range keys {
			dest = append(dest, &keys[i])
		}
		dest = append(dest, &value)
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scanning cross-tab row: %w", err)
		}
		out = append(out, group{keys: keys, value: value.Float64, valid: value.Valid})
	}
	return out, rows.Err()
}
