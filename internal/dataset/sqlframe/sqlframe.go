// Package sqlframe implements dataset.Frame on top of an in-process
// SQLite database. A loaded dataset is copied into a temporary table
// once; distinct counts and group-and-count queries are then answered
// by the SQL engine instead of Go maps.
//
// This is the query-engine rendition of the profiling contract: the
// algorithms in internal/profile run unchanged against it, and it
// shares the in-memory backend's contract test suite.
package sqlframe

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"dataprof/internal/dataset"
)

// maxBindVars bounds bind parameters per INSERT batch. SQLite's
// historical lower limit is 999; staying under it keeps the loader
// portable across driver builds.
const maxBindVars = 900

// Frame is a dataset.Frame backed by a SQLite table.
type Frame struct {
	db      *sql.DB
	columns []string
	rows    int
	colIx   map[string]int
}

// New copies a dataset into a fresh in-memory SQLite database.
//
// Edge cases:
//   - All cells are stored as TEXT; nulls stay SQL NULL.
//   - Row order is preserved through rowid, which every scan orders by.
func New(ctx context.Context, d *dataset.Dataset) (*Frame, error) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("sqlframe: open: %w", err)
	}
	// One connection only: each :memory: connection is its own database.
	db.SetMaxOpenConns(1)

	f := &Frame{
		db:      db,
		columns: append([]string(nil), d.ColumnNames...),
		rows:    len(d.Rows),
		colIx:   make(map[string]int, len(d.ColumnNames)),
	}
	for i, c := range f.columns {
		f.colIx[c] = i
	}

	if err := f.create(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := f.load(ctx, d.Rows); err != nil {
		_ = db.Close()
		return nil, err
	}
	return f, nil
}

// Close releases the underlying database.
func (f *Frame) Close() error { return f.db.Close() }

func (f *Frame) Columns() []string { return f.columns }

func (f *Frame) RowCount() int { return f.rows }

func (f *Frame) HasColumn(name string) bool {
	_, ok := f.colIx[name]
	return ok
}

func (f *Frame) ScanColumns(ctx context.Context, cols []string, fn func(vals []*string) error) error {
	if err := f.check(cols); err != nil {
		return err
	}

	q := "SELECT " + quoteJoin(cols) + " FROM data ORDER BY rowid"
	rows, err := f.db.QueryContext(ctx, q)
	if err != nil {
		return fmt.Errorf("sqlframe: scan: %w", err)
	}
	defer rows.Close()

	vals := make([]*string, len(cols))
	dest := make([]any, len(cols))
	for i := range dest {
		dest[i] = &vals[i]
	}
	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			return fmt.Errorf("sqlframe: scan row: %w", err)
		}
		if err := fn(vals); err != nil {
			return err
		}
	}
	return rows.Err()
}

func (f *Frame) DistinctCount(ctx context.Context, col string) (int, error) {
	if err := f.check([]string{col}); err != nil {
		return 0, err
	}

	// Blank-after-trim cells are anomalies, not values; they must not
	// contribute to cardinality. SQLite's TRIM only strips the exact
	// characters it is given, so the distinct set is pulled here and
	// filtered with the same Unicode-aware rule the in-memory backend
	// applies.
	q := "SELECT DISTINCT " + quoteIdent(col) + " FROM data WHERE " + quoteIdent(col) + " IS NOT NULL"
	rows, err := f.db.QueryContext(ctx, q)
	if err != nil {
		return 0, fmt.Errorf("sqlframe: distinct count: %w", err)
	}
	defer rows.Close()

	n := 0
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return 0, fmt.Errorf("sqlframe: distinct count scan: %w", err)
		}
		if strings.TrimSpace(v) != "" {
			n++
		}
	}
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("sqlframe: distinct count: %w", err)
	}
	return n, nil
}

func (f *Frame) GroupCounts(ctx context.Context, cols []string) (map[string]int, error) {
	if err := f.check(cols); err != nil {
		return nil, err
	}

	conds := make([]string, len(cols))
	for i, c := range cols {
		conds[i] = quoteIdent(c) + " IS NOT NULL"
	}
	q := "SELECT " + quoteJoin(cols) + ", COUNT(*) FROM data WHERE " +
		strings.Join(conds, " AND ") + " GROUP BY " + quoteJoin(cols)

	rows, err := f.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("sqlframe: group counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	vals := make([]*string, len(cols))
	dest := make([]any, len(cols)+1)
	for i := range vals {
		dest[i] = &vals[i]
	}
	var n int
	dest[len(cols)] = &n

	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("sqlframe: group counts scan: %w", err)
		}
		counts[dataset.GroupKey(vals)] = n
	}
	return counts, rows.Err()
}

func (f *Frame) create(ctx context.Context) error {
	defs := make([]string, len(f.columns))
	for i, c := range f.columns {
		defs[i] = quoteIdent(c) + " TEXT"
	}
	_, err := f.db.ExecContext(ctx, "CREATE TABLE data ("+strings.Join(defs, ", ")+")")
	if err != nil {
		return fmt.Errorf("sqlframe: create table: %w", err)
	}
	return nil
}

func (f *Frame) load(ctx context.Context, rows [][]*string) error {
	if len(rows) == 0 {
		return nil
	}

	perBatch := maxBindVars / len(f.columns)
	if perBatch < 1 {
		perBatch = 1
	}

	placeholder := "(" + strings.TrimSuffix(strings.Repeat("?,", len(f.columns)), ",") + ")"
	prefix := "INSERT INTO data (" + quoteJoin(f.columns) + ") VALUES "

	for start := 0; start < len(rows); start += perBatch {
		end := start + perBatch
		if end > len(rows) {
			end = len(rows)
		}
		batch := rows[start:end]

		phs := make([]string, len(batch))
		args := make([]any, 0, len(batch)*len(f.columns))
		for i, r := range batch {
			phs[i] = placeholder
			for _, cell := range r {
				if cell == nil {
					args = append(args, nil)
				} else {
					args = append(args, *cell)
				}
			}
		}

		if _, err := f.db.ExecContext(ctx, prefix+strings.Join(phs, ","), args...); err != nil {
			return fmt.Errorf("sqlframe: insert batch: %w", err)
		}
	}
	return nil
}

func (f *Frame) check(cols []string) error {
	if len(cols) == 0 {
		return fmt.Errorf("sqlframe: no columns requested")
	}
	for _, c := range cols {
		if !f.HasColumn(c) {
			return fmt.Errorf("dataset: no such column %q", c)
		}
	}
	return nil
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func quoteJoin(cols []string) string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = quoteIdent(c)
	}
	return strings.Join(quoted, ", ")
}

var _ dataset.Frame = (*Frame)(nil)
