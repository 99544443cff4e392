package dataset

import (
	"context"
	"fmt"
	"strings"
)

// Frame is the minimal columnar access contract the profiling
// algorithms are written against.
//
// Two implementations exist: MemFrame (this package) computes
// everything in process, and sqlframe answers the aggregate queries
// through SQLite. Both must satisfy the same contract test suite.
//
// Semantics shared by all implementations:
//   - Row order is the dataset's load order and is stable across calls.
//   - A nil cell is a null; an empty string is a value.
//   - GroupCounts only counts rows whose listed cells are all non-null.
type Frame interface {
	// Columns returns the column names in dataset order.
	Columns() []string

	// RowCount returns the total number of rows.
	RowCount() int

	// HasColumn reports whether the named column exists.
	HasColumn(name string) bool

	// ScanColumns streams rows in order. vals is aligned to cols and is
	// only valid for the duration of the callback. Returning an error
	// from fn stops the scan and propagates the error.
	ScanColumns(ctx context.Context, cols []string, fn func(vals []*string) error) error

	// DistinctCount returns the number of distinct non-null values in a
	// column. Values that are blank after trimming are not counted as
	// values; they are tallied separately as an emptiness anomaly.
	DistinctCount(ctx context.Context, col string) (int, error)

	// GroupCounts counts occurrences of each distinct tuple over cols,
	// skipping rows where any listed cell is null. Tuple keys join the
	// cell values with GroupKeySep.
	GroupCounts(ctx context.Context, cols []string) (map[string]int, error)
}

// GroupKeySep separates tuple components in GroupCounts keys. NUL never
// occurs inside a delimited-text cell, so the join is unambiguous.
const GroupKeySep = "\x00"

// GroupKey joins non-null cell values into a GroupCounts map key.
func GroupKey(vals []*string) string {
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = *v
	}
	return strings.Join(parts, GroupKeySep)
}

// MemFrame is the in-memory Frame over a loaded Dataset.
type MemFrame struct {
	d *Dataset
}

// NewMemFrame wraps a Dataset. The dataset must not be mutated while
// the frame is in use.
func NewMemFrame(d *Dataset) *MemFrame {
	return &MemFrame{d: d}
}

func (f *MemFrame) Columns() []string { return f.d.ColumnNames }

func (f *MemFrame) RowCount() int { return len(f.d.Rows) }

func (f *MemFrame) HasColumn(name string) bool { return f.d.ColumnIndex(name) >= 0 }

func (f *MemFrame) ScanColumns(ctx context.Context, cols []string, fn func(vals []*string) error) error {
	ix, err := f.indexes(cols)
	if err != nil {
		return err
	}

	vals := make([]*string, len(cols))
	for _, row := range f.d.Rows {
		if err := ctx.Err(); err != nil {
			return err
		}
		for i, c := range ix {
			vals[i] = row[c]
		}
		if err := fn(vals); err != nil {
			return err
		}
	}
	return nil
}

func (f *MemFrame) DistinctCount(ctx context.Context, col string) (int, error) {
	ix, err := f.indexes([]string{col})
	if err != nil {
		return 0, err
	}

	seen := make(map[string]struct{})
	for _, row := range f.d.Rows {
		if v := row[ix[0]]; v != nil && strings.TrimSpace(*v) != "" {
			seen[*v] = struct{}{}
		}
	}
	return len(seen), nil
}

func (f *MemFrame) GroupCounts(ctx context.Context, cols []string) (map[string]int, error) {
	ix, err := f.indexes(cols)
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int)
	vals := make([]*string, len(cols))
rows:
	for _, row := range f.d.Rows {
		for i, c := range ix {
			if row[c] == nil {
				continue rows
			}
			vals[i] = row[c]
		}
		counts[GroupKey(vals)]++
	}
	return counts, nil
}

func (f *MemFrame) indexes(cols []string) ([]int, error) {
	ix := make([]int, len(cols))
	for i, c := range cols {
		ix[i] = f.d.ColumnIndex(c)
		if ix[i] < 0 {
			return nil, fmt.Errorf("dataset: no such column %q", c)
		}
	}
	return ix, nil
}

var _ Frame = (*MemFrame)(nil)
