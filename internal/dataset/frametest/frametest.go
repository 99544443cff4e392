// Package frametest holds the dataset.Frame contract test suite. Every
// backend (in-memory, sqlframe) must pass it unchanged; the profiling
// algorithms assume exactly these semantics.
package frametest

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"dataprof/internal/dataset"
)

// Factory builds the backend under test from a dataset. The returned
// closer may be nil.
type Factory func(t *testing.T, d *dataset.Dataset) (dataset.Frame, func())

func s(v string) *string { return &v }

func testData() *dataset.Dataset {
	return dataset.New(
		[]string{"id", "name", "genres"},
		[][]*string{
			{s("1"), s("alpha"), s("a,b")},
			{s("2"), nil, s("a")},
			{s("3"), s("alpha"), nil},
			{s("1"), s(""), s("b,b")},
			{s("2"), s(" \t "), s("a")},
		},
	)
}

// Run executes the contract suite against one backend.
func Run(t *testing.T, newFrame Factory) {
	t.Helper()
	ctx := context.Background()

	t.Run("columns and row count", func(t *testing.T) {
		f, closer := newFrame(t, testData())
		if closer != nil {
			defer closer()
		}

		want := []string{"id", "name", "genres"}
		if got := f.Columns(); !reflect.DeepEqual(got, want) {
			t.Fatalf("Columns() = %v, want %v", got, want)
		}
		if got := f.RowCount(); got != 5 {
			t.Fatalf("RowCount() = %d, want 5", got)
		}
		if !f.HasColumn("name") || f.HasColumn("missing") {
			t.Fatalf("HasColumn misbehaves")
		}
	})

	t.Run("scan preserves row order and nulls", func(t *testing.T) {
		f, closer := newFrame(t, testData())
		if closer != nil {
			defer closer()
		}

		var got []string
		err := f.ScanColumns(ctx, []string{"name"}, func(vals []*string) error {
			if vals[0] == nil {
				got = append(got, "<null>")
			} else {
				got = append(got, *vals[0])
			}
			return nil
		})
		if err != nil {
			t.Fatalf("ScanColumns: %v", err)
		}
		want := []string{"alpha", "<null>", "alpha", "", " \t "}
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("scan order = %v, want %v", got, want)
		}
	})

	t.Run("scan multiple columns aligns values", func(t *testing.T) {
		f, closer := newFrame(t, testData())
		if closer != nil {
			defer closer()
		}

		rows := 0
		err := f.ScanColumns(ctx, []string{"id", "genres"}, func(vals []*string) error {
			if len(vals) != 2 {
				t.Fatalf("got %d vals, want 2", len(vals))
			}
			rows++
			return nil
		})
		if err != nil {
			t.Fatalf("ScanColumns: %v", err)
		}
		if rows != 5 {
			t.Fatalf("scanned %d rows, want 5", rows)
		}
	})

	t.Run("scan error propagates", func(t *testing.T) {
		f, closer := newFrame(t, testData())
		if closer != nil {
			defer closer()
		}

		sentinel := errors.New("stop")
		err := f.ScanColumns(ctx, []string{"id"}, func([]*string) error { return sentinel })
		if !errors.Is(err, sentinel) {
			t.Fatalf("err = %v, want sentinel", err)
		}
	})

	t.Run("distinct count ignores nulls and blanks", func(t *testing.T) {
		f, closer := newFrame(t, testData())
		if closer != nil {
			defer closer()
		}

		tests := []struct {
			col  string
			want int
		}{
			{"id", 3},
			{"name", 1}, // alpha; null and "" both excluded
			{"genres", 3},
		}
		for _, tt := range tests {
			got, err := f.DistinctCount(ctx, tt.col)
			if err != nil {
				t.Fatalf("DistinctCount(%s): %v", tt.col, err)
			}
			if got != tt.want {
				t.Fatalf("DistinctCount(%s) = %d, want %d", tt.col, got, tt.want)
			}
		}
	})

	t.Run("distinct count treats unicode whitespace as blank", func(t *testing.T) {
		f, closer := newFrame(t, dataset.New(
			[]string{"v"},
			[][]*string{
				{s(" ")},     // no-break space
				{s(" \t ")},  // em space plus ASCII whitespace
				{s(" x ")},
			},
		))
		if closer != nil {
			defer closer()
		}

		got, err := f.DistinctCount(ctx, "v")
		if err != nil {
			t.Fatalf("DistinctCount: %v", err)
		}
		if got != 1 {
			t.Fatalf("DistinctCount = %d, want 1 (only %q is a value)", got, " x ")
		}
	})

	t.Run("group counts skip rows with null components", func(t *testing.T) {
		f, closer := newFrame(t, testData())
		if closer != nil {
			defer closer()
		}

		got, err := f.GroupCounts(ctx, []string{"id", "name"})
		if err != nil {
			t.Fatalf("GroupCounts: %v", err)
		}
		want := map[string]int{
			"1" + dataset.GroupKeySep + "alpha": 1,
			"3" + dataset.GroupKeySep + "alpha": 1,
			"1" + dataset.GroupKeySep + "":      1,
			"2" + dataset.GroupKeySep + " \t ":  1,
		}
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("GroupCounts = %v, want %v", got, want)
		}
	})

	t.Run("group counts over single column", func(t *testing.T) {
		f, closer := newFrame(t, testData())
		if closer != nil {
			defer closer()
		}

		got, err := f.GroupCounts(ctx, []string{"id"})
		if err != nil {
			t.Fatalf("GroupCounts: %v", err)
		}
		want := map[string]int{"1": 2, "2": 2, "3": 1}
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("GroupCounts = %v, want %v", got, want)
		}
	})

	t.Run("unknown column errors", func(t *testing.T) {
		f, closer := newFrame(t, testData())
		if closer != nil {
			defer closer()
		}

		if err := f.ScanColumns(ctx, []string{"missing"}, func([]*string) error { return nil }); err == nil {
			t.Fatalf("ScanColumns on missing column: want error")
		}
		if _, err := f.DistinctCount(ctx, "missing"); err == nil {
			t.Fatalf("DistinctCount on missing column: want error")
		}
		if _, err := f.GroupCounts(ctx, []string{"id", "missing"}); err == nil {
			t.Fatalf("GroupCounts on missing column: want error")
		}
	})

	t.Run("empty dataset", func(t *testing.T) {
		f, closer := newFrame(t, dataset.New([]string{"a"}, nil))
		if closer != nil {
			defer closer()
		}

		if got := f.RowCount(); got != 0 {
			t.Fatalf("RowCount() = %d, want 0", got)
		}
		n, err := f.DistinctCount(ctx, "a")
		if err != nil || n != 0 {
			t.Fatalf("DistinctCount = %d, %v; want 0, nil", n, err)
		}
		groups, err := f.GroupCounts(ctx, []string{"a"})
		if err != nil || len(groups) != 0 {
			t.Fatalf("GroupCounts = %v, %v; want empty, nil", groups, err)
		}
	})
}
