package profile

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"testing"

	"dataprof/internal/dataset"
)

type recordLogger struct {
	lines []string
}

func (l *recordLogger) Printf(format string, v ...any) {
	l.lines = append(l.lines, fmt.Sprintf(format, v...))
}

func (l *recordLogger) contains(substr string) bool {
	for _, line := range l.lines {
		if strings.Contains(line, substr) {
			return true
		}
	}
	return false
}

func titlesFrame() *dataset.MemFrame {
	return memFrame([]string{"id", "title", "genres"}, [][]*string{
		{s("t1"), s("Alpha"), s("Drama,Comedy")},
		{s("t2"), s("Beta"), s("Drama")},
		{s("t3"), nil, nil},
	})
}

func TestDataset_Assembles(t *testing.T) {
	t.Parallel()

	cfg := dataset.Config{
		Name:              "titles",
		File:              "titles.tsv",
		Description:       "Title metadata.",
		PrimaryKey:        "id",
		MultiValueColumns: []string{"genres"},
		MultiValueSep:     ",",
	}

	dp, err := Dataset(context.Background(), titlesFrame(), cfg, nil)
	if err != nil {
		t.Fatalf("Dataset: %v", err)
	}

	if dp.Name != "titles" || dp.File != "titles.tsv" {
		t.Errorf("identity = %s/%s, want titles/titles.tsv", dp.Name, dp.File)
	}
	if dp.RowCount != 3 || dp.ColumnCount != 3 || dp.Empty {
		t.Errorf("shape = %d rows, %d cols, empty=%v", dp.RowCount, dp.ColumnCount, dp.Empty)
	}
	if want := []string{"id", "title", "genres"}; !reflect.DeepEqual(dp.ColumnOrder, want) {
		t.Errorf("ColumnOrder = %v, want %v", dp.ColumnOrder, want)
	}
	for _, c := range dp.ColumnOrder {
		if dp.Columns[c] == nil {
			t.Errorf("missing profile for column %q", c)
		}
	}
	if dp.Columns["title"].NullCount != 1 {
		t.Errorf("title NullCount = %d, want 1", dp.Columns["title"].NullCount)
	}

	if want := []string{"genres"}; !reflect.DeepEqual(dp.MultiValueOrder, want) {
		t.Fatalf("MultiValueOrder = %v, want %v", dp.MultiValueOrder, want)
	}
	if got := dp.MultiValue["genres"].MaxValuesPerRow; got != 2 {
		t.Errorf("genres MaxValuesPerRow = %d, want 2", got)
	}

	if dp.Key == nil {
		t.Fatal("Key = nil, want validation result")
	}
	if !dp.Key.Valid {
		t.Errorf("Key = %+v, want valid", dp.Key)
	}
}

func TestDataset_AbsentMultiValueColumnSkipped(t *testing.T) {
	t.Parallel()

	log := &recordLogger{}
	cfg := dataset.Config{
		Name:              "titles",
		MultiValueColumns: []string{"nope", "genres"},
		MultiValueSep:     ",",
	}

	dp, err := Dataset(context.Background(), titlesFrame(), cfg, log)
	if err != nil {
		t.Fatalf("Dataset: %v", err)
	}
	if want := []string{"genres"}; !reflect.DeepEqual(dp.MultiValueOrder, want) {
		t.Errorf("MultiValueOrder = %v, want %v", dp.MultiValueOrder, want)
	}
	if !log.contains("nope") {
		t.Errorf("expected skip log naming the column, got %v", log.lines)
	}
}

func TestDataset_AbsentKeyColumnOmitsValidation(t *testing.T) {
	t.Parallel()

	log := &recordLogger{}
	cfg := dataset.Config{
		Name:         "titles",
		CompositeKey: []string{"id", "ordering"},
	}

	dp, err := Dataset(context.Background(), titlesFrame(), cfg, log)
	if err != nil {
		t.Fatalf("Dataset: %v", err)
	}
	if dp.Key != nil {
		t.Errorf("Key = %+v, want nil for absent key column", dp.Key)
	}
	if !log.contains("ordering") {
		t.Errorf("expected skip log naming the missing column, got %v", log.lines)
	}
}

func TestDataset_NoKeyConfigured(t *testing.T) {
	t.Parallel()

	dp, err := Dataset(context.Background(), titlesFrame(), dataset.Config{Name: "titles"}, nil)
	if err != nil {
		t.Fatalf("Dataset: %v", err)
	}
	if dp.Key != nil {
		t.Errorf("Key = %+v, want nil when no key configured", dp.Key)
	}
}

func TestDataset_EmptyFrame(t *testing.T) {
	t.Parallel()

	f := memFrame([]string{"id", "title"}, nil)
	dp, err := Dataset(context.Background(), f, dataset.Config{Name: "empty", PrimaryKey: "id"}, nil)
	if err != nil {
		t.Fatalf("Dataset: %v", err)
	}
	if !dp.Empty || dp.RowCount != 0 {
		t.Errorf("Empty=%v RowCount=%d, want empty with zero rows", dp.Empty, dp.RowCount)
	}
	for _, c := range dp.ColumnOrder {
		if pct := dp.Columns[c].NullPercentage; pct != 0.0 {
			t.Errorf("column %q NullPercentage = %v, want 0.0", c, pct)
		}
	}
	if dp.Key == nil || !dp.Key.Valid {
		t.Errorf("Key = %+v, want trivially valid on zero rows", dp.Key)
	}
}

func TestDataset_Idempotent(t *testing.T) {
	t.Parallel()

	cfg := dataset.Config{
		Name:              "titles",
		PrimaryKey:        "id",
		MultiValueColumns: []string{"genres"},
		MultiValueSep:     ",",
	}
	first, err := Dataset(context.Background(), titlesFrame(), cfg, nil)
	if err != nil {
		t.Fatalf("Dataset: %v", err)
	}
	second, err := Dataset(context.Background(), titlesFrame(), cfg, nil)
	if err != nil {
		t.Fatalf("Dataset: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Error("profiles differ across identical runs")
	}
}
