package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"dataprof/internal/profile"
	"dataprof/internal/storage"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	st, err := New(context.Background(), storage.Config{
		Kind: "sqlite",
		DSN:  filepath.Join(t.TempDir(), "profiling.db"),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(st.Close)

	if err := st.EnsureTables(context.Background()); err != nil {
		t.Fatalf("EnsureTables: %v", err)
	}
	return st.(*Store)
}

func testProfiles() []*profile.DatasetProfile {
	return []*profile.DatasetProfile{
		{
			Name: "titles", File: "titles.tsv", RowCount: 42, ColumnCount: 3,
			ColumnOrder: []string{"id"},
			Columns:     map[string]*profile.ColumnProfile{"id": {Name: "id", RowCount: 42}},
			Key:         &profile.KeyValidation{Columns: []string{"id"}, Valid: true},
		},
		{
			Name: "ratings", File: "ratings.tsv", RowCount: 7, ColumnCount: 2,
			ColumnOrder: []string{"id"},
			Columns:     map[string]*profile.ColumnProfile{"id": {Name: "id", RowCount: 7}},
		},
	}
}

func TestEnsureTables_Idempotent(t *testing.T) {
	t.Parallel()

	st := openStore(t)
	if err := st.EnsureTables(context.Background()); err != nil {
		t.Fatalf("second EnsureTables: %v", err)
	}
}

func TestSaveRun_Upserts(t *testing.T) {
	t.Parallel()

	st := openStore(t)
	ctx := context.Background()

	rec := storage.RunRecord{
		ID:               "run-1",
		StartedAt:        time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC),
		FinishedAt:       time.Date(2026, 8, 30, 10, 5, 0, 0, time.UTC),
		DatasetsProfiled: 5,
		DatasetsSkipped:  2,
	}
	if err := st.SaveRun(ctx, rec); err != nil {
		t.Fatalf("SaveRun: %v", err)
	}

	rec.DatasetsProfiled = 6
	if err := st.SaveRun(ctx, rec); err != nil {
		t.Fatalf("SaveRun again: %v", err)
	}

	var rows, profiled int
	if err := st.db.QueryRowContext(ctx,
		`SELECT COUNT(*), MAX(datasets_profiled) FROM profiling_runs WHERE run_id = ?`, rec.ID,
	).Scan(&rows, &profiled); err != nil {
		t.Fatalf("query run: %v", err)
	}
	if rows != 1 {
		t.Errorf("run rows = %d, want 1 after re-save", rows)
	}
	if profiled != 6 {
		t.Errorf("datasets_profiled = %d, want updated value 6", profiled)
	}
}

func TestSaveDatasetSummaries_RoundTrip(t *testing.T) {
	t.Parallel()

	st := openStore(t)
	ctx := context.Background()

	if err := st.SaveDatasetSummaries(ctx, "run-1", testProfiles()); err != nil {
		t.Fatalf("SaveDatasetSummaries: %v", err)
	}
	// Re-save must replace, not duplicate.
	if err := st.SaveDatasetSummaries(ctx, "run-1", testProfiles()); err != nil {
		t.Fatalf("SaveDatasetSummaries again: %v", err)
	}

	var rows int
	if err := st.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM dataset_row_counts WHERE run_id = ?`, "run-1",
	).Scan(&rows); err != nil {
		t.Fatalf("count rows: %v", err)
	}
	if rows != 2 {
		t.Fatalf("dataset rows = %d, want 2", rows)
	}

	var rowCount int
	var keyValid *bool
	var doc string
	if err := st.db.QueryRowContext(ctx,
		`SELECT row_count, key_valid, profile FROM dataset_row_counts WHERE run_id = ? AND dataset = ?`,
		"run-1", "titles",
	).Scan(&rowCount, &keyValid, &doc); err != nil {
		t.Fatalf("query titles: %v", err)
	}
	if rowCount != 42 {
		t.Errorf("row_count = %d, want 42", rowCount)
	}
	if keyValid == nil || !*keyValid {
		t.Errorf("key_valid = %v, want true", keyValid)
	}
	if doc == "" {
		t.Error("stored profile document is empty")
	}

	// No key configured: flag stored as NULL.
	if err := st.db.QueryRowContext(ctx,
		`SELECT key_valid FROM dataset_row_counts WHERE run_id = ? AND dataset = ?`,
		"run-1", "ratings",
	).Scan(&keyValid); err != nil {
		t.Fatalf("query ratings: %v", err)
	}
	if keyValid != nil {
		t.Errorf("key_valid = %v, want NULL", *keyValid)
	}
}
