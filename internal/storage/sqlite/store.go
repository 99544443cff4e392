// Package sqlite implements the summary store over a local SQLite
// file, the zero-setup default for single-machine profiling runs.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"dataprof/internal/profile"
	"dataprof/internal/storage"
)

// Store implements storage.Store for SQLite.
//
// SQLite notes:
//   - Timestamps are stored as RFC3339 strings; modernc.org/sqlite
//     gives TEXT affinity to time values anyway, and strings round-trip
//     reliably and read well during debugging.
//   - Upserts use INSERT OR REPLACE, which relies on the primary keys
//     declared in EnsureTables.
type Store struct {
	db *sql.DB
}

func init() {
	storage.Register("sqlite", New)
}

// New opens (or creates) the SQLite database at cfg.DSN.
func New(ctx context.Context, cfg storage.Config) (storage.Store, error) {
	db, err := sql.Open("sqlite", cfg.DSN)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() { _ = s.db.Close() }

func (s *Store) EnsureTables(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS profiling_runs (
			run_id TEXT PRIMARY KEY,
			started_at TEXT NOT NULL,
			finished_at TEXT NOT NULL,
			datasets_profiled INTEGER NOT NULL,
			datasets_skipped INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS dataset_row_counts (
			run_id TEXT NOT NULL,
			dataset TEXT NOT NULL,
			source_file TEXT NOT NULL,
			row_count INTEGER NOT NULL,
			column_count INTEGER NOT NULL,
			key_valid INTEGER,
			profile TEXT NOT NULL,
			PRIMARY KEY (run_id, dataset)
		)`,
	}
	for _, q := range stmts {
		if _, err := s.db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("sqlite ensure tables: %w", err)
		}
	}
	return nil
}

func (s *Store) SaveRun(ctx context.Context, rec storage.RunRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO profiling_runs
		 (run_id, started_at, finished_at, datasets_profiled, datasets_skipped)
		 VALUES (?, ?, ?, ?, ?)`,
		rec.ID,
		rec.StartedAt.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
		rec.FinishedAt.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
		rec.DatasetsProfiled,
		rec.DatasetsSkipped,
	)
	if err != nil {
		return fmt.Errorf("sqlite save run: %w", err)
	}
	return nil
}

func (s *Store) SaveDatasetSummaries(ctx context.Context, runID string, profiles []*profile.DatasetProfile) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, p := range profiles {
		doc, err := storage.EncodeProfile(p)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO dataset_row_counts
			 (run_id, dataset, source_file, row_count, column_count, key_valid, profile)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			runID, p.Name, p.File, p.RowCount, p.ColumnCount, storage.KeyValidFlag(p), string(doc),
		)
		if err != nil {
			return fmt.Errorf("sqlite save dataset %s: %w", p.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite commit: %w", err)
	}
	return nil
}

var _ storage.Store = (*Store)(nil)
