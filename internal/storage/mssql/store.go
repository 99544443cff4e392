// Package mssql implements the summary store over Microsoft SQL Server
// via database/sql and the sqlserver driver.
package mssql

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/microsoft/go-mssqldb"

	"dataprof/internal/profile"
	"dataprof/internal/storage"
)

// Store implements storage.Store for SQL Server.
//
// Upserts are delete-then-insert inside a transaction. MERGE would also
// work but carries well-known concurrency caveats, and profiling
// summary writes are single-writer by construction.
type Store struct {
	db *sql.DB
}

func init() {
	storage.Register("mssql", New)
}

// New connects to cfg.DSN and validates connectivity with a ping.
func New(ctx context.Context, cfg storage.Config) (storage.Store, error) {
	db, err := sql.Open("sqlserver", cfg.DSN)
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
	for _, q := range createTableSQL() {
		if _, err := s.db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("mssql ensure tables: %w", err)
		}
	}
	return nil
}

func (s *Store) SaveRun(ctx context.Context, rec storage.RunRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("mssql begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM profiling_runs WHERE run_id = @p1`, rec.ID); err != nil {
		return fmt.Errorf("mssql clear run: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO profiling_runs
		 (run_id, started_at, finished_at, datasets_profiled, datasets_skipped)
		 VALUES (@p1, @p2, @p3, @p4, @p5)`,
		rec.ID, rec.StartedAt, rec.FinishedAt, rec.DatasetsProfiled, rec.DatasetsSkipped); err != nil {
		return fmt.Errorf("mssql save run: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("mssql commit: %w", err)
	}
	return nil
}

func (s *Store) SaveDatasetSummaries(ctx context.Context, runID string, profiles []*profile.DatasetProfile) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("mssql begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, p := range profiles {
		doc, err := storage.EncodeProfile(p)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM dataset_row_counts WHERE run_id = @p1 AND dataset = @p2`,
			runID, p.Name); err != nil {
			return fmt.Errorf("mssql clear dataset %s: %w", p.Name, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO dataset_row_counts
			 (run_id, dataset, source_file, row_count, column_count, key_valid, profile)
			 VALUES (@p1, @p2, @p3, @p4, @p5, @p6, @p7)`,
			runID, p.Name, p.File, p.RowCount, p.ColumnCount, storage.KeyValidFlag(p), string(doc)); err != nil {
			return fmt.Errorf("mssql save dataset %s: %w", p.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("mssql commit: %w", err)
	}
	return nil
}

// createTableSQL returns the DDL statements. IF NOT EXISTS arrives late
// in T-SQL, so existence is checked through OBJECT_ID.
func createTableSQL() []string {
	return []string{
		`IF OBJECT_ID('profiling_runs', 'U') IS NULL
		CREATE TABLE profiling_runs (
			run_id NVARCHAR(64) NOT NULL PRIMARY KEY,
			started_at DATETIMEOFFSET NOT NULL,
			finished_at DATETIMEOFFSET NOT NULL,
			datasets_profiled INT NOT NULL,
			datasets_skipped INT NOT NULL
		)`,
		`IF OBJECT_ID('dataset_row_counts', 'U') IS NULL
		CREATE TABLE dataset_row_counts (
			run_id NVARCHAR(64) NOT NULL,
			dataset NVARCHAR(256) NOT NULL,
			source_file NVARCHAR(1024) NOT NULL,
			row_count BIGINT NOT NULL,
			column_count INT NOT NULL,
			key_valid BIT NULL,
			profile NVARCHAR(MAX) NOT NULL,
			CONSTRAINT pk_dataset_row_counts PRIMARY KEY (run_id, dataset)
		)`,
	}
}

var _ storage.Store = (*Store)(nil)
