// Package postgres implements the summary store over Postgres via
// pgxpool, for teams that keep profiling history in the warehouse
// alongside the data it describes.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"dataprof/internal/profile"
	"dataprof/internal/storage"
)

// Store implements storage.Store for Postgres.
type Store struct {
	pool *pgxpool.Pool
}

func init() {
	storage.Register("postgres", New)
}

// New connects a pgx pool to cfg.DSN.
func New(ctx context.Context, cfg storage.Config) (storage.Store, error) {
	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() { s.pool.Close() }

func (s *Store) EnsureTables(ctx context.Context) error {
	for _, q := range createTableSQL() {
		if _, err := s.pool.Exec(ctx, q); err != nil {
			return fmt.Errorf("postgres ensure tables: %w", err)
		}
	}
	return nil
}

func (s *Store) SaveRun(ctx context.Context, rec storage.RunRecord) error {
	sql, args := buildRunUpsert(rec)
	if _, err := s.pool.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("postgres save run: %w", err)
	}
	return nil
}

func (s *Store) SaveDatasetSummaries(ctx context.Context, runID string, profiles []*profile.DatasetProfile) error {
	for _, p := range profiles {
		doc, err := storage.EncodeProfile(p)
		if err != nil {
			return err
		}
		sql, args := buildDatasetUpsert(runID, p, doc)
		if _, err := s.pool.Exec(ctx, sql, args...); err != nil {
			return fmt.Errorf("postgres save dataset %s: %w", p.Name, err)
		}
	}
	return nil
}

// createTableSQL returns the DDL statements. Split out so DDL shape is
// unit-testable without a server.
func createTableSQL() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS profiling_runs (
			run_id TEXT PRIMARY KEY,
			started_at TIMESTAMPTZ NOT NULL,
			finished_at TIMESTAMPTZ NOT NULL,
			datasets_profiled INT NOT NULL,
			datasets_skipped INT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS dataset_row_counts (
			run_id TEXT NOT NULL,
			dataset TEXT NOT NULL,
			source_file TEXT NOT NULL,
			row_count BIGINT NOT NULL,
			column_count INT NOT NULL,
			key_valid BOOLEAN,
			profile JSONB NOT NULL,
			PRIMARY KEY (run_id, dataset)
		)`,
	}
}

// buildRunUpsert constructs the run upsert statement and args. Pure, so
// placeholder numbering and conflict behavior are unit-testable.
func buildRunUpsert(rec storage.RunRecord) (string, []any) {
	sql := `INSERT INTO profiling_runs
		(run_id, started_at, finished_at, datasets_profiled, datasets_skipped)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (run_id) DO UPDATE SET
		started_at = EXCLUDED.started_at,
		finished_at = EXCLUDED.finished_at,
		datasets_profiled = EXCLUDED.datasets_profiled,
		datasets_skipped = EXCLUDED.datasets_skipped`
	return sql, []any{rec.ID, rec.StartedAt, rec.FinishedAt, rec.DatasetsProfiled, rec.DatasetsSkipped}
}

func buildDatasetUpsert(runID string, p *profile.DatasetProfile, doc []byte) (string, []any) {
	sql := `INSERT INTO dataset_row_counts
		(run_id, dataset, source_file, row_count, column_count, key_valid, profile)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (run_id, dataset) DO UPDATE SET
		source_file = EXCLUDED.source_file,
		row_count = EXCLUDED.row_count,
		column_count = EXCLUDED.column_count,
		key_valid = EXCLUDED.key_valid,
		profile = EXCLUDED.profile`
	return sql, []any{runID, p.Name, p.File, p.RowCount, p.ColumnCount, storage.KeyValidFlag(p), doc}
}

var _ storage.Store = (*Store)(nil)
