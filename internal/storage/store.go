// Package storage persists profiling run summaries: one row per run
// and one row per profiled dataset, including the row-count reference
// numbers downstream ingestion is validated against.
//
// Backends register themselves under a kind string from an init()
// function; the application selects one by Config.Kind. The engine
// never imports a backend directly.
package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"dataprof/internal/profile"
)

// Config is the minimal configuration needed to create a summary store.
//
// Edge cases:
//   - Kind must be non-empty and must match a registered backend kind.
//   - DSN is passed through to the backend factory; validation is
//     backend-specific.
type Config struct {
	Kind string
	DSN  string
}

// RunRecord describes one completed profiling run.
type RunRecord struct {
	ID               string
	StartedAt        time.Time
	FinishedAt       time.Time
	DatasetsProfiled int
	DatasetsSkipped  int
}

// Store is a backend-agnostic interface for persisting run summaries.
//
// IMPORTANT: This interface is intentionally minimal. Each backend
// implements idempotent writes in its own idiom (Postgres ON CONFLICT,
// SQLite OR REPLACE, MSSQL delete-then-insert).
type Store interface {
	// Close releases backend resources. Treat as "call once".
	Close()

	// EnsureTables creates the summary tables if they do not exist.
	EnsureTables(ctx context.Context) error

	// SaveRun upserts the run record.
	SaveRun(ctx context.Context, rec RunRecord) error

	// SaveDatasetSummaries upserts one row per profile under runID,
	// including the serialized profile document.
	SaveDatasetSummaries(ctx context.Context, runID string, profiles []*profile.DatasetProfile) error
}

// EncodeProfile serializes a dataset profile for storage. Shared by all
// backends so the stored document shape never diverges between them.
func EncodeProfile(p *profile.DatasetProfile) ([]byte, error) {
	b, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encode profile %s: %w", p.Name, err)
	}
	return b, nil
}

// KeyValidFlag flattens the optional key validation into a nullable
// column value: nil when no key was validated.
func KeyValidFlag(p *profile.DatasetProfile) any {
	if p.Key == nil {
		return nil
	}
	return p.Key.Valid
}

type factory func(ctx context.Context, cfg Config) (Store, error)

var (
	mu        sync.RWMutex
	factories = map[string]factory{}
)

// Register registers a backend under a kind (e.g. "postgres").
//
// Edge cases:
//   - kind must be non-empty and f non-nil.
//   - Registering the same kind twice panics, to fail fast on
//     ambiguous backend selection.
func Register(kind string, f factory) {
	mu.Lock()
	defer mu.Unlock()

	if kind == "" {
		panic("storage: Register called with empty kind")
	}
	if f == nil {
		panic("storage: Register called with nil factory")
	}
	if _, exists := factories[kind]; exists {
		panic(fmt.Sprintf("storage: factory already registered for kind=%q", kind))
	}

	factories[kind] = f
}

// New constructs a Store using the registered backend factory.
//
// Errors:
//   - Returns an error if cfg.Kind is empty or unsupported.
//   - Returns whatever error the registered factory returns.
func New(ctx context.Context, cfg Config) (Store, error) {
	if cfg.Kind == "" {
		return nil, fmt.Errorf("storage: missing Kind")
	}

	mu.RLock()
	f := factories[cfg.Kind]
	mu.RUnlock()

	if f == nil {
		return nil, fmt.Errorf("unsupported storage kind=%s", cfg.Kind)
	}
	return f(ctx, cfg)
}
