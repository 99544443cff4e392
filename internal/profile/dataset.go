package profile

import (
	"context"

	"dataprof/internal/dataset"
)

// Logger is the minimal logging interface used by the profiler.
// *log.Logger satisfies this interface.
type Logger interface {
	Printf(format string, v ...any)
}

type nopLogger struct{}

func (nopLogger) Printf(string, ...any) {}

// Dataset profiles every column of a frame, analyzes the configured
// multi-value columns, and validates the configured key, assembling one
// DatasetProfile. Pure aggregation; the only I/O is whatever the frame
// does to answer queries.
//
// Edge cases:
//   - A configured multi-value column absent from the dataset is
//     silently skipped; catalogs routinely outlive schema drift.
//   - A configured key column absent from the dataset omits the
//     KeyValidation (logged) but never stops column profiling.
//   - A zero-row frame produces a profile flagged Empty with all
//     percentage fields at 0.0.
func Dataset(ctx context.Context, f dataset.Frame, cfg dataset.Config, logger Logger) (*DatasetProfile, error) {
	if logger == nil {
		logger = nopLogger{}
	}

	cols := f.Columns()
	dp := &DatasetProfile{
		Name:        cfg.Name,
		Description: cfg.Description,
		File:        cfg.File,
		RowCount:    f.RowCount(),
		ColumnCount: len(cols),
		Empty:       f.RowCount() == 0,
		ColumnOrder: append([]string(nil), cols...),
		Columns:     make(map[string]*ColumnProfile, len(cols)),
	}

	for _, c := range cols {
		cp, err := Column(ctx, f, c)
		if err != nil {
			return nil, err
		}
		dp.Columns[c] = cp
	}

	for _, mv := range cfg.MultiValueColumns {
		if !f.HasColumn(mv) {
			logger.Printf("dataset=%s multi-value column %q not present, skipping", cfg.Name, mv)
			continue
		}
		mp, err := MultiValue(ctx, f, mv, cfg.MultiValueSep)
		if err != nil {
			return nil, err
		}
		if dp.MultiValue == nil {
			dp.MultiValue = make(map[string]*MultiValueProfile)
		}
		dp.MultiValueOrder = append(dp.MultiValueOrder, mv)
		dp.MultiValue[mv] = mp
	}

	if keyCols := cfg.KeyColumns(); keyCols != nil {
		if missing := missingColumns(f, keyCols); len(missing) > 0 {
			// Config inconsistency: key validation only is dropped for
			// this dataset, the rest of the profile stands.
			logger.Printf("dataset=%s key validation skipped: columns %v not in dataset", cfg.Name, missing)
		} else {
			kv, err := Key(ctx, f, keyCols)
			if err != nil {
				return nil, err
			}
			dp.Key = kv
		}
	}

	return dp, nil
}

func missingColumns(f dataset.Frame, cols []string) []string {
	var missing []string
	for _, c := range cols {
		if !f.HasColumn(c) {
			missing = append(missing, c)
		}
	}
	return missing
}
