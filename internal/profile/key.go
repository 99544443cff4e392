package profile

import (
	"context"
	"fmt"

	"dataprof/internal/dataset"
)

// Key validates a declared single or composite key over a frame.
//
// Policy for rows with a null key component: they are counted once in
// NullCount and excluded from duplicate counting, so no row contributes
// to both tallies. Duplicates are rows beyond the first occurrence of
// each fully non-null key tuple.
//
// Errors:
//   - Returns an error when cols is empty or any column is absent from
//     the frame. Callers treat an absent column as a configuration
//     inconsistency and omit the result rather than failing the run.
func Key(ctx context.Context, f dataset.Frame, cols []string) (*KeyValidation, error) {
	if len(cols) == 0 {
		return nil, fmt.Errorf("profile: key requires at least one column")
	}
	for _, c := range cols {
		if !f.HasColumn(c) {
			return nil, fmt.Errorf("profile: key column %q not in dataset", c)
		}
	}

	v := &KeyValidation{Columns: append([]string(nil), cols...)}

	err := f.ScanColumns(ctx, cols, func(vals []*string) error {
		for _, cell := range vals {
			if cell == nil {
				v.NullCount++
				return nil
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	groups, err := f.GroupCounts(ctx, cols)
	if err != nil {
		return nil, err
	}
	for _, n := range groups {
		if n > 1 {
			v.DuplicateCount += n - 1
		}
	}

	v.Valid = v.NullCount == 0 && v.DuplicateCount == 0
	return v, nil
}
