package profile

import (
	"context"
	"sort"
	"strings"

	"dataprof/internal/dataset"
)

// topValuesLimit caps the per-column token frequency list.
const topValuesLimit = 10

// MultiValue decomposes a delimiter-separated column into tokens and
// computes token statistics over non-null rows.
//
// Tokenization policy: cells are split on the separator verbatim, with
// no trimming and no dropping of empty tokens. Consecutive or trailing
// separators therefore produce empty tokens that count like any other
// value. Keeping them means the per-row counts and the flattened token
// stream always agree: sum(per-row counts) == len(all tokens).
//
// Edge cases:
//   - Rows where the cell is null are excluded entirely (not counted as
//     zero tokens).
//   - A column with no non-null rows yields zero min/max/avg and an
//     empty top list.
func MultiValue(ctx context.Context, f dataset.Frame, col, sep string) (*MultiValueProfile, error) {
	p := &MultiValueProfile{
		Name:      col,
		TopValues: []TokenCount{},
	}

	var (
		rows       int
		totalToks  int
		counts     = make(map[string]int)
		firstSeen  = make(map[string]int)
		flattenIdx int
	)

	err := f.ScanColumns(ctx, []string{col}, func(vals []*string) error {
		v := vals[0]
		if v == nil {
			return nil
		}

		tokens := strings.Split(*v, sep)
		n := len(tokens)

		if rows == 0 || n < p.MinValuesPerRow {
			p.MinValuesPerRow = n
		}
		if n > p.MaxValuesPerRow {
			p.MaxValuesPerRow = n
		}
		rows++
		totalToks += n

		for _, t := range tokens {
			if _, ok := firstSeen[t]; !ok {
				firstSeen[t] = flattenIdx
			}
			counts[t]++
			flattenIdx++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if rows > 0 {
		p.AvgValuesPerRow = round2(float64(totalToks) / float64(rows))
	}
	p.TotalDistinctValues = len(counts)

	top := make([]TokenCount, 0, len(counts))
	for t, c := range counts {
		top = append(top, TokenCount{Token: t, Count: c})
	}
	sort.Slice(top, func(i, j int) bool {
		if top[i].Count != top[j].Count {
			return top[i].Count > top[j].Count
		}
		return firstSeen[top[i].Token] < firstSeen[top[j].Token]
	})
	if len(top) > topValuesLimit {
		top = top[:topValuesLimit]
	}
	p.TopValues = top

	return p, nil
}
