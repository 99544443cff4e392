package profile

import (
	"context"
	"math"
	"strconv"
	"strings"

	"dataprof/internal/dataset"
)

const (
	// sampleLimit caps the sample values kept per column.
	sampleLimit = 5

	// numericSampleLimit bounds the likely-numeric check to the first N
	// non-null values in row order. Sampled on purpose: exhaustive
	// parsing is wasted work on multi-million-row extracts.
	numericSampleLimit = 1000

	// numericThreshold is the parse-success ratio above which a column
	// is flagged likely numeric.
	numericThreshold = 0.8
)

// Column computes the ColumnProfile for one column of a frame.
//
// Edge cases:
//   - A zero-row frame yields 0.0 for both percentage fields instead of
//     dividing by zero; the caller flags the dataset as empty.
//   - Returns an error only when the column does not exist or the scan
//     fails (sqlframe I/O, cancellation).
func Column(ctx context.Context, f dataset.Frame, col string) (*ColumnProfile, error) {
	p := &ColumnProfile{
		Name:         col,
		RowCount:     f.RowCount(),
		SampleValues: []string{},
	}

	var (
		numericSeen   int
		numericParsed int
	)

	err := f.ScanColumns(ctx, []string{col}, func(vals []*string) error {
		v := vals[0]
		if v == nil {
			p.NullCount++
			return nil
		}

		trimmed := strings.TrimSpace(*v)
		if trimmed == "" {
			// Blank values are an anomaly, never a sample. They still
			// occupy a slot in the numeric check as failed parses, so a
			// mostly-blank column cannot be flagged numeric off a
			// handful of numbers.
			p.EmptyStringCount++
			if numericSeen < numericSampleLimit {
				numericSeen++
			}
			return nil
		}

		if len(p.SampleValues) < sampleLimit {
			p.SampleValues = append(p.SampleValues, *v)
		}

		switch {
		case strings.EqualFold(trimmed, "none"):
			p.NoneLiteralCount++
		case strings.EqualFold(trimmed, "unknown"):
			p.UnknownLiteralCount++
		}

		if numericSeen < numericSampleLimit {
			numericSeen++
			if _, err := strconv.ParseFloat(trimmed, 64); err == nil {
				numericParsed++
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	distinct, err := f.DistinctCount(ctx, col)
	if err != nil {
		return nil, err
	}
	p.UniqueCount = distinct

	if p.RowCount > 0 {
		p.NullPercentage = round2(float64(p.NullCount) / float64(p.RowCount) * 100)
		p.CardinalityRatio = round2(float64(p.UniqueCount) / float64(p.RowCount) * 100)
	}

	if numericSeen > 0 {
		p.LikelyNumeric = float64(numericParsed) > float64(numericSeen)*numericThreshold
	}

	return p, nil
}

// round2 rounds to 2 decimal places, half away from zero.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
