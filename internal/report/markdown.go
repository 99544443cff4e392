// Package report renders assembled dataset profiles into the summary
// artifacts downstream cleaning work is planned against: one markdown
// summary for the whole run and one HTML page per dataset.
package report

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"dataprof/internal/profile"
)

// sampleDisplayLimit caps sample values shown per column row.
const sampleDisplayLimit = 3

// topDisplayLimit caps top tokens shown per multi-value row.
const topDisplayLimit = 3

// grouped formats integers with thousands separators for readability;
// raw row counts in the tens of millions are unreadable otherwise.
var grouped = message.NewPrinter(language.English)

func n(v int) string { return grouped.Sprintf("%d", v) }

// Markdown renders the run summary: an overview table, a per-dataset
// deep dive, and the row-count reference table used to validate
// downstream ingestion.
func Markdown(profiles []*profile.DatasetProfile, generated time.Time) string {
	var b strings.Builder

	b.WriteString("# Data Profiling Summary\n\n")
	fmt.Fprintf(&b, "**Generated:** %s\n\n---\n\n", generated.Format("2006-01-02 15:04:05"))

	writeOverview(&b, profiles)
	for _, p := range profiles {
		writeDataset(&b, p)
	}
	writeRowCountReference(&b, profiles)
	writeFindingsSkeleton(&b)

	return b.String()
}

func writeOverview(b *strings.Builder, profiles []*profile.DatasetProfile) {
	b.WriteString("## Dataset Overview\n\n")
	b.WriteString("| # | Dataset | File | Rows | Columns | Description |\n")
	b.WriteString("|---|---------|------|------|---------|-------------|\n")

	total := 0
	for i, p := range profiles {
		fmt.Fprintf(b, "| %d | `%s` | `%s` | %s | %d | %s |\n",
			i+1, p.Name, p.File, n(p.RowCount), p.ColumnCount, p.Description)
		total += p.RowCount
	}
	fmt.Fprintf(b, "\n**Total rows across all datasets: %s**\n", n(total))
}

func writeDataset(b *strings.Builder, p *profile.DatasetProfile) {
	fmt.Fprintf(b, "\n---\n\n## %s\n\n", p.Name)
	fmt.Fprintf(b, "**File:** `%s`  \n**Rows:** %s  \n**Columns:** %d\n\n", p.File, n(p.RowCount), p.ColumnCount)
	if p.Empty {
		b.WriteString("**Dataset is empty** — all percentage statistics default to 0.00.\n\n")
	}

	writeKey(b, p)

	b.WriteString("### Column Analysis\n\n")
	b.WriteString("| Column | Null Count | Null % | Unique Count | Cardinality % | Likely Numeric | Sample Values |\n")
	b.WriteString("|--------|-----------|--------|--------------|---------------|----------------|---------------|\n")
	for _, name := range p.ColumnOrder {
		c := p.Columns[name]
		samples := c.SampleValues
		if len(samples) > sampleDisplayLimit {
			samples = samples[:sampleDisplayLimit]
		}
		fmt.Fprintf(b, "| `%s` | %s | %.2f%% | %s | %.2f%% | %t | %s |\n",
			c.Name, n(c.NullCount), c.NullPercentage, n(c.UniqueCount), c.CardinalityRatio,
			c.LikelyNumeric, strings.Join(samples, ", "))
	}

	writeQualityFlags(b, p)
	writeMultiValue(b, p)
}

func writeKey(b *strings.Builder, p *profile.DatasetProfile) {
	if p.Key == nil {
		return
	}
	k := p.Key
	status := "VALID"
	if !k.Valid {
		status = "INVALID"
	}
	fmt.Fprintf(b, "**Primary Key:** `%s` → %s\n", strings.Join(k.Columns, ", "), status)
	if !k.Valid {
		fmt.Fprintf(b, "  - Null count: %s\n", n(k.NullCount))
		fmt.Fprintf(b, "  - Duplicate count: %s\n", n(k.DuplicateCount))
	}
	b.WriteString("\n")
}

func writeQualityFlags(b *strings.Builder, p *profile.DatasetProfile) {
	wroteHeader := false
	for _, name := range p.ColumnOrder {
		c := p.Columns[name]
		if c.EmptyStringCount == 0 && c.NoneLiteralCount == 0 && c.UnknownLiteralCount == 0 {
			continue
		}
		if !wroteHeader {
			b.WriteString("\n### Data Quality Flags\n\n")
			b.WriteString("| Column | Empty Strings | 'none' Literals | 'unknown' Literals |\n")
			b.WriteString("|--------|---------------|-----------------|--------------------|\n")
			wroteHeader = true
		}
		fmt.Fprintf(b, "| `%s` | %s | %s | %s |\n",
			c.Name, n(c.EmptyStringCount), n(c.NoneLiteralCount), n(c.UnknownLiteralCount))
	}
}

func writeMultiValue(b *strings.Builder, p *profile.DatasetProfile) {
	if len(p.MultiValueOrder) == 0 {
		return
	}

	b.WriteString("\n### Multi-Value Field Analysis\n\n")
	b.WriteString("| Column | Min Values | Max Values | Avg Values | Distinct Values | Top Values |\n")
	b.WriteString("|--------|-----------|-----------|-----------|-----------------|------------|\n")
	for _, name := range p.MultiValueOrder {
		mv := p.MultiValue[name]
		tops := make([]string, 0, topDisplayLimit)
		for i, tc := range mv.TopValues {
			if i == topDisplayLimit {
				break
			}
			tops = append(tops, tc.Token)
		}
		fmt.Fprintf(b, "| `%s` | %d | %d | %.2f | %s | %s |\n",
			mv.Name, mv.MinValuesPerRow, mv.MaxValuesPerRow, mv.AvgValuesPerRow,
			n(mv.TotalDistinctValues), strings.Join(tops, ", "))
	}

	b.WriteString("\nThese fields must be decomposed into one row per value before relational loading.\n")
}

func writeRowCountReference(b *strings.Builder, profiles []*profile.DatasetProfile) {
	b.WriteString("\n---\n\n## Row Count Reference\n\n")
	b.WriteString("Use this table to validate that ingested row counts match the source:\n\n")
	b.WriteString("| Dataset | Source Row Count |\n")
	b.WriteString("|---------|------------------|\n")
	for _, p := range profiles {
		fmt.Fprintf(b, "| `%s` | %s |\n", p.Name, n(p.RowCount))
	}
}

// writeFindingsSkeleton closes the summary with an empty decision table
// for the humans reading it: profiling surfaces the anomalies, the
// cleaning decisions get recorded here as they are made.
func writeFindingsSkeleton(b *strings.Builder) {
	b.WriteString("\n---\n\n## Key Findings & Cleaning Decisions\n\n")
	b.WriteString("Based on profiling, document your cleaning decisions here:\n\n")
	b.WriteString("| Finding | Decision | Layer | Justification |\n")
	b.WriteString("|---------|----------|-------|---------------|\n")
	b.WriteString("| _Add more as you discover them..._ | | | |\n")
}
