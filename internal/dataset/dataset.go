// Package dataset defines the in-memory tabular model handed to the
// profiling engine, the per-dataset configuration, and the catalog of
// datasets a profiling run walks.
//
// Cells are *string: nil means the source's null marker was present and
// has already been normalized away by the loader. An empty string is a
// real (non-null) value; the engine counts it separately.
package dataset

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// Config describes one dataset to profile.
//
// Edge cases:
//   - At most one of PrimaryKey / CompositeKey may be set.
//   - MultiValueColumns requires MultiValueSep.
type Config struct {
	Name        string `json:"name"`
	File        string `json:"file"`
	Description string `json:"description"`

	// NullMarker is the sentinel literal the source uses for absent
	// values (e.g. `\N` in IMDb TSV exports). Converted to null at load.
	NullMarker string `json:"null_marker"`

	// Delimiter is the field separator as a one-rune string. Defaults
	// to a tab when empty.
	Delimiter string `json:"delimiter,omitempty"`

	PrimaryKey   string   `json:"primary_key,omitempty"`
	CompositeKey []string `json:"composite_key,omitempty"`

	MultiValueColumns []string `json:"multi_value_columns,omitempty"`
	MultiValueSep     string   `json:"multi_value_separator,omitempty"`
}

// KeyColumns returns the configured key columns, or nil when no key is
// declared. A single primary key and a composite key are returned in
// the same shape so callers validate them uniformly.
func (c Config) KeyColumns() []string {
	if c.PrimaryKey != "" {
		return []string{c.PrimaryKey}
	}
	if len(c.CompositeKey) > 0 {
		return append([]string(nil), c.CompositeKey...)
	}
	return nil
}

// DelimiterRune returns the configured delimiter, defaulting to tab.
func (c Config) DelimiterRune() rune {
	if c.Delimiter == "" {
		return '\t'
	}
	return []rune(c.Delimiter)[0]
}

// Catalog is the ordered set of datasets for one profiling run.
type Catalog struct {
	Datasets []Config `json:"datasets"`
}

// LoadCatalog decodes a catalog from a JSON file.
func LoadCatalog(path string) (Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return Catalog{}, fmt.Errorf("open catalog: %w", err)
	}
	defer f.Close()
	return DecodeCatalog(f)
}

// DecodeCatalog decodes a catalog from JSON.
func DecodeCatalog(r io.Reader) (Catalog, error) {
	var c Catalog
	if err := json.NewDecoder(r).Decode(&c); err != nil {
		return Catalog{}, fmt.Errorf("decode catalog: %w", err)
	}
	return c, nil
}

// Severity of a validation issue.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Issue is one problem found while validating a catalog.
type Issue struct {
	Severity Severity
	Path     string
	Message  string
}

// Validate checks every catalog entry and returns all issues found
// rather than stopping at the first. Errors make the entry unusable;
// warnings are advisory.
func (c Catalog) Validate() []Issue {
	var issues []Issue

	seen := make(map[string]struct{}, len(c.Datasets))
	for i, d := range c.Datasets {
		path := fmt.Sprintf("datasets[%d]", i)

		if d.Name == "" {
			issues = append(issues, Issue{SeverityError, path + ".name", "name is required"})
		} else if _, dup := seen[d.Name]; dup {
			issues = append(issues, Issue{SeverityError, path + ".name", fmt.Sprintf("duplicate dataset name %q", d.Name)})
		} else {
			seen[d.Name] = struct{}{}
		}

		if d.File == "" {
			issues = append(issues, Issue{SeverityError, path + ".file", "file is required"})
		}

		if d.PrimaryKey != "" && len(d.CompositeKey) > 0 {
			issues = append(issues, Issue{SeverityError, path, "primary_key and composite_key are mutually exclusive"})
		}

		if len(d.MultiValueColumns) > 0 && d.MultiValueSep == "" {
			issues = append(issues, Issue{SeverityError, path + ".multi_value_separator", "required when multi_value_columns is set"})
		}
		if len(d.MultiValueColumns) == 0 && d.MultiValueSep != "" {
			issues = append(issues, Issue{SeverityWarning, path + ".multi_value_separator", "set but no multi_value_columns declared"})
		}

		if d.NullMarker == "" {
			issues = append(issues, Issue{SeverityWarning, path + ".null_marker", "empty; no sentinel will be normalized to null"})
		}

		if len(d.Delimiter) > 1 && len([]rune(d.Delimiter)) > 1 {
			issues = append(issues, Issue{SeverityError, path + ".delimiter", "must be a single character"})
		}
	}

	return issues
}

// HasErrors reports whether any issue in the slice is an error.
func HasErrors(issues []Issue) bool {
	for _, iss := range issues {
		if iss.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Dataset is a fully materialized table: ordered column names and rows
// of nullable cells aligned to that order. Owned by the loader and
// read-only to the engine.
type Dataset struct {
	ColumnNames []string
	Rows        [][]*string

	colIx map[string]int
}

// New builds a Dataset and its column index. Column names must be
// unique; the loader enforces this before handing the dataset over.
func New(columns []string, rows [][]*string) *Dataset {
	ix := make(map[string]int, len(columns))
	for i, c := range columns {
		ix[c] = i
	}
	return &Dataset{ColumnNames: columns, Rows: rows, colIx: ix}
}

// ColumnIndex returns the position of a column, or -1 when absent.
func (d *Dataset) ColumnIndex(name string) int {
	if i, ok := d.colIx[name]; ok {
		return i
	}
	return -1
}
