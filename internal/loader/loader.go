// Package loader reads a delimited text extract into a dataset.Dataset.
//
// The loader owns null normalization: cells equal to the configured
// null marker become nil before the engine ever sees them. Nothing else
// is rewritten; in particular empty strings and surrounding whitespace
// survive the load, because the engine counts them as data quality
// signals.
package loader

import (
	"compress/gzip"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"dataprof/internal/dataset"
)

// ErrSourceMissing reports that neither the configured file nor its .gz
// variant exists. Callers skip the dataset and keep the run going.
var ErrSourceMissing = errors.New("loader: source file missing")

// Load reads the dataset configured by cfg, resolving cfg.File against
// dataDir.
//
// Edge cases:
//   - If <file> is absent but <file>.gz exists, the gzip variant is
//     read transparently (raw exports are often shipped compressed).
//   - A file containing only a header yields a zero-row dataset, not an
//     error.
//   - Records with a field count different from the header are skipped;
//     relational exports occasionally carry truncated trailing lines.
func Load(cfg dataset.Config, dataDir string) (*dataset.Dataset, error) {
	path := filepath.Join(dataDir, cfg.File)

	f, err := open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return Read(f, cfg)
}

// open returns a reader for path, falling back to path+".gz".
func open(path string) (io.ReadCloser, error) {
	if f, err := os.Open(path); err == nil {
		return f, nil
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	gz, err := os.Open(path + ".gz")
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrSourceMissing, path)
		}
		return nil, fmt.Errorf("open %s.gz: %w", path, err)
	}

	zr, err := gzip.NewReader(gz)
	if err != nil {
		_ = gz.Close()
		return nil, fmt.Errorf("gzip %s.gz: %w", path, err)
	}

	return &gzipReadCloser{zr: zr, f: gz}, nil
}

type gzipReadCloser struct {
	zr *gzip.Reader
	f  *os.File
}

func (g *gzipReadCloser) Read(p []byte) (int, error) { return g.zr.Read(p) }

func (g *gzipReadCloser) Close() error {
	err := g.zr.Close()
	if cerr := g.f.Close(); err == nil {
		err = cerr
	}
	return err
}

// Read parses delimited text from r per cfg. Exposed separately from
// Load so tests and alternate sources can feed readers directly.
func Read(r io.Reader, cfg dataset.Config) (*dataset.Dataset, error) {
	cr := csv.NewReader(r)
	cr.Comma = cfg.DelimiterRune()
	cr.FieldsPerRecord = -1 // field count validated against the header below
	cr.LazyQuotes = true    // TSV exports carry stray quotes; never reject on them
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("read header: empty file")
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	columns := make([]string, len(header))
	seen := make(map[string]struct{}, len(header))
	for i, h := range header {
		if i == 0 {
			h = strings.TrimPrefix(h, "\ufeff")
		}
		h = strings.TrimSpace(h)
		if _, dup := seen[h]; dup {
			return nil, fmt.Errorf("duplicate column %q in header", h)
		}
		seen[h] = struct{}{}
		columns[i] = h
	}

	var rows [][]*string
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read record: %w", err)
		}
		if len(rec) != len(columns) {
			continue
		}

		row := make([]*string, len(columns))
		for i, v := range rec {
			if cfg.NullMarker != "" && v == cfg.NullMarker {
				continue // null cell
			}
			s := v
			row[i] = &s
		}
		rows = append(rows, row)
	}

	return dataset.New(columns, rows), nil
}
