// Package profiling orchestrates a profiling run over a catalog of
// dataset configurations: load, profile, collect, one dataset at a
// time so peak memory stays near a single dataset's resident size.
package profiling

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"dataprof/internal/dataset"
	"dataprof/internal/loader"
	"dataprof/internal/metrics"
	"dataprof/internal/profile"
)

// Loader materializes one configured dataset. A missing source is
// reported with loader.ErrSourceMissing.
type Loader func(cfg dataset.Config) (*dataset.Dataset, error)

// FrameFactory turns a loaded dataset into the Frame the engine
// queries. The returned closer releases backend resources (nil when
// there is nothing to release).
type FrameFactory func(ctx context.Context, d *dataset.Dataset) (dataset.Frame, func(), error)

// MemFrames is the default FrameFactory: everything in process.
func MemFrames(_ context.Context, d *dataset.Dataset) (dataset.Frame, func(), error) {
	return dataset.NewMemFrame(d), nil, nil
}

// Runner executes profiling runs. Zero value is not usable; construct
// with the fields you need and leave the rest to defaults via Run.
type Runner struct {
	// Load materializes datasets. Required.
	Load Loader

	// NewFrame selects the engine backend. Defaults to MemFrames.
	NewFrame FrameFactory

	// Logger receives skip notices and per-dataset progress.
	// *log.Logger satisfies this interface. Defaults to the standard
	// logger.
	Logger profile.Logger
}

// Run profiles every catalog entry in order and returns the profiles
// of the datasets that loaded, keyed implicitly by catalog order.
//
// Failure containment:
//   - A missing source is logged and skipped; the run continues.
//   - Any other load error, and any panic while profiling one dataset,
//     is contained the same way. Datasets that fail are simply absent
//     from the result, never error placeholders.
//
// Errors:
//   - Only context cancellation aborts the whole run.
func (r *Runner) Run(ctx context.Context, catalog dataset.Catalog) ([]*profile.DatasetProfile, error) {
	logf := r.logger()

	profiles := make([]*profile.DatasetProfile, 0, len(catalog.Datasets))

	for _, cfg := range catalog.Datasets {
		if err := ctx.Err(); err != nil {
			return profiles, err
		}

		start := time.Now()
		dp, err := r.one(ctx, cfg)
		if err != nil {
			if ctx.Err() != nil {
				return profiles, ctx.Err()
			}
			if errors.Is(err, loader.ErrSourceMissing) {
				logf("dataset=%s skipped: source missing (%s)", cfg.Name, cfg.File)
			} else {
				logf("dataset=%s skipped: %v", cfg.Name, err)
			}
			metrics.IncCounter(metrics.DatasetsTotal, 1, metrics.Labels{"status": "skipped"})
			continue
		}

		profiles = append(profiles, dp)
		logf("dataset=%s rows=%d columns=%d duration=%s",
			cfg.Name, dp.RowCount, dp.ColumnCount, time.Since(start).Truncate(time.Millisecond))

		metrics.IncCounter(metrics.DatasetsTotal, 1, metrics.Labels{"status": "profiled"})
		metrics.IncCounter(metrics.RowsTotal, float64(dp.RowCount), nil)
		metrics.ObserveHistogram(metrics.DatasetDurationSeconds, time.Since(start).Seconds(), metrics.Labels{"dataset": cfg.Name})
	}

	return profiles, nil
}

// one loads and profiles a single dataset. Panics inside the engine are
// converted to errors here so one bad dataset cannot abort the catalog.
func (r *Runner) one(ctx context.Context, cfg dataset.Config) (dp *profile.DatasetProfile, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			dp = nil
			err = fmt.Errorf("panic while profiling: %v", rec)
		}
	}()

	d, err := r.Load(cfg)
	if err != nil {
		return nil, err
	}

	newFrame := r.NewFrame
	if newFrame == nil {
		newFrame = MemFrames
	}
	f, closer, err := newFrame(ctx, d)
	if err != nil {
		return nil, fmt.Errorf("frame: %w", err)
	}
	if closer != nil {
		defer closer()
	}

	return profile.Dataset(ctx, f, cfg, r.logger())
}

type logfFunc func(format string, v ...any)

func (f logfFunc) Printf(format string, v ...any) { f(format, v...) }

func (r *Runner) logger() logfFunc {
	if r.Logger == nil {
		return log.Printf
	}
	return r.Logger.Printf
}
