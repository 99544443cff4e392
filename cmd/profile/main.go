// Command profile walks a catalog of delimited-text datasets, runs the
// profiling engine over each, and writes the markdown/HTML summaries
// plus, optionally, a persisted row-count reference table.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"dataprof/internal/dataset"
	"dataprof/internal/dataset/sqlframe"
	"dataprof/internal/loader"
	"dataprof/internal/metrics"
	"dataprof/internal/metrics/datadog"
	"dataprof/internal/profile"
	"dataprof/internal/profiling"
	"dataprof/internal/report"
	"dataprof/internal/storage"

	// register all summary store backends with the storage factory.
	_ "dataprof/internal/storage/all"
)

func main() {
	// Optional .env for DSNs and Datadog credentials.
	_ = godotenv.Load()

	var (
		cfgPath           string
		dataDir           string
		outDir            string
		htmlReports       bool
		backendFlg        string
		storeKind         string
		storeDSN          string
		metricsBackendFlg string
		validate          bool
	)

	flag.StringVar(&cfgPath, "config", "configs/catalog.json", "dataset catalog JSON path")
	flag.StringVar(&dataDir, "data-dir", "data", "directory containing the source files")
	flag.StringVar(&outDir, "out", "docs/profiling", "output directory for reports")
	flag.BoolVar(&htmlReports, "html", false, "also write one HTML report per dataset")
	flag.StringVar(&backendFlg, "backend", "memory", "profiling backend (memory, sqlite)")
	flag.StringVar(&storeKind, "store", "", "summary store backend (postgres, sqlite, mssql); empty disables persistence")
	flag.StringVar(&storeDSN, "store-dsn", "", "summary store DSN (overrides env STORE_DSN)")
	flag.StringVar(&metricsBackendFlg, "metrics-backend", "", "metrics backend to use (datadog, none); empty falls back to METRICS_BACKEND")
	flag.BoolVar(&validate, "validate", false, "validate the catalog and exit")
	verbose := flag.Bool("v", false, "enable verbose logs")

	flag.Parse()

	catalog, err := dataset.LoadCatalog(cfgPath)
	if err != nil {
		fatalf("load catalog: %v", err)
	}

	issues := catalog.Validate()
	for _, iss := range issues {
		fmt.Fprintf(os.Stderr, "%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
	}
	if dataset.HasErrors(issues) {
		log.Printf("catalog is invalid: %v", cfgPath)
		os.Exit(1)
	}
	if validate {
		log.Printf("catalog is valid: %v", cfgPath)
		os.Exit(0)
	}

	runID := uuid.NewString()

	backendName := resolveMetricsBackend(metricsBackendFlg, os.Getenv("METRICS_BACKEND"))
	switch backendName {
	case "datadog":
		// Buffers metrics and submits periodically plus one final time
		// at shutdown, so long catalogs show up as a time series.
		b, err := datadog.NewBackend(context.Background(), datadog.Options{
			JobName: "dataprof",
			Tags:    append(datadog.ParseTagsCSV(os.Getenv("METRICS_TAGS")), "run:"+runID),
		})
		if err != nil {
			log.Printf("metrics: failed to init datadog backend: %v; using nop", err)
		} else {
			metrics.SetBackend(b)
			defer func() {
				if err := b.Close(); err != nil {
					log.Printf("metrics: datadog close/flush error: %v", err)
				}
			}()
		}

	case "", "none":
		if *verbose {
			log.Printf("metrics: disabled (backend=%q)", backendName)
		}

	default:
		log.Printf("metrics: unknown backend %q; metrics disabled", backendName)
	}

	newFrame := profiling.MemFrames
	switch backendFlg {
	case "", "memory":
	case "sqlite":
		newFrame = func(ctx context.Context, d *dataset.Dataset) (dataset.Frame, func(), error) {
			f, err := sqlframe.New(ctx, d)
			if err != nil {
				return nil, nil, err
			}
			return f, func() { _ = f.Close() }, nil
		}
	default:
		fatalf("unknown profiling backend %q (want memory or sqlite)", backendFlg)
	}

	runner := &profiling.Runner{
		Load: func(cfg dataset.Config) (*dataset.Dataset, error) {
			return loader.Load(cfg, dataDir)
		},
		NewFrame: newFrame,
	}

	ctx := context.Background()
	start := time.Now()

	if *verbose {
		log.Printf("run=%s catalog=%s datasets=%d backend=%s", runID, cfgPath, len(catalog.Datasets), backendFlg)
	}

	profiles, err := runner.Run(ctx, catalog)
	if err != nil {
		log.Fatalf("%v", err)
	}
	finished := time.Now()

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		fatalf("create output dir: %v", err)
	}

	summaryPath := filepath.Join(outDir, "profiling_summary.md")
	md := report.Markdown(profiles, finished)
	if err := os.WriteFile(summaryPath, []byte(md), 0o644); err != nil {
		fatalf("write summary: %v", err)
	}
	log.Printf("summary written: %s", summaryPath)

	if htmlReports {
		// Report rendering failures degrade the affected artifact only.
		for _, p := range profiles {
			path := filepath.Join(outDir, p.Name+"_profile.html")
			if err := writeHTMLReport(path, p); err != nil {
				log.Printf("html report %s skipped: %v", p.Name, err)
			}
		}
	}

	if storeKind != "" {
		dsn := storeDSN
		if dsn == "" {
			dsn = os.Getenv("STORE_DSN")
		}
		rec := storage.RunRecord{
			ID:               runID,
			StartedAt:        start,
			FinishedAt:       finished,
			DatasetsProfiled: len(profiles),
			DatasetsSkipped:  len(catalog.Datasets) - len(profiles),
		}
		// Persistence is an optional capability: failures are logged,
		// never fatal to the run that already produced reports.
		if err := persistSummary(ctx, storage.Config{Kind: storeKind, DSN: dsn}, rec, profiles); err != nil {
			log.Printf("summary store skipped: %v", err)
		}
	}

	if *verbose {
		log.Printf("completed in %s", time.Since(start).Truncate(time.Millisecond))
	}
}

// resolveMetricsBackend picks the metrics backend: flag wins, then the
// METRICS_BACKEND environment variable, then disabled.
func resolveMetricsBackend(flagValue, envValue string) string {
	if flagValue != "" {
		return flagValue
	}
	return envValue
}

func writeHTMLReport(path string, p *profile.DatasetProfile) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := report.WriteHTML(f, p); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func persistSummary(ctx context.Context, cfg storage.Config, rec storage.RunRecord, profiles []*profile.DatasetProfile) error {
	st, err := storage.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	if err := st.EnsureTables(ctx); err != nil {
		return err
	}
	if err := st.SaveRun(ctx, rec); err != nil {
		return err
	}
	return st.SaveDatasetSummaries(ctx, rec.ID, profiles)
}

func fatalf(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", a...)
	os.Exit(1)
}
