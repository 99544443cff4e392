package datadog

import (
	"context"
	"errors"
	"net/http"
	"os"
	"reflect"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"dataprof/internal/metrics"

	"github.com/DataDog/datadog-api-client-go/v2/api/datadogV2"
)

// fakeSubmitter captures payloads submitted by Backend.Flush().
type fakeSubmitter struct {
	mu       sync.Mutex
	payloads []datadogV2.MetricPayload
	err      error
}

func (f *fakeSubmitter) SubmitMetrics(ctx context.Context, body datadogV2.MetricPayload, params ...datadogV2.SubmitMetricsOptionalParameters) (datadogV2.IntakePayloadAccepted, *http.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.payloads = append(f.payloads, body)
	return datadogV2.IntakePayloadAccepted{}, nil, f.err
}

func (f *fakeSubmitter) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.payloads)
}

func (f *fakeSubmitter) last() (datadogV2.MetricPayload, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.payloads) == 0 {
		return datadogV2.MetricPayload{}, false
	}
	return f.payloads[len(f.payloads)-1], true
}

func newTestBackend(t *testing.T, fs *fakeSubmitter) *Backend {
	t.Helper()
	b, err := NewBackend(context.Background(), Options{
		JobName:    "test-job",
		FlushEvery: time.Hour, // ticker never fires during a test
		submitter:  fs,
		now:        func() time.Time { return time.Unix(1700000000, 0) },
	})
	if err != nil {
		t.Fatalf("NewBackend: %v", err)
	}
	t.Cleanup(func() { _ = b.Close() })
	return b
}

func seriesByMetric(p datadogV2.MetricPayload) map[string][]datadogV2.MetricSeries {
	out := make(map[string][]datadogV2.MetricSeries)
	for _, s := range p.Series {
		out[s.Metric] = append(out[s.Metric], s)
	}
	return out
}

// TestResolveEnvTag verifies environment-tag precedence and defaults.
//
// Edge cases:
//   - ENV wins over DD_ENV.
//   - Whitespace-only env vars are ignored.
//   - If neither is set, "env:unknown" is returned.
func TestResolveEnvTag(t *testing.T) {
	oldENV := os.Getenv("ENV")
	oldDDENV := os.Getenv("DD_ENV")
	t.Cleanup(func() {
		os.Setenv("ENV", oldENV)
		os.Setenv("DD_ENV", oldDDENV)
	})

	tests := []struct {
		name  string
		env   string
		ddEnv string
		want  string
	}{
		{"env wins", "prod", "staging", "env:prod"},
		{"dd_env fallback", "", "staging", "env:staging"},
		{"whitespace ignored", "   ", "staging", "env:staging"},
		{"unknown default", "", "", "env:unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Setenv("ENV", tt.env)
			os.Setenv("DD_ENV", tt.ddEnv)
			if got := resolveEnvTag(); got != tt.want {
				t.Errorf("resolveEnvTag() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFlush_EmptyBuffersSubmitNothing(t *testing.T) {
	fs := &fakeSubmitter{}
	b := newTestBackend(t, fs)

	if err := b.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if fs.count() != 0 {
		t.Errorf("payloads = %d, want 0 for empty buffers", fs.count())
	}
}

func TestFlush_DatasetCountsByStatus(t *testing.T) {
	fs := &fakeSubmitter{}
	b := newTestBackend(t, fs)

	b.IncCounter(metrics.DatasetsTotal, 1, metrics.Labels{"status": "profiled"})
	b.IncCounter(metrics.DatasetsTotal, 1, metrics.Labels{"status": "profiled"})
	b.IncCounter(metrics.DatasetsTotal, 1, metrics.Labels{"status": "skipped"})

	if err := b.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	p, ok := fs.last()
	if !ok {
		t.Fatal("no payload submitted")
	}

	counts := map[string]float64{}
	for _, s := range seriesByMetric(p)["profiler.datasets.total"] {
		for _, tag := range s.Tags {
			if strings.HasPrefix(tag, "status:") {
				counts[strings.TrimPrefix(tag, "status:")] = *s.Points[0].Value
			}
		}
		if *s.Type != datadogV2.METRICINTAKETYPE_COUNT {
			t.Errorf("datasets.total type = %v, want count", *s.Type)
		}
	}
	want := map[string]float64{"profiled": 2, "skipped": 1}
	if !reflect.DeepEqual(counts, want) {
		t.Errorf("status counts = %v, want %v", counts, want)
	}
}

func TestFlush_RowCount(t *testing.T) {
	fs := &fakeSubmitter{}
	b := newTestBackend(t, fs)

	b.IncCounter(metrics.RowsTotal, 1000, nil)
	b.IncCounter(metrics.RowsTotal, 500, nil)

	if err := b.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	p, _ := fs.last()

	rows := seriesByMetric(p)["profiler.rows.total"]
	if len(rows) != 1 {
		t.Fatalf("rows.total series = %d, want 1", len(rows))
	}
	if got := *rows[0].Points[0].Value; got != 1500 {
		t.Errorf("rows.total = %v, want 1500", got)
	}
}

func TestFlush_DurationPercentiles(t *testing.T) {
	fs := &fakeSubmitter{}
	b := newTestBackend(t, fs)

	for i := 1; i <= 100; i++ {
		b.ObserveHistogram(metrics.DatasetDurationSeconds, float64(i), metrics.Labels{"dataset": "titles"})
	}

	if err := b.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	p, _ := fs.last()
	byMetric := seriesByMetric(p)

	get := func(suffix string) float64 {
		ss := byMetric["profiler.dataset.duration_seconds."+suffix]
		if len(ss) != 1 {
			t.Fatalf("series %s: got %d, want 1", suffix, len(ss))
		}
		found := false
		for _, tag := range ss[0].Tags {
			if tag == "dataset:titles" {
				found = true
			}
		}
		if !found {
			t.Errorf("series %s missing dataset tag: %v", suffix, ss[0].Tags)
		}
		return *ss[0].Points[0].Value
	}

	if got := get("max"); got != 100 {
		t.Errorf("max = %v, want 100", got)
	}
	if got := get("samples"); got != 100 {
		t.Errorf("samples = %v, want 100", got)
	}
	if got := get("p50"); got < 49 || got > 52 {
		t.Errorf("p50 = %v, want about 50", got)
	}
	if got := get("p99"); got < 98 || got > 100 {
		t.Errorf("p99 = %v, want about 99", got)
	}
}

func TestFlush_ResetsBuffers(t *testing.T) {
	fs := &fakeSubmitter{}
	b := newTestBackend(t, fs)

	b.IncCounter(metrics.RowsTotal, 10, nil)
	if err := b.Flush(); err != nil {
		t.Fatalf("first Flush: %v", err)
	}
	if err := b.Flush(); err != nil {
		t.Fatalf("second Flush: %v", err)
	}
	if fs.count() != 1 {
		t.Errorf("payloads = %d, want 1 (second flush had nothing)", fs.count())
	}
}

func TestFlush_ResetsEvenOnSubmitError(t *testing.T) {
	fs := &fakeSubmitter{err: errors.New("intake down")}
	b := newTestBackend(t, fs)

	b.IncCounter(metrics.RowsTotal, 10, nil)
	if err := b.Flush(); err == nil {
		t.Fatal("expected submit error")
	}

	fs.err = nil
	if err := b.Flush(); err != nil {
		t.Fatalf("Flush after error: %v", err)
	}
	if fs.count() != 1 {
		t.Errorf("payloads = %d, want 1 (buffers dropped with the failed submit)", fs.count())
	}
}

func TestIncCounter_IgnoresBadInput(t *testing.T) {
	fs := &fakeSubmitter{}
	b := newTestBackend(t, fs)

	b.IncCounter(metrics.RowsTotal, 0, nil)
	b.IncCounter(metrics.RowsTotal, -5, nil)
	b.IncCounter("some.other.metric", 3, nil)
	b.ObserveHistogram(metrics.DatasetDurationSeconds, -1, metrics.Labels{"dataset": "x"})
	b.ObserveHistogram("some.other.histogram", 3, nil)

	if err := b.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if fs.count() != 0 {
		t.Errorf("payloads = %d, want 0", fs.count())
	}
}

func TestBaseTags(t *testing.T) {
	fs := &fakeSubmitter{}
	b, err := NewBackend(context.Background(), Options{
		JobName:    "nightly",
		Tags:       []string{"team:data"},
		FlushEvery: time.Hour,
		submitter:  fs,
	})
	if err != nil {
		t.Fatalf("NewBackend: %v", err)
	}
	t.Cleanup(func() { _ = b.Close() })

	b.IncCounter(metrics.RowsTotal, 1, nil)
	if err := b.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	p, _ := fs.last()

	tags := p.Series[0].Tags
	for _, want := range []string{"job:nightly", "team:data"} {
		found := false
		for _, tag := range tags {
			if tag == want {
				found = true
			}
		}
		if !found {
			t.Errorf("tags %v missing %q", tags, want)
		}
	}
}

func TestPeriodicFlush(t *testing.T) {
	fs := &fakeSubmitter{}
	tick := make(chan time.Time)
	b, err := NewBackend(context.Background(), Options{
		FlushEvery: time.Hour,
		submitter:  fs,
		newTicker: func(d time.Duration) *time.Ticker {
			return &time.Ticker{C: tick}
		},
	})
	if err != nil {
		t.Fatalf("NewBackend: %v", err)
	}
	t.Cleanup(func() { _ = b.Close() })

	b.IncCounter(metrics.RowsTotal, 7, nil)
	tick <- time.Now()

	deadline := time.After(2 * time.Second)
	for fs.count() == 0 {
		select {
		case <-deadline:
			t.Fatal("ticker flush never submitted")
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestClose_FlushesRemaining(t *testing.T) {
	fs := &fakeSubmitter{}
	b, err := NewBackend(context.Background(), Options{
		FlushEvery: time.Hour,
		submitter:  fs,
	})
	if err != nil {
		t.Fatalf("NewBackend: %v", err)
	}

	b.IncCounter(metrics.RowsTotal, 3, nil)
	if err := b.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if fs.count() != 1 {
		t.Errorf("payloads = %d, want 1 final flush", fs.count())
	}
}

func TestPercentileNearestRank(t *testing.T) {
	t.Parallel()

	s := []float64{5, 1, 3, 2, 4}
	sort.Float64s(s)

	tests := []struct {
		p    float64
		want float64
	}{
		{0, 1},
		{0.5, 3},
		{1, 5},
		{0.9, 5},
	}
	for _, tt := range tests {
		if got := percentileNearestRank(s, tt.p); got != tt.want {
			t.Errorf("percentileNearestRank(p=%v) = %v, want %v", tt.p, got, tt.want)
		}
	}
	if got := percentileNearestRank(nil, 0.5); got != 0 {
		t.Errorf("empty samples = %v, want 0", got)
	}
}

func TestParseTagsCSV(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"env:prod", []string{"env:prod"}},
		{"env:prod, team:data", []string{"env:prod", "team:data"}},
		{" , ,a", []string{"a"}},
	}
	for _, tt := range tests {
		if got := ParseTagsCSV(tt.in); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("ParseTagsCSV(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
