// Package metrics defines the minimal metrics seam the profiler emits
// through. The core depends only on Backend; concrete backends (see
// metrics/datadog) are selected at the edge of the program.
//
// The default backend is a nop, so library code can emit metrics
// unconditionally without configuration.
package metrics

import "sync"

// Labels are metric dimension key/value pairs.
type Labels map[string]string

// Backend receives metric events.
type Backend interface {
	// IncCounter adds delta to a named counter.
	IncCounter(name string, delta float64, labels Labels)

	// ObserveHistogram records one sample of a named distribution.
	ObserveHistogram(name string, value float64, labels Labels)

	// Flush pushes any buffered metrics to the sink.
	Flush() error
}

// Metric names emitted by the profiling run.
const (
	DatasetsTotal          = "profiler_datasets_total"
	RowsTotal              = "profiler_rows_total"
	DatasetDurationSeconds = "profiler_dataset_duration_seconds"
)

type nopBackend struct{}

func (nopBackend) IncCounter(string, float64, Labels)       {}
func (nopBackend) ObserveHistogram(string, float64, Labels) {}
func (nopBackend) Flush() error                             { return nil }

var (
	mu      sync.RWMutex
	backend Backend = nopBackend{}
)

// SetBackend installs the process-wide backend. Call once at startup;
// passing nil restores the nop backend.
func SetBackend(b Backend) {
	mu.Lock()
	defer mu.Unlock()
	if b == nil {
		backend = nopBackend{}
		return
	}
	backend = b
}

func current() Backend {
	mu.RLock()
	defer mu.RUnlock()
	return backend
}

// IncCounter adds delta to a counter on the installed backend.
func IncCounter(name string, delta float64, labels Labels) {
	current().IncCounter(name, delta, labels)
}

// ObserveHistogram records a sample on the installed backend.
func ObserveHistogram(name string, value float64, labels Labels) {
	current().ObserveHistogram(name, value, labels)
}

// Flush flushes the installed backend.
func Flush() error {
	return current().Flush()
}
