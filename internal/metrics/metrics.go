// Package metrics is a small, backend-agnostic abstraction for recording
// operational metrics from the panel builder and the filter service.
//
//   - Backend is a narrow interface for counters and timings.
//   - The global backend defaults to a no-op, so instrumentation is always
//     safe to call even when nothing is configured.
//   - Concrete systems live in subpackages (prompush, datadog) and are
//     installed with SetBackend from the cmd layer.
package metrics

import (
	"sync"
	"time"
)

// Labels are string key/value pairs attached to a metric.
type Labels map[string]string

// Metric names emitted by the helpers below.
const (
	StepTotal           = "panel_step_total"
	StepDurationSeconds = "panel_step_duration_seconds"
	RowsTotal           = "panel_rows_total"
	DomainsTotal        = "panel_domains_total"
)

// Backend is the minimal interface for metrics backends.
type Backend interface {
	// IncCounter increments a counter by delta.
	IncCounter(name string, delta float64, labels Labels)
	// ObserveHistogram records a value in a latency/duration style metric.
	ObserveHistogram(name string, value float64, labels Labels)
	// Flush pushes or flushes metrics, if the backend needs it (e.g. Pushgateway).
	Flush() error
}

type nopBackend struct{}

func (nopBackend) IncCounter(name string, delta float64, labels Labels)       {}
func (nopBackend) ObserveHistogram(name string, value float64, labels Labels) {}
func (nopBackend) Flush() error                                               { return nil }

var (
	mu      sync.RWMutex
	backend Backend = nopBackend{}
)

// SetBackend installs a concrete backend. Passing nil keeps the existing backend.
func SetBackend(b Backend) {
	if b == nil {
		return
	}
	mu.Lock()
	backend = b
	mu.Unlock()
}

func current() Backend {
	mu.RLock()
	defer mu.RUnlock()
	return backend
}

// Flush delegates to the current backend.
func Flush() error {
	return current().Flush()
}

// RecordStep counts one execution of a pipeline step and records its latency.
// Steps are e.g. "load", "merge", "intersect", "write", "publish".
func RecordStep(job, step string, err error, d time.Duration) {
	status := "success"
	if err != nil {
		status = "failure"
	}
	lbls := Labels{
		"job":    job,
		"step":   step,
		"status": status,
	}
	b := current()
	b.IncCounter(StepTotal, 1, lbls)
	b.ObserveHistogram(StepDurationSeconds, d.Seconds(), lbls)
}

// RecordRows adds delta rows of the given kind ("loaded", "merged", "panel",
// "removed", ...). Non-positive deltas are ignored.
func RecordRows(job, kind string, delta int64) {
	if delta <= 0 {
		return
	}
	current().IncCounter(RowsTotal, float64(delta), Labels{
		"job":  job,
		"kind": kind,
	})
}

// RecordDomain counts a domain outcome ("loaded" or "skipped") for a year.
func RecordDomain(job, year, outcome string) {
	current().IncCounter(DomainsTotal, 1, Labels{
		"job":     job,
		"year":    year,
		"outcome": outcome,
	})
}
