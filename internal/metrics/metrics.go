// Package metrics records scan statistics as prometheus collectors and exports them in
// the text exposition format.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/temirov/dirmap/internal/services/stream"
)

const (
	labelType    = "type"
	labelStatus  = "status"
	labelCommand = "command"

	statusListed = "listed"
)

// Recorder counts scan events on a private registry so that concurrent scans in one
// process do not share totals.
type Recorder struct {
	registry *prometheus.Registry

	// Entries tracks report entries by node type and content status
	Entries *prometheus.CounterVec
	// Directories tracks descended directories, including the root
	Directories prometheus.Counter
	// EmbeddedBytes tracks the size of embedded content
	EmbeddedBytes prometheus.Counter
	// Tokens tracks estimated tokens of embedded content
	Tokens prometheus.Counter
	// Warnings tracks non-fatal problems reported during a scan
	Warnings prometheus.Counter
	// ScanDuration tracks wall time per scan
	ScanDuration *prometheus.HistogramVec
}

// NewRecorder registers the dirmap collectors on a fresh registry.
func NewRecorder() *Recorder {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)
	return &Recorder{
		registry: registry,
		Entries: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "dirmap_entries_total",
			Help: "The total number of entries listed in reports",
		}, []string{labelType, labelStatus}),
		Directories: factory.NewCounter(prometheus.CounterOpts{
			Name: "dirmap_directories_total",
			Help: "The total number of directories descended into",
		}),
		EmbeddedBytes: factory.NewCounter(prometheus.CounterOpts{
			Name: "dirmap_embedded_bytes_total",
			Help: "The total number of content bytes embedded in reports",
		}),
		Tokens: factory.NewCounter(prometheus.CounterOpts{
			Name: "dirmap_tokens_total",
			Help: "The estimated number of tokens embedded in reports",
		}),
		Warnings: factory.NewCounter(prometheus.CounterOpts{
			Name: "dirmap_warnings_total",
			Help: "The total number of warnings raised while scanning",
		}),
		ScanDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "dirmap_scan_duration_seconds",
			Help:    "Time spent producing a report",
			Buckets: prometheus.DefBuckets,
		}, []string{labelCommand}),
	}
}

// Observe updates the counters for one stream event.
func (recorder *Recorder) Observe(event stream.Event) {
	switch event.Kind {
	case stream.EventKindDirectory:
		if event.Directory != nil && event.Directory.Phase == stream.DirectoryEnter {
			recorder.Directories.Inc()
		}
	case stream.EventKindEntry:
		if event.Entry == nil {
			return
		}
		status := string(event.Entry.Status)
		if status == "" {
			status = statusListed
		}
		recorder.Entries.WithLabelValues(event.Entry.Type, status).Inc()
		if event.Entry.Status == stream.ContentEmbedded {
			recorder.EmbeddedBytes.Add(float64(event.Entry.SizeBytes))
			recorder.Tokens.Add(float64(event.Entry.Tokens))
		}
	case stream.EventKindWarning:
		recorder.Warnings.Inc()
	}
}

// ObserveDuration records how long a scan for command took.
func (recorder *Recorder) ObserveDuration(command string, elapsed time.Duration) {
	recorder.ScanDuration.WithLabelValues(command).Observe(elapsed.Seconds())
}

// Gatherer exposes the recorder's registry.
func (recorder *Recorder) Gatherer() prometheus.Gatherer {
	return recorder.registry
}

// WriteTextfile writes all collected metrics to path in the text exposition format.
func (recorder *Recorder) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, recorder.registry); err != nil {
		return fmt.Errorf("write metrics to %s: %w", path, err)
	}
	return nil
}
