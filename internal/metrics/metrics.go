// Package metrics holds the process-wide prometheus collectors. sitepatch has
// no HTTP listener; the registry is dumped to a node_exporter textfile.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	FilesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sitepatch_files_total",
		Help: "HTML files processed, by status (updated, unchanged, errored).",
	}, []string{"status"})

	FragmentsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sitepatch_fragments_total",
		Help: "Fragment decisions, by outcome (applied, skipped, anchor-not-found, blocked).",
	}, []string{"outcome"})

	GeneratedPagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sitepatch_generated_pages_total",
		Help: "Pages rendered from department templates, by status.",
	}, []string{"status"})

	RunDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "sitepatch_run_duration_seconds",
		Help:    "Wall time of one sitepatch command.",
		Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	}, []string{"command"})
)

// WriteTextfile writes the default registry to path in the text exposition
// format. An empty path is a no-op.
func WriteTextfile(path string) error {
	if path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, prometheus.DefaultGatherer); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
