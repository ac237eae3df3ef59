// Package metrics holds the service's Prometheus collectors.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// MovesTotal counts move attempts by outcome ("applied" or a rejection reason).
	MovesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pdfmarks_moves_total",
		Help: "Bookmark move attempts by outcome",
	}, []string{"outcome"})

	// EditsTotal counts non-move edits by kind.
	EditsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pdfmarks_edits_total",
		Help: "Bookmark edits by kind",
	}, []string{"kind"})

	// ImportsTotal counts finished import jobs by format and status.
	ImportsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pdfmarks_imports_total",
		Help: "Finished import jobs by format and status",
	}, []string{"format", "status"})

	// ImportDuration tracks parse-to-session latency.
	ImportDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pdfmarks_import_duration_seconds",
		Help:    "Import duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 14), // 1ms to ~8s
	}, []string{"format"})

	// ActiveSessions is the number of open editing sessions.
	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pdfmarks_active_sessions",
		Help: "Open editing sessions",
	})

	// QueueDepth is the number of import jobs waiting for a worker.
	QueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pdfmarks_import_queue_depth",
		Help: "Import jobs waiting for a worker",
	})

	// SavesTotal counts save attempts by result.
	SavesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pdfmarks_saves_total",
		Help: "Outline saves by result",
	}, []string{"result"})
)

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
