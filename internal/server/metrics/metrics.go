// Package metrics defines the Prometheus metrics of the gallery server.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "inkstudio"

// Guard decision outcomes.
const (
	GuardPass     = "pass"
	GuardRedirect = "redirect"
	GuardReject   = "reject"
)

// Metrics holds all Prometheus metrics. Pass to components that record them.
type Metrics struct {
	RequestsTotal      *prometheus.CounterVec
	RequestDuration    *prometheus.HistogramVec
	GuardDecisions     *prometheus.CounterVec
	GalleryPages       *prometheus.CounterVec
	BlobCleanupFailure prometheus.Counter
	Uploads            *prometheus.CounterVec
}

// New creates and registers all metrics with the given registry.
func New(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		RequestsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "status"},
		),
		RequestDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method"},
		),
		GuardDecisions: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "guard_decisions_total",
				Help:      "Admin access guard decisions",
			},
			[]string{"outcome"}, // pass/redirect/reject
		),
		GalleryPages: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "gallery_pages_total",
				Help:      "Public gallery pages served",
			},
			[]string{"result"}, // ok/error
		),
		BlobCleanupFailure: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "blob_cleanup_failures_total",
				Help:      "Image blobs that could not be deleted together with their record",
			},
		),
		Uploads: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "uploads_total",
				Help:      "Image uploads by result",
			},
			[]string{"result"}, // ok/error
		),
	}
}

// NewNop returns metrics registered on a private registry. Handy for tests
// and for components constructed without a shared registry.
func NewNop() *Metrics {
	return New(prometheus.NewRegistry())
}
