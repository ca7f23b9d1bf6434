// Package metrics exposes Prometheus instruments for enrichment and batch
// processing. A nil *Recorder is valid and records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "leads"

// Recorder owns a private registry and the engine's instruments.
type Recorder struct {
	registry *prometheus.Registry

	providerRequests *prometheus.CounterVec
	providerDuration *prometheus.HistogramVec
	enrichmentSource *prometheus.CounterVec
	batchItems       *prometheus.CounterVec
	batchJobs        *prometheus.CounterVec
	jobsInFlight     prometheus.Gauge
}

// New creates a Recorder with all instruments registered.
func New() *Recorder {
	registry := prometheus.NewRegistry()

	providerRequests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_requests_total",
			Help:      "Enrichment provider calls by outcome.",
		},
		[]string{"provider", "status"},
	)
	providerDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "provider_request_duration_seconds",
			Help:      "Enrichment provider call latency in seconds.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30, 60},
		},
		[]string{"provider"},
	)
	enrichmentSource := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "enrichment_source_total",
			Help:      "Reconciled profiles by enrichment source.",
		},
		[]string{"source"},
	)
	batchItems := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batch_items_total",
			Help:      "Batch items processed by outcome.",
		},
		[]string{"status"},
	)
	batchJobs := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batch_jobs_total",
			Help:      "Finished batch jobs by terminal status.",
		},
		[]string{"status"},
	)
	jobsInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "batch_jobs_in_flight",
			Help:      "Batch jobs currently processing.",
		},
	)

	registry.MustRegister(providerRequests, providerDuration, enrichmentSource, batchItems, batchJobs, jobsInFlight)

	return &Recorder{
		registry:         registry,
		providerRequests: providerRequests,
		providerDuration: providerDuration,
		enrichmentSource: enrichmentSource,
		batchItems:       batchItems,
		batchJobs:        batchJobs,
		jobsInFlight:     jobsInFlight,
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry for tests and extra collectors.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// ObserveProvider records one provider call. status is a short outcome label
// such as "ok" or "timeout".
func (r *Recorder) ObserveProvider(provider, status string, d time.Duration) {
	if r == nil {
		return
	}
	r.providerRequests.WithLabelValues(provider, status).Inc()
	r.providerDuration.WithLabelValues(provider).Observe(d.Seconds())
}

// ObserveSource records the source of a reconciled profile.
func (r *Recorder) ObserveSource(source string) {
	if r == nil {
		return
	}
	r.enrichmentSource.WithLabelValues(source).Inc()
}

// ObserveItem records one batch item outcome ("success" or "failure").
func (r *Recorder) ObserveItem(status string) {
	if r == nil {
		return
	}
	r.batchItems.WithLabelValues(status).Inc()
}

// JobStarted increments the in-flight gauge.
func (r *Recorder) JobStarted() {
	if r == nil {
		return
	}
	r.jobsInFlight.Inc()
}

// JobFinished decrements the in-flight gauge and counts the terminal status.
func (r *Recorder) JobFinished(status string) {
	if r == nil {
		return
	}
	r.jobsInFlight.Dec()
	r.batchJobs.WithLabelValues(status).Inc()
}
