// Package metrics defines the Prometheus collectors exported on /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "accessibility"

// Outcome label values.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeEmpty   = "empty"
)

type Metrics struct {
	analyses         *prometheus.CounterVec
	analysisDuration *prometheus.HistogramVec
	findings         *prometheus.CounterVec
	captions         *prometheus.CounterVec
	uploadsStaged    prometheus.Counter
	uploadsSwept     *prometheus.CounterVec
	httpRequests     *prometheus.CounterVec
	httpDuration     *prometheus.HistogramVec
}

// New registers the collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)

	return &Metrics{
		analyses: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analyses_total",
			Help:      "Analysis calls by strategy, input type and outcome.",
		}, []string{"strategy", "input_type", "outcome"}),
		analysisDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "analysis_duration_seconds",
			Help:      "End-to-end analysis latency.",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 20, 40, 60, 120},
		}, []string{"strategy"}),
		findings: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "findings_total",
			Help:      "Findings returned, by severity.",
		}, []string{"severity"}),
		captions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "image_captions_total",
			Help:      "Image caption lookups by outcome.",
		}, []string{"outcome"}),
		uploadsStaged: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "uploads_staged_total",
			Help:      "Documents uploaded to blob storage for the model.",
		}),
		uploadsSwept: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "uploads_swept_total",
			Help:      "Expired uploads processed by the janitor.",
		}, []string{"outcome"}),
		httpRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status.",
		}, []string{"method", "route", "status"}),
		httpDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

// NewNop returns collectors registered on a private registry. Used by tests.
func NewNop() *Metrics {
	return New(prometheus.NewRegistry())
}

func (m *Metrics) ObserveAnalysis(strategy, inputType, outcome string, elapsed time.Duration) {
	m.analyses.WithLabelValues(strategy, inputType, outcome).Inc()
	m.analysisDuration.WithLabelValues(strategy).Observe(elapsed.Seconds())
}

func (m *Metrics) AddFindings(severity string, n int) {
	m.findings.WithLabelValues(severity).Add(float64(n))
}

func (m *Metrics) ObserveCaption(outcome string) {
	m.captions.WithLabelValues(outcome).Inc()
}

func (m *Metrics) UploadStaged() {
	m.uploadsStaged.Inc()
}

func (m *Metrics) UploadSwept(outcome string) {
	m.uploadsSwept.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveHTTP(method, route, status string, elapsed time.Duration) {
	m.httpRequests.WithLabelValues(method, route, status).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}
