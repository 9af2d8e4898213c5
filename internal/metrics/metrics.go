package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	IngestRunsTotal   *prometheus.CounterVec
	PairFetchesTotal  *prometheus.CounterVec
	SamplesSavedTotal prometheus.Counter
	IngestDuration    prometheus.Histogram
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"path", "method", "status_code"},
		),

		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"path", "method"},
		),

		IngestRunsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ingest_runs_total",
				Help: "Total number of ingestion runs by outcome",
			},
			[]string{"outcome"},
		),

		PairFetchesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pair_fetches_total",
				Help: "Total number of upstream rate fetches by pair and outcome",
			},
			[]string{"pair", "outcome"},
		),

		SamplesSavedTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "rate_samples_saved_total",
				Help: "Total number of rate samples persisted",
			},
		),

		IngestDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "ingest_duration_seconds",
				Help:    "Ingestion run duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
		),
	}
}
