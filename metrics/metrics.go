// Package metrics registers the proxy's Prometheus counters and histograms,
// served at /metrics via promhttp in main.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	RequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "messagebridge_requests_total",
		Help: "Total number of proxied Messages API requests, by target model and streaming mode.",
	}, []string{"model", "stream"})

	UpstreamErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "messagebridge_upstream_errors_total",
		Help: "Total number of non-2xx responses from the upstream, by status code.",
	}, []string{"status"})

	StreamDurationSeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "messagebridge_stream_duration_seconds",
		Help:    "Duration of a streaming response from first to last SSE event.",
		Buckets: prometheus.DefBuckets,
	}, []string{"model"})
)

func init() {
	prometheus.MustRegister(RequestsTotal, UpstreamErrorsTotal, StreamDurationSeconds)
}
