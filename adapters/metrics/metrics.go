// Package metrics provides Prometheus metrics for the chat relay
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the chat relay
type Metrics struct {
	registry *prometheus.Registry

	// HTTP request metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Provider metrics
	ProviderCallsTotal   *prometheus.CounterVec
	ProviderCallDuration *prometheus.HistogramVec

	// Stream metrics
	StreamsInFlight      prometheus.Gauge
	StreamFragmentsTotal prometheus.Counter
	StreamBytesTotal     prometheus.Counter
	StreamAbortsTotal    *prometheus.CounterVec
}

// NewMetrics creates the metrics on a private registry so that several
// servers can live in one process.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ragchat_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ragchat_http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),

		ProviderCallsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ragchat_provider_calls_total",
				Help: "Total number of provider invocations",
			},
			[]string{"provider", "mode", "outcome"},
		),
		ProviderCallDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ragchat_provider_call_duration_seconds",
				Help:    "Time until the provider reply completed",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"provider", "mode"},
		),

		StreamsInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "ragchat_streams_in_flight",
				Help: "Number of streamed replies currently being relayed",
			},
		),
		StreamFragmentsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "ragchat_stream_fragments_total",
				Help: "Total number of text fragments relayed",
			},
		),
		StreamBytesTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "ragchat_stream_bytes_total",
				Help: "Total number of text bytes relayed",
			},
		),
		StreamAbortsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ragchat_stream_aborts_total",
				Help: "Streams terminated after the body had started",
			},
			[]string{"cause"},
		),
	}
}

// RecordRequest records an HTTP request
func (m *Metrics) RecordRequest(method, path string, status int, duration time.Duration) {
	m.RequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordProviderCall records one provider invocation
func (m *Metrics) RecordProviderCall(provider, mode, outcome string, duration time.Duration) {
	m.ProviderCallsTotal.WithLabelValues(provider, mode, outcome).Inc()
	m.ProviderCallDuration.WithLabelValues(provider, mode).Observe(duration.Seconds())
}

// RecordStreamed adds relayed fragment totals
func (m *Metrics) RecordStreamed(fragments, bytes int) {
	m.StreamFragmentsTotal.Add(float64(fragments))
	m.StreamBytesTotal.Add(float64(bytes))
}

func (m *Metrics) RecordAbort(cause string) {
	m.StreamAbortsTotal.WithLabelValues(cause).Inc()
}

// Handler exposes the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
