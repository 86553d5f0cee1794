package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the delivery engine.
type Metrics struct {
	// Engine metrics
	EventsEmitted      prometheus.Counter
	DeliveriesQueued   prometheus.Counter
	DeliveriesTotal    *prometheus.CounterVec
	DeliveryDuration   prometheus.Histogram
	RetriesScheduled   prometheus.Counter
	QueueDepth         prometheus.Gauge
	RetryPending       prometheus.Gauge
	WebhooksRegistered prometheus.Gauge
	WebhooksActive     prometheus.Gauge

	// HTTP server metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// NewMetrics creates and registers all Prometheus metrics.
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		EventsEmitted: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "gatewatch_events_emitted_total",
				Help: "Total number of events emitted",
			},
		),
		DeliveriesQueued: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "gatewatch_deliveries_queued_total",
				Help: "Total number of deliveries created",
			},
		),
		DeliveriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gatewatch_deliveries_total",
				Help: "Total number of delivery attempts by outcome",
			},
			[]string{"status"},
		),
		DeliveryDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "gatewatch_delivery_duration_seconds",
				Help:    "Outbound webhook request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
		),
		RetriesScheduled: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "gatewatch_retries_scheduled_total",
				Help: "Total number of delivery retries scheduled",
			},
		),
		QueueDepth: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "gatewatch_queue_depth",
				Help: "Current number of deliveries in the active queue",
			},
		),
		RetryPending: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "gatewatch_retry_pending",
				Help: "Current number of deliveries waiting on a retry timer",
			},
		),
		WebhooksRegistered: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "gatewatch_webhooks_registered",
				Help: "Number of registered webhooks",
			},
		),
		WebhooksActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "gatewatch_webhooks_active",
				Help: "Number of active webhooks",
			},
		),
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gatewatch_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "gatewatch_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
	}

	registry.MustRegister(
		m.EventsEmitted,
		m.DeliveriesQueued,
		m.DeliveriesTotal,
		m.DeliveryDuration,
		m.RetriesScheduled,
		m.QueueDepth,
		m.RetryPending,
		m.WebhooksRegistered,
		m.WebhooksActive,
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
	)

	return m
}

// HTTPMiddleware instruments an HTTP handler with request metrics.
func (m *Metrics) HTTPMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &statusWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(rw.statusCode)
		m.HTTPRequestsTotal.WithLabelValues(r.Method, r.URL.Path, status).Inc()
		m.HTTPRequestDuration.WithLabelValues(r.Method, r.URL.Path).Observe(duration)
	})
}

type statusWriter struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusWriter) WriteHeader(code int) {
	w.statusCode = code
	w.ResponseWriter.WriteHeader(code)
}

// RegisterMetricsEndpoint registers the /metrics endpoint.
func RegisterMetricsEndpoint(mux *http.ServeMux, registry *prometheus.Registry) {
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
}
