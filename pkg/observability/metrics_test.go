package observability

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewMetrics(registry)

	m.EventsEmitted.Inc()
	m.DeliveriesTotal.WithLabelValues("delivered").Inc()
	m.QueueDepth.Set(3)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.EventsEmitted))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.DeliveriesTotal.WithLabelValues("delivered")))
	assert.Equal(t, float64(3), testutil.ToFloat64(m.QueueDepth))
}

func TestNewMetrics_SeparateRegistries(t *testing.T) {
	// Two engines in one process must not collide on registration.
	NewMetrics(prometheus.NewRegistry())
	assert.NotPanics(t, func() {
		NewMetrics(prometheus.NewRegistry())
	})
}

func TestHTTPMiddleware(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewMetrics(registry)

	handler := m.HTTPMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/webhooks", nil))

	require.Equal(t, http.StatusCreated, rec.Code)
	count := testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("POST", "/webhooks", "201"))
	assert.Equal(t, float64(1), count)
}

func TestRegisterMetricsEndpoint(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewMetrics(registry)
	m.EventsEmitted.Inc()

	serveMux := http.NewServeMux()
	RegisterMetricsEndpoint(serveMux, registry)

	rec := httptest.NewRecorder()
	serveMux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "gatewatch_events_emitted_total 1")
}
