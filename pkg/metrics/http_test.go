package metrics

import (
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestHTTPMetricsObserve(t *testing.T) {
	m := NewHTTPMetrics(prometheus.NewRegistry())
	m.Observe(http.MethodGet, "/api/v1/cart", http.StatusOK, 20*time.Millisecond)
	m.Observe(http.MethodGet, "/api/v1/cart", http.StatusOK, 40*time.Millisecond)
	m.Observe(http.MethodPost, "", http.StatusNotFound, time.Millisecond)

	require.Equal(t, 2.0, testutil.ToFloat64(m.requests.WithLabelValues("GET", "/api/v1/cart", "200")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("POST", "unknown", "404")))
	require.InDelta(t, 0.06, histogramSum(t, m.latency.WithLabelValues("GET", "/api/v1/cart")), 1e-9)
}

func TestHTTPMetricsNilSafe(t *testing.T) {
	var m *HTTPMetrics
	m.Observe(http.MethodGet, "/", http.StatusOK, time.Millisecond)
	NewHTTPMetrics(nil).Observe(http.MethodGet, "/", http.StatusOK, time.Millisecond)
}
