package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	return rr.Body.String()
}

func TestMetricsRecordDecisionsAndMutations(t *testing.T) {
	metrics := NewMetrics()

	metrics.ObserveDecision("sales", true)
	metrics.ObserveDecision("sales", true)
	metrics.ObserveDecision("sales", false)
	metrics.ObserveRoleMutation("hr", "add")

	body := scrape(t, metrics)
	assert.Contains(t, body, `odyssey_rbac_decisions_total{app="sales",result="allowed"} 2`)
	assert.Contains(t, body, `odyssey_rbac_decisions_total{app="sales",result="denied"} 1`)
	assert.Contains(t, body, `odyssey_rbac_role_mutations_total{app="hr",op="add"} 1`)
}

func TestMetricsMiddlewareRecordsRequest(t *testing.T) {
	metrics := NewMetrics()

	handler := metrics.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	routeCtx := chi.NewRouteContext()
	routeCtx.RoutePatterns = append(routeCtx.RoutePatterns, "/test")
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusTeapot, rr.Code)

	body := scrape(t, metrics)
	assert.Contains(t, body, `odyssey_http_requests_total{code="418",route="/test"} 1`)
	assert.Contains(t, body, `odyssey_http_request_duration_seconds_bucket{route="/test"`)
}

func TestNilMetricsAreInert(t *testing.T) {
	var metrics *Metrics

	metrics.ObserveDecision("sales", true)
	metrics.ObserveRoleMutation("sales", "add")

	rr := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}
