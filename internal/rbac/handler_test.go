package rbac

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type decisionLog struct {
	allowed []bool
}

func (d *decisionLog) ObserveDecision(_ string, allowed bool) {
	d.allowed = append(d.allowed, allowed)
}

func newDecisionRouter(t *testing.T, recorder DecisionRecorder) http.Handler {
	t.Helper()
	c := testCatalog(t)
	h := NewHandler(nil, NewEngine(c), c, recorder)
	r := chi.NewRouter()
	r.Route("/apps/{appID}", h.MountRoutes)
	return r
}

func TestHandlerExpand(t *testing.T) {
	router := newDecisionRouter(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/apps/sales/expand", strings.NewReader(`{"permissions":["orders.*","customers.view"]}`))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var body struct {
		Permissions []string `json:"permissions"`
		Count       int      `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, []string{"customers.view", "orders.edit", "orders.view"}, body.Permissions)
	assert.Equal(t, 3, body.Count)
}

func TestHandlerCheckRecordsDecision(t *testing.T) {
	recorder := &decisionLog{}
	router := newDecisionRouter(t, recorder)

	for _, candidate := range []string{"customers.delete", "orders.view"} {
		req := httptest.NewRequest(http.MethodPost, "/apps/sales/check",
			strings.NewReader(`{"permissions":["customers.*"],"permission":"`+candidate+`"}`))
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		require.Equal(t, http.StatusOK, rr.Code)
	}

	assert.Equal(t, []bool{true, false}, recorder.allowed)
}

func TestHandlerRejectsMalformedGrants(t *testing.T) {
	router := newDecisionRouter(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/apps/sales/expand", strings.NewReader(`{"permissions":["customers"]}`))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "grant")
}

func TestHandlerUnknownApplication(t *testing.T) {
	router := newDecisionRouter(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/apps/nowhere/check", strings.NewReader(`{"permissions":[],"permission":"a.b"}`))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusNotFound, rr.Code)
}
