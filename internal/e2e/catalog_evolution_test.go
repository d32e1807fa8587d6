package e2e

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-rbac/internal/app"
	"github.com/odyssey-erp/odyssey-rbac/internal/catalog"
	jobmetrics "github.com/odyssey-erp/odyssey-rbac/internal/jobs"
	"github.com/odyssey-erp/odyssey-rbac/internal/observability"
	"github.com/odyssey-erp/odyssey-rbac/internal/rbac"
	"github.com/odyssey-erp/odyssey-rbac/internal/roles"
	"github.com/odyssey-erp/odyssey-rbac/internal/shared"
	"github.com/odyssey-erp/odyssey-rbac/jobs"
	_ "github.com/odyssey-erp/odyssey-rbac/testing"
)

type stack struct {
	server  *httptest.Server
	catalog *catalog.Catalog
	roles   *roles.Service
	repo    *roles.MemoryRepository
	engine  *rbac.Engine
}

func newStack(t *testing.T) *stack {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	logger := slog.New(slog.DiscardHandler)
	c := catalog.Default()
	engine := rbac.NewEngine(c)
	repo := roles.NewMemoryRepository()
	metrics := observability.NewMetrics()
	svc := roles.NewService(c, repo, engine,
		roles.WithLogger(logger),
		roles.WithRecorder(metrics),
		roles.WithLocker(shared.NewRedisLocker(client, 5*time.Second)),
	)
	require.NoError(t, svc.SeedCatalog(context.Background(), c))

	cfg := &app.Config{AppEnv: "test", RBACProtectSystemRoles: true, AppRequestTimeout: 5 * time.Second}
	router := app.NewRouter(app.RouterParams{
		Logger:         logger,
		Config:         cfg,
		CatalogHandler: catalog.NewHandler(c),
		RolesHandler:   roles.NewHandler(logger, svc, c, cfg.RBACProtectSystemRoles),
		RBACHandler:    rbac.NewHandler(logger, engine, c, metrics),
		JobHandler:     jobs.NewHandler(nil, logger),
		Metrics:        metrics,
	})
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return &stack{server: server, catalog: c, roles: svc, repo: repo, engine: engine}
}

func (s *stack) call(t *testing.T, method, path, body string, out any) int {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, s.server.URL+path, reader)
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := s.server.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil && resp.StatusCode < 300 {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

type permissionsBody struct {
	Permissions []string          `json:"permissions"`
	Count       int               `json:"count"`
	Stale       []rbac.StaleGrant `json:"stale"`
}

func TestCatalogEvolutionFlow(t *testing.T) {
	s := newStack(t)

	var exporter roles.Role
	require.Equal(t, http.StatusCreated, s.call(t, http.MethodPost, "/api/v1/apps/sales/roles",
		`{"name":"Exporter","permissions":["customers.view","customers.export"]}`, &exporter))

	var perms permissionsBody
	require.Equal(t, http.StatusOK, s.call(t, http.MethodGet, "/api/v1/apps/sales/roles/sales-admin/permissions", "", &perms))
	assert.Equal(t, 5, perms.Count)

	require.NoError(t, s.catalog.AddAction("sales", "customers", catalog.Action{ID: "archive", Name: "Archive"}))
	require.Equal(t, http.StatusOK, s.call(t, http.MethodGet, "/api/v1/apps/sales/roles/sales-admin/permissions", "", &perms))
	assert.Equal(t, 6, perms.Count, "wildcards pick up new actions")
	assert.Contains(t, perms.Permissions, "customers.archive")

	var decision struct {
		Allowed bool `json:"allowed"`
	}
	require.Equal(t, http.StatusOK, s.call(t, http.MethodPost, "/api/v1/apps/sales/check",
		`{"permissions":["customers.*"],"permission":"customers.archive"}`, &decision))
	assert.True(t, decision.Allowed)

	require.NoError(t, s.catalog.RemoveAction("sales", "customers", "export"))
	require.Equal(t, http.StatusOK, s.call(t, http.MethodGet, "/api/v1/apps/sales/roles/"+exporter.ID+"/permissions", "", &perms))
	assert.Equal(t, []string{"customers.export", "customers.view"}, perms.Permissions, "exact grants are kept as written")
	require.Len(t, perms.Stale, 1)
	assert.Equal(t, rbac.StaleGrant{Permission: "customers.export", Reason: rbac.ReasonUnknownAction}, perms.Stale[0])

	job := jobs.NewStaleGrantScanJob(s.catalog, s.repo, s.engine, slog.New(slog.DiscardHandler), jobmetrics.NewMetrics(prometheus.NewRegistry()))
	counts, err := job.Scan(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, 1, counts["sales"])
	assert.Zero(t, counts["hr"])
}

func TestSystemRolesSurviveTheAPI(t *testing.T) {
	s := newStack(t)

	assert.Equal(t, http.StatusConflict, s.call(t, http.MethodDelete, "/api/v1/apps/hr/roles/hr-admin", "", nil))
	assert.Equal(t, http.StatusConflict, s.call(t, http.MethodPatch, "/api/v1/apps/hr/roles/hr-admin", `{"isSystem":false}`, nil))

	allowed, err := s.roles.Can(context.Background(), "hr", "hr-admin", "payroll.approve")
	require.NoError(t, err)
	assert.Equal(t, s.engine.HasPermission("hr", rbac.MustParseSet("payroll.*"), "payroll.approve"), allowed)
}

func TestDeletedRoleIDsStayRetired(t *testing.T) {
	s := newStack(t)

	var role roles.Role
	require.Equal(t, http.StatusCreated, s.call(t, http.MethodPost, "/api/v1/apps/banking/roles", `{"name":"Teller"}`, &role))
	require.Equal(t, http.StatusNoContent, s.call(t, http.MethodDelete, "/api/v1/apps/banking/roles/"+role.ID, "", nil))
	assert.Equal(t, http.StatusNotFound, s.call(t, http.MethodGet, "/api/v1/apps/banking/roles/"+role.ID, "", nil))

	taken, err := s.repo.IDTaken(context.Background(), "banking", role.ID)
	require.NoError(t, err)
	assert.True(t, taken)
}
