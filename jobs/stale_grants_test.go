package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-rbac/internal/catalog"
	jobmetrics "github.com/odyssey-erp/odyssey-rbac/internal/jobs"
	"github.com/odyssey-erp/odyssey-rbac/internal/rbac"
	"github.com/odyssey-erp/odyssey-rbac/internal/roles"
)

func newScanJob(t *testing.T) (*StaleGrantScanJob, *roles.Service) {
	t.Helper()
	c := catalog.Default()
	engine := rbac.NewEngine(c)
	svc := roles.NewService(c, roles.NewMemoryRepository(), engine)
	ctx := context.Background()
	require.NoError(t, svc.SeedCatalog(ctx, c))
	_, err := svc.AddRole(ctx, "sales", roles.RoleInput{Name: "Legacy", Permissions: rbac.MustParseSet("customers.fly", "ghost.*", "orders.view")})
	require.NoError(t, err)
	_, err = svc.AddRole(ctx, "hr", roles.RoleInput{Name: "Old payroll", Permissions: rbac.MustParseSet("payroll.print")})
	require.NoError(t, err)
	job := NewStaleGrantScanJob(c, svc, engine, nil, jobmetrics.NewMetrics(prometheus.NewRegistry()))
	return job, svc
}

func TestStaleGrantScanAllApplications(t *testing.T) {
	job, _ := newScanJob(t)

	counts, err := job.Scan(context.Background(), "")
	require.NoError(t, err)

	assert.Equal(t, 2, counts["sales"])
	assert.Equal(t, 1, counts["hr"])
	assert.Equal(t, 0, counts["platform"])
	assert.Len(t, counts, len(catalog.Default().ListApplications()))
}

func TestStaleGrantScanSingleApplication(t *testing.T) {
	job, _ := newScanJob(t)

	counts, err := job.Scan(context.Background(), "hr")
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"hr": 1}, counts)

	_, err = job.Scan(context.Background(), "nowhere")
	assert.True(t, errors.Is(err, asynq.SkipRetry))
}

func TestStaleGrantScanHandle(t *testing.T) {
	job, _ := newScanJob(t)

	task, err := NewStaleGrantScanTask("sales")
	require.NoError(t, err)
	assert.Equal(t, TaskStaleGrantScan, task.Type())
	require.NoError(t, job.Handle(context.Background(), task))

	err = job.Handle(context.Background(), asynq.NewTask(TaskStaleGrantScan, []byte("{")))
	assert.True(t, errors.Is(err, asynq.SkipRetry))
}

type fakeInspector struct {
	info *asynq.QueueInfo
	err  error
}

func (f fakeInspector) GetQueueInfo(string) (*asynq.QueueInfo, error) {
	return f.info, f.err
}

func TestJobsHealth(t *testing.T) {
	tests := []struct {
		name      string
		inspector QueueInspector
		status    int
		enabled   bool
	}{
		{name: "no redis", inspector: nil, status: http.StatusOK},
		{name: "queue info", inspector: fakeInspector{info: &asynq.QueueInfo{Queue: QueueDefault, Pending: 3}}, status: http.StatusOK, enabled: true},
		{name: "unreachable", inspector: fakeInspector{err: errors.New("dial tcp")}, status: http.StatusServiceUnavailable},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := chi.NewRouter()
			r.Route("/jobs", NewHandler(tc.inspector, nil).MountRoutes)
			rr := httptest.NewRecorder()
			r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/jobs/health", nil))

			require.Equal(t, tc.status, rr.Code)
			if tc.status != http.StatusOK {
				return
			}
			var body queueHealth
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
			assert.Equal(t, tc.enabled, body.Enabled)
			assert.Equal(t, QueueDefault, body.Queue)
		})
	}
}
