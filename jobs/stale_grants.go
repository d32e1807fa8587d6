package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"

	"github.com/odyssey-erp/odyssey-rbac/internal/catalog"
	jobmetrics "github.com/odyssey-erp/odyssey-rbac/internal/jobs"
	"github.com/odyssey-erp/odyssey-rbac/internal/rbac"
	"github.com/odyssey-erp/odyssey-rbac/internal/roles"
)

// scanConcurrency bounds how many applications are scanned at once.
const scanConcurrency = 4

// RoleLister reads the roles of an application.
type RoleLister interface {
	ListRoles(ctx context.Context, appID string) ([]roles.Role, error)
}

// StaleGrantScanJob walks every role and reports grants that point at
// modules or actions the catalog does not define.
type StaleGrantScanJob struct {
	Catalog *catalog.Catalog
	Roles   RoleLister
	Engine  *rbac.Engine
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewStaleGrantScanJob initialises the stale grant scan handler.
func NewStaleGrantScanJob(c *catalog.Catalog, lister RoleLister, engine *rbac.Engine, logger *slog.Logger, metrics *jobmetrics.Metrics) *StaleGrantScanJob {
	return &StaleGrantScanJob{Catalog: c, Roles: lister, Engine: engine, Logger: logger, Metrics: metrics}
}

// Handle executes the scan for the task payload.
func (j *StaleGrantScanJob) Handle(ctx context.Context, t *asynq.Task) (err error) {
	if j == nil {
		return errors.New("stale grant scan: handler not configured")
	}
	var payload StaleGrantScanPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	tracker := j.Metrics.Track(TaskStaleGrantScan)
	defer func() {
		err = tracker.End(err)
	}()

	start := time.Now()
	counts, err := j.Scan(ctx, payload.AppID)
	if err != nil {
		j.logger().Error("stale grant scan failed", slog.String("app", payload.AppID), slog.Any("error", err))
		return err
	}
	total := 0
	for _, n := range counts {
		total += n
	}
	j.logger().Info("completed stale grant scan",
		slog.Int("applications", len(counts)),
		slog.Int("stale", total),
		slog.Duration("duration", time.Since(start)),
	)
	return nil
}

// Scan returns the number of stale grants per application. An empty appID
// scans every application in the catalog.
func (j *StaleGrantScanJob) Scan(ctx context.Context, appID string) (map[string]int, error) {
	apps := []string{appID}
	if appID == "" {
		apps = apps[:0]
		for _, app := range j.Catalog.ListApplications() {
			apps = append(apps, app.ID)
		}
	} else if !j.Catalog.HasApplication(appID) {
		return nil, fmt.Errorf("stale grant scan: unknown application %s: %w", appID, asynq.SkipRetry)
	}

	var (
		mu     sync.Mutex
		counts = make(map[string]int, len(apps))
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(scanConcurrency)
	for _, id := range apps {
		g.Go(func() error {
			n, err := j.scanApplication(gctx, id)
			if err != nil {
				return fmt.Errorf("stale grant scan %s: %w", id, err)
			}
			mu.Lock()
			counts[id] = n
			mu.Unlock()
			j.Metrics.SetStaleGrants(id, n)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return counts, nil
}

func (j *StaleGrantScanJob) scanApplication(ctx context.Context, appID string) (int, error) {
	list, err := j.Roles.ListRoles(ctx, appID)
	if err != nil {
		return 0, err
	}
	sort.Slice(list, func(a, b int) bool { return list[a].ID < list[b].ID })
	total := 0
	for _, role := range list {
		stale := j.Engine.StaleGrants(appID, role.Permissions)
		for _, s := range stale {
			j.logger().Warn("stale grant",
				slog.String("app", appID),
				slog.String("role", role.ID),
				slog.String("permission", s.Permission),
				slog.String("reason", s.Reason),
			)
		}
		total += len(stale)
	}
	return total, nil
}

func (j *StaleGrantScanJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}
