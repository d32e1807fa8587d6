package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/odyssey-erp/odyssey-rbac/cmd/odyssey/cli"
	"github.com/odyssey-erp/odyssey-rbac/internal/app"
	"github.com/odyssey-erp/odyssey-rbac/internal/catalog"
	"github.com/odyssey-erp/odyssey-rbac/internal/observability"
	"github.com/odyssey-erp/odyssey-rbac/internal/platform/cache"
	"github.com/odyssey-erp/odyssey-rbac/internal/platform/db"
	"github.com/odyssey-erp/odyssey-rbac/internal/rbac"
	"github.com/odyssey-erp/odyssey-rbac/internal/roles"
	"github.com/odyssey-erp/odyssey-rbac/internal/shared"
	"github.com/odyssey-erp/odyssey-rbac/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	if len(os.Args) > 1 {
		os.Exit(runCommand(os.Args[1], os.Args[2:]))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)
	if err := serve(ctx, cfg, logger); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("server stopped", slog.Any("error", err))
		os.Exit(1)
	}
}

func serve(ctx context.Context, cfg *app.Config, logger *slog.Logger) error {
	c, err := loadCatalog(cfg)
	if err != nil {
		return err
	}
	engine := rbac.NewEngine(c)
	metrics := observability.NewMetrics()

	var (
		repo        roles.Repository = roles.NewMemoryRepository()
		pool        *pgxpool.Pool
		redisClient *redis.Client
	)
	if cfg.UsePostgres() {
		pool, err = db.New(ctx, db.Config{DSN: cfg.PGDSN, MaxConns: cfg.PGMaxConns})
		if err != nil {
			return err
		}
		defer pool.Close()
		pgRepo := roles.NewPostgresRepository(pool)
		if err := pgRepo.Migrate(ctx); err != nil {
			return err
		}
		repo = pgRepo
	} else {
		logger.Warn("PG_DSN not set, roles are kept in memory")
	}

	opts := []roles.Option{roles.WithLogger(logger), roles.WithRecorder(metrics)}
	var jobHandler *jobs.Handler
	if cfg.UseRedis() {
		redisCfg := cache.Config{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB}
		redisClient, err = cache.New(ctx, redisCfg)
		if err != nil {
			return err
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}()
		opts = append(opts, roles.WithLocker(shared.NewRedisLocker(redisClient, cfg.RoleLockTTL)))
		inspector := asynq.NewInspector(redisCfg.AsynqOpt())
		defer inspector.Close()
		jobHandler = jobs.NewHandler(inspector, logger)
	} else {
		jobHandler = jobs.NewHandler(nil, logger)
	}

	service := roles.NewService(c, repo, engine, opts...)
	if err := service.SeedCatalog(ctx, c); err != nil {
		return fmt.Errorf("seed roles: %w", err)
	}

	router := app.NewRouter(app.RouterParams{
		Logger:         logger,
		Config:         cfg,
		CatalogHandler: catalog.NewHandler(c),
		RolesHandler:   roles.NewHandler(logger, service, c, cfg.RBACProtectSystemRoles),
		RBACHandler:    rbac.NewHandler(logger, engine, c, metrics),
		JobHandler:     jobHandler,
		Metrics:        metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr), slog.Int("applications", len(c.ListApplications())))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func loadCatalog(cfg *app.Config) (*catalog.Catalog, error) {
	if cfg.CatalogFile == "" {
		return catalog.Default(), nil
	}
	return catalog.LoadFile(cfg.CatalogFile)
}

func runCommand(name string, args []string) int {
	switch name {
	case "catalog":
		return runCatalogCommand(args)
	case "jobs":
		return runJobsCommand(args)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q (want catalog or jobs)\n", name)
		return 1
	}
}

func runCatalogCommand(args []string) int {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "usage: odyssey catalog validate --file PATH [--json] | odyssey catalog export")
		return 1
	}
	switch args[0] {
	case "validate":
		fs := flag.NewFlagSet("catalog validate", flag.ContinueOnError)
		path := fs.String("file", os.Getenv("CATALOG_FILE"), "catalog YAML file")
		asJSON := fs.Bool("json", false, "print a JSON summary")
		if err := fs.Parse(args[1:]); err != nil {
			return 1
		}
		return cli.ValidateCatalogCommand(cli.CatalogValidateOptions{Path: *path, JSONOutput: *asJSON})
	case "export":
		return cli.ExportCatalogCommand(os.Stdout)
	default:
		fmt.Fprintf(os.Stderr, "unknown catalog command %q\n", args[0])
		return 1
	}
}

func runJobsCommand(args []string) int {
	cfg, err := app.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		return 1
	}
	if !cfg.UseRedis() {
		fmt.Fprintln(os.Stderr, "jobs: REDIS_ADDR is not set")
		return 1
	}
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "usage: odyssey jobs trigger [--app ID] | odyssey jobs stats")
		return 1
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	jobsCLI := cli.NewJobsCLI(cache.Config{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB}.AsynqOpt())
	defer jobsCLI.Close()

	switch args[0] {
	case "trigger":
		fs := flag.NewFlagSet("jobs trigger", flag.ContinueOnError)
		appID := fs.String("app", "", "application to scan; empty scans all")
		if err := fs.Parse(args[1:]); err != nil {
			return 1
		}
		info, err := jobsCLI.Trigger(ctx, jobs.TaskStaleGrantScan, *appID)
		if err != nil {
			fmt.Fprintf(os.Stderr, "jobs trigger: %v\n", err)
			return 1
		}
		fmt.Printf("enqueued %s id=%s queue=%s\n", info.Type, info.ID, info.Queue)
	case "stats":
		stats, err := jobsCLI.InspectQueue(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "jobs stats: %v\n", err)
			return 1
		}
		fmt.Printf("queue=%s pending=%d active=%d scheduled=%d retry=%d\n", stats.Queue, stats.Pending, stats.Active, stats.Scheduled, stats.Retry)
	default:
		fmt.Fprintf(os.Stderr, "unknown jobs command %q\n", args[0])
		return 1
	}
	return 0
}
