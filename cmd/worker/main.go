package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/odyssey-rbac/internal/app"
	"github.com/odyssey-erp/odyssey-rbac/internal/catalog"
	jobmetrics "github.com/odyssey-erp/odyssey-rbac/internal/jobs"
	"github.com/odyssey-erp/odyssey-rbac/internal/platform/cache"
	"github.com/odyssey-erp/odyssey-rbac/internal/platform/db"
	"github.com/odyssey-erp/odyssey-rbac/internal/rbac"
	"github.com/odyssey-erp/odyssey-rbac/internal/roles"
	"github.com/odyssey-erp/odyssey-rbac/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)
	if !cfg.UseRedis() {
		logger.Error("worker requires REDIS_ADDR")
		os.Exit(1)
	}

	c := catalog.Default()
	if cfg.CatalogFile != "" {
		c, err = catalog.LoadFile(cfg.CatalogFile)
		if err != nil {
			logger.Error("load catalog", slog.Any("error", err))
			os.Exit(1)
		}
	}
	engine := rbac.NewEngine(c)

	var repo roles.Repository
	if cfg.UsePostgres() {
		pool, err := db.New(ctx, db.Config{DSN: cfg.PGDSN, MaxConns: cfg.PGMaxConns})
		if err != nil {
			logger.Error("connect database", slog.Any("error", err))
			os.Exit(1)
		}
		defer pool.Close()
		pgRepo := roles.NewPostgresRepository(pool)
		if err := pgRepo.Migrate(ctx); err != nil {
			logger.Error("migrate roles", slog.Any("error", err))
			os.Exit(1)
		}
		repo = pgRepo
	} else {
		logger.Warn("PG_DSN not set, scanning seeded roles only")
		mem := roles.NewMemoryRepository()
		if err := roles.NewService(c, mem, engine).SeedCatalog(ctx, c); err != nil {
			logger.Error("seed roles", slog.Any("error", err))
			os.Exit(1)
		}
		repo = mem
	}

	scanTask, err := jobs.NewStaleGrantScanTask("")
	if err != nil {
		logger.Error("build scan task", slog.Any("error", err))
		os.Exit(1)
	}

	scanJob := jobs.NewStaleGrantScanJob(c, repo, engine, logger, jobmetrics.NewMetrics(nil))
	redisOpts := cache.Config{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB}.AsynqOpt()

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts:   redisOpts,
		Logger:      logger,
		Concurrency: cfg.WorkerConcurrency,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskStaleGrantScan, Handler: scanJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{
				Spec:    cfg.StaleGrantScanCron,
				Task:    scanTask,
				Options: []asynq.Option{asynq.Queue(jobs.QueueDefault)},
			},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("worker started", slog.Int("concurrency", cfg.WorkerConcurrency), slog.String("cron", cfg.StaleGrantScanCron))
	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker stopped", slog.Any("error", err))
		os.Exit(1)
	}
}
