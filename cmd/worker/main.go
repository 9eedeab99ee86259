package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/aqanja/blog-api/internal/app"
	"github.com/aqanja/blog-api/internal/comments"
	jobmetrics "github.com/aqanja/blog-api/internal/jobs"
	"github.com/aqanja/blog-api/internal/platform/db"
	"github.com/aqanja/blog-api/jobs"
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

	pool, err := db.New(ctx, cfg.PGDSN, db.Options{MaxConns: cfg.PGMaxConns, MaxConnIdleTime: cfg.PGMaxIdleTime})
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	commentsService := comments.NewService(comments.NewRepository(pool), comments.ServiceConfig{
		Policy: comments.Policy{AutoApprove: cfg.CommentsAutoApprove},
		Logger: logger,
	})
	moderation := jobs.NewModerationJobs(commentsService, logger, jobmetrics.NewMetrics(nil))

	digestTask, err := jobs.NewPendingDigestTask(jobs.PendingDigestPayload{Threshold: 1})
	if err != nil {
		logger.Error("build digest task", slog.Any("error", err))
		os.Exit(1)
	}

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB}
	var cron []jobs.CronRegistration
	if cfg.PendingDigestCron != "" {
		cron = append(cron, jobs.CronRegistration{Spec: cfg.PendingDigestCron, Task: digestTask, Options: []asynq.Option{asynq.MaxRetry(3)}})
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts:   redisOpts,
		Logger:      logger,
		Concurrency: cfg.WorkerConcurrency,
		Handlers:    moderation.Handlers(),
		Cron:        cron,
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("starting worker", slog.String("digest_cron", cfg.PendingDigestCron))
	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
