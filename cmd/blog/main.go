package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/spf13/cobra"

	"github.com/aqanja/blog-api/cmd/blog/cli"
	"github.com/aqanja/blog-api/internal/app"
	"github.com/aqanja/blog-api/internal/auth"
	"github.com/aqanja/blog-api/internal/comments"
	"github.com/aqanja/blog-api/internal/observability"
	"github.com/aqanja/blog-api/internal/platform/cache"
	"github.com/aqanja/blog-api/internal/platform/db"
	"github.com/aqanja/blog-api/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "blog",
		Short:         "Blog comments API",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context())
		},
	}
	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Start the HTTP server",
			RunE: func(cmd *cobra.Command, args []string) error {
				return serve(cmd.Context())
			},
		},
		&cobra.Command{
			Use:   "migrate",
			Short: "Apply the bootstrap schema and exit",
			RunE: func(cmd *cobra.Command, args []string) error {
				return migrate(cmd.Context())
			},
		},
		newTokenCommand(),
		newJobsCommand(),
	)
	return root
}

func newTokenCommand() *cobra.Command {
	opts := cli.TokenOptions{}
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a signed credential for local testing",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Secret = os.Getenv("JWT_SECRET")
			opts.Stdout = cmd.OutOrStdout()
			opts.Stderr = cmd.ErrOrStderr()
			if code := cli.TokenCommand(opts); code != 0 {
				return fmt.Errorf("token: exit %d", code)
			}
			return nil
		},
	}
	cmd.Flags().Int64Var(&opts.UserID, "id", 0, "user id claim")
	cmd.Flags().StringVar(&opts.Username, "username", "", "username claim")
	cmd.Flags().BoolVar(&opts.Admin, "admin", false, "grant the is_admin claim")
	cmd.Flags().DurationVar(&opts.TTL, "ttl", auth.DefaultTokenTTL, "token lifetime")
	return cmd
}

func newJobsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "Background job helpers",
	}
	run := func(action string) func(cmd *cobra.Command, args []string) error {
		return func(cmd *cobra.Command, args []string) error {
			cfg, err := app.LoadConfig()
			if err != nil {
				return err
			}
			jobsCLI := cli.NewJobsCLI(redisOpts(cfg))
			defer func() { _ = jobsCLI.Close() }()
			opts := cli.JobsOptions{Action: action, Stdout: cmd.OutOrStdout(), Stderr: cmd.ErrOrStderr()}
			if len(args) > 0 {
				opts.Job = args[0]
			}
			if code := jobsCLI.JobsCommand(cmd.Context(), opts); code != 0 {
				return fmt.Errorf("jobs %s: exit %d", action, code)
			}
			return nil
		}
	}
	cmd.AddCommand(
		&cobra.Command{Use: "trigger <job>", Short: "Enqueue a job now", Args: cobra.ExactArgs(1), RunE: run("trigger")},
		&cobra.Command{Use: "stats", Short: "Print default queue statistics", Args: cobra.NoArgs, RunE: run("stats")},
	)
	return cmd
}

func redisOpts(cfg *app.Config) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB}
}

func migrate(ctx context.Context) error {
	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		return err
	}
	logger := app.NewLogger(cfg)
	if ctx == nil {
		ctx = context.Background()
	}
	pool, err := db.New(ctx, cfg.PGDSN, db.Options{MaxConns: cfg.PGMaxConns, MaxConnIdleTime: cfg.PGMaxIdleTime})
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		return err
	}
	defer pool.Close()
	if err := db.Migrate(ctx, pool); err != nil {
		logger.Error("apply schema", slog.Any("error", err))
		return err
	}
	logger.Info("schema applied")
	return nil
}

func serve(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		return err
	}

	logger := app.NewLogger(cfg)

	dbpool, err := db.New(ctx, cfg.PGDSN, db.Options{MaxConns: cfg.PGMaxConns, MaxConnIdleTime: cfg.PGMaxIdleTime})
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		return err
	}
	defer dbpool.Close()

	if cfg.AutoMigrate {
		if err := db.Migrate(ctx, dbpool); err != nil {
			logger.Error("apply schema", slog.Any("error", err))
			return err
		}
	}

	var listingCache *comments.Cache
	redisClient, err := cache.New(ctx, cache.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
	if err != nil {
		logger.Warn("redis unavailable, serving listings uncached", slog.Any("error", err))
	} else {
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}()
		listingCache = comments.NewCache(redisClient, cfg.CommentsCacheTTL, logger)
	}

	metrics := observability.NewMetrics()

	jobClient, err := jobs.NewClient(redisOpts(cfg))
	if err != nil {
		logger.Error("init job client", slog.Any("error", err))
		return err
	}
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()
	inspector := asynq.NewInspector(redisOpts(cfg))
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	tokens := auth.NewTokenService(cfg.JWTSecret, cfg.JWTTTL)
	guard := auth.NewMiddleware(tokens, logger)

	commentsService := comments.NewService(comments.NewRepository(dbpool), comments.ServiceConfig{
		Policy:   comments.Policy{AutoApprove: cfg.CommentsAutoApprove},
		Cache:    listingCache,
		Notifier: jobClient,
		Recorder: metrics.Moderation(),
		Logger:   logger,
	})

	router := app.NewRouter(app.RouterParams{
		Logger:          logger,
		Config:          cfg,
		DB:              dbpool,
		AuthHandler:     auth.NewHandler(logger, guard),
		CommentsHandler: comments.NewHandler(logger, commentsService, guard),
		JobHandler:      jobs.NewHandler(inspector, logger),
		Metrics:         metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr), slog.Bool("auto_approve", cfg.CommentsAutoApprove))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
		return err
	}
	return nil
}
