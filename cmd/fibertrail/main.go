package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/fibertrail/fibertrail/internal/app"
	"github.com/fibertrail/fibertrail/internal/auth"
	"github.com/fibertrail/fibertrail/internal/notify"
	"github.com/fibertrail/fibertrail/internal/observability"
	"github.com/fibertrail/fibertrail/internal/platform/cache"
	"github.com/fibertrail/fibertrail/internal/platform/db"
	"github.com/fibertrail/fibertrail/internal/project"
	"github.com/fibertrail/fibertrail/internal/shared"
	"github.com/fibertrail/fibertrail/internal/users"
	"github.com/fibertrail/fibertrail/jobs"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	var countCache *notify.CountCache
	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis unavailable", slog.Any("error", err))
	} else {
		countCache = notify.NewCountCache(redisClient)
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}()
	}

	metrics := observability.NewMetrics()

	userRepo := users.NewRepository(pool)
	userService := users.NewService(userRepo)
	userHandler := users.NewHandler(logger, userService)

	authService := auth.NewService(userRepo, cfg.JWTSecret)
	authHandler := auth.NewHandler(logger, authService)

	var jobClient *jobs.Client
	var mailer notify.Mailer
	if cfg.EnableEmailNotifications {
		jobClient, err = jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
		if err != nil {
			logger.Warn("job client unavailable, email notifications disabled", slog.Any("error", err))
		} else {
			defer func() {
				if err := jobClient.Close(); err != nil {
					logger.Warn("job client close", slog.Any("error", err))
				}
			}()
			mailer = jobClient
		}
	}

	notifyRepo := notify.NewRepository(pool)
	dispatcher := notify.NewDispatcher(notifyRepo, mailer, countCache, logger, cfg.FrontendURL)
	notifyHandler := notify.NewHandler(logger, notifyRepo, countCache)

	auditLogger := shared.NewAuditLogger(pool, logger)

	projectRepo := project.NewRepository(pool)
	projectService := project.NewService(projectRepo, userService, dispatcher, auditLogger, logger)
	projectService.SetObserver(metrics)
	projectHandler := project.NewHandler(logger, projectService)

	jobHandler := jobs.NewHandler(asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr}), logger)

	router := app.NewRouter(app.RouterParams{
		Logger:         logger,
		Config:         cfg,
		AuthService:    authService,
		AuthHandler:    authHandler,
		ProjectHandler: projectHandler,
		UsersHandler:   userHandler,
		NotifyHandler:  notifyHandler,
		JobHandler:     jobHandler,
		Metrics:        metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
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
	}
}
