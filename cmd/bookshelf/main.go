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

	"github.com/bookshelf-cms/bookshelf/internal/app"
	"github.com/bookshelf-cms/bookshelf/internal/auth"
	"github.com/bookshelf-cms/bookshelf/internal/books"
	"github.com/bookshelf-cms/bookshelf/internal/observability"
	"github.com/bookshelf-cms/bookshelf/internal/platform/cache"
	"github.com/bookshelf-cms/bookshelf/internal/platform/db"
	"github.com/bookshelf-cms/bookshelf/internal/rbac"
	"github.com/bookshelf-cms/bookshelf/internal/roles"
	"github.com/bookshelf-cms/bookshelf/internal/shared"
	"github.com/bookshelf-cms/bookshelf/internal/users"
	"github.com/bookshelf-cms/bookshelf/internal/view"
	"github.com/bookshelf-cms/bookshelf/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
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

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sessionManager := shared.NewSessionManager(redisClient, "bookshelf_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)

	templates, err := view.NewEngine()
	if err != nil {
		logger.Error("parse templates", slog.Any("error", err))
		os.Exit(1)
	}

	auditLogger := shared.NewAuditLogger(pool)

	rbacRepo := rbac.NewRepository(pool)
	rbacService := rbac.NewService(rbacRepo, auditLogger, logger)
	rbacMiddleware := rbac.Middleware{Checker: rbacService, Logger: logger}

	authRepo := auth.NewRepository(pool)
	authService := auth.NewService(authRepo, auditLogger, logger)
	authHandler := auth.NewHandler(logger, authService, templates, sessionManager, csrfManager)

	booksRepo := books.NewRepository(pool)
	booksService := books.NewService(booksRepo)
	booksHandler := books.NewHandler(logger, booksService, templates, csrfManager, rbacMiddleware)

	rolesHandler := roles.NewHandler(logger, rbacService, templates, csrfManager, rbacMiddleware)
	usersHandler := users.NewHandler(logger, rbacService, templates, csrfManager, rbacMiddleware)
	adminHandler := rbac.NewAdminHandler(logger, rbacService, templates, csrfManager, rbacMiddleware)

	metrics := observability.NewMetrics()

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobsHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:         logger,
		Config:         cfg,
		Templates:      templates,
		SessionManager: sessionManager,
		CSRFManager:    csrfManager,
		Identity:       auth.Identity(authService, logger),
		AuthHandler:    authHandler,
		BooksHandler:   booksHandler,
		RolesHandler:   rolesHandler,
		UsersHandler:   usersHandler,
		AdminHandler:   adminHandler,
		JobsHandler:    jobsHandler,
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
