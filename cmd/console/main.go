package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"

	"github.com/rbac-console/rbac-console/internal/apiclient"
	"github.com/rbac-console/rbac-console/internal/app"
	"github.com/rbac-console/rbac-console/internal/auth"
	"github.com/rbac-console/rbac-console/internal/authctx"
	"github.com/rbac-console/rbac-console/internal/capability"
	"github.com/rbac-console/rbac-console/internal/catalog"
	"github.com/rbac-console/rbac-console/internal/dashboard"
	"github.com/rbac-console/rbac-console/internal/observability"
	"github.com/rbac-console/rbac-console/internal/permissions"
	"github.com/rbac-console/rbac-console/internal/rbac"
	"github.com/rbac-console/rbac-console/internal/resourceperms"
	"github.com/rbac-console/rbac-console/internal/roles"
	"github.com/rbac-console/rbac-console/internal/shared"
	"github.com/rbac-console/rbac-console/internal/users"
	"github.com/rbac-console/rbac-console/internal/view"
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
	slog.SetDefault(logger)

	var dbpool *pgxpool.Pool
	if cfg.PGDSN != "" {
		dbpool, err = pgxpool.New(ctx, cfg.PGDSN)
		if err != nil {
			logger.Error("connect postgres", slog.Any("error", err))
			os.Exit(1)
		}
		defer dbpool.Close()
	}

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Warn("redis ping", slog.Any("error", err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sessionManager := shared.NewSessionManager(redisClient, "console_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)
	tokenStore := shared.NewTokenStore(redisClient, cfg.SessionSecret, cfg.SessionTTL)
	idempotencyStore := shared.NewIdempotencyStore(redisClient, cfg.IdempotencyTTL)
	auditLogger := shared.NewAuditLogger(dbpool, logger)

	templates, err := view.NewEngine()
	if err != nil {
		logger.Error("parse templates", slog.Any("error", err))
		os.Exit(1)
	}

	metrics := observability.NewMetrics()
	clock := clockwork.NewRealClock()
	taxonomy := capability.Default()

	api := apiclient.New(apiclient.Config{
		BaseURL:    cfg.APIURL,
		Timeout:    cfg.APITimeout,
		Logging:    cfg.APILogging,
		RetryCount: cfg.APIRetryCount,
	}, logger, metrics)
	options := catalog.New(api, cfg.OptionsCacheTTL)

	keepers := authctx.NewKeepers(authctx.KeepersConfig{
		Clock:    clock,
		Interval: cfg.TokenRefreshInterval,
		Tokens:   tokenStore,
		Sessions: sessionManager,
		API:      api,
		Observer: metrics,
		Logger:   logger,
	})

	responder := view.Responder{Templates: templates, CSRF: csrfManager, Logger: logger}
	rbacMiddleware := rbac.Middleware{Forbidden: responder.Forbidden, Logger: logger}
	mutations := shared.Mutations{Idempotency: idempotencyStore, Audit: auditLogger, Logger: logger}

	authService := auth.NewService(api, tokenStore, keepers, auditLogger, clock, logger)
	usersService := users.NewService(api, options, mutations)
	rolesService := roles.NewService(api, options, mutations)
	permissionsService := permissions.NewService(api, options, mutations)
	resourcePermsService := resourceperms.NewService(api, mutations)

	router := app.NewRouter(app.RouterParams{
		Logger:         logger,
		Config:         cfg,
		SessionManager: sessionManager,
		CSRFManager:    csrfManager,
		Responder:      responder,
		Auth: authctx.Middleware{
			Taxonomy:      taxonomy,
			Tokens:        tokenStore,
			Bootstrapper:  authctx.NewBootstrapper(api, logger),
			Keepers:       keepers,
			Clock:         clock,
			ProfileMaxAge: cfg.TokenRefreshInterval,
			Logger:        logger,
		},
		Metrics: metrics,

		DashboardHandler:     dashboard.NewHandler(logger, responder, taxonomy),
		AuthHandler:          auth.NewHandler(logger, authService, responder, sessionManager),
		UsersHandler:         users.NewHandler(logger, usersService, responder, rbacMiddleware),
		RolesHandler:         roles.NewHandler(logger, rolesService, responder, rbacMiddleware),
		PermissionsHandler:   permissions.NewHandler(logger, permissionsService, responder, rbacMiddleware),
		ResourcePermsHandler: resourceperms.NewHandler(logger, resourcePermsService, responder),
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr), slog.String("api", cfg.APIURL))
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
	keepers.StopAll()
}
