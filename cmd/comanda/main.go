package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/comanda-pos/comanda/internal/app"
	"github.com/comanda-pos/comanda/internal/audit"
	"github.com/comanda-pos/comanda/internal/auth"
	"github.com/comanda-pos/comanda/internal/dining"
	"github.com/comanda-pos/comanda/internal/invoicing"
	"github.com/comanda-pos/comanda/internal/menu"
	"github.com/comanda-pos/comanda/internal/observability"
	"github.com/comanda-pos/comanda/internal/platform/cache"
	"github.com/comanda-pos/comanda/internal/platform/db"
	"github.com/comanda-pos/comanda/internal/rbac"
	"github.com/comanda-pos/comanda/internal/settings"
	"github.com/comanda-pos/comanda/internal/shared"
	"github.com/comanda-pos/comanda/internal/tables"
	"github.com/comanda-pos/comanda/internal/users"
	"github.com/comanda-pos/comanda/jobs"
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

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	if cfg.AutoMigrate {
		if err := db.Migrate(ctx, pool, logger); err != nil {
			logger.Error("migrate", slog.Any("error", err))
			os.Exit(1)
		}
	}

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

	loc := cfg.Location()
	sessionManager := shared.NewSessionManager(redisClient, "comanda_session", cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)
	tokens := auth.NewTokenIssuer(cfg.JWTSecret, cfg.JWTTTL)
	metrics := observability.NewMetrics()
	reportCache := cache.NewVersioned(redisClient, "reports", cfg.ReportCacheTTL)
	idempotency := shared.NewIdempotencyStore(pool)
	auditLogger := shared.NewAuditLogger(pool)

	authorizer := rbac.NewAuthorizer()
	rbacMiddleware := rbac.Middleware{Authorizer: authorizer, Logger: logger}

	authService := auth.NewService(auth.NewRepository(pool))
	authHandler := auth.NewHandler(logger, authService, sessionManager, csrfManager, tokens)

	menuService := menu.NewService(menu.NewRepository(pool))
	settingsService := settings.NewService(settings.NewRepository(pool), logger)
	tablesService := tables.NewService(tables.NewRepository(pool), logger)
	diningService := dining.NewService(dining.NewRepository(pool), menuService, cfg.BusinessDayCutoffHour, logger)
	usersService := users.NewService(users.NewRepository(pool), logger)
	usersService.SetAudit(auditLogger)

	invoicingService := invoicing.NewService(invoicing.NewRepository(pool), invoicing.Config{
		DueDays:    cfg.DefaultDueDays,
		CutoffHour: cfg.BusinessDayCutoffHour,
		Location:   loc,
	}, logger)
	invoicingService.SetProfiles(settingsService)
	invoicingService.SetReportCache(reportCache)
	invoicingService.SetMetrics(metrics)
	invoicingService.SetIdempotency(idempotency)
	invoicingService.SetAudit(auditLogger)

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
	jobClient := jobs.NewClient(redisOpts)
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()
	inspector := asynq.NewInspector(redisOpts)
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		Pool:               pool,
		SessionManager:     sessionManager,
		CSRFManager:        csrfManager,
		Tokens:             tokens,
		RBACMiddleware:     rbacMiddleware,
		Metrics:            metrics,
		AuthHandler:        authHandler,
		TablesHandler:      tables.NewHandler(logger, tablesService, rbacMiddleware),
		DiningHandler:      dining.NewHandler(logger, diningService, rbacMiddleware, loc),
		MenuHandler:        menu.NewHandler(logger, menuService, rbacMiddleware),
		InvoicingHandler:   invoicing.NewHandler(logger, invoicingService, rbacMiddleware, loc),
		SettingsHandler:    settings.NewHandler(logger, settingsService, rbacMiddleware),
		UsersHandler:       users.NewHandler(logger, usersService, rbacMiddleware),
		PermissionsHandler: rbac.NewPermissionsHandler(authorizer, rbacMiddleware),
		JobHandler:         jobs.NewHandler(inspector, logger),
		AuditHandler:       audit.NewHandler(logger, audit.NewService(audit.NewRepository(pool)), rbacMiddleware, loc),
		Menu:               menuService,
		ReportCache:        reportCache,
		Notifier:           jobClient,
		Alerts:             jobClient,
		Audit:              auditLogger,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr), slog.String("timezone", loc.String()))
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
	}
}
