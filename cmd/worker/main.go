package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/comanda-pos/comanda/internal/app"
	jobmetrics "github.com/comanda-pos/comanda/internal/jobs"
	"github.com/comanda-pos/comanda/internal/platform/cache"
	"github.com/comanda-pos/comanda/internal/platform/db"
	"github.com/comanda-pos/comanda/internal/reports"
	"github.com/comanda-pos/comanda/jobs"
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
	loc := cfg.Location()

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
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

	metrics := jobmetrics.NewMetrics(nil)

	reportService := reports.NewService(
		reports.NewRepository(pool),
		cache.NewVersioned(redisClient, "reports", cfg.ReportCacheTTL),
		reports.Config{CutoffHour: cfg.BusinessDayCutoffHour, Location: loc},
		logger,
	)

	notifyJob := &jobs.DeliveryNotifyJob{Logger: logger, Metrics: metrics, Location: loc}
	if cfg.SMSEnabled() {
		notifyJob.Sender = jobs.NewTwilioSender(jobs.TwilioConfig{
			AccountSID:  cfg.TwilioAccountSID,
			AuthToken:   cfg.TwilioAuthToken,
			FromNumber:  cfg.TwilioFromNumber,
			CountryCode: cfg.SMSCountryCode,
		})
	} else {
		logger.Warn("twilio credentials missing, customer sms disabled")
	}
	alertJob := &jobs.BudgetAlertJob{Logger: logger, Metrics: metrics}
	warmupJob := &jobs.ReportsWarmupJob{Reports: reportService, Logger: logger, Metrics: metrics}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts:   asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:      logger,
		Location:    loc,
		Concurrency: cfg.WorkerConcurrency,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskBudgetAlert, Handler: alertJob.Handle},
			{Type: jobs.TaskDeliveryNotify, Handler: notifyJob.Handle},
			{Type: jobs.TaskReportsWarmup, Handler: warmupJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: cfg.ReportWarmupCron, Task: jobs.NewReportsWarmupTask(), Options: []asynq.Option{asynq.MaxRetry(1), asynq.Queue(jobs.QueueDefault)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("worker started", slog.String("warmup_cron", cfg.ReportWarmupCron))
	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
