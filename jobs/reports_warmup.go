package jobs

import (
	"context"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/comanda-pos/comanda/internal/jobs"
)

// ReportWarmer pre-builds cached reports.
type ReportWarmer interface {
	Warmup(ctx context.Context) error
}

// ReportsWarmupJob keeps the month-to-date financial report hot in the cache.
type ReportsWarmupJob struct {
	Reports ReportWarmer
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// Handle processes TaskReportsWarmup tasks.
func (j *ReportsWarmupJob) Handle(ctx context.Context, _ *asynq.Task) error {
	if j == nil || j.Reports == nil {
		return errors.New("reports warmup: handler not configured")
	}
	tracker := j.Metrics.Track(TaskReportsWarmup)
	if err := j.Reports.Warmup(ctx); err != nil {
		loggerOrDefault(j.Logger).Error("reports warmup failed", slog.Any("error", err))
		return tracker.End(err)
	}
	loggerOrDefault(j.Logger).Debug("reports warmed")
	return tracker.End(nil)
}
