package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/comanda-pos/comanda/internal/jobs"
)

// BudgetAlertJob records budget alerts raised by expenses.
type BudgetAlertJob struct {
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// Handle processes TaskBudgetAlert tasks.
func (j *BudgetAlertJob) Handle(ctx context.Context, t *asynq.Task) error {
	var payload BudgetAlertPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("budget alert payload: %v: %w", err, asynq.SkipRetry)
	}
	tracker := j.Metrics.Track(TaskBudgetAlert)
	loggerOrDefault(j.Logger).Warn("budget alert",
		slog.Int64("budget_id", payload.BudgetID),
		slog.String("category", payload.CategoryName),
		slog.String("status", payload.Status),
		slog.String("percentage", payload.Percentage.String()),
		slog.String("consumed", payload.Consumed.String()),
		slog.String("limit", payload.Limit.String()),
		slog.String("message", payload.Message))
	j.Metrics.Notification("budget", "logged")
	return tracker.End(nil)
}

// DeliveryNotifyJob texts customers when their delivery is on the way.
type DeliveryNotifyJob struct {
	Sender   SMSSender
	Logger   *slog.Logger
	Metrics  *jobmetrics.Metrics
	Location *time.Location
}

// Handle processes TaskDeliveryNotify tasks. Without a sender the message is skipped.
func (j *DeliveryNotifyJob) Handle(ctx context.Context, t *asynq.Task) error {
	var payload DeliveryNotifyPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("delivery notify payload: %v: %w", err, asynq.SkipRetry)
	}
	logger := loggerOrDefault(j.Logger).With(slog.Int64("delivery_id", payload.DeliveryID))
	if j.Sender == nil {
		logger.Info("sms disabled, en-route notice skipped")
		j.Metrics.Notification("sms", "skipped")
		return nil
	}
	if strings.TrimSpace(payload.CustomerPhone) == "" {
		j.Metrics.Notification("sms", "skipped")
		return fmt.Errorf("delivery %d has no phone: %w", payload.DeliveryID, asynq.SkipRetry)
	}

	tracker := j.Metrics.Track(TaskDeliveryNotify)
	err := j.Sender.Send(ctx, payload.CustomerPhone, j.message(payload))
	if errors.Is(err, ErrInvalidPhone) {
		j.Metrics.Notification("sms", "failed")
		logger.Warn("en-route sms rejected", slog.String("phone", payload.CustomerPhone))
		return tracker.End(fmt.Errorf("%v: %w", err, asynq.SkipRetry))
	}
	if err != nil {
		j.Metrics.Notification("sms", "failed")
		logger.Error("en-route sms failed", slog.Any("error", err))
		return tracker.End(err)
	}
	j.Metrics.Notification("sms", "sent")
	logger.Info("en-route sms sent")
	return tracker.End(nil)
}

func (j *DeliveryNotifyJob) message(p DeliveryNotifyPayload) string {
	name := strings.TrimSpace(p.CustomerName)
	if first, _, ok := strings.Cut(name, " "); ok {
		name = first
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Hola %s, tu pedido #%d va en camino", name, p.DeliveryID)
	if p.CourierName != "" {
		fmt.Fprintf(&b, " con %s", p.CourierName)
	}
	if p.EstimatedAt != nil {
		loc := j.Location
		if loc == nil {
			loc = time.Local
		}
		fmt.Fprintf(&b, ". Llegada estimada: %s", p.EstimatedAt.In(loc).Format("15:04"))
	}
	b.WriteString(".")
	return b.String()
}

func loggerOrDefault(l *slog.Logger) *slog.Logger {
	if l == nil {
		return slog.Default()
	}
	return l
}
