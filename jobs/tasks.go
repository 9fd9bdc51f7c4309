package jobs

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/shopspring/decimal"

	"github.com/comanda-pos/comanda/internal/delivery"
	"github.com/comanda-pos/comanda/internal/expenses"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// QueueNotifications carries customer facing messages.
	QueueNotifications = "notifications"

	// TaskBudgetAlert reports a budget crossing its alert threshold.
	TaskBudgetAlert = "budget:alert"
	// TaskDeliveryNotify texts the customer when the courier leaves.
	TaskDeliveryNotify = "delivery:notify_customer"
	// TaskReportsWarmup pre-builds the month-to-date financial report.
	TaskReportsWarmup = "reports:warmup"
)

// taskNamespace scopes deterministic task IDs.
var taskNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("comanda/jobs"))

// BudgetAlertPayload describes a budget alert.
type BudgetAlertPayload struct {
	BudgetID     int64           `json:"budget_id"`
	CategoryName string          `json:"category_name"`
	Month        int             `json:"month"`
	Year         int             `json:"year"`
	Limit        decimal.Decimal `json:"limit"`
	Consumed     decimal.Decimal `json:"consumed"`
	Percentage   decimal.Decimal `json:"percentage"`
	Status       string          `json:"status"`
	Message      string          `json:"message"`
}

// BudgetAlertFrom converts a domain alert into its task payload.
func BudgetAlertFrom(a expenses.BudgetAlert) BudgetAlertPayload {
	return BudgetAlertPayload{
		BudgetID:     a.BudgetID,
		CategoryName: a.CategoryName,
		Month:        a.Month,
		Year:         a.Year,
		Limit:        a.Limit,
		Consumed:     a.Consumed,
		Percentage:   a.Percentage,
		Status:       string(a.Status),
		Message:      a.Message,
	}
}

// NewBudgetAlertTask constructs a budget alert task. Identical alerts share a task ID.
func NewBudgetAlertTask(p BudgetAlertPayload) (*asynq.Task, []asynq.Option, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, nil, err
	}
	id := uuid.NewSHA1(taskNamespace, []byte(fmt.Sprintf("budget:%d:%s:%s", p.BudgetID, p.Status, p.Consumed.String())))
	opts := []asynq.Option{asynq.Queue(QueueDefault), asynq.TaskID(id.String()), asynq.MaxRetry(3)}
	return asynq.NewTask(TaskBudgetAlert, data), opts, nil
}

// DeliveryNotifyPayload describes an en-route SMS.
type DeliveryNotifyPayload struct {
	DeliveryID    int64      `json:"delivery_id"`
	CustomerName  string     `json:"customer_name"`
	CustomerPhone string     `json:"customer_phone"`
	CourierName   string     `json:"courier_name"`
	EstimatedAt   *time.Time `json:"estimated_at,omitempty"`
}

// DeliveryNotifyFrom converts an en-route notice into its task payload.
func DeliveryNotifyFrom(n delivery.EnRouteNotice) DeliveryNotifyPayload {
	return DeliveryNotifyPayload{
		DeliveryID:    n.DeliveryID,
		CustomerName:  n.CustomerName,
		CustomerPhone: n.CustomerPhone,
		CourierName:   n.CourierName,
		EstimatedAt:   n.EstimatedAt,
	}
}

// NewDeliveryNotifyTask constructs the customer SMS task. One message per delivery.
func NewDeliveryNotifyTask(p DeliveryNotifyPayload) (*asynq.Task, []asynq.Option, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, nil, err
	}
	id := uuid.NewSHA1(taskNamespace, []byte(fmt.Sprintf("delivery:%d:en_camino", p.DeliveryID)))
	opts := []asynq.Option{
		asynq.Queue(QueueNotifications),
		asynq.TaskID(id.String()),
		asynq.MaxRetry(5),
		asynq.Timeout(30 * time.Second),
	}
	return asynq.NewTask(TaskDeliveryNotify, data), opts, nil
}

// NewReportsWarmupTask constructs the report warmup task.
func NewReportsWarmupTask() *asynq.Task {
	return asynq.NewTask(TaskReportsWarmup, nil)
}
