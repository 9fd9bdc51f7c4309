package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/comanda-pos/comanda/internal/delivery"
	"github.com/comanda-pos/comanda/internal/expenses"
	jobmetrics "github.com/comanda-pos/comanda/internal/jobs"
)

type fakeEnqueuer struct {
	tasks []*asynq.Task
	opts  [][]asynq.Option
	err   error
}

func (f *fakeEnqueuer) EnqueueContext(_ context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.tasks = append(f.tasks, task)
	f.opts = append(f.opts, opts)
	return &asynq.TaskInfo{}, nil
}

func (f *fakeEnqueuer) Close() error { return nil }

type fakeSender struct {
	to, body string
	calls    int
	err      error
}

func (f *fakeSender) Send(_ context.Context, to, body string) error {
	f.calls++
	f.to, f.body = to, body
	return f.err
}

func TestClientBudgetAlertEnqueues(t *testing.T) {
	fake := &fakeEnqueuer{}
	client := &Client{client: fake}

	err := client.BudgetAlert(context.Background(), expenses.BudgetAlert{
		BudgetID:     4,
		CategoryName: "Insumos",
		Month:        3,
		Year:         2025,
		Limit:        decimal.NewFromInt(2000000),
		Consumed:     decimal.NewFromInt(1700000),
		Percentage:   decimal.NewFromInt(85),
		Status:       expenses.BudgetAlerting,
		Message:      "Insumos al 85%",
	})
	require.NoError(t, err)
	require.Len(t, fake.tasks, 1)
	assert.Equal(t, TaskBudgetAlert, fake.tasks[0].Type())

	var payload BudgetAlertPayload
	require.NoError(t, json.Unmarshal(fake.tasks[0].Payload(), &payload))
	assert.Equal(t, int64(4), payload.BudgetID)
	assert.Equal(t, "alerta", payload.Status)
	assert.True(t, payload.Consumed.Equal(decimal.NewFromInt(1700000)))
}

func TestClientIgnoresDuplicateTask(t *testing.T) {
	client := &Client{client: &fakeEnqueuer{err: asynq.ErrTaskIDConflict}}
	err := client.CustomerEnRoute(context.Background(), delivery.EnRouteNotice{DeliveryID: 9})
	assert.NoError(t, err)

	client = &Client{client: &fakeEnqueuer{err: errors.New("redis down")}}
	err = client.CustomerEnRoute(context.Background(), delivery.EnRouteNotice{DeliveryID: 9})
	assert.EqualError(t, err, "redis down")
}

func TestTaskIDsAreDeterministic(t *testing.T) {
	p := DeliveryNotifyPayload{DeliveryID: 12}
	_, first, err := NewDeliveryNotifyTask(p)
	require.NoError(t, err)
	_, second, err := NewDeliveryNotifyTask(p)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	_, other, err := NewDeliveryNotifyTask(DeliveryNotifyPayload{DeliveryID: 13})
	require.NoError(t, err)
	assert.NotEqual(t, first, other)
}

func TestNormalizePhone(t *testing.T) {
	cases := []struct {
		name    string
		raw     string
		code    string
		want    string
		wantErr bool
	}{
		{name: "local mobile", raw: "300 123 4567", code: "+57", want: "+573001234567"},
		{name: "already international", raw: "+1 (415) 555-0100", code: "+57", want: "+14155550100"},
		{name: "default country", raw: "3001234567", want: "+573001234567"},
		{name: "code without plus", raw: "5512345678", code: "52", want: "+525512345678"},
		{name: "too short", raw: "12345", wantErr: true},
		{name: "empty", raw: "  ", wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := NormalizePhone(tc.raw, tc.code)
			if tc.wantErr {
				assert.ErrorIs(t, err, ErrInvalidPhone)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func deliveryTask(t *testing.T, p DeliveryNotifyPayload) *asynq.Task {
	t.Helper()
	task, _, err := NewDeliveryNotifyTask(p)
	require.NoError(t, err)
	return task
}

func TestDeliveryNotifyJobSends(t *testing.T) {
	metrics := jobmetrics.NewMetrics(prometheus.NewRegistry())
	sender := &fakeSender{}
	eta := time.Date(2025, 3, 14, 20, 45, 0, 0, time.UTC)
	job := &DeliveryNotifyJob{Sender: sender, Metrics: metrics, Location: time.UTC}

	err := job.Handle(context.Background(), deliveryTask(t, DeliveryNotifyPayload{
		DeliveryID:    31,
		CustomerName:  "Laura Gómez",
		CustomerPhone: "3001234567",
		CourierName:   "Andrés",
		EstimatedAt:   &eta,
	}))
	require.NoError(t, err)
	assert.Equal(t, 1, sender.calls)
	assert.Equal(t, "3001234567", sender.to)
	assert.Equal(t, "Hola Laura, tu pedido #31 va en camino con Andrés. Llegada estimada: 20:45.", sender.body)
}

func TestDeliveryNotifyJobWithoutSenderSkips(t *testing.T) {
	job := &DeliveryNotifyJob{}
	err := job.Handle(context.Background(), deliveryTask(t, DeliveryNotifyPayload{DeliveryID: 1, CustomerPhone: "3001234567"}))
	assert.NoError(t, err)
}

func TestDeliveryNotifyJobInvalidPhoneSkipsRetry(t *testing.T) {
	sender := &fakeSender{err: ErrInvalidPhone}
	job := &DeliveryNotifyJob{Sender: sender}
	err := job.Handle(context.Background(), deliveryTask(t, DeliveryNotifyPayload{DeliveryID: 2, CustomerPhone: "12"}))
	assert.ErrorIs(t, err, asynq.SkipRetry)

	err = job.Handle(context.Background(), deliveryTask(t, DeliveryNotifyPayload{DeliveryID: 3}))
	assert.ErrorIs(t, err, asynq.SkipRetry)
	assert.Equal(t, 1, sender.calls)
}

func TestDeliveryNotifyJobTransientErrorRetries(t *testing.T) {
	sender := &fakeSender{err: errors.New("twilio 503")}
	job := &DeliveryNotifyJob{Sender: sender}
	err := job.Handle(context.Background(), deliveryTask(t, DeliveryNotifyPayload{DeliveryID: 4, CustomerPhone: "3001234567"}))
	require.Error(t, err)
	assert.NotErrorIs(t, err, asynq.SkipRetry)
}

func TestBudgetAlertJobRejectsBadPayload(t *testing.T) {
	job := &BudgetAlertJob{}
	err := job.Handle(context.Background(), asynq.NewTask(TaskBudgetAlert, []byte("{")))
	assert.ErrorIs(t, err, asynq.SkipRetry)

	task, _, err := NewBudgetAlertTask(BudgetAlertPayload{BudgetID: 1, Status: "excedido"})
	require.NoError(t, err)
	assert.NoError(t, job.Handle(context.Background(), task))
}

type stubWarmer struct {
	calls int
	err   error
}

func (s *stubWarmer) Warmup(context.Context) error {
	s.calls++
	return s.err
}

func TestReportsWarmupJob(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := jobmetrics.NewMetrics(registry)
	warmer := &stubWarmer{}
	job := &ReportsWarmupJob{Reports: warmer, Metrics: metrics}

	require.NoError(t, job.Handle(context.Background(), NewReportsWarmupTask()))
	warmer.err = errors.New("db gone")
	require.Error(t, job.Handle(context.Background(), NewReportsWarmupTask()))

	assert.Equal(t, 2, warmer.calls)
	count, err := testutil.GatherAndCount(registry, "comanda_jobs_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	var unconfigured *ReportsWarmupJob
	assert.Error(t, unconfigured.Handle(context.Background(), NewReportsWarmupTask()))
}

type stubInspector struct {
	info map[string]*asynq.QueueInfo
	err  error
}

func (s stubInspector) GetQueueInfo(queue string) (*asynq.QueueInfo, error) {
	if s.err != nil {
		return nil, s.err
	}
	info, ok := s.info[queue]
	if !ok {
		return nil, asynq.ErrQueueNotFound
	}
	return info, nil
}

func TestHealthHandler(t *testing.T) {
	h := NewHandler(stubInspector{info: map[string]*asynq.QueueInfo{
		QueueNotifications: {Queue: QueueNotifications, Pending: 2, Retry: 1},
	}}, nil)
	rec := httptest.NewRecorder()
	h.health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Status string        `json:"status"`
		Queues []QueueStatus `json:"queues"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Queues, 2)
	assert.Equal(t, 2, body.Queues[0].Pending)
	assert.Equal(t, 0, body.Queues[1].Pending)

	h = NewHandler(stubInspector{err: errors.New("dial tcp")}, nil)
	rec = httptest.NewRecorder()
	h.health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
