package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects Prometheus metrics for the API and the domain services.
type Metrics struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec

	invoicesIssued   *prometheus.CounterVec
	invoicesDeleted  prometheus.Counter
	paymentsRecorded *prometheus.CounterVec
	deliveryStates   *prometheus.CounterVec
	budgetAlerts     *prometheus.CounterVec
}

// NewMetrics initialises the registry and the base metrics.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "comanda_http_requests_total",
		Help: "HTTP requests by route and status code.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "comanda_http_request_duration_seconds",
		Help:    "HTTP request duration per route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	issued := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "comanda_invoices_issued_total",
		Help: "Invoices issued by origin (table or delivery).",
	}, []string{"origin"})
	deleted := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "comanda_invoices_deleted_total",
		Help: "Invoices deleted with compensation.",
	})
	payments := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "comanda_payments_recorded_total",
		Help: "Payments registered against receivables and payables.",
	}, []string{"kind"})
	deliveries := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "comanda_delivery_transitions_total",
		Help: "Delivery state transitions by target state.",
	}, []string{"state"})
	alerts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "comanda_budget_alerts_total",
		Help: "Budget alerts raised when recording expenses.",
	}, []string{"status"})
	registry.MustRegister(requests, duration, issued, deleted, payments, deliveries, alerts)
	return &Metrics{
		registry:         registry,
		handler:          promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:    requests,
		requestDuration:  duration,
		invoicesIssued:   issued,
		invoicesDeleted:  deleted,
		paymentsRecorded: payments,
		deliveryStates:   deliveries,
		budgetAlerts:     alerts,
	}
}

// Handler returns the http.Handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Middleware records metrics for every HTTP request.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(&recorder, r)
		route := routePattern(r)
		m.requestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
		m.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

// Registerer exposes the registry for custom collectors.
func (m *Metrics) Registerer() prometheus.Registerer {
	if m == nil {
		return prometheus.DefaultRegisterer
	}
	return m.registry
}

// InvoiceIssued counts a new invoice.
func (m *Metrics) InvoiceIssued(origin string) {
	if m == nil {
		return
	}
	m.invoicesIssued.WithLabelValues(origin).Inc()
}

// InvoiceDeleted counts a compensated invoice deletion.
func (m *Metrics) InvoiceDeleted() {
	if m == nil {
		return
	}
	m.invoicesDeleted.Inc()
}

// PaymentRecorded counts a settlement; kind is "receivable" or "payable".
func (m *Metrics) PaymentRecorded(kind string) {
	if m == nil {
		return
	}
	m.paymentsRecorded.WithLabelValues(kind).Inc()
}

// DeliveryTransition counts a delivery reaching state.
func (m *Metrics) DeliveryTransition(state string) {
	if m == nil {
		return
	}
	m.deliveryStates.WithLabelValues(state).Inc()
}

// BudgetAlert counts a budget entering alert or exceeded status.
func (m *Metrics) BudgetAlert(status string) {
	if m == nil {
		return
	}
	m.budgetAlerts.WithLabelValues(status).Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func routePattern(r *http.Request) string {
	if routeCtx := chi.RouteContext(r.Context()); routeCtx != nil {
		if pattern := routeCtx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unknown"
}
