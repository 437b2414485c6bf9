package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors exported on /metrics.
type Metrics struct {
	registry         *prometheus.Registry
	requests         *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	errors           *prometheus.CounterVec
	ticketsCreated   *prometheus.CounterVec
	statusMoves      *prometheus.CounterVec
	notifications    *prometheus.CounterVec
	rateLimitRejects prometheus.Counter
}

// NewMetrics registers collectors on a dedicated registry.
func NewMetrics(namespace string) *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route, method and status",
		}, []string{"route", "method", "status"}),
		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
		errors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_errors_total",
			Help:      "Error responses by route, method and error code",
		}, []string{"route", "method", "code"}),
		ticketsCreated: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tickets_created_total",
			Help:      "Tickets created by category",
		}, []string{"category"}),
		statusMoves: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ticket_status_changes_total",
			Help:      "Ticket status changes by target status",
		}, []string{"status"}),
		notifications: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Notification deliveries by kind and result",
		}, []string{"kind", "result"}),
		rateLimitRejects: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limit_rejections_total",
			Help:      "Requests rejected by the ticket creation limiter",
		}),
	}
}

// RecordRequest tracks a served request.
func (m *Metrics) RecordRequest(route, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(route, method).Observe(duration.Seconds())
}

// RecordError tracks an error response by domain code.
func (m *Metrics) RecordError(route, method, code string) {
	if m == nil {
		return
	}
	m.errors.WithLabelValues(route, method, code).Inc()
}

// TicketCreated counts a committed ticket.
func (m *Metrics) TicketCreated(category string) {
	if m == nil {
		return
	}
	m.ticketsCreated.WithLabelValues(category).Inc()
}

// StatusChanged counts a committed status change.
func (m *Metrics) StatusChanged(status string) {
	if m == nil {
		return
	}
	m.statusMoves.WithLabelValues(status).Inc()
}

// NotificationResult counts a delivery attempt; result is "sent" or "failed".
func (m *Metrics) NotificationResult(kind, result string) {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues(kind, result).Inc()
}

// RateLimited counts a rejected creation attempt.
func (m *Metrics) RateLimited() {
	if m == nil {
		return
	}
	m.rateLimitRejects.Inc()
}

// Gatherer exposes the registry for tests.
func (m *Metrics) Gatherer() prometheus.Gatherer {
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
