package telemetry

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
)

const metricsNamespace = "ledger"

// LedgerMetrics holds the Prometheus collectors scraped from /metrics.
// Ledger counters carry a school_id label.
type LedgerMetrics struct {
	registry *prometheus.Registry

	feeRecordsCreated *prometheus.CounterVec
	feeAmountChanges  *prometheus.CounterVec
	feeStatusChanges  *prometheus.CounterVec
	paymentsApplied   *prometheus.CounterVec
	paymentAmount     *prometheus.CounterVec
	paymentsCancelled *prometheus.CounterVec
	concessions       *prometheus.CounterVec
	balances          *prometheus.CounterVec
	promotions        *prometheus.CounterVec
	eventsHandled     *prometheus.CounterVec

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

// NewLedgerMetrics registers the ledger collectors plus the Go runtime and process
// collectors on a private registry.
func NewLedgerMetrics() *LedgerMetrics {
	counter := func(name, help string, labels ...string) *prometheus.CounterVec {
		return prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      name,
			Help:      help,
		}, labels)
	}

	m := &LedgerMetrics{
		registry:          prometheus.NewRegistry(),
		feeRecordsCreated: counter("fee_records_created_total", "Fee records created", "school_id", "category"),
		feeAmountChanges:  counter("fee_amount_changes_total", "Fine, discount, waiver and concession changes", "school_id", "change"),
		feeStatusChanges:  counter("fee_status_changes_total", "Fee record status transitions", "school_id", "to_status"),
		paymentsApplied:   counter("payments_applied_total", "Completed payments", "school_id", "method"),
		paymentAmount:     counter("payment_amount_total", "Sum of completed payment amounts", "school_id", "method"),
		paymentsCancelled: counter("payments_cancelled_total", "Cancelled payments", "school_id"),
		concessions:       counter("concession_events_total", "Concession lifecycle events", "school_id", "event"),
		balances:          counter("balance_events_total", "Carry-forward balance events", "school_id", "event"),
		promotions:        counter("promotion_events_total", "Promotion lifecycle events", "school_id", "event"),
		eventsHandled:     counter("events_handled_total", "Events delivered to the metrics subscriber", "event_type"),
		httpRequests:      counter("http_requests_total", "HTTP requests by route and status", "method", "route", "status"),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency",
			Buckets:   HTTPDurationBuckets,
		}, []string{"method", "route"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.feeRecordsCreated,
		m.feeAmountChanges,
		m.feeStatusChanges,
		m.paymentsApplied,
		m.paymentAmount,
		m.paymentsCancelled,
		m.concessions,
		m.balances,
		m.promotions,
		m.eventsHandled,
		m.httpRequests,
		m.httpDuration,
	)
	return m
}

// Registry exposes the underlying registry for extra collectors and tests.
func (m *LedgerMetrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *LedgerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// FeeRecordCreated counts a new fee record.
func (m *LedgerMetrics) FeeRecordCreated(schoolID, category string) {
	m.feeRecordsCreated.WithLabelValues(schoolID, category).Inc()
}

// FeeAmountChanged counts a fine, discount, waiver or concession change.
func (m *LedgerMetrics) FeeAmountChanged(schoolID, change string) {
	m.feeAmountChanges.WithLabelValues(schoolID, change).Inc()
}

// FeeStatusChanged counts a status transition.
func (m *LedgerMetrics) FeeStatusChanged(schoolID, toStatus string) {
	m.feeStatusChanges.WithLabelValues(schoolID, toStatus).Inc()
}

// PaymentApplied counts a completed payment and adds its amount.
func (m *LedgerMetrics) PaymentApplied(schoolID, method string, amount decimal.Decimal) {
	m.paymentsApplied.WithLabelValues(schoolID, method).Inc()
	m.paymentAmount.WithLabelValues(schoolID, method).Add(amount.InexactFloat64())
}

// PaymentCancelled counts a cancelled payment.
func (m *LedgerMetrics) PaymentCancelled(schoolID string) {
	m.paymentsCancelled.WithLabelValues(schoolID).Inc()
}

// ConcessionEvent counts a concession created, approved or rejected.
func (m *LedgerMetrics) ConcessionEvent(schoolID, event string) {
	m.concessions.WithLabelValues(schoolID, event).Inc()
}

// BalanceEvent counts a balance carried forward, adjusted or cleared.
func (m *LedgerMetrics) BalanceEvent(schoolID, event string) {
	m.balances.WithLabelValues(schoolID, event).Inc()
}

// PromotionEvent counts a promotion created, completed, failed or rolled back.
func (m *LedgerMetrics) PromotionEvent(schoolID, event string) {
	m.promotions.WithLabelValues(schoolID, event).Inc()
}

// EventHandled counts any event the metrics subscriber received.
func (m *LedgerMetrics) EventHandled(eventType string) {
	m.eventsHandled.WithLabelValues(eventType).Inc()
}

// ObserveHTTPRequest records one served request. route is the gin route pattern.
func (m *LedgerMetrics) ObserveHTTPRequest(method, route string, status int, elapsed time.Duration) {
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}
