package metrics

import (
	"strconv"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
)

// Config carries the constant labels attached to every series.
type Config struct {
	ServiceName string
	Environment string
}

// Metrics exposes invoice-level instruments.
type Metrics struct {
	numbersGenerated *prometheus.CounterVec
	degraded         prometheus.Counter
	invoicesCreated  *prometheus.CounterVec
	httpRequests     *prometheus.CounterVec
	httpDuration     *prometheus.HistogramVec

	jobRuns     *prometheus.CounterVec
	jobErrors   *prometheus.CounterVec
	jobDuration *prometheus.HistogramVec
	overdue     prometheus.Counter
}

// New registers the instruments on prometheus.DefaultRegisterer.
func New(cfg Config) *Metrics {
	return newMetrics(prometheus.DefaultRegisterer, cfg)
}

func newMetrics(registerer prometheus.Registerer, cfg Config) *Metrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "invoicer"
	}
	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = "unknown"
	}
	constLabels := prometheus.Labels{
		"service": serviceName,
		"env":     environment,
	}

	m := &Metrics{
		numbersGenerated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "invoicer_invoice_numbers_generated_total",
			Help:        "Invoice numbers generated by strategy.",
			ConstLabels: constLabels,
		}, []string{"category", "strategy"}),
		degraded: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "invoicer_invoice_numbers_degraded_total",
			Help:        "Invoice numbers issued outside the atomic sequence.",
			ConstLabels: constLabels,
		}),
		invoicesCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "invoicer_invoices_created_total",
			Help:        "Invoices persisted by category.",
			ConstLabels: constLabels,
		}, []string{"category"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "invoicer_http_requests_total",
			Help:        "HTTP requests by route and status.",
			ConstLabels: constLabels,
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "invoicer_http_request_duration_seconds",
			Help:        "HTTP request latency by route.",
			Buckets:     prometheus.DefBuckets,
			ConstLabels: constLabels,
		}, []string{"method", "route"}),
		jobRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "invoicer_scheduler_job_runs_total",
			Help:        "Scheduler job runs by job.",
			ConstLabels: constLabels,
		}, []string{"job"}),
		jobErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "invoicer_scheduler_job_errors_total",
			Help:        "Scheduler job failures by job and reason.",
			ConstLabels: constLabels,
		}, []string{"job", "reason"}),
		jobDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "invoicer_scheduler_job_duration_seconds",
			Help:        "Scheduler job duration by job.",
			Buckets:     prometheus.DefBuckets,
			ConstLabels: constLabels,
		}, []string{"job"}),
		overdue: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "invoicer_invoices_marked_overdue_total",
			Help:        "Sent invoices moved to overdue after their due date.",
			ConstLabels: constLabels,
		}),
	}

	registerer.MustRegister(
		m.numbersGenerated,
		m.degraded,
		m.invoicesCreated,
		m.httpRequests,
		m.httpDuration,
		m.jobRuns,
		m.jobErrors,
		m.jobDuration,
		m.overdue,
	)
	return m
}

// RecordNumberGenerated counts one generated invoice number.
func (m *Metrics) RecordNumberGenerated(category, strategy string, degraded bool) {
	if m == nil {
		return
	}
	m.numbersGenerated.WithLabelValues(category, strategy).Inc()
	if degraded {
		m.degraded.Inc()
	}
}

// RecordInvoiceCreated counts one persisted invoice.
func (m *Metrics) RecordInvoiceCreated(category string) {
	if m == nil {
		return
	}
	m.invoicesCreated.WithLabelValues(category).Inc()
}

// ObserveHTTPRequest records a finished HTTP request.
func (m *Metrics) ObserveHTTPRequest(method, route string, status int, seconds float64) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unknown"
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(seconds)
}

const (
	JobReasonDeadlineExceeded = "deadline_exceeded"
	JobReasonError            = "error"
)

// ObserveJob records one scheduler job run. reason is empty on success.
func (m *Metrics) ObserveJob(job, reason string, seconds float64) {
	if m == nil {
		return
	}
	m.jobRuns.WithLabelValues(job).Inc()
	m.jobDuration.WithLabelValues(job).Observe(seconds)
	if reason != "" {
		m.jobErrors.WithLabelValues(job, reason).Inc()
	}
}

// AddInvoicesOverdue counts invoices moved to overdue.
func (m *Metrics) AddInvoicesOverdue(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.overdue.Add(float64(n))
}
