package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordNumberGenerated(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := newMetrics(registry, Config{ServiceName: "invoicer", Environment: "test"})

	m.RecordNumberGenerated("student", "atomic", false)
	m.RecordNumberGenerated("student", "atomic", false)
	m.RecordNumberGenerated("client", "clock", true)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.numbersGenerated.WithLabelValues("student", "atomic")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.numbersGenerated.WithLabelValues("client", "clock")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.degraded))
}

func TestRecordInvoiceCreated(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := newMetrics(registry, Config{})

	m.RecordInvoiceCreated("client")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.invoicesCreated.WithLabelValues("client")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordNumberGenerated("student", "scan", false)
		m.RecordInvoiceCreated("student")
		m.ObserveHTTPRequest("GET", "/health", 200, 0.01)
		m.ObserveJob("mark_overdue", "", 0.1)
		m.AddInvoicesOverdue(3)
	})
}

func TestObserveJob(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := newMetrics(registry, Config{})

	m.ObserveJob("mark_overdue", "", 0.2)
	m.ObserveJob("mark_overdue", JobReasonDeadlineExceeded, 30)
	m.AddInvoicesOverdue(4)
	m.AddInvoicesOverdue(0)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.jobRuns.WithLabelValues("mark_overdue")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.jobErrors.WithLabelValues("mark_overdue", JobReasonDeadlineExceeded)))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.overdue))
}

func TestObserveHTTPRequestHistogram(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := newMetrics(registry, Config{ServiceName: "invoicer", Environment: "test"})

	m.ObserveHTTPRequest("GET", "/api/invoices", 200, 0.02)
	m.ObserveHTTPRequest("GET", "/api/invoices", 200, 0.3)
	m.ObserveHTTPRequest("POST", "", 500, 0.1)

	hist := findHistogram(t, registry, "invoicer_http_request_duration_seconds", map[string]string{
		"method": "GET",
		"route":  "/api/invoices",
	})
	assert.Equal(t, uint64(2), hist.GetSampleCount())
	assert.InDelta(t, 0.32, hist.GetSampleSum(), 1e-9)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("POST", "unknown", "500")))
}

func findHistogram(t *testing.T, registry *prometheus.Registry, name string, labels map[string]string) *dto.Histogram {
	t.Helper()
	families, err := registry.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, metric := range mf.Metric {
			if hasLabels(metric, labels) {
				require.NotNil(t, metric.Histogram, "metric %s is not a histogram", name)
				return metric.GetHistogram()
			}
		}
	}
	t.Fatalf("metric %s with labels %v not found", name, labels)
	return nil
}

// hasLabels ignores the constant service and env labels.
func hasLabels(metric *dto.Metric, labels map[string]string) bool {
	matched := 0
	for _, label := range metric.GetLabel() {
		want, ok := labels[label.GetName()]
		if !ok {
			continue
		}
		if want != label.GetValue() {
			return false
		}
		matched++
	}
	return matched == len(labels)
}
