// Package metrics holds the Prometheus collectors for Jira calls, cloud-id
// resolution and report generation.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "timelog"

// Metrics groups the collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	resolutions     *prometheus.CounterVec
	reports         *prometheus.CounterVec
	failSoft        *prometheus.CounterVec
}

// New creates the collectors and registers them on a fresh registry
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "jira_requests_total",
				Help:      "Jira REST calls by operation and HTTP status code",
			},
			[]string{"operation", "code"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "jira_request_duration_seconds",
				Help:      "Latency of Jira REST calls",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		resolutions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cloud_resolutions_total",
				Help:      "Cloud resource resolutions by outcome",
			},
			[]string{"result"},
		),
		reports: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "reports_generated_total",
				Help:      "Report documents generated by period",
			},
			[]string{"period"},
		),
		failSoft: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "failsoft_degradations_total",
				Help:      "Read or write calls that degraded to an empty or false result",
			},
			[]string{"operation"},
		),
	}

	m.registry.MustRegister(m.requestsTotal, m.requestDuration, m.resolutions, m.reports, m.failSoft)
	return m
}

// Registry exposes the registry for the /metrics handler
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return prometheus.NewRegistry()
	}
	return m.registry
}

// ObserveRequest records one Jira call. code 0 means no HTTP response was received.
func (m *Metrics) ObserveRequest(operation string, code int, elapsed time.Duration) {
	if m == nil {
		return
	}
	label := "error"
	if code > 0 {
		label = strconv.Itoa(code)
	}
	m.requestsTotal.WithLabelValues(operation, label).Inc()
	m.requestDuration.WithLabelValues(operation).Observe(elapsed.Seconds())
}

// ObserveResolution records a resolver outcome (cached, resolved, or an error type)
func (m *Metrics) ObserveResolution(result string) {
	if m == nil {
		return
	}
	m.resolutions.WithLabelValues(result).Inc()
}

// ObserveReport records a generated report
func (m *Metrics) ObserveReport(period string) {
	if m == nil {
		return
	}
	m.reports.WithLabelValues(period).Inc()
}

// ObserveFailSoft records a swallowed failure
func (m *Metrics) ObserveFailSoft(operation string) {
	if m == nil {
		return
	}
	m.failSoft.WithLabelValues(operation).Inc()
}
