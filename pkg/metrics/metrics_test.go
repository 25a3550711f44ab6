package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_ObserveRequest(t *testing.T) {
	m := New()

	m.ObserveRequest("search", 200, 50*time.Millisecond)
	m.ObserveRequest("search", 200, 70*time.Millisecond)
	m.ObserveRequest("add_worklog", 0, time.Second)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.requestsTotal.WithLabelValues("search", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requestsTotal.WithLabelValues("add_worklog", "error")))
	assert.Equal(t, 2, testutil.CollectAndCount(m.requestDuration))
}

func TestMetrics_Counters(t *testing.T) {
	m := New()

	m.ObserveResolution("resolved")
	m.ObserveResolution("cached")
	m.ObserveResolution("cached")
	m.ObserveReport("week")
	m.ObserveFailSoft("assigned_issues")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.resolutions.WithLabelValues("cached")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.reports.WithLabelValues("week")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.failSoft.WithLabelValues("assigned_issues")))
}

func TestMetrics_RegistryGathers(t *testing.T) {
	m := New()
	m.ObserveReport("month")

	families, err := m.Registry().Gather()
	require.NoError(t, err)

	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "timelog_reports_generated_total")
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.ObserveRequest("search", 500, time.Millisecond)
		m.ObserveResolution("resolved")
		m.ObserveReport("week")
		m.ObserveFailSoft("add_worklog")
	})
	assert.NotNil(t, m.Registry())
}
