package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetricsCounters(t *testing.T) {
	m := NewMetrics()

	m.IncPage("ok")
	m.IncPage("ok")
	m.IncPage("fetch_failed")
	m.AddRecords("incomplete", 3)
	m.AddRowsSkipped(2)
	m.IncAlert("found")
	m.IncDelivery(false)
	m.IncCycle("schedule", 3*time.Second)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.PagesTotal.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PagesTotal.WithLabelValues("fetch_failed")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.RecordsTotal.WithLabelValues("incomplete")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.RowsSkipped))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AlertsTotal.WithLabelValues("found")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DeliveriesTotal.WithLabelValues("failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CyclesTotal.WithLabelValues("schedule")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.IncPage("ok")
		m.AddRecords("completed", 1)
		m.AddRowsSkipped(1)
		m.IncAlert("quiet")
		m.IncDelivery(true)
		m.IncCycle("manual", time.Second)
	})
}
