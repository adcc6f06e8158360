package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	PagesTotal      *prometheus.CounterVec
	RecordsTotal    *prometheus.CounterVec
	RowsSkipped     prometheus.Counter
	CyclesTotal     *prometheus.CounterVec
	AlertsTotal     *prometheus.CounterVec
	DeliveriesTotal *prometheus.CounterVec
	CycleDuration   prometheus.Histogram
}

// NewMetrics creates the metrics on a private registry
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		PagesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "examwatcher_pages_total",
			Help: "Listing pages fetched, by outcome",
		}, []string{"outcome"}), // ok, fetch_failed, rate_limited, no_table
		RecordsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "examwatcher_records_total",
			Help: "Records extracted, by status",
		}, []string{"status"}),
		RowsSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "examwatcher_rows_skipped_total",
			Help: "Table rows skipped for having too few columns",
		}),
		CyclesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "examwatcher_cycles_total",
			Help: "Pipeline cycles run, by trigger",
		}, []string{"trigger"}),
		AlertsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "examwatcher_alerts_total",
			Help: "Alert messages emitted, by kind",
		}, []string{"kind"}),
		DeliveriesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "examwatcher_deliveries_total",
			Help: "Message segment deliveries, by result",
		}, []string{"result"}),
		CycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "examwatcher_cycle_duration_seconds",
			Help:    "Duration of a full pipeline cycle",
			Buckets: prometheus.ExponentialBuckets(1, 2, 8),
		}),
	}

	reg.MustRegister(
		m.PagesTotal,
		m.RecordsTotal,
		m.RowsSkipped,
		m.CyclesTotal,
		m.AlertsTotal,
		m.DeliveriesTotal,
		m.CycleDuration,
	)
	return m
}

// Registry returns the registry holding the metrics
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// IncPage counts one page attempt by outcome
func (m *Metrics) IncPage(outcome string) {
	if m == nil {
		return
	}
	m.PagesTotal.WithLabelValues(outcome).Inc()
}

// AddRecords counts n extracted records of the given status
func (m *Metrics) AddRecords(status string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.RecordsTotal.WithLabelValues(status).Add(float64(n))
}

// AddRowsSkipped counts malformed rows
func (m *Metrics) AddRowsSkipped(n int) {
	if m == nil || n == 0 {
		return
	}
	m.RowsSkipped.Add(float64(n))
}

// IncCycle counts a finished cycle and observes its duration
func (m *Metrics) IncCycle(trigger string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.CyclesTotal.WithLabelValues(trigger).Inc()
	m.CycleDuration.Observe(elapsed.Seconds())
}

// IncAlert counts a broadcast alert by kind
func (m *Metrics) IncAlert(kind string) {
	if m == nil {
		return
	}
	m.AlertsTotal.WithLabelValues(kind).Inc()
}

// IncDelivery counts one segment delivery attempt
func (m *Metrics) IncDelivery(ok bool) {
	if m == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "failed"
	}
	m.DeliveriesTotal.WithLabelValues(result).Inc()
}

// Serve exposes /metrics on addr until ctx is done
func (m *Metrics) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
