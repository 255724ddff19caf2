package core

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	sm "histdata/service/models"
)

const metricsNamespace = "histdata"

// Metrics are collected per run and can be dumped for a node exporter textfile collector.
type Metrics struct {
	registry    *prometheus.Registry
	fetches     *prometheus.CounterVec
	skipped     *prometheus.CounterVec
	rows        prometheus.Gauge
	duration    prometheus.Gauge
	lastSuccess prometheus.Gauge
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "fetch_total",
			Help:      "Series fetches by provider and outcome.",
		}, []string{"provider", "outcome"}),
		skipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "skipped_records_total",
			Help:      "Records dropped because the value was not numeric.",
		}, []string{"series"}),
		rows: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "output_rows",
			Help:      "Rows in the last written table.",
		}),
		duration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of the last run.",
		}),
		lastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last run that wrote its output.",
		}),
	}
	m.registry.MustRegister(m.fetches, m.skipped, m.rows, m.duration, m.lastSuccess)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) ObserveFetch(o *sm.FetchOutcome) {
	if m == nil {
		return
	}
	outcome := "ok"
	if o.Err != nil {
		outcome = "error"
	}
	m.fetches.WithLabelValues(o.Series.Provider, outcome).Inc()
	if o.Skipped > 0 {
		m.skipped.WithLabelValues(o.Series.Name).Add(float64(o.Skipped))
	}
}

func (m *Metrics) ObserveRun(rows int, d time.Duration, succeeded bool) {
	if m == nil {
		return
	}
	m.rows.Set(float64(rows))
	m.duration.Set(d.Seconds())
	if succeeded {
		m.lastSuccess.SetToCurrentTime()
	}
}

func (m *Metrics) WriteTextfile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("error creating metrics directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("error writing metrics to %s: %w", path, err)
	}
	return nil
}
