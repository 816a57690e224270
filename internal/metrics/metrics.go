// Package metrics collects prometheus metrics for a QC run and exports
// them for the node-exporter textfile collector.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/t968rs/FEMA-Prod-updates/pkg/qc"
)

// Metrics holds the collectors of one process on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	Findings       *prometheus.CounterVec
	TablesChecked  *prometheus.CounterVec
	TableDuration  prometheus.Histogram
	RunDuration    prometheus.Gauge
	LastRunSuccess prometheus.Gauge
}

var _ qc.Observer = (*Metrics)(nil)

// New creates a Metrics instance with all collectors registered.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Metrics{
		registry: reg,
		Findings: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "dfirmqc_findings_total",
			Help: "Total number of QC findings by table and severity",
		}, []string{"table", "severity"}),
		TablesChecked: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "dfirmqc_tables_validated_total",
			Help: "Total number of tables looked at, by outcome",
		}, []string{"status"}),
		TableDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "dfirmqc_table_duration_seconds",
			Help:    "Duration of validating one table",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60},
		}),
		RunDuration: factory.NewGauge(prometheus.GaugeOpts{
			Name: "dfirmqc_run_duration_seconds",
			Help: "Duration of the last QC run",
		}),
		LastRunSuccess: factory.NewGauge(prometheus.GaugeOpts{
			Name: "dfirmqc_last_run_success",
			Help: "1 when the last QC run completed, 0 when it failed",
		}),
	}
}

// Registry returns the private registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// TableStarted implements qc.Observer.
func (m *Metrics) TableStarted(string) {}

// TableFinished implements qc.Observer.
func (m *Metrics) TableFinished(res qc.TableResult) {
	m.TablesChecked.WithLabelValues(string(res.Status)).Inc()
	m.TableDuration.Observe(res.Duration.Seconds())
	for _, f := range res.Findings {
		m.Findings.WithLabelValues(res.Table, f.Severity.String()).Inc()
	}
}

// ObserveRun records the outcome of a run.
func (m *Metrics) ObserveRun(d time.Duration, err error) {
	m.RunDuration.Set(d.Seconds())
	if err != nil {
		m.LastRunSuccess.Set(0)
		return
	}
	m.LastRunSuccess.Set(1)
}

// WriteTextfile writes every collector to path in the text exposition
// format. The file is replaced atomically.
func (m *Metrics) WriteTextfile(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("failed to create metrics directory: %w", err)
		}
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("failed to write metrics to %s: %w", path, err)
	}
	return nil
}
