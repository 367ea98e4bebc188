// Package metrics exposes Prometheus collectors for the dashboard.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "irrigation_dashboard"

// Command publish outcomes.
const (
	ResultOK    = "ok"
	ResultError = "error"
)

// Metrics groups every collector on its own registry.
type Metrics struct {
	registry *prometheus.Registry

	TelemetryEvents  prometheus.Counter
	StatusEvents     prometheus.Counter
	ManualSuppressed prometheus.Counter
	Toggles          prometheus.Counter
	CommandPublishes *prometheus.CounterVec
	HistoryEntries   prometheus.Gauge
	MoisturePercent  prometheus.Gauge
	ManualActive     prometheus.Gauge
	WarningActive    prometheus.Gauge
	DeviceOnline     prometheus.Gauge
}

// New registers the collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		TelemetryEvents: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "telemetry_events_total",
			Help: "Telemetry snapshots applied to the dashboard state.",
		}),
		StatusEvents: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "status_events_total",
			Help: "Status updates applied to the dashboard state.",
		}),
		ManualSuppressed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "manual_override_suppressed_total",
			Help: "Remote manualActive values ignored because of the override lock.",
		}),
		Toggles: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "manual_toggles_total",
			Help: "Local manual-water toggles.",
		}),
		CommandPublishes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "command_publishes_total",
			Help: "Manual-water command publishes by result.",
		}, []string{"result"}),
		HistoryEntries: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "history_entries",
			Help: "Entries currently held in the history log.",
		}),
		MoisturePercent: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "moisture_percent",
			Help: "Last reported soil moisture.",
		}),
		ManualActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "manual_active",
			Help: "1 while manual watering is active.",
		}),
		WarningActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "warning_active",
			Help: "1 while the dashboard shows a warning.",
		}),
		DeviceOnline: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "device_online",
			Help: "1 while the device reports online.",
		}),
	}
	reg.MustRegister(
		m.TelemetryEvents, m.StatusEvents, m.ManualSuppressed, m.Toggles,
		m.CommandPublishes, m.HistoryEntries, m.MoisturePercent,
		m.ManualActive, m.WarningActive, m.DeviceOnline,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry is exposed for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// BoolGauge converts a flag into a gauge value.
func BoolGauge(v bool) float64 {
	if v {
		return 1
	}
	return 0
}
