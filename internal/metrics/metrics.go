// Package metrics holds the fleet's Prometheus instruments.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/speedwagon-io/sensorsim/internal/model"
)

const namespace = "sensorsim"

// Metrics is safe to use through a nil pointer; every method is then a no-op.
type Metrics struct {
	ReadingsTotal     *prometheus.CounterVec
	SinkErrorsTotal   *prometheus.CounterVec
	UnitFailuresTotal *prometheus.CounterVec
	UnitsActive       prometheus.Gauge
}

func New() *Metrics {
	return &Metrics{
		ReadingsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "readings",
				Name:      "emitted_total",
				Help:      "Total number of readings appended to the sink",
			},
			[]string{"sensor_type"},
		),
		SinkErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "sink",
				Name:      "errors_total",
				Help:      "Total number of readings lost to sink write failures",
			},
			[]string{"sensor_type"},
		),
		UnitFailuresTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "units",
				Name:      "failures_total",
				Help:      "Total number of units stopped by a fatal error",
			},
			[]string{"sensor_type"},
		),
		UnitsActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "units",
				Name:      "active",
				Help:      "Number of registered (running or paused) units",
			},
		),
	}
}

func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{
		m.ReadingsTotal,
		m.SinkErrorsTotal,
		m.UnitFailuresTotal,
		m.UnitsActive,
	} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

func (m *Metrics) ReadingEmitted(kind model.Kind) {
	if m == nil {
		return
	}
	m.ReadingsTotal.WithLabelValues(string(kind)).Inc()
}

func (m *Metrics) SinkError(kind model.Kind) {
	if m == nil {
		return
	}
	m.SinkErrorsTotal.WithLabelValues(string(kind)).Inc()
}

func (m *Metrics) UnitFailed(kind model.Kind) {
	if m == nil {
		return
	}
	m.UnitFailuresTotal.WithLabelValues(string(kind)).Inc()
}

func (m *Metrics) SetActive(n int) {
	if m == nil {
		return
	}
	m.UnitsActive.Set(float64(n))
}
