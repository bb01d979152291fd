package telemetry

import (
	"net/http"

	"digital_microscope/internal/device"
	"digital_microscope/internal/models"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const unresolvedCommand = "unresolved"

// Metrics holds the microscope collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	commands               *prometheus.CounterVec
	tubeHeight             prometheus.Gauge
	objective              prometheus.Gauge
	illuminationConfigured prometheus.Gauge
	illuminationOn         prometheus.Gauge
}

func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		commands: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "microscope_commands_total",
				Help: "The total number of executed shell commands",
			},
			[]string{"command", "result"},
		),
		tubeHeight: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "microscope_tube_height",
				Help: "Current focus tube height",
			},
		),
		objective: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "microscope_objective",
				Help: "Currently selected objective",
			},
		),
		illuminationConfigured: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "microscope_illumination_configured",
				Help: "Configured illumination value",
			},
		),
		illuminationOn: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "microscope_illumination_on",
				Help: "Illumination switched on (1) or not (0)",
			},
		),
	}
}

// ObserveCommand counts one command. result is the journal kind.
func (m *Metrics) ObserveCommand(command, result string) {
	if command == "" {
		command = unresolvedCommand
	}
	m.commands.WithLabelValues(command, result).Inc()
}

// ObserveState updates the device gauges.
func (m *Metrics) ObserveState(snap models.DeviceSnapshot) {
	m.tubeHeight.Set(float64(snap.TubeHeight))
	m.objective.Set(float64(snap.Objective))
	m.illuminationConfigured.Set(float64(snap.IlluminationConfigured))
	if snap.Illumination == device.IlluminationOn.String() {
		m.illuminationOn.Set(1)
	} else {
		m.illuminationOn.Set(0)
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
