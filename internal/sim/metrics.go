package sim

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics exposes run counters and gauges for the admin /metrics
// endpoint. Each simulator owns its own registry so concurrent runs in
// tests never collide on registration.
type Metrics struct {
	registry *prometheus.Registry

	Packets        *prometheus.CounterVec
	PacketsDropped prometheus.Counter
	CovertEvents   *prometheus.CounterVec
	Commands       *prometheus.CounterVec
	Malformed      prometheus.Counter
	Ignitions      prometheus.Counter
	CloudAlarms    prometheus.Counter

	NodesBurning      prometheus.Gauge
	NodesActiveAttack prometheus.Gauge
	SimSeconds        prometheus.Gauge
}

// NewMetrics builds the collector set on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	return &Metrics{
		registry: reg,
		Packets: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "firec2_packets_total",
			Help: "Packets handed to the network fabric, by traffic kind.",
		}, []string{"kind"}),
		PacketsDropped: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "firec2_packets_dropped_total",
			Help: "Packets lost to the configured drop probability.",
		}),
		CovertEvents: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "firec2_covert_events_total",
			Help: "Covert channel observations, by direction.",
		}, []string{"direction"}),
		Commands: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "firec2_commands_total",
			Help: "Downlink commands applied at nodes, by command and outcome.",
		}, []string{"command", "accepted"}),
		Malformed: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "firec2_malformed_total",
			Help: "Messages discarded as unparseable.",
		}),
		Ignitions: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "firec2_ignitions_total",
			Help: "Cells that caught fire, the scenario origin included.",
		}),
		CloudAlarms: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "firec2_cloud_alarms_total",
			Help: "Fire alarms raised by the cloud sink.",
		}),
		NodesBurning: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "firec2_nodes_burning",
			Help: "Nodes currently on fire.",
		}),
		NodesActiveAttack: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "firec2_nodes_active_attack",
			Help: "Compromised nodes currently in active attack mode.",
		}),
		SimSeconds: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "firec2_sim_seconds",
			Help: "Virtual seconds elapsed in the run.",
		}),
	}
}

// Registry returns the gatherer backing the /metrics endpoint.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }
