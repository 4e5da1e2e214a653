package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Prometheus implements Collector on a private registry.
type Prometheus struct {
	starts      prometheus.Counter
	spawnErrors prometheus.Counter
	stops       prometheus.Counter
	exits       *prometheus.CounterVec
	restarts    *prometheus.CounterVec
	commands    prometheus.Counter
	running     prometheus.Gauge
	lastExit    prometheus.Gauge

	registry *prometheus.Registry
}

// NewPrometheus creates a collector whose metric names are prefixed with namespace.
func NewPrometheus(namespace string) *Prometheus {
	if namespace == "" {
		namespace = "mwrap"
	}

	p := &Prometheus{
		registry: prometheus.NewRegistry(),
		starts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "starts_total",
			Help:      "Total number of server processes spawned",
		}),
		spawnErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "spawn_errors_total",
			Help:      "Total number of failed spawn attempts",
		}),
		stops: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stops_total",
			Help:      "Total number of stop commands sent to the server",
		}),
		exits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "exits_total",
			Help:      "Total number of server process exits",
		}, []string{"expected"}),
		restarts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "restarts_total",
			Help:      "Total number of completed restarts",
		}, []string{"trigger"}),
		commands: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "Total number of command lines forwarded to the server",
		}),
		running: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "running",
			Help:      "1 while the supervisor considers the server running",
		}),
		lastExit: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_exit_code",
			Help:      "Exit code of the most recent server exit, -1 for a signal",
		}),
	}

	p.registry.MustRegister(
		p.starts,
		p.spawnErrors,
		p.stops,
		p.exits,
		p.restarts,
		p.commands,
		p.running,
		p.lastExit,
	)

	return p
}

// ProcessStarted counts a spawn and marks the server running.
func (p *Prometheus) ProcessStarted() {
	p.starts.Inc()
	p.running.Set(1)
}

// SpawnFailed counts a spawn the OS refused.
func (p *Prometheus) SpawnFailed() {
	p.spawnErrors.Inc()
}

// StopRequested counts a stop and marks the server stopped.
func (p *Prometheus) StopRequested() {
	p.stops.Inc()
	p.running.Set(0)
}

// ProcessExited counts an exit by whether a stop was requested and records its code.
func (p *Prometheus) ProcessExited(code int, expected bool) {
	p.exits.WithLabelValues(strconv.FormatBool(expected)).Inc()
	p.lastExit.Set(float64(code))
	if !expected {
		p.running.Set(0)
	}
}

// Restarted counts a completed restart by trigger.
func (p *Prometheus) Restarted(trigger Trigger) {
	p.restarts.WithLabelValues(string(trigger)).Inc()
}

// CommandForwarded counts a command accepted for the server's stdin.
func (p *Prometheus) CommandForwarded() {
	p.commands.Inc()
}

// Registry exposes the underlying registry.
func (p *Prometheus) Registry() *prometheus.Registry {
	return p.registry
}

// Handler serves the registry in the Prometheus text format.
func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}
