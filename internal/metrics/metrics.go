// Package metrics exposes connection and command counters via
// Prometheus's client_golang, the same library packetd-packetd wires for
// its own server metrics. This is purely observational plumbing — it sits
// outside the §1 core (explicitly out of scope, "logging/telemetry
// setup") and has no effect on command semantics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the counters emberd updates as it serves traffic.
type Metrics struct {
	ConnectionsOpened prometheus.Counter
	ConnectionsClosed prometheus.Counter
	CommandsTotal     *prometheus.CounterVec
	Registry          *prometheus.Registry
}

// New registers a fresh set of counters on a dedicated registry (rather
// than the global default registerer, so multiple *Metrics instances
// never collide across tests).
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		ConnectionsOpened: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ember_connections_opened_total",
			Help: "Total number of connections accepted.",
		}),
		ConnectionsClosed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ember_connections_closed_total",
			Help: "Total number of connections closed.",
		}),
		CommandsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ember_commands_total",
			Help: "Total number of commands executed, by verb.",
		}, []string{"verb"}),
		Registry: reg,
	}

	reg.MustRegister(m.ConnectionsOpened, m.ConnectionsClosed, m.CommandsTotal)
	return m
}

// ObserveCommand increments the per-verb command counter.
func (m *Metrics) ObserveCommand(verb string) {
	m.CommandsTotal.WithLabelValues(verb).Inc()
}

// Handler returns an http.Handler serving this Metrics' registry in the
// Prometheus text exposition format, suitable for mounting at /metrics on
// the side debug listener alongside pprof.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}
