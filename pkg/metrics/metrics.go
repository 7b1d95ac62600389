// Package metrics exports prometheus counters for edit cycles, graph commands
// and rejected connections.
package metrics

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// DefaultListen is the address Start uses when Listen is empty.
const DefaultListen = "127.0.0.1:9234"

// Edit cycle outcomes.
const (
	OutcomeUnchanged = "unchanged" // same bindings, no commands
	OutcomeRebound   = "rebound"   // bindings changed
	OutcomeSyntax    = "syntax_error"
	OutcomeFailed    = "failed" // commit rejected
)

// Metrics holds the collectors. A nil *Metrics is valid and records nothing,
// so callers never need to check whether metrics are enabled.
type Metrics struct {
	Listen string // address the net/http server listens on

	registry *prometheus.Registry
	server   *http.Server

	editCycles           *prometheus.CounterVec // edit cycles by outcome
	commands             *prometheus.CounterVec // graph commands applied, by op
	illegalConnections   *prometheus.CounterVec // rejected wires, by kind pair
	processStartTimeSecs prometheus.Gauge
}

// New creates the collectors and registers them on a fresh registry.
func New() *Metrics {
	obj := &Metrics{registry: prometheus.NewRegistry()}

	obj.editCycles = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "exprgraph_edit_cycles_total",
			Help: "Number of expression edit cycles that have run.",
		},
		// outcome: unchanged, rebound, syntax_error, failed
		[]string{"outcome"},
	)
	obj.commands = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "exprgraph_commands_total",
			Help: "Number of graph commands committed.",
		},
		// op: Connect, Disconnect, SetValue, SetData, Remove
		[]string{"op"},
	)
	obj.illegalConnections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "exprgraph_illegal_connections_total",
			Help: "Number of connections rejected by the legality check.",
		},
		[]string{"src", "dst"},
	)
	obj.processStartTimeSecs = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "exprgraph_process_start_time_seconds",
			Help: "Start time of the process since unix epoch in seconds.",
		},
	)
	obj.processStartTimeSecs.SetToCurrentTime()

	obj.registry.MustRegister(
		obj.editCycles,
		obj.commands,
		obj.illegalConnections,
		obj.processStartTimeSecs,
	)
	return obj
}

// Gatherer exposes the registry, mainly for tests.
func (obj *Metrics) Gatherer() prometheus.Gatherer {
	if obj == nil {
		return prometheus.NewRegistry()
	}
	return obj.registry
}

// EditCycles returns the edit cycle counter, labelled by outcome.
func (obj *Metrics) EditCycles() *prometheus.CounterVec { return obj.editCycles }

// IllegalConnections returns the rejection counter, labelled by src and dst.
func (obj *Metrics) IllegalConnections() *prometheus.CounterVec { return obj.illegalConnections }

// Handler returns the http handler serving the registry.
func (obj *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(obj.Gatherer(), promhttp.HandlerOpts{})
}

// Start serves /metrics on Listen in a goroutine. The listener is opened
// before Start returns so a bad address is reported to the caller.
func (obj *Metrics) Start() error {
	if obj == nil {
		return nil
	}
	if obj.Listen == "" {
		obj.Listen = DefaultListen
	}
	ln, err := net.Listen("tcp", obj.Listen)
	if err != nil {
		return err
	}
	obj.Listen = ln.Addr().String() // resolve ":0"

	mux := http.NewServeMux()
	mux.Handle("/metrics", obj.Handler())
	obj.server = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go obj.server.Serve(ln)
	return nil
}

// Stop shuts the http server down.
func (obj *Metrics) Stop() error {
	if obj == nil || obj.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return obj.server.Shutdown(ctx)
}

// EditCycle counts one edit cycle with the given outcome.
func (obj *Metrics) EditCycle(outcome string) {
	if obj == nil {
		return
	}
	obj.editCycles.With(prometheus.Labels{"outcome": outcome}).Inc()
}

// Command counts one committed command. op is the command type name.
func (obj *Metrics) Command(op string) {
	if obj == nil {
		return
	}
	obj.commands.With(prometheus.Labels{"op": op}).Inc()
}

// IllegalConnection counts a rejected wire between two node kinds.
func (obj *Metrics) IllegalConnection(src, dst string) {
	if obj == nil {
		return
	}
	obj.illegalConnections.With(prometheus.Labels{"src": src, "dst": dst}).Inc()
}
