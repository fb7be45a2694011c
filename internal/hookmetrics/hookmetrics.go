// Package hookmetrics is a constrained, push-free Prometheus registry for
// the hook engine's own diagnostics: breakpoint hits, step completions,
// async-break service cycles, and the CALL/RET/LINE events seen, plus
// gauges for skip_depth and breakpoint_count. Adapted from the teacher's
// pkg/metrics (same Config/NewMetrics/registry shape), trimmed of the HTTP
// request/latency metrics that package exists for — this repo's injected
// library makes no HTTP requests and serves nothing over the network
// (spec.md §1's scope explicitly excludes transport).
//
// Nothing here is ever served over HTTP by the injected library itself;
// cmd/hookctl gathers the registry and prints how many metric families it
// holds.
package hookmetrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Config names the registry's namespace/subsystem, mirroring the
// teacher's metrics.Config shape.
type Config struct {
	Namespace string
	Subsystem string
}

// DefaultConfig returns the namespace this repo registers metrics under.
func DefaultConfig() Config {
	return Config{Namespace: "hookengine", Subsystem: "core"}
}

// Metrics holds the hook engine's Prometheus collectors.
type Metrics struct {
	BreakpointHits   *prometheus.CounterVec
	StepCompletions  *prometheus.CounterVec
	AsyncServiceRuns prometheus.Counter
	AsyncInstallErrs prometheus.Counter
	EventsSeen       *prometheus.CounterVec
	SkipDepth        prometheus.Gauge
	BreakpointCount  prometheus.Gauge

	registry *prometheus.Registry
}

// New creates and registers all collectors in a private registry (never
// the global default registry — an injected library sharing the host
// process's default Prometheus registry would be a surprising side
// effect for whatever else lives in that process).
func New(cfg Config) *Metrics {
	if cfg.Namespace == "" {
		cfg = DefaultConfig()
	}

	registry := prometheus.NewRegistry()
	m := &Metrics{registry: registry}

	m.BreakpointHits = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: cfg.Namespace,
		Subsystem: cfg.Subsystem,
		Name:      "breakpoint_hits_total",
		Help:      "Number of events that matched an armed breakpoint.",
	}, []string{"dialect"})

	m.StepCompletions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: cfg.Namespace,
		Subsystem: cfg.Subsystem,
		Name:      "step_signals_total",
		Help:      "Number of step-controller signals fired, by kind.",
	}, []string{"signal"})

	m.AsyncServiceRuns = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: cfg.Namespace,
		Subsystem: cfg.Subsystem,
		Name:      "async_break_service_runs_total",
		Help:      "Number of async-break mailbox requests serviced.",
	})

	m.AsyncInstallErrs = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: cfg.Namespace,
		Subsystem: cfg.Subsystem,
		Name:      "async_break_install_errors_total",
		Help:      "Number of hook-installation calls that returned an error.",
	})

	m.EventsSeen = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: cfg.Namespace,
		Subsystem: cfg.Subsystem,
		Name:      "events_total",
		Help:      "Number of per-instruction events seen, by kind.",
	}, []string{"event"})

	m.SkipDepth = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: cfg.Namespace,
		Subsystem: cfg.Subsystem,
		Name:      "skip_depth",
		Help:      "Current step-controller skip depth.",
	})

	m.BreakpointCount = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: cfg.Namespace,
		Subsystem: cfg.Subsystem,
		Name:      "breakpoint_count",
		Help:      "Current armed breakpoint count.",
	})

	registry.MustRegister(
		m.BreakpointHits,
		m.StepCompletions,
		m.AsyncServiceRuns,
		m.AsyncInstallErrs,
		m.EventsSeen,
		m.SkipDepth,
		m.BreakpointCount,
	)

	return m
}

// Registry exposes the underlying registry for cmd/hookctl to gather and
// print.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// IncServiceRuns and IncInstallErrors satisfy internal/asyncbreak's
// MetricsSink, so the worker can report its own activity without importing
// prometheus directly.
func (m *Metrics) IncServiceRuns()   { m.AsyncServiceRuns.Inc() }
func (m *Metrics) IncInstallErrors() { m.AsyncInstallErrs.Inc() }
