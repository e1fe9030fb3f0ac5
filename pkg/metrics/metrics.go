// Package metrics exports the reactive runtime's activity as Prometheus
// metrics.
//
// Install translates instrumentation events into counters, histograms, and
// a queue-depth gauge:
//
//	metrics.Install(metrics.WithNamespace("myapp"))
//	http.Handle("/metrics", promhttp.Handler())
//
// Node names are not used as labels: reactive graphs create unbounded name
// sets, which Prometheus label cardinality cannot absorb.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ripple-dev/ripple/pkg/ripple"
)

// Config configures the collector.
type Config struct {
	// Namespace is the metrics namespace (default: "ripple").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for durations, in seconds.
	// The default covers 1µs to ~260ms, which is where reactive work
	// lives; HTTP-scale default buckets would put everything in the
	// first bucket.
	Buckets []float64

	// Registry is the Prometheus registry to register with.
	// Default: prometheus.DefaultRegisterer.
	Registry prometheus.Registerer
}

// Option configures the collector.
type Option func(*Config)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) Option {
	return func(c *Config) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) Option {
	return func(c *Config) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) Option {
	return func(c *Config) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the duration histogram buckets.
func WithBuckets(buckets []float64) Option {
	return func(c *Config) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) Option {
	return func(c *Config) {
		c.Registry = registry
	}
}

func defaultConfig() Config {
	return Config{
		Namespace: "ripple",
		Buckets:   prometheus.ExponentialBuckets(1e-6, 4, 10),
		Registry:  prometheus.DefaultRegisterer,
	}
}

var _ ripple.Instrumentation = (*Collector)(nil)

// Collector implements ripple.Instrumentation by counting runtime events
// into Prometheus metrics. All methods are cheap enough for the runtime's
// hot paths.
type Collector struct {
	signalWrites   prometheus.Counter
	recomputes     *prometheus.CounterVec
	effectRuns     prometheus.Counter
	effectSkips    prometheus.Counter
	flushes        prometheus.Counter
	scopeDisposals prometheus.Counter

	deriveDuration prometheus.Histogram
	effectDuration prometheus.Histogram
	flushDuration  prometheus.Histogram

	queueDepth prometheus.Gauge
}

// New builds a collector and registers its metrics with the configured
// registry.
func New(opts ...Option) *Collector {
	config := defaultConfig()
	for _, opt := range opts {
		opt(&config)
	}
	factory := promauto.With(config.Registry)

	return &Collector{
		signalWrites: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "signal_writes_total",
			Help:        "Total signal writes that changed a value",
			ConstLabels: config.ConstLabels,
		}),

		recomputes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "computed_recomputes_total",
			Help:        "Total computed derive runs, by whether the value changed",
			ConstLabels: config.ConstLabels,
		}, []string{"changed"}),

		effectRuns: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "effect_runs_total",
			Help:        "Total effect executions, including initial runs",
			ConstLabels: config.ConstLabels,
		}),

		effectSkips: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "effect_skips_total",
			Help:        "Total queued effects dropped because no dependency changed",
			ConstLabels: config.ConstLabels,
		}),

		flushes: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "flushes_total",
			Help:        "Total scheduler flushes of a non-empty queue",
			ConstLabels: config.ConstLabels,
		}),

		scopeDisposals: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "scope_disposals_total",
			Help:        "Total disposed scopes",
			ConstLabels: config.ConstLabels,
		}),

		deriveDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "derive_duration_seconds",
			Help:        "Computed derive duration in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}),

		effectDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "effect_duration_seconds",
			Help:        "Effect execution duration in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}),

		flushDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "flush_duration_seconds",
			Help:        "Scheduler flush duration in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}),

		queueDepth: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "flush_queue_depth",
			Help:        "Pending effects observed at the start of the last flush",
			ConstLabels: config.ConstLabels,
		}),
	}
}

// Install builds a collector and sets it as the process-wide
// instrumentation sink.
func Install(opts ...Option) *Collector {
	c := New(opts...)
	ripple.SetInstrumentation(c)
	return c
}

// SignalWrite implements ripple.Instrumentation.
func (c *Collector) SignalWrite(id uint64, name string) {
	c.signalWrites.Inc()
}

// ComputedRecomputed implements ripple.Instrumentation.
func (c *Collector) ComputedRecomputed(id uint64, name string, changed bool, d time.Duration) {
	c.recomputes.WithLabelValues(strconv.FormatBool(changed)).Inc()
	c.deriveDuration.Observe(d.Seconds())
}

// EffectRan implements ripple.Instrumentation.
func (c *Collector) EffectRan(id uint64, name string, d time.Duration) {
	c.effectRuns.Inc()
	c.effectDuration.Observe(d.Seconds())
}

// EffectSkipped implements ripple.Instrumentation.
func (c *Collector) EffectSkipped(id uint64, name string) {
	c.effectSkips.Inc()
}

// FlushStart implements ripple.Instrumentation.
func (c *Collector) FlushStart(queued int) {
	c.flushes.Inc()
	c.queueDepth.Set(float64(queued))
}

// FlushEnd implements ripple.Instrumentation.
func (c *Collector) FlushEnd(runs, skipped int, d time.Duration) {
	c.flushDuration.Observe(d.Seconds())
}

// ScopeDisposed implements ripple.Instrumentation.
func (c *Collector) ScopeDisposed(id uint64) {
	c.scopeDisposals.Inc()
}
