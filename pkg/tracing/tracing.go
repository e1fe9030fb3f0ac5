// Package tracing exports the reactive runtime's work as OpenTelemetry
// spans.
//
// Instrumentation callbacks fire after the fact, so spans are emitted
// retroactively: each span starts at now minus the reported duration and
// ends at now. Flushes always get a span; individual effects and derives
// only when they exceed the configured duration floor, which keeps
// microsecond-scale reactive work from flooding the trace backend.
//
// The tracer resolves from the global provider by default. Configure that
// in main() before installing:
//
//	otel.SetTracerProvider(tp)
//	tracing.Install(tracing.WithMinEffectDuration(5 * time.Millisecond))
package tracing

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/ripple-dev/ripple/pkg/ripple"
)

const defaultTracerName = "ripple"

// Config configures the tracer.
type Config struct {
	// TracerName is the name of the tracer (default: "ripple").
	TracerName string

	// MinEffectDuration is the duration floor below which effect and
	// derive spans are dropped (default: 1ms). Zero traces everything.
	MinEffectDuration time.Duration

	// TracerProvider resolves the tracer. Defaults to the global
	// provider.
	TracerProvider trace.TracerProvider
}

// Option configures the tracer.
type Option func(*Config)

// WithTracerName sets the tracer name.
func WithTracerName(name string) Option {
	return func(c *Config) {
		c.TracerName = name
	}
}

// WithMinEffectDuration sets the floor below which effect and derive
// spans are dropped.
func WithMinEffectDuration(d time.Duration) Option {
	return func(c *Config) {
		c.MinEffectDuration = d
	}
}

// WithTracerProvider sets the provider to resolve the tracer from.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *Config) {
		c.TracerProvider = tp
	}
}

func defaultConfig() Config {
	return Config{
		TracerName:        defaultTracerName,
		MinEffectDuration: time.Millisecond,
	}
}

var _ ripple.Instrumentation = (*Tracer)(nil)

// Tracer implements ripple.Instrumentation by emitting retroactive spans.
type Tracer struct {
	tracer    trace.Tracer
	minEffect time.Duration

	// Drains are serialized by the scheduler, so one slot for the
	// queue depth between FlushStart and FlushEnd is enough.
	mu          sync.Mutex
	flushQueued int
}

// New builds a tracer.
func New(opts ...Option) *Tracer {
	config := defaultConfig()
	for _, opt := range opts {
		opt(&config)
	}

	var tr trace.Tracer
	if config.TracerProvider != nil {
		tr = config.TracerProvider.Tracer(config.TracerName)
	} else {
		tr = otel.Tracer(config.TracerName)
	}
	return &Tracer{tracer: tr, minEffect: config.MinEffectDuration}
}

// Install builds a tracer and sets it as the process-wide instrumentation
// sink, replacing any existing one. To trace and collect metrics together,
// combine sinks with ripple.CombineInstrumentation instead.
func Install(opts ...Option) *Tracer {
	t := New(opts...)
	ripple.SetInstrumentation(t)
	return t
}

// emit records a span covering the d that just ended.
func (t *Tracer) emit(name string, d time.Duration, attrs ...attribute.KeyValue) {
	end := time.Now()
	_, span := t.tracer.Start(context.Background(), name,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithTimestamp(end.Add(-d)),
		trace.WithAttributes(attrs...),
	)
	span.End(trace.WithTimestamp(end))
}

// SignalWrite implements ripple.Instrumentation. Writes are instantaneous
// and produce no span.
func (t *Tracer) SignalWrite(id uint64, name string) {}

// ComputedRecomputed implements ripple.Instrumentation.
func (t *Tracer) ComputedRecomputed(id uint64, name string, changed bool, d time.Duration) {
	if d < t.minEffect {
		return
	}
	attrs := []attribute.KeyValue{
		attribute.Int64("ripple.computed.id", int64(id)),
		attribute.Bool("ripple.computed.changed", changed),
	}
	if name != "" {
		attrs = append(attrs, attribute.String("ripple.computed.name", name))
	}
	t.emit("ripple.derive", d, attrs...)
}

// EffectRan implements ripple.Instrumentation.
func (t *Tracer) EffectRan(id uint64, name string, d time.Duration) {
	if d < t.minEffect {
		return
	}
	attrs := []attribute.KeyValue{
		attribute.Int64("ripple.effect.id", int64(id)),
	}
	if name != "" {
		attrs = append(attrs, attribute.String("ripple.effect.name", name))
	}
	t.emit("ripple.effect", d, attrs...)
}

// EffectSkipped implements ripple.Instrumentation. Skips produce no span.
func (t *Tracer) EffectSkipped(id uint64, name string) {}

// FlushStart implements ripple.Instrumentation.
func (t *Tracer) FlushStart(queued int) {
	t.mu.Lock()
	t.flushQueued = queued
	t.mu.Unlock()
}

// FlushEnd implements ripple.Instrumentation.
func (t *Tracer) FlushEnd(runs, skipped int, d time.Duration) {
	t.mu.Lock()
	queued := t.flushQueued
	t.mu.Unlock()

	t.emit("ripple.flush", d,
		attribute.Int("ripple.flush.queued", queued),
		attribute.Int("ripple.flush.runs", runs),
		attribute.Int("ripple.flush.skipped", skipped),
	)
}

// ScopeDisposed implements ripple.Instrumentation. Disposal produces no
// span.
func (t *Tracer) ScopeDisposed(id uint64) {}
