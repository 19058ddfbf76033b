// Package telemetry routes progress and warning events to logs and traces.
package telemetry

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/at-ishikawa/quizsync"

// Event is one observable step of an install, a sync or the cache layer.
type Event struct {
	Component string
	ClassID   string
	Step      string
	Progress  int
	Message   string
	Level     slog.Level
	Err       error
}

type Emitter interface {
	Emit(ctx context.Context, event Event)
}

// Tracer returns the tracer used by every component.
func Tracer() trace.Tracer {
	return otel.Tracer(instrumentationName)
}

// SlogEmitter writes events to a structured logger.
type SlogEmitter struct {
	logger *slog.Logger
}

func NewSlogEmitter(logger *slog.Logger) *SlogEmitter {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogEmitter{logger: logger}
}

func (e *SlogEmitter) Emit(ctx context.Context, event Event) {
	attrs := []slog.Attr{
		slog.String("component", event.Component),
		slog.String("step", event.Step),
		slog.Int("progress", event.Progress),
	}
	if event.ClassID != "" {
		attrs = append(attrs, slog.String("class_id", event.ClassID))
	}
	if event.Err != nil {
		attrs = append(attrs, slog.Any("error", event.Err))
	}
	e.logger.LogAttrs(ctx, event.Level, event.Message, attrs...)
}

// TracingEmitter records events on the span carried by the context.
type TracingEmitter struct{}

func (TracingEmitter) Emit(ctx context.Context, event Event) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}
	attrs := []attribute.KeyValue{
		attribute.String("quizsync.component", event.Component),
		attribute.String("quizsync.step", event.Step),
		attribute.Int("quizsync.progress", event.Progress),
		attribute.String("quizsync.message", event.Message),
	}
	if event.ClassID != "" {
		attrs = append(attrs, attribute.String("quizsync.class_id", event.ClassID))
	}
	span.AddEvent(event.Step, trace.WithAttributes(attrs...))
	if event.Err != nil && event.Level >= slog.LevelError {
		span.RecordError(event.Err)
		span.SetStatus(codes.Error, event.Message)
	}
}

// Multi fans an event out to several emitters.
type Multi []Emitter

func (m Multi) Emit(ctx context.Context, event Event) {
	for _, e := range m {
		e.Emit(ctx, event)
	}
}

type nop struct{}

func (nop) Emit(context.Context, Event) {}

// Nop discards every event.
var Nop Emitter = nop{}

// Default logs events with slog.Default and records them on the active span.
func Default() Emitter {
	return Multi{NewSlogEmitter(nil), TracingEmitter{}}
}
