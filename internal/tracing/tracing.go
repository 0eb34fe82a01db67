package tracing

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

const (
	ServiceName    = "mayday"
	ServiceVersion = "1.0.0"
)

// Tracer holds the tracer instance
type Tracer struct {
	tracer trace.Tracer
	tp     *sdktrace.TracerProvider
}

// NewTracer creates a tracer provider and installs it globally
func NewTracer(serviceName, collectorEndpoint string, useOTLP bool) (*Tracer, error) {
	if serviceName == "" {
		serviceName = ServiceName
	}

	res := resource.NewSchemaless(
		attribute.String("service.name", serviceName),
		attribute.String("service.version", ServiceVersion),
	)

	var exp sdktrace.SpanExporter
	var err error

	if useOTLP {
		client := otlptracegrpc.NewClient(
			otlptracegrpc.WithEndpoint(collectorEndpoint),
			otlptracegrpc.WithInsecure(),
		)
		exp, err = otlptrace.New(context.Background(), client)
		if err != nil {
			return nil, fmt.Errorf("failed to create OTLP exporter: %w", err)
		}
	} else {
		exp, err = stdouttrace.New(stdouttrace.WithPrettyPrint())
		if err != nil {
			return nil, fmt.Errorf("failed to create stdout exporter: %w", err)
		}
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(res),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})

	return &Tracer{
		tracer: tp.Tracer(serviceName),
		tp:     tp,
	}, nil
}

// StartSpan starts a new span with the provided name
func (t *Tracer) StartSpan(ctx context.Context, spanName string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, spanName, opts...)
}

// Shutdown flushes pending spans and stops the provider
func (t *Tracer) Shutdown(ctx context.Context) error {
	return t.tp.Shutdown(ctx)
}

// Start opens a span on the global provider. Without NewTracer it is a no-op span.
func Start(ctx context.Context, spanName string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return otel.Tracer(ServiceName).Start(ctx, spanName, trace.WithAttributes(attrs...))
}

// AddAttributes adds attributes to the current span
func AddAttributes(ctx context.Context, attrs ...attribute.KeyValue) {
	span := trace.SpanFromContext(ctx)
	if span.SpanContext().IsValid() {
		span.SetAttributes(attrs...)
	}
}

// AddEvent adds an event to the current span
func AddEvent(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	span := trace.SpanFromContext(ctx)
	if span.SpanContext().IsValid() {
		span.AddEvent(name, trace.WithAttributes(attrs...))
	}
}

// SetSpanError marks the current span as having an error
func SetSpanError(ctx context.Context, err error) {
	span := trace.SpanFromContext(ctx)
	if span.SpanContext().IsValid() && err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

// ScanTracingAttrs returns common attributes for directory scans
func ScanTracingAttrs(rootPath string, workers int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("component", "scanner"),
		attribute.String("scan.root", rootPath),
		attribute.Int("scan.workers", workers),
	}
}

// ReconcileTracingAttrs returns common attributes for reconciling one file
func ReconcileTracingAttrs(filePath, title, album string) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String("component", "catalog"),
		attribute.String("file.path", filePath),
		attribute.String("song.title", title),
	}
	if album != "" {
		attrs = append(attrs, attribute.String("album.name", album))
	}
	return attrs
}

// LyricsTracingAttrs returns common attributes for lyric loading
func LyricsTracingAttrs(dir string, dryRun, overwrite bool) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("component", "lyrics"),
		attribute.String("lyrics.dir", dir),
		attribute.Bool("lyrics.dry_run", dryRun),
		attribute.Bool("lyrics.overwrite", overwrite),
	}
}

// JobProcessingTracingAttrs returns common attributes for job processing operations
func JobProcessingTracingAttrs(jobID, queue, jobType string, attempt int) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String("component", "job.processing"),
	}

	if jobID != "" {
		attrs = append(attrs, attribute.String("job.id", jobID))
	}
	if queue != "" {
		attrs = append(attrs, attribute.String("job.queue", queue))
	}
	if jobType != "" {
		attrs = append(attrs, attribute.String("job.type", jobType))
	}
	attrs = append(attrs, attribute.Int("job.attempt", attempt))

	return attrs
}
