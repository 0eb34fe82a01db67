package tracing

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestSpansRecordAttributesAndErrors(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	tr := &Tracer{tracer: tp.Tracer(ServiceName), tp: tp}

	ctx, span := tr.StartSpan(context.Background(), "scan")
	AddAttributes(ctx, ScanTracingAttrs("/music", 4)...)
	AddEvent(ctx, "file", attribute.String("file.path", "/music/a.mp3"))
	SetSpanError(ctx, errors.New("boom"))
	span.End()

	spans := recorder.Ended()
	if assert.Len(t, spans, 1) {
		s := spans[0]
		assert.Equal(t, "scan", s.Name())
		assert.Contains(t, s.Attributes(), attribute.String("scan.root", "/music"))
		assert.Len(t, s.Events(), 2) // custom event plus the recorded error
		assert.Equal(t, "boom", s.Status().Description)
	}
	assert.NoError(t, tr.Shutdown(context.Background()))
}

func TestStart_WithoutProviderIsNoop(t *testing.T) {
	ctx, span := Start(context.Background(), "noop")
	defer span.End()
	assert.NotPanics(t, func() {
		AddAttributes(ctx, attribute.Int("n", 1))
		SetSpanError(ctx, errors.New("ignored"))
	})
}

func TestReconcileTracingAttrs(t *testing.T) {
	assert.Len(t, ReconcileTracingAttrs("/a.mp3", "x", ""), 3)
	assert.Len(t, ReconcileTracingAttrs("/a.mp3", "x", "Album X"), 4)
	assert.Len(t, JobProcessingTracingAttrs("", "default", "scan:directory", 1), 4)
}
