package telemetry

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const instrumentationName = "github.com/beanbocchi/genestack"

var (
	attrApplication = attribute.Key("genestack.application")
	attrMethod      = attribute.Key("genestack.method")
	attrCallID      = attribute.Key("genestack.call_id")
	attrFile        = attribute.Key("genestack.upload.file")
	attrHops        = attribute.Key("genestack.upload.hops")
	attrError       = attribute.Key("genestack.error")
)

// Config drives how telemetry is initialized. Nil providers fall back to
// fresh SDK providers.
type Config struct {
	TracerProvider trace.TracerProvider
	MeterProvider  metric.MeterProvider
}

// Manager records spans and metrics for invocations and uploads. A nil
// *Manager is valid and records nothing.
type Manager struct {
	tracer trace.Tracer

	invocations metric.Int64Counter
	latency     metric.Float64Histogram
	uploadBytes metric.Int64Counter

	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
}

// InvokeData describes one finished invocation.
type InvokeData struct {
	Application string
	Method      string
	Duration    time.Duration
	Error       error
}

// UploadData describes one finished upload.
type UploadData struct {
	Application string
	File        string
	Bytes       int64
	Hops        int
	Error       error
}

func NewManager(cfg Config) (*Manager, error) {
	tp := cfg.TracerProvider
	if tp == nil {
		tp = sdktrace.NewTracerProvider()
	}
	mp := cfg.MeterProvider
	if mp == nil {
		mp = sdkmetric.NewMeterProvider()
	}
	meter := mp.Meter(instrumentationName)

	invocations, err := meter.Int64Counter("genestack.invocations.total", metric.WithDescription("Total number of application method invocations."))
	if err != nil {
		return nil, err
	}
	latency, err := meter.Float64Histogram("genestack.invoke.latency.ms", metric.WithDescription("Invocation latency in milliseconds."), metric.WithUnit("ms"))
	if err != nil {
		return nil, err
	}
	uploadBytes, err := meter.Int64Counter("genestack.upload.bytes", metric.WithDescription("Bytes acknowledged by the server during uploads."), metric.WithUnit("By"))
	if err != nil {
		return nil, err
	}

	return &Manager{
		tracer:         tp.Tracer(instrumentationName),
		invocations:    invocations,
		latency:        latency,
		uploadBytes:    uploadBytes,
		tracerProvider: tp,
		meterProvider:  mp,
	}, nil
}

// StartInvoke opens a span for an invocation. Without a tracer it returns
// ctx unchanged and a no-op span, never the span already in ctx.
func (m *Manager) StartInvoke(ctx context.Context, application, method, callID string) (context.Context, trace.Span) {
	if m == nil || m.tracer == nil {
		return ctx, noop.Span{}
	}
	return m.tracer.Start(ctx, "genestack.invoke", trace.WithAttributes(
		attrApplication.String(application),
		attrMethod.String(method),
		attrCallID.String(callID),
	))
}

// StartUpload opens a span for an upload.
func (m *Manager) StartUpload(ctx context.Context, application, file string) (context.Context, trace.Span) {
	if m == nil || m.tracer == nil {
		return ctx, noop.Span{}
	}
	return m.tracer.Start(ctx, "genestack.upload", trace.WithAttributes(
		attrApplication.String(application),
		attrFile.String(file),
	))
}

func (m *Manager) RecordInvoke(ctx context.Context, data InvokeData) {
	if m == nil || m.invocations == nil {
		return
	}
	attrs := metric.WithAttributes(
		attrApplication.String(data.Application),
		attrMethod.String(data.Method),
		attrError.Bool(data.Error != nil),
	)
	m.invocations.Add(ctx, 1, attrs)
	if data.Duration > 0 {
		m.latency.Record(ctx, float64(data.Duration.Milliseconds()), attrs)
	}
}

func (m *Manager) RecordUpload(ctx context.Context, data UploadData) {
	if m == nil || m.uploadBytes == nil {
		return
	}
	m.uploadBytes.Add(ctx, data.Bytes, metric.WithAttributes(
		attrApplication.String(data.Application),
		attrHops.Int(data.Hops),
		attrError.Bool(data.Error != nil),
	))
}

// Shutdown flushes and stops providers that support it.
func (m *Manager) Shutdown(ctx context.Context) error {
	if m == nil {
		return nil
	}
	var result error
	if closer, ok := m.tracerProvider.(interface {
		Shutdown(context.Context) error
	}); ok {
		result = errors.Join(result, closer.Shutdown(ctx))
	}
	if closer, ok := m.meterProvider.(interface {
		Shutdown(context.Context) error
	}); ok {
		result = errors.Join(result, closer.Shutdown(ctx))
	}
	return result
}

// EndSpan finalizes span state while standardizing error recording.
func EndSpan(span trace.Span, err error) {
	if span == nil {
		return
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "ok")
	}
	span.End()
}
