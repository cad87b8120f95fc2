package telemetry

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func newTestManager(t *testing.T) (*Manager, *tracetest.InMemoryExporter, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	exporter := tracetest.NewInMemoryExporter()
	mgr, err := NewManager(Config{
		TracerProvider: sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sdktrace.NewSimpleSpanProcessor(exporter))),
		MeterProvider:  sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)),
	})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	t.Cleanup(func() { _ = mgr.Shutdown(context.Background()) })
	return mgr, exporter, reader
}

func TestInvokeSpanAndMetrics(t *testing.T) {
	mgr, exporter, reader := newTestManager(t)
	ctx := context.Background()

	_, span := mgr.StartInvoke(ctx, "genestack/signin", "whoami", "call-1")
	EndSpan(span, nil)
	mgr.RecordInvoke(ctx, InvokeData{Application: "genestack/signin", Method: "whoami", Duration: 5 * time.Millisecond})

	_, span = mgr.StartInvoke(ctx, "genestack/signin", "whoami", "call-2")
	EndSpan(span, errors.New("boom"))
	mgr.RecordInvoke(ctx, InvokeData{Application: "genestack/signin", Method: "whoami", Error: errors.New("boom")})

	spans := exporter.GetSpans()
	if len(spans) != 2 {
		t.Fatalf("expected 2 spans, got %d", len(spans))
	}
	if spans[0].Name != "genestack.invoke" || spans[0].Status.Code != codes.Ok {
		t.Fatalf("unexpected first span %+v", spans[0])
	}
	if spans[1].Status.Code != codes.Error {
		t.Fatalf("expected error status, got %v", spans[1].Status)
	}

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(ctx, &rm); err != nil {
		t.Fatalf("collect: %v", err)
	}
	var total int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != "genestack.invocations.total" {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				t.Fatalf("unexpected data type %T", m.Data)
			}
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
		}
	}
	if total != 2 {
		t.Fatalf("expected 2 invocations recorded, got %d", total)
	}
}

func TestUploadMetrics(t *testing.T) {
	mgr, exporter, reader := newTestManager(t)
	ctx := context.Background()

	_, span := mgr.StartUpload(ctx, "genestack/files", "reads.fastq")
	EndSpan(span, nil)
	mgr.RecordUpload(ctx, UploadData{Application: "genestack/files", File: "reads.fastq", Bytes: 1024, Hops: 3})

	if spans := exporter.GetSpans(); len(spans) != 1 || spans[0].Name != "genestack.upload" {
		t.Fatalf("unexpected spans %+v", spans)
	}

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(ctx, &rm); err != nil {
		t.Fatalf("collect: %v", err)
	}
	var bytes int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if sum, ok := m.Data.(metricdata.Sum[int64]); ok && m.Name == "genestack.upload.bytes" {
				for _, dp := range sum.DataPoints {
					bytes += dp.Value
				}
			}
		}
	}
	if bytes != 1024 {
		t.Fatalf("expected 1024 bytes recorded, got %d", bytes)
	}
}

func TestNilManager(t *testing.T) {
	var mgr *Manager
	ctx := context.Background()
	gotCtx, span := mgr.StartInvoke(ctx, "a/b", "m", "id")
	if gotCtx != ctx {
		t.Fatal("nil manager must return the incoming context")
	}
	EndSpan(span, nil)
	mgr.RecordInvoke(ctx, InvokeData{})
	mgr.RecordUpload(ctx, UploadData{})
	if err := mgr.Shutdown(ctx); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}

func TestNilManagerLeavesCallerSpan(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sdktrace.NewSimpleSpanProcessor(exporter)))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	ctx, caller := tp.Tracer("caller").Start(context.Background(), "caller-operation")

	var mgr *Manager
	_, span := mgr.StartInvoke(ctx, "a/b", "m", "id")
	EndSpan(span, errors.New("boom"))
	_, span = mgr.StartUpload(ctx, "a/b", "reads.fastq")
	EndSpan(span, nil)

	if !caller.IsRecording() {
		t.Fatal("caller span was ended")
	}
	caller.End()

	spans := exporter.GetSpans()
	if len(spans) != 1 || spans[0].Name != "caller-operation" {
		t.Fatalf("unexpected spans %+v", spans)
	}
	if spans[0].Status.Code != codes.Unset {
		t.Fatalf("caller status overwritten: %v", spans[0].Status)
	}
}
