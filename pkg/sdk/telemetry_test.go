package sdk

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/beanbocchi/genestack/internal/testserver"
	"github.com/beanbocchi/genestack/pkg/telemetry"
)

func TestSessionTelemetry(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	reader := sdkmetric.NewManualReader()
	mgr, err := telemetry.NewManager(telemetry.Config{
		TracerProvider: sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sdktrace.NewSimpleSpanProcessor(exporter))),
		MeterProvider:  sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = mgr.Shutdown(context.Background()) })

	srv, app, _ := uploadSession(t, testserver.Options{ChunkSize: 100}, func(c *SessionConfig) {
		c.Telemetry = mgr
	})
	path, _ := writeTempFile(t, "reads.fastq", 250)
	ctx := context.Background()

	_, err = app.UploadFile(ctx, path, srv.IssueToken(app.ID()))
	require.NoError(t, err)
	_, err = app.Invoke(ctx, "missing")
	require.Error(t, err)

	var names []string
	for _, span := range exporter.GetSpans() {
		names = append(names, span.Name)
	}
	// authenticate and getCurrentVersion during login, then the upload and
	// the failed call.
	require.Equal(t, []string{"genestack.invoke", "genestack.invoke", "genestack.upload", "genestack.invoke"}, names)

	spans := exporter.GetSpans()
	require.Equal(t, codes.Ok, spans[2].Status.Code)
	require.Equal(t, codes.Error, spans[3].Status.Code)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))

	var invocations, uploaded int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				continue
			}
			for _, point := range sum.DataPoints {
				switch m.Name {
				case "genestack.invocations.total":
					invocations += point.Value
				case "genestack.upload.bytes":
					uploaded += point.Value
				}
			}
		}
	}
	require.Equal(t, int64(3), invocations)
	require.Equal(t, int64(250), uploaded)
}

func TestNilTelemetryLeavesCallerSpan(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sdktrace.NewSimpleSpanProcessor(exporter)))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	srv, app, _ := uploadSession(t, testserver.Options{ChunkSize: 64})
	path, _ := writeTempFile(t, "reads.fastq", 200)

	ctx, caller := tp.Tracer("caller").Start(context.Background(), "caller-operation")

	_, err := app.Session().Login(ctx, testEmail, testPassword)
	require.NoError(t, err)
	_, err = app.Invoke(ctx, "missing")
	require.Error(t, err)
	_, err = app.UploadFile(ctx, path, srv.IssueToken(app.ID()))
	require.NoError(t, err)

	require.True(t, caller.IsRecording(), "caller span ended by the session")
	caller.End()

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	require.Equal(t, "caller-operation", spans[0].Name)
	require.Equal(t, codes.Unset, spans[0].Status.Code)
}
