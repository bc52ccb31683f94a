package middleware

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"

	"github.com/broady/jrpc"
	"github.com/broady/jrpc/testutil"
)

func newOtelTable(t *testing.T) (*jrpc.DispatchTable, *tracetest.SpanRecorder, *sdkmetric.ManualReader) {
	t.Helper()
	spans := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(spans))
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() {
		_ = tp.Shutdown(context.Background())
		_ = mp.Shutdown(context.Background())
	})

	table := newTable(t, OtelInterceptor(OtelConfig{
		TracerProvider: tp,
		MeterProvider:  mp,
		ServiceName:    "items",
		RecordErrors:   true,
	}))
	return table, spans, reader
}

func spanAttr(s sdktrace.ReadOnlySpan, key attribute.Key) (attribute.Value, bool) {
	for _, kv := range s.Attributes() {
		if kv.Key == key {
			return kv.Value, true
		}
	}
	return attribute.Value{}, false
}

func TestOtelInterceptor_Spans(t *testing.T) {
	table, spans, _ := newOtelTable(t)

	testutil.AssertResult(t, testutil.Send(t, table, testutil.NewCall("echo").WithID("r1").WithParams(EchoParams{Text: "a"})), "a")
	testutil.AssertError(t, testutil.Send(t, table, testutil.NewCall("fail")), jrpc.CodeServerError)

	ended := spans.Ended()
	require.Len(t, ended, 2)

	ok := ended[0]
	assert.Equal(t, "jsonrpc/echo", ok.Name())
	assert.Equal(t, trace.SpanKindServer, ok.SpanKind())
	assert.Equal(t, codes.Ok, ok.Status().Code)
	if v, found := spanAttr(ok, "rpc.method"); assert.True(t, found) {
		assert.Equal(t, "echo", v.AsString())
	}
	if v, found := spanAttr(ok, "rpc.service"); assert.True(t, found) {
		assert.Equal(t, "items", v.AsString())
	}
	if v, found := spanAttr(ok, "rpc.jsonrpc.request_id"); assert.True(t, found) {
		assert.Equal(t, `"r1"`, v.AsString())
	}

	failed := ended[1]
	assert.Equal(t, codes.Error, failed.Status().Code)
	assert.Equal(t, "boom", failed.Status().Description)
	if v, found := spanAttr(failed, "rpc.jsonrpc.error_code"); assert.True(t, found) {
		assert.Equal(t, int64(jrpc.CodeServerError), v.AsInt64())
	}
	require.Len(t, failed.Events(), 1)
	assert.Equal(t, "exception", failed.Events()[0].Name)
}

func TestOtelInterceptor_HandlerSeesSpan(t *testing.T) {
	spans := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(spans))
	defer tp.Shutdown(context.Background())

	var inner trace.SpanContext
	table := testutil.Table(t, jrpc.NewBuilder().
		WithClientDir("client").
		Register("probe", jrpc.Func(func(ctx context.Context) (bool, error) {
			inner = trace.SpanContextFromContext(ctx)
			_, ok := jrpc.FromContext(ctx)
			return ok, nil
		})),
		jrpc.WithUnaryInterceptor(OtelInterceptor(OtelConfig{TracerProvider: tp})))

	testutil.AssertResult(t, testutil.Send(t, table, testutil.NewCall("probe")), true)
	require.Len(t, spans.Ended(), 1)
	assert.Equal(t, spans.Ended()[0].SpanContext().SpanID(), inner.SpanID())
}

func TestOtelInterceptor_Metrics(t *testing.T) {
	table, _, reader := newOtelTable(t)

	for range 2 {
		testutil.Send(t, table, testutil.NewCall("echo").WithParams(EchoParams{Text: "a"}))
	}
	testutil.Send(t, table, testutil.NewCall("fail"))

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	require.Len(t, rm.ScopeMetrics, 1)

	byName := map[string]metricdata.Metrics{}
	for _, m := range rm.ScopeMetrics[0].Metrics {
		byName[m.Name] = m
	}

	requests, ok := byName["rpc.server.requests"].Data.(metricdata.Sum[int64])
	require.True(t, ok, "rpc.server.requests missing")
	counts := map[string]int64{}
	for _, dp := range requests.DataPoints {
		method, _ := dp.Attributes.Value("rpc.method")
		status, _ := dp.Attributes.Value("status")
		counts[method.AsString()+"/"+status.AsString()] = dp.Value
	}
	assert.Equal(t, map[string]int64{"echo/ok": 2, "fail/error": 1}, counts)

	duration, ok := byName["rpc.server.duration"].Data.(metricdata.Histogram[float64])
	require.True(t, ok, "rpc.server.duration missing")
	assert.Len(t, duration.DataPoints, 2)
}
