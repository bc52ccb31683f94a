package middleware

import (
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/broady/jrpc"
)

const instrumentationName = "github.com/broady/jrpc/middleware"

// OtelConfig configures OpenTelemetry instrumentation.
type OtelConfig struct {
	// TracerProvider supplies the tracer. Defaults to otel.GetTracerProvider().
	TracerProvider trace.TracerProvider
	// MeterProvider supplies the meter. Defaults to otel.GetMeterProvider().
	MeterProvider metric.MeterProvider
	// ServiceName is the rpc.service attribute value.
	ServiceName string
	// RecordErrors calls RecordError on the span of failed calls.
	RecordErrors bool
	// Attributes are added to every span.
	Attributes []attribute.KeyValue
}

// OtelInterceptor creates an interceptor that starts a server span per
// call and records the rpc.server.requests and rpc.server.duration
// instruments.
func OtelInterceptor(cfg OtelConfig) jrpc.UnaryInterceptor {
	if cfg.TracerProvider == nil {
		cfg.TracerProvider = otel.GetTracerProvider()
	}
	if cfg.MeterProvider == nil {
		cfg.MeterProvider = otel.GetMeterProvider()
	}
	tracer := cfg.TracerProvider.Tracer(instrumentationName)
	meter := cfg.MeterProvider.Meter(instrumentationName)

	// Instrument creation only fails on invalid names; ours are constant.
	requests, _ := meter.Int64Counter("rpc.server.requests",
		metric.WithUnit("{request}"),
		metric.WithDescription("Number of JSON-RPC calls"),
	)
	duration, _ := meter.Float64Histogram("rpc.server.duration",
		metric.WithUnit("s"),
		metric.WithDescription("Duration of JSON-RPC calls"),
	)

	return func(ctx *jrpc.Context, req any, handler jrpc.HandlerFunc) (any, error) {
		attrs := []attribute.KeyValue{
			attribute.String("rpc.system", "jsonrpc"),
			attribute.String("rpc.method", ctx.Method()),
			attribute.String("rpc.jsonrpc.version", jrpc.Version),
		}
		if cfg.ServiceName != "" {
			attrs = append(attrs, attribute.String("rpc.service", cfg.ServiceName))
		}

		spanAttrs := append(append([]attribute.KeyValue{}, attrs...), cfg.Attributes...)
		if id := ctx.ID(); id != nil {
			spanAttrs = append(spanAttrs, attribute.String("rpc.jsonrpc.request_id", string(id)))
		}
		if ctx.Notification() {
			spanAttrs = append(spanAttrs, attribute.Bool("rpc.jsonrpc.notification", true))
		}

		spanCtx, span := tracer.Start(ctx, "jsonrpc/"+ctx.Method(),
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(spanAttrs...),
		)
		defer span.End()

		start := time.Now()
		res, err := handler(spanCtx, req)
		elapsed := time.Since(start)

		status := "ok"
		if rpcErr := ctx.WireError(err); rpcErr != nil {
			status = "error"
			span.SetAttributes(
				attribute.Int("rpc.jsonrpc.error_code", int(rpcErr.Code)),
				attribute.String("rpc.jsonrpc.error_message", rpcErr.Message),
			)
			span.SetStatus(codes.Error, err.Error())
			if cfg.RecordErrors {
				span.RecordError(err)
			}
		} else {
			span.SetStatus(codes.Ok, "")
		}

		metricAttrs := metric.WithAttributes(append(attrs, attribute.String("status", status))...)
		requests.Add(spanCtx, 1, metricAttrs)
		duration.Record(spanCtx, elapsed.Seconds(), metricAttrs)

		return res, err
	}
}
