package middleware

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/broady/jrpc"
)

// Metrics holds Prometheus collectors for dispatched calls.
type Metrics struct {
	// CallsTotal counts finished calls by method and outcome code.
	// The code label is "ok" for successful calls.
	CallsTotal *prometheus.CounterVec

	// CallDuration observes handler latency by method.
	CallDuration *prometheus.HistogramVec

	// CallsInFlight tracks calls currently inside a handler.
	CallsInFlight *prometheus.GaugeVec
}

// NewMetrics creates the collectors under the given namespace.
// Register them with Register before use.
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		CallsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "jsonrpc",
			Name:      "calls_total",
			Help:      "Total number of JSON-RPC calls by method and outcome",
		}, []string{"method", "code"}),

		CallDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "jsonrpc",
			Name:      "call_duration_seconds",
			Help:      "Duration of JSON-RPC handler execution",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),

		CallsInFlight: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "jsonrpc",
			Name:      "calls_in_flight",
			Help:      "Number of JSON-RPC calls being handled",
		}, []string{"method"}),
	}
}

// Register registers all collectors with reg.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{m.CallsTotal, m.CallDuration, m.CallsInFlight} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// Interceptor returns an interceptor that records every call.
func (m *Metrics) Interceptor() jrpc.UnaryInterceptor {
	return func(ctx *jrpc.Context, req any, handler jrpc.HandlerFunc) (any, error) {
		method := ctx.Method()
		inFlight := m.CallsInFlight.WithLabelValues(method)
		inFlight.Inc()
		defer inFlight.Dec()

		start := time.Now()
		res, err := handler(ctx, req)
		m.CallDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())

		code := "ok"
		if rpcErr := ctx.WireError(err); rpcErr != nil {
			code = rpcErr.Code.String()
		}
		m.CallsTotal.WithLabelValues(method, code).Inc()
		return res, err
	}
}
