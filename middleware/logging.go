// Package middleware provides interceptors for jrpc dispatch tables.
package middleware

import (
	"log/slog"
	"time"

	"github.com/broady/jrpc"
)

// LoggingInterceptor creates an interceptor that logs calls using slog.
// It logs the start and end of each call, including duration and, on
// failure, the JSON-RPC error code the error maps to.
func LoggingInterceptor(logger *slog.Logger) jrpc.UnaryInterceptor {
	if logger == nil {
		logger = slog.Default()
	}

	return func(ctx *jrpc.Context, req any, handler jrpc.HandlerFunc) (any, error) {
		start := time.Now()
		attrs := callAttrs(ctx)

		logger.LogAttrs(ctx, slog.LevelInfo, "call started", attrs...)

		res, err := handler(ctx, req)
		attrs = append(attrs, slog.Duration("duration", time.Since(start)))

		if rpcErr := ctx.WireError(err); rpcErr != nil {
			attrs = append(attrs,
				slog.String("code", rpcErr.Code.String()),
				slog.Any("error", err),
			)
			logger.LogAttrs(ctx, slog.LevelError, "call failed", attrs...)
		} else {
			logger.LogAttrs(ctx, slog.LevelInfo, "call completed", attrs...)
		}

		return res, err
	}
}

func callAttrs(ctx *jrpc.Context) []slog.Attr {
	attrs := []slog.Attr{slog.String("method", ctx.Method())}
	if id := ctx.ID(); id != nil {
		attrs = append(attrs, slog.String("id", string(id)))
	}
	if ctx.Notification() {
		attrs = append(attrs, slog.Bool("notification", true))
	}
	return attrs
}
