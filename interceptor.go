package jrpc

import (
	"context"
)

// HandlerFunc represents the next handler in an interceptor chain.
// It is passed to [UnaryInterceptor] functions to invoke the next interceptor
// or the final handler.
type HandlerFunc func(ctx context.Context, req any) (res any, err error)

// UnaryInterceptor is a hook that wraps handler execution.
//
// Interceptors receive *Context for access to call metadata:
//
//	func timing(ctx *jrpc.Context, req any, handler jrpc.HandlerFunc) (any, error) {
//	    start := time.Now()
//	    res, err := handler(ctx, req)
//	    log.Printf("%s took %v", ctx.Method(), time.Since(start))
//	    return res, err
//	}
//
// req is the decoded structured argument (nil when the method takes none),
// or a []any holding the decoded arguments of a positional method.
// Interceptors may replace req with a value of the same shape, short-circuit
// by returning an error, or add values to the context.
type UnaryInterceptor func(ctx *Context, req any, handler HandlerFunc) (res any, err error)

// chainInterceptors combines multiple interceptors into a single one.
// The first interceptor in the slice is the outer-most one (runs first).
func chainInterceptors(interceptors []UnaryInterceptor) UnaryInterceptor {
	if len(interceptors) == 0 {
		return nil
	}
	if len(interceptors) == 1 {
		return interceptors[0]
	}
	return func(ctx *Context, req any, handler HandlerFunc) (any, error) {
		// Chain: i[0] -> i[1] -> ... -> handler
		chain := handler
		for i := len(interceptors) - 1; i >= 0; i-- {
			current := interceptors[i]
			next := chain
			chain = func(c context.Context, req any) (any, error) {
				return current(ctx.with(c), req, next)
			}
		}
		return chain(ctx, req)
	}
}
