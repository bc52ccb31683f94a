package jrpc

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"reflect"
	"runtime/debug"
)

// OutcomeKind is the result category of a dispatched call.
type OutcomeKind int

const (
	// OutcomeResponse: the call succeeded and Result holds the encoded value.
	OutcomeResponse OutcomeKind = iota
	// OutcomeNoResponse: the method is a notification; nothing is sent back.
	OutcomeNoResponse
	// OutcomeFailed: the call failed and Err holds the error object.
	OutcomeFailed
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeResponse:
		return "Response"
	case OutcomeNoResponse:
		return "NoResponse"
	case OutcomeFailed:
		return "Failed"
	default:
		return fmt.Sprintf("OutcomeKind(%d)", int(k))
	}
}

// Outcome is the result of dispatching one call.
type Outcome struct {
	Kind   OutcomeKind
	Result json.RawMessage
	Err    *Error
}

func failed(err *Error) Outcome {
	return Outcome{Kind: OutcomeFailed, Err: err}
}

// DispatchTable routes calls to the handlers of a Registry.
// It is immutable and safe for concurrent use; each call runs on the
// caller's goroutine.
type DispatchTable struct {
	entries            map[string]*entry
	order              []string
	interceptors       []UnaryInterceptor
	interceptor        UnaryInterceptor
	errorTransformer   ErrorTransformer
	maskInternalErrors bool
	logger             *slog.Logger
}

type entry struct {
	desc   *MethodDescriptor
	decode decoder
}

// DispatchOption configures a DispatchTable.
type DispatchOption func(*DispatchTable)

// WithLogger sets a custom logger for the table.
// If not set, slog.Default() will be used.
func WithLogger(logger *slog.Logger) DispatchOption {
	return func(t *DispatchTable) {
		t.logger = logger
	}
}

// WithUnaryInterceptor adds an interceptor around every handler.
// Interceptors execute in the order they were added.
func WithUnaryInterceptor(i UnaryInterceptor) DispatchOption {
	return func(t *DispatchTable) {
		t.interceptors = append(t.interceptors, i)
	}
}

// WithErrorTransformer adds a custom error transformer for handler errors.
func WithErrorTransformer(fn ErrorTransformer) DispatchOption {
	return func(t *DispatchTable) {
		t.errorTransformer = fn
	}
}

// WithMaskInternalErrors hides the message of internal and unclassified
// server errors from callers. Interceptors still see the original error.
func WithMaskInternalErrors() DispatchOption {
	return func(t *DispatchTable) {
		t.maskInternalErrors = true
	}
}

// NewDispatchTable compiles the registry into a dispatch table.
// Each method's decoder is chosen once here.
func NewDispatchTable(reg *Registry, opts ...DispatchOption) *DispatchTable {
	t := &DispatchTable{
		entries: make(map[string]*entry, len(reg.methods)),
	}
	for _, opt := range opts {
		opt(t)
	}
	t.interceptor = chainInterceptors(t.interceptors)

	for _, d := range reg.methods {
		t.entries[d.RPCName] = &entry{desc: d, decode: newDecoder(d)}
		t.order = append(t.order, d.RPCName)
	}
	return t
}

// Methods returns the wire names in registration order.
func (t *DispatchTable) Methods() []string {
	out := make([]string, len(t.order))
	copy(out, t.order)
	return out
}

func (t *DispatchTable) log() *slog.Logger {
	if t.logger != nil {
		return t.logger
	}
	return slog.Default()
}

// Dispatch decodes params for the named method, invokes its handler and
// encodes the outcome. Absent params may be passed as nil.
//
// Notifications always yield OutcomeNoResponse; their failures are logged.
func (t *DispatchTable) Dispatch(ctx context.Context, method string, params json.RawMessage) Outcome {
	e, ok := t.entries[method]
	if !ok {
		return failed(Errorf(CodeMethodNotFound, "method not found: %s", method).WithData("method", method))
	}
	d := e.desc
	jc := newContext(ctx, d)
	jc.transform = t.transformError

	req, derr := e.decode(params)
	if derr != nil {
		if d.Notification {
			t.logNotificationFailure(jc, derr)
			return Outcome{Kind: OutcomeNoResponse}
		}
		return failed(derr)
	}

	res, err := t.invoke(jc, e, req)
	if err != nil && isNilError(reflect.ValueOf(&err).Elem()) {
		err = nil
	}
	if d.Notification {
		if err != nil {
			t.logNotificationFailure(jc, err)
		}
		return Outcome{Kind: OutcomeNoResponse}
	}
	if err != nil {
		return failed(t.transformError(err))
	}

	if d.Result.IsUnit() {
		return Outcome{Kind: OutcomeResponse, Result: json.RawMessage(nullJSON)}
	}
	data, err := json.Marshal(res)
	if err != nil {
		t.log().Error("failed to encode result",
			slog.String("method", d.RPCName),
			slog.Any("error", err))
		return failed(t.transformError(Errorf(CodeInternal, "failed to encode result: %v", err)))
	}
	return Outcome{Kind: OutcomeResponse, Result: data}
}

func (t *DispatchTable) logNotificationFailure(ctx *Context, err error) {
	t.log().WarnContext(ctx, "notification failed",
		slog.String("method", ctx.Method()),
		slog.Any("error", err))
}

// invoke runs the handler through the interceptor chain, recovering panics.
func (t *DispatchTable) invoke(ctx *Context, e *entry, req any) (res any, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			t.log().ErrorContext(ctx, "PANIC recovered",
				slog.String("method", e.desc.RPCName),
				slog.Any("panic", rec),
				slog.String("stack", string(debug.Stack())))
			res = nil
			err = Errorf(CodeInternal, "internal error (panic): %v", rec)
		}
	}()

	final := func(c context.Context, req any) (any, error) {
		return e.call(c, req)
	}
	if t.interceptor != nil {
		return t.interceptor(ctx, req, final)
	}
	return final(ctx, req)
}

// call converts req back into handler arguments and calls the handler.
func (e *entry) call(ctx context.Context, req any) (any, error) {
	params := e.desc.Params.Params
	in := make([]reflect.Value, 0, len(params)+1)
	in = append(in, reflect.ValueOf(&ctx).Elem())

	if e.desc.Params.Kind == ShapePositional {
		list, ok := req.([]any)
		if !ok || len(list) != len(params) {
			return nil, Errorf(CodeInternal, "interceptor modified request type incorrectly")
		}
		for i, p := range params {
			v, err := argValue(list[i], p.Type.Type)
			if err != nil {
				return nil, err
			}
			in = append(in, v)
		}
	} else if len(params) == 1 {
		v, err := argValue(req, params[0].Type.Type)
		if err != nil {
			return nil, err
		}
		in = append(in, v)
	}

	out := e.desc.fn.Call(in)
	errVal := out[len(out)-1]
	if !isNilError(errVal) {
		err := errVal.Interface().(error)
		if len(out) == 2 {
			return out[0].Interface(), err
		}
		return nil, err
	}
	if len(out) == 2 {
		return out[0].Interface(), nil
	}
	return nil, nil
}

// isNilError reports whether an error result is nil, including a nil
// pointer stored in the error interface.
func isNilError(v reflect.Value) bool {
	if v.IsNil() {
		return true
	}
	e := v.Elem()
	switch e.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
		return e.IsNil()
	}
	return false
}

func argValue(v any, t reflect.Type) (reflect.Value, error) {
	if v == nil {
		return reflect.Zero(t), nil
	}
	rv := reflect.ValueOf(v)
	if !rv.Type().AssignableTo(t) {
		return reflect.Value{}, Errorf(CodeInternal, "interceptor modified request type incorrectly: got %s, want %s", rv.Type(), t)
	}
	return rv, nil
}

func (t *DispatchTable) transformError(err error) *Error {
	var rpcErr *Error
	if t.errorTransformer != nil {
		rpcErr = t.errorTransformer(err)
	}
	if rpcErr == nil {
		rpcErr = DefaultErrorTransformer(err)
	}
	if rpcErr == nil {
		rpcErr = NewError(CodeInternal, "internal error")
	}
	if t.maskInternalErrors && (rpcErr.Code == CodeInternal || rpcErr.Code == CodeServerError) {
		return NewError(rpcErr.Code, "internal server error")
	}
	return rpcErr
}
