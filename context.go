package jrpc

import (
	"context"
	"encoding/json"
	"reflect"
)

type contextKey struct {
	name string
}

var callKey = &contextKey{"call"}

// Context carries the metadata of the call being dispatched.
// It is passed to interceptors and is reachable from handlers with
// [FromContext].
type Context struct {
	context.Context
	method       string
	exposedName  string
	notification bool
	positional   bool
	id           json.RawMessage
	transform    func(error) *Error
}

// Method returns the wire name of the method.
func (c *Context) Method() string {
	return c.method
}

// ExposedName returns the client-side name of the method.
func (c *Context) ExposedName() string {
	return c.exposedName
}

// Notification reports whether the caller expects no response.
func (c *Context) Notification() bool {
	return c.notification
}

// Positional reports whether the params were decoded from a JSON array.
func (c *Context) Positional() bool {
	return c.positional
}

// ID returns the raw request id, or nil when the call did not arrive
// through HandleMessage.
func (c *Context) ID() json.RawMessage {
	return c.id
}

// WireError returns err as the caller receives it, mapped by the table's
// error transformer and masking. It returns nil for a nil error, including
// a nil pointer stored in err.
func (c *Context) WireError(err error) *Error {
	if err == nil || isNilError(reflect.ValueOf(&err).Elem()) {
		return nil
	}
	if c.transform != nil {
		return c.transform(err)
	}
	return DefaultErrorTransformer(err)
}

// FromContext returns the call Context stored in ctx.
func FromContext(ctx context.Context) (*Context, bool) {
	if c, ok := ctx.(*Context); ok {
		return c, true
	}
	c, ok := ctx.Value(callKey).(*Context)
	return c, ok
}

// MethodFromContext returns the wire name of the current call.
func MethodFromContext(ctx context.Context) (string, bool) {
	if c, ok := FromContext(ctx); ok {
		return c.method, true
	}
	return "", false
}

// with returns a Context carrying the same call metadata over parent,
// which is typically ctx wrapped by an interceptor.
func (c *Context) with(parent context.Context) *Context {
	if pc, ok := parent.(*Context); ok {
		return pc
	}
	cp := *c
	cp.Context = parent
	return &cp
}

type idKey struct{}

// withRequestID attaches a frame id for the call Context to pick up.
func withRequestID(ctx context.Context, id json.RawMessage) context.Context {
	return context.WithValue(ctx, idKey{}, id)
}

func newContext(parent context.Context, d *MethodDescriptor) *Context {
	c := &Context{
		method:       d.RPCName,
		exposedName:  d.ExposedName,
		notification: d.Notification,
		positional:   d.Params.Kind == ShapePositional,
	}
	if id, ok := parent.Value(idKey{}).(json.RawMessage); ok {
		c.id = id
	}
	c.Context = context.WithValue(parent, callKey, c)
	return c
}
