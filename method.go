package jrpc

import (
	"context"
	"fmt"
	"reflect"
)

// Method is a handler declaration awaiting registration on a [Builder].
//
// Handlers have the shape
//
//	func(ctx context.Context, a1 A1, ..., an An) (R, error)
//	func(ctx context.Context, a1 A1, ..., an An) error
//
// By default parameters are structured: the wire params are one JSON object
// decoded into the single argument. Use Positional to accept a JSON array
// decoded argument by argument.
type Method struct {
	fn           reflect.Value
	name         string
	notification bool
	positional   bool
	docs         string
	paramNames   []string
}

// Func creates a method from any function with a supported handler shape.
// The signature is checked by [Builder.Build].
func Func(fn any) *Method {
	return &Method{fn: reflect.ValueOf(fn)}
}

// Handle creates a structured request method from a typed function.
//
// Example:
//
//	b.Register("createUser", jrpc.Handle(CreateUser))
//
//	func CreateUser(ctx context.Context, req *CreateUserParams) (*User, error) {
//	    return &User{Name: req.Name}, nil
//	}
func Handle[Req any, Res any](fn func(context.Context, Req) (Res, error)) *Method {
	return Func(fn)
}

// Notify creates a structured notification method from a typed function.
// The caller never receives a response.
func Notify[Req any](fn func(context.Context, Req) error) *Method {
	return Func(fn).Notification()
}

// Name overrides the wire method name. By default the registered name is used.
func (m *Method) Name(wire string) *Method {
	m.name = wire
	return m
}

// Notification marks the method as fire-and-forget.
// A notification must not return a value other than [Empty].
func (m *Method) Notification() *Method {
	m.notification = true
	return m
}

// Positional makes the method take its params as a JSON array.
func (m *Method) Positional() *Method {
	m.positional = true
	return m
}

// Doc sets the documentation carried into the client and schema.
func (m *Method) Doc(text string) *Method {
	m.docs = text
	return m
}

// ParamNames names the handler's parameters, in order, for generated code.
// Unnamed positional parameters become arg1..argN in the client.
func (m *Method) ParamNames(names ...string) *Method {
	m.paramNames = names
	return m
}

// signature is the checked shape of a handler function.
type signature struct {
	params    []reflect.Type
	result    reflect.Type // nil when the handler returns only error
	hasResult bool
}

func (m *Method) signature() (signature, error) {
	if !m.fn.IsValid() || m.fn.Kind() != reflect.Func {
		return signature{}, fmt.Errorf("handler must be a function, got %s", kindOf(m.fn))
	}
	if m.fn.IsNil() {
		return signature{}, fmt.Errorf("handler is nil")
	}
	ft := m.fn.Type()
	if ft.IsVariadic() {
		return signature{}, fmt.Errorf("variadic handlers are not supported")
	}
	if ft.NumIn() == 0 || ft.In(0) != contextType {
		return signature{}, fmt.Errorf("first parameter must be context.Context")
	}

	var sig signature
	for i := 1; i < ft.NumIn(); i++ {
		sig.params = append(sig.params, ft.In(i))
	}

	switch ft.NumOut() {
	case 1:
		if ft.Out(0) != errorType {
			return signature{}, fmt.Errorf("single return value must be error, got %s", ft.Out(0))
		}
	case 2:
		if ft.Out(1) != errorType {
			return signature{}, fmt.Errorf("second return value must be error, got %s", ft.Out(1))
		}
		sig.result = ft.Out(0)
		sig.hasResult = true
	default:
		return signature{}, fmt.Errorf("handler must return (R, error) or error, got %d results", ft.NumOut())
	}
	return sig, nil
}

func kindOf(v reflect.Value) string {
	if !v.IsValid() {
		return "nil"
	}
	return v.Type().String()
}
