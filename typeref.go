package jrpc

import (
	"context"
	"reflect"
)

// Empty represents a unit result.
// Handlers that return only error have an Empty result.
// The zero value is nil, which serializes to JSON null.
//
// Example:
//
//	func DeleteUser(ctx context.Context, req DeleteUserParams) (jrpc.Empty, error) {
//	    // ... delete user
//	    return nil, nil
//	}
//
// Wire format: {"jsonrpc":"2.0","id":1,"result":null}
type Empty *struct{}

// UnitKey is the identity key of the unit type.
const UnitKey = "unit"

var (
	emptyType   = reflect.TypeOf(Empty(nil))
	errorType   = reflect.TypeOf((*error)(nil)).Elem()
	contextType = reflect.TypeOf((*context.Context)(nil)).Elem()
)

// TypeRef refers to a Go type used as a parameter or result.
type TypeRef struct {
	Type reflect.Type

	// Key identifies the type across the registry and the generated
	// artifacts. Pointers share the key of their element type.
	Key string
}

// IsUnit reports whether the reference is the unit type.
func (r TypeRef) IsUnit() bool {
	return r.Key == UnitKey
}

// Elem returns the type with pointers removed.
func (r TypeRef) Elem() reflect.Type {
	t := r.Type
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t
}

func unitRef() TypeRef {
	return TypeRef{Type: emptyType, Key: UnitKey}
}

// newTypeRef computes the identity key for t.
func newTypeRef(t reflect.Type) TypeRef {
	if t == emptyType {
		return unitRef()
	}
	return TypeRef{Type: t, Key: TypeKey(t)}
}

// TypeKey returns the identity key for t: "pkgpath.Name" for named types,
// the bare name for predeclared types and the type string otherwise.
func TypeKey(t reflect.Type) string {
	if t == emptyType {
		return UnitKey
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Name() != "" {
		if t.PkgPath() == "" {
			return t.Name()
		}
		return t.PkgPath() + "." + t.Name()
	}
	return t.String()
}
