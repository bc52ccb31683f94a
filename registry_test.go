package jrpc

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type User struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type GetUserParams struct {
	ID int `json:"id"`
}

func getUser(ctx context.Context, p GetUserParams) (*User, error) {
	return &User{ID: p.ID, Name: "u"}, nil
}

func ping(ctx context.Context) error { return nil }

func add(ctx context.Context, a, b int) (int, error) { return a + b, nil }

func validationKinds(t *testing.T, err error) []ValidationErrorKind {
	t.Helper()
	var kinds []ValidationErrorKind
	for _, e := range err.(interface{ Unwrap() []error }).Unwrap() {
		var ve *ValidationError
		require.True(t, errors.As(e, &ve), "unexpected error type %T", e)
		kinds = append(kinds, ve.Kind)
	}
	return kinds
}

func TestBuild(t *testing.T) {
	reg, err := NewBuilder().
		WithClientDir("client").
		Register("getUser", Handle(getUser).Doc("Fetch a user.")).
		Register("ping", Func(ping)).
		Register("add", Func(add).Positional().ParamNames("a")).
		Build()
	require.NoError(t, err)

	methods := reg.Methods()
	require.Len(t, methods, 3)

	get := methods[0]
	assert.Equal(t, "getUser", get.RPCName)
	assert.Equal(t, ShapeStructured, get.Params.Kind)
	require.Len(t, get.Params.Params, 1)
	assert.Equal(t, "github.com/broady/jrpc.GetUserParams", get.Params.Params[0].Type.Key)
	require.NotNil(t, get.Result)
	assert.Equal(t, "github.com/broady/jrpc.User", get.Result.Key)
	assert.Equal(t, "Fetch a user.", get.Docs)
	assert.Equal(t, "params", get.ArgName(0))

	p := methods[1]
	require.NotNil(t, p.Result)
	assert.True(t, p.Result.IsUnit())
	assert.Empty(t, p.Params.Params)

	sum := methods[2]
	assert.Equal(t, ShapePositional, sum.Params.Kind)
	assert.Equal(t, "int", sum.Params.Params[0].Type.Key)
	assert.Equal(t, "a", sum.ArgName(0))
	assert.Equal(t, "arg2", sum.ArgName(1))

	d, ok := reg.Lookup("add")
	assert.True(t, ok)
	assert.Same(t, sum, d)
	assert.Equal(t, Targets{ClientDir: "client"}, reg.Targets())
}

func TestBuild_ExposedName(t *testing.T) {
	reg, err := NewBuilder().
		WithSchemaFile("api.json").
		Register("GetUser", Handle(getUser)).
		Register("x", Func(ping).Name("user_ping")).
		Build()
	require.NoError(t, err)

	methods := reg.Methods()
	assert.Equal(t, "getUser", methods[0].ExposedName)
	assert.Equal(t, "user_ping", methods[1].RPCName)
	assert.Equal(t, "userPing", methods[1].ExposedName)
}

func TestBuild_AllPositional(t *testing.T) {
	reg, err := NewBuilder().
		AllPositional().
		WithClientDir("c").
		Register("getUser", Handle(getUser)).
		Register("add", Func(add)).
		Build()
	require.NoError(t, err)
	for _, m := range reg.Methods() {
		assert.Equal(t, ShapePositional, m.Params.Kind, m.RPCName)
	}
	assert.Equal(t, "arg1", reg.Methods()[0].ArgName(0))
}

func TestBuild_DuplicateName(t *testing.T) {
	_, err := NewBuilder().
		WithClientDir("c").
		Register("ping", Func(ping)).
		Register("other", Func(ping).Name("ping")).
		Build()
	require.Error(t, err)
	assert.Equal(t, []ValidationErrorKind{DuplicateName}, validationKinds(t, err))
}

func TestBuild_DuplicateExposedName(t *testing.T) {
	_, err := NewBuilder().
		WithClientDir("c").
		Register("get_user", Handle(getUser)).
		Register("getUser", Handle(getUser)).
		Build()
	require.Error(t, err)
	assert.Equal(t, []ValidationErrorKind{DuplicateName}, validationKinds(t, err))
	assert.Contains(t, err.Error(), `client name "getUser"`)
}

func TestBuild_NotificationResult(t *testing.T) {
	_, err := NewBuilder().
		WithClientDir("c").
		Register("getUser", Handle(getUser).Notification()).
		Build()
	require.Error(t, err)
	assert.Equal(t, []ValidationErrorKind{NotificationResult}, validationKinds(t, err))
}

func TestBuild_NotificationEmptyResult(t *testing.T) {
	reg, err := NewBuilder().
		WithClientDir("c").
		Register("log", Func(func(ctx context.Context, msg string) (Empty, error) { return nil, nil }).Notification()).
		Register("event", Notify(func(ctx context.Context, p GetUserParams) error { return nil })).
		Build()
	require.NoError(t, err)
	for _, m := range reg.Methods() {
		assert.True(t, m.Notification)
		assert.Nil(t, m.Result)
	}
}

func TestBuild_StructuredArity(t *testing.T) {
	_, err := NewBuilder().
		WithClientDir("c").
		Register("add", Func(add)).
		Build()
	require.Error(t, err)
	assert.Equal(t, []ValidationErrorKind{StructuredArity}, validationKinds(t, err))
}

func TestBuild_NoTarget(t *testing.T) {
	_, err := NewBuilder().
		Register("ping", Func(ping)).
		Build()
	require.Error(t, err)
	assert.Equal(t, []ValidationErrorKind{NoTarget}, validationKinds(t, err))
}

func TestBuild_InvalidSignature(t *testing.T) {
	tests := []struct {
		name string
		fn   any
	}{
		{"not a function", 42},
		{"nil", nil},
		{"no context", func(a int) error { return nil }},
		{"no error", func(ctx context.Context) int { return 0 }},
		{"too many results", func(ctx context.Context) (int, int, error) { return 0, 0, nil }},
		{"second result not error", func(ctx context.Context) (int, string) { return 0, "" }},
		{"variadic", func(ctx context.Context, xs ...int) error { return nil }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewBuilder().
				WithClientDir("c").
				Register("m", Func(tt.fn).Positional()).
				Build()
			require.Error(t, err)
			assert.Equal(t, []ValidationErrorKind{InvalidSignature}, validationKinds(t, err))
		})
	}
}

func TestBuild_TooManyParamNames(t *testing.T) {
	_, err := NewBuilder().
		WithClientDir("c").
		Register("ping", Func(ping).ParamNames("x")).
		Build()
	require.Error(t, err)
	assert.Equal(t, []ValidationErrorKind{InvalidSignature}, validationKinds(t, err))
}

func TestBuild_CollectsAllErrors(t *testing.T) {
	reg, err := NewBuilder().
		Register("ping", Func(ping)).
		Register("ping", Func(ping)).
		Register("add", Func(add)).
		Register("getUser", Handle(getUser).Notification()).
		Build()
	require.Error(t, err)
	assert.Nil(t, reg)
	assert.Equal(t,
		[]ValidationErrorKind{NoTarget, DuplicateName, StructuredArity, NotificationResult},
		validationKinds(t, err))
}

func TestTypeKey(t *testing.T) {
	var u User
	assert.Equal(t, "github.com/broady/jrpc.User", TypeKey(reflect.TypeOf(u)))
	assert.Equal(t, "github.com/broady/jrpc.User", TypeKey(reflect.TypeOf(&u)))
	assert.Equal(t, "string", TypeKey(reflect.TypeOf("")))
	assert.Equal(t, "[]jrpc.User", TypeKey(reflect.TypeOf([]User{})))
	assert.Equal(t, "map[string]int", TypeKey(reflect.TypeOf(map[string]int{})))
	assert.Equal(t, UnitKey, TypeKey(reflect.TypeOf(Empty(nil))))
}
