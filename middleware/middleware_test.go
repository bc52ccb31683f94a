package middleware

import (
	"context"
	"errors"
	"testing"

	"github.com/broady/jrpc"
	"github.com/broady/jrpc/testutil"
)

type EchoParams struct {
	Text string `json:"text"`
}

var errBoom = errors.New("boom")

func newTable(t *testing.T, interceptors ...jrpc.UnaryInterceptor) *jrpc.DispatchTable {
	t.Helper()
	var opts []jrpc.DispatchOption
	for _, i := range interceptors {
		opts = append(opts, jrpc.WithUnaryInterceptor(i))
	}
	return newTableWith(t, opts...)
}

func newTableWith(t *testing.T, opts ...jrpc.DispatchOption) *jrpc.DispatchTable {
	t.Helper()
	return testutil.Table(t, jrpc.NewBuilder().
		WithClientDir("client").
		Register("echo", jrpc.Handle(func(ctx context.Context, p EchoParams) (string, error) {
			return p.Text, nil
		})).
		Register("fail", jrpc.Func(func(ctx context.Context) (int, error) {
			return 0, errBoom
		})).
		Register("not_found", jrpc.Func(func(ctx context.Context) (int, error) {
			return 0, jrpc.NewError(jrpc.CodeInvalidParams, "no such thing")
		})).
		Register("seen", jrpc.Notify(func(ctx context.Context, p EchoParams) error {
			return nil
		})), opts...)
}
