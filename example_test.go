package jrpc_test

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/broady/jrpc"
)

type GreetParams struct {
	Name string `json:"name" validate:"required"`
}

func greet(ctx context.Context, p GreetParams) (string, error) {
	return "Hello, " + p.Name + "!", nil
}

func add(ctx context.Context, a, b int) (int, error) {
	return a + b, nil
}

func ExampleDispatchTable_HandleMessage() {
	reg, err := jrpc.NewBuilder().
		WithClientDir("web/src/rpc").
		Register("greet", jrpc.Handle(greet)).
		Register("add", jrpc.Func(add).Positional()).
		Build()
	if err != nil {
		panic(err)
	}
	table := jrpc.NewDispatchTable(reg, jrpc.WithLogger(slog.New(slog.DiscardHandler)))

	for _, frame := range []string{
		`{"jsonrpc":"2.0","id":1,"method":"greet","params":{"name":"Ada"}}`,
		`{"jsonrpc":"2.0","id":2,"method":"add","params":[3,4]}`,
		`{"jsonrpc":"2.0","id":3,"method":"nope"}`,
	} {
		reply, err := table.HandleMessage(context.Background(), []byte(frame))
		if err != nil {
			panic(err)
		}
		fmt.Println(string(reply))
	}
	// Output:
	// {"jsonrpc":"2.0","id":1,"result":"Hello, Ada!"}
	// {"jsonrpc":"2.0","id":2,"result":7}
	// {"jsonrpc":"2.0","id":3,"error":{"code":-32601,"message":"method not found: nope","data":{"method":"nope"}}}
}

func ExampleNotify() {
	seen := make(chan string, 1)
	reg, err := jrpc.NewBuilder().
		WithSchemaFile("openrpc.json").
		Register("user_seen", jrpc.Notify(func(ctx context.Context, p GreetParams) error {
			seen <- p.Name
			return nil
		})).
		Build()
	if err != nil {
		panic(err)
	}
	table := jrpc.NewDispatchTable(reg)

	reply, _ := table.HandleMessage(context.Background(),
		[]byte(`{"jsonrpc":"2.0","id":7,"method":"user_seen","params":{"name":"Ada"}}`))
	fmt.Println(reply == nil, <-seen)
	// Output: true Ada
}

func ExampleRegistry_Methods() {
	reg, err := jrpc.NewBuilder().
		WithClientDir("web/src/rpc").
		Register("get_user", jrpc.Handle(greet)).
		Register("add", jrpc.Func(add).Positional()).
		Build()
	if err != nil {
		panic(err)
	}
	for _, m := range reg.Methods() {
		fmt.Println(m.RPCName, m.ExposedName)
	}
	// Output:
	// get_user getUser
	// add add
}
