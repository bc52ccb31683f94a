// Package testutil provides helpers for testing jrpc handlers through a
// dispatch table, the way a peer would call them.
package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/broady/jrpc"
)

// Table builds b and compiles it into a dispatch table, failing the test
// if the registry is invalid.
func Table(t testing.TB, b *jrpc.Builder, opts ...jrpc.DispatchOption) *jrpc.DispatchTable {
	t.Helper()
	reg, err := b.Build()
	if err != nil {
		t.Fatalf("build registry: %v", err)
	}
	return jrpc.NewDispatchTable(reg, opts...)
}

// CallBuilder helps construct JSON-RPC frames with a fluent API.
type CallBuilder struct {
	method string
	id     json.RawMessage
	params json.RawMessage
}

// NewCall starts a request frame for method with id 1.
func NewCall(method string) *CallBuilder {
	return &CallBuilder{method: method, id: json.RawMessage("1")}
}

// WithID sets the request id. It must encode as a JSON string or number.
func (b *CallBuilder) WithID(id any) *CallBuilder {
	b.id = mustMarshal(id)
	return b
}

// AsNotification drops the id member.
func (b *CallBuilder) AsNotification() *CallBuilder {
	b.id = nil
	return b
}

// WithParams sets by-name params to the JSON encoding of v.
func (b *CallBuilder) WithParams(v any) *CallBuilder {
	b.params = mustMarshal(v)
	return b
}

// WithArgs sets by-position params.
func (b *CallBuilder) WithArgs(args ...any) *CallBuilder {
	if args == nil {
		args = []any{}
	}
	b.params = mustMarshal(args)
	return b
}

// WithRawParams sets params verbatim.
func (b *CallBuilder) WithRawParams(raw string) *CallBuilder {
	b.params = json.RawMessage(raw)
	return b
}

// Params returns the encoded params, or nil.
func (b *CallBuilder) Params() json.RawMessage {
	return b.params
}

// Bytes returns the encoded frame.
func (b *CallBuilder) Bytes() []byte {
	return mustMarshal(jrpc.Message{
		JSONRPC: jrpc.Version,
		ID:      b.id,
		Method:  b.method,
		Params:  b.params,
	})
}

// Response is a decoded reply frame.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *jrpc.Error     `json:"error,omitempty"`
}

// Send passes the frame through table.HandleMessage and decodes the reply.
// It returns nil when no reply was produced.
func Send(t testing.TB, table *jrpc.DispatchTable, call *CallBuilder) *Response {
	t.Helper()
	out, err := table.HandleMessage(context.Background(), call.Bytes())
	if err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}
	if out == nil {
		return nil
	}
	var resp Response
	dec := json.NewDecoder(bytes.NewReader(out))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&resp); err != nil {
		t.Fatalf("decode reply: %v\nReply: %s", err, out)
	}
	if resp.JSONRPC != jrpc.Version {
		t.Errorf("reply jsonrpc = %q, want %q", resp.JSONRPC, jrpc.Version)
	}
	return &resp
}

// AssertResult checks that resp is a success whose result equals the JSON
// encoding of expected. Formatting differences are ignored.
func AssertResult(t testing.TB, resp *Response, expected any) {
	t.Helper()
	if resp == nil {
		t.Fatal("expected a reply, got none")
	}
	if resp.Error != nil {
		t.Fatalf("expected result, got error %d: %s", resp.Error.Code, resp.Error.Message)
	}
	if !jsonEqual(mustMarshal(expected), resp.Result) {
		t.Errorf("result mismatch:\nExpected: %s\nActual:   %s", mustMarshal(expected), resp.Result)
	}
}

// AssertError checks that resp carries an error with the expected code and
// returns it.
func AssertError(t testing.TB, resp *Response, expected jrpc.ErrorCode) *jrpc.Error {
	t.Helper()
	if resp == nil {
		t.Fatal("expected an error reply, got none")
	}
	if resp.Error == nil {
		t.Fatalf("expected error %d, got result %s", expected, resp.Result)
	}
	if resp.Error.Code != expected {
		t.Errorf("expected error code %d (%s), got %d (message: %s)", expected, expected, resp.Error.Code, resp.Error.Message)
	}
	return resp.Error
}

// AssertNoReply checks that the frame produced no reply.
func AssertNoReply(t testing.TB, table *jrpc.DispatchTable, call *CallBuilder) {
	t.Helper()
	if resp := Send(t, table, call); resp != nil {
		t.Errorf("expected no reply, got id=%s result=%s error=%v", resp.ID, resp.Result, resp.Error)
	}
}

func jsonEqual(a, b []byte) bool {
	var va, vb any
	if json.Unmarshal(a, &va) != nil || json.Unmarshal(b, &vb) != nil {
		return false
	}
	ca, _ := json.Marshal(va)
	cb, _ := json.Marshal(vb)
	return bytes.Equal(ca, cb)
}

func mustMarshal(v any) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		panic("testutil: " + err.Error())
	}
	return data
}
