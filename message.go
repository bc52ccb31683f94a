package jrpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
)

// Version is the JSON-RPC protocol version carried in every frame.
const Version = "2.0"

// Message is one JSON-RPC 2.0 frame as received from a peer.
//
// ID is nil when the frame has no id member, and the literal null when
// the member is present with a null value.
type Message struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
}

// response is the frame sent back for a request.
// Exactly one of Result or Error is set.
type response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
}

func errorResponse(id json.RawMessage, err *Error) response {
	if id == nil {
		id = json.RawMessage(nullJSON)
	}
	return response{JSONRPC: Version, ID: id, Error: err}
}

// HandleMessage processes one JSON-RPC frame, or a batch of frames, and
// returns the encoded reply. It returns nil when no reply is due: the
// method is a notification, or the frame carried no id.
//
// Unparseable input yields a parse error reply with a null id. Valid JSON
// that is not a request object, or a frame without a method, yields an
// invalid request reply. The returned error is non-nil only if the reply
// itself cannot be encoded.
func (t *DispatchTable) HandleMessage(ctx context.Context, data []byte) ([]byte, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		return t.handleBatch(ctx, trimmed)
	}

	if !json.Valid(trimmed) {
		return json.Marshal(errorResponse(nil, NewError(CodeParseError, "parse error: invalid JSON")))
	}
	var msg Message
	if err := json.Unmarshal(trimmed, &msg); err != nil {
		return json.Marshal(errorResponse(nil, Errorf(CodeInvalidRequest, "invalid request: %v", err)))
	}
	res, ok := t.handleFrame(ctx, &msg)
	if !ok {
		return nil, nil
	}
	return json.Marshal(res)
}

func (t *DispatchTable) handleBatch(ctx context.Context, data []byte) ([]byte, error) {
	var frames []json.RawMessage
	if err := json.Unmarshal(data, &frames); err != nil {
		return json.Marshal(errorResponse(nil, Errorf(CodeParseError, "parse error: %v", err)))
	}
	if len(frames) == 0 {
		return json.Marshal(errorResponse(nil, NewError(CodeInvalidRequest, "invalid request: empty batch")))
	}

	var replies []response
	for _, f := range frames {
		var msg Message
		if err := json.Unmarshal(f, &msg); err != nil {
			replies = append(replies, errorResponse(nil, Errorf(CodeInvalidRequest, "invalid request: %v", err)))
			continue
		}
		if res, ok := t.handleFrame(ctx, &msg); ok {
			replies = append(replies, res)
		}
	}
	if len(replies) == 0 {
		return nil, nil
	}
	return json.Marshal(replies)
}

// handleFrame dispatches one parsed frame. ok is false when no reply is due.
func (t *DispatchTable) handleFrame(ctx context.Context, msg *Message) (res response, ok bool) {
	if msg.JSONRPC != Version {
		return errorResponse(msg.ID, Errorf(CodeInvalidRequest, "invalid request: jsonrpc must be %q", Version)), true
	}
	if msg.Method == "" {
		return errorResponse(msg.ID, NewError(CodeInvalidRequest, "invalid request: missing method")), true
	}

	if msg.ID != nil {
		ctx = withRequestID(ctx, msg.ID)
	}
	out := t.Dispatch(ctx, msg.Method, msg.Params)

	// A frame without an id is a notification at the protocol level.
	if msg.ID == nil {
		if out.Kind == OutcomeFailed {
			t.log().Debug("dropping error for request without id",
				"method", msg.Method,
				"code", int(out.Err.Code),
				"error", out.Err.Message)
		}
		return response{}, false
	}

	switch out.Kind {
	case OutcomeResponse:
		return response{JSONRPC: Version, ID: msg.ID, Result: out.Result}, true
	case OutcomeFailed:
		return errorResponse(msg.ID, out.Err), true
	case OutcomeNoResponse:
		return response{}, false
	default:
		panic(fmt.Sprintf("jrpc: unknown outcome kind %d", out.Kind))
	}
}
