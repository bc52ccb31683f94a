package jrpc

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ErrorCode is a JSON-RPC 2.0 error code.
type ErrorCode int

const (
	CodeParseError     ErrorCode = -32700
	CodeInvalidRequest ErrorCode = -32600
	CodeMethodNotFound ErrorCode = -32601
	CodeInvalidParams  ErrorCode = -32602
	CodeInternal       ErrorCode = -32603

	// Implementation-defined server errors (-32000 to -32099).
	CodeServerError      ErrorCode = -32000
	CodeCanceled         ErrorCode = -32001
	CodeDeadlineExceeded ErrorCode = -32002
)

// String returns a machine-readable name for the code.
func (c ErrorCode) String() string {
	switch c {
	case CodeParseError:
		return "parse_error"
	case CodeInvalidRequest:
		return "invalid_request"
	case CodeMethodNotFound:
		return "method_not_found"
	case CodeInvalidParams:
		return "invalid_params"
	case CodeInternal:
		return "internal"
	case CodeServerError:
		return "server_error"
	case CodeCanceled:
		return "canceled"
	case CodeDeadlineExceeded:
		return "deadline_exceeded"
	default:
		return fmt.Sprintf("code(%d)", int(c))
	}
}

// ErrorKind classifies a runtime error by the dispatch stage that produced it.
type ErrorKind int

const (
	// KindHandler is a failure reported by (or raised inside) a handler.
	KindHandler ErrorKind = iota
	// KindMethodNotFound means the wire method name is not registered.
	KindMethodNotFound
	// KindInvalidParams means the params payload did not decode into the
	// method's parameter shape.
	KindInvalidParams
	// KindProtocol means the frame itself was malformed.
	KindProtocol
)

func (k ErrorKind) String() string {
	switch k {
	case KindHandler:
		return "HandlerError"
	case KindMethodNotFound:
		return "MethodNotFound"
	case KindInvalidParams:
		return "InvalidParams"
	case KindProtocol:
		return "ProtocolError"
	default:
		return "Unknown"
	}
}

// Error is the JSON-RPC error object.
type Error struct {
	Code    ErrorCode      `json:"code"`
	Message string         `json:"message"`
	Data    map[string]any `json:"data,omitempty"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Kind reports which dispatch stage the error belongs to.
func (e *Error) Kind() ErrorKind {
	switch e.Code {
	case CodeMethodNotFound:
		return KindMethodNotFound
	case CodeInvalidParams:
		return KindInvalidParams
	case CodeParseError, CodeInvalidRequest:
		return KindProtocol
	default:
		return KindHandler
	}
}

// NewError creates a new error with the given code.
func NewError(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// Errorf creates a new error with a formatted message.
func Errorf(code ErrorCode, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// WithData returns a new Error with the key-value pair added to data.
func (e *Error) WithData(key string, value any) *Error {
	data := make(map[string]any, len(e.Data)+1)
	for k, v := range e.Data {
		data[k] = v
	}
	data[key] = value
	return &Error{
		Code:    e.Code,
		Message: e.Message,
		Data:    data,
	}
}

// ErrorTransformer maps an application error to a JSON-RPC error.
// If it returns nil, DefaultErrorTransformer is applied.
type ErrorTransformer func(error) *Error

// DefaultErrorTransformer maps handler errors to JSON-RPC errors.
// A *Error anywhere in the chain is passed through unchanged.
func DefaultErrorTransformer(err error) *Error {
	if err == nil {
		return nil
	}

	var rpcErr *Error
	if errors.As(err, &rpcErr) && rpcErr != nil {
		return rpcErr
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return NewError(CodeDeadlineExceeded, "deadline exceeded")
	}

	if errors.Is(err, context.Canceled) {
		return NewError(CodeCanceled, "context canceled")
	}

	// Validation failing inside a handler is semantic, not a decode failure.
	var valErrs validator.ValidationErrors
	if errors.As(err, &valErrs) {
		return validationError(CodeServerError, valErrs)
	}

	if u, ok := err.(interface{ Unwrap() []error }); ok {
		errs := u.Unwrap()
		if len(errs) > 0 {
			first := DefaultErrorTransformer(errs[0])
			msgs := make([]string, len(errs))
			for i, e := range errs {
				msgs[i] = e.Error()
			}
			return &Error{
				Code:    first.Code,
				Message: strings.Join(msgs, "; "),
				Data:    first.Data,
			}
		}
	}

	return NewError(CodeServerError, err.Error())
}

// validationError converts validator errors into an Error with per-field data.
// The "path" entry carries the first failing field's namespace.
func validationError(code ErrorCode, valErrs validator.ValidationErrors) *Error {
	fields := make(map[string]any, len(valErrs))
	messages := make([]string, 0, len(valErrs))
	for _, ve := range valErrs {
		msg := formatValidationError(ve)
		path := fieldPath(ve.Namespace())
		fields[path] = msg
		messages = append(messages, path+": "+msg)
	}
	data := map[string]any{"fields": fields}
	if len(valErrs) > 0 {
		data["path"] = fieldPath(valErrs[0].Namespace())
	}
	return &Error{
		Code:    code,
		Message: strings.Join(messages, "; "),
		Data:    data,
	}
}

// fieldPath strips the top-level struct name from a validator namespace,
// leaving the path as seen from the params object ("User.Name" -> "Name").
func fieldPath(ns string) string {
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

// formatValidationError converts a validator.FieldError to a human-readable message.
func formatValidationError(ve validator.FieldError) string {
	switch ve.Tag() {
	case "required":
		return "required"
	case "min":
		return fmt.Sprintf("must be at least %s", ve.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", ve.Param())
	case "len":
		return fmt.Sprintf("must have length %s", ve.Param())
	case "eq":
		return fmt.Sprintf("must equal %s", ve.Param())
	case "ne":
		return fmt.Sprintf("must not equal %s", ve.Param())
	case "gt":
		return fmt.Sprintf("must be greater than %s", ve.Param())
	case "gte":
		return fmt.Sprintf("must be at least %s", ve.Param())
	case "lt":
		return fmt.Sprintf("must be less than %s", ve.Param())
	case "lte":
		return fmt.Sprintf("must be at most %s", ve.Param())
	case "email":
		return "must be a valid email address"
	case "url":
		return "must be a valid URL"
	case "uuid":
		return "must be a valid UUID"
	case "oneof":
		return fmt.Sprintf("must be one of: %s", ve.Param())
	default:
		if ve.Param() != "" {
			return fmt.Sprintf("failed %s=%s validation", ve.Tag(), ve.Param())
		}
		return fmt.Sprintf("failed %s validation", ve.Tag())
	}
}

// ValidationErrorKind identifies why a set of declarations was rejected.
type ValidationErrorKind int

const (
	// DuplicateName: two methods share a wire name.
	DuplicateName ValidationErrorKind = iota
	// NotificationResult: a notification declares a non-unit result.
	NotificationResult
	// StructuredArity: a structured method takes more than one parameter.
	StructuredArity
	// NoTarget: neither a client nor a schema output was requested.
	NoTarget
	// InvalidSignature: the handler is not a supported function shape.
	InvalidSignature
)

func (k ValidationErrorKind) String() string {
	switch k {
	case DuplicateName:
		return "duplicate_name"
	case NotificationResult:
		return "notification_result"
	case StructuredArity:
		return "structured_arity"
	case NoTarget:
		return "no_target"
	case InvalidSignature:
		return "invalid_signature"
	default:
		return "unknown"
	}
}

// ValidationError is a build-time failure of the method declarations.
type ValidationError struct {
	Kind    ValidationErrorKind
	Method  string // declared method name, empty for root-level errors
	Message string
}

func (e *ValidationError) Error() string {
	if e.Method == "" {
		return fmt.Sprintf("jrpc: %s: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("jrpc: method %q: %s: %s", e.Method, e.Kind, e.Message)
}
