package jrpc

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"reflect"
	"slices"
	"strconv"
	"strings"

	"github.com/broady/jrpc/internal/jsontag"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

func init() {
	// Report validation failures with JSON field names.
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		tag := jsontag.Parse(f.Tag.Get("json"), f.Name)
		if tag.Skip {
			return ""
		}
		return tag.Name
	})
}

// decoder turns a params payload into the request value handed to
// interceptors: the structured argument, or []any for positional methods.
type decoder func(params json.RawMessage) (req any, err *Error)

var nullJSON = []byte("null")

// isAbsent reports whether params were omitted or null.
func isAbsent(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) == 0 || bytes.Equal(raw, nullJSON)
}

func newDecoder(d *MethodDescriptor) decoder {
	if d.Params.Kind == ShapePositional {
		return positionalDecoder(d.Params.Params)
	}
	if len(d.Params.Params) == 0 {
		return emptyDecoder
	}
	return structuredDecoder(d.Params.Params[0].Type.Type)
}

func invalidParams(format string, args ...any) *Error {
	return Errorf(CodeInvalidParams, "invalid params: "+format, args...)
}

// emptyDecoder accepts only an absent payload or {}.
func emptyDecoder(raw json.RawMessage) (any, *Error) {
	if isAbsent(raw) {
		return nil, nil
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err == nil && len(obj) == 0 {
		return nil, nil
	}
	return nil, invalidParams("method takes no parameters")
}

func positionalDecoder(params []Param) decoder {
	return func(raw json.RawMessage) (any, *Error) {
		var elems []json.RawMessage
		if !isAbsent(raw) {
			if bytes.TrimSpace(raw)[0] != '[' {
				return nil, invalidParams("expected an array of %d parameters", len(params))
			}
			if err := json.Unmarshal(raw, &elems); err != nil {
				return nil, invalidParams("%v", err)
			}
		}
		if len(elems) > len(params) {
			return nil, invalidParams("expected at most %d parameters, got %d", len(params), len(elems)).
				WithData("index", len(params))
		}

		req := make([]any, len(params))
		for i, p := range params {
			t := p.Type.Type
			v := reflect.New(t).Elem()
			if i >= len(elems) {
				if t.Kind() != reflect.Pointer {
					return nil, invalidParams("missing parameter %d", i).WithData("index", i)
				}
			} else if err := decodeValue(elems[i], v); err != nil {
				err = err.WithData("index", i)
				if _, ok := err.Data["path"]; !ok {
					err.Message = fmt.Sprintf("invalid params: parameter %d: %s", i, strings.TrimPrefix(err.Message, "invalid params: "))
				}
				return nil, err
			}
			req[i] = v.Interface()
		}
		return req, nil
	}
}

func structuredDecoder(t reflect.Type) decoder {
	return func(raw json.RawMessage) (any, *Error) {
		if isAbsent(raw) {
			raw = json.RawMessage("{}")
		} else if bytes.TrimSpace(raw)[0] != '{' {
			return nil, invalidParams("expected an object")
		}
		v := reflect.New(t).Elem()
		if err := decodeValue(raw, v); err != nil {
			return nil, err
		}
		return v.Interface(), nil
	}
}

// decodeValue unmarshals raw into v, then checks required fields and
// validate tags.
func decodeValue(raw json.RawMessage, v reflect.Value) *Error {
	t := v.Type()
	if bytes.Equal(bytes.TrimSpace(raw), nullJSON) && !jsontag.Nullable(t) {
		return invalidParams("must not be null")
	}
	if err := json.Unmarshal(raw, v.Addr().Interface()); err != nil {
		return unmarshalError(err)
	}
	if path, msg := checkRequired(t, raw, ""); path != "" {
		return invalidParams("%s: %s", path, msg).WithData("path", path)
	}

	sv := v
	for sv.Kind() == reflect.Pointer {
		if sv.IsNil() {
			return nil
		}
		sv = sv.Elem()
	}
	if sv.Kind() != reflect.Struct {
		return nil
	}
	if err := validate.Struct(sv.Interface()); err != nil {
		var valErrs validator.ValidationErrors
		if errors.As(err, &valErrs) {
			return validationError(CodeInvalidParams, valErrs)
		}
		return invalidParams("%v", err)
	}
	return nil
}

func unmarshalError(err error) *Error {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		return invalidParams("%s: cannot decode %s into %s", typeErr.Field, typeErr.Value, typeErr.Type).
			WithData("path", typeErr.Field)
	}
	return invalidParams("%v", err)
}

// checkRequired walks raw against t and returns the path of the first
// required field that is missing or null, with a message.
// Fields without omitempty or omitzero are required.
func checkRequired(t reflect.Type, raw json.RawMessage, prefix string) (string, string) {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if isAbsent(raw) || jsontag.CustomDecoded(t) {
		return "", ""
	}

	switch t.Kind() {
	case reflect.Struct:
		var obj map[string]json.RawMessage
		if json.Unmarshal(raw, &obj) != nil {
			return "", ""
		}
		for _, f := range jsontag.Fields(t) {
			path := joinPath(prefix, f.Name)
			val, ok := lookupKey(obj, f.Name)
			if !ok {
				if f.Optional {
					continue
				}
				return path, "required"
			}
			if bytes.Equal(bytes.TrimSpace(val), nullJSON) {
				if !f.Optional && !jsontag.Nullable(f.Type) {
					return path, "must not be null"
				}
				continue
			}
			if f.StringEncoded {
				continue
			}
			if p, msg := checkRequired(f.Type, val, path); p != "" {
				return p, msg
			}
		}
	case reflect.Slice, reflect.Array:
		var elems []json.RawMessage
		if json.Unmarshal(raw, &elems) != nil {
			return "", ""
		}
		for i, e := range elems {
			if p, msg := checkRequired(t.Elem(), e, joinPath(prefix, strconv.Itoa(i))); p != "" {
				return p, msg
			}
		}
	case reflect.Map:
		var obj map[string]json.RawMessage
		if json.Unmarshal(raw, &obj) != nil {
			return "", ""
		}
		for _, k := range slices.Sorted(maps.Keys(obj)) {
			if p, msg := checkRequired(t.Elem(), obj[k], joinPath(prefix, k)); p != "" {
				return p, msg
			}
		}
	}
	return "", ""
}

// lookupKey finds a key the way encoding/json matches field names:
// exact match first, then case-insensitive.
func lookupKey(obj map[string]json.RawMessage, name string) (json.RawMessage, bool) {
	if v, ok := obj[name]; ok {
		return v, true
	}
	for k, v := range obj {
		if strings.EqualFold(k, name) {
			return v, true
		}
	}
	return nil, false
}

func joinPath(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + "." + name
}
