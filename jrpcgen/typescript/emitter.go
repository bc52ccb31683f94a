package typescript

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/broady/jrpc/jrpcgen/ir"
)

// Emitter handles TypeScript code emission for IR type descriptors.
type Emitter struct {
	opts ClientOptions

	// namespace qualifies references to catalogue types, e.g. "T.".
	namespace string
}

// NewEmitter returns an emitter whose type references are prefixed with
// namespace ("" inside types.ts, "T." in client.ts).
func NewEmitter(opts ClientOptions, namespace string) *Emitter {
	if opts.UnknownType == "" {
		opts.UnknownType = "unknown"
	}
	return &Emitter{opts: opts, namespace: namespace}
}

// EmitType emits a top-level type declaration.
func (e *Emitter) EmitType(buf *bytes.Buffer, typ ir.TypeDescriptor) error {
	if e.opts.EmitComments && !typ.Doc().IsZero() {
		e.emitJSDoc(buf, typ.Doc(), "")
	}

	switch t := typ.(type) {
	case *ir.StructDescriptor:
		return e.emitStruct(buf, t)
	case *ir.AliasDescriptor:
		return e.emitAlias(buf, t)
	default:
		return fmt.Errorf("unsupported top-level type kind: %s", typ.Kind())
	}
}

// emitStruct emits a struct as an interface, or as an intersection type
// when it embeds other structs.
func (e *Emitter) emitStruct(buf *bytes.Buffer, s *ir.StructDescriptor) error {
	typeName := escapeReservedWord(s.Name.Name)

	if len(s.Extends) == 0 {
		buf.WriteString("export interface ")
		buf.WriteString(typeName)
		buf.WriteString(" {\n")
	} else {
		buf.WriteString("export type ")
		buf.WriteString(typeName)
		buf.WriteString(" = ")
		for _, ext := range s.Extends {
			buf.WriteString(escapeReservedWord(ext.Name))
			buf.WriteString(" & ")
		}
		buf.WriteString("{\n")
	}

	for _, field := range s.Fields {
		if e.opts.EmitComments && !field.Documentation.IsZero() {
			e.emitJSDoc(buf, field.Documentation, "  ")
		}

		buf.WriteString("  ")
		buf.WriteString(propertyName(field.JSONName))

		optional, nullable := determineOptionalNullable(field)
		if optional {
			buf.WriteString("?")
		}
		buf.WriteString(": ")

		typeExpr, err := e.fieldTypeExpr(field)
		if err != nil {
			return fmt.Errorf("failed to emit field %s type: %w", field.Name, err)
		}
		buf.WriteString(typeExpr)
		if nullable {
			buf.WriteString(" | null")
		}
		buf.WriteString(";\n")
	}

	if len(s.Extends) == 0 {
		buf.WriteString("}")
	} else {
		buf.WriteString("};")
	}
	return nil
}

// fieldTypeExpr emits a field's type without the top-level null, which
// determineOptionalNullable decides.
func (e *Emitter) fieldTypeExpr(field ir.FieldDescriptor) (string, error) {
	typ := field.Type
	if ptr, ok := typ.(*ir.PtrDescriptor); ok {
		typ = ptr.Element
	}
	if field.StringEncoded {
		if _, ok := typ.(*ir.PrimitiveDescriptor); ok {
			return "string", nil
		}
	}
	return e.EmitTypeExpr(typ)
}

// emitAlias emits a type alias.
func (e *Emitter) emitAlias(buf *bytes.Buffer, a *ir.AliasDescriptor) error {
	underlying, err := e.EmitTypeExpr(a.Underlying)
	if err != nil {
		return fmt.Errorf("failed to emit alias underlying type: %w", err)
	}
	buf.WriteString("export type ")
	buf.WriteString(escapeReservedWord(a.Name.Name))
	buf.WriteString(" = ")
	buf.WriteString(underlying)
	buf.WriteString(";")
	return nil
}

// EmitTypeExpr emits a type expression (non-top-level types).
func (e *Emitter) EmitTypeExpr(typ ir.TypeDescriptor) (string, error) {
	switch t := typ.(type) {
	case *ir.PrimitiveDescriptor:
		return e.emitPrimitive(t), nil
	case *ir.ArrayDescriptor:
		return e.emitArray(t)
	case *ir.MapDescriptor:
		return e.emitMap(t)
	case *ir.ReferenceDescriptor:
		return e.emitReference(t), nil
	case *ir.PtrDescriptor:
		elem, err := e.EmitTypeExpr(t.Element)
		if err != nil {
			return "", err
		}
		return elem + " | null", nil
	case nil:
		return "", fmt.Errorf("missing type descriptor")
	default:
		return "", fmt.Errorf("unsupported type expression kind: %s", typ.Kind())
	}
}

// ValueTypeExpr emits the type of a whole parameter or result value, where
// nil slices, maps and pointers travel as null.
func (e *Emitter) ValueTypeExpr(typ ir.TypeDescriptor) (string, error) {
	expr, err := e.EmitTypeExpr(typ)
	if err != nil {
		return "", err
	}
	switch t := typ.(type) {
	case *ir.MapDescriptor:
		expr += " | null"
	case *ir.ArrayDescriptor:
		if t.Length == 0 {
			expr += " | null"
		}
	}
	return expr, nil
}

// emitPrimitive emits a primitive type.
func (e *Emitter) emitPrimitive(p *ir.PrimitiveDescriptor) string {
	switch p.PrimitiveKind {
	case ir.PrimitiveBool:
		return "boolean"
	case ir.PrimitiveInt, ir.PrimitiveUint, ir.PrimitiveFloat:
		return "number"
	case ir.PrimitiveString:
		return "string"
	case ir.PrimitiveBytes:
		return "string" // base64
	case ir.PrimitiveTime:
		return "string" // RFC 3339
	case ir.PrimitiveDuration:
		return "number" // nanoseconds
	case ir.PrimitiveEmpty:
		return "Record<string, never>"
	case ir.PrimitiveNull:
		return "null"
	default:
		return e.opts.UnknownType
	}
}

// emitArray emits an array type. Small fixed-length arrays become tuples.
func (e *Emitter) emitArray(a *ir.ArrayDescriptor) (string, error) {
	elemType, err := e.EmitTypeExpr(a.Element)
	if err != nil {
		return "", err
	}

	if a.Length > 0 && a.Length <= 10 {
		parts := make([]string, a.Length)
		for i := range parts {
			parts[i] = elemType
		}
		return "[" + strings.Join(parts, ", ") + "]", nil
	}

	if strings.Contains(elemType, " | ") {
		elemType = "(" + elemType + ")"
	}
	if e.opts.UseReadonlyArrays {
		return "readonly " + elemType + "[]", nil
	}
	return elemType + "[]", nil
}

// emitMap emits a map type. JSON object keys are strings; named key types
// are kept for readability.
func (e *Emitter) emitMap(m *ir.MapDescriptor) (string, error) {
	valueType, err := e.EmitTypeExpr(m.Value)
	if err != nil {
		return "", err
	}
	if ref, ok := m.Key.(*ir.ReferenceDescriptor); ok {
		return fmt.Sprintf("Record<%s, %s>", e.emitReference(ref), valueType), nil
	}
	return fmt.Sprintf("Record<string, %s>", valueType), nil
}

// emitReference emits a reference to a named type.
func (e *Emitter) emitReference(r *ir.ReferenceDescriptor) string {
	return e.namespace + escapeReservedWord(r.Target.Name)
}

// determineOptionalNullable decides whether a field may be absent and
// whether it may be null:
//  1. Optional (omitempty/omitzero) fields are optional and not null,
//     unless they point to a collection.
//  2. Pointers, slices and maps are nullable.
//  3. Everything else is required and non-null.
func determineOptionalNullable(field ir.FieldDescriptor) (optional, nullable bool) {
	if field.Optional {
		if ptr, ok := field.Type.(*ir.PtrDescriptor); ok {
			switch ptr.Element.(type) {
			case *ir.ArrayDescriptor, *ir.MapDescriptor:
				return true, true
			}
		}
		return true, false
	}

	switch t := field.Type.(type) {
	case *ir.PtrDescriptor, *ir.MapDescriptor:
		return false, true
	case *ir.ArrayDescriptor:
		return false, t.Length == 0
	case *ir.PrimitiveDescriptor:
		return false, t.PrimitiveKind == ir.PrimitiveBytes
	}
	return false, false
}

// emitJSDoc emits a JSDoc comment at the given indentation.
func (e *Emitter) emitJSDoc(buf *bytes.Buffer, doc ir.Documentation, indent string) {
	if doc.IsZero() {
		return
	}
	body := doc.Body
	if body == "" {
		body = doc.Summary
	}

	lines := strings.Split(body, "\n")
	if len(lines) == 1 && doc.Deprecated == nil {
		buf.WriteString(indent)
		buf.WriteString("/** ")
		buf.WriteString(strings.TrimSpace(escapeComment(lines[0])))
		buf.WriteString(" */\n")
		return
	}

	buf.WriteString(indent)
	buf.WriteString("/**\n")
	for _, line := range lines {
		line = strings.TrimSpace(escapeComment(line))
		buf.WriteString(indent)
		if line == "" {
			buf.WriteString(" *\n")
			continue
		}
		buf.WriteString(" * ")
		buf.WriteString(line)
		buf.WriteString("\n")
	}
	if doc.Deprecated != nil {
		buf.WriteString(indent)
		buf.WriteString(" * @deprecated")
		if *doc.Deprecated != "" {
			buf.WriteString(" ")
			buf.WriteString(*doc.Deprecated)
		}
		buf.WriteString("\n")
	}
	buf.WriteString(indent)
	buf.WriteString(" */\n")
}

// escapeComment keeps doc text from closing the comment early.
func escapeComment(s string) string {
	return strings.ReplaceAll(s, "*/", "*\\/")
}
