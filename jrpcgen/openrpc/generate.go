package openrpc

import (
	"fmt"
	"strings"

	"github.com/broady/jrpc/jrpcgen/ir"
)

// RefPrefix is the JSON pointer prefix of component schemas.
const RefPrefix = "#/components/schemas/"

// Generate builds the OpenRPC document for schema. Methods keep schema
// order; every catalogue type becomes one component schema.
//
// Structured methods list the fields of their params object as by-name
// params. When the params type is not a struct the whole object is
// described by a single param.
func Generate(schema *ir.Schema, info Info) (*Document, error) {
	g := &generator{schema: schema}

	doc := &Document{
		OpenRPC:    Version,
		Info:       info,
		Methods:    []Method{},
		Components: Components{Schemas: make(map[string]*Schema, len(schema.Types))},
	}

	for _, td := range schema.Types {
		key := td.TypeName().Name
		if _, dup := doc.Components.Schemas[key]; dup {
			return nil, &ir.GenerationError{
				Target:  "schema",
				Type:    td.TypeName().String(),
				Message: fmt.Sprintf("component %s is defined twice", key),
			}
		}
		s, err := g.namedSchema(td)
		if err != nil {
			return nil, &ir.GenerationError{Target: "schema", Type: td.TypeName().String(), Message: err.Error()}
		}
		doc.Components.Schemas[key] = s
	}

	for _, m := range schema.Methods {
		method, err := g.method(m)
		if err != nil {
			return nil, &ir.GenerationError{Target: "schema", Message: fmt.Sprintf("method %q: %v", m.RPCName, err)}
		}
		doc.Methods = append(doc.Methods, method)
	}
	return doc, nil
}

type generator struct {
	schema *ir.Schema
}

func (g *generator) method(m ir.MethodDescriptor) (Method, error) {
	out := Method{
		Name:           m.RPCName,
		Summary:        m.Documentation.Summary,
		Description:    m.Documentation.Body,
		ParamStructure: m.ParamStructure.String(),
		Params:         []ContentDescriptor{},
		Deprecated:     m.Documentation.Deprecated != nil,
		Notification:   m.Notification,
		ExposedName:    m.ExposedName,
	}

	if m.ParamStructure == ir.ByName && len(m.Params) == 1 {
		if st := g.paramsStruct(m.Params[0].Type); st != nil {
			params, err := g.fieldParams(st, map[ir.GoIdentifier]bool{})
			if err != nil {
				return Method{}, err
			}
			out.Params = params
			return g.result(out, m)
		}
	}

	for _, p := range m.Params {
		s, err := g.valueSchema(p.Type)
		if err != nil {
			return Method{}, fmt.Errorf("parameter %s: %w", p.Name, err)
		}
		out.Params = append(out.Params, ContentDescriptor{Name: p.Name, Required: p.Required, Schema: s})
	}
	return g.result(out, m)
}

func (g *generator) result(out Method, m ir.MethodDescriptor) (Method, error) {
	if m.Notification || m.Result == nil {
		return out, nil
	}
	s, err := g.valueSchema(m.Result)
	if err != nil {
		return Method{}, fmt.Errorf("result: %w", err)
	}
	out.Result = &ContentDescriptor{Name: "result", Schema: s}
	return out, nil
}

// paramsStruct resolves a structured params type to its struct, if any.
func (g *generator) paramsStruct(td ir.TypeDescriptor) *ir.StructDescriptor {
	if ptr, ok := td.(*ir.PtrDescriptor); ok {
		td = ptr.Element
	}
	ref, ok := td.(*ir.ReferenceDescriptor)
	if !ok {
		return nil
	}
	st, _ := g.schema.FindType(ref.Target).(*ir.StructDescriptor)
	return st
}

// fieldParams flattens a struct, including embedded structs, into by-name
// params. Fields of the outer struct shadow promoted ones.
func (g *generator) fieldParams(st *ir.StructDescriptor, seen map[ir.GoIdentifier]bool) ([]ContentDescriptor, error) {
	if seen[st.Name] {
		return nil, nil
	}
	seen[st.Name] = true

	var params []ContentDescriptor
	names := make(map[string]bool)
	for _, f := range st.Fields {
		s, err := g.fieldSchema(f)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", f.Name, err)
		}
		names[f.JSONName] = true
		params = append(params, ContentDescriptor{
			Name:        f.JSONName,
			Description: f.Documentation.Body,
			Required:    !f.Optional,
			Schema:      s,
		})
	}
	for _, ext := range st.Extends {
		base, ok := g.schema.FindType(ext).(*ir.StructDescriptor)
		if !ok {
			return nil, fmt.Errorf("embedded type %s not found", ext)
		}
		promoted, err := g.fieldParams(base, seen)
		if err != nil {
			return nil, err
		}
		for _, p := range promoted {
			if !names[p.Name] {
				names[p.Name] = true
				params = append(params, p)
			}
		}
	}
	return params, nil
}

// namedSchema describes a catalogue type.
func (g *generator) namedSchema(td ir.TypeDescriptor) (*Schema, error) {
	var s *Schema
	switch t := td.(type) {
	case *ir.StructDescriptor:
		obj, err := g.objectSchema(t)
		if err != nil {
			return nil, err
		}
		s = obj
		if len(t.Extends) > 0 {
			s = &Schema{}
			for _, ext := range t.Extends {
				s.AllOf = append(s.AllOf, &Schema{Ref: RefPrefix + ext.Name})
			}
			s.AllOf = append(s.AllOf, obj)
		}
	case *ir.AliasDescriptor:
		u, err := g.typeSchema(t.Underlying)
		if err != nil {
			return nil, err
		}
		s = u
	default:
		return nil, fmt.Errorf("unsupported top-level type kind: %s", td.Kind())
	}

	doc := td.Doc()
	if doc.Body != "" {
		s.Description = doc.Body
	}
	s.Deprecated = doc.Deprecated != nil
	return s, nil
}

func (g *generator) objectSchema(st *ir.StructDescriptor) (*Schema, error) {
	s := &Schema{Type: "object", Properties: map[string]*Schema{}}
	for _, f := range st.Fields {
		fs, err := g.fieldSchema(f)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", f.Name, err)
		}
		if f.Documentation.Body != "" {
			fs.Description = f.Documentation.Body
		}
		s.Properties[f.JSONName] = fs
		if !f.Optional {
			s.Required = append(s.Required, f.JSONName)
		}
	}
	return s, nil
}

// fieldSchema applies the field's tags to its type schema.
func (g *generator) fieldSchema(f ir.FieldDescriptor) (*Schema, error) {
	if f.StringEncoded {
		return &Schema{Type: "string"}, nil
	}
	var s *Schema
	var err error
	if f.Optional {
		// Omitted rather than null when empty.
		typ := f.Type
		if ptr, ok := typ.(*ir.PtrDescriptor); ok {
			typ = ptr.Element
		}
		s, err = g.typeSchema(typ)
	} else {
		s, err = g.valueSchema(f.Type)
	}
	if err != nil {
		return nil, err
	}
	applyValidateTag(s, f.ValidateTag)
	return s, nil
}

// applyValidateTag maps string formats from validate tags.
func applyValidateTag(s *Schema, tag string) {
	if s.Ref != "" || tag == "" {
		return
	}
	for _, rule := range strings.Split(tag, ",") {
		switch rule {
		case "email":
			s.Format = "email"
		case "url", "uri":
			s.Format = "uri"
		case "uuid", "uuid4":
			s.Format = "uuid"
		}
	}
}

// valueSchema describes a whole value: nil pointers, slices and maps
// encode as null.
func (g *generator) valueSchema(td ir.TypeDescriptor) (*Schema, error) {
	s, err := g.typeSchema(td)
	if err != nil {
		return nil, err
	}
	switch t := td.(type) {
	case *ir.MapDescriptor:
		return nullable(s), nil
	case *ir.ArrayDescriptor:
		if t.Length == 0 {
			return nullable(s), nil
		}
	case *ir.PrimitiveDescriptor:
		if t.PrimitiveKind == ir.PrimitiveBytes {
			return nullable(s), nil
		}
	}
	return s, nil
}

func (g *generator) typeSchema(td ir.TypeDescriptor) (*Schema, error) {
	switch t := td.(type) {
	case *ir.PrimitiveDescriptor:
		return primitiveSchema(t), nil
	case *ir.ReferenceDescriptor:
		return &Schema{Ref: RefPrefix + t.Target.Name}, nil
	case *ir.PtrDescriptor:
		elem, err := g.typeSchema(t.Element)
		if err != nil {
			return nil, err
		}
		return nullable(elem), nil
	case *ir.ArrayDescriptor:
		elem, err := g.typeSchema(t.Element)
		if err != nil {
			return nil, err
		}
		s := &Schema{Type: "array", Items: elem}
		if t.Length > 0 {
			n := t.Length
			s.MinItems, s.MaxItems = &n, &n
		}
		return s, nil
	case *ir.MapDescriptor:
		value, err := g.typeSchema(t.Value)
		if err != nil {
			return nil, err
		}
		return &Schema{Type: "object", AdditionalProperties: value}, nil
	case nil:
		return nil, fmt.Errorf("missing type descriptor")
	default:
		return nil, fmt.Errorf("unsupported type expression kind: %s", td.Kind())
	}
}

func primitiveSchema(p *ir.PrimitiveDescriptor) *Schema {
	switch p.PrimitiveKind {
	case ir.PrimitiveBool:
		return &Schema{Type: "boolean"}
	case ir.PrimitiveInt:
		return &Schema{Type: "integer", Format: intFormat(p.BitSize)}
	case ir.PrimitiveUint:
		zero := 0
		return &Schema{Type: "integer", Format: intFormat(p.BitSize), Minimum: &zero}
	case ir.PrimitiveFloat:
		if p.BitSize == 32 {
			return &Schema{Type: "number", Format: "float"}
		}
		return &Schema{Type: "number", Format: "double"}
	case ir.PrimitiveString:
		return &Schema{Type: "string"}
	case ir.PrimitiveBytes:
		return &Schema{Type: "string", ContentEncoding: "base64"}
	case ir.PrimitiveTime:
		return &Schema{Type: "string", Format: "date-time"}
	case ir.PrimitiveDuration:
		return &Schema{Type: "integer", Format: "int64", Description: "nanoseconds"}
	case ir.PrimitiveEmpty:
		zero := 0
		return &Schema{Type: "object", MaxProperties: &zero}
	case ir.PrimitiveNull:
		return &Schema{Type: "null"}
	default:
		return &Schema{}
	}
}

func intFormat(bits int) string {
	switch bits {
	case 32:
		return "int32"
	case 64:
		return "int64"
	}
	return ""
}

// nullable admits null in addition to s.
func nullable(s *Schema) *Schema {
	switch t := s.Type.(type) {
	case string:
		if s.Ref == "" && t != "null" {
			s.Type = []string{t, "null"}
			return s
		}
		return s
	case nil:
		if s.Ref == "" && len(s.AllOf) == 0 && len(s.OneOf) == 0 {
			// The empty schema already admits null.
			return s
		}
	default:
		return s
	}
	return &Schema{OneOf: []*Schema{s, {Type: "null"}}}
}
