// Package provider builds the generator IR from a validated registry.
// Types are discovered by reflecting over handler signatures, so the IR
// always agrees with what the dispatcher decodes and encodes.
package provider

import (
	"context"
	"encoding"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	"github.com/broady/jrpc"
	"github.com/broady/jrpc/internal/jsontag"
	"github.com/broady/jrpc/jrpcgen/ir"
	"github.com/iancoleman/strcase"
)

var (
	textMarshalerType = reflect.TypeOf((*encoding.TextMarshaler)(nil)).Elem()
	jsonMarshalerType = reflect.TypeOf((*json.Marshaler)(nil)).Elem()
)

// ReflectionProvider extracts methods and types using runtime reflection.
type ReflectionProvider struct{}

// BuildSchema returns the schema for every method of reg, in registration
// order. Named types appear in Types once, dependencies first, in the order
// they are first reached: parameters before results, method by method.
func (p *ReflectionProvider) BuildSchema(ctx context.Context, reg *jrpc.Registry) (*ir.Schema, error) {
	if reg == nil {
		return nil, fmt.Errorf("no registry provided")
	}

	b := &reflectionSchemaBuilder{
		schema:      &ir.Schema{},
		visited:     make(map[reflect.Type]bool),
		processing:  make(map[reflect.Type]bool),
		anonStructs: make(map[reflect.Type]string),
		typeNames:   make(map[string]reflect.Type),
	}

	for _, d := range reg.Methods() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		m, err := b.extractMethod(ctx, d)
		if err != nil {
			return nil, fmt.Errorf("method %q: %w", d.RPCName, err)
		}
		b.schema.AddMethod(m)
	}
	return b.schema, nil
}

// reflectionSchemaBuilder maintains state during schema construction.
type reflectionSchemaBuilder struct {
	schema      *ir.Schema
	visited     map[reflect.Type]bool   // Types already added
	processing  map[reflect.Type]bool   // Types being added (recursion guard)
	anonStructs map[reflect.Type]string // Anonymous struct -> synthetic name
	typeNames   map[string]reflect.Type // Emitted name -> owning type
}

func (b *reflectionSchemaBuilder) extractMethod(ctx context.Context, d *jrpc.MethodDescriptor) (ir.MethodDescriptor, error) {
	m := ir.MethodDescriptor{
		RPCName:       d.RPCName,
		ExposedName:   d.ExposedName,
		Notification:  d.Notification,
		Documentation: Documentation(d.Docs),
	}
	positional := d.Params.Kind == jrpc.ShapePositional
	if positional {
		m.ParamStructure = ir.ByPosition
	}

	// Anonymous parameter and result structs are named after the method.
	base := strcase.ToCamel(d.ExposedName)
	for i, p := range d.Params.Params {
		name := d.ArgName(i)
		synthetic := base + "Params"
		if positional {
			synthetic = base + strcase.ToCamel(name)
		}
		td, err := b.typeToDescriptor(ctx, p.Type.Type, synthetic, "")
		if err != nil {
			return ir.MethodDescriptor{}, fmt.Errorf("parameter %s: %w", name, err)
		}
		required := p.Type.Type.Kind() != reflect.Pointer
		if !positional {
			required = structuredRequired(p.Type.Type)
		}
		m.Params = append(m.Params, ir.ParamDescriptor{Name: name, Type: td, Required: required})
	}

	if d.Result != nil {
		if d.Result.IsUnit() {
			m.Result = ir.Null()
		} else {
			td, err := b.typeToDescriptor(ctx, d.Result.Type, base+"Result", "")
			if err != nil {
				return ir.MethodDescriptor{}, fmt.Errorf("result: %w", err)
			}
			m.Result = td
		}
	}
	return m, nil
}

// structuredRequired reports whether a params object must be sent:
// absent params decode as {}, which only satisfies types without
// required fields.
func structuredRequired(t reflect.Type) bool {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if jsontag.CustomDecoded(t) {
		return false
	}
	switch t.Kind() {
	case reflect.Struct:
		for _, f := range jsontag.Fields(t) {
			if !f.Optional {
				return true
			}
		}
		return false
	case reflect.Map, reflect.Interface:
		return false
	}
	return true
}

// Documentation splits handler docs into a summary and a body.
func Documentation(text string) ir.Documentation {
	text = strings.TrimSpace(text)
	if text == "" {
		return ir.Documentation{}
	}
	summary, _, _ := strings.Cut(text, "\n\n")
	summary = strings.Join(strings.Fields(summary), " ")
	if i := strings.Index(summary, ". "); i >= 0 {
		summary = summary[:i+1]
	}
	return ir.Documentation{Summary: summary, Body: text}
}

// extractType adds the named struct or alias t to the schema.
func (b *reflectionSchemaBuilder) extractType(ctx context.Context, t reflect.Type) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if b.visited[t] || b.processing[t] {
		// Recursive types are emitted once; references resolve by name.
		return nil
	}

	b.processing[t] = true
	defer delete(b.processing, t)

	var err error
	if t.Kind() == reflect.Struct {
		err = b.extractStruct(ctx, t, b.getTypeName(t), t.PkgPath())
	} else {
		err = b.extractAlias(ctx, t)
	}
	if err == nil {
		b.visited[t] = true
	}
	return err
}

// claimName records that name is emitted for t. Generated code has a single
// namespace, so two distinct types may not share a name even when their
// packages differ.
func (b *reflectionSchemaBuilder) claimName(name string, t reflect.Type) error {
	if owner, ok := b.typeNames[name]; ok && owner != t {
		return &ir.GenerationError{
			Type:    typeString(t),
			Message: fmt.Sprintf("name %s is already used by %s", name, typeString(owner)),
		}
	}
	b.typeNames[name] = t
	return nil
}

func typeString(t reflect.Type) string {
	if t.Name() != "" && t.PkgPath() != "" {
		return t.PkgPath() + "." + t.Name()
	}
	return t.String()
}

// extractStruct adds a struct under name; anonymous structs get a
// synthetic name from their parent.
func (b *reflectionSchemaBuilder) extractStruct(ctx context.Context, t reflect.Type, name, pkg string) error {
	if err := b.claimName(name, t); err != nil {
		return err
	}

	fields := []ir.FieldDescriptor{}
	extends := []ir.GoIdentifier{}

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		tag := jsontag.Parse(field.Tag.Get("json"), field.Name)
		if tag.Skip {
			continue
		}

		if field.Anonymous && field.Tag.Get("json") == "" {
			embedded := field.Type
			for embedded.Kind() == reflect.Ptr {
				embedded = embedded.Elem()
			}
			if embedded.Kind() == reflect.Struct {
				// Untagged embedded structs are flattened by encoding/json.
				if err := b.extractType(ctx, embedded); err != nil {
					return err
				}
				extends = append(extends, ir.GoIdentifier{Name: b.getTypeName(embedded), Package: embedded.PkgPath()})
				continue
			}
		}
		if !field.IsExported() {
			continue
		}

		fd, err := b.buildFieldDescriptor(ctx, field, tag, name+"_"+field.Name, pkg)
		if err != nil {
			return fmt.Errorf("field %s.%s: %w", name, field.Name, err)
		}
		fields = append(fields, fd)
	}

	b.schema.AddType(&ir.StructDescriptor{
		Name:    ir.GoIdentifier{Name: name, Package: pkg},
		Fields:  fields,
		Extends: extends,
	})
	return nil
}

// extractAlias adds a defined non-struct type such as `type UserID string`.
func (b *reflectionSchemaBuilder) extractAlias(ctx context.Context, t reflect.Type) error {
	name := b.getTypeName(t)
	if err := b.claimName(name, t); err != nil {
		return err
	}

	underlying, err := b.underlyingDescriptor(ctx, t)
	if err != nil {
		return err
	}

	b.schema.AddType(&ir.AliasDescriptor{
		Name:       ir.GoIdentifier{Name: name, Package: t.PkgPath()},
		Underlying: underlying,
	})
	return nil
}

// buildFieldDescriptor creates a FieldDescriptor from a struct field.
// syntheticName names the field's type if it is an anonymous struct.
func (b *reflectionSchemaBuilder) buildFieldDescriptor(ctx context.Context, field reflect.StructField, tag jsontag.Tag, syntheticName, parentPkg string) (ir.FieldDescriptor, error) {
	fieldType, err := b.typeToDescriptor(ctx, field.Type, syntheticName, parentPkg)
	if err != nil {
		return ir.FieldDescriptor{}, err
	}

	return ir.FieldDescriptor{
		Name:          field.Name,
		Type:          fieldType,
		JSONName:      tag.Name,
		Optional:      tag.Optional,
		StringEncoded: tag.StringEncoded,
		ValidateTag:   field.Tag.Get("validate"),
	}, nil
}

// isNamed reports whether t is a user-defined type that gets its own
// declaration.
func isNamed(t reflect.Type) bool {
	return t.Name() != "" && t.PkgPath() != ""
}

// typeToDescriptor converts a reflect.Type to a TypeDescriptor.
// parentName names anonymous structs found at this position; parentPkg is
// the package of the containing type.
func (b *reflectionSchemaBuilder) typeToDescriptor(ctx context.Context, t reflect.Type, parentName, parentPkg string) (ir.TypeDescriptor, error) {
	if desc := b.checkSpecialType(t); desc != nil {
		return desc, nil
	}
	if err := checkUnsupportedType(t); err != nil {
		return nil, err
	}

	switch t.Kind() {
	case reflect.Ptr:
		elem, err := b.typeToDescriptor(ctx, t.Elem(), parentName, parentPkg)
		if err != nil {
			return nil, err
		}
		return ir.Ptr(elem), nil

	case reflect.Struct:
		if t.Name() == "" {
			return b.handleAnonymousStruct(ctx, t, parentName, parentPkg)
		}
		if err := b.extractType(ctx, t); err != nil {
			return nil, err
		}
		return ir.Ref(b.getTypeName(t), t.PkgPath()), nil

	case reflect.Interface:
		typeName := t.String()
		b.addWarning("INTERFACE_TYPE", fmt.Sprintf("Interface type %s mapped to 'any'", typeName), typeName)
		return ir.Any(), nil
	}

	if isNamed(t) {
		if err := b.extractType(ctx, t); err != nil {
			return nil, err
		}
		return ir.Ref(b.getTypeName(t), t.PkgPath()), nil
	}
	return b.underlyingDescriptor(ctx, t)
}

// underlyingDescriptor describes the structure of t without referring to
// t's own name, for inline types and alias bodies.
func (b *reflectionSchemaBuilder) underlyingDescriptor(ctx context.Context, t reflect.Type) (ir.TypeDescriptor, error) {
	switch t.Kind() {
	case reflect.Bool:
		return ir.Bool(), nil
	case reflect.Int:
		return ir.Int(0), nil
	case reflect.Int8:
		return ir.Int(8), nil
	case reflect.Int16:
		return ir.Int(16), nil
	case reflect.Int32:
		return ir.Int(32), nil
	case reflect.Int64:
		return ir.Int(64), nil
	case reflect.Uint, reflect.Uintptr:
		return ir.Uint(0), nil
	case reflect.Uint8:
		return ir.Uint(8), nil
	case reflect.Uint16:
		return ir.Uint(16), nil
	case reflect.Uint32:
		return ir.Uint(32), nil
	case reflect.Uint64:
		return ir.Uint(64), nil
	case reflect.Float32:
		return ir.Float(32), nil
	case reflect.Float64:
		return ir.Float(64), nil
	case reflect.String:
		return ir.String(), nil

	case reflect.Slice:
		if t.Elem().Kind() == reflect.Uint8 {
			return ir.Bytes(), nil
		}
		elem, err := b.typeToDescriptor(ctx, t.Elem(), "", "")
		if err != nil {
			return nil, err
		}
		return ir.Slice(elem), nil

	case reflect.Array:
		elem, err := b.typeToDescriptor(ctx, t.Elem(), "", "")
		if err != nil {
			return nil, err
		}
		return ir.Array(elem, t.Len()), nil

	case reflect.Map:
		if err := validateMapKeyType(t.Key()); err != nil {
			return nil, err
		}
		key, err := b.typeToDescriptor(ctx, t.Key(), "", "")
		if err != nil {
			return nil, err
		}
		value, err := b.typeToDescriptor(ctx, t.Elem(), "", "")
		if err != nil {
			return nil, err
		}
		return ir.Map(key, value), nil

	case reflect.Ptr:
		elem, err := b.typeToDescriptor(ctx, t.Elem(), "", "")
		if err != nil {
			return nil, err
		}
		return ir.Ptr(elem), nil
	}
	return nil, &ir.GenerationError{
		Type:    typeString(t),
		Message: fmt.Sprintf("unsupported kind %s", t.Kind()),
	}
}

// checkSpecialType returns the dedicated IR form of types whose JSON
// encoding differs from their Go structure.
func (b *reflectionSchemaBuilder) checkSpecialType(t reflect.Type) ir.TypeDescriptor {
	switch {
	case t.PkgPath() == "time" && t.Name() == "Time":
		return ir.Time()
	case t.PkgPath() == "time" && t.Name() == "Duration":
		return ir.Duration()
	case t.PkgPath() == "encoding/json" && t.Name() == "Number":
		return ir.String()
	case t.PkgPath() == "encoding/json" && t.Name() == "RawMessage":
		return ir.Any()
	case t.Kind() == reflect.Interface && t.NumMethod() == 0:
		return ir.Any()
	case t.Kind() == reflect.Struct && t.NumField() == 0 && t.Name() == "":
		return ir.Empty()
	}

	if t.Name() != "" && t.Kind() != reflect.Ptr && t.Kind() != reflect.Interface {
		pt := reflect.PointerTo(t)
		if pt.Implements(jsonMarshalerType) {
			b.addWarning("CUSTOM_MARSHALER", fmt.Sprintf("Type %s has custom JSON encoding, mapped to 'any'", t), t.String())
			return ir.Any()
		}
		if pt.Implements(textMarshalerType) {
			return ir.String()
		}
	}
	return nil
}

// checkUnsupportedType returns an error if the type has no JSON form.
func checkUnsupportedType(t reflect.Type) error {
	switch t.Kind() {
	case reflect.Chan, reflect.Complex64, reflect.Complex128, reflect.Func, reflect.UnsafePointer:
		return &ir.GenerationError{
			Type:    t.String(),
			Message: fmt.Sprintf("unsupported kind %s", t.Kind()),
		}
	}
	return nil
}

// validateMapKeyType validates that the map key encodes as a JSON object key.
func validateMapKeyType(t reflect.Type) error {
	switch t.Kind() {
	case reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return nil
	case reflect.Struct:
		if reflect.PointerTo(t).Implements(textMarshalerType) {
			return nil
		}
		return &ir.GenerationError{Type: typeString(t), Message: "unsupported map key: struct without TextMarshaler"}
	}
	return &ir.GenerationError{Type: typeString(t), Message: fmt.Sprintf("unsupported map key kind %s", t.Kind())}
}

// handleAnonymousStruct names an anonymous struct after its position.
func (b *reflectionSchemaBuilder) handleAnonymousStruct(ctx context.Context, t reflect.Type, parentName, parentPkg string) (ir.TypeDescriptor, error) {
	if syntheticName, exists := b.anonStructs[t]; exists {
		return ir.Ref(syntheticName, parentPkg), nil
	}
	if parentName == "" {
		return nil, &ir.GenerationError{Type: t.String(), Message: "anonymous struct has no name context"}
	}

	b.anonStructs[t] = parentName
	if err := b.extractStruct(ctx, t, parentName, parentPkg); err != nil {
		return nil, err
	}
	return ir.Ref(parentName, parentPkg), nil
}

// getTypeName returns the emitted name of t, flattening generic
// instantiations.
func (b *reflectionSchemaBuilder) getTypeName(t reflect.Type) string {
	name := t.Name()
	if strings.Contains(name, "[") {
		return syntheticName(name)
	}
	return name
}

// syntheticName turns a generic instantiation name into an identifier:
// "Page[example.com/app.User]" becomes "Page_User".
func syntheticName(name string) string {
	var sb strings.Builder
	start := -1
	flush := func(end int) {
		if start < 0 {
			return
		}
		word := name[start:end]
		if i := strings.LastIndexByte(word, '.'); i >= 0 {
			word = word[i+1:]
		}
		sb.WriteString(word)
		start = -1
	}

	for i := 0; i < len(name); i++ {
		c := name[i]
		if isWordByte(c) {
			if start < 0 {
				start = i
			}
			continue
		}
		flush(i)
		switch c {
		case '[':
			if i+1 < len(name) && name[i+1] == ']' {
				sb.WriteString("Slice")
				i++
			} else {
				sb.WriteByte('_')
			}
		case ',':
			sb.WriteByte('_')
		case '*':
			sb.WriteString("Ptr")
		}
	}
	flush(len(name))
	return sb.String()
}

func isWordByte(c byte) bool {
	return c == '_' || c == '.' || c == '/' || c == '-' ||
		'a' <= c && c <= 'z' || 'A' <= c && c <= 'Z' || '0' <= c && c <= '9'
}

// addWarning adds a warning to the schema.
func (b *reflectionSchemaBuilder) addWarning(code, message, typeName string) {
	b.schema.AddWarning(ir.Warning{
		Code:     code,
		Message:  message,
		TypeName: typeName,
	})
}
