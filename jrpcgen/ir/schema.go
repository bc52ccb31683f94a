package ir

import "strings"

// Schema represents the complete set of types and methods of one service.
type Schema struct {
	// Types contains top-level named type descriptors to generate.
	// Only Struct and Alias descriptors appear here. Expression types
	// (Primitive, Array, Map, etc.) appear nested within fields.
	//
	// Ordering: providers emit types in first-reference, dependencies-first
	// order. Generators emit them in this order so output is deterministic,
	// but must not rely on it for correctness since recursive types
	// reference each other.
	Types []TypeDescriptor

	// Methods contains the service's methods in registration order.
	Methods []MethodDescriptor

	// Warnings contains non-fatal issues encountered during schema building.
	Warnings []Warning
}

// AddType adds a named type descriptor to the schema.
func (s *Schema) AddType(t TypeDescriptor) {
	s.Types = append(s.Types, t)
}

// AddMethod adds a method descriptor to the schema.
func (s *Schema) AddMethod(m MethodDescriptor) {
	s.Methods = append(s.Methods, m)
}

// AddWarning adds a warning to the schema.
func (s *Schema) AddWarning(w Warning) {
	s.Warnings = append(s.Warnings, w)
}

// FindType looks up a type by name. Returns nil if not found.
func (s *Schema) FindType(name GoIdentifier) TypeDescriptor {
	for _, t := range s.Types {
		if t.TypeName() == name {
			return t
		}
	}
	return nil
}

// FindMethod looks up a method by wire name. Returns nil if not found.
func (s *Schema) FindMethod(rpcName string) *MethodDescriptor {
	for i := range s.Methods {
		if s.Methods[i].RPCName == rpcName {
			return &s.Methods[i]
		}
	}
	return nil
}

// Validate checks the schema for structural issues.
// Returns all validation errors found (not just the first).
func (s *Schema) Validate() []error {
	var errs []*ValidationError

	// Build a set of type names from Schema.Types, checking for duplicates
	typeNames := make(map[GoIdentifier]bool)
	for _, t := range s.Types {
		name := t.TypeName()
		if name.IsZero() {
			errs = append(errs, &ValidationError{
				Code:    "unnamed_type",
				Message: "schema type has no name (kind: " + t.Kind().String() + ")",
			})
			continue
		}
		if typeNames[name] {
			errs = append(errs, &ValidationError{
				Code:    "duplicate_type",
				Message: "duplicate type name: " + name.Name + " (package: " + name.Package + ")",
			})
		}
		typeNames[name] = true
	}

	// Validate struct fields and Extends references
	for _, t := range s.Types {
		switch d := t.(type) {
		case *StructDescriptor:
			for _, field := range d.Fields {
				if field.StringEncoded && !isStringEncodableType(field.Type) {
					errs = append(errs, &ValidationError{
						Code:    "invalid_string_encoded",
						Message: "StringEncoded set on incompatible type for field " + d.Name.Name + "." + field.Name + ": only string, integer, float, and boolean types support json:\",string\"",
					})
				}
				errs = append(errs, validateTypeReferences(field.Type, typeNames, "field "+d.Name.Name+"."+field.Name)...)
			}
			for _, ext := range d.Extends {
				if !typeNames[ext] {
					errs = append(errs, &ValidationError{
						Code:    "missing_extends_reference",
						Message: "struct " + d.Name.Name + " extends unknown type: " + ext.Name,
					})
				}
			}
		case *AliasDescriptor:
			errs = append(errs, validateTypeReferences(d.Underlying, typeNames, "alias "+d.Name.Name)...)
		}
	}

	if circularErrs := s.detectCircularInheritance(); len(circularErrs) > 0 {
		errs = append(errs, circularErrs...)
	}

	rpcNames := make(map[string]bool)
	exposedNames := make(map[string]bool)
	for _, m := range s.Methods {
		if rpcNames[m.RPCName] {
			errs = append(errs, &ValidationError{
				Code:    "duplicate_method",
				Message: "duplicate method name: " + m.RPCName,
			})
		}
		rpcNames[m.RPCName] = true

		if exposedNames[m.ExposedName] {
			errs = append(errs, &ValidationError{
				Code:    "duplicate_exposed_name",
				Message: "duplicate client method name: " + m.ExposedName,
			})
		}
		exposedNames[m.ExposedName] = true

		if m.Notification && m.Result != nil {
			errs = append(errs, &ValidationError{
				Code:    "notification_result",
				Message: "notification " + m.RPCName + " has a result",
			})
		}
		if !m.Notification && m.Result == nil {
			errs = append(errs, &ValidationError{
				Code:    "missing_result",
				Message: "method " + m.RPCName + " has no result",
			})
		}
		if m.ParamStructure == ByName && len(m.Params) > 1 {
			errs = append(errs, &ValidationError{
				Code:    "structured_arity",
				Message: "by-name method " + m.RPCName + " has more than one parameter",
			})
		}

		for _, p := range m.Params {
			errs = append(errs, validateTypeReferences(p.Type, typeNames, "method "+m.RPCName+" param "+p.Name)...)
		}
		if m.Result != nil {
			errs = append(errs, validateTypeReferences(m.Result, typeNames, "method "+m.RPCName+" result")...)
		}
	}

	var result []error
	for _, e := range errs {
		result = append(result, e)
	}
	return result
}

// isStringEncodableType checks if a type supports json:",string" encoding.
// Per Go's encoding/json, only string, integer, floating-point, and boolean
// types can use the string option.
func isStringEncodableType(td TypeDescriptor) bool {
	if td == nil {
		return false
	}

	switch d := td.(type) {
	case *PrimitiveDescriptor:
		switch d.PrimitiveKind {
		case PrimitiveString, PrimitiveBool, PrimitiveInt, PrimitiveUint, PrimitiveFloat:
			return true
		}
	case *PtrDescriptor:
		return isStringEncodableType(d.Element)
	}
	return false
}

// validateTypeReferences recursively walks a TypeDescriptor and checks that all
// ReferenceDescriptors point to types that exist in typeNames.
func validateTypeReferences(td TypeDescriptor, typeNames map[GoIdentifier]bool, context string) []*ValidationError {
	if td == nil {
		return nil
	}

	var errs []*ValidationError

	switch d := td.(type) {
	case *ReferenceDescriptor:
		if !typeNames[d.Target] {
			errs = append(errs, &ValidationError{
				Code:    "missing_type_reference",
				Message: context + " references unknown type: " + d.Target.Name,
			})
		}
	case *ArrayDescriptor:
		errs = append(errs, validateTypeReferences(d.Element, typeNames, context)...)
	case *MapDescriptor:
		errs = append(errs, validateTypeReferences(d.Key, typeNames, context)...)
		errs = append(errs, validateTypeReferences(d.Value, typeNames, context)...)
	case *PtrDescriptor:
		errs = append(errs, validateTypeReferences(d.Element, typeNames, context)...)
	}

	return errs
}

// ValidationError represents a schema validation error.
type ValidationError struct {
	Code    string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// detectCircularInheritance checks for cycles in struct inheritance (Extends).
func (s *Schema) detectCircularInheritance() []*ValidationError {
	var errs []*ValidationError

	structs := make(map[GoIdentifier]*StructDescriptor)
	for _, t := range s.Types {
		if sd, ok := t.(*StructDescriptor); ok {
			structs[sd.Name] = sd
		}
	}

	visited := make(map[GoIdentifier]bool)
	inStack := make(map[GoIdentifier]bool)

	var detect func(name GoIdentifier, path []string)
	detect = func(name GoIdentifier, path []string) {
		if inStack[name] {
			errs = append(errs, &ValidationError{
				Code:    "circular_inheritance",
				Message: "circular inheritance detected: " + strings.Join(append(path, name.Name), " -> "),
			})
			return
		}
		if visited[name] {
			return
		}

		visited[name] = true
		inStack[name] = true

		if sd, ok := structs[name]; ok {
			for _, ext := range sd.Extends {
				detect(ext, append(path, name.Name))
			}
		}

		inStack[name] = false
	}

	// Walk in declaration order so reported cycles are stable.
	for _, t := range s.Types {
		if sd, ok := t.(*StructDescriptor); ok {
			detect(sd.Name, nil)
		}
	}

	return errs
}
