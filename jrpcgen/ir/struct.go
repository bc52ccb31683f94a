package ir

// StructDescriptor represents a structured object type (Go struct).
type StructDescriptor struct {
	// Name is the type identifier.
	Name GoIdentifier

	// Fields contains all struct fields.
	Fields []FieldDescriptor

	// Extends contains embedded types without json tags.
	// Their fields are flattened into this struct's JSON.
	Extends []GoIdentifier

	// Documentation for this type.
	Documentation Documentation
}

// Kind returns KindStruct.
func (d *StructDescriptor) Kind() DescriptorKind { return KindStruct }

// TypeName returns the struct's name.
func (d *StructDescriptor) TypeName() GoIdentifier { return d.Name }

// Doc returns the struct's documentation.
func (d *StructDescriptor) Doc() Documentation { return d.Documentation }

func (*StructDescriptor) sealed() {}

// FieldDescriptor represents a single field within a struct.
type FieldDescriptor struct {
	// Name is the Go field name.
	Name string

	// Type is the field's type descriptor.
	Type TypeDescriptor

	// JSONName is the serialized property name (from json tag).
	// Falls back to Name if json tag is absent.
	JSONName string

	// Optional indicates the field may be absent on the wire.
	// This is true when json:",omitempty" or json:",omitzero" is set;
	// every other field is required by the dispatcher.
	Optional bool

	// StringEncoded indicates json:",string" was set.
	// When true, the field is encoded as a JSON string on the wire.
	StringEncoded bool

	// ValidateTag is the raw value from the `validate` struct tag.
	// Empty string if no validate tag is present.
	ValidateTag string

	// Documentation for this field.
	Documentation Documentation
}

// AliasDescriptor represents a defined type over a non-struct type,
// such as `type UserID string` or `type Tags []string`.
type AliasDescriptor struct {
	// Name is the type identifier.
	Name GoIdentifier

	// Underlying is the aliased type.
	Underlying TypeDescriptor

	// Documentation for this type.
	Documentation Documentation
}

// Kind returns KindAlias.
func (d *AliasDescriptor) Kind() DescriptorKind { return KindAlias }

// TypeName returns the alias's name.
func (d *AliasDescriptor) TypeName() GoIdentifier { return d.Name }

// Doc returns the alias's documentation.
func (d *AliasDescriptor) Doc() Documentation { return d.Documentation }

func (*AliasDescriptor) sealed() {}
