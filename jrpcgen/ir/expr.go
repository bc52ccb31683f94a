package ir

// ArrayDescriptor represents an ordered collection (slice or fixed-length array).
//
// Nullability: Go slices (Length == 0) can be nil, which serializes to JSON null.
// This is NOT represented with PtrDescriptor; generators derive nullability
// from context:
//   - If Optional=false: field: T[] | null (always present, can be null)
//   - If Optional=true: field?: T[] (optional, never null when present)
//
// Only []byte slices are base64-encoded (represented as PrimitiveBytes).
type ArrayDescriptor struct {
	exprBase

	// Element is the array element type.
	Element TypeDescriptor

	// Length is 0 for slices ([]T), or >0 for fixed-length arrays ([N]T).
	Length int
}

// Kind returns KindArray.
func (d *ArrayDescriptor) Kind() DescriptorKind { return KindArray }

// Slice returns an ArrayDescriptor for a slice type.
func Slice(element TypeDescriptor) *ArrayDescriptor {
	return &ArrayDescriptor{Element: element, Length: 0}
}

// Array returns an ArrayDescriptor for a fixed-length array.
func Array(element TypeDescriptor, length int) *ArrayDescriptor {
	return &ArrayDescriptor{Element: element, Length: length}
}

// MapDescriptor represents a key-value mapping.
// Nullability follows the same rules as ArrayDescriptor.
type MapDescriptor struct {
	exprBase

	// Key is the map key type.
	Key TypeDescriptor

	// Value is the map value type.
	Value TypeDescriptor
}

// Kind returns KindMap.
func (d *MapDescriptor) Kind() DescriptorKind { return KindMap }

// Map returns a MapDescriptor for a map type.
func Map(key, value TypeDescriptor) *MapDescriptor {
	return &MapDescriptor{Key: key, Value: value}
}

// ReferenceDescriptor represents a reference to a named type in Schema.Types.
type ReferenceDescriptor struct {
	exprBase

	// Target is the referenced type's identifier.
	Target GoIdentifier
}

// Kind returns KindReference.
func (d *ReferenceDescriptor) Kind() DescriptorKind { return KindReference }

// Ref returns a ReferenceDescriptor for a named type.
func Ref(name string, pkg string) *ReferenceDescriptor {
	return &ReferenceDescriptor{Target: GoIdentifier{Name: name, Package: pkg}}
}

// PtrDescriptor represents a Go pointer type (*T).
// The output depends on context:
//   - If Optional=false: field: T | null (always present, can be null)
//   - If Optional=true: field?: T (optional, never null when present)
type PtrDescriptor struct {
	exprBase

	// Element is the pointed-to type.
	Element TypeDescriptor
}

// Kind returns KindPtr.
func (d *PtrDescriptor) Kind() DescriptorKind { return KindPtr }

// Ptr returns a PtrDescriptor for a pointer type.
func Ptr(element TypeDescriptor) *PtrDescriptor {
	return &PtrDescriptor{Element: element}
}

// Nullable reports whether JSON null is a legal value for td:
// pointers, slices, maps and any.
func Nullable(td TypeDescriptor) bool {
	switch d := td.(type) {
	case *PtrDescriptor, *MapDescriptor:
		return true
	case *ArrayDescriptor:
		return d.Length == 0
	case *PrimitiveDescriptor:
		return d.PrimitiveKind == PrimitiveAny || d.PrimitiveKind == PrimitiveBytes || d.PrimitiveKind == PrimitiveNull
	}
	return false
}
