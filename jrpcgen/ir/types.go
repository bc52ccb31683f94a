// Package ir defines the intermediate representation shared by the client
// and schema generators. A Schema holds a deduplicated catalogue of named
// types plus the methods of one service, in registration order.
package ir

// GoIdentifier represents a named Go entity with package context.
// The Name field contains a sanitized identifier that is always a valid Go identifier.
// For generic instantiations, providers produce names like "Page_User"
// instead of "Page[User]".
type GoIdentifier struct {
	// Name is the sanitized identifier, always matching [A-Za-z_][A-Za-z0-9_]*.
	Name string

	// Package is the fully qualified package path.
	// Empty for builtin types.
	Package string
}

// IsZero returns true if the identifier is empty.
func (id GoIdentifier) IsZero() bool {
	return id.Name == "" && id.Package == ""
}

// String returns "pkg.Name", or Name for builtin types.
func (id GoIdentifier) String() string {
	if id.Package == "" {
		return id.Name
	}
	return id.Package + "." + id.Name
}

// Documentation holds documentation attached to a method or type.
type Documentation struct {
	// Summary is the first sentence or paragraph, suitable for brief descriptions.
	Summary string

	// Body is the complete documentation text, including the summary.
	// May contain multiple paragraphs separated by blank lines.
	Body string

	// Deprecated is non-nil if the symbol is marked deprecated.
	// The string value is the deprecation message (may be empty).
	Deprecated *string
}

// IsZero returns true if the documentation is empty.
func (d Documentation) IsZero() bool {
	return d.Summary == "" && d.Body == "" && d.Deprecated == nil
}

// Warning represents a non-fatal issue encountered during generation.
type Warning struct {
	// Code is a machine-readable warning identifier.
	Code string

	// Message is a human-readable description.
	Message string

	// TypeName is the type that triggered the warning, if applicable.
	TypeName string
}
