package typescript

// Well-known file names of the client module.
const (
	TypesFile   = "types.ts"
	JSONRPCFile = "jsonrpc.ts"
	ClientFile  = "client.ts"
)

// MethodsMarker is replaced by the generated wrappers in a client template.
const MethodsMarker = "#methods"

// ClientOptions configures client generation.
type ClientOptions struct {
	// Template is the client.ts source containing MethodsMarker exactly once.
	// The embedded default template is used when empty.
	Template string

	// EmitComments includes documentation comments in output.
	EmitComments bool

	// UseReadonlyArrays uses 'readonly T[]' instead of 'T[]'.
	UseReadonlyArrays bool

	// UnknownType specifies the type for Go's 'any' or 'interface{}'.
	// SHOULD be one of: "unknown", "any". Defaults to "unknown".
	UnknownType string

	// Frontmatter is added to the top of types.ts, after the header.
	Frontmatter string
}

// ClientModule is a generated client, held in memory.
type ClientModule struct {
	// Files are types.ts, jsonrpc.ts and client.ts, in that order.
	Files []File
}

// File is one generated file.
type File struct {
	// Path is relative to the client directory.
	Path    string
	Content []byte
}

// File returns the content of the named file, or nil.
func (m *ClientModule) File(path string) []byte {
	for _, f := range m.Files {
		if f.Path == path {
			return f.Content
		}
	}
	return nil
}
