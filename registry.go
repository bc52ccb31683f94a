package jrpc

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"

	"github.com/iancoleman/strcase"
)

// ShapeKind selects how the wire params map onto handler arguments.
type ShapeKind int

const (
	// ShapeStructured: params are one JSON object decoded into at most one argument.
	ShapeStructured ShapeKind = iota
	// ShapePositional: params are a JSON array decoded argument by argument.
	ShapePositional
)

func (k ShapeKind) String() string {
	if k == ShapePositional {
		return "positional"
	}
	return "structured"
}

// Param is one handler argument.
type Param struct {
	Name string // empty when not named
	Type TypeRef
}

// ParamShape describes the parameters of a method.
type ParamShape struct {
	Kind   ShapeKind
	Params []Param
}

// MethodDescriptor is the validated description of one registered method.
type MethodDescriptor struct {
	// RPCName is the wire method identifier.
	RPCName string
	// ExposedName is the lowerCamelCase name used in generated clients.
	ExposedName string
	Params      ParamShape
	// Result is nil for notifications.
	Result       *TypeRef
	Notification bool
	Docs         string

	fn reflect.Value
}

// Targets selects the generated outputs. At least one must be set.
type Targets struct {
	// ClientDir receives the TypeScript client module.
	ClientDir string
	// SchemaFile receives the OpenRPC document.
	SchemaFile string
}

// Builder collects method declarations for a service.
// Call Build to validate them into a Registry.
type Builder struct {
	allPositional bool
	targets       Targets
	entries       []builderEntry
}

type builderEntry struct {
	name   string
	method *Method
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// AllPositional makes every method take positional params.
func (b *Builder) AllPositional() *Builder {
	b.allPositional = true
	return b
}

// WithTargets sets the generated outputs.
func (b *Builder) WithTargets(t Targets) *Builder {
	b.targets = t
	return b
}

// WithClientDir sets the directory for the TypeScript client.
func (b *Builder) WithClientDir(dir string) *Builder {
	b.targets.ClientDir = dir
	return b
}

// WithSchemaFile sets the path of the OpenRPC document.
func (b *Builder) WithSchemaFile(path string) *Builder {
	b.targets.SchemaFile = path
	return b
}

// Register adds a method under the given name. The wire name is the
// registered name unless overridden with [Method.Name].
// Methods keep their registration order in every generated artifact.
func (b *Builder) Register(name string, m *Method) *Builder {
	b.entries = append(b.entries, builderEntry{name: name, method: m})
	return b
}

// Registry is the validated, immutable set of methods of a service.
type Registry struct {
	methods []*MethodDescriptor
	byName  map[string]*MethodDescriptor
	targets Targets
}

// Build validates the declarations and returns the Registry.
// All problems are reported together as *ValidationError values joined
// with errors.Join; no Registry is returned when any exist.
func (b *Builder) Build() (*Registry, error) {
	var errs []error
	reg := &Registry{
		byName:  make(map[string]*MethodDescriptor, len(b.entries)),
		targets: b.targets,
	}
	exposed := make(map[string]string, len(b.entries))

	if b.targets.ClientDir == "" && b.targets.SchemaFile == "" {
		errs = append(errs, &ValidationError{
			Kind:    NoTarget,
			Message: "at least one of the client directory or the schema file must be set",
		})
	}

	for _, e := range b.entries {
		desc, err := b.describe(e)
		if err != nil {
			errs = append(errs, err)
			continue
		}

		if _, dup := reg.byName[desc.RPCName]; dup {
			errs = append(errs, &ValidationError{
				Kind:    DuplicateName,
				Method:  e.name,
				Message: fmt.Sprintf("wire name %q is already registered", desc.RPCName),
			})
			continue
		}
		if other, dup := exposed[desc.ExposedName]; dup {
			errs = append(errs, &ValidationError{
				Kind:    DuplicateName,
				Method:  e.name,
				Message: fmt.Sprintf("client name %q collides with method %q", desc.ExposedName, other),
			})
			continue
		}

		reg.byName[desc.RPCName] = desc
		exposed[desc.ExposedName] = desc.RPCName
		reg.methods = append(reg.methods, desc)
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return reg, nil
}

func (b *Builder) describe(e builderEntry) (*MethodDescriptor, error) {
	if e.method == nil {
		return nil, &ValidationError{Kind: InvalidSignature, Method: e.name, Message: "method is nil"}
	}
	m := e.method

	sig, err := m.signature()
	if err != nil {
		return nil, &ValidationError{Kind: InvalidSignature, Method: e.name, Message: err.Error()}
	}

	rpcName := e.name
	if m.name != "" {
		rpcName = m.name
	}
	if rpcName == "" {
		return nil, &ValidationError{Kind: InvalidSignature, Method: e.name, Message: "method name is empty"}
	}

	desc := &MethodDescriptor{
		RPCName:      rpcName,
		ExposedName:  strcase.ToLowerCamel(rpcName),
		Notification: m.notification,
		Docs:         m.docs,
		fn:           m.fn,
	}

	if len(m.paramNames) > len(sig.params) {
		return nil, &ValidationError{
			Kind:    InvalidSignature,
			Method:  e.name,
			Message: fmt.Sprintf("%d parameter names given for %d parameters", len(m.paramNames), len(sig.params)),
		}
	}

	desc.Params.Kind = ShapeStructured
	if m.positional || b.allPositional {
		desc.Params.Kind = ShapePositional
	}
	if desc.Params.Kind == ShapeStructured && len(sig.params) > 1 {
		return nil, &ValidationError{
			Kind:    StructuredArity,
			Method:  e.name,
			Message: fmt.Sprintf("structured methods take at most one parameter, got %d; wrap them in one type or mark the method positional", len(sig.params)),
		}
	}
	for i, pt := range sig.params {
		p := Param{Type: newTypeRef(pt)}
		if i < len(m.paramNames) {
			p.Name = m.paramNames[i]
		}
		desc.Params.Params = append(desc.Params.Params, p)
	}

	result := unitRef()
	if sig.hasResult {
		result = newTypeRef(sig.result)
	}
	if desc.Notification {
		if !result.IsUnit() {
			return nil, &ValidationError{
				Kind:    NotificationResult,
				Method:  e.name,
				Message: fmt.Sprintf("notifications cannot return a value, got %s", result.Type),
			}
		}
	} else {
		desc.Result = &result
	}

	return desc, nil
}

// Methods returns the method descriptors in registration order.
func (r *Registry) Methods() []*MethodDescriptor {
	out := make([]*MethodDescriptor, len(r.methods))
	copy(out, r.methods)
	return out
}

// Lookup returns the method registered under a wire name.
func (r *Registry) Lookup(rpcName string) (*MethodDescriptor, bool) {
	d, ok := r.byName[rpcName]
	return d, ok
}

// Targets returns the requested outputs.
func (r *Registry) Targets() Targets {
	return r.targets
}

// ArgName returns the client-side name of parameter i: its declared name,
// "params" for an unnamed structured parameter, or arg1..argN.
func (d *MethodDescriptor) ArgName(i int) string {
	if p := d.Params.Params[i]; p.Name != "" {
		return p.Name
	}
	if d.Params.Kind == ShapeStructured {
		return "params"
	}
	return "arg" + strconv.Itoa(i+1)
}
