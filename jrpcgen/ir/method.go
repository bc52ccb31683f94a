package ir

// ParamStructure is how a method's params travel on the wire.
type ParamStructure int

const (
	// ByName: params are one JSON object.
	ByName ParamStructure = iota
	// ByPosition: params are a JSON array.
	ByPosition
)

func (p ParamStructure) String() string {
	if p == ByPosition {
		return "by-position"
	}
	return "by-name"
}

// MethodDescriptor represents one remote method.
type MethodDescriptor struct {
	// RPCName is the wire method name.
	RPCName string

	// ExposedName is the method name in generated clients.
	ExposedName string

	// ParamStructure selects positional or structured params.
	ParamStructure ParamStructure

	// Params lists the handler parameters in order. A ByName method has
	// at most one, whose type describes the whole params object.
	Params []ParamDescriptor

	// Result describes the response value. It is nil for notifications
	// and a PrimitiveNull descriptor for requests without a value.
	Result TypeDescriptor

	// Notification is true when no response is sent.
	Notification bool

	// Documentation for this method.
	Documentation Documentation
}

// ParamDescriptor is one handler parameter.
type ParamDescriptor struct {
	// Name is the client-side argument name; never empty.
	Name string

	// Type is the parameter's type descriptor.
	Type TypeDescriptor

	// Required is false when the caller may omit the value.
	Required bool
}
