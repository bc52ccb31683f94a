package ir

import "fmt"

// GenerationError reports a type or name that cannot be expressed in a
// generated artifact.
type GenerationError struct {
	// Target is "client", "schema", or empty when both are affected.
	Target string

	// Type is the Go type involved, if any.
	Type string

	Message string
}

func (e *GenerationError) Error() string {
	prefix := "generate"
	if e.Target != "" {
		prefix += " " + e.Target
	}
	if e.Type != "" {
		return fmt.Sprintf("%s: type %s: %s", prefix, e.Type, e.Message)
	}
	return fmt.Sprintf("%s: %s", prefix, e.Message)
}
