// Package openrpc renders an IR schema as an OpenRPC document.
package openrpc

import (
	"bytes"
	"encoding/json"

	"gopkg.in/yaml.v3"
)

// Version is the OpenRPC specification version of generated documents.
const Version = "1.3.2"

// Document is an OpenRPC service description.
type Document struct {
	OpenRPC    string     `json:"openrpc" yaml:"openrpc"`
	Info       Info       `json:"info" yaml:"info"`
	Methods    []Method   `json:"methods" yaml:"methods"`
	Components Components `json:"components" yaml:"components"`
}

// Info describes the service.
type Info struct {
	Title       string `json:"title" yaml:"title"`
	Version     string `json:"version" yaml:"version"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// Method is one entry of Document.Methods.
type Method struct {
	Name           string              `json:"name" yaml:"name"`
	Summary        string              `json:"summary,omitempty" yaml:"summary,omitempty"`
	Description    string              `json:"description,omitempty" yaml:"description,omitempty"`
	ParamStructure string              `json:"paramStructure" yaml:"paramStructure"`
	Params         []ContentDescriptor `json:"params" yaml:"params"`
	Result         *ContentDescriptor  `json:"result,omitempty" yaml:"result,omitempty"`
	Deprecated     bool                `json:"deprecated,omitempty" yaml:"deprecated,omitempty"`

	// Notification is true when the server never replies.
	Notification bool `json:"x-notification" yaml:"x-notification"`

	// ExposedName is the method name in generated clients.
	ExposedName string `json:"x-exposed-name" yaml:"x-exposed-name"`
}

// ContentDescriptor describes a parameter or result.
type ContentDescriptor struct {
	Name        string  `json:"name" yaml:"name"`
	Description string  `json:"description,omitempty" yaml:"description,omitempty"`
	Required    bool    `json:"required,omitempty" yaml:"required,omitempty"`
	Schema      *Schema `json:"schema" yaml:"schema"`
}

// Components holds the reusable schemas, keyed by type name.
type Components struct {
	Schemas map[string]*Schema `json:"schemas" yaml:"schemas"`
}

// Schema is the subset of JSON Schema used by generated documents.
type Schema struct {
	Ref                  string             `json:"$ref,omitempty" yaml:"$ref,omitempty"`
	Type                 any                `json:"type,omitempty" yaml:"type,omitempty"` // string or []string
	Format               string             `json:"format,omitempty" yaml:"format,omitempty"`
	ContentEncoding      string             `json:"contentEncoding,omitempty" yaml:"contentEncoding,omitempty"`
	Description          string             `json:"description,omitempty" yaml:"description,omitempty"`
	Minimum              *int               `json:"minimum,omitempty" yaml:"minimum,omitempty"`
	Properties           map[string]*Schema `json:"properties,omitempty" yaml:"properties,omitempty"`
	Required             []string           `json:"required,omitempty" yaml:"required,omitempty"`
	AdditionalProperties *Schema            `json:"additionalProperties,omitempty" yaml:"additionalProperties,omitempty"`
	MaxProperties        *int               `json:"maxProperties,omitempty" yaml:"maxProperties,omitempty"`
	Items                *Schema            `json:"items,omitempty" yaml:"items,omitempty"`
	MinItems             *int               `json:"minItems,omitempty" yaml:"minItems,omitempty"`
	MaxItems             *int               `json:"maxItems,omitempty" yaml:"maxItems,omitempty"`
	AllOf                []*Schema          `json:"allOf,omitempty" yaml:"allOf,omitempty"`
	OneOf                []*Schema          `json:"oneOf,omitempty" yaml:"oneOf,omitempty"`
	Deprecated           bool               `json:"deprecated,omitempty" yaml:"deprecated,omitempty"`
}

// JSON renders the document as indented JSON with a trailing newline.
// Object keys are sorted, so output is stable across runs.
func (d *Document) JSON() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(d); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// YAML renders the document as YAML.
func (d *Document) YAML() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(d); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
