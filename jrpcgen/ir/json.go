package ir

import "encoding/json"

// JSON serialization support for IR types.
// All type descriptors include a "kind" field for type discrimination.

// MarshalJSON implements json.Marshaler for StructDescriptor.
func (d *StructDescriptor) MarshalJSON() ([]byte, error) {
	return json.Marshal(&struct {
		Kind    string            `json:"kind"`
		Name    GoIdentifier      `json:"name"`
		Fields  []FieldDescriptor `json:"fields"`
		Extends []GoIdentifier    `json:"extends,omitempty"`
		Doc     string            `json:"doc,omitempty"`
	}{
		Kind:    "struct",
		Name:    d.Name,
		Fields:  d.Fields,
		Extends: d.Extends,
		Doc:     d.Documentation.Summary,
	})
}

// MarshalJSON implements json.Marshaler for AliasDescriptor.
func (d *AliasDescriptor) MarshalJSON() ([]byte, error) {
	return json.Marshal(&struct {
		Kind       string         `json:"kind"`
		Name       GoIdentifier   `json:"name"`
		Underlying TypeDescriptor `json:"underlying"`
		Doc        string         `json:"doc,omitempty"`
	}{
		Kind:       "alias",
		Name:       d.Name,
		Underlying: d.Underlying,
		Doc:        d.Documentation.Summary,
	})
}

// MarshalJSON implements json.Marshaler for PrimitiveDescriptor.
func (d *PrimitiveDescriptor) MarshalJSON() ([]byte, error) {
	return json.Marshal(&struct {
		Kind          string `json:"kind"`
		PrimitiveKind string `json:"primitiveKind"`
		BitSize       int    `json:"bitSize,omitempty"`
	}{
		Kind:          "primitive",
		PrimitiveKind: d.PrimitiveKind.String(),
		BitSize:       d.BitSize,
	})
}

// MarshalJSON implements json.Marshaler for ArrayDescriptor.
func (d *ArrayDescriptor) MarshalJSON() ([]byte, error) {
	return json.Marshal(&struct {
		Kind    string         `json:"kind"`
		Element TypeDescriptor `json:"element"`
		Length  int            `json:"length"`
	}{
		Kind:    "array",
		Element: d.Element,
		Length:  d.Length,
	})
}

// MarshalJSON implements json.Marshaler for MapDescriptor.
func (d *MapDescriptor) MarshalJSON() ([]byte, error) {
	return json.Marshal(&struct {
		Kind  string         `json:"kind"`
		Key   TypeDescriptor `json:"key"`
		Value TypeDescriptor `json:"value"`
	}{
		Kind:  "map",
		Key:   d.Key,
		Value: d.Value,
	})
}

// MarshalJSON implements json.Marshaler for ReferenceDescriptor.
func (d *ReferenceDescriptor) MarshalJSON() ([]byte, error) {
	return json.Marshal(&struct {
		Kind string `json:"kind"`
		Name string `json:"name"`
		Pkg  string `json:"package,omitempty"`
	}{
		Kind: "reference",
		Name: d.Target.Name,
		Pkg:  d.Target.Package,
	})
}

// MarshalJSON implements json.Marshaler for PtrDescriptor.
func (d *PtrDescriptor) MarshalJSON() ([]byte, error) {
	return json.Marshal(&struct {
		Kind    string         `json:"kind"`
		Element TypeDescriptor `json:"element"`
	}{
		Kind:    "ptr",
		Element: d.Element,
	})
}

// MarshalJSON implements json.Marshaler for GoIdentifier.
func (id GoIdentifier) MarshalJSON() ([]byte, error) {
	return json.Marshal(&struct {
		Name    string `json:"name"`
		Package string `json:"package,omitempty"`
	}{
		Name:    id.Name,
		Package: id.Package,
	})
}

// MarshalJSON implements json.Marshaler for FieldDescriptor.
func (f FieldDescriptor) MarshalJSON() ([]byte, error) {
	return json.Marshal(&struct {
		Name          string         `json:"name"`
		Type          TypeDescriptor `json:"type"`
		JSONName      string         `json:"jsonName"`
		Optional      bool           `json:"optional,omitempty"`
		StringEncoded bool           `json:"stringEncoded,omitempty"`
		ValidateTag   string         `json:"validateTag,omitempty"`
		Doc           string         `json:"doc,omitempty"`
	}{
		Name:          f.Name,
		Type:          f.Type,
		JSONName:      f.JSONName,
		Optional:      f.Optional,
		StringEncoded: f.StringEncoded,
		ValidateTag:   f.ValidateTag,
		Doc:           f.Documentation.Summary,
	})
}

// MarshalJSON implements json.Marshaler for ParamDescriptor.
func (p ParamDescriptor) MarshalJSON() ([]byte, error) {
	return json.Marshal(&struct {
		Name     string         `json:"name"`
		Type     TypeDescriptor `json:"type"`
		Required bool           `json:"required"`
	}{
		Name:     p.Name,
		Type:     p.Type,
		Required: p.Required,
	})
}

// MarshalJSON implements json.Marshaler for MethodDescriptor.
func (m MethodDescriptor) MarshalJSON() ([]byte, error) {
	return json.Marshal(&struct {
		RPCName        string            `json:"rpcName"`
		ExposedName    string            `json:"exposedName"`
		ParamStructure string            `json:"paramStructure"`
		Params         []ParamDescriptor `json:"params"`
		Result         TypeDescriptor    `json:"result,omitempty"`
		Notification   bool              `json:"notification,omitempty"`
		Doc            string            `json:"doc,omitempty"`
	}{
		RPCName:        m.RPCName,
		ExposedName:    m.ExposedName,
		ParamStructure: m.ParamStructure.String(),
		Params:         m.Params,
		Result:         m.Result,
		Notification:   m.Notification,
		Doc:            m.Documentation.Body,
	})
}
