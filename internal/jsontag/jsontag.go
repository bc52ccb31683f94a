// Package jsontag interprets encoding/json struct tags.
// The dispatcher and the schema generators share it so that a field the
// decoder treats as required is also required in generated code.
package jsontag

import (
	"encoding"
	"encoding/json"
	"reflect"
	"strings"
)

// Tag is a parsed json struct tag.
type Tag struct {
	Name          string
	Optional      bool // omitempty or omitzero
	Skip          bool // json:"-"
	StringEncoded bool // ,string
}

// Parse parses a json struct tag. fieldName is used when the tag has no name.
func Parse(tag, fieldName string) Tag {
	if tag == "" {
		return Tag{Name: fieldName}
	}

	parts := strings.Split(tag, ",")
	t := Tag{Name: parts[0]}

	// "-" alone skips the field; "-," names it "-".
	if t.Name == "-" && len(parts) == 1 {
		return Tag{Skip: true}
	}
	if t.Name == "" {
		t.Name = fieldName
	}

	for _, opt := range parts[1:] {
		switch opt {
		case "omitempty", "omitzero":
			t.Optional = true
		case "string":
			t.StringEncoded = true
		}
	}
	return t
}

// Field is one JSON-visible field of a struct.
type Field struct {
	Tag
	Type  reflect.Type
	Index []int
}

// Fields returns the JSON-visible fields of struct type t in declaration
// order. Untagged embedded structs are flattened the way encoding/json
// promotes them: the shallowest field of a name wins, a tagged field beats
// untagged ones at the same depth, and any other tie hides the name.
func Fields(t reflect.Type) []Field {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil
	}

	var cands []candidate
	collect(t, nil, 0, &cands)

	byName := make(map[string][]candidate)
	var order []string
	for _, c := range cands {
		if _, ok := byName[c.Name]; !ok {
			order = append(order, c.Name)
		}
		byName[c.Name] = append(byName[c.Name], c)
	}

	var out []Field
	for _, name := range order {
		if f, ok := dominant(byName[name]); ok {
			out = append(out, f)
		}
	}
	return out
}

type candidate struct {
	Field
	depth  int
	tagged bool
}

func collect(t reflect.Type, index []int, depth int, out *[]candidate) {
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		raw := sf.Tag.Get("json")
		tag := Parse(raw, sf.Name)
		if tag.Skip {
			continue
		}

		idx := make([]int, len(index)+1)
		copy(idx, index)
		idx[len(index)] = i

		if sf.Anonymous && raw == "" {
			ft := sf.Type
			for ft.Kind() == reflect.Pointer {
				ft = ft.Elem()
			}
			if ft.Kind() == reflect.Struct {
				collect(ft, idx, depth+1, out)
				continue
			}
		}
		if !sf.IsExported() {
			continue
		}

		*out = append(*out, candidate{
			Field:  Field{Tag: tag, Type: sf.Type, Index: idx},
			depth:  depth,
			tagged: strings.Split(raw, ",")[0] != "",
		})
	}
}

// dominant picks the field encoding/json uses among same-named candidates.
func dominant(cands []candidate) (Field, bool) {
	shallowest := cands[0].depth
	for _, c := range cands[1:] {
		if c.depth < shallowest {
			shallowest = c.depth
		}
	}

	var shallow, tagged []candidate
	for _, c := range cands {
		if c.depth != shallowest {
			continue
		}
		shallow = append(shallow, c)
		if c.tagged {
			tagged = append(tagged, c)
		}
	}
	switch {
	case len(tagged) == 1:
		return tagged[0].Field, true
	case len(tagged) == 0 && len(shallow) == 1:
		return shallow[0].Field, true
	}
	return Field{}, false
}

// Nullable reports whether JSON null is a meaningful value for t.
func Nullable(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Pointer, reflect.Slice, reflect.Map, reflect.Interface:
		return true
	}
	return false
}

var (
	jsonUnmarshalerType = reflect.TypeOf((*json.Unmarshaler)(nil)).Elem()
	textUnmarshalerType = reflect.TypeOf((*encoding.TextUnmarshaler)(nil)).Elem()
)

// CustomDecoded reports whether t controls its own JSON decoding.
func CustomDecoded(t reflect.Type) bool {
	pt := reflect.PointerTo(t)
	return pt.Implements(jsonUnmarshalerType) || pt.Implements(textUnmarshalerType)
}
