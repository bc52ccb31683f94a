package jsontag

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		tag  string
		want Tag
	}{
		{"", Tag{Name: "Field"}},
		{"name", Tag{Name: "name"}},
		{",omitempty", Tag{Name: "Field", Optional: true}},
		{"n,omitzero", Tag{Name: "n", Optional: true}},
		{"n,string", Tag{Name: "n", StringEncoded: true}},
		{"-", Tag{Skip: true}},
		{"-,", Tag{Name: "-"}},
	}
	for _, tt := range tests {
		t.Run(tt.tag, func(t *testing.T) {
			got := Parse(tt.tag, "Field")
			if got != tt.want {
				t.Errorf("Parse(%q) = %+v, want %+v", tt.tag, got, tt.want)
			}
		})
	}
}

type base struct {
	ID   string `json:"id"`
	Note string `json:"note,omitempty"`
}

type outer struct {
	base
	Name    string `json:"name"`
	Note    string `json:"note"`
	Skipped string `json:"-"`
	hidden  string
}

func TestFields(t *testing.T) {
	fields := Fields(reflect.TypeOf(&outer{}))

	var names []string
	for _, f := range fields {
		names = append(names, f.Name)
	}
	want := []string{"id", "note", "name"}
	if !reflect.DeepEqual(names, want) {
		t.Fatalf("names = %v, want %v", names, want)
	}

	// The outer Note shadows the promoted one and is required.
	if fields[1].Optional {
		t.Error("outer note field should not be optional")
	}
	if !reflect.DeepEqual(fields[1].Index, []int{2}) {
		t.Errorf("note index = %v, want [2]", fields[1].Index)
	}
	if !reflect.DeepEqual(fields[0].Index, []int{0, 0}) {
		t.Errorf("id index = %v, want [0 0]", fields[0].Index)
	}
}

type left struct {
	X string
	Z string
}

type right struct {
	X string
	Z string `json:"Z"`
}

type ambiguous struct {
	left
	right
	Y string `json:"y,omitempty"`
}

func TestFields_Ambiguous(t *testing.T) {
	fields := Fields(reflect.TypeOf(ambiguous{}))

	var names []string
	for _, f := range fields {
		names = append(names, f.Name)
	}
	// X is hidden by the tie; the tagged Z wins over the untagged one.
	want := []string{"Z", "y"}
	if !reflect.DeepEqual(names, want) {
		t.Fatalf("names = %v, want %v", names, want)
	}
	if !reflect.DeepEqual(fields[0].Index, []int{1, 1}) {
		t.Errorf("Z index = %v, want [1 1]", fields[0].Index)
	}

	// encoding/json agrees on the visible keys.
	data, err := json.Marshal(ambiguous{left: left{X: "a", Z: "b"}, right: right{X: "c", Z: "d"}, Y: "e"})
	if err != nil {
		t.Fatal(err)
	}
	var got map[string]any
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got["Z"] != "d" || got["y"] != "e" {
		t.Errorf("encoding/json keys = %v", got)
	}
}

func TestFieldsNonStruct(t *testing.T) {
	if got := Fields(reflect.TypeOf(3)); got != nil {
		t.Errorf("Fields(int) = %v, want nil", got)
	}
}

func TestNullable(t *testing.T) {
	var s *string
	tests := []struct {
		v    any
		want bool
	}{
		{s, true},
		{[]int{}, true},
		{map[string]int{}, true},
		{3, false},
		{"x", false},
		{struct{}{}, false},
	}
	for _, tt := range tests {
		if got := Nullable(reflect.TypeOf(tt.v)); got != tt.want {
			t.Errorf("Nullable(%T) = %v, want %v", tt.v, got, tt.want)
		}
	}
}

type textID string

func (t *textID) UnmarshalText(b []byte) error { *t = textID(b); return nil }

func TestCustomDecoded(t *testing.T) {
	if !CustomDecoded(reflect.TypeOf(textID(""))) {
		t.Error("text unmarshaler not detected")
	}
	if !CustomDecoded(reflect.TypeOf(json.RawMessage{})) {
		t.Error("json.RawMessage not detected")
	}
	if CustomDecoded(reflect.TypeOf("")) {
		t.Error("string reported as custom")
	}
}
