package typescript

import (
	"bytes"
	"strings"
	"testing"

	"github.com/broady/jrpc/jrpcgen/ir"
)

func TestEmitter_EmitType(t *testing.T) {
	deprecated := "use v2"
	tests := []struct {
		name    string
		typ     ir.TypeDescriptor
		opts    ClientOptions
		want    []string
		notWant []string
	}{
		{
			name: "basic struct",
			typ: &ir.StructDescriptor{
				Name: ir.GoIdentifier{Name: "User", Package: "test"},
				Fields: []ir.FieldDescriptor{
					{Name: "ID", JSONName: "id", Type: ir.String()},
				},
			},
			want: []string{"export interface User {", "  id: string;", "}"},
		},
		{
			name: "optional and nullable fields",
			typ: &ir.StructDescriptor{
				Name: ir.GoIdentifier{Name: "Profile", Package: "test"},
				Fields: []ir.FieldDescriptor{
					{Name: "Bio", JSONName: "bio", Type: ir.String(), Optional: true},
					{Name: "Avatar", JSONName: "avatar", Type: ir.Ptr(ir.String())},
					{Name: "Nick", JSONName: "nick", Type: ir.Ptr(ir.String()), Optional: true},
					{Name: "Tags", JSONName: "tags", Type: ir.Slice(ir.String())},
					{Name: "Meta", JSONName: "meta", Type: ir.Map(ir.String(), ir.Int(0))},
					{Name: "Pair", JSONName: "pair", Type: ir.Array(ir.Int(0), 2)},
				},
			},
			want: []string{
				"  bio?: string;",
				"  avatar: string | null;",
				"  nick?: string;",
				"  tags: string[] | null;",
				"  meta: Record<string, number> | null;",
				"  pair: [number, number];",
			},
		},
		{
			name: "extends as intersection",
			typ: &ir.StructDescriptor{
				Name:    ir.GoIdentifier{Name: "Post", Package: "test"},
				Extends: []ir.GoIdentifier{{Name: "Base", Package: "test"}},
				Fields: []ir.FieldDescriptor{
					{Name: "Title", JSONName: "title", Type: ir.String()},
				},
			},
			want:    []string{"export type Post = Base & {", "  title: string;", "};"},
			notWant: []string{"interface"},
		},
		{
			name: "string encoded number",
			typ: &ir.StructDescriptor{
				Name: ir.GoIdentifier{Name: "Big", Package: "test"},
				Fields: []ir.FieldDescriptor{
					{Name: "N", JSONName: "n", Type: ir.Int(64), StringEncoded: true},
				},
			},
			want: []string{"  n: string;"},
		},
		{
			name: "quoted property",
			typ: &ir.StructDescriptor{
				Name: ir.GoIdentifier{Name: "Headers", Package: "test"},
				Fields: []ir.FieldDescriptor{
					{Name: "ContentType", JSONName: "content-type", Type: ir.String()},
				},
			},
			want: []string{`  "content-type": string;`},
		},
		{
			name: "alias",
			typ: &ir.AliasDescriptor{
				Name:       ir.GoIdentifier{Name: "UserID", Package: "test"},
				Underlying: ir.String(),
			},
			want: []string{"export type UserID = string;"},
		},
		{
			name: "documentation",
			typ: &ir.StructDescriptor{
				Name:          ir.GoIdentifier{Name: "Doc", Package: "test"},
				Documentation: ir.Documentation{Summary: "A doc.", Body: "A doc.\n\nMore text.", Deprecated: &deprecated},
			},
			opts: ClientOptions{EmitComments: true},
			want: []string{"/**\n * A doc.\n *\n * More text.\n * @deprecated use v2\n */\nexport interface Doc {"},
		},
		{
			name: "documentation disabled",
			typ: &ir.StructDescriptor{
				Name:          ir.GoIdentifier{Name: "Doc", Package: "test"},
				Documentation: ir.Documentation{Summary: "A doc.", Body: "A doc."},
			},
			notWant: []string{"/**"},
		},
		{
			name: "reserved type name",
			typ: &ir.AliasDescriptor{
				Name:       ir.GoIdentifier{Name: "delete", Package: "test"},
				Underlying: ir.Bool(),
			},
			want: []string{"export type delete_ = boolean;"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := NewEmitter(tt.opts, "").EmitType(&buf, tt.typ); err != nil {
				t.Fatalf("EmitType() error = %v", err)
			}
			got := buf.String()
			for _, want := range tt.want {
				if !strings.Contains(got, want) {
					t.Errorf("output missing %q\ngot:\n%s", want, got)
				}
			}
			for _, notWant := range tt.notWant {
				if strings.Contains(got, notWant) {
					t.Errorf("output contains %q\ngot:\n%s", notWant, got)
				}
			}
		})
	}
}

func TestEmitter_EmitTypeExpr(t *testing.T) {
	tests := []struct {
		name string
		typ  ir.TypeDescriptor
		ns   string
		opts ClientOptions
		want string
	}{
		{"bool", ir.Bool(), "", ClientOptions{}, "boolean"},
		{"uint64", ir.Uint(64), "", ClientOptions{}, "number"},
		{"bytes", ir.Bytes(), "", ClientOptions{}, "string"},
		{"time", ir.Time(), "", ClientOptions{}, "string"},
		{"duration", ir.Duration(), "", ClientOptions{}, "number"},
		{"any default", ir.Any(), "", ClientOptions{}, "unknown"},
		{"any configured", ir.Any(), "", ClientOptions{UnknownType: "any"}, "any"},
		{"empty", ir.Empty(), "", ClientOptions{}, "Record<string, never>"},
		{"null", ir.Null(), "", ClientOptions{}, "null"},
		{"ref", ir.Ref("User", "test"), "", ClientOptions{}, "User"},
		{"ref in namespace", ir.Ref("User", "test"), "T.", ClientOptions{}, "T.User"},
		{"ptr", ir.Ptr(ir.Ref("User", "test")), "T.", ClientOptions{}, "T.User | null"},
		{"slice of ptr", ir.Slice(ir.Ptr(ir.Int(0))), "", ClientOptions{}, "(number | null)[]"},
		{"readonly", ir.Slice(ir.String()), "", ClientOptions{UseReadonlyArrays: true}, "readonly string[]"},
		{"large array", ir.Array(ir.Int(0), 32), "", ClientOptions{}, "number[]"},
		{"named key map", ir.Map(ir.Ref("UserID", "test"), ir.Bool()), "T.", ClientOptions{}, "Record<T.UserID, boolean>"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewEmitter(tt.opts, tt.ns).EmitTypeExpr(tt.typ)
			if err != nil {
				t.Fatalf("EmitTypeExpr() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("EmitTypeExpr() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestEmitter_ValueTypeExpr(t *testing.T) {
	e := NewEmitter(ClientOptions{}, "T.")
	tests := []struct {
		typ  ir.TypeDescriptor
		want string
	}{
		{ir.Ref("User", "test"), "T.User"},
		{ir.Ptr(ir.Ref("User", "test")), "T.User | null"},
		{ir.Slice(ir.Ref("User", "test")), "T.User[] | null"},
		{ir.Map(ir.String(), ir.Int(0)), "Record<string, number> | null"},
		{ir.Array(ir.Int(0), 2), "[number, number]"},
	}
	for _, tt := range tests {
		got, err := e.ValueTypeExpr(tt.typ)
		if err != nil {
			t.Fatalf("ValueTypeExpr() error = %v", err)
		}
		if got != tt.want {
			t.Errorf("ValueTypeExpr() = %q, want %q", got, tt.want)
		}
	}
}

func TestEmitter_UnsupportedTopLevel(t *testing.T) {
	var buf bytes.Buffer
	if err := NewEmitter(ClientOptions{}, "").EmitType(&buf, ir.String()); err == nil {
		t.Error("expected error for primitive at top level")
	}
}
