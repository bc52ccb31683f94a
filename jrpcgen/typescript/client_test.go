package typescript

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/broady/jrpc/jrpcgen/ir"
)

func testSchema() *ir.Schema {
	s := &ir.Schema{}
	s.AddType(&ir.AliasDescriptor{
		Name:       ir.GoIdentifier{Name: "UserID", Package: "app"},
		Underlying: ir.String(),
	})
	s.AddType(&ir.StructDescriptor{
		Name: ir.GoIdentifier{Name: "User", Package: "app"},
		Fields: []ir.FieldDescriptor{
			{Name: "ID", JSONName: "id", Type: ir.Ref("UserID", "app")},
			{Name: "Name", JSONName: "name", Type: ir.String()},
		},
	})
	s.AddType(&ir.StructDescriptor{
		Name: ir.GoIdentifier{Name: "GetUserParams", Package: "app"},
		Fields: []ir.FieldDescriptor{
			{Name: "ID", JSONName: "id", Type: ir.Ref("UserID", "app")},
		},
	})
	s.AddMethod(ir.MethodDescriptor{
		RPCName:       "get_user",
		ExposedName:   "getUser",
		Params:        []ir.ParamDescriptor{{Name: "params", Type: ir.Ref("GetUserParams", "app"), Required: true}},
		Result:        ir.Ptr(ir.Ref("User", "app")),
		Documentation: ir.Documentation{Summary: "Fetches a user.", Body: "Fetches a user."},
	})
	s.AddMethod(ir.MethodDescriptor{
		RPCName:        "add",
		ExposedName:    "add",
		ParamStructure: ir.ByPosition,
		Params: []ir.ParamDescriptor{
			{Name: "arg1", Type: ir.Int(0), Required: true},
			{Name: "arg2", Type: ir.Int(0), Required: true},
			{Name: "scale", Type: ir.Ptr(ir.Float(64))},
		},
		Result: ir.Int(0),
	})
	s.AddMethod(ir.MethodDescriptor{
		RPCName:     "ping",
		ExposedName: "ping",
		Result:      ir.Null(),
	})
	s.AddMethod(ir.MethodDescriptor{
		RPCName:      "user_seen",
		ExposedName:  "userSeen",
		Params:       []ir.ParamDescriptor{{Name: "params", Type: ir.Ref("User", "app"), Required: true}},
		Notification: true,
	})
	return s
}

func generate(t *testing.T, s *ir.Schema, opts ClientOptions) *ClientModule {
	t.Helper()
	mod, err := GenerateClient(context.Background(), s, opts)
	if err != nil {
		t.Fatalf("GenerateClient() error = %v", err)
	}
	return mod
}

func TestGenerateClient_Files(t *testing.T) {
	mod := generate(t, testSchema(), ClientOptions{})

	var paths []string
	for _, f := range mod.Files {
		paths = append(paths, f.Path)
		if !bytes.HasPrefix(f.Content, []byte(Header)) {
			t.Errorf("%s missing header", f.Path)
		}
	}
	if got := strings.Join(paths, ","); got != "types.ts,jsonrpc.ts,client.ts" {
		t.Errorf("files = %s", got)
	}

	types := string(mod.File(TypesFile))
	userID := strings.Index(types, "export type UserID = string;")
	user := strings.Index(types, "export interface User {")
	if userID < 0 || user < 0 || userID > user {
		t.Errorf("types.ts not in catalogue order:\n%s", types)
	}
	if !strings.Contains(types, "  id: UserID;") {
		t.Errorf("types.ts references should be unqualified:\n%s", types)
	}

	rpc := string(mod.File(JSONRPCFile))
	for _, want := range []string{"export type Id", "export type Params", "export interface Request", "export interface Response", "export interface Error", "export type Message"} {
		if !strings.Contains(rpc, want) {
			t.Errorf("jsonrpc.ts missing %q", want)
		}
	}
}

func TestGenerateClient_Methods(t *testing.T) {
	mod := generate(t, testSchema(), ClientOptions{EmitComments: true})
	client := string(mod.File(ClientFile))

	want := []string{
		`  /** Fetches a user. */
  public getUser(params: T.GetUserParams): Promise<T.User | null> {
    return this._transport.request("get_user", params) as Promise<T.User | null>;
  }`,
		`  public add(arg1: number, arg2: number, scale?: number | null): Promise<number> {
    return this._transport.request("add", [arg1, arg2, scale]) as Promise<number>;
  }`,
		`  public ping(): Promise<null> {
    return this._transport.request("ping") as Promise<null>;
  }`,
		`  public userSeen(params: T.User): void {
    this._transport.notification("user_seen", params);
  }`,
	}
	for _, w := range want {
		if !strings.Contains(client, w) {
			t.Errorf("client.ts missing:\n%s\n\ngot:\n%s", w, client)
		}
	}
	if strings.Contains(client, MethodsMarker) {
		t.Error("marker not replaced")
	}

	// Wrappers follow method order.
	last := -1
	for _, name := range []string{"getUser(", "add(", "ping(", "userSeen("} {
		i := strings.Index(client, "public "+name)
		if i < last {
			t.Errorf("%s out of order", name)
		}
		last = i
	}
}

func TestGenerateClient_OptionalParams(t *testing.T) {
	s := &ir.Schema{}
	s.AddMethod(ir.MethodDescriptor{
		RPCName:        "mixed",
		ExposedName:    "mixed",
		ParamStructure: ir.ByPosition,
		Params: []ir.ParamDescriptor{
			{Name: "first", Type: ir.Ptr(ir.String())},
			{Name: "second", Type: ir.String(), Required: true},
		},
		Result: ir.Null(),
	})
	s.AddMethod(ir.MethodDescriptor{
		RPCName:     "list",
		ExposedName: "list",
		Params:      []ir.ParamDescriptor{{Name: "params", Type: ir.Ref("ListParams", "app")}},
		Result:      ir.Slice(ir.String()),
	})

	client := string(generate(t, s, ClientOptions{}).File(ClientFile))
	if !strings.Contains(client, "public mixed(first: string | null, second: string)") {
		t.Errorf("non-trailing optional must stay required:\n%s", client)
	}
	if !strings.Contains(client, "public list(params?: T.ListParams): Promise<string[] | null>") {
		t.Errorf("optional structured params:\n%s", client)
	}
}

func TestGenerateClient_Template(t *testing.T) {
	tmpl := "import * as T from \"./types.js\";\nexport class Api {\n#methods\n}\n"
	mod := generate(t, testSchema(), ClientOptions{Template: tmpl})
	client := string(mod.File(ClientFile))
	if !strings.HasPrefix(client, Header+"import * as T") {
		t.Errorf("template not used:\n%s", client)
	}
	if !strings.Contains(client, "export class Api {\n  public getUser(") {
		t.Errorf("methods not spliced at marker:\n%s", client)
	}
}

func TestGenerateClient_TemplateMarkerErrors(t *testing.T) {
	tests := []struct {
		name string
		tmpl string
	}{
		{"missing", "export class Api {}\n"},
		{"duplicate", "#methods\n#methods\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := GenerateClient(context.Background(), testSchema(), ClientOptions{Template: tt.tmpl})
			var genErr *ir.GenerationError
			if !errors.As(err, &genErr) {
				t.Fatalf("error = %v, want GenerationError", err)
			}
			if genErr.Target != "client" {
				t.Errorf("Target = %q", genErr.Target)
			}
		})
	}
}

func TestGenerateClient_Empty(t *testing.T) {
	mod := generate(t, &ir.Schema{}, ClientOptions{Frontmatter: "// custom"})
	types := string(mod.File(TypesFile))
	if types != Header+"// custom\n\nexport {};\n" {
		t.Errorf("types.ts = %q", types)
	}
}

func TestGenerateClient_Deterministic(t *testing.T) {
	a := generate(t, testSchema(), ClientOptions{EmitComments: true})
	b := generate(t, testSchema(), ClientOptions{EmitComments: true})
	for i := range a.Files {
		if !bytes.Equal(a.Files[i].Content, b.Files[i].Content) {
			t.Errorf("%s differs between runs", a.Files[i].Path)
		}
	}
}

func TestDefaultTemplate(t *testing.T) {
	if strings.Count(DefaultTemplate(), MethodsMarker) != 1 {
		t.Error("default template must contain exactly one marker")
	}
}
