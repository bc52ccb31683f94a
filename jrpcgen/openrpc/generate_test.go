package openrpc

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/broady/jrpc/jrpcgen/ir"
	"gopkg.in/yaml.v3"
)

func testSchema() *ir.Schema {
	s := &ir.Schema{}
	s.AddType(&ir.AliasDescriptor{
		Name:       ir.GoIdentifier{Name: "UserID", Package: "app"},
		Underlying: ir.String(),
	})
	s.AddType(&ir.StructDescriptor{
		Name: ir.GoIdentifier{Name: "Base", Package: "app"},
		Fields: []ir.FieldDescriptor{
			{Name: "Created", JSONName: "created", Type: ir.Time()},
		},
	})
	s.AddType(&ir.StructDescriptor{
		Name:    ir.GoIdentifier{Name: "User", Package: "app"},
		Extends: []ir.GoIdentifier{{Name: "Base", Package: "app"}},
		Fields: []ir.FieldDescriptor{
			{Name: "ID", JSONName: "id", Type: ir.Ref("UserID", "app")},
			{Name: "Email", JSONName: "email", Type: ir.Ptr(ir.String()), ValidateTag: "required,email"},
			{Name: "Tags", JSONName: "tags", Type: ir.Slice(ir.String()), Optional: true},
			{Name: "Count", JSONName: "count", Type: ir.Int(64), StringEncoded: true},
		},
		Documentation: ir.Documentation{Summary: "A user.", Body: "A user."},
	})
	s.AddType(&ir.StructDescriptor{
		Name: ir.GoIdentifier{Name: "GetUserParams", Package: "app"},
		Fields: []ir.FieldDescriptor{
			{Name: "ID", JSONName: "id", Type: ir.Ref("UserID", "app")},
			{Name: "Fields", JSONName: "fields", Type: ir.Slice(ir.String()), Optional: true},
		},
	})
	s.AddMethod(ir.MethodDescriptor{
		RPCName:       "get_user",
		ExposedName:   "getUser",
		Params:        []ir.ParamDescriptor{{Name: "params", Type: ir.Ref("GetUserParams", "app"), Required: true}},
		Result:        ir.Ptr(ir.Ref("User", "app")),
		Documentation: ir.Documentation{Summary: "Fetches a user.", Body: "Fetches a user.\n\nFails when missing."},
	})
	s.AddMethod(ir.MethodDescriptor{
		RPCName:        "add",
		ExposedName:    "add",
		ParamStructure: ir.ByPosition,
		Params: []ir.ParamDescriptor{
			{Name: "arg1", Type: ir.Int(0), Required: true},
			{Name: "arg2", Type: ir.Ptr(ir.Uint(32))},
		},
		Result: ir.Int(0),
	})
	s.AddMethod(ir.MethodDescriptor{
		RPCName:     "ping",
		ExposedName: "ping",
		Result:      ir.Null(),
	})
	s.AddMethod(ir.MethodDescriptor{
		RPCName:      "seen",
		ExposedName:  "seen",
		Params:       []ir.ParamDescriptor{{Name: "params", Type: ir.Map(ir.String(), ir.Bool())}},
		Notification: true,
	})
	return s
}

func generate(t *testing.T) *Document {
	t.Helper()
	doc, err := Generate(testSchema(), Info{Title: "Users", Version: "1.0.0"})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	return doc
}

func TestGenerate_Methods(t *testing.T) {
	doc := generate(t)
	if doc.OpenRPC != Version || doc.Info.Title != "Users" {
		t.Errorf("header = %q %+v", doc.OpenRPC, doc.Info)
	}

	var names []string
	for _, m := range doc.Methods {
		names = append(names, m.Name)
	}
	if got := strings.Join(names, ","); got != "get_user,add,ping,seen" {
		t.Errorf("methods = %s", got)
	}

	get := doc.Methods[0]
	if get.ParamStructure != "by-name" || get.ExposedName != "getUser" || get.Notification {
		t.Errorf("get_user = %+v", get)
	}
	if get.Summary != "Fetches a user." || !strings.Contains(get.Description, "Fails when missing.") {
		t.Errorf("docs = %q / %q", get.Summary, get.Description)
	}
	if len(get.Params) != 2 || get.Params[0].Name != "id" || !get.Params[0].Required || get.Params[1].Required {
		t.Errorf("get_user params = %+v", get.Params)
	}
	if got := get.Result.Schema.OneOf; len(got) != 2 || got[0].Ref != RefPrefix+"User" || got[1].Type != "null" {
		t.Errorf("get_user result = %+v", get.Result.Schema)
	}

	add := doc.Methods[1]
	if add.ParamStructure != "by-position" || len(add.Params) != 2 {
		t.Fatalf("add = %+v", add)
	}
	if add.Params[0].Name != "arg1" || !add.Params[0].Required || add.Params[1].Required {
		t.Errorf("add params = %+v", add.Params)
	}
	if typ, ok := add.Params[1].Schema.Type.([]string); !ok || typ[0] != "integer" || typ[1] != "null" {
		t.Errorf("nullable uint = %+v", add.Params[1].Schema)
	}

	ping := doc.Methods[2]
	if len(ping.Params) != 0 || ping.Result == nil || ping.Result.Schema.Type != "null" {
		t.Errorf("ping = %+v", ping)
	}

	seen := doc.Methods[3]
	if !seen.Notification || seen.Result != nil {
		t.Errorf("seen = %+v", seen)
	}
	if len(seen.Params) != 1 || seen.Params[0].Name != "params" || seen.Params[0].Required {
		t.Errorf("non-struct structured params = %+v", seen.Params)
	}
}

func TestGenerate_Components(t *testing.T) {
	doc := generate(t)

	var keys []string
	for k := range doc.Components.Schemas {
		keys = append(keys, k)
	}
	if len(keys) != 4 {
		t.Errorf("components = %v", keys)
	}

	if id := doc.Components.Schemas["UserID"]; id.Type != "string" {
		t.Errorf("UserID = %+v", id)
	}

	user := doc.Components.Schemas["User"]
	if len(user.AllOf) != 2 || user.AllOf[0].Ref != RefPrefix+"Base" {
		t.Fatalf("User = %+v", user)
	}
	if user.Description != "A user." {
		t.Errorf("description = %q", user.Description)
	}
	obj := user.AllOf[1]
	if strings.Join(obj.Required, ",") != "id,email,count" {
		t.Errorf("required = %v", obj.Required)
	}
	if email := obj.Properties["email"]; email.Format != "email" {
		t.Errorf("email = %+v", email)
	}
	if tags := obj.Properties["tags"]; tags.Type != "array" {
		t.Errorf("optional tags should not be nullable: %+v", tags)
	}
	if count := obj.Properties["count"]; count.Type != "string" {
		t.Errorf("string-encoded count = %+v", count)
	}
	if base := doc.Components.Schemas["Base"]; base.Properties["created"].Format != "date-time" {
		t.Errorf("Base = %+v", base)
	}
}

func TestGenerate_DuplicateComponent(t *testing.T) {
	s := testSchema()
	s.AddType(&ir.AliasDescriptor{
		Name:       ir.GoIdentifier{Name: "UserID", Package: "other"},
		Underlying: ir.Int(0),
	})
	_, err := Generate(s, Info{Title: "x", Version: "1"})
	var genErr *ir.GenerationError
	if !errors.As(err, &genErr) || genErr.Target != "schema" {
		t.Fatalf("error = %v, want schema GenerationError", err)
	}
}

func TestDocument_JSON(t *testing.T) {
	doc := generate(t)
	a, err := doc.JSON()
	if err != nil {
		t.Fatalf("JSON() error = %v", err)
	}
	b, err := generate(t).JSON()
	if err != nil {
		t.Fatalf("JSON() error = %v", err)
	}
	if !bytes.Equal(a, b) {
		t.Error("JSON output is not deterministic")
	}

	var raw map[string]any
	if err := json.Unmarshal(a, &raw); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	methods := raw["methods"].([]any)
	first := methods[0].(map[string]any)
	if first["x-exposed-name"] != "getUser" || first["x-notification"] != false {
		t.Errorf("extensions = %v", first)
	}
	if !strings.Contains(string(a), `"$ref": "#/components/schemas/User"`) {
		t.Error("missing $ref")
	}
}

func TestDocument_YAML(t *testing.T) {
	out, err := generate(t).YAML()
	if err != nil {
		t.Fatalf("YAML() error = %v", err)
	}
	var raw map[string]any
	if err := yaml.Unmarshal(out, &raw); err != nil {
		t.Fatalf("invalid YAML: %v", err)
	}
	if raw["openrpc"] != Version {
		t.Errorf("openrpc = %v", raw["openrpc"])
	}
	var back Document
	if err := yaml.Unmarshal(out, &back); err != nil {
		t.Fatalf("decode YAML: %v", err)
	}
	if len(back.Methods) != 4 || back.Methods[0].Result.Schema.OneOf[0].Ref != RefPrefix+"User" {
		t.Errorf("YAML round trip lost the result $ref:\n%s", out)
	}
}
