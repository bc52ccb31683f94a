// Package typescript generates a TypeScript client module from an IR schema.
package typescript

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"strconv"
	"strings"

	"github.com/broady/jrpc/jrpcgen/ir"
)

// Header starts every generated file.
const Header = "// Code generated by jrpc. DO NOT EDIT.\n\n"

var (
	//go:embed templates/client.ts
	defaultTemplate string

	//go:embed templates/jsonrpc.ts
	jsonrpcSource string
)

// DefaultTemplate returns the built-in client.ts template.
func DefaultTemplate() string {
	return defaultTemplate
}

// GenerateClient renders the client module for schema: the type catalogue,
// the JSON-RPC envelope, and the client template with one wrapper per
// method in schema order.
func GenerateClient(ctx context.Context, schema *ir.Schema, opts ClientOptions) (*ClientModule, error) {
	tmpl := opts.Template
	if tmpl == "" {
		tmpl = defaultTemplate
	}
	switch n := strings.Count(tmpl, MethodsMarker); n {
	case 1:
	case 0:
		return nil, &ir.GenerationError{Target: "client", Message: fmt.Sprintf("template has no %s marker", MethodsMarker)}
	default:
		return nil, &ir.GenerationError{Target: "client", Message: fmt.Sprintf("template has %d %s markers, want 1", n, MethodsMarker)}
	}

	types, err := generateTypes(ctx, schema, opts)
	if err != nil {
		return nil, err
	}
	methods, err := generateMethods(ctx, schema, opts)
	if err != nil {
		return nil, err
	}

	return &ClientModule{Files: []File{
		{Path: TypesFile, Content: types},
		{Path: JSONRPCFile, Content: []byte(Header + jsonrpcSource)},
		{Path: ClientFile, Content: []byte(Header + strings.Replace(tmpl, MethodsMarker, methods, 1))},
	}}, nil
}

func generateTypes(ctx context.Context, schema *ir.Schema, opts ClientOptions) ([]byte, error) {
	e := NewEmitter(opts, "")

	var buf bytes.Buffer
	buf.WriteString(Header)
	if opts.Frontmatter != "" {
		buf.WriteString(strings.TrimRight(opts.Frontmatter, "\n"))
		buf.WriteString("\n\n")
	}
	if len(schema.Types) == 0 {
		buf.WriteString("export {};\n")
		return buf.Bytes(), nil
	}

	for i, typ := range schema.Types {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if i > 0 {
			buf.WriteString("\n\n")
		}
		if err := e.EmitType(&buf, typ); err != nil {
			return nil, &ir.GenerationError{Target: "client", Type: typ.TypeName().String(), Message: err.Error()}
		}
	}
	buf.WriteString("\n")
	return buf.Bytes(), nil
}

// generateMethods renders the wrappers that replace the template marker.
//
//	public getUser(params: T.GetUserParams): Promise<T.User | null> {
//	  return this._transport.request("get_user", params) as Promise<T.User | null>;
//	}
func generateMethods(ctx context.Context, schema *ir.Schema, opts ClientOptions) (string, error) {
	e := NewEmitter(opts, "T.")

	var blocks []string
	for _, m := range schema.Methods {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		block, err := e.emitMethod(m)
		if err != nil {
			return "", &ir.GenerationError{Target: "client", Message: fmt.Sprintf("method %q: %v", m.RPCName, err)}
		}
		blocks = append(blocks, block)
	}
	return strings.Join(blocks, "\n\n"), nil
}

func (e *Emitter) emitMethod(m ir.MethodDescriptor) (string, error) {
	var buf bytes.Buffer
	if e.opts.EmitComments && !m.Documentation.IsZero() {
		e.emitJSDoc(&buf, m.Documentation, "  ")
	}

	// A parameter may be omitted only if every later one may be too.
	optional := make([]bool, len(m.Params))
	trailing := true
	for i := len(m.Params) - 1; i >= 0; i-- {
		trailing = trailing && !m.Params[i].Required
		optional[i] = trailing
	}

	args := make([]string, len(m.Params))
	names := make([]string, len(m.Params))
	for i, p := range m.Params {
		typ, err := e.ValueTypeExpr(p.Type)
		if err != nil {
			return "", fmt.Errorf("parameter %s: %w", p.Name, err)
		}
		names[i] = argName(p.Name)
		if optional[i] {
			args[i] = names[i] + "?: " + typ
		} else {
			args[i] = names[i] + ": " + typ
		}
	}

	call := strconv.Quote(m.RPCName)
	switch {
	case m.ParamStructure == ir.ByPosition && len(names) > 0:
		call += ", [" + strings.Join(names, ", ") + "]"
	case len(names) == 1:
		call += ", " + names[0]
	}

	fmt.Fprintf(&buf, "  public %s(%s)", propertyName(m.ExposedName), strings.Join(args, ", "))
	if m.Notification {
		buf.WriteString(": void {\n")
		fmt.Fprintf(&buf, "    this._transport.notification(%s);\n", call)
		buf.WriteString("  }")
		return buf.String(), nil
	}

	if m.Result == nil {
		return "", fmt.Errorf("request method has no result type")
	}
	result, err := e.ValueTypeExpr(m.Result)
	if err != nil {
		return "", fmt.Errorf("result: %w", err)
	}
	fmt.Fprintf(&buf, ": Promise<%s> {\n", result)
	fmt.Fprintf(&buf, "    return this._transport.request(%s) as Promise<%s>;\n", call, result)
	buf.WriteString("  }")
	return buf.String(), nil
}
