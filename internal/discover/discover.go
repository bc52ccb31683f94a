// Package discover finds jrpc export functions by signature.
//
// It scans a Go package for functions with these signatures:
//   - func() *jrpc.Builder
//   - func() *jrpcgen.Generator
//
// and for an optional config hook:
//   - func(*jrpcgen.Generator) *jrpcgen.Generator
//
// The signature is the marker; no directives are needed.
package discover

import (
	"fmt"
	"go/token"
	"go/types"
	"path/filepath"
	"strings"

	"golang.org/x/tools/go/packages"
)

const (
	jrpcPath    = "github.com/broady/jrpc"
	jrpcgenPath = "github.com/broady/jrpc/jrpcgen"
)

// ExportType represents the return type of an export function.
type ExportType int

const (
	ExportTypeBuilder   ExportType = iota // func() *jrpc.Builder
	ExportTypeGenerator                   // func() *jrpcgen.Generator
)

func (t ExportType) String() string {
	switch t {
	case ExportTypeBuilder:
		return "*jrpc.Builder"
	case ExportTypeGenerator:
		return "*jrpcgen.Generator"
	default:
		return "unknown"
	}
}

// Export represents a discovered export function.
type Export struct {
	Name string         // function name
	Type ExportType     // return type
	Pos  token.Position // source location
}

// ConfigFunc represents a discovered config function.
type ConfigFunc struct {
	Name string
	Pos  token.Position
}

// Result contains discovered exports and package info.
type Result struct {
	Exports     []Export
	ConfigFunc  *ConfigFunc
	PackagePath string
	ModulePath  string
	ModuleDir   string // directory containing go.mod
	Dir         string // directory containing the package
}

// Find scans a Go package for export functions.
//
// The pattern follows go command semantics:
//   - "." for current directory
//   - Import path like "github.com/foo/bar"
//   - Absolute or relative directory path
func Find(pattern string) (*Result, error) {
	return FindDir(pattern, "")
}

// FindDir is like Find but loads the package from dir.
func FindDir(pattern, dir string) (*Result, error) {
	cfg := &packages.Config{
		Mode: packages.NeedName | packages.NeedFiles |
			packages.NeedTypes | packages.NeedModule,
		Dir: dir,
	}

	pkgs, err := packages.Load(cfg, pattern)
	if err != nil {
		return nil, fmt.Errorf("load package: %w", err)
	}
	switch {
	case len(pkgs) == 0:
		return nil, fmt.Errorf("no packages found matching %q", pattern)
	case len(pkgs) > 1:
		return nil, fmt.Errorf("multiple packages found matching %q; specify a single package", pattern)
	}

	pkg := pkgs[0]
	if len(pkg.Errors) > 0 {
		return nil, fmt.Errorf("package errors: %v", pkg.Errors[0])
	}

	result := Scan(pkg.Types, pkg.Fset)
	if pkg.Module != nil {
		result.ModulePath = pkg.Module.Path
		result.ModuleDir = pkg.Module.Dir
	}
	if len(pkg.GoFiles) > 0 {
		result.Dir = filepath.Dir(pkg.GoFiles[0])
	}
	return result, nil
}

// Scan collects the export and config functions declared at package
// scope of a type-checked package. Exports are sorted by name.
func Scan(pkg *types.Package, fset *token.FileSet) *Result {
	result := &Result{PackagePath: pkg.Path()}

	scope := pkg.Scope()
	for _, name := range scope.Names() {
		fn, ok := scope.Lookup(name).(*types.Func)
		if !ok {
			continue
		}
		sig := fn.Type().(*types.Signature)
		if sig.Recv() != nil || sig.TypeParams().Len() > 0 || sig.Results().Len() != 1 {
			continue
		}

		ret := sig.Results().At(0).Type()
		switch sig.Params().Len() {
		case 0:
			if typ, ok := classifyType(ret); ok {
				result.Exports = append(result.Exports, Export{
					Name: fn.Name(),
					Type: typ,
					Pos:  fset.Position(fn.Pos()),
				})
			}
		case 1:
			if isPtrTo(sig.Params().At(0).Type(), jrpcgenPath, "Generator") && isPtrTo(ret, jrpcgenPath, "Generator") {
				result.ConfigFunc = &ConfigFunc{Name: fn.Name(), Pos: fset.Position(fn.Pos())}
			}
		}
	}
	return result
}

func classifyType(t types.Type) (ExportType, bool) {
	switch {
	case isPtrTo(t, jrpcPath, "Builder"):
		return ExportTypeBuilder, true
	case isPtrTo(t, jrpcgenPath, "Generator"):
		return ExportTypeGenerator, true
	}
	return 0, false
}

// isPtrTo reports whether t is *pkgPath.name.
func isPtrTo(t types.Type, pkgPath, name string) bool {
	ptr, ok := t.(*types.Pointer)
	if !ok {
		return false
	}
	named, ok := ptr.Elem().(*types.Named)
	if !ok {
		return false
	}
	obj := named.Obj()
	return obj.Pkg() != nil && obj.Pkg().Path() == pkgPath && obj.Name() == name
}

// SelectExport picks the export to use based on found exports and optional name.
//
// Without a name there must be exactly one export. With a name, the export
// of that name is returned.
func SelectExport(exports []Export, name string) (*Export, error) {
	if name != "" {
		for i := range exports {
			if exports[i].Name == name {
				return &exports[i], nil
			}
		}
		return nil, fmt.Errorf("export %q not found", name)
	}

	switch len(exports) {
	case 0:
		return nil, fmt.Errorf("no export found\n\nAdd a function that returns *jrpc.Builder:\n\n    func Service() *jrpc.Builder {\n        return jrpc.NewBuilder().\n            Register(\"ping\", jrpc.Func(ping))\n    }")
	case 1:
		return &exports[0], nil
	default:
		var b strings.Builder
		b.WriteString("multiple exports found:\n")
		for _, e := range exports {
			fmt.Fprintf(&b, "  - %s() %s\n", e.Name, e.Type)
		}
		b.WriteString("\nSpecify which one: jrpc gen --export <name>")
		return nil, fmt.Errorf("%s", b.String())
	}
}
