// Package runner executes jrpc code generation by building and running
// a modified version of the user's package.
//
// It uses Go's -overlay flag to replace the user's main() with a runner
// that calls the export function and generates output. This works for
// package main and for unexported export functions.
package runner

import (
	"bytes"
	"encoding/json"
	"fmt"
	"go/ast"
	"go/format"
	"go/parser"
	"go/token"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"text/template"

	"github.com/broady/jrpc/internal/discover"
)

// Mode selects what the runner does with the generator.
type Mode int

const (
	// ModeWrite generates and writes files to the targets.
	ModeWrite Mode = iota
	// ModeCheck generates in memory and prints counts.
	ModeCheck
	// ModeDump generates in memory and prints the schema IR as JSON.
	ModeDump
)

// CheckPrefix starts the line printed in ModeCheck:
// "jrpc-check: <methods> <types> <warnings>".
const CheckPrefix = "jrpc-check:"

const runnerFile = "jrpc_runner_main_.go"

// Options configures the runner.
type Options struct {
	// Export is the function to call.
	Export discover.Export

	// Mode selects write, check or dump.
	Mode Mode

	// ClientDir and SchemaFile override the targets of the registry.
	ClientDir  string
	SchemaFile string

	// SchemaFormat is "json" or "yaml"; empty infers it from SchemaFile.
	SchemaFormat string

	// TemplateFile is a client.ts template read at generation time.
	TemplateFile string

	// Title and Version describe the service in the schema document.
	Title   string
	Version string

	// ConfigFunc is the optional config function name.
	ConfigFunc string

	// NoConfig disables the config function even if one exists.
	NoConfig bool

	// PkgDir is the directory containing the package.
	PkgDir string
}

// Exec builds and runs the generator and returns its combined output.
//
// It creates an overlay that replaces files declaring func main() with
// copies that omit it, and adds a runner file with its own main().
func Exec(opts Options) (output []byte, err error) {
	tmpDir, err := os.MkdirTemp("", "jrpc-gen-*")
	if err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	overlay := make(map[string]string)

	files, err := filepath.Glob(filepath.Join(opts.PkgDir, "*.go"))
	if err != nil {
		return nil, fmt.Errorf("glob: %w", err)
	}
	for _, file := range files {
		if strings.HasSuffix(file, "_test.go") {
			continue
		}
		hasMain, modified, err := removeMain(file)
		if err != nil {
			return nil, fmt.Errorf("process %s: %w", file, err)
		}
		if !hasMain {
			continue
		}
		tmpFile := filepath.Join(tmpDir, filepath.Base(file))
		if err := os.WriteFile(tmpFile, modified, 0644); err != nil {
			return nil, fmt.Errorf("write modified %s: %w", file, err)
		}
		overlay[file] = tmpFile
	}

	src, err := generateRunner(opts)
	if err != nil {
		return nil, fmt.Errorf("generate runner: %w", err)
	}
	tmpRunner := filepath.Join(tmpDir, runnerFile)
	if err := os.WriteFile(tmpRunner, src, 0644); err != nil {
		return nil, fmt.Errorf("write runner: %w", err)
	}
	overlay[filepath.Join(opts.PkgDir, runnerFile)] = tmpRunner

	overlayJSON, err := json.Marshal(struct {
		Replace map[string]string `json:"Replace"`
	}{Replace: overlay})
	if err != nil {
		return nil, fmt.Errorf("marshal overlay: %w", err)
	}
	overlayFile := filepath.Join(tmpDir, "overlay.json")
	if err := os.WriteFile(overlayFile, overlayJSON, 0644); err != nil {
		return nil, fmt.Errorf("write overlay: %w", err)
	}

	binaryPath := filepath.Join(tmpDir, "runner")
	buildCmd := exec.Command("go", "build", "-mod=mod", "-overlay", overlayFile, "-o", binaryPath, ".")
	buildCmd.Dir = opts.PkgDir
	buildCmd.Env = append(os.Environ(), "GOWORK=off")
	if buildOut, err := buildCmd.CombinedOutput(); err != nil {
		return buildOut, fmt.Errorf("build: %w", err)
	}

	runCmd := exec.Command(binaryPath)
	runCmd.Dir = opts.PkgDir
	output, err = runCmd.CombinedOutput()
	if err != nil {
		return output, fmt.Errorf("run: %w", err)
	}
	return output, nil
}

// ParseCheck extracts the counts printed by a ModeCheck run.
func ParseCheck(output []byte) (methods, types, warnings int, err error) {
	for line := range strings.Lines(string(output)) {
		rest, ok := strings.CutPrefix(line, CheckPrefix)
		if !ok {
			continue
		}
		if _, err := fmt.Sscanf(rest, "%d %d %d", &methods, &types, &warnings); err != nil {
			return 0, 0, 0, fmt.Errorf("parse check output %q: %w", line, err)
		}
		return methods, types, warnings, nil
	}
	return 0, 0, 0, fmt.Errorf("no check result in output:\n%s", output)
}

// removeMain parses a Go file and returns a version with func main() removed.
func removeMain(filename string) (bool, []byte, error) {
	fset := token.NewFileSet()
	f, err := parser.ParseFile(fset, filename, nil, parser.ParseComments)
	if err != nil {
		return false, nil, err
	}

	hasMain := false
	var decls []ast.Decl
	for _, decl := range f.Decls {
		if fn, ok := decl.(*ast.FuncDecl); ok && fn.Name.Name == "main" && fn.Recv == nil {
			hasMain = true
			continue
		}
		decls = append(decls, decl)
	}
	if !hasMain {
		return false, nil, nil
	}
	f.Decls = decls

	var buf bytes.Buffer
	if err := format.Node(&buf, fset, f); err != nil {
		return false, nil, err
	}
	return true, buf.Bytes(), nil
}

// generateRunner creates the runner main() source.
func generateRunner(opts Options) ([]byte, error) {
	switch opts.Export.Type {
	case discover.ExportTypeBuilder, discover.ExportTypeGenerator:
	default:
		return nil, fmt.Errorf("unknown export type: %v", opts.Export.Type)
	}

	configFunc := ""
	if opts.ConfigFunc != "" && !opts.NoConfig {
		configFunc = opts.ConfigFunc
	}

	data := struct {
		Builder      bool
		ExportFunc   string
		ClientDir    string
		SchemaFile   string
		SchemaFormat string
		TemplateFile string
		Title        string
		Version      string
		ConfigFunc   string
		Mode         Mode
		CheckPrefix  string
	}{
		Builder:      opts.Export.Type == discover.ExportTypeBuilder,
		ExportFunc:   opts.Export.Name,
		ClientDir:    quote(opts.ClientDir),
		SchemaFile:   quote(opts.SchemaFile),
		SchemaFormat: quote(opts.SchemaFormat),
		TemplateFile: quote(opts.TemplateFile),
		Title:        quote(opts.Title),
		Version:      quote(opts.Version),
		ConfigFunc:   configFunc,
		Mode:         opts.Mode,
		CheckPrefix:  strconv.Quote(CheckPrefix + " %d %d %d\n"),
	}

	var buf bytes.Buffer
	if err := runnerTemplate.Execute(&buf, data); err != nil {
		return nil, err
	}
	return format.Source(buf.Bytes())
}

func quote(s string) string {
	if s == "" {
		return ""
	}
	return strconv.Quote(s)
}

var runnerTemplate = template.Must(template.New("runner").Parse(`package main

import (
	"context"
	{{- if eq .Mode 2}}
	"encoding/json"
	{{- end}}
	"fmt"
	"os"
	{{- if .Builder}}

	"github.com/broady/jrpc/jrpcgen"
	{{- end}}
	{{- if .Title}}
	"github.com/broady/jrpc/jrpcgen/openrpc"
	{{- end}}
)

func main() {
	if err := jrpcRunnerMain(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "jrpc: %v\n", err)
		os.Exit(1)
	}
}

func jrpcRunnerMain(ctx context.Context) error {
{{- if .Builder}}
	b := {{.ExportFunc}}()
	{{- if .ClientDir}}
	b = b.WithClientDir({{.ClientDir}})
	{{- end}}
	{{- if .SchemaFile}}
	b = b.WithSchemaFile({{.SchemaFile}})
	{{- end}}
	reg, err := b.Build()
	if err != nil {
		return err
	}
	g := jrpcgen.FromRegistry(reg)
{{- else}}
	g := {{.ExportFunc}}()
	{{- if or .ClientDir .SchemaFile}}
	targets := g.Targets()
	{{- if .ClientDir}}
	targets.ClientDir = {{.ClientDir}}
	{{- end}}
	{{- if .SchemaFile}}
	targets.SchemaFile = {{.SchemaFile}}
	{{- end}}
	g = g.WithTargets(targets)
	{{- end}}
{{- end}}
	{{- if .TemplateFile}}
	tmpl, err := os.ReadFile({{.TemplateFile}})
	if err != nil {
		return err
	}
	g = g.WithTemplate(string(tmpl))
	{{- end}}
	{{- if .SchemaFormat}}
	g = g.WithSchemaFormat({{.SchemaFormat}})
	{{- end}}
	{{- if .Title}}
	g = g.WithInfo(openrpc.Info{Title: {{.Title}}{{if .Version}}, Version: {{.Version}}{{end}}})
	{{- end}}
	{{- if .ConfigFunc}}
	g = {{.ConfigFunc}}(g)
	{{- end}}
{{if eq .Mode 0}}
	if _, err := g.Write(ctx); err != nil {
		return err
	}
	return nil
{{- else if eq .Mode 1}}
	res, err := g.Generate(ctx)
	if err != nil {
		return err
	}
	fmt.Printf({{.CheckPrefix}}, len(res.Schema.Methods), len(res.Schema.Types), len(res.Warnings))
	return nil
{{- else}}
	res, err := g.Generate(ctx)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(res.Schema)
{{- end}}
}
`))
