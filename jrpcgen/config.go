package jrpcgen

import (
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/broady/jrpc"
	"github.com/broady/jrpc/jrpcgen/ir"
	"github.com/broady/jrpc/jrpcgen/openrpc"
)

// GenerationError reports a registry that cannot be rendered into one of
// the outputs.
type GenerationError = ir.GenerationError

// Schema document formats.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// Config holds the configuration for code generation.
type Config struct {
	// Targets overrides the outputs requested by the registry when any
	// field is set.
	Targets jrpc.Targets

	// Template is the client.ts template. It must contain
	// typescript.MethodsMarker exactly once. Empty uses the default template.
	Template string

	// SchemaFormat is "json" or "yaml". When empty it is inferred from the
	// schema file extension, falling back to JSON.
	SchemaFormat string

	// Info describes the service in the schema document.
	Info openrpc.Info

	// PreserveComments controls whether Go doc comments reach the client.
	// Supported values: "default", "none".
	PreserveComments string

	// Frontmatter is added to the top of types.ts.
	Frontmatter string

	// UnknownType is the TypeScript type for Go interface values.
	// Supported values: "unknown" (default), "any".
	UnknownType string

	// ReadonlyArrays emits 'readonly T[]' for slices.
	ReadonlyArrays bool

	// Logger receives generation warnings. Defaults to slog.Default().
	Logger *slog.Logger
}

// applyConfigDefaults returns a copy of cfg with defaults filled in.
func applyConfigDefaults(cfg *Config, reg *jrpc.Registry) *Config {
	result := *cfg

	if result.Targets == (jrpc.Targets{}) && reg != nil {
		result.Targets = reg.Targets()
	}
	if result.SchemaFormat == "" {
		result.SchemaFormat = formatForFile(result.Targets.SchemaFile)
	}
	if result.PreserveComments == "" {
		result.PreserveComments = "default"
	}
	if result.UnknownType == "" {
		result.UnknownType = "unknown"
	}
	if result.Info.Title == "" {
		result.Info.Title = "jrpc"
	}
	if result.Info.Version == "" {
		result.Info.Version = "0.0.0"
	}
	if result.Logger == nil {
		result.Logger = slog.Default()
	}
	return &result
}

func formatForFile(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	}
	return FormatJSON
}

// Generator provides a fluent API for code generation.
// Create one with FromRegistry and configure it with method chaining.
//
// Example:
//
//	jrpcgen.FromRegistry(reg).
//	    WithTemplate(tmpl).
//	    WithSchemaFormat("yaml").
//	    Write(ctx)
type Generator struct {
	reg *jrpc.Registry
	cfg Config
}

// FromRegistry creates a Generator for the methods of reg.
func FromRegistry(reg *jrpc.Registry) *Generator {
	return &Generator{reg: reg}
}

// WithConfig replaces the whole configuration.
func (g *Generator) WithConfig(cfg Config) *Generator {
	g.cfg = cfg
	return g
}

// WithTargets overrides the outputs requested by the registry.
func (g *Generator) WithTargets(t jrpc.Targets) *Generator {
	g.cfg.Targets = t
	return g
}

// WithTemplate sets the client.ts template.
func (g *Generator) WithTemplate(tmpl string) *Generator {
	g.cfg.Template = tmpl
	return g
}

// WithSchemaFormat sets the schema document format: "json" or "yaml".
func (g *Generator) WithSchemaFormat(format string) *Generator {
	g.cfg.SchemaFormat = format
	return g
}

// WithInfo sets the service description of the schema document.
func (g *Generator) WithInfo(info openrpc.Info) *Generator {
	g.cfg.Info = info
	return g
}

// PreserveComments controls whether Go doc comments are preserved.
// Valid values: "default", "none".
func (g *Generator) PreserveComments(mode string) *Generator {
	g.cfg.PreserveComments = mode
	return g
}

// Frontmatter adds content to the top of types.ts.
func (g *Generator) Frontmatter(content string) *Generator {
	g.cfg.Frontmatter = content
	return g
}

// WithLogger sets the logger that receives generation warnings.
func (g *Generator) WithLogger(logger *slog.Logger) *Generator {
	g.cfg.Logger = logger
	return g
}

// Targets returns the outputs Write will produce.
func (g *Generator) Targets() jrpc.Targets {
	return applyConfigDefaults(&g.cfg, g.reg).Targets
}
