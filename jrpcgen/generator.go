// Package jrpcgen generates the TypeScript client and the OpenRPC document
// of a jrpc registry.
//
// Both outputs are rendered from one ir.Schema built from the registry, so
// they list the same methods in the same order and share one type
// catalogue with the dispatcher.
package jrpcgen

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/broady/jrpc/jrpcgen/ir"
	"github.com/broady/jrpc/jrpcgen/openrpc"
	"github.com/broady/jrpc/jrpcgen/provider"
	"github.com/broady/jrpc/jrpcgen/sink"
	"github.com/broady/jrpc/jrpcgen/typescript"
)

// Result holds generated outputs in memory.
type Result struct {
	// Schema is the intermediate representation both outputs were
	// rendered from.
	Schema *ir.Schema

	// Client is the TypeScript module, or nil when no client was requested.
	Client *typescript.ClientModule

	// Document is the OpenRPC document, or nil when no schema was requested.
	Document *openrpc.Document

	// SchemaName is the file name of the rendered document.
	SchemaName string

	// SchemaBytes is Document rendered in the configured format.
	SchemaBytes []byte

	// Warnings are non-fatal issues found while building Schema.
	Warnings []ir.Warning
}

// Generate renders the requested outputs without touching the filesystem.
func (g *Generator) Generate(ctx context.Context) (*Result, error) {
	if g.reg == nil {
		return nil, errors.New("jrpcgen: nil registry")
	}
	cfg := applyConfigDefaults(&g.cfg, g.reg)
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	schema, err := (&provider.ReflectionProvider{}).BuildSchema(ctx, g.reg)
	if err != nil {
		return nil, fmt.Errorf("failed to build schema: %w", err)
	}
	if errs := schema.Validate(); len(errs) > 0 {
		return nil, fmt.Errorf("invalid schema: %w", errors.Join(errs...))
	}
	for _, w := range schema.Warnings {
		cfg.Logger.Warn("generation warning",
			slog.String("code", w.Code),
			slog.String("type", w.TypeName),
			slog.String("message", w.Message))
	}

	res := &Result{Schema: schema, Warnings: schema.Warnings}

	if cfg.Targets.ClientDir != "" {
		res.Client, err = typescript.GenerateClient(ctx, schema, typescript.ClientOptions{
			Template:          cfg.Template,
			EmitComments:      cfg.PreserveComments != "none",
			UseReadonlyArrays: cfg.ReadonlyArrays,
			UnknownType:       cfg.UnknownType,
			Frontmatter:       cfg.Frontmatter,
		})
		if err != nil {
			return nil, err
		}
	}

	if cfg.Targets.SchemaFile != "" {
		res.Document, err = openrpc.Generate(schema, cfg.Info)
		if err != nil {
			return nil, err
		}
		if cfg.SchemaFormat == FormatYAML {
			res.SchemaBytes, err = res.Document.YAML()
		} else {
			res.SchemaBytes, err = res.Document.JSON()
		}
		if err != nil {
			return nil, &GenerationError{Target: "schema", Message: err.Error()}
		}
		res.SchemaName = filepath.Base(cfg.Targets.SchemaFile)
	}

	return res, nil
}

// Write generates the outputs and writes them to the registry's targets.
// Nothing is written unless every output was generated successfully.
func (g *Generator) Write(ctx context.Context) (*Result, error) {
	res, err := g.Generate(ctx)
	if err != nil {
		return nil, err
	}
	targets := g.Targets()

	var clientSink, schemaSink sink.Sink
	if res.Client != nil {
		clientSink = sink.NewDir(targets.ClientDir)
	}
	if res.Document != nil {
		schemaSink = sink.NewDir(filepath.Dir(targets.SchemaFile))
	}
	if err := res.Emit(ctx, clientSink, schemaSink); err != nil {
		return nil, err
	}
	return res, nil
}

// Emit writes the generated files concurrently: client files to client and
// the schema document to schema. A nil sink skips its output.
func (r *Result) Emit(ctx context.Context, client, schema sink.Sink) error {
	eg, ctx := errgroup.WithContext(ctx)
	if client != nil && r.Client != nil {
		for _, f := range r.Client.Files {
			eg.Go(func() error {
				if err := client.WriteFile(ctx, f.Path, f.Content); err != nil {
					return fmt.Errorf("write client: %w", err)
				}
				return nil
			})
		}
	}
	if schema != nil && r.Document != nil {
		eg.Go(func() error {
			if err := schema.WriteFile(ctx, r.SchemaName, r.SchemaBytes); err != nil {
				return fmt.Errorf("write schema: %w", err)
			}
			return nil
		})
	}
	return eg.Wait()
}

func validateConfig(cfg *Config) error {
	if cfg.Targets.ClientDir == "" && cfg.Targets.SchemaFile == "" {
		return &GenerationError{Message: "no output requested: set a client directory or a schema file"}
	}
	switch cfg.SchemaFormat {
	case FormatJSON, FormatYAML:
	default:
		return &GenerationError{Target: "schema", Message: fmt.Sprintf("unknown schema format %q (expected %q or %q)", cfg.SchemaFormat, FormatJSON, FormatYAML)}
	}
	switch cfg.PreserveComments {
	case "default", "none":
	default:
		return &GenerationError{Target: "client", Message: fmt.Sprintf("unknown comment mode %q", cfg.PreserveComments)}
	}
	switch cfg.UnknownType {
	case "unknown", "any":
	default:
		return &GenerationError{Target: "client", Message: fmt.Sprintf("unknown type mapping %q", cfg.UnknownType)}
	}
	return nil
}
