package project

import (
	"fmt"

	"github.com/broady/jrpc/internal/discover"
	"github.com/broady/jrpc/internal/runner"
)

// Prepare discovers the export to run and builds the runner options.
func Prepare(cfg Config, mode runner.Mode) (*discover.Result, runner.Options, error) {
	result, err := discover.Find(cfg.Package)
	if err != nil {
		return nil, runner.Options{}, fmt.Errorf("discover: %w", err)
	}
	export, err := discover.SelectExport(result.Exports, cfg.Export)
	if err != nil {
		return nil, runner.Options{}, err
	}

	opts := runner.Options{
		Export:       *export,
		Mode:         mode,
		ClientDir:    cfg.ClientDir,
		SchemaFile:   cfg.Schema,
		SchemaFormat: cfg.SchemaFormat,
		TemplateFile: cfg.Template,
		Title:        cfg.Title,
		Version:      cfg.Version,
		NoConfig:     cfg.NoConfig,
		PkgDir:       result.Dir,
	}
	if result.ConfigFunc != nil {
		opts.ConfigFunc = result.ConfigFunc.Name
	}
	return result, opts, nil
}
