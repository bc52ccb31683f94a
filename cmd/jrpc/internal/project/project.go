// Package project resolves the settings of a jrpc CLI run from the
// optional jrpc.toml project file and command-line flags.
package project

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// DefaultFile is the project file looked up in the working directory.
const DefaultFile = "jrpc.toml"

// Config is the resolved set of generation settings.
// Path fields are absolute once resolved.
type Config struct {
	Package      string
	Export       string
	ClientDir    string
	Schema       string
	SchemaFormat string
	Template     string
	Title        string
	Version      string
	NoConfig     bool
}

// Default returns the settings used when neither file nor flags set them.
func Default() Config {
	return Config{Package: "."}
}

// Flags are the command-line flags shared by gen and check.
type Flags struct {
	Config       string `help:"Project file (default: ./jrpc.toml if present)." type:"path"`
	Export       string `help:"Export function name (required if multiple exports exist)." short:"e"`
	Package      string `help:"Package to scan (default: current directory)." short:"p"`
	ClientDir    string `help:"Directory for the TypeScript client." name:"client-dir" type:"path"`
	Schema       string `help:"File for the OpenRPC document." type:"path"`
	SchemaFormat string `help:"Schema format: json or yaml (default: from file extension)." name:"schema-format"`
	Template     string `help:"client.ts template containing the #methods marker." type:"path"`
	Title        string `help:"Service title in the schema document."`
	APIVersion   string `help:"Service version in the schema document." name:"api-version"`
	NoConfig     bool   `help:"Ignore the config function."`
}

// fileConfig is the jrpc.toml key mapping.
type fileConfig struct {
	Package      string `toml:"package"`
	Export       string `toml:"export"`
	ClientDir    string `toml:"client_dir"`
	Schema       string `toml:"schema"`
	SchemaFormat string `toml:"schema_format"`
	Template     string `toml:"template"`
	Title        string `toml:"title"`
	Version      string `toml:"version"`
	NoConfig     bool   `toml:"no_config"`
}

// Resolve loads the project file, if any, and overlays the flags on it.
func (f *Flags) Resolve() (Config, error) {
	cfg := Default()

	path := f.Config
	if path == "" {
		if _, err := os.Stat(DefaultFile); err == nil {
			path = DefaultFile
		} else if !errors.Is(err, fs.ErrNotExist) {
			return Config{}, err
		}
	}
	if path != "" {
		var err error
		if cfg, err = Load(path); err != nil {
			return Config{}, err
		}
	}

	overlay := func(dst *string, v string, isPath bool) error {
		if v == "" {
			return nil
		}
		if isPath {
			abs, err := filepath.Abs(v)
			if err != nil {
				return err
			}
			v = abs
		}
		*dst = v
		return nil
	}
	for _, o := range []struct {
		dst    *string
		v      string
		isPath bool
	}{
		{&cfg.Export, f.Export, false},
		{&cfg.Package, f.Package, false},
		{&cfg.ClientDir, f.ClientDir, true},
		{&cfg.Schema, f.Schema, true},
		{&cfg.SchemaFormat, f.SchemaFormat, false},
		{&cfg.Template, f.Template, true},
		{&cfg.Title, f.Title, false},
		{&cfg.Version, f.APIVersion, false},
	} {
		if err := overlay(o.dst, o.v, o.isPath); err != nil {
			return Config{}, err
		}
	}
	if f.NoConfig {
		cfg.NoConfig = true
	}

	return cfg, cfg.Validate()
}

// Load reads a project file over Default. Relative paths in the file are
// resolved against the file's directory.
func Load(path string) (Config, error) {
	cfg := Default()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("load %s: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return Config{}, fmt.Errorf("load %s: unknown key %q", path, undecoded[0].String())
	}

	base, err := filepath.Abs(filepath.Dir(path))
	if err != nil {
		return Config{}, err
	}
	rel := func(p string) string {
		p = strings.TrimSpace(p)
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(base, p)
	}

	if meta.IsDefined("package") {
		cfg.Package = strings.TrimSpace(raw.Package)
		if strings.HasPrefix(cfg.Package, ".") {
			cfg.Package = rel(cfg.Package)
		}
	}
	if meta.IsDefined("export") {
		cfg.Export = strings.TrimSpace(raw.Export)
	}
	if meta.IsDefined("client_dir") {
		cfg.ClientDir = rel(raw.ClientDir)
	}
	if meta.IsDefined("schema") {
		cfg.Schema = rel(raw.Schema)
	}
	if meta.IsDefined("schema_format") {
		cfg.SchemaFormat = strings.TrimSpace(raw.SchemaFormat)
	}
	if meta.IsDefined("template") {
		cfg.Template = rel(raw.Template)
	}
	if meta.IsDefined("title") {
		cfg.Title = strings.TrimSpace(raw.Title)
	}
	if meta.IsDefined("version") {
		cfg.Version = strings.TrimSpace(raw.Version)
	}
	if meta.IsDefined("no_config") {
		cfg.NoConfig = raw.NoConfig
	}
	return cfg, nil
}

// Validate checks values the generator would otherwise reject late.
func (c Config) Validate() error {
	switch c.SchemaFormat {
	case "", "json", "yaml":
	default:
		return fmt.Errorf("unsupported schema format %q (expected json or yaml)", c.SchemaFormat)
	}
	if c.Version != "" && c.Title == "" {
		return errors.New("a schema version requires a title")
	}
	return nil
}
