package check

import (
	"fmt"
	"os"

	"github.com/broady/jrpc/cmd/jrpc/internal/project"
	"github.com/broady/jrpc/internal/runner"
)

type Cmd struct {
	project.Flags `embed:""`

	Dump bool `help:"Print the schema intermediate representation as JSON."`
}

func (c *Cmd) Run() error {
	cfg, err := c.Resolve()
	if err != nil {
		return err
	}
	mode := runner.ModeCheck
	if c.Dump {
		mode = runner.ModeDump
	}
	result, opts, err := project.Prepare(cfg, mode)
	if err != nil {
		return err
	}

	output, err := runner.Exec(opts)
	if err != nil {
		if len(output) > 0 {
			fmt.Fprint(os.Stderr, string(output))
		}
		return err
	}

	if c.Dump {
		fmt.Print(string(output))
		return nil
	}

	fmt.Printf("✓ Found export: %s() %s\n", opts.Export.Name, opts.Export.Type)
	if result.ConfigFunc != nil && !cfg.NoConfig {
		fmt.Printf("✓ Found config: %s(*jrpcgen.Generator) *jrpcgen.Generator\n", result.ConfigFunc.Name)
	}

	methods, types, warnings, err := runner.ParseCheck(output)
	if err != nil {
		return err
	}
	fmt.Printf("✓ %d methods, %d types\n", methods, types)
	if warnings > 0 {
		fmt.Fprint(os.Stderr, string(output))
		fmt.Printf("! %d warnings\n", warnings)
	}
	fmt.Println("✓ Registry valid, client and schema generate")
	return nil
}
