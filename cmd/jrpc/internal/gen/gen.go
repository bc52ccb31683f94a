package gen

import (
	"fmt"
	"os"

	"github.com/broady/jrpc/cmd/jrpc/internal/project"
	"github.com/broady/jrpc/internal/runner"
)

type Cmd struct {
	project.Flags `embed:""`
}

func (c *Cmd) Run() error {
	cfg, err := c.Resolve()
	if err != nil {
		return err
	}
	_, opts, err := project.Prepare(cfg, runner.ModeWrite)
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

	// Warnings from the generator.
	if len(output) > 0 {
		fmt.Fprint(os.Stderr, string(output))
	}
	if cfg.ClientDir != "" {
		fmt.Printf("✓ Client written to %s\n", cfg.ClientDir)
	}
	if cfg.Schema != "" {
		fmt.Printf("✓ Schema written to %s\n", cfg.Schema)
	}
	return nil
}
