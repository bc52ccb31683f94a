package main

import (
	"fmt"

	"github.com/alecthomas/kong"

	"github.com/broady/jrpc/cmd/jrpc/internal/check"
	"github.com/broady/jrpc/cmd/jrpc/internal/gen"
)

type CLI struct {
	Version VersionCmd `cmd:"" help:"Print version information."`
	Gen     gen.Cmd    `cmd:"" help:"Generate the TypeScript client and OpenRPC document."`
	Check   check.Cmd  `cmd:"" help:"Validate the registry and its types without writing files."`
}

type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	fmt.Println(Version())
	return nil
}

func main() {
	cli := &CLI{}
	ctx := kong.Parse(cli,
		kong.Name("jrpc"),
		kong.Description("Generate JSON-RPC clients and schemas from a jrpc registry."),
		kong.UsageOnError(),
	)
	err := ctx.Run()
	ctx.FatalIfErrorf(err)
}
