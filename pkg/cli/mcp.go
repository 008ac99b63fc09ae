package cli

import (
	"context"
	"os"

	"github.com/m-mizutani/plenty/pkg/service/mcp"
	"github.com/urfave/cli/v3"
)

func mcpCommand() *cli.Command {
	var cfg config

	flags := []cli.Flag{}
	flags = append(flags, globalFlags(&cfg)...)
	flags = append(flags, storeFlags(&cfg)...)
	flags = append(flags, llmFlags(&cfg)...)
	flags = append(flags, combineFlags(&cfg)...)

	return &cli.Command{
		Name:  "mcp",
		Usage: "Run an MCP server on stdio",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			// stdout carries the protocol, so logs go to stderr
			ctx, closeLog, err := cfg.setupLogger(ctx, os.Stderr)
			if err != nil {
				return err
			}
			defer closeLog()

			uc, repo, err := cfg.newUseCase(ctx)
			if err != nil {
				return err
			}
			defer repo.Close()

			return mcp.New(uc, version).Run(ctx)
		},
	}
}
