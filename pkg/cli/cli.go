package cli

import (
	"context"

	"github.com/urfave/cli/v3"
)

const version = "0.1.0"

type Error struct {
	Code    int
	Message string
}

func Run(ctx context.Context, argv []string) *Error {
	cmd := &cli.Command{
		Name:    "plenty",
		Usage:   "Element crafting game backed by a generative model",
		Version: version,
		Commands: []*cli.Command{
			serveCommand(),
			combineCommand(),
			listCommand(),
			playCommand(),
			mcpCommand(),
			exportCommand(),
		},
	}

	if err := cmd.Run(ctx, argv); err != nil {
		return &Error{
			Code:    1,
			Message: err.Error(),
		}
	}

	return nil
}
