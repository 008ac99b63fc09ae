package cli

import (
	"context"
	"encoding/json"
	"os"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/plenty/pkg/model"
	"github.com/urfave/cli/v3"
)

func combineCommand() *cli.Command {
	var cfg config

	flags := []cli.Flag{}
	flags = append(flags, globalFlags(&cfg)...)
	flags = append(flags, storeFlags(&cfg)...)
	flags = append(flags, llmFlags(&cfg)...)
	flags = append(flags, combineFlags(&cfg)...)

	return &cli.Command{
		Name:      "combine",
		Usage:     "Combine two elements and print the result as JSON",
		ArgsUsage: "<element-a> <element-b>",
		Flags:     flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			if c.Args().Len() < 2 {
				return goerr.New("two element names are required")
			}
			a, b := c.Args().Get(0), c.Args().Get(1)

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

			outcome := uc.Resolve(ctx, a, b)

			encoder := json.NewEncoder(c.Root().Writer)
			encoder.SetIndent("", "  ")
			if err := encoder.Encode(model.NewEnvelope(a, b, outcome)); err != nil {
				return goerr.Wrap(err, "failed to write result")
			}

			if outcome.Kind == model.OutcomeFailed {
				return goerr.New("failed to combine elements",
					goerr.V("reason", outcome.Reason),
					goerr.V("error", outcome.Err))
			}
			return nil
		},
	}
}
