package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/plenty/pkg/usecase/combine"
	"github.com/urfave/cli/v3"
)

func listCommand() *cli.Command {
	var (
		cfg    config
		offset int64
		limit  int64
	)

	flags := []cli.Flag{
		&cli.IntFlag{
			Name:        "offset",
			Usage:       "Offset for pagination",
			Value:       0,
			Sources:     cli.EnvVars("PLENTY_LIST_OFFSET"),
			Destination: &offset,
		},
		&cli.IntFlag{
			Name:        "limit",
			Usage:       "Maximum number of combinations to list",
			Value:       100,
			Sources:     cli.EnvVars("PLENTY_LIST_LIMIT"),
			Destination: &limit,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)
	flags = append(flags, storeFlags(&cfg)...)

	return &cli.Command{
		Name:  "list",
		Usage: "List discovered combinations, newest first",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx, closeLog, err := cfg.setupLogger(ctx, os.Stderr)
			if err != nil {
				return err
			}
			defer closeLog()

			// Listing never generates, so no generator is configured
			repo, err := cfg.newRepository(ctx)
			if err != nil {
				return err
			}
			defer repo.Close()

			uc := combine.New(repo, nil)
			combinations, err := uc.List(ctx, combine.ListOptions{
				Offset: int(offset),
				Limit:  int(limit),
			})
			if err != nil {
				return goerr.Wrap(err, "failed to list combinations")
			}

			for _, cb := range combinations {
				fmt.Fprintf(c.Root().Writer, "%s %s\t%s + %s\t%s\n",
					cb.Emoji, cb.Name, cb.SourceA, cb.SourceB,
					cb.CreatedAt.Local().Format(time.DateTime))
			}

			return nil
		},
	}
}
