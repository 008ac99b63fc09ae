package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/m-mizutani/plenty/pkg/server"
	"github.com/m-mizutani/plenty/pkg/service/mcp"
	"github.com/urfave/cli/v3"
)

func serveCommand() *cli.Command {
	var (
		cfg       config
		addr      string
		publicDir string
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "addr",
			Aliases:     []string{"a"},
			Usage:       "Listen address",
			Value:       "127.0.0.1:3000",
			Sources:     cli.EnvVars("PLENTY_ADDR"),
			Destination: &addr,
		},
		&cli.StringFlag{
			Name:        "public-dir",
			Usage:       "Directory of static front-end files served at /",
			Sources:     cli.EnvVars("PLENTY_PUBLIC_DIR"),
			Destination: &publicDir,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)
	flags = append(flags, storeFlags(&cfg)...)
	flags = append(flags, llmFlags(&cfg)...)
	flags = append(flags, combineFlags(&cfg)...)

	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the element API over HTTP",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
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

			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()

			srv := server.New(uc,
				server.WithPublicDir(publicDir),
				server.WithMCP(mcp.New(uc, version).Handler()),
			)
			return server.ListenAndServe(ctx, addr, srv)
		},
	}
}
