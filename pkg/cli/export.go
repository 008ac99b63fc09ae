package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/plenty/pkg/adapter"
	"github.com/m-mizutani/plenty/pkg/usecase/export"
	"github.com/urfave/cli/v3"
)

func exportCommand() *cli.Command {
	var (
		cfg             config
		bucket          string
		object          string
		bigqueryProject string
		bigqueryDataset string
		bigqueryTable   string
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "bucket",
			Usage:       "Cloud Storage bucket to write a JSONL export to",
			Sources:     cli.EnvVars("PLENTY_EXPORT_BUCKET"),
			Destination: &bucket,
		},
		&cli.StringFlag{
			Name:        "object",
			Usage:       "Object name of the JSONL export",
			Value:       "combinations.jsonl",
			Sources:     cli.EnvVars("PLENTY_EXPORT_OBJECT"),
			Destination: &object,
		},
		&cli.StringFlag{
			Name:        "bigquery-project",
			Usage:       "Google Cloud project ID for BigQuery",
			Sources:     cli.EnvVars("PLENTY_BIGQUERY_PROJECT", "GOOGLE_CLOUD_PROJECT"),
			Destination: &bigqueryProject,
		},
		&cli.StringFlag{
			Name:        "bigquery-dataset",
			Usage:       "BigQuery dataset to export to",
			Sources:     cli.EnvVars("PLENTY_BIGQUERY_DATASET"),
			Destination: &bigqueryDataset,
		},
		&cli.StringFlag{
			Name:        "bigquery-table",
			Usage:       "BigQuery table to export to",
			Value:       "combinations",
			Sources:     cli.EnvVars("PLENTY_BIGQUERY_TABLE"),
			Destination: &bigqueryTable,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)
	flags = append(flags, storeFlags(&cfg)...)

	return &cli.Command{
		Name:  "export",
		Usage: "Export all combinations to Cloud Storage or BigQuery",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			if bucket == "" && bigqueryDataset == "" {
				return goerr.New("either bucket or bigquery-dataset is required")
			}

			ctx, closeLog, err := cfg.setupLogger(ctx, os.Stderr)
			if err != nil {
				return err
			}
			defer closeLog()

			repo, err := cfg.newRepository(ctx)
			if err != nil {
				return err
			}
			defer repo.Close()

			uc := export.New(repo)

			if bucket != "" {
				storage, err := adapter.NewStorage(ctx, bucket)
				if err != nil {
					return goerr.Wrap(err, "failed to create storage")
				}
				count, err := uc.ToStorage(ctx, storage, object)
				if err != nil {
					return goerr.Wrap(err, "failed to export to storage")
				}
				fmt.Fprintf(c.Root().Writer, "Exported %d combinations to gs://%s/%s\n", count, bucket, object)
			}

			if bigqueryDataset != "" {
				bq, err := adapter.NewBigQuery(ctx, bigqueryProject)
				if err != nil {
					return err
				}
				count, err := uc.ToBigQuery(ctx, bq, bigqueryDataset, bigqueryTable)
				if err != nil {
					return goerr.Wrap(err, "failed to export to bigquery")
				}
				fmt.Fprintf(c.Root().Writer, "Exported %d combinations to %s.%s.%s\n",
					count, bigqueryProject, bigqueryDataset, bigqueryTable)
			}

			return nil
		},
	}
}
