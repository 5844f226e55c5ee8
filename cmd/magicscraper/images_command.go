package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"magicscraper/internal/catalog"
	"magicscraper/internal/imagefetch"
	"magicscraper/internal/services/gatherer"
)

func newImagesCommand(ctx *commandContext) *cobra.Command {
	var ids []int

	cmd := &cobra.Command{
		Use:   "images",
		Short: "Download one reference image per catalog edition",
		Long: `Download the Gatherer card image of every edition in the catalog into the
images directory as <multiverse id>.jpeg. Existing files are never fetched
again. A failed sweep restarts from the beginning up to
images.max_sweep_attempts times.

Examples:
  magicscraper images                 # Sweep every edition
  magicscraper images --id 600        # Fetch specific editions only`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load configuration: %w", err)
			}
			logger, closeLog, err := ctx.openLogger(cmd)
			if err != nil {
				return err
			}
			defer closeLog()
			runCtx := runContext(cmd, "images")
			if err := requireLocalState(runCtx, cfg); err != nil {
				return err
			}

			client, err := gatherer.NewFromConfig(cfg, logger)
			if err != nil {
				return fmt.Errorf("create gatherer client: %w", err)
			}
			fetcher := imagefetch.New(client, logger, imagefetch.WithRetryPolicy(imagefetch.RetryPolicy{
				MaxAttempts: cfg.Images.MaxSweepAttempts,
			}))

			if len(ids) > 0 {
				return fetchSelected(runCtx, cmd, ctx, fetcher, ids, cfg.Paths.ImagesDir)
			}

			cat, err := catalog.NewStore(cfg.Paths.CatalogPath).Load()
			if err != nil {
				return fmt.Errorf("load catalog: %w", err)
			}
			report, err := fetcher.FetchAll(runCtx, cat, cfg.Paths.ImagesDir)
			if err != nil {
				return describeError(err)
			}

			if ctx.jsonOutput() {
				return writeJSON(cmd, report)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable(
				[]string{"Editions", "Attempts", "Downloaded", "Already present", "Abandoned"},
				[][]string{{
					strconv.Itoa(report.Editions),
					strconv.Itoa(report.Attempts),
					strconv.Itoa(report.Downloaded),
					strconv.Itoa(report.Skipped),
					yesNo(report.Abandoned),
				}},
				[]columnAlignment{alignRight, alignRight, alignRight, alignRight, alignLeft},
			))
			if report.Abandoned {
				fmt.Fprintf(out, "Sweep abandoned after %d attempts: %s\n", report.Attempts, report.LastError)
				fmt.Fprintln(out, "Rerun 'magicscraper images' to continue; downloaded files are kept.")
			}
			return nil
		},
	}

	cmd.Flags().IntSliceVar(&ids, "id", nil, "Fetch only these multiverse ids (repeatable)")
	return cmd
}

type fetchedImage struct {
	MultiverseID int    `json:"multiverse_id"`
	Path         string `json:"path"`
	Downloaded   bool   `json:"downloaded"`
}

func fetchSelected(runCtx context.Context, cmd *cobra.Command, ctx *commandContext, fetcher *imagefetch.Fetcher, ids []int, dir string) error {
	results := make([]fetchedImage, 0, len(ids))
	for _, id := range ids {
		downloaded, err := fetcher.FetchOne(runCtx, id, dir)
		if err != nil {
			return describeError(err)
		}
		results = append(results, fetchedImage{MultiverseID: id, Path: imagefetch.ImagePath(dir, id), Downloaded: downloaded})
	}

	if ctx.jsonOutput() {
		return writeJSON(cmd, results)
	}
	rows := make([][]string, 0, len(results))
	for _, r := range results {
		rows = append(rows, []string{strconv.Itoa(r.MultiverseID), yesNo(r.Downloaded), r.Path})
	}
	fmt.Fprintln(cmd.OutOrStdout(), renderTable(
		[]string{"Multiverse ID", "Downloaded", "Path"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft},
	))
	return nil
}
