package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"magicscraper/internal/builder"
	"magicscraper/internal/catalog"
	"magicscraper/internal/editiondb"
	"magicscraper/internal/logging"
	"magicscraper/internal/services/gatherer"
)

type buildResult struct {
	Summary    builder.Summary `json:"summary"`
	Editions   int             `json:"editions"`
	Collisions int             `json:"edition_collisions"`
}

func newBuildCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "build",
		Short: "Crawl the Gatherer listing into the card catalog",
		Long: `Crawl every page of the configured Gatherer search listing and record each card
in the catalog file. Pages already recorded as complete are skipped, so an
interrupted build resumes where it stopped. After a successful crawl the
edition database is rebuilt from the catalog.`,
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
			runCtx := runContext(cmd, "build")
			if err := requireLocalState(runCtx, cfg); err != nil {
				return err
			}

			client, err := gatherer.NewFromConfig(cfg, logger)
			if err != nil {
				return fmt.Errorf("create gatherer client: %w", err)
			}
			store := catalog.NewStore(cfg.Paths.CatalogPath)
			summary, err := builder.New(client, store, logger).Run(runCtx)
			if err != nil {
				if summary.StoppedAt >= 0 {
					return describeError(fmt.Errorf("build stopped at page %d: %w", summary.StoppedAt, err))
				}
				return describeError(err)
			}

			cat, err := store.Load()
			if err != nil {
				return fmt.Errorf("reload catalog: %w", err)
			}
			db, err := editiondb.Open(cfg)
			if err != nil {
				return fmt.Errorf("open edition database: %w", err)
			}
			defer db.Close()
			rebuilt, err := db.Rebuild(runCtx, cat)
			if err != nil {
				return fmt.Errorf("rebuild edition database: %w", err)
			}
			for _, c := range rebuilt.Collisions {
				logging.WithContext(runCtx, logger).Warn("multiverse id claimed by several cards",
					logging.Int(logging.FieldMultiverseID, c.MultiverseID),
					logging.String("card", c.CardName),
					logging.String("kept_card", c.KeptCardName),
					logging.String(logging.FieldEventType, "edition_collision"))
			}

			result := buildResult{Summary: summary, Editions: rebuilt.Editions, Collisions: len(rebuilt.Collisions)}
			if ctx.jsonOutput() {
				return writeJSON(cmd, result)
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Pages", "Processed", "Skipped", "Cards added", "Duplicates", "Cards", "Editions", "Id collisions"},
				[][]string{{
					strconv.Itoa(summary.TotalPages),
					strconv.Itoa(summary.Processed),
					strconv.Itoa(summary.Skipped),
					strconv.Itoa(summary.CardsAdded),
					strconv.Itoa(summary.Duplicates),
					strconv.Itoa(summary.Cards),
					strconv.Itoa(rebuilt.Editions),
					strconv.Itoa(len(rebuilt.Collisions)),
				}},
				[]columnAlignment{alignRight, alignRight, alignRight, alignRight, alignRight, alignRight, alignRight, alignRight},
			))
			return nil
		},
	}
}
