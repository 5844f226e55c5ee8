package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"magicscraper/internal/catalog"
	"magicscraper/internal/fpindex"
	"magicscraper/internal/phash"
)

type indexResult struct {
	References   int    `json:"references"`
	Fingerprints int    `json:"fingerprints"`
	Collisions   int    `json:"collisions"`
	Dir          string `json:"dir"`
}

func newIndexCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "index",
		Short: "Fingerprint every reference image into the lookup index",
		Long: `Compute the perceptual hash of <images_dir>/<id>.jpeg for every catalog edition
and write phash_to_ids.json and id_to_phash.json into the index directory.
Every edition must have its image; run 'magicscraper images' first.`,
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
			runCtx := runContext(cmd, "index")
			if err := requireLocalState(runCtx, cfg); err != nil {
				return err
			}

			cat, err := catalog.NewStore(cfg.Paths.CatalogPath).Load()
			if err != nil {
				return fmt.Errorf("load catalog: %w", err)
			}
			ix, err := fpindex.NewIndexer(phash.Perceptual{}, logger).Build(runCtx, cat, cfg.Paths.ImagesDir)
			if err != nil {
				return describeError(err)
			}
			if err := ix.Save(cfg.Paths.IndexDir); err != nil {
				return fmt.Errorf("save index: %w", err)
			}

			result := indexResult{
				References:   ix.Len(),
				Fingerprints: len(ix.ByFingerprint),
				Collisions:   len(ix.Collisions()),
				Dir:          cfg.Paths.IndexDir,
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, result)
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"References", "Fingerprints", "Shared fingerprints", "Index directory"},
				[][]string{{
					strconv.Itoa(result.References),
					strconv.Itoa(result.Fingerprints),
					strconv.Itoa(result.Collisions),
					result.Dir,
				}},
				[]columnAlignment{alignRight, alignRight, alignRight, alignLeft},
			))
			return nil
		},
	}
}
