package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"magicscraper/internal/catalog"
	"magicscraper/internal/editiondb"
	"magicscraper/internal/fileutil"
	"magicscraper/internal/fpindex"
	"magicscraper/internal/imagefetch"
	"magicscraper/internal/preflight"
	"magicscraper/internal/services"
)

type pipelineStatus struct {
	Cards              int  `json:"cards"`
	CompletedPages     int  `json:"completed_pages"`
	Editions           int  `json:"editions"`
	ImagesPresent      int  `json:"images_present"`
	IndexBuilt         bool `json:"index_built"`
	IndexedReferences  int  `json:"indexed_references"`
	SharedFingerprints int  `json:"shared_fingerprints"`
	EditionDBRows      int  `json:"edition_db_rows"`
	EditionCollisions  int  `json:"edition_collisions"`
}

type statusReport struct {
	ConfigPath string             `json:"config_path"`
	Checks     []preflight.Result `json:"checks"`
	Pipeline   pipelineStatus     `json:"pipeline"`
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var offline bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show state directories, source reachability and pipeline progress",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load configuration: %w", err)
			}
			runCtx := runContext(cmd, "status")

			report := statusReport{
				ConfigPath: ctx.configPath,
				Checks:     preflight.RunAll(runCtx, cfg, !offline),
			}

			cat, err := catalog.NewStore(cfg.Paths.CatalogPath).Load()
			if err != nil {
				return fmt.Errorf("load catalog: %w", err)
			}
			report.Pipeline.Cards = len(cat.Cards)
			report.Pipeline.CompletedPages = len(cat.CompletedPages)
			report.Pipeline.Editions = cat.EditionCount()
			for _, edition := range cat.Editions() {
				exists, err := fileutil.Exists(imagefetch.ImagePath(cfg.Paths.ImagesDir, edition.MultiverseID))
				if err != nil {
					return fmt.Errorf("check reference image: %w", err)
				}
				if exists {
					report.Pipeline.ImagesPresent++
				}
			}

			ix, err := fpindex.Load(cfg.Paths.IndexDir)
			switch {
			case err == nil:
				report.Pipeline.IndexBuilt = true
				report.Pipeline.IndexedReferences = ix.Len()
				report.Pipeline.SharedFingerprints = len(ix.Collisions())
			case !errors.Is(err, services.ErrEmptyIndex):
				return fmt.Errorf("load index: %w", err)
			}

			db, err := editiondb.Open(cfg)
			if err != nil {
				return fmt.Errorf("open edition database: %w", err)
			}
			defer db.Close()
			if report.Pipeline.EditionDBRows, err = db.Count(runCtx); err != nil {
				return err
			}
			collisions, err := db.Collisions(runCtx)
			if err != nil {
				return err
			}
			report.Pipeline.EditionCollisions = len(collisions)

			if ctx.jsonOutput() {
				return writeJSON(cmd, report)
			}
			renderStatusReport(cmd, report)
			return nil
		},
	}

	cmd.Flags().BoolVar(&offline, "offline", false, "Skip the Gatherer reachability checks")
	return cmd
}

func renderStatusReport(cmd *cobra.Command, report statusReport) {
	stdout := cmd.OutOrStdout()
	colorize := shouldColorize(stdout)

	for _, line := range renderSectionHeader("Checks", colorize) {
		fmt.Fprintln(stdout, line)
	}
	if report.ConfigPath != "" {
		fmt.Fprintln(stdout, renderStatusLine("Config", statusInfo, report.ConfigPath, colorize))
	}
	for _, r := range report.Checks {
		fmt.Fprintln(stdout, renderStatusLine(r.Name, resultKind(r), r.Detail, colorize))
	}

	fmt.Fprintln(stdout)
	for _, line := range renderSectionHeader("Pipeline", colorize) {
		fmt.Fprintln(stdout, line)
	}
	p := report.Pipeline
	catalogKind := statusOK
	if p.Cards == 0 {
		catalogKind = statusWarn
	}
	fmt.Fprintln(stdout, renderStatusLine("Catalog", catalogKind,
		fmt.Sprintf("%d cards, %d editions, %d pages complete", p.Cards, p.Editions, p.CompletedPages), colorize))
	fmt.Fprintln(stdout, renderStatusLine("Images", progressKind(p.ImagesPresent, p.Editions),
		fmt.Sprintf("%d of %d present", p.ImagesPresent, p.Editions), colorize))

	if p.IndexBuilt {
		fmt.Fprintln(stdout, renderStatusLine("Index", progressKind(p.IndexedReferences, p.Editions),
			fmt.Sprintf("%d references, %d shared fingerprints", p.IndexedReferences, p.SharedFingerprints), colorize))
	} else {
		fmt.Fprintln(stdout, renderStatusLine("Index", statusWarn, "not built", colorize))
	}

	dbKind := statusOK
	if p.EditionCollisions > 0 {
		dbKind = statusWarn
	}
	fmt.Fprintln(stdout, renderStatusLine("Edition database", dbKind,
		fmt.Sprintf("%d editions, %d id collisions", p.EditionDBRows, p.EditionCollisions), colorize))
}

func progressKind(done, total int) statusKind {
	if total > 0 && done >= total {
		return statusOK
	}
	return statusWarn
}
