package main

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"magicscraper/internal/catalog"
	"magicscraper/internal/config"
	"magicscraper/internal/editiondb"
	"magicscraper/internal/fpindex"
	"magicscraper/internal/identify"
	"magicscraper/internal/logging"
	"magicscraper/internal/phash"
)

type rankedEdition struct {
	MultiverseID int    `json:"multiverse_id"`
	Distance     int    `json:"distance"`
	Card         string `json:"card,omitempty"`
	Set          string `json:"set,omitempty"`
	Rarity       string `json:"rarity,omitempty"`
}

type identifyResult struct {
	Image      string          `json:"image"`
	Match      identify.Match  `json:"match"`
	Card       string          `json:"card,omitempty"`
	Set        string          `json:"set,omitempty"`
	Rarity     string          `json:"rarity,omitempty"`
	Candidates []rankedEdition `json:"candidates"`
}

func newIdentifyCommand(ctx *commandContext) *cobra.Command {
	var top int

	cmd := &cobra.Command{
		Use:   "identify <image>",
		Short: "Identify the card edition shown in a photo",
		Long: `Fingerprint the given JPEG or PNG image and report the nearest reference
edition in the index, followed by the next closest candidates.

Examples:
  magicscraper identify photo.jpg
  magicscraper identify photo.jpg --top 10
  magicscraper identify photo.jpg --json`,
		Args: cobra.ExactArgs(1),
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
			runCtx := runContext(cmd, "identify")
			if top <= 0 {
				top = cfg.Identify.Top
			}

			engine, err := loadEngine(cfg, logger)
			if err != nil {
				return err
			}
			path := strings.TrimSpace(args[0])
			img, err := phash.DecodeFile(path)
			if err != nil {
				return fmt.Errorf("read candidate image: %w", err)
			}
			match, nearest, err := engine.Rank(img, top)
			if err != nil {
				return describeError(err)
			}

			db, err := editiondb.Open(cfg)
			if err != nil {
				return fmt.Errorf("open edition database: %w", err)
			}
			defer db.Close()

			result := identifyResult{Image: path, Match: match, Candidates: make([]rankedEdition, 0, len(nearest))}
			if entry, ok := lookupEdition(runCtx, db, logger, match.MultiverseID); ok {
				result.Card, result.Set, result.Rarity = entry.CardName, entry.Set, entry.Rarity
			}
			for _, c := range nearest {
				ranked := rankedEdition{MultiverseID: c.MultiverseID, Distance: c.Distance}
				if entry, ok := lookupEdition(runCtx, db, logger, c.MultiverseID); ok {
					ranked.Card, ranked.Set, ranked.Rarity = entry.CardName, entry.Set, entry.Rarity
				}
				result.Candidates = append(result.Candidates, ranked)
			}

			logging.WithContext(runCtx, logger).Info("candidate identified",
				logging.String("image", path),
				logging.Int(logging.FieldMultiverseID, match.MultiverseID),
				logging.Int("distance", match.Distance),
				logging.Bool("confident", match.Confident))

			if ctx.jsonOutput() {
				return writeJSON(cmd, result)
			}
			renderIdentifyResult(cmd, result, cfg.Identify.MaxDistance)
			return nil
		},
	}

	cmd.Flags().IntVarP(&top, "top", "n", 0, "Number of nearest candidates to list (default identify.top)")
	return cmd
}

// loadEngine loads the fingerprint index and refuses to match when it no
// longer covers the catalog or a reference image has gone missing.
func loadEngine(cfg *config.Config, logger *slog.Logger) (*identify.Engine, error) {
	ix, err := fpindex.Load(cfg.Paths.IndexDir)
	if err != nil {
		return nil, describeError(err)
	}
	cat, err := catalog.NewStore(cfg.Paths.CatalogPath).Load()
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	if err := fpindex.Verify(ix, cat, cfg.Paths.ImagesDir); err != nil {
		return nil, describeError(err)
	}
	return identify.New(ix,
		identify.WithMaxDistance(cfg.Identify.MaxDistance),
		identify.WithLogger(logger),
	), nil
}

// lookupEdition resolves an id to its card. The edition database is optional
// for identification, so lookup failures are logged and skipped.
func lookupEdition(ctx context.Context, db *editiondb.Store, logger *slog.Logger, id int) (editiondb.Entry, bool) {
	entry, ok, err := db.Lookup(ctx, id)
	if err != nil {
		logging.WithContext(ctx, logger).Debug("edition lookup failed",
			logging.Int(logging.FieldMultiverseID, id),
			logging.Error(err))
		return editiondb.Entry{}, false
	}
	return entry, ok
}

func renderIdentifyResult(cmd *cobra.Command, result identifyResult, maxDistance int) {
	out := cmd.OutOrStdout()
	name := result.Card
	if name == "" {
		name = "(unknown card)"
	}
	fmt.Fprintf(out, "Best match: %s, multiverse id %d, distance %d\n", name, result.Match.MultiverseID, result.Match.Distance)
	if result.Set != "" {
		fmt.Fprintf(out, "Edition:    %s (%s)\n", result.Set, result.Rarity)
	}
	if !result.Match.Confident {
		fmt.Fprintf(out, "Warning: distance exceeds identify.max_distance (%d); the match may be wrong\n", maxDistance)
	}
	if len(result.Match.Ties) > 0 {
		ties := make([]string, 0, len(result.Match.Ties))
		for _, id := range result.Match.Ties {
			ties = append(ties, strconv.Itoa(id))
		}
		fmt.Fprintf(out, "Tied with:  %s\n", strings.Join(ties, ", "))
	}

	rows := make([][]string, 0, len(result.Candidates))
	for i, c := range result.Candidates {
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			strconv.Itoa(c.MultiverseID),
			strconv.Itoa(c.Distance),
			c.Card,
			c.Set,
		})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"#", "Multiverse ID", "Distance", "Card", "Set"},
		rows,
		[]columnAlignment{alignRight, alignRight, alignRight, alignLeft, alignLeft},
	))
}
