package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"magicscraper/internal/catalog"
	"magicscraper/internal/config"
	"magicscraper/internal/editiondb"
	"magicscraper/internal/fpindex"
	"magicscraper/internal/services"
)

type shownEdition struct {
	catalog.Edition
	Fingerprint string `json:"fingerprint,omitempty"`
}

type shownCard struct {
	Name              string         `json:"name"`
	ManaCost          []string       `json:"mana_cost"`
	ConvertedManaCost float64        `json:"converted_mana_cost"`
	TypeLine          string         `json:"type_line"`
	Stats             string         `json:"stats,omitempty"`
	RulesText         string         `json:"rules_text"`
	Editions          []shownEdition `json:"editions"`
}

func newShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <name|multiverse-id>",
		Short: "Show a catalog card by name or multiverse id",
		Long: `Print a card record from the catalog. A numeric argument is treated as a
multiverse id and resolved to its card first. Editions list their stored
fingerprint when the index has been built.

Examples:
  magicscraper show "Shivan Dragon"
  magicscraper show 600`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load configuration: %w", err)
			}
			runCtx := runContext(cmd, "show")

			cat, err := catalog.NewStore(cfg.Paths.CatalogPath).Load()
			if err != nil {
				return fmt.Errorf("load catalog: %w", err)
			}
			query := strings.TrimSpace(strings.Join(args, " "))
			name, err := resolveCardName(runCtx, cfg, cat, query)
			if err != nil {
				return err
			}
			card, ok := cat.CardByName(name)
			if !ok {
				return fmt.Errorf("card %q not found in catalog", name)
			}

			shown := describeCard(card, loadIndexIfPresent(cmd, cfg))
			if ctx.jsonOutput() {
				return writeJSON(cmd, shown)
			}
			renderCard(cmd, shown)
			return nil
		},
	}
}

// resolveCardName maps a multiverse id to its card name. Non-numeric queries
// are returned unchanged.
func resolveCardName(ctx context.Context, cfg *config.Config, cat *catalog.Catalog, query string) (string, error) {
	id, err := strconv.Atoi(query)
	if err != nil {
		return query, nil
	}

	db, err := editiondb.Open(cfg)
	if err != nil {
		return "", fmt.Errorf("open edition database: %w", err)
	}
	defer db.Close()

	entry, found, err := db.Lookup(ctx, id)
	if err != nil {
		return "", err
	}
	if found {
		return entry.CardName, nil
	}
	// The database may predate the last build; fall back to the catalog.
	for _, card := range cat.Cards {
		for _, edition := range card.Editions {
			if edition.MultiverseID == id {
				return card.Name, nil
			}
		}
	}
	return "", fmt.Errorf("multiverse id %d not found in catalog", id)
}

func loadIndexIfPresent(cmd *cobra.Command, cfg *config.Config) *fpindex.Index {
	ix, err := fpindex.Load(cfg.Paths.IndexDir)
	if err != nil {
		if !errors.Is(err, services.ErrEmptyIndex) {
			fmt.Fprintf(cmd.ErrOrStderr(), "warning: fingerprint index unreadable: %v\n", err)
		}
		return nil
	}
	return ix
}

func describeCard(card catalog.Card, ix *fpindex.Index) shownCard {
	shown := shownCard{
		Name:              card.Name,
		ManaCost:          card.ManaCost,
		ConvertedManaCost: card.ConvertedManaCost,
		TypeLine:          card.TypeLine(),
		Stats:             card.StatsLine(),
		RulesText:         card.RulesText,
		Editions:          make([]shownEdition, 0, len(card.Editions)),
	}
	for _, edition := range card.Editions {
		entry := shownEdition{Edition: edition}
		if fp, ok := ix.Lookup(edition.MultiverseID); ok {
			entry.Fingerprint = fp.String()
		}
		shown.Editions = append(shown.Editions, entry)
	}
	return shown
}

func renderCard(cmd *cobra.Command, card shownCard) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s  %s\n", card.Name, formatManaCost(card.ManaCost))
	fmt.Fprintf(out, "%s\n", card.TypeLine)
	if card.Stats != "" {
		fmt.Fprintf(out, "%s\n", card.Stats)
	}
	fmt.Fprintf(out, "Converted mana cost: %s\n", strconv.FormatFloat(card.ConvertedManaCost, 'f', -1, 64))
	if card.RulesText != "" {
		fmt.Fprintf(out, "\n%s\n", card.RulesText)
	}
	fmt.Fprintln(out)

	rows := make([][]string, 0, len(card.Editions))
	for _, edition := range card.Editions {
		rows = append(rows, []string{
			strconv.Itoa(edition.MultiverseID),
			edition.Set,
			edition.Rarity,
			edition.Fingerprint,
		})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"Multiverse ID", "Set", "Rarity", "Fingerprint"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft},
	))
}

func formatManaCost(symbols []string) string {
	if len(symbols) == 0 {
		return ""
	}
	parts := make([]string, 0, len(symbols))
	for _, s := range symbols {
		parts = append(parts, "{"+s+"}")
	}
	return strings.Join(parts, "")
}
