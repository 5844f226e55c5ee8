package catalog

import "strings"

// Edition is one physical printing of a card.
type Edition struct {
	MultiverseID int    `json:"multiverse_id"`
	Set          string `json:"set"`
	Rarity       string `json:"rarity"`
}

// Types holds the classification parsed from a card's type line.
type Types struct {
	Supertypes []string `json:"supertypes"`
	Type       string   `json:"type"`
	Subtypes   []string `json:"subtypes"`
}

// Stats holds the optional combat and loyalty values. Nil fields are absent on
// the card and serialize as null.
type Stats struct {
	Power     *string `json:"power"`
	Toughness *string `json:"toughness"`
	Loyalty   *string `json:"loyalty"`
}

// TypeData groups a card's types and stats.
type TypeData struct {
	Types Types `json:"types"`
	Stats Stats `json:"stats"`
}

// Card is the catalog record for one card name. Name is the deduplication key.
type Card struct {
	Name              string    `json:"name"`
	ManaCost          []string  `json:"mana_cost"`
	ConvertedManaCost float64   `json:"converted_mana_cost"`
	TypeData          TypeData  `json:"type_data"`
	RulesText         string    `json:"rules_text"`
	Editions          []Edition `json:"editions"`
}

// TypeLine renders the card's types back into the listing's
// "Supertypes Type — Subtypes" form.
func (c Card) TypeLine() string {
	head := append(append([]string{}, c.TypeData.Types.Supertypes...), c.TypeData.Types.Type)
	line := strings.Join(head, " ")
	if len(c.TypeData.Types.Subtypes) > 0 {
		line += " — " + strings.Join(c.TypeData.Types.Subtypes, " ")
	}
	return strings.TrimSpace(line)
}

// StatsLine renders "power/toughness" or the loyalty value, or "" when the
// card has neither.
func (c Card) StatsLine() string {
	stats := c.TypeData.Stats
	switch {
	case stats.Power != nil || stats.Toughness != nil:
		return deref(stats.Power) + "/" + deref(stats.Toughness)
	case stats.Loyalty != nil:
		return *stats.Loyalty
	default:
		return ""
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
