package cardparse

import (
	"regexp"
	"strings"

	"magicscraper/internal/catalog"
	"magicscraper/internal/textutil"
)

const typeDash = "—"

// statsPattern matches the trailing "(power/toughness)" or "(loyalty)" group.
var statsPattern = regexp.MustCompile(`\(([^()]*)\)\s*$`)

// ParseTypeLine splits a listing type line such as
// "Legendary Creature  — Elf Druid (2/3)" into types and stats.
func ParseTypeLine(line string) catalog.TypeData {
	line = textutil.CollapseSpace(textutil.NFC(line))

	var stats catalog.Stats
	if loc := statsPattern.FindStringSubmatchIndex(line); loc != nil {
		inner := strings.TrimSpace(line[loc[2]:loc[3]])
		line = strings.TrimSpace(line[:loc[0]])
		stats = parseStats(inner)
	}

	head, tail, hasDash := strings.Cut(line, typeDash)
	types := catalog.Types{Supertypes: []string{}, Subtypes: []string{}}
	if words := strings.Fields(head); len(words) > 0 {
		types.Type = words[len(words)-1]
		types.Supertypes = append(types.Supertypes, words[:len(words)-1]...)
	}
	if hasDash {
		types.Subtypes = append(types.Subtypes, strings.Fields(tail)...)
	}

	return catalog.TypeData{Types: types, Stats: stats}
}

func parseStats(inner string) catalog.Stats {
	if inner == "" {
		return catalog.Stats{}
	}
	power, toughness, ok := strings.Cut(inner, "/")
	if !ok {
		return catalog.Stats{Loyalty: &inner}
	}
	power = strings.TrimSpace(power)
	toughness = strings.TrimSpace(toughness)
	return catalog.Stats{Power: &power, Toughness: &toughness}
}
