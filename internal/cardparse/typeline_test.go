package cardparse_test

import (
	"slices"
	"testing"

	"magicscraper/internal/cardparse"
	"magicscraper/internal/catalog"
)

func TestParseTypeLine(t *testing.T) {
	tests := []struct {
		line       string
		supertypes []string
		typ        string
		subtypes   []string
		power      string
		toughness  string
		loyalty    string
	}{
		{line: "Instant", typ: "Instant"},
		{line: "Legendary Creature  — Human Wizard (2/3)", supertypes: []string{"Legendary"}, typ: "Creature", subtypes: []string{"Human", "Wizard"}, power: "2", toughness: "3"},
		{line: "Creature — Lhurgoyf\r\n  (*/1+*)", typ: "Creature", subtypes: []string{"Lhurgoyf"}, power: "*", toughness: "1+*"},
		{line: "Legendary Planeswalker  — Jace\n (3)", supertypes: []string{"Legendary"}, typ: "Planeswalker", subtypes: []string{"Jace"}, loyalty: "3"},
		{line: "Basic Snow Land — Forest", supertypes: []string{"Basic", "Snow"}, typ: "Land", subtypes: []string{"Forest"}},
		{line: "Artifact Creature — Golem (0/0)", supertypes: []string{"Artifact"}, typ: "Creature", subtypes: []string{"Golem"}, power: "0", toughness: "0"},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got := cardparse.ParseTypeLine(tt.line)
			types := got.Types
			if !slices.Equal(types.Supertypes, orEmpty(tt.supertypes)) {
				t.Fatalf("supertypes = %v, want %v", types.Supertypes, tt.supertypes)
			}
			if types.Type != tt.typ {
				t.Fatalf("type = %q, want %q", types.Type, tt.typ)
			}
			if !slices.Equal(types.Subtypes, orEmpty(tt.subtypes)) {
				t.Fatalf("subtypes = %v, want %v", types.Subtypes, tt.subtypes)
			}
			checkStat(t, "power", got.Stats.Power, tt.power)
			checkStat(t, "toughness", got.Stats.Toughness, tt.toughness)
			checkStat(t, "loyalty", got.Stats.Loyalty, tt.loyalty)
		})
	}
}

func TestTypeLineRoundTrip(t *testing.T) {
	cases := []catalog.Types{
		{Supertypes: []string{}, Type: "Sorcery", Subtypes: []string{}},
		{Supertypes: []string{"Legendary", "Snow"}, Type: "Creature", Subtypes: []string{"Elf", "Warrior"}},
		{Supertypes: []string{"Tribal"}, Type: "Instant", Subtypes: []string{"Goblin"}},
	}
	for _, types := range cases {
		card := catalog.Card{TypeData: catalog.TypeData{Types: types}}
		got := cardparse.ParseTypeLine(card.TypeLine()).Types
		if !slices.Equal(got.Supertypes, types.Supertypes) || got.Type != types.Type || !slices.Equal(got.Subtypes, types.Subtypes) {
			t.Fatalf("round trip of %q gave %#v, want %#v", card.TypeLine(), got, types)
		}
	}
}

func orEmpty(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}

func checkStat(t *testing.T, name string, got *string, want string) {
	t.Helper()
	if want == "" {
		if got != nil {
			t.Fatalf("%s = %q, want nil", name, *got)
		}
		return
	}
	if got == nil || *got != want {
		t.Fatalf("%s = %v, want %q", name, got, want)
	}
}
