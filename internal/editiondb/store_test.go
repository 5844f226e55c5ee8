package editiondb_test

import (
	"context"
	"database/sql"
	"errors"
	"slices"
	"testing"

	"magicscraper/internal/catalog"
	"magicscraper/internal/editiondb"
	"magicscraper/internal/testsupport"
)

func sampleCatalog() *catalog.Catalog {
	cat := catalog.New()
	cat.AddCard(catalog.Card{
		Name:     "Llanowar Elves",
		ManaCost: []string{"Green"},
		Editions: []catalog.Edition{
			{MultiverseID: 5, Set: "Limited Edition Alpha", Rarity: "Common"},
			{MultiverseID: 300, Set: "Limited Edition Beta", Rarity: "Common"},
		},
	})
	cat.AddCard(catalog.Card{
		Name:     "Shivan Dragon",
		ManaCost: []string{"4", "Red", "Red"},
		Editions: []catalog.Edition{
			{MultiverseID: 200, Set: "Limited Edition Alpha", Rarity: "Rare"},
			{MultiverseID: 300, Set: "Limited Edition Beta", Rarity: "Rare"},
		},
	})
	return cat
}

func TestRebuildAndLookup(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenEditionDB(t, cfg)
	ctx := context.Background()

	result, err := store.Rebuild(ctx, sampleCatalog())
	if err != nil {
		t.Fatalf("Rebuild returned error: %v", err)
	}
	if result.Cards != 2 || result.Editions != 3 {
		t.Fatalf("unexpected rebuild result: %+v", result)
	}

	entry, ok, err := store.Lookup(ctx, 200)
	if err != nil {
		t.Fatalf("Lookup returned error: %v", err)
	}
	if !ok || entry.CardName != "Shivan Dragon" || entry.Set != "Limited Edition Alpha" || entry.Rarity != "Rare" {
		t.Fatalf("unexpected entry: %+v (found=%v)", entry, ok)
	}

	if _, ok, err := store.Lookup(ctx, 999); err != nil || ok {
		t.Fatalf("expected missing id, got found=%v err=%v", ok, err)
	}

	count, err := store.Count(ctx)
	if err != nil {
		t.Fatalf("Count returned error: %v", err)
	}
	if count != 3 {
		t.Fatalf("expected 3 editions, got %d", count)
	}
}

func TestRebuildRecordsCollisions(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenEditionDB(t, cfg)
	ctx := context.Background()

	result, err := store.Rebuild(ctx, sampleCatalog())
	if err != nil {
		t.Fatalf("Rebuild returned error: %v", err)
	}
	want := editiondb.Collision{MultiverseID: 300, CardName: "Shivan Dragon", KeptCardName: "Llanowar Elves"}
	if len(result.Collisions) != 1 || result.Collisions[0] != want {
		t.Fatalf("unexpected collisions in result: %+v", result.Collisions)
	}

	stored, err := store.Collisions(ctx)
	if err != nil {
		t.Fatalf("Collisions returned error: %v", err)
	}
	if !slices.Equal(stored, []editiondb.Collision{want}) {
		t.Fatalf("unexpected stored collisions: %+v", stored)
	}

	entry, _, err := store.Lookup(ctx, 300)
	if err != nil {
		t.Fatalf("Lookup returned error: %v", err)
	}
	if entry.CardName != "Llanowar Elves" {
		t.Fatalf("expected first card to keep id 300, got %+v", entry)
	}
}

func TestRebuildReplacesPreviousRows(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenEditionDB(t, cfg)
	ctx := context.Background()

	if _, err := store.Rebuild(ctx, sampleCatalog()); err != nil {
		t.Fatalf("first Rebuild returned error: %v", err)
	}
	smaller := catalog.New()
	smaller.AddCard(catalog.Card{
		Name:     "Black Lotus",
		ManaCost: []string{"0"},
		Editions: []catalog.Edition{{MultiverseID: 3, Set: "Limited Edition Alpha", Rarity: "Rare"}},
	})
	if _, err := store.Rebuild(ctx, smaller); err != nil {
		t.Fatalf("second Rebuild returned error: %v", err)
	}

	count, err := store.Count(ctx)
	if err != nil {
		t.Fatalf("Count returned error: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected previous rows replaced, got %d editions", count)
	}
	collisions, err := store.Collisions(ctx)
	if err != nil {
		t.Fatalf("Collisions returned error: %v", err)
	}
	if len(collisions) != 0 {
		t.Fatalf("expected collisions cleared, got %+v", collisions)
	}
	if _, ok, err := store.LastRebuilt(ctx); err != nil || !ok {
		t.Fatalf("expected rebuild time recorded, got ok=%v err=%v", ok, err)
	}
}

func TestEditionsForCard(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenEditionDB(t, cfg)
	ctx := context.Background()

	if _, err := store.Rebuild(ctx, sampleCatalog()); err != nil {
		t.Fatalf("Rebuild returned error: %v", err)
	}
	entries, err := store.EditionsForCard(ctx, "Llanowar Elves")
	if err != nil {
		t.Fatalf("EditionsForCard returned error: %v", err)
	}
	if len(entries) != 2 || entries[0].MultiverseID != 5 || entries[1].MultiverseID != 300 {
		t.Fatalf("unexpected entries: %+v", entries)
	}
}

func TestReopenKeepsData(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	ctx := context.Background()

	first, err := editiondb.Open(cfg)
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	if _, err := first.Rebuild(ctx, sampleCatalog()); err != nil {
		t.Fatalf("Rebuild returned error: %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}

	second := testsupport.MustOpenEditionDB(t, cfg)
	if _, ok, err := second.LastRebuilt(ctx); err != nil || !ok {
		t.Fatalf("expected rebuild info after reopen, got ok=%v err=%v", ok, err)
	}
	if _, ok, _ := second.Lookup(ctx, 5); !ok {
		t.Fatal("expected edition 5 after reopen")
	}
}

func TestLastRebuiltBeforeRebuild(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenEditionDB(t, cfg)

	if _, ok, err := store.LastRebuilt(context.Background()); err != nil || ok {
		t.Fatalf("expected no rebuild recorded, got ok=%v err=%v", ok, err)
	}
}

func TestOpenRejectsSchemaMismatch(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store, err := editiondb.Open(cfg)
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	store.Close()

	db, err := sql.Open("sqlite", cfg.Paths.EditionDBPath)
	if err != nil {
		t.Fatalf("open raw db: %v", err)
	}
	if _, err := db.Exec("UPDATE schema_version SET version = 99"); err != nil {
		t.Fatalf("bump version: %v", err)
	}
	db.Close()

	if _, err := editiondb.Open(cfg); !errors.Is(err, editiondb.ErrSchemaMismatch) {
		t.Fatalf("expected ErrSchemaMismatch, got %v", err)
	}
}
