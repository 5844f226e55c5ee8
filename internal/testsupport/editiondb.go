package testsupport

import (
	"testing"

	"magicscraper/internal/config"
	"magicscraper/internal/editiondb"
)

// MustOpenEditionDB opens an editiondb.Store for tests and registers cleanup.
func MustOpenEditionDB(t testing.TB, cfg *config.Config) *editiondb.Store {
	t.Helper()

	store, err := editiondb.Open(cfg)
	if err != nil {
		t.Fatalf("editiondb.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}
