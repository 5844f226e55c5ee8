package fpindex_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"magicscraper/internal/catalog"
	"magicscraper/internal/fpindex"
	"magicscraper/internal/imagefetch"
	"magicscraper/internal/logging"
	"magicscraper/internal/phash"
	"magicscraper/internal/services"
	"magicscraper/internal/testsupport"
)

func catalogWith(ids ...int) *catalog.Catalog {
	cat := catalog.New()
	for i, id := range ids {
		cat.AddCard(catalog.Card{
			Name:     "Card " + string(rune('A'+i)),
			ManaCost: []string{},
			Editions: []catalog.Edition{{MultiverseID: id, Set: "Alpha", Rarity: "Common"}},
		})
	}
	return cat
}

func TestBuildFingerprintsEveryEdition(t *testing.T) {
	dir := t.TempDir()
	testsupport.WriteJPEG(t, imagefetch.ImagePath(dir, 1), 11)
	testsupport.WriteJPEG(t, imagefetch.ImagePath(dir, 2), 22)
	testsupport.WriteJPEG(t, imagefetch.ImagePath(dir, 3), 33)

	ix, err := fpindex.NewIndexer(phash.Perceptual{}, logging.NewNop()).
		Build(context.Background(), catalogWith(1, 2, 3), dir)
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}
	if ix.Len() != 3 {
		t.Fatalf("expected 3 references, got %d", ix.Len())
	}
	for _, id := range []int{1, 2, 3} {
		fp, ok := ix.Lookup(id)
		if !ok {
			t.Fatalf("id %d missing from index", id)
		}
		if !slices.Contains(ix.ByFingerprint[fp], id) {
			t.Fatalf("fingerprint %s does not list id %d", fp, id)
		}
	}
}

func TestBuildKeepsSharedFingerprints(t *testing.T) {
	dir := t.TempDir()
	testsupport.WriteJPEG(t, imagefetch.ImagePath(dir, 10), 5)
	testsupport.WriteJPEG(t, imagefetch.ImagePath(dir, 20), 5)

	ix, err := fpindex.NewIndexer(nil, logging.NewNop()).
		Build(context.Background(), catalogWith(20, 10), dir)
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}
	fp10, _ := ix.Lookup(10)
	fp20, _ := ix.Lookup(20)
	if fp10 != fp20 {
		t.Fatalf("identical images produced different fingerprints %s and %s", fp10, fp20)
	}
	if got := ix.ByFingerprint[fp10]; !slices.Equal(got, []int{10, 20}) {
		t.Fatalf("expected both ids under shared fingerprint, got %v", got)
	}
	if len(ix.Collisions()) != 1 {
		t.Fatalf("expected one collision, got %v", ix.Collisions())
	}
}

func TestBuildFailsOnMissingImage(t *testing.T) {
	dir := t.TempDir()
	testsupport.WriteJPEG(t, imagefetch.ImagePath(dir, 1), 1)

	_, err := fpindex.NewIndexer(nil, logging.NewNop()).
		Build(context.Background(), catalogWith(1, 2), dir)
	if !errors.Is(err, services.ErrMissingReference) {
		t.Fatalf("expected ErrMissingReference, got %v", err)
	}
	if !strings.Contains(err.Error(), imagefetch.ImagePath(dir, 2)) {
		t.Fatalf("expected error to name the missing path, got %v", err)
	}
}

func TestBuildFailsOnUndecodableImage(t *testing.T) {
	dir := t.TempDir()
	testsupport.WriteBytes(t, imagefetch.ImagePath(dir, 1), []byte("not an image"))

	if _, err := fpindex.NewIndexer(nil, logging.NewNop()).
		Build(context.Background(), catalogWith(1), dir); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestBuildHonorsCancellation(t *testing.T) {
	dir := t.TempDir()
	testsupport.WriteJPEG(t, imagefetch.ImagePath(dir, 1), 1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := fpindex.NewIndexer(nil, logging.NewNop()).Build(ctx, catalogWith(1), dir); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	ix := fpindex.NewIndex()
	ix.Add(3, 0xaa)
	ix.Add(1, 0xaa)
	ix.Add(2, 0xbb)

	dir := t.TempDir()
	if err := ix.Save(dir); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}
	raw, err := os.ReadFile(filepath.Join(dir, fpindex.FingerprintFile))
	if err != nil {
		t.Fatalf("read artifact: %v", err)
	}
	if !strings.Contains(string(raw), `"00000000000000aa"`) {
		t.Fatalf("expected 16-digit hex keys, got %s", raw)
	}

	loaded, err := fpindex.Load(dir)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if loaded.Len() != 3 {
		t.Fatalf("expected 3 ids, got %d", loaded.Len())
	}
	if got := loaded.ByFingerprint[0xaa]; !slices.Equal(got, []int{1, 3}) {
		t.Fatalf("unexpected ids for shared fingerprint: %v", got)
	}
	if fp, _ := loaded.Lookup(2); fp != 0xbb {
		t.Fatalf("unexpected fingerprint for id 2: %s", fp)
	}
}

func TestLoadMissingArtifacts(t *testing.T) {
	_, err := fpindex.Load(t.TempDir())
	if !errors.Is(err, services.ErrEmptyIndex) {
		t.Fatalf("expected ErrEmptyIndex, got %v", err)
	}
}

func TestLoadRejectsDisagreeingArtifacts(t *testing.T) {
	dir := t.TempDir()
	testsupport.WriteBytes(t, filepath.Join(dir, fpindex.FingerprintFile), []byte(`{"00000000000000aa": [1, 2]}`))
	testsupport.WriteBytes(t, filepath.Join(dir, fpindex.IDFile), []byte(`{"1": "00000000000000aa"}`))

	if _, err := fpindex.Load(dir); err == nil {
		t.Fatal("expected disagreement error")
	}
}

func TestAddMovesReassignedID(t *testing.T) {
	ix := fpindex.NewIndex()
	ix.Add(1, 0x1)
	ix.Add(1, 0x2)
	if _, ok := ix.ByFingerprint[0x1]; ok {
		t.Fatalf("expected stale fingerprint entry removed, got %v", ix.ByFingerprint)
	}
	if shared := ix.Add(2, 0x2); !slices.Equal(shared, []int{1}) {
		t.Fatalf("expected id 1 reported as sharing, got %v", shared)
	}
}

func TestVerify(t *testing.T) {
	dir := t.TempDir()
	testsupport.WriteJPEG(t, imagefetch.ImagePath(dir, 1), 11)
	testsupport.WriteJPEG(t, imagefetch.ImagePath(dir, 2), 22)
	ix, err := fpindex.NewIndexer(nil, logging.NewNop()).Build(context.Background(), catalogWith(1, 2), dir)
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}

	if err := fpindex.Verify(ix, catalogWith(1, 2), dir); err != nil {
		t.Fatalf("expected current index to verify, got %v", err)
	}

	t.Run("edition missing from index", func(t *testing.T) {
		testsupport.WriteJPEG(t, imagefetch.ImagePath(dir, 3), 33)
		err := fpindex.Verify(ix, catalogWith(1, 2, 3), dir)
		if !errors.Is(err, services.ErrMissingReference) {
			t.Fatalf("expected ErrMissingReference, got %v", err)
		}
		if !strings.Contains(err.Error(), "multiverse id 3 is not indexed") {
			t.Fatalf("expected unindexed id named, got %v", err)
		}
	})

	t.Run("reference image deleted", func(t *testing.T) {
		path := imagefetch.ImagePath(dir, 2)
		if err := os.Remove(path); err != nil {
			t.Fatalf("remove image: %v", err)
		}
		err := fpindex.Verify(ix, catalogWith(1, 2), dir)
		if !errors.Is(err, services.ErrMissingReference) {
			t.Fatalf("expected ErrMissingReference, got %v", err)
		}
		if !strings.Contains(err.Error(), path) {
			t.Fatalf("expected %s named, got %v", path, err)
		}
	})
}
