package identify_test

import (
	"errors"
	"image"
	"path/filepath"
	"slices"
	"testing"

	"magicscraper/internal/fpindex"
	"magicscraper/internal/identify"
	"magicscraper/internal/logging"
	"magicscraper/internal/phash"
	"magicscraper/internal/services"
	"magicscraper/internal/testsupport"
)

// referenceIndex fingerprints PatternImage(seed) under id seed*100.
func referenceIndex(t *testing.T, seeds ...uint64) *fpindex.Index {
	t.Helper()

	var fp phash.Perceptual
	ix := fpindex.NewIndex()
	for _, seed := range seeds {
		f, err := fp.Fingerprint(testsupport.PatternImage(seed))
		if err != nil {
			t.Fatalf("fingerprint seed %d: %v", seed, err)
		}
		ix.Add(int(seed)*100, f)
	}
	return ix
}

func TestIdentifyExactImage(t *testing.T) {
	engine := identify.New(referenceIndex(t, 1, 2, 3, 4), identify.WithLogger(logging.NewNop()))

	match, err := engine.Identify(testsupport.PatternImage(3))
	if err != nil {
		t.Fatalf("Identify returned error: %v", err)
	}
	if match.MultiverseID != 300 || match.Distance != 0 {
		t.Fatalf("expected id 300 at distance 0, got %+v", match)
	}
	if !match.Confident {
		t.Fatalf("expected exact match to be confident, got %+v", match)
	}
}

func TestIdentifyFileMatchesStoredReference(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "candidate.jpeg")
	testsupport.WriteJPEG(t, path, 9)

	ref, err := phash.FromFile(phash.Perceptual{}, path)
	if err != nil {
		t.Fatalf("fingerprint reference: %v", err)
	}
	ix := referenceIndex(t, 1, 2)
	ix.Add(900, ref)

	match, err := identify.New(ix).IdentifyFile(path)
	if err != nil {
		t.Fatalf("IdentifyFile returned error: %v", err)
	}
	if match.MultiverseID != 900 || match.Distance != 0 {
		t.Fatalf("expected id 900 at distance 0, got %+v", match)
	}
}

func TestIdentifyBrightenedVariant(t *testing.T) {
	engine := identify.New(referenceIndex(t, 1, 2, 3, 4, 5))

	candidate := testsupport.Brighten(testsupport.PatternImage(4), 8)
	match, err := engine.Identify(candidate)
	if err != nil {
		t.Fatalf("Identify returned error: %v", err)
	}
	if match.MultiverseID != 400 {
		t.Fatalf("expected brightened image to match id 400, got %+v", match)
	}
}

func TestIdentifyTieGoesToLowestID(t *testing.T) {
	ix := fpindex.NewIndex()
	ix.Add(30, 0x0f)
	ix.Add(10, 0xf0)
	ix.Add(20, 0xff)

	match, err := identify.New(ix).MatchFingerprint(0x00)
	if err != nil {
		t.Fatalf("MatchFingerprint returned error: %v", err)
	}
	if match.MultiverseID != 10 || match.Distance != 4 {
		t.Fatalf("expected id 10 at distance 4, got %+v", match)
	}
	if !slices.Equal(match.Ties, []int{30}) {
		t.Fatalf("expected id 30 as tie, got %v", match.Ties)
	}
}

func TestMatchConfidenceThreshold(t *testing.T) {
	ix := fpindex.NewIndex()
	ix.Add(1, 0xff)

	match, err := identify.New(ix, identify.WithMaxDistance(4)).MatchFingerprint(0)
	if err != nil {
		t.Fatalf("MatchFingerprint returned error: %v", err)
	}
	if match.Confident {
		t.Fatalf("expected distance 8 to exceed threshold 4, got %+v", match)
	}
}

func TestIdentifyEmptyIndex(t *testing.T) {
	_, err := identify.New(fpindex.NewIndex()).Identify(testsupport.PatternImage(1))
	if !errors.Is(err, services.ErrEmptyIndex) {
		t.Fatalf("expected ErrEmptyIndex, got %v", err)
	}
}

func TestNearestOrdersByDistance(t *testing.T) {
	engine := identify.New(referenceIndex(t, 1, 2, 3, 4, 5, 6))

	all, err := engine.Nearest(testsupport.PatternImage(2), 0)
	if err != nil {
		t.Fatalf("Nearest returned error: %v", err)
	}
	if len(all) != 6 {
		t.Fatalf("expected every reference, got %d", len(all))
	}
	if all[0].MultiverseID != 200 || all[0].Distance != 0 {
		t.Fatalf("expected exact reference first, got %+v", all[0])
	}
	for i := 1; i < len(all); i++ {
		if all[i].Distance < all[i-1].Distance {
			t.Fatalf("candidates out of order: %+v", all)
		}
	}

	top, err := engine.Nearest(testsupport.PatternImage(2), 2)
	if err != nil {
		t.Fatalf("Nearest returned error: %v", err)
	}
	if len(top) != 2 || top[0] != all[0] || top[1] != all[1] {
		t.Fatalf("expected top 2 prefix %v, got %v", all[:2], top)
	}
}

func TestDistanceDistribution(t *testing.T) {
	ix := fpindex.NewIndex()
	ix.Add(1, 0x00)
	ix.Add(2, 0x00)
	ix.Add(3, 0x01)
	ix.Add(4, 0x03)
	ix.Add(5, 0x02)

	got, err := identify.New(ix).DistanceDistribution(1)
	if err != nil {
		t.Fatalf("DistanceDistribution returned error: %v", err)
	}
	want := []identify.DistanceCount{{Distance: 0, Count: 2}, {Distance: 1, Count: 2}, {Distance: 2, Count: 1}}
	if !slices.Equal(got, want) {
		t.Fatalf("DistanceDistribution = %v, want %v", got, want)
	}
}

func TestDistanceDistributionUnknownID(t *testing.T) {
	ix := fpindex.NewIndex()
	ix.Add(1, 0)
	if _, err := identify.New(ix).DistanceDistribution(42); !errors.Is(err, services.ErrUnknownReference) {
		t.Fatalf("expected ErrUnknownReference, got %v", err)
	}
}

type countingFingerprinter struct {
	phash.Perceptual
	calls int
}

func (c *countingFingerprinter) Fingerprint(img image.Image) (phash.Fingerprint, error) {
	c.calls++
	return c.Perceptual.Fingerprint(img)
}

func TestRankFingerprintsOnce(t *testing.T) {
	counter := &countingFingerprinter{}
	engine := identify.New(referenceIndex(t, 1, 2, 3, 4), identify.WithFingerprinter(counter))

	match, top, err := engine.Rank(testsupport.PatternImage(4), 2)
	if err != nil {
		t.Fatalf("Rank returned error: %v", err)
	}
	if counter.calls != 1 {
		t.Fatalf("expected one fingerprint computation, got %d", counter.calls)
	}
	if match.MultiverseID != 400 || match.Distance != 0 {
		t.Fatalf("expected id 400 at distance 0, got %+v", match)
	}
	if len(top) != 2 || top[0].MultiverseID != match.MultiverseID {
		t.Fatalf("expected match to lead the top 2, got %+v", top)
	}

	want, err := engine.Identify(testsupport.PatternImage(4))
	if err != nil {
		t.Fatalf("Identify returned error: %v", err)
	}
	if want.MultiverseID != match.MultiverseID || !slices.Equal(want.Ties, match.Ties) {
		t.Fatalf("Rank match %+v differs from Identify %+v", match, want)
	}
}
