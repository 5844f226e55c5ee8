package fpindex

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strconv"

	"github.com/goccy/go-json"

	"magicscraper/internal/fileutil"
	"magicscraper/internal/phash"
	"magicscraper/internal/services"
)

const (
	// FingerprintFile maps each fingerprint to the sorted ids sharing it.
	FingerprintFile = "phash_to_ids.json"
	// IDFile maps each multiverse id to its fingerprint.
	IDFile = "id_to_phash.json"
)

// Index maps reference fingerprints to multiverse ids in both directions.
// Distinct ids may share a fingerprint.
type Index struct {
	ByFingerprint map[phash.Fingerprint][]int
	ByID          map[int]phash.Fingerprint
}

// NewIndex returns an empty index.
func NewIndex() *Index {
	return &Index{
		ByFingerprint: make(map[phash.Fingerprint][]int),
		ByID:          make(map[int]phash.Fingerprint),
	}
}

// Add records id under fp and returns the other ids already sharing fp.
// Re-adding an id replaces its previous fingerprint.
func (ix *Index) Add(id int, fp phash.Fingerprint) []int {
	if previous, ok := ix.ByID[id]; ok {
		if previous == fp {
			return others(ix.ByFingerprint[fp], id)
		}
		ix.remove(id, previous)
	}
	ix.ByID[id] = fp
	ids := ix.ByFingerprint[fp]
	pos, _ := slices.BinarySearch(ids, id)
	ix.ByFingerprint[fp] = slices.Insert(ids, pos, id)
	return others(ix.ByFingerprint[fp], id)
}

func (ix *Index) remove(id int, fp phash.Fingerprint) {
	ids := slices.DeleteFunc(ix.ByFingerprint[fp], func(v int) bool { return v == id })
	if len(ids) == 0 {
		delete(ix.ByFingerprint, fp)
		return
	}
	ix.ByFingerprint[fp] = ids
}

func others(ids []int, id int) []int {
	var out []int
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

// Len returns the number of indexed ids.
func (ix *Index) Len() int {
	if ix == nil {
		return 0
	}
	return len(ix.ByID)
}

// IDs returns every indexed id in ascending order.
func (ix *Index) IDs() []int {
	ids := make([]int, 0, len(ix.ByID))
	for id := range ix.ByID {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// Lookup returns the stored fingerprint of id.
func (ix *Index) Lookup(id int) (phash.Fingerprint, bool) {
	if ix == nil {
		return 0, false
	}
	fp, ok := ix.ByID[id]
	return fp, ok
}

// Collisions returns every fingerprint shared by more than one id.
func (ix *Index) Collisions() map[phash.Fingerprint][]int {
	out := make(map[phash.Fingerprint][]int)
	for fp, ids := range ix.ByFingerprint {
		if len(ids) > 1 {
			out[fp] = append([]int(nil), ids...)
		}
	}
	return out
}

// Save writes both artifacts into dir.
func (ix *Index) Save(dir string) error {
	byFingerprint := make(map[string][]int, len(ix.ByFingerprint))
	for fp, ids := range ix.ByFingerprint {
		sorted := append([]int(nil), ids...)
		sort.Ints(sorted)
		byFingerprint[fp.String()] = sorted
	}
	byID := make(map[string]string, len(ix.ByID))
	for id, fp := range ix.ByID {
		byID[strconv.Itoa(id)] = fp.String()
	}

	if err := writeJSON(filepath.Join(dir, FingerprintFile), byFingerprint); err != nil {
		return err
	}
	return writeJSON(filepath.Join(dir, IDFile), byID)
}

// Load reads the artifacts written by Save. Missing artifacts fail with
// services.ErrEmptyIndex.
func Load(dir string) (*Index, error) {
	var byFingerprint map[string][]int
	if err := readJSON(filepath.Join(dir, FingerprintFile), &byFingerprint); err != nil {
		return nil, err
	}
	var byID map[string]string
	if err := readJSON(filepath.Join(dir, IDFile), &byID); err != nil {
		return nil, err
	}

	ix := NewIndex()
	for rawID, hex := range byID {
		id, err := strconv.Atoi(rawID)
		if err != nil {
			return nil, fmt.Errorf("%s: invalid multiverse id %q: %w", IDFile, rawID, err)
		}
		fp, err := phash.ParseFingerprint(hex)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", IDFile, err)
		}
		ix.Add(id, fp)
	}

	for hex, ids := range byFingerprint {
		fp, err := phash.ParseFingerprint(hex)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", FingerprintFile, err)
		}
		stored := append([]int(nil), ids...)
		sort.Ints(stored)
		if !slices.Equal(stored, ix.ByFingerprint[fp]) {
			return nil, fmt.Errorf("%s and %s disagree on fingerprint %s", FingerprintFile, IDFile, hex)
		}
	}
	if len(byFingerprint) != len(ix.ByFingerprint) {
		return nil, fmt.Errorf("%s and %s disagree on fingerprint count", FingerprintFile, IDFile)
	}
	return ix, nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}
	if err := fileutil.WriteFileAtomic(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return nil
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return services.Wrap(services.ErrEmptyIndex, "fpindex", "load", path+" not found", err)
		}
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}
