package catalog

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-json"
	"github.com/gofrs/flock"

	"magicscraper/internal/fileutil"
)

// ErrLocked is returned by Store.Lock when another process holds the catalog.
var ErrLocked = errors.New("catalog is locked by another process")

// Store persists a Catalog as a single JSON document.
type Store struct {
	path string
}

// NewStore returns a store backed by the file at path.
func NewStore(path string) *Store {
	return &Store{path: strings.TrimSpace(path)}
}

// Path returns the catalog file location.
func (s *Store) Path() string {
	return s.path
}

// Load reads the catalog from disk. A missing file yields an empty catalog.
func (s *Store) Load() (*Catalog, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return New(), nil
		}
		return nil, fmt.Errorf("read catalog file: %w", err)
	}

	var cat Catalog
	if err := json.Unmarshal(data, &cat); err != nil {
		return nil, fmt.Errorf("parse catalog file: %w", err)
	}
	cat.reindex()
	return &cat, nil
}

// Save rewrites the whole catalog. Readers observe either the previous or the
// new snapshot, never a partial write.
func (s *Store) Save(cat *Catalog) error {
	if cat == nil {
		return errors.New("nil catalog")
	}
	cat.ensureIndex()
	cat.sortPages()

	data, err := json.MarshalIndent(cat, "", "    ")
	if err != nil {
		return fmt.Errorf("encode catalog: %w", err)
	}
	if err := fileutil.WriteFileAtomic(s.path, data, 0o644); err != nil {
		return fmt.Errorf("write catalog file: %w", err)
	}
	return nil
}

// Update loads the catalog, passes it to fn and saves it afterwards whether fn
// succeeds, fails or panics. A panic is re-raised after the save.
func (s *Store) Update(fn func(*Catalog) error) (err error) {
	cat, err := s.Load()
	if err != nil {
		return err
	}

	defer func() {
		recovered := recover()
		if saveErr := s.Save(cat); saveErr != nil {
			err = errors.Join(err, saveErr)
		}
		if recovered != nil {
			panic(recovered)
		}
	}()

	return fn(cat)
}

// Lock takes an exclusive advisory lock on <path>.lock so two builds cannot
// rewrite the same catalog. The returned func releases it.
func (s *Store) Lock() (func(), error) {
	lock := flock.New(s.path + ".lock")
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return nil, fmt.Errorf("create catalog directory: %w", err)
	}
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire catalog lock: %w", err)
	}
	if !locked {
		return nil, ErrLocked
	}
	return func() {
		_ = lock.Unlock()
	}, nil
}
