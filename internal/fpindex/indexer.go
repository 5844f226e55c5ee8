package fpindex

import (
	"context"
	"fmt"
	"log/slog"

	"magicscraper/internal/catalog"
	"magicscraper/internal/fileutil"
	"magicscraper/internal/imagefetch"
	"magicscraper/internal/logging"
	"magicscraper/internal/phash"
	"magicscraper/internal/services"
)

const progressEvery = 1000

// Indexer fingerprints every reference image of a catalog.
type Indexer struct {
	fingerprinter phash.Fingerprinter
	logger        *slog.Logger
}

// NewIndexer creates an indexer using fp for every reference image.
func NewIndexer(fp phash.Fingerprinter, logger *slog.Logger) *Indexer {
	if fp == nil {
		fp = phash.Perceptual{}
	}
	return &Indexer{
		fingerprinter: fp,
		logger:        logging.NewComponentLogger(logger, "fpindex"),
	}
}

// Build fingerprints <imagesDir>/<id>.jpeg for every edition in cat. A missing
// image fails with services.ErrMissingReference naming the path. Shared
// fingerprints are kept and logged.
func (x *Indexer) Build(ctx context.Context, cat *catalog.Catalog, imagesDir string) (*Index, error) {
	logger := logging.WithContext(ctx, x.logger)
	editions := cat.Editions()
	ix := NewIndex()

	for i, edition := range editions {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		id := edition.MultiverseID
		if _, seen := ix.ByID[id]; seen {
			continue
		}

		path := imagefetch.ImagePath(imagesDir, id)
		exists, err := fileutil.Exists(path)
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", path, err)
		}
		if !exists {
			return nil, services.Wrap(services.ErrMissingReference, "fpindex", "build", path, nil)
		}

		fp, err := phash.FromFile(x.fingerprinter, path)
		if err != nil {
			return nil, fmt.Errorf("fingerprint multiverse id %d: %w", id, err)
		}
		if shared := ix.Add(id, fp); len(shared) > 0 {
			logger.Info("fingerprint shared by several editions",
				logging.Int(logging.FieldMultiverseID, id),
				logging.String(logging.FieldFingerprint, fp.String()),
				logging.Any("shared_with", shared),
				logging.String(logging.FieldEventType, "fingerprint_collision"))
		}

		if (i+1)%progressEvery == 0 {
			logger.Info("fingerprinting progress",
				logging.Int("done", i+1),
				logging.Int("total", len(editions)))
		}
	}

	logger.Info("fingerprint index built",
		logging.Int("references", ix.Len()),
		logging.Int("fingerprints", len(ix.ByFingerprint)))
	return ix, nil
}

// Verify checks that ix still describes the reference set on disk: every
// edition of cat must be indexed and every indexed id must have its image in
// imagesDir. The first gap fails with services.ErrMissingReference naming the
// image path.
func Verify(ix *Index, cat *catalog.Catalog, imagesDir string) error {
	for _, edition := range cat.Editions() {
		id := edition.MultiverseID
		path := imagefetch.ImagePath(imagesDir, id)
		if _, ok := ix.Lookup(id); !ok {
			return services.Wrap(services.ErrMissingReference, "fpindex", "verify",
				fmt.Sprintf("multiverse id %d is not indexed (%s)", id, path), nil)
		}
	}
	for _, id := range ix.IDs() {
		path := imagefetch.ImagePath(imagesDir, id)
		exists, err := fileutil.Exists(path)
		if err != nil {
			return fmt.Errorf("stat %s: %w", path, err)
		}
		if !exists {
			return services.Wrap(services.ErrMissingReference, "fpindex", "verify", path, nil)
		}
	}
	return nil
}
