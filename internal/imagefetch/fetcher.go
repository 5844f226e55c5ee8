package imagefetch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"

	"magicscraper/internal/catalog"
	"magicscraper/internal/fileutil"
	"magicscraper/internal/logging"
	"magicscraper/internal/services"
)

// ImageSource downloads the card face image for a multiverse id.
type ImageSource interface {
	FetchImage(ctx context.Context, multiverseID int) ([]byte, error)
}

// Report summarizes an image sweep.
type Report struct {
	Editions   int `json:"editions"`
	Attempts   int `json:"attempts"`
	Downloaded int `json:"downloaded"`
	// Skipped counts images already present during the final sweep.
	Skipped   int    `json:"skipped"`
	Abandoned bool   `json:"abandoned"`
	LastError string `json:"last_error,omitempty"`
}

// Fetcher keeps one reference image per edition on disk.
type Fetcher struct {
	source ImageSource
	policy RetryPolicy
	logger *slog.Logger
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithRetryPolicy replaces the sweep retry policy.
func WithRetryPolicy(policy RetryPolicy) Option {
	return func(f *Fetcher) {
		f.policy = policy
	}
}

// New creates a fetcher that downloads from source.
func New(source ImageSource, logger *slog.Logger, opts ...Option) *Fetcher {
	f := &Fetcher{
		source: source,
		policy: RetryPolicy{MaxAttempts: DefaultMaxAttempts},
		logger: logging.NewComponentLogger(logger, "imagefetch"),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// ImagePath returns the reference image location for a multiverse id.
func ImagePath(dir string, multiverseID int) string {
	return filepath.Join(dir, strconv.Itoa(multiverseID)+".jpeg")
}

// FetchOne downloads the image for multiverseID into dir unless it already
// exists there, in which case no request is made. It reports whether a
// download happened.
func (f *Fetcher) FetchOne(ctx context.Context, multiverseID int, dir string) (bool, error) {
	path := ImagePath(dir, multiverseID)
	exists, err := fileutil.Exists(path)
	if err != nil {
		return false, fmt.Errorf("stat %s: %w", path, err)
	}
	if exists {
		f.logger.Debug("image already present",
			logging.Int(logging.FieldMultiverseID, multiverseID))
		return false, nil
	}

	data, err := f.source.FetchImage(ctx, multiverseID)
	if err != nil {
		return false, err
	}
	if err := fileutil.WriteFileAtomic(path, data, 0o644); err != nil {
		return false, services.Wrap(services.ErrImageFetch, "imagefetch", "write image", path, err)
	}
	f.logger.Debug("image downloaded",
		logging.Int(logging.FieldMultiverseID, multiverseID),
		logging.Int("bytes", len(data)))
	return true, nil
}

// FetchAll sweeps every edition of every card. Any failure restarts the whole
// sweep under the retry policy; images fetched earlier are skipped on the next
// pass. Exhausting the policy is logged and reported, not returned as an
// error. Context cancellation is returned.
func (f *Fetcher) FetchAll(ctx context.Context, cat *catalog.Catalog, dir string) (Report, error) {
	logger := logging.WithContext(ctx, f.logger)
	editions := cat.Editions()
	report := Report{Editions: len(editions)}

	policy := f.policy
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = DefaultMaxAttempts
	}
	onFailure := policy.OnFailure
	policy.OnFailure = func(attempt int, err error) {
		logger.Info("image sweep failed, restarting",
			logging.Int("attempt", attempt),
			logging.Int("max_attempts", policy.MaxAttempts),
			logging.Error(err))
		if onFailure != nil {
			onFailure(attempt, err)
		}
	}

	attempts, err := policy.Do(ctx, func(ctx context.Context) error {
		report.Skipped = 0
		for _, edition := range editions {
			if err := ctx.Err(); err != nil {
				return err
			}
			downloaded, err := f.FetchOne(ctx, edition.MultiverseID, dir)
			if err != nil {
				return fmt.Errorf("multiverse id %d: %w", edition.MultiverseID, err)
			}
			if downloaded {
				report.Downloaded++
			} else {
				report.Skipped++
			}
		}
		return nil
	})
	report.Attempts = attempts

	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			return report, err
		}
		report.Abandoned = true
		report.LastError = err.Error()
		logging.WarnWithContext(logger, "image sweep abandoned", "image_sweep_abandoned",
			logging.Int("attempts", attempts),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "rerun the image sweep; images already on disk are kept"),
			logging.String(logging.FieldImpact, "some editions have no reference image"))
		return report, nil
	}

	logger.Info("image sweep complete",
		logging.Int("editions", report.Editions),
		logging.Int("downloaded", report.Downloaded),
		logging.Int("skipped", report.Skipped),
		logging.Int("attempts", attempts))
	return report, nil
}
