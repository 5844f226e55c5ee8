package testsupport

import (
	"path/filepath"
	"testing"

	"magicscraper/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.CatalogPath = filepath.Join(base, "state", "cards.json")
	cfgVal.Paths.ImagesDir = filepath.Join(base, "card_images")
	cfgVal.Paths.IndexDir = filepath.Join(base, "index")
	cfgVal.Paths.EditionDBPath = filepath.Join(base, "state", "editions.db")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Source.BaseURL = "http://127.0.0.1:0/Pages/Search/Default.aspx"
	cfgVal.Source.ImageURL = "http://127.0.0.1:0/Handlers/Image.ashx"

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithGatherer points the source endpoints at a fake Gatherer server.
func WithGatherer(fake *GathererFake) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Source.BaseURL = fake.ListingURL()
		b.cfg.Source.ImageURL = fake.ImageURL()
	}
}

// WithSweepAttempts overrides the image sweep retry budget.
func WithSweepAttempts(n int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Images.MaxSweepAttempts = n
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.ImagesDir)
}
