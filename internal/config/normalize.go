package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeSource()
	c.normalizeImages()
	c.normalizeIdentify()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	fields := []struct {
		key      string
		value    *string
		fallback string
	}{
		{"paths.catalog_path", &c.Paths.CatalogPath, defaultCatalogPath},
		{"paths.images_dir", &c.Paths.ImagesDir, defaultImagesDir},
		{"paths.index_dir", &c.Paths.IndexDir, defaultIndexDir},
		{"paths.edition_db_path", &c.Paths.EditionDBPath, defaultEditionDBPath},
	}
	for _, field := range fields {
		if strings.TrimSpace(*field.value) == "" {
			*field.value = field.fallback
		}
		expanded, err := expandPath(strings.TrimSpace(*field.value))
		if err != nil {
			return fmt.Errorf("%s: %w", field.key, err)
		}
		*field.value = expanded
	}

	// An empty log_dir keeps logging on the console only.
	var err error
	if c.Paths.LogDir, err = expandPath(strings.TrimSpace(c.Paths.LogDir)); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeSource() {
	c.Source.BaseURL = strings.TrimSpace(c.Source.BaseURL)
	if c.Source.BaseURL == "" {
		c.Source.BaseURL = defaultSourceBaseURL
	}
	c.Source.SearchQuery = strings.TrimPrefix(strings.TrimSpace(c.Source.SearchQuery), "?")
	c.Source.ImageURL = strings.TrimSpace(c.Source.ImageURL)
	if c.Source.ImageURL == "" {
		c.Source.ImageURL = defaultImageURL
	}
	c.Source.UserAgent = strings.TrimSpace(c.Source.UserAgent)
	if c.Source.UserAgent == "" {
		c.Source.UserAgent = defaultUserAgent
	}
}

func (c *Config) normalizeImages() {
	if c.Images.MaxSweepAttempts == 0 {
		c.Images.MaxSweepAttempts = defaultMaxSweepAttempts
	}
}

func (c *Config) normalizeIdentify() {
	if c.Identify.Top == 0 {
		c.Identify.Top = defaultIdentifyTop
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
