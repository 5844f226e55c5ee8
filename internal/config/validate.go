package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateSource(); err != nil {
		return err
	}
	if err := c.validateImages(); err != nil {
		return err
	}
	if err := c.validateIdentify(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.CatalogPath) == "" {
		return errors.New("paths.catalog_path must be set")
	}
	if strings.TrimSpace(c.Paths.ImagesDir) == "" {
		return errors.New("paths.images_dir must be set")
	}
	if strings.TrimSpace(c.Paths.IndexDir) == "" {
		return errors.New("paths.index_dir must be set")
	}
	return nil
}

func (c *Config) validateSource() error {
	if err := validateHTTPURL("source.base_url", c.Source.BaseURL); err != nil {
		return err
	}
	if err := validateHTTPURL("source.image_url", c.Source.ImageURL); err != nil {
		return err
	}
	if _, err := url.ParseQuery(c.Source.SearchQuery); err != nil {
		return fmt.Errorf("source.search_query: %w", err)
	}
	if c.Source.RequestTimeout < 0 {
		return errors.New("source.request_timeout must be >= 0 (seconds, 0 disables)")
	}
	if c.Source.RequestsPerSecond < 0 {
		return errors.New("source.requests_per_second must be >= 0 (0 disables pacing)")
	}
	return nil
}

func (c *Config) validateImages() error {
	if c.Images.MaxSweepAttempts <= 0 {
		return errors.New("images.max_sweep_attempts must be positive")
	}
	return nil
}

func (c *Config) validateIdentify() error {
	if c.Identify.Top <= 0 {
		return errors.New("identify.top must be positive")
	}
	if c.Identify.MaxDistance < 0 || c.Identify.MaxDistance > fingerprintBits {
		return fmt.Errorf("identify.max_distance must be between 0 and %d", fingerprintBits)
	}
	return nil
}

func validateHTTPURL(key, raw string) error {
	parsed, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("%s must be an http or https URL, got %q", key, raw)
	}
	if parsed.Host == "" {
		return fmt.Errorf("%s must include a host, got %q", key, raw)
	}
	return nil
}
