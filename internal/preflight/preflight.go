package preflight

import (
	"context"

	"magicscraper/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail"`
}

// RunAll checks every state location in cfg. Source reachability is only
// probed when includeSource is set, since it needs network access.
func RunAll(ctx context.Context, cfg *config.Config, includeSource bool) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckParentAccess("Catalog directory", cfg.Paths.CatalogPath),
		CheckDirectoryAccess("Images directory", cfg.Paths.ImagesDir),
		CheckDirectoryAccess("Index directory", cfg.Paths.IndexDir),
		CheckParentAccess("Edition database directory", cfg.Paths.EditionDBPath),
	}

	if includeSource {
		results = append(results,
			CheckSource(ctx, "Gatherer listing", cfg.Source.BaseURL, cfg.Source.UserAgent),
			CheckSource(ctx, "Gatherer images", cfg.Source.ImageURL, cfg.Source.UserAgent),
		)
	}
	return results
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, r)
		}
	}
	return failed
}
