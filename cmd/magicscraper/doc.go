// Package main hosts the magicscraper CLI entrypoint and command graph.
//
// The Cobra command tree runs the pipeline stages in order: build crawls the
// Gatherer listing into the catalog, images downloads one reference image per
// edition, index fingerprints those images, and identify matches a photo
// against the index. show, distribution and status inspect the stored state.
//
// Keep this package lean: stage logic lives in the internal packages and the
// commands here only wire configuration, logging and output formatting.
package main
