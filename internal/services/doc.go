// Package services defines shared utilities consumed by the pipeline stages
// and the Gatherer integration.
//
// Key responsibilities:
//   - Context helpers that stamp run identifiers and stage names for logging.
//   - Structured error markers plus the Wrap helper so callers can classify
//     failures with errors.Is and surface an operator hint.
//
// The gatherer subpackage holds the HTTP client for the card listing and the
// image handler.
package services
