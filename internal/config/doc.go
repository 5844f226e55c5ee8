// Package config loads, normalizes, and validates magicscraper configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts) and reads TOML files. The Config type centralizes every knob the
// catalog builder, image sweep, fingerprint indexer and identification engine
// need, so each component receives its endpoints and paths explicitly at
// construction instead of reading package-level constants.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
