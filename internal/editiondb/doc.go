// Package editiondb keeps a SQLite lookup table of every edition in the
// catalog, keyed by multiverse id.
//
// The database is derived data: Rebuild replaces its contents from the catalog
// after each build. It answers id lookups for the show and identify commands
// and records multiverse ids that more than one card claims.
package editiondb
