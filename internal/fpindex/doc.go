// Package fpindex builds and stores the reference fingerprint index.
//
// The index is rebuilt from the reference images and saved as two JSON
// artifacts, phash_to_ids.json and id_to_phash.json. It is never patched in
// place.
package fpindex
