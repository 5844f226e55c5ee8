// Package textutil provides text normalization helpers shared by the card
// parser and the catalog.
//
// Card names and rules text are compared and stored in Unicode NFC so that
// the same printed name always maps to one catalog key regardless of how the
// listing encoded accented characters.
package textutil
