// Package cardparse turns Gatherer listing rows into catalog cards.
//
// Parse reads a single tr.cardItem selection: the title, mana symbols,
// converted mana cost, type line, rules text and the edition links of the
// setVersions cell. Missing mandatory elements fail with services.ErrParse and
// bad edition links fail with services.ErrMalformedLink.
package cardparse
