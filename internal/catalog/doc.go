// Package catalog defines the card catalog model and its durable JSON store.
//
// A Catalog pairs the collected cards with the set of listing pages already
// applied. The Store always writes both together through an atomic rename so
// a page is never recorded as complete without its cards, or the reverse.
package catalog
