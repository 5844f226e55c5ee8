// Package builder crawls the Gatherer listing into the card catalog.
//
// A run discovers the page count, loads the catalog and walks the pages in
// order. Completed pages are skipped, so a rerun after a failure resumes at
// the first incomplete page. Cards are deduplicated by name and the first
// record seen wins.
package builder
