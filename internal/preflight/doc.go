// Package preflight provides readiness checks for the Gatherer endpoints
// and the filesystem paths magicscraper writes to.
//
// The CLI "magicscraper status" command runs RunAll and renders each Result.
// The build, images and index commands call RunAll without the network probes
// before touching any state, so a missing or read-only directory fails fast.
package preflight
