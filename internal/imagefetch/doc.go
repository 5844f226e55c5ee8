// Package imagefetch downloads one reference image per card edition.
//
// Images live at <dir>/<multiverse_id>.jpeg and are never downloaded twice.
// A sweep over the whole catalog restarts from the beginning after any
// failure, bounded by a RetryPolicy built on cenkalti/backoff.
package imagefetch
