// Package phash wraps the perceptual hash used to compare card images.
//
// A Fingerprint is the 64-bit DCT hash of an image; two images of the same
// printing have a small Hamming distance between their fingerprints.
package phash
