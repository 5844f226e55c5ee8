// Package identify finds the reference edition nearest to a candidate photo.
//
// The candidate is fingerprinted with the same perceptual hash used for the
// reference index and compared by Hamming distance against every reference.
// The lowest distance wins; equal distances resolve to the lowest multiverse
// id and the others are reported as ties.
package identify
