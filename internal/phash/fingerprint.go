package phash

import (
	"fmt"
	"strconv"

	"github.com/corona10/goimagehash"
)

// Bits is the width of a Fingerprint.
const Bits = 64

// Fingerprint is a 64-bit perceptual hash. Its text form is 16 lowercase hex digits.
type Fingerprint uint64

// String returns the 16-digit hex form.
func (f Fingerprint) String() string {
	return fmt.Sprintf("%016x", uint64(f))
}

// MarshalText implements encoding.TextMarshaler.
func (f Fingerprint) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (f *Fingerprint) UnmarshalText(text []byte) error {
	parsed, err := ParseFingerprint(string(text))
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}

// ParseFingerprint reads the 16-digit hex form.
func ParseFingerprint(s string) (Fingerprint, error) {
	if len(s) != Bits/4 {
		return 0, fmt.Errorf("fingerprint %q: want %d hex digits", s, Bits/4)
	}
	value, err := strconv.ParseUint(s, 16, 64)
	if err != nil {
		return 0, fmt.Errorf("fingerprint %q: %w", s, err)
	}
	return Fingerprint(value), nil
}

// Distance returns the Hamming distance between two fingerprints.
func Distance(a, b Fingerprint) int {
	d, err := goimagehash.NewImageHash(uint64(a), goimagehash.PHash).
		Distance(goimagehash.NewImageHash(uint64(b), goimagehash.PHash))
	if err != nil {
		// Both hashes carry the same kind, so Distance cannot fail.
		panic(err)
	}
	return d
}
