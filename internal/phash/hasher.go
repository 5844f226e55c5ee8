package phash

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"

	"github.com/corona10/goimagehash"
)

// Fingerprinter computes the fingerprint of a decoded image. Reference and
// candidate images must go through the same Fingerprinter so their distances
// are comparable.
type Fingerprinter interface {
	Fingerprint(img image.Image) (Fingerprint, error)
}

// Perceptual is the DCT-based perceptual hash.
type Perceptual struct{}

// Fingerprint implements Fingerprinter.
func (Perceptual) Fingerprint(img image.Image) (Fingerprint, error) {
	hash, err := goimagehash.PerceptionHash(img)
	if err != nil {
		return 0, fmt.Errorf("perceptual hash: %w", err)
	}
	return Fingerprint(hash.GetHash()), nil
}

// Normalizer prepares a candidate photo before fingerprinting.
type Normalizer func(image.Image) image.Image

// PassThrough returns the image unchanged.
func PassThrough(img image.Image) image.Image { return img }

// Decode reads a JPEG or PNG image.
func Decode(r io.Reader) (image.Image, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return img, nil
}

// DecodeFile opens and decodes the image at path.
func DecodeFile(path string) (image.Image, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	img, err := Decode(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return img, nil
}

// FromFile decodes the image at path and fingerprints it with fp.
func FromFile(fp Fingerprinter, path string) (Fingerprint, error) {
	img, err := DecodeFile(path)
	if err != nil {
		return 0, err
	}
	return fp.Fingerprint(img)
}
