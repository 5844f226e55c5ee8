package testsupport

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"math/rand/v2"
	"os"
	"path/filepath"
	"testing"
)

const (
	imageSize  = 64
	imageGrid  = 4
	blockPixel = imageSize / imageGrid
)

// PatternImage returns a grayscale image of coarse random blocks derived from
// seed. Equal seeds give identical images; distinct seeds give images whose
// perceptual hashes differ.
func PatternImage(seed uint64) *image.Gray {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	img := image.NewGray(image.Rect(0, 0, imageSize, imageSize))
	for by := 0; by < imageGrid; by++ {
		for bx := 0; bx < imageGrid; bx++ {
			shade := uint8(rng.IntN(256))
			for y := by * blockPixel; y < (by+1)*blockPixel; y++ {
				for x := bx * blockPixel; x < (bx+1)*blockPixel; x++ {
					img.SetGray(x, y, color.Gray{Y: shade})
				}
			}
		}
	}
	return img
}

// Brighten returns a copy of img with every pixel shifted by delta, clamped.
func Brighten(img *image.Gray, delta int) *image.Gray {
	out := image.NewGray(img.Bounds())
	for i, v := range img.Pix {
		shifted := int(v) + delta
		switch {
		case shifted < 0:
			shifted = 0
		case shifted > 255:
			shifted = 255
		}
		out.Pix[i] = uint8(shifted)
	}
	return out
}

// EncodeJPEG encodes img at high quality.
func EncodeJPEG(t testing.TB, img image.Image) []byte {
	t.Helper()

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 95}); err != nil {
		t.Fatalf("encode jpeg: %v", err)
	}
	return buf.Bytes()
}

// JPEGBytes returns the encoded pattern image for seed.
func JPEGBytes(t testing.TB, seed uint64) []byte {
	t.Helper()
	return EncodeJPEG(t, PatternImage(seed))
}

// WriteJPEG writes the pattern image for seed to path, creating parents.
func WriteJPEG(t testing.TB, path string, seed uint64) {
	t.Helper()
	WriteBytes(t, path, JPEGBytes(t, seed))
}

// WriteBytes writes data to path, creating parent directories.
func WriteBytes(t testing.TB, path string, data []byte) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
