// Package testimage builds small in-memory images for tests.
package testimage

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/lehigh-university-libraries/captioner/internal/images"
)

// PNG returns a w x h PNG filled with c
func PNG(t testing.TB, w, h int, c color.Color) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode png: %v", err)
	}
	return buf.Bytes()
}

// Decoded returns a small decoded image
func Decoded(t testing.TB) *images.Decoded {
	t.Helper()
	decoded, err := images.Decode(PNG(t, 8, 8, color.NRGBA{R: 120, G: 80, B: 40, A: 255}))
	if err != nil {
		t.Fatalf("failed to decode test image: %v", err)
	}
	return decoded
}
