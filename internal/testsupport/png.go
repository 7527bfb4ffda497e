package testsupport

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"
)

// WritePNG writes a tiny single-color PNG to path. PNG files carry no EXIF
// block, so they exercise the synthetic-timestamp path; vary the color to
// vary the fingerprint.
func WritePNG(t testing.TB, path string, c color.Color) {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	WriteFile(t, path, buf.Bytes())
}
