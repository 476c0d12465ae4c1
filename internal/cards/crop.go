package cards

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"math/rand"

	"golang.org/x/image/draw"
)

// CroppedJPEG crops a pseudo-random window out of img and rescales it back
// to the original dimensions, so heavier crop levels show a smaller, blurrier
// slice of the card. Level 0 returns the full image.
func CroppedJPEG(img image.Image, level int) ([]byte, error) {
	if level <= 0 {
		return EncodeJPEG(img)
	}

	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	factor := 2 * level

	span := h * (factor - 1) / factor
	if ws := w * (factor - 1) / factor; ws > span {
		span = ws
	}
	pos := 0
	if span > 0 {
		pos = rand.Intn(span + 1)
	}

	window := image.Rect(
		b.Min.X+pos,
		b.Min.Y+pos,
		b.Min.X+pos+w/factor,
		b.Min.Y+pos+h/factor,
	).Intersect(b)
	if window.Empty() {
		window = image.Rect(b.Min.X, b.Min.Y, b.Min.X+w/factor, b.Min.Y+h/factor).Intersect(b)
	}

	scaled := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.ApproxBiLinear.Scale(scaled, scaled.Bounds(), img, window, draw.Src, nil)
	return EncodeJPEG(scaled)
}

func EncodeJPEG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		return nil, fmt.Errorf("encode image: %w", err)
	}
	return buf.Bytes(), nil
}
