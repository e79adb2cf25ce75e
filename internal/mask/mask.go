// Package mask converts a markup layer into the binary mask expected by the
// inpainting service.
package mask

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"io"
)

// Export thresholds the markup buffer. Any pixel with alpha > 0 becomes
// opaque white and everything else opaque black. The result has the same
// dimensions as the markup, with its origin at (0,0).
func Export(markup *image.NRGBA) *image.RGBA {
	b := markup.Rect
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))

	for y := 0; y < b.Dy(); y++ {
		src := markup.Pix[y*markup.Stride : y*markup.Stride+b.Dx()*4]
		dst := out.Pix[y*out.Stride : y*out.Stride+b.Dx()*4]
		for x := 0; x < len(src); x += 4 {
			v := uint8(0)
			if src[x+3] > 0 {
				v = 255
			}
			dst[x], dst[x+1], dst[x+2], dst[x+3] = v, v, v, 255
		}
	}
	return out
}

// Encode writes m as a PNG with 8 bits per channel
func Encode(w io.Writer, m *image.RGBA) error {
	enc := png.Encoder{CompressionLevel: png.BestSpeed}
	if err := enc.Encode(w, m); err != nil {
		return fmt.Errorf("failed to encode mask: %w", err)
	}
	return nil
}

// EncodePNG exports and encodes the markup in one step
func EncodePNG(markup *image.NRGBA) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, Export(markup)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Coverage returns the fraction of white pixels in a mask
func Coverage(m *image.RGBA) float64 {
	total := m.Rect.Dx() * m.Rect.Dy()
	if total == 0 {
		return 0
	}
	white := 0
	for i := 0; i < len(m.Pix); i += 4 {
		if m.Pix[i] == 255 {
			white++
		}
	}
	return float64(white) / float64(total)
}
