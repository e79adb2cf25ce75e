// Package raster holds the pixel buffers of a page open for manual editing
// and the brush that writes operator marks into them.
package raster

import (
	"image"
	"image/color"
	"image/draw"
)

// Surface owns a page's base pixels and an aligned, transparent markup buffer.
// Both buffers share the same bounds with the origin at (0,0).
type Surface struct {
	base   *image.NRGBA
	markup *image.NRGBA
}

// NewSurface copies src into the base buffer and allocates an empty markup layer
func NewSurface(src image.Image) *Surface {
	b := src.Bounds()
	rect := image.Rect(0, 0, b.Dx(), b.Dy())

	base := image.NewNRGBA(rect)
	draw.Draw(base, rect, src, b.Min, draw.Src)

	return &Surface{
		base:   base,
		markup: image.NewNRGBA(rect),
	}
}

// Bounds returns the shared bounds of the base and markup buffers
func (s *Surface) Bounds() image.Rectangle {
	return s.base.Rect
}

// Width returns the image width in pixels
func (s *Surface) Width() int {
	return s.base.Rect.Dx()
}

// Height returns the image height in pixels
func (s *Surface) Height() int {
	return s.base.Rect.Dy()
}

// Base returns the decoded source pixels. Callers must not modify it.
func (s *Surface) Base() *image.NRGBA {
	return s.base
}

// Markup returns the live markup buffer
func (s *Surface) Markup() *image.NRGBA {
	return s.markup
}

// MarkupPix exposes the raw markup bytes for snapshotting
func (s *Surface) MarkupPix() []byte {
	return s.markup.Pix
}

// ClearMarkup resets every markup pixel to fully transparent
func (s *Surface) ClearMarkup() {
	clear(s.markup.Pix)
}

// Composite renders the markup layer over the base image for previews
func (s *Surface) Composite() *image.RGBA {
	out := image.NewRGBA(s.base.Rect)
	draw.Draw(out, out.Rect, s.base, image.Point{}, draw.Src)
	draw.Draw(out, out.Rect, s.markup, image.Point{}, draw.Over)
	return out
}

// blend composites src over the markup pixel at (x, y) with the given
// source alpha in [0, 1].
func (s *Surface) blend(x, y int, src color.NRGBA, alpha float64) {
	i := s.markup.PixOffset(x, y)
	p := s.markup.Pix[i : i+4 : i+4]

	da := float64(p[3]) / 255
	oa := alpha + da*(1-alpha)
	if oa <= 0 {
		return
	}

	mix := func(sc, dc uint8) uint8 {
		v := (float64(sc)*alpha + float64(dc)*da*(1-alpha)) / oa
		return uint8(v + 0.5)
	}
	p[0] = mix(src.R, p[0])
	p[1] = mix(src.G, p[1])
	p[2] = mix(src.B, p[2])

	a := uint8(oa*255 + 0.5)
	if a == 0 {
		// any coverage leaves a trace so the mask export picks it up
		a = 1
	}
	p[3] = a
}

// erase zeroes the markup pixel at (x, y)
func (s *Surface) erase(x, y int) {
	i := s.markup.PixOffset(x, y)
	p := s.markup.Pix[i : i+4 : i+4]
	p[0], p[1], p[2], p[3] = 0, 0, 0, 0
}
