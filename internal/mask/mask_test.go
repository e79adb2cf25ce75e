package mask

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"math/rand"
	"testing"

	"github.com/inkwash-dev/inkwash/internal/raster"
)

var (
	white = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	black = color.RGBA{A: 255}
)

func TestExportThresholdsAlpha(t *testing.T) {
	markup := image.NewNRGBA(image.Rect(0, 0, 4, 1))
	markup.SetNRGBA(0, 0, color.NRGBA{})
	markup.SetNRGBA(1, 0, color.NRGBA{R: 255, A: 1})
	markup.SetNRGBA(2, 0, color.NRGBA{G: 10, A: 128})
	markup.SetNRGBA(3, 0, color.NRGBA{R: 200, G: 200, B: 200, A: 0})

	m := Export(markup)

	want := []color.RGBA{black, white, white, black}
	for x, w := range want {
		if got := m.RGBAAt(x, 0); got != w {
			t.Errorf("Pixel %d: expected %v, got %v", x, w, got)
		}
	}
}

func TestExportIsBinaryForAnyAlpha(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	markup := image.NewNRGBA(image.Rect(0, 0, 64, 64))
	rng.Read(markup.Pix)

	m := Export(markup)
	for i := 0; i < len(m.Pix); i += 4 {
		px := m.Pix[i : i+4]
		isWhite := px[0] == 255 && px[1] == 255 && px[2] == 255 && px[3] == 255
		isBlack := px[0] == 0 && px[1] == 0 && px[2] == 0 && px[3] == 255
		if !isWhite && !isBlack {
			t.Fatalf("Pixel %d is neither black nor white: %v", i/4, px)
		}
	}
}

func TestExportIsDeterministic(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	markup := image.NewNRGBA(image.Rect(0, 0, 33, 17))
	rng.Read(markup.Pix)

	first, err := EncodePNG(markup)
	if err != nil {
		t.Fatal(err)
	}
	second, err := EncodePNG(markup)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(first, second) {
		t.Errorf("Expected byte-identical PNG output")
	}
}

func TestEncodedMaskDecodesToBinaryPixels(t *testing.T) {
	markup := image.NewNRGBA(image.Rect(0, 0, 8, 8))
	markup.SetNRGBA(3, 3, color.NRGBA{A: 77})

	data, err := EncodePNG(markup)
	if err != nil {
		t.Fatal(err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Failed to decode mask: %v", err)
	}
	if img.Bounds().Dx() != 8 || img.Bounds().Dy() != 8 {
		t.Fatalf("Expected 8x8 mask, got %v", img.Bounds())
	}
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			r, g, b, a := img.At(x, y).RGBA()
			want := uint32(0)
			if x == 3 && y == 3 {
				want = 0xffff
			}
			if r != want || g != want || b != want || a != 0xffff {
				t.Errorf("Pixel (%d,%d): got %d,%d,%d,%d", x, y, r, g, b, a)
			}
		}
	}
}

func TestHorizontalStrokeScenario(t *testing.T) {
	s := raster.NewSurface(image.NewNRGBA(image.Rect(0, 0, 200, 200)))
	b := raster.NewBrush(s)
	b.SetDiameter(40)

	b.BeginStroke(raster.Point{X: 10, Y: 10})
	b.ContinueStroke(raster.Point{X: 100, Y: 10})
	b.EndStroke()

	m := Export(s.Markup())
	if m.Rect.Dx() != 200 || m.Rect.Dy() != 200 {
		t.Fatalf("Expected 200x200 mask, got %v", m.Rect)
	}

	inside := []image.Point{{10, 10}, {50, 10}, {100, 10}, {50, 0}, {50, 25}, {100, 28}}
	for _, p := range inside {
		if got := m.RGBAAt(p.X, p.Y); got != white {
			t.Errorf("Expected white at %v, got %v", p, got)
		}
	}

	outside := []image.Point{{50, 35}, {130, 10}, {150, 150}, {199, 199}, {10, 40}}
	for _, p := range outside {
		if got := m.RGBAAt(p.X, p.Y); got != black {
			t.Errorf("Expected black at %v, got %v", p, got)
		}
	}
}

func TestCoverage(t *testing.T) {
	markup := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	markup.SetNRGBA(0, 0, color.NRGBA{A: 255})

	if got := Coverage(Export(markup)); got != 0.25 {
		t.Errorf("Expected 0.25 coverage, got %f", got)
	}
	if got := Coverage(image.NewRGBA(image.Rect(0, 0, 0, 0))); got != 0 {
		t.Errorf("Expected 0 coverage for empty mask, got %f", got)
	}
}

func TestErasedStrokeExportsEmptyMask(t *testing.T) {
	s := raster.NewSurface(image.NewNRGBA(image.Rect(0, 0, 100, 100)))
	b := raster.NewBrush(s)
	b.SetDiameter(20)

	b.BeginStroke(raster.Point{X: 50, Y: 50})
	b.EndStroke()
	if Coverage(Export(s.Markup())) == 0 {
		t.Fatal("Expected the brush dab to show in the mask")
	}

	b.SetTool(raster.ToolEraser)
	b.BeginStroke(raster.Point{X: 50, Y: 50})
	b.EndStroke()

	if got := Coverage(Export(s.Markup())); got != 0 {
		t.Errorf("Expected empty mask after erasing with the same diameter, got coverage %f", got)
	}
}
