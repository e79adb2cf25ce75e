package raster

import (
	"image"
	"image/color"
	"testing"
)

func blankSurface(w, h int) *Surface {
	return NewSurface(image.NewNRGBA(image.Rect(0, 0, w, h)))
}

func alphaAt(s *Surface, x, y int) uint8 {
	return s.Markup().NRGBAAt(x, y).A
}

func TestNewSurfaceNormalizesOrigin(t *testing.T) {
	src := image.NewRGBA(image.Rect(10, 20, 60, 120))
	src.Set(10, 20, color.RGBA{R: 9, G: 8, B: 7, A: 255})

	s := NewSurface(src)

	if s.Width() != 50 || s.Height() != 100 {
		t.Fatalf("Expected 50x100, got %dx%d", s.Width(), s.Height())
	}
	if s.Markup().Rect != s.Base().Rect {
		t.Errorf("Markup bounds %v do not match base bounds %v", s.Markup().Rect, s.Base().Rect)
	}
	if got := s.Base().NRGBAAt(0, 0); got.R != 9 || got.G != 8 || got.B != 7 {
		t.Errorf("Expected base pixel copied to origin, got %v", got)
	}
	for i, v := range s.MarkupPix() {
		if v != 0 {
			t.Fatalf("Expected transparent markup, byte %d = %d", i, v)
		}
	}
}

func TestBrushStrokeHasNoGaps(t *testing.T) {
	s := blankSurface(400, 50)
	b := NewBrush(s)
	b.SetDiameter(10)

	b.BeginStroke(Point{X: 5, Y: 25})
	// one large jump, as a fast pointer would produce
	b.ContinueStroke(Point{X: 395, Y: 25})
	b.EndStroke()

	for x := 5; x < 395; x++ {
		if alphaAt(s, x, 25) == 0 {
			t.Fatalf("Gap in stroke at x=%d", x)
		}
	}
}

func TestBrushIsTranslucent(t *testing.T) {
	s := blankSurface(50, 50)
	b := NewBrush(s)
	b.SetDiameter(20)

	b.BeginStroke(Point{X: 25, Y: 25})
	b.EndStroke()

	a := alphaAt(s, 25, 25)
	if a < 120 || a > 136 {
		t.Errorf("Expected single dab alpha near 128, got %d", a)
	}
	if alphaAt(s, 0, 0) != 0 {
		t.Errorf("Expected pixel outside dab to stay transparent")
	}
}

func TestBrushEdgeCoverageLeavesTrace(t *testing.T) {
	s := blankSurface(50, 50)
	b := NewBrush(s)
	b.SetDiameter(10)

	b.BeginStroke(Point{X: 25, Y: 25})
	b.EndStroke()

	// pixel center (29.5,27.5) sits about 5.15px from the dab center
	a := alphaAt(s, 29, 27)
	if a == 0 || a >= 128 {
		t.Errorf("Expected partial alpha on the anti-aliased edge, got %d", a)
	}
}

func TestEraserZeroesAlpha(t *testing.T) {
	s := blankSurface(100, 100)
	b := NewBrush(s)
	b.SetDiameter(40)

	b.BeginStroke(Point{X: 50, Y: 50})
	b.ContinueStroke(Point{X: 60, Y: 50})
	b.EndStroke()

	if alphaAt(s, 50, 50) == 0 {
		t.Fatal("Expected brush to mark the center")
	}

	b.SetTool(ToolEraser)
	b.SetDiameter(20)
	b.BeginStroke(Point{X: 50, Y: 50})
	b.EndStroke()

	if got := s.Markup().NRGBAAt(50, 50); got != (color.NRGBA{}) {
		t.Errorf("Expected erased pixel to be zero, got %v", got)
	}
	if alphaAt(s, 65, 50) == 0 {
		t.Errorf("Expected pixel outside eraser radius to keep its mark")
	}
}

func TestEraserRemovesBrushEdge(t *testing.T) {
	for _, diameter := range []int{MinDiameter, 11, DefaultDiameter, 37, MaxDiameter} {
		s := blankSurface(200, 200)
		b := NewBrush(s)
		b.SetDiameter(diameter)

		center := Point{X: 100.3, Y: 99.8}
		b.BeginStroke(center)
		b.EndStroke()

		b.SetTool(ToolEraser)
		b.BeginStroke(center)
		b.EndStroke()

		for i := 3; i < len(s.MarkupPix()); i += 4 {
			if a := s.MarkupPix()[i]; a != 0 {
				x, y := (i/4)%200, (i/4)/200
				t.Fatalf("diameter %d: pixel (%d,%d) kept alpha %d after erasing", diameter, x, y, a)
			}
		}
	}
}

func TestSetDiameterClamps(t *testing.T) {
	b := NewBrush(blankSurface(10, 10))

	tests := []struct {
		in, want int
	}{
		{1, MinDiameter},
		{5, 5},
		{42, 42},
		{100, 100},
		{500, MaxDiameter},
	}
	for _, tt := range tests {
		b.SetDiameter(tt.in)
		if b.Diameter() != tt.want {
			t.Errorf("SetDiameter(%d): expected %d, got %d", tt.in, tt.want, b.Diameter())
		}
	}
}

func TestDabClipsAtBounds(t *testing.T) {
	s := blankSurface(20, 20)
	b := NewBrush(s)
	b.SetDiameter(100)

	b.BeginStroke(Point{X: -10, Y: -10})
	b.ContinueStroke(Point{X: 30, Y: 30})
	b.EndStroke()

	if alphaAt(s, 19, 19) == 0 {
		t.Errorf("Expected corner pixel to be marked")
	}
}

func TestEndStrokeReportsOpenStroke(t *testing.T) {
	b := NewBrush(blankSurface(10, 10))

	if b.EndStroke() {
		t.Errorf("Expected EndStroke without BeginStroke to report false")
	}
	b.BeginStroke(Point{X: 1, Y: 1})
	if !b.Stroking() {
		t.Errorf("Expected stroke to be open")
	}
	if !b.EndStroke() {
		t.Errorf("Expected EndStroke to report true")
	}
}

func TestParseTool(t *testing.T) {
	tests := []struct {
		name    string
		want    Tool
		wantErr bool
	}{
		{"brush", ToolBrush, false},
		{"Eraser", ToolEraser, false},
		{"", ToolBrush, false},
		{"lasso", ToolBrush, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseTool(tt.name)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Unexpected error state: %v", err)
			}
			if got != tt.want {
				t.Errorf("Expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestViewportRoundTrip(t *testing.T) {
	v := Viewport{Zoom: 2.5, ScrollX: 40, ScrollY: 10}

	p := Point{X: 120, Y: 64}
	back := v.ToImage(v.ToScreen(p))
	if back != p {
		t.Errorf("Expected %v, got %v", p, back)
	}

	// zoomed out at 50%, screen (50,50) maps to image (100,100)
	half := Viewport{Zoom: 0.5}
	if got := half.ToImage(Point{X: 50, Y: 50}); got != (Point{X: 100, Y: 100}) {
		t.Errorf("Expected (100,100), got %v", got)
	}

	// zero zoom behaves like 1:1
	if got := (Viewport{}).ToImage(Point{X: 3, Y: 4}); got != (Point{X: 3, Y: 4}) {
		t.Errorf("Expected identity transform, got %v", got)
	}
}

func TestCompositeOverlaysMarkup(t *testing.T) {
	base := image.NewNRGBA(image.Rect(0, 0, 30, 30))
	for i := range base.Pix {
		base.Pix[i] = 255
	}
	s := NewSurface(base)
	b := NewBrush(s)
	b.BeginStroke(Point{X: 15, Y: 15})
	b.EndStroke()

	out := s.Composite()
	if out.Rect != s.Bounds() {
		t.Fatalf("Expected composite bounds %v, got %v", s.Bounds(), out.Rect)
	}
	c := out.RGBAAt(15, 15)
	if c.R != 255 || c.G == 255 {
		t.Errorf("Expected reddish tint over white, got %v", c)
	}
	if out.RGBAAt(0, 0) != (color.RGBA{R: 255, G: 255, B: 255, A: 255}) {
		t.Errorf("Expected untouched base pixel, got %v", out.RGBAAt(0, 0))
	}
}
