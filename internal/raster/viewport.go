package raster

// Point is a position in full-resolution image pixel coordinates
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Viewport describes how the image is displayed on screen. Pointer events
// arrive in screen coordinates and must be mapped back before drawing so
// that marks always land 1:1 on the source image.
type Viewport struct {
	Zoom    float64 `json:"zoom" yaml:"zoom"`
	ScrollX float64 `json:"scroll_x" yaml:"scroll_x"`
	ScrollY float64 `json:"scroll_y" yaml:"scroll_y"`
}

// ToImage inverts the display transform
func (v Viewport) ToImage(screen Point) Point {
	zoom := v.Zoom
	if zoom <= 0 {
		zoom = 1
	}
	return Point{
		X: (screen.X + v.ScrollX) / zoom,
		Y: (screen.Y + v.ScrollY) / zoom,
	}
}

// ToScreen applies the display transform
func (v Viewport) ToScreen(p Point) Point {
	zoom := v.Zoom
	if zoom <= 0 {
		zoom = 1
	}
	return Point{
		X: p.X*zoom - v.ScrollX,
		Y: p.Y*zoom - v.ScrollY,
	}
}
