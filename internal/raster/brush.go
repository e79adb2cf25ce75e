package raster

import (
	"fmt"
	"image/color"
	"math"
	"strings"
)

// Tool selects how a stroke is composed into the markup layer
type Tool int

const (
	ToolBrush Tool = iota
	ToolEraser
)

func (t Tool) String() string {
	switch t {
	case ToolBrush:
		return "brush"
	case ToolEraser:
		return "eraser"
	default:
		return fmt.Sprintf("tool(%d)", int(t))
	}
}

// ParseTool maps "brush" or "eraser" to a Tool
func ParseTool(name string) (Tool, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "brush", "":
		return ToolBrush, nil
	case "eraser":
		return ToolEraser, nil
	default:
		return ToolBrush, fmt.Errorf("unknown tool: %s", name)
	}
}

const (
	MinDiameter     = 5
	MaxDiameter     = 100
	DefaultDiameter = 20

	// brushAlpha is the opacity of a single brush dab
	brushAlpha = 0.5
)

// DefaultColor is the markup color used when none is configured
var DefaultColor = color.NRGBA{R: 255, A: 255}

// Brush turns pointer paths into markup writes on a Surface
type Brush struct {
	surface  *Surface
	tool     Tool
	diameter int
	color    color.NRGBA

	stroking bool
	last     Point
}

// NewBrush returns a brush with the default diameter and color
func NewBrush(surface *Surface) *Brush {
	return &Brush{
		surface:  surface,
		tool:     ToolBrush,
		diameter: DefaultDiameter,
		color:    DefaultColor,
	}
}

// SetTool switches between brush and eraser
func (b *Brush) SetTool(t Tool) {
	b.tool = t
}

// Tool returns the active tool
func (b *Brush) Tool() Tool {
	return b.tool
}

// SetDiameter sets the dab diameter, clamped to [MinDiameter, MaxDiameter]
func (b *Brush) SetDiameter(d int) {
	b.diameter = min(max(d, MinDiameter), MaxDiameter)
}

// Diameter returns the dab diameter in pixels
func (b *Brush) Diameter() int {
	return b.diameter
}

// Radius returns half the dab diameter
func (b *Brush) Radius() float64 {
	return float64(b.diameter) / 2
}

// SetColor sets the markup color; its alpha is ignored
func (b *Brush) SetColor(c color.NRGBA) {
	c.A = 255
	b.color = c
}

// Stroking reports whether a stroke is open
func (b *Brush) Stroking() bool {
	return b.stroking
}

// BeginStroke opens a stroke at p and stamps the first dab
func (b *Brush) BeginStroke(p Point) {
	b.stroking = true
	b.last = p
	b.dab(p)
}

// ContinueStroke draws from the last recorded point to p. Dab centers are
// interpolated so consecutive dabs are never more than half the radius apart.
func (b *Brush) ContinueStroke(p Point) {
	if !b.stroking {
		b.BeginStroke(p)
		return
	}

	dx := p.X - b.last.X
	dy := p.Y - b.last.Y
	dist := math.Hypot(dx, dy)
	spacing := b.Radius() / 2

	steps := int(math.Ceil(dist / spacing))
	for i := 1; i <= steps; i++ {
		t := float64(i) / float64(steps)
		b.dab(Point{X: b.last.X + dx*t, Y: b.last.Y + dy*t})
	}
	b.last = p
}

// EndStroke closes the stroke and reports whether one was open
func (b *Brush) EndStroke() bool {
	was := b.stroking
	b.stroking = false
	return was
}

// dab stamps a single circle centered at c. Pixel centers sit at +0.5.
func (b *Brush) dab(c Point) {
	r := b.Radius()
	bounds := b.surface.Bounds()

	x0 := max(int(math.Floor(c.X-r-1)), bounds.Min.X)
	y0 := max(int(math.Floor(c.Y-r-1)), bounds.Min.Y)
	x1 := min(int(math.Ceil(c.X+r+1)), bounds.Max.X)
	y1 := min(int(math.Ceil(c.Y+r+1)), bounds.Max.Y)

	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			d := math.Hypot(float64(x)+0.5-c.X, float64(y)+0.5-c.Y)
			// brush and eraser share the footprint d < r+0.5
			coverage := min(r+0.5-d, 1)
			if coverage <= 0 {
				continue
			}
			switch b.tool {
			case ToolEraser:
				b.surface.erase(x, y)
			default:
				b.surface.blend(x, y, b.color, brushAlpha*coverage)
			}
		}
	}
}
