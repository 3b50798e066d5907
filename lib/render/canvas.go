package render

import (
	"fmt"
	"io"
	"math"

	"github.com/gogpu/gg"
	"github.com/gogpu/gg/text"
	"github.com/mkyhq/glyphcaptcha/lib/policy/config"
)

// Canvas is the drawing surface a challenge image is composed on.
// Coordinates are in pixels with the origin at the top left.
type Canvas interface {
	// Fill paints the whole canvas with c.
	Fill(c config.RGB)

	// Line strokes a one pixel wide segment.
	Line(x1, y1, x2, y2 float64, c config.RGB) error

	// Pixel sets a single pixel.
	Pixel(x, y int, c config.RGB)

	// Glyph draws r centered horizontally and vertically on (x, y),
	// rotated counterclockwise by angle degrees around that point.
	Glyph(r rune, x, y, angle float64, c config.RGB) error

	EncodePNG(w io.Writer) error
}

func rgb(c config.RGB) gg.RGBA {
	return gg.RGB(c.Floats())
}

// GGCanvas is a Canvas backed by a software gg context. Glyphs are drawn as
// filled outlines so that they can be rotated.
type GGCanvas struct {
	dc        *gg.Context
	font      *text.FontSource
	size      float64
	extractor *text.OutlineExtractor
}

func NewGGCanvas(width, height int, font *text.FontSource, size float64) *GGCanvas {
	return &GGCanvas{
		dc:        gg.NewContext(width, height),
		font:      font,
		size:      size,
		extractor: text.NewOutlineExtractor(),
	}
}

func (g *GGCanvas) Fill(c config.RGB) {
	g.dc.ClearWithColor(rgb(c))
}

func (g *GGCanvas) Line(x1, y1, x2, y2 float64, c config.RGB) error {
	g.dc.SetRGB(c.Floats())
	g.dc.SetLineWidth(1)
	g.dc.DrawLine(x1, y1, x2, y2)
	return g.dc.Stroke()
}

func (g *GGCanvas) Pixel(x, y int, c config.RGB) {
	g.dc.SetPixel(x, y, rgb(c))
}

func (g *GGCanvas) Glyph(r rune, x, y, angle float64, c config.RGB) error {
	parsed := g.font.Parsed()

	gid := parsed.GlyphIndex(r)
	if gid == 0 {
		return fmt.Errorf("%w: %q", ErrMissingGlyph, r)
	}

	outline, err := g.extractor.ExtractOutline(parsed, text.GlyphID(gid), g.size)
	if err != nil {
		return fmt.Errorf("%w: can't extract outline for %q: %w", ErrBadFont, r, err)
	}

	if outline.IsEmpty() {
		return nil
	}

	// Shift the outline so the middle of its bounding box lands on (x, y).
	b := outline.Bounds
	left := x - (b.MinX+b.MaxX)/2
	top := y - (b.MinY+b.MaxY)/2

	g.dc.Push()
	defer g.dc.Pop()

	// y grows downwards, so a counterclockwise turn is a negative angle.
	g.dc.RotateAbout(-angle*math.Pi/180, x, y)

	for i, seg := range outline.Segments {
		p := seg.Points
		switch seg.Op {
		case text.OutlineOpMoveTo:
			if i != 0 {
				g.dc.ClosePath()
			}
			g.dc.MoveTo(left+float64(p[0].X), top+float64(p[0].Y))
		case text.OutlineOpLineTo:
			g.dc.LineTo(left+float64(p[0].X), top+float64(p[0].Y))
		case text.OutlineOpQuadTo:
			g.dc.QuadraticTo(
				left+float64(p[0].X), top+float64(p[0].Y),
				left+float64(p[1].X), top+float64(p[1].Y),
			)
		case text.OutlineOpCubicTo:
			g.dc.CubicTo(
				left+float64(p[0].X), top+float64(p[0].Y),
				left+float64(p[1].X), top+float64(p[1].Y),
				left+float64(p[2].X), top+float64(p[2].Y),
			)
		}
	}
	g.dc.ClosePath()

	g.dc.SetRGB(c.Floats())
	return g.dc.Fill()
}

func (g *GGCanvas) EncodePNG(w io.Writer) error {
	return g.dc.EncodePNG(w)
}

func (g *GGCanvas) Close() error {
	return g.dc.Close()
}
