package canvas

import (
	"errors"
	"image"
	"math"

	"github.com/gogpu/gg"

	"github.com/vovakirdan/drawsync/internal/drawing"
)

const (
	// eraserScale widens eraser strokes relative to their requested size.
	eraserScale = 3
	glowPasses  = 3
	glowSpread  = 6.0
	glowOpacity = 0.2
)

// Surface is a raster buffer addressed in layout units. The backing pixmap
// has layout size times device pixel ratio pixels, and toPixels maps layout
// units onto it.
type Surface struct {
	ctx *gg.Context
	// scratch receives eraser coverage before it is punched out of ctx.
	scratch *gg.Context

	width    float64
	height   float64
	dpr      float64
	toPixels gg.Matrix
}

// NewSurface allocates a surface of the given layout size.
func NewSurface(width, height, dpr float64) (*Surface, error) {
	if width <= 0 || height <= 0 {
		return nil, errors.New("surface size must be positive")
	}
	if dpr <= 0 {
		dpr = 1
	}
	pw, ph := physical(width, dpr), physical(height, dpr)
	s := &Surface{
		ctx:     gg.NewContext(pw, ph),
		scratch: gg.NewContext(pw, ph),
		width:   width,
		height:  height,
		dpr:     dpr,
	}
	s.applyTransform()
	return s, nil
}

func physical(layout, dpr float64) int {
	n := int(math.Floor(layout * dpr))
	if n < 1 {
		n = 1
	}
	return n
}

// Resize rebuilds the buffer for a new layout size and pixel ratio. The
// content is lost; callers redraw afterwards.
func (s *Surface) Resize(width, height, dpr float64) error {
	if dpr <= 0 {
		dpr = 1
	}
	pw, ph := physical(width, dpr), physical(height, dpr)
	if err := s.ctx.Resize(pw, ph); err != nil {
		return err
	}
	if err := s.scratch.Resize(pw, ph); err != nil {
		return err
	}
	s.width, s.height, s.dpr = width, height, dpr
	s.applyTransform()
	return nil
}

func (s *Surface) applyTransform() {
	s.toPixels = gg.Scale(s.dpr, s.dpr)
	for _, c := range []*gg.Context{s.ctx, s.scratch} {
		c.Identity()
		c.SetLineCap(gg.LineCapRound)
		c.SetLineJoin(gg.LineJoinRound)
	}
}

// pixel maps a normalized point to buffer pixels.
func (s *Surface) pixel(p drawing.Point) (float64, float64) {
	x, y := p.Denormalize(s.width, s.height)
	q := s.toPixels.TransformPoint(gg.Pt(x, y))
	return q.X, q.Y
}

// length converts a distance in layout units to buffer pixels.
func (s *Surface) length(w float64) float64 {
	return w * s.dpr
}

// LayoutSize returns the surface size in layout units.
func (s *Surface) LayoutSize() (float64, float64) {
	return s.width, s.height
}

// PixelSize returns the backing buffer size in physical pixels.
func (s *Surface) PixelSize() (int, int) {
	return s.ctx.Width(), s.ctx.Height()
}

// DPR returns the device pixel ratio the surface was sized for.
func (s *Surface) DPR() float64 {
	return s.dpr
}

// Clear erases the whole surface to transparent.
func (s *Surface) Clear() {
	s.ctx.Clear()
}

// Image returns a copy of the current raster.
func (s *Surface) Image() image.Image {
	return s.ctx.Image()
}

// DrawStroke renders a whole stroke with its tool's geometry. Strokes with
// fewer than two points have no geometry and are skipped.
func (s *Surface) DrawStroke(st drawing.Stroke) error {
	if len(st.Points) < 2 {
		return nil
	}
	return s.render(st, func(c *gg.Context) { s.tracePath(c, st) })
}

// DrawSegment renders only the piece of a freeform stroke between two
// consecutive points.
func (s *Surface) DrawSegment(st drawing.Stroke, from, to drawing.Point) error {
	return s.render(st, func(c *gg.Context) {
		x1, y1 := s.pixel(from)
		x2, y2 := s.pixel(to)
		c.DrawLine(x1, y1, x2, y2)
	})
}

func (s *Surface) render(st drawing.Stroke, trace func(*gg.Context)) error {
	if st.Tool == drawing.ToolEraser {
		return s.erase(st, trace)
	}

	color := st.Color
	if color == "" {
		color = drawing.DefaultColor
	}
	if st.Glow {
		if err := s.glow(st, color, trace); err != nil {
			return err
		}
	}

	s.ctx.SetHexColor(color)
	s.ctx.SetLineWidth(s.length(st.Size))
	trace(s.ctx)
	return s.ctx.Stroke()
}

// glow paints widening translucent passes under the stroke outline.
func (s *Surface) glow(st drawing.Stroke, color string, trace func(*gg.Context)) error {
	s.ctx.SetHexColor(color)
	for i := glowPasses; i >= 1; i-- {
		s.ctx.PushLayer(gg.BlendNormal, glowOpacity)
		s.ctx.SetLineWidth(s.length(st.Size + glowSpread*float64(i)))
		trace(s.ctx)
		err := s.ctx.Stroke()
		s.ctx.PopLayer()
		if err != nil {
			return err
		}
	}
	return nil
}

// erase rasterizes the eraser geometry on the scratch buffer and removes
// that coverage from the surface (destination-out).
func (s *Surface) erase(st drawing.Stroke, trace func(*gg.Context)) error {
	s.scratch.Clear()
	s.scratch.SetHexColor("#000000")
	s.scratch.SetLineWidth(s.length(st.Size * eraserScale))
	trace(s.scratch)
	if err := s.scratch.Stroke(); err != nil {
		return err
	}

	// The pixmap is premultiplied, so color fades with alpha.
	mask := s.scratch.ResizeTarget().Data()
	dst := s.ctx.ResizeTarget().Data()
	for i := 3; i < len(dst) && i < len(mask); i += 4 {
		cover := uint32(mask[i])
		if cover == 0 {
			continue
		}
		for j := i - 3; j <= i; j++ {
			dst[j] = uint8(uint32(dst[j]) * (255 - cover) / 255)
		}
	}
	return nil
}

func (s *Surface) tracePath(c *gg.Context, st drawing.Stroke) {
	first, _ := st.First()
	last, _ := st.Last()
	x0, y0 := s.pixel(first)
	x1, y1 := s.pixel(last)

	switch st.Tool {
	case drawing.ToolLine:
		c.DrawLine(x0, y0, x1, y1)
	case drawing.ToolRect:
		// Traced back to the anchor so the outline closes on every rasterizer.
		c.MoveTo(x0, y0)
		c.LineTo(x1, y0)
		c.LineTo(x1, y1)
		c.LineTo(x0, y1)
		c.LineTo(x0, y0)
	case drawing.ToolCircle:
		c.DrawCircle(x0, y0, s.length(first.LayoutDistance(last, s.width, s.height)))
	default:
		c.MoveTo(x0, y0)
		for _, p := range st.Points[1:] {
			x, y := s.pixel(p)
			c.LineTo(x, y)
		}
	}
}
