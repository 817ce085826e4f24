// Package drawing holds the shared document model exchanged between the
// relay server and drawing clients.
//
// All positions live in one surface-relative coordinate space: x and y are
// fractions of the current surface width and height, so a stroke drawn on
// one participant's viewport lands in the same relative place on every
// other viewport regardless of its pixel size or device pixel ratio.
package drawing

import "math"

// Tool selects how a stroke's points are turned into geometry.
type Tool string

const (
	ToolPen    Tool = "pen"
	ToolEraser Tool = "eraser"
	ToolLine   Tool = "line"
	ToolRect   Tool = "rect"
	ToolCircle Tool = "circle"
)

// Valid reports whether t is one of the known tools.
func (t Tool) Valid() bool {
	switch t {
	case ToolPen, ToolEraser, ToolLine, ToolRect, ToolCircle:
		return true
	default:
		return false
	}
}

// IsShape reports whether t previews from a fixed anchor to the latest
// point. Shape strokes always carry exactly two points.
func (t Tool) IsShape() bool {
	return t == ToolLine || t == ToolRect || t == ToolCircle
}

// Point is a position in normalized surface coordinates.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Normalize converts a layout-space position into normalized coordinates
// against a surface of the given layout size.
func Normalize(x, y, width, height float64) Point {
	if width <= 0 || height <= 0 {
		return Point{}
	}
	return Point{X: x / width, Y: y / height}
}

// Denormalize maps p back into layout units of a surface.
func (p Point) Denormalize(width, height float64) (float64, float64) {
	return p.X * width, p.Y * height
}

// LayoutDistance is the distance between p and q measured in layout units
// of a width x height surface.
func (p Point) LayoutDistance(q Point, width, height float64) float64 {
	return math.Hypot((q.X-p.X)*width, (q.Y-p.Y)*height)
}

// DefaultColor is assigned to participants and strokes that arrive without one.
const DefaultColor = "#e94560"

// Stroke is one discrete drawing operation. Once committed to a room's
// history a stroke is never mutated.
type Stroke struct {
	ID     string  `json:"id"`
	Author string  `json:"author,omitempty"`
	Tool   Tool    `json:"tool"`
	Color  string  `json:"color"`
	Size   float64 `json:"size"`
	Glow   bool    `json:"glow,omitempty"`
	Points []Point `json:"points"`
}

// Clone returns a deep copy of s.
func (s Stroke) Clone() Stroke {
	out := s
	if s.Points != nil {
		out.Points = make([]Point, len(s.Points))
		copy(out.Points, s.Points)
	}
	return out
}

// First returns the anchor point of the stroke.
func (s Stroke) First() (Point, bool) {
	if len(s.Points) == 0 {
		return Point{}, false
	}
	return s.Points[0], true
}

// Last returns the most recent point of the stroke.
func (s Stroke) Last() (Point, bool) {
	if len(s.Points) == 0 {
		return Point{}, false
	}
	return s.Points[len(s.Points)-1], true
}

// Extend adds p to the stroke following the tool's point rule: freeform
// tools append, shape tools keep the anchor and replace the second point.
func (s *Stroke) Extend(p Point) {
	if s.Tool.IsShape() && len(s.Points) > 0 {
		s.Points = append(s.Points[:1], p)
		return
	}
	s.Points = append(s.Points, p)
}

// CloneStrokes deep-copies a stroke slice. A nil input yields an empty,
// non-nil slice so it encodes as [] on the wire.
func CloneStrokes(in []Stroke) []Stroke {
	out := make([]Stroke, len(in))
	for i := range in {
		out[i] = in[i].Clone()
	}
	return out
}

// Participant is a connection that joined a room.
type Participant struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Color    string `json:"color"`
	JoinedAt int64  `json:"joinedAt"`
}
