package export

import (
	"fmt"
	"io"
	"math"

	"github.com/gogpu/gg"
	"github.com/jung-kurt/gofpdf"

	"github.com/vovakirdan/drawsync/internal/drawing"
)

// pdfReferenceWidth is the layout width, in pixels, that spans the page.
// Stroke sizes are scaled against it.
const pdfReferenceWidth = 1280.0

const pdfEraserScale = 3

// PDF writes strokes as vector paths on one landscape A4 page.
func PDF(w io.Writer, strokes []drawing.Stroke) error {
	doc := gofpdf.New("L", "mm", "A4", "")
	doc.AddPage()
	doc.SetLineCapStyle("round")
	doc.SetLineJoinStyle("round")

	pageW, pageH := doc.GetPageSize()
	mm := pageW / pdfReferenceWidth

	for _, st := range strokes {
		if len(st.Points) < 2 {
			continue
		}
		width := st.Size * mm
		if st.Tool == drawing.ToolEraser {
			doc.SetDrawColor(255, 255, 255)
			width *= pdfEraserScale
		} else {
			setDrawColor(doc, st.Color)
		}
		doc.SetLineWidth(width)
		tracePDF(doc, st, pageW, pageH)
	}

	if err := doc.Error(); err != nil {
		return fmt.Errorf("export pdf: %w", err)
	}
	return doc.Output(w)
}

func setDrawColor(doc *gofpdf.Fpdf, hex string) {
	if hex == "" {
		hex = drawing.DefaultColor
	}
	c := gg.Hex(hex)
	doc.SetDrawColor(int(math.Round(c.R*255)), int(math.Round(c.G*255)), int(math.Round(c.B*255)))
}

func tracePDF(doc *gofpdf.Fpdf, st drawing.Stroke, pageW, pageH float64) {
	first, _ := st.First()
	last, _ := st.Last()
	x0, y0 := first.Denormalize(pageW, pageH)
	x1, y1 := last.Denormalize(pageW, pageH)

	switch st.Tool {
	case drawing.ToolLine:
		doc.Line(x0, y0, x1, y1)
	case drawing.ToolRect:
		doc.Rect(math.Min(x0, x1), math.Min(y0, y1), math.Abs(x1-x0), math.Abs(y1-y0), "D")
	case drawing.ToolCircle:
		doc.Circle(x0, y0, first.LayoutDistance(last, pageW, pageH), "D")
	default:
		px, py := x0, y0
		for _, p := range st.Points[1:] {
			x, y := p.Denormalize(pageW, pageH)
			doc.Line(px, py, x, y)
			px, py = x, y
		}
	}
}
