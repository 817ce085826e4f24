// Package export renders a room's committed history into portable files.
package export

import (
	"fmt"
	"io"

	"github.com/gogpu/gg"

	"github.com/vovakirdan/drawsync/internal/canvas"
	"github.com/vovakirdan/drawsync/internal/drawing"
)

// PNG renders strokes onto an opaque white width x height image.
func PNG(w io.Writer, strokes []drawing.Stroke, width, height int) error {
	surface, err := canvas.NewSurface(float64(width), float64(height), 1)
	if err != nil {
		return fmt.Errorf("export png: %w", err)
	}
	for _, st := range strokes {
		if err := surface.DrawStroke(st); err != nil {
			return fmt.Errorf("export png: stroke %s: %w", st.ID, err)
		}
	}

	// Erased pixels are transparent on the surface; the paper shows through.
	paper := gg.NewContext(width, height)
	paper.ClearWithColor(gg.White)
	paper.DrawImage(gg.ImageBufFromImage(surface.Image()), 0, 0)
	return paper.EncodePNG(w)
}
