package export

import (
	"bytes"
	"image"
	"image/png"
	"testing"

	"github.com/vovakirdan/drawsync/internal/drawing"
)

func redPen(pts ...drawing.Point) drawing.Stroke {
	return drawing.Stroke{ID: "s1", Author: "a", Tool: drawing.ToolPen, Color: "#ff0000", Size: 8, Points: pts}
}

func decode(t *testing.T, buf *bytes.Buffer) image.Image {
	t.Helper()

	img, err := png.Decode(buf)
	if err != nil {
		t.Fatalf("decode png: %v", err)
	}
	return img
}

func rgb(img image.Image, x, y int) (uint8, uint8, uint8) {
	r, g, b, _ := img.At(x, y).RGBA()
	return uint8(r >> 8), uint8(g >> 8), uint8(b >> 8)
}

func TestPNGFlattensOnWhite(t *testing.T) {
	strokes := []drawing.Stroke{
		redPen(drawing.Point{X: 0.1, Y: 0.5}, drawing.Point{X: 0.9, Y: 0.5}),
		{ID: "s2", Author: "a", Tool: drawing.ToolEraser, Size: 4, Points: []drawing.Point{{X: 0.5, Y: 0.2}, {X: 0.5, Y: 0.8}}},
	}

	var buf bytes.Buffer
	if err := PNG(&buf, strokes, 200, 100); err != nil {
		t.Fatalf("png: %v", err)
	}
	img := decode(t, &buf)

	if b := img.Bounds(); b.Dx() != 200 || b.Dy() != 100 {
		t.Fatalf("unexpected bounds %v", b)
	}
	if r, g, b := rgb(img, 2, 2); r != 255 || g != 255 || b != 255 {
		t.Fatalf("background not white: %d,%d,%d", r, g, b)
	}
	if r, g, b := rgb(img, 40, 50); r < 200 || g > 60 || b > 60 {
		t.Fatalf("expected red stroke, got %d,%d,%d", r, g, b)
	}
	if r, g, b := rgb(img, 100, 50); r != 255 || g != 255 || b != 255 {
		t.Fatalf("erased pixel should show paper, got %d,%d,%d", r, g, b)
	}
}

func TestPNGRejectsEmptySize(t *testing.T) {
	var buf bytes.Buffer
	if err := PNG(&buf, nil, 0, 10); err == nil {
		t.Fatal("expected error for zero width")
	}
}

func TestPDFWritesDocument(t *testing.T) {
	strokes := []drawing.Stroke{
		redPen(drawing.Point{X: 0.1, Y: 0.1}, drawing.Point{X: 0.2, Y: 0.3}, drawing.Point{X: 0.4, Y: 0.2}),
		{ID: "s2", Tool: drawing.ToolRect, Color: "#00f", Size: 2, Points: []drawing.Point{{X: 0.8, Y: 0.8}, {X: 0.6, Y: 0.5}}},
		{ID: "s3", Tool: drawing.ToolCircle, Size: 2, Points: []drawing.Point{{X: 0.5, Y: 0.5}, {X: 0.6, Y: 0.5}}},
		{ID: "s4", Tool: drawing.ToolLine, Color: "#00ff00", Size: 3, Points: []drawing.Point{{X: 0, Y: 0}, {X: 1, Y: 1}}},
		{ID: "s5", Tool: drawing.ToolEraser, Size: 5, Points: []drawing.Point{{X: 0.1, Y: 0.1}, {X: 0.3, Y: 0.3}}},
		{ID: "s6", Tool: drawing.ToolPen, Size: 5, Points: []drawing.Point{{X: 0.1, Y: 0.1}}},
	}

	var buf bytes.Buffer
	if err := PDF(&buf, strokes); err != nil {
		t.Fatalf("pdf: %v", err)
	}
	out := buf.Bytes()
	if !bytes.HasPrefix(out, []byte("%PDF-")) {
		t.Fatalf("missing pdf header: %q", out[:min(len(out), 16)])
	}
	if !bytes.Contains(out, []byte("%%EOF")) {
		t.Fatal("missing pdf trailer")
	}
}
