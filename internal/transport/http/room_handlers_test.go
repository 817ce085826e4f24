package http

import (
	"bytes"
	"context"
	"encoding/json"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/vovakirdan/drawsync/internal/drawing"
	"github.com/vovakirdan/drawsync/internal/proto"
)

func getJSON(t *testing.T, ts *httptest.Server, path string, out any) int {
	t.Helper()

	resp, err := ts.Client().Get(ts.URL + path)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	defer resp.Body.Close()

	if out != nil && resp.StatusCode == http.StatusOK {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s: %v", path, err)
		}
	}
	return resp.StatusCode
}

func TestHealthEndpoint(t *testing.T) {
	ts, _ := startTestServer(t)

	var health HealthResponse
	if status := getJSON(t, ts, "/health", &health); status != http.StatusOK {
		t.Fatalf("unexpected status: %d", status)
	}
	if health.Status != "ok" || health.RoomCount != 0 {
		t.Fatalf("unexpected health: %+v", health)
	}
}

func TestRoomExists(t *testing.T) {
	ts, _ := startTestServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var exists RoomExistsResponse
	getJSON(t, ts, "/room/studio", &exists)
	if exists.Exists {
		t.Fatal("room should not exist before anyone joins")
	}

	conn := dial(t, ctx, ts)
	joinRoom(t, ctx, conn, "studio", "alice")

	getJSON(t, ts, "/room/STUDIO", &exists)
	if !exists.Exists {
		t.Fatal("room should exist after a join")
	}

	var health HealthResponse
	getJSON(t, ts, "/health", &health)
	if health.RoomCount != 1 {
		t.Fatalf("expected one room, got %d", health.RoomCount)
	}
}

func TestExportMissingRoom(t *testing.T) {
	ts, _ := startTestServer(t)

	if status := getJSON(t, ts, "/room/nope/export.png", nil); status != http.StatusNotFound {
		t.Fatalf("png: expected 404, got %d", status)
	}
	if status := getJSON(t, ts, "/room/nope/export.pdf", nil); status != http.StatusNotFound {
		t.Fatalf("pdf: expected 404, got %d", status)
	}
}

func TestExportRoom(t *testing.T) {
	ts, _ := startTestServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	connA := dial(t, ctx, ts)
	connB := dial(t, ctx, ts)
	joinRoom(t, ctx, connA, "art", "alice")
	joinRoom(t, ctx, connB, "art", "bob")

	send(t, ctx, connA, proto.InboundTypeStrokeEnd, proto.StrokeEndData{Stroke: &drawing.Stroke{
		ID: "r1", Tool: drawing.ToolRect, Color: "#336699", Size: 3,
		Points: []drawing.Point{{X: 0.1, Y: 0.1}, {X: 0.4, Y: 0.3}},
	}})
	readUntil(t, ctx, connB, proto.EventStrokeEnd, nil)

	resp, err := ts.Client().Get(ts.URL + "/room/art/export.png?w=320&h=200")
	if err != nil {
		t.Fatalf("export png: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK || resp.Header.Get("Content-Type") != "image/png" {
		t.Fatalf("unexpected png response: %d %s", resp.StatusCode, resp.Header.Get("Content-Type"))
	}
	cfg, err := png.DecodeConfig(resp.Body)
	if err != nil {
		t.Fatalf("decode png: %v", err)
	}
	if cfg.Width != 320 || cfg.Height != 200 {
		t.Fatalf("unexpected png size %dx%d", cfg.Width, cfg.Height)
	}

	pdfResp, err := ts.Client().Get(ts.URL + "/room/art/export.pdf")
	if err != nil {
		t.Fatalf("export pdf: %v", err)
	}
	defer pdfResp.Body.Close()
	var body bytes.Buffer
	if _, err := body.ReadFrom(pdfResp.Body); err != nil {
		t.Fatalf("read pdf: %v", err)
	}
	if pdfResp.StatusCode != http.StatusOK || !bytes.HasPrefix(body.Bytes(), []byte("%PDF")) {
		t.Fatalf("unexpected pdf response: %d", pdfResp.StatusCode)
	}

	if status := getJSON(t, ts, "/room/art/export.png?w=-5", nil); status != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad width, got %d", status)
	}
}

func TestCORSPreflight(t *testing.T) {
	ts, _ := startTestServer(t)

	req, err := http.NewRequest(http.MethodOptions, ts.URL+"/health", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := ts.Client().Do(req)
	if err != nil {
		t.Fatalf("preflight: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.StatusCode)
	}
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("unexpected allow-origin %q", got)
	}
}
