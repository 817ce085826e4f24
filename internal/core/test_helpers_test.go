package core

import (
	"context"
	"testing"
	"time"

	"github.com/vovakirdan/drawsync/internal/drawing"
)

func mustEvent(t *testing.T, ch <-chan *Event, kind EventKind) *Event {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		select {
		case ev := <-ch:
			if ev == nil {
				continue
			}
			if ev.Kind == kind {
				return ev
			}
		default:
			time.Sleep(5 * time.Millisecond)
		}
	}
	t.Fatalf("expected event kind %v not received", kind)
	return nil
}

// expectSilence fails if an event of kind arrives within d.
func expectSilence(t *testing.T, ch <-chan *Event, kind EventKind, d time.Duration) {
	t.Helper()

	timer := time.NewTimer(d)
	defer timer.Stop()
	for {
		select {
		case ev := <-ch:
			if ev != nil && ev.Kind == kind {
				t.Fatalf("unexpected event %v: %+v", kind, ev)
			}
		case <-timer.C:
			return
		}
	}
}

func startHub(t *testing.T, opts ...Option) *Hub {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)

	hub := NewHub(opts...)
	go hub.Run(ctx)
	return hub
}

func joinClient(t *testing.T, hub *Hub, id, name, room string) *Client {
	t.Helper()

	c := NewClient(id, 0)
	hub.RegisterClient(c)
	c.Commands <- &Command{Kind: CommandJoinRoom, Join: &JoinRequest{Room: room, Name: name}}
	mustEvent(t, c.Events, EventWelcome)
	return c
}

func penStroke(id string, pts ...drawing.Point) *drawing.Stroke {
	return &drawing.Stroke{ID: id, Tool: drawing.ToolPen, Color: "#000000", Size: 4, Points: pts}
}

func snapshot(t *testing.T, hub *Hub, room string) []drawing.Stroke {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	strokes, err := hub.Snapshot(ctx, room)
	if err != nil {
		t.Fatalf("snapshot %s: %v", room, err)
	}
	return strokes
}
