package core

import "github.com/vovakirdan/drawsync/internal/drawing"

// EventKind is a notification the core emits to clients.
type EventKind int

const (
	// EventWelcome tells a joiner its own participant record.
	EventWelcome EventKind = iota
	// EventCanvasState delivers the full committed history of a room.
	EventCanvasState
	// EventRoomUsers delivers the current participant list.
	EventRoomUsers
	// EventUserJoined notifies clients about a participant arriving.
	EventUserJoined
	// EventUserLeft notifies clients about a participant leaving.
	EventUserLeft
	// EventStrokeStart relays a peer opening a stroke.
	EventStrokeStart
	// EventStrokePoint relays a peer extending its stroke.
	EventStrokePoint
	// EventStrokeEnd relays a peer's committed stroke.
	EventStrokeEnd
	// EventCursorMove relays a peer's pointer position.
	EventCursorMove
	// EventError notifies clients about a domain error.
	EventError
)

// Event is sent to clients to describe what happened in the system.
type Event struct {
	Kind    EventKind
	Room    string
	User    *drawing.Participant // welcome, joined, left
	Users   []drawing.Participant
	Strokes []drawing.Stroke // canvas state
	Stroke  *drawing.Stroke  // stroke end
	Start   *StrokeStart
	Point   *StrokePoint
	Cursor  *Cursor
	Error   *CoreError
}

// Cursor is a pointer position stamped with the sender's identity.
type Cursor struct {
	Position drawing.Point
	UserID   string
	UserName string
	Color    string
}
