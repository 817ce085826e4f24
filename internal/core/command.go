package core

import "github.com/vovakirdan/drawsync/internal/drawing"

// CommandKind describes what the client wants to do.
type CommandKind int

const (
	// CommandJoinRoom registers the client as a participant of a room.
	CommandJoinRoom CommandKind = iota
	// CommandStrokeStart opens the client's in-progress stroke.
	CommandStrokeStart
	// CommandStrokePoint extends the client's in-progress stroke.
	CommandStrokePoint
	// CommandStrokeEnd commits a finalized stroke to room history.
	CommandStrokeEnd
	// CommandUndo removes the client's most recent committed stroke.
	CommandUndo
	// CommandClear empties the room history.
	CommandClear
	// CommandCursorMove relays the client's pointer position.
	CommandCursorMove
)

func (k CommandKind) String() string {
	switch k {
	case CommandJoinRoom:
		return "join_room"
	case CommandStrokeStart:
		return "stroke_start"
	case CommandStrokePoint:
		return "stroke_point"
	case CommandStrokeEnd:
		return "stroke_end"
	case CommandUndo:
		return "undo"
	case CommandClear:
		return "clear"
	case CommandCursorMove:
		return "cursor_move"
	default:
		return "unknown"
	}
}

// Command represents an action requested by a client. Only the fields
// relevant to Kind are set.
type Command struct {
	Kind   CommandKind
	Join   *JoinRequest
	Start  *StrokeStart
	Point  *StrokePoint
	Stroke *drawing.Stroke
	Cursor drawing.Point
}

// JoinRequest carries the joinRoom payload.
type JoinRequest struct {
	Room  string
	Name  string
	Color string
}

// StrokeStart opens a stroke. Author is always the relaying server's view of
// the sender, never what the client claimed.
type StrokeStart struct {
	StrokeID   string
	Tool       drawing.Tool
	Color      string
	Size       float64
	Glow       bool
	StartPoint drawing.Point
	Author     string
}

// StrokePoint extends the author's open stroke.
type StrokePoint struct {
	StrokeID string
	Point    drawing.Point
	Author   string
}
