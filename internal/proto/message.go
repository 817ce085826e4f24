package proto

import (
	"encoding/json"

	"github.com/vovakirdan/drawsync/internal/drawing"
)

// Inbound is the envelope for messages coming from the client.
type Inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

const (
	InboundTypeJoinRoom    = "joinRoom"
	InboundTypeStrokeStart = "strokeStart"
	InboundTypeStrokePoint = "strokePoint"
	InboundTypeStrokeEnd   = "strokeEnd"
	InboundTypeUndo        = "undo"
	InboundTypeClearCanvas = "clearCanvas"
	InboundTypeCursorMove  = "cursorMove"

	OutboundTypeEvent = "event"
	OutboundTypeError = "error"

	EventWelcome     = "welcome"
	EventCanvasState = "canvasState"
	EventRoomUsers   = "roomUsers"
	EventUserJoined  = "userJoined"
	EventUserLeft    = "userLeft"
	EventStrokeStart = "strokeStart"
	EventStrokePoint = "strokePoint"
	EventStrokeEnd   = "strokeEnd"
	EventCursorMove  = "cursorMove"
)

// JoinRoomData asks to enter a room under a display name and color.
type JoinRoomData struct {
	RoomID      string `json:"roomId"`
	DisplayName string `json:"displayName"`
	Color       string `json:"color,omitempty"`
}

// StrokeStartData opens a stroke. Author is filled in by the server on relay
// and ignored when sent by a client.
type StrokeStartData struct {
	StrokeID   string        `json:"strokeId"`
	Tool       drawing.Tool  `json:"tool"`
	Color      string        `json:"color"`
	Size       float64       `json:"size"`
	Glow       bool          `json:"glow,omitempty"`
	StartPoint drawing.Point `json:"startPoint"`
	Author     string        `json:"author,omitempty"`
}

// StrokePointData extends the author's open stroke.
type StrokePointData struct {
	StrokeID string        `json:"strokeId"`
	Point    drawing.Point `json:"point"`
	Author   string        `json:"author,omitempty"`
}

// StrokeEndData carries the finalized stroke.
type StrokeEndData struct {
	Stroke *drawing.Stroke `json:"stroke"`
}

// CursorMoveData is a pointer position. The identity fields are stamped by
// the server.
type CursorMoveData struct {
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	UserID   string  `json:"userId,omitempty"`
	UserName string  `json:"userName,omitempty"`
	Color    string  `json:"color,omitempty"`
}

// CanvasStateData is a full snapshot of a room's committed history.
type CanvasStateData struct {
	Strokes []drawing.Stroke `json:"strokes"`
}

// RoomUsersData lists the participants currently in a room.
type RoomUsersData struct {
	Users []drawing.Participant `json:"users"`
}

// UserData describes a single participant (welcome, userJoined, userLeft).
type UserData struct {
	User drawing.Participant `json:"user"`
}

// Outbound is the envelope for messages sent to the client.
type Outbound struct {
	Type  string `json:"type"`
	Event string `json:"event,omitempty"`
	Data  any    `json:"data,omitempty"`
	Error *Error `json:"error,omitempty"`
}

// Envelope is Outbound as seen by a reader that decodes Data lazily.
type Envelope struct {
	Type  string          `json:"type"`
	Event string          `json:"event,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
	Error *Error          `json:"error,omitempty"`
}

// Error describes a protocol-level error response.
type Error struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
}

func (e *Error) Error() string {
	return e.Code + ": " + e.Msg
}
