package http

import (
	"encoding/json"
	"strings"

	"github.com/vovakirdan/drawsync/internal/core"
	"github.com/vovakirdan/drawsync/internal/drawing"
	"github.com/vovakirdan/drawsync/internal/proto"
)

func inboundToCommand(inbound proto.Inbound) (*core.Command, *proto.Error, error) {
	switch inbound.Type {
	case proto.InboundTypeJoinRoom:
		var join proto.JoinRoomData
		if err := json.Unmarshal(inbound.Data, &join); err != nil {
			return nil, nil, err
		}
		if strings.TrimSpace(join.RoomID) == "" {
			return nil, &proto.Error{Code: core.ErrCodeBadRequest, Msg: "roomId is required"}, nil
		}
		if strings.TrimSpace(join.DisplayName) == "" {
			return nil, &proto.Error{Code: core.ErrCodeNameRequired, Msg: "displayName is required"}, nil
		}
		return &core.Command{
			Kind: core.CommandJoinRoom,
			Join: &core.JoinRequest{
				Room:  join.RoomID,
				Name:  join.DisplayName,
				Color: join.Color,
			},
		}, nil, nil
	case proto.InboundTypeStrokeStart:
		var start proto.StrokeStartData
		if err := json.Unmarshal(inbound.Data, &start); err != nil {
			return nil, nil, err
		}
		if start.StrokeID == "" || !start.Tool.Valid() {
			return nil, &proto.Error{Code: core.ErrCodeBadRequest, Msg: "strokeId and a known tool are required"}, nil
		}
		return &core.Command{
			Kind: core.CommandStrokeStart,
			Start: &core.StrokeStart{
				StrokeID:   start.StrokeID,
				Tool:       start.Tool,
				Color:      start.Color,
				Size:       start.Size,
				Glow:       start.Glow,
				StartPoint: start.StartPoint,
			},
		}, nil, nil
	case proto.InboundTypeStrokePoint:
		var point proto.StrokePointData
		if err := json.Unmarshal(inbound.Data, &point); err != nil {
			return nil, nil, err
		}
		if point.StrokeID == "" {
			return nil, &proto.Error{Code: core.ErrCodeBadRequest, Msg: "strokeId is required"}, nil
		}
		return &core.Command{
			Kind:  core.CommandStrokePoint,
			Point: &core.StrokePoint{StrokeID: point.StrokeID, Point: point.Point},
		}, nil, nil
	case proto.InboundTypeStrokeEnd:
		var end proto.StrokeEndData
		if err := json.Unmarshal(inbound.Data, &end); err != nil {
			return nil, nil, err
		}
		if end.Stroke == nil || end.Stroke.ID == "" || !end.Stroke.Tool.Valid() {
			return nil, &proto.Error{Code: core.ErrCodeBadRequest, Msg: "stroke with id and a known tool is required"}, nil
		}
		if end.Stroke.Color == "" {
			end.Stroke.Color = drawing.DefaultColor
		}
		return &core.Command{Kind: core.CommandStrokeEnd, Stroke: end.Stroke}, nil, nil
	case proto.InboundTypeUndo:
		return &core.Command{Kind: core.CommandUndo}, nil, nil
	case proto.InboundTypeClearCanvas:
		return &core.Command{Kind: core.CommandClear}, nil, nil
	case proto.InboundTypeCursorMove:
		var cursor proto.CursorMoveData
		if err := json.Unmarshal(inbound.Data, &cursor); err != nil {
			return nil, nil, err
		}
		return &core.Command{
			Kind:   core.CommandCursorMove,
			Cursor: drawing.Point{X: cursor.X, Y: cursor.Y},
		}, nil, nil
	default:
		return nil, &proto.Error{Code: core.ErrCodeInvalidMessage, Msg: "unknown message type"}, nil
	}
}

func outboundFromEvent(event *core.Event) proto.Outbound {
	switch event.Kind {
	case core.EventWelcome:
		return userEvent(proto.EventWelcome, event.User)
	case core.EventCanvasState:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventCanvasState,
			Data:  proto.CanvasStateData{Strokes: drawing.CloneStrokes(event.Strokes)},
		}
	case core.EventRoomUsers:
		users := event.Users
		if users == nil {
			users = []drawing.Participant{}
		}
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventRoomUsers,
			Data:  proto.RoomUsersData{Users: users},
		}
	case core.EventUserJoined:
		return userEvent(proto.EventUserJoined, event.User)
	case core.EventUserLeft:
		return userEvent(proto.EventUserLeft, event.User)
	case core.EventStrokeStart:
		s := event.Start
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventStrokeStart,
			Data: proto.StrokeStartData{
				StrokeID:   s.StrokeID,
				Tool:       s.Tool,
				Color:      s.Color,
				Size:       s.Size,
				Glow:       s.Glow,
				StartPoint: s.StartPoint,
				Author:     s.Author,
			},
		}
	case core.EventStrokePoint:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventStrokePoint,
			Data: proto.StrokePointData{
				StrokeID: event.Point.StrokeID,
				Point:    event.Point.Point,
				Author:   event.Point.Author,
			},
		}
	case core.EventStrokeEnd:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventStrokeEnd,
			Data:  proto.StrokeEndData{Stroke: event.Stroke},
		}
	case core.EventCursorMove:
		c := event.Cursor
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventCursorMove,
			Data: proto.CursorMoveData{
				X:        c.Position.X,
				Y:        c.Position.Y,
				UserID:   c.UserID,
				UserName: c.UserName,
				Color:    c.Color,
			},
		}
	case core.EventError:
		if event.Error == nil {
			return proto.Outbound{Type: proto.OutboundTypeError, Error: &proto.Error{Code: "unknown", Msg: "unknown error"}}
		}
		return proto.Outbound{
			Type:  proto.OutboundTypeError,
			Error: &proto.Error{Code: event.Error.Code, Msg: event.Error.Message},
		}
	default:
		return proto.Outbound{Type: proto.OutboundTypeEvent}
	}
}

func userEvent(name string, user *drawing.Participant) proto.Outbound {
	var data proto.UserData
	if user != nil {
		data.User = *user
	}
	return proto.Outbound{Type: proto.OutboundTypeEvent, Event: name, Data: data}
}
