// Package client connects a canvas reconciler to a drawing server over a
// WebSocket.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/drawsync/internal/canvas"
	"github.com/vovakirdan/drawsync/internal/drawing"
	"github.com/vovakirdan/drawsync/internal/proto"
)

// ErrClosed is returned when sending on a session that has stopped.
var ErrClosed = errors.New("session closed")

const outboundBuffer = 256

// Session is one connection to a drawing server. It owns the reconciler
// and the cursor cache that server events are dispatched to.
type Session struct {
	conn *websocket.Conn
	log  *zerolog.Logger

	canvas   *canvas.Reconciler
	presence *canvas.Presence

	outbound chan proto.Inbound
	done     chan struct{}
	stopOnce sync.Once

	mu     sync.Mutex
	self   drawing.Participant
	users  []drawing.Participant
	joined chan struct{}
	failed chan *proto.Error
}

// Option configures a Session.
type Option func(*sessionConfig)

type sessionConfig struct {
	log       *zerolog.Logger
	canvas    []canvas.Option
	cursorTTL time.Duration
	sweep     time.Duration
}

// WithLogger sets the session logger.
func WithLogger(l *zerolog.Logger) Option {
	return func(c *sessionConfig) {
		if l != nil {
			c.log = l
		}
	}
}

// WithCanvasOptions passes options to the session's reconciler.
func WithCanvasOptions(opts ...canvas.Option) Option {
	return func(c *sessionConfig) { c.canvas = append(c.canvas, opts...) }
}

// WithPresence overrides the cursor ttl and sweep interval.
func WithPresence(ttl, sweep time.Duration) Option {
	return func(c *sessionConfig) {
		c.cursorTTL = ttl
		c.sweep = sweep
	}
}

// Dial connects to the server WebSocket endpoint at url.
func Dial(ctx context.Context, url string, opts ...Option) (*Session, error) {
	nop := zerolog.Nop()
	cfg := sessionConfig{log: &nop}
	for _, opt := range opts {
		opt(&cfg)
	}

	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}

	s := &Session{
		conn:     conn,
		log:      cfg.log,
		presence: canvas.NewPresence(cfg.cursorTTL, cfg.sweep),
		outbound: make(chan proto.Inbound, outboundBuffer),
		done:     make(chan struct{}),
		joined:   make(chan struct{}),
		failed:   make(chan *proto.Error, 1),
	}
	s.canvas = canvas.NewReconciler("", s, append([]canvas.Option{canvas.WithLogger(cfg.log)}, cfg.canvas...)...)
	return s, nil
}

// Canvas returns the session's reconciler.
func (s *Session) Canvas() *canvas.Reconciler {
	return s.canvas
}

// Presence returns the session's cursor cache.
func (s *Session) Presence() *canvas.Presence {
	return s.presence
}

// Self returns the participant record the server assigned on join.
func (s *Session) Self() drawing.Participant {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.self
}

// Users returns the latest participant list of the room.
func (s *Session) Users() []drawing.Participant {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]drawing.Participant, len(s.users))
	copy(out, s.users)
	return out
}

// Send queues a message for the server. It implements canvas.Outbox.
func (s *Session) Send(msg proto.Inbound) error {
	select {
	case <-s.done:
		return ErrClosed
	default:
	}
	select {
	case s.outbound <- msg:
		return nil
	case <-s.done:
		return ErrClosed
	}
}

// Join asks to enter a room. Use WaitJoined to learn the outcome.
func (s *Session) Join(roomID, name, color string) error {
	data, err := json.Marshal(proto.JoinRoomData{RoomID: roomID, DisplayName: name, Color: color})
	if err != nil {
		return err
	}
	return s.Send(proto.Inbound{Type: proto.InboundTypeJoinRoom, Data: data})
}

// WaitJoined blocks until the server welcomed this session or rejected
// the join.
func (s *Session) WaitJoined(ctx context.Context) (drawing.Participant, error) {
	select {
	case <-s.joined:
		return s.Self(), nil
	case perr := <-s.failed:
		return drawing.Participant{}, perr
	case <-s.done:
		return drawing.Participant{}, ErrClosed
	case <-ctx.Done():
		return drawing.Participant{}, ctx.Err()
	}
}

// Run pumps the connection until ctx is cancelled or the connection fails.
func (s *Session) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer s.stop()

	go s.presence.Run(ctx)

	errCh := make(chan error, 2)
	go func() {
		errCh <- s.readLoop(ctx)
	}()
	go func() {
		errCh <- s.writeLoop(ctx)
	}()

	err := <-errCh
	cancel()
	<-errCh

	if errors.Is(err, context.Canceled) || websocket.CloseStatus(err) == websocket.StatusNormalClosure {
		err = nil
	}
	status := websocket.StatusNormalClosure
	if err != nil {
		status = websocket.StatusInternalError
	}
	s.conn.Close(status, "closing")
	return err
}

// Close ends the session.
func (s *Session) Close() error {
	s.stop()
	return s.conn.Close(websocket.StatusNormalClosure, "bye")
}

func (s *Session) stop() {
	s.stopOnce.Do(func() { close(s.done) })
}

func (s *Session) readLoop(ctx context.Context) error {
	for {
		var env proto.Envelope
		if err := wsjson.Read(ctx, s.conn, &env); err != nil {
			return err
		}
		if err := s.dispatch(env); err != nil {
			s.log.Warn().Err(err).Str("event", env.Event).Msg("failed to handle server event")
		}
	}
}

func (s *Session) writeLoop(ctx context.Context) error {
	for {
		select {
		case msg := <-s.outbound:
			if err := wsjson.Write(ctx, s.conn, msg); err != nil {
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (s *Session) dispatch(env proto.Envelope) error {
	if env.Type == proto.OutboundTypeError {
		if env.Error == nil {
			return nil
		}
		s.log.Warn().Str("code", env.Error.Code).Str("msg", env.Error.Msg).Msg("server error")
		select {
		case s.failed <- env.Error:
		default:
		}
		return nil
	}

	switch env.Event {
	case proto.EventWelcome:
		var msg proto.UserData
		if err := json.Unmarshal(env.Data, &msg); err != nil {
			return err
		}
		s.mu.Lock()
		first := s.self.ID == ""
		s.self = msg.User
		s.mu.Unlock()
		s.canvas.SetSelf(msg.User.ID)
		if first {
			close(s.joined)
		}
	case proto.EventCanvasState:
		var msg proto.CanvasStateData
		if err := json.Unmarshal(env.Data, &msg); err != nil {
			return err
		}
		s.canvas.ApplyCanvasState(msg.Strokes)
	case proto.EventRoomUsers:
		var msg proto.RoomUsersData
		if err := json.Unmarshal(env.Data, &msg); err != nil {
			return err
		}
		s.mu.Lock()
		s.users = msg.Users
		s.mu.Unlock()
	case proto.EventUserJoined:
		// The roomUsers broadcast that precedes it already carries the list.
	case proto.EventUserLeft:
		var msg proto.UserData
		if err := json.Unmarshal(env.Data, &msg); err != nil {
			return err
		}
		s.presence.Remove(msg.User.ID)
	case proto.EventStrokeStart:
		var msg proto.StrokeStartData
		if err := json.Unmarshal(env.Data, &msg); err != nil {
			return err
		}
		s.canvas.ApplyStrokeStart(msg)
	case proto.EventStrokePoint:
		var msg proto.StrokePointData
		if err := json.Unmarshal(env.Data, &msg); err != nil {
			return err
		}
		s.canvas.ApplyStrokePoint(msg)
	case proto.EventStrokeEnd:
		var msg proto.StrokeEndData
		if err := json.Unmarshal(env.Data, &msg); err != nil {
			return err
		}
		s.canvas.ApplyStrokeEnd(msg.Stroke)
	case proto.EventCursorMove:
		var msg proto.CursorMoveData
		if err := json.Unmarshal(env.Data, &msg); err != nil {
			return err
		}
		s.presence.Upsert(msg)
	default:
		s.log.Debug().Str("event", env.Event).Msg("ignoring unknown event")
	}
	return nil
}
