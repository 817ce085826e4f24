package core

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/drawsync/internal/drawing"
)

// DefaultGracePeriod is how long an empty room survives before deletion.
const DefaultGracePeriod = time.Hour

// Hub owns every room and processes all client commands on a single loop.
// Each command runs to completion before the next one is taken, so room
// state needs no further locking.
type Hub struct {
	registry *Registry
	register chan *Client
	inbox    chan envelope
	calls    chan func()
	done     chan struct{}

	grace time.Duration
	now   func() time.Time
	log   *zerolog.Logger

	slow []*Client
}

// envelope pairs a command with its sender. A nil command means the
// sender disconnected.
type envelope struct {
	client *Client
	cmd    *Command
}

// Option configures a Hub.
type Option func(*Hub)

// WithGracePeriod sets how long an empty room is kept before deletion.
func WithGracePeriod(d time.Duration) Option {
	return func(h *Hub) { h.grace = d }
}

// WithLogger sets the hub logger.
func WithLogger(l *zerolog.Logger) Option {
	return func(h *Hub) {
		if l != nil {
			h.log = l
		}
	}
}

// WithClock overrides the time source used for join timestamps.
func WithClock(now func() time.Time) Option {
	return func(h *Hub) {
		if now != nil {
			h.now = now
		}
	}
}

// NewHub creates a new hub instance.
func NewHub(opts ...Option) *Hub {
	nop := zerolog.Nop()
	h := &Hub{
		registry: NewRegistry(),
		register: make(chan *Client),
		inbox:    make(chan envelope, 256),
		calls:    make(chan func()),
		done:     make(chan struct{}),
		grace:    DefaultGracePeriod,
		now:      time.Now,
		log:      &nop,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Registry exposes the room registry for read-only queries.
func (h *Hub) Registry() *Registry {
	return h.registry
}

// Run processes commands until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			return
		case c := <-h.register:
			go h.pump(ctx, c)
		case env := <-h.inbox:
			h.dispatch(env.client, env.cmd)
		case fn := <-h.calls:
			fn()
		}
		h.evictSlow()
	}
}

// RegisterClient attaches a client to the hub. Commands sent on the
// client's channel are processed in order.
func (h *Hub) RegisterClient(c *Client) {
	select {
	case h.register <- c:
	case <-h.done:
	}
}

// UnregisterClient ends the client's command stream. Commands already sent
// are processed before the disconnect.
func (h *Hub) UnregisterClient(c *Client) {
	c.closeCommands()
}

// Snapshot returns a copy of a room's committed history as seen by the hub
// loop at the time the request is handled.
func (h *Hub) Snapshot(ctx context.Context, roomID string) ([]drawing.Stroke, error) {
	type result struct {
		strokes []drawing.Stroke
		ok      bool
	}
	reply := make(chan result, 1)

	err := h.call(ctx, func() {
		room, ok := h.registry.Lookup(roomID)
		if !ok {
			reply <- result{}
			return
		}
		reply <- result{strokes: room.Strokes(), ok: true}
	})
	if err != nil {
		return nil, err
	}

	select {
	case r := <-reply:
		if !r.ok {
			return nil, ErrRoomNotFound
		}
		return r.strokes, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (h *Hub) call(ctx context.Context, fn func()) error {
	select {
	case h.calls <- fn:
		return nil
	case <-h.done:
		return ErrHubStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *Hub) pump(ctx context.Context, c *Client) {
	for {
		select {
		case cmd, ok := <-c.Commands:
			if !h.enqueue(ctx, envelope{client: c, cmd: cmd}) || !ok {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

func (h *Hub) enqueue(ctx context.Context, env envelope) bool {
	select {
	case h.inbox <- env:
		return true
	case <-ctx.Done():
		return false
	}
}

func (h *Hub) dispatch(c *Client, cmd *Command) {
	if cmd == nil {
		h.disconnect(c)
		return
	}
	if cmd.Kind == CommandJoinRoom {
		h.join(c, cmd.Join)
		return
	}

	room, ok := h.registry.Lookup(c.room)
	if c.room == "" || !ok {
		h.log.Debug().Str("client_id", c.ID).Stringer("command", cmd.Kind).Msg("dropping command outside a room")
		return
	}

	switch cmd.Kind {
	case CommandStrokeStart:
		h.strokeStart(c, room, cmd.Start)
	case CommandStrokePoint:
		h.strokePoint(c, room, cmd.Point)
	case CommandStrokeEnd:
		h.strokeEnd(c, room, cmd.Stroke)
	case CommandUndo:
		h.undo(c, room)
	case CommandClear:
		h.clear(c, room)
	case CommandCursorMove:
		h.cursorMove(c, room, cmd.Cursor)
	}
}

func (h *Hub) join(c *Client, req *JoinRequest) {
	if req == nil || strings.TrimSpace(req.Name) == "" {
		h.deliver(c, &Event{Kind: EventError, Error: coreError(ErrCodeNameRequired, "display name is required")})
		return
	}
	roomID := NormalizeRoomID(req.Room)
	if roomID == "" {
		h.deliver(c, &Event{Kind: EventError, Error: coreError(ErrCodeBadRequest, "room id is required")})
		return
	}

	if c.room != "" {
		h.leave(c)
	}

	room, created := h.registry.GetOrCreate(roomID)
	if created {
		h.log.Info().Str("room", room.ID).Msg("room created")
	}
	room.cancelGC()

	c.name = strings.TrimSpace(req.Name)
	c.color = req.Color
	if c.color == "" {
		c.color = drawing.DefaultColor
	}
	c.joinedAt = h.now().UnixMilli()
	c.room = room.ID
	c.drawing = ""
	room.AddClient(c)

	self := c.Participant()
	h.deliver(c, &Event{Kind: EventWelcome, Room: room.ID, User: &self})
	h.deliver(c, &Event{Kind: EventCanvasState, Room: room.ID, Strokes: room.Strokes()})
	h.broadcast(room, &Event{Kind: EventRoomUsers, Room: room.ID, Users: room.Participants()}, nil)
	h.broadcast(room, &Event{Kind: EventUserJoined, Room: room.ID, User: &self}, c)

	h.log.Info().
		Str("room", room.ID).
		Str("client_id", c.ID).
		Str("name", c.name).
		Int("online", len(room.clients)).
		Msg("participant joined")
}

func (h *Hub) leave(c *Client) {
	room, ok := h.registry.Lookup(c.room)
	c.room = ""
	c.drawing = ""
	if !ok || !room.RemoveClient(c) {
		return
	}

	self := c.Participant()
	h.broadcast(room, &Event{Kind: EventRoomUsers, Room: room.ID, Users: room.Participants()}, nil)
	h.broadcast(room, &Event{Kind: EventUserLeft, Room: room.ID, User: &self}, nil)

	h.log.Info().
		Str("room", room.ID).
		Str("client_id", c.ID).
		Str("name", c.name).
		Int("remaining", len(room.clients)).
		Msg("participant left")

	if room.Empty() {
		h.scheduleGC(room)
	}
}

func (h *Hub) disconnect(c *Client) {
	if c.room != "" {
		h.leave(c)
	}
	c.shutdown()
}

func (h *Hub) scheduleGC(room *Room) {
	room.cancelGC()
	if h.grace <= 0 {
		h.collect(room.ID, room.gcGen)
		return
	}

	id, gen := room.ID, room.gcGen
	room.gcTimer = time.AfterFunc(h.grace, func() {
		_ = h.call(context.Background(), func() { h.collect(id, gen) })
	})
}

func (h *Hub) collect(id string, gen uint64) {
	room, ok := h.registry.Lookup(id)
	if !ok || room.gcGen != gen {
		return
	}
	if h.registry.RemoveIfEmpty(id) {
		h.log.Info().Str("room", id).Msg("empty room cleaned up")
	}
}

func (h *Hub) strokeStart(c *Client, room *Room, start *StrokeStart) {
	if start == nil {
		return
	}
	relay := *start
	relay.Author = c.ID
	c.drawing = relay.StrokeID

	h.broadcast(room, &Event{Kind: EventStrokeStart, Room: room.ID, Start: &relay}, c)
}

func (h *Hub) strokePoint(c *Client, room *Room, point *StrokePoint) {
	if point == nil {
		return
	}
	if c.drawing == "" || c.drawing != point.StrokeID {
		h.log.Debug().
			Str("client_id", c.ID).
			Str("stroke_id", point.StrokeID).
			Msg("dropping point for stroke that is not open")
		return
	}
	relay := *point
	relay.Author = c.ID

	h.broadcast(room, &Event{Kind: EventStrokePoint, Room: room.ID, Point: &relay}, c)
}

func (h *Hub) strokeEnd(c *Client, room *Room, stroke *drawing.Stroke) {
	if stroke == nil {
		return
	}
	committed := stroke.Clone()
	committed.Author = c.ID
	c.drawing = ""
	room.Commit(committed)

	relay := committed.Clone()
	h.broadcast(room, &Event{Kind: EventStrokeEnd, Room: room.ID, Stroke: &relay}, c)
}

func (h *Hub) undo(c *Client, room *Room) {
	removed := room.UndoLast(c.ID)
	h.broadcast(room, &Event{Kind: EventCanvasState, Room: room.ID, Strokes: room.Strokes()}, nil)

	h.log.Debug().Str("room", room.ID).Str("client_id", c.ID).Bool("removed", removed).Msg("undo")
}

func (h *Hub) clear(c *Client, room *Room) {
	room.Clear()
	h.broadcast(room, &Event{Kind: EventCanvasState, Room: room.ID, Strokes: room.Strokes()}, nil)

	h.log.Info().Str("room", room.ID).Str("name", c.name).Msg("canvas cleared")
}

func (h *Hub) cursorMove(c *Client, room *Room, pos drawing.Point) {
	h.broadcast(room, &Event{
		Kind: EventCursorMove,
		Room: room.ID,
		Cursor: &Cursor{
			Position: pos,
			UserID:   c.ID,
			UserName: c.name,
			Color:    c.color,
		},
	}, c)
}

func (h *Hub) deliver(c *Client, ev *Event) {
	if !c.offer(ev) {
		h.slow = append(h.slow, c)
	}
}

func (h *Hub) broadcast(room *Room, ev *Event, skip *Client) {
	h.slow = append(h.slow, room.Broadcast(ev, skip)...)
}

// evictSlow disconnects clients that could not keep up. They resynchronize
// by joining again.
func (h *Hub) evictSlow() {
	for len(h.slow) > 0 {
		c := h.slow[0]
		h.slow = h.slow[1:]
		if c.closed {
			continue
		}
		h.log.Warn().Str("client_id", c.ID).Str("room", c.room).Msg("evicting slow consumer")
		h.disconnect(c)
	}
}
