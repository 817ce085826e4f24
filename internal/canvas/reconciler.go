// Package canvas is the client side of a drawing session: it merges the
// committed history, peers' in-progress strokes and the local pending stroke
// into one raster, and turns pointer input into protocol messages.
package canvas

import (
	"encoding/json"
	"fmt"
	"image"
	"sync"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/drawsync/internal/drawing"
	"github.com/vovakirdan/drawsync/internal/proto"
	"github.com/vovakirdan/drawsync/internal/utils"
)

const (
	// MinPointDistance is how far, in layout pixels, a freeform stroke must
	// travel before another strokePoint is sent.
	MinPointDistance = 2.0

	defaultWidth  = 800
	defaultHeight = 600
)

// Outbox is the connection a reconciler sends protocol messages on.
type Outbox interface {
	Send(msg proto.Inbound) error
}

// Style is the tool configuration for a new local stroke.
type Style struct {
	Tool  drawing.Tool
	Color string
	Size  float64
	Glow  bool
}

type strokeState int

const (
	stateIdle strokeState = iota
	stateDrawing
)

// track is the in-progress stroke of one author: idle, or drawing exactly
// one stroke.
type track struct {
	state  strokeState
	stroke drawing.Stroke
}

func (t *track) begin(st drawing.Stroke) {
	t.state = stateDrawing
	t.stroke = st
}

// extend appends p when the track is drawing strokeID and returns the point
// it extends from.
func (t *track) extend(strokeID string, p drawing.Point) (drawing.Point, bool) {
	if t.state != stateDrawing || t.stroke.ID != strokeID {
		return drawing.Point{}, false
	}
	prev, _ := t.stroke.Last()
	t.stroke.Extend(p)
	return prev, true
}

func (t *track) finish() drawing.Stroke {
	st := t.stroke
	t.state = stateIdle
	t.stroke = drawing.Stroke{}
	return st
}

// Reconciler is the single owner of what a client rasterizes. All methods
// are safe for concurrent use; pointer handlers and network handlers are
// serialized on one lock.
type Reconciler struct {
	mu sync.Mutex

	self string
	out  Outbox
	log  *zerolog.Logger

	surface *Surface
	newID   func(author string) string

	history []drawing.Stroke
	remote  map[string]*track
	// order keeps remote authors in first-seen order so redraws are stable.
	order []string
	local track

	lastEmitted drawing.Point
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithLogger sets the reconciler logger.
func WithLogger(l *zerolog.Logger) Option {
	return func(r *Reconciler) {
		if l != nil {
			r.log = l
		}
	}
}

// WithSurface replaces the default raster surface.
func WithSurface(s *Surface) Option {
	return func(r *Reconciler) {
		if s != nil {
			r.surface = s
		}
	}
}

// WithStrokeIDs overrides stroke id generation.
func WithStrokeIDs(fn func(author string) string) Option {
	return func(r *Reconciler) {
		if fn != nil {
			r.newID = fn
		}
	}
}

// NewReconciler builds a reconciler for the participant self that sends on out.
func NewReconciler(self string, out Outbox, opts ...Option) *Reconciler {
	nop := zerolog.Nop()
	r := &Reconciler{
		self:    self,
		out:     out,
		log:     &nop,
		newID:   utils.NewStrokeID,
		history: []drawing.Stroke{},
		remote:  make(map[string]*track),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.surface == nil {
		r.surface, _ = NewSurface(defaultWidth, defaultHeight, 1)
	}
	return r
}

// SetSelf sets the local identity once the server has assigned it.
func (r *Reconciler) SetSelf(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.self = id
}

// Self returns the local identity.
func (r *Reconciler) Self() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.self
}

// PointerDown opens a local stroke at p, given in layout units. It is
// ignored while a stroke is already open.
func (r *Reconciler) PointerDown(p drawing.Point, style Style) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.local.state == stateDrawing {
		return nil
	}
	if !style.Tool.Valid() {
		return fmt.Errorf("unknown tool %q", style.Tool)
	}
	color := style.Color
	if color == "" {
		color = drawing.DefaultColor
	}

	pos := r.normalize(p)
	r.local.begin(drawing.Stroke{
		ID:     r.newID(r.self),
		Author: r.self,
		Tool:   style.Tool,
		Color:  color,
		Size:   style.Size,
		Glow:   style.Glow,
		Points: []drawing.Point{pos},
	})
	r.lastEmitted = pos

	st := r.local.stroke
	return r.send(proto.InboundTypeStrokeStart, proto.StrokeStartData{
		StrokeID:   st.ID,
		Tool:       st.Tool,
		Color:      st.Color,
		Size:       st.Size,
		Glow:       st.Glow,
		StartPoint: pos,
	})
}

// PointerMove reports pointer motion in layout units. The cursor position
// is always sent; the stroke point only when it moved far enough, except
// for shape tools whose preview tracks every motion.
func (r *Reconciler) PointerMove(p drawing.Point) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	pos := r.normalize(p)
	if err := r.send(proto.InboundTypeCursorMove, proto.CursorMoveData{X: pos.X, Y: pos.Y}); err != nil {
		return err
	}
	if r.local.state != stateDrawing {
		return nil
	}

	st := &r.local.stroke
	prev, _ := r.local.extend(st.ID, pos)
	shape := st.Tool.IsShape()
	if shape {
		r.redraw()
	} else {
		r.draw(r.surface.DrawSegment(*st, prev, pos))
	}

	w, h := r.surface.LayoutSize()
	if !shape && r.lastEmitted.LayoutDistance(pos, w, h) < MinPointDistance {
		return nil
	}
	r.lastEmitted = pos
	return r.send(proto.InboundTypeStrokePoint, proto.StrokePointData{StrokeID: st.ID, Point: pos})
}

// PointerUp finalizes the local stroke: it joins the local history and is
// sent as strokeEnd.
func (r *Reconciler) PointerUp() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.local.state != stateDrawing {
		return nil
	}
	st := r.local.finish()
	r.history = append(r.history, st)
	r.redraw()

	relay := st.Clone()
	return r.send(proto.InboundTypeStrokeEnd, proto.StrokeEndData{Stroke: &relay})
}

// PointerCancel behaves like PointerUp so no stroke is left dangling.
func (r *Reconciler) PointerCancel() error {
	return r.PointerUp()
}

// Undo asks the server to remove the local participant's latest stroke.
// Nothing is sent when the history holds no stroke by this participant.
func (r *Reconciler) Undo() (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := len(r.history) - 1; i >= 0; i-- {
		if r.history[i].Author == r.self {
			return true, r.send(proto.InboundTypeUndo, nil)
		}
	}
	return false, nil
}

// Clear asks the server to empty the room. The local view changes when the
// resulting canvasState arrives.
func (r *Reconciler) Clear() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.send(proto.InboundTypeClearCanvas, nil)
}

// ApplyCanvasState replaces the committed history with the server's
// snapshot and drops every remote in-progress stroke. The local pending
// stroke survives.
func (r *Reconciler) ApplyCanvasState(strokes []drawing.Stroke) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.history = drawing.CloneStrokes(strokes)
	r.remote = make(map[string]*track)
	r.order = r.order[:0]
	r.redraw()
}

// ApplyStrokeStart opens a remote in-progress stroke for its author.
func (r *Reconciler) ApplyStrokeStart(msg proto.StrokeStartData) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if msg.Author == "" || msg.Author == r.self {
		return
	}
	color := msg.Color
	if color == "" {
		color = drawing.DefaultColor
	}
	r.trackFor(msg.Author).begin(drawing.Stroke{
		ID:     msg.StrokeID,
		Author: msg.Author,
		Tool:   msg.Tool,
		Color:  color,
		Size:   msg.Size,
		Glow:   msg.Glow,
		Points: []drawing.Point{msg.StartPoint},
	})
}

// ApplyStrokePoint extends a remote in-progress stroke. Points for a stroke
// that is not open are dropped.
func (r *Reconciler) ApplyStrokePoint(msg proto.StrokePointData) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if msg.Author == "" || msg.Author == r.self {
		return
	}
	t, ok := r.remote[msg.Author]
	if !ok {
		return
	}
	prev, ok := t.extend(msg.StrokeID, msg.Point)
	if !ok {
		r.log.Debug().Str("author", msg.Author).Str("stroke_id", msg.StrokeID).Msg("dropping point for stroke that is not open")
		return
	}
	if t.stroke.Tool.IsShape() {
		r.redraw()
		return
	}
	r.draw(r.surface.DrawSegment(t.stroke, prev, msg.Point))
}

// ApplyStrokeEnd commits a peer's finalized stroke and retires its
// in-progress preview. A stroke already in the history is not added twice.
func (r *Reconciler) ApplyStrokeEnd(st *drawing.Stroke) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if st == nil || st.Author == "" || st.Author == r.self {
		return
	}
	if t, ok := r.remote[st.Author]; ok {
		t.finish()
		r.forget(st.Author)
	}
	for i := range r.history {
		if r.history[i].ID == st.ID {
			r.redraw()
			return
		}
	}
	r.history = append(r.history, st.Clone())
	r.redraw()
}

// Redraw rebuilds the raster from scratch.
func (r *Reconciler) Redraw() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.redraw()
}

// Resize adapts the raster to a new layout size and pixel ratio and redraws
// it. Zero sizes, as reported for hidden containers, are ignored.
func (r *Reconciler) Resize(width, height, dpr float64) error {
	if width <= 0 || height <= 0 {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.surface.Resize(width, height, dpr); err != nil {
		return err
	}
	r.redraw()
	return nil
}

// Image returns a copy of the current raster.
func (r *Reconciler) Image() image.Image {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.surface.Image()
}

// History returns a copy of the committed history as this client sees it.
func (r *Reconciler) History() []drawing.Stroke {
	r.mu.Lock()
	defer r.mu.Unlock()
	return drawing.CloneStrokes(r.history)
}

// Pending returns the local in-progress stroke, if any.
func (r *Reconciler) Pending() (drawing.Stroke, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.local.state != stateDrawing {
		return drawing.Stroke{}, false
	}
	return r.local.stroke.Clone(), true
}

// RemoteInProgress returns the in-progress stroke of author, if any.
func (r *Reconciler) RemoteInProgress(author string) (drawing.Stroke, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.remote[author]
	if !ok || t.state != stateDrawing {
		return drawing.Stroke{}, false
	}
	return t.stroke.Clone(), true
}

// redraw paints committed history, then remote previews in stable order,
// then the local pending stroke.
func (r *Reconciler) redraw() {
	r.surface.Clear()
	for i := range r.history {
		r.draw(r.surface.DrawStroke(r.history[i]))
	}
	for _, author := range r.order {
		if t := r.remote[author]; t != nil && t.state == stateDrawing {
			r.draw(r.surface.DrawStroke(t.stroke))
		}
	}
	if r.local.state == stateDrawing {
		r.draw(r.surface.DrawStroke(r.local.stroke))
	}
}

func (r *Reconciler) draw(err error) {
	if err != nil {
		r.log.Warn().Err(err).Msg("render stroke")
	}
}

func (r *Reconciler) trackFor(author string) *track {
	t, ok := r.remote[author]
	if !ok {
		t = &track{}
		r.remote[author] = t
		r.order = append(r.order, author)
	}
	return t
}

func (r *Reconciler) forget(author string) {
	delete(r.remote, author)
	for i, a := range r.order {
		if a == author {
			r.order = append(r.order[:i], r.order[i+1:]...)
			return
		}
	}
}

func (r *Reconciler) normalize(p drawing.Point) drawing.Point {
	w, h := r.surface.LayoutSize()
	return drawing.Normalize(p.X, p.Y, w, h)
}

func (r *Reconciler) send(typ string, data any) error {
	if r.out == nil {
		return nil
	}
	msg := proto.Inbound{Type: typ}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return fmt.Errorf("encode %s: %w", typ, err)
		}
		msg.Data = raw
	}
	return r.out.Send(msg)
}
