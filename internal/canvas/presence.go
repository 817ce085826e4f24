package canvas

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/vovakirdan/drawsync/internal/drawing"
	"github.com/vovakirdan/drawsync/internal/proto"
)

const (
	// DefaultCursorTTL is how long a cursor survives without an update.
	DefaultCursorTTL = 5 * time.Second
	// DefaultSweepInterval is how often stale cursors are swept.
	DefaultSweepInterval = 2 * time.Second
)

// CursorState is the last known pointer of a peer.
type CursorState struct {
	UserID    string
	UserName  string
	Color     string
	Position  drawing.Point
	UpdatedAt time.Time
}

// Presence caches peer cursors and forgets the ones that stop updating.
type Presence struct {
	mu      sync.Mutex
	cursors map[string]CursorState

	ttl   time.Duration
	sweep time.Duration
	now   func() time.Time
}

// NewPresence builds a cursor cache. Non-positive durations use the defaults.
func NewPresence(ttl, sweep time.Duration) *Presence {
	if ttl <= 0 {
		ttl = DefaultCursorTTL
	}
	if sweep <= 0 {
		sweep = DefaultSweepInterval
	}
	return &Presence{
		cursors: make(map[string]CursorState),
		ttl:     ttl,
		sweep:   sweep,
		now:     time.Now,
	}
}

// SetClock overrides the time source used to stamp updates.
func (p *Presence) SetClock(now func() time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if now != nil {
		p.now = now
	}
}

// Upsert records a cursor position with a fresh timestamp.
func (p *Presence) Upsert(msg proto.CursorMoveData) {
	if msg.UserID == "" {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.cursors[msg.UserID] = CursorState{
		UserID:    msg.UserID,
		UserName:  msg.UserName,
		Color:     msg.Color,
		Position:  drawing.Point{X: msg.X, Y: msg.Y},
		UpdatedAt: p.now(),
	}
}

// Remove forgets a cursor, e.g. when its participant left.
func (p *Presence) Remove(userID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.cursors, userID)
}

// Sweep drops cursors older than the ttl at now and returns how many went.
func (p *Presence) Sweep(now time.Time) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	removed := 0
	for id, c := range p.cursors {
		if now.Sub(c.UpdatedAt) > p.ttl {
			delete(p.cursors, id)
			removed++
		}
	}
	return removed
}

// Run sweeps on a fixed interval until ctx is cancelled.
func (p *Presence) Run(ctx context.Context) {
	ticker := time.NewTicker(p.sweep)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.mu.Lock()
			now := p.now()
			p.mu.Unlock()
			p.Sweep(now)
		}
	}
}

// Snapshot returns the live cursors ordered by user id.
func (p *Presence) Snapshot() []CursorState {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]CursorState, 0, len(p.cursors))
	for _, c := range p.cursors {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out
}

// Len returns the number of live cursors.
func (p *Presence) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.cursors)
}
