package core

import (
	"sort"
	"time"

	"github.com/vovakirdan/drawsync/internal/drawing"
)

// Room holds one shared document and the clients drawing on it. A room is
// only touched from the hub loop.
type Room struct {
	ID      string
	strokes []drawing.Stroke
	clients map[string]*Client

	gcTimer *time.Timer
	gcGen   uint64
}

// NewRoom constructs a room with no clients and an empty history.
func NewRoom(id string) *Room {
	return &Room{
		ID:      id,
		strokes: make([]drawing.Stroke, 0),
		clients: make(map[string]*Client),
	}
}

// AddClient inserts a client into the room. Returns true if newly added.
func (r *Room) AddClient(c *Client) bool {
	if _, exists := r.clients[c.ID]; exists {
		return false
	}
	r.clients[c.ID] = c
	return true
}

// RemoveClient deletes a client from the room. Returns true if removed.
func (r *Room) RemoveClient(c *Client) bool {
	if _, exists := r.clients[c.ID]; !exists {
		return false
	}
	delete(r.clients, c.ID)
	return true
}

// Empty returns true if no clients are in the room.
func (r *Room) Empty() bool {
	return len(r.clients) == 0
}

// Participants lists the room's participants ordered by join time.
func (r *Room) Participants() []drawing.Participant {
	users := make([]drawing.Participant, 0, len(r.clients))
	for _, c := range r.clients {
		users = append(users, c.Participant())
	}
	sort.Slice(users, func(i, j int) bool {
		if users[i].JoinedAt != users[j].JoinedAt {
			return users[i].JoinedAt < users[j].JoinedAt
		}
		return users[i].ID < users[j].ID
	})
	return users
}

// Commit appends a finalized stroke. This is the only way history grows.
func (r *Room) Commit(s drawing.Stroke) {
	r.strokes = append(r.strokes, s)
}

// Strokes returns a deep copy of the committed history in commit order.
func (r *Room) Strokes() []drawing.Stroke {
	return drawing.CloneStrokes(r.strokes)
}

// Len returns the number of committed strokes.
func (r *Room) Len() int {
	return len(r.strokes)
}

// UndoLast removes the most recently committed stroke authored by author.
// It reports whether a stroke was removed.
func (r *Room) UndoLast(author string) bool {
	for i := len(r.strokes) - 1; i >= 0; i-- {
		if r.strokes[i].Author != author {
			continue
		}
		r.strokes = append(r.strokes[:i], r.strokes[i+1:]...)
		return true
	}
	return false
}

// Clear empties the history.
func (r *Room) Clear() {
	r.strokes = make([]drawing.Stroke, 0)
}

// Broadcast offers an event to every client except skip. Clients whose
// buffer is full are returned so the caller can evict them.
func (r *Room) Broadcast(event *Event, skip *Client) []*Client {
	var slow []*Client
	for _, client := range r.clients {
		if client == skip {
			continue
		}
		if !client.offer(event) {
			slow = append(slow, client)
		}
	}
	return slow
}

// cancelGC stops a pending deletion.
func (r *Room) cancelGC() {
	r.gcGen++
	if r.gcTimer != nil {
		r.gcTimer.Stop()
		r.gcTimer = nil
	}
}
