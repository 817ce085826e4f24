package core

import (
	"strings"
	"sync"
)

// NormalizeRoomID folds a room identifier to its canonical form. Room ids
// are case-insensitive.
func NormalizeRoomID(id string) string {
	return strings.ToUpper(strings.TrimSpace(id))
}

// Registry maps room ids to rooms. Rooms are created lazily on first
// reference. The map itself is guarded so HTTP handlers can query it; room
// contents are mutated only by the hub loop.
type Registry struct {
	mu    sync.RWMutex
	rooms map[string]*Room
}

// NewRegistry constructs an empty registry.
func NewRegistry() *Registry {
	return &Registry{rooms: make(map[string]*Room)}
}

// GetOrCreate returns the room for id, creating an empty one if needed.
// The second result reports whether the room was created by this call.
func (r *Registry) GetOrCreate(id string) (*Room, bool) {
	id = NormalizeRoomID(id)

	r.mu.Lock()
	defer r.mu.Unlock()

	if room, ok := r.rooms[id]; ok {
		return room, false
	}
	room := NewRoom(id)
	r.rooms[id] = room
	return room, true
}

// Lookup returns the room for id if it exists.
func (r *Registry) Lookup(id string) (*Room, bool) {
	id = NormalizeRoomID(id)

	r.mu.RLock()
	defer r.mu.RUnlock()

	room, ok := r.rooms[id]
	return room, ok
}

// Exists reports whether a room with id is registered.
func (r *Registry) Exists(id string) bool {
	_, ok := r.Lookup(id)
	return ok
}

// RemoveIfEmpty deletes the room for id when it has no participants.
// It must be called from the hub loop. Returns true if the room was deleted.
func (r *Registry) RemoveIfEmpty(id string) bool {
	id = NormalizeRoomID(id)

	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[id]
	if !ok || !room.Empty() {
		return false
	}
	room.cancelGC()
	delete(r.rooms, id)
	return true
}

// Count returns the number of live rooms.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}
