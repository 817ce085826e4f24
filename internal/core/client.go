package core

import (
	"sync"

	"github.com/vovakirdan/drawsync/internal/drawing"
)

// DefaultEventBuffer is the outbound buffer used when none is configured.
const DefaultEventBuffer = 256

// Client is one connection as seen by the core layer. The transport writes
// Commands and drains Events; everything else is owned by the hub loop.
type Client struct {
	ID       string
	Commands chan *Command
	Events   chan *Event

	name     string
	color    string
	joinedAt int64
	room     string
	// drawing is the id of the stroke this client has open, empty when idle.
	drawing string
	closed  bool

	closeOnce sync.Once
}

// NewClient constructs a client with initialized channels.
func NewClient(id string, buffer int) *Client {
	if buffer <= 0 {
		buffer = DefaultEventBuffer
	}
	return &Client{
		ID:       id,
		Commands: make(chan *Command, 64),
		Events:   make(chan *Event, buffer),
	}
}

// Participant returns the client's public record.
func (c *Client) Participant() drawing.Participant {
	return drawing.Participant{
		ID:       c.ID,
		Name:     c.name,
		Color:    c.color,
		JoinedAt: c.joinedAt,
	}
}

// offer delivers ev without blocking. It returns false when the client's
// buffer is full.
func (c *Client) offer(ev *Event) bool {
	if c.closed {
		return true
	}
	select {
	case c.Events <- ev:
		return true
	default:
		return false
	}
}

// shutdown closes the event stream once.
func (c *Client) shutdown() {
	if c.closed {
		return
	}
	c.closed = true
	close(c.Events)
}

// closeCommands ends the command stream; the hub treats it as disconnect.
func (c *Client) closeCommands() {
	c.closeOnce.Do(func() { close(c.Commands) })
}
