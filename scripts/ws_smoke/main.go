package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/vovakirdan/drawsync/internal/canvas"
	"github.com/vovakirdan/drawsync/internal/client"
	"github.com/vovakirdan/drawsync/internal/discovery"
	"github.com/vovakirdan/drawsync/internal/drawing"
	"github.com/vovakirdan/drawsync/internal/export"
)

func main() {
	if err := run(); err != nil {
		log.Printf("ws_smoke: %v", err)
		os.Exit(1)
	}
}

func run() error {
	addr := flag.String("addr", "ws://localhost:3001/ws", "WebSocket address, empty to browse mDNS")
	user := flag.String("user", "tester", "display name to join with")
	room := flag.String("room", "smoke", "room id")
	out := flag.String("out", "smoke.png", "where to save the rendered canvas")
	timeout := flag.Duration("timeout", 5*time.Second, "total timeout for the run")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	url := *addr
	if url == "" {
		peers, err := discovery.Browse(ctx, time.Second)
		if err != nil && len(peers) == 0 {
			return fmt.Errorf("browse: %w", err)
		}
		if len(peers) == 0 {
			return fmt.Errorf("no drawing server found on the local network")
		}
		url = "ws://" + peers[0].Addr + "/ws"
		fmt.Printf("Found %s at %s\n", peers[0].Instance, peers[0].Addr)
	}

	s, err := client.Dial(ctx, url)
	if err != nil {
		return err
	}
	defer s.Close()
	go func() {
		if err := s.Run(ctx); err != nil {
			log.Printf("ws_smoke: session: %v", err)
		}
	}()

	if err := s.Join(*room, *user, "#4ecdc4"); err != nil {
		return err
	}
	self, err := s.WaitJoined(ctx)
	if err != nil {
		return fmt.Errorf("join: %w", err)
	}
	fmt.Printf("Joined room=%s as id=%s, canvas has %d strokes\n", *room, self.ID, len(s.Canvas().History()))

	c := s.Canvas()
	if err := c.Resize(800, 600, 1); err != nil {
		return err
	}
	before := len(c.History())

	if err := c.PointerDown(drawing.Point{X: 100, Y: 300}, canvas.Style{Tool: drawing.ToolPen, Size: 6, Glow: true}); err != nil {
		return err
	}
	for x := 120.0; x <= 700; x += 20 {
		y := 300.0
		if int(x/20)%2 == 0 {
			y = 260
		}
		if err := c.PointerMove(drawing.Point{X: x, Y: y}); err != nil {
			return err
		}
	}
	if err := c.PointerUp(); err != nil {
		return err
	}

	if err := c.PointerDown(drawing.Point{X: 200, Y: 100}, canvas.Style{Tool: drawing.ToolRect, Color: "#ffe66d", Size: 4}); err != nil {
		return err
	}
	if err := c.PointerMove(drawing.Point{X: 600, Y: 500}); err != nil {
		return err
	}
	if err := c.PointerUp(); err != nil {
		return err
	}

	// Give the server a moment to relay before snapshotting.
	time.Sleep(200 * time.Millisecond)

	f, err := os.Create(*out)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := export.PNG(f, c.History(), 800, 600); err != nil {
		return fmt.Errorf("save png: %w", err)
	}

	fmt.Printf("Drew %d strokes, %d users online, saved %s\n", len(c.History())-before, len(s.Users()), *out)
	return nil
}
