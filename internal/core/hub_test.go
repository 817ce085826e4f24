package core

import (
	"reflect"
	"testing"
	"time"

	"github.com/vovakirdan/drawsync/internal/drawing"
)

func TestHubJoinDeliversStateAndPresence(t *testing.T) {
	hub := startHub(t)

	alice := NewClient("a", 0)
	hub.RegisterClient(alice)
	alice.Commands <- &Command{Kind: CommandJoinRoom, Join: &JoinRequest{Room: "abc", Name: "alice", Color: "#00ff00"}}

	welcome := mustEvent(t, alice.Events, EventWelcome)
	if welcome.Room != "ABC" || welcome.User.ID != "a" || welcome.User.Color != "#00ff00" {
		t.Fatalf("unexpected welcome: %+v", welcome)
	}
	state := mustEvent(t, alice.Events, EventCanvasState)
	if state.Strokes == nil || len(state.Strokes) != 0 {
		t.Fatalf("expected empty non-nil history, got %+v", state.Strokes)
	}
	users := mustEvent(t, alice.Events, EventRoomUsers)
	if len(users.Users) != 1 || users.Users[0].Name != "alice" {
		t.Fatalf("unexpected users: %+v", users.Users)
	}

	bob := NewClient("b", 0)
	hub.RegisterClient(bob)
	bob.Commands <- &Command{Kind: CommandJoinRoom, Join: &JoinRequest{Room: "ABC", Name: "bob"}}

	mustEvent(t, bob.Events, EventCanvasState)
	users = mustEvent(t, alice.Events, EventRoomUsers)
	if len(users.Users) != 2 {
		t.Fatalf("expected 2 users, got %+v", users.Users)
	}
	joined := mustEvent(t, alice.Events, EventUserJoined)
	if joined.User.Name != "bob" || joined.User.Color != drawing.DefaultColor {
		t.Fatalf("unexpected join event: %+v", joined.User)
	}
	expectSilence(t, bob.Events, EventUserJoined, 50*time.Millisecond)

	hub.UnregisterClient(bob)
	users = mustEvent(t, alice.Events, EventRoomUsers)
	if len(users.Users) != 1 {
		t.Fatalf("expected 1 user after leave, got %+v", users.Users)
	}
	left := mustEvent(t, alice.Events, EventUserLeft)
	if left.User.ID != "b" {
		t.Fatalf("unexpected leave event: %+v", left)
	}
}

func TestHubJoinWithoutNameIsRejected(t *testing.T) {
	hub := startHub(t)

	alice := NewClient("a", 0)
	hub.RegisterClient(alice)
	alice.Commands <- &Command{Kind: CommandJoinRoom, Join: &JoinRequest{Room: "abc", Name: "  "}}

	ev := mustEvent(t, alice.Events, EventError)
	if ev.Error == nil || ev.Error.Code != ErrCodeNameRequired {
		t.Fatalf("expected name_required error, got %+v", ev)
	}
	if hub.Registry().Exists("abc") {
		t.Fatal("rejected join must not create a room")
	}
}

func TestHubStrokeLifecycleRelayAndCommit(t *testing.T) {
	hub := startHub(t)
	alice := joinClient(t, hub, "a", "alice", "room")
	bob := joinClient(t, hub, "b", "bob", "room")

	alice.Commands <- &Command{Kind: CommandStrokeStart, Start: &StrokeStart{
		StrokeID: "s1", Tool: drawing.ToolPen, Color: "#ff0000", Size: 3,
		StartPoint: drawing.Point{X: 0, Y: 0}, Author: "forged",
	}}
	start := mustEvent(t, bob.Events, EventStrokeStart)
	if start.Start.Author != "a" || start.Start.StrokeID != "s1" {
		t.Fatalf("unexpected start relay: %+v", start.Start)
	}

	alice.Commands <- &Command{Kind: CommandStrokePoint, Point: &StrokePoint{StrokeID: "s1", Point: drawing.Point{X: 0.5, Y: 0.5}}}
	point := mustEvent(t, bob.Events, EventStrokePoint)
	if point.Point.Author != "a" || point.Point.Point != (drawing.Point{X: 0.5, Y: 0.5}) {
		t.Fatalf("unexpected point relay: %+v", point.Point)
	}

	final := penStroke("s1", drawing.Point{X: 0, Y: 0}, drawing.Point{X: 0.5, Y: 0.5})
	final.Author = "forged"
	alice.Commands <- &Command{Kind: CommandStrokeEnd, Stroke: final}

	end := mustEvent(t, bob.Events, EventStrokeEnd)
	if end.Stroke.Author != "a" {
		t.Fatalf("author must be stamped by server, got %q", end.Stroke.Author)
	}
	if !reflect.DeepEqual(end.Stroke.Points, []drawing.Point{{X: 0, Y: 0}, {X: 0.5, Y: 0.5}}) {
		t.Fatalf("unexpected points: %+v", end.Stroke.Points)
	}
	expectSilence(t, alice.Events, EventStrokeEnd, 50*time.Millisecond)

	history := snapshot(t, hub, "ROOM")
	if len(history) != 1 || history[0].ID != "s1" || history[0].Author != "a" {
		t.Fatalf("unexpected history: %+v", history)
	}
}

func TestHubDropsPointsForUnknownStroke(t *testing.T) {
	hub := startHub(t)
	alice := joinClient(t, hub, "a", "alice", "room")
	bob := joinClient(t, hub, "b", "bob", "room")

	// No stroke open yet.
	alice.Commands <- &Command{Kind: CommandStrokePoint, Point: &StrokePoint{StrokeID: "s1"}}
	alice.Commands <- &Command{Kind: CommandStrokeStart, Start: &StrokeStart{StrokeID: "s2", Tool: drawing.ToolPen}}
	// Mismatched id.
	alice.Commands <- &Command{Kind: CommandStrokePoint, Point: &StrokePoint{StrokeID: "s1"}}
	alice.Commands <- &Command{Kind: CommandStrokeEnd, Stroke: penStroke("s2")}
	// Trailing stale point after the end.
	alice.Commands <- &Command{Kind: CommandStrokePoint, Point: &StrokePoint{StrokeID: "s2"}}
	alice.Commands <- &Command{Kind: CommandCursorMove, Cursor: drawing.Point{X: 0.1, Y: 0.1}}

	mustEvent(t, bob.Events, EventStrokeStart)
	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev := <-bob.Events:
			switch ev.Kind {
			case EventStrokePoint:
				t.Fatalf("point for unopened stroke was relayed: %+v", ev.Point)
			case EventCursorMove:
				return
			}
		case <-deadline:
			t.Fatal("cursor event not received")
		}
	}
}

func TestHubCommitOrderIsArrivalOrder(t *testing.T) {
	hub := startHub(t)
	alice := joinClient(t, hub, "a", "alice", "room")
	bob := joinClient(t, hub, "b", "bob", "room")

	alice.Commands <- &Command{Kind: CommandStrokeEnd, Stroke: penStroke("a1")}
	mustEvent(t, bob.Events, EventStrokeEnd)
	bob.Commands <- &Command{Kind: CommandStrokeEnd, Stroke: penStroke("b1")}
	mustEvent(t, alice.Events, EventStrokeEnd)
	alice.Commands <- &Command{Kind: CommandStrokeEnd, Stroke: penStroke("a2")}
	mustEvent(t, bob.Events, EventStrokeEnd)

	history := snapshot(t, hub, "room")
	var ids []string
	for _, s := range history {
		ids = append(ids, s.ID)
	}
	if !reflect.DeepEqual(ids, []string{"a1", "b1", "a2"}) {
		t.Fatalf("unexpected commit order: %v", ids)
	}
}

func TestHubLateJoinerReceivesFullHistory(t *testing.T) {
	hub := startHub(t)
	alice := joinClient(t, hub, "a", "alice", "room")
	observer := joinClient(t, hub, "o", "observer", "room")

	for _, id := range []string{"s1", "s2", "s3"} {
		alice.Commands <- &Command{Kind: CommandStrokeEnd, Stroke: penStroke(id, drawing.Point{X: 0.1, Y: 0.2})}
		mustEvent(t, observer.Events, EventStrokeEnd)
	}

	late := NewClient("l", 0)
	hub.RegisterClient(late)
	late.Commands <- &Command{Kind: CommandJoinRoom, Join: &JoinRequest{Room: "room", Name: "late"}}
	state := mustEvent(t, late.Events, EventCanvasState)
	if len(state.Strokes) != 3 || state.Strokes[2].ID != "s3" {
		t.Fatalf("unexpected initial snapshot: %+v", state.Strokes)
	}

	alice.Commands <- &Command{Kind: CommandStrokeEnd, Stroke: penStroke("s4")}
	end := mustEvent(t, late.Events, EventStrokeEnd)
	if end.Stroke.ID != "s4" {
		t.Fatalf("expected s4 relayed after join, got %+v", end.Stroke)
	}
	if len(state.Strokes) != 3 {
		t.Fatal("initial snapshot must not alias live history")
	}
}

func TestHubUndoRemovesOnlyOwnLatestStroke(t *testing.T) {
	hub := startHub(t)
	alice := joinClient(t, hub, "a", "alice", "room")
	bob := joinClient(t, hub, "b", "bob", "room")

	alice.Commands <- &Command{Kind: CommandStrokeEnd, Stroke: penStroke("a1")}
	mustEvent(t, bob.Events, EventStrokeEnd)
	alice.Commands <- &Command{Kind: CommandStrokeEnd, Stroke: penStroke("a2")}
	mustEvent(t, bob.Events, EventStrokeEnd)
	bob.Commands <- &Command{Kind: CommandStrokeEnd, Stroke: penStroke("b1")}
	mustEvent(t, alice.Events, EventStrokeEnd)

	alice.Commands <- &Command{Kind: CommandUndo}

	for _, c := range []*Client{alice, bob} {
		state := mustEvent(t, c.Events, EventCanvasState)
		var ids []string
		for _, s := range state.Strokes {
			ids = append(ids, s.ID)
		}
		if !reflect.DeepEqual(ids, []string{"a1", "b1"}) {
			t.Fatalf("client %s: unexpected history after undo: %v", c.ID, ids)
		}
	}
}

func TestHubUndoWithoutOwnStrokesStillBroadcasts(t *testing.T) {
	hub := startHub(t)
	alice := joinClient(t, hub, "a", "alice", "room")
	bob := joinClient(t, hub, "b", "bob", "room")

	alice.Commands <- &Command{Kind: CommandStrokeEnd, Stroke: penStroke("a1", drawing.Point{X: 0.3, Y: 0.3})}
	mustEvent(t, bob.Events, EventStrokeEnd)
	before := snapshot(t, hub, "room")

	bob.Commands <- &Command{Kind: CommandUndo}
	for _, c := range []*Client{alice, bob} {
		state := mustEvent(t, c.Events, EventCanvasState)
		if !reflect.DeepEqual(state.Strokes, before) {
			t.Fatalf("client %s: history changed on no-op undo: %+v", c.ID, state.Strokes)
		}
	}
}

func TestHubClearEmptiesHistoryForEveryone(t *testing.T) {
	hub := startHub(t)
	alice := joinClient(t, hub, "a", "alice", "room")
	bob := joinClient(t, hub, "b", "bob", "room")

	alice.Commands <- &Command{Kind: CommandStrokeStart, Start: &StrokeStart{StrokeID: "open", Tool: drawing.ToolPen}}
	alice.Commands <- &Command{Kind: CommandStrokeEnd, Stroke: penStroke("done")}
	mustEvent(t, bob.Events, EventStrokeEnd)

	bob.Commands <- &Command{Kind: CommandClear}
	for _, c := range []*Client{alice, bob} {
		state := mustEvent(t, c.Events, EventCanvasState)
		if len(state.Strokes) != 0 {
			t.Fatalf("client %s: expected empty history, got %+v", c.ID, state.Strokes)
		}
	}
	if got := snapshot(t, hub, "room"); len(got) != 0 {
		t.Fatalf("server history not cleared: %+v", got)
	}
}

func TestHubCursorIsStampedWithSender(t *testing.T) {
	hub := startHub(t)
	alice := joinClient(t, hub, "a", "alice", "room")
	bob := joinClient(t, hub, "b", "bob", "room")

	alice.Commands <- &Command{Kind: CommandCursorMove, Cursor: drawing.Point{X: 0.25, Y: 0.75}}
	ev := mustEvent(t, bob.Events, EventCursorMove)
	if ev.Cursor.UserID != "a" || ev.Cursor.UserName != "alice" || ev.Cursor.Position.X != 0.25 {
		t.Fatalf("unexpected cursor: %+v", ev.Cursor)
	}
	expectSilence(t, alice.Events, EventCursorMove, 50*time.Millisecond)
}

func TestHubCommandsBeforeJoinAreDropped(t *testing.T) {
	hub := startHub(t)

	alice := NewClient("a", 0)
	hub.RegisterClient(alice)
	alice.Commands <- &Command{Kind: CommandStrokeEnd, Stroke: penStroke("early")}
	alice.Commands <- &Command{Kind: CommandUndo}
	alice.Commands <- &Command{Kind: CommandJoinRoom, Join: &JoinRequest{Room: "room", Name: "alice"}}

	state := mustEvent(t, alice.Events, EventCanvasState)
	if len(state.Strokes) != 0 {
		t.Fatalf("stroke sent before join was committed: %+v", state.Strokes)
	}
}

func TestHubRejoinMovesBetweenRooms(t *testing.T) {
	hub := startHub(t)
	alice := joinClient(t, hub, "a", "alice", "one")
	bob := joinClient(t, hub, "b", "bob", "one")

	alice.Commands <- &Command{Kind: CommandJoinRoom, Join: &JoinRequest{Room: "two", Name: "alice"}}
	left := mustEvent(t, bob.Events, EventUserLeft)
	if left.User.ID != "a" {
		t.Fatalf("unexpected leave: %+v", left)
	}
	welcome := mustEvent(t, alice.Events, EventWelcome)
	if welcome.Room != "TWO" {
		t.Fatalf("unexpected room: %s", welcome.Room)
	}

	alice.Commands <- &Command{Kind: CommandCursorMove}
	expectSilence(t, bob.Events, EventCursorMove, 50*time.Millisecond)
}

func TestHubEmptyRoomSurvivesGracePeriod(t *testing.T) {
	hub := startHub(t, WithGracePeriod(150*time.Millisecond))

	alice := joinClient(t, hub, "a", "alice", "room")
	alice.Commands <- &Command{Kind: CommandStrokeEnd, Stroke: penStroke("keep")}
	hub.UnregisterClient(alice)

	waitFor(t, func() bool {
		_, ok := <-alice.Events
		return !ok
	})
	if !hub.Registry().Exists("room") {
		t.Fatal("room deleted before grace period")
	}

	back := NewClient("a2", 0)
	hub.RegisterClient(back)
	back.Commands <- &Command{Kind: CommandJoinRoom, Join: &JoinRequest{Room: "room", Name: "alice"}}
	state := mustEvent(t, back.Events, EventCanvasState)
	if len(state.Strokes) != 1 {
		t.Fatalf("returning participant lost history: %+v", state.Strokes)
	}

	time.Sleep(250 * time.Millisecond)
	if !hub.Registry().Exists("room") {
		t.Fatal("occupied room was deleted")
	}

	hub.UnregisterClient(back)
	waitFor(t, func() bool { return !hub.Registry().Exists("room") })
}

func TestHubEvictsSlowConsumer(t *testing.T) {
	hub := startHub(t)

	slow := NewClient("s", 3)
	hub.RegisterClient(slow)
	slow.Commands <- &Command{Kind: CommandJoinRoom, Join: &JoinRequest{Room: "room", Name: "slow"}}

	alice := joinClient(t, hub, "a", "alice", "room")
	for i := 0; i < 10; i++ {
		alice.Commands <- &Command{Kind: CommandCursorMove}
	}

	left := mustEvent(t, alice.Events, EventUserLeft)
	if left.User.ID != "s" {
		t.Fatalf("expected slow client to be evicted, got %+v", left)
	}
	waitFor(t, func() bool {
		for {
			select {
			case _, ok := <-slow.Events:
				if !ok {
					return true
				}
			default:
				return false
			}
		}
	})
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}
