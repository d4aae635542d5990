package transport

import (
	"bytes"
	"testing"

	"github.com/eventarena/server/internal/clock"
	"github.com/eventarena/server/internal/config"
	"github.com/eventarena/server/internal/events"
)

func newTestHub() (*events.Bus, *Hub) {
	bus := events.NewBus(nil)
	clk := clock.New(bus, 30) // never started: Submit runs inline
	h := NewHub(nil, bus, clk, nil, nil, config.Default().Transport)
	return bus, h
}

func TestIsAllowedOrigin(t *testing.T) {
	patterns := []string{"http://localhost:*", "https://arena.example.com"}

	cases := []struct {
		origin string
		want   bool
	}{
		{"http://localhost:3000", true},
		{"http://localhost:8080", true},
		{"https://arena.example.com", true},
		{"http://evil.example.com", false},
		{"https://localhost:3000", false},
		{"", false},
	}
	for _, c := range cases {
		if got := isAllowedOrigin(patterns, c.origin); got != c.want {
			t.Errorf("isAllowedOrigin(%q) = %v, want %v", c.origin, got, c.want)
		}
	}
}

func TestIsAllowedWidgetFiltersUnknownKeys(t *testing.T) {
	if !isAllowedWidget("scoreboard") {
		t.Fatal("scoreboard must be subscribable")
	}
	if isAllowedWidget("admin") {
		t.Fatal("unknown widget keys must be rejected")
	}
}

func TestTrySendDropsOverBackpressureBudget(t *testing.T) {
	c := newClient(nil, nil, "1.2.3.4", "conn1")

	small := []byte(`{"type":"player:move"}`)
	c.trySend(small)
	if len(c.send) != 1 {
		t.Fatalf("got %d queued messages, want 1", len(c.send))
	}

	huge := bytes.Repeat([]byte("x"), maxBufferedBytes+1)
	c.trySend(huge)
	if len(c.send) != 1 {
		t.Fatal("a frame over the backpressure budget must be dropped, not queued")
	}
}

func TestHandleJoinBindsPlayerAndEmitsCommand(t *testing.T) {
	bus, h := newTestHub()
	c := newClient(h, nil, "1.2.3.4", "conn1")

	var join events.CmdJoinPayload
	var got bool
	bus.On(events.TypeCmdJoin, func(ev events.Event) {
		join, got = ev.Payload.(events.CmdJoinPayload)
	})

	c.handle(inbound{Type: string(events.TypeCmdJoin), Name: "Ada"})

	if !got {
		t.Fatal("expected cmd:join emitted on the bus")
	}
	if join.PlayerID == "" || join.PlayerID != c.playerIDOrEmpty() {
		t.Fatalf("got command for %q, want the id bound to the connection (%q)", join.PlayerID, c.playerIDOrEmpty())
	}
	if join.ConnID != c.connID {
		t.Fatalf("got conn id %q, want %q", join.ConnID, c.connID)
	}
	if join.Name != "Ada" {
		t.Fatalf("got name %q, want Ada", join.Name)
	}
}

func TestHandleCommandsBeforeJoinAreDropped(t *testing.T) {
	bus, h := newTestHub()
	c := newClient(h, nil, "1.2.3.4", "conn1")

	var emitted bool
	bus.On(events.TypeCmdMove, func(events.Event) { emitted = true })
	bus.On(events.TypeCmdCast, func(events.Event) { emitted = true })

	c.handle(inbound{Type: string(events.TypeCmdMove), Dir: events.Vec2Payload{X: 1}})
	c.handle(inbound{Type: string(events.TypeCmdCast), Skill: "skill:shoot"})

	if emitted {
		t.Fatal("commands from an unbound connection must be dropped")
	}
}

func TestHandleOverridesClientSuppliedID(t *testing.T) {
	bus, h := newTestHub()
	c := newClient(h, nil, "1.2.3.4", "conn1")
	c.handle(inbound{Type: string(events.TypeCmdJoin), Name: "Ada"})
	bound := c.playerIDOrEmpty()

	var move events.CmdMovePayload
	bus.On(events.TypeCmdMove, func(ev events.Event) {
		move, _ = ev.Payload.(events.CmdMovePayload)
	})

	// The wire shape has no player id field at all; whatever entity the
	// client hoped to steer, the command is stamped with the bound id.
	c.handle(inbound{Type: string(events.TypeCmdMove), Dir: events.Vec2Payload{X: 1}})

	if move.PlayerID != bound {
		t.Fatalf("got command for %q, want the bound id %q", move.PlayerID, bound)
	}
}
