package bot

import (
	"testing"

	"go.uber.org/zap"

	"github.com/eventarena/server/internal/arena"
	"github.com/eventarena/server/internal/clock"
	"github.com/eventarena/server/internal/config"
	"github.com/eventarena/server/internal/events"
	"github.com/eventarena/server/internal/sim"
)

func newTestEngine() (*events.Bus, *clock.Clock, *sim.Engine) {
	cfg := config.Default()
	bounds := arena.Rect{X: 0, Y: 0, W: cfg.World.Width, H: cfg.World.Height}
	world := arena.NewWorld(bounds, nil)
	spawnCfg := arena.DefaultSpawnConfig(world)
	spawn := arena.NewSpawnManager(world, spawnCfg, 1)
	bus := events.NewBus(nil)
	engine := sim.NewEngine(zap.NewNop(), bus, world, spawn, cfg)
	clk := clock.New(bus, cfg.TickHz) // never started: Submit runs inline
	return bus, clk, engine
}

func tick(bus *events.Bus, dtSeconds float64) {
	bus.Emit(events.New(events.TypeTickPost, events.TickPayload{DtSeconds: dtSeconds, Now: 0}))
}

func TestControllerJoinEmitsCmdJoin(t *testing.T) {
	bus, clk, engine := newTestEngine()
	c := New(nil, bus, clk, engine, "Bot-1", DefaultConfig(), 1)
	c.Join()

	snapshots := engine.PlayerSnapshots()
	if len(snapshots) != 1 {
		t.Fatalf("got %d players, want 1", len(snapshots))
	}
	if snapshots[0].ID != c.id {
		t.Fatalf("got player id %q, want %q", snapshots[0].ID, c.id)
	}
}

func TestControllerLeaveRemovesPlayerAndStopsThinking(t *testing.T) {
	bus, clk, engine := newTestEngine()
	c := New(nil, bus, clk, engine, "Bot-1", DefaultConfig(), 1)
	c.Join()
	c.Leave()

	if len(engine.PlayerSnapshots()) != 0 {
		t.Fatalf("expected player removed after Leave, got %d left", len(engine.PlayerSnapshots()))
	}

	// onTickPost must no longer be wired; a subsequent tick must not panic
	// or touch a player that no longer exists.
	tick(bus, 1.0)
}

func TestControllerWandersWithNoOtherPlayers(t *testing.T) {
	bus, clk, engine := newTestEngine()
	cfg := DefaultConfig()
	cfg.ThinkIntervalMs = 100
	c := New(nil, bus, clk, engine, "Bot-1", cfg, 1)
	c.Join()

	// Accumulate enough dt to cross the think interval; must not panic with
	// only one (itself) live player in the world.
	tick(bus, 0.2)
}

func TestControllerAimsAtNearestLiveTargetOnThink(t *testing.T) {
	bus, clk, engine := newTestEngine()
	cfg := DefaultConfig()
	cfg.ThinkIntervalMs = 50
	c := New(nil, bus, clk, engine, "Bot-1", cfg, 1)
	c.Join()

	bus.Emit(events.New(events.TypeCmdJoin, events.CmdJoinPayload{
		ConnID: "target", PlayerID: "target", Name: "Target",
	}))

	var aimed bool
	bus.On(events.TypeCmdAim, func(ev events.Event) {
		p, ok := ev.Payload.(events.CmdAimPayload)
		if ok && p.PlayerID == c.id {
			aimed = true
		}
	})

	tick(bus, 0.1)

	if !aimed {
		t.Fatal("expected bot to emit cmd:aim once a live opponent exists")
	}
}

func TestNewBotIDIsStableLengthAndPrefixed(t *testing.T) {
	bus, clk, engine := newTestEngine()
	c := New(nil, bus, clk, engine, "Bot-1", DefaultConfig(), 42)
	c.Join()

	if len(c.id) != len("bot-")+16 {
		t.Fatalf("got id %q with length %d, want %d", c.id, len(c.id), len("bot-")+16)
	}
	if c.id[:4] != "bot-" {
		t.Fatalf("got id %q, want bot- prefix", c.id)
	}
}

func TestFireArcClearWithNoObstacles(t *testing.T) {
	bus, clk, engine := newTestEngine()
	c := New(nil, bus, clk, engine, "Bot-1", DefaultConfig(), 1)
	c.Join()

	from := events.Vec2Payload{X: 0, Y: 0}
	to := events.Vec2Payload{X: 100, Y: 100}
	if !c.fireArcClear(from, to) {
		t.Fatal("expected clear fire arc when the world has no obstacles")
	}
}

func TestFireArcBlockedByObstacle(t *testing.T) {
	cfg := config.Default()
	bounds := arena.Rect{X: 0, Y: 0, W: cfg.World.Width, H: cfg.World.Height}
	world := arena.NewWorld(bounds, []arena.Obstacle{
		{Rect: arena.Rect{X: 40, Y: 40, W: 20, H: 20}},
	})
	spawnCfg := arena.DefaultSpawnConfig(world)
	spawn := arena.NewSpawnManager(world, spawnCfg, 1)
	bus := events.NewBus(nil)
	engine := sim.NewEngine(zap.NewNop(), bus, world, spawn, cfg)
	clk := clock.New(bus, cfg.TickHz)

	c := New(nil, bus, clk, engine, "Bot-1", DefaultConfig(), 1)
	c.Join()

	from := events.Vec2Payload{X: 0, Y: 0}
	to := events.Vec2Payload{X: 100, Y: 100}
	if c.fireArcClear(from, to) {
		t.Fatal("expected blocked fire arc through an obstacle on the segment")
	}
}

func TestAddSeparationNoOpWhenNoOneNearby(t *testing.T) {
	bus, clk, engine := newTestEngine()
	cfg := DefaultConfig()
	cfg.SeparationRadius = 50
	cfg.SeparationWeight = 1.0
	c := New(nil, bus, clk, engine, "Bot-1", cfg, 1)
	c.Join()

	far := sim.PlayerSnapshot{ID: c.id, Pos: events.Vec2Payload{X: 100000, Y: 100000}}
	move := events.Vec2Payload{X: 1, Y: 0}
	got := c.addSeparation(far, move)
	if got != move {
		t.Fatalf("got %+v, want unmodified %+v when no players are nearby", got, move)
	}
}

func TestAddSeparationPushesAwayFromNearbyPlayer(t *testing.T) {
	bus, clk, engine := newTestEngine()
	cfg := DefaultConfig()
	cfg.SeparationRadius = 50
	cfg.SeparationWeight = 1.0
	c := New(nil, bus, clk, engine, "Bot-1", cfg, 1)
	c.Join()

	bus.Emit(events.New(events.TypeCmdJoin, events.CmdJoinPayload{
		ConnID: "near", PlayerID: "near", Name: "Near",
	}))

	var nearPos events.Vec2Payload
	for _, p := range engine.PlayerSnapshots() {
		if p.ID == "near" {
			nearPos = p.Pos
		}
	}

	self := sim.PlayerSnapshot{ID: c.id, Pos: events.Vec2Payload{X: nearPos.X + 10, Y: nearPos.Y}}
	move := events.Vec2Payload{X: 0, Y: 0}
	got := c.addSeparation(self, move)
	if got.X <= 0 {
		t.Fatalf("expected a positive push away from a player 10 units to the left, got %+v", got)
	}
}
