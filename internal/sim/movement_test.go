package sim

import (
	"math"
	"testing"

	"go.uber.org/zap"

	"github.com/eventarena/server/internal/arena"
	"github.com/eventarena/server/internal/config"
	"github.com/eventarena/server/internal/events"
)

func newTestEngineWithObstacles(obstacles []arena.Obstacle) (*events.Bus, *Engine) {
	cfg := config.Default()
	bounds := arena.Rect{X: 0, Y: 0, W: cfg.World.Width, H: cfg.World.Height}
	world := arena.NewWorld(bounds, obstacles)
	spawnCfg := arena.DefaultSpawnConfig(world)
	spawn := arena.NewSpawnManager(world, spawnCfg, 1)
	bus := events.NewBus(nil)
	e := NewEngine(zap.NewNop(), bus, world, spawn, cfg)
	return bus, e
}

func TestIntegratePlayerClampsAtBoundsCorner(t *testing.T) {
	bus, e := newTestEngine()
	bus.Emit(events.New(events.TypeCmdJoin, events.CmdJoinPayload{PlayerID: "p1", Name: "Ada"}))

	p := e.world.Players["p1"]
	p.Pos = arena.Vec2{X: 1, Y: 1}
	p.Vel = arena.Vec2{X: -500, Y: -500}

	bus.Emit(events.New(events.TypeTickPre, events.TickPayload{DtSeconds: 0.1, Now: 100}))

	if p.Pos.X < 0 || p.Pos.Y < 0 {
		t.Fatalf("player escaped the world at %+v", p.Pos)
	}
}

func TestIntegratePlayerResolvesAgainstObstacle(t *testing.T) {
	wall := arena.Obstacle{Rect: arena.Rect{X: 500, Y: 0, W: 80, H: 1200}}
	bus, e := newTestEngineWithObstacles([]arena.Obstacle{wall})
	bus.Emit(events.New(events.TypeCmdJoin, events.CmdJoinPayload{PlayerID: "p1", Name: "Ada"}))

	p := e.world.Players["p1"]
	p.Pos = arena.Vec2{X: 450, Y: 600}
	p.Vel = arena.Vec2{X: 400, Y: 0}

	for i := 0; i < 10; i++ {
		bus.Emit(events.New(events.TypeTickPre, events.TickPayload{DtSeconds: 0.033, Now: int64(i+1) * 33}))
	}

	if p.Pos.X > wall.X-p.Radius+1e-6 {
		t.Fatalf("player penetrated the wall: x=%f, wall at %f with radius %f", p.Pos.X, wall.X, p.Radius)
	}
}

func TestProjectileSubsteppingPreventsTunneling(t *testing.T) {
	// An 80-unit-thick wall must stop a 1000 u/s bullet integrated at
	// dt=0.1 (a full-step displacement of 100 units would clear it).
	wall := arena.Obstacle{Rect: arena.Rect{X: 600, Y: 0, W: 80, H: 1200}}
	bus, e := newTestEngineWithObstacles([]arena.Obstacle{wall})

	pr := &arena.Projectile{
		ID:                "b1",
		OwnerID:           "p1",
		Kind:              arena.KindBullet,
		Pos:               arena.Vec2{X: 550, Y: 600},
		Vel:               arena.Vec2{X: 1000, Y: 0},
		HitRadius:         10,
		Damage:            25,
		LifetimeMs:        2000,
		SpawnTime:         0,
		MaxBounces:        3,
		DamageDropoff:     0.8,
		VelocityRetention: 0.9,
	}
	e.world.Projectiles[pr.ID] = pr

	var bounced bool
	bus.On(events.TypeProjectileBounced, func(events.Event) { bounced = true })

	bus.Emit(events.New(events.TypeTickPre, events.TickPayload{DtSeconds: 0.1, Now: 100}))

	if pr.Pos.X > wall.X+wall.W {
		t.Fatalf("projectile tunneled through the wall to x=%f", pr.Pos.X)
	}
	if !bounced {
		t.Fatal("expected the bullet to bounce off the wall")
	}
	if pr.Vel.X >= 0 {
		t.Fatalf("got velocity %+v after bounce, want reflected X", pr.Vel)
	}
}

func TestRocketExplodesOnWallHitWithSplash(t *testing.T) {
	wall := arena.Obstacle{Rect: arena.Rect{X: 600, Y: 0, W: 80, H: 1200}}
	bus, e := newTestEngineWithObstacles([]arena.Obstacle{wall})

	// Two bystanders inside explosions.radius of the impact point, one to
	// its left and one about 100 units off along Y, plus one player far out
	// of the blast.
	bus.Emit(events.New(events.TypeCmdJoin, events.CmdJoinPayload{PlayerID: "near", Name: "N"}))
	bus.Emit(events.New(events.TypeCmdJoin, events.CmdJoinPayload{PlayerID: "above", Name: "A"}))
	bus.Emit(events.New(events.TypeCmdJoin, events.CmdJoinPayload{PlayerID: "far", Name: "F"}))
	e.world.Players["near"].Pos = arena.Vec2{X: 560, Y: 600}
	e.world.Players["above"].Pos = arena.Vec2{X: 610, Y: 700}
	e.world.Players["far"].Pos = arena.Vec2{X: 100, Y: 100}

	pr := &arena.Projectile{
		ID:         "r1",
		OwnerID:    "shooter",
		Kind:       arena.KindRocket,
		Pos:        arena.Vec2{X: 590, Y: 600},
		Vel:        arena.Vec2{X: 420, Y: 0},
		HitRadius:  16,
		Damage:     60,
		LifetimeMs: 3000,
	}
	e.world.Projectiles[pr.ID] = pr

	var exploded, despawned bool
	var damaged []events.DamageAppliedPayload
	var knockbacks []events.KnockbackAppliedPayload
	bus.On(events.TypeExplosionSpawn, func(events.Event) { exploded = true })
	bus.On(events.TypeProjectileDespawned, func(events.Event) { despawned = true })
	bus.On(events.TypeDamageApplied, func(ev events.Event) {
		if p, ok := ev.Payload.(events.DamageAppliedPayload); ok {
			damaged = append(damaged, p)
		}
	})
	bus.On(events.TypeKnockbackApplied, func(ev events.Event) {
		if p, ok := ev.Payload.(events.KnockbackAppliedPayload); ok {
			knockbacks = append(knockbacks, p)
		}
	})

	bus.Emit(events.New(events.TypeTickPre, events.TickPayload{DtSeconds: 0.033, Now: 33}))

	if !exploded || !despawned {
		t.Fatalf("got exploded=%v despawned=%v, want both true", exploded, despawned)
	}
	if _, alive := e.world.Projectiles["r1"]; alive {
		t.Fatal("rocket must be removed from the world after exploding")
	}
	if len(damaged) != 2 {
		t.Fatalf("got %d damage:applied events, want 2 (splash on both bystanders)", len(damaged))
	}
	for _, d := range damaged {
		if d.Weapon != "explosion" {
			t.Fatalf("got weapon %q, want explosion", d.Weapon)
		}
		if d.TargetID == "far" {
			t.Fatal("splash must not reach a player outside the blast radius")
		}
	}
	if len(knockbacks) != 2 {
		t.Fatalf("got %d knockback:applied events, want 2", len(knockbacks))
	}
	if e.world.Players["near"].HP != 40 || e.world.Players["above"].HP != 40 {
		t.Fatalf("got HP near=%d above=%d, want 40 each after the blast",
			e.world.Players["near"].HP, e.world.Players["above"].HP)
	}
	if e.world.Players["far"].HP != 100 {
		t.Fatalf("got HP %d for the distant player, want untouched 100", e.world.Players["far"].HP)
	}
}

func TestProjectileDespawnsOnLifetimeExpiry(t *testing.T) {
	bus, e := newTestEngine()

	pr := &arena.Projectile{
		ID:         "b1",
		Kind:       arena.KindBullet,
		Pos:        arena.Vec2{X: 100, Y: 100},
		Vel:        arena.Vec2{X: 10, Y: 0},
		LifetimeMs: 2000,
		SpawnTime:  0,
	}
	e.world.Projectiles[pr.ID] = pr

	var despawned bool
	bus.On(events.TypeProjectileDespawned, func(events.Event) { despawned = true })

	bus.Emit(events.New(events.TypeTickPre, events.TickPayload{DtSeconds: 0.033, Now: 2500}))

	if !despawned {
		t.Fatal("expected projectile:despawned once the lifetime elapsed")
	}
}

func TestDashEndedEmittedWhenWindowCloses(t *testing.T) {
	bus, e := newTestEngine()
	now := int64(0)
	e.clockNow = func() int64 { return now }

	bus.Emit(events.New(events.TypeCmdJoin, events.CmdJoinPayload{PlayerID: "p1", Name: "Ada"}))
	bus.Emit(events.New(events.TypeCmdCast, events.CmdCastPayload{PlayerID: "p1", Skill: "skill:dash"}))

	var ended bool
	bus.On(events.TypeDashEnded, func(events.Event) { ended = true })

	bus.Emit(events.New(events.TypeTickPre, events.TickPayload{DtSeconds: 0.033, Now: 500}))

	if !ended {
		t.Fatal("expected dash:ended after the dash window closed")
	}
	p := e.world.Players["p1"]
	if p.DashFactor != 1.0 {
		t.Fatalf("got dash factor %f, want 1.0 after the dash ends", p.DashFactor)
	}
	if e.dashing["p1"] {
		t.Fatal("expected dashing bookkeeping cleared")
	}
}

func TestFaceRotatesTowardTargetAtTurnRate(t *testing.T) {
	bus, e := newTestEngine()
	bus.Emit(events.New(events.TypeCmdJoin, events.CmdJoinPayload{PlayerID: "p1", Name: "Ada"}))

	p := e.world.Players["p1"]
	p.FaceTarget = arena.Vec2{X: 0, Y: 1} // 90 degrees away from the initial +X face

	dt := 0.033
	bus.Emit(events.New(events.TypeTickPre, events.TickPayload{DtSeconds: dt, Now: 33}))

	angle := math.Atan2(p.Face.Y, p.Face.X)
	maxStep := e.cfg.Player.TurnSpeed * dt
	if angle <= 0 || angle > maxStep+1e-9 {
		t.Fatalf("got face angle %f, want in (0, %f]", angle, maxStep)
	}
}

func TestMoveBroadcastDedupAndHeartbeat(t *testing.T) {
	bus, e := newTestEngine()
	bus.Emit(events.New(events.TypeCmdJoin, events.CmdJoinPayload{PlayerID: "p1", Name: "Ada"}))

	p := e.world.Players["p1"]
	p.LastBroadcastPos = p.Pos
	p.LastHeartbeatPos = p.Pos

	var moves int
	bus.On(events.TypePlayerMove, func(events.Event) { moves++ })

	// Stationary player: no per-tick move broadcast, no heartbeat.
	bus.Emit(events.New(events.TypeTickPre, events.TickPayload{DtSeconds: 0.033, Now: 33}))
	if moves != 0 {
		t.Fatalf("got %d move events for a stationary player, want 0", moves)
	}

	// Displaced outside the dedup threshold: one broadcast from movement.
	p.Vel = arena.Vec2{X: 200, Y: 0}
	bus.Emit(events.New(events.TypeTickPre, events.TickPayload{DtSeconds: 0.033, Now: 66}))
	if moves != 1 {
		t.Fatalf("got %d move events after moving, want 1", moves)
	}

	// Stop again but leave the heartbeat snapshot stale; once enough tick
	// time accumulates the heartbeat rebroadcasts the position.
	p.Vel = arena.Vec2{}
	e.heartbeatAccumMs = 0
	p.LastHeartbeatPos = arena.Vec2{X: -100, Y: -100}
	bus.Emit(events.New(events.TypeTickPre, events.TickPayload{DtSeconds: 0.35, Now: 416}))
	if moves != 2 {
		t.Fatalf("got %d move events, want 2 after the heartbeat fired", moves)
	}
}
