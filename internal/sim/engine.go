// Package sim wires the World, event bus and clock together into the
// authoritative simulation: command handling, movement/collision,
// combat/streaks, pickups/buffs and match lifecycle. One Engine type owns
// the tick subscriptions and all per-tick bookkeeping.
package sim

import (
	"math/rand"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/eventarena/server/internal/arena"
	"github.com/eventarena/server/internal/config"
	"github.com/eventarena/server/internal/events"
)

// damageRecord is one contribution toward the assist window for a victim,
// kept for assistTimeWindow ms after being recorded.
type damageRecord struct {
	Source    string
	Timestamp int64
	Amount    int
	Weapon    string
}

// Engine owns every piece of mutable bookkeeping that isn't naturally part
// of World itself: dashing-state tracking, respawn timers, assist windows,
// spawn/heartbeat accumulators and the current match. It subscribes to the
// bus at construction and never exposes World for direct external
// mutation.
type Engine struct {
	log   *zap.Logger
	bus   *events.Bus
	world *arena.World
	spawn *arena.SpawnManager
	cfg   config.Config
	rng   *rand.Rand
	sched *Scheduler

	dashing      map[string]bool
	deadUntil    map[string]int64
	recentDamage map[string][]damageRecord

	pickupAccumMs    int64
	heartbeatAccumMs int64

	match *matchState

	autoRestartMode        string
	autoRestartCountdownMs int64
	autoRestartDurationMs  int64

	// clockNow is the wall-clock source for every handler that needs "now"
	// outside the tick payload (commands, damage resolution, match timers).
	// Overridable so tests can drive it deterministically.
	clockNow func() int64
}

// NewEngine constructs an engine bound to world/bus/spawn/cfg and subscribes
// every handler. The caller owns starting the clock separately.
func NewEngine(log *zap.Logger, bus *events.Bus, world *arena.World, spawn *arena.SpawnManager, cfg config.Config) *Engine {
	e := &Engine{
		log:          log,
		bus:          bus,
		world:        world,
		spawn:        spawn,
		cfg:          cfg,
		rng:          rand.New(rand.NewSource(time.Now().UnixNano())),
		sched:        NewScheduler(),
		dashing:      make(map[string]bool),
		deadUntil:    make(map[string]int64),
		recentDamage: make(map[string][]damageRecord),
		clockNow:     func() int64 { return time.Now().UnixMilli() },
	}
	e.wire()
	return e
}

func (e *Engine) wire() {
	bus := e.bus
	bus.On(events.TypeCmdJoin, e.onCmdJoin)
	bus.On(events.TypeCmdLeave, e.onCmdLeave)
	bus.On(events.TypeCmdMove, e.onCmdMove)
	bus.On(events.TypeCmdAim, e.onCmdAim)
	bus.On(events.TypeCmdCast, e.onCmdCast)
	bus.On(events.TypeCmdRespawn, e.onCmdRespawn)

	bus.On(events.TypeTickPre, e.onTickPre)
	bus.On(events.TypeTickPost, e.onTickPost)

	bus.On(events.TypeDamageApplied, e.onDamageApplied)
	bus.On(events.TypePlayerDie, e.onPlayerDie)
}

func newID() string {
	return uuid.NewString()
}

func toVec(v events.Vec2Payload) arena.Vec2 {
	return arena.Vec2{X: v.X, Y: v.Y}
}

func fromVec(v arena.Vec2) events.Vec2Payload {
	return events.Vec2Payload{X: v.X, Y: v.Y}
}
