// Package bot implements AI-controlled players: each bot issues the exact
// same cmd:* events a websocket client would (join/move/aim/cast/respawn),
// never touching World directly. The decision tree is distance-banded
// approach/retreat/strafe combat with an idle wander; every output is a
// command emitted on the bus, since a bot is just another connection in
// this architecture.
package bot

import (
	"math"
	"math/rand"

	"go.uber.org/zap"

	"github.com/eventarena/server/internal/clock"
	"github.com/eventarena/server/internal/events"
	"github.com/eventarena/server/internal/sim"
)

// Config tunes a bot's think cadence and combat ranges.
type Config struct {
	ThinkIntervalMs  int64
	AttackRange      float64
	MinCombatDist    float64
	Aggression       float64
	FireSkill        string // "skill:shoot", "skill:shotgun" or "skill:rocket"
	SeparationRadius float64
	SeparationWeight float64
}

// DefaultConfig holds combat bands tuned to the default projectile speeds
// and arena scale.
func DefaultConfig() Config {
	return Config{
		ThinkIntervalMs:  150,
		AttackRange:      420,
		MinCombatDist:    120,
		Aggression:       1.0,
		FireSkill:        "skill:shoot",
		SeparationRadius: 60,
		SeparationWeight: 0.4,
	}
}

// Controller drives one bot-controlled player. It never reads or writes
// *arena.Player directly; it only emits the commands a real client would
// send and reads back read-only snapshots via sim.Engine.
type Controller struct {
	log    *zap.Logger
	bus    *events.Bus
	clk    *clock.Clock
	engine *sim.Engine
	cfg    Config
	rng    *rand.Rand

	id   string
	name string

	thinkAccumMs int64
	lastDir      events.Vec2Payload

	sub events.Subscription
}

// New constructs a bot controller bound to engine/bus but does not join
// the arena yet; call Join to do that.
func New(log *zap.Logger, bus *events.Bus, clk *clock.Clock, engine *sim.Engine, name string, cfg Config, seed int64) *Controller {
	if log == nil {
		log = zap.NewNop()
	}
	return &Controller{
		log:    log,
		bus:    bus,
		clk:    clk,
		engine: engine,
		cfg:    cfg,
		rng:    rand.New(rand.NewSource(seed)),
		name:   name,
	}
}

// Join assigns this controller's player id and emits cmd:join, the same
// event a transport client's cmd:join handler emits. The emit goes through
// clk.Submit so it runs on the sim loop goroutine, like any other inbound
// command. It also subscribes to tick:post so the bot thinks on the sim
// loop, never on its own goroutine.
func (c *Controller) Join() {
	c.id = newBotID(c.rng)
	id := c.id
	name := c.name
	c.clk.Submit(func() {
		c.bus.Emit(events.New(events.TypeCmdJoin, events.CmdJoinPayload{
			ConnID: id, PlayerID: id, Name: name,
		}))
	})
	c.sub = c.bus.On(events.TypeTickPost, c.onTickPost)
}

// Leave removes the bot from the arena and stops its think loop. The leave
// emit is submitted to the sim loop for the same reason Join's is.
func (c *Controller) Leave() {
	c.bus.Off(c.sub)
	id := c.id
	c.clk.Submit(func() {
		c.bus.Emit(events.New(events.TypeCmdLeave, events.CmdLeavePayload{PlayerID: id}))
	})
}

func (c *Controller) onTickPost(ev events.Event) {
	tick, ok := ev.Payload.(events.TickPayload)
	if !ok {
		return
	}
	c.thinkAccumMs += int64(tick.DtSeconds * 1000)
	if c.thinkAccumMs < c.cfg.ThinkIntervalMs {
		return
	}
	c.thinkAccumMs = 0
	c.think(tick.Now)
}

// think finds the nearest live opponent among the engine's read-only
// snapshots and issues move/aim/cast commands.
func (c *Controller) think(now int64) {
	self, ok := c.selfSnapshot()
	if !ok {
		return
	}
	if self.IsDead {
		c.bus.Emit(events.New(events.TypeCmdRespawn, events.CmdRespawnPayload{PlayerID: c.id}))
		return
	}

	target, found := c.nearestTarget(self)
	if !found {
		c.wander(now)
		return
	}
	c.combat(self, target)
}

func (c *Controller) selfSnapshot() (sim.PlayerSnapshot, bool) {
	for _, p := range c.engine.PlayerSnapshots() {
		if p.ID == c.id {
			return p, true
		}
	}
	return sim.PlayerSnapshot{}, false
}

func (c *Controller) nearestTarget(self sim.PlayerSnapshot) (sim.PlayerSnapshot, bool) {
	var closest sim.PlayerSnapshot
	found := false
	minDist := math.MaxFloat64
	for _, p := range c.engine.PlayerSnapshots() {
		if p.ID == c.id || p.IsDead {
			continue
		}
		d := dist(self.Pos, p.Pos)
		if d < minDist {
			minDist = d
			closest = p
			found = true
		}
	}
	return closest, found
}

// combat implements the distance-banded approach/retreat/strafe logic:
// too close backs straight away from the target, inside attack range
// strafes, and far out of range approaches scaled by Aggression. In both
// close bands it casts on every think tick. The server enforces cooldowns; a cmd:cast issued while one
// is active is silently dropped, so the bot can fire every think
// tick without tracking cooldown state itself. It still checks that the
// fire arc is clear of obstacles first, so it doesn't waste casts shooting
// through a wall.
func (c *Controller) combat(self, target sim.PlayerSnapshot) {
	dx := target.Pos.X - self.Pos.X
	dy := target.Pos.Y - self.Pos.Y
	d := math.Hypot(dx, dy)
	if d < 1e-6 {
		d = 1e-6
	}
	ux, uy := dx/d, dy/d

	c.emitAim(events.Vec2Payload{X: ux, Y: uy})

	switch {
	case d < c.cfg.MinCombatDist:
		c.emitMove(c.addSeparation(self, events.Vec2Payload{X: -ux, Y: -uy}))
		if c.fireArcClear(self.Pos, target.Pos) {
			c.bus.Emit(events.New(events.TypeCmdCast, events.CmdCastPayload{PlayerID: c.id, Skill: c.cfg.FireSkill}))
		}
	case d <= c.cfg.AttackRange:
		move := c.strafe(ux, uy, 0.3)
		c.emitMove(c.addSeparation(self, move))
		if c.fireArcClear(self.Pos, target.Pos) {
			c.bus.Emit(events.New(events.TypeCmdCast, events.CmdCastPayload{PlayerID: c.id, Skill: c.cfg.FireSkill}))
		}
	default:
		c.emitMove(c.addSeparation(self, events.Vec2Payload{X: ux * c.cfg.Aggression, Y: uy * c.cfg.Aggression}))
	}
}

// fireArcClear rejects a cast when a static obstacle sits between the bot
// and its target, sampling points along the segment against each obstacle's
// rect rather than doing a full slab-method raycast; cheap and sufficient
// for the coarse obstacle layout bots navigate.
func (c *Controller) fireArcClear(from, to events.Vec2Payload) bool {
	obstacles := c.engine.MapSnapshot()
	if len(obstacles) == 0 {
		return true
	}
	const samples = 12
	for i := 1; i < samples; i++ {
		t := float64(i) / float64(samples)
		x := from.X + (to.X-from.X)*t
		y := from.Y + (to.Y-from.Y)*t
		for _, o := range obstacles {
			if x >= o.X && x <= o.X+o.W && y >= o.Y && y <= o.Y+o.H {
				return false
			}
		}
	}
	return true
}

// addSeparation blends in a push-away impulse from other live players
// within SeparationRadius, so bots converging on the same target don't end
// up stacked on one another.
func (c *Controller) addSeparation(self sim.PlayerSnapshot, move events.Vec2Payload) events.Vec2Payload {
	var sx, sy float64
	for _, p := range c.engine.PlayerSnapshots() {
		if p.ID == c.id || p.IsDead {
			continue
		}
		d := dist(self.Pos, p.Pos)
		if d >= c.cfg.SeparationRadius || d < 1e-6 {
			continue
		}
		push := (c.cfg.SeparationRadius - d) / c.cfg.SeparationRadius
		sx += (self.Pos.X - p.Pos.X) / d * push
		sy += (self.Pos.Y - p.Pos.Y) / d * push
	}
	if sx == 0 && sy == 0 {
		return move
	}
	return events.Vec2Payload{
		X: move.X + sx*c.cfg.SeparationWeight,
		Y: move.Y + sy*c.cfg.SeparationWeight,
	}
}

// strafe blends the approach direction with a perpendicular strafe
// component, flipping the strafe side at random.
func (c *Controller) strafe(ux, uy, approachWeight float64) events.Vec2Payload {
	px, py := -uy, ux
	if c.rng.Float64() < 0.5 {
		px, py = uy, -ux
	}
	strafeWeight := 1 - approachWeight
	return events.Vec2Payload{X: ux*approachWeight + px*strafeWeight, Y: uy*approachWeight + py*strafeWeight}
}

// wander is the idle behavior: mostly hold still, occasionally nudge off
// in a random direction. The engine's spawn/bounds
// clamping keeps an idle bot from wandering out of the arena.
func (c *Controller) wander(now int64) {
	if c.rng.Float64() < 0.2 {
		angle := c.rng.Float64() * 2 * math.Pi
		c.emitMove(events.Vec2Payload{X: math.Cos(angle), Y: math.Sin(angle)})
		return
	}
	c.emitMove(events.Vec2Payload{})
}

func (c *Controller) emitMove(dir events.Vec2Payload) {
	if dir == c.lastDir {
		return
	}
	c.lastDir = dir
	c.bus.Emit(events.New(events.TypeCmdMove, events.CmdMovePayload{PlayerID: c.id, Dir: dir}))
}

func (c *Controller) emitAim(dir events.Vec2Payload) {
	c.bus.Emit(events.New(events.TypeCmdAim, events.CmdAimPayload{PlayerID: c.id, Dir: dir}))
}

func dist(a, b events.Vec2Payload) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

func newBotID(rng *rand.Rand) string {
	const hex = "0123456789abcdef"
	b := make([]byte, 16)
	for i := range b {
		b[i] = hex[rng.Intn(len(hex))]
	}
	return "bot-" + string(b)
}
