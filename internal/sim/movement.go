package sim

import (
	"math"

	"github.com/eventarena/server/internal/arena"
	"github.com/eventarena/server/internal/events"
)

// maxSubstepUnits bounds how far a player or projectile may travel in a
// single substep, preventing tunneling through thin obstacles at high
// speed.
const maxSubstepUnits = 6.0

func (e *Engine) onTickPre(ev events.Event) {
	tick, ok := ev.Payload.(events.TickPayload)
	if !ok {
		return
	}
	now := tick.Now
	dt := tick.DtSeconds

	for _, p := range e.world.Players {
		if p.IsDead {
			continue
		}
		e.integratePlayer(p, now, dt)
	}

	for id, pr := range e.world.Projectiles {
		e.integrateProjectile(id, pr, now, dt)
	}

	e.heartbeat(now, int64(dt*1000))
}

func (e *Engine) integratePlayer(p *arena.Player, now int64, dt float64) {
	eff := p.Vel
	if p.KB.Active(now) {
		eff = eff.Add(p.KB.Vel)
	}
	if p.KB.Until != 0 && p.KB.Until <= now {
		p.KB = arena.KnockbackState{}
	}

	wasDashing := e.dashing[p.ID]
	stillDashing := p.DashUntil > now
	if wasDashing && !stillDashing {
		delete(e.dashing, p.ID)
		p.DashFactor = 1.0
		e.bus.Emit(events.New(events.TypeDashEnded, events.DashEndedPayload{PlayerID: p.ID}))
	}
	if stillDashing {
		eff = eff.Scale(p.DashFactor)
	}

	startPos := p.Pos
	effLen := eff.Length()
	steps := 1
	if effLen > 0 {
		steps = int(math.Ceil(effLen * dt / maxSubstepUnits))
		if steps < 1 {
			steps = 1
		}
	}
	subDt := dt / float64(steps)

	pos := p.Pos
	for i := 0; i < steps; i++ {
		pos = pos.Add(eff.Scale(subDt))
		pos = e.world.Clamp(pos)
		pos = e.resolvePlayerObstacles(pos, p.Radius)
	}
	p.Pos = pos

	e.rotateFace(p, now, dt)

	moved := !p.Pos.EqualWithin(startPos, 1e-12)
	e.broadcastMovement(p, moved, now)
}

// resolvePlayerObstacles pushes pos out of every overlapping obstacle rect
// along the shortest penetration vector to the closest rect point.
func (e *Engine) resolvePlayerObstacles(pos arena.Vec2, radius float64) arena.Vec2 {
	for _, r := range e.world.ObstacleRects() {
		closest := r.ClosestPoint(pos)
		diff := pos.Sub(closest)
		dist := diff.Length()
		if dist >= radius {
			continue
		}
		if dist < 1e-9 {
			normal, depth := r.PenetrationNormal(pos)
			pos = pos.Add(normal.Scale(depth + radius))
			continue
		}
		normal := diff.Normalized()
		pos = closest.Add(normal.Scale(radius))
	}
	return pos
}

// rotateFace turns face toward faceTarget by at most turnSpeed*dt radians,
// choosing the sign that shortens the angular distance.
func (e *Engine) rotateFace(p *arena.Player, now int64, dt float64) {
	if p.Face == p.FaceTarget {
		return
	}
	maxStep := e.cfg.Player.TurnSpeed * dt

	cur := math.Atan2(p.Face.Y, p.Face.X)
	target := math.Atan2(p.FaceTarget.Y, p.FaceTarget.X)
	diff := normalizeAngle(target - cur)

	if math.Abs(diff) <= maxStep {
		p.Face = p.FaceTarget
		return
	}
	step := maxStep
	if diff < 0 {
		step = -maxStep
	}
	newAngle := cur + step
	p.Face = arena.Vec2{X: math.Cos(newAngle), Y: math.Sin(newAngle)}
}

func normalizeAngle(a float64) float64 {
	for a > math.Pi {
		a -= 2 * math.Pi
	}
	for a < -math.Pi {
		a += 2 * math.Pi
	}
	return a
}

// broadcastMovement dedupes per-tick position/aim broadcasts against the
// last values actually sent.
func (e *Engine) broadcastMovement(p *arena.Player, moved bool, now int64) {
	eps := e.cfg.Combat.MovementThreshold

	if moved && !p.Pos.EqualWithin(p.LastBroadcastPos, eps) {
		e.bus.Emit(events.New(events.TypePlayerMove, events.PlayerMovePayload{
			PlayerID: p.ID,
			Pos:      fromVec(p.Pos),
		}))
		p.LastBroadcastPos = p.Pos
	}

	if !p.Face.EqualWithin(p.LastFace, 1e-3) {
		e.bus.Emit(events.New(events.TypePlayerAimed, events.PlayerAimedPayload{
			PlayerID: p.ID,
			Dir:      fromVec(p.Face),
		}))
		p.LastFace = p.Face
	}
}

// heartbeat is invoked once per tick:pre with the tick's dt in ms, which it
// adds to e.heartbeatAccumMs; once that reaches the heartbeat interval it
// rebroadcasts position for any live player that moved since its last
// heartbeat snapshot, mitigating lost updates on unreliable transports.
func (e *Engine) heartbeat(now int64, dtMs int64) {
	e.heartbeatAccumMs += dtMs
	if e.heartbeatAccumMs < e.cfg.Combat.HeartbeatInterval {
		return
	}
	e.heartbeatAccumMs = 0

	for _, p := range e.world.Players {
		if p.IsDead {
			continue
		}
		if p.Pos.EqualWithin(p.LastHeartbeatPos, 0.01) {
			continue
		}
		p.LastHeartbeatPos = p.Pos
		e.bus.Emit(events.New(events.TypePlayerMove, events.PlayerMovePayload{
			PlayerID: p.ID,
			Pos:      fromVec(p.Pos),
		}))
	}
}

func (e *Engine) integrateProjectile(id string, pr *arena.Projectile, now int64, dt float64) {
	speed := pr.Vel.Length()
	steps := 1
	if speed > 0 {
		steps = int(math.Ceil(speed * dt / maxSubstepUnits))
		if steps < 1 {
			steps = 1
		}
	}
	subDt := dt / float64(steps)

	for i := 0; i < steps; i++ {
		pr.Pos = pr.Pos.Add(pr.Vel.Scale(subDt))
		if hitRect, hit := e.projectileObstacleHit(pr); hit {
			if e.resolveObstacleHit(pr, hitRect, now) {
				return
			}
			// bounced: keep stepping along the reflected velocity
		}
	}

	if pr.Expired(now) {
		e.explodeOrDespawn(pr, now)
		return
	}

	if !e.world.InBounds(pr.Pos) {
		e.despawnProjectile(pr.ID)
		return
	}

	e.bus.Emit(events.New(events.TypeProjectileMoved, events.ProjectileMovedPayload{
		ID:  pr.ID,
		Pos: fromVec(pr.Pos),
	}))
}

func (e *Engine) projectileObstacleHit(pr *arena.Projectile) (arena.Rect, bool) {
	for _, r := range e.world.ObstacleRects() {
		if r.Contains(pr.Pos) {
			return r, true
		}
	}
	return arena.Rect{}, false
}

// resolveObstacleHit handles a projectile inside an obstacle rect:
// rockets explode, everything else bounces. Reports whether the projectile
// was despawned (a rocket, or a bounce with no bounces left).
func (e *Engine) resolveObstacleHit(pr *arena.Projectile, r arena.Rect, now int64) bool {
	if pr.Kind == arena.KindRocket {
		e.explodeAt(pr.Pos, pr.OwnerID, now)
		e.despawnProjectile(pr.ID)
		return true
	}

	normal, depth := r.PenetrationNormal(pr.Pos)
	pr.Pos = pr.Pos.Add(normal.Scale(depth + 1))
	pr.Bounce(normal)

	if pr.BounceCount > pr.MaxBounces {
		e.despawnProjectile(pr.ID)
		return true
	}
	e.bus.Emit(events.New(events.TypeProjectileBounced, events.ProjectileBouncedPayload{
		ID:     pr.ID,
		Normal: fromVec(normal),
	}))
	return false
}

func (e *Engine) explodeOrDespawn(pr *arena.Projectile, now int64) {
	if pr.Kind == arena.KindRocket {
		e.explodeAt(pr.Pos, pr.OwnerID, now)
	}
	e.despawnProjectile(pr.ID)
}

func (e *Engine) despawnProjectile(id string) {
	delete(e.world.Projectiles, id)
	e.bus.Emit(events.New(events.TypeProjectileDespawned, events.ProjectileDespawnedPayload{ID: id}))
}
