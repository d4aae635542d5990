package sim

import (
	"math"

	"go.uber.org/zap"

	"github.com/eventarena/server/internal/arena"
	"github.com/eventarena/server/internal/events"
)

// respawnDelayMs is the fixed "deadUntil" window after a death.
const respawnDelayMs = 5000

// dashDurationMs and dashFactorMul parameterize skill:dash.
const (
	dashDurationMs = 220
	dashFactorMul  = 2.5
)

func (e *Engine) onCmdJoin(ev events.Event) {
	p, ok := ev.Payload.(events.CmdJoinPayload)
	if !ok {
		return
	}
	id := p.PlayerID
	if id == "" {
		id = newID()
	}
	pos := e.spawn.FindSafeSpawnPosition()
	player := arena.NewPlayer(id, p.Name, pos, e.cfg.Player.Radius)
	player.Stats = arena.Stats{MatchStartTime: e.clockNow()}
	e.world.Players[id] = player

	e.bus.Emit(events.New(events.TypePlayerJoin, events.PlayerJoinPayload{
		PlayerID: id,
		Name:     p.Name,
		Pos:      fromVec(pos),
	}))

	e.bus.Emit(events.New(events.TypeSessionStarted, events.SessionStartedPayload{
		PlayerID: id,
		Name:     p.Name,
		Players:  e.otherPlayerSummaries(id),
		Match:    e.matchSummary(),
	}))
}

func (e *Engine) onCmdLeave(ev events.Event) {
	p, ok := ev.Payload.(events.CmdLeavePayload)
	if !ok {
		return
	}
	id := p.PlayerID
	if _, exists := e.world.Players[id]; !exists {
		return
	}
	delete(e.world.Players, id)
	delete(e.dashing, id)
	delete(e.deadUntil, id)
	delete(e.recentDamage, id)

	// Leave is a disconnect, not a death: it does not affect stats.
	e.bus.Emit(events.New(events.TypePlayerLeave, events.PlayerLeavePayload{PlayerID: id}))
}

func (e *Engine) onCmdMove(ev events.Event) {
	p, ok := ev.Payload.(events.CmdMovePayload)
	if !ok {
		return
	}
	player := e.world.Players[p.PlayerID]
	if player == nil || player.IsDead {
		return
	}

	dir := toVec(p.Dir)
	if player.HasLastSentMoveDir && dir.EqualWithin(player.LastSentMoveDir, 1e-9) {
		return
	}
	player.LastSentMoveDir = dir
	player.HasLastSentMoveDir = true

	n := dir.Normalized()
	if dir.IsZero() {
		n = arena.Vec2{}
	}
	speed := player.EffectiveSpeed(e.cfg.Player.Speed, e.clockNow())
	player.Vel = n.Scale(speed)
}

func (e *Engine) onCmdAim(ev events.Event) {
	p, ok := ev.Payload.(events.CmdAimPayload)
	if !ok {
		return
	}
	player := e.world.Players[p.PlayerID]
	if player == nil || player.IsDead {
		return
	}
	player.FaceTarget = toVec(p.Dir).Normalized()

	e.bus.Emit(events.New(events.TypePlayerAimed, events.PlayerAimedPayload{
		PlayerID: p.PlayerID,
		Dir:      fromVec(player.FaceTarget),
	}))
}

func (e *Engine) onCmdCast(ev events.Event) {
	p, ok := ev.Payload.(events.CmdCastPayload)
	if !ok {
		return
	}
	player := e.world.Players[p.PlayerID]
	if player == nil || player.IsDead {
		return
	}
	t := e.clockNow()

	switch p.Skill {
	case "skill:shoot":
		e.castShoot(player, t)
	case "skill:shotgun":
		e.castShotgun(player, t)
	case "skill:rocket":
		e.castRocket(player, t)
	case "skill:dash":
		e.castDash(player, t)
	default:
		e.log.Warn("unknown cast skill", zap.String("skill", p.Skill), zap.String("playerId", player.ID))
	}
}

// aimDirection resolves the direction a new projectile should travel:
// face, falling back to vel, falling back to +X.
func aimDirection(p *arena.Player) arena.Vec2 {
	if !p.Face.IsZero() {
		return p.Face.Normalized()
	}
	if !p.Vel.IsZero() {
		return p.Vel.Normalized()
	}
	return arena.Vec2{X: 1, Y: 0}
}

func (e *Engine) spawnProjectile(owner *arena.Player, kind arena.ProjectileKind, dir arena.Vec2, speed, hitRadius, damage float64, lifetime int64, maxBounces int, dropoff, retention float64, t int64) {
	pr := &arena.Projectile{
		ID:                newID(),
		OwnerID:           owner.ID,
		Kind:              kind,
		Pos:               owner.Pos,
		Vel:               dir.Scale(speed),
		HitRadius:         hitRadius,
		Damage:            damage,
		LifetimeMs:        lifetime,
		SpawnTime:         t,
		MaxBounces:        maxBounces,
		DamageDropoff:     dropoff,
		VelocityRetention: retention,
	}
	e.world.Projectiles[pr.ID] = pr
	owner.Stats.ShotsFired++

	e.bus.Emit(events.New(events.TypeProjectileSpawned, events.ProjectileSpawnedPayload{
		ID:      pr.ID,
		OwnerID: pr.OwnerID,
		Kind:    string(pr.Kind),
		Pos:     fromVec(pr.Pos),
		Vel:     fromVec(pr.Vel),
	}))
}

func (e *Engine) castShoot(player *arena.Player, t int64) {
	if !player.CooldownReady("skill:shoot", t) {
		return
	}
	player.SetCooldown("skill:shoot", t, e.cfg.Cooldowns.ShootMs)

	cfg := e.cfg.Projectiles.Bullet
	dir := aimDirection(player)
	e.spawnProjectile(player, arena.KindBullet, dir, e.cfg.Projectiles.BaseSpeed, e.cfg.Projectiles.HitRadius, cfg.Damage, cfg.Lifetime, cfg.MaxBounces, cfg.DamageDropoff, cfg.VelocityRetention, t)
}

func (e *Engine) castShotgun(player *arena.Player, t int64) {
	if !player.CooldownReady("skill:shotgun", t) {
		return
	}
	player.SetCooldown("skill:shotgun", t, e.cfg.Cooldowns.ShotgunMs)

	cfg := e.cfg.Projectiles.Pellet
	dir := aimDirection(player)
	base := math.Atan2(dir.Y, dir.X)
	count := cfg.Count
	if count <= 0 {
		count = 1
	}
	for i := 0; i < count; i++ {
		frac := 0.0
		if count > 1 {
			frac = float64(i)/float64(count-1)*2 - 1 // -1..1
		}
		angle := base + frac*cfg.Spread
		pelletDir := arena.Vec2{X: math.Cos(angle), Y: math.Sin(angle)}
		e.spawnProjectile(player, arena.KindPellet, pelletDir, e.cfg.Projectiles.BaseSpeed, e.cfg.Projectiles.HitRadius, cfg.Damage, cfg.Lifetime, cfg.MaxBounces, cfg.DamageDropoff, cfg.VelocityRetention, t)
	}
}

func (e *Engine) castRocket(player *arena.Player, t int64) {
	if !player.CooldownReady("skill:rocket", t) {
		return
	}
	player.SetCooldown("skill:rocket", t, e.cfg.Cooldowns.RocketMs)

	cfg := e.cfg.Projectiles.Rocket
	dir := aimDirection(player)
	speed := cfg.Speed
	if speed <= 0 {
		speed = e.cfg.Projectiles.BaseSpeed
	}
	hitRadius := cfg.HitRadius
	if hitRadius <= 0 {
		hitRadius = e.cfg.Projectiles.HitRadius
	}
	e.spawnProjectile(player, arena.KindRocket, dir, speed, hitRadius, cfg.Damage, cfg.Lifetime, cfg.MaxBounces, cfg.DamageDropoff, cfg.VelocityRetention, t)
}

func (e *Engine) castDash(player *arena.Player, t int64) {
	if !player.CooldownReady("skill:dash", t) {
		return
	}
	player.SetCooldown("skill:dash", t, e.cfg.Cooldowns.DashMs)

	player.DashUntil = t + dashDurationMs
	player.IframeUntil = t + dashDurationMs
	player.DashFactor = dashFactorMul
	e.dashing[player.ID] = true

	e.bus.Emit(events.New(events.TypeDashStarted, events.DashStartedPayload{
		PlayerID: player.ID,
		Duration: dashDurationMs,
		IFrames:  true,
	}))
}

func (e *Engine) onCmdRespawn(ev events.Event) {
	p, ok := ev.Payload.(events.CmdRespawnPayload)
	if !ok {
		return
	}
	player := e.world.Players[p.PlayerID]
	if player == nil || !player.IsDead {
		return
	}
	t := e.clockNow()
	if t < e.deadUntil[p.PlayerID] {
		return
	}
	delete(e.deadUntil, p.PlayerID)

	pos := e.spawn.FindSafeSpawnPosition()
	player.ResetForRespawn(pos, t)

	e.bus.Emit(events.New(events.TypePlayerJoin, events.PlayerJoinPayload{
		PlayerID: player.ID,
		Name:     player.Name,
		Pos:      fromVec(pos),
	}))
}
