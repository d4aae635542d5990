package sim

import (
	"math"

	"github.com/eventarena/server/internal/arena"
	"github.com/eventarena/server/internal/events"
)

func (e *Engine) onTickPost(ev events.Event) {
	tick, ok := ev.Payload.(events.TickPayload)
	if !ok {
		return
	}
	now := tick.Now

	e.resolveProjectileHits(now)
	e.resolvePickupsAndBuffs(now, int64(tick.DtSeconds*1000))
	e.sched.Drain(now)
}

// resolveProjectileHits is the per-tick combat pass: any
// projectile within hitRadius of a live non-owner player is consumed.
func (e *Engine) resolveProjectileHits(now int64) {
	for _, pr := range e.world.Projectiles {
		var victim *arena.Player
		for _, p := range e.world.Players {
			if p.IsDead || p.ID == pr.OwnerID {
				continue
			}
			if pr.Pos.DistanceTo(p.Pos) <= pr.HitRadius {
				victim = p
				break
			}
		}
		if victim == nil {
			continue
		}
		e.resolveProjectileHit(pr, victim, now)
	}
}

func (e *Engine) resolveProjectileHit(pr *arena.Projectile, victim *arena.Player, now int64) {
	delete(e.world.Projectiles, pr.ID)
	e.bus.Emit(events.New(events.TypeProjectileDespawned, events.ProjectileDespawnedPayload{ID: pr.ID}))

	if pr.Kind == arena.KindRocket {
		e.explodeAt(pr.Pos, pr.OwnerID, now)
		return
	}

	if owner := e.world.Players[pr.OwnerID]; owner != nil {
		owner.Stats.ShotsHit++
	}
	e.bus.Emit(events.New(events.TypeDamageApplied, events.DamageAppliedPayload{
		TargetID: victim.ID,
		Amount:   pr.CurrentDamage(),
		Source:   pr.OwnerID,
		Weapon:   string(pr.Kind),
	}))
}

// explodeAt emits explosion:spawned at pos and applies the radius splash:
// every live player within explosions.radius takes the blast damage and a
// knockback directed away from the center. Shared by every rocket
// detonation path (direct player hit, wall hit, lifetime expiry).
func (e *Engine) explodeAt(pos arena.Vec2, sourceID string, now int64) {
	radius := e.cfg.Explosions.Radius
	damage := e.cfg.Explosions.Damage

	e.bus.Emit(events.New(events.TypeExplosionSpawn, events.ExplosionSpawnedPayload{
		Pos:    fromVec(pos),
		Radius: radius,
		Damage: damage,
	}))

	for _, lp := range e.world.Players {
		if lp.IsDead {
			continue
		}
		if pos.DistanceTo(lp.Pos) > radius {
			continue
		}
		dir := lp.Pos.Sub(pos).Normalized()
		magnitude := float64(damage) * e.cfg.Explosions.KnockbackPower
		e.applyKnockback(lp, dir, magnitude, e.cfg.Combat.KnockbackDuration, now)

		e.bus.Emit(events.New(events.TypeDamageApplied, events.DamageAppliedPayload{
			TargetID: lp.ID,
			Amount:   damage,
			Source:   sourceID,
			Weapon:   "explosion",
		}))
	}
}

func (e *Engine) applyKnockback(target *arena.Player, dir arena.Vec2, magnitude float64, durationMs, now int64) {
	target.KB = arena.KnockbackState{Vel: dir.Scale(magnitude), Until: now + durationMs}
	e.bus.Emit(events.New(events.TypeKnockbackApplied, events.KnockbackAppliedPayload{
		PlayerID: target.ID,
		Normal:   fromVec(dir),
		Duration: durationMs,
	}))
}

// onDamageApplied is the central damage:applied handler.
// The explosion path above already applied blast-center-based knockback
// before emitting this event, so the generic toward-target-from-source
// knockback here is only computed for direct bullet/pellet hits.
func (e *Engine) onDamageApplied(ev events.Event) {
	p, ok := ev.Payload.(events.DamageAppliedPayload)
	if !ok {
		return
	}
	target := e.world.Players[p.TargetID]
	now := e.clockNow()
	if target == nil || target.IsDead || target.HasIframes(now) {
		return
	}

	effective := p.Amount
	if target.HasShield(now) {
		effective = int(math.Ceil(float64(p.Amount) * e.cfg.Buffs.ShieldReduction))
	}
	if effective > target.HP {
		target.HP = 0
	} else {
		target.HP -= effective
	}
	target.Stats.DamageTaken += effective
	if source := e.world.Players[p.Source]; source != nil && source.ID != target.ID {
		source.Stats.DamageDealt += effective
	}

	e.recentDamage[target.ID] = append(e.recentDamage[target.ID], damageRecord{
		Source:    p.Source,
		Timestamp: now,
		Amount:    effective,
		Weapon:    p.Weapon,
	})
	e.pruneRecentDamage(target.ID, now)

	if p.Weapon != "explosion" {
		dir := arena.Vec2{X: 1, Y: 0}
		if source := e.world.Players[p.Source]; source != nil {
			dir = target.Pos.Sub(source.Pos).Normalized()
		}
		magnitude := float64(effective) * e.cfg.Explosions.KnockbackPower
		e.applyKnockback(target, dir, magnitude, e.cfg.Combat.KnockbackDuration, now)
	}

	if target.HP <= 0 {
		e.resolveKill(target, p.Source, p.Weapon, now)
	}
}

func (e *Engine) pruneRecentDamage(targetID string, now int64) {
	window := e.cfg.Combat.AssistTimeWindow
	records := e.recentDamage[targetID]
	kept := records[:0]
	for _, r := range records {
		if now-r.Timestamp <= window {
			kept = append(kept, r)
		}
	}
	e.recentDamage[targetID] = kept
}

func (e *Engine) resolveKill(target *arena.Player, sourceID, weapon string, now int64) {
	if target.IsDead {
		return
	}
	target.IsDead = true
	target.DiedAt = now
	target.Stats.Deaths++
	target.Stats.LastDeathTime = now
	target.Stats.CurrentStreak = 0

	var assistIDs []string
	if sourceID != "" && sourceID != target.ID {
		if source := e.world.Players[sourceID]; source != nil {
			previous := source.Stats.CurrentStreak
			source.Stats.Kills++
			source.Stats.LastKillTime = now
			source.Stats.CurrentStreak++
			if source.Stats.CurrentStreak > source.Stats.BestStreak {
				source.Stats.BestStreak = source.Stats.CurrentStreak
			}
			e.bus.Emit(events.New(events.TypeStreakChanged, events.StreakChangedPayload{
				PlayerID:       source.ID,
				Streak:         source.Stats.CurrentStreak,
				PreviousStreak: previous,
			}))
		}

		seen := make(map[string]bool)
		for _, rec := range e.recentDamage[target.ID] {
			if rec.Source == "" || rec.Source == sourceID || rec.Source == target.ID || seen[rec.Source] {
				continue
			}
			seen[rec.Source] = true
			assistIDs = append(assistIDs, rec.Source)
			if assister := e.world.Players[rec.Source]; assister != nil {
				assister.Stats.Assists++
			}
		}

		e.bus.Emit(events.New(events.TypePlayerKill, events.PlayerKillPayload{
			KillerID:  sourceID,
			VictimID:  target.ID,
			AssistIDs: assistIDs,
		}))

		killerName := sourceID
		if source := e.world.Players[sourceID]; source != nil {
			killerName = source.Name
		}
		e.bus.Emit(events.New(events.TypeFeedEntry, events.FeedEntryPayload{
			Killer:    killerName,
			Victim:    target.Name,
			Weapon:    weapon,
			AssistIDs: assistIDs,
			Timestamp: now,
		}))

		if source := e.world.Players[sourceID]; source != nil {
			e.emitScoreUpdate(source)
		}
		for _, id := range assistIDs {
			if assister := e.world.Players[id]; assister != nil {
				e.emitScoreUpdate(assister)
			}
		}
	}

	e.emitScoreUpdate(target)
	e.bus.Emit(events.New(events.TypePlayerDie, events.PlayerDiePayload{PlayerID: target.ID}))
	delete(e.recentDamage, target.ID)
}

func (e *Engine) emitScoreUpdate(p *arena.Player) {
	e.bus.Emit(events.New(events.TypeScoreUpdate, events.ScoreUpdatePayload{
		PlayerID: p.ID,
		Kills:    p.Stats.Kills,
		Deaths:   p.Stats.Deaths,
		Assists:  p.Stats.Assists,
	}))
}

// onPlayerDie starts the respawn timer and sends the private player:dead
// notice (routed by the transport adapter since only it knows which
// connection owns this player id).
func (e *Engine) onPlayerDie(ev events.Event) {
	p, ok := ev.Payload.(events.PlayerDiePayload)
	if !ok {
		return
	}
	t := e.clockNow()
	deadline := t + respawnDelayMs
	e.deadUntil[p.PlayerID] = deadline

	e.bus.Emit(events.New(events.TypePlayerDead, events.PlayerDeadPayload{
		PlayerID: p.PlayerID,
		Until:    deadline,
	}))
}
