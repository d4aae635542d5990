package sim

import (
	"github.com/eventarena/server/internal/arena"
	"github.com/eventarena/server/internal/events"
)

const (
	pickupSpawnIntervalMs = 5000
	maxAlivePickups       = 12
	pickupPickRadius      = 20
)

var pickupKinds = []arena.PickupKind{arena.PickupHeal, arena.PickupHaste, arena.PickupShield}

// resolvePickupsAndBuffs runs the periodic spawn, collection and buff
// expiry pass on tick:post.
func (e *Engine) resolvePickupsAndBuffs(now, dtMs int64) {
	e.spawnPickups(now, dtMs)
	e.collectPickups(now)
	e.expireBuffs(now)
}

func (e *Engine) spawnPickups(now, dtMs int64) {
	e.pickupAccumMs += dtMs
	if e.pickupAccumMs < pickupSpawnIntervalMs {
		return
	}
	e.pickupAccumMs = 0

	if len(e.world.Pickups) >= maxAlivePickups {
		return
	}

	kind := pickupKinds[e.rng.Intn(len(pickupKinds))]
	pos := e.spawn.FindSafeSpawnPosition()
	pk := &arena.Pickup{ID: newID(), Pos: pos, Kind: kind}
	e.world.Pickups[pk.ID] = pk

	e.bus.Emit(events.New(events.TypePickupSpawned, events.PickupSpawnedPayload{
		ID:   pk.ID,
		Pos:  fromVec(pk.Pos),
		Kind: string(pk.Kind),
	}))
}

func (e *Engine) collectPickups(now int64) {
	for _, p := range e.world.Players {
		if p.IsDead {
			continue
		}
		for _, pk := range e.world.Pickups {
			if p.Pos.DistanceTo(pk.Pos) > pickupPickRadius {
				continue
			}
			e.collectPickup(p, pk, now)
			break
		}
	}
}

func (e *Engine) collectPickup(p *arena.Player, pk *arena.Pickup, now int64) {
	delete(e.world.Pickups, pk.ID)
	e.bus.Emit(events.New(events.TypePickupCollected, events.PickupCollectedPayload{
		ID: pk.ID,
		By: p.ID,
	}))

	switch pk.Kind {
	case arena.PickupHeal:
		if p.HP+35 > 100 {
			p.HP = 100
		} else {
			p.HP += 35
		}
		e.bus.Emit(events.New(events.TypeBuffApplied, events.BuffAppliedPayload{
			PlayerID: p.ID,
			Kind:     string(arena.PickupHeal),
			Duration: 0,
		}))
	case arena.PickupHaste:
		p.HasteUntil = now + e.cfg.Buffs.HasteDefaultDuration
		p.HasteFactor = e.cfg.Buffs.HasteMultiplier
		e.bus.Emit(events.New(events.TypeBuffApplied, events.BuffAppliedPayload{
			PlayerID: p.ID,
			Kind:     string(arena.PickupHaste),
			Duration: e.cfg.Buffs.HasteDefaultDuration,
		}))
	case arena.PickupShield:
		p.ShieldUntil = now + e.cfg.Buffs.ShieldDefaultDuration
		e.bus.Emit(events.New(events.TypeBuffApplied, events.BuffAppliedPayload{
			PlayerID: p.ID,
			Kind:     string(arena.PickupShield),
			Duration: e.cfg.Buffs.ShieldDefaultDuration,
		}))
	}
}

func (e *Engine) expireBuffs(now int64) {
	for _, p := range e.world.Players {
		if p.HasteUntil != 0 && p.HasteUntil <= now {
			p.HasteUntil = 0
			p.HasteFactor = 1.0
			e.bus.Emit(events.New(events.TypeBuffExpired, events.BuffExpiredPayload{
				PlayerID: p.ID,
				Kind:     string(arena.PickupHaste),
			}))
		}
		if p.ShieldUntil != 0 && p.ShieldUntil <= now {
			p.ShieldUntil = 0
			e.bus.Emit(events.New(events.TypeBuffExpired, events.BuffExpiredPayload{
				PlayerID: p.ID,
				Kind:     string(arena.PickupShield),
			}))
		}
	}
}
