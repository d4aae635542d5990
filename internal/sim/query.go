package sim

import (
	"sort"

	"github.com/eventarena/server/internal/events"
)

// PlayerSnapshot is the read-only per-player view handed to HUD widgets.
// It never aliases the engine's live
// *arena.Player, so a widget holding one cannot corrupt simulation state.
type PlayerSnapshot struct {
	ID            string
	Name          string
	Pos           events.Vec2Payload
	HP            int
	IsDead        bool
	Kills         int
	Deaths        int
	Assists       int
	CurrentStreak int
}

// PlayerSnapshots returns every connected player, sorted by id for
// deterministic iteration (map order otherwise varies per call).
func (e *Engine) PlayerSnapshots() []PlayerSnapshot {
	out := make([]PlayerSnapshot, 0, len(e.world.Players))
	for _, p := range e.world.Players {
		out = append(out, PlayerSnapshot{
			ID:            p.ID,
			Name:          p.Name,
			Pos:           fromVec(p.Pos),
			HP:            p.HP,
			IsDead:        p.IsDead,
			Kills:         p.Stats.Kills,
			Deaths:        p.Stats.Deaths,
			Assists:       p.Stats.Assists,
			CurrentStreak: p.Stats.CurrentStreak,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// otherPlayerSummaries builds the wire-shaped roster for a session:started
// frame, excluding the joining player itself.
func (e *Engine) otherPlayerSummaries(excludeID string) []events.PlayerSummary {
	out := make([]events.PlayerSummary, 0, len(e.world.Players))
	for _, p := range e.world.Players {
		if p.ID == excludeID {
			continue
		}
		out = append(out, events.PlayerSummary{ID: p.ID, Name: p.Name, Pos: fromVec(p.Pos)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// matchSummary converts the current match (if any) into its wire shape.
func (e *Engine) matchSummary() *events.MatchSummary {
	m := e.CurrentMatch()
	if m == nil {
		return nil
	}
	return &events.MatchSummary{ID: m.ID, Mode: m.Mode, Phase: m.Phase, StartsAt: m.StartsAt, EndsAt: m.EndsAt}
}

// MapSnapshot returns the obstacle list in the wire shape used by the
// map:loaded welcome frame.
func (e *Engine) MapSnapshot() []events.ObstaclePayload {
	rects := e.world.ObstacleRects()
	out := make([]events.ObstaclePayload, len(rects))
	for i, r := range rects {
		out[i] = events.ObstaclePayload{Type: "rect", X: r.X, Y: r.Y, W: r.W, H: r.H}
	}
	return out
}

// PickupSnapshots returns every live pickup in the wire shape used by the
// welcome frame's initial pickup list.
func (e *Engine) PickupSnapshots() []events.PickupSpawnedPayload {
	out := make([]events.PickupSpawnedPayload, 0, len(e.world.Pickups))
	for _, pk := range e.world.Pickups {
		out = append(out, events.PickupSpawnedPayload{ID: pk.ID, Pos: fromVec(pk.Pos), Kind: string(pk.Kind)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
