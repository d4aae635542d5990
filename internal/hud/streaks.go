package hud

import "github.com/eventarena/server/internal/events"

// Streaks implements Widget: current streak for every
// connected player, read straight from the engine so a player who has never
// killed anyone still appears with streak 0.
type Streaks struct{}

func (Streaks) Key() string { return "streaks" }

func (Streaks) OnEvent(now int64, ev events.Event) bool {
	switch ev.Type {
	case events.TypeStreakChanged, events.TypePlayerJoin, events.TypePlayerLeave, events.TypeSessionStarted:
		return true
	}
	return false
}

func (Streaks) Snapshot(now int64, view EngineView) any {
	players := view.PlayerSnapshots()
	out := make(map[string]int, len(players))
	for _, p := range players {
		out[p.ID] = p.CurrentStreak
	}
	return out
}

var _ Widget = Streaks{}
