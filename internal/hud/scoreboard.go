package hud

import (
	"sort"

	"github.com/eventarena/server/internal/events"
)

// ScoreboardRow is one line of the scoreboard widget's snapshot.
type ScoreboardRow struct {
	PlayerID string `json:"playerId"`
	Name     string `json:"name"`
	Kills    int    `json:"kills"`
	Deaths   int    `json:"deaths"`
	Assists  int    `json:"assists"`
	HP       int    `json:"hp"`
	IsDead   bool   `json:"isDead"`
}

// Scoreboard implements Widget; rows sorted by kills desc, deaths asc, name
// asc.
type Scoreboard struct{}

func (Scoreboard) Key() string { return "scoreboard" }

func (Scoreboard) OnEvent(now int64, ev events.Event) bool {
	switch ev.Type {
	case events.TypeScoreUpdate, events.TypePlayerJoin, events.TypePlayerLeave,
		events.TypePlayerDie, events.TypeSessionStarted:
		return true
	}
	return false
}

func (Scoreboard) Snapshot(now int64, view EngineView) any {
	players := view.PlayerSnapshots()
	rows := make([]ScoreboardRow, 0, len(players))
	for _, p := range players {
		rows = append(rows, ScoreboardRow{
			PlayerID: p.ID, Name: p.Name, Kills: p.Kills, Deaths: p.Deaths,
			Assists: p.Assists, HP: p.HP, IsDead: p.IsDead,
		})
	}
	sort.Slice(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.Kills != b.Kills {
			return a.Kills > b.Kills
		}
		if a.Deaths != b.Deaths {
			return a.Deaths < b.Deaths
		}
		return a.Name < b.Name
	})
	return rows
}

var _ Widget = Scoreboard{}
