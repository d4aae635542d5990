package hud

import "github.com/eventarena/server/internal/events"

// matchThrottleMs bounds how often tick:post alone can mark Match dirty.
const matchThrottleMs = 300

// MatchView is the wire shape of the current match widget snapshot.
type MatchView struct {
	ID       string `json:"id"`
	Mode     string `json:"mode"`
	Phase    string `json:"phase"`
	StartsAt *int64 `json:"startsAt,omitempty"`
	EndsAt   *int64 `json:"endsAt,omitempty"`
}

// Match implements Widget for the current-match panel.
type Match struct {
	lastThrottled int64
}

func (*Match) Key() string { return "match" }

func (m *Match) OnEvent(now int64, ev events.Event) bool {
	switch ev.Type {
	case events.TypeMatchCreated, events.TypeMatchStarted, events.TypeMatchEnded, events.TypeSessionStarted:
		m.lastThrottled = now
		return true
	case events.TypeTickPost:
		if now-m.lastThrottled >= matchThrottleMs {
			m.lastThrottled = now
			return true
		}
	}
	return false
}

func (*Match) Snapshot(now int64, view EngineView) any {
	cur := view.CurrentMatch()
	if cur == nil {
		return MatchView{Phase: "idle"}
	}
	return MatchView{ID: cur.ID, Mode: cur.Mode, Phase: cur.Phase, StartsAt: cur.StartsAt, EndsAt: cur.EndsAt}
}

var _ Widget = (*Match)(nil)
