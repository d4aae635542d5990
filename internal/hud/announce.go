package hud

import "github.com/eventarena/server/internal/events"

const (
	announceMaxItems = 5
	announceTTLMs    = 3000
)

// streakMilestones maps each threshold to its announcement label, in
// ascending order.
var streakMilestones = []struct {
	threshold int
	label     string
}{
	{2, "Double Kill"},
	{3, "Triple Kill"},
	{5, "Rampage"},
	{7, "Unstoppable"},
	{10, "LEGENDARY"},
}

// AnnounceItem is one streak-milestone announcement.
type AnnounceItem struct {
	PlayerID  string `json:"playerId"`
	Streak    int    `json:"streak"`
	Label     string `json:"label"`
	Timestamp int64  `json:"timestamp"`
}

// Announcements implements Widget: streak-milestone-only
// notifications, independent of World/Engine state.
type Announcements struct {
	items []AnnounceItem
}

func (*Announcements) Key() string { return "announcements" }

func (a *Announcements) OnEvent(now int64, ev events.Event) bool {
	switch ev.Type {
	case events.TypeStreakChanged:
		p, ok := ev.Payload.(events.StreakChangedPayload)
		if !ok {
			return false
		}
		label, crossed := highestCrossed(p.PreviousStreak, p.Streak)
		if !crossed {
			return false
		}
		a.items = append(a.items, AnnounceItem{PlayerID: p.PlayerID, Streak: p.Streak, Label: label, Timestamp: now})
		if len(a.items) > announceMaxItems {
			a.items = a.items[len(a.items)-announceMaxItems:]
		}
		return true

	case events.TypeTickPost:
		return a.expire(now)
	}
	return false
}

// highestCrossed returns the label of the highest milestone in
// (previous, current] and whether any milestone was crossed.
func highestCrossed(previous, current int) (string, bool) {
	label := ""
	crossed := false
	for _, m := range streakMilestones {
		if current >= m.threshold && previous < m.threshold {
			label = m.label
			crossed = true
		}
	}
	return label, crossed
}

func (a *Announcements) expire(now int64) bool {
	kept := a.items[:0:0]
	changed := false
	for _, it := range a.items {
		if now-it.Timestamp > announceTTLMs {
			changed = true
			continue
		}
		kept = append(kept, it)
	}
	a.items = kept
	return changed
}

func (a *Announcements) Snapshot(now int64, view EngineView) any {
	out := make([]AnnounceItem, len(a.items))
	copy(out, a.items)
	return out
}

var _ Widget = (*Announcements)(nil)
