package hud

import "github.com/eventarena/server/internal/events"

const (
	feedMaxItems = 8
	feedTTLMs    = 10000
)

// FeedItem is one entry in the kill-feed ring buffer.
type FeedItem struct {
	Killer    string   `json:"killer"`
	Victim    string   `json:"victim"`
	Weapon    string   `json:"weapon"`
	AssistIDs []string `json:"assistIds,omitempty"`
	Timestamp int64    `json:"timestamp"`
}

// Feed implements Widget: a ring buffer of recent kills
// with a fixed TTL, independent of World/Engine state.
type Feed struct {
	items []FeedItem
}

func (*Feed) Key() string { return "feed" }

func (f *Feed) OnEvent(now int64, ev events.Event) bool {
	switch ev.Type {
	case events.TypeFeedEntry:
		p, ok := ev.Payload.(events.FeedEntryPayload)
		if !ok {
			return false
		}
		f.items = append(f.items, FeedItem{
			Killer: p.Killer, Victim: p.Victim, Weapon: p.Weapon,
			AssistIDs: p.AssistIDs, Timestamp: p.Timestamp,
		})
		if len(f.items) > feedMaxItems {
			f.items = f.items[len(f.items)-feedMaxItems:]
		}
		return true

	case events.TypeTickPost:
		return f.expire(now)
	}
	return false
}

func (f *Feed) expire(now int64) bool {
	kept := f.items[:0:0]
	changed := false
	for _, it := range f.items {
		if now-it.Timestamp > feedTTLMs {
			changed = true
			continue
		}
		kept = append(kept, it)
	}
	f.items = kept
	return changed
}

func (f *Feed) Snapshot(now int64, view EngineView) any {
	out := make([]FeedItem, len(f.items))
	copy(out, f.items)
	return out
}

var _ Widget = (*Feed)(nil)
