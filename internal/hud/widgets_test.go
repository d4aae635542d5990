package hud

import (
	"testing"

	"github.com/eventarena/server/internal/events"
	"github.com/eventarena/server/internal/sim"
)

func TestScoreboardSortsByKillsDeathsName(t *testing.T) {
	engine := &fakeEngine{players: []sim.PlayerSnapshot{
		{ID: "a", Name: "Zed", Kills: 2, Deaths: 0},
		{ID: "b", Name: "Ada", Kills: 5, Deaths: 3},
		{ID: "c", Name: "Bob", Kills: 2, Deaths: 1},
		{ID: "d", Name: "Amy", Kills: 2, Deaths: 1},
	}}

	rows, ok := Scoreboard{}.Snapshot(0, engine).([]ScoreboardRow)
	if !ok {
		t.Fatal("expected []ScoreboardRow snapshot")
	}

	wantOrder := []string{"Ada", "Zed", "Amy", "Bob"}
	for i, want := range wantOrder {
		if rows[i].Name != want {
			t.Fatalf("row %d: got %q, want %q (full order %+v)", i, rows[i].Name, want, rows)
		}
	}
}

func TestMatchWidgetThrottlesTickUpdates(t *testing.T) {
	m := &Match{}

	if !m.OnEvent(1000, events.New(events.TypeMatchStarted, events.MatchStartedPayload{ID: "m1"})) {
		t.Fatal("match events must always mark the widget dirty")
	}

	if m.OnEvent(1100, events.New(events.TypeTickPost, events.TickPayload{})) {
		t.Fatal("tick within the throttle window must not mark dirty")
	}
	if !m.OnEvent(1000+matchThrottleMs, events.New(events.TypeTickPost, events.TickPayload{})) {
		t.Fatal("tick after the throttle window must mark dirty")
	}
}

func TestMatchSnapshotIdleWhenNoCurrentMatch(t *testing.T) {
	view, ok := (&Match{}).Snapshot(0, &fakeEngine{}).(MatchView)
	if !ok {
		t.Fatal("expected MatchView snapshot")
	}
	if view.Phase != "idle" {
		t.Fatalf("got phase %q, want idle with no current match", view.Phase)
	}
}

func TestAnnouncementsPicksHighestNewlyCrossedMilestone(t *testing.T) {
	a := &Announcements{}
	// A jump from 1 straight to 5 crosses 2, 3 and 5; only the highest is
	// announced.
	if dirty := a.OnEvent(0, events.New(events.TypeStreakChanged, events.StreakChangedPayload{
		PlayerID: "p1", Streak: 5, PreviousStreak: 1,
	})); !dirty {
		t.Fatal("expected milestone crossing to mark dirty")
	}
	if len(a.items) != 1 || a.items[0].Label != "Rampage" {
		t.Fatalf("got items %+v, want a single Rampage announcement", a.items)
	}
}

func TestAnnouncementsExpireAfterTTL(t *testing.T) {
	a := &Announcements{}
	a.OnEvent(0, events.New(events.TypeStreakChanged, events.StreakChangedPayload{
		PlayerID: "p1", Streak: 2, PreviousStreak: 1,
	}))

	if a.OnEvent(announceTTLMs-1, events.New(events.TypeTickPost, events.TickPayload{})) {
		t.Fatal("nothing should expire before the TTL")
	}
	if !a.OnEvent(announceTTLMs+1, events.New(events.TypeTickPost, events.TickPayload{})) {
		t.Fatal("expected the announcement to expire past its TTL")
	}
	if len(a.items) != 0 {
		t.Fatalf("got %d items after expiry, want 0", len(a.items))
	}
}

func TestFeedKeepsOnlyNewestEntries(t *testing.T) {
	f := &Feed{}
	for i := 0; i < feedMaxItems+3; i++ {
		f.OnEvent(0, events.New(events.TypeFeedEntry, events.FeedEntryPayload{
			Killer: "k", Victim: "v", Weapon: "bullet", Timestamp: int64(i),
		}))
	}
	if len(f.items) != feedMaxItems {
		t.Fatalf("got %d items, want the ring capped at %d", len(f.items), feedMaxItems)
	}
	if f.items[0].Timestamp != 3 {
		t.Fatalf("got oldest timestamp %d, want 3 (earliest entries evicted)", f.items[0].Timestamp)
	}
}

func TestStreaksSnapshotsEveryPlayer(t *testing.T) {
	engine := &fakeEngine{players: []sim.PlayerSnapshot{
		{ID: "a", CurrentStreak: 3},
		{ID: "b", CurrentStreak: 0},
	}}

	got, ok := Streaks{}.Snapshot(0, engine).(map[string]int)
	if !ok {
		t.Fatal("expected map snapshot")
	}
	if got["a"] != 3 || got["b"] != 0 {
		t.Fatalf("got %v, want a=3 and b=0 (zero-streak players included)", got)
	}
	if len(got) != 2 {
		t.Fatalf("got %d players, want 2", len(got))
	}
}
