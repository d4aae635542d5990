package journal

import (
	"encoding/json"
	"testing"

	"github.com/eventarena/server/internal/events"
)

func TestJournalRoundTrip(t *testing.T) {
	j := New("session_test", "", 1000)
	j.Record(1010, events.TypePlayerJoin, events.PlayerJoinPayload{PlayerID: "p1", Name: "Ada"})
	j.Record(1020, events.TypeDamageApplied, events.DamageAppliedPayload{TargetID: "p1", Amount: 25, Source: "p2", Weapon: "bullet"})
	j.Record(1030, events.TypePlayerDie, events.PlayerDiePayload{PlayerID: "p1"})

	doc := j.Snapshot(2000)

	data, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var roundTripped Document
	if err := json.Unmarshal(data, &roundTripped); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if roundTripped.Metadata.ID != doc.Metadata.ID {
		t.Fatalf("id mismatch: got %q want %q", roundTripped.Metadata.ID, doc.Metadata.ID)
	}
	if roundTripped.Metadata.EventCount != len(doc.Entries) {
		t.Fatalf("eventCount %d != entry count %d", roundTripped.Metadata.EventCount, len(doc.Entries))
	}
	if len(roundTripped.Entries) != len(doc.Entries) {
		t.Fatalf("entry count mismatch: got %d want %d", len(roundTripped.Entries), len(doc.Entries))
	}
	for i := range doc.Entries {
		if roundTripped.Entries[i].ID != doc.Entries[i].ID {
			t.Fatalf("entry %d id mismatch: got %d want %d", i, roundTripped.Entries[i].ID, doc.Entries[i].ID)
		}
		if roundTripped.Entries[i].EventType != doc.Entries[i].EventType {
			t.Fatalf("entry %d type mismatch", i)
		}
	}

	reconstructed := FromDocument(roundTripped)
	if reconstructed.ID() != j.ID() {
		t.Fatalf("reconstructed id mismatch")
	}
	finalDoc := reconstructed.Snapshot(2000)
	if !samePlayerSet(finalDoc.Metadata.PlayerIDs, doc.Metadata.PlayerIDs) {
		t.Fatalf("player set mismatch: got %v want %v", finalDoc.Metadata.PlayerIDs, doc.Metadata.PlayerIDs)
	}
}

func samePlayerSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	set := make(map[string]bool, len(a))
	for _, id := range a {
		set[id] = true
	}
	for _, id := range b {
		if !set[id] {
			return false
		}
	}
	return true
}

func TestCompressRoundTrip(t *testing.T) {
	original := []byte(`{"metadata":{"id":"x"},"entries":[]}`)
	compressed, err := compress(original)
	if err != nil {
		t.Fatalf("compress: %v", err)
	}
	decompressed, err := decompress(compressed)
	if err != nil {
		t.Fatalf("decompress: %v", err)
	}
	if string(decompressed) != string(original) {
		t.Fatalf("round trip mismatch: got %q want %q", decompressed, original)
	}
}

func TestExtractMetadataKill(t *testing.T) {
	m := extractMetadata(events.TypePlayerKill, events.PlayerKillPayload{
		KillerID: "k", VictimID: "v", AssistIDs: []string{"a1", "a2"},
	})
	if m.PlayerID != "k" || m.VictimID != "v" || len(m.AssistIDs) != 2 {
		t.Fatalf("unexpected metadata: %+v", m)
	}
}

func TestExtractMetadataUnknownIsEmpty(t *testing.T) {
	m := extractMetadata(events.TypeTickPre, events.TickPayload{})
	if !m.isEmpty() {
		t.Fatalf("expected empty metadata for tick event, got %+v", m)
	}
}
