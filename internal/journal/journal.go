// Package journal implements the durable event recorder: every
// non-excluded event on the bus is appended to an in-memory journal, which
// rotates on match boundaries or size and is periodically flushed to
// compressed files with an index.
package journal

import (
	"sync"

	"github.com/eventarena/server/internal/events"
)

// FormatVersion is written into every journal's metadata so a future reader
// can tell which entry/metadata shape produced the file.
const FormatVersion = 1

// Entry is one recorded event.
type Entry struct {
	ID        int64          `json:"id"`
	Timestamp int64          `json:"timestamp"`
	GameTime  int64          `json:"gameTime"`
	EventType string         `json:"eventType"`
	Event     any            `json:"event"`
	Metadata  *EntryMetadata `json:"metadata,omitempty"`
}

// EntryMetadata extracts the common ids out of an event's payload so the
// journal can be queried without decoding every payload shape.
type EntryMetadata struct {
	PlayerID  string   `json:"playerId,omitempty"`
	VictimID  string   `json:"victimId,omitempty"`
	AssistIDs []string `json:"assistIds,omitempty"`
	Source    string   `json:"source,omitempty"`
	MatchID   string   `json:"matchId,omitempty"`
}

// isEmpty reports whether every field is zero, so Record can skip attaching
// a metadata object that carries no information.
func (m EntryMetadata) isEmpty() bool {
	return m.PlayerID == "" && m.VictimID == "" && len(m.AssistIDs) == 0 && m.Source == "" && m.MatchID == ""
}

// Metadata is the persisted header of a journal document.
type Metadata struct {
	ID              string         `json:"id"`
	CreatedAt       int64          `json:"createdAt"`
	MatchID         string         `json:"matchId,omitempty"`
	Duration        int64          `json:"duration"`
	EventCount      int            `json:"eventCount"`
	PlayerIDs       []string       `json:"playerIds"`
	EventTypeCounts map[string]int `json:"eventTypeCounts"`
	Version         int            `json:"version"`
}

// Document is the single JSON document a journal is saved as.
type Document struct {
	Metadata Metadata `json:"metadata"`
	Entries  []Entry  `json:"entries"`
}

// Journal is the in-memory, currently-recording log. It is scoped either to
// a match (MatchID non-empty) or to an inter-match session.
type Journal struct {
	id        string
	matchID   string
	createdAt int64
	startTime int64

	mu              sync.Mutex
	nextSeq         int64
	entries         []Entry
	eventTypeCounts map[string]int
	playerIDs       map[string]struct{}
	unsaved         bool
}

// New constructs an empty journal starting its game-time clock at now.
func New(id, matchID string, now int64) *Journal {
	return &Journal{
		id:              id,
		matchID:         matchID,
		createdAt:       now,
		startTime:       now,
		eventTypeCounts: make(map[string]int),
		playerIDs:       make(map[string]struct{}),
	}
}

// ID returns the journal's identifier.
func (j *Journal) ID() string { return j.id }

// MatchID returns the scoping match id, or "" for a session journal.
func (j *Journal) MatchID() string { return j.matchID }

// Record appends one entry for (t, payload), assigning it the next
// sequential id and extracting its metadata.
func (j *Journal) Record(now int64, t events.Type, payload any) Entry {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.nextSeq++
	meta := extractMetadata(t, payload)
	if j.matchID != "" {
		meta.MatchID = j.matchID
	}
	var metaPtr *EntryMetadata
	if !meta.isEmpty() {
		metaPtr = &meta
	}

	entry := Entry{
		ID:        j.nextSeq,
		Timestamp: now,
		GameTime:  now - j.startTime,
		EventType: string(t),
		Event:     payload,
		Metadata:  metaPtr,
	}
	j.entries = append(j.entries, entry)
	j.eventTypeCounts[string(t)]++
	j.unsaved = true

	for _, id := range metaIDs(meta) {
		j.playerIDs[id] = struct{}{}
	}

	return entry
}

func metaIDs(m EntryMetadata) []string {
	var ids []string
	if m.PlayerID != "" {
		ids = append(ids, m.PlayerID)
	}
	if m.VictimID != "" {
		ids = append(ids, m.VictimID)
	}
	if m.Source != "" {
		ids = append(ids, m.Source)
	}
	ids = append(ids, m.AssistIDs...)
	return ids
}

// EventCount reports how many entries have been recorded so far.
func (j *Journal) EventCount() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return len(j.entries)
}

// HasUnsaved reports whether entries have been recorded since the last
// Snapshot call, used by the auto-save timer to skip a no-op save.
func (j *Journal) HasUnsaved() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.unsaved
}

// Snapshot freezes the journal's current state into a Document. The
// eventCount written to disk is the frozen count at save time: the
// returned entries slice is a copy of exactly what existed at the moment
// of the call, and the sim loop may keep appending beyond it concurrently.
func (j *Journal) Snapshot(now int64) Document {
	j.mu.Lock()
	defer j.mu.Unlock()

	entries := make([]Entry, len(j.entries))
	copy(entries, j.entries)

	counts := make(map[string]int, len(j.eventTypeCounts))
	for k, v := range j.eventTypeCounts {
		counts[k] = v
	}

	players := make([]string, 0, len(j.playerIDs))
	for id := range j.playerIDs {
		players = append(players, id)
	}

	j.unsaved = false

	return Document{
		Metadata: Metadata{
			ID:              j.id,
			CreatedAt:       j.createdAt,
			MatchID:         j.matchID,
			Duration:        now - j.startTime,
			EventCount:      len(entries),
			PlayerIDs:       players,
			EventTypeCounts: counts,
			Version:         FormatVersion,
		},
		Entries: entries,
	}
}

// FromDocument reconstructs an in-memory Journal from a previously saved
// Document.
func FromDocument(doc Document) *Journal {
	j := &Journal{
		id:              doc.Metadata.ID,
		matchID:         doc.Metadata.MatchID,
		createdAt:       doc.Metadata.CreatedAt,
		startTime:       doc.Metadata.CreatedAt,
		eventTypeCounts: make(map[string]int, len(doc.Metadata.EventTypeCounts)),
		playerIDs:       make(map[string]struct{}, len(doc.Metadata.PlayerIDs)),
		entries:         append([]Entry(nil), doc.Entries...),
	}
	for k, v := range doc.Metadata.EventTypeCounts {
		j.eventTypeCounts[k] = v
	}
	for _, id := range doc.Metadata.PlayerIDs {
		j.playerIDs[id] = struct{}{}
	}
	if n := len(j.entries); n > 0 {
		j.nextSeq = j.entries[n-1].ID
	}
	return j
}
