package journal

import (
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/eventarena/server/internal/events"
)

// Config tunes the manager's rotation and persistence behavior.
type Config struct {
	Disabled bool

	BaseDir         string
	Compress        bool
	StreamThreshold int

	MaxBufferSize    int           // advisory flush request threshold
	MaxJournalSize   int           // rotate to a fresh journal at this many events
	AutoSaveInterval time.Duration // periodic save when there are unsaved events
	KeepJournals     int           // kept newest journals on init cleanup

	Excluded map[events.Type]bool // events never recorded; default tick:pre/tick:post
}

// DefaultConfig returns the standard rotation and persistence defaults.
func DefaultConfig(baseDir string) Config {
	return Config{
		BaseDir:          baseDir,
		StreamThreshold:  10000,
		MaxBufferSize:    500,
		MaxJournalSize:   100000,
		AutoSaveInterval: 30 * time.Second,
		KeepJournals:     50,
		Excluded: map[events.Type]bool{
			events.TypeTickPre:  true,
			events.TypeTickPost: true,
		},
	}
}

// Manager owns the single currently-recording Journal, rotates it on match
// boundaries and size, and flushes it to a Store on a timer and at
// shutdown.
type Manager struct {
	log   *zap.Logger
	bus   *events.Bus
	store *Store
	cfg   Config
	now   func() int64
	rng   *rand.Rand

	mu      sync.Mutex
	current *Journal

	subs []events.Subscription

	stopAutoSave chan struct{}
	saveWG       sync.WaitGroup
}

// NewManager wires a Manager to bus, subscribes its explicit allowlist, and
// starts an initial session journal plus the auto-save timer. If
// cfg.Disabled, it returns a Manager that subscribes nothing and every
// operation is a no-op.
func NewManager(log *zap.Logger, bus *events.Bus, cfg Config, now func() int64) (*Manager, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if now == nil {
		now = func() int64 { return time.Now().UnixMilli() }
	}
	m := &Manager{log: log, bus: bus, cfg: cfg, now: now, rng: rand.New(rand.NewSource(now()))}

	if cfg.Disabled {
		log.Info("journal disabled")
		return m, nil
	}

	store, err := NewStore(log, cfg.BaseDir, cfg.Compress, cfg.StreamThreshold)
	if err != nil {
		return nil, err
	}
	m.store = store

	if err := store.Cleanup(CleanupOptions{MaxCount: cfg.KeepJournals}); err != nil {
		log.Warn("journal init cleanup failed", zap.Error(err))
	}

	m.subscribeAll()
	m.current = New(m.sessionID(), "", now())
	m.startAutoSave()
	return m, nil
}

func (m *Manager) subscribeAll() {
	for _, t := range events.AllTypes() {
		if m.cfg.Excluded[t] {
			continue
		}
		m.subs = append(m.subs, m.bus.On(t, m.onEvent))
	}
}

func (m *Manager) onEvent(ev events.Event) {
	if m.store == nil {
		return
	}
	now := m.now()

	switch ev.Type {
	case events.TypeMatchCreated:
		payload, ok := ev.Payload.(events.MatchCreatedPayload)
		if !ok {
			return
		}
		m.rotate(New(m.matchID(payload.ID, now), payload.ID, now))
		m.record(now, ev)
		return

	case events.TypeMatchEnded:
		m.record(now, ev)
		m.rotate(New(m.sessionID(), "", now))
		return
	}

	m.record(now, ev)
}

func (m *Manager) record(now int64, ev events.Event) {
	m.mu.Lock()
	cur := m.current
	m.mu.Unlock()
	if cur == nil {
		return
	}

	cur.Record(now, ev.Type, ev.Payload)

	if cur.EventCount() >= m.cfg.MaxJournalSize {
		scope := cur.MatchID()
		var next *Journal
		if scope != "" {
			next = New(m.matchID(scope, now), scope, now)
		} else {
			next = New(m.sessionID(), "", now)
		}
		m.rotate(next)
		return
	}

	if m.cfg.MaxBufferSize > 0 && cur.EventCount() >= m.cfg.MaxBufferSize {
		m.saveAsync(cur)
	}
}

// rotate saves the outgoing journal (if any) asynchronously and installs
// next as the current journal.
func (m *Manager) rotate(next *Journal) {
	m.mu.Lock()
	prev := m.current
	m.current = next
	m.mu.Unlock()

	if prev != nil {
		m.saveAsync(prev)
	}
}

// saveAsync snapshots j and saves it on a background worker; the snapshot
// is immutable, so the sim loop can keep appending while the save runs.
// Journal I/O errors are logged and swallowed so recording never stalls.
func (m *Manager) saveAsync(j *Journal) {
	doc := j.Snapshot(m.now())
	m.saveWG.Add(1)
	go func() {
		defer m.saveWG.Done()
		if _, err := m.store.Save(doc); err != nil {
			m.log.Warn("journal save failed", zap.String("id", doc.Metadata.ID), zap.Error(err))
		}
	}()
}

func (m *Manager) startAutoSave() {
	if m.cfg.AutoSaveInterval <= 0 {
		return
	}
	m.stopAutoSave = make(chan struct{})
	go func() {
		ticker := time.NewTicker(m.cfg.AutoSaveInterval)
		defer ticker.Stop()
		for {
			select {
			case <-m.stopAutoSave:
				return
			case <-ticker.C:
				m.mu.Lock()
				cur := m.current
				m.mu.Unlock()
				if cur != nil && cur.HasUnsaved() {
					m.saveAsync(cur)
				}
			}
		}
	}()
}

// Shutdown stops recording, saves the current journal synchronously, and
// waits for any in-flight saves to finish.
func (m *Manager) Shutdown() {
	if m.store == nil {
		return
	}
	for _, sub := range m.subs {
		m.bus.Off(sub)
	}
	if m.stopAutoSave != nil {
		close(m.stopAutoSave)
	}

	m.mu.Lock()
	cur := m.current
	m.mu.Unlock()
	if cur != nil {
		doc := cur.Snapshot(m.now())
		if _, err := m.store.Save(doc); err != nil {
			m.log.Warn("journal final save failed", zap.Error(err))
		}
	}
	m.saveWG.Wait()
}

// Store exposes the underlying durable store, e.g. for a read API built on
// top of this package; useful for tests and operational tooling.
func (m *Manager) Store() *Store { return m.store }

func isoCompact(now int64) string {
	iso := time.UnixMilli(now).UTC().Format(time.RFC3339)
	return strings.ReplaceAll(iso, ":", "-")
}

func (m *Manager) matchID(matchID string, now int64) string {
	return fmt.Sprintf("match_%s_%s", matchID, isoCompact(now))
}

func (m *Manager) sessionID() string {
	now := m.now()
	return fmt.Sprintf("session_%s_%s", isoCompact(now), m.randSuffix())
}

func (m *Manager) randSuffix() string {
	const alphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
	b := make([]byte, 6)
	for i := range b {
		b[i] = alphabet[m.rng.Intn(len(alphabet))]
	}
	return string(b)
}
