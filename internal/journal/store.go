package journal

import (
	"bufio"
	"compress/gzip"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// batchSize is how many entries are grouped together between writer
// flushes when streaming a large journal to disk.
const batchSize = 1000

// IndexEntry is the in-memory index row for one saved journal.
type IndexEntry struct {
	ID         string   `json:"id"`
	Path       string   `json:"path"`
	MatchID    string   `json:"matchId,omitempty"`
	CreatedAt  int64    `json:"createdAt"`
	Duration   int64    `json:"duration"`
	EventCount int      `json:"eventCount"`
	PlayerIDs  []string `json:"playerIds"`
	FileSize   int64    `json:"fileSize"`
	Compressed bool     `json:"compressed"`
}

// Store is the durable on-disk layout:
// <base>/matches/, <base>/sessions/, and an optional <base>/index.json.
type Store struct {
	log             *zap.Logger
	baseDir         string
	compress        bool
	streamThreshold int

	mu    sync.Mutex
	index map[string]IndexEntry
}

// NewStore creates the matches/sessions directories under baseDir (if
// absent) and loads any existing index.json.
func NewStore(log *zap.Logger, baseDir string, compress bool, streamThreshold int) (*Store, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if streamThreshold <= 0 {
		streamThreshold = 10000
	}
	for _, sub := range []string{"matches", "sessions"} {
		if err := os.MkdirAll(filepath.Join(baseDir, sub), 0o755); err != nil {
			return nil, fmt.Errorf("journal: create %s dir: %w", sub, err)
		}
	}
	s := &Store{
		log:             log,
		baseDir:         baseDir,
		compress:        compress,
		streamThreshold: streamThreshold,
		index:           make(map[string]IndexEntry),
	}
	if err := s.loadIndex(); err != nil {
		log.Warn("journal index load failed, starting empty", zap.Error(err))
	}
	return s, nil
}

func (s *Store) indexPath() string {
	return filepath.Join(s.baseDir, "index.json")
}

func (s *Store) loadIndex() error {
	data, err := os.ReadFile(s.indexPath())
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	var entries []IndexEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range entries {
		s.index[e.ID] = e
	}
	return nil
}

// saveIndexLocked rewrites index.json from the current in-memory index. The
// caller must hold s.mu.
func (s *Store) saveIndexLocked() error {
	entries := make([]IndexEntry, 0, len(s.index))
	for _, e := range s.index {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].CreatedAt > entries[j].CreatedAt })

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}
	return writeFileAtomic(s.indexPath(), data)
}

// scopeDir returns the matches/ or sessions/ subdirectory for a document.
func (s *Store) scopeDir(matchID string) string {
	if matchID != "" {
		return filepath.Join(s.baseDir, "matches")
	}
	return filepath.Join(s.baseDir, "sessions")
}

// filename builds <journalId>_<ISO-timestamp-with-colons-replaced>.json[.gz].
func (s *Store) filename(id string, createdAt int64) string {
	iso := time.UnixMilli(createdAt).UTC().Format(time.RFC3339)
	iso = strings.ReplaceAll(iso, ":", "-")
	name := id + "_" + iso + ".json"
	if s.compress {
		name += ".gz"
	}
	return name
}

// Save writes doc to its scope directory (streaming at or above
// streamThreshold entries, a single encode-then-write below it) and updates the index.
func (s *Store) Save(doc Document) (IndexEntry, error) {
	path := filepath.Join(s.scopeDir(doc.Metadata.MatchID), s.filename(doc.Metadata.ID, doc.Metadata.CreatedAt))

	var err error
	if len(doc.Entries) >= s.streamThreshold {
		err = s.streamWrite(path, doc)
	} else {
		err = s.simpleWrite(path, doc)
	}
	if err != nil {
		return IndexEntry{}, err
	}

	info, err := os.Stat(path)
	if err != nil {
		return IndexEntry{}, err
	}

	entry := IndexEntry{
		ID:         doc.Metadata.ID,
		Path:       path,
		MatchID:    doc.Metadata.MatchID,
		CreatedAt:  doc.Metadata.CreatedAt,
		Duration:   doc.Metadata.Duration,
		EventCount: doc.Metadata.EventCount,
		PlayerIDs:  doc.Metadata.PlayerIDs,
		FileSize:   info.Size(),
		Compressed: s.compress,
	}

	s.mu.Lock()
	s.index[entry.ID] = entry
	saveErr := s.saveIndexLocked()
	s.mu.Unlock()
	if saveErr != nil {
		s.log.Warn("journal index save failed", zap.Error(saveErr))
	}

	return entry, nil
}

// simpleWrite marshals the whole document then writes it in one shot,
// compressing first when configured.
func (s *Store) simpleWrite(path string, doc Document) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	if s.compress {
		data, err = compress(data)
		if err != nil {
			return err
		}
	}
	return writeFileAtomic(path, data)
}

// streamWrite writes the document incrementally in batches of batchSize
// entries, flushing between batches so a slow disk applies backpressure to
// the writer instead of buffering the whole document in memory.
func (s *Store) streamWrite(path string, doc Document) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}

	var w interface {
		Write([]byte) (int, error)
		Flush() error
	}
	bw := bufio.NewWriter(f)
	gzw := gzip.NewWriter(bw)
	if s.compress {
		w = gzw
	} else {
		w = bw
	}

	writeErr := func() error {
		metaJSON, err := json.Marshal(doc.Metadata)
		if err != nil {
			return err
		}
		if _, err := w.Write([]byte(`{"metadata":`)); err != nil {
			return err
		}
		if _, err := w.Write(metaJSON); err != nil {
			return err
		}
		if _, err := w.Write([]byte(`,"entries":[`)); err != nil {
			return err
		}

		for i, e := range doc.Entries {
			if i > 0 {
				if _, err := w.Write([]byte(",")); err != nil {
					return err
				}
			}
			eJSON, err := json.Marshal(e)
			if err != nil {
				return err
			}
			if _, err := w.Write(eJSON); err != nil {
				return err
			}
			if (i+1)%batchSize == 0 {
				if err := w.Flush(); err != nil {
					return err
				}
			}
		}

		if _, err := w.Write([]byte("]}")); err != nil {
			return err
		}
		return w.Flush()
	}()

	if s.compress {
		if closeErr := gzw.Close(); closeErr != nil && writeErr == nil {
			writeErr = closeErr
		}
	}
	if flushErr := bw.Flush(); flushErr != nil && writeErr == nil {
		writeErr = flushErr
	}
	if closeErr := f.Close(); closeErr != nil && writeErr == nil {
		writeErr = closeErr
	}
	if writeErr != nil {
		os.Remove(tmp)
		return writeErr
	}
	return os.Rename(tmp, path)
}

// writeFileAtomic writes data to a temp file then renames it into place so
// a reader never observes a partially-written journal.
func writeFileAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// Index returns a snapshot of every known journal, newest first.
func (s *Store) Index() []IndexEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries := make([]IndexEntry, 0, len(s.index))
	for _, e := range s.index {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].CreatedAt > entries[j].CreatedAt })
	return entries
}

// CleanupOptions bounds what Cleanup keeps.
type CleanupOptions struct {
	MaxAge   time.Duration // zero means no age bound
	MaxCount int           // zero means no count bound
}

// Cleanup deletes journals in reverse-chronological order beyond opts'
// bounds.
func (s *Store) Cleanup(opts CleanupOptions) error {
	s.mu.Lock()
	entries := make([]IndexEntry, 0, len(s.index))
	for _, e := range s.index {
		entries = append(entries, e)
	}
	s.mu.Unlock()

	sort.Slice(entries, func(i, j int) bool { return entries[i].CreatedAt > entries[j].CreatedAt })

	now := time.Now()
	var toDelete []IndexEntry
	for i, e := range entries {
		tooOld := opts.MaxAge > 0 && now.Sub(time.UnixMilli(e.CreatedAt)) > opts.MaxAge
		tooMany := opts.MaxCount > 0 && i >= opts.MaxCount
		if tooOld || tooMany {
			toDelete = append(toDelete, e)
		}
	}

	for _, e := range toDelete {
		if err := s.delete(e.ID); err != nil {
			s.log.Warn("journal cleanup delete failed", zap.String("id", e.ID), zap.Error(err))
		}
	}
	return nil
}

func (s *Store) delete(id string) error {
	s.mu.Lock()
	entry, ok := s.index[id]
	if !ok {
		s.mu.Unlock()
		return nil
	}
	delete(s.index, id)
	err := s.saveIndexLocked()
	s.mu.Unlock()

	if removeErr := os.Remove(entry.Path); removeErr != nil && !os.IsNotExist(removeErr) {
		return removeErr
	}
	return err
}
