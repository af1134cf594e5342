package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/starford/miding/internal/checksum"
	"github.com/starford/miding/internal/models"
)

const (
	notePrefix   = "note_"
	legacyPrefix = "journal_"
)

// NoteFileName returns the record name for a note id.
func NoteFileName(id string) string {
	return notePrefix + id + recordExt
}

// ParseFileName extracts the note id from a record name. legacy is true for
// pre-migration journal_<id>.json records.
func ParseFileName(name string) (id string, legacy, ok bool) {
	base, found := strings.CutSuffix(name, recordExt)
	if !found {
		return "", false, false
	}
	if id, found = strings.CutPrefix(base, notePrefix); found && id != "" {
		return id, false, true
	}
	if id, found = strings.CutPrefix(base, legacyPrefix); found && id != "" {
		return id, true, true
	}
	return "", false, false
}

// EncodeNote serialises a note record.
func EncodeNote(n models.Note) ([]byte, error) {
	if n.Tags == nil {
		n.Tags = []string{}
	}
	if n.History == nil {
		n.History = []models.NoteHistoryEntry{}
	}
	return json.MarshalIndent(n, "", "  ")
}

// DecodeNote parses a note record.
func DecodeNote(data []byte) (models.Note, error) {
	var n models.Note
	if err := json.Unmarshal(data, &n); err != nil {
		return models.Note{}, fmt.Errorf("storage: decode note: %w", err)
	}
	if n.ID == "" {
		return models.Note{}, errors.New("storage: decode note: missing id")
	}
	return n, nil
}

// DecodeLegacy parses a legacy journal record and maps it onto a Note.
func DecodeLegacy(data []byte, now time.Time) (models.Note, error) {
	var e models.LegacyJournalEntry
	if err := json.Unmarshal(data, &e); err != nil {
		return models.Note{}, fmt.Errorf("storage: decode legacy journal: %w", err)
	}
	if e.ID == "" {
		return models.Note{}, errors.New("storage: decode legacy journal: missing id")
	}
	date := e.Date
	n := models.Note{
		ID:          e.ID,
		Title:       "Journal " + date.Format("2006-01-02"),
		Content:     e.RawMarkdown,
		CreatedAt:   date,
		ModifiedAt:  now,
		JournalDate: &date,
		Tags:        []string{},
		History:     []models.NoteHistoryEntry{},
	}
	if e.Metadata != nil && e.Metadata.Tags != nil {
		n.Tags = append(n.Tags, e.Metadata.Tags...)
	}
	return n, nil
}

// Notes persists note records through a Provider and remembers the checksum
// of every record it wrote, so watchers can tell its own writes apart.
type Notes struct {
	provider Provider
	logger   *slog.Logger
	now      func() time.Time

	mu      sync.Mutex
	written map[string]string // record name -> checksum of the last own write
}

// NewNotes creates a note record repository.
func NewNotes(provider Provider, logger *slog.Logger) *Notes {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notes{
		provider: provider,
		logger:   logger,
		now:      time.Now,
		written:  make(map[string]string),
	}
}

// LoadAll decodes every note record. Records that fail to decode are logged
// and skipped. Legacy journal records without a migrated counterpart are
// converted and written back as note records. The result is sorted by
// modification time, newest first.
func (s *Notes) LoadAll() ([]models.Note, error) {
	metas, err := s.provider.List()
	if err != nil {
		return nil, err
	}

	var (
		notes  []models.Note
		seen   = make(map[string]struct{}, len(metas))
		legacy []string
	)
	for _, m := range metas {
		id, isLegacy, ok := ParseFileName(m.Name)
		if !ok {
			continue
		}
		if isLegacy {
			legacy = append(legacy, m.Name)
			continue
		}
		n, err := s.read(m.Name)
		if err != nil {
			s.logger.Warn("load: skipping record", slog.String("name", m.Name), slog.String("error", err.Error()))
			continue
		}
		if n.ID != id {
			s.logger.Warn("load: record id does not match file name", slog.String("name", m.Name), slog.String("note_id", n.ID))
		}
		seen[n.ID] = struct{}{}
		notes = append(notes, n)
	}

	for _, name := range legacy {
		data, err := s.provider.Read(name)
		if err != nil {
			s.logger.Warn("load: skipping legacy record", slog.String("name", name), slog.String("error", err.Error()))
			continue
		}
		n, err := DecodeLegacy(data, s.now())
		if err != nil {
			s.logger.Warn("load: skipping legacy record", slog.String("name", name), slog.String("error", err.Error()))
			continue
		}
		if _, dup := seen[n.ID]; dup {
			continue
		}
		if err := s.Save(n); err != nil {
			s.logger.Warn("load: migrate legacy record", slog.String("name", name), slog.String("error", err.Error()))
		} else {
			s.logger.Info("load: migrated legacy journal", slog.String("note_id", n.ID))
		}
		seen[n.ID] = struct{}{}
		notes = append(notes, n)
	}

	sort.SliceStable(notes, func(i, j int) bool {
		return notes[i].ModifiedAt.After(notes[j].ModifiedAt)
	})
	return notes, nil
}

// Load reads a single note record by id.
func (s *Notes) Load(id string) (models.Note, error) {
	return s.read(NoteFileName(id))
}

func (s *Notes) read(name string) (models.Note, error) {
	data, err := s.provider.Read(name)
	if err != nil {
		return models.Note{}, err
	}
	return DecodeNote(data)
}

// Save writes the note record for n.
func (s *Notes) Save(n models.Note) error {
	data, err := EncodeNote(n)
	if err != nil {
		return fmt.Errorf("storage: encode note: %w", err)
	}
	name := NoteFileName(n.ID)
	sum := checksum.Sum(data)

	s.mu.Lock()
	prev, had := s.written[name]
	s.written[name] = sum
	s.mu.Unlock()

	if err := s.provider.Write(name, data); err != nil {
		s.mu.Lock()
		if had {
			s.written[name] = prev
		} else {
			delete(s.written, name)
		}
		s.mu.Unlock()
		return err
	}
	return nil
}

// Delete removes the note record for id. A missing record is not an error.
func (s *Notes) Delete(id string) error {
	name := NoteFileName(id)
	s.mu.Lock()
	delete(s.written, name)
	s.mu.Unlock()

	if err := s.provider.Delete(name); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// ownWrite reports whether data is exactly what this repository last wrote
// to the named record.
func (s *Notes) ownWrite(name string, data []byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	sum, ok := s.written[name]
	return ok && sum == checksum.Sum(data)
}
