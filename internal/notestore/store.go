// Package notestore is the single authority over note records, their parse
// caches and the focused-note pointer. Every mutation re-parses the affected
// note from its content and persists it before readers can observe it.
package notestore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/starford/miding/internal/apperr"
	"github.com/starford/miding/internal/models"
	"github.com/starford/miding/internal/mutate"
	"github.com/starford/miding/internal/parser"
)

// DefaultDebounce is the quiet period after which content edits are committed.
const DefaultDebounce = 500 * time.Millisecond

const (
	taskTemplate   = "\n- [ ] \n"
	ticketTemplate = "\n:::ticket\nID: \nTitle: \nStatus: \n:::\n"
)

// Repository persists note records.
type Repository interface {
	LoadAll() ([]models.Note, error)
	Load(id string) (models.Note, error)
	Save(n models.Note) error
	Delete(id string) error
}

// Committer records a version-control snapshot of the persisted notes.
type Committer interface {
	Commit(ctx context.Context, message string) error
}

// pendingContent is one debounced content edit.
type pendingContent struct {
	noteID  string
	content string
}

// Store owns the note collection. The zero value is not usable; call New.
type Store struct {
	repo      Repository
	committer Committer
	logger    *slog.Logger
	now       func() time.Time
	newID     func() string

	edits *debouncer[pendingContent]

	mu      sync.RWMutex
	notes   []models.Note // display order; newly created notes go first
	cache   map[string]models.ParseResult
	focused string
	version uint64
	lastErr string

	obsMu     sync.RWMutex
	observers []Observer
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// WithClock overrides time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithIDGenerator overrides the note and history identifier source.
func WithIDGenerator(gen func() string) Option {
	return func(s *Store) { s.newID = gen }
}

// WithDebounce sets the content-edit quiet period.
func WithDebounce(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.edits.delay = d
		}
	}
}

// WithCommitter enables version-control commits on CommitAndSave.
func WithCommitter(c Committer) Option {
	return func(s *Store) { s.committer = c }
}

// New creates an empty store backed by repo. Call Load to populate it.
func New(repo Repository, opts ...Option) *Store {
	s := &Store{
		repo:   repo,
		logger: slog.Default(),
		now:    time.Now,
		newID:  func() string { return uuid.NewString() },
		cache:  make(map[string]models.ParseResult),
	}
	s.edits = newDebouncer(DefaultDebounce, s.commitContent)
	for _, o := range opts {
		o(s)
	}
	return s
}

// Close commits any pending content edit and stops accepting new ones.
func (s *Store) Close() {
	s.edits.Stop()
}

// Flush commits a pending content edit immediately.
func (s *Store) Flush() {
	s.edits.Flush()
}

// Load populates the collection from the repository and seeds the parse
// cache. Records that fail to decode are skipped by the repository. If
// nothing is focused afterwards the most recently modified note is.
func (s *Store) Load() error {
	notes, err := s.repo.LoadAll()
	if err != nil {
		s.mu.Lock()
		s.lastErr = "Failed to load notes: " + err.Error()
		s.mu.Unlock()
		return fmt.Errorf("notestore: load: %w", err)
	}

	cache := make(map[string]models.ParseResult, len(notes))
	for _, n := range notes {
		cache[n.ID] = parser.Parse(n.Content)
	}

	s.mu.Lock()
	s.notes = notes
	s.cache = cache
	if s.indexOf(s.focused) < 0 {
		s.focused = ""
		if len(notes) > 0 {
			s.focused = notes[0].ID
		}
	}
	s.mu.Unlock()

	s.logger.Info("notestore: loaded", slog.Int("notes", len(notes)))
	return nil
}

// CreateNote inserts an empty note at the front, focuses it and persists it.
// Journal notes carry today's date as journal date.
func (s *Store) CreateNote(journal bool) (models.Note, error) {
	s.edits.Flush()

	now := s.now()
	n := models.Note{
		ID:         s.newID(),
		Title:      "New Note",
		CreatedAt:  now,
		ModifiedAt: now,
		Tags:       []string{},
	}
	if journal {
		day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
		n.JournalDate = &day
		n.Title = "Journal " + day.Format(parser.DateLayout)
	}
	n.History = []models.NoteHistoryEntry{{
		ID:        s.newID(),
		Timestamp: now,
		Title:     n.Title,
		Summary:   models.SummaryCreated,
	}}

	s.mu.Lock()
	s.notes = slices.Insert(s.notes, 0, n)
	s.cache[n.ID] = parser.Parse("")
	s.focused = n.ID
	err := s.persistLocked(n)
	s.mu.Unlock()

	s.notify(Event{Kind: EventCreated, NoteID: n.ID})
	s.notify(Event{Kind: EventFocused, NoteID: n.ID})
	return n.Clone(), err
}

// Focus makes id the target of content, title and tag commands. A pending
// content edit for the previously focused note is committed first.
func (s *Store) Focus(id string) error {
	s.edits.Flush()

	s.mu.Lock()
	if s.indexOf(id) < 0 {
		s.mu.Unlock()
		return apperr.ErrNotFound
	}
	changed := s.focused != id
	s.focused = id
	s.mu.Unlock()

	if changed {
		s.notify(Event{Kind: EventFocused, NoteID: id})
	}
	return nil
}

// FocusedID returns the focused note id, or "" when nothing is focused.
func (s *Store) FocusedID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.focused
}

// UpdateContent schedules newContent for the focused note. Calls arriving
// within the debounce window coalesce; only the last one is parsed and
// persisted.
func (s *Store) UpdateContent(newContent string) error {
	id := s.FocusedID()
	if id == "" {
		return apperr.ErrNotFound
	}
	if p, ok := s.edits.Pending(); ok && p.noteID != id {
		s.edits.Flush()
	}
	s.edits.Push(pendingContent{noteID: id, content: newContent})
	return nil
}

// commitContent is the debounced handler for UpdateContent.
func (s *Store) commitContent(p pendingContent) {
	s.mu.Lock()
	i := s.indexOf(p.noteID)
	if i < 0 {
		s.mu.Unlock()
		return
	}
	n := &s.notes[i]
	n.Content = p.content
	n.ModifiedAt = s.now()
	s.cache[n.ID] = parser.Parse(p.content)
	_ = s.persistLocked(*n)
	s.mu.Unlock()

	s.notify(Event{Kind: EventUpdated, NoteID: p.noteID})
}

// UpdateTitle renames the focused note.
func (s *Store) UpdateTitle(title string) error {
	return s.mutateFocused(func(n *models.Note) bool {
		n.Title = title
		return true
	}, false)
}

// AddTag attaches a tag to the focused note. The tag is trimmed, lowercased
// and stripped of '#'; empty and duplicate tags are ignored.
func (s *Store) AddTag(tag string) error {
	cleaned := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(tag)), "#", "")
	if cleaned == "" {
		return nil
	}
	return s.mutateFocused(func(n *models.Note) bool {
		if n.HasTag(cleaned) {
			return false
		}
		n.Tags = append(n.Tags, cleaned)
		return true
	}, false)
}

// RemoveTag detaches a tag from the focused note.
func (s *Store) RemoveTag(tag string) error {
	return s.mutateFocused(func(n *models.Note) bool {
		before := len(n.Tags)
		n.Tags = slices.DeleteFunc(n.Tags, func(t string) bool { return t == tag })
		return len(n.Tags) != before
	}, false)
}

// InsertTask appends an empty task line to the focused note.
func (s *Store) InsertTask() error {
	return s.appendContent(taskTemplate)
}

// InsertTicket appends an empty ticket block to the focused note.
func (s *Store) InsertTicket() error {
	return s.appendContent(ticketTemplate)
}

func (s *Store) appendContent(text string) error {
	return s.mutateFocused(func(n *models.Note) bool {
		n.Content += text
		return true
	}, true)
}

// SaveSnapshot appends a history entry holding the focused note's current
// content. An empty summary defaults to "Snapshot".
func (s *Store) SaveSnapshot(summary string) error {
	if summary == "" {
		summary = models.SummarySnapshot
	}
	return s.mutateFocused(func(n *models.Note) bool {
		n.History = append(n.History, models.NoteHistoryEntry{
			ID:              s.newID(),
			Timestamp:       s.now(),
			Title:           n.Title,
			ContentSnapshot: n.Content,
			Summary:         summary,
		})
		return true
	}, true)
}

// CommitAndSave records a "Saved" snapshot of the focused note, persists it
// and, when a committer is configured, commits the notes directory. A commit
// failure is reported but the snapshot stays.
func (s *Store) CommitAndSave(ctx context.Context) error {
	if err := s.SaveSnapshot(models.SummarySaved); err != nil {
		return err
	}
	if s.committer == nil {
		return nil
	}

	s.mu.RLock()
	var title string
	if i := s.indexOf(s.focused); i >= 0 {
		title = s.notes[i].Title
	}
	s.mu.RUnlock()

	if err := s.committer.Commit(ctx, "Save: "+title); err != nil {
		s.setError("Failed to commit notes: " + err.Error())
		return fmt.Errorf("notestore: commit: %w", err)
	}
	return nil
}

// mutateFocused applies fn to the focused note. fn reports whether it
// changed anything; unchanged notes are not persisted. reparse refreshes the
// cache and bumps the content version.
func (s *Store) mutateFocused(fn func(n *models.Note) bool, reparse bool) error {
	s.edits.Flush()

	s.mu.Lock()
	i := s.indexOf(s.focused)
	if i < 0 {
		s.mu.Unlock()
		return apperr.ErrNotFound
	}
	n := &s.notes[i]
	if !fn(n) {
		s.mu.Unlock()
		return nil
	}
	n.ModifiedAt = s.now()
	if reparse {
		s.cache[n.ID] = parser.Parse(n.Content)
		s.version++
	}
	id := n.ID
	err := s.persistLocked(*n)
	s.mu.Unlock()

	s.notify(Event{Kind: EventUpdated, NoteID: id})
	return err
}

// ToggleTask flips the checkbox of the task identified by taskID in note
// noteID, which need not be focused. A task id that no longer appears in the
// note's current parse fails with apperr.ErrStaleLine and changes nothing.
func (s *Store) ToggleTask(noteID, taskID string) error {
	s.edits.Flush()

	s.mu.Lock()
	i := s.indexOf(noteID)
	if i < 0 {
		s.mu.Unlock()
		return apperr.ErrNotFound
	}
	n := &s.notes[i]

	stale := func() error {
		s.mu.Unlock()
		s.setError("Task changed since it was listed; reload and try again")
		return fmt.Errorf("notestore: toggle task %s: %w", taskID, apperr.ErrStaleLine)
	}

	idx := slices.IndexFunc(s.cache[noteID].Tasks, func(t models.TaskItem) bool { return t.ID == taskID })
	if idx < 0 {
		return stale()
	}
	task := s.cache[noteID].Tasks[idx]

	// The cache is rebuilt on every content change, but verify the line
	// before touching it anyway.
	lines := strings.Split(n.Content, "\n")
	if task.LineIndex >= len(lines) {
		return stale()
	}
	if current, ok := parser.ParseTaskLine(lines[task.LineIndex], task.LineIndex); !ok || current.ID != taskID {
		return stale()
	}

	content, changed := mutate.ToggleTaskAtLine(n.Content, task.LineIndex, s.now())
	if !changed {
		return stale()
	}
	err := s.replaceContentLocked(n, content)
	s.mu.Unlock()

	s.notify(Event{Kind: EventUpdated, NoteID: noteID})
	return err
}

// UpdateTicketStatus rewrites the status of the ticket whose block starts at
// blockStart in note noteID. On failure nothing is mutated or persisted.
func (s *Store) UpdateTicketStatus(noteID string, blockStart int, status models.TicketStatus) error {
	s.edits.Flush()

	s.mu.Lock()
	i := s.indexOf(noteID)
	if i < 0 {
		s.mu.Unlock()
		return apperr.ErrNotFound
	}
	n := &s.notes[i]

	idx := slices.IndexFunc(s.cache[noteID].Tickets, func(t models.Ticket) bool { return t.BlockStart == blockStart })
	if idx < 0 {
		s.mu.Unlock()
		s.setError("Ticket not found at that position; reload and try again")
		return fmt.Errorf("notestore: ticket status: %w", apperr.ErrInvalidSpan)
	}
	t := s.cache[noteID].Tickets[idx]

	content, err := mutate.SetTicketStatus(n.Content, t.BlockStart, t.BlockEnd, status, s.now())
	if err != nil {
		s.mu.Unlock()
		s.setError("Failed to update ticket " + t.Identifier + ": " + err.Error())
		return fmt.Errorf("notestore: ticket status: %w", err)
	}
	err = s.replaceContentLocked(n, content)
	s.mu.Unlock()

	s.notify(Event{Kind: EventUpdated, NoteID: noteID})
	return err
}

// replaceContentLocked installs programmatically changed content.
func (s *Store) replaceContentLocked(n *models.Note, content string) error {
	n.Content = content
	n.ModifiedAt = s.now()
	s.cache[n.ID] = parser.Parse(content)
	s.version++
	return s.persistLocked(*n)
}

// DeleteNote removes a note, its cache entry and its record. If it was
// focused, focus moves to the first remaining note.
func (s *Store) DeleteNote(id string) error {
	s.edits.Flush()

	s.mu.Lock()
	i := s.indexOf(id)
	if i < 0 {
		s.mu.Unlock()
		return apperr.ErrNotFound
	}
	s.notes = slices.Delete(s.notes, i, i+1)
	delete(s.cache, id)
	refocused := s.focused == id
	if refocused {
		s.focused = ""
		if len(s.notes) > 0 {
			s.focused = s.notes[0].ID
		}
	}
	newFocus := s.focused

	var err error
	if derr := s.repo.Delete(id); derr != nil {
		s.lastErr = "Failed to delete note: " + derr.Error()
		s.logger.Error("notestore: delete", slog.String("note_id", id), slog.String("error", derr.Error()))
		err = fmt.Errorf("notestore: delete %s: %w", id, derr)
	}
	s.mu.Unlock()

	s.notify(Event{Kind: EventDeleted, NoteID: id})
	if refocused && newFocus != "" {
		s.notify(Event{Kind: EventFocused, NoteID: newFocus})
	}
	return err
}

// Reload replaces a note with its persisted record after it was changed
// outside the store. Unknown ids are inserted at the front.
func (s *Store) Reload(id string) error {
	n, err := s.repo.Load(id)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return s.Forget(id)
		}
		return fmt.Errorf("notestore: reload %s: %w", id, err)
	}
	if p, ok := s.edits.Pending(); ok && p.noteID == id {
		s.logger.Warn("notestore: external change discards pending edit", slog.String("note_id", id))
		s.edits.take()
	}

	s.mu.Lock()
	kind := EventUpdated
	if i := s.indexOf(id); i >= 0 {
		s.notes[i] = n
	} else {
		s.notes = slices.Insert(s.notes, 0, n)
		kind = EventCreated
	}
	s.cache[id] = parser.Parse(n.Content)
	s.version++
	if s.focused == "" {
		s.focused = id
	}
	s.mu.Unlock()

	s.notify(Event{Kind: kind, NoteID: id})
	return nil
}

// Forget drops a note whose record disappeared outside the store. The
// record is not touched.
func (s *Store) Forget(id string) error {
	s.mu.Lock()
	i := s.indexOf(id)
	if i < 0 {
		s.mu.Unlock()
		return nil
	}
	s.notes = slices.Delete(s.notes, i, i+1)
	delete(s.cache, id)
	if s.focused == id {
		s.focused = ""
		if len(s.notes) > 0 {
			s.focused = s.notes[0].ID
		}
	}
	s.mu.Unlock()

	s.notify(Event{Kind: EventDeleted, NoteID: id})
	return nil
}

// ContentVersion increases every time content changes other than through
// UpdateContent, so editors know to reload their text.
func (s *Store) ContentVersion() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// LastError returns the most recent user-visible failure, or "".
func (s *Store) LastError() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}

// ClearError resets the last error after it was displayed.
func (s *Store) ClearError() {
	s.mu.Lock()
	s.lastErr = ""
	s.mu.Unlock()
}

func (s *Store) setError(msg string) {
	s.mu.Lock()
	s.lastErr = msg
	s.mu.Unlock()
}

// persistLocked saves n and records a failure in the last-error slot.
// Callers hold s.mu.
func (s *Store) persistLocked(n models.Note) error {
	if err := s.repo.Save(n); err != nil {
		s.lastErr = "Failed to save note: " + err.Error()
		s.logger.Error("notestore: save", slog.String("note_id", n.ID), slog.String("error", err.Error()))
		return fmt.Errorf("notestore: save %s: %w", n.ID, err)
	}
	return nil
}

func (s *Store) indexOf(id string) int {
	if id == "" {
		return -1
	}
	return slices.IndexFunc(s.notes, func(n models.Note) bool { return n.ID == id })
}
