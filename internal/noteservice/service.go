package noteservice

import (
	"context"
	"fmt"

	"github.com/starford/miding/internal/apperr"
	"github.com/starford/miding/internal/index"
	"github.com/starford/miding/internal/models"
	"github.com/starford/miding/internal/notestore"
	"github.com/starford/miding/internal/stats"
	"github.com/starford/miding/internal/vcs"
)

// Template kinds accepted by InsertTemplate.
const (
	TemplateTask   = "task"
	TemplateTicket = "ticket"
)

// NoteDetail is a note together with everything parsed from it.
type NoteDetail struct {
	models.Note
	Parsed  models.ParseResult `json:"parsed"`
	Focused bool               `json:"focused"`
	// ContentVersion moves whenever the store rewrites content itself
	// (toggles, status changes, templates). Editors holding a draft reload
	// when it differs from the version they loaded.
	ContentVersion uint64 `json:"contentVersion"`
}

// VersionLog reads the version-control history of the notes directory.
type VersionLog interface {
	Log(ctx context.Context, limit int) ([]vcs.Commit, error)
}

// Service is the entry point shared by the REST and MCP surfaces. Commands
// that act on "the focused note" focus the addressed note first.
type Service struct {
	store *notestore.Store
	db    index.NoteIndex
	agg   *stats.Aggregator
	vlog  VersionLog
}

// NewService creates a new note service. vlog may be nil when version
// control is disabled.
func NewService(store *notestore.Store, db index.NoteIndex, agg *stats.Aggregator, vlog VersionLog) *Service {
	return &Service{store: store, db: db, agg: agg, vlog: vlog}
}

// ListNotes returns every note in collection order.
func (s *Service) ListNotes(_ context.Context) []models.Note {
	return s.store.Notes()
}

// GetNote returns a note and its parse result.
func (s *Service) GetNote(_ context.Context, id string) (*NoteDetail, error) {
	n, res, ok := s.store.Note(id)
	if !ok {
		return nil, apperr.ErrNotFound
	}
	return &NoteDetail{
		Note:           n,
		Parsed:         res,
		Focused:        s.store.FocusedID() == id,
		ContentVersion: s.store.ContentVersion(),
	}, nil
}

// CreateNote creates and focuses an empty note.
func (s *Service) CreateNote(ctx context.Context, journal bool) (*NoteDetail, error) {
	n, err := s.store.CreateNote(journal)
	if err != nil {
		return nil, err
	}
	return s.GetNote(ctx, n.ID)
}

// DeleteNote removes a note.
func (s *Service) DeleteNote(_ context.Context, id string) error {
	return s.store.DeleteNote(id)
}

// Focus makes id the focused note.
func (s *Service) Focus(_ context.Context, id string) error {
	return s.store.Focus(id)
}

// UpdateContent schedules a debounced content edit of note id.
func (s *Service) UpdateContent(_ context.Context, id, content string) error {
	if err := s.store.Focus(id); err != nil {
		return err
	}
	return s.store.UpdateContent(content)
}

// UpdateTitle renames note id.
func (s *Service) UpdateTitle(_ context.Context, id, title string) error {
	if err := s.store.Focus(id); err != nil {
		return err
	}
	return s.store.UpdateTitle(title)
}

// AddTag attaches a tag to note id.
func (s *Service) AddTag(_ context.Context, id, tag string) error {
	if err := s.store.Focus(id); err != nil {
		return err
	}
	return s.store.AddTag(tag)
}

// RemoveTag detaches a tag from note id.
func (s *Service) RemoveTag(_ context.Context, id, tag string) error {
	if err := s.store.Focus(id); err != nil {
		return err
	}
	return s.store.RemoveTag(tag)
}

// SaveSnapshot appends a history entry to note id.
func (s *Service) SaveSnapshot(_ context.Context, id, summary string) error {
	if err := s.store.Focus(id); err != nil {
		return err
	}
	return s.store.SaveSnapshot(summary)
}

// CommitAndSave snapshots note id and commits the notes directory.
func (s *Service) CommitAndSave(ctx context.Context, id string) error {
	if err := s.store.Focus(id); err != nil {
		return err
	}
	return s.store.CommitAndSave(ctx)
}

// InsertTemplate appends a task or ticket template to note id.
func (s *Service) InsertTemplate(_ context.Context, id, kind string) error {
	if err := s.store.Focus(id); err != nil {
		return err
	}
	switch kind {
	case TemplateTask:
		return s.store.InsertTask()
	case TemplateTicket:
		return s.store.InsertTicket()
	}
	return fmt.Errorf("noteservice: template %q: %w", kind, apperr.ErrInvalidInput)
}

// Tasks returns every task across all notes.
func (s *Service) Tasks(_ context.Context) []notestore.NoteTask {
	return s.store.AllTasks()
}

// ToggleTask flips a task's checkbox.
func (s *Service) ToggleTask(_ context.Context, noteID, taskID string) error {
	return s.store.ToggleTask(noteID, taskID)
}

// Tickets returns every ticket across all notes.
func (s *Service) Tickets(_ context.Context) []notestore.NoteTicket {
	return s.store.AllTickets()
}

// SetTicketStatus changes the status of the ticket starting at blockStart.
func (s *Service) SetTicketStatus(_ context.Context, noteID string, blockStart int, status string) error {
	st, ok := models.ParseTicketStatus(status)
	if !ok {
		return fmt.Errorf("noteservice: status %q: %w", status, apperr.ErrInvalidStatus)
	}
	return s.store.UpdateTicketStatus(noteID, blockStart, st)
}

// TicketsByKey lists every note carrying a ticket identifier.
func (s *Service) TicketsByKey(_ context.Context, key string) ([]index.TicketRow, error) {
	return s.db.TicketsByKey(key)
}

// History returns every history entry, newest first.
func (s *Service) History(_ context.Context) []notestore.NoteHistory {
	return s.store.AllHistory()
}

// Journal returns the journal notes, newest first.
func (s *Service) Journal(_ context.Context) []models.Note {
	return s.store.JournalNotes()
}

// Stats returns the current statistics.
func (s *Service) Stats(_ context.Context) stats.Summary {
	return s.agg.Summary()
}

// Search delegates full-text search to the index.
func (s *Service) Search(_ context.Context, query string, limit int) ([]index.SearchResult, error) {
	return s.db.Search(query, limit)
}

// GitLog returns recent commits of the notes directory, or an empty list
// when version control is disabled.
func (s *Service) GitLog(ctx context.Context) ([]vcs.Commit, error) {
	if s.vlog == nil {
		return []vcs.Commit{}, nil
	}
	return s.vlog.Log(ctx, vcs.LogLimit)
}

// LastError returns the store's last user-visible failure.
func (s *Service) LastError(_ context.Context) string {
	return s.store.LastError()
}

// ClearError clears the last failure.
func (s *Service) ClearError(_ context.Context) {
	s.store.ClearError()
}

// Flush commits a pending debounced content edit immediately.
func (s *Service) Flush(_ context.Context) {
	s.store.Flush()
}

