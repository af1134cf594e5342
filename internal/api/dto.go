package api

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/miding/internal/index"
	"github.com/starford/miding/internal/models"
	"github.com/starford/miding/internal/noteservice"
	"github.com/starford/miding/internal/notestore"
	"github.com/starford/miding/internal/stats"
	"github.com/starford/miding/internal/vcs"
)

const (
	maxTitleLen   = 200
	maxTagLen     = 64
	maxSummaryLen = 200
)

// CreateNoteRequest is the request body for creating a note.
type CreateNoteRequest struct {
	Journal bool `json:"journal" example:"false"`
}

// Validate implements validation.Validatable.
func (r *CreateNoteRequest) Validate() error { return nil }

// UpdateContentRequest replaces a note's content. Empty content is allowed.
type UpdateContentRequest struct {
	Content *string `json:"content" example:"- [ ] ship it @due(2026-10-20)" validate:"required"`
}

// Validate implements validation.Validatable.
func (r *UpdateContentRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Content, validation.NotNil),
	)
}

// UpdateTitleRequest renames a note.
type UpdateTitleRequest struct {
	Title string `json:"title" example:"Sprint notes" validate:"required"`
}

// Validate implements validation.Validatable.
func (r *UpdateTitleRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Title, validation.Required, validation.Length(1, maxTitleLen)),
	)
}

// TagRequest attaches a tag to a note.
type TagRequest struct {
	Tag string `json:"tag" example:"work" validate:"required"`
}

// Validate implements validation.Validatable.
func (r *TagRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Tag, validation.Required, validation.Length(1, maxTagLen)),
	)
}

// SnapshotRequest appends a history entry. An empty summary becomes "Snapshot".
type SnapshotRequest struct {
	Summary string `json:"summary" example:"before refactor"`
}

// Validate implements validation.Validatable.
func (r *SnapshotRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Summary, validation.Length(0, maxSummaryLen)),
	)
}

// ToggleTaskRequest flips one task checkbox.
type ToggleTaskRequest struct {
	NoteID string `json:"noteId" example:"3f0c..." validate:"required"`
	TaskID string `json:"taskId" example:"3f0c...-task-4" validate:"required"`
}

// Validate implements validation.Validatable.
func (r *ToggleTaskRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.NoteID, validation.Required),
		validation.Field(&r.TaskID, validation.Required),
	)
}

// TicketStatusRequest rewrites the status of the ticket block starting at
// BlockStart.
type TicketStatusRequest struct {
	NoteID     string `json:"noteId" example:"3f0c..." validate:"required"`
	BlockStart *int   `json:"blockStart" example:"12" validate:"required"`
	Status     string `json:"status" example:"closed" validate:"required"`
}

// Validate implements validation.Validatable.
func (r *TicketStatusRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.NoteID, validation.Required),
		validation.Field(&r.BlockStart, validation.NotNil, validation.Min(0)),
		validation.Field(&r.Status, validation.Required),
	)
}

// NoteDetail is the full note response type (aliased from the domain layer).
type NoteDetail = noteservice.NoteDetail

// NoteListResponse wraps note listings.
type NoteListResponse struct {
	Notes []models.Note `json:"notes" validate:"required"`
}

// TaskListResponse wraps the task list of every note.
type TaskListResponse struct {
	Tasks []notestore.NoteTask `json:"tasks" validate:"required"`
}

// TicketListResponse wraps the ticket list of every note.
type TicketListResponse struct {
	Tickets []notestore.NoteTicket `json:"tickets" validate:"required"`
}

// TicketsByKeyResponse lists every occurrence of a ticket identifier.
type TicketsByKeyResponse struct {
	Key     string            `json:"key" example:"T-101" validate:"required"`
	Tickets []index.TicketRow `json:"tickets" validate:"required"`
}

// HistoryResponse wraps history entries, newest first.
type HistoryResponse struct {
	History []notestore.NoteHistory `json:"history" validate:"required"`
}

// Summary is the statistics payload (aliased from the domain layer).
type Summary = stats.Summary

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []index.SearchResult `json:"results" validate:"required"`
}

// GitLogResponse wraps recent commits of the notes directory.
type GitLogResponse struct {
	Commits []vcs.Commit `json:"commits" validate:"required"`
}

// LastErrorResponse carries the last user-visible failure, empty when none.
type LastErrorResponse struct {
	Message string `json:"message" example:"Failed to save note: disk full"`
}

// AcceptedResponse acknowledges a debounced edit.
type AcceptedResponse struct {
	Status string `json:"status" example:"pending" validate:"required"`
}
