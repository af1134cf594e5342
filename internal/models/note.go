// Package models defines the domain types for miding.
package models

import "time"

// Note is a unit of user content. Content is the single source of truth for
// every derived entity (tasks, tickets, projects, metadata).
type Note struct {
	ID          string             `json:"id"`
	Title       string             `json:"title"`
	Content     string             `json:"content"`
	CreatedAt   time.Time          `json:"createdAt"`
	ModifiedAt  time.Time          `json:"modifiedAt"`
	JournalDate *time.Time         `json:"journalDate"`
	Tags        []string           `json:"tags"`
	History     []NoteHistoryEntry `json:"history"`
}

// IsJournal reports whether the note is a dated journal entry.
func (n Note) IsJournal() bool {
	return n.JournalDate != nil
}

// HasTag reports whether tag is already attached to the note.
func (n Note) HasTag(tag string) bool {
	for _, t := range n.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Clone returns a deep copy so callers can mutate it without touching shared state.
func (n Note) Clone() Note {
	out := n
	if n.JournalDate != nil {
		d := *n.JournalDate
		out.JournalDate = &d
	}
	out.Tags = append([]string(nil), n.Tags...)
	out.History = append([]NoteHistoryEntry(nil), n.History...)
	return out
}

// NoteHistoryEntry is an immutable snapshot appended on explicit save actions.
type NoteHistoryEntry struct {
	ID              string    `json:"id"`
	Timestamp       time.Time `json:"timestamp"`
	Title           string    `json:"title"`
	ContentSnapshot string    `json:"contentSnapshot"`
	Summary         string    `json:"summary"` // "Created", "Saved", "Snapshot", ...
}

// Standard history summaries.
const (
	SummaryCreated  = "Created"
	SummarySaved    = "Saved"
	SummarySnapshot = "Snapshot"
)

// LegacyJournalEntry is the pre-Note journal record, read once and migrated.
type LegacyJournalEntry struct {
	ID          string           `json:"id"`
	Date        time.Time        `json:"date"`
	RawMarkdown string           `json:"rawMarkdown"`
	Metadata    *JournalMetadata `json:"metadata,omitempty"`
}

// RecordMeta describes one persisted record file in the notes directory.
type RecordMeta struct {
	Name      string    `json:"name"`
	UpdatedAt time.Time `json:"updated_at"`
}
