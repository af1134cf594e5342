package models

import (
	"strings"
	"time"
)

// Priority of a task or ticket. The zero value means "no priority".
type Priority string

// Priorities in ascending order of urgency.
const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// ParsePriority matches s case-insensitively against the priority enum.
func ParsePriority(s string) (Priority, bool) {
	switch p := Priority(strings.ToLower(strings.TrimSpace(s))); p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return p, true
	}
	return "", false
}

// TicketStatus is the lifecycle state of a ticket.
type TicketStatus string

// Ticket statuses.
const (
	StatusOpen       TicketStatus = "open"
	StatusInProgress TicketStatus = "in-progress"
	StatusBlocked    TicketStatus = "blocked"
	StatusClosed     TicketStatus = "closed"
)

// TicketStatuses lists every status in board order.
var TicketStatuses = []TicketStatus{StatusOpen, StatusInProgress, StatusBlocked, StatusClosed}

// ParseTicketStatus matches s case-insensitively against the status enum.
func ParseTicketStatus(s string) (TicketStatus, bool) {
	switch st := TicketStatus(strings.ToLower(strings.TrimSpace(s))); st {
	case StatusOpen, StatusInProgress, StatusBlocked, StatusClosed:
		return st, true
	}
	return "", false
}

// TaskItem is a checklist line derived from note content. It is never stored
// on its own; every parse re-derives it.
type TaskItem struct {
	ID            string     `json:"id"`
	Text          string     `json:"text"`
	RawText       string     `json:"rawText"`
	IsCompleted   bool       `json:"isCompleted"`
	LineIndex     int        `json:"lineIndex"`
	DueDate       *time.Time `json:"dueDate,omitempty"`
	DueTime       string     `json:"dueTime,omitempty"` // HH:mm
	Priority      Priority   `json:"priority,omitempty"`
	Category      string     `json:"category,omitempty"`
	CompletedDate *time.Time `json:"completedDate,omitempty"`
}

// Ticket is derived from a :::ticket block.
type Ticket struct {
	Identifier  string       `json:"identifier"` // e.g. T-101, not unique
	Title       string       `json:"title,omitempty"`
	Status      TicketStatus `json:"status"`
	Priority    Priority     `json:"priority,omitempty"`
	DueDate     *time.Time   `json:"dueDate,omitempty"`
	CreatedDate *time.Time   `json:"createdDate,omitempty"`
	ClosedDate  *time.Time   `json:"closedDate,omitempty"`
	Owner       string       `json:"owner,omitempty"`
	Project     string       `json:"project,omitempty"`
	Body        string       `json:"body,omitempty"`
	BlockStart  int          `json:"blockStartLine"`
	BlockEnd    int          `json:"blockEndLine"`
}

// Project is derived from a :::project block.
type Project struct {
	Name     string     `json:"name"`
	Status   string     `json:"status"`
	Owner    string     `json:"owner,omitempty"`
	Deadline *time.Time `json:"deadline,omitempty"`
}

// CalendarEntry is reserved; the parser never produces one yet.
type CalendarEntry struct {
	Title    string        `json:"title"`
	Date     time.Time     `json:"date"`
	Time     string        `json:"time,omitempty"`
	Duration time.Duration `json:"duration,omitempty"`
}

// JournalMetadata comes from a leading --- frontmatter block.
type JournalMetadata struct {
	Date   *time.Time `json:"date,omitempty"`
	Mood   string     `json:"mood,omitempty"`
	Energy *int       `json:"energy,omitempty"`
	Sleep  string     `json:"sleep,omitempty"`
	Tags   []string   `json:"tags,omitempty"`
}

// ParseResult bundles everything the parser extracts from one note.
type ParseResult struct {
	Tasks           []TaskItem       `json:"tasks"`
	Tickets         []Ticket         `json:"tickets"`
	Projects        []Project        `json:"projects"`
	CalendarEntries []CalendarEntry  `json:"calendarEntries"`
	Metadata        *JournalMetadata `json:"metadata,omitempty"`
}
