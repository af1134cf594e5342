package notestore

import (
	"sort"

	"github.com/starford/miding/internal/models"
	"github.com/starford/miding/internal/parser"
)

// NoteTask pairs a task with the note it was parsed from.
type NoteTask struct {
	NoteID string          `json:"noteId"`
	Task   models.TaskItem `json:"task"`
}

// NoteTicket pairs a ticket with the note it was parsed from.
type NoteTicket struct {
	NoteID string        `json:"noteId"`
	Ticket models.Ticket `json:"ticket"`
}

// NoteHistory pairs a history entry with its note.
type NoteHistory struct {
	NoteID    string                  `json:"noteId"`
	NoteTitle string                  `json:"noteTitle"`
	Entry     models.NoteHistoryEntry `json:"entry"`
}

// Notes returns copies of every note in collection order.
func (s *Store) Notes() []models.Note {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Note, len(s.notes))
	for i, n := range s.notes {
		out[i] = n.Clone()
	}
	return out
}

// Note returns a copy of a note and its current parse result.
func (s *Store) Note(id string) (models.Note, models.ParseResult, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.indexOf(id)
	if i < 0 {
		return models.Note{}, models.ParseResult{}, false
	}
	return s.notes[i].Clone(), s.resultLocked(id), true
}

// Focused returns a copy of the focused note.
func (s *Store) Focused() (models.Note, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.indexOf(s.focused)
	if i < 0 {
		return models.Note{}, false
	}
	return s.notes[i].Clone(), true
}

// AllTasks flattens the task caches of every note in collection order.
func (s *Store) AllTasks() []NoteTask {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []NoteTask{}
	for _, n := range s.notes {
		for _, t := range s.cache[n.ID].Tasks {
			out = append(out, NoteTask{NoteID: n.ID, Task: t})
		}
	}
	return out
}

// AllTickets flattens the ticket caches of every note in collection order.
func (s *Store) AllTickets() []NoteTicket {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []NoteTicket{}
	for _, n := range s.notes {
		for _, t := range s.cache[n.ID].Tickets {
			out = append(out, NoteTicket{NoteID: n.ID, Ticket: t})
		}
	}
	return out
}

// AllHistory returns every history entry of every note, newest first.
func (s *Store) AllHistory() []NoteHistory {
	s.mu.RLock()
	out := []NoteHistory{}
	for _, n := range s.notes {
		for _, h := range n.History {
			out = append(out, NoteHistory{NoteID: n.ID, NoteTitle: n.Title, Entry: h})
		}
	}
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Entry.Timestamp.After(out[j].Entry.Timestamp)
	})
	return out
}

// JournalNotes returns the notes with a journal date, newest date first.
func (s *Store) JournalNotes() []models.Note {
	s.mu.RLock()
	out := []models.Note{}
	for _, n := range s.notes {
		if n.IsJournal() {
			out = append(out, n.Clone())
		}
	}
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].JournalDate.After(*out[j].JournalDate)
	})
	return out
}

// FocusedTasks returns the tasks of the focused note.
func (s *Store) FocusedTasks() []models.TaskItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.TaskItem{}, s.resultLocked(s.focused).Tasks...)
}

// FocusedTickets returns the tickets of the focused note.
func (s *Store) FocusedTickets() []models.Ticket {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Ticket{}, s.resultLocked(s.focused).Tickets...)
}

func (s *Store) resultLocked(id string) models.ParseResult {
	if res, ok := s.cache[id]; ok {
		return res
	}
	return parser.Parse("")
}
