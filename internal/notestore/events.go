package notestore

// EventKind names a store change.
type EventKind string

// Store change kinds.
const (
	EventCreated EventKind = "note.created"
	EventUpdated EventKind = "note.updated"
	EventDeleted EventKind = "note.deleted"
	EventFocused EventKind = "note.focused"
)

// Event is delivered to observers after a mutation is fully applied.
type Event struct {
	Kind   EventKind `json:"kind"`
	NoteID string    `json:"noteId"`
}

// Observer receives store events. It runs on the mutating goroutine and
// must not block; it may read from the store.
type Observer func(Event)

// Subscribe registers fn for every subsequent event.
func (s *Store) Subscribe(fn Observer) {
	s.obsMu.Lock()
	s.observers = append(s.observers, fn)
	s.obsMu.Unlock()
}

func (s *Store) notify(ev Event) {
	s.obsMu.RLock()
	obs := s.observers
	s.obsMu.RUnlock()
	for _, fn := range obs {
		fn(ev)
	}
}
