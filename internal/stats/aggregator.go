package stats

import (
	"sync"
	"time"

	"github.com/starford/miding/internal/models"
	"github.com/starford/miding/internal/notestore"
)

// Source is the read side of the note store.
type Source interface {
	Notes() []models.Note
	AllTasks() []notestore.NoteTask
	AllTickets() []notestore.NoteTicket
	AllHistory() []notestore.NoteHistory
}

// InputFrom collects an Input from the store's aggregate views.
func InputFrom(src Source) Input {
	in := Input{Notes: src.Notes()}
	for _, t := range src.AllTasks() {
		in.Tasks = append(in.Tasks, t.Task)
	}
	for _, t := range src.AllTickets() {
		in.Tickets = append(in.Tickets, t.Ticket)
	}
	for _, h := range src.AllHistory() {
		in.History = append(in.History, h.Entry)
	}
	return in
}

// Aggregator keeps the latest Summary. Store events mark it stale; the next
// Summary call recomputes it. A new calendar day also forces a recompute.
type Aggregator struct {
	src Source
	now func() time.Time

	mu      sync.Mutex
	stale   bool
	summary Summary
}

// NewAggregator creates an aggregator reading from src. now may be nil.
func NewAggregator(src Source, now func() time.Time) *Aggregator {
	if now == nil {
		now = time.Now
	}
	return &Aggregator{src: src, now: now, stale: true}
}

// Observe is a notestore.Observer. Focus changes do not affect statistics.
func (a *Aggregator) Observe(ev notestore.Event) {
	if ev.Kind == notestore.EventFocused {
		return
	}
	a.mu.Lock()
	a.stale = true
	a.mu.Unlock()
}

// Summary returns the current statistics, recomputing when needed.
func (a *Aggregator) Summary() Summary {
	now := a.now()

	a.mu.Lock()
	defer a.mu.Unlock()
	y1, m1, d1 := a.summary.GeneratedAt.Date()
	y2, m2, d2 := now.Date()
	if a.stale || y1 != y2 || m1 != m2 || d1 != d2 {
		a.summary = Compute(InputFrom(a.src), now)
		a.stale = false
	}
	return a.summary
}
