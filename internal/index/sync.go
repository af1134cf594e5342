package index

import (
	"context"
	"log/slog"
	"strings"
	"sync/atomic"

	"github.com/starford/miding/internal/checksum"
	"github.com/starford/miding/internal/models"
	"github.com/starford/miding/internal/notestore"
)

// NoteSource is the read side of the note store the index follows.
type NoteSource interface {
	Notes() []models.Note
	Note(id string) (models.Note, models.ParseResult, bool)
}

// Indexer keeps the index in step with a note store. Store events are queued
// by Observe and applied by Run, so indexing never blocks a store mutation.
type Indexer struct {
	db     NoteIndex
	src    NoteSource
	logger *slog.Logger

	events chan notestore.Event
	resync atomic.Bool // set when an event was dropped
}

// NewIndexer creates an indexer writing to db.
func NewIndexer(db NoteIndex, src NoteSource, logger *slog.Logger) *Indexer {
	return &Indexer{
		db:     db,
		src:    src,
		logger: logger,
		events: make(chan notestore.Event, 256),
	}
}

// Observe is a notestore.Observer.
func (ix *Indexer) Observe(ev notestore.Event) {
	if ev.Kind == notestore.EventFocused {
		return
	}
	select {
	case ix.events <- ev:
	default:
		ix.resync.Store(true)
	}
}

// Run resyncs the whole index, then applies queued events until ctx is
// cancelled. Events already queued at cancellation are still applied.
func (ix *Indexer) Run(ctx context.Context) error {
	if err := ix.Sync(); err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			ix.drain()
			return nil
		case ev := <-ix.events:
			ix.apply(ev)
			if ix.resync.Swap(false) {
				if err := ix.Sync(); err != nil {
					ix.logger.Warn("index: resync failed", slog.String("error", err.Error()))
				}
			}
		}
	}
}

func (ix *Indexer) drain() {
	for {
		select {
		case ev := <-ix.events:
			ix.apply(ev)
		default:
			return
		}
	}
}

func (ix *Indexer) apply(ev notestore.Event) {
	n, res, ok := ix.src.Note(ev.NoteID)
	if !ok || ev.Kind == notestore.EventDeleted {
		if err := ix.db.DeleteNote(ev.NoteID); err != nil {
			ix.logger.Warn("index: delete failed", slog.String("note_id", ev.NoteID), slog.String("error", err.Error()))
		}
		return
	}
	if err := ix.index(n, res); err != nil {
		ix.logger.Warn("index: upsert failed", slog.String("note_id", n.ID), slog.String("error", err.Error()))
	}
}

// Sync brings the index up to date with the store:
//   - new/changed notes are upserted
//   - notes no longer in the store are deleted from the index
func (ix *Indexer) Sync() error {
	checksums, err := ix.db.AllChecksums()
	if err != nil {
		return err
	}

	live := make(map[string]struct{})
	for _, n := range ix.src.Notes() {
		live[n.ID] = struct{}{}
		if checksums[n.ID] == noteChecksum(n) {
			continue
		}
		_, res, ok := ix.src.Note(n.ID)
		if !ok {
			continue
		}
		if err := ix.index(n, res); err != nil {
			ix.logger.Warn("sync: index failed", slog.String("note_id", n.ID), slog.String("error", err.Error()))
		} else {
			ix.logger.Debug("sync: indexed", slog.String("note_id", n.ID))
		}
	}

	// Remove stale entries.
	for id := range checksums {
		if _, ok := live[id]; !ok {
			if err := ix.db.DeleteNote(id); err != nil {
				ix.logger.Warn("sync: delete failed", slog.String("note_id", id), slog.String("error", err.Error()))
			} else {
				ix.logger.Debug("sync: removed stale", slog.String("note_id", id))
			}
		}
	}
	return nil
}

func (ix *Indexer) index(n models.Note, res models.ParseResult) error {
	tickets := make([]TicketRow, 0, len(res.Tickets))
	for _, t := range res.Tickets {
		tickets = append(tickets, TicketRow{
			Identifier: t.Identifier,
			Title:      t.Title,
			Status:     string(t.Status),
			Priority:   string(t.Priority),
			BlockStart: t.BlockStart,
		})
	}
	row := NoteRow{
		ID:        n.ID,
		Title:     n.Title,
		Checksum:  noteChecksum(n),
		Tags:      n.Tags,
		Journal:   n.IsJournal(),
		UpdatedAt: n.ModifiedAt,
	}
	return ix.db.UpsertNote(row, n.Content, tickets)
}

// noteChecksum covers every field the index stores.
func noteChecksum(n models.Note) string {
	journal := ""
	if n.IsJournal() {
		journal = "journal"
	}
	return checksum.Fields(n.Title, strings.Join(n.Tags, ","), journal, n.Content)
}
