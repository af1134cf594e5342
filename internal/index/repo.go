package index

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// NoteRow represents a row in the notes table.
type NoteRow struct {
	ID        string
	Title     string
	Checksum  string
	Tags      []string
	Journal   bool
	UpdatedAt time.Time
}

// TicketRow represents one ticket occurrence. The same identifier may occur
// in several notes or several times in one note.
type TicketRow struct {
	NoteID     string `json:"noteId"`
	NoteTitle  string `json:"noteTitle"`
	Identifier string `json:"identifier"`
	Title      string `json:"title,omitempty"`
	Status     string `json:"status"`
	Priority   string `json:"priority,omitempty"`
	BlockStart int    `json:"blockStartLine"`
}

// SearchResult represents one search hit.
type SearchResult struct {
	NoteID  string `json:"noteId"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
}

// UpsertNote inserts or replaces a note, its FTS entry and its tickets within
// a transaction.
func (db *DB) UpsertNote(n NoteRow, body string, tickets []TicketRow) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	if n.Tags == nil {
		n.Tags = []string{}
	}
	tagsJSON, _ := json.Marshal(n.Tags)

	// Upsert notes table (includes body for fallback search).
	_, err = tx.Exec(`
		INSERT INTO notes (id, title, checksum, tags, body, journal, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title      = excluded.title,
			checksum   = excluded.checksum,
			tags       = excluded.tags,
			body       = excluded.body,
			journal    = excluded.journal,
			updated_at = excluded.updated_at
	`, n.ID, n.Title, n.Checksum, string(tagsJSON), body, n.Journal, n.UpdatedAt)
	if err != nil {
		return fmt.Errorf("index: upsert note: %w", err)
	}

	// FTS upsert (no-op when FTS5 tag is absent).
	if err := ftsUpsert(tx, n.ID, n.Title, body, n.Tags); err != nil {
		return err
	}

	// Replace tickets: delete old then bulk insert.
	if _, err := tx.Exec(`DELETE FROM tickets WHERE note_id = ?`, n.ID); err != nil {
		return fmt.Errorf("index: clear tickets: %w", err)
	}
	if len(tickets) > 0 {
		stmt, err := tx.Prepare(`
			INSERT OR REPLACE INTO tickets (note_id, identifier, title, status, priority, block_start)
			VALUES (?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("index: prepare ticket insert: %w", err)
		}
		defer stmt.Close()
		for _, t := range tickets {
			if _, err := stmt.Exec(n.ID, t.Identifier, t.Title, t.Status, t.Priority, t.BlockStart); err != nil {
				return fmt.Errorf("index: insert ticket: %w", err)
			}
		}
	}

	return tx.Commit()
}

// DeleteNote removes a note, its FTS entry and its tickets.
func (db *DB) DeleteNote(id string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	ftsDelete(tx, id)
	_, _ = tx.Exec(`DELETE FROM tickets WHERE note_id = ?`, id)
	_, _ = tx.Exec(`DELETE FROM notes WHERE id = ?`, id)

	return tx.Commit()
}

// GetChecksum returns the stored checksum for a note, or empty string if not found.
func (db *DB) GetChecksum(id string) (string, error) {
	var cs string
	err := db.conn.QueryRow(`SELECT checksum FROM notes WHERE id = ?`, id).Scan(&cs)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("index: checksum: %w", err)
	}
	return cs, nil
}

// AllChecksums returns the stored checksum of every indexed note.
func (db *DB) AllChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT id, checksum FROM notes`)
	if err != nil {
		return nil, fmt.Errorf("index: all checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var id, cs string
		if err := rows.Scan(&id, &cs); err != nil {
			return nil, err
		}
		out[id] = cs
	}
	return out, rows.Err()
}

// TicketsByKey lists every ticket carrying identifier, in note title order.
func (db *DB) TicketsByKey(identifier string) ([]TicketRow, error) {
	rows, err := db.conn.Query(`
		SELECT t.note_id, n.title, t.identifier, t.title, t.status, t.priority, t.block_start
		FROM tickets t JOIN notes n ON n.id = t.note_id
		WHERE t.identifier = ?
		ORDER BY n.title, t.block_start
	`, identifier)
	if err != nil {
		return nil, fmt.Errorf("index: tickets by key: %w", err)
	}
	defer rows.Close()

	out := []TicketRow{}
	for rows.Next() {
		var t TicketRow
		if err := rows.Scan(&t.NoteID, &t.NoteTitle, &t.Identifier, &t.Title, &t.Status, &t.Priority, &t.BlockStart); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
