package index

import (
	"os"
	"testing"
	"time"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	f, err := os.CreateTemp("", "miding-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	f.Close()
	t.Cleanup(func() { os.Remove(f.Name()) })

	db, err := Open(f.Name())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSchemaCreation(t *testing.T) {
	db := testDB(t)
	var count int
	if err := db.conn.QueryRow(`SELECT count(*) FROM notes`).Scan(&count); err != nil {
		t.Fatalf("notes table missing: %v", err)
	}
	if err := db.conn.QueryRow(`SELECT count(*) FROM tickets`).Scan(&count); err != nil {
		t.Fatalf("tickets table missing: %v", err)
	}
}

func TestUpsertAndGetChecksum(t *testing.T) {
	db := testDB(t)
	row := NoteRow{
		ID:        "n1",
		Title:     "Hello World",
		Checksum:  "abc123",
		Tags:      []string{"go", "test"},
		UpdatedAt: time.Now(),
	}
	if err := db.UpsertNote(row, "This is a hello world note.", nil); err != nil {
		t.Fatalf("UpsertNote: %v", err)
	}
	cs, err := db.GetChecksum("n1")
	if err != nil {
		t.Fatalf("GetChecksum: %v", err)
	}
	if cs != "abc123" {
		t.Errorf("checksum = %q, want %q", cs, "abc123")
	}
}

func TestTicketsByKey_KeepsDuplicates(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertNote(NoteRow{ID: "a", Title: "Alpha", Checksum: "1", UpdatedAt: time.Now()}, "body", []TicketRow{
		{Identifier: "T-1", Status: "open", BlockStart: 0},
		{Identifier: "T-1", Status: "closed", BlockStart: 6},
	})
	_ = db.UpsertNote(NoteRow{ID: "b", Title: "Beta", Checksum: "2", UpdatedAt: time.Now()}, "body", []TicketRow{
		{Identifier: "T-1", Title: "Same key", Status: "blocked", Priority: "high", BlockStart: 2},
		{Identifier: "T-2", Status: "open", BlockStart: 9},
	})

	got, err := db.TicketsByKey("T-1")
	if err != nil {
		t.Fatalf("TicketsByKey: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 tickets, got %d: %+v", len(got), got)
	}
	if got[0].NoteTitle != "Alpha" || got[0].BlockStart != 0 || got[1].BlockStart != 6 {
		t.Errorf("order = %+v", got)
	}
	if got[2].NoteID != "b" || got[2].Priority != "high" || got[2].Title != "Same key" {
		t.Errorf("beta ticket = %+v", got[2])
	}

	none, err := db.TicketsByKey("T-404")
	if err != nil || len(none) != 0 {
		t.Errorf("unknown key = %+v, %v", none, err)
	}
}

func TestDeleteNote(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertNote(NoteRow{ID: "del", Checksum: "x", UpdatedAt: time.Now()}, "body", []TicketRow{{Identifier: "T-9", Status: "open"}})

	if err := db.DeleteNote("del"); err != nil {
		t.Fatalf("DeleteNote: %v", err)
	}
	cs, _ := db.GetChecksum("del")
	if cs != "" {
		t.Errorf("deleted note still has checksum %q", cs)
	}
	tickets, _ := db.TicketsByKey("T-9")
	if len(tickets) != 0 {
		t.Errorf("expected 0 tickets after delete, got %d", len(tickets))
	}
}

func TestUpsertUpdatesExisting(t *testing.T) {
	db := testDB(t)
	now := time.Now()
	_ = db.UpsertNote(NoteRow{ID: "up", Title: "Old", Checksum: "1", UpdatedAt: now}, "old body", []TicketRow{{Identifier: "X-1", Status: "open"}})
	_ = db.UpsertNote(NoteRow{ID: "up", Title: "New", Checksum: "2", Tags: []string{"new"}, UpdatedAt: now}, "new body", []TicketRow{{Identifier: "Y-1", Status: "open"}})

	cs, _ := db.GetChecksum("up")
	if cs != "2" {
		t.Errorf("checksum = %q, want %q", cs, "2")
	}
	old, _ := db.TicketsByKey("X-1")
	if len(old) != 0 {
		t.Error("old ticket should be removed on upsert")
	}
	cur, _ := db.TicketsByKey("Y-1")
	if len(cur) != 1 {
		t.Error("new ticket should exist")
	}
}

func TestGetChecksum_NotFound(t *testing.T) {
	db := testDB(t)
	cs, err := db.GetChecksum("nonexistent")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cs != "" {
		t.Errorf("expected empty checksum, got %q", cs)
	}
}

func TestAllChecksums(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertNote(NoteRow{ID: "a", Checksum: "1", UpdatedAt: time.Now()}, "", nil)
	_ = db.UpsertNote(NoteRow{ID: "b", Checksum: "2", UpdatedAt: time.Now()}, "", nil)

	got, err := db.AllChecksums()
	if err != nil {
		t.Fatalf("AllChecksums: %v", err)
	}
	if len(got) != 2 || got["a"] != "1" || got["b"] != "2" {
		t.Errorf("checksums = %v", got)
	}
}

func TestSearch_Basic(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertNote(NoteRow{ID: "s", Title: "Search Me", Checksum: "1", UpdatedAt: time.Now()}, "uniqueword appears here", nil)

	results, err := db.Search("uniqueword", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].NoteID != "s" {
		t.Errorf("search results = %+v, want 1 hit for s", results)
	}
}
