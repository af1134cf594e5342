package storage

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/starford/miding/internal/models"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestParseFileName(t *testing.T) {
	cases := []struct {
		name   string
		id     string
		legacy bool
		ok     bool
	}{
		{"note_abc.json", "abc", false, true},
		{"journal_abc.json", "abc", true, true},
		{"note_.json", "", false, false},
		{"note_abc.md", "", false, false},
		{"other.json", "", false, false},
	}
	for _, tc := range cases {
		id, legacy, ok := ParseFileName(tc.name)
		if id != tc.id || legacy != tc.legacy || ok != tc.ok {
			t.Errorf("ParseFileName(%q) = (%q, %v, %v)", tc.name, id, legacy, ok)
		}
	}
	if NoteFileName("abc") != "note_abc.json" {
		t.Errorf("NoteFileName = %q", NoteFileName("abc"))
	}
}

func TestSaveAndLoadAll(t *testing.T) {
	fs := tempDir(t)
	repo := NewNotes(fs, quietLogger())

	older := models.Note{ID: "a", Title: "A", Content: "- [ ] x", ModifiedAt: time.Now().Add(-time.Hour)}
	newer := models.Note{ID: "b", Title: "B", ModifiedAt: time.Now(), Tags: []string{"work"}}
	for _, n := range []models.Note{older, newer} {
		if err := repo.Save(n); err != nil {
			t.Fatalf("Save: %v", err)
		}
	}

	notes, err := repo.LoadAll()
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	if len(notes) != 2 {
		t.Fatalf("len = %d, want 2", len(notes))
	}
	if notes[0].ID != "b" || notes[1].ID != "a" {
		t.Errorf("order = %s, %s; want newest first", notes[0].ID, notes[1].ID)
	}
	if notes[1].Content != "- [ ] x" {
		t.Errorf("content = %q", notes[1].Content)
	}
}

func TestLoadAll_SkipsUndecodable(t *testing.T) {
	fs := tempDir(t)
	repo := NewNotes(fs, quietLogger())
	_ = repo.Save(models.Note{ID: "good", Title: "ok"})
	_ = fs.Write("note_bad.json", []byte("{not json"))
	_ = fs.Write("note_empty.json", []byte(`{"title":"no id"}`))

	notes, err := repo.LoadAll()
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	if len(notes) != 1 || notes[0].ID != "good" {
		t.Errorf("notes = %+v", notes)
	}
}

func TestLoadAll_SkipsUnreadable(t *testing.T) {
	fs := tempDir(t)
	repo := NewNotes(fs, quietLogger())
	_ = repo.Save(models.Note{ID: "good", Title: "ok"})
	if err := os.Symlink(filepath.Join(fs.root, "missing"), filepath.Join(fs.root, "note_bad.json")); err != nil {
		t.Skipf("symlink: %v", err)
	}

	notes, err := repo.LoadAll()
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	if len(notes) != 1 || notes[0].ID != "good" {
		t.Errorf("notes = %+v", notes)
	}
}

func TestLoadAll_MigratesLegacyJournal(t *testing.T) {
	fs := tempDir(t)
	repo := NewNotes(fs, quietLogger())

	date := time.Date(2025, 12, 24, 0, 0, 0, 0, time.UTC)
	legacy, _ := json.Marshal(models.LegacyJournalEntry{
		ID:          "j1",
		Date:        date,
		RawMarkdown: "- [x] wrapped gifts",
		Metadata:    &models.JournalMetadata{Tags: []string{"holiday"}},
	})
	_ = fs.Write("journal_j1.json", legacy)

	notes, err := repo.LoadAll()
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	if len(notes) != 1 {
		t.Fatalf("len = %d, want 1", len(notes))
	}
	n := notes[0]
	if n.Title != "Journal 2025-12-24" || n.Content != "- [x] wrapped gifts" {
		t.Errorf("migrated note = %+v", n)
	}
	if n.JournalDate == nil || !n.JournalDate.Equal(date) {
		t.Errorf("journalDate = %v", n.JournalDate)
	}
	if len(n.Tags) != 1 || n.Tags[0] != "holiday" {
		t.Errorf("tags = %v", n.Tags)
	}

	if _, err := fs.Read("note_j1.json"); err != nil {
		t.Errorf("migrated record not written: %v", err)
	}
	// Second load must not duplicate the migrated note.
	notes, _ = repo.LoadAll()
	if len(notes) != 1 {
		t.Errorf("len after reload = %d, want 1", len(notes))
	}
}

func TestDelete_MissingIsNotError(t *testing.T) {
	repo := NewNotes(tempDir(t), quietLogger())
	if err := repo.Delete("nope"); err != nil {
		t.Errorf("Delete missing: %v", err)
	}
}

func TestOwnWrite(t *testing.T) {
	fs := tempDir(t)
	repo := NewNotes(fs, quietLogger())
	_ = repo.Save(models.Note{ID: "x", Title: "mine"})

	data, _ := fs.Read("note_x.json")
	if !repo.ownWrite("note_x.json", data) {
		t.Error("own write not recognised")
	}
	if repo.ownWrite("note_x.json", []byte(`{"id":"x","title":"theirs"}`)) {
		t.Error("foreign content treated as own write")
	}
}
