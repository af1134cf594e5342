// Package testutil provides shared test helpers for setting up note
// directories, databases and a fully wired service.
package testutil

import (
	"context"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/starford/miding/internal/index"
	"github.com/starford/miding/internal/noteservice"
	"github.com/starford/miding/internal/notestore"
	"github.com/starford/miding/internal/stats"
	"github.com/starford/miding/internal/storage"
)

// TestDB creates a temporary SQLite database that is automatically cleaned up.
func TestDB(t *testing.T) *index.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "miding-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := index.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestNotes creates a temporary notes directory with a record repository.
func TestNotes(t *testing.T) (string, *storage.Notes) {
	t.Helper()
	dir := t.TempDir()
	fs, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	return dir, storage.NewNotes(fs, Logger())
}

// Logger discards everything.
func Logger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

// Env is a wired note service over a temporary directory and database.
type Env struct {
	Dir     string
	Notes   *storage.Notes
	Store   *notestore.Store
	DB      *index.DB
	Service *noteservice.Service
}

// NewEnv wires storage, store, index and statistics the way the application
// does, with a short debounce. The indexer runs until the test ends.
func NewEnv(t *testing.T) *Env {
	t.Helper()
	dir, notes := TestNotes(t)
	db := TestDB(t)

	store := notestore.New(notes,
		notestore.WithLogger(Logger()),
		notestore.WithDebounce(10*time.Millisecond),
	)
	t.Cleanup(store.Close)
	if err := store.Load(); err != nil {
		t.Fatal(err)
	}

	agg := stats.NewAggregator(store, time.Now)
	ix := index.NewIndexer(db, store, Logger())
	store.Subscribe(agg.Observe)
	store.Subscribe(ix.Observe)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = ix.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	return &Env{
		Dir:     dir,
		Notes:   notes,
		Store:   store,
		DB:      db,
		Service: noteservice.NewService(store, db, agg, nil),
	}
}

// Eventually polls fn until it returns true or the deadline passes.
func Eventually(t *testing.T, fn func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}
