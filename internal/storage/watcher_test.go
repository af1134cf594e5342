package storage

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/starford/miding/internal/models"
)

// eventually polls fn every tick until it returns true or timeout elapses.
func eventually(t *testing.T, timeout, tick time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(tick)
	}
	t.Error(msg)
}

type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) cb(kind, id string) {
	r.mu.Lock()
	r.events = append(r.events, kind+":"+id)
	r.mu.Unlock()
}

func (r *recorder) has(ev string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.events {
		if e == ev {
			return true
		}
	}
	return false
}

func startWatcher(t *testing.T) (*FS, *Notes, *recorder) {
	t.Helper()
	fs := tempDir(t)
	repo := NewNotes(fs, quietLogger())
	rec := &recorder{}

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go repo.Watch(ctx, fs.Root(), quietLogger(), rec.cb)
	time.Sleep(100 * time.Millisecond)
	return fs, repo, rec
}

func TestWatcher_ExternalWriteReported(t *testing.T) {
	fs, _, rec := startWatcher(t)

	_ = os.WriteFile(filepath.Join(fs.Root(), "note_ext.json"), []byte(`{"id":"ext","title":"outside"}`), 0o644)

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		return rec.has("updated:ext")
	}, "external write not reported")
}

func TestWatcher_OwnWriteIgnored(t *testing.T) {
	_, repo, rec := startWatcher(t)

	_ = repo.Save(models.Note{ID: "own", Title: "mine"})
	time.Sleep(3 * settleDelay)

	if rec.has("updated:own") {
		t.Error("own write reported as external change")
	}
}

func TestWatcher_RemovalReported(t *testing.T) {
	fs, repo, rec := startWatcher(t)
	_ = repo.Save(models.Note{ID: "gone", Title: "bye"})
	time.Sleep(3 * settleDelay)

	_ = os.Remove(filepath.Join(fs.Root(), "note_gone.json"))

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		return rec.has("deleted:gone")
	}, "removal not reported")
}

func TestWatcher_IgnoresOtherFiles(t *testing.T) {
	fs, _, rec := startWatcher(t)

	_ = os.WriteFile(filepath.Join(fs.Root(), "readme.txt"), []byte("x"), 0o644)
	_ = os.WriteFile(filepath.Join(fs.Root(), "journal_old.json"), []byte(`{"id":"old"}`), 0o644)
	time.Sleep(3 * settleDelay)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.events) != 0 {
		t.Errorf("unexpected events: %v", rec.events)
	}
}
