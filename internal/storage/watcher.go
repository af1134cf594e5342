package storage

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// settleDelay is how long the watcher waits for a burst of events on the
// same records to go quiet before reading them.
const settleDelay = 200 * time.Millisecond

// EventCallback is called after a record changed outside this process.
// kind is "updated" or "deleted"; id is the note id.
type EventCallback func(kind string, id string)

// Watch starts an fsnotify watcher on the notes directory and reports note
// records modified or removed by someone else until ctx is cancelled.
// Writes made through this repository are recognised by checksum and
// ignored. Legacy journal records are not watched.
func (s *Notes) Watch(ctx context.Context, root string, logger *slog.Logger, cb EventCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(root); err != nil {
		return err
	}

	logger.Info("watcher: started", slog.String("root", root))

	pending := make(map[string]struct{})
	var settleTimer *time.Timer
	var settleCh <-chan time.Time

	schedule := func(name string) {
		pending[name] = struct{}{}
		if settleTimer == nil {
			settleTimer = time.NewTimer(settleDelay)
			settleCh = settleTimer.C
		} else {
			settleTimer.Reset(settleDelay)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if settleTimer != nil {
				settleTimer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-settleCh:
			for name := range pending {
				s.settle(name, logger, cb)
			}
			clear(pending)

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			name := filepath.Base(ev.Name)
			if _, legacy, ok := ParseFileName(name); !ok || legacy {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) != 0 {
				schedule(name)
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// settle inspects a record after its events went quiet and reports the
// resulting state.
func (s *Notes) settle(name string, logger *slog.Logger, cb EventCallback) {
	id, _, _ := ParseFileName(name)
	data, err := s.provider.Read(name)
	switch {
	case errors.Is(err, os.ErrNotExist):
		logger.Debug("watcher: record removed", slog.String("name", name))
		if cb != nil {
			cb("deleted", id)
		}
	case err != nil:
		logger.Warn("watcher: read failed", slog.String("name", name), slog.String("error", err.Error()))
	case s.ownWrite(name, data):
		// Our own write; the store already holds this state.
	default:
		if _, err := DecodeNote(data); err != nil {
			logger.Warn("watcher: undecodable record", slog.String("name", name), slog.String("error", err.Error()))
			return
		}
		logger.Debug("watcher: record changed externally", slog.String("name", name))
		if cb != nil {
			cb("updated", id)
		}
	}
}
