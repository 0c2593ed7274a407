// Package watcher reports writes to the SQLite database files, such as the
// ones made by a second carnet process serving MCP clients.
package watcher

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDelay is the quiet window after the last file event before the
// callback runs.
const DefaultDelay = 200 * time.Millisecond

// watched returns the file names that belong to the database at dbPath.
func watched(dbPath string) map[string]struct{} {
	base := filepath.Base(dbPath)
	return map[string]struct{}{
		base:              {},
		base + "-wal":     {},
		base + "-journal": {},
	}
}

// Watch watches the directory holding dbPath and calls cb once per burst of
// writes to the database, its WAL or its rollback journal, until ctx is
// cancelled. The directory is watched rather than the file because SQLite
// creates and removes its side files at runtime.
func Watch(ctx context.Context, dbPath string, delay time.Duration, logger *slog.Logger, cb func()) error {
	if delay <= 0 {
		delay = DefaultDelay
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	dir := filepath.Dir(dbPath)
	if err := w.Add(dir); err != nil {
		return err
	}
	names := watched(dbPath)

	logger.Info("watcher: started", slog.String("dir", dir), slog.String("db", filepath.Base(dbPath)))

	var timer *time.Timer
	var fire <-chan time.Time

	schedule := func() {
		if timer == nil {
			timer = time.NewTimer(delay)
			fire = timer.C
			return
		}
		timer.Reset(delay)
	}

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-fire:
			timer, fire = nil, nil
			logger.Debug("watcher: store changed")
			if cb != nil {
				cb()
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if _, ok := names[filepath.Base(ev.Name)]; !ok {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			schedule()

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}
