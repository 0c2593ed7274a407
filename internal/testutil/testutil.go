// Package testutil provides shared test helpers for setting up stores.
package testutil

import (
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/starford/carnet/internal/store"
)

// TestDB creates a temporary SQLite database that is automatically cleaned up.
func TestDB(t *testing.T, opts ...store.Option) *store.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "carnet-test.db")
	db, err := store.Open(store.SQLite, path, opts...)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// Logger returns a logger that discards everything.
func Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// StepClock returns a clock that advances by step on every call, starting at
// start. It gives tests strictly increasing timestamps without sleeping.
func StepClock(start time.Time, step time.Duration) func() time.Time {
	next := start
	return func() time.Time {
		t := next
		next = next.Add(step)
		return t
	}
}
