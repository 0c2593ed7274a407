package store

import (
	"context"
	"path/filepath"
	"testing"
)

func TestSchemaCreation(t *testing.T) {
	db, err := Open(SQLite, filepath.Join(t.TempDir(), "schema.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db.Close()

	for _, table := range []string{"notebooks", "notes", "images"} {
		var count int
		if err := db.conn.QueryRow(`SELECT count(*) FROM ` + table).Scan(&count); err != nil {
			t.Fatalf("%s table missing: %v", table, err)
		}
	}
	var fk int
	if err := db.conn.QueryRow(`PRAGMA foreign_keys`).Scan(&fk); err != nil || fk != 1 {
		t.Errorf("foreign_keys = %d (%v), want 1", fk, err)
	}
}

func TestOpenTwiceIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "again.db")
	first, err := Open(SQLite, path)
	if err != nil {
		t.Fatalf("first Open: %v", err)
	}
	first.Close()
	second, err := Open(SQLite, path)
	if err != nil {
		t.Fatalf("second Open: %v", err)
	}
	second.Close()
}

func TestOpenUnsupportedDriver(t *testing.T) {
	if _, err := Open(Driver("mysql"), "x"); err == nil {
		t.Fatal("expected error for unsupported driver")
	}
}

func TestRebind(t *testing.T) {
	pg := &DB{driver: Postgres}
	if got := pg.rebind(`UPDATE notes SET title = ? WHERE id = ?`); got != `UPDATE notes SET title = $1 WHERE id = $2` {
		t.Errorf("postgres rebind = %q", got)
	}
	lite := &DB{driver: SQLite}
	if got := lite.rebind(`SELECT ? `); got != `SELECT ? ` {
		t.Errorf("sqlite rebind = %q", got)
	}
}

func TestPing(t *testing.T) {
	db, err := Open(SQLite, filepath.Join(t.TempDir(), "ping.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db.Close()
	if err := db.Ping(context.Background()); err != nil {
		t.Fatalf("Ping: %v", err)
	}
}
