package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/starford/carnet/internal/apperr"
	"github.com/starford/carnet/internal/models"
)

const noteCols = `id, notebook_id, title, content, created_at, updated_at, deleted`

func scanNote(scanner interface{ Scan(...any) error }) (*models.Note, error) {
	var n models.Note
	var content sql.NullString
	var deleted sql.NullBool
	if err := scanner.Scan(&n.ID, &n.NotebookID, &n.Title, &content, &n.CreatedAt, &n.UpdatedAt, &deleted); err != nil {
		return nil, err
	}
	n.Content = content.String
	n.Deleted = deleted.Bool
	return &n, nil
}

func (db *DB) queryNotes(ctx context.Context, op, query string, args ...any) ([]models.Note, error) {
	rows, err := db.conn.QueryContext(ctx, db.rebind(query), args...)
	if err != nil {
		return nil, apperr.Storage(op, err)
	}
	defer rows.Close()

	out := []models.Note{}
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, apperr.Storage(op, err)
		}
		out = append(out, *n)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Storage(op, err)
	}
	return out, nil
}

// CreateNote inserts an active note with empty content.
func (db *DB) CreateNote(ctx context.Context, id, notebookID, title string) (*models.Note, error) {
	now := db.clock.Now()
	_, err := db.conn.ExecContext(ctx, db.rebind(
		`INSERT INTO notes (`+noteCols+`) VALUES (?, ?, ?, ?, ?, ?, ?)`),
		id, notebookID, title, "", now, now, false,
	)
	if err != nil {
		return nil, apperr.Storage("store: insert note", err)
	}
	return &models.Note{
		ID:         id,
		NotebookID: notebookID,
		Title:      title,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

// GetNote returns a note regardless of its deleted flag.
func (db *DB) GetNote(ctx context.Context, id string) (*models.Note, error) {
	row := db.conn.QueryRowContext(ctx, db.rebind(`SELECT `+noteCols+` FROM notes WHERE id = ?`), id)
	n, err := scanNote(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, apperr.Storage("store: get note", err)
	}
	return n, nil
}

// ListActiveNotes returns the notebook's non-deleted notes, most recently
// modified first.
func (db *DB) ListActiveNotes(ctx context.Context, notebookID string) ([]models.Note, error) {
	return db.queryNotes(ctx, "store: list active notes",
		`SELECT `+noteCols+` FROM notes WHERE notebook_id = ? AND deleted = ? ORDER BY updated_at DESC, id`,
		notebookID, false)
}

// ListDeletedNotes returns every soft-deleted note in storage order.
func (db *DB) ListDeletedNotes(ctx context.Context) ([]models.Note, error) {
	return db.queryNotes(ctx, "store: list deleted notes",
		`SELECT `+noteCols+` FROM notes WHERE deleted = ?`, true)
}

// UpdateNoteContent replaces the markdown content and refreshes updated_at.
func (db *DB) UpdateNoteContent(ctx context.Context, id, content string) error {
	return db.touch(ctx, "store: update note content", `content`, content, id)
}

// UpdateNoteTitle replaces the title and refreshes updated_at.
func (db *DB) UpdateNoteTitle(ctx context.Context, id, title string) error {
	return db.touch(ctx, "store: update note title", `title`, title, id)
}

// UpdateNoteNotebook moves the note to another notebook and refreshes updated_at.
func (db *DB) UpdateNoteNotebook(ctx context.Context, id, notebookID string) error {
	return db.touch(ctx, "store: update note notebook", `notebook_id`, notebookID, id)
}

// touch sets one column and updated_at on a single note.
func (db *DB) touch(ctx context.Context, op, column string, value any, id string) error {
	res, err := db.conn.ExecContext(ctx, db.rebind(
		`UPDATE notes SET `+column+` = ?, updated_at = ? WHERE id = ?`),
		value, db.clock.Now(), id,
	)
	if err != nil {
		return apperr.Storage(op, err)
	}
	return affected(res, op)
}

// SoftDeleteNote flags the note as deleted without touching updated_at.
func (db *DB) SoftDeleteNote(ctx context.Context, id string) error {
	return db.setDeleted(ctx, "store: soft delete note", id, true)
}

// RestoreNote clears the deleted flag without touching updated_at. The
// note's notebook may no longer exist.
func (db *DB) RestoreNote(ctx context.Context, id string) error {
	return db.setDeleted(ctx, "store: restore note", id, false)
}

func (db *DB) setDeleted(ctx context.Context, op, id string, deleted bool) error {
	res, err := db.conn.ExecContext(ctx, db.rebind(`UPDATE notes SET deleted = ? WHERE id = ?`), deleted, id)
	if err != nil {
		return apperr.Storage(op, err)
	}
	return affected(res, op)
}

// PurgeNote removes the note row; the schema cascades to its images.
func (db *DB) PurgeNote(ctx context.Context, id string) error {
	res, err := db.conn.ExecContext(ctx, db.rebind(`DELETE FROM notes WHERE id = ?`), id)
	if err != nil {
		return apperr.Storage("store: purge note", err)
	}
	return affected(res, "store: purge note")
}

// PurgeDeletedNotes removes every soft-deleted note and returns how many
// rows went away.
func (db *DB) PurgeDeletedNotes(ctx context.Context) (int64, error) {
	res, err := db.conn.ExecContext(ctx, db.rebind(`DELETE FROM notes WHERE deleted = ?`), true)
	if err != nil {
		return 0, apperr.Storage("store: purge deleted notes", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, apperr.Storage("store: purge deleted notes", err)
	}
	return n, nil
}
