package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/starford/carnet/internal/apperr"
	"github.com/starford/carnet/internal/models"
)

// CreateNotebook inserts a notebook with the given id.
func (db *DB) CreateNotebook(ctx context.Context, id, title string) (*models.Notebook, error) {
	_, err := db.conn.ExecContext(ctx, db.rebind(`INSERT INTO notebooks (id, title) VALUES (?, ?)`), id, title)
	if err != nil {
		return nil, apperr.Storage("store: insert notebook", err)
	}
	return &models.Notebook{ID: id, Title: title}, nil
}

// DeleteNotebook removes a notebook; the schema cascades to its notes and
// their images.
func (db *DB) DeleteNotebook(ctx context.Context, id string) error {
	res, err := db.conn.ExecContext(ctx, db.rebind(`DELETE FROM notebooks WHERE id = ?`), id)
	if err != nil {
		return apperr.Storage("store: delete notebook", err)
	}
	return affected(res, "store: delete notebook")
}

// ListNotebooks returns every notebook ordered by title.
func (db *DB) ListNotebooks(ctx context.Context) ([]models.Notebook, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT id, title FROM notebooks ORDER BY title, id`)
	if err != nil {
		return nil, apperr.Storage("store: list notebooks", err)
	}
	defer rows.Close()

	out := []models.Notebook{}
	for rows.Next() {
		var nb models.Notebook
		if err := rows.Scan(&nb.ID, &nb.Title); err != nil {
			return nil, apperr.Storage("store: scan notebook", err)
		}
		out = append(out, nb)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Storage("store: list notebooks", err)
	}
	return out, nil
}

// NotebookExists reports whether a notebook with id is stored.
func (db *DB) NotebookExists(ctx context.Context, id string) (bool, error) {
	var one int
	err := db.conn.QueryRowContext(ctx, db.rebind(`SELECT 1 FROM notebooks WHERE id = ?`), id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, apperr.Storage("store: notebook exists", err)
	}
	return true, nil
}

// affected turns a zero-row result into apperr.ErrNotFound.
func affected(res sql.Result, op string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return apperr.Storage(op, err)
	}
	if n == 0 {
		return apperr.ErrNotFound
	}
	return nil
}
