package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/starford/carnet/internal/apperr"
	"github.com/starford/carnet/internal/models"
)

const imageCols = `id, note_id, image_data, filename, mime_type, size, created_at`

func scanImage(scanner interface{ Scan(...any) error }) (*models.Image, error) {
	var img models.Image
	if err := scanner.Scan(&img.ID, &img.NoteID, &img.Data, &img.Filename, &img.MimeType, &img.Size, &img.CreatedAt); err != nil {
		return nil, err
	}
	return &img, nil
}

// SaveImage stores the payload as given; Size is recomputed from Data.
func (db *DB) SaveImage(ctx context.Context, img models.Image) (*models.Image, error) {
	img.Size = int64(len(img.Data))
	img.CreatedAt = db.clock.Now()
	_, err := db.conn.ExecContext(ctx, db.rebind(
		`INSERT INTO images (`+imageCols+`) VALUES (?, ?, ?, ?, ?, ?, ?)`),
		img.ID, img.NoteID, img.Data, img.Filename, img.MimeType, img.Size, img.CreatedAt,
	)
	if err != nil {
		return nil, apperr.Storage("store: insert image", err)
	}
	return &img, nil
}

// GetImage returns the stored image, or apperr.ErrNotFound for an unknown id.
// Images of soft-deleted notes stay retrievable until the note is purged.
func (db *DB) GetImage(ctx context.Context, id string) (*models.Image, error) {
	row := db.conn.QueryRowContext(ctx, db.rebind(`SELECT `+imageCols+` FROM images WHERE id = ?`), id)
	img, err := scanImage(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, apperr.Storage("store: get image", err)
	}
	return img, nil
}

// ListImages returns every image owned by the note, oldest first.
func (db *DB) ListImages(ctx context.Context, noteID string) ([]models.Image, error) {
	rows, err := db.conn.QueryContext(ctx, db.rebind(
		`SELECT `+imageCols+` FROM images WHERE note_id = ? ORDER BY created_at, id`), noteID)
	if err != nil {
		return nil, apperr.Storage("store: list images", err)
	}
	defer rows.Close()

	out := []models.Image{}
	for rows.Next() {
		img, err := scanImage(rows)
		if err != nil {
			return nil, apperr.Storage("store: scan image", err)
		}
		out = append(out, *img)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Storage("store: list images", err)
	}
	return out, nil
}
