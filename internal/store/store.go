package store

import (
	"context"

	"github.com/starford/carnet/internal/models"
)

// NoteStore defines the storage operations consumed by the note service.
// Consumers should depend on this interface rather than the concrete *DB type.
//
// Mutations that match no row return apperr.ErrNotFound; every other failure
// matches apperr.ErrStorage.
type NoteStore interface {
	CreateNotebook(ctx context.Context, id, title string) (*models.Notebook, error)
	DeleteNotebook(ctx context.Context, id string) error
	ListNotebooks(ctx context.Context) ([]models.Notebook, error)
	NotebookExists(ctx context.Context, id string) (bool, error)

	CreateNote(ctx context.Context, id, notebookID, title string) (*models.Note, error)
	GetNote(ctx context.Context, id string) (*models.Note, error)
	ListActiveNotes(ctx context.Context, notebookID string) ([]models.Note, error)
	ListDeletedNotes(ctx context.Context) ([]models.Note, error)
	UpdateNoteContent(ctx context.Context, id, content string) error
	UpdateNoteTitle(ctx context.Context, id, title string) error
	UpdateNoteNotebook(ctx context.Context, id, notebookID string) error
	SoftDeleteNote(ctx context.Context, id string) error
	RestoreNote(ctx context.Context, id string) error
	PurgeNote(ctx context.Context, id string) error
	PurgeDeletedNotes(ctx context.Context) (int64, error)

	SaveImage(ctx context.Context, img models.Image) (*models.Image, error)
	GetImage(ctx context.Context, id string) (*models.Image, error)
	ListImages(ctx context.Context, noteID string) ([]models.Image, error)

	Close() error
}

// Verify *DB satisfies NoteStore at compile time.
var _ NoteStore = (*DB)(nil)
