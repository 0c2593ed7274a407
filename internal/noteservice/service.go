// Package noteservice mediates every mutation of the note store. It assigns
// identifiers, validates input before it reaches storage, turns mutations of
// unknown ids into logged no-ops and logs storage failures before returning
// them to the caller.
package noteservice

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/carnet/internal/apperr"
	"github.com/starford/carnet/internal/ident"
	"github.com/starford/carnet/internal/models"
	"github.com/starford/carnet/internal/store"
)

// DefaultMaxImageBytes is the largest accepted image payload (2 MiB).
const DefaultMaxImageBytes = 2 << 20

// DefaultNotebookTitle names the notebook created for an empty store.
const DefaultNotebookTitle = "Mon Notebook"

// Service coordinates validation, id assignment and storage.
type Service struct {
	store         store.NoteStore
	ids           *ident.Generator
	logger        *slog.Logger
	maxImageBytes int64
}

// Option configures a Service.
type Option func(*Service)

// WithIDGenerator replaces the identifier generator.
func WithIDGenerator(g *ident.Generator) Option {
	return func(s *Service) { s.ids = g }
}

// WithMaxImageBytes overrides the upload size limit.
func WithMaxImageBytes(n int64) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxImageBytes = n
		}
	}
}

// NewService creates a new note service.
func NewService(st store.NoteStore, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		store:         st,
		ids:           ident.NewGenerator(),
		logger:        logger,
		maxImageBytes: DefaultMaxImageBytes,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// MaxImageBytes returns the upload size limit in bytes.
func (s *Service) MaxImageBytes() int64 {
	return s.maxImageBytes
}

// ListNotebooks returns every notebook ordered by title.
func (s *Service) ListNotebooks(ctx context.Context) ([]models.Notebook, error) {
	nbs, err := s.store.ListNotebooks(ctx)
	return nbs, s.fail("list notebooks", err)
}

// CreateNotebook validates the title and inserts a notebook with a fresh id.
func (s *Service) CreateNotebook(ctx context.Context, title string) (*models.Notebook, error) {
	title = strings.TrimSpace(title)
	if err := validation.Validate(title, validation.Required); err != nil {
		return nil, apperr.Validation(validation.Errors{"title": err})
	}
	nb, err := s.store.CreateNotebook(ctx, s.ids.New(ident.Notebook), title)
	if err != nil {
		return nil, s.fail("create notebook", err)
	}
	s.logger.Info("service: notebook created", slog.String("id", nb.ID))
	return nb, nil
}

// EnsureDefaultNotebook creates DefaultNotebookTitle when the store has no
// notebook at all. It reports whether a notebook was created.
func (s *Service) EnsureDefaultNotebook(ctx context.Context) (bool, error) {
	nbs, err := s.ListNotebooks(ctx)
	if err != nil {
		return false, err
	}
	if len(nbs) > 0 {
		return false, nil
	}
	if _, err := s.CreateNotebook(ctx, DefaultNotebookTitle); err != nil {
		return false, err
	}
	return true, nil
}

// DeleteNotebook removes the notebook together with its notes and their
// images, and returns the notebook the caller should show next. When the
// deleted notebook was the active one the fallback is the first remaining
// notebook in title order, or "" when none remain. Deleting an unknown id is
// a no-op.
func (s *Service) DeleteNotebook(ctx context.Context, id, active string) (string, error) {
	if err := s.mutation("delete notebook", id, s.store.DeleteNotebook(ctx, id)); err != nil {
		return active, err
	}
	if active != id {
		return active, nil
	}
	nbs, err := s.ListNotebooks(ctx)
	if err != nil {
		return "", err
	}
	if len(nbs) == 0 {
		return "", nil
	}
	return nbs[0].ID, nil
}

// CreateNote inserts an empty note into an existing notebook.
func (s *Service) CreateNote(ctx context.Context, title, notebookID string) (*models.Note, error) {
	title = strings.TrimSpace(title)
	errs := validation.Errors{
		"title":       validation.Validate(title, validation.Required),
		"notebook_id": validation.Validate(notebookID, validation.Required),
	}
	if err := errs.Filter(); err != nil {
		return nil, apperr.Validation(err)
	}
	if err := s.requireNotebook(ctx, notebookID); err != nil {
		return nil, err
	}
	n, err := s.store.CreateNote(ctx, s.ids.New(ident.Note), notebookID, title)
	if err != nil {
		return nil, s.fail("create note", err)
	}
	s.logger.Info("service: note created", slog.String("id", n.ID), slog.String("notebook_id", notebookID))
	return n, nil
}

// GetNote returns a note, active or deleted.
func (s *Service) GetNote(ctx context.Context, id string) (*models.Note, error) {
	n, err := s.store.GetNote(ctx, id)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, err
	}
	return n, s.fail("get note", err)
}

// ListActiveNotes returns the notebook's non-deleted notes, newest first.
func (s *Service) ListActiveNotes(ctx context.Context, notebookID string) ([]models.Note, error) {
	notes, err := s.store.ListActiveNotes(ctx, notebookID)
	return notes, s.fail("list active notes", err)
}

// ListDeletedNotes returns the trash in no particular order.
func (s *Service) ListDeletedNotes(ctx context.Context) ([]models.Note, error) {
	notes, err := s.store.ListDeletedNotes(ctx)
	return notes, s.fail("list deleted notes", err)
}

// UpdateNoteContent replaces the note's markdown content.
func (s *Service) UpdateNoteContent(ctx context.Context, id, content string) error {
	return s.mutation("update note content", id, s.store.UpdateNoteContent(ctx, id, content))
}

// UpdateNoteTitle replaces the note's title. Blank titles are accepted here
// because the editor commits whatever the title field holds.
func (s *Service) UpdateNoteTitle(ctx context.Context, id, title string) error {
	return s.mutation("update note title", id, s.store.UpdateNoteTitle(ctx, id, title))
}

// UpdateNoteNotebook moves the note into another existing notebook.
func (s *Service) UpdateNoteNotebook(ctx context.Context, id, notebookID string) error {
	if err := s.requireNotebook(ctx, notebookID); err != nil {
		return err
	}
	return s.mutation("update note notebook", id, s.store.UpdateNoteNotebook(ctx, id, notebookID))
}

// SoftDeleteNote moves the note to the trash.
func (s *Service) SoftDeleteNote(ctx context.Context, id string) error {
	return s.mutation("soft delete note", id, s.store.SoftDeleteNote(ctx, id))
}

// RestoreNote takes the note out of the trash. The original notebook is not
// checked; a note restored into a deleted notebook was already cascaded away.
func (s *Service) RestoreNote(ctx context.Context, id string) error {
	return s.mutation("restore note", id, s.store.RestoreNote(ctx, id))
}

// PurgeNote permanently removes the note and its images, whether or not it
// was in the trash first.
func (s *Service) PurgeNote(ctx context.Context, id string) error {
	return s.mutation("purge note", id, s.store.PurgeNote(ctx, id))
}

// EmptyTrash purges every soft-deleted note and returns how many went away.
func (s *Service) EmptyTrash(ctx context.Context) (int64, error) {
	n, err := s.store.PurgeDeletedNotes(ctx)
	if err != nil {
		return 0, s.fail("empty trash", err)
	}
	s.logger.Info("service: trash emptied", slog.Int64("purged", n))
	return n, nil
}

func (s *Service) requireNotebook(ctx context.Context, notebookID string) error {
	ok, err := s.store.NotebookExists(ctx, notebookID)
	if err != nil {
		return s.fail("check notebook", err)
	}
	if !ok {
		return apperr.Validation(validation.Errors{"notebook_id": errors.New("unknown notebook")})
	}
	return nil
}

// mutation applies the no-op policy: ErrNotFound is logged and dropped,
// anything else goes through fail.
func (s *Service) mutation(op, id string, err error) error {
	if errors.Is(err, apperr.ErrNotFound) {
		s.logger.Debug("service: "+op+": no such id, nothing to do", slog.String("id", id))
		return nil
	}
	return s.fail(op, err)
}

// fail logs a storage failure with its operation context and returns it.
func (s *Service) fail(op string, err error) error {
	if err == nil {
		return nil
	}
	s.logger.Error("service: "+op+" failed", slog.String("error", err.Error()))
	return err
}
