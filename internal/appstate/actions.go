package appstate

import (
	"context"
	"errors"
	"fmt"

	"github.com/starford/carnet/internal/apperr"
	"github.com/starford/carnet/internal/editor"
	"github.com/starford/carnet/internal/models"
	"github.com/starford/carnet/internal/noteservice"
)

// Load creates the default notebook on an empty store, reads the notebooks
// and the trash, and selects the first notebook when nothing is selected.
func (s *State) Load(ctx context.Context) error {
	return s.do("load", func() error {
		if _, err := s.svc.EnsureDefaultNotebook(ctx); err != nil {
			return err
		}
		nbs, err := s.svc.ListNotebooks(ctx)
		if err != nil {
			return err
		}
		trash, err := s.svc.ListDeletedNotes(ctx)
		if err != nil {
			return err
		}
		selected := s.selNB
		if !containsNotebook(nbs, selected) {
			selected = ""
			if len(nbs) > 0 {
				selected = nbs[0].ID
			}
		}
		notes, err := s.notesFor(ctx, selected)
		if err != nil {
			return err
		}
		s.notebooks, s.trash = nbs, trash
		if selected != s.selNB {
			s.closeSessionLocked()
		}
		s.selNB = selected
		s.setNotesLocked(notes)
		if s.selNote != "" && !containsNote(s.loaded, s.selNote) {
			return s.dropStaleSessionLocked(ctx)
		}
		return nil
	})
}

// AddNotebook creates a notebook and selects it.
func (s *State) AddNotebook(ctx context.Context, title string) (*models.Notebook, error) {
	var nb *models.Notebook
	err := s.do("add notebook", func() error {
		var err error
		if nb, err = s.svc.CreateNotebook(ctx, title); err != nil {
			return err
		}
		nbs, err := s.svc.ListNotebooks(ctx)
		if err != nil {
			return err
		}
		s.notebooks = nbs
		return s.selectNotebookLocked(ctx, nb.ID)
	})
	return nb, err
}

// DeleteNotebook removes a notebook with its notes. When it was selected the
// first remaining notebook in title order becomes selected.
func (s *State) DeleteNotebook(ctx context.Context, id string) error {
	return s.do("delete notebook", func() error {
		next, err := s.svc.DeleteNotebook(ctx, id, s.selNB)
		if err != nil {
			return err
		}
		nbs, err := s.svc.ListNotebooks(ctx)
		if err != nil {
			return err
		}
		trash, err := s.svc.ListDeletedNotes(ctx)
		if err != nil {
			return err
		}
		s.notebooks, s.trash = nbs, trash
		if next != s.selNB {
			return s.selectNotebookLocked(ctx, next)
		}
		return nil
	})
}

// SelectNotebook loads the notebook's active notes and clears the note
// selection.
func (s *State) SelectNotebook(ctx context.Context, id string) error {
	return s.do("select notebook", func() error {
		if id != "" && !containsNotebook(s.notebooks, id) {
			return apperr.Validation(fmt.Errorf("unknown notebook %q", id))
		}
		return s.selectNotebookLocked(ctx, id)
	})
}

func (s *State) selectNotebookLocked(ctx context.Context, id string) error {
	notes, err := s.notesFor(ctx, id)
	if err != nil {
		return err
	}
	s.closeSessionLocked()
	s.selNB = id
	s.setNotesLocked(notes)
	return nil
}

// AddNote creates a note in the selected notebook and opens it.
func (s *State) AddNote(ctx context.Context, title string) (*models.Note, error) {
	var n *models.Note
	err := s.do("add note", func() error {
		if s.selNB == "" {
			return apperr.Validation(fmt.Errorf("no notebook selected"))
		}
		var err error
		if n, err = s.svc.CreateNote(ctx, title, s.selNB); err != nil {
			return err
		}
		if err := s.reloadNotesLocked(ctx); err != nil {
			return err
		}
		return s.openLocked(ctx, n.ID)
	})
	return n, err
}

// SelectNote opens an editor session for the note. The session of the
// previously selected note is closed; its pending autosaves still fire.
func (s *State) SelectNote(ctx context.Context, id string) error {
	return s.do("select note", func() error {
		if id == "" {
			s.closeSessionLocked()
			return nil
		}
		return s.openLocked(ctx, id)
	})
}

func (s *State) openLocked(ctx context.Context, id string) error {
	if s.selNote == id && s.session != nil {
		return nil
	}
	var sess *editor.Session
	if s.opener != nil {
		opts := []editor.Option{editor.WithErrorListener(s.backgroundError)}
		if s.onPreview != nil {
			opts = append(opts, editor.WithPreviewListener(func(html string) { s.onPreview(id, html) }))
		}
		var err error
		if sess, err = s.opener.Open(ctx, id, opts...); err != nil {
			return err
		}
	}
	s.closeSessionLocked()
	s.selNote = id
	s.session = sess
	return nil
}

func (s *State) closeSessionLocked() {
	if s.session != nil {
		s.session.Close()
		s.session = nil
	}
	s.selNote = ""
}

// dropStaleSessionLocked closes the open session when its note was purged or
// trashed. A note opened from outside the visible list stays open.
func (s *State) dropStaleSessionLocked(ctx context.Context) error {
	if s.selNote == "" {
		return nil
	}
	n, err := s.svc.GetNote(ctx, s.selNote)
	if errors.Is(err, apperr.ErrNotFound) || (err == nil && n.Deleted) {
		s.closeSessionLocked()
		return nil
	}
	return err
}

func (s *State) backgroundError(err error) {
	if s.onError != nil {
		s.onError(err)
	}
}

// DeleteNote moves a note to the trash. When it was the open note the first
// remaining note of the list is opened instead.
func (s *State) DeleteNote(ctx context.Context, id string) error {
	return s.do("delete note", func() error {
		if err := s.svc.SoftDeleteNote(ctx, id); err != nil {
			return err
		}
		if err := s.reloadNotesLocked(ctx); err != nil {
			return err
		}
		if err := s.reloadTrashLocked(ctx); err != nil {
			return err
		}
		if s.selNote != id {
			return nil
		}
		s.closeSessionLocked()
		if visible := s.visibleLocked(); len(visible) > 0 {
			return s.openLocked(ctx, visible[0].ID)
		}
		return nil
	})
}

// MoveNote reassigns a note to another notebook and reloads the current
// list from the store.
func (s *State) MoveNote(ctx context.Context, id, notebookID string) error {
	return s.do("move note", func() error {
		if err := s.svc.UpdateNoteNotebook(ctx, id, notebookID); err != nil {
			return err
		}
		if err := s.reloadNotesLocked(ctx); err != nil {
			return err
		}
		if s.selNote == id && !containsNote(s.loaded, id) {
			s.closeSessionLocked()
		}
		return nil
	})
}

// SortByTitle orders the loaded notes by title, toggling the direction on
// every call. The first call sorts ascending.
func (s *State) SortByTitle() {
	_ = s.do("sort by title", func() error {
		s.titleAsc = !s.titleAsc
		s.sort = Sort{Key: SortTitle, Ascending: s.titleAsc}
		s.loaded = noteservice.SortByTitle(s.loaded, s.titleAsc)
		return nil
	})
}

// SortByDate orders the loaded notes by the given timestamp, toggling the
// direction on every call. The first call puts the newest note first.
func (s *State) SortByDate(field models.DateField) {
	_ = s.do("sort by date", func() error {
		s.dateNew = !s.dateNew
		key := SortUpdated
		if field == models.CreatedAt {
			key = SortCreated
		}
		s.sort = Sort{Key: key, Ascending: !s.dateNew}
		s.loaded = noteservice.SortByDate(s.loaded, field, s.dateNew)
		return nil
	})
}

// FilterByTitle narrows the visible notes to titles containing query.
func (s *State) FilterByTitle(query string) {
	_ = s.do("filter", func() error {
		s.filter = query
		return nil
	})
}

// Trash reloads the list of soft-deleted notes.
func (s *State) Trash(ctx context.Context) error {
	return s.do("trash", func() error { return s.reloadTrashLocked(ctx) })
}

// Restore takes a note out of the trash.
func (s *State) Restore(ctx context.Context, id string) error {
	return s.do("restore", func() error {
		if err := s.svc.RestoreNote(ctx, id); err != nil {
			return err
		}
		if err := s.reloadTrashLocked(ctx); err != nil {
			return err
		}
		return s.reloadNotesLocked(ctx)
	})
}

// Purge permanently removes a note and its images.
func (s *State) Purge(ctx context.Context, id string) error {
	return s.do("purge", func() error {
		if err := s.svc.PurgeNote(ctx, id); err != nil {
			return err
		}
		if s.selNote == id {
			s.closeSessionLocked()
		}
		if err := s.reloadTrashLocked(ctx); err != nil {
			return err
		}
		return s.reloadNotesLocked(ctx)
	})
}

// EmptyTrash purges every note in the trash and returns how many went away.
func (s *State) EmptyTrash(ctx context.Context) (int64, error) {
	var purged int64
	err := s.do("empty trash", func() error {
		var err error
		if purged, err = s.svc.EmptyTrash(ctx); err != nil {
			return err
		}
		s.trash = nil
		return s.dropStaleSessionLocked(ctx)
	})
	return purged, err
}

func (s *State) notesFor(ctx context.Context, notebookID string) ([]models.Note, error) {
	if notebookID == "" {
		return nil, nil
	}
	return s.svc.ListActiveNotes(ctx, notebookID)
}

func (s *State) reloadNotesLocked(ctx context.Context) error {
	notes, err := s.notesFor(ctx, s.selNB)
	if err != nil {
		return err
	}
	s.setNotesLocked(notes)
	return nil
}

func (s *State) reloadTrashLocked(ctx context.Context) error {
	trash, err := s.svc.ListDeletedNotes(ctx)
	if err != nil {
		return err
	}
	s.trash = trash
	return nil
}

// setNotesLocked replaces the loaded list and re-applies the current sort
// without toggling its direction.
func (s *State) setNotesLocked(notes []models.Note) {
	switch s.sort.Key {
	case SortTitle:
		notes = noteservice.SortByTitle(notes, s.sort.Ascending)
	case SortCreated:
		notes = noteservice.SortByDate(notes, models.CreatedAt, !s.sort.Ascending)
	case SortUpdated:
		notes = noteservice.SortByDate(notes, models.UpdatedAt, !s.sort.Ascending)
	}
	s.loaded = notes
}

func containsNotebook(nbs []models.Notebook, id string) bool {
	for _, nb := range nbs {
		if nb.ID == id {
			return true
		}
	}
	return false
}

func containsNote(notes []models.Note, id string) bool {
	for _, n := range notes {
		if n.ID == id {
			return true
		}
	}
	return false
}
