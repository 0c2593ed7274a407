// Package appstate is the single in-memory projection of the store that the
// desktop shell renders from. Every change goes through an action, every
// action goes through the note service, and subscribers receive an immutable
// Snapshot after each action.
package appstate

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"

	"github.com/starford/carnet/internal/apperr"
	"github.com/starford/carnet/internal/editor"
	"github.com/starford/carnet/internal/models"
	"github.com/starford/carnet/internal/noteservice"
)

// Service is the note service surface the state drives.
type Service interface {
	EnsureDefaultNotebook(ctx context.Context) (bool, error)
	ListNotebooks(ctx context.Context) ([]models.Notebook, error)
	CreateNotebook(ctx context.Context, title string) (*models.Notebook, error)
	DeleteNotebook(ctx context.Context, id, active string) (string, error)
	ListActiveNotes(ctx context.Context, notebookID string) ([]models.Note, error)
	ListDeletedNotes(ctx context.Context) ([]models.Note, error)
	GetNote(ctx context.Context, id string) (*models.Note, error)
	CreateNote(ctx context.Context, title, notebookID string) (*models.Note, error)
	UpdateNoteNotebook(ctx context.Context, id, notebookID string) error
	SoftDeleteNote(ctx context.Context, id string) error
	RestoreNote(ctx context.Context, id string) error
	PurgeNote(ctx context.Context, id string) error
	EmptyTrash(ctx context.Context) (int64, error)
}

// Opener starts an editor session for a note.
type Opener interface {
	Open(ctx context.Context, noteID string, opts ...editor.Option) (*editor.Session, error)
}

// SortKey names the ordering applied to the loaded note list.
type SortKey string

const (
	SortStore   SortKey = ""
	SortTitle   SortKey = "title"
	SortCreated SortKey = "created_at"
	SortUpdated SortKey = "updated_at"
)

// Sort describes the current ordering of the visible notes.
type Sort struct {
	Key       SortKey `json:"key"`
	Ascending bool    `json:"ascending"`
}

// Snapshot is an immutable view of the application state.
type Snapshot struct {
	Notebooks        []models.Notebook `json:"notebooks"`
	Notes            []models.Note     `json:"notes"`
	Trash            []models.Note     `json:"trash"`
	SelectedNotebook string            `json:"selected_notebook"`
	SelectedNote     string            `json:"selected_note"`
	Filter           string            `json:"filter"`
	Sort             Sort              `json:"sort"`
	Error            string            `json:"error,omitempty"`
}

// State owns the projection. Actions are serialized; subscribers are called
// outside the lock, in subscription order.
type State struct {
	svc    Service
	opener Opener
	logger *slog.Logger

	onPreview func(noteID, html string)
	onError   func(error)

	mu        sync.Mutex
	notebooks []models.Notebook
	loaded    []models.Note
	trash     []models.Note
	selNB     string
	selNote   string
	filter    string
	sort      Sort
	titleAsc  bool
	dateNew   bool
	lastErr   string
	session   *editor.Session

	subMu  sync.Mutex
	subs   map[int]func(Snapshot)
	nextID int
}

// Option configures a State.
type Option func(*State)

// WithPreviewSink receives every re-rendered preview of the open note.
func WithPreviewSink(fn func(noteID, html string)) Option {
	return func(s *State) { s.onPreview = fn }
}

// WithErrorSink receives background failures such as failed autosaves.
func WithErrorSink(fn func(error)) Option {
	return func(s *State) { s.onError = fn }
}

// New creates an empty state. Call Load to populate it.
func New(svc Service, opener Opener, logger *slog.Logger, opts ...Option) *State {
	s := &State{
		svc:    svc,
		opener: opener,
		logger: logger,
		subs:   make(map[int]func(Snapshot)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Subscribe registers fn for snapshots and returns a function that removes it.
func (s *State) Subscribe(fn func(Snapshot)) func() {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	return func() {
		s.subMu.Lock()
		delete(s.subs, id)
		s.subMu.Unlock()
	}
}

// Snapshot returns the current state.
func (s *State) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Session returns the editor session of the selected note, or nil.
func (s *State) Session() *editor.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session
}

func (s *State) snapshotLocked() Snapshot {
	return Snapshot{
		Notebooks:        slices.Clone(s.notebooks),
		Notes:            s.visibleLocked(),
		Trash:            slices.Clone(s.trash),
		SelectedNotebook: s.selNB,
		SelectedNote:     s.selNote,
		Filter:           s.filter,
		Sort:             s.sort,
		Error:            s.lastErr,
	}
}

func (s *State) visibleLocked() []models.Note {
	return noteservice.FilterByTitle(s.loaded, s.filter)
}

// do runs an action under the state lock and publishes the resulting
// snapshot. A failed action leaves the projection untouched apart from the
// error banner.
func (s *State) do(name string, action func() error) error {
	s.mu.Lock()
	err := action()
	if err != nil {
		s.lastErr = err.Error()
		if !errors.Is(err, apperr.ErrValidation) {
			s.logger.Error("appstate: action failed", slog.String("action", name), slog.String("error", err.Error()))
		}
	} else {
		s.lastErr = ""
	}
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.publish(snap)
	return err
}

func (s *State) publish(snap Snapshot) {
	s.subMu.Lock()
	ids := make([]int, 0, len(s.subs))
	for id := range s.subs {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	fns := make([]func(Snapshot), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, s.subs[id])
	}
	s.subMu.Unlock()

	for _, fn := range fns {
		fn(snap)
	}
}

// Close flushes pending autosaves and ends the open editor session.
func (s *State) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session != nil {
		s.session.Flush()
		s.session.Close()
		s.session = nil
	}
}
