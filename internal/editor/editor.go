// Package editor holds the in-memory state of one open note: the content and
// title buffers, their autosave timers and the image resolved-cache used by
// the live preview.
package editor

import (
	"context"
	"log/slog"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/starford/carnet/internal/debounce"
	"github.com/starford/carnet/internal/imageref"
	"github.com/starford/carnet/internal/markdown"
	"github.com/starford/carnet/internal/models"
	"github.com/starford/carnet/internal/resolver"
)

// DefaultDelay is the autosave quiet window.
const DefaultDelay = time.Second

// Service is the subset of the note service an editor needs.
type Service interface {
	GetNote(ctx context.Context, id string) (*models.Note, error)
	UpdateNoteContent(ctx context.Context, id, content string) error
	UpdateNoteTitle(ctx context.Context, id, title string) error
	SaveImage(ctx context.Context, noteID string, data []byte, filename, mimeType string) (string, error)
}

// edit is one pending autosave. It carries its note id so a save that fires
// after the session moved on still lands on the right note.
type edit struct {
	noteID string
	value  string
}

// Session is an open editor for a single note.
type Session struct {
	noteID    string
	svc       Service
	conv      markdown.Converter
	images    *resolver.Session
	logger    *slog.Logger
	onPreview func(html string)
	onError   func(error)

	content *debounce.Debouncer[edit]
	title   *debounce.Debouncer[edit]

	mu     sync.Mutex
	body   string
	head   string
	closed bool
}

// Option configures a Session.
type Option func(*options)

type options struct {
	delay     time.Duration
	onPreview func(html string)
	onError   func(error)
}

// WithDelay overrides the autosave quiet window.
func WithDelay(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.delay = d
		}
	}
}

// WithPreviewListener registers fn to receive a fresh preview every time an
// image of the note finishes resolving.
func WithPreviewListener(fn func(html string)) Option {
	return func(o *options) { o.onPreview = fn }
}

// WithErrorListener registers fn to receive autosave failures.
func WithErrorListener(fn func(error)) Option {
	return func(o *options) { o.onError = fn }
}

// Factory opens editor sessions that share a converter, an image fetcher and
// a handle registry.
type Factory struct {
	svc      Service
	conv     markdown.Converter
	fetcher  *resolver.Fetcher
	registry *resolver.Registry
	logger   *slog.Logger
	defaults []Option
}

// NewFactory creates a Factory. defaults apply to every session before the
// per-call options.
func NewFactory(svc Service, conv markdown.Converter, fetcher *resolver.Fetcher, reg *resolver.Registry, logger *slog.Logger, defaults ...Option) *Factory {
	return &Factory{svc: svc, conv: conv, fetcher: fetcher, registry: reg, logger: logger, defaults: defaults}
}

// Open loads the note and starts a session for it.
func (f *Factory) Open(ctx context.Context, noteID string, opts ...Option) (*Session, error) {
	n, err := f.svc.GetNote(ctx, noteID)
	if err != nil {
		return nil, err
	}
	o := options{delay: DefaultDelay}
	for _, opt := range append(append([]Option(nil), f.defaults...), opts...) {
		opt(&o)
	}

	s := &Session{
		noteID:    n.ID,
		svc:       f.svc,
		conv:      f.conv,
		logger:    f.logger.With(slog.String("note_id", n.ID)),
		onPreview: o.onPreview,
		onError:   o.onError,
		body:      n.Content,
		head:      n.Title,
	}
	s.images = resolver.NewSession(f.fetcher, f.registry, f.logger, s.imageResolved)
	s.content = debounce.New(o.delay, func(e edit) {
		s.commit("content", e, f.svc.UpdateNoteContent)
	})
	s.title = debounce.New(o.delay, func(e edit) {
		s.commit("title", e, f.svc.UpdateNoteTitle)
	})
	return s, nil
}

// NoteID returns the id of the note being edited.
func (s *Session) NoteID() string { return s.noteID }

// Content returns the current content buffer.
func (s *Session) Content() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.body
}

// Title returns the current title buffer.
func (s *Session) Title() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.head
}

// SetContent replaces the content buffer and schedules an autosave.
func (s *Session) SetContent(content string) {
	s.mu.Lock()
	s.body = content
	s.mu.Unlock()
	s.content.Trigger(edit{noteID: s.noteID, value: content})
}

// SetTitle replaces the title buffer and schedules an autosave. The title
// timer is independent of the content timer.
func (s *Session) SetTitle(title string) {
	s.mu.Lock()
	s.head = title
	s.mu.Unlock()
	s.title.Trigger(edit{noteID: s.noteID, value: title})
}

// Preview renders the content buffer. Images that are not resolved yet show
// a placeholder; their resolution is started in the background.
func (s *Session) Preview() string {
	html := markdown.Render(s.conv, s.Content())
	return s.images.Render(html)
}

// InsertImage stores an uploaded image, inserts a reference to it at byte
// offset at (or at the end when at is out of range), caches the bytes for
// the preview and saves the new content immediately. Validation failures
// leave the content untouched.
func (s *Session) InsertImage(ctx context.Context, data []byte, filename, mimeType string, at int) (string, error) {
	id, err := s.svc.SaveImage(ctx, s.noteID, data, filename, mimeType)
	if err != nil {
		return "", err
	}
	s.images.Preload(id, data, mimeType)

	ref := imageref.Reference(filename, id)
	s.mu.Lock()
	s.body = insertAt(s.body, ref, at)
	content := s.body
	s.mu.Unlock()

	if err := s.saveContentNow(ctx, content); err != nil {
		return id, err
	}
	return id, nil
}

// SaveContent replaces the content buffer and writes it immediately,
// dropping any pending content autosave.
func (s *Session) SaveContent(ctx context.Context, content string) error {
	s.mu.Lock()
	s.body = content
	s.mu.Unlock()
	return s.saveContentNow(ctx, content)
}

// SaveTitle replaces the title buffer and writes it immediately, dropping
// any pending title autosave.
func (s *Session) SaveTitle(ctx context.Context, title string) error {
	s.mu.Lock()
	s.head = title
	s.mu.Unlock()
	s.title.Stop()
	return s.svc.UpdateNoteTitle(ctx, s.noteID, title)
}

// saveContentNow supersedes whatever the content timer was holding.
func (s *Session) saveContentNow(ctx context.Context, content string) error {
	s.content.Stop()
	return s.svc.UpdateNoteContent(ctx, s.noteID, content)
}

// Flush commits pending autosaves now.
func (s *Session) Flush() {
	s.content.Flush()
	s.title.Flush()
}

// Pending reports whether an autosave is waiting to fire.
func (s *Session) Pending() bool {
	return s.content.Pending() || s.title.Pending()
}

// Close ends the session. Resolved image handles are released and no more
// previews are delivered. Pending autosaves are left to fire on their own.
func (s *Session) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.images.Close()
}

func (s *Session) commit(field string, e edit, save func(context.Context, string, string) error) {
	if err := save(context.Background(), e.noteID, e.value); err != nil {
		s.logger.Error("editor: autosave failed", slog.String("field", field), slog.String("error", err.Error()))
		if s.onError != nil {
			s.onError(err)
		}
	}
}

func (s *Session) imageResolved(string) {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed || s.onPreview == nil {
		return
	}
	s.onPreview(s.Preview())
}

func insertAt(content, ref string, at int) string {
	if at < 0 || at > len(content) {
		at = len(content)
	}
	for at < len(content) && !utf8.RuneStart(content[at]) {
		at++
	}
	return content[:at] + ref + content[at:]
}
