package resolver

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/starford/carnet/internal/apperr"
	"github.com/starford/carnet/internal/imageref"
)

// State is the resolution state of one image id within a session.
type State int

const (
	Unknown State = iota
	Loading
	Ready
	Failed
)

func (s State) String() string {
	switch s {
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

const (
	loadingSrc = `data:image/svg+xml;charset=utf-8,<svg xmlns='http://www.w3.org/2000/svg' width='50' height='50' viewBox='0 0 24 24' fill='none' stroke='%23aaa' stroke-width='2'><circle cx='12' cy='12' r='10'/><path d='M12 6v6l4 2'/></svg>`
	errorSrc   = `data:image/svg+xml;charset=utf-8,<svg xmlns='http://www.w3.org/2000/svg' width='50' height='50' viewBox='0 0 24 24' fill='none' stroke='%23ff5555' stroke-width='2'><circle cx='12' cy='12' r='10'/><path d='M15 9l-6 6M9 9l6 6'/></svg>`
)

type entry struct {
	state State
	uri   string
	err   error
}

// Session is the resolved-cache of one editing session. Entries are keyed by
// image id, so repeated references share one fetch and one handle.
type Session struct {
	fetcher  *Fetcher
	registry *Registry
	logger   *slog.Logger
	onUpdate func(id string)

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	cache  map[string]*entry
	closed bool
}

// NewSession creates a session. onUpdate, which may be nil, is called from a
// background goroutine once per id whose resolution finished.
func NewSession(f *Fetcher, reg *Registry, logger *slog.Logger, onUpdate func(id string)) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	return &Session{
		fetcher:  f,
		registry: reg,
		logger:   logger,
		onUpdate: onUpdate,
		ctx:      ctx,
		cancel:   cancel,
		cache:    make(map[string]*entry),
	}
}

// Render rewrites the image:// tags of html. Unseen ids are marked loading
// and fetched in the background; until they resolve they show a loading
// placeholder tagged with their id. Failed ids show an error placeholder
// for the rest of the session.
func (s *Session) Render(html string) string {
	return imageref.ReplaceHTML(html, func(id, attrs string) string {
		st, uri := s.lookupOrStart(id)
		switch st {
		case Ready:
			return `<img src="` + uri + `"` + attrs + `>`
		case Failed:
			return `<img src="` + errorSrc + `" data-image-id="` + id + `" class="db-image image-error"` + attrs + `>`
		default:
			return `<img src="` + loadingSrc + `" data-image-id="` + id + `" class="db-image image-loading"` + attrs + `>`
		}
	})
}

func (s *Session) lookupOrStart(id string) (State, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.cache[id]; ok {
		return e.state, e.uri
	}
	if s.closed {
		return Loading, ""
	}
	s.cache[id] = &entry{state: Loading}
	go s.resolve(id)
	return Loading, ""
}

func (s *Session) resolve(id string) {
	img, err := s.fetcher.Fetch(s.ctx, id)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	e := s.cache[id]
	if e == nil || e.state != Loading {
		// Preloaded while the fetch was in flight.
		s.mu.Unlock()
		return
	}
	if err != nil {
		e.state = Failed
		e.err = fmt.Errorf("%w: image %s: %w", apperr.ErrResolution, id, err)
		s.logger.Warn("resolver: image unavailable", slog.String("id", id), slog.String("error", err.Error()))
	} else {
		e.state = Ready
		e.uri = s.registry.Register(img.Data, img.MimeType)
	}
	s.mu.Unlock()

	if s.onUpdate != nil {
		s.onUpdate(id)
	}
}

// Preload caches a payload the caller already holds, such as a fresh upload,
// so it renders without a round trip to the store.
func (s *Session) Preload(id string, data []byte, mime string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if e, ok := s.cache[id]; ok && e.state == Ready {
		return
	}
	s.cache[id] = &entry{state: Ready, uri: s.registry.Register(data, mime)}
}

// State returns the resolution state of id.
func (s *Session) State(id string) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.cache[id]; ok {
		return e.state
	}
	return Unknown
}

// Err returns the resolution failure recorded for id, if any.
func (s *Session) Err(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.cache[id]; ok {
		return e.err
	}
	return nil
}

// Close releases every handle issued for this session and stops further
// update notifications. It is safe to call more than once.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.cancel()
	for _, e := range s.cache {
		if e.uri != "" {
			s.registry.Release(e.uri)
		}
	}
	clear(s.cache)
}
