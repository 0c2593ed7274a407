package resolver

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/starford/carnet/internal/apperr"
	"github.com/starford/carnet/internal/models"
	"github.com/starford/carnet/internal/testutil"
)

type fakeSource struct {
	mu     sync.Mutex
	images map[string]*models.Image
	calls  atomic.Int32
	gate   chan struct{}
}

func newFakeSource() *fakeSource {
	return &fakeSource{images: map[string]*models.Image{}}
}

func (f *fakeSource) put(id string, data []byte) {
	f.mu.Lock()
	f.images[id] = &models.Image{ID: id, Data: data, MimeType: "image/png"}
	f.mu.Unlock()
}

func (f *fakeSource) GetImage(_ context.Context, id string) (*models.Image, error) {
	f.calls.Add(1)
	if f.gate != nil {
		<-f.gate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	img, ok := f.images[id]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	return img, nil
}

func waitUpdate(t *testing.T, ch <-chan string) string {
	t.Helper()
	select {
	case id := <-ch:
		return id
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for update")
		return ""
	}
}

func newTestSession(src Source) (*Session, *Registry, chan string) {
	updates := make(chan string, 8)
	reg := NewRegistry(DefaultPrefix)
	s := NewSession(NewFetcher(src), reg, testutil.Logger(), func(id string) { updates <- id })
	return s, reg, updates
}

func TestSession_PlaceholderThenResolved(t *testing.T) {
	src := newFakeSource()
	src.put("abc123", []byte("png-bytes"))
	s, reg, updates := newTestSession(src)
	defer s.Close()

	html := `<p>see <img src="image://abc123" alt="x"></p>`
	first := s.Render(html)
	if !strings.Contains(first, `data-image-id="abc123"`) || !strings.Contains(first, "image-loading") {
		t.Fatalf("first render = %q, want loading placeholder", first)
	}

	if id := waitUpdate(t, updates); id != "abc123" {
		t.Fatalf("update id = %q", id)
	}
	if s.State("abc123") != Ready {
		t.Fatalf("state = %v, want ready", s.State("abc123"))
	}
	second := s.Render(html)
	if !strings.Contains(second, `<img src="`+DefaultPrefix) || !strings.Contains(second, `alt="x"`) {
		t.Errorf("second render = %q, want handle", second)
	}
	if reg.Len() != 1 {
		t.Errorf("registry len = %d, want 1", reg.Len())
	}
}

func TestSession_MissingImageFailsOnce(t *testing.T) {
	src := newFakeSource()
	s, _, updates := newTestSession(src)
	defer s.Close()

	s.Render(`<img src="image://nope" alt="">`)
	waitUpdate(t, updates)
	if s.State("nope") != Failed {
		t.Fatalf("state = %v, want failed", s.State("nope"))
	}
	if err := s.Err("nope"); !errors.Is(err, apperr.ErrResolution) || !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("Err = %v", err)
	}
	out := s.Render(`<img src="image://nope" alt="">`)
	if !strings.Contains(out, "image-error") {
		t.Errorf("render = %q, want error placeholder", out)
	}
	time.Sleep(20 * time.Millisecond)
	if n := src.calls.Load(); n != 1 {
		t.Errorf("fetch calls = %d, want 1 (no retry)", n)
	}
}

func TestSession_DuplicateReferencesFetchOnce(t *testing.T) {
	src := newFakeSource()
	src.put("a", []byte("1"))
	src.gate = make(chan struct{})
	s, _, updates := newTestSession(src)
	defer s.Close()

	html := `<img src="image://a" alt="1"><img src="image://a" alt="2">`
	s.Render(html)
	s.Render(html)
	close(src.gate)
	waitUpdate(t, updates)

	if n := src.calls.Load(); n != 1 {
		t.Errorf("fetch calls = %d, want 1", n)
	}
	out := s.Render(html)
	if strings.Count(out, DefaultPrefix) != 2 {
		t.Errorf("render = %q, want both occurrences resolved", out)
	}
}

func TestFetcher_SharedAcrossSessions(t *testing.T) {
	src := newFakeSource()
	src.put("a", []byte("1"))
	src.gate = make(chan struct{})
	f := NewFetcher(src)

	var wg sync.WaitGroup
	for range 3 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.Fetch(context.Background(), "a"); err != nil {
				t.Errorf("Fetch: %v", err)
			}
		}()
	}
	for src.calls.Load() == 0 {
		time.Sleep(time.Millisecond)
	}
	time.Sleep(50 * time.Millisecond)
	close(src.gate)
	wg.Wait()
	if n := src.calls.Load(); n != 1 {
		t.Errorf("fetch calls = %d, want 1", n)
	}
}

func TestSession_CloseReleasesHandles(t *testing.T) {
	src := newFakeSource()
	src.put("a", []byte("1"))
	s, reg, updates := newTestSession(src)

	s.Render(`<img src="image://a" alt="">`)
	waitUpdate(t, updates)
	s.Preload("b", []byte("2"), "image/jpeg")
	if reg.Len() != 2 {
		t.Fatalf("registry len = %d, want 2", reg.Len())
	}
	s.Close()
	s.Close()
	if reg.Len() != 0 {
		t.Errorf("registry len = %d after Close, want 0", reg.Len())
	}
	if s.State("a") != Unknown {
		t.Errorf("state after Close = %v", s.State("a"))
	}
}

func TestSession_CloseStopsUpdates(t *testing.T) {
	src := newFakeSource()
	src.put("a", []byte("1"))
	src.gate = make(chan struct{})
	s, reg, updates := newTestSession(src)

	s.Render(`<img src="image://a" alt="">`)
	s.Close()
	close(src.gate)

	select {
	case id := <-updates:
		t.Errorf("update %q after Close", id)
	case <-time.After(50 * time.Millisecond):
	}
	if reg.Len() != 0 {
		t.Errorf("registry len = %d, want 0", reg.Len())
	}
}

func TestSession_PreloadRendersWithoutFetch(t *testing.T) {
	src := newFakeSource()
	s, _, _ := newTestSession(src)
	defer s.Close()

	s.Preload("img_1", []byte("x"), "image/png")
	out := s.Render(`<img src="image://img_1" alt="up">`)
	if !strings.Contains(out, DefaultPrefix) {
		t.Errorf("render = %q", out)
	}
	if n := src.calls.Load(); n != 0 {
		t.Errorf("fetch calls = %d, want 0", n)
	}
}

func TestRegistry_ServeHTTP(t *testing.T) {
	reg := NewRegistry("/blobs")
	uri := reg.Register([]byte("GIF89a"), "image/gif")

	rec := httptest.NewRecorder()
	reg.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, uri, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "image/gif" {
		t.Errorf("content-type = %q", ct)
	}
	if rec.Body.String() != "GIF89a" {
		t.Errorf("body = %q", rec.Body.String())
	}

	reg.Release(uri)
	rec = httptest.NewRecorder()
	reg.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, uri, nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("status after release = %d, want 404", rec.Code)
	}
}
