package resolver

import (
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// DefaultPrefix is the URL path under which handles are served.
const DefaultPrefix = "/blobs/"

type blob struct {
	data []byte
	mime string
}

// Registry issues ephemeral URIs for in-memory payloads and serves them over
// HTTP until they are released. Nothing in it outlives the process.
type Registry struct {
	prefix string

	mu    sync.RWMutex
	blobs map[string]blob
}

// NewRegistry creates a registry whose URIs start with prefix.
func NewRegistry(prefix string) *Registry {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return &Registry{prefix: prefix, blobs: make(map[string]blob)}
}

// Prefix returns the URL path prefix of issued handles.
func (r *Registry) Prefix() string { return r.prefix }

// Register stores data and returns its URI.
func (r *Registry) Register(data []byte, mime string) string {
	handle := uuid.NewString()
	r.mu.Lock()
	r.blobs[handle] = blob{data: data, mime: mime}
	r.mu.Unlock()
	return r.prefix + handle
}

// Release revokes a URI returned by Register. Unknown URIs are ignored.
func (r *Registry) Release(uri string) {
	handle := strings.TrimPrefix(uri, r.prefix)
	r.mu.Lock()
	delete(r.blobs, handle)
	r.mu.Unlock()
}

// Lookup returns the payload behind a handle.
func (r *Registry) Lookup(handle string) ([]byte, string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.blobs[handle]
	return b.data, b.mime, ok
}

// Len returns the number of live handles.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.blobs)
}

// ServeHTTP serves a live handle. The request path may carry the prefix.
func (r *Registry) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	handle := strings.TrimPrefix(req.URL.Path, r.prefix)
	handle = strings.TrimPrefix(handle, "/")
	data, mime, ok := r.Lookup(handle)
	if !ok {
		http.NotFound(w, req)
		return
	}
	w.Header().Set("Content-Type", mime)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(data)
}
