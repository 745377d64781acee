// Package handle manages revocable media handles: short-lived URLs the
// browser can load while the owning song still exists. Releasing a handle
// makes its URL stop resolving, which is what keeps transient display
// resources from accumulating across updates and deletions.
package handle

import (
	"sync"

	"github.com/google/uuid"
)

// Handle is one live, revocable reference to an object in blob storage.
type Handle struct {
	Token     string
	ObjectKey string
	Mime      string
}

// URL returns the path the browser loads this handle through.
func (h *Handle) URL() string {
	return "/media/" + h.Token
}

// Registry owns every live handle. Create and Release are balanced by the
// callers (cover cache, playback selector): each created handle is released
// exactly once, either on staleness, owner deletion or replacement.
type Registry struct {
	mu       sync.RWMutex
	live     map[string]*Handle
	created  int64
	released int64
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{live: make(map[string]*Handle)}
}

// Create registers a new handle for an object and returns it.
func (r *Registry) Create(objectKey, mime string) *Handle {
	h := &Handle{
		Token:     uuid.NewString(),
		ObjectKey: objectKey,
		Mime:      mime,
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.live[h.Token] = h
	r.created++
	return h
}

// Release revokes a handle. Releasing nil or an already-released handle is
// a no-op, so owners can release unconditionally on teardown paths.
func (r *Registry) Release(h *Handle) {
	if h == nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.live[h.Token]; !ok {
		return
	}
	delete(r.live, h.Token)
	r.released++
}

// Lookup resolves a token to its live handle, or nil after release.
func (r *Registry) Lookup(token string) *Handle {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.live[token]
}

// LiveCount returns the number of currently live handles.
func (r *Registry) LiveCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.live)
}

// Stats returns total created and released counts since startup.
func (r *Registry) Stats() (created, released int64) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.created, r.released
}
