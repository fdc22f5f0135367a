package server

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sells-group/sportcar/internal/session"
)

type entry struct {
	ctl      *session.Controller
	owner    string // subject of the authenticated owner, empty while anonymous
	lastSeen time.Time
	watchers int // open event streams
}

// Registry holds the live sessions by id.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*entry
	now      func() time.Time
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*entry), now: time.Now}
}

// Add registers ctl and returns its new session id.
func (r *Registry) Add(ctl *session.Controller, owner string) string {
	id := uuid.NewString()
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[id] = &entry{ctl: ctl, owner: owner, lastSeen: r.now()}
	return id
}

// Get returns the session for id and marks it as used.
func (r *Registry) Get(id string) (*session.Controller, string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[id]
	if !ok {
		return nil, "", false
	}
	e.lastSeen = r.now()
	return e.ctl, e.owner, true
}

// Watch pins the session while an event stream is attached. The returned
// release marks the session as used and unpins it.
func (r *Registry) Watch(id string) (release func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[id]
	if !ok {
		return func() {}
	}
	e.watchers++
	var once sync.Once
	return func() {
		once.Do(func() {
			r.mu.Lock()
			defer r.mu.Unlock()
			e.watchers--
			e.lastSeen = r.now()
		})
	}
}

// SetOwner records the authenticated owner of a session.
func (r *Registry) SetOwner(id, owner string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.sessions[id]; ok {
		e.owner = owner
	}
}

// Remove drops a session.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Sweep removes sessions idle for longer than maxIdle and returns how many
// were removed. Watched sessions are kept.
func (r *Registry) Sweep(maxIdle time.Duration) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	cutoff := r.now().Add(-maxIdle)
	n := 0
	for id, e := range r.sessions {
		if e.watchers == 0 && e.lastSeen.Before(cutoff) {
			delete(r.sessions, id)
			n++
		}
	}
	return n
}
