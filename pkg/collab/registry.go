package collab

import "sync"

// Registry tracks all live sessions. It owns session records; every
// other component refers to sessions by ID only.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*Session)}
}

// Add registers a session. Re-registering the same ID keeps the
// existing record and returns it.
func (r *Registry) Add(s *Session) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.sessions[s.ID]; ok {
		return existing
	}
	r.sessions[s.ID] = s
	return s
}

// Get returns the session with the given ID, or nil.
func (r *Registry) Get(id string) *Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sessions[id]
}

// SetIdentity fills the identity fields of a session. An unknown ID is
// a no-op: disconnect and identity races are not faults.
func (r *Registry) SetIdentity(id, userID, displayName, avatar string) {
	r.mu.RLock()
	s := r.sessions[id]
	r.mu.RUnlock()

	if s != nil {
		s.SetIdentity(userID, displayName, avatar)
	}
}

// Remove deletes a session from the registry. Unknown IDs are a no-op
// so disconnect cleanup stays idempotent.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	delete(r.sessions, id)
	r.mu.Unlock()
}

// Count returns the number of registered sessions.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// ForEach calls fn for each session until fn returns false.
func (r *Registry) ForEach(fn func(*Session) bool) {
	r.mu.RLock()
	snapshot := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		snapshot = append(snapshot, s)
	}
	r.mu.RUnlock()

	for _, s := range snapshot {
		if !fn(s) {
			return
		}
	}
}
