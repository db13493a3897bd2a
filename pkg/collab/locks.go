package collab

import (
	"hash/fnv"
	"sync"
	"time"
)

// Lock is an exclusive edit claim on one annotation.
type Lock struct {
	AnnotationID string
	ArticleID    string
	SessionID    string
	UserID       string
	DisplayName  string
	AcquiredAt   time.Time
}

// lockShards is the number of mutex shards in a LockManager. Unrelated
// annotations acquire and release independently.
const lockShards = 32

type lockShard struct {
	mu    sync.Mutex
	locks map[string]*Lock // annotationID -> lock
}

type heldShard struct {
	mu   sync.Mutex
	held map[string]map[string]struct{} // sessionID -> set of annotationIDs
}

func lockShardIndex(key string) int {
	h := fnv.New32a()
	h.Write([]byte(key))
	return int(h.Sum32() % lockShards)
}

// LockManager grants at most one exclusive edit lock per annotation.
// Denial is a normal outcome, not an error: callers surface it to the
// requesting client as a notice and never retry automatically.
type LockManager struct {
	locks [lockShards]lockShard
	held  [lockShards]heldShard
}

// NewLockManager creates an empty LockManager.
func NewLockManager() *LockManager {
	m := &LockManager{}
	for i := range m.locks {
		m.locks[i].locks = make(map[string]*Lock)
	}
	for i := range m.held {
		m.held[i].held = make(map[string]map[string]struct{})
	}
	return m
}

// Acquire attempts to take the lock on an annotation. On success it
// returns the new lock and true. If a lock already exists it returns
// the current holder's lock and false with no state change. This holds
// even when the requester is already the holder: re-acquiring requires
// an explicit release first.
func (m *LockManager) Acquire(annotationID, articleID, sessionID, userID, displayName string) (*Lock, bool) {
	ls := &m.locks[lockShardIndex(annotationID)]
	ls.mu.Lock()
	if existing, ok := ls.locks[annotationID]; ok {
		ls.mu.Unlock()
		return existing, false
	}
	lock := &Lock{
		AnnotationID: annotationID,
		ArticleID:    articleID,
		SessionID:    sessionID,
		UserID:       userID,
		DisplayName:  displayName,
		AcquiredAt:   time.Now(),
	}
	ls.locks[annotationID] = lock
	ls.mu.Unlock()

	hs := &m.held[lockShardIndex(sessionID)]
	hs.mu.Lock()
	set, ok := hs.held[sessionID]
	if !ok {
		set = make(map[string]struct{})
		hs.held[sessionID] = set
	}
	set[annotationID] = struct{}{}
	hs.mu.Unlock()

	return lock, true
}

// Release deletes the lock on an annotation if sessionID is the current
// holder, returning the released lock and true. Any other case (no
// lock, or a different holder) is a denial with no state change.
func (m *LockManager) Release(annotationID, sessionID string) (*Lock, bool) {
	ls := &m.locks[lockShardIndex(annotationID)]
	ls.mu.Lock()
	lock, ok := ls.locks[annotationID]
	if !ok || lock.SessionID != sessionID {
		ls.mu.Unlock()
		return nil, false
	}
	delete(ls.locks, annotationID)
	ls.mu.Unlock()

	m.dropHeld(sessionID, annotationID)
	return lock, true
}

// ReleaseAllHeldBy removes every lock held by a session and returns the
// released locks so the caller can announce each one. Unknown sessions
// release nothing; the call is safe to repeat.
func (m *LockManager) ReleaseAllHeldBy(sessionID string) []*Lock {
	hs := &m.held[lockShardIndex(sessionID)]
	hs.mu.Lock()
	set := hs.held[sessionID]
	annotationIDs := make([]string, 0, len(set))
	for id := range set {
		annotationIDs = append(annotationIDs, id)
	}
	delete(hs.held, sessionID)
	hs.mu.Unlock()

	released := make([]*Lock, 0, len(annotationIDs))
	for _, annotationID := range annotationIDs {
		ls := &m.locks[lockShardIndex(annotationID)]
		ls.mu.Lock()
		lock, ok := ls.locks[annotationID]
		if ok && lock.SessionID == sessionID {
			delete(ls.locks, annotationID)
			released = append(released, lock)
		}
		ls.mu.Unlock()
	}
	return released
}

// Holder returns the current lock on an annotation, or nil.
func (m *LockManager) Holder(annotationID string) *Lock {
	ls := &m.locks[lockShardIndex(annotationID)]
	ls.mu.Lock()
	defer ls.mu.Unlock()
	return ls.locks[annotationID]
}

// Len returns the number of locks currently held.
func (m *LockManager) Len() int {
	n := 0
	for i := range m.locks {
		ls := &m.locks[i]
		ls.mu.Lock()
		n += len(ls.locks)
		ls.mu.Unlock()
	}
	return n
}

func (m *LockManager) dropHeld(sessionID, annotationID string) {
	hs := &m.held[lockShardIndex(sessionID)]
	hs.mu.Lock()
	if set, ok := hs.held[sessionID]; ok {
		delete(set, annotationID)
		if len(set) == 0 {
			delete(hs.held, sessionID)
		}
	}
	hs.mu.Unlock()
}
