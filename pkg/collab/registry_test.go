package collab

import (
	"errors"
	"log/slog"
	"os"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestSession(t *testing.T) *Session {
	t.Helper()
	return newSession(nil, DefaultConfig(), testLogger())
}

func TestRegistryAdd(t *testing.T) {
	r := NewRegistry()
	s := newTestSession(t)

	r.Add(s)
	if got := r.Get(s.ID); got != s {
		t.Errorf("Get() = %v, want the registered session", got)
	}
	if r.Count() != 1 {
		t.Errorf("Count() = %d, want 1", r.Count())
	}
}

func TestRegistryAddIdempotent(t *testing.T) {
	r := NewRegistry()
	s := newTestSession(t)

	first := r.Add(s)
	second := r.Add(s)
	if first != second {
		t.Error("re-registering should return the existing record")
	}
	if r.Count() != 1 {
		t.Errorf("Count() = %d, want 1", r.Count())
	}
}

func TestRegistryGetNotFound(t *testing.T) {
	r := NewRegistry()
	if got := r.Get("nonexistent"); got != nil {
		t.Errorf("Get() = %v, want nil", got)
	}
}

func TestRegistrySetIdentity(t *testing.T) {
	r := NewRegistry()
	s := newTestSession(t)
	r.Add(s)

	r.SetIdentity(s.ID, "u1", "Ada", "avatar.png")

	user, ok := s.Identity()
	if !ok {
		t.Fatal("Identity() ok = false, want true after SetIdentity")
	}
	if user.UserID != "u1" || user.DisplayName != "Ada" || user.Avatar != "avatar.png" {
		t.Errorf("Identity() = %+v", user)
	}
}

func TestRegistrySetIdentityLastWriteWins(t *testing.T) {
	r := NewRegistry()
	s := newTestSession(t)
	r.Add(s)

	r.SetIdentity(s.ID, "u1", "Ada", "")
	r.SetIdentity(s.ID, "u1", "Ada Lovelace", "new.png")

	user, _ := s.Identity()
	if user.DisplayName != "Ada Lovelace" || user.Avatar != "new.png" {
		t.Errorf("Identity() = %+v, want last write", user)
	}
}

func TestRegistrySetIdentityUnknownIsNoop(t *testing.T) {
	r := NewRegistry()
	// Must not panic or create a phantom session.
	r.SetIdentity("nonexistent", "u1", "Ada", "")
	if r.Count() != 0 {
		t.Errorf("Count() = %d, want 0", r.Count())
	}
}

func TestRegistryRemoveIdempotent(t *testing.T) {
	r := NewRegistry()
	s := newTestSession(t)
	r.Add(s)

	r.Remove(s.ID)
	r.Remove(s.ID) // second removal is a no-op, not a fault
	if r.Count() != 0 {
		t.Errorf("Count() = %d, want 0", r.Count())
	}
}

func TestRegistryForEach(t *testing.T) {
	r := NewRegistry()
	r.Add(newTestSession(t))
	r.Add(newTestSession(t))

	count := 0
	r.ForEach(func(*Session) bool {
		count++
		return true
	})
	if count != 2 {
		t.Errorf("ForEach visited %d sessions, want 2", count)
	}

	count = 0
	r.ForEach(func(*Session) bool {
		count++
		return false
	})
	if count != 1 {
		t.Errorf("ForEach with early exit visited %d sessions, want 1", count)
	}
}

func TestSessionIdentityAnonymous(t *testing.T) {
	s := newTestSession(t)
	if _, ok := s.Identity(); ok {
		t.Error("Identity() ok = true for anonymous session, want false")
	}
}

func TestSessionCloseIdempotent(t *testing.T) {
	s := newTestSession(t)
	s.Close()
	s.Close() // must be safe: transports report disconnect more than once
	if !s.IsClosed() {
		t.Error("IsClosed() = false after Close")
	}
}

func TestSessionEnqueueAfterClose(t *testing.T) {
	s := newTestSession(t)
	s.Close()
	if err := s.enqueue([]byte("x")); !errors.Is(err, ErrSessionClosed) {
		t.Errorf("enqueue() error = %v, want ErrSessionClosed", err)
	}
}

func TestSessionEnqueueFullQueue(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SendQueueSize = 1
	s := newSession(nil, cfg, testLogger())

	if err := s.enqueue([]byte("first")); err != nil {
		t.Fatalf("first enqueue error = %v", err)
	}
	if err := s.enqueue([]byte("second")); !errors.Is(err, ErrSendQueueFull) {
		t.Errorf("enqueue() error = %v, want ErrSendQueueFull", err)
	}
}
