package collab

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
)

func TestLockAcquire(t *testing.T) {
	m := NewLockManager()

	lock, ok := m.Acquire("a1", "42", "s1", "u1", "Ada")
	if !ok {
		t.Fatal("Acquire() ok = false, want true on free annotation")
	}
	if lock.AnnotationID != "a1" || lock.ArticleID != "42" || lock.SessionID != "s1" {
		t.Errorf("lock = %+v", lock)
	}
	if lock.AcquiredAt.IsZero() {
		t.Error("AcquiredAt not set")
	}
}

func TestLockAcquireDenied(t *testing.T) {
	m := NewLockManager()
	m.Acquire("a1", "42", "s1", "u1", "Ada")

	holder, ok := m.Acquire("a1", "42", "s2", "u2", "Bob")
	if ok {
		t.Fatal("Acquire() ok = true on held annotation, want denial")
	}
	if holder.DisplayName != "Ada" {
		t.Errorf("holder.DisplayName = %q, want Ada", holder.DisplayName)
	}
	if got := m.Holder("a1"); got.SessionID != "s1" {
		t.Errorf("Holder() session = %q, want s1 (no state change on denial)", got.SessionID)
	}
}

func TestLockReacquireBySameHolderDenied(t *testing.T) {
	m := NewLockManager()
	m.Acquire("a1", "42", "s1", "u1", "Ada")

	// Re-acquiring without releasing first is still a denial.
	if _, ok := m.Acquire("a1", "42", "s1", "u1", "Ada"); ok {
		t.Error("re-acquire by holder succeeded, want denial")
	}
}

func TestLockRelease(t *testing.T) {
	m := NewLockManager()
	m.Acquire("a1", "42", "s1", "u1", "Ada")

	lock, ok := m.Release("a1", "s1")
	if !ok {
		t.Fatal("Release() ok = false for holder, want true")
	}
	if lock.ArticleID != "42" {
		t.Errorf("released lock ArticleID = %q, want 42", lock.ArticleID)
	}
	if m.Holder("a1") != nil {
		t.Error("Holder() != nil after release")
	}

	// Annotation is free again.
	if _, ok := m.Acquire("a1", "42", "s2", "u2", "Bob"); !ok {
		t.Error("Acquire() after release failed, want success")
	}
}

func TestLockReleaseNotHolderDenied(t *testing.T) {
	m := NewLockManager()
	m.Acquire("a1", "42", "s1", "u1", "Ada")

	if _, ok := m.Release("a1", "s2"); ok {
		t.Error("Release() by non-holder succeeded, want denial")
	}
	if m.Holder("a1") == nil {
		t.Error("denied release removed the lock")
	}
}

func TestLockReleaseUnknownDenied(t *testing.T) {
	m := NewLockManager()
	if _, ok := m.Release("a404", "s1"); ok {
		t.Error("Release() of unknown annotation succeeded, want denial")
	}
}

func TestReleaseAllHeldBy(t *testing.T) {
	m := NewLockManager()
	m.Acquire("a1", "42", "s1", "u1", "Ada")
	m.Acquire("a2", "42", "s1", "u1", "Ada")
	m.Acquire("a3", "7", "s2", "u2", "Bob")

	released := m.ReleaseAllHeldBy("s1")
	if len(released) != 2 {
		t.Fatalf("released %d locks, want 2", len(released))
	}
	for _, lock := range released {
		if lock.SessionID != "s1" {
			t.Errorf("released lock held by %q, want s1", lock.SessionID)
		}
	}

	// s1's annotations are free; s2's lock survives.
	if _, ok := m.Acquire("a1", "42", "s3", "u3", "Cam"); !ok {
		t.Error("a1 still locked after ReleaseAllHeldBy")
	}
	if _, ok := m.Acquire("a2", "42", "s3", "u3", "Cam"); !ok {
		t.Error("a2 still locked after ReleaseAllHeldBy")
	}
	if m.Holder("a3") == nil {
		t.Error("ReleaseAllHeldBy(s1) released s2's lock")
	}
}

func TestReleaseAllHeldByIdempotent(t *testing.T) {
	m := NewLockManager()
	m.Acquire("a1", "42", "s1", "u1", "Ada")

	if got := len(m.ReleaseAllHeldBy("s1")); got != 1 {
		t.Fatalf("first cleanup released %d, want 1", got)
	}
	if got := len(m.ReleaseAllHeldBy("s1")); got != 0 {
		t.Errorf("second cleanup released %d, want 0", got)
	}
	if got := len(m.ReleaseAllHeldBy("never-seen")); got != 0 {
		t.Errorf("unknown session released %d, want 0", got)
	}
}

func TestLockLen(t *testing.T) {
	m := NewLockManager()
	m.Acquire("a1", "42", "s1", "u1", "Ada")
	m.Acquire("a2", "42", "s1", "u1", "Ada")

	if n := m.Len(); n != 2 {
		t.Errorf("Len() = %d, want 2", n)
	}
	m.ReleaseAllHeldBy("s1")
	if n := m.Len(); n != 0 {
		t.Errorf("Len() = %d after release, want 0", n)
	}
}

// TestLockMutualExclusion races many sessions for the same annotation
// and checks that at most one acquire succeeds per release cycle.
func TestLockMutualExclusion(t *testing.T) {
	m := NewLockManager()
	const contenders = 32

	var acquired atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < contenders; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			sessionID := fmt.Sprintf("s%d", n)
			if _, ok := m.Acquire("a1", "42", sessionID, "u", "User"); ok {
				acquired.Add(1)
			}
		}(i)
	}
	wg.Wait()

	if got := acquired.Load(); got != 1 {
		t.Errorf("%d concurrent acquires succeeded, want exactly 1", got)
	}
	if m.Len() != 1 {
		t.Errorf("Len() = %d, want 1", m.Len())
	}
}

// TestLockContendedCycles interleaves acquire/release cycles across
// goroutines; the invariant is one holder at a time per annotation.
func TestLockContendedCycles(t *testing.T) {
	m := NewLockManager()
	const workers = 8
	const rounds = 200

	var holds atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			sessionID := fmt.Sprintf("s%d", n)
			for r := 0; r < rounds; r++ {
				if _, ok := m.Acquire("a1", "42", sessionID, "u", "User"); ok {
					if holds.Add(1) != 1 {
						t.Error("more than one concurrent holder")
					}
					holds.Add(-1)
					m.Release("a1", sessionID)
				}
			}
		}(i)
	}
	wg.Wait()
}
