package runlock

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestAcquire_BusyThenReclaimed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "UpdateStatus.lock")
	stale := 20 * time.Minute

	first, err := Acquire(path, stale)
	if err != nil {
		t.Fatalf("first Acquire failed: %v", err)
	}

	if _, err := Acquire(path, stale); !errors.Is(err, ErrBusy) {
		t.Fatalf("second Acquire: expected ErrBusy, got %v", err)
	}

	old := time.Now().Add(-stale - time.Minute)
	if err := os.Chtimes(path, old, old); err != nil {
		t.Fatal(err)
	}

	third, err := Acquire(path, stale)
	if err != nil {
		t.Fatalf("third Acquire after staleness failed: %v", err)
	}
	if third.Holder().ID == first.Holder().ID {
		t.Error("reclaimed lock should carry a new run id")
	}

	h, err := ReadHolder(path)
	if err != nil {
		t.Fatalf("ReadHolder failed: %v", err)
	}
	if h.ID != third.Holder().ID || h.PID != os.Getpid() {
		t.Errorf("holder = %+v, want id %s", h, third.Holder().ID)
	}
}

func TestAcquire_FreshLockNotReclaimed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "UpdateStatus.lock")
	if err := os.WriteFile(path, []byte("{}"), 0644); err != nil {
		t.Fatal(err)
	}
	recent := time.Now().Add(-19 * time.Minute)
	os.Chtimes(path, recent, recent)

	if _, err := Acquire(path, 20*time.Minute); !errors.Is(err, ErrBusy) {
		t.Errorf("expected ErrBusy for a 19 minute old lock, got %v", err)
	}
}

func TestAcquire_WithClock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "UpdateStatus.lock")
	if _, err := Acquire(path, time.Hour); err != nil {
		t.Fatal(err)
	}

	future := func() time.Time { return time.Now().Add(2 * time.Hour) }
	if _, err := Acquire(path, time.Hour, WithClock(future)); err != nil {
		t.Errorf("lock should be stale two hours later, got %v", err)
	}
}

func TestRelease(t *testing.T) {
	path := filepath.Join(t.TempDir(), "UpdateStatus.lock")
	l, err := Acquire(path, time.Minute)
	if err != nil {
		t.Fatal(err)
	}

	if err := l.Release(); err != nil {
		t.Fatalf("Release failed: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("lock file still present after Release")
	}
	if err := l.Release(); err != nil {
		t.Errorf("second Release should be a no-op, got %v", err)
	}

	if _, err := Acquire(path, time.Minute); err != nil {
		t.Errorf("Acquire after Release failed: %v", err)
	}
}

func TestTouch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "UpdateStatus.lock")
	l, err := Acquire(path, time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	old := time.Now().Add(-time.Hour)
	os.Chtimes(path, old, old)

	if err := l.Touch(); err != nil {
		t.Fatalf("Touch failed: %v", err)
	}
	info, _ := os.Stat(path)
	if IsStale(info.ModTime(), time.Now(), time.Minute) {
		t.Error("touched lock should be fresh")
	}
}

func TestRelease_KeepsReclaimedLock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "UpdateStatus.lock")
	stale := 20 * time.Minute

	a, err := Acquire(path, stale)
	if err != nil {
		t.Fatal(err)
	}
	old := time.Now().Add(-stale - time.Minute)
	os.Chtimes(path, old, old)

	b, err := Acquire(path, stale)
	if err != nil {
		t.Fatalf("reclaiming stale lock failed: %v", err)
	}

	if err := a.Release(); !errors.Is(err, ErrLost) {
		t.Errorf("Release of a reclaimed lock: expected ErrLost, got %v", err)
	}
	if _, err := Acquire(path, stale); !errors.Is(err, ErrBusy) {
		t.Fatalf("third run must stay out while the reclaiming run holds the lock, got %v", err)
	}
	h, err := ReadHolder(path)
	if err != nil || h.ID != b.Holder().ID {
		t.Errorf("marker holder = %+v, %v; want %s", h, err, b.Holder().ID)
	}

	if err := b.Release(); err != nil {
		t.Errorf("owner Release failed: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("owner Release should remove the marker")
	}
}

func TestTouch_LostLock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "UpdateStatus.lock")
	a, err := Acquire(path, time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	old := time.Now().Add(-time.Hour)
	os.Chtimes(path, old, old)
	if _, err := Acquire(path, time.Minute); err != nil {
		t.Fatal(err)
	}

	if err := a.Touch(); !errors.Is(err, ErrLost) {
		t.Errorf("Touch after takeover: expected ErrLost, got %v", err)
	}

	os.Remove(path)
	if err := a.Touch(); !errors.Is(err, ErrLost) {
		t.Errorf("Touch of a removed marker: expected ErrLost, got %v", err)
	}
	if err := a.Release(); err != nil {
		t.Errorf("Release of a removed marker should be a no-op, got %v", err)
	}
}

func TestIsStale(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name  string
		mtime time.Time
		want  bool
	}{
		{"just created", now, false},
		{"future mtime", now.Add(time.Hour), false},
		{"exactly at threshold", now.Add(-20 * time.Minute), false},
		{"older than threshold", now.Add(-21 * time.Minute), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsStale(tt.mtime, now, 20*time.Minute); got != tt.want {
				t.Errorf("IsStale = %v, want %v", got, tt.want)
			}
		})
	}
}
