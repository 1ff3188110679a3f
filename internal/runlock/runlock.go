// Package runlock keeps two synchronization runs from working on the shared
// cache at the same time. A run holds a marker file for its whole duration;
// a marker whose modification time is older than the staleness threshold is
// left over from a crashed run and may be reclaimed.
package runlock

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrBusy is returned by Acquire while another run holds a fresh lock.
var ErrBusy = errors.New("another update run is in progress")

// ErrLost is returned by Touch and Release when the marker at the lock path
// no longer belongs to this run, because it was reclaimed as stale by
// another run or removed.
var ErrLost = errors.New("run lock lost")

// Holder is the content of the marker file.
type Holder struct {
	ID      string    `json:"id"`
	PID     int       `json:"pid"`
	Started time.Time `json:"started"`
}

// Lock is a held run lock. Release it on every exit path.
type Lock struct {
	path   string
	holder Holder
	now    func() time.Time

	once sync.Once
	err  error
}

// Option configures Acquire.
type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock overrides the time source used for the staleness check.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// Acquire creates the marker at path. An existing marker modified within
// staleAfter means another run is active and yields an error wrapping
// ErrBusy; an older one is removed and the lock is taken over. Creation uses
// O_EXCL so two runs racing for a reclaimed lock cannot both win.
func Acquire(path string, staleAfter time.Duration, opts ...Option) (*Lock, error) {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("creating lock directory: %w", err)
	}

	for attempt := 0; attempt < 2; attempt++ {
		now := o.now()
		holder := Holder{ID: uuid.NewString(), PID: os.Getpid(), Started: now}

		f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
		if err == nil {
			encErr := json.NewEncoder(f).Encode(holder)
			closeErr := f.Close()
			if encErr != nil || closeErr != nil {
				os.Remove(path)
				return nil, fmt.Errorf("writing lock file: %w", errors.Join(encErr, closeErr))
			}
			return &Lock{path: path, holder: holder, now: o.now}, nil
		}
		if !os.IsExist(err) {
			return nil, fmt.Errorf("creating lock file: %w", err)
		}

		info, err := os.Stat(path)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("inspecting lock file: %w", err)
		}

		if !IsStale(info.ModTime(), now, staleAfter) {
			return nil, fmt.Errorf("%w (lock %s, held since %s)", ErrBusy, path, info.ModTime().Format(time.RFC3339))
		}
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("reclaiming stale lock: %w", err)
		}
	}
	return nil, fmt.Errorf("%w (lock %s was re-created while reclaiming)", ErrBusy, path)
}

// IsStale reports whether a marker last modified at mtime is strictly older
// than staleAfter at now.
func IsStale(mtime, now time.Time, staleAfter time.Duration) bool {
	return mtime.Before(now.Add(-staleAfter))
}

// Path returns the marker location.
func (l *Lock) Path() string { return l.path }

// Holder returns what this run wrote into the marker.
func (l *Lock) Holder() Holder { return l.holder }

// Touch refreshes the marker's modification time so a long run is not
// mistaken for a crashed one. It fails with ErrLost when the marker is gone
// or now names another run.
func (l *Lock) Touch() error {
	if err := l.owned(); err != nil {
		return err
	}
	now := l.now()
	if err := os.Chtimes(l.path, now, now); err != nil {
		return fmt.Errorf("touching lock file: %w", err)
	}
	return nil
}

// Release removes the marker if it still belongs to this run. It is safe to
// call more than once; only the first call does work. A marker that has
// already vanished is not an error. A marker taken over by another run is
// left alone and ErrLost is returned.
func (l *Lock) Release() error {
	l.once.Do(func() {
		if err := l.owned(); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				l.err = err
			}
			return
		}
		if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
			l.err = fmt.Errorf("removing lock file: %w", err)
		}
	})
	return l.err
}

func (l *Lock) owned() error {
	h, err := ReadHolder(l.path)
	if os.IsNotExist(err) {
		return fmt.Errorf("%w: %s was removed: %w", ErrLost, l.path, os.ErrNotExist)
	}
	if err != nil {
		return fmt.Errorf("%w: %w", ErrLost, err)
	}
	if h.ID != l.holder.ID {
		return fmt.Errorf("%w: %s is held by run %s (pid %d)", ErrLost, l.path, h.ID, h.PID)
	}
	return nil
}

// ReadHolder returns the holder recorded in the marker at path.
func ReadHolder(path string) (*Holder, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var h Holder
	if err := json.Unmarshal(data, &h); err != nil {
		return nil, fmt.Errorf("parsing lock file: %w", err)
	}
	return &h, nil
}
