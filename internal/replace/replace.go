package replace

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/cn1tools/cn1update/internal/logging"
	"github.com/cn1tools/cn1update/internal/platform"
)

// Result tells the caller whether the destination already holds the new bytes.
type Result int

const (
	// Installed means the destination was written directly.
	Installed Result = iota
	// Deferred means the bytes sit in the staged sibling and a swap helper
	// will move them into place once the destination is released.
	Deferred
)

func (r Result) String() string {
	switch r {
	case Installed:
		return "installed"
	case Deferred:
		return "deferred"
	default:
		return "unknown"
	}
}

// Scheduler hands a staged file to an out-of-band swap that outlives the
// current process.
type Scheduler interface {
	Schedule(staged, dest string) error
}

// WriteFunc writes a whole file, truncating it first.
type WriteFunc func(path string, data []byte, perm os.FileMode) error

// Replacer installs artifact bytes, falling back to a staged write plus a
// deferred swap when the destination is held by another process.
type Replacer struct {
	selfPath  string
	scheduler Scheduler
	write     WriteFunc
	logger    *slog.Logger
}

// Option configures a Replacer.
type Option func(*Replacer)

// WithScheduler sets how deferred swaps are started.
func WithScheduler(s Scheduler) Option {
	return func(r *Replacer) { r.scheduler = s }
}

// WithSelfPath names the updater's own executable. Locked writes to it are
// promoted in-process instead of handed to a helper.
func WithSelfPath(path string) Option {
	return func(r *Replacer) { r.selfPath = path }
}

// WithWriter replaces the file writer (useful for testing lock contention).
func WithWriter(w WriteFunc) Option {
	return func(r *Replacer) { r.write = w }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Replacer) { r.logger = l }
}

// New creates a Replacer.
func New(opts ...Option) *Replacer {
	r := &Replacer{
		write:  os.WriteFile,
		logger: logging.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// StagedPath returns the sibling a locked destination is staged to:
// "CodenameOne.jar" becomes "CodenameOne.new.jar". Each destination maps to
// its own staged path so a later run overwrites, rather than races, an
// earlier run's staged copy.
func StagedPath(dest string) string {
	ext := filepath.Ext(dest)
	if ext == filepath.Base(dest) {
		ext = ""
	}
	return strings.TrimSuffix(dest, ext) + ".new" + ext
}

// Install writes data to dest. When the write fails because another process
// holds dest, data goes to StagedPath(dest) and the swap is deferred; the
// call then returns Deferred without waiting. The updater's own executable
// is always staged and promoted in-process. Any other write failure is
// returned as an error, as is a failure to start the swap helper, so the
// caller does not record a version that can never land.
func (r *Replacer) Install(data []byte, dest string) (Result, error) {
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return Installed, fmt.Errorf("creating directory for %s: %w", dest, err)
	}

	if r.isSelf(dest) {
		return r.installSelf(data, dest)
	}

	err := r.write(dest, data, 0644)
	if err == nil {
		return Installed, nil
	}
	if !platform.IsContention(err) {
		return Installed, fmt.Errorf("writing %s: %w", dest, err)
	}

	staged := StagedPath(dest)
	r.logger.Warn("destination is locked, staging new file",
		logging.Path(dest), slog.String("staged", staged), logging.Err(err))

	if err := r.write(staged, data, 0644); err != nil {
		return Deferred, fmt.Errorf("staging %s: %w", staged, err)
	}

	if r.scheduler == nil {
		return Deferred, fmt.Errorf("no swap helper available for %s (staged at %s)", dest, staged)
	}
	if err := r.scheduler.Schedule(staged, dest); err != nil {
		return Deferred, fmt.Errorf("scheduling swap of %s: %w", dest, err)
	}
	return Deferred, nil
}

// installSelf never writes the running executable in place: the new binary
// is staged and promoted by rename. A failed promotion leaves the staged
// copy for PromotePending on the next start.
func (r *Replacer) installSelf(data []byte, dest string) (Result, error) {
	staged := StagedPath(dest)
	if err := r.write(staged, data, 0755); err != nil {
		return Deferred, fmt.Errorf("staging %s: %w", staged, err)
	}
	if err := PromoteSelf(staged, dest); err != nil {
		r.logger.Warn("self update staged for next start", logging.Path(staged), logging.Err(err))
		return Deferred, nil
	}
	return Installed, nil
}

func (r *Replacer) isSelf(dest string) bool {
	if r.selfPath == "" {
		return false
	}
	return samePath(r.selfPath, dest)
}

func samePath(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	if errA != nil || errB != nil {
		return filepath.Clean(a) == filepath.Clean(b)
	}
	if absA == absB {
		return true
	}
	if realA, err := filepath.EvalSymlinks(absA); err == nil {
		if realB, err := filepath.EvalSymlinks(absB); err == nil {
			return realA == realB
		}
	}
	return false
}
