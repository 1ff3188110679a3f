package replace

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/cn1tools/cn1update/internal/logging"
	"github.com/cn1tools/cn1update/internal/retry"
)

// ErrSwapExhausted is returned when the destination stayed locked for every
// attempt. The staged file is left in place for a later run.
var ErrSwapExhausted = errors.New("swap attempts exhausted")

// ErrNothingStaged is returned when neither the staged file nor the
// destination exists.
var ErrNothingStaged = errors.New("no staged file to swap")

// Swapper moves a staged file over its destination once the process holding
// the destination lets go. It is what the detached helper process runs.
type Swapper struct {
	Attempts int
	Initial  time.Duration
	Max      time.Duration
	// Settle is the extra wait after a rename that did not take.
	Settle time.Duration
	Sleep  retry.Sleeper
	Logger *slog.Logger

	remove func(string) error
	rename func(string, string) error
}

func (s *Swapper) defaults() {
	if s.Attempts < 1 {
		s.Attempts = 1
	}
	if s.Sleep == nil {
		s.Sleep = retry.Sleep
	}
	if s.Logger == nil {
		s.Logger = logging.Discard()
	}
	if s.remove == nil {
		s.remove = os.Remove
	}
	if s.rename == nil {
		s.rename = os.Rename
	}
}

// Swap replaces dest with staged. Each attempt deletes dest if present and
// renames staged onto it; the swap is done once the rename succeeded and
// dest exists. When staged is already gone but dest exists, another helper
// finished first and Swap returns nil.
func (s *Swapper) Swap(ctx context.Context, staged, dest string) error {
	s.defaults()
	log := s.Logger.With(logging.Path(dest), slog.String("staged", staged))

	// The first attempt also waits so the process that scheduled the swap
	// has time to exit.
	delays := retry.Policy{Initial: s.Initial, Max: s.Max}.BackOff()
	for attempt := 1; attempt <= s.Attempts; attempt++ {
		if err := s.Sleep(ctx, delays.NextBackOff()); err != nil {
			return err
		}
		alog := log.With(slog.Int(logging.KeyAttempt, attempt))

		if !exists(staged) {
			if exists(dest) {
				alog.Info("staged file already swapped")
				return nil
			}
			return fmt.Errorf("%w: %s", ErrNothingStaged, staged)
		}

		if exists(dest) {
			if err := s.remove(dest); err != nil {
				alog.Debug("destination still locked", logging.Err(err))
				continue
			}
		}

		if err := s.rename(staged, dest); err != nil {
			alog.Debug("rename failed", logging.Err(err))
			if err := s.Sleep(ctx, s.Settle); err != nil {
				return err
			}
			continue
		}

		if !exists(dest) {
			alog.Debug("destination missing after rename")
			if err := s.Sleep(ctx, s.Settle); err != nil {
				return err
			}
			continue
		}

		alog.Info("swap complete")
		return nil
	}

	log.Error("giving up on swap", slog.Int(logging.KeyAttempt, s.Attempts))
	return fmt.Errorf("%w: %s after %d attempts", ErrSwapExhausted, dest, s.Attempts)
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
