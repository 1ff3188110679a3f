// Package retry configures bounded, deterministic exponential backoff on top
// of cenkalti/backoff, with injectable waiting so callers can be tested
// without real delays.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// ErrExhausted is returned by Do when every attempt failed.
var ErrExhausted = errors.New("retries exhausted")

// Timer waits out the delays between attempts in Do.
type Timer = backoff.Timer

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// Sleep is the real-time Sleeper.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Policy describes how many times to try and how long to wait in between.
type Policy struct {
	// Attempts is the total number of tries, including the first.
	Attempts int
	// Initial is the first delay; each following delay doubles.
	Initial time.Duration
	// Max caps a single delay. Zero means no cap.
	Max time.Duration
	// Timer defaults to a real timer.
	Timer Timer
}

// BackOff returns the policy's delay schedule: Initial, 2*Initial, ...
// capped at Max, without jitter and without an elapsed-time limit.
func (p Policy) BackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.Initial
	b.RandomizationFactor = 0
	b.Multiplier = 2
	b.MaxInterval = p.Max
	if b.MaxInterval <= 0 {
		b.MaxInterval = time.Duration(math.MaxInt64)
	}
	b.MaxElapsedTime = 0
	b.Reset()
	return b
}

// Do calls fn until it succeeds, the attempts run out or ctx is done. fn
// receives the 1-based attempt number. An error wrapped with Permanent stops
// the loop and is returned unwrapped; running out of attempts returns the
// last error together with ErrExhausted.
func (p Policy) Do(ctx context.Context, fn func(attempt int) error) error {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}
	b := backoff.WithContext(backoff.WithMaxRetries(p.BackOff(), uint64(attempts-1)), ctx)

	n := 0
	stopped := false
	err := backoff.RetryNotifyWithTimer(func() error {
		n++
		err := fn(n)
		var perm *backoff.PermanentError
		if errors.As(err, &perm) {
			stopped = true
		}
		return err
	}, b, nil, p.Timer)

	switch {
	case err == nil:
		return nil
	case stopped:
		return err
	case ctx.Err() != nil && errors.Is(err, ctx.Err()):
		return err
	}
	return fmt.Errorf("%w after %d attempts: %w", ErrExhausted, n, err)
}

// Permanent wraps err so Do stops retrying immediately.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return backoff.Permanent(err)
}
