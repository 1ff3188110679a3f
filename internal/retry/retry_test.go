package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

// instantTimer fires at once and records the delays it was started with.
type instantTimer struct {
	c      chan time.Time
	delays []time.Duration
}

func newInstantTimer() *instantTimer {
	return &instantTimer{c: make(chan time.Time, 1)}
}

func (t *instantTimer) Start(d time.Duration) {
	t.delays = append(t.delays, d)
	t.c <- time.Time{}
}

func (t *instantTimer) Stop() {}

func (t *instantTimer) C() <-chan time.Time { return t.c }

func TestPolicyBackOff(t *testing.T) {
	b := Policy{Initial: time.Second, Max: 5 * time.Second}.BackOff()
	want := []time.Duration{
		time.Second,
		2 * time.Second,
		4 * time.Second,
		5 * time.Second,
		5 * time.Second,
	}
	for i, w := range want {
		if got := b.NextBackOff(); got != w {
			t.Errorf("delay %d = %s, want %s", i+1, got, w)
		}
	}
}

func TestPolicyBackOff_NoCap(t *testing.T) {
	b := Policy{Initial: time.Minute}.BackOff()
	for i := 0; i < 6; i++ {
		b.NextBackOff()
	}
	if got := b.NextBackOff(); got != 64*time.Minute {
		t.Errorf("seventh delay = %s, want 64m", got)
	}
}

func TestDo_SucceedsAfterFailures(t *testing.T) {
	timer := newInstantTimer()
	p := Policy{Attempts: 4, Initial: time.Second, Timer: timer}

	calls := 0
	err := p.Do(context.Background(), func(attempt int) error {
		calls++
		if attempt < 3 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Do failed: %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
	if len(timer.delays) != 2 || timer.delays[0] != time.Second || timer.delays[1] != 2*time.Second {
		t.Errorf("delays = %v", timer.delays)
	}
}

func TestDo_Exhausted(t *testing.T) {
	timer := newInstantTimer()
	p := Policy{Attempts: 3, Initial: time.Millisecond, Timer: timer}
	cause := errors.New("offline")

	calls := 0
	err := p.Do(context.Background(), func(int) error { calls++; return cause })
	if !errors.Is(err, ErrExhausted) {
		t.Errorf("expected ErrExhausted, got %v", err)
	}
	if !errors.Is(err, cause) {
		t.Errorf("expected wrapped cause, got %v", err)
	}
	if calls != 3 || len(timer.delays) != 2 {
		t.Errorf("calls = %d, delays = %v", calls, timer.delays)
	}
}

func TestDo_Permanent(t *testing.T) {
	p := Policy{Attempts: 5, Timer: newInstantTimer()}
	cause := errors.New("bad request")
	calls := 0
	err := p.Do(context.Background(), func(int) error {
		calls++
		return Permanent(cause)
	})
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
	if !errors.Is(err, cause) || errors.Is(err, ErrExhausted) {
		t.Errorf("expected the permanent cause alone, got %v", err)
	}
}

func TestDo_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := Policy{Attempts: 5, Initial: time.Hour}
	err := p.Do(ctx, func(int) error {
		cancel()
		return errors.New("transient")
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestSleep_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := Sleep(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
