package autosubmit

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type fakeSubmitter struct {
	fired atomic.Int32
}

func (f *fakeSubmitter) TrySubmit() { f.fired.Add(1) }

type fakeBuffer struct {
	mu       sync.Mutex
	unsent   bool
	activity time.Time
}

func (f *fakeBuffer) HasUnsent() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.unsent
}

func (f *fakeBuffer) LastActivity() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.activity
}

func (f *fakeBuffer) set(unsent bool, activity time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unsent = unsent
	f.activity = activity
}

func waitFired(t *testing.T, s *fakeSubmitter, want int32) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		if s.fired.Load() >= want {
			return
		}
		select {
		case <-deadline:
			t.Fatalf("fired = %d, want >= %d", s.fired.Load(), want)
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestQuietTimerFires(t *testing.T) {
	t.Parallel()

	sub := &fakeSubmitter{}
	buf := &fakeBuffer{}
	e := New(sub, buf, WithQuietPeriod(20*time.Millisecond))
	e.SetEnabled(true)

	buf.set(true, time.Now())
	e.NoteActivity()

	waitFired(t, sub, 1)
}

func TestActivityReArmsTimer(t *testing.T) {
	t.Parallel()

	sub := &fakeSubmitter{}
	buf := &fakeBuffer{}
	e := New(sub, buf, WithQuietPeriod(50*time.Millisecond))
	e.SetEnabled(true)

	// Keep talking faster than the quiet period; the timer must keep sliding.
	for range 4 {
		buf.set(true, time.Now())
		e.NoteActivity()
		time.Sleep(15 * time.Millisecond)
		if got := sub.fired.Load(); got != 0 {
			t.Fatalf("fired %d times during active speech", got)
		}
	}

	waitFired(t, sub, 1)
}

func TestDisableCancelsPendingTimer(t *testing.T) {
	t.Parallel()

	sub := &fakeSubmitter{}
	buf := &fakeBuffer{}
	e := New(sub, buf, WithQuietPeriod(20*time.Millisecond))
	e.SetEnabled(true)

	buf.set(true, time.Now())
	e.NoteActivity()
	e.SetEnabled(false)

	time.Sleep(60 * time.Millisecond)
	if got := sub.fired.Load(); got != 0 {
		t.Errorf("fired %d times after disable", got)
	}
}

func TestNoteActivityIgnoredWhenDisabled(t *testing.T) {
	t.Parallel()

	sub := &fakeSubmitter{}
	buf := &fakeBuffer{}
	e := New(sub, buf, WithQuietPeriod(10*time.Millisecond))

	buf.set(true, time.Now())
	e.NoteActivity()

	time.Sleep(40 * time.Millisecond)
	if got := sub.fired.Load(); got != 0 {
		t.Errorf("fired %d times while disabled", got)
	}
}

func TestTimerSkipsEmptyBuffer(t *testing.T) {
	t.Parallel()

	sub := &fakeSubmitter{}
	buf := &fakeBuffer{}
	e := New(sub, buf, WithQuietPeriod(10*time.Millisecond))
	e.SetEnabled(true)

	buf.set(false, time.Now())
	e.NoteActivity()

	time.Sleep(40 * time.Millisecond)
	if got := sub.fired.Load(); got != 0 {
		t.Errorf("fired %d times with nothing unsent", got)
	}
}

func TestPollBackstop(t *testing.T) {
	t.Parallel()

	sub := &fakeSubmitter{}
	buf := &fakeBuffer{}
	e := New(sub, buf,
		WithQuietPeriod(10*time.Millisecond),
		WithPollInterval(15*time.Millisecond),
	)
	e.SetEnabled(true)

	// Quiet period already elapsed, but NoteActivity was never called, so no
	// edge timer exists. Only the poll can notice.
	buf.set(true, time.Now().Add(-time.Second))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go e.Run(ctx)

	waitFired(t, sub, 1)
}

func TestPollRespectsQuietPeriod(t *testing.T) {
	t.Parallel()

	sub := &fakeSubmitter{}
	buf := &fakeBuffer{}
	e := New(sub, buf,
		WithQuietPeriod(time.Hour),
		WithPollInterval(10*time.Millisecond),
	)
	e.SetEnabled(true)
	buf.set(true, time.Now())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go e.Run(ctx)

	time.Sleep(60 * time.Millisecond)
	if got := sub.fired.Load(); got != 0 {
		t.Errorf("fired %d times before quiet period elapsed", got)
	}
}
