// Package autosubmit decides when accumulated speech is ready to be sent to
// the model without the operator pressing anything.
package autosubmit

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

const (
	// DefaultQuietPeriod is how long the speaker must stay silent before the
	// buffered question is considered complete.
	DefaultQuietPeriod = 2 * time.Second

	// DefaultPollInterval is the safety-net scan interval. The quiet timer
	// normally fires first; the poll catches timers lost to races between
	// re-arms and disablement.
	DefaultPollInterval = time.Second
)

// Submitter fires a submission attempt. Implementations must be non-blocking
// and tolerate redundant calls; the engine may attempt both on the quiet
// timer edge and on the next poll tick.
type Submitter interface {
	TrySubmit()
}

// Buffer is the view of the transcript state the engine needs.
type Buffer interface {
	// HasUnsent reports whether any text awaits submission.
	HasUnsent() bool
	// LastActivity is the time of the most recent buffer change.
	LastActivity() time.Time
}

// Option is a functional option for configuring the Engine.
type Option func(*Engine)

// WithQuietPeriod overrides the silence threshold.
func WithQuietPeriod(d time.Duration) Option {
	return func(e *Engine) { e.quiet = d }
}

// WithPollInterval overrides the safety-net poll interval.
func WithPollInterval(d time.Duration) Option {
	return func(e *Engine) { e.poll = d }
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// Engine watches transcript activity and triggers submissions after a quiet
// period. Two mechanisms cooperate: an edge timer re-armed on every activity
// notification, and a periodic poll that re-checks the same condition. Either
// may fire; the Submitter deduplicates.
type Engine struct {
	submitter Submitter
	buffer    Buffer
	quiet     time.Duration
	poll      time.Duration
	now       func() time.Time

	mu      sync.Mutex
	enabled bool
	timer   *time.Timer
}

// New creates an Engine. Auto-submission starts disabled.
func New(submitter Submitter, buffer Buffer, opts ...Option) *Engine {
	e := &Engine{
		submitter: submitter,
		buffer:    buffer,
		quiet:     DefaultQuietPeriod,
		poll:      DefaultPollInterval,
		now:       time.Now,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// SetEnabled turns auto-submission on or off. Disabling cancels any pending
// quiet timer, so no submission fires after the operator switches it off.
func (e *Engine) SetEnabled(on bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.enabled = on
	if !on && e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
}

// Enabled reports whether auto-submission is on.
func (e *Engine) Enabled() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.enabled
}

// NoteActivity re-arms the quiet timer. Call it on every committed fragment;
// each call pushes the submission edge out by the full quiet period.
func (e *Engine) NoteActivity() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.enabled {
		return
	}
	if e.timer != nil {
		e.timer.Stop()
	}
	e.timer = time.AfterFunc(e.quiet, e.fire)
}

// fire runs when the quiet timer elapses.
func (e *Engine) fire() {
	e.mu.Lock()
	e.timer = nil
	e.mu.Unlock()
	e.check()
}

// check submits if the engine is enabled, text is pending, and the quiet
// period has elapsed since the last buffer change.
func (e *Engine) check() {
	if !e.Enabled() {
		return
	}
	if !e.buffer.HasUnsent() {
		return
	}
	last := e.buffer.LastActivity()
	if last.IsZero() || e.now().Sub(last) < e.quiet {
		return
	}
	slog.Debug("auto-submit: quiet period elapsed, firing", "quiet", e.quiet)
	e.submitter.TrySubmit()
}

// Run polls the submission condition until ctx is cancelled. It is the
// backstop for edge timers lost between re-arm and disable races; the timer
// path provides the low latency.
func (e *Engine) Run(ctx context.Context) {
	ticker := time.NewTicker(e.poll)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			e.mu.Lock()
			if e.timer != nil {
				e.timer.Stop()
				e.timer = nil
			}
			e.mu.Unlock()
			return
		case <-ticker.C:
			e.check()
		}
	}
}
