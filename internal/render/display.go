// Package render maintains the assistant text shown to the operator. Two
// policies exist: interview replies append below the previous ones, while
// knowledge-base chat replies overwrite the display and are revealed
// character by character.
package render

import (
	"sync"
	"time"
)

const (
	// DefaultRevealTick is the per-character delay of the typewriter effect.
	DefaultRevealTick = 35 * time.Millisecond

	// DefaultRevealPause is the hold after the last character, before the
	// trailing blank line is added.
	DefaultRevealPause = 500 * time.Millisecond
)

// Option is a functional option for configuring a Display.
type Option func(*Display)

// WithRevealTick overrides the per-character reveal delay.
func WithRevealTick(d time.Duration) Option {
	return func(disp *Display) { disp.tick = d }
}

// WithRevealPause overrides the post-reveal pause.
func WithRevealPause(d time.Duration) Option {
	return func(disp *Display) { disp.pause = d }
}

// WithOnChange registers a callback invoked with the full display text after
// every change. The callback runs with internal locks held; keep it fast.
func WithOnChange(fn func(string)) Option {
	return func(disp *Display) { disp.onChange = fn }
}

// Display holds the rendered assistant text. Reveal progress is purely
// presentational; callers keep the authoritative reply text themselves, so an
// interrupted reveal loses nothing. Safe for concurrent use.
type Display struct {
	tick     time.Duration
	pause    time.Duration
	onChange func(string)

	mu   sync.Mutex
	text string
	gen  int
}

// NewDisplay creates an empty Display.
func NewDisplay(opts ...Option) *Display {
	d := &Display{
		tick:  DefaultRevealTick,
		pause: DefaultRevealPause,
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

// Text returns the current display contents.
func (d *Display) Text() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.text
}

// Append adds a completed reply below the existing text, separated by a blank
// line. The full conversation stays visible.
func (d *Display) Append(reply string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.gen++
	if d.text != "" {
		d.text += "\n\n"
	}
	d.text += reply
	d.notifyLocked()
}

// Reveal replaces the display with reply, typed out one character per tick,
// then holds briefly and appends a trailing blank line. Starting a new reveal
// discards any reveal still in progress. The returned channel closes when the
// reveal settles or is superseded.
func (d *Display) Reveal(reply string) <-chan struct{} {
	d.mu.Lock()
	d.gen++
	gen := d.gen
	d.text = ""
	d.notifyLocked()
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		defer close(done)
		runes := []rune(reply)
		for i := range runes {
			time.Sleep(d.tick)
			if !d.setIfCurrent(gen, string(runes[:i+1])) {
				return
			}
		}
		time.Sleep(d.pause)
		d.setIfCurrent(gen, reply+"\n\n")
	}()
	return done
}

// setIfCurrent updates the text only when gen is still the active reveal.
func (d *Display) setIfCurrent(gen int, text string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.gen != gen {
		return false
	}
	d.text = text
	d.notifyLocked()
	return true
}

// Clear empties the display and discards any reveal in progress.
func (d *Display) Clear() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.gen++
	d.text = ""
	d.notifyLocked()
}

func (d *Display) notifyLocked() {
	if d.onChange != nil {
		d.onChange(d.text)
	}
}
