// Package transcript maintains the append-only buffer of recognized speech
// and tracks which portion has already been submitted to the model.
package transcript

import (
	"strings"
	"sync"
	"time"
)

// Accumulator collects final transcript fragments into a growing buffer.
//
// Fragments are appended in arrival order, separated by newlines. A fragment
// that matches the current tail of the buffer is dropped; recognition engines
// re-deliver the last utterance after brief pauses and committing it twice
// would duplicate speech in the submitted question.
//
// A cursor records how much of the buffer has already been sent. The cursor
// only moves forward, so text is never submitted twice and never skipped.
// Safe for concurrent use.
type Accumulator struct {
	mu           sync.Mutex
	text         strings.Builder
	cursor       int
	lastActivity time.Time

	now func() time.Time
}

// New creates an empty Accumulator.
func New() *Accumulator {
	return &Accumulator{now: time.Now}
}

// Commit appends a final transcript fragment. Whitespace-only fragments and
// fragments that duplicate the current buffer tail are dropped. It reports
// whether the fragment was actually appended.
func (a *Accumulator) Commit(fragment string) bool {
	fragment = strings.TrimSpace(fragment)
	if fragment == "" {
		return false
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if strings.HasSuffix(a.text.String(), fragment) {
		return false
	}
	if a.text.Len() > 0 {
		a.text.WriteString("\n")
	}
	a.text.WriteString(fragment)
	a.lastActivity = a.now()
	return true
}

// Text returns the full buffer contents.
func (a *Accumulator) Text() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.text.String()
}

// SetText replaces the buffer contents, keeping the cursor valid. Used when
// the operator edits the transcript by hand before submitting.
func (a *Accumulator) SetText(s string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.text.Reset()
	a.text.WriteString(s)
	if a.cursor > a.text.Len() {
		a.cursor = a.text.Len()
	}
	a.lastActivity = a.now()
}

// Unsent returns the portion of the buffer beyond the submission cursor.
func (a *Accumulator) Unsent() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.text.String()[a.cursor:]
}

// HasUnsent reports whether any non-whitespace text awaits submission.
func (a *Accumulator) HasUnsent() bool {
	return strings.TrimSpace(a.Unsent()) != ""
}

// Snapshot returns the current buffer length. Callers pass it back to
// MarkSubmitted after a successful submission, so fragments committed while
// the request was in flight stay queued for the next one.
func (a *Accumulator) Snapshot() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.text.Len()
}

// MarkSubmitted advances the cursor to upTo. The cursor never moves backward
// and never beyond the end of the buffer.
func (a *Accumulator) MarkSubmitted(upTo int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if upTo > a.text.Len() {
		upTo = a.text.Len()
	}
	if upTo > a.cursor {
		a.cursor = upTo
	}
}

// LastActivity returns the time of the most recent buffer change. Zero if the
// buffer has never been written.
func (a *Accumulator) LastActivity() time.Time {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lastActivity
}

// Clear empties the buffer and resets the cursor.
func (a *Accumulator) Clear() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.text.Reset()
	a.cursor = 0
	a.lastActivity = time.Time{}
}
