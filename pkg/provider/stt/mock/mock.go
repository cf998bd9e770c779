// Package mock provides test doubles for stt.Provider and stt.SessionHandle.
package mock

import (
	"context"
	"errors"
	"sync"

	"github.com/nohairblingbling/interview-assistant/pkg/provider/stt"
)

// Provider is a test double for stt.Provider. It hands out Session values
// (or StartErr) and records the configs it was started with.
type Provider struct {
	mu sync.Mutex

	// StartErr, when non-nil, is returned by StartStream.
	StartErr error

	// Session is returned by StartStream. When nil a fresh Session is
	// created per call.
	Session *Session

	started []stt.StreamConfig
}

// StartStream implements stt.Provider.
func (p *Provider) StartStream(_ context.Context, cfg stt.StreamConfig) (stt.SessionHandle, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.StartErr != nil {
		return nil, p.StartErr
	}
	p.started = append(p.started, cfg)
	if p.Session == nil {
		p.Session = NewSession()
	}
	return p.Session, nil
}

// Started returns the stream configs passed to StartStream, in order.
func (p *Provider) Started() []stt.StreamConfig {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]stt.StreamConfig, len(p.started))
	copy(out, p.started)
	return out
}

// Session is a scriptable stt.SessionHandle. Tests push transcripts with
// EmitFinal/EmitPartial and inspect audio frames via Frames.
type Session struct {
	mu sync.Mutex

	// SendErr, when non-nil, is returned by SendAudio.
	SendErr error

	partials chan stt.Transcript
	finals   chan stt.Transcript
	frames   [][]byte
	closed   bool
	once     sync.Once
}

// NewSession creates a ready-to-use mock session.
func NewSession() *Session {
	return &Session{
		partials: make(chan stt.Transcript, 16),
		finals:   make(chan stt.Transcript, 16),
	}
}

// SendAudio implements stt.SessionHandle.
func (s *Session) SendAudio(frame []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errors.New("mock stt: session is closed")
	}
	if s.SendErr != nil {
		return s.SendErr
	}
	cp := make([]byte, len(frame))
	copy(cp, frame)
	s.frames = append(s.frames, cp)
	return nil
}

// Partials implements stt.SessionHandle.
func (s *Session) Partials() <-chan stt.Transcript { return s.partials }

// Finals implements stt.SessionHandle.
func (s *Session) Finals() <-chan stt.Transcript { return s.finals }

// Close implements stt.SessionHandle. Safe to call more than once.
func (s *Session) Close() error {
	s.once.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()
		close(s.partials)
		close(s.finals)
	})
	return nil
}

// Closed reports whether Close has been called.
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Frames returns a copy of all audio frames received so far.
func (s *Session) Frames() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]byte, len(s.frames))
	copy(out, s.frames)
	return out
}

// EmitFinal delivers a final transcript to the session's consumer.
func (s *Session) EmitFinal(text string) {
	s.finals <- stt.Transcript{Text: text, IsFinal: true, Confidence: 1.0}
}

// EmitPartial delivers an interim transcript to the session's consumer.
func (s *Session) EmitPartial(text string) {
	s.partials <- stt.Transcript{Text: text, IsFinal: false}
}
