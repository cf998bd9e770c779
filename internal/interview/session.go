// Package interview orchestrates the live interview flow: committed speech
// accumulates in the transcript buffer, the auto-submit engine decides when a
// question is complete, and the reply is appended to the display.
package interview

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"

	"github.com/nohairblingbling/interview-assistant/internal/autosubmit"
	"github.com/nohairblingbling/interview-assistant/internal/capture"
	"github.com/nohairblingbling/interview-assistant/internal/convo"
	"github.com/nohairblingbling/interview-assistant/internal/observe"
	"github.com/nohairblingbling/interview-assistant/internal/render"
	"github.com/nohairblingbling/interview-assistant/internal/transcript"
	"github.com/nohairblingbling/interview-assistant/pkg/provider/llm"
	"github.com/nohairblingbling/interview-assistant/pkg/provider/stt"
)

// ErrNotConfigured is returned when a submission is attempted before a chat
// provider has been configured.
var ErrNotConfigured = errors.New("interview: chat provider not configured")

// Notifier surfaces user-visible messages. Provider failures are reported
// through it instead of raw error text.
type Notifier interface {
	Notify(message string)
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(string)

// Notify implements Notifier.
func (f NotifierFunc) Notify(message string) { f(message) }

// Config collects the session's dependencies.
type Config struct {
	// Chat is the completion provider. May be nil until the operator
	// configures credentials; submissions fail with ErrNotConfigured.
	Chat llm.Provider

	// STT and NewSource feed the capture pipeline.
	STT       stt.Provider
	NewSource capture.SourceFactory

	// StreamConfig configures the transcription stream.
	StreamConfig stt.StreamConfig

	// Log and KnowledgeBase supply conversation context.
	Log           *convo.Log
	KnowledgeBase *convo.KnowledgeBase

	// Display receives completed replies.
	Display *render.Display

	// Notifier receives user-visible error messages. Optional.
	Notifier Notifier

	// Metrics counts session events. Optional.
	Metrics *observe.Metrics

	// EngineOptions tune the auto-submit engine, mainly for tests.
	EngineOptions []autosubmit.Option
}

// Session is the interview orchestrator. Safe for concurrent use; at most one
// chat request is in flight at any time.
type Session struct {
	chat     llm.Provider
	log      *convo.Log
	kb       *convo.KnowledgeBase
	display  *render.Display
	notifier Notifier
	metrics  *observe.Metrics

	acc      *transcript.Accumulator
	engine   *autosubmit.Engine
	pipeline *capture.Pipeline

	inFlight atomic.Bool
}

// New wires a Session together from cfg.
func New(cfg Config) *Session {
	s := &Session{
		chat:     cfg.Chat,
		log:      cfg.Log,
		kb:       cfg.KnowledgeBase,
		display:  cfg.Display,
		notifier: cfg.Notifier,
		metrics:  cfg.Metrics,
		acc:      transcript.New(),
	}
	s.engine = autosubmit.New(s, s.acc, cfg.EngineOptions...)

	opts := []capture.Option{
		capture.WithOnError(func(err error) {
			s.notify("Audio capture failed; recording stopped.")
			slog.Error("capture aborted", "error", err)
		}),
	}
	if cfg.StreamConfig.SampleRate != 0 {
		opts = append(opts, capture.WithStreamConfig(cfg.StreamConfig))
	}
	s.pipeline = capture.New(cfg.STT, cfg.NewSource, s.OnFragment, opts...)

	return s
}

// Transcript exposes the accumulator, for display and manual editing.
func (s *Session) Transcript() *transcript.Accumulator { return s.acc }

// SetChatProvider swaps the completion provider, e.g. after the operator
// saves new credentials.
func (s *Session) SetChatProvider(p llm.Provider) { s.chat = p }

// OnFragment commits a final transcript fragment and notes the activity for
// the auto-submit engine. Duplicate fragments re-delivered by the recognizer
// are dropped by the accumulator and do not reset the quiet period.
func (s *Session) OnFragment(text string) {
	if !s.acc.Commit(text) {
		return
	}
	if s.metrics != nil {
		s.metrics.FragmentsCommitted.Add(context.Background(), 1)
	}
	s.engine.NoteActivity()
}

// StartCapture begins audio capture. Acquisition failures are surfaced to the
// operator and leave the session idle.
func (s *Session) StartCapture(ctx context.Context) error {
	if err := s.pipeline.Start(ctx); err != nil {
		s.notify("Could not start recording. Check audio permissions and transcription settings.")
		return err
	}
	if s.metrics != nil {
		s.metrics.CaptureStarts.Add(ctx, 1)
	}
	return nil
}

// StopCapture tears down audio capture. Safe to call when idle.
func (s *Session) StopCapture() error {
	return s.pipeline.Stop()
}

// Capturing reports whether audio capture is active.
func (s *Session) Capturing() bool {
	return s.pipeline.Capturing()
}

// SetAutoSubmit toggles the quiet-period engine.
func (s *Session) SetAutoSubmit(on bool) {
	s.engine.SetEnabled(on)
}

// RunAutoSubmit runs the engine's poll backstop until ctx is cancelled.
func (s *Session) RunAutoSubmit(ctx context.Context) {
	s.engine.Run(ctx)
}

// TrySubmit fires an asynchronous submission of the unsent transcript span.
// If a request is already in flight the call is a no-op; the unsent span
// stays queued for the next qualifying trigger.
func (s *Session) TrySubmit() {
	if !s.inFlight.CompareAndSwap(false, true) {
		return
	}
	go func() {
		defer s.inFlight.Store(false)
		if err := s.submit(context.Background()); err != nil {
			slog.Error("auto submission failed", "error", err)
		}
	}()
}

// Submit sends the unsent transcript span synchronously. Returns nil without
// sending when nothing is pending, and an error when a request is already in
// flight.
func (s *Session) Submit(ctx context.Context) error {
	if !s.inFlight.CompareAndSwap(false, true) {
		return errors.New("interview: a submission is already in flight")
	}
	defer s.inFlight.Store(false)
	return s.submit(ctx)
}

// submit performs one submission. The cursor advances only after the request
// succeeded and both turns were recorded, so a failure leaves the unsent span
// eligible for the next trigger.
func (s *Session) submit(ctx context.Context) error {
	content := strings.TrimSpace(s.acc.Unsent())
	if content == "" {
		return nil
	}
	if s.chat == nil {
		s.notify("Chat provider is not configured. Open settings and add an API key.")
		return ErrNotConfigured
	}

	ctx, span := observe.StartSpan(ctx, "interview.submit")
	defer span.End()

	snapshot := s.acc.Snapshot()
	messages := convo.AssembleInterview(s.kb.Contents(), s.log.Turns(), content)

	observe.Logger(ctx).Debug("submitting transcript span",
		"chars", len(content),
		"messages", len(messages),
	)

	resp, err := s.chat.Complete(ctx, llm.CompletionRequest{Messages: messages})
	if err != nil {
		span.RecordError(err)
		if s.metrics != nil {
			s.metrics.ChatFailures.Add(ctx, 1)
		}
		s.notify("The assistant request failed. Please try again.")
		return fmt.Errorf("interview: chat request: %w", err)
	}

	reply := strings.TrimSpace(resp.Content)
	if err := s.log.AppendExchange(ctx, content, reply); err != nil {
		s.notify("Could not save the conversation turn.")
		return fmt.Errorf("interview: record exchange: %w", err)
	}

	s.acc.MarkSubmitted(snapshot)
	s.display.Append(reply)
	if s.metrics != nil {
		s.metrics.SubmissionsFired.Add(ctx, 1)
	}
	return nil
}

// ClearTranscript empties the transcript buffer and resets the cursor.
func (s *Session) ClearTranscript() {
	s.acc.Clear()
}

func (s *Session) notify(message string) {
	if s.notifier != nil {
		s.notifier.Notify(message)
	}
}
