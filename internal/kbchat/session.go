// Package kbchat runs knowledge-base chat: free-form conversation with the
// assistant persona, grounded in the knowledge base and optional file
// uploads, with replies revealed typewriter-style.
package kbchat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/nohairblingbling/interview-assistant/internal/convo"
	"github.com/nohairblingbling/interview-assistant/internal/observe"
	"github.com/nohairblingbling/interview-assistant/internal/render"
	"github.com/nohairblingbling/interview-assistant/internal/upload"
	"github.com/nohairblingbling/interview-assistant/pkg/provider/llm"
)

// ErrNotConfigured is returned when a message is sent before a chat provider
// has been configured.
var ErrNotConfigured = errors.New("kbchat: chat provider not configured")

// Notifier surfaces user-visible messages.
type Notifier interface {
	Notify(message string)
}

// Config collects the session's dependencies.
type Config struct {
	Chat          llm.Provider
	Log           *convo.Log
	KnowledgeBase *convo.KnowledgeBase
	Staging       *upload.Staging
	Display       *render.Display
	Notifier      Notifier
	Metrics       *observe.Metrics
}

// Session is the knowledge-base chat orchestrator. At most one request is in
// flight at a time.
type Session struct {
	chat     llm.Provider
	log      *convo.Log
	kb       *convo.KnowledgeBase
	staging  *upload.Staging
	display  *render.Display
	notifier Notifier
	metrics  *observe.Metrics

	inFlight atomic.Bool
}

// New wires a Session together from cfg.
func New(cfg Config) *Session {
	return &Session{
		chat:     cfg.Chat,
		log:      cfg.Log,
		kb:       cfg.KnowledgeBase,
		staging:  cfg.Staging,
		display:  cfg.Display,
		notifier: cfg.Notifier,
		metrics:  cfg.Metrics,
	}
}

// SetChatProvider swaps the completion provider.
func (s *Session) SetChatProvider(p llm.Provider) { s.chat = p }

// Staging exposes the attachment list for this session.
func (s *Session) Staging() *upload.Staging { return s.staging }

// Send submits a chat message together with any staged files. On success the
// exchange is logged, the staging area is cleared, and the reply reveal
// begins; the returned channel closes when the reveal settles. On failure
// nothing is logged, staged files stay put, and the channel is nil.
func (s *Session) Send(ctx context.Context, message string) (<-chan struct{}, error) {
	message = strings.TrimSpace(message)
	if !s.inFlight.CompareAndSwap(false, true) {
		return nil, errors.New("kbchat: a request is already in flight")
	}
	defer s.inFlight.Store(false)

	if s.chat == nil {
		s.notify("Chat provider is not configured. Open settings and add an API key.")
		return nil, ErrNotConfigured
	}

	names := s.staging.Names()
	var content string
	switch {
	case message != "" && len(names) > 0:
		content = fmt.Sprintf("[Files: %s] %s", strings.Join(names, ", "), message)
	case message != "":
		content = message
	case len(names) > 0:
		content = "Please analyze the attached files: " + strings.Join(names, ", ")
	default:
		return nil, errors.New("kbchat: message or staged files required")
	}

	ctx, span := observe.StartSpan(ctx, "kbchat.send")
	defer span.End()

	messages := convo.AssembleKnowledgeChat(
		s.kb.Contents(),
		s.staging.Contents(),
		s.log.Turns(),
		content,
	)

	observe.Logger(ctx).Debug("sending knowledge chat message",
		"files", len(s.staging.Contents()),
		"messages", len(messages),
	)

	resp, err := s.chat.Complete(ctx, llm.CompletionRequest{Messages: messages})
	if err != nil {
		span.RecordError(err)
		if s.metrics != nil {
			s.metrics.ChatFailures.Add(ctx, 1)
		}
		s.notify("The assistant request failed. Please try again.")
		return nil, fmt.Errorf("kbchat: chat request: %w", err)
	}

	reply := strings.TrimSpace(resp.Content)
	if err := s.log.AppendExchange(ctx, content, reply); err != nil {
		s.notify("Could not save the conversation turn.")
		return nil, fmt.Errorf("kbchat: record exchange: %w", err)
	}

	s.staging.Clear()
	if s.metrics != nil {
		s.metrics.RevealsStarted.Add(ctx, 1)
	}
	return s.display.Reveal(reply), nil
}

// ClearChat wipes the conversation history and the display. Staged files and
// the knowledge base are untouched.
func (s *Session) ClearChat(ctx context.Context) error {
	if err := s.log.Clear(ctx); err != nil {
		return fmt.Errorf("kbchat: clear chat: %w", err)
	}
	s.display.Clear()
	return nil
}

func (s *Session) notify(message string) {
	if s.notifier != nil {
		s.notifier.Notify(message)
	}
}
