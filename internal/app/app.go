// Package app wires all subsystems into a running application.
//
// The App struct owns the full lifecycle: New creates and connects all
// subsystems, Run serves the local control endpoints until the context ends,
// and Shutdown tears everything down in order.
//
// For testing, inject doubles via functional options (WithStore,
// WithSourceFactory, etc.). When an option is not provided, New creates real
// implementations from the config.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	anyllmlib "github.com/mozilla-ai/any-llm-go"

	"github.com/nohairblingbling/interview-assistant/internal/autosubmit"
	"github.com/nohairblingbling/interview-assistant/internal/capture"
	"github.com/nohairblingbling/interview-assistant/internal/config"
	"github.com/nohairblingbling/interview-assistant/internal/convo"
	"github.com/nohairblingbling/interview-assistant/internal/health"
	"github.com/nohairblingbling/interview-assistant/internal/interview"
	"github.com/nohairblingbling/interview-assistant/internal/kbchat"
	"github.com/nohairblingbling/interview-assistant/internal/observe"
	"github.com/nohairblingbling/interview-assistant/internal/render"
	"github.com/nohairblingbling/interview-assistant/internal/store"
	"github.com/nohairblingbling/interview-assistant/internal/upload"
	"github.com/nohairblingbling/interview-assistant/pkg/provider/llm"
	"github.com/nohairblingbling/interview-assistant/pkg/provider/llm/anyllm"
	"github.com/nohairblingbling/interview-assistant/pkg/provider/llm/openai"
	"github.com/nohairblingbling/interview-assistant/pkg/provider/stt"
	"github.com/nohairblingbling/interview-assistant/pkg/provider/stt/deepgram"
)

// Providers holds one interface value per provider slot. Nil means the
// provider is not configured; the affected flows surface a configuration
// error instead of failing at startup.
type Providers struct {
	Chat llm.Provider
	STT  stt.Provider
}

// BuildProviders instantiates providers from cfg. Missing credentials yield
// nil slots, not errors.
func BuildProviders(cfg *config.Config) (*Providers, error) {
	p := &Providers{}

	if cfg.Chat.Configured() {
		chat, err := BuildChatProvider(cfg.Chat)
		if err != nil {
			return nil, fmt.Errorf("app: build chat provider: %w", err)
		}
		p.Chat = chat
	}

	if cfg.Transcription.APIKey != "" {
		dg, err := deepgram.New(cfg.Transcription.APIKey)
		if err != nil {
			return nil, fmt.Errorf("app: build transcription provider: %w", err)
		}
		p.STT = dg
	}

	return p, nil
}

// BuildChatProvider constructs a completion provider from chat settings. The
// direct method uses the OpenAI-compatible client; the proxy method routes
// through the multi-provider layer.
func BuildChatProvider(cc config.ChatConfig) (llm.Provider, error) {
	switch cc.CallMethod {
	case config.CallProxy:
		var opts []anyllmlib.Option
		if cc.APIKey != "" {
			opts = append(opts, anyllmlib.WithAPIKey(cc.APIKey))
		}
		if cc.APIBase != "" {
			opts = append(opts, anyllmlib.WithBaseURL(cc.APIBase))
		}
		return anyllm.New(cc.Provider, cc.Model, opts...)
	default:
		var opts []openai.Option
		if cc.APIBase != "" {
			opts = append(opts, openai.WithBaseURL(cc.APIBase))
		}
		return openai.New(cc.APIKey, cc.Model, opts...)
	}
}

// Option is a functional option for New. Use these to inject test doubles.
type Option func(*App)

// WithStore injects an opened store instead of opening cfg.Storage.Path.
func WithStore(s *store.Store) Option {
	return func(a *App) { a.store = s }
}

// WithSourceFactory injects the audio source used by capture.
func WithSourceFactory(f capture.SourceFactory) Option {
	return func(a *App) { a.newSource = f }
}

// WithNotifier injects the user-visible message sink.
func WithNotifier(n interview.Notifier) Option {
	return func(a *App) { a.notifier = n }
}

// App owns all subsystem lifetimes.
type App struct {
	cfg       *config.Config
	providers *Providers

	store     *store.Store
	log       *convo.Log
	kb        *convo.KnowledgeBase
	staging   *upload.Staging
	metrics   *observe.Metrics
	newSource capture.SourceFactory
	notifier  interview.Notifier

	// Interview and Chat are the two operator-facing sessions.
	Interview *interview.Session
	Chat      *kbchat.Session

	interviewDisplay *render.Display
	chatDisplay      *render.Display

	server *http.Server

	// closers are called in order during Shutdown.
	closers []func() error

	stopOnce sync.Once
}

// New creates an App by wiring all subsystems together. The providers struct
// comes from main (via BuildProviders).
func New(ctx context.Context, cfg *config.Config, providers *Providers, opts ...Option) (*App, error) {
	a := &App{
		cfg:       cfg,
		providers: providers,
	}
	for _, o := range opts {
		o(a)
	}

	if a.newSource == nil {
		a.newSource = func(context.Context) (capture.Source, error) {
			return nil, errors.New("no audio source configured")
		}
	}
	if a.notifier == nil {
		a.notifier = interview.NotifierFunc(func(msg string) {
			slog.Warn("user notification", "message", msg)
		})
	}

	if a.store == nil {
		st, err := store.Open(cfg.Storage.Path)
		if err != nil {
			return nil, fmt.Errorf("app: open store: %w", err)
		}
		a.store = st
		a.closers = append(a.closers, st.Close)
	}

	log, err := convo.LoadLog(ctx, a.store)
	if err != nil {
		return nil, fmt.Errorf("app: load conversation log: %w", err)
	}
	a.log = log

	kb, err := convo.LoadKnowledgeBase(ctx, a.store)
	if err != nil {
		return nil, fmt.Errorf("app: load knowledge base: %w", err)
	}
	a.kb = kb

	metrics, err := observe.NewMetrics()
	if err != nil {
		return nil, fmt.Errorf("app: init metrics: %w", err)
	}
	a.metrics = metrics
	a.closers = append(a.closers, func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return metrics.Shutdown(ctx)
	})

	a.staging = upload.NewStaging()
	a.interviewDisplay = render.NewDisplay()
	a.chatDisplay = render.NewDisplay()

	var engineOpts []autosubmit.Option
	if cfg.Assistant.QuietPeriodMS > 0 {
		engineOpts = append(engineOpts,
			autosubmit.WithQuietPeriod(time.Duration(cfg.Assistant.QuietPeriodMS)*time.Millisecond))
	}

	a.Interview = interview.New(interview.Config{
		Chat:      providers.Chat,
		STT:       providers.STT,
		NewSource: a.newSource,
		StreamConfig: stt.StreamConfig{
			SampleRate:        16000,
			Channels:          1,
			Language:          cfg.Transcription.PrimaryLanguage,
			SecondaryLanguage: cfg.Transcription.SecondaryLanguage,
		},
		Log:           log,
		KnowledgeBase: kb,
		Display:       a.interviewDisplay,
		Notifier:      a.notifier,
		Metrics:       metrics,
		EngineOptions: engineOpts,
	})
	a.Interview.SetAutoSubmit(cfg.Assistant.AutoSubmit)

	a.Chat = kbchat.New(kbchat.Config{
		Chat:          providers.Chat,
		Log:           log,
		KnowledgeBase: kb,
		Staging:       a.staging,
		Display:       a.chatDisplay,
		Notifier:      a.notifier,
		Metrics:       metrics,
	})

	a.server = a.buildServer()

	return a, nil
}

// buildServer assembles the local control endpoints: health, readiness, and
// metrics.
func (a *App) buildServer() *http.Server {
	mux := http.NewServeMux()

	h := health.New(
		health.StorageChecker(a.store),
		health.ChatChecker(func() bool { return a.providers.Chat != nil }),
	)
	h.Register(mux)
	mux.Handle("GET /metrics", a.metrics.Handler())

	return &http.Server{
		Addr:              a.cfg.Server.ListenAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

// KnowledgeBase exposes the shared knowledge base.
func (a *App) KnowledgeBase() *convo.KnowledgeBase { return a.kb }

// InterviewDisplay exposes the interview display text source.
func (a *App) InterviewDisplay() *render.Display { return a.interviewDisplay }

// ChatDisplay exposes the knowledge chat display text source.
func (a *App) ChatDisplay() *render.Display { return a.chatDisplay }

// ApplyChatConfig rebuilds the chat provider from cc and swaps it into both
// sessions. Called by the settings flow after a save.
func (a *App) ApplyChatConfig(cc config.ChatConfig) error {
	if !cc.Configured() {
		return errors.New("app: chat settings incomplete")
	}
	chat, err := BuildChatProvider(cc)
	if err != nil {
		return fmt.Errorf("app: rebuild chat provider: %w", err)
	}
	a.providers.Chat = chat
	a.Interview.SetChatProvider(chat)
	a.Chat.SetChatProvider(chat)
	a.cfg.Chat = cc
	return nil
}

// TestChatConfig sends a one-token probe request with the given settings.
// Unlike the normal flows this surfaces the provider's error text, so the
// operator can diagnose credential problems.
func (a *App) TestChatConfig(ctx context.Context, cc config.ChatConfig) error {
	if !cc.Configured() {
		return errors.New("app: api key and model are required")
	}
	chat, err := BuildChatProvider(cc)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if _, err := chat.Complete(ctx, llm.CompletionRequest{
		Messages:  []llm.Message{llm.UserText("ping")},
		MaxTokens: 1,
	}); err != nil {
		return err
	}
	return nil
}

// Run serves the control endpoints and the auto-submit backstop until ctx is
// cancelled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		slog.Info("control server listening", "addr", a.server.Addr)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	go a.Interview.RunAutoSubmit(ctx)

	select {
	case err := <-errCh:
		return fmt.Errorf("app: control server: %w", err)
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown stops capture, the control server, and every subsystem, in order.
// Safe to call more than once.
func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error
	a.stopOnce.Do(func() {
		slog.Info("shutting down", "closers", len(a.closers))

		if err := a.Interview.StopCapture(); err != nil {
			slog.Warn("capture stop error", "err", err)
		}
		if err := a.server.Shutdown(ctx); err != nil {
			slog.Warn("control server shutdown error", "err", err)
		}

		for i, closer := range a.closers {
			select {
			case <-ctx.Done():
				slog.Warn("shutdown deadline exceeded", "remaining", len(a.closers)-i)
				shutdownErr = ctx.Err()
				return
			default:
			}
			if err := closer(); err != nil {
				slog.Warn("closer error", "index", i, "err", err)
			}
		}

		slog.Info("shutdown complete")
	})
	return shutdownErr
}
