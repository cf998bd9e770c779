package interview

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/nohairblingbling/interview-assistant/internal/autosubmit"
	"github.com/nohairblingbling/interview-assistant/internal/capture"
	"github.com/nohairblingbling/interview-assistant/internal/convo"
	"github.com/nohairblingbling/interview-assistant/internal/render"
	"github.com/nohairblingbling/interview-assistant/internal/store"
	"github.com/nohairblingbling/interview-assistant/pkg/provider/llm"
	llmmock "github.com/nohairblingbling/interview-assistant/pkg/provider/llm/mock"
	sttmock "github.com/nohairblingbling/interview-assistant/pkg/provider/stt/mock"
)

type recordingNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (n *recordingNotifier) Notify(message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, message)
}

func (n *recordingNotifier) all() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, len(n.messages))
	copy(out, n.messages)
	return out
}

type idleSource struct{}

func (idleSource) SampleRate() int                  { return 16000 }
func (idleSource) ReadBlock([]float32) (int, error) { return 0, io.EOF }
func (idleSource) Close() error                     { return nil }

type fixture struct {
	session  *Session
	chat     *llmmock.Provider
	stt      *sttmock.Provider
	log      *convo.Log
	kb       *convo.KnowledgeBase
	display  *render.Display
	notifier *recordingNotifier
}

func newFixture(t *testing.T, engineOpts ...autosubmit.Option) *fixture {
	t.Helper()
	ctx := context.Background()

	st, err := store.Open(filepath.Join(t.TempDir(), "session.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	log, err := convo.LoadLog(ctx, st)
	if err != nil {
		t.Fatalf("load log: %v", err)
	}
	kb, err := convo.LoadKnowledgeBase(ctx, st)
	if err != nil {
		t.Fatalf("load kb: %v", err)
	}

	f := &fixture{
		chat:     &llmmock.Provider{},
		stt:      &sttmock.Provider{Session: sttmock.NewSession()},
		log:      log,
		kb:       kb,
		display:  render.NewDisplay(),
		notifier: &recordingNotifier{},
	}
	f.session = New(Config{
		Chat:          f.chat,
		STT:           f.stt,
		NewSource:     func(context.Context) (capture.Source, error) { return idleSource{}, nil },
		Log:           log,
		KnowledgeBase: kb,
		Display:       f.display,
		Notifier:      f.notifier,
		EngineOptions: engineOpts,
	})
	return f
}

func replyWith(text string) func(context.Context, llm.CompletionRequest) (*llm.CompletionResponse, error) {
	return func(context.Context, llm.CompletionRequest) (*llm.CompletionResponse, error) {
		return &llm.CompletionResponse{Content: text}, nil
	}
}

func TestSubmit(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("successful submission records and displays", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		f.chat.CompleteFunc = replyWith("  answer text \n")

		f.session.OnFragment("what is your biggest weakness")
		if err := f.session.Submit(ctx); err != nil {
			t.Fatalf("submit: %v", err)
		}

		turns := f.log.Turns()
		if len(turns) != 2 {
			t.Fatalf("got %d turns, want 2", len(turns))
		}
		if turns[0].Role != "user" || turns[0].Content != "what is your biggest weakness" {
			t.Errorf("user turn = %+v", turns[0])
		}
		if turns[1].Role != "assistant" || turns[1].Content != "answer text" {
			t.Errorf("assistant turn = %+v, reply should be trimmed", turns[1])
		}
		if got := f.display.Text(); got != "answer text" {
			t.Errorf("display = %q", got)
		}
		if f.session.Transcript().HasUnsent() {
			t.Error("cursor should cover the submitted span")
		}
	})

	t.Run("knowledge base and history precede new content", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		f.chat.CompleteFunc = replyWith("hello")
		if _, err := f.kb.Add(ctx, "kb1"); err != nil {
			t.Fatal(err)
		}

		f.session.OnFragment("hi")
		if err := f.session.Submit(ctx); err != nil {
			t.Fatalf("submit: %v", err)
		}

		f.session.OnFragment("bye")
		if err := f.session.Submit(ctx); err != nil {
			t.Fatalf("submit: %v", err)
		}

		calls := f.chat.Calls()
		if len(calls) != 2 {
			t.Fatalf("got %d calls, want 2", len(calls))
		}
		msgs := calls[1].Messages
		want := [][2]string{
			{"user", "kb1"},
			{"user", "hi"},
			{"assistant", "hello"},
			{"user", "bye"},
		}
		if len(msgs) != len(want) {
			t.Fatalf("got %d messages, want %d", len(msgs), len(want))
		}
		for i, w := range want {
			if msgs[i].Role != w[0] || msgs[i].Content != w[1] {
				t.Errorf("message %d = %s:%q, want %s:%q", i, msgs[i].Role, msgs[i].Content, w[0], w[1])
			}
		}
	})

	t.Run("empty buffer is a quiet no-op", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		if err := f.session.Submit(ctx); err != nil {
			t.Fatalf("submit: %v", err)
		}
		if len(f.chat.Calls()) != 0 {
			t.Error("no request should be sent for an empty buffer")
		}
	})

	t.Run("missing provider surfaces configuration error", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		f.session.SetChatProvider(nil)
		f.session.OnFragment("hello")
		if err := f.session.Submit(ctx); !errors.Is(err, ErrNotConfigured) {
			t.Fatalf("err = %v, want ErrNotConfigured", err)
		}
		if len(f.notifier.all()) == 0 {
			t.Error("operator should be notified")
		}
	})
}

func TestSubmitRecordsSpan(t *testing.T) {
	exp := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exp))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	origTP := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { otel.SetTracerProvider(origTP) })

	f := newFixture(t)
	f.chat.CompleteFunc = replyWith("traced answer")
	f.session.OnFragment("a question")
	if err := f.session.Submit(context.Background()); err != nil {
		t.Fatalf("submit: %v", err)
	}

	for _, s := range exp.GetSpans() {
		if s.Name == "interview.submit" {
			return
		}
	}
	t.Error("no span recorded for the submission")
}

func TestFailureLeavesNoTrace(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	f := newFixture(t)
	f.chat.CompleteFunc = func(context.Context, llm.CompletionRequest) (*llm.CompletionResponse, error) {
		return nil, errors.New("upstream 500")
	}

	f.session.OnFragment("the question")
	if err := f.session.Submit(ctx); err == nil {
		t.Fatal("expected error")
	}

	if got := f.log.Turns(); len(got) != 0 {
		t.Errorf("log turns = %+v, want none", got)
	}
	if got := f.session.Transcript().Unsent(); got != "the question" {
		t.Errorf("unsent = %q, cursor must not advance on failure", got)
	}
	if f.display.Text() != "" {
		t.Errorf("display = %q, want empty", f.display.Text())
	}
	if len(f.notifier.all()) == 0 {
		t.Error("operator should be notified")
	}

	// The unsent span goes out with the next successful submission.
	f.chat.CompleteFunc = replyWith("recovered")
	if err := f.session.Submit(ctx); err != nil {
		t.Fatalf("retry: %v", err)
	}
	calls := f.chat.Calls()
	last := calls[len(calls)-1].Messages
	if last[len(last)-1].Content != "the question" {
		t.Errorf("retry content = %q", last[len(last)-1].Content)
	}
}

func TestNoDoubleFire(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	release := make(chan struct{})
	started := make(chan struct{}, 2)
	f.chat.CompleteFunc = func(context.Context, llm.CompletionRequest) (*llm.CompletionResponse, error) {
		started <- struct{}{}
		<-release
		return &llm.CompletionResponse{Content: "done"}, nil
	}

	f.session.OnFragment("a long question")

	f.session.TrySubmit()
	<-started

	// Second trigger while the first request is in flight must be a no-op.
	f.session.TrySubmit()
	if err := f.session.Submit(context.Background()); err == nil {
		t.Error("synchronous submit should report the in-flight request")
	}

	close(release)

	deadline := time.After(2 * time.Second)
	for len(f.chat.Calls()) == 0 {
		select {
		case <-deadline:
			t.Fatal("first request never completed")
		case <-time.After(5 * time.Millisecond):
		}
	}
	time.Sleep(20 * time.Millisecond)
	if got := len(f.chat.Calls()); got != 1 {
		t.Errorf("chat calls = %d, want 1", got)
	}
}

func TestAutoSubmitEndToEnd(t *testing.T) {
	t.Parallel()

	f := newFixture(t,
		autosubmit.WithQuietPeriod(30*time.Millisecond),
		autosubmit.WithPollInterval(10*time.Millisecond),
	)
	f.chat.CompleteFunc = replyWith("auto answer")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go f.session.RunAutoSubmit(ctx)

	f.session.SetAutoSubmit(true)
	f.session.OnFragment("tell me about a conflict")
	time.Sleep(15 * time.Millisecond)
	f.session.OnFragment("you resolved at work")

	deadline := time.After(2 * time.Second)
	for f.display.Text() == "" {
		select {
		case <-deadline:
			t.Fatal("auto submission never fired")
		case <-time.After(5 * time.Millisecond):
		}
	}

	time.Sleep(80 * time.Millisecond)
	if got := len(f.chat.Calls()); got != 1 {
		t.Fatalf("chat calls = %d, want exactly 1", got)
	}
	msgs := f.chat.Calls()[0].Messages
	wantContent := "tell me about a conflict\nyou resolved at work"
	if msgs[len(msgs)-1].Content != wantContent {
		t.Errorf("submitted content = %q, want %q", msgs[len(msgs)-1].Content, wantContent)
	}
}

func TestCaptureFeedsTranscript(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	if err := f.session.StartCapture(context.Background()); err != nil {
		t.Fatalf("start capture: %v", err)
	}
	defer f.session.StopCapture()

	f.stt.Session.EmitFinal("first fragment")
	f.stt.Session.EmitFinal("first fragment")
	f.stt.Session.EmitFinal("second fragment")

	deadline := time.After(2 * time.Second)
	want := "first fragment\nsecond fragment"
	for f.session.Transcript().Text() != want {
		select {
		case <-deadline:
			t.Fatalf("transcript = %q, want %q", f.session.Transcript().Text(), want)
		case <-time.After(5 * time.Millisecond):
		}
	}

	if err := f.session.StopCapture(); err != nil {
		t.Fatalf("stop capture: %v", err)
	}
	if f.session.Capturing() {
		t.Error("session should be idle after stop")
	}
}
