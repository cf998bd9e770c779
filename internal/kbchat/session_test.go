package kbchat

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nohairblingbling/interview-assistant/internal/convo"
	"github.com/nohairblingbling/interview-assistant/internal/render"
	"github.com/nohairblingbling/interview-assistant/internal/store"
	"github.com/nohairblingbling/interview-assistant/internal/upload"
	"github.com/nohairblingbling/interview-assistant/pkg/provider/llm"
	llmmock "github.com/nohairblingbling/interview-assistant/pkg/provider/llm/mock"
)

type fixture struct {
	session *Session
	chat    *llmmock.Provider
	log     *convo.Log
	kb      *convo.KnowledgeBase
	staging *upload.Staging
	display *render.Display
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	st, err := store.Open(filepath.Join(t.TempDir(), "kbchat.db"))
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
		chat:    &llmmock.Provider{},
		log:     log,
		kb:      kb,
		staging: upload.NewStaging(),
		display: render.NewDisplay(
			render.WithRevealTick(time.Millisecond),
			render.WithRevealPause(time.Millisecond),
		),
	}
	f.session = New(Config{
		Chat:          f.chat,
		Log:           log,
		KnowledgeBase: kb,
		Staging:       f.staging,
		Display:       f.display,
	})
	return f
}

func replyWith(text string) func(context.Context, llm.CompletionRequest) (*llm.CompletionResponse, error) {
	return func(context.Context, llm.CompletionRequest) (*llm.CompletionResponse, error) {
		return &llm.CompletionResponse{Content: text}, nil
	}
}

func TestSend(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("persona leads the message list", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		f.chat.CompleteFunc = replyWith("hello there")

		done, err := f.session.Send(ctx, "introduce yourself")
		if err != nil {
			t.Fatalf("send: %v", err)
		}
		<-done

		msgs := f.chat.Calls()[0].Messages
		if msgs[0].Role != "system" || msgs[0].Content != convo.Persona {
			t.Errorf("first message = %+v, want persona system turn", msgs[0])
		}
		if got := f.display.Text(); got != "hello there\n\n" {
			t.Errorf("display = %q", got)
		}
		turns := f.log.Turns()
		if len(turns) != 2 || turns[0].Content != "introduce yourself" {
			t.Errorf("turns = %+v", turns)
		}
	})

	t.Run("staged files are named and cleared", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		f.chat.CompleteFunc = replyWith("reviewed")

		dir := t.TempDir()
		path := filepath.Join(dir, "resume.txt")
		if err := os.WriteFile(path, []byte("ten years of go"), 0o644); err != nil {
			t.Fatal(err)
		}
		if err := f.staging.Attach(ctx, path); err != nil {
			t.Fatalf("attach: %v", err)
		}

		done, err := f.session.Send(ctx, "review my resume")
		if err != nil {
			t.Fatalf("send: %v", err)
		}
		<-done

		msgs := f.chat.Calls()[0].Messages
		// persona, file content, then the labeled message.
		if msgs[1].Content != "ten years of go" {
			t.Errorf("file turn = %+v", msgs[1])
		}
		want := "[Files: resume.txt] review my resume"
		if msgs[2].Content != want {
			t.Errorf("final turn = %q, want %q", msgs[2].Content, want)
		}
		if turns := f.log.Turns(); turns[0].Content != want {
			t.Errorf("logged user turn = %q", turns[0].Content)
		}
		if len(f.staging.Files()) != 0 {
			t.Error("staging should be cleared after success")
		}
	})

	t.Run("files without a message get a default prompt", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		f.chat.CompleteFunc = replyWith("looks good")

		path := filepath.Join(t.TempDir(), "cv.txt")
		if err := os.WriteFile(path, []byte("cv text"), 0o644); err != nil {
			t.Fatal(err)
		}
		if err := f.staging.Attach(ctx, path); err != nil {
			t.Fatalf("attach: %v", err)
		}

		done, err := f.session.Send(ctx, "")
		if err != nil {
			t.Fatalf("send: %v", err)
		}
		<-done

		want := "Please analyze the attached files: cv.txt"
		if turns := f.log.Turns(); turns[0].Content != want {
			t.Errorf("logged user turn = %q, want %q", turns[0].Content, want)
		}
	})

	t.Run("empty message rejected", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		if _, err := f.session.Send(ctx, "   "); err == nil {
			t.Fatal("expected error")
		}
		if len(f.chat.Calls()) != 0 {
			t.Error("no request should be sent")
		}
	})

	t.Run("missing provider", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		f.session.SetChatProvider(nil)
		if _, err := f.session.Send(ctx, "hi"); !errors.Is(err, ErrNotConfigured) {
			t.Fatalf("err = %v, want ErrNotConfigured", err)
		}
	})

	t.Run("failure keeps staged files and logs nothing", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		f.chat.CompleteFunc = func(context.Context, llm.CompletionRequest) (*llm.CompletionResponse, error) {
			return nil, errors.New("upstream 503")
		}

		dir := t.TempDir()
		path := filepath.Join(dir, "notes.txt")
		if err := os.WriteFile(path, []byte("notes"), 0o644); err != nil {
			t.Fatal(err)
		}
		if err := f.staging.Attach(ctx, path); err != nil {
			t.Fatalf("attach: %v", err)
		}

		if _, err := f.session.Send(ctx, "hello"); err == nil {
			t.Fatal("expected error")
		}
		if got := f.log.Turns(); len(got) != 0 {
			t.Errorf("turns = %+v, want none", got)
		}
		if len(f.staging.Files()) != 1 {
			t.Error("staged files must survive a failed request")
		}
	})
}

func TestClearChat(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	f := newFixture(t)
	f.chat.CompleteFunc = replyWith("reply")
	done, err := f.session.Send(ctx, "hello")
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	<-done

	if err := f.session.ClearChat(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if got := f.log.Turns(); len(got) != 0 {
		t.Errorf("turns = %+v", got)
	}
	if got := f.display.Text(); got != "" {
		t.Errorf("display = %q", got)
	}
}
