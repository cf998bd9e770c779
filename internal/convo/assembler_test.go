package convo

import (
	"testing"

	"github.com/nohairblingbling/interview-assistant/pkg/provider/llm"
)

func roleContent(m llm.Message) [2]string { return [2]string{m.Role, m.Content} }

func TestAssembleInterview(t *testing.T) {
	t.Parallel()

	t.Run("knowledge base then history then new content", func(t *testing.T) {
		t.Parallel()
		got := AssembleInterview(
			[]string{"kb1"},
			[]Turn{{Role: "user", Content: "hi"}, {Role: "assistant", Content: "hello"}},
			"bye",
		)
		want := [][2]string{
			{"user", "kb1"},
			{"user", "hi"},
			{"assistant", "hello"},
			{"user", "bye"},
		}
		if len(got) != len(want) {
			t.Fatalf("got %d messages, want %d", len(got), len(want))
		}
		for i, w := range want {
			if roleContent(got[i]) != w {
				t.Errorf("message %d = %v, want %v", i, roleContent(got[i]), w)
			}
		}
	})

	t.Run("empty state yields only the new content", func(t *testing.T) {
		t.Parallel()
		got := AssembleInterview(nil, nil, "first question")
		if len(got) != 1 {
			t.Fatalf("got %d messages, want 1", len(got))
		}
		if got[0].Role != "user" || got[0].Content != "first question" {
			t.Errorf("message = %+v", got[0])
		}
	})

	t.Run("image knowledge items become image messages", func(t *testing.T) {
		t.Parallel()
		const data = "data:image/png;base64,iVBORw0KGgo="
		got := AssembleInterview([]string{data, "plain notes"}, nil, "go")
		if got[0].ImageURL != data {
			t.Errorf("image item not preserved: %+v", got[0])
		}
		if got[0].Content != "" {
			t.Errorf("image message should carry no text content, got %q", got[0].Content)
		}
		if got[1].ImageURL != "" || got[1].Content != "plain notes" {
			t.Errorf("plain item mangled: %+v", got[1])
		}
	})

	t.Run("history image references preserved", func(t *testing.T) {
		t.Parallel()
		const data = "data:image/jpeg;base64,/9j/4AAQ"
		got := AssembleInterview(nil, []Turn{{Role: "user", Content: "see this", ImageURL: data}}, "next")
		if got[0].ImageURL != data || got[0].Content != "see this" {
			t.Errorf("history turn mangled: %+v", got[0])
		}
	})
}

func TestAssembleKnowledgeChat(t *testing.T) {
	t.Parallel()

	t.Run("persona first then kb history files new", func(t *testing.T) {
		t.Parallel()
		got := AssembleKnowledgeChat(
			[]string{"kb1"},
			[]string{"file contents"},
			[]Turn{{Role: "user", Content: "hi"}, {Role: "assistant", Content: "hello"}},
			"bye",
		)
		want := [][2]string{
			{"system", Persona},
			{"user", "kb1"},
			{"user", "hi"},
			{"assistant", "hello"},
			{"user", "file contents"},
			{"user", "bye"},
		}
		if len(got) != len(want) {
			t.Fatalf("got %d messages, want %d", len(got), len(want))
		}
		for i, w := range want {
			if roleContent(got[i]) != w {
				t.Errorf("message %d = %v, want %v", i, roleContent(got[i]), w)
			}
		}
	})

	t.Run("image file uploads become image messages", func(t *testing.T) {
		t.Parallel()
		const data = "data:image/png;base64,AAAA"
		got := AssembleKnowledgeChat(nil, []string{data}, nil, "what is in the picture")
		if got[1].ImageURL != data {
			t.Errorf("file image not preserved: %+v", got[1])
		}
	})
}
