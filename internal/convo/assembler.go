package convo

import (
	"github.com/nohairblingbling/interview-assistant/pkg/provider/llm"
)

// AssembleInterview builds the provider message list for an interview
// submission: knowledge base items as user turns in insertion order, then the
// conversation history, then the newly transcribed content as the final user
// turn.
func AssembleInterview(kb []string, history []Turn, newContent string) []llm.Message {
	msgs := make([]llm.Message, 0, len(kb)+len(history)+1)
	msgs = appendContents(msgs, kb)
	msgs = appendHistory(msgs, history)
	return append(msgs, llm.UserText(newContent))
}

// AssembleKnowledgeChat builds the provider message list for a knowledge-base
// chat turn. The persona system instruction comes first, then knowledge base
// items, then the conversation history, then staged file contents, and the
// new message last.
func AssembleKnowledgeChat(kb, files []string, history []Turn, newContent string) []llm.Message {
	msgs := make([]llm.Message, 0, 1+len(kb)+len(files)+len(history)+1)
	msgs = append(msgs, llm.SystemText(Persona))
	msgs = appendContents(msgs, kb)
	msgs = appendHistory(msgs, history)
	msgs = appendContents(msgs, files)
	return append(msgs, llm.UserText(newContent))
}

// appendContents adds each content string as a user turn. Inline image data
// becomes an image message so the encoded bytes reach the provider untouched.
func appendContents(msgs []llm.Message, contents []string) []llm.Message {
	for _, c := range contents {
		if llm.IsImageData(c) {
			msgs = append(msgs, llm.UserImage(c))
		} else {
			msgs = append(msgs, llm.UserText(c))
		}
	}
	return msgs
}

// appendHistory adds logged turns, preserving image references.
func appendHistory(msgs []llm.Message, history []Turn) []llm.Message {
	for _, t := range history {
		if t.ImageURL != "" {
			msgs = append(msgs, llm.Message{Role: t.Role, Content: t.Content, ImageURL: t.ImageURL})
		} else {
			msgs = append(msgs, llm.Message{Role: t.Role, Content: t.Content})
		}
	}
	return msgs
}
