// Package convo holds the conversation state shared by interview and
// knowledge-base chat sessions: the persisted message log, the knowledge
// base, and the assembler that turns both into provider message lists.
package convo

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/nohairblingbling/interview-assistant/internal/store"
)

// Persona is the system instruction used in knowledge-base chat mode.
const Persona = "You are a highly helpful personal assistant. You can remember our conversations and carefully analyze the images and files I upload to help me accurately prepare for my upcoming interviews."

// Turn is one conversation message.
type Turn struct {
	Role     string
	Content  string
	ImageURL string
}

// TurnStore persists conversation turns.
type TurnStore interface {
	AppendTurn(ctx context.Context, t store.Turn) (store.Turn, error)
	Turns(ctx context.Context) ([]store.Turn, error)
	ClearTurns(ctx context.Context) error
}

// Log is the conversation history, mirrored in memory and persisted through a
// TurnStore so it survives restarts. Safe for concurrent use.
type Log struct {
	mu    sync.Mutex
	st    TurnStore
	turns []Turn
}

// LoadLog reads the persisted history into a new Log.
func LoadLog(ctx context.Context, st TurnStore) (*Log, error) {
	stored, err := st.Turns(ctx)
	if err != nil {
		return nil, fmt.Errorf("convo: load log: %w", err)
	}
	turns := make([]Turn, 0, len(stored))
	for _, t := range stored {
		turns = append(turns, Turn{Role: t.Role, Content: t.Content, ImageURL: t.ImageURL})
	}
	return &Log{st: st, turns: turns}, nil
}

// Turns returns a copy of the history in order.
func (l *Log) Turns() []Turn {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Turn, len(l.turns))
	copy(out, l.turns)
	return out
}

// AppendExchange records a completed request: the user's submitted content
// followed by the assistant's reply, trimmed of surrounding whitespace. Both
// turns are persisted before the in-memory log is updated, so a storage
// failure leaves the log unchanged.
func (l *Log) AppendExchange(ctx context.Context, userContent, reply string) error {
	reply = strings.TrimSpace(reply)

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, err := l.st.AppendTurn(ctx, store.Turn{Role: "user", Content: userContent}); err != nil {
		return fmt.Errorf("convo: append exchange: %w", err)
	}
	if _, err := l.st.AppendTurn(ctx, store.Turn{Role: "assistant", Content: reply}); err != nil {
		return fmt.Errorf("convo: append exchange: %w", err)
	}
	l.turns = append(l.turns,
		Turn{Role: "user", Content: userContent},
		Turn{Role: "assistant", Content: reply},
	)
	return nil
}

// Clear wipes the history, persisted and in-memory.
func (l *Log) Clear(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.st.ClearTurns(ctx); err != nil {
		return fmt.Errorf("convo: clear log: %w", err)
	}
	l.turns = nil
	return nil
}

// ItemStore persists knowledge base items.
type ItemStore interface {
	AddKnowledgeItem(ctx context.Context, content string) (int64, error)
	KnowledgeItems(ctx context.Context) ([]store.KnowledgeItem, error)
	DeleteKnowledgeItem(ctx context.Context, id int64) error
}

// KnowledgeBase holds the background material replayed into every
// conversation. Safe for concurrent use.
type KnowledgeBase struct {
	mu    sync.Mutex
	st    ItemStore
	items []store.KnowledgeItem
}

// LoadKnowledgeBase reads the persisted items into a new KnowledgeBase.
func LoadKnowledgeBase(ctx context.Context, st ItemStore) (*KnowledgeBase, error) {
	items, err := st.KnowledgeItems(ctx)
	if err != nil {
		return nil, fmt.Errorf("convo: load knowledge base: %w", err)
	}
	return &KnowledgeBase{st: st, items: items}, nil
}

// Add persists a new item and appends it to the in-memory list.
func (kb *KnowledgeBase) Add(ctx context.Context, content string) (int64, error) {
	kb.mu.Lock()
	defer kb.mu.Unlock()
	id, err := kb.st.AddKnowledgeItem(ctx, content)
	if err != nil {
		return 0, fmt.Errorf("convo: add knowledge item: %w", err)
	}
	kb.items = append(kb.items, store.KnowledgeItem{ID: id, Content: content})
	return id, nil
}

// Remove deletes an item by id.
func (kb *KnowledgeBase) Remove(ctx context.Context, id int64) error {
	kb.mu.Lock()
	defer kb.mu.Unlock()
	if err := kb.st.DeleteKnowledgeItem(ctx, id); err != nil {
		return fmt.Errorf("convo: remove knowledge item: %w", err)
	}
	for i, it := range kb.items {
		if it.ID == id {
			kb.items = append(kb.items[:i], kb.items[i+1:]...)
			break
		}
	}
	return nil
}

// Items returns a copy of the items in insertion order.
func (kb *KnowledgeBase) Items() []store.KnowledgeItem {
	kb.mu.Lock()
	defer kb.mu.Unlock()
	out := make([]store.KnowledgeItem, len(kb.items))
	copy(out, kb.items)
	return out
}

// Contents returns just the item contents in insertion order.
func (kb *KnowledgeBase) Contents() []string {
	kb.mu.Lock()
	defer kb.mu.Unlock()
	out := make([]string, len(kb.items))
	for i, it := range kb.items {
		out[i] = it.Content
	}
	return out
}
