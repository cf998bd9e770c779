// Package store persists knowledge base items and conversation history in a
// local SQLite database, so the assistant remembers context across restarts.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("store: not found")

// KnowledgeItem is a saved piece of background material (resume text, job
// description, notes) replayed into every interview conversation.
type KnowledgeItem struct {
	ID        int64
	Content   string
	CreatedAt time.Time
}

// Turn is one persisted conversation message.
type Turn struct {
	ID        int64
	Role      string
	Content   string
	ImageURL  string
	CreatedAt time.Time
}

const schema = `
CREATE TABLE IF NOT EXISTS knowledge_items (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	content    TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS conversation_turns (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	role       TEXT NOT NULL,
	content    TEXT NOT NULL,
	image_url  TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_turns_created ON conversation_turns(created_at);
`

// Store wraps the SQLite connection.
type Store struct {
	db   *sql.DB
	path string
}

// Open creates (if needed) and opens the database at path, applies the
// schema, and tunes SQLite for a single-process desktop workload.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("store: path must not be empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("store: create directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("store: configure sqlite: %w", err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: apply schema: %w", err)
	}

	return &Store{db: db, path: path}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("store: close database: %w", err)
	}
	return nil
}

// Path returns the database file path.
func (s *Store) Path() string { return s.path }

// PingContext verifies the database connection, for readiness checks.
func (s *Store) PingContext(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// AddKnowledgeItem saves a knowledge base entry and returns its id.
func (s *Store) AddKnowledgeItem(ctx context.Context, content string) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO knowledge_items (content) VALUES (?)`, content)
	if err != nil {
		return 0, fmt.Errorf("store: add knowledge item: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("store: add knowledge item: %w", err)
	}
	return id, nil
}

// KnowledgeItems returns all knowledge base entries, oldest first.
func (s *Store) KnowledgeItems(ctx context.Context) ([]KnowledgeItem, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, content, created_at FROM knowledge_items ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("store: list knowledge items: %w", err)
	}
	defer rows.Close()

	var items []KnowledgeItem
	for rows.Next() {
		var it KnowledgeItem
		if err := rows.Scan(&it.ID, &it.Content, &it.CreatedAt); err != nil {
			return nil, fmt.Errorf("store: scan knowledge item: %w", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: list knowledge items: %w", err)
	}
	return items, nil
}

// DeleteKnowledgeItem removes a knowledge base entry.
func (s *Store) DeleteKnowledgeItem(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM knowledge_items WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("store: delete knowledge item: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: delete knowledge item: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// AppendTurn saves a conversation message and returns it with ID and
// CreatedAt populated.
func (s *Store) AppendTurn(ctx context.Context, t Turn) (Turn, error) {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO conversation_turns (role, content, image_url, created_at) VALUES (?, ?, ?, ?)`,
		t.Role, t.Content, t.ImageURL, now)
	if err != nil {
		return Turn{}, fmt.Errorf("store: append turn: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Turn{}, fmt.Errorf("store: append turn: %w", err)
	}
	t.ID = id
	t.CreatedAt = now
	return t, nil
}

// Turns returns all conversation messages, oldest first.
func (s *Store) Turns(ctx context.Context) ([]Turn, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, role, content, image_url, created_at FROM conversation_turns ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("store: list turns: %w", err)
	}
	defer rows.Close()

	var turns []Turn
	for rows.Next() {
		var t Turn
		if err := rows.Scan(&t.ID, &t.Role, &t.Content, &t.ImageURL, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("store: scan turn: %w", err)
		}
		turns = append(turns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: list turns: %w", err)
	}
	return turns, nil
}

// ClearTurns deletes the whole conversation history.
func (s *Store) ClearTurns(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM conversation_turns`); err != nil {
		return fmt.Errorf("store: clear turns: %w", err)
	}
	return nil
}
