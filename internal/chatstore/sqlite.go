package chatstore

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"streamchat/internal/chat"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS chat_messages (
	seq INTEGER PRIMARY KEY AUTOINCREMENT,
	id TEXT NOT NULL UNIQUE,
	stream_id TEXT NOT NULL,
	user_id TEXT NOT NULL,
	username TEXT NOT NULL,
	avatar_url TEXT,
	content TEXT NOT NULL,
	kind TEXT NOT NULL,
	amount INTEGER NOT NULL DEFAULT 0,
	currency TEXT,
	color TEXT,
	is_moderator INTEGER NOT NULL DEFAULT 0,
	is_pinned INTEGER NOT NULL DEFAULT 0,
	sent_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS chat_messages_stream_seq ON chat_messages (stream_id, seq);`

// SQLiteStore persists messages in a local SQLite file.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the database at path and migrates the
// schema. ":memory:" gives a throwaway database.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite: empty db path")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("sqlite: creating dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}

	// single writer; also keeps ":memory:" on one connection
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: migrate chat_messages: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Append implements Store.Append.
func (s *SQLiteStore) Append(ctx context.Context, msg chat.Message) error {
	const q = `
INSERT INTO chat_messages (
	id, stream_id, user_id, username, avatar_url, content, kind,
	amount, currency, color, is_moderator, is_pinned, sent_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (id) DO NOTHING`

	_, err := s.db.ExecContext(ctx, q,
		msg.ID, msg.StreamID, msg.UserID, msg.Username, msg.AvatarURL, msg.Content, string(msg.Kind),
		msg.Amount, msg.Currency, msg.Color, msg.IsModeratorMessage, msg.IsPinned, msg.Timestamp.UTC(),
	)
	if err != nil {
		return fmt.Errorf("sqlite: insert message: %w", err)
	}
	return nil
}

// Recent implements Store.Recent.
func (s *SQLiteStore) Recent(ctx context.Context, streamID string, limit int) ([]chat.Message, error) {
	if limit <= 0 {
		limit = -1
	}
	const q = `
SELECT id, stream_id, user_id, username, avatar_url, content, kind,
	amount, currency, color, is_moderator, is_pinned, sent_at
FROM chat_messages WHERE stream_id = ? ORDER BY seq DESC LIMIT ?`

	rows, err := s.db.QueryContext(ctx, q, streamID, limit)
	if err != nil {
		return nil, fmt.Errorf("sqlite: query messages: %w", err)
	}
	defer rows.Close()

	out := make([]chat.Message, 0)
	for rows.Next() {
		var msg chat.Message
		var kind string
		var avatar, currency, color sql.NullString
		var sentAt time.Time
		if err := rows.Scan(&msg.ID, &msg.StreamID, &msg.UserID, &msg.Username, &avatar, &msg.Content, &kind,
			&msg.Amount, &currency, &color, &msg.IsModeratorMessage, &msg.IsPinned, &sentAt); err != nil {
			return nil, fmt.Errorf("sqlite: scan message: %w", err)
		}
		msg.Kind = chat.Kind(kind)
		msg.AvatarURL = avatar.String
		msg.Currency = currency.String
		msg.Color = color.String
		msg.Timestamp = sentAt.UTC()
		out = append(out, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: read messages: %w", err)
	}

	// newest first from the query; callers want arrival order
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

// Close implements Store.Close.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
