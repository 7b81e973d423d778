package chatstore

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"streamchat/internal/chat"
)

const postgresSchema = `
create table if not exists chat_messages (
  seq bigserial primary key,
  id text not null unique,
  stream_id text not null,
  user_id text not null,
  username text not null,
  avatar_url text,
  content text not null,
  kind text not null,
  amount bigint not null default 0,
  currency text,
  color text,
  is_moderator boolean not null default false,
  is_pinned boolean not null default false,
  sent_at timestamptz not null
);
create index if not exists chat_messages_stream_seq on chat_messages (stream_id, seq);`

// PostgresStore persists messages in PostgreSQL through a pgx pool.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// OpenPostgres connects to dsn, pings, and migrates the schema.
func OpenPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres: empty dsn")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: migrate chat_messages: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

// Append implements Store.Append.
func (s *PostgresStore) Append(ctx context.Context, msg chat.Message) error {
	const q = `
insert into chat_messages (
  id, stream_id, user_id, username, avatar_url, content, kind,
  amount, currency, color, is_moderator, is_pinned, sent_at
) values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
on conflict (id) do nothing;`

	_, err := s.pool.Exec(ctx, q,
		msg.ID, msg.StreamID, msg.UserID, msg.Username, msg.AvatarURL, msg.Content, string(msg.Kind),
		msg.Amount, msg.Currency, msg.Color, msg.IsModeratorMessage, msg.IsPinned, msg.Timestamp.UTC(),
	)
	if err != nil {
		return fmt.Errorf("postgres: insert message: %w", err)
	}
	return nil
}

// Recent implements Store.Recent.
func (s *PostgresStore) Recent(ctx context.Context, streamID string, limit int) ([]chat.Message, error) {
	const q = `
select id, stream_id, user_id, username, coalesce(avatar_url, ''), content, kind,
  amount, coalesce(currency, ''), coalesce(color, ''), is_moderator, is_pinned, sent_at
from (
  select * from chat_messages where stream_id = $1 order by seq desc limit $2
) recent order by seq asc;`

	var lim any
	if limit > 0 {
		lim = limit
	}
	rows, err := s.pool.Query(ctx, q, streamID, lim)
	if err != nil {
		return nil, fmt.Errorf("postgres: query messages: %w", err)
	}

	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (chat.Message, error) {
		var (
			msg  chat.Message
			kind string
		)
		err := row.Scan(&msg.ID, &msg.StreamID, &msg.UserID, &msg.Username, &msg.AvatarURL, &msg.Content, &kind,
			&msg.Amount, &msg.Currency, &msg.Color, &msg.IsModeratorMessage, &msg.IsPinned, &msg.Timestamp)
		msg.Kind = chat.Kind(kind)
		msg.Timestamp = msg.Timestamp.UTC()
		return msg, err
	})
	if err != nil {
		return nil, fmt.Errorf("postgres: scan messages: %w", err)
	}
	return out, nil
}

// Close implements Store.Close.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
