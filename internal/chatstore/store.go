// Package chatstore persists broadcast chat lines so late joiners can load
// recent history.
package chatstore

import (
	"context"
	"fmt"
	"strings"

	"streamchat/internal/chat"
)

const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Store appends chat lines and returns the most recent ones per stream.
type Store interface {
	// Append stores msg. Appending an id that already exists is a no-op.
	Append(ctx context.Context, msg chat.Message) error

	// Recent returns at most limit messages for streamID, oldest first.
	Recent(ctx context.Context, streamID string, limit int) ([]chat.Message, error)

	Close() error
}

// Open returns the Store for driver. dsn is a file path for sqlite and a
// connection string for postgres; it is ignored for memory.
func Open(ctx context.Context, driver, dsn string) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "", DriverMemory:
		return NewMemoryStore(0), nil
	case DriverSQLite, "sqlite3":
		s, err := OpenSQLite(ctx, dsn)
		if err != nil {
			return nil, err
		}
		return s, nil
	case DriverPostgres, "postgresql", "pgx":
		s, err := OpenPostgres(ctx, dsn)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("chatstore: unknown driver %q", driver)
	}
}
