package chatstore

import (
	"context"
	"sync"

	"streamchat/internal/chat"
)

// DefaultMemoryCap is the number of messages kept per stream by MemoryStore.
const DefaultMemoryCap = 500

// MemoryStore keeps the newest messages of each stream in memory.
type MemoryStore struct {
	mu       sync.RWMutex
	capacity int
	streams  map[string][]chat.Message
	seen     map[string]struct{}
}

// NewMemoryStore returns a store that keeps up to capacity messages per
// stream. If capacity <= 0, DefaultMemoryCap is used.
func NewMemoryStore(capacity int) *MemoryStore {
	if capacity <= 0 {
		capacity = DefaultMemoryCap
	}
	return &MemoryStore{
		capacity: capacity,
		streams:  make(map[string][]chat.Message),
		seen:     make(map[string]struct{}),
	}
}

// Append implements Store.Append.
func (s *MemoryStore) Append(_ context.Context, msg chat.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if msg.ID != "" {
		if _, dup := s.seen[msg.ID]; dup {
			return nil
		}
		s.seen[msg.ID] = struct{}{}
	}

	log := append(s.streams[msg.StreamID], msg)
	if len(log) > s.capacity {
		for _, old := range log[:len(log)-s.capacity] {
			delete(s.seen, old.ID)
		}
		log = append([]chat.Message(nil), log[len(log)-s.capacity:]...)
	}
	s.streams[msg.StreamID] = log
	return nil
}

// Recent implements Store.Recent.
func (s *MemoryStore) Recent(_ context.Context, streamID string, limit int) ([]chat.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	log := s.streams[streamID]
	if limit > 0 && len(log) > limit {
		log = log[len(log)-limit:]
	}
	out := make([]chat.Message, len(log))
	copy(out, log)
	return out, nil
}

// Close implements Store.Close.
func (s *MemoryStore) Close() error { return nil }
