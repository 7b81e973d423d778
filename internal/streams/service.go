package streams

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultHeartbeatTTL is how long a live stream may go without a heartbeat
// before the reaper marks it offline.
const DefaultHeartbeatTTL = 60 * time.Second

// ErrInvalidStream is returned when a create request is missing the owner.
var ErrInvalidStream = errors.New("stream owner is required")

// Service applies the stream lifecycle rules and delegates storage to
// Repository.
type Service struct {
	repo Repository
	ttl  time.Duration
	now  func() time.Time

	listenerMu sync.RWMutex
	listener   func(Event)
}

// NewService returns a Service that uses repo and treats live streams without
// a heartbeat for ttl as gone. If ttl <= 0, DefaultHeartbeatTTL is used.
func NewService(repo Repository, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = DefaultHeartbeatTTL
	}
	return &Service{repo: repo, ttl: ttl, now: func() time.Time { return time.Now().UTC() }}
}

// OnEvent sets the function called after a stream goes live or offline.
// It is called outside any repository lock.
func (s *Service) OnEvent(fn func(Event)) {
	s.listenerMu.Lock()
	defer s.listenerMu.Unlock()
	s.listener = fn
}

func (s *Service) emit(kind EventKind, id StreamID, at time.Time) {
	s.listenerMu.RLock()
	fn := s.listener
	s.listenerMu.RUnlock()
	if fn != nil {
		fn(Event{Kind: kind, StreamID: id, At: at})
	}
}

// Create registers a new offline stream owned by userID.
func (s *Service) Create(userID, title string, isPublic bool) (Stream, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return Stream{}, ErrInvalidStream
	}
	st := Stream{
		ID:        StreamID(uuid.NewString()),
		UserID:    userID,
		Title:     strings.TrimSpace(title),
		IsPublic:  isPublic,
		CreatedAt: s.now(),
	}
	if err := s.repo.Insert(st); err != nil {
		return Stream{}, err
	}
	return st, nil
}

// Get returns the stream with the given id.
func (s *Service) Get(id StreamID) (Stream, bool) {
	return s.repo.Get(id)
}

// ListByUser returns the user's streams, oldest first.
func (s *Service) ListByUser(userID string) []Stream {
	return s.repo.ListByUser(userID)
}

// IsOwner reports whether userID owns the stream.
func (s *Service) IsOwner(id StreamID, userID string) bool {
	st, ok := s.repo.Get(id)
	return ok && userID != "" && st.UserID == userID
}

// Start marks the stream live. Starting a live stream is a no-op.
func (s *Service) Start(id StreamID) (Stream, error) {
	now := s.now()
	changed := false
	st, err := s.repo.Update(id, func(st *Stream) error {
		if st.IsLive {
			return nil
		}
		changed = true
		st.IsLive = true
		st.StartedAt = &now
		st.LastHeartbeat = &now
		return nil
	})
	if err != nil {
		return Stream{}, err
	}
	if changed {
		s.emit(EventStarted, id, now)
	}
	return st, nil
}

// Stop marks the stream offline. Stopping an offline stream is a no-op.
func (s *Service) Stop(id StreamID) (Stream, error) {
	now := s.now()
	changed := false
	st, err := s.repo.Update(id, func(st *Stream) error {
		if !st.IsLive {
			return nil
		}
		changed = true
		st.IsLive = false
		return nil
	})
	if err != nil {
		return Stream{}, err
	}
	if changed {
		s.emit(EventStopped, id, now)
	}
	return st, nil
}

// SetPublic changes the stream's visibility.
func (s *Service) SetPublic(id StreamID, isPublic bool) (Stream, error) {
	return s.repo.Update(id, func(st *Stream) error {
		st.IsPublic = isPublic
		return nil
	})
}

// Heartbeat records that the stream's broadcaster is still present. It fails
// with ErrStreamNotFound or ErrStreamNotLive.
func (s *Service) Heartbeat(id StreamID) error {
	now := s.now()
	_, err := s.repo.Update(id, func(st *Stream) error {
		if !st.IsLive {
			return ErrStreamNotLive
		}
		st.LastHeartbeat = &now
		return nil
	})
	return err
}

// Reap marks offline every live stream whose last heartbeat is older than
// the TTL and returns their ids.
func (s *Service) Reap() []StreamID {
	now := s.now()
	cutoff := now.Add(-s.ttl)

	var reaped []StreamID
	for _, st := range s.repo.ListLive() {
		if st.LastHeartbeat != nil && st.LastHeartbeat.After(cutoff) {
			continue
		}
		stale := false
		_, err := s.repo.Update(st.ID, func(cur *Stream) error {
			// a heartbeat may have landed since ListLive
			if !cur.IsLive || (cur.LastHeartbeat != nil && cur.LastHeartbeat.After(cutoff)) {
				return nil
			}
			stale = true
			cur.IsLive = false
			return nil
		})
		if err != nil || !stale {
			continue
		}
		reaped = append(reaped, st.ID)
		s.emit(EventStopped, st.ID, now)
	}
	return reaped
}

// LiveStreamCount returns the number of live streams.
func (s *Service) LiveStreamCount() int {
	return s.repo.LiveStreamCount()
}
