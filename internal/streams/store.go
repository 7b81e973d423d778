package streams

// Store holds stream records. The Repository serialises access, so
// implementations need not be safe for concurrent use.
type Store interface {
	GetStream(id StreamID) (*Stream, bool)
	SetStream(s *Stream)
	ListStreamIDs() []StreamID

	// ListUserStreamIDs returns the ids owned by userID in insertion order.
	ListUserStreamIDs(userID string) []StreamID
}

// InMemoryStore keeps records in maps with a per-owner index.
type InMemoryStore struct {
	streams map[StreamID]*Stream
	byUser  map[string][]StreamID
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		streams: make(map[StreamID]*Stream),
		byUser:  make(map[string][]StreamID),
	}
}

func (s *InMemoryStore) GetStream(id StreamID) (*Stream, bool) {
	st, ok := s.streams[id]
	return st, ok
}

// SetStream inserts or replaces st. Ownership never changes after insert, so
// the owner index is only touched for new ids.
func (s *InMemoryStore) SetStream(st *Stream) {
	if _, exists := s.streams[st.ID]; !exists {
		s.byUser[st.UserID] = append(s.byUser[st.UserID], st.ID)
	}
	s.streams[st.ID] = st
}

// ListStreamIDs returns every id. Order is unspecified.
func (s *InMemoryStore) ListStreamIDs() []StreamID {
	ids := make([]StreamID, 0, len(s.streams))
	for id := range s.streams {
		ids = append(ids, id)
	}
	return ids
}

func (s *InMemoryStore) ListUserStreamIDs(userID string) []StreamID {
	ids := s.byUser[userID]
	out := make([]StreamID, len(ids))
	copy(out, ids)
	return out
}
