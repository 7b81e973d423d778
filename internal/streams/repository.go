package streams

import (
	"errors"
	"sort"
	"sync"
)

// Repository defines the concurrency-safe contract for reading and mutating
// stream records. Returned values are copies.
type Repository interface {
	// Insert stores a new stream. It fails with ErrStreamExists if the id is
	// taken.
	Insert(s Stream) error

	// Get returns the stream with the given id.
	Get(id StreamID) (Stream, bool)

	// Update applies fn to the stored stream under the write lock. If fn
	// returns an error the record is left unchanged.
	Update(id StreamID, fn func(s *Stream) error) (Stream, error)

	// ListByUser returns the user's streams ordered by creation time.
	ListByUser(userID string) []Stream

	// ListLive returns every live stream ordered by creation time.
	ListLive() []Stream

	// LiveStreamCount returns the number of live streams. Used for metrics.
	LiveStreamCount() int
}

var (
	// ErrStreamNotFound is returned for an unknown stream id.
	ErrStreamNotFound = errors.New("stream not found")

	// ErrStreamExists is returned when inserting a duplicate id.
	ErrStreamExists = errors.New("stream already exists")

	// ErrStreamNotLive is returned for a heartbeat on an offline stream.
	ErrStreamNotLive = errors.New("stream is not live")
)

// InMemoryRepository is a concurrency-safe implementation of Repository.
// It uses a Store for persistence; by default that is an InMemoryStore.
type InMemoryRepository struct {
	mu    sync.RWMutex
	store Store
}

// NewInMemoryRepository constructs a new repository with a default in-memory store.
func NewInMemoryRepository() *InMemoryRepository {
	return NewInMemoryRepositoryWithStore(NewInMemoryStore())
}

// NewInMemoryRepositoryWithStore constructs a repository that uses the given Store.
func NewInMemoryRepositoryWithStore(store Store) *InMemoryRepository {
	return &InMemoryRepository{store: store}
}

// Insert implements Repository.Insert.
func (r *InMemoryRepository) Insert(s Stream) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.store.GetStream(s.ID); exists {
		return ErrStreamExists
	}
	r.store.SetStream(&s)
	return nil
}

// Get implements Repository.Get.
func (r *InMemoryRepository) Get(id StreamID) (Stream, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	st, ok := r.store.GetStream(id)
	if !ok {
		return Stream{}, false
	}
	return *st, true
}

// Update implements Repository.Update.
func (r *InMemoryRepository) Update(id StreamID, fn func(s *Stream) error) (Stream, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	st, ok := r.store.GetStream(id)
	if !ok {
		return Stream{}, ErrStreamNotFound
	}

	// mutate a copy so a failed fn leaves the record untouched
	next := *st
	if err := fn(&next); err != nil {
		return *st, err
	}
	r.store.SetStream(&next)
	return next, nil
}

// ListByUser implements Repository.ListByUser.
func (r *InMemoryRepository) ListByUser(userID string) []Stream {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.collect(r.store.ListUserStreamIDs(userID), nil)
}

// ListLive implements Repository.ListLive.
func (r *InMemoryRepository) ListLive() []Stream {
	return r.list(func(s *Stream) bool { return s.IsLive })
}

// LiveStreamCount implements Repository.LiveStreamCount.
func (r *InMemoryRepository) LiveStreamCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, id := range r.store.ListStreamIDs() {
		if st, ok := r.store.GetStream(id); ok && st.IsLive {
			n++
		}
	}
	return n
}

func (r *InMemoryRepository) list(keep func(*Stream) bool) []Stream {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.collect(r.store.ListStreamIDs(), keep)
}

// collect copies the records for ids that pass keep (nil keeps all), sorted
// by creation time then id. Caller must hold r.mu.
func (r *InMemoryRepository) collect(ids []StreamID, keep func(*Stream) bool) []Stream {
	out := make([]Stream, 0, len(ids))
	for _, id := range ids {
		if st, ok := r.store.GetStream(id); ok && (keep == nil || keep(st)) {
			out = append(out, *st)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}
