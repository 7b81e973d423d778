package streams

import (
	"testing"
)

func TestInMemoryStore_GetSetStream(t *testing.T) {
	store := NewInMemoryStore()

	_, ok := store.GetStream(StreamID("s1"))
	if ok {
		t.Error("expected not found for empty store")
	}

	st := &Stream{ID: StreamID("s1"), UserID: "u1"}
	store.SetStream(st)

	got, ok := store.GetStream(StreamID("s1"))
	if !ok || got != st {
		t.Errorf("GetStream: ok=%v, got %p want %p", ok, got, st)
	}
}

func TestInMemoryStore_SetStream_replaces(t *testing.T) {
	store := NewInMemoryStore()
	st1 := &Stream{ID: StreamID("s1")}
	st2 := &Stream{ID: StreamID("s1"), IsLive: true}
	store.SetStream(st1)
	store.SetStream(st2)

	got, ok := store.GetStream(StreamID("s1"))
	if !ok || got != st2 {
		t.Errorf("SetStream should replace: got %p want %p", got, st2)
	}
	if ids := store.ListStreamIDs(); len(ids) != 1 {
		t.Errorf("expected 1 id, got %v", ids)
	}
}

func TestInMemoryStore_ListUserStreamIDs(t *testing.T) {
	store := NewInMemoryStore()
	store.SetStream(&Stream{ID: "a", UserID: "u1"})
	store.SetStream(&Stream{ID: "b", UserID: "u2"})
	store.SetStream(&Stream{ID: "c", UserID: "u1"})
	store.SetStream(&Stream{ID: "a", UserID: "u1", IsLive: true})

	got := store.ListUserStreamIDs("u1")
	if len(got) != 2 || got[0] != "a" || got[1] != "c" {
		t.Errorf("expected [a c], got %v", got)
	}
	if ids := store.ListUserStreamIDs("nobody"); len(ids) != 0 {
		t.Errorf("expected no ids, got %v", ids)
	}

	got[0] = "mutated"
	if again := store.ListUserStreamIDs("u1"); again[0] != "a" {
		t.Error("returned slice should be a copy")
	}
}

func TestNewInMemoryRepositoryWithStore(t *testing.T) {
	store := NewInMemoryStore()
	repo := NewInMemoryRepositoryWithStore(store)

	if err := repo.Insert(Stream{ID: "s1", UserID: "u1"}); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	st, ok := store.GetStream(StreamID("s1"))
	if !ok || st.UserID != "u1" {
		t.Error("injected store should contain stream after Insert")
	}
}
