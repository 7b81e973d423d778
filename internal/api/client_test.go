package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/go-chi/chi/v5"
)

func newTestAPI(t *testing.T) (*Client, *atomic.Int32) {
	t.Helper()
	var heartbeats atomic.Int32

	r := chi.NewRouter()
	r.Get("/api/streams/user", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("userId") != "u 1" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		json.NewEncoder(w).Encode([]Stream{
			{ID: "s1", UserID: "u 1", IsLive: true, IsPublic: false},
			{ID: "s2", UserID: "u 1", IsLive: true, IsPublic: true},
		})
	})
	r.Post("/api/streams/{id}/heartbeat", func(w http.ResponseWriter, r *http.Request) {
		if chi.URLParam(r, "id") == "gone" {
			http.Error(w, "stream not found", http.StatusNotFound)
			return
		}
		heartbeats.Add(1)
		w.WriteHeader(http.StatusNoContent)
	})
	r.Post("/api/streams", func(w http.ResponseWriter, r *http.Request) {
		var req CreateStreamRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(Stream{ID: "new", UserID: req.UserID, Title: req.Title, IsPublic: req.IsPublic})
	})
	r.Put("/api/streams/{id}/start", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(Stream{ID: chi.URLParam(r, "id"), IsLive: true})
	})
	r.Get("/api/streams/{id}/chat", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]ChatMessage{{ID: "m1", Message: "hi", Kind: "normal"}})
	})

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL+"/", nil), &heartbeats
}

func TestClient_ListUserStreams(t *testing.T) {
	c, _ := newTestAPI(t)
	streams, err := c.ListUserStreams(context.Background(), "u 1")
	if err != nil {
		t.Fatalf("ListUserStreams: %v", err)
	}
	if len(streams) != 2 || streams[1].ID != "s2" || !streams[1].IsPublic {
		t.Errorf("unexpected streams: %+v", streams)
	}
}

func TestClient_Heartbeat(t *testing.T) {
	c, count := newTestAPI(t)

	if err := c.Heartbeat(context.Background(), "s1"); err != nil {
		t.Fatalf("Heartbeat: %v", err)
	}
	if count.Load() != 1 {
		t.Errorf("expected 1 heartbeat, got %d", count.Load())
	}

	err := c.Heartbeat(context.Background(), "gone")
	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if se.StatusCode != http.StatusNotFound || se.Body != "stream not found" {
		t.Errorf("unexpected status error: %+v", se)
	}
}

func TestClient_stream_lifecycle(t *testing.T) {
	c, _ := newTestAPI(t)
	ctx := context.Background()

	st, err := c.CreateStream(ctx, CreateStreamRequest{UserID: "u1", Title: "hello", IsPublic: true})
	if err != nil {
		t.Fatalf("CreateStream: %v", err)
	}
	if st.ID != "new" || st.Title != "hello" || !st.IsPublic {
		t.Errorf("unexpected created stream: %+v", st)
	}

	started, err := c.StartStream(ctx, st.ID)
	if err != nil {
		t.Fatalf("StartStream: %v", err)
	}
	if !started.IsLive {
		t.Error("expected live stream")
	}
}

func TestClient_RecentChat(t *testing.T) {
	c, _ := newTestAPI(t)
	msgs, err := c.RecentChat(context.Background(), "s1", 10)
	if err != nil {
		t.Fatalf("RecentChat: %v", err)
	}
	if len(msgs) != 1 || msgs[0].Message != "hi" {
		t.Errorf("unexpected history: %+v", msgs)
	}
}

func TestClient_unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	if _, err := NewClient(url, nil).ListUserStreams(context.Background(), "u1"); err == nil {
		t.Fatal("expected error against closed server")
	}
}
