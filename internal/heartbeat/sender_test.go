package heartbeat

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"streamchat/internal/api"
	"streamchat/internal/realtime"
)

type testBackend struct {
	srv       *httptest.Server
	frames    chan realtime.Envelope
	fallbacks atomic.Int32
}

// newTestBackend serves /ws and the REST heartbeat. With stall set, the
// websocket handler never completes the handshake.
func newTestBackend(t *testing.T, stall bool) *testBackend {
	t.Helper()
	b := &testBackend{frames: make(chan realtime.Envelope, 16)}
	release := make(chan struct{})
	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}

	r := chi.NewRouter()
	r.Get("/ws", func(w http.ResponseWriter, r *http.Request) {
		if stall {
			select {
			case <-release:
			case <-r.Context().Done():
			}
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if env, err := realtime.Unmarshal(data); err == nil {
				b.frames <- env
			}
		}
	})
	r.Post("/api/streams/{id}/heartbeat", func(w http.ResponseWriter, r *http.Request) {
		b.fallbacks.Add(1)
		w.WriteHeader(http.StatusNoContent)
	})

	b.srv = httptest.NewServer(r)
	t.Cleanup(b.srv.Close)
	t.Cleanup(func() { close(release) })
	return b
}

func (b *testBackend) sender(openTimeout time.Duration) *Sender {
	return NewSender(SenderConfig{
		Dialer:      realtime.Dialer{Endpoint: "ws" + strings.TrimPrefix(b.srv.URL, "http") + "/ws"},
		Fallback:    api.NewClient(b.srv.URL, nil),
		OpenTimeout: openTimeout,
		SendGrace:   20 * time.Millisecond,
	})
}

func TestSender_channel_path(t *testing.T) {
	b := newTestBackend(t, false)

	if err := b.sender(time.Second).Beat(context.Background(), "S", "u1"); err != nil {
		t.Fatalf("Beat: %v", err)
	}

	select {
	case env := <-b.frames:
		hb, ok := env.(realtime.StreamHeartbeat)
		if !ok || hb.StreamID != "S" || hb.UserID != "u1" {
			t.Errorf("unexpected frame %#v", env)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no heartbeat frame received")
	}
	if n := b.fallbacks.Load(); n != 0 {
		t.Errorf("expected no fallback, got %d", n)
	}
}

func TestSender_open_timeout_falls_back_once(t *testing.T) {
	b := newTestBackend(t, true)

	start := time.Now()
	if err := b.sender(100*time.Millisecond).Beat(context.Background(), "S", "u1"); err != nil {
		t.Fatalf("Beat: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("open timeout not honoured, took %s", elapsed)
	}
	if n := b.fallbacks.Load(); n != 1 {
		t.Errorf("expected exactly one fallback, got %d", n)
	}
}

func TestSender_unreachable_channel_falls_back(t *testing.T) {
	b := newTestBackend(t, false)
	s := NewSender(SenderConfig{
		Dialer:   realtime.Dialer{Endpoint: "ws://127.0.0.1:1/ws"},
		Fallback: api.NewClient(b.srv.URL, nil),
	})

	if err := s.Beat(context.Background(), "S", "u1"); err != nil {
		t.Fatalf("Beat: %v", err)
	}
	if n := b.fallbacks.Load(); n != 1 {
		t.Errorf("expected one fallback, got %d", n)
	}
}

func TestSender_both_paths_fail(t *testing.T) {
	s := NewSender(SenderConfig{
		Dialer:      realtime.Dialer{Endpoint: "ws://127.0.0.1:1/ws"},
		Fallback:    api.NewClient("http://127.0.0.1:1", nil),
		OpenTimeout: 200 * time.Millisecond,
	})
	if err := s.Beat(context.Background(), "S", "u1"); err == nil {
		t.Fatal("expected error when both paths fail")
	}
}
