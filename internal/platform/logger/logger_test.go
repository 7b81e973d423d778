package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARN":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNewWithWriter_json(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "info", "json")
	log.Debug("hidden")
	log.Info("shown", slog.String("stream_id", "s1"))

	out := strings.TrimSpace(buf.String())
	if strings.Contains(out, "hidden") {
		t.Errorf("debug line should be filtered: %s", out)
	}
	var rec map[string]any
	if err := json.Unmarshal([]byte(out), &rec); err != nil {
		t.Fatalf("expected one JSON record, got %q: %v", out, err)
	}
	if rec["stream_id"] != "s1" {
		t.Errorf("expected stream_id attr, got %v", rec)
	}
}

func TestRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "info", "text")
	h := RequestLogger(log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		w.Write([]byte("hi"))
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/streams/user", nil))

	out := buf.String()
	if !strings.Contains(out, "status=418") || !strings.Contains(out, "size=2") {
		t.Errorf("unexpected log line: %s", out)
	}
	if !strings.Contains(out, "route=/api/streams/user") {
		t.Errorf("unmatched request should log the raw path: %s", out)
	}
}

func TestRequestLogger_route_pattern(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "info", "text")

	r := chi.NewRouter()
	r.Use(RequestLogger(log))
	r.Post("/api/streams/{stream_id}/heartbeat", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/streams/abc/heartbeat", nil))

	out := buf.String()
	if !strings.Contains(out, "route=/api/streams/{stream_id}/heartbeat") {
		t.Errorf("expected route pattern in log line: %s", out)
	}
	if strings.Contains(out, "abc") {
		t.Errorf("stream id should not appear in route: %s", out)
	}
}
