package heartbeat

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"streamchat/internal/api"
)

type fakeLister struct {
	mu      sync.Mutex
	streams []api.Stream
	err     error
	calls   int
}

func (f *fakeLister) ListUserStreams(_ context.Context, _ string) ([]api.Stream, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	out := make([]api.Stream, len(f.streams))
	copy(out, f.streams)
	return out, nil
}

func (f *fakeLister) set(streams []api.Stream, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.streams = streams
	f.err = err
}

func (f *fakeLister) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeBeater struct {
	beats chan string
}

func newFakeBeater() *fakeBeater {
	return &fakeBeater{beats: make(chan string, 256)}
}

func (f *fakeBeater) Beat(_ context.Context, streamID, _ string) error {
	f.beats <- streamID
	return nil
}

func (f *fakeBeater) next(t *testing.T) string {
	t.Helper()
	select {
	case id := <-f.beats:
		return id
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for heartbeat")
		return ""
	}
}

func (f *fakeBeater) expectNone(t *testing.T, wait time.Duration) {
	t.Helper()
	select {
	case id := <-f.beats:
		t.Fatalf("unexpected heartbeat for %q", id)
	case <-time.After(wait):
	}
}

func eventually(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func live(id string, public bool) api.Stream {
	return api.Stream{ID: id, UserID: "u1", IsLive: true, IsPublic: public}
}

func newTestManager(t *testing.T, lister *fakeLister, beater *fakeBeater, beatEvery time.Duration) *Manager {
	t.Helper()
	m := NewManager(Config{
		Lister:       lister,
		Beater:       beater,
		PollInterval: 10 * time.Millisecond,
		BeatInterval: beatEvery,
	})
	t.Cleanup(m.Stop)
	return m
}

func TestManager_idle_without_public_live_stream(t *testing.T) {
	lister := &fakeLister{streams: []api.Stream{
		live("private", false),
		{ID: "offline", IsPublic: true},
	}}
	beater := newFakeBeater()
	m := newTestManager(t, lister, beater, time.Hour)

	m.Start(context.Background(), "u1")
	eventually(t, func() bool { return lister.callCount() >= 3 })

	beater.expectNone(t, 30*time.Millisecond)
	if m.State() != Idle || m.ArmedStream() != "" {
		t.Errorf("expected idle, got %s %q", m.State(), m.ArmedStream())
	}
}

func TestManager_arms_and_beats_immediately(t *testing.T) {
	lister := &fakeLister{streams: []api.Stream{live("S", true)}}
	beater := newFakeBeater()
	m := newTestManager(t, lister, beater, time.Hour)

	m.Start(context.Background(), "u1")
	if got := beater.next(t); got != "S" {
		t.Fatalf("expected beat for S, got %q", got)
	}
	if m.State() != Armed || m.ArmedStream() != "S" {
		t.Errorf("expected armed on S, got %s %q", m.State(), m.ArmedStream())
	}

	// re-polling the same stream must not re-arm
	eventually(t, func() bool { return lister.callCount() >= 5 })
	beater.expectNone(t, 30*time.Millisecond)
}

func TestManager_beats_on_interval(t *testing.T) {
	lister := &fakeLister{streams: []api.Stream{live("S", true)}}
	beater := newFakeBeater()
	m := newTestManager(t, lister, beater, 20*time.Millisecond)

	m.Start(context.Background(), "u1")
	for i := 0; i < 3; i++ {
		if got := beater.next(t); got != "S" {
			t.Fatalf("beat %d: expected S, got %q", i, got)
		}
	}
}

func TestManager_first_qualifying_stream_wins(t *testing.T) {
	lister := &fakeLister{streams: []api.Stream{
		live("hidden", false),
		live("A", true),
		live("B", true),
	}}
	beater := newFakeBeater()
	m := newTestManager(t, lister, beater, time.Hour)

	m.Start(context.Background(), "u1")
	if got := beater.next(t); got != "A" {
		t.Fatalf("expected beat for A, got %q", got)
	}
	if m.ArmedStream() != "A" {
		t.Errorf("expected A armed, got %q", m.ArmedStream())
	}
}

func TestManager_private_stream_made_public(t *testing.T) {
	lister := &fakeLister{streams: []api.Stream{live("S", false)}}
	beater := newFakeBeater()
	m := newTestManager(t, lister, beater, time.Hour)

	m.Start(context.Background(), "u1")
	eventually(t, func() bool { return lister.callCount() >= 2 })
	beater.expectNone(t, 20*time.Millisecond)

	lister.set([]api.Stream{live("S", true)}, nil)
	if got := beater.next(t); got != "S" {
		t.Fatalf("expected beat for S, got %q", got)
	}
	eventually(t, func() bool { return m.State() == Armed })
}

func TestManager_switches_stream(t *testing.T) {
	lister := &fakeLister{streams: []api.Stream{live("A", true)}}
	beater := newFakeBeater()
	m := newTestManager(t, lister, beater, time.Hour)

	m.Start(context.Background(), "u1")
	if got := beater.next(t); got != "A" {
		t.Fatalf("expected A, got %q", got)
	}

	lister.set([]api.Stream{live("B", true)}, nil)
	if got := beater.next(t); got != "B" {
		t.Fatalf("expected B after switch, got %q", got)
	}
	eventually(t, func() bool { return m.ArmedStream() == "B" })
}

func TestManager_stream_ends_goes_idle(t *testing.T) {
	lister := &fakeLister{streams: []api.Stream{live("S", true)}}
	beater := newFakeBeater()
	m := newTestManager(t, lister, beater, 20*time.Millisecond)

	m.Start(context.Background(), "u1")
	beater.next(t)

	lister.set(nil, nil)
	eventually(t, func() bool { return m.State() == Idle })

	// drain anything sent before the disarm landed
	time.Sleep(10 * time.Millisecond)
	for len(beater.beats) > 0 {
		<-beater.beats
	}
	beater.expectNone(t, 60*time.Millisecond)
}

func TestManager_poll_error_keeps_state(t *testing.T) {
	lister := &fakeLister{streams: []api.Stream{live("S", true)}}
	beater := newFakeBeater()
	m := newTestManager(t, lister, beater, time.Hour)

	m.Start(context.Background(), "u1")
	beater.next(t)

	lister.set(nil, errors.New("backend down"))
	calls := lister.callCount()
	eventually(t, func() bool { return lister.callCount() >= calls+3 })

	if m.State() != Armed || m.ArmedStream() != "S" {
		t.Errorf("poll error should keep armed state, got %s %q", m.State(), m.ArmedStream())
	}
}

func TestManager_Stop(t *testing.T) {
	lister := &fakeLister{streams: []api.Stream{live("S", true)}}
	beater := newFakeBeater()
	m := newTestManager(t, lister, beater, 20*time.Millisecond)

	m.Start(context.Background(), "u1")
	beater.next(t)

	m.Stop()
	if m.State() != Idle || m.ArmedStream() != "" {
		t.Errorf("expected idle after Stop, got %s %q", m.State(), m.ArmedStream())
	}
	calls := lister.callCount()
	for len(beater.beats) > 0 {
		<-beater.beats
	}
	beater.expectNone(t, 60*time.Millisecond)
	if lister.callCount() != calls {
		t.Error("polling continued after Stop")
	}

	// Stop is idempotent
	m.Stop()
}

func TestManager_empty_user_stays_idle(t *testing.T) {
	lister := &fakeLister{streams: []api.Stream{live("S", true)}}
	beater := newFakeBeater()
	m := newTestManager(t, lister, beater, time.Hour)

	m.Start(context.Background(), "")
	beater.expectNone(t, 40*time.Millisecond)
	if lister.callCount() != 0 {
		t.Errorf("expected no polls, got %d", lister.callCount())
	}
	if m.State() != Idle {
		t.Errorf("expected idle, got %s", m.State())
	}
}

func TestState_String(t *testing.T) {
	if Idle.String() != "idle" || Armed.String() != "armed" {
		t.Errorf("unexpected names %q %q", Idle, Armed)
	}
}
