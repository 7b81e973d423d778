// Package heartbeat keeps the backend informed that the user's public live
// stream is still running.
package heartbeat

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"streamchat/internal/api"
	"streamchat/internal/platform/logger"
)

const (
	DefaultPollInterval = 10 * time.Second
	DefaultBeatInterval = 15 * time.Second
)

// State is the manager's externally visible mode.
type State int

const (
	Idle State = iota
	Armed
)

func (s State) String() string {
	if s == Armed {
		return "armed"
	}
	return "idle"
}

// StreamLister lists the streams owned by a user. *api.Client satisfies it.
type StreamLister interface {
	ListUserStreams(ctx context.Context, userID string) ([]api.Stream, error)
}

// Beater sends one heartbeat. *Sender satisfies it.
type Beater interface {
	Beat(ctx context.Context, streamID, userID string) error
}

// Config configures a Manager. Zero intervals take the defaults.
type Config struct {
	Lister       StreamLister
	Beater       Beater
	PollInterval time.Duration
	BeatInterval time.Duration
	Log          *slog.Logger
}

// Manager polls the user's streams and, while one of them is live and
// public, sends heartbeats for it on a fixed interval. It holds at most one
// armed stream and one beat loop.
type Manager struct {
	lister       StreamLister
	beater       Beater
	pollInterval time.Duration
	beatInterval time.Duration
	log          *slog.Logger

	runMu  sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}

	mu       sync.Mutex
	state    State
	armed    string
	beatStop context.CancelFunc
	beatDone chan struct{}
}

// NewManager returns an idle manager. Zero intervals take the defaults.
func NewManager(cfg Config) *Manager {
	m := &Manager{
		lister:       cfg.Lister,
		beater:       cfg.Beater,
		pollInterval: cfg.PollInterval,
		beatInterval: cfg.BeatInterval,
		log:          logger.OrDiscard(cfg.Log),
	}
	if m.pollInterval <= 0 {
		m.pollInterval = DefaultPollInterval
	}
	if m.beatInterval <= 0 {
		m.beatInterval = DefaultBeatInterval
	}
	return m
}

// Start begins polling for userID. A running poll loop is stopped first.
// With an empty userID the manager stays Idle.
func (m *Manager) Start(ctx context.Context, userID string) {
	m.Stop()
	if userID == "" {
		return
	}

	m.runMu.Lock()
	defer m.runMu.Unlock()
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	m.cancel = cancel
	m.done = done
	go m.run(ctx, userID, done)
}

// Stop ends polling and any beat loop, leaving the manager Idle.
func (m *Manager) Stop() {
	m.runMu.Lock()
	cancel, done := m.cancel, m.done
	m.cancel, m.done = nil, nil
	m.runMu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// State reports Idle or Armed.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// ArmedStream returns the stream heartbeats are sent for, or "" when Idle.
func (m *Manager) ArmedStream() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.armed
}

func (m *Manager) run(ctx context.Context, userID string, done chan struct{}) {
	defer close(done)
	defer m.disarm()

	m.log.Info("heartbeat manager started", slog.String("user_id", userID))
	ticker := time.NewTicker(m.pollInterval)
	defer ticker.Stop()

	for {
		m.poll(ctx, userID)
		select {
		case <-ctx.Done():
			m.log.Info("heartbeat manager stopped", slog.String("user_id", userID))
			return
		case <-ticker.C:
		}
	}
}

func (m *Manager) poll(ctx context.Context, userID string) {
	streams, err := m.lister.ListUserStreams(ctx, userID)
	if err != nil {
		if ctx.Err() == nil {
			m.log.Warn("list streams failed",
				slog.String("user_id", userID),
				slog.String("error", err.Error()))
		}
		return
	}

	target := ""
	for _, st := range streams {
		if st.IsLive && st.IsPublic {
			target = st.ID
			break
		}
	}

	switch {
	case target == "":
		if m.ArmedStream() != "" {
			m.log.Info("no public live stream, heartbeat idle")
		}
		m.disarm()
	case target != m.ArmedStream():
		m.arm(ctx, target, userID)
	}
}

func (m *Manager) arm(ctx context.Context, streamID, userID string) {
	m.disarm()

	beatCtx, stop := context.WithCancel(ctx)
	done := make(chan struct{})

	m.mu.Lock()
	m.state = Armed
	m.armed = streamID
	m.beatStop = stop
	m.beatDone = done
	m.mu.Unlock()

	m.log.Info("heartbeat armed", slog.String("stream_id", streamID))
	go m.beatLoop(beatCtx, streamID, userID, done)
}

func (m *Manager) disarm() {
	m.mu.Lock()
	stop, done := m.beatStop, m.beatDone
	m.state = Idle
	m.armed = ""
	m.beatStop, m.beatDone = nil, nil
	m.mu.Unlock()

	if stop != nil {
		stop()
		<-done
	}
}

func (m *Manager) beatLoop(ctx context.Context, streamID, userID string, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(m.beatInterval)
	defer ticker.Stop()

	for {
		// errors are logged by the beater
		m.beater.Beat(ctx, streamID, userID)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
