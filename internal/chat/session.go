package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"streamchat/internal/platform/logger"
	"streamchat/internal/realtime"
)

var (
	// ErrNotConnected is returned when sending without an open channel.
	ErrNotConnected = errors.New("chat: not connected")

	// ErrEmptyMessage is returned for empty or whitespace-only text.
	ErrEmptyMessage = errors.New("chat: message is empty")

	// ErrSendInFlight is returned while a previous send has not finished.
	// Sends are never queued.
	ErrSendInFlight = errors.New("chat: previous send still in flight")
)

// Dialer opens the real-time channel a Session uses. realtime.Dialer
// satisfies it.
type Dialer interface {
	Dial(ctx context.Context) (*realtime.Channel, error)
}

// Profile is how the local user appears on outgoing chat lines.
type Profile struct {
	Username  string
	AvatarURL string
}

// Config configures a Session.
type Config struct {
	Dialer   Dialer
	Profile  Profile
	Currency string
	Log      *slog.Logger

	// OnMessage is called after every append, outside the session lock. The
	// UI uses it to scroll to the newest line.
	OnMessage func(Message)
}

// Session is the per-stream chat state: one long-lived channel, the ordered
// message log and the outgoing send path. The log is append-only and kept
// across disconnects; it is reset only when the session moves to another
// stream.
type Session struct {
	dialer    Dialer
	profile   Profile
	currency  string
	log       *slog.Logger
	onMessage func(Message)

	connectMu sync.Mutex

	mu        sync.Mutex
	ch        *realtime.Channel
	loopDone  chan struct{}
	gen       uint64
	streamID  string
	userID    string
	connected bool
	messages  []Message

	sending atomic.Bool
}

// NewSession returns a disconnected session.
func NewSession(cfg Config) *Session {
	return &Session{
		dialer:    cfg.Dialer,
		profile:   cfg.Profile,
		currency:  cfg.Currency,
		log:       logger.OrDiscard(cfg.Log),
		onMessage: cfg.OnMessage,
	}
}

// Connect opens the channel for streamID as userID and sends join_stream once
// it is open. If the session is already connected to a different stream or
// as a different user, the old channel is closed first. Connecting again
// with the same pair while connected is a no-op.
func (s *Session) Connect(ctx context.Context, streamID, userID string) error {
	if streamID == "" {
		return errors.New("chat: stream id required")
	}

	s.connectMu.Lock()
	defer s.connectMu.Unlock()

	s.mu.Lock()
	if s.connected && s.streamID == streamID && s.userID == userID {
		s.mu.Unlock()
		return nil
	}
	old, oldDone := s.detachLocked()
	if s.streamID != streamID {
		s.messages = nil
	}
	s.streamID = streamID
	s.userID = userID
	s.mu.Unlock()

	closeAndWait(old, oldDone)

	ch, err := s.dialer.Dial(ctx)
	if err != nil {
		s.log.Warn("chat connect failed",
			slog.String("stream_id", streamID),
			slog.String("error", err.Error()))
		return fmt.Errorf("chat: connect: %w", err)
	}

	done := make(chan struct{})
	s.mu.Lock()
	s.gen++
	gen := s.gen
	s.ch = ch
	s.loopDone = done
	s.connected = true
	s.mu.Unlock()

	go s.readLoop(ch, gen, done)

	if err := ch.Send(realtime.JoinStream{StreamID: streamID, UserID: userID}); err != nil {
		return fmt.Errorf("chat: join %s: %w", streamID, err)
	}

	s.log.Info("chat connected",
		slog.String("stream_id", streamID),
		slog.String("user_id", userID))
	return nil
}

// Disconnect closes the channel. The message log is kept.
func (s *Session) Disconnect() {
	s.connectMu.Lock()
	defer s.connectMu.Unlock()

	s.mu.Lock()
	old, oldDone := s.detachLocked()
	s.mu.Unlock()

	closeAndWait(old, oldDone)
}

// detachLocked unhooks the current channel so its read loop can no longer
// change session state. Caller must hold s.mu.
func (s *Session) detachLocked() (*realtime.Channel, chan struct{}) {
	old, done := s.ch, s.loopDone
	s.ch = nil
	s.loopDone = nil
	s.connected = false
	s.gen++
	return old, done
}

func closeAndWait(ch *realtime.Channel, done chan struct{}) {
	if ch == nil {
		return
	}
	ch.Close()
	if done != nil {
		<-done
	}
}

func (s *Session) readLoop(ch *realtime.Channel, gen uint64, done chan struct{}) {
	defer close(done)

	for env := range ch.Inbound() {
		s.receive(env, gen, true)
	}

	s.mu.Lock()
	if s.gen == gen {
		s.connected = false
		s.ch = nil
	}
	s.mu.Unlock()

	if err := ch.Err(); err != nil {
		s.log.Warn("chat channel lost", slog.String("error", err.Error()))
	} else {
		s.log.Debug("chat channel closed")
	}
}

// Receive handles one inbound envelope. chat_message and superchat envelopes
// are appended to the log; it reports whether an append happened.
func (s *Session) Receive(env realtime.Envelope) bool {
	return s.receive(env, 0, false)
}

// receive appends chat envelopes to the log. With checkGen set, envelopes
// from a read loop whose generation is no longer current are dropped; the
// check and the append share one hold of s.mu so a concurrent Connect to
// another stream cannot see a stale line land in the new log.
func (s *Session) receive(env realtime.Envelope, gen uint64, checkGen bool) bool {
	switch e := env.(type) {
	case realtime.ChatMessage, realtime.SuperChat:
		msg, _ := Materialize(e, time.Now())
		s.mu.Lock()
		if checkGen && s.gen != gen {
			s.mu.Unlock()
			return false
		}
		s.messages = append(s.messages, msg)
		s.mu.Unlock()
		if s.onMessage != nil {
			s.onMessage(msg)
		}
		return true
	case realtime.StreamStarted:
		s.log.Debug("stream started", slog.String("stream_id", e.StreamID))
	case realtime.StreamStopped:
		s.log.Debug("stream stopped", slog.String("stream_id", e.StreamID))
	case realtime.JoinStream, realtime.StreamHeartbeat:
		// client-to-server only
	case realtime.Unknown:
		s.log.Debug("ignoring unknown envelope", slog.String("type", e.Kind))
	}
	return false
}

// Messages returns a copy of the log in arrival order.
func (s *Session) Messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// IsConnected reports whether the channel is open. Send controls should be
// disabled while it is false.
func (s *Session) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

// StreamID returns the stream the session was last connected to.
func (s *Session) StreamID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.streamID
}

// SendChat transmits a chat_message. The session does not append it locally;
// the server echoes it back through the channel.
func (s *Session) SendChat(text string) error {
	ch, streamID, userID, err := s.activeChannel()
	if err != nil {
		return err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyMessage
	}
	if !s.sending.CompareAndSwap(false, true) {
		return ErrSendInFlight
	}
	defer s.sending.Store(false)

	env := realtime.ChatMessage{Chat: s.outgoing(streamID, userID, text)}
	if err := ch.Send(env); err != nil {
		return fmt.Errorf("chat: send message: %w", err)
	}
	return nil
}

// SendSuperChat transmits a superchat for amount in the session currency.
// The persisted, coloured version arrives back through the channel.
func (s *Session) SendSuperChat(text string, amount int64) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyMessage
	}
	if err := ValidateSuperChatAmount(amount); err != nil {
		return err
	}
	ch, streamID, userID, err := s.activeChannel()
	if err != nil {
		return err
	}
	if !s.sending.CompareAndSwap(false, true) {
		return ErrSendInFlight
	}
	defer s.sending.Store(false)

	env := realtime.SuperChat{
		Chat:     s.outgoing(streamID, userID, text),
		Amount:   amount,
		Currency: s.currency,
	}
	if err := ch.Send(env); err != nil {
		return fmt.Errorf("chat: send super chat: %w", err)
	}
	s.log.Info("super chat sent",
		slog.String("stream_id", streamID),
		slog.Int64("amount", amount))
	return nil
}

func (s *Session) activeChannel() (*realtime.Channel, string, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.connected || s.ch == nil || !s.ch.IsOpen() {
		return nil, "", "", ErrNotConnected
	}
	return s.ch, s.streamID, s.userID, nil
}

func (s *Session) outgoing(streamID, userID, text string) realtime.Chat {
	return realtime.Chat{
		StreamID: streamID,
		Sender: realtime.Sender{
			UserID:    userID,
			Username:  s.profile.Username,
			AvatarURL: s.profile.AvatarURL,
		},
		Message: text,
	}
}
