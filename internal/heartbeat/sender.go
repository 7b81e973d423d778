package heartbeat

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"streamchat/internal/platform/logger"
	"streamchat/internal/platform/metrics"
	"streamchat/internal/realtime"
)

const (
	DefaultOpenTimeout = 2 * time.Second
	DefaultSendGrace   = 250 * time.Millisecond
)

// ChannelDialer opens a fresh real-time channel. realtime.Dialer satisfies it.
type ChannelDialer interface {
	Dial(ctx context.Context) (*realtime.Channel, error)
}

// HTTPHeartbeater is the REST fallback. *api.Client satisfies it.
type HTTPHeartbeater interface {
	Heartbeat(ctx context.Context, streamID string) error
}

// Sender delivers one heartbeat per call. It tries a short-lived real-time
// channel first and falls back to a single HTTP call if the channel cannot be
// opened in time or the send fails.
type Sender struct {
	dialer      ChannelDialer
	fallback    HTTPHeartbeater
	openTimeout time.Duration
	grace       time.Duration
	log         *slog.Logger
	metrics     *metrics.Metrics
}

// SenderConfig configures a Sender. Zero durations take the defaults.
type SenderConfig struct {
	Dialer      ChannelDialer
	Fallback    HTTPHeartbeater
	OpenTimeout time.Duration
	SendGrace   time.Duration
	Log         *slog.Logger
	Metrics     *metrics.Metrics
}

// NewSender returns a Sender. Zero timeouts take the defaults.
func NewSender(cfg SenderConfig) *Sender {
	s := &Sender{
		dialer:      cfg.Dialer,
		fallback:    cfg.Fallback,
		openTimeout: cfg.OpenTimeout,
		grace:       cfg.SendGrace,
		log:         logger.OrDiscard(cfg.Log),
		metrics:     cfg.Metrics,
	}
	if s.openTimeout <= 0 {
		s.openTimeout = DefaultOpenTimeout
	}
	if s.grace <= 0 {
		s.grace = DefaultSendGrace
	}
	return s
}

// Beat sends one heartbeat for streamID. Failures are logged and returned;
// there is no retry.
func (s *Sender) Beat(ctx context.Context, streamID, userID string) error {
	err := s.viaChannel(ctx, streamID, userID)
	if err == nil {
		s.metrics.IncHeartbeat(metrics.PathSocket)
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	s.log.Warn("heartbeat channel failed, using http fallback",
		slog.String("stream_id", streamID),
		slog.String("error", err.Error()))

	if s.fallback == nil {
		return fmt.Errorf("heartbeat: %s: %w", streamID, err)
	}
	if err := s.fallback.Heartbeat(ctx, streamID); err != nil {
		s.metrics.IncErrors()
		s.log.Warn("heartbeat fallback failed",
			slog.String("stream_id", streamID),
			slog.String("error", err.Error()))
		return fmt.Errorf("heartbeat: fallback %s: %w", streamID, err)
	}
	s.metrics.IncHeartbeat(metrics.PathHTTP)
	return nil
}

func (s *Sender) viaChannel(ctx context.Context, streamID, userID string) error {
	if s.dialer == nil {
		return realtime.ErrNotOpen
	}

	openCtx, cancel := context.WithTimeout(ctx, s.openTimeout)
	ch, err := s.dialer.Dial(openCtx)
	cancel()
	if err != nil {
		return err
	}
	defer ch.Close()

	if err := ch.Send(realtime.StreamHeartbeat{StreamID: streamID, UserID: userID}); err != nil {
		return err
	}

	// let the frame flush before the close handshake
	t := time.NewTimer(s.grace)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ch.Done():
	case <-ctx.Done():
	}
	return nil
}
