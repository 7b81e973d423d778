package streams

import (
	"context"
	"log/slog"
	"time"

	"streamchat/internal/platform/metrics"
)

// RunReaper calls Reap every interval until ctx is done.
func (s *Service) RunReaper(ctx context.Context, every time.Duration, log *slog.Logger, m *metrics.Metrics) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			ids := s.Reap()
			if len(ids) == 0 {
				continue
			}
			m.IncStreamsReaped(len(ids))
			for _, id := range ids {
				log.Info("stream reaped after missed heartbeats", slog.String("stream_id", string(id)))
			}
		}
	}
}
