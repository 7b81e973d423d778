package main

import (
	"context"
	"log/slog"

	"streamchat/internal/api"
	"streamchat/internal/chat"
)

// loadHistory fetches recent chat for the stream. Failures only cost the
// backlog, so they are logged and an empty history is returned.
func loadHistory(ctx context.Context, client *api.Client, streamID string, limit int, log *slog.Logger) []chat.Message {
	ctx, cancel := context.WithTimeout(ctx, lookupTimeout)
	defer cancel()

	recent, err := client.RecentChat(ctx, streamID, limit)
	if err != nil {
		log.Warn("load chat history failed",
			slog.String("stream_id", streamID),
			slog.String("error", err.Error()))
		return nil
	}

	out := make([]chat.Message, 0, len(recent))
	for _, m := range recent {
		out = append(out, fromAPI(m))
	}
	return out
}

func fromAPI(m api.ChatMessage) chat.Message {
	return chat.Message{
		ID:                 m.ID,
		StreamID:           m.StreamID,
		UserID:             m.UserID,
		Username:           m.Username,
		AvatarURL:          m.AvatarURL,
		Content:            m.Message,
		Kind:               chat.Kind(m.Kind),
		Amount:             m.Amount,
		Currency:           m.Currency,
		Color:              m.Color,
		IsModeratorMessage: m.IsModeratorMessage,
		IsPinned:           m.IsPinned,
		Timestamp:          m.Timestamp,
	}
}
