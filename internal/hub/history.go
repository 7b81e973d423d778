package hub

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"streamchat/internal/api"
	"streamchat/internal/chat"
)

const maxHistoryLimit = 500

// HistoryHandler serves GET /api/streams/{stream_id}/chat?limit=N with the
// newest persisted messages, oldest first.
type HistoryHandler struct {
	hub          *Hub
	defaultLimit int
}

// History returns a HistoryHandler that returns defaultLimit messages when
// the request carries no limit.
func (h *Hub) History(defaultLimit int) *HistoryHandler {
	if defaultLimit <= 0 {
		defaultLimit = 50
	}
	return &HistoryHandler{hub: h, defaultLimit: defaultLimit}
}

func (hh *HistoryHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	streamID := chi.URLParam(r, "stream_id")
	if streamID == "" {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	limit := hh.defaultLimit
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		limit = min(n, maxHistoryLimit)
	}

	msgs, err := hh.hub.store.Recent(r.Context(), streamID, limit)
	if err != nil {
		hh.hub.log.Error("load chat history failed",
			slog.String("stream_id", streamID),
			slog.String("error", err.Error()))
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	out := make([]api.ChatMessage, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, toAPI(m))
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(out)
}

func toAPI(m chat.Message) api.ChatMessage {
	return api.ChatMessage{
		ID:                 m.ID,
		StreamID:           m.StreamID,
		UserID:             m.UserID,
		Username:           m.Username,
		AvatarURL:          m.AvatarURL,
		Message:            m.Content,
		Kind:               string(m.Kind),
		Amount:             m.Amount,
		Currency:           m.Currency,
		Color:              m.Color,
		IsModeratorMessage: m.IsModeratorMessage,
		IsPinned:           m.IsPinned,
		Timestamp:          m.Timestamp,
	}
}
