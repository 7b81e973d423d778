package streams

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"streamchat/internal/platform/metrics"

	"github.com/go-chi/chi/v5"
)

// Handler exposes the stream registry over HTTP using go-chi.
type Handler struct {
	svc     *Service
	log     *slog.Logger
	metrics *metrics.Metrics
}

// NewHandler returns a Handler that uses the given Service, Logger, and optional Metrics.
// Metrics may be nil to disable metric recording (e.g. in tests).
func NewHandler(svc *Service, log *slog.Logger, m *metrics.Metrics) *Handler {
	return &Handler{svc: svc, log: log, metrics: m}
}

type createRequest struct {
	UserID   string `json:"userId"`
	Title    string `json:"title"`
	IsPublic bool   `json:"isPublic"`
}

type visibilityRequest struct {
	IsPublic bool `json:"isPublic"`
}

// Create handles POST /api/streams.
// Body: { "userId": "u1", "title": "hello", "isPublic": true }.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log.Debug("invalid stream body", slog.String("error", err.Error()))
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	st, err := h.svc.Create(req.UserID, req.Title, req.IsPublic)
	if err != nil {
		h.writeError(w, "create stream", "", err)
		return
	}

	h.log.Info("stream created",
		slog.String("stream_id", string(st.ID)),
		slog.String("user_id", st.UserID))
	writeJSON(w, http.StatusCreated, st)
}

// ListByUser handles GET /api/streams/user?userId=...
func (h *Handler) ListByUser(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, h.svc.ListByUser(userID))
}

// Get handles GET /api/streams/{stream_id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	st, ok := h.svc.Get(StreamID(chi.URLParam(r, "stream_id")))
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// Start handles PUT /api/streams/{stream_id}/start.
func (h *Handler) Start(w http.ResponseWriter, r *http.Request) {
	id := StreamID(chi.URLParam(r, "stream_id"))
	st, err := h.svc.Start(id)
	if err != nil {
		h.writeError(w, "start stream", id, err)
		return
	}
	h.log.Info("stream started", slog.String("stream_id", string(id)))
	writeJSON(w, http.StatusOK, st)
}

// Stop handles PUT /api/streams/{stream_id}/stop.
func (h *Handler) Stop(w http.ResponseWriter, r *http.Request) {
	id := StreamID(chi.URLParam(r, "stream_id"))
	st, err := h.svc.Stop(id)
	if err != nil {
		h.writeError(w, "stop stream", id, err)
		return
	}
	h.log.Info("stream stopped", slog.String("stream_id", string(id)))
	writeJSON(w, http.StatusOK, st)
}

// SetVisibility handles PUT /api/streams/{stream_id}/visibility.
// Body: { "isPublic": true }.
func (h *Handler) SetVisibility(w http.ResponseWriter, r *http.Request) {
	id := StreamID(chi.URLParam(r, "stream_id"))

	var req visibilityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	st, err := h.svc.SetPublic(id, req.IsPublic)
	if err != nil {
		h.writeError(w, "set visibility", id, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// Heartbeat handles POST /api/streams/{stream_id}/heartbeat. No body.
func (h *Handler) Heartbeat(w http.ResponseWriter, r *http.Request) {
	id := StreamID(chi.URLParam(r, "stream_id"))
	if err := h.svc.Heartbeat(id); err != nil {
		h.writeError(w, "heartbeat", id, err)
		return
	}

	h.log.Debug("heartbeat", slog.String("stream_id", string(id)), slog.String("path", metrics.PathHTTP))
	h.metrics.IncHeartbeat(metrics.PathHTTP)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) writeError(w http.ResponseWriter, op string, id StreamID, err error) {
	var code int
	switch {
	case errors.Is(err, ErrStreamNotFound):
		code = http.StatusNotFound
	case errors.Is(err, ErrStreamNotLive), errors.Is(err, ErrStreamExists):
		code = http.StatusConflict
	case errors.Is(err, ErrInvalidStream):
		code = http.StatusBadRequest
	default:
		h.log.Error(op+" failed", slog.String("stream_id", string(id)), slog.String("error", err.Error()))
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	h.log.Debug(op+" rejected",
		slog.String("stream_id", string(id)),
		slog.String("error", err.Error()))
	http.Error(w, err.Error(), code)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}
