// Package hub is the server end of the real-time channel. Each connection
// joins one stream's room; chat lines are stamped, persisted and broadcast to
// everyone in that room.
package hub

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"streamchat/internal/chat"
	"streamchat/internal/chatstore"
	"streamchat/internal/platform/logger"
	"streamchat/internal/platform/metrics"
	"streamchat/internal/realtime"
	"streamchat/internal/streams"
)

const persistTimeout = 5 * time.Second

// Per-connection chat limits used when Config leaves them zero.
const (
	DefaultChatRate  = 5 // lines per second
	DefaultChatBurst = 10
)

// Registry is the part of the stream registry the hub needs.
// *streams.Service satisfies it.
type Registry interface {
	IsOwner(id streams.StreamID, userID string) bool
	Heartbeat(id streams.StreamID) error
}

// Config configures a Hub.
type Config struct {
	Registry Registry
	Store    chatstore.Store
	Log      *slog.Logger
	Metrics  *metrics.Metrics

	// CheckOrigin is passed to the websocket upgrader. Nil allows every
	// origin.
	CheckOrigin func(r *http.Request) bool

	// ChatRate and ChatBurst limit chat lines per connection. Zero values
	// take the defaults.
	ChatRate  rate.Limit
	ChatBurst int
}

// Hub tracks connections and the stream room each one has joined.
type Hub struct {
	registry Registry
	store    chatstore.Store
	log      *slog.Logger
	metrics  *metrics.Metrics
	upgrader websocket.Upgrader
	now      func() time.Time

	chatRate  rate.Limit
	chatBurst int

	mu      sync.RWMutex
	clients map[*client]struct{}
	rooms   map[string]map[*client]struct{}
	closed  bool
}

// New returns an empty Hub.
func New(cfg Config) *Hub {
	checkOrigin := cfg.CheckOrigin
	if checkOrigin == nil {
		checkOrigin = func(*http.Request) bool { return true }
	}
	store := cfg.Store
	if store == nil {
		store = chatstore.NewMemoryStore(0)
	}
	chatRate, chatBurst := cfg.ChatRate, cfg.ChatBurst
	if chatRate <= 0 {
		chatRate = DefaultChatRate
	}
	if chatBurst <= 0 {
		chatBurst = DefaultChatBurst
	}
	return &Hub{
		registry: cfg.Registry,
		store:    store,
		log:      logger.OrDiscard(cfg.Log),
		metrics:  cfg.Metrics,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin,
		},
		now:       func() time.Time { return time.Now().UTC() },
		chatRate:  chatRate,
		chatBurst: chatBurst,
		clients:   make(map[*client]struct{}),
		rooms:     make(map[string]map[*client]struct{}),
	}
}

// ServeHTTP upgrades the request and serves the connection until it closes.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// the upgrader has already written the error response
		h.log.Debug("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}

	c := newClient(h, conn)
	if !h.register(c) {
		conn.Close()
		return
	}
	h.metrics.ConnOpened()
	defer h.metrics.ConnClosed()

	go c.writePump()
	c.readPump()
}

// Close disconnects every client. Later upgrades are refused.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.closed = true
	for c := range h.clients {
		h.removeLocked(c)
	}
}

// RoomSize returns the number of connections joined to streamID.
func (h *Hub) RoomSize(streamID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[streamID])
}

// StreamEvent broadcasts a registry lifecycle event to the stream's room.
// Pass it to streams.Service.OnEvent.
func (h *Hub) StreamEvent(e streams.Event) {
	id := string(e.StreamID)
	switch e.Kind {
	case streams.EventStarted:
		h.broadcast(id, realtime.StreamStarted{StreamID: id})
	case streams.EventStopped:
		h.broadcast(id, realtime.StreamStopped{StreamID: id})
	}
}

func (h *Hub) register(c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[c] = struct{}{}
	return true
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(c)
}

// removeLocked drops c from the hub and closes its send queue exactly once.
// Caller must hold h.mu.
func (h *Hub) removeLocked(c *client) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	h.leaveLocked(c)
	close(c.send)
}

func (h *Hub) leaveLocked(c *client) {
	if c.room == "" {
		return
	}
	if room := h.rooms[c.room]; room != nil {
		delete(room, c)
		if len(room) == 0 {
			delete(h.rooms, c.room)
		}
	}
	c.room = ""
}

func (h *Hub) join(c *client, streamID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[c]; !ok {
		return
	}
	h.leaveLocked(c)
	room := h.rooms[streamID]
	if room == nil {
		room = make(map[*client]struct{})
		h.rooms[streamID] = room
	}
	room[c] = struct{}{}
	c.room = streamID
}

func (h *Hub) roomOf(c *client) string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return c.room
}

// broadcast queues env for every member of the room. Members whose queue is
// full are disconnected.
func (h *Hub) broadcast(streamID string, env realtime.Envelope) {
	data, err := realtime.Marshal(env)
	if err != nil {
		h.log.Error("encode broadcast failed", slog.String("error", err.Error()))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.rooms[streamID] {
		select {
		case c.send <- data:
		default:
			h.log.Warn("client too slow, disconnecting", slog.String("stream_id", streamID))
			h.removeLocked(c)
		}
	}
}

// handle dispatches one inbound envelope from c.
func (h *Hub) handle(c *client, env realtime.Envelope) {
	switch e := env.(type) {
	case realtime.JoinStream:
		if e.StreamID == "" {
			return
		}
		c.userID = e.UserID
		h.join(c, e.StreamID)
		h.log.Debug("joined stream",
			slog.String("stream_id", e.StreamID),
			slog.String("user_id", e.UserID))
	case realtime.ChatMessage:
		h.publishChat(c, e.Chat, nil)
	case realtime.SuperChat:
		h.publishChat(c, e.Chat, &e)
	case realtime.StreamHeartbeat:
		h.heartbeat(e)
	case realtime.StreamStarted, realtime.StreamStopped:
		// server-to-client only
	case realtime.Unknown:
		h.log.Debug("ignoring unknown envelope", slog.String("type", e.Kind))
	}
}

func (h *Hub) heartbeat(e realtime.StreamHeartbeat) {
	if h.registry == nil || e.StreamID == "" {
		return
	}
	if err := h.registry.Heartbeat(streams.StreamID(e.StreamID)); err != nil {
		h.log.Debug("heartbeat rejected",
			slog.String("stream_id", e.StreamID),
			slog.String("error", err.Error()))
		return
	}
	h.metrics.IncHeartbeat(metrics.PathSocket)
}

// publishChat stamps an incoming chat line, stores it and broadcasts it to
// the stream's room. super is nil for a normal chat message.
func (h *Hub) publishChat(c *client, in realtime.Chat, super *realtime.SuperChat) {
	in.Message = strings.TrimSpace(in.Message)
	if in.Message == "" {
		return
	}
	if in.StreamID == "" {
		in.StreamID = h.roomOf(c)
	}
	if in.StreamID == "" {
		h.log.Debug("chat before join dropped")
		return
	}
	if in.Sender.UserID == "" {
		in.Sender.UserID = c.userID
	}
	if !c.limiter.Allow() {
		h.log.Debug("chat rate limited",
			slog.String("stream_id", in.StreamID),
			slog.String("user_id", in.Sender.UserID))
		return
	}

	in.ID = uuid.NewString()
	in.Timestamp = h.now()
	in.IsPinned = false
	in.IsModeratorMessage = h.registry != nil &&
		h.registry.IsOwner(streams.StreamID(in.StreamID), in.Sender.UserID)

	var out realtime.Envelope
	if super == nil {
		out = realtime.ChatMessage{Chat: in}
	} else {
		if err := chat.ValidateSuperChatAmount(super.Amount); err != nil {
			h.log.Info("super chat rejected",
				slog.String("stream_id", in.StreamID),
				slog.Int64("amount", super.Amount))
			return
		}
		tier, _ := chat.TierFor(super.Amount)
		out = realtime.SuperChat{Chat: in, Amount: super.Amount, Currency: super.Currency, Color: tier.Color}
	}

	msg, _ := chat.Materialize(out, in.Timestamp)
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	if err := h.store.Append(ctx, msg); err != nil {
		h.log.Error("persist chat message failed",
			slog.String("stream_id", in.StreamID),
			slog.String("error", err.Error()))
	}
	cancel()

	h.metrics.IncChatMessage(string(msg.Kind))
	h.broadcast(in.StreamID, out)
}
