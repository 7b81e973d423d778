package streams

import "time"

// StreamID uniquely identifies a live stream.
type StreamID string

// Stream is the registry record for one broadcast. It is also the JSON body
// returned by the REST API.
type Stream struct {
	ID            StreamID   `json:"id"`
	UserID        string     `json:"userId"`
	Title         string     `json:"title"`
	IsLive        bool       `json:"isLive"`
	IsPublic      bool       `json:"isPublic"`
	StartedAt     *time.Time `json:"startedAt,omitempty"`
	LastHeartbeat *time.Time `json:"lastHeartbeat,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
}

// EventKind names a lifecycle transition.
type EventKind string

const (
	EventStarted EventKind = "stream_started"
	EventStopped EventKind = "stream_stopped"
)

// Event is emitted when a stream goes live or offline.
type Event struct {
	Kind     EventKind
	StreamID StreamID
	At       time.Time
}
