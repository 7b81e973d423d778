// Package realtime holds the real-time wire protocol shared by the client and
// the hub: a closed set of envelope types with their JSON form, and a
// websocket-backed Channel that owns one client connection.
package realtime

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Type is the discriminator carried in every envelope's "type" field.
type Type string

const (
	TypeJoinStream      Type = "join_stream"
	TypeChatMessage     Type = "chat_message"
	TypeSuperChat       Type = "superchat"
	TypeStreamHeartbeat Type = "stream_heartbeat"
	TypeStreamStarted   Type = "stream_started"
	TypeStreamStopped   Type = "stream_stopped"
)

// ErrMalformed is returned by Unmarshal for frames that are not a JSON object
// with a non-empty type.
var ErrMalformed = errors.New("realtime: malformed envelope")

// Envelope is one discrete message exchanged over a Channel. The set of
// implementations is closed: JoinStream, ChatMessage, SuperChat,
// StreamHeartbeat, StreamStarted, StreamStopped and Unknown.
type Envelope interface {
	Type() Type
	envelope()
}

// JoinStream subscribes the connection to a stream's chat room.
type JoinStream struct {
	StreamID string
	UserID   string
}

// Sender identifies the user a chat line originates from.
type Sender struct {
	UserID    string
	Username  string
	AvatarURL string
}

// Chat holds the fields shared by normal and paid chat lines. ID, Timestamp,
// IsModeratorMessage and IsPinned are filled in by the server when it echoes
// the persisted message back.
type Chat struct {
	ID                 string
	StreamID           string
	Sender             Sender
	Message            string
	IsModeratorMessage bool
	IsPinned           bool
	Timestamp          time.Time
}

// ChatMessage is a normal chat line.
type ChatMessage struct {
	Chat
}

// SuperChat is a paid, highlighted chat line.
type SuperChat struct {
	Chat
	Amount   int64
	Currency string
	Color    string
}

// StreamHeartbeat asserts that a live stream is still active.
type StreamHeartbeat struct {
	StreamID string
	UserID   string
}

// StreamStarted announces that a stream went live.
type StreamStarted struct {
	StreamID string
}

// StreamStopped announces that a stream went offline.
type StreamStopped struct {
	StreamID string
}

// Unknown is produced for well-formed frames whose type tag is not
// recognised. Receivers are expected to ignore it.
type Unknown struct {
	Kind string
	Raw  json.RawMessage
}

func (JoinStream) Type() Type      { return TypeJoinStream }
func (ChatMessage) Type() Type     { return TypeChatMessage }
func (SuperChat) Type() Type       { return TypeSuperChat }
func (StreamHeartbeat) Type() Type { return TypeStreamHeartbeat }
func (StreamStarted) Type() Type   { return TypeStreamStarted }
func (StreamStopped) Type() Type   { return TypeStreamStopped }
func (u Unknown) Type() Type       { return Type(u.Kind) }

func (JoinStream) envelope()      {}
func (ChatMessage) envelope()     {}
func (SuperChat) envelope()       {}
func (StreamHeartbeat) envelope() {}
func (StreamStarted) envelope()   {}
func (StreamStopped) envelope()   {}
func (Unknown) envelope()         {}

// wireEnvelope is the flat JSON object every envelope is encoded to.
type wireEnvelope struct {
	Type               Type       `json:"type"`
	StreamID           string     `json:"streamId,omitempty"`
	UserID             string     `json:"userId,omitempty"`
	Username           string     `json:"username,omitempty"`
	AvatarURL          string     `json:"avatarUrl,omitempty"`
	ID                 string     `json:"id,omitempty"`
	Message            string     `json:"message,omitempty"`
	Amount             int64      `json:"amount,omitempty"`
	Currency           string     `json:"currency,omitempty"`
	Color              string     `json:"color,omitempty"`
	IsModeratorMessage bool       `json:"isModeratorMessage,omitempty"`
	IsPinned           bool       `json:"isPinned,omitempty"`
	Timestamp          *time.Time `json:"timestamp,omitempty"`
}

func (w *wireEnvelope) setChat(c Chat) {
	w.ID = c.ID
	w.StreamID = c.StreamID
	w.UserID = c.Sender.UserID
	w.Username = c.Sender.Username
	w.AvatarURL = c.Sender.AvatarURL
	w.Message = c.Message
	w.IsModeratorMessage = c.IsModeratorMessage
	w.IsPinned = c.IsPinned
	if !c.Timestamp.IsZero() {
		ts := c.Timestamp.UTC()
		w.Timestamp = &ts
	}
}

func (w *wireEnvelope) chat() Chat {
	c := Chat{
		ID:       w.ID,
		StreamID: w.StreamID,
		Sender: Sender{
			UserID:    w.UserID,
			Username:  w.Username,
			AvatarURL: w.AvatarURL,
		},
		Message:            w.Message,
		IsModeratorMessage: w.IsModeratorMessage,
		IsPinned:           w.IsPinned,
	}
	if w.Timestamp != nil {
		c.Timestamp = *w.Timestamp
	}
	return c
}

// Marshal encodes env to its JSON wire form.
func Marshal(env Envelope) ([]byte, error) {
	var w wireEnvelope
	switch e := env.(type) {
	case JoinStream:
		w = wireEnvelope{Type: TypeJoinStream, StreamID: e.StreamID, UserID: e.UserID}
	case ChatMessage:
		w.Type = TypeChatMessage
		w.setChat(e.Chat)
	case SuperChat:
		w.Type = TypeSuperChat
		w.setChat(e.Chat)
		w.Amount = e.Amount
		w.Currency = e.Currency
		w.Color = e.Color
	case StreamHeartbeat:
		w = wireEnvelope{Type: TypeStreamHeartbeat, StreamID: e.StreamID, UserID: e.UserID}
	case StreamStarted:
		w = wireEnvelope{Type: TypeStreamStarted, StreamID: e.StreamID}
	case StreamStopped:
		w = wireEnvelope{Type: TypeStreamStopped, StreamID: e.StreamID}
	case Unknown:
		if len(e.Raw) > 0 {
			return e.Raw, nil
		}
		return json.Marshal(map[string]string{"type": e.Kind})
	default:
		return nil, fmt.Errorf("realtime: cannot marshal %T", env)
	}
	return json.Marshal(w)
}

// Unmarshal decodes one wire frame. Frames with an unrecognised type decode
// to Unknown; frames that are not valid envelopes return ErrMalformed.
func Unmarshal(data []byte) (Envelope, error) {
	var w wireEnvelope
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	switch w.Type {
	case "":
		return nil, fmt.Errorf("%w: missing type", ErrMalformed)
	case TypeJoinStream:
		return JoinStream{StreamID: w.StreamID, UserID: w.UserID}, nil
	case TypeChatMessage:
		return ChatMessage{Chat: w.chat()}, nil
	case TypeSuperChat:
		return SuperChat{Chat: w.chat(), Amount: w.Amount, Currency: w.Currency, Color: w.Color}, nil
	case TypeStreamHeartbeat:
		return StreamHeartbeat{StreamID: w.StreamID, UserID: w.UserID}, nil
	case TypeStreamStarted:
		return StreamStarted{StreamID: w.StreamID}, nil
	case TypeStreamStopped:
		return StreamStopped{StreamID: w.StreamID}, nil
	default:
		raw := make(json.RawMessage, len(data))
		copy(raw, data)
		return Unknown{Kind: string(w.Type), Raw: raw}, nil
	}
}
