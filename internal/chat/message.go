package chat

import (
	"time"

	"streamchat/internal/realtime"
)

// Kind selects how a chat line is rendered.
type Kind string

const (
	KindNormal    Kind = "normal"
	KindSuperChat Kind = "superchat"
	KindModerator Kind = "moderator"
)

// Message is a received chat line as kept in a session log.
type Message struct {
	ID        string
	StreamID  string
	UserID    string
	Username  string
	AvatarURL string
	Content   string
	Kind      Kind

	// Set for super chats only.
	Amount   int64
	Currency string
	Color    string

	IsModeratorMessage bool
	IsPinned           bool
	Timestamp          time.Time
}

// HighlightDuration is how long a super chat stays highlighted; zero for
// other kinds.
func (m Message) HighlightDuration() time.Duration {
	if m.Kind != KindSuperChat {
		return 0
	}
	tier, ok := TierFor(m.Amount)
	if !ok {
		return 0
	}
	return tier.Duration
}

// Materialize turns a chat_message or superchat envelope into a Message. ok
// is false for every other envelope type.
func Materialize(env realtime.Envelope, receivedAt time.Time) (msg Message, ok bool) {
	switch e := env.(type) {
	case realtime.ChatMessage:
		msg = fromChat(e.Chat, receivedAt)
		msg.Kind = KindNormal
		if e.IsModeratorMessage {
			msg.Kind = KindModerator
		}
		return msg, true
	case realtime.SuperChat:
		msg = fromChat(e.Chat, receivedAt)
		msg.Kind = KindSuperChat
		msg.Amount = e.Amount
		msg.Currency = e.Currency
		msg.Color = e.Color
		if msg.Color == "" {
			if tier, ok := TierFor(e.Amount); ok {
				msg.Color = tier.Color
			}
		}
		return msg, true
	default:
		return Message{}, false
	}
}

func fromChat(c realtime.Chat, receivedAt time.Time) Message {
	ts := c.Timestamp
	if ts.IsZero() {
		ts = receivedAt
	}
	return Message{
		ID:                 c.ID,
		StreamID:           c.StreamID,
		UserID:             c.Sender.UserID,
		Username:           c.Sender.Username,
		AvatarURL:          c.Sender.AvatarURL,
		Content:            c.Message,
		IsModeratorMessage: c.IsModeratorMessage,
		IsPinned:           c.IsPinned,
		Timestamp:          ts,
	}
}
