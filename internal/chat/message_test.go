package chat

import (
	"testing"
	"time"

	"streamchat/internal/realtime"
)

func TestMaterialize_chat_message(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	env := realtime.ChatMessage{Chat: realtime.Chat{
		ID:       "m1",
		StreamID: "s1",
		Sender:   realtime.Sender{UserID: "u1", Username: "alice", AvatarURL: "/a.png"},
		Message:  "hi",
	}}

	msg, ok := Materialize(env, now)
	if !ok {
		t.Fatal("expected ok")
	}
	if msg.Kind != KindNormal || msg.Content != "hi" || msg.Username != "alice" || msg.AvatarURL != "/a.png" {
		t.Errorf("unexpected message: %+v", msg)
	}
	if !msg.Timestamp.Equal(now) {
		t.Errorf("missing timestamp should default to receive time, got %s", msg.Timestamp)
	}
	if msg.HighlightDuration() != 0 {
		t.Error("normal messages are not highlighted")
	}
}

func TestMaterialize_moderator(t *testing.T) {
	ts := time.Date(2026, 3, 1, 11, 0, 0, 0, time.UTC)
	env := realtime.ChatMessage{Chat: realtime.Chat{Message: "rules", IsModeratorMessage: true, IsPinned: true, Timestamp: ts}}

	msg, _ := Materialize(env, time.Now())
	if msg.Kind != KindModerator || !msg.IsModeratorMessage || !msg.IsPinned {
		t.Errorf("expected pinned moderator message: %+v", msg)
	}
	if !msg.Timestamp.Equal(ts) {
		t.Errorf("server timestamp should win, got %s", msg.Timestamp)
	}
}

func TestMaterialize_superchat_color(t *testing.T) {
	t.Run("derived_from_tier", func(t *testing.T) {
		msg, ok := Materialize(realtime.SuperChat{Chat: realtime.Chat{Message: "go"}, Amount: 20000, Currency: "KRW"}, time.Now())
		if !ok {
			t.Fatal("expected ok")
		}
		tier, _ := TierFor(20000)
		if msg.Kind != KindSuperChat || msg.Color != tier.Color {
			t.Errorf("expected tier color %s, got %+v", tier.Color, msg)
		}
		if msg.HighlightDuration() != 300*time.Second {
			t.Errorf("expected 300s highlight, got %s", msg.HighlightDuration())
		}
	})
	t.Run("server_color_kept", func(t *testing.T) {
		msg, _ := Materialize(realtime.SuperChat{Amount: 5000, Color: "#123456"}, time.Now())
		if msg.Color != "#123456" {
			t.Errorf("expected server color, got %s", msg.Color)
		}
	})
}

func TestMaterialize_other_types(t *testing.T) {
	for _, env := range []realtime.Envelope{
		realtime.JoinStream{StreamID: "s"},
		realtime.StreamHeartbeat{StreamID: "s"},
		realtime.StreamStarted{StreamID: "s"},
		realtime.StreamStopped{StreamID: "s"},
		realtime.Unknown{Kind: "poll"},
	} {
		if _, ok := Materialize(env, time.Now()); ok {
			t.Errorf("Materialize(%T) should not produce a message", env)
		}
	}
}
