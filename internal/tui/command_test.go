package tui

import (
	"errors"
	"testing"
)

func TestParseCommand(t *testing.T) {
	t.Run("plain_text_is_chat", func(t *testing.T) {
		cmd, err := ParseCommand("hello there")
		if err != nil || cmd.Kind != CmdChat || cmd.Text != "hello there" {
			t.Errorf("got %+v, %v", cmd, err)
		}
	})

	t.Run("super_chat", func(t *testing.T) {
		cmd, err := ParseCommand("/super 20,000 thank you")
		if err != nil {
			t.Fatalf("ParseCommand: %v", err)
		}
		if cmd.Kind != CmdSuperChat || cmd.Amount != 20000 || cmd.Text != "thank you" {
			t.Errorf("got %+v", cmd)
		}
	})

	t.Run("super_chat_without_text", func(t *testing.T) {
		cmd, err := ParseCommand("/super 5000")
		if err != nil || cmd.Amount != 5000 || cmd.Text != "" {
			t.Errorf("got %+v, %v", cmd, err)
		}
	})

	t.Run("super_chat_bad_amount", func(t *testing.T) {
		if _, err := ParseCommand("/super lots hi"); !errors.Is(err, ErrUsage) {
			t.Errorf("expected ErrUsage, got %v", err)
		}
	})

	t.Run("control_commands", func(t *testing.T) {
		for input, want := range map[string]CommandKind{
			"/reconnect": CmdReconnect,
			"/quit":      CmdQuit,
			"/exit":      CmdQuit,
			"/help":      CmdHelp,
		} {
			cmd, err := ParseCommand(input)
			if err != nil || cmd.Kind != want {
				t.Errorf("%s: got %+v, %v", input, cmd, err)
			}
		}
	})

	t.Run("unknown_command", func(t *testing.T) {
		if _, err := ParseCommand("/dance"); err == nil {
			t.Error("expected error")
		}
	})
}
