package tui

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// CommandKind is what an input line asks for.
type CommandKind int

const (
	CmdChat CommandKind = iota
	CmdSuperChat
	CmdReconnect
	CmdQuit
	CmdHelp
)

// ErrUsage is returned for a malformed slash command.
var ErrUsage = errors.New("usage: /super <amount> <message>")

// Command is a parsed input line.
type Command struct {
	Kind   CommandKind
	Text   string
	Amount int64
}

const helpText = "/super <amount> <message>  send a super chat\n/reconnect  reopen the chat connection\n/quit  leave"

// ParseCommand turns an input line into a Command. Plain text is a chat
// message; its content is validated by the session, not here.
func ParseCommand(input string) (Command, error) {
	trimmed := strings.TrimSpace(input)
	if !strings.HasPrefix(trimmed, "/") {
		return Command{Kind: CmdChat, Text: input}, nil
	}

	name, rest, _ := strings.Cut(trimmed, " ")
	rest = strings.TrimSpace(rest)

	switch name {
	case "/super", "/superchat":
		amountStr, text, _ := strings.Cut(rest, " ")
		amountStr = strings.ReplaceAll(amountStr, ",", "")
		amount, err := strconv.ParseInt(amountStr, 10, 64)
		if err != nil {
			return Command{}, ErrUsage
		}
		return Command{Kind: CmdSuperChat, Amount: amount, Text: strings.TrimSpace(text)}, nil
	case "/reconnect":
		return Command{Kind: CmdReconnect}, nil
	case "/quit", "/exit":
		return Command{Kind: CmdQuit}, nil
	case "/help":
		return Command{Kind: CmdHelp}, nil
	default:
		return Command{}, fmt.Errorf("unknown command %s (try /help)", name)
	}
}
