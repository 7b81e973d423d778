// Package tui is the terminal chat view used by cmd/streamer.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"streamchat/internal/chat"
	"streamchat/internal/heartbeat"
)

const (
	statusEvery    = 500 * time.Millisecond
	connectTimeout = 10 * time.Second
)

// Session is the chat state the view drives. *chat.Session satisfies it.
type Session interface {
	Connect(ctx context.Context, streamID, userID string) error
	IsConnected() bool
	SendChat(text string) error
	SendSuperChat(text string, amount int64) error
	Messages() []chat.Message
}

// HeartbeatStatus reports the heartbeat manager's state for the header.
// *heartbeat.Manager satisfies it.
type HeartbeatStatus interface {
	State() heartbeat.State
	ArmedStream() string
}

// MessageMsg tells the view the session log grew. Send it from the
// session's OnMessage hook with Program.Send.
type MessageMsg chat.Message

type connectResultMsg struct{ err error }

type sendResultMsg struct{ err error }

type statusTickMsg time.Time

// Options configures a Model.
type Options struct {
	Session   Session
	StreamID  string
	UserID    string
	Heartbeat HeartbeatStatus

	// History is shown above the live log.
	History []chat.Message
}

// Model is the bubbletea model for one stream's chat.
type Model struct {
	session   Session
	streamID  string
	userID    string
	heartbeat HeartbeatStatus
	history   []chat.Message

	viewport  viewport.Model
	textInput textinput.Model
	ready     bool
	width     int

	connected bool
	sending   bool
	status    string
	notices   []string
}

// New returns a Model that connects the session when started.
func New(opts Options) Model {
	ti := textinput.New()
	ti.Placeholder = "Connecting..."
	ti.Focus()
	ti.CharLimit = 500
	ti.Width = 20

	return Model{
		session:   opts.Session,
		streamID:  opts.StreamID,
		userID:    opts.UserID,
		heartbeat: opts.Heartbeat,
		history:   opts.History,
		textInput: ti,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.connect(), statusTick())
}

func (m Model) connect() tea.Cmd {
	session, streamID, userID := m.session, m.streamID, m.userID
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
		defer cancel()
		return connectResultMsg{err: session.Connect(ctx, streamID, userID)}
	}
}

func statusTick() tea.Cmd {
	return tea.Tick(statusEvery, func(t time.Time) tea.Msg { return statusTickMsg(t) })
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var (
		tiCmd tea.Cmd
		vpCmd tea.Cmd
	)

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			input := m.textInput.Value()
			if strings.TrimSpace(input) == "" {
				return m, nil
			}
			return m.submit(input)
		}

	case tea.WindowSizeMsg:
		headerHeight := 1
		footerHeight := 3
		verticalMarginHeight := headerHeight + footerHeight

		if !m.ready {
			m.viewport = viewport.New(msg.Width, msg.Height-verticalMarginHeight)
			m.viewport.YPosition = headerHeight
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = msg.Height - verticalMarginHeight
		}
		m.width = msg.Width
		m.textInput.Width = msg.Width - 3
		m.refresh()

	case connectResultMsg:
		if msg.err != nil {
			m.status = "connect failed: " + msg.err.Error()
		} else {
			m.status = ""
		}
		m.setConnected(m.session.IsConnected())
		return m, nil

	case sendResultMsg:
		m.sending = false
		if msg.err != nil {
			m.status = describe(msg.err)
		} else {
			m.status = ""
			m.textInput.SetValue("")
		}
		return m, nil

	case MessageMsg:
		m.refresh()
		return m, nil

	case statusTickMsg:
		if was := m.connected; was != m.session.IsConnected() {
			m.setConnected(!was)
			if was {
				m.status = "connection lost, /reconnect to retry"
			}
		}
		return m, statusTick()
	}

	m.textInput, tiCmd = m.textInput.Update(msg)
	m.viewport, vpCmd = m.viewport.Update(msg)

	return m, tea.Batch(tiCmd, vpCmd)
}

func (m Model) submit(input string) (tea.Model, tea.Cmd) {
	cmd, err := ParseCommand(input)
	if err != nil {
		m.status = err.Error()
		return m, nil
	}

	switch cmd.Kind {
	case CmdQuit:
		return m, tea.Quit
	case CmdHelp:
		m.notices = append(m.notices, helpText)
		m.textInput.SetValue("")
		m.refresh()
		return m, nil
	case CmdReconnect:
		m.textInput.SetValue("")
		m.status = "reconnecting..."
		return m, m.connect()
	}

	if cmd.Kind == CmdSuperChat {
		if err := chat.ValidateSuperChatAmount(cmd.Amount); err != nil {
			m.status = describe(err)
			return m, nil
		}
	}
	if !m.connected {
		m.status = describe(chat.ErrNotConnected)
		return m, nil
	}

	// the session is single-flight as well; this keeps the input from
	// queueing keystrokes behind a slow send
	if m.sending {
		m.status = "previous message still sending"
		return m, nil
	}
	m.sending = true

	session := m.session
	return m, func() tea.Msg {
		if cmd.Kind == CmdSuperChat {
			return sendResultMsg{err: session.SendSuperChat(cmd.Text, cmd.Amount)}
		}
		return sendResultMsg{err: session.SendChat(cmd.Text)}
	}
}

func (m *Model) setConnected(ok bool) {
	m.connected = ok
	if ok {
		m.textInput.Placeholder = "Say something, or /help"
	} else {
		m.textInput.Placeholder = "Disconnected"
	}
}

// refresh re-renders the log into the viewport and scrolls to the newest
// line.
func (m *Model) refresh() {
	if !m.ready {
		return
	}
	var lines []string
	for _, h := range m.history {
		lines = append(lines, RenderMessage(h, m.width))
	}
	for _, msg := range m.session.Messages() {
		lines = append(lines, RenderMessage(msg, m.width))
	}
	lines = append(lines, m.notices...)
	m.viewport.SetContent(strings.Join(lines, "\n"))
	m.viewport.GotoBottom()
}

func (m Model) View() string {
	if !m.ready {
		return "\n  Initializing..."
	}
	return fmt.Sprintf("%s\n%s\n%s\n%s\n%s",
		m.header(),
		m.viewport.View(),
		borderStyle.Render(strings.Repeat("─", m.viewport.Width)),
		m.textInput.View(),
		statusStyle.Render(m.status),
	)
}

func (m Model) header() string {
	conn := "offline"
	if m.connected {
		conn = "live chat"
	}
	parts := []string{"stream " + m.streamID, conn}
	if m.heartbeat != nil {
		hb := "heartbeat " + m.heartbeat.State().String()
		if id := m.heartbeat.ArmedStream(); id != "" {
			hb += " (" + id + ")"
		}
		parts = append(parts, hb)
	}
	return headerStyle.Render(strings.Join(parts, " · "))
}

// describe turns send errors into the status line shown under the input.
func describe(err error) string {
	switch {
	case errors.Is(err, chat.ErrEmptyMessage):
		return "message is empty"
	case errors.Is(err, chat.ErrAmountBelowMinimum):
		return fmt.Sprintf("super chats start at %s", FormatAmount(chat.MinSuperChatAmount, ""))
	case errors.Is(err, chat.ErrNotConnected):
		return "not connected, /reconnect to retry"
	case errors.Is(err, chat.ErrSendInFlight):
		return "previous message still sending"
	default:
		return err.Error()
	}
}
