package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"streamchat/internal/chat"
)

const minWidth = 20

var (
	timeStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#808080"))
	nameStyle   = lipgloss.NewStyle().Bold(true)
	modStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FFFFFF")).Background(lipgloss.Color("#2E7D32")).Padding(0, 1)
	pinStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFB300"))
	borderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#505050"))
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#D50000"))
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
)

// FormatAmount renders 20000, "KRW" as "20,000 KRW".
func FormatAmount(amount int64, currency string) string {
	s := strconv.FormatInt(amount, 10)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")

	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if currency != "" {
		b.WriteByte(' ')
		b.WriteString(currency)
	}
	return b.String()
}

// RenderMessage formats one chat line for a view width columns wide. Super
// chats become a block in their tier colour; moderator and pinned lines get
// a badge.
func RenderMessage(m chat.Message, width int) string {
	if width < minWidth {
		width = minWidth
	}

	name := m.Username
	if name == "" {
		name = m.UserID
	}
	if name == "" {
		name = "anonymous"
	}
	ts := timeStyle.Render(m.Timestamp.Local().Format("15:04"))

	if m.Kind == chat.KindSuperChat {
		color := m.Color
		if color == "" {
			color = "#1E88E5"
		}
		block := lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(lipgloss.Color(color)).
			Padding(0, 1).
			Width(width)
		header := fmt.Sprintf("%s  %s", nameStyle.Render(name), FormatAmount(m.Amount, m.Currency))
		body := header
		if m.Content != "" {
			body += "\n" + m.Content
		}
		return ts + "\n" + block.Render(body)
	}

	prefix := ts + " "
	if m.IsPinned {
		prefix += pinStyle.Render("[PINNED]") + " "
	}
	if m.IsModeratorMessage {
		prefix += modStyle.Render("MOD") + " "
	}
	prefix += nameStyle.Render(name) + borderStyle.Render(":") + " "

	textWidth := width - lipgloss.Width(prefix)
	if textWidth < 10 {
		textWidth = 10
	}
	wrapped := lipgloss.NewStyle().Width(textWidth).Render(m.Content)
	lines := strings.Split(wrapped, "\n")

	indent := strings.Repeat(" ", lipgloss.Width(prefix))
	var b strings.Builder
	b.WriteString(prefix)
	b.WriteString(lines[0])
	for _, l := range lines[1:] {
		b.WriteString("\n")
		b.WriteString(indent)
		b.WriteString(l)
	}
	return b.String()
}
