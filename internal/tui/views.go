package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/gochat-dev/chatclient/internal/types"
)

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	if m.focused == paneAuth || m.stack == nil {
		return m.authView()
	}

	return lipgloss.JoinHorizontal(
		lipgloss.Top,
		m.sidebarView(),
		m.chatWindowView(),
	)
}

func (m Model) authView() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render("chatcli") + "\n\n")

	if m.authMode == modeLogin {
		s.WriteString("→ Login / Register\n\n")
	} else {
		s.WriteString("Login / → Register\n\n")
		s.WriteString("Name:     " + m.nameInput.View() + "\n")
	}

	s.WriteString("Email:    " + m.emailInput.View() + "\n")
	s.WriteString("Password: " + m.passwordInput.View() + "\n\n")

	if m.authErr != "" {
		s.WriteString(errorStyle.Render(m.authErr) + "\n")
	}

	if m.authBusy {
		s.WriteString(mutedStyle.Render("Connecting..."))
	} else {
		s.WriteString(mutedStyle.Render("Enter to submit • Tab to switch field • Ctrl+R toggle mode"))
	}

	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, boxStyle.Render(s.String()))
}

func (m Model) sidebarView() string {
	var s strings.Builder

	borderColor := mutedColor
	if m.focused == paneSidebar {
		borderColor = activeBorder
	}
	style := sidebarStyle.BorderForeground(borderColor)

	title := m.self.Name
	if n := len(m.stack.Client.Snapshot().Notifications); n > 0 {
		title += errorStyle.Render(fmt.Sprintf(" [%d]", n))
	}
	s.WriteString(titleStyle.Render(title) + "\n\n")

	if m.showNewGroup {
		s.WriteString("New group:\n")
		s.WriteString(m.newGroupInput.View() + "\n")
		s.WriteString(mutedStyle.Render("Enter to create, Esc to cancel") + "\n\n")
	}

	groups := m.stack.Directory.Groups()
	if len(groups) == 0 {
		s.WriteString(mutedStyle.Render("No groups.\n'n' to create."))
	}

	activeId := m.stack.Client.Snapshot().GroupId
	for i, group := range groups {
		line := group.Name
		if group.UnreadCount > 0 && group.Id != activeId {
			line += errorStyle.Render(fmt.Sprintf(" (%d)", group.UnreadCount))
		}

		if i == m.selectedGroup {
			s.WriteString(selectedItemStyle.Render(line) + "\n")
		} else {
			s.WriteString(unselectedItemStyle.Render(line) + "\n")
		}
	}

	return style.Render(s.String())
}

func (m Model) chatWindowView() string {
	snap := m.stack.Client.Snapshot()

	if snap.GroupId == "" {
		return chatWindowStyle.Render(
			lipgloss.Place(
				m.width-m.sidebarWidth()-6,
				m.height-4,
				lipgloss.Center, lipgloss.Center,
				mutedStyle.Render("Select a group to start chatting"),
			),
		)
	}

	borderColor := mutedColor
	if m.focused == paneChat {
		borderColor = activeBorder
	}

	headerText := m.groupName(snap.GroupId)
	if !snap.Connected {
		headerText = errorStyle.Render("offline") + " " + headerText
	}
	if snap.HistoryErr != nil {
		headerText += mutedStyle.Render("  history unavailable, retrying on reconnect")
	}
	header := headerStyle.Render(headerText)

	footerContent := m.messageInput.View()
	if line := typingLine(snap.Typing); line != "" {
		footerContent = mutedStyle.Render(line) + "\n" + footerContent
	}
	if m.actionErr != "" {
		footerContent = errorStyle.Render(m.actionErr) + "\n" + footerContent
	}
	footer := footerStyle.Render(footerContent)

	content := lipgloss.JoinVertical(
		lipgloss.Left,
		header,
		m.chatViewport.View(),
		footer,
	)

	return chatWindowStyle.BorderForeground(borderColor).Render(content)
}

func (m Model) renderMessages() string {
	snap := m.stack.Client.Snapshot()

	var s strings.Builder
	if snap.HasMore {
		s.WriteString(mutedStyle.Render("PgUp for older messages") + "\n")
	}

	for _, msg := range snap.Messages {
		s.WriteString(m.renderMessage(msg) + "\n")
	}

	return s.String()
}

func (m Model) renderMessage(msg types.Message) string {
	senderStyle := otherSenderStyle
	if msg.Sender.Id == m.self.Id {
		senderStyle = ownSenderStyle
	}

	line := fmt.Sprintf("%s %s: %s",
		mutedStyle.Render(formatRelativeTime(msg.CreatedAt)),
		senderStyle.Render(msg.Sender.Name),
		msg.Content,
	)

	if msg.MessageType == types.MessageTypeImage && msg.ImageUrl != "" {
		line += mutedStyle.Render(" [image: " + msg.ImageUrl + "]")
	}
	if msg.IsEdited {
		line += mutedStyle.Render(" (edited)")
	}
	if msg.Sender.Id == m.self.Id {
		if n := m.stack.Client.ReadCount(msg.Id); n > 0 {
			line += mutedStyle.Render(fmt.Sprintf(" ✓%d", n))
		}
	}

	return line
}

func (m Model) groupName(groupId string) string {
	for _, group := range m.stack.Directory.Groups() {
		if group.Id == groupId {
			return group.Name
		}
	}

	return groupId
}

func typingLine(typing []types.TypingEvent) string {
	if len(typing) == 0 {
		return ""
	}

	names := make([]string, len(typing))
	for i, ev := range typing {
		names[i] = ev.UserName
	}

	return strings.Join(names, ", ") + " typing..."
}

func formatRelativeTime(t time.Time) string {
	diff := time.Since(t)

	switch {
	case diff < time.Minute:
		return "now"
	case diff < time.Hour:
		return fmt.Sprintf("%dm", int(diff.Minutes()))
	case diff < 24*time.Hour:
		return fmt.Sprintf("%dh", int(diff.Hours()))
	default:
		return t.Format("Jan 2 15:04")
	}
}
