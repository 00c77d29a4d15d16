// Package tui is the terminal front end: an auth form, a group sidebar and
// the conversation pane, rendered from Client snapshots.
package tui

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/gochat-dev/chatclient/internal/chat"
	"github.com/gochat-dev/chatclient/internal/session"
	"github.com/gochat-dev/chatclient/internal/types"
)

const typingInterval = 2 * time.Second

// ChatStack bundles the pieces that only exist once a session is
// authenticated: the realtime-backed client and the group directory.
type ChatStack struct {
	Client    *chat.Client
	Directory *chat.Directory
}

type pane int

const (
	paneAuth pane = iota
	paneSidebar
	paneChat
)

type authMode int

const (
	modeLogin authMode = iota
	modeRegister
)

// tea messages

type stateMsg struct{}

type authResultMsg struct {
	err error
}

type stackReadyMsg struct {
	stack *ChatStack
	err   error
}

type groupCreatedMsg struct {
	group *types.Group
	err   error
}

type actionErrMsg struct {
	err error
}

type Model struct {
	session *session.Store
	// buildStack is invoked once credentials are valid; it connects the
	// realtime channel and constructs the chat client.
	buildStack func() (*ChatStack, error)
	log        *log.Logger

	stack *ChatStack
	self  types.UserSummary

	width  int
	height int

	focused  pane
	authMode authMode

	nameInput     textinput.Model
	emailInput    textinput.Model
	passwordInput textinput.Model
	authFocused   int
	authErr       string
	authBusy      bool

	selectedGroup int
	showNewGroup  bool
	newGroupInput textinput.Model

	messageInput   textinput.Model
	chatViewport   viewport.Model
	lastTypingSent time.Time
	typingActive   bool
	lastMarkedRead string
	actionErr      string

	quitting bool
}

func NewModel(store *session.Store, buildStack func() (*ChatStack, error), logger *log.Logger) Model {
	nameInput := textinput.New()
	nameInput.Placeholder = "Name"
	nameInput.CharLimit = 64
	nameInput.Width = 30

	emailInput := textinput.New()
	emailInput.Placeholder = "Email"
	emailInput.CharLimit = 128
	emailInput.Width = 30
	emailInput.Focus()

	passwordInput := textinput.New()
	passwordInput.Placeholder = "Password"
	passwordInput.EchoMode = textinput.EchoPassword
	passwordInput.CharLimit = 128
	passwordInput.Width = 30

	messageInput := textinput.New()
	messageInput.Placeholder = "Type a message..."
	messageInput.CharLimit = 2000
	messageInput.Width = 50

	newGroupInput := textinput.New()
	newGroupInput.Placeholder = "Group name..."
	newGroupInput.CharLimit = 64
	newGroupInput.Width = 30

	m := Model{
		session:       store,
		buildStack:    buildStack,
		log:           logger,
		focused:       paneAuth,
		nameInput:     nameInput,
		emailInput:    emailInput,
		passwordInput: passwordInput,
		messageInput:  messageInput,
		newGroupInput: newGroupInput,
		chatViewport:  viewport.New(80, 20),
	}

	if user, ok := store.CurrentUser(); ok {
		m.self = user.Summary()
		m.authBusy = true
	}

	return m
}

func (m Model) Init() tea.Cmd {
	// a restored session skips the auth form entirely
	if _, ok := m.session.CurrentUser(); ok {
		return tea.Batch(textinput.Blink, m.connectStack())
	}

	return textinput.Blink
}

// commands

func (m Model) connectStack() tea.Cmd {
	build := m.buildStack
	return func() tea.Msg {
		stack, err := build()
		return stackReadyMsg{stack: stack, err: err}
	}
}

func waitForUpdate(stack *ChatStack) tea.Cmd {
	return func() tea.Msg {
		<-stack.Client.Updates()
		return stateMsg{}
	}
}

func (m Model) submitAuth() tea.Cmd {
	store := m.session
	mode := m.authMode
	name := m.nameInput.Value()
	email := m.emailInput.Value()
	password := m.passwordInput.Value()

	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		var err error
		if mode == modeRegister {
			err = store.Register(ctx, name, email, password)
		} else {
			err = store.Login(ctx, email, password)
		}

		return authResultMsg{err: err}
	}
}

func (m Model) createGroup(name string) tea.Cmd {
	directory := m.stack.Directory
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		group, err := directory.Create(ctx, types.CreateGroupRequest{Name: name})
		return groupCreatedMsg{group: group, err: err}
	}
}

func (m Model) sendMessage(content string) tea.Cmd {
	client := m.stack.Client
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		if err := client.Send(ctx, chat.SendOptions{Content: content}); err != nil {
			return actionErrMsg{err: err}
		}
		return nil
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()

	case authResultMsg:
		m.authBusy = false
		if msg.err != nil {
			m.authErr = msg.err.Error()
			return m, nil
		}
		m.authErr = ""
		if user, ok := m.session.CurrentUser(); ok {
			m.self = user.Summary()
		}
		m.authBusy = true
		return m, m.connectStack()

	case stackReadyMsg:
		m.authBusy = false
		if msg.err != nil {
			m.authErr = msg.err.Error()
			m.focused = paneAuth
			return m, nil
		}
		m.stack = msg.stack
		m.focused = paneSidebar
		return m, waitForUpdate(m.stack)

	case stateMsg:
		m.syncChatViewport()
		cmds = append(cmds, waitForUpdate(m.stack), m.markReadIfNeeded())

	case groupCreatedMsg:
		if msg.err != nil {
			m.actionErr = msg.err.Error()
			return m, nil
		}
		m.showNewGroup = false
		m.selectedGroup = 0
		m.stack.Client.SelectGroup(msg.group.Id)
		m.focused = paneChat
		m.messageInput.Focus()

	case actionErrMsg:
		m.actionErr = msg.err.Error()
	}

	return m, tea.Batch(cmds...)
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		m.quitting = true
		return m, tea.Quit
	}

	switch m.focused {
	case paneAuth:
		return m.handleAuthKey(msg)
	case paneSidebar:
		return m.handleSidebarKey(msg)
	case paneChat:
		return m.handleChatKey(msg)
	}

	return m, nil
}

func (m Model) handleAuthKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.authBusy {
		return m, nil
	}

	switch msg.String() {
	case "tab", "shift+tab":
		fields := m.authFields()
		for _, f := range fields {
			f.Blur()
		}
		if msg.String() == "tab" {
			m.authFocused = (m.authFocused + 1) % len(fields)
		} else {
			m.authFocused = (m.authFocused + len(fields) - 1) % len(fields)
		}
		fields[m.authFocused].Focus()
		return m, nil

	case "ctrl+r":
		if m.authMode == modeLogin {
			m.authMode = modeRegister
		} else {
			m.authMode = modeLogin
		}
		m.authFocused = 0
		for _, f := range m.authFields() {
			f.Blur()
		}
		m.authFields()[0].Focus()
		return m, nil

	case "enter":
		if m.emailInput.Value() == "" || m.passwordInput.Value() == "" {
			return m, nil
		}
		if m.authMode == modeRegister && m.nameInput.Value() == "" {
			return m, nil
		}
		m.authBusy = true
		m.authErr = ""
		return m, m.submitAuth()
	}

	var cmd tea.Cmd
	switch m.authFields()[m.authFocused] {
	case &m.nameInput:
		m.nameInput, cmd = m.nameInput.Update(msg)
	case &m.emailInput:
		m.emailInput, cmd = m.emailInput.Update(msg)
	case &m.passwordInput:
		m.passwordInput, cmd = m.passwordInput.Update(msg)
	}

	return m, cmd
}

// authFields is the tab order of the auth form for the current mode.
func (m *Model) authFields() []*textinput.Model {
	if m.authMode == modeRegister {
		return []*textinput.Model{&m.nameInput, &m.emailInput, &m.passwordInput}
	}

	return []*textinput.Model{&m.emailInput, &m.passwordInput}
}

func (m Model) handleSidebarKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.showNewGroup {
		switch msg.String() {
		case "esc":
			m.showNewGroup = false
			return m, nil
		case "enter":
			if name := m.newGroupInput.Value(); name != "" {
				m.newGroupInput.SetValue("")
				return m, m.createGroup(name)
			}
			return m, nil
		}
		var cmd tea.Cmd
		m.newGroupInput, cmd = m.newGroupInput.Update(msg)
		return m, cmd
	}

	groups := m.stack.Directory.Groups()

	switch msg.String() {
	case "q":
		m.quitting = true
		return m, tea.Quit
	case "up", "k":
		if m.selectedGroup > 0 {
			m.selectedGroup--
		}
	case "down", "j":
		if m.selectedGroup < len(groups)-1 {
			m.selectedGroup++
		}
	case "enter", "l", "right":
		if m.selectedGroup < len(groups) {
			group := groups[m.selectedGroup]
			if group.Id != m.stack.Client.Snapshot().GroupId {
				m.stack.Client.SelectGroup(group.Id)
				m.lastMarkedRead = ""
			}
			m.focused = paneChat
			m.messageInput.Focus()
		}
	case "n":
		m.showNewGroup = true
		m.newGroupInput.Focus()
	case "N":
		m.stack.Client.ClearNotifications()
	}

	return m, nil
}

func (m Model) handleChatKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg.String() {
	case "esc":
		m.focused = paneSidebar
		m.messageInput.Blur()
		if m.typingActive {
			m.stack.Client.SetTyping(false)
			m.typingActive = false
		}
		return m, nil
	case "pgup":
		if m.chatViewport.AtTop() {
			m.stack.Client.LoadOlder()
		}
	case "enter":
		if content := m.messageInput.Value(); content != "" {
			m.messageInput.SetValue("")
			m.actionErr = ""
			// the send itself ends the typing state for everyone else
			m.typingActive = false
			cmds = append(cmds, m.sendMessage(content))
		}
	}

	var cmd tea.Cmd
	m.messageInput, cmd = m.messageInput.Update(msg)
	cmds = append(cmds, cmd)
	m.chatViewport, cmd = m.chatViewport.Update(msg)
	cmds = append(cmds, cmd)

	// throttled typing signal while the user has text in flight, and an
	// explicit stop when the input is cleared
	if m.messageInput.Value() != "" {
		if time.Since(m.lastTypingSent) > typingInterval {
			m.lastTypingSent = time.Now()
			m.typingActive = true
			m.stack.Client.SetTyping(true)
		}
	} else if m.typingActive {
		m.typingActive = false
		m.stack.Client.SetTyping(false)
	}

	return m, tea.Batch(cmds...)
}

// markReadIfNeeded reports the newest visible message as read, once per
// message, while the conversation pane is focused.
func (m *Model) markReadIfNeeded() tea.Cmd {
	if m.stack == nil || m.focused != paneChat {
		return nil
	}

	snap := m.stack.Client.Snapshot()
	if len(snap.Messages) == 0 {
		return nil
	}

	newest := snap.Messages[len(snap.Messages)-1]
	if newest.Id == m.lastMarkedRead || newest.Sender.Id == m.self.Id {
		return nil
	}
	m.lastMarkedRead = newest.Id

	m.stack.Client.MarkRead(newest.Id)
	return nil
}

func (m *Model) resize() {
	sidebarWidth := m.sidebarWidth()
	chatWidth := m.width - sidebarWidth - 4
	chatHeight := m.height - 2

	sidebarStyle = sidebarStyle.Width(sidebarWidth - 2).Height(m.height - 2)
	chatWindowStyle = chatWindowStyle.Width(chatWidth).Height(chatHeight)
	headerStyle = headerStyle.Width(chatWidth - 2)
	footerStyle = footerStyle.Width(chatWidth - 2)

	m.chatViewport = viewport.New(chatWidth-4, chatHeight-7)
	m.messageInput.Width = chatWidth - 6
	m.syncChatViewport()
}

func (m *Model) sidebarWidth() int {
	w := m.width / 4
	if w < 25 {
		w = 25
	}
	return w
}

func (m *Model) syncChatViewport() {
	if m.stack == nil {
		return
	}

	atBottom := m.chatViewport.AtBottom()
	m.chatViewport.SetContent(m.renderMessages())
	if atBottom {
		m.chatViewport.GotoBottom()
	}
}

// Err surfaces a fatal startup problem to main after the program exits.
func (m Model) Err() error {
	if m.stack == nil && m.authErr != "" && m.quitting {
		return errors.New(m.authErr)
	}

	return nil
}
