package client

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"chathub/pkg/chat"
)

type Model struct {
	ws       *WSClient
	input    textinput.Model
	messages []string
	typing   map[string]bool
	err      error
}

func NewModel(ws *WSClient) Model {
	ti := textinput.New()
	ti.Placeholder = "Type your message here"
	ti.Focus()
	ti.CharLimit = 256
	ti.Width = 50

	return Model{
		ws:     ws,
		input:  ti,
		typing: make(map[string]bool),
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.ws.Listen())
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.ws.Close()
			return m, tea.Quit
		case tea.KeyEnter:
			content := strings.TrimSpace(m.input.Value())
			if content != "" {
				if err := m.ws.SendChat(content); err != nil {
					m.err = err
					return m, tea.Quit
				}
				m.messages = append(m.messages, "you: "+content)
			}
			m.input.Reset()
			m.ws.SendTyping(false)
			return m, nil
		case tea.KeyRunes:
			// First keystroke into an empty input announces typing.
			if m.input.Value() == "" {
				m.ws.SendTyping(true)
			}
		}

	case serverEventMsg:
		m.apply(chat.ServerEvent(msg))
		return m, m.ws.Listen()

	case connectionLostMsg:
		m.err = msg.err
		return m, tea.Quit
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) apply(ev chat.ServerEvent) {
	switch ev.Type {
	case chat.EventChat:
		delete(m.typing, ev.Username)
		m.messages = append(m.messages, fmt.Sprintf("%s: %s", ev.Username, ev.Content))
	case chat.EventTyping:
		m.typing[ev.Username] = ev.IsTyping != nil && *ev.IsTyping
	case chat.EventUserJoined:
		m.messages = append(m.messages, fmt.Sprintf("* %s joined", ev.Username))
	case chat.EventUserLeft:
		delete(m.typing, ev.Username)
		m.messages = append(m.messages, fmt.Sprintf("* %s left", ev.Username))
	}
}

func (m Model) View() string {
	var b strings.Builder

	for _, line := range m.messages {
		b.WriteString(line)
		b.WriteString("\n")
	}

	for username, isTyping := range m.typing {
		if isTyping {
			b.WriteString(fmt.Sprintf("* %s is typing...\n", username))
		}
	}

	b.WriteString("\n")
	b.WriteString(m.input.View())
	b.WriteString("\n(esc to quit)\n")

	if m.err != nil {
		b.WriteString(fmt.Sprintf("\nconnection error: %v\n", m.err))
	}

	return b.String()
}
