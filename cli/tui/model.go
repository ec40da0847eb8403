// Package tui provides the interactive chat session for the caravel CLI
// using the Bubble Tea framework.
package tui

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/caravel-hq/caravel/llm"
)

// streamTokenMsg carries one streamed text fragment.
type streamTokenMsg string

// streamDoneMsg signals the end of one completion, successful or not.
type streamDoneMsg struct {
	text string
	err  error
}

// Model is the root Bubble Tea model for the chat session.
type Model struct {
	client  *llm.Client
	profile string

	viewport viewport.Model
	input    textinput.Model
	spin     spinner.Model

	history []llm.Message
	partial strings.Builder
	stream  <-chan tea.Msg
	waiting bool
	lastErr error

	width  int
	height int
	ready  bool
}

// New creates a chat model bound to one client.
func New(client *llm.Client, profile string) *Model {
	ti := textinput.New()
	ti.Placeholder = "Type a message..."
	ti.Prompt = "> "
	ti.CharLimit = 4096
	ti.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = spinnerStyle

	return &Model{
		client:  client,
		profile: profile,
		input:   ti,
		spin:    sp,
		width:   80,
		height:  24,
	}
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case streamTokenMsg:
		m.partial.WriteString(string(msg))
		m.refreshViewport()
		return m, readStream(m.stream)

	case streamDoneMsg:
		return m.finishTurn(msg)

	case spinner.TickMsg:
		if !m.waiting {
			return m, nil
		}
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "esc":
		return m, tea.Quit

	case "enter":
		if m.waiting {
			return m, nil
		}
		prompt := strings.TrimSpace(m.input.Value())
		if prompt == "" {
			return m, nil
		}
		m.input.Reset()
		m.lastErr = nil
		return m, m.startTurn(prompt)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// startTurn appends the user message to the history and launches the
// completion in the background. Fragments and the final result arrive
// as messages on a channel so all model state stays on the UI loop.
func (m *Model) startTurn(prompt string) tea.Cmd {
	m.history = append(m.history, llm.UserMessage(prompt))
	m.partial.Reset()
	m.waiting = true
	m.refreshViewport()

	conversation := make([]any, len(m.history))
	for i, msg := range m.history {
		conversation[i] = msg
	}

	ch := make(chan tea.Msg, 64)
	m.stream = ch
	client := m.client
	go func() {
		defer close(ch)
		text, err := client.Ask(context.Background(), conversation,
			llm.WithDelta(func(delta string) {
				ch <- streamTokenMsg(delta)
			}))
		ch <- streamDoneMsg{text: text, err: err}
	}()

	return tea.Batch(m.spin.Tick, readStream(ch))
}

func (m *Model) finishTurn(msg streamDoneMsg) (tea.Model, tea.Cmd) {
	m.waiting = false
	m.stream = nil
	m.partial.Reset()

	if msg.err != nil {
		m.lastErr = msg.err
	} else {
		m.history = append(m.history, llm.AssistantMessage(msg.text))
	}
	m.refreshViewport()
	return m, nil
}

// readStream pulls the next message off the completion channel.
func readStream(ch <-chan tea.Msg) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		return <-ch
	}
}

func (m *Model) resize(width, height int) {
	m.width = width
	m.height = height

	chromeHeight := 4
	if !m.ready {
		m.viewport = viewport.New(width, max(height-chromeHeight, 1))
		m.ready = true
	} else {
		m.viewport.Width = width
		m.viewport.Height = max(height-chromeHeight, 1)
	}
	m.input.Width = max(width-4, 10)
	m.refreshViewport()
}

func (m *Model) refreshViewport() {
	if !m.ready {
		return
	}
	m.viewport.SetContent(m.renderConversation())
	m.viewport.GotoBottom()
}
