// Package tui implements the interactive writers-room console: a two-tab
// chat over the scriptwriter and scene-writer surfaces with live streaming
// output.
package tui

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/halvik/showrunner/internal/agent"
	"github.com/halvik/showrunner/internal/chat"
	"github.com/halvik/showrunner/internal/payload"
)

type conversationChangedMsg struct{}

type submitDoneMsg struct {
	kind agent.Kind
	err  error
}

type refreshDoneMsg struct {
	entries []chat.Entry
}

type openDoneMsg struct {
	sessionID string
	err       error
}

// Model is the bubbletea model for the console.
type Model struct {
	client *agent.Client
	dir    *chat.Directory
	logger *slog.Logger

	kinds   []agent.Kind
	active  int
	entries []chat.Entry

	width       int
	height      int
	statusLine  string
	showPayload bool
	payloadText string

	// changes carries conversation OnChange signals into the bubbletea
	// loop. Buffered so a streaming goroutine never blocks on the UI.
	changes chan struct{}

	input    textinput.Model
	timeline viewport.Model
	spinner  spinner.Model
	theme    theme
}

// New builds the console over an agent client. It wires one conversation
// per agent kind into a session directory and shares a single change
// channel across both surfaces.
func New(client *agent.Client, logger *slog.Logger) Model {
	if logger == nil {
		logger = slog.Default()
	}

	changes := make(chan struct{}, 1)
	notify := func() {
		select {
		case changes <- struct{}{}:
		default:
		}
	}

	convs := make(map[agent.Kind]*chat.Conversation, len(agent.Kinds()))
	for _, kind := range agent.Kinds() {
		convs[kind] = chat.New(chat.Config{
			Kind:     kind,
			AgentKey: string(kind),
			OnChange: notify,
			Logger:   logger,
		}, client)
	}

	input := textinput.New()
	input.Prompt = "❯ "
	input.CharLimit = 4000
	input.Placeholder = "Describe the scene or script you want…"
	input.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Points
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#05ffa1"))

	return Model{
		client:     client,
		dir:        chat.NewDirectory(client, convs, logger),
		logger:     logger,
		kinds:      agent.Kinds(),
		statusLine: "ready",
		changes:    changes,
		input:      input,
		timeline:   viewport.New(0, 0),
		spinner:    sp,
		theme:      newTheme(),
	}
}

// Run starts the console and blocks until the user quits.
func Run(client *agent.Client, logger *slog.Logger) error {
	p := tea.NewProgram(New(client, logger), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("run console: %w", err)
	}
	return nil
}

func (m Model) conversation() *chat.Conversation {
	return m.dir.Conversation(m.kinds[m.active])
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		textinput.Blink,
		m.refreshCmd(),
		waitChange(m.changes),
	)
}

func waitChange(changes <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		<-changes
		return conversationChangedMsg{}
	}
}

func (m Model) refreshCmd() tea.Cmd {
	dir := m.dir
	return func() tea.Msg {
		dir.Refresh(context.Background())
		return refreshDoneMsg{entries: dir.Combined()}
	}
}

func (m Model) submitCmd(conv *chat.Conversation, text string) tea.Cmd {
	return func() tea.Msg {
		return submitDoneMsg{kind: conv.Kind(), err: conv.Submit(context.Background(), text)}
	}
}

func (m Model) openLatestCmd() tea.Cmd {
	dir := m.dir
	kind := m.kinds[m.active]
	return func() tea.Msg {
		for _, entry := range dir.Combined() {
			if entry.Kind == kind {
				return openDoneMsg{sessionID: entry.SessionID, err: dir.Open(context.Background(), kind, entry.SessionID)}
			}
		}
		return openDoneMsg{err: fmt.Errorf("no saved sessions for %s", kind)}
	}
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.timeline.Width = max(msg.Width-4, 20)
		m.timeline.Height = max(msg.Height-9, 3)
		m.input.Width = max(msg.Width-8, 20)
		m.renderTimeline()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)

	case conversationChangedMsg:
		m.renderTimeline()
		m.timeline.GotoBottom()
		cmds = append(cmds, waitChange(m.changes))

	case submitDoneMsg:
		if msg.err != nil {
			m.statusLine = msg.err.Error()
		} else if lastErr := m.dir.Conversation(msg.kind).LastError(); lastErr != "" {
			m.statusLine = lastErr
		} else {
			m.statusLine = "ready"
		}
		m.renderTimeline()
		// The run may have created a session server-side.
		cmds = append(cmds, m.refreshCmd())

	case refreshDoneMsg:
		m.entries = msg.entries

	case openDoneMsg:
		if msg.err != nil {
			m.statusLine = msg.err.Error()
		} else {
			m.statusLine = "resumed session " + msg.sessionID
			m.renderTimeline()
			m.timeline.GotoBottom()
		}

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	var cmd tea.Cmd
	m.timeline, cmd = m.timeline.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit

	case "esc":
		if m.showPayload {
			m.showPayload = false
			return m, nil
		}
		return m, tea.Quit

	case "tab":
		m.active = (m.active + 1) % len(m.kinds)
		m.showPayload = false
		m.renderTimeline()
		m.timeline.GotoBottom()
		return m, nil

	case "ctrl+r":
		m.statusLine = "refreshing sessions…"
		return m, m.refreshCmd()

	case "ctrl+o":
		return m, m.openLatestCmd()

	case "ctrl+p":
		m.togglePayload()
		return m, nil

	case "enter":
		if m.showPayload {
			m.showPayload = false
			return m, nil
		}
		conv := m.conversation()
		text := m.input.Value()
		if strings.TrimSpace(text) == "" {
			return m, nil
		}
		if conv.State() == chat.StateSending {
			m.statusLine = "still streaming, hang on"
			return m, nil
		}
		m.input.Reset()
		m.statusLine = "streaming…"
		return m, m.submitCmd(conv, text)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// togglePayload extracts the embedded JSON payload of the latest assistant
// turn and shows it in an overlay, or reports that there is none.
func (m *Model) togglePayload() {
	if m.showPayload {
		m.showPayload = false
		return
	}

	turns := m.conversation().Turns()
	for i := len(turns) - 1; i >= 0; i-- {
		if turns[i].Role != chat.RoleAssistant {
			continue
		}
		if pretty, ok := payload.Extract(turns[i].Content); ok {
			m.payloadText = pretty
			m.showPayload = true
			return
		}
		break
	}
	m.statusLine = "no structured payload in the last reply"
}

func (m *Model) renderTimeline() {
	conv := m.conversation()
	wrap := lipgloss.NewStyle().Width(max(m.timeline.Width, 20))

	var b strings.Builder
	for _, turn := range conv.Turns() {
		label := m.theme.agentLabel.Render(string(conv.Kind()))
		if turn.Role == chat.RoleUser {
			label = m.theme.userLabel.Render("you")
		}
		content := turn.Content
		if content == "" && turn.Role == chat.RoleAssistant {
			content = "…"
		}
		b.WriteString(label)
		b.WriteString("\n")
		b.WriteString(wrap.Render(content))
		b.WriteString("\n\n")
	}
	if lastErr := conv.LastError(); lastErr != "" {
		b.WriteString(m.theme.errorText.Render("⚠ " + lastErr))
		b.WriteString("\n")
	}
	m.timeline.SetContent(b.String())
}

// View implements tea.Model.
func (m Model) View() string {
	if m.width == 0 {
		return "starting…"
	}

	var tabs []string
	for i, kind := range m.kinds {
		style := m.theme.tabInactive
		if i == m.active {
			style = m.theme.tabActive
		}
		tabs = append(tabs, style.Render(string(kind)))
	}
	header := m.theme.header.Render("showrunner") + strings.Join(tabs, "")

	body := m.theme.panel.Width(max(m.width-2, 24)).Render(m.timeline.View())
	if m.showPayload {
		body = m.theme.payloadPane.Width(max(m.width-2, 24)).Render(m.payloadText)
	}

	status := m.statusLine
	if m.conversation().State() == chat.StateSending {
		status = m.spinner.View() + " streaming"
	}
	if n := len(m.entries); n > 0 {
		status += m.theme.helpText.Render(fmt.Sprintf("  ·  %d saved session(s)", n))
	}

	footer := m.theme.helpText.Render(
		"tab: switch agent · enter: send · ctrl+o: resume latest · ctrl+p: payload · ctrl+r: refresh · ctrl+c: quit")

	return strings.Join([]string{
		header,
		body,
		m.theme.inputPanel.Width(max(m.width-2, 24)).Render(m.input.View()),
		m.theme.status.Render(status),
		footer,
	}, "\n")
}
