package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"termeval/internal/domain"
)

// SessionPort is the TUI-facing subset of the command session.
type SessionPort interface {
	domain.CommandService
	HasContext() bool
}

// Model is the Bubble Tea model for the REPL.
type Model struct {
	session    SessionPort
	input      textinput.Model
	viewport   viewport.Model
	transcript []string
	history    []string
	histPos    int
	status     string
	ready      bool
}

// New creates a new TUI model instance.
func New(session SessionPort, prompt string) Model {
	ti := textinput.New()
	ti.Prompt = prompt
	ti.Placeholder = "Type a command, or help"
	ti.Focus()
	ti.CharLimit = 0
	vp := viewport.New(0, 0)
	return Model{session: session, input: ti, viewport: vp, status: "Ready. Type help for commands, quit to exit."}
}

// Init initializes the model (text input cursor blink).
func (m Model) Init() tea.Cmd { return textinput.Blink }

// Update handles key and window events and updates the view state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, th := transcriptBoxStyle.GetFrameSize()
		_, ih := inputBoxStyle.GetFrameSize()
		reserved := 2 + 1 + ih + 1 // header, context line, status, spacer
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, msg.Height-reserved-th)
		m.refresh()
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		switch msg.String() {
		case "enter":
			line := strings.TrimSpace(m.input.Value())
			if line == "" {
				return m, nil
			}
			if line == "quit" || line == "exit" {
				return m, tea.Quit
			}
			m.execute(line)
			return m, nil
		case "up":
			if m.histPos > 0 {
				m.histPos--
				m.input.SetValue(m.history[m.histPos])
				m.input.CursorEnd()
			}
			return m, nil
		case "down":
			if m.histPos < len(m.history) {
				m.histPos++
				if m.histPos == len(m.history) {
					m.input.SetValue("")
				} else {
					m.input.SetValue(m.history[m.histPos])
				}
				m.input.CursorEnd()
			}
			return m, nil
		case "pgup", "pgdown":
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) execute(line string) {
	m.history = append(m.history, line)
	m.histPos = len(m.history)
	m.input.SetValue("")
	m.transcript = append(m.transcript, promptStyle.Render(m.input.Prompt+line))
	out, err := m.session.Execute(line)
	if err != nil {
		m.transcript = append(m.transcript, errorStyle.Render("error: "+err.Error()))
		m.status = "Command failed."
	} else {
		if out != "" {
			m.transcript = append(m.transcript, out)
		}
		m.status = "OK"
	}
	m.refresh()
}

func (m *Model) refresh() {
	if len(m.transcript) == 0 {
		m.viewport.SetContent("No commands yet.")
		return
	}
	m.viewport.SetContent(strings.Join(m.transcript, "\n"))
	m.viewport.GotoBottom()
}

// View renders the TUI layout.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := lipgloss.NewStyle().Bold(true).Render("termeval")
	ctx := "no context loaded"
	if m.session.HasContext() {
		ctx = "context loaded"
	}
	context := lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Render(ctx)
	transcript := transcriptBoxStyle.Render(m.viewport.View())
	input := inputBoxStyle.Render(m.input.View())
	status := lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Render(m.status)
	return header + "\n" + context + "\n" + transcript + "\n" + input + "\n" + status
}

// Transcript returns the lines shown so far.
func (m Model) Transcript() []string { return m.transcript }

var (
	transcriptBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	inputBoxStyle      = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	promptStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	errorStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)
