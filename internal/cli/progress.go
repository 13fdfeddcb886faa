package cli

import (
	"context"
	"fmt"

	"charm.land/bubbles/v2/progress"
	tea "charm.land/bubbletea/v2"
	"github.com/charmbracelet/lipgloss"

	"github.com/raphaelgruber/contextuse-go/internal/etl"
	"github.com/raphaelgruber/contextuse-go/internal/models"
)

// Theme holds the color scheme for the progress display.
type Theme struct {
	Status  lipgloss.Color
	Success lipgloss.Color
	Error   lipgloss.Color
	Hint    lipgloss.Color
}

// defaultTheme provides default colors.
var defaultTheme = Theme{
	Status:  lipgloss.Color("#5FAFD7"), // light blue
	Success: lipgloss.Color("#00D787"), // green
	Error:   lipgloss.Color("#FF005F"), // red
	Hint:    lipgloss.Color("#6C6C6C"), // dim gray
}

func (t Theme) statusStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Status)
}

func (t Theme) completedStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Success).Bold(true)
}

func (t Theme) errorStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Error).Bold(true)
}

func (t Theme) hintStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Hint).Italic(true)
}

// taskEventMsg carries one orchestrator task event.
type taskEventMsg etl.TaskEvent

// ingestDoneMsg signals that the whole archive run finished.
type ingestDoneMsg struct {
	result *etl.PipelineResult
	err    error
}

// ingestModel is the bubbletea model for archive ingestion progress.
type ingestModel struct {
	events   <-chan tea.Msg
	progress progress.Model
	theme    Theme

	total    int
	finished int
	lines    []string

	result   *etl.PipelineResult
	err      error
	quitting bool
}

func newIngestModel(events <-chan tea.Msg) ingestModel {
	prog := progress.New(
		progress.WithDefaultBlend(),
		progress.WithWidth(40),
	)
	return ingestModel{
		events:   events,
		progress: prog,
		theme:    defaultTheme,
	}
}

// waitForMsg reads the next orchestrator message off the channel.
func waitForMsg(events <-chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		return <-events
	}
}

// Init returns the initial command (start listening).
func (m ingestModel) Init() tea.Cmd {
	return tea.Batch(
		waitForMsg(m.events),
		m.progress.Init(),
	)
}

// Update handles messages and returns the updated model.
func (m ingestModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyPressMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			m.quitting = true
			return m, tea.Quit
		}

	case taskEventMsg:
		switch msg.Status {
		case models.TaskCreated:
			m.total++
		case models.TaskCompleted:
			m.finished++
			line := m.theme.completedStyle().Render("✓") +
				fmt.Sprintf(" %s (%d threads)", msg.InteractionType, msg.Threads)
			m.lines = append(m.lines, line)
		case models.TaskFailed:
			m.finished++
			line := m.theme.errorStyle().Render("✗") +
				fmt.Sprintf(" %s: %v", msg.InteractionType, msg.Err)
			m.lines = append(m.lines, line)
		}
		return m, waitForMsg(m.events)

	case ingestDoneMsg:
		m.result = msg.result
		m.err = msg.err
		return m, tea.Quit

	case progress.FrameMsg:
		var cmd tea.Cmd
		m.progress, cmd = m.progress.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View renders the progress display.
func (m ingestModel) View() tea.View {
	return tea.NewView(m.renderContent())
}

func (m ingestModel) renderContent() string {
	if m.total == 0 {
		return m.theme.statusStyle().Render("[unpacking]") + " discovering tasks...\n"
	}

	pct := float64(m.finished) / float64(m.total)
	status := m.theme.statusStyle().Render("[ingesting]")
	counts := fmt.Sprintf("%d/%d tasks", m.finished, m.total)
	hint := m.theme.hintStyle().Render("Press Ctrl+C to detach; ingestion keeps running")

	out := ""
	for _, line := range m.lines {
		out += line + "\n"
	}
	out += fmt.Sprintf("%s %s %s\n%s\n", status, m.progress.ViewAs(pct), counts, hint)
	return out
}

// runIngestWithProgress drives ProcessArchive in the background while the
// progress UI consumes its task events.
func runIngestWithProgress(ctx context.Context, orch *etl.Orchestrator, provider, zipPath string) (*etl.PipelineResult, error) {
	msgs := make(chan tea.Msg, 64)
	// Non-blocking send so a detached UI can never stall ingestion.
	orch.OnEvent = func(ev etl.TaskEvent) {
		select {
		case msgs <- taskEventMsg(ev):
		default:
		}
	}

	done := make(chan ingestDoneMsg, 1)
	go func() {
		result, err := orch.ProcessArchive(ctx, provider, zipPath)
		final := ingestDoneMsg{result: result, err: err}
		done <- final
		select {
		case msgs <- final:
		default:
		}
	}()

	p := tea.NewProgram(newIngestModel(msgs))
	if _, err := p.Run(); err != nil {
		return nil, fmt.Errorf("progress UI error: %w", err)
	}

	// Ingestion keeps running even if the UI was detached with Ctrl+C.
	final := <-done
	return final.result, final.err
}
