package cli

import (
	"context"
	"fmt"

	"charm.land/bubbles/v2/progress"
	tea "charm.land/bubbletea/v2"
	"github.com/charmbracelet/lipgloss"

	syncer "github.com/asolanog/conversia/internal/sync"
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

// progressMsg carries a sync progress event.
type progressMsg syncer.Progress

// doneMsg carries the final outcome of the sync run.
type doneMsg struct {
	report *syncer.Report
	err    error
}

// syncProgressModel is the bubbletea model for sync progress.
type syncProgressModel struct {
	events   <-chan tea.Msg
	cancel   context.CancelFunc
	last     syncer.Progress
	progress progress.Model
	theme    Theme
	report   *syncer.Report
	err      error
	done     bool
	quitting bool
}

func newSyncProgressModel(events <-chan tea.Msg, cancel context.CancelFunc) syncProgressModel {
	prog := progress.New(
		progress.WithDefaultBlend(),
		progress.WithWidth(40),
	)

	return syncProgressModel{
		events:   events,
		cancel:   cancel,
		progress: prog,
		theme:    defaultTheme,
	}
}

// waitForEvent blocks on the next progress or completion message.
func (m syncProgressModel) waitForEvent() tea.Cmd {
	return func() tea.Msg {
		return <-m.events
	}
}

func (m syncProgressModel) Init() tea.Cmd {
	return tea.Batch(
		m.waitForEvent(),
		m.progress.Init(),
	)
}

func (m syncProgressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyPressMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			m.quitting = true
			m.cancel()
			return m, tea.Quit
		}

	case progressMsg:
		m.last = syncer.Progress(msg)
		return m, m.waitForEvent()

	case doneMsg:
		m.done = true
		m.report = msg.report
		m.err = msg.err
		return m, tea.Quit

	case progress.FrameMsg:
		var cmd tea.Cmd
		m.progress, cmd = m.progress.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m syncProgressModel) View() tea.View {
	return tea.NewView(m.renderContent())
}

func (m syncProgressModel) renderContent() string {
	if m.done {
		return m.finalView()
	}

	if m.last.Total == 0 {
		return "Fetching conversations...\n"
	}

	pct := float64(m.last.Done) / float64(m.last.Total)

	status := m.theme.statusStyle().Render("[syncing]")
	progressBar := m.progress.ViewAs(pct)
	counts := fmt.Sprintf("%d/%d conversations", m.last.Done, m.last.Total)

	line := fmt.Sprintf("%s %s %s", status, progressBar, counts)
	if m.last.Failures > 0 {
		line += " " + m.theme.errorStyle().Render(fmt.Sprintf("(%d failed)", m.last.Failures))
	}

	hint := m.theme.hintStyle().Render("Press Ctrl+C to abort")
	return fmt.Sprintf("%s\n%s\n", line, hint)
}

func (m syncProgressModel) finalView() string {
	if m.err != nil {
		return m.theme.errorStyle().Render(fmt.Sprintf("\n✗ Sync failed: %s\n", m.err))
	}
	return m.theme.completedStyle().Render("✓ Sync complete\n")
}

// runSyncWithProgress runs the syncer with an interactive progress display.
// Ctrl+C cancels the run; already-synced conversations stay synced.
func runSyncWithProgress(ctx context.Context, s *syncer.Syncer) (*syncer.Report, error) {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	events := make(chan tea.Msg, 16)
	s.OnProgress = func(p syncer.Progress) {
		select {
		case events <- progressMsg(p):
		case <-runCtx.Done():
		}
	}

	go func() {
		report, err := s.Run(runCtx)
		events <- doneMsg{report: report, err: err}
	}()

	model := newSyncProgressModel(events, cancel)
	finalModel, err := tea.NewProgram(model).Run()
	if err != nil {
		return nil, fmt.Errorf("progress UI error: %w", err)
	}

	m, ok := finalModel.(syncProgressModel)
	if !ok {
		return nil, fmt.Errorf("unexpected model type")
	}
	if m.quitting {
		return nil, fmt.Errorf("sync aborted")
	}
	if m.err != nil {
		return nil, m.err
	}
	return m.report, nil
}
