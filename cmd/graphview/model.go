package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"lockcoordinator/pkg/concurrency/lock"
)

// refreshInterval governs how often the model polls LockManager.Snapshot.
// Purely a display concern — the coordinator itself is never paced by this.
const refreshInterval = 200 * time.Millisecond

// model is a read-only terminal view onto a running *lock.LockManager. It
// never calls anything but Snapshot: the graph it renders can never be
// mutated from here (spec.md §9's "never use this for coordination, only
// for observing it" design note). Grounded on the teacher's ui.Model
// (pkg/ui/model.go) — same Init/Update/View shape and spinner usage,
// swapped for a polled snapshot instead of a query-execution result.
type model struct {
	manager *lock.LockManager
	spin    spinner.Model
	width   int
	height  int
	snap    lock.GraphSnapshot
	ticks   int
}

func newModel(manager *lock.LockManager) model {
	sp := spinner.New()
	sp.Spinner = spinner.Points
	sp.Style = lipgloss.NewStyle().Foreground(accent)

	return model{manager: manager, spin: sp}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(tick(), m.spin.Tick)
}

type tickMsg struct{}

func tick() tea.Cmd {
	return tea.Tick(refreshInterval, func(time.Time) tea.Msg { return tickMsg{} })
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		}

	case tickMsg:
		m.snap = m.manager.Snapshot()
		m.ticks++
		return m, tick()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m model) View() string {
	var sections []string

	sections = append(sections, titleStyle.Render("lock coordinator — wait-for graph"))
	sections = append(sections, m.renderResources())
	sections = append(sections, m.renderThreads())
	sections = append(sections, m.renderStatusBar())

	return appStyle.Render(strings.Join(sections, "\n"))
}

func (m model) renderResources() string {
	header := sectionStyle.Render("Resources")
	if len(m.snap.Resources) == 0 {
		return header + "\n" + lipgloss.NewStyle().Foreground(textMuted).Render("  (none held)")
	}

	var boxes []string
	for _, r := range m.snap.Resources {
		holders := make([]string, len(r.HeldBy))
		for i, seq := range r.HeldBy {
			holders[i] = fmt.Sprintf("T%d", seq)
		}
		content := fmt.Sprintf("%s\n%s", r.ResourceID[:min(8, len(r.ResourceID))], holderStyle.Render(strings.Join(holders, ", ")))
		boxes = append(boxes, resourceBoxStyle.Render(content))
	}

	return header + "\n" + lipgloss.JoinHorizontal(lipgloss.Top, boxes...)
}

func (m model) renderThreads() string {
	header := sectionStyle.Render("Threads")
	if len(m.snap.Threads) == 0 {
		return header + "\n" + lipgloss.NewStyle().Foreground(textMuted).Render("  (none)")
	}

	var lines []string
	for _, th := range m.snap.Threads {
		line := fmt.Sprintf("T%d", th.ThreadSeq)
		if th.WaitingFor != "" {
			line += waitingStyle.Render(fmt.Sprintf(" waiting on %s", th.WaitingFor[:min(8, len(th.WaitingFor))]))
		}
		if th.SuspendedLocks > 0 {
			line += suspendedStyle.Render(fmt.Sprintf(" [%d suspended]", th.SuspendedLocks))
		}
		lines = append(lines, "  "+line)
	}

	return header + "\n" + strings.Join(lines, "\n")
}

func (m model) renderStatusBar() string {
	return statusBarStyle.Width(max(m.width-4, 0)).Render(
		fmt.Sprintf("%s polls: %d | press q to quit", m.spin.View(), m.ticks))
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
