package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"dtolsp/internal/workspace"
)

var stages = []workspace.Stage{workspace.StageClasses, workspace.StageSources}

type progressModel struct {
	title   string
	events  <-chan workspace.Event
	spinner spinner.Model
	prog    progress.Model
	items   []projectItem
	index   map[string]int
	width   int
	done    bool
}

type projectItem struct {
	path   string
	label  string
	stages map[workspace.Stage]workspace.Status
	counts map[workspace.Stage]int
}

type eventMsg workspace.Event
type doneMsg struct{}

// NewProgressModel returns a Bubble Tea model that renders index progress for
// the given projects. It quits when events is closed.
func NewProgressModel(title string, projects []string, events <-chan workspace.Event) tea.Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))

	prog := progress.New(progress.WithDefaultGradient())
	prog.Width = 76

	items := make([]projectItem, 0, len(projects))
	index := make(map[string]int, len(projects))
	for i, p := range projects {
		items = append(items, projectItem{
			path:   p,
			label:  string(workspace.StatusQueued),
			stages: make(map[workspace.Stage]workspace.Status),
			counts: make(map[workspace.Stage]int),
		})
		index[p] = i
	}
	return &progressModel{
		title:   title,
		events:  events,
		spinner: sp,
		prog:    prog,
		items:   items,
		index:   index,
		width:   80,
	}
}

func (m *progressModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.listenForEvent())
}

func (m *progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case eventMsg:
		cmd := m.applyEvent(workspace.Event(msg))
		return m, tea.Batch(cmd, m.listenForEvent())
	case doneMsg:
		m.done = true
		return m, tea.Quit
	case spinner.TickMsg:
		if m.done {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tea.WindowSizeMsg:
		if msg.Width > 0 {
			m.width = msg.Width
			m.prog.Width = msg.Width - 4
		}
		return m, nil
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
	case progress.FrameMsg:
		pm, cmd := m.prog.Update(msg)
		m.prog = pm.(progress.Model)
		return m, cmd
	}
	return m, nil
}

func (m *progressModel) View() string {
	if len(m.items) == 0 {
		return ""
	}
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("7"))
	header := m.title
	if m.done {
		header = "done: " + header
	} else {
		header = m.spinner.View() + " " + header
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(header))
	b.WriteString("\n\n")

	statusWidth := 12
	nameWidth := max(m.width-statusWidth-4-24, 20)
	for _, item := range m.items {
		status := styleStatus(item.label).Render(fmt.Sprintf("%12s", item.label))
		fmt.Fprintf(&b, "  %s %s%s\n", status, truncate(item.path, nameWidth), item.summary())
	}

	b.WriteString("\n")
	if m.done {
		b.WriteString(m.prog.ViewAs(1.0))
	} else {
		b.WriteString(m.prog.View())
	}
	b.WriteString("\n")
	return b.String()
}

func (m *progressModel) listenForEvent() tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-m.events
		if !ok {
			return doneMsg{}
		}
		return eventMsg(ev)
	}
}

func (m *progressModel) applyEvent(ev workspace.Event) tea.Cmd {
	idx, ok := m.index[ev.Project]
	if !ok {
		return nil
	}
	item := &m.items[idx]
	item.stages[ev.Stage] = ev.Status
	if ev.Status == workspace.StatusDone {
		item.counts[ev.Stage] = ev.Count
	}
	item.label = item.status()
	return m.prog.SetPercent(m.percent())
}

func (m *progressModel) percent() float64 {
	total := 0.0
	for _, item := range m.items {
		for _, st := range stages {
			total += stageProgress(item.stages[st])
		}
	}
	return total / float64(len(m.items)*len(stages))
}

func stageProgress(status workspace.Status) float64 {
	switch status {
	case workspace.StatusDone, workspace.StatusError:
		return 1
	case workspace.StatusWorking:
		return 0.3
	}
	return 0
}

// status folds the stage states into one label.
func (it *projectItem) status() string {
	done := 0
	for _, st := range stages {
		switch it.stages[st] {
		case workspace.StatusError:
			return string(workspace.StatusError)
		case workspace.StatusDone:
			done++
		}
	}
	if done == len(stages) {
		return string(workspace.StatusDone)
	}
	for _, st := range stages {
		if it.stages[st] == workspace.StatusWorking {
			return stageLabel(st)
		}
	}
	return string(workspace.StatusQueued)
}

func (it *projectItem) summary() string {
	if it.label != string(workspace.StatusDone) {
		return ""
	}
	return fmt.Sprintf("  (%d classes, %d sources)", it.counts[workspace.StageClasses], it.counts[workspace.StageSources])
}

func stageLabel(stage workspace.Stage) string {
	switch stage {
	case workspace.StageClasses:
		return "scanning"
	case workspace.StageSources:
		return "parsing"
	}
	return ""
}

func styleStatus(status string) lipgloss.Style {
	switch status {
	case "done":
		return lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	case "error":
		return lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	case "scanning", "parsing":
		return lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	default:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("7"))
	}
}

func truncate(value string, width int) string {
	if width <= 0 || runewidth.StringWidth(value) <= width {
		return value
	}
	if width <= 3 {
		return runewidth.Truncate(value, width, "")
	}
	return runewidth.Truncate(value, width, "...")
}
