// Package tui provides the terminal dashboard for watching and steering a
// run: live task statuses, progress, and approve/reject controls for tasks
// paused on dangerous operations.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Gnoscenti/founder-autopilot/internal/orchestrator"
	"github.com/Gnoscenti/founder-autopilot/pkg/models"
)

// refreshInterval is how often the dashboard re-reads run state.
const refreshInterval = 500 * time.Millisecond

// refreshMsg triggers a state re-read.
type refreshMsg time.Time

// stateMsg carries a fresh run snapshot into the model.
type stateMsg struct {
	run   *models.Run
	tasks []orchestrator.TaskView
	err   error
}

// stepDoneMsg reports the outcome of a background ExecuteNext.
type stepDoneMsg struct {
	result *orchestrator.TaskResult
	err    error
}

// decisionDoneMsg reports the outcome of an approve or reject.
type decisionDoneMsg struct {
	err error
}

// eventMsg wraps a controller event for the log pane.
type eventMsg orchestrator.Event

// LogEntry is one line in the dashboard's log pane.
type LogEntry struct {
	Timestamp time.Time
	Message   string
}

// Dashboard is the bubbletea model for a single run.
type Dashboard struct {
	ctrl  *orchestrator.Controller
	runID string

	run    *models.Run
	tasks  []orchestrator.TaskView
	logs   []LogEntry
	cursor int

	spinner  spinner.Model
	width    int
	height   int
	stepping bool
	quitting bool
	err      error
}

// NewDashboard creates a dashboard for the given run.
func NewDashboard(ctrl *orchestrator.Controller, runID string) *Dashboard {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = statusStyles[models.TaskStatusRunning]

	return &Dashboard{
		ctrl:    ctrl,
		runID:   runID,
		spinner: sp,
		width:   80,
	}
}

// Init implements tea.Model. It starts the refresh loop, the event
// listener, and the first execution step.
func (d *Dashboard) Init() tea.Cmd {
	return tea.Batch(d.refresh(), d.tick(), d.listen(), d.step(), d.spinner.Tick)
}

// Update implements tea.Model.
func (d *Dashboard) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return d.handleKey(msg)

	case tea.WindowSizeMsg:
		d.width = msg.Width
		d.height = msg.Height

	case refreshMsg:
		return d, tea.Batch(d.refresh(), d.tick())

	case stateMsg:
		if msg.err != nil {
			d.err = msg.err
			return d, nil
		}
		d.run = msg.run
		d.tasks = msg.tasks
		if d.cursor >= len(d.tasks) {
			d.cursor = max(0, len(d.tasks)-1)
		}

	case stepDoneMsg:
		d.stepping = false
		if msg.err != nil {
			d.appendLog(fmt.Sprintf("step error: %v", msg.err))
			return d, d.refresh()
		}
		switch msg.result.Outcome {
		case orchestrator.OutcomeTaskExecuted, orchestrator.OutcomeTaskFailed:
			// Keep driving the run.
			return d, tea.Batch(d.refresh(), d.step())
		default:
			return d, d.refresh()
		}

	case decisionDoneMsg:
		if msg.err != nil {
			d.appendLog(fmt.Sprintf("decision error: %v", msg.err))
		}
		return d, tea.Batch(d.refresh(), d.step())

	case eventMsg:
		d.appendLog(formatEvent(orchestrator.Event(msg)))
		return d, d.listen()

	case spinner.TickMsg:
		var cmd tea.Cmd
		d.spinner, cmd = d.spinner.Update(msg)
		return d, cmd
	}

	return d, nil
}

func (d *Dashboard) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		d.quitting = true
		return d, tea.Quit

	case "up", "k":
		if d.cursor > 0 {
			d.cursor--
		}

	case "down", "j":
		if d.cursor < len(d.tasks)-1 {
			d.cursor++
		}

	case "a":
		if task := d.selected(); task != nil && task.Status == models.TaskStatusAwaitingApproval {
			return d, d.approve(task.ID)
		}

	case "r":
		if task := d.selected(); task != nil && task.Status == models.TaskStatusAwaitingApproval {
			return d, d.reject(task.ID)
		}

	case "c":
		return d, d.cancel()
	}

	return d, nil
}

// View implements tea.Model.
func (d *Dashboard) View() string {
	if d.quitting {
		return "Goodbye!\n"
	}
	if d.run == nil {
		return d.spinner.View() + " loading run...\n"
	}

	var b strings.Builder
	b.WriteString(d.viewHeader())
	b.WriteString("\n\n")
	b.WriteString(d.viewTasks())
	b.WriteString("\n")
	b.WriteString(d.viewLogs())
	b.WriteString("\n")
	b.WriteString(d.viewFooter())
	return b.String()
}

func (d *Dashboard) viewHeader() string {
	title := titleStyle.Render(fmt.Sprintf("Founder Autopilot: %s", d.run.ID))
	goal := subtitleStyle.Render(d.run.Goal)

	completed := 0
	for _, t := range d.tasks {
		if t.Status == models.TaskStatusCompleted {
			completed++
		}
	}
	progress := renderProgressBar(completed, len(d.tasks), 30)
	status := fmt.Sprintf("%s  %s  %d/%d tasks  %d tokens  $%.4f",
		progress, d.run.Status, completed, len(d.tasks),
		d.run.TotalTokens, d.run.TotalCostUSD)

	return lipgloss.JoinVertical(lipgloss.Left, title, goal, status)
}

func (d *Dashboard) viewTasks() string {
	if len(d.tasks) == 0 {
		return "No tasks"
	}

	var lines []string
	for i, t := range d.tasks {
		glyph := statusGlyphs[t.Status]
		if t.Status == models.TaskStatusRunning {
			glyph = d.spinner.View()
		}

		label := string(t.Status)
		if t.Blocked {
			label = "blocked"
		}
		if t.Status == models.TaskStatusAwaitingApproval && t.PendingOperation != "" {
			label += " (" + t.PendingOperation + ")"
		}
		if t.RetryCount > 0 && !t.Status.Terminal() {
			label += fmt.Sprintf(" retry %d", t.RetryCount)
		}

		line := fmt.Sprintf("%s %-10s %-22s %s", glyph, t.ID, label, t.Title)
		style := statusStyles[t.Status]
		if i == d.cursor {
			line = "> " + line
			style = selectedStyle
		} else {
			line = "  " + line
		}
		lines = append(lines, style.Render(line))
	}
	return strings.Join(lines, "\n")
}

func (d *Dashboard) viewLogs() string {
	start := 0
	if len(d.logs) > 6 {
		start = len(d.logs) - 6
	}

	var lines []string
	for _, entry := range d.logs[start:] {
		lines = append(lines, helpStyle.Render(
			fmt.Sprintf("  %s %s", entry.Timestamp.Format("15:04:05"), entry.Message)))
	}
	return strings.Join(lines, "\n")
}

func (d *Dashboard) viewFooter() string {
	if d.err != nil {
		return statusStyles[models.TaskStatusFailed].Render(fmt.Sprintf("error: %v", d.err))
	}
	if d.run.Status.Terminal() {
		return helpStyle.Render(fmt.Sprintf("run %s | q to exit", d.run.Status))
	}
	return helpStyle.Render("↑/↓ select | a approve | r reject | c cancel run | q quit")
}

func (d *Dashboard) selected() *orchestrator.TaskView {
	if d.cursor < 0 || d.cursor >= len(d.tasks) {
		return nil
	}
	return &d.tasks[d.cursor]
}

func (d *Dashboard) appendLog(msg string) {
	d.logs = append(d.logs, LogEntry{Timestamp: time.Now(), Message: msg})
}

func (d *Dashboard) tick() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg {
		return refreshMsg(t)
	})
}

func (d *Dashboard) refresh() tea.Cmd {
	return func() tea.Msg {
		run, err := d.ctrl.GetRun(d.runID)
		if err != nil {
			return stateMsg{err: err}
		}
		tasks, err := d.ctrl.Tasks(d.runID)
		if err != nil {
			return stateMsg{err: err}
		}
		return stateMsg{run: run, tasks: tasks}
	}
}

func (d *Dashboard) listen() tea.Cmd {
	return func() tea.Msg {
		return eventMsg(<-d.ctrl.Events())
	}
}

func (d *Dashboard) step() tea.Cmd {
	if d.stepping {
		return nil
	}
	d.stepping = true
	return func() tea.Msg {
		result, err := d.ctrl.ExecuteNext(context.Background(), d.runID)
		return stepDoneMsg{result: result, err: err}
	}
}

func (d *Dashboard) approve(taskID string) tea.Cmd {
	return func() tea.Msg {
		_, err := d.ctrl.Approve(context.Background(), d.runID, taskID)
		return decisionDoneMsg{err: err}
	}
}

func (d *Dashboard) reject(taskID string) tea.Cmd {
	return func() tea.Msg {
		_, err := d.ctrl.Reject(d.runID, taskID)
		return decisionDoneMsg{err: err}
	}
}

func (d *Dashboard) cancel() tea.Cmd {
	return func() tea.Msg {
		return decisionDoneMsg{err: d.ctrl.CancelRun(d.runID)}
	}
}

// Run starts the dashboard and blocks until the user quits.
func Run(ctrl *orchestrator.Controller, runID string) error {
	p := tea.NewProgram(NewDashboard(ctrl, runID), tea.WithAltScreen())
	_, err := p.Run()
	return err
}

func formatEvent(ev orchestrator.Event) string {
	switch {
	case ev.Err != nil:
		return fmt.Sprintf("%s %s: %v", ev.Type, ev.TaskID, ev.Err)
	case ev.TaskID != "":
		msg := fmt.Sprintf("%s %s", ev.Type, ev.TaskID)
		if ev.Message != "" {
			msg += ": " + ev.Message
		}
		return msg
	default:
		return string(ev.Type)
	}
}

func renderProgressBar(completed, total, width int) string {
	if total == 0 {
		return ""
	}
	filled := completed * width / total
	return progressFillStyle.Render(strings.Repeat("█", filled)) +
		progressEmptyStyle.Render(strings.Repeat("░", width-filled))
}
