// Package tui provides the live run view for kestrel.
package tui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/kestrelci/kestrel/pkg/models"
)

// Tab constants for navigation.
const (
	TabCells = iota
	TabLogs
)

// RunnerEventMsg wraps a runner event for the TUI.
type RunnerEventMsg struct {
	Type      string
	RunID     string
	Job       string
	Cell      string
	Step      string
	Status    models.Status
	Line      string
	Stderr    bool
	Message   string
	Error     string
	Duration  time.Duration
	Timestamp time.Time
}

// RunDoneMsg signals that the run reached a terminal status.
type RunDoneMsg struct {
	Status  models.Status
	Message string
}

// DebugLogMsg adds a debug entry to the logs tab.
type DebugLogMsg struct {
	Message string
}

// LogEntry is one line in the logs tab.
type LogEntry struct {
	Timestamp time.Time
	Level     string
	Message   string
}

// cellState tracks one matrix cell on the board.
type cellState struct {
	Job     string
	Cell    string
	Status  models.Status
	Step    string
	Started time.Time
	Elapsed time.Duration
}

// App is the main bubbletea model for the kestrel run view.
type App struct {
	// currentTab is the currently selected tab.
	currentTab int
	// cells lists matrix cells in arrival order.
	cells []*cellState
	// logs is the list of log entries.
	logs []LogEntry
	// spin animates while cells are running.
	spin spinner.Model
	// width is the terminal width.
	width int
	// height is the terminal height.
	height int
	// quitting indicates the app is shutting down.
	quitting bool
	// runDone indicates the run reached a terminal status.
	runDone bool
	// runStatus is the terminal run status.
	runStatus models.Status
	// runMessage holds the final run message.
	runMessage string
}

// New creates a new App instance.
func New() *App {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = spinnerStyle
	return &App{
		currentTab: TabCells,
		cells:      make([]*cellState, 0),
		logs:       make([]LogEntry, 0),
		spin:       sp,
	}
}

// Init implements tea.Model.
func (a *App) Init() tea.Cmd {
	return a.spin.Tick
}

// Update implements tea.Model.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			a.quitting = true
			return a, tea.Quit
		case "tab":
			a.currentTab = (a.currentTab + 1) % 2
		case "1":
			a.currentTab = TabCells
		case "2":
			a.currentTab = TabLogs
		}

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height

	case spinner.TickMsg:
		var cmd tea.Cmd
		a.spin, cmd = a.spin.Update(msg)
		return a, cmd

	case RunnerEventMsg:
		a.handleRunnerEvent(msg)

	case RunDoneMsg:
		a.runDone = true
		a.runStatus = msg.Status
		a.runMessage = msg.Message

	case DebugLogMsg:
		a.logs = append(a.logs, LogEntry{
			Timestamp: time.Now(),
			Level:     "DEBUG",
			Message:   msg.Message,
		})
	}

	return a, nil
}

// View implements tea.Model.
func (a *App) View() string {
	if a.quitting {
		return "Goodbye!\n"
	}

	var content string
	switch a.currentTab {
	case TabCells:
		content = a.viewCells()
	case TabLogs:
		content = a.viewLogs()
	}

	return fmt.Sprintf("%s\n\n%s\n\n%s", a.viewHeader(), content, a.viewFooter())
}

// viewHeader renders the tab bar.
func (a *App) viewHeader() string {
	tabs := []string{"Cells", "Logs"}
	var header string
	for i, tab := range tabs {
		if i == a.currentTab {
			header += activeTabStyle.Render("["+tab+"]") + " "
		} else {
			header += tabStyle.Render(" "+tab+" ") + " "
		}
	}
	return header
}

// viewCells renders the matrix cell board.
func (a *App) viewCells() string {
	if len(a.cells) == 0 {
		return "No cells yet"
	}

	var view string
	for _, c := range a.cells {
		marker := statusMarker(c.Status)
		if c.Status == models.StatusRunning {
			marker = a.spin.View()
		}
		line := fmt.Sprintf("  %s %s", marker, c.Cell)
		if c.Status == models.StatusRunning && c.Step != "" {
			line += fmt.Sprintf("  > %s", c.Step)
		}
		if c.Status.Terminal() && c.Elapsed > 0 {
			line += fmt.Sprintf("  (%s)", c.Elapsed.Round(time.Millisecond))
		}
		view += statusStyle(c.Status).Render(line) + "\n"
	}
	return view
}

// viewLogs renders the logs tab.
func (a *App) viewLogs() string {
	if len(a.logs) == 0 {
		return "No log entries"
	}

	// Show the most recent logs (up to 20)
	start := 0
	if len(a.logs) > 20 {
		start = len(a.logs) - 20
	}

	var view string
	for _, entry := range a.logs[start:] {
		ts := entry.Timestamp.Format("15:04:05")
		view += fmt.Sprintf("  %s [%s] %s\n", ts, entry.Level, entry.Message)
	}
	return view
}

// viewFooter renders the footer with help text.
func (a *App) viewFooter() string {
	if a.runDone {
		marker := statusMarker(a.runStatus)
		return statusStyle(a.runStatus).Render(fmt.Sprintf("%s run %s", marker, a.runStatus)) +
			" | Press q to exit"
	}
	return "Press 1/2 or Tab to switch tabs | q to quit"
}

// handleRunnerEvent processes a runner event and updates the board.
func (a *App) handleRunnerEvent(msg RunnerEventMsg) {
	switch msg.Type {
	case "job_started":
		c := a.findOrCreateCell(msg.Job, msg.Cell)
		c.Status = models.StatusRunning
		c.Started = msg.Timestamp

	case "job_finished":
		c := a.findOrCreateCell(msg.Job, msg.Cell)
		c.Status = msg.Status
		c.Step = ""
		c.Elapsed = msg.Duration
		if msg.Error != "" {
			a.log("ERROR", fmt.Sprintf("%s: %s", msg.Cell, msg.Error))
		}

	case "job_skipped":
		c := a.findOrCreateCell(msg.Job, msg.Cell)
		c.Status = models.StatusSkipped

	case "step_started":
		c := a.findOrCreateCell(msg.Job, msg.Cell)
		c.Step = msg.Step

	case "step_finished":
		if msg.Status == models.StatusFailed && msg.Error != "" {
			a.log("ERROR", fmt.Sprintf("%s > %s: %s", msg.Cell, msg.Step, msg.Error))
		}
		if msg.Status == models.StatusWarning {
			a.log("WARN", fmt.Sprintf("%s > %s finished with warnings", msg.Cell, msg.Step))
		}

	case "step_output":
		level := "OUT"
		if msg.Stderr {
			level = "ERR"
		}
		a.log(level, fmt.Sprintf("%s > %s", msg.Cell, msg.Line))

	case "warning":
		a.log("WARN", msg.Message)

	case "run_started":
		a.log("INFO", "run started: "+msg.Message)

	case "run_finished":
		a.runDone = true
		a.runStatus = msg.Status
	}
}

func (a *App) log(level, message string) {
	a.logs = append(a.logs, LogEntry{Timestamp: time.Now(), Level: level, Message: message})
}

// findOrCreateCell finds a cell on the board or appends a new one.
func (a *App) findOrCreateCell(job, cell string) *cellState {
	for _, c := range a.cells {
		if c.Job == job && c.Cell == cell {
			return c
		}
	}
	c := &cellState{Job: job, Cell: cell, Status: models.StatusPending}
	a.cells = append(a.cells, c)
	return c
}

// NewProgram creates a new Bubbletea program that can be used to run the
// live view. The returned program can receive messages via Send().
func NewProgram() (*tea.Program, *App) {
	app := New()
	p := tea.NewProgram(app, tea.WithAltScreen())
	return p, app
}
