package tui

import (
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"vidcompress/encoder"
)

// State mirrors the runner lifecycle
type State int

const (
	StateIdle State = iota
	StateAnalyzing
	StateRunning
	StateSucceeded
	StateFailed
)

// Terminal reports whether a run has finished
func (s State) Terminal() bool {
	return s == StateSucceeded || s == StateFailed
}

// StartFunc launches one run and returns its event stream. The stream must
// be closed after the terminal event.
type StartFunc func() <-chan encoder.Event

// runStartedMsg carries the event stream of a fresh run
type runStartedMsg struct {
	events <-chan encoder.Event
}

// EventMsg wraps one runner event
type EventMsg encoder.Event

// eventsClosedMsg is sent once the runner closed its stream
type eventsClosedMsg struct{}

// TickMsg is sent periodically to refresh the elapsed clock
type TickMsg time.Time

const maxHistory = 200

// Model drives one compression job and lets the user rerun it.
type Model struct {
	Job          encoder.Job
	Start        StartFunc
	State        State
	Progress     progress.Model
	LogViewport  viewport.Model
	ShowLogs     bool
	Width        int
	Height       int
	StartTime    time.Time
	EndTime      time.Time
	Percent      float64
	StatusText   string
	SizeMB       float64
	// Ratio is the output size as a percentage of the input, 0 when unknown
	Ratio        float64
	ErrorMessage string
	History      []string
	Runs         int

	events <-chan encoder.Event
}

// NewModel returns an idle model; Init starts the first run.
func NewModel(job encoder.Job, start StartFunc) Model {
	return Model{
		Job:   job,
		Start: start,
		// blue -> emerald, the percentage is drawn next to the bar
		Progress:    progress.New(progress.WithGradient("#2563EB", "#10B981"), progress.WithWidth(50), progress.WithoutPercentage()),
		LogViewport: viewport.New(80, 12),
		StatusText:  "Welcome! Starting compression...",
	}
}

// Init starts the first run
func (m Model) Init() tea.Cmd {
	return m.startRun()
}

func (m Model) startRun() tea.Cmd {
	start := m.Start
	return func() tea.Msg {
		return runStartedMsg{events: start()}
	}
}

// waitForEvent blocks on the stream; delivery is event driven, the tick
// only redraws the clock.
func waitForEvent(events <-chan encoder.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return eventsClosedMsg{}
		}
		return EventMsg(ev)
	}
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "l":
			m.ShowLogs = !m.ShowLogs
		case "enter", "r":
			// one run at a time: only a finished, drained run can be restarted
			if m.State.Terminal() && m.events == nil {
				m.State = StateIdle
				return m, m.startRun()
			}
		}

	case tea.WindowSizeMsg:
		m.Width, m.Height = msg.Width, msg.Height
		m.Progress.Width = max(msg.Width-20, 10)
		m.LogViewport.Width = max(msg.Width-4, 0)
		m.LogViewport.Height = max(msg.Height-20, 0)

	case runStartedMsg:
		m.events = msg.events
		m.State = StateAnalyzing
		m.StartTime = time.Now()
		m.EndTime = time.Time{}
		m.Percent = 0
		m.SizeMB = 0
		m.Ratio = 0
		m.ErrorMessage = ""
		m.Runs++
		cmds = append(cmds, waitForEvent(m.events), tickCmd())

	case EventMsg:
		m = m.applyEvent(encoder.Event(msg))
		if m.events != nil {
			cmds = append(cmds, waitForEvent(m.events))
		}

	case eventsClosedMsg:
		m.events = nil
		if !m.State.Terminal() {
			m.State = StateFailed
			m.ErrorMessage = "Compression stopped without reporting a result."
			m.StatusText = m.ErrorMessage
			m.EndTime = time.Now()
		}

	case TickMsg:
		if m.State == StateAnalyzing || m.State == StateRunning {
			cmds = append(cmds, tickCmd())
		}
	}

	if m.ShowLogs {
		var cmd tea.Cmd
		m.LogViewport, cmd = m.LogViewport.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

func (m Model) applyEvent(ev encoder.Event) Model {
	if ev.Message != "" {
		m.StatusText = ev.Message
		m = m.appendHistory(ev.Message)
	}

	switch ev.Status {
	case encoder.StatusProgress:
		if ev.Analyzing() {
			m.State = StateAnalyzing
		} else if !m.State.Terminal() {
			m.State = StateRunning
		}
		m.Percent = ev.Value
	case encoder.StatusSuccess:
		m.State = StateSucceeded
		m.Percent = 100
		m.SizeMB = ev.Value
		m.Ratio = 0
		if ratio, err := encoder.SizeRatio(m.Job.InputPath, m.Job.OutputPath); err == nil {
			m.Ratio = ratio
		}
		m.EndTime = time.Now()
	case encoder.StatusError:
		m.State = StateFailed
		m.Percent = 0
		m.ErrorMessage = ev.Message
		m.EndTime = time.Now()
	}
	return m
}

func (m Model) appendHistory(line string) Model {
	if n := len(m.History); n > 0 && m.History[n-1] == line {
		return m
	}
	history := append(append([]string(nil), m.History...), line)
	if len(history) > maxHistory {
		history = history[len(history)-maxHistory:]
	}
	m.History = history
	m.LogViewport.SetContent(strings.Join(history, "\n"))
	m.LogViewport.GotoBottom()
	return m
}
