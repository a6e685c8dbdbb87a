// Package tui renders the fleet dashboard: a status bar, per-node cards
// with utilization gauges, the active transcode list, merged logs, and
// completed-job history.
package tui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/transcodarr/monitor/internal/collector"
)

// cycleTimeout bounds one full collection pass so a stuck probe cannot
// wedge the refresh loop.
const cycleTimeout = 60 * time.Second

// tickMsg triggers the next scheduled collection.
type tickMsg time.Time

// dataMsg carries one completed cycle's snapshot.
type dataMsg struct {
	data collector.CollectedData
	err  error
}

// bottomPane selects what the scrollable pane shows.
type bottomPane int

const (
	paneLogs bottomPane = iota
	paneHistory
)

// Model is the Bubble Tea model for the monitor dashboard.
type Model struct {
	collector *collector.Collector
	interval  time.Duration

	// reload rebuilds the engine from the on-disk config when the user
	// presses "c". Nil disables the binding.
	reload func() (*collector.Collector, error)

	data     collector.CollectedData
	cycleErr string

	spin       spinner.Model
	logView    viewport.Model
	paneReady  bool
	pane       bottomPane
	collecting bool
	quitting   bool

	width  int
	height int
}

// New creates the dashboard model. Collection runs off the UI goroutine;
// the model only ever sees completed snapshots.
func New(c *collector.Collector, interval time.Duration) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(ColorAccent)

	return Model{
		collector: c,
		interval:  interval,
		spin:      sp,
	}
}

// WithReload returns a copy of the model with a config-reload hook
// installed.
func (m Model) WithReload(fn func() (*collector.Collector, error)) Model {
	m.reload = fn
	return m
}

// Init starts the refresh timer and kicks off the first collection.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.tickCmd(), m.collectCmd(), m.spin.Tick)
}

// Update handles messages and updates the model state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		case "r":
			if !m.collecting {
				m.collecting = true
				return m, m.collectCmd()
			}
		case "tab", "d":
			if m.pane == paneLogs {
				m.pane = paneHistory
			} else {
				m.pane = paneLogs
			}
			m.refreshPaneContent()
		case "c":
			if m.reload == nil {
				break
			}
			c, err := m.reload()
			if err != nil {
				m.cycleErr = "config reload failed: " + err.Error()
				break
			}
			m.collector = c
			m.cycleErr = ""
			if !m.collecting {
				m.collecting = true
				return m, m.collectCmd()
			}
		default:
			// Scrolling keys are handled by the viewport itself.
			var cmd tea.Cmd
			m.logView, cmd = m.logView.Update(msg)
			return m, cmd
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resizePane()

	case tickMsg:
		cmds := []tea.Cmd{m.tickCmd()}
		if !m.collecting {
			m.collecting = true
			cmds = append(cmds, m.collectCmd())
		}
		return m, tea.Batch(cmds...)

	case dataMsg:
		m.collecting = false
		if msg.err != nil {
			// Cycle-fatal fault: keep showing the previous snapshot.
			m.cycleErr = msg.err.Error()
		} else {
			m.cycleErr = ""
			m.data = msg.data
		}
		m.refreshPaneContent()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View renders the dashboard.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	return m.render()
}

func (m Model) tickCmd() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// collectCmd runs one collection cycle in the background and delivers the
// snapshot as a message.
func (m Model) collectCmd() tea.Cmd {
	c := m.collector
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), cycleTimeout)
		defer cancel()

		data, err := c.Collect(ctx)
		return dataMsg{data: data, err: err}
	}
}

func (m *Model) resizePane() {
	paneHeight := m.height - m.fixedContentHeight()
	if paneHeight < 3 {
		paneHeight = 3
	}

	if !m.paneReady {
		m.logView = viewport.New(m.width, paneHeight)
		m.paneReady = true
	} else {
		m.logView.Width = m.width
		m.logView.Height = paneHeight
	}
	m.refreshPaneContent()
}

func (m *Model) refreshPaneContent() {
	if !m.paneReady {
		return
	}
	if m.pane == paneHistory {
		m.logView.SetContent(m.renderHistory())
	} else {
		m.logView.SetContent(m.renderLogs())
	}
	m.logView.GotoBottom()
}
