package watch

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/mattjoyce/toolhub/internal/catalog"
	"github.com/mattjoyce/toolhub/internal/events"
	"github.com/mattjoyce/toolhub/internal/registry"
)

type pane int

const (
	paneProcesses pane = iota
	paneTools
)

// Model is the BubbleTea model for the watch TUI.
type Model struct {
	api API

	width  int
	height int

	health      HealthState
	processes   []registry.Record
	tools       []catalog.Tool
	eventLog    []events.Event
	lastEventID int64

	procTable table.Model
	toolTable table.Model
	focus     pane

	pulse Pulse
	theme Theme

	hubEvents chan events.Event

	status    string
	lastError string
}

// New creates a watch model bound to a running toolhub API.
func New(c API) *Model {
	theme := NewDefaultTheme()
	return &Model{
		api:       c,
		eventLog:  make([]events.Event, 0),
		procTable: newProcessTable(theme),
		toolTable: newToolTable(theme),
		pulse:     NewPulse(),
		theme:     theme,
		hubEvents: make(chan events.Event, 100),
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		subscribeToEvents(m.api, 0, m.hubEvents),
		receiveNextEvent(m.hubEvents),
		fetchHealth(m.api),
		fetchProcesses(m.api),
		fetchTools(m.api),
		schedulePoll(),
		scheduleTick(),
		tea.EnterAltScreen,
	)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "r":
			m.status = "refreshing..."
			return m, tea.Batch(fetchHealth(m.api), fetchProcesses(m.api), fetchTools(m.api))
		case "tab":
			m.toggleFocus()
			return m, nil
		case "x":
			if m.focus != paneProcesses {
				return m, nil
			}
			pid, ok := selectedPID(m.procTable)
			if !ok {
				return m, nil
			}
			m.status = fmt.Sprintf("stopping %d...", pid)
			return m, stopProcess(m.api, pid)
		case "enter":
			if m.focus != paneTools {
				return m, nil
			}
			id, ok := selectedToolID(m.toolTable)
			if !ok {
				return m, nil
			}
			m.status = fmt.Sprintf("launching %s...", id)
			return m, launchTool(m.api, id)
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.procTable.SetWidth(m.width - 6)
		m.toolTable.SetWidth(m.width - 6)
		return m, nil

	case tickMsg:
		m.pulse.Decay()
		return m, scheduleTick()

	case pollMsg:
		return m, tea.Batch(fetchHealth(m.api), fetchProcesses(m.api), schedulePoll())

	case healthMsg:
		m.health = HealthState{
			Status:           msg.Status,
			UptimeSeconds:    msg.UptimeSeconds,
			TrackedProcesses: msg.TrackedProcesses,
			ToolsLoaded:      msg.ToolsLoaded,
			Connected:        true,
			LastCheck:        time.Now(),
		}
		m.lastError = ""
		return m, nil

	case processesMsg:
		m.processes = []registry.Record(msg)
		setRows(&m.procTable, processRows(m.processes, time.Now()))
		return m, nil

	case toolsMsg:
		m.tools = []catalog.Tool(msg)
		setRows(&m.toolTable, toolRows(m.tools))
		return m, nil

	case actionMsg:
		m.status = string(msg)
		m.lastError = ""
		return m, fetchProcesses(m.api)

	case eventMsg:
		e := events.Event(msg)
		m.eventLog = append([]events.Event{e}, m.eventLog...)
		if len(m.eventLog) > eventLogSize {
			m.eventLog = m.eventLog[:eventLogSize]
		}
		if e.ID > m.lastEventID {
			m.lastEventID = e.ID
		}
		m.pulse.OnEvent()
		m.health.Connected = true

		cmds := []tea.Cmd{receiveNextEvent(m.hubEvents)}
		if isProcessEvent(e) {
			cmds = append(cmds, fetchProcesses(m.api))
		}
		return m, tea.Batch(cmds...)

	case sseDisconnectedMsg:
		m.health.Connected = false
		m.lastError = "event stream disconnected, reconnecting..."
		return m, tea.Tick(reconnectInterval, func(time.Time) tea.Msg { return reconnectMsg{} })

	case reconnectMsg:
		return m, subscribeToEvents(m.api, m.lastEventID, m.hubEvents)

	case errMsg:
		m.lastError = msg.Error()
		return m, nil
	}

	var cmd tea.Cmd
	if m.focus == paneProcesses {
		m.procTable, cmd = m.procTable.Update(msg)
	} else {
		m.toolTable, cmd = m.toolTable.Update(msg)
	}
	return m, cmd
}

func (m *Model) toggleFocus() {
	if m.focus == paneProcesses {
		m.focus = paneTools
		m.procTable.Blur()
		m.toolTable.Focus()
		return
	}
	m.focus = paneProcesses
	m.toolTable.Blur()
	m.procTable.Focus()
}

func setRows(t *table.Model, rows []table.Row) {
	t.SetRows(rows)
	if n := len(rows); n > 0 && t.Cursor() >= n {
		t.SetCursor(n - 1)
	}
}

func (m Model) View() string {
	if m.width == 0 {
		return "Connecting to toolhub..."
	}

	header := renderHeader(m.api.BaseURL(), m.health, m.pulse, m.theme, m.width)
	procs := m.renderPane("PROCESSES", m.procTable, len(m.processes) == 0, "  No tracked processes", m.focus == paneProcesses)
	tools := m.renderPane("TOOLS", m.toolTable, len(m.tools) == 0, "  Catalog is empty", m.focus == paneTools)
	eventStream := renderEventStream(m.eventLog, m.theme, m.width)

	parts := []string{header, procs, tools, eventStream}
	if m.lastError != "" {
		parts = append(parts, m.theme.StatusFailed.Render(" ⚠ "+m.lastError))
	} else if m.status != "" {
		parts = append(parts, m.theme.Highlight.Render(" "+m.status))
	}
	parts = append(parts, m.theme.Help.Render(" [q] Quit • [r] Refresh • [tab] Switch pane • [x] Stop process • [enter] Launch tool"))

	return lipgloss.NewStyle().Margin(1, 2).Render(
		lipgloss.JoinVertical(lipgloss.Left, parts...),
	)
}

func (m Model) renderPane(title string, t table.Model, empty bool, emptyText string, focused bool) string {
	border := m.theme.Border
	if focused {
		border = m.theme.FocusBorder
	}
	body := t.View()
	if empty {
		body = m.theme.Dim.Render(emptyText)
	}
	return border.Width(m.width - 4).Render(
		lipgloss.JoinVertical(lipgloss.Left, m.theme.Title.Render(title), body),
	)
}
