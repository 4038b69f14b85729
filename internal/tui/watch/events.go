package watch

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/mattjoyce/toolhub/internal/events"
)

const (
	eventLogSize  = 50
	eventLogShown = 8
)

func renderEventStream(eventLog []events.Event, theme Theme, width int) string {
	innerWidth := width - 4

	lines := []string{theme.Title.Render("EVENTS")}
	if len(eventLog) == 0 {
		lines = append(lines, theme.Dim.Render("  Waiting for events..."))
	}
	for i, e := range eventLog {
		if i >= eventLogShown {
			break
		}
		lines = append(lines, " "+formatEvent(e, theme))
	}
	return theme.Border.Width(innerWidth).Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

func formatEvent(e events.Event, theme Theme) string {
	var style lipgloss.Style
	switch e.Type {
	case events.ProcessLaunched, events.ProbeReady, events.URLOpened:
		style = theme.StatusOK
	case events.ProcessTerminated, events.ReaperReaped:
		style = theme.StatusFailed
	case events.ProbeFallback:
		style = theme.StatusWarn
	case events.ProcessExited:
		style = theme.StatusExited
	default:
		style = theme.Dim
	}

	return fmt.Sprintf("%s %s %s",
		theme.Dim.Render(e.At.Format("15:04:05")),
		style.Render(fmt.Sprintf("%-20s", e.Type)),
		describeEvent(e),
	)
}

func describeEvent(e events.Event) string {
	data := map[string]any{}
	_ = json.Unmarshal(e.Data, &data)

	var parts []string
	// process.launched carries a registry record (camelCase keys).
	for _, key := range []string{"toolName", "tool_id", "toolId"} {
		if v, ok := data[key].(string); ok && v != "" {
			parts = append(parts, v)
			break
		}
	}
	if pid, ok := data["pid"].(float64); ok {
		parts = append(parts, fmt.Sprintf("pid=%d", int(pid)))
	}
	if u, ok := data["url"].(string); ok && u != "" {
		parts = append(parts, u)
	}
	if reason, ok := data["reason"].(string); ok && reason != "" {
		parts = append(parts, reason)
	}
	if n, ok := data["count"].(float64); ok {
		parts = append(parts, fmt.Sprintf("count=%d", int(n)))
	}

	if len(parts) == 0 {
		raw := string(e.Data)
		if len(raw) > 60 {
			raw = raw[:60] + "..."
		}
		return raw
	}
	return strings.Join(parts, " ")
}

// isProcessEvent reports whether e changes the tracked set.
func isProcessEvent(e events.Event) bool {
	switch e.Type {
	case events.ProcessLaunched, events.ProcessTerminated, events.ProcessExited, events.ReaperReaped:
		return true
	}
	return false
}
