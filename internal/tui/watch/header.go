package watch

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// HealthState is the last /healthz reading.
type HealthState struct {
	Status           string
	UptimeSeconds    int64
	TrackedProcesses int
	ToolsLoaded      int
	Connected        bool
	LastCheck        time.Time
}

func renderHeader(baseURL string, health HealthState, pulse Pulse, theme Theme, width int) string {
	innerWidth := width - 4

	status := theme.StatusOK.Render("UP")
	switch {
	case !health.Connected:
		status = theme.StatusFailed.Render("CONNECTING")
	case health.Status != "ok" && health.Status != "":
		status = theme.StatusWarn.Render(strings.ToUpper(health.Status))
	}

	title := fmt.Sprintf(" TOOLHUB %s", theme.Dim.Render(baseURL))
	clock := theme.Dim.Render(time.Now().Format("15:04:05"))
	pad := max(innerWidth-lipgloss.Width(title)-lipgloss.Width(clock)-4, 1)
	titleLine := title + strings.Repeat(" ", pad) + clock + " "

	stats := fmt.Sprintf(" %s  up %s  tracked: %d  tools: %d",
		status,
		formatDuration(time.Duration(health.UptimeSeconds)*time.Second),
		health.TrackedProcesses,
		health.ToolsLoaded,
	)

	last := "never"
	if !pulse.LastEvent().IsZero() {
		last = formatAgo(time.Since(pulse.LastEvent()))
	}
	activity := fmt.Sprintf(" last event: %s %s", last, pulse.Render(theme))

	return theme.Border.Width(innerWidth).Render(
		lipgloss.JoinVertical(lipgloss.Left, titleLine, stats, activity),
	)
}

func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm %ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh %dm", int(d.Hours()), int(d.Minutes())%60)
}

func formatAgo(d time.Duration) string {
	return formatDuration(d.Round(time.Second)) + " ago"
}
