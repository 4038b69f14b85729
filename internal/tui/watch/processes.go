package watch

import (
	"strconv"
	"time"

	"github.com/charmbracelet/bubbles/table"

	"github.com/mattjoyce/toolhub/internal/catalog"
	"github.com/mattjoyce/toolhub/internal/registry"
)

func newProcessTable(theme Theme) table.Model {
	t := table.New(
		table.WithColumns([]table.Column{
			{Title: "PID", Width: 8},
			{Title: "Tool", Width: 24},
			{Title: "Port", Width: 6},
			{Title: "Up", Width: 10},
			{Title: "Launch", Width: 10},
		}),
		table.WithFocused(true),
		table.WithHeight(8),
	)
	t.SetStyles(theme.Table)
	return t
}

func newToolTable(theme Theme) table.Model {
	t := table.New(
		table.WithColumns([]table.Column{
			{Title: "ID", Width: 16},
			{Title: "Name", Width: 24},
			{Title: "Target", Width: 32},
		}),
		table.WithHeight(6),
	)
	t.SetStyles(theme.Table)
	return t
}

func processRows(recs []registry.Record, now time.Time) []table.Row {
	rows := make([]table.Row, 0, len(recs))
	for _, rec := range recs {
		name := rec.ToolName
		if name == "" {
			name = rec.ToolID
		}
		port := "-"
		if rec.Port != nil {
			port = strconv.Itoa(*rec.Port)
		}
		launch := rec.LaunchID
		if len(launch) > 8 {
			launch = launch[:8]
		}
		rows = append(rows, table.Row{
			strconv.Itoa(rec.PID),
			name,
			port,
			formatDuration(now.Sub(rec.StartTime)),
			launch,
		})
	}
	return rows
}

func toolRows(tools []catalog.Tool) []table.Row {
	rows := make([]table.Row, 0, len(tools))
	for _, t := range tools {
		if !t.Enabled {
			continue
		}
		rows = append(rows, table.Row{t.ID, t.Name, toolTarget(t)})
	}
	return rows
}

func toolTarget(t catalog.Tool) string {
	switch {
	case t.Command != "" && t.Port != nil:
		return t.Command + " :" + strconv.Itoa(*t.Port)
	case t.Command != "":
		return t.Command
	case t.LaunchURL != "":
		return t.LaunchURL
	case t.Port != nil:
		return "localhost:" + strconv.Itoa(*t.Port)
	}
	return "-"
}

// selectedPID returns the pid on the highlighted process row.
func selectedPID(t table.Model) (int, bool) {
	row := t.SelectedRow()
	if len(row) == 0 {
		return 0, false
	}
	pid, err := strconv.Atoi(row[0])
	if err != nil {
		return 0, false
	}
	return pid, true
}

func selectedToolID(t table.Model) (string, bool) {
	row := t.SelectedRow()
	if len(row) == 0 {
		return "", false
	}
	return row[0], true
}
