package watch

import (
	"context"
	"errors"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/mattjoyce/toolhub/internal/api"
	"github.com/mattjoyce/toolhub/internal/catalog"
	"github.com/mattjoyce/toolhub/internal/client"
	"github.com/mattjoyce/toolhub/internal/events"
	"github.com/mattjoyce/toolhub/internal/registry"
)

const (
	pollInterval      = 5 * time.Second
	reconnectInterval = 3 * time.Second
	requestTimeout    = 4 * time.Second
)

// API is the subset of *client.Client the TUI needs.
type API interface {
	BaseURL() string
	Healthz(ctx context.Context) (api.HealthzResponse, error)
	RunningStatus(ctx context.Context) ([]registry.Record, error)
	Tools(ctx context.Context) ([]catalog.Tool, error)
	Launch(ctx context.Context, toolID string, suppressOpen bool) (api.LaunchResponse, error)
	Stop(ctx context.Context, pid int) (api.StopResponse, error)
	Events(ctx context.Context, lastID int64, fn func(events.Event)) error
}

var _ API = (*client.Client)(nil)

// --- Message types ---

type eventMsg events.Event

type healthMsg api.HealthzResponse

type processesMsg []registry.Record

type toolsMsg []catalog.Tool

type actionMsg string

type errMsg struct{ err error }

func (e errMsg) Error() string { return e.err.Error() }

type pollMsg time.Time

type tickMsg time.Time

type sseDisconnectedMsg struct{}

type reconnectMsg struct{}

// --- Commands ---

func fetchHealth(c API) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		h, err := c.Healthz(ctx)
		if err != nil {
			return errMsg{err}
		}
		return healthMsg(h)
	}
}

func fetchProcesses(c API) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		recs, err := c.RunningStatus(ctx)
		if err != nil {
			return errMsg{err}
		}
		return processesMsg(recs)
	}
}

func fetchTools(c API) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		tools, err := c.Tools(ctx)
		if err != nil {
			return errMsg{err}
		}
		return toolsMsg(tools)
	}
}

func stopProcess(c API, pid int) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		res, err := c.Stop(ctx, pid)
		if err != nil {
			return errMsg{fmt.Errorf("stop %d: %w", pid, err)}
		}
		return actionMsg(res.Message)
	}
}

func launchTool(c API, toolID string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		res, err := c.Launch(ctx, toolID, false)
		if err != nil {
			var apiErr *client.APIError
			if errors.As(err, &apiErr) && apiErr.RetryAfter != "" {
				return errMsg{fmt.Errorf("launch %s: rate limited, retry in %ss", toolID, apiErr.RetryAfter)}
			}
			return errMsg{fmt.Errorf("launch %s: %w", toolID, err)}
		}
		return actionMsg(res.Message)
	}
}

// subscribeToEvents streams /events into ch and reports when the stream ends.
func subscribeToEvents(c API, lastID int64, ch chan<- events.Event) tea.Cmd {
	return func() tea.Msg {
		_ = c.Events(context.Background(), lastID, func(e events.Event) { ch <- e })
		return sseDisconnectedMsg{}
	}
}

// receiveNextEvent waits for the next event from the channel.
func receiveNextEvent(ch <-chan events.Event) tea.Cmd {
	return func() tea.Msg {
		return eventMsg(<-ch)
	}
}

func schedulePoll() tea.Cmd {
	return tea.Tick(pollInterval, func(t time.Time) tea.Msg { return pollMsg(t) })
}

func scheduleTick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg { return tickMsg(t) })
}
