package supervisor

import (
	"fmt"
	"log/slog"

	"github.com/mattjoyce/toolhub/internal/events"
	"github.com/mattjoyce/toolhub/internal/log"
	"github.com/mattjoyce/toolhub/internal/metrics"
	"github.com/mattjoyce/toolhub/internal/registry"
)

type TerminateResult struct {
	Success   bool
	Message   string
	Tracked   bool
	Delivered bool
}

type Terminator struct {
	reg            *registry.Registry
	signaler       Signaler
	allowUntracked bool
	hub            *events.Hub
	logger         *slog.Logger
}

func NewTerminator(reg *registry.Registry, signaler Signaler, allowUntracked bool, hub *events.Hub) *Terminator {
	return &Terminator{
		reg:            reg,
		signaler:       signaler,
		allowUntracked: allowUntracked,
		hub:            hub,
		logger:         log.WithComponent("terminator"),
	}
}

// Terminate force-kills pid and drops it from the registry whether or not
// the signal was delivered. It does not wait for the process to exit.
func (t *Terminator) Terminate(pid int) (TerminateResult, error) {
	if !ValidPID(pid) {
		return TerminateResult{}, fmt.Errorf("%w: %d", ErrInvalidProcessID, pid)
	}

	rec, tracked := t.reg.Get(pid)
	if !tracked && !t.allowUntracked {
		return TerminateResult{}, fmt.Errorf("%w: %d", ErrUnknownProcess, pid)
	}

	logger := t.logger.With("pid", pid, "tracked", tracked)
	err := t.signaler.Kill(pid)
	delivered := err == nil
	if err != nil {
		logger.Warn("kill failed", "error", err)
	} else {
		logger.Info("kill sent")
	}
	metrics.ObserveTermination("api", delivered)

	t.reg.Remove(pid)
	metrics.SetTracked(t.reg.Len())

	data := map[string]any{"pid": pid, "tracked": tracked, "delivered": delivered}
	if tracked {
		data["tool_id"] = rec.ToolID
	}
	t.hub.Publish(events.ProcessTerminated, data)

	return TerminateResult{
		Success:   true,
		Message:   fmt.Sprintf("Termination signal sent to PID: %d", pid),
		Tracked:   tracked,
		Delivered: delivered,
	}, nil
}
