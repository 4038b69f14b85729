package supervisor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mattjoyce/toolhub/internal/events"
	"github.com/mattjoyce/toolhub/internal/log"
	"github.com/mattjoyce/toolhub/internal/metrics"
	"github.com/mattjoyce/toolhub/internal/probe"
	"github.com/mattjoyce/toolhub/internal/registry"
)

// LaunchRequest is a tool launch already resolved to a command line.
type LaunchRequest struct {
	ToolID       string
	ToolName     string
	Command      string
	WorkingDir   string
	Port         *int
	URL          string
	SuppressOpen bool
}

type LaunchResult struct {
	Success    bool
	Message    string
	Command    string
	ToolName   string
	PID        int
	Port       *int
	URL        string
	Suppressed bool
	LaunchID   string
}

type Launcher struct {
	reg     *registry.Registry
	spawner Spawner
	opener  Opener
	prober  ProbeStarter
	hub     *events.Hub
	logger  *slog.Logger
	newID   func() string

	mu       sync.Mutex
	closed   bool
	inflight sync.WaitGroup
}

// NewLauncher wires a launcher. prober may be nil, in which case no
// readiness probes run.
func NewLauncher(reg *registry.Registry, spawner Spawner, opener Opener, prober ProbeStarter, hub *events.Hub) *Launcher {
	return &Launcher{
		reg:     reg,
		spawner: spawner,
		opener:  opener,
		prober:  prober,
		hub:     hub,
		logger:  log.WithComponent("launcher"),
		newID:   func() string { return uuid.New().String() },
	}
}

// TargetURL is the URL a launch would open: the explicit URL if set,
// otherwise http://localhost:<port> for a valid port.
func TargetURL(rawURL string, port *int) string {
	if u := strings.TrimSpace(rawURL); u != "" {
		return u
	}
	if validPort(port) {
		return "http://localhost:" + strconv.Itoa(*port)
	}
	return ""
}

// Close stops new launches and waits for in-flight ones to register their
// child, so a registry drain that follows sees every spawned pid.
func (l *Launcher) Close() {
	l.mu.Lock()
	l.closed = true
	l.mu.Unlock()
	l.inflight.Wait()
}

// Launch spawns req.Command, or just opens the target URL when there is no
// command. It never waits for the tool to become ready.
func (l *Launcher) Launch(ctx context.Context, req LaunchRequest) (LaunchResult, error) {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		metrics.ObserveLaunch(metrics.LaunchRejected)
		return LaunchResult{}, ErrShuttingDown
	}
	l.inflight.Add(1)
	l.mu.Unlock()
	defer l.inflight.Done()

	launchID := l.newID()
	logger := l.logger.With("launch_id", launchID, "tool_id", req.ToolID)
	target := TargetURL(req.URL, req.Port)
	command := strings.TrimSpace(req.Command)

	res := LaunchResult{
		Command:    req.Command,
		ToolName:   req.ToolName,
		Port:       copyPort(req.Port),
		URL:        target,
		Suppressed: req.SuppressOpen,
		LaunchID:   launchID,
	}

	if command == "" {
		return l.openOnly(ctx, logger, req, res)
	}

	pid, err := l.spawner.SpawnDetached(command, req.WorkingDir)
	if err != nil {
		metrics.ObserveLaunch(metrics.LaunchFailed)
		logger.Error("spawn failed", "command", command, "error", err)
		return LaunchResult{}, &SpawnError{Command: command, Err: err}
	}

	rec := l.reg.Put(registry.Record{
		PID:        pid,
		ToolID:     req.ToolID,
		ToolName:   req.ToolName,
		Port:       copyPort(req.Port),
		LaunchID:   launchID,
		Command:    command,
		WorkingDir: req.WorkingDir,
	})
	metrics.SetTracked(l.reg.Len())
	metrics.ObserveLaunch(metrics.LaunchSpawned)
	logger.Info("launched", "pid", pid, "command", command)
	l.hub.Publish(events.ProcessLaunched, rec)

	if validPort(req.Port) && !req.SuppressOpen && l.prober != nil {
		l.prober.Start(probe.Target{
			Port:     *req.Port,
			OpenURL:  target,
			PID:      pid,
			ToolID:   req.ToolID,
			LaunchID: launchID,
		})
	}

	res.Success = true
	res.PID = pid
	res.Message = "Successfully launched: " + req.ToolName
	return res, nil
}

func (l *Launcher) openOnly(ctx context.Context, logger *slog.Logger, req LaunchRequest, res LaunchResult) (LaunchResult, error) {
	if res.URL == "" {
		metrics.ObserveLaunch(metrics.LaunchRejected)
		return LaunchResult{}, ErrMissingLaunchTarget
	}
	res.Command = ""

	if req.SuppressOpen {
		metrics.ObserveLaunch(metrics.LaunchSuppressed)
		res.Success = true
		res.Message = "Open suppressed (no command)."
		return res, nil
	}

	if err := l.opener.Open(ctx, res.URL); err != nil {
		metrics.ObserveLaunch(metrics.LaunchFailed)
		logger.Warn("open failed", "url", res.URL, "error", err)
		return LaunchResult{}, fmt.Errorf("%w: %w", ErrOpenFailed, err)
	}
	metrics.ObserveLaunch(metrics.LaunchOpened)
	l.hub.Publish(events.URLOpened, map[string]any{"url": res.URL, "tool_id": req.ToolID})
	res.Success = true
	res.Message = "Opened " + res.URL
	return res, nil
}

// ObserveExit is installed as the spawner's exit hook. The registry entry is
// left in place; it disappears only through Terminate or the reaper.
func (l *Launcher) ObserveExit(pid int, err error, ranFor time.Duration) {
	data := map[string]any{"pid": pid, "ran_for_ms": ranFor.Milliseconds(), "tracked": false}
	if rec, ok := l.reg.Get(pid); ok {
		data["tracked"] = true
		data["tool_id"] = rec.ToolID
	}
	if err != nil {
		var exitErr interface{ ExitCode() int }
		if errors.As(err, &exitErr) {
			data["exit_code"] = exitErr.ExitCode()
		}
		data["error"] = err.Error()
	}
	l.hub.Publish(events.ProcessExited, data)
}

func copyPort(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
