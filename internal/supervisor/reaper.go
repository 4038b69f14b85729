package supervisor

import (
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"

	"github.com/mattjoyce/toolhub/internal/events"
	"github.com/mattjoyce/toolhub/internal/log"
	"github.com/mattjoyce/toolhub/internal/metrics"
	"github.com/mattjoyce/toolhub/internal/registry"
)

type ReaperState int32

const (
	StateIdle ReaperState = iota
	StateArmed
	StateReaping
	StateExiting
)

func (s ReaperState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateArmed:
		return "armed"
	case StateReaping:
		return "reaping"
	case StateExiting:
		return "exiting"
	default:
		return "unknown"
	}
}

// processSignalsClaimed guards against two reapers listening for the
// process's own shutdown signals.
var processSignalsClaimed atomic.Bool

// Reaper kills every tracked child once, on SIGINT/SIGTERM or when asked
// to after a fatal error, and then releases Done.
type Reaper struct {
	reg      *registry.Registry
	signaler Signaler
	hub      *events.Hub
	gate     LaunchGate
	logger   *slog.Logger

	notify    func(c chan<- os.Signal, sig ...os.Signal)
	stop      func(c chan<- os.Signal)
	ownsOSSig bool

	mu     sync.Mutex
	sigCh  chan os.Signal
	state  ReaperState
	done   chan struct{}
	reaped int
}

type ReaperOption func(*Reaper)

// LaunchGate is closed before the registry is drained. *Launcher
// implements it.
type LaunchGate interface {
	Close()
}

// WithLaunchGate makes Reap close g before draining.
func WithLaunchGate(g LaunchGate) ReaperOption {
	return func(r *Reaper) { r.gate = g }
}

// WithSignalSource replaces signal.Notify/signal.Stop, mainly for tests.
func WithSignalSource(notify func(chan<- os.Signal, ...os.Signal), stop func(chan<- os.Signal)) ReaperOption {
	return func(r *Reaper) {
		r.notify = notify
		r.stop = stop
		r.ownsOSSig = false
	}
}

func WithReaperHub(h *events.Hub) ReaperOption {
	return func(r *Reaper) { r.hub = h }
}

func NewReaper(reg *registry.Registry, signaler Signaler, opts ...ReaperOption) *Reaper {
	r := &Reaper{
		reg:       reg,
		signaler:  signaler,
		logger:    log.WithComponent("reaper"),
		notify:    signal.Notify,
		stop:      signal.Stop,
		ownsOSSig: true,
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Arm installs the SIGINT/SIGTERM listener. It may succeed only once per
// reaper, and only once per process for reapers using real OS signals.
func (r *Reaper) Arm() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != StateIdle {
		return ErrAlreadyArmed
	}
	if r.ownsOSSig && !processSignalsClaimed.CompareAndSwap(false, true) {
		return ErrAlreadyArmed
	}

	ch := make(chan os.Signal, 1)
	r.notify(ch, os.Interrupt, syscall.SIGTERM)
	r.sigCh = ch
	r.state = StateArmed
	r.logger.Info("shutdown reaper armed")

	go func() {
		select {
		case sig := <-ch:
			r.Reap("signal: " + sig.String())
		case <-r.done:
		}
	}()
	return nil
}

// Reap drains the registry and force-kills every entry. Per-child failures
// are logged and never retried. Only the first call does any work; it
// returns the number of children signalled.
func (r *Reaper) Reap(reason string) int {
	r.mu.Lock()
	if r.state == StateReaping || r.state == StateExiting {
		r.mu.Unlock()
		return 0
	}
	r.state = StateReaping
	ch := r.sigCh
	r.mu.Unlock()

	// A further signal now gets the default action.
	if ch != nil {
		r.stop(ch)
	}
	if r.gate != nil {
		r.gate.Close()
	}

	recs := r.reg.Drain()
	metrics.SetTracked(0)
	r.logger.Info("reaping tracked processes", "reason", reason, "count", len(recs))

	failed := 0
	for _, rec := range recs {
		err := r.signaler.Kill(rec.PID)
		metrics.ObserveTermination("reaper", err == nil)
		if err != nil {
			failed++
			r.logger.Warn("failed to kill child", "pid", rec.PID, "tool_id", rec.ToolID, "error", err)
		}
	}

	r.hub.Publish(events.ReaperReaped, map[string]any{
		"reason": reason,
		"count":  len(recs),
		"failed": failed,
	})

	r.mu.Lock()
	r.state = StateExiting
	r.reaped = len(recs)
	close(r.done)
	r.mu.Unlock()
	return len(recs)
}

// Done is closed once reaping has finished and the service should exit.
func (r *Reaper) Done() <-chan struct{} {
	return r.done
}

func (r *Reaper) State() ReaperState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Reaped reports how many children the completed reap signalled.
func (r *Reaper) Reaped() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.reaped
}
