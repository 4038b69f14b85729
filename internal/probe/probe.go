// Package probe waits for a freshly launched tool to answer HTTP on its port
// and then opens the tool's URL exactly once.
package probe

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/mattjoyce/toolhub/internal/events"
	"github.com/mattjoyce/toolhub/internal/log"
	"github.com/mattjoyce/toolhub/internal/metrics"
	"github.com/mattjoyce/toolhub/internal/opener"
)

// Defaults used when the corresponding Config field is zero.
const (
	DefaultInterval       = 500 * time.Millisecond
	DefaultMaxAttempts    = 180
	DefaultAttemptTimeout = time.Second
	DefaultHost           = "localhost"
)

type Config struct {
	Interval       time.Duration
	MaxAttempts    int
	AttemptTimeout time.Duration
	Host           string
}

func (c Config) withDefaults() Config {
	if c.Interval <= 0 {
		c.Interval = DefaultInterval
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = DefaultMaxAttempts
	}
	if c.AttemptTimeout <= 0 {
		c.AttemptTimeout = DefaultAttemptTimeout
	}
	if c.Host == "" {
		c.Host = DefaultHost
	}
	return c
}

// Checker performs one readiness attempt. A nil error means ready.
type Checker interface {
	Check(ctx context.Context, url string) error
}

// CheckerFunc adapts a function to Checker.
type CheckerFunc func(ctx context.Context, url string) error

func (f CheckerFunc) Check(ctx context.Context, url string) error { return f(ctx, url) }

// HTTPChecker treats any HTTP response, whatever the status, as ready.
type HTTPChecker struct {
	Client *http.Client
}

func (c HTTPChecker) Check(ctx context.Context, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("request: %w", err)
	}
	client := c.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// Target identifies what to probe and what to open.
type Target struct {
	Port     int
	OpenURL  string
	PID      int
	ToolID   string
	LaunchID string
}

// Outcome summarises a finished probe.
type Outcome struct {
	Ready    bool
	Attempts int
	OpenErr  error
}

// Prober runs bounded readiness loops.
type Prober struct {
	cfg     Config
	checker Checker
	opener  opener.Opener
	hub     *events.Hub
	logger  *slog.Logger
	sleep   func(time.Duration)
}

type Option func(*Prober)

// WithChecker replaces the HTTP checker.
func WithChecker(c Checker) Option { return func(p *Prober) { p.checker = c } }

// WithSleep replaces time.Sleep between attempts.
func WithSleep(fn func(time.Duration)) Option { return func(p *Prober) { p.sleep = fn } }

// WithHub publishes probe.ready / probe.fallback / url.opened events.
func WithHub(h *events.Hub) Option { return func(p *Prober) { p.hub = h } }

func New(cfg Config, o opener.Opener, opts ...Option) *Prober {
	p := &Prober{
		cfg:     cfg.withDefaults(),
		checker: HTTPChecker{Client: &http.Client{}},
		opener:  o,
		logger:  log.WithComponent("probe"),
		sleep:   time.Sleep,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// URL returns the address probed for port.
func (p *Prober) URL(port int) string {
	return "http://" + net.JoinHostPort(p.cfg.Host, strconv.Itoa(port)) + "/"
}

// Start runs the probe in its own goroutine. The loop cannot be cancelled;
// its lifetime is bounded by MaxAttempts.
func (p *Prober) Start(t Target) {
	go p.Run(t)
}

// Run blocks until the target answers or the attempt budget is spent. In
// both cases the URL is opened exactly once.
func (p *Prober) Run(t Target) Outcome {
	logger := p.logger.With("pid", t.PID, "tool_id", t.ToolID, "launch_id", t.LaunchID, "port", t.Port)
	probeURL := p.URL(t.Port)

	out := Outcome{}
	for attempt := 1; attempt <= p.cfg.MaxAttempts; attempt++ {
		out.Attempts = attempt
		if p.attempt(probeURL) {
			out.Ready = true
			break
		}
		if attempt < p.cfg.MaxAttempts {
			p.sleep(p.cfg.Interval)
		}
	}

	if out.Ready {
		logger.Info("tool ready", "attempts", out.Attempts)
		metrics.ObserveProbe(metrics.ProbeReady, out.Attempts)
		p.hub.Publish(events.ProbeReady, map[string]any{
			"pid": t.PID, "tool_id": t.ToolID, "port": t.Port, "attempts": out.Attempts,
		})
	} else {
		logger.Warn("tool did not become ready; opening anyway", "attempts", out.Attempts)
		metrics.ObserveProbe(metrics.ProbeFallback, out.Attempts)
		p.hub.Publish(events.ProbeFallback, map[string]any{
			"pid": t.PID, "tool_id": t.ToolID, "port": t.Port, "attempts": out.Attempts,
		})
	}

	openURL := t.OpenURL
	if openURL == "" {
		openURL = "http://" + net.JoinHostPort(DefaultHost, strconv.Itoa(t.Port))
	}
	if err := p.opener.Open(context.Background(), openURL); err != nil {
		out.OpenErr = err
		logger.Warn("failed to open url", "url", openURL, "error", err)
		return out
	}
	p.hub.Publish(events.URLOpened, map[string]any{"url": openURL, "pid": t.PID, "tool_id": t.ToolID})
	return out
}

func (p *Prober) attempt(url string) bool {
	ctx, cancel := context.WithTimeout(context.Background(), p.cfg.AttemptTimeout)
	defer cancel()
	return p.checker.Check(ctx, url) == nil
}
