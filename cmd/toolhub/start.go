package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/mattjoyce/toolhub/internal/api"
	"github.com/mattjoyce/toolhub/internal/auth"
	"github.com/mattjoyce/toolhub/internal/catalog"
	"github.com/mattjoyce/toolhub/internal/config"
	"github.com/mattjoyce/toolhub/internal/events"
	"github.com/mattjoyce/toolhub/internal/lock"
	"github.com/mattjoyce/toolhub/internal/log"
	"github.com/mattjoyce/toolhub/internal/metrics"
	"github.com/mattjoyce/toolhub/internal/opener"
	"github.com/mattjoyce/toolhub/internal/probe"
	"github.com/mattjoyce/toolhub/internal/procexec"
	"github.com/mattjoyce/toolhub/internal/registry"
	"github.com/mattjoyce/toolhub/internal/supervisor"
)

const serverDrainTimeout = 6 * time.Second

func runStart(args []string) int {
	fs := flag.NewFlagSet("start", flag.ContinueOnError)
	configPath := fs.String("config", "", "Path to configuration file or directory")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to parse flags: %v\n", err)
		return 1
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}

	log.Setup(cfg.Service.LogLevel, cfg.Service.LogFormat)
	logger := log.WithComponent("main")
	logger.Info("toolhub starting", "version", version, "config", cfg.Path)

	pidLock, err := lock.AcquirePIDLock(cfg.Service.LockPath)
	if err != nil {
		logger.Error("failed to acquire PID lock (another instance may be running)", "path", cfg.Service.LockPath, "error", err)
		return 1
	}
	defer pidLock.Release()
	logger.Info("acquired PID lock", "path", pidLock.Path())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, closeStore, err := openCatalog(ctx, cfg, true)
	if err != nil {
		logger.Error("failed to open tool catalog", "driver", cfg.Catalog.Driver, "error", err)
		return 1
	}
	defer closeStore()

	reg := registry.New()
	hub := events.NewHub(256)

	var open opener.Opener = opener.Logging{Logger: log.WithComponent("opener")}
	if cfg.Supervisor.OpenBrowser {
		open = opener.NewBrowser()
	}

	prober := probe.New(probe.Config{
		Interval:       cfg.Supervisor.Probe.Interval,
		MaxAttempts:    cfg.Supervisor.Probe.MaxAttempts,
		AttemptTimeout: cfg.Supervisor.Probe.AttemptTimeout,
		Host:           cfg.Supervisor.Probe.Host,
	}, open, probe.WithHub(hub))

	proc := procexec.New(cfg.Supervisor.Shell, nil)
	launcher := supervisor.NewLauncher(reg, proc, open, prober, hub)
	proc.OnExit = launcher.ObserveExit
	terminator := supervisor.NewTerminator(reg, proc, cfg.Supervisor.AllowUntrackedTerminate, hub)

	reaper := supervisor.NewReaper(reg, proc, supervisor.WithReaperHub(hub), supervisor.WithLaunchGate(launcher))
	if err := reaper.Arm(); err != nil {
		logger.Error("failed to arm shutdown reaper", "error", err)
		return 1
	}

	metrics.EmitBuildInfo(version)

	errCh := make(chan error, 1)
	served := make(chan struct{})
	if cfg.API.Enabled {
		server := api.New(apiConfig(cfg), reg, store, launcher, terminator, hub, log.WithComponent("api"))
		go func() {
			defer close(served)
			if err := server.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				errCh <- fmt.Errorf("api: %w", err)
			}
		}()
		logger.Info("API server enabled", "listen", cfg.API.Listen)
	} else {
		close(served)
		logger.Warn("API server disabled; only the shutdown reaper is active")
	}

	logger.Info("toolhub running (press Ctrl+C to stop)")

	code := 0
	select {
	case <-reaper.Done():
		logger.Info("shutdown signal handled", "reaped", reaper.Reaped())
	case err := <-errCh:
		logger.Error("component failed", "error", err)
		reaper.Reap("fatal: " + err.Error())
		code = 1
	}

	cancel()
	select {
	case <-served:
	case <-time.After(serverDrainTimeout):
		logger.Warn("API server did not stop in time")
	}

	logger.Info("toolhub stopped")
	return code
}

func apiConfig(cfg *config.Config) api.Config {
	tokens := make([]auth.TokenConfig, 0, len(cfg.API.Auth.Tokens))
	for _, t := range cfg.API.Auth.Tokens {
		tokens = append(tokens, auth.TokenConfig{Token: t.Token, Scopes: t.Scopes})
	}
	return api.Config{
		Listen:      cfg.API.Listen,
		APIKey:      cfg.API.Auth.APIKey,
		Tokens:      tokens,
		LaunchRPS:   cfg.API.LaunchRate.RPS,
		LaunchBurst: cfg.API.LaunchRate.Burst,
	}
}

// openCatalog returns the configured tool store. With seed set, tools from
// the config file are inserted into an sqlite catalog when missing.
func openCatalog(ctx context.Context, cfg *config.Config, seed bool) (catalog.Store, func(), error) {
	if cfg.Catalog.Driver != config.CatalogDriverSQLite {
		return catalog.NewStatic(cfg.Tools), func() {}, nil
	}

	db, err := catalog.OpenSQLite(ctx, cfg.Catalog.Path)
	if err != nil {
		return nil, nil, err
	}
	if seed && len(cfg.Tools) > 0 {
		added, err := db.Seed(ctx, cfg.Tools)
		if err != nil {
			_ = db.Close()
			return nil, nil, fmt.Errorf("seed catalog: %w", err)
		}
		if added > 0 {
			log.WithComponent("catalog").Info("seeded tools from config", "added", added, "path", cfg.Catalog.Path)
		}
	}
	return db, func() { _ = db.Close() }, nil
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		discovered, err := config.DiscoverConfigPath()
		if err != nil {
			return nil, err
		}
		path = discovered
	}
	return config.Load(path)
}
