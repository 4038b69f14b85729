package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"gopkg.in/yaml.v3"

	"github.com/mattjoyce/toolhub/internal/catalog"
	"github.com/mattjoyce/toolhub/internal/client"
	"github.com/mattjoyce/toolhub/internal/config"
	"github.com/mattjoyce/toolhub/internal/lock"
	"github.com/mattjoyce/toolhub/internal/procexec"
)

// --- system status ---

type statusCheck struct {
	Name      string `json:"name"`
	OK        bool   `json:"ok"`
	Detail    string `json:"detail,omitempty"`
	ActivePID int    `json:"active_pid,omitempty"`
}

type statusReport struct {
	Healthy bool          `json:"healthy"`
	Checks  []statusCheck `json:"checks"`
}

func (r *statusReport) add(c statusCheck) {
	r.Checks = append(r.Checks, c)
}

func runSystemStatus(args []string) int {
	fs := flag.NewFlagSet("status", flag.ContinueOnError)
	configPath := fs.String("config", "", "Path to configuration file or directory")
	jsonOut := fs.Bool("json", false, "Output as JSON")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Flag error: %v\n", err)
		return 1
	}

	report := buildStatusReport(context.Background(), *configPath)

	if *jsonOut {
		if code := printJSON(os.Stdout, report); code != 0 {
			return code
		}
	} else {
		for _, c := range report.Checks {
			state := "OK"
			if !c.OK {
				state = "FAIL"
			}
			line := fmt.Sprintf("%s: %s", c.Name, state)
			if c.Detail != "" {
				line += " (" + c.Detail + ")"
			}
			fmt.Println(line)
		}
	}
	if !report.Healthy {
		return 1
	}
	return 0
}

func buildStatusReport(ctx context.Context, configPath string) statusReport {
	report := statusReport{}

	cfg, err := loadConfig(configPath)
	if err != nil {
		report.add(statusCheck{Name: "config_load", Detail: err.Error()})
		for _, name := range []string{"catalog", "instance", "api"} {
			report.add(statusCheck{Name: name, Detail: "skipped: config not loaded"})
		}
		return report
	}
	report.add(statusCheck{Name: "config_load", OK: true, Detail: cfg.Path})

	store, closeStore, err := openCatalog(ctx, cfg, false)
	if err != nil {
		report.add(statusCheck{Name: "catalog", Detail: err.Error()})
	} else {
		tools, err := store.List(ctx)
		closeStore()
		if err != nil {
			report.add(statusCheck{Name: "catalog", Detail: err.Error()})
		} else {
			report.add(statusCheck{Name: "catalog", OK: true, Detail: fmt.Sprintf("%s, %d tools", cfg.Catalog.Driver, len(tools))})
		}
	}

	pid, err := lock.ReadPID(cfg.Service.LockPath)
	switch {
	case err != nil:
		report.add(statusCheck{Name: "instance", Detail: "not running"})
	case !procexec.Alive(pid):
		report.add(statusCheck{Name: "instance", Detail: fmt.Sprintf("stale lock (pid %d)", pid)})
	default:
		report.add(statusCheck{Name: "instance", OK: true, Detail: "running", ActivePID: pid})
	}

	if !cfg.API.Enabled {
		report.add(statusCheck{Name: "api", OK: true, Detail: "disabled"})
	} else {
		hctx, cancel := context.WithTimeout(ctx, cliTimeout)
		h, err := client.New(listenURL(cfg.API.Listen), cfg.API.Auth.APIKey).Healthz(hctx)
		cancel()
		if err != nil {
			report.add(statusCheck{Name: "api", Detail: err.Error()})
		} else {
			report.add(statusCheck{Name: "api", OK: h.Status == "ok",
				Detail: fmt.Sprintf("%s, %d tracked, up %ds", h.Status, h.TrackedProcesses, h.UptimeSeconds)})
		}
	}

	report.Healthy = true
	for _, c := range report.Checks {
		if !c.OK {
			report.Healthy = false
		}
	}
	return report
}

// --- tool ---

func runToolList(args []string) int {
	fs := flag.NewFlagSet("tool list", flag.ContinueOnError)
	configPath := fs.String("config", "", "Path to configuration file or directory")
	jsonOut := fs.Bool("json", false, "Output as JSON")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Flag error: %v\n", err)
		return 1
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}
	ctx := context.Background()
	store, closeStore, err := openCatalog(ctx, cfg, false)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open catalog: %v\n", err)
		return 1
	}
	defer closeStore()

	tools, err := store.List(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to list tools: %v\n", err)
		return 1
	}

	if *jsonOut {
		return printJSON(os.Stdout, tools)
	}
	if len(tools) == 0 {
		fmt.Println("No tools in catalog")
		return 0
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("ID", "Name", "Command", "Port", "URL", "Enabled")
	for _, t := range tools {
		port := "-"
		if t.Port != nil {
			port = strconv.Itoa(*t.Port)
		}
		table.Append(t.ID, t.Name, t.Command, port, t.LaunchURL, strconv.FormatBool(t.Enabled))
	}
	table.Render()
	return 0
}

// openWritableCatalog opens the sqlite catalog for editing.
func openWritableCatalog(ctx context.Context, configPath string) (*catalog.SQLite, error) {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.Catalog.Driver != config.CatalogDriverSQLite {
		return nil, fmt.Errorf("%w: catalog.driver is %q; edit the tools list in %s instead",
			catalog.ErrReadOnly, cfg.Catalog.Driver, cfg.Path)
	}
	db, err := catalog.OpenSQLite(ctx, cfg.Catalog.Path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Seed(ctx, cfg.Tools); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("seed catalog: %w", err)
	}
	return db, nil
}

func runToolAdd(args []string) int {
	fs := flag.NewFlagSet("tool add", flag.ContinueOnError)
	configPath := fs.String("config", "", "Path to configuration file or directory")
	id := fs.String("id", "", "Tool id (required)")
	name := fs.String("name", "", "Display name (required)")
	command := fs.String("command", "", "Shell command that starts the tool")
	port := fs.Int("port", 0, "Port the tool listens on")
	launchURL := fs.String("url", "", "URL to open instead of localhost:<port>")
	dir := fs.String("dir", "", "Working directory for the command")
	description := fs.String("description", "", "Description")
	disabled := fs.Bool("disabled", false, "Add the tool disabled")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Flag error: %v\n", err)
		return 1
	}

	t := catalog.Tool{
		ID:          strings.TrimSpace(*id),
		Name:        strings.TrimSpace(*name),
		Command:     strings.TrimSpace(*command),
		WorkingDir:  *dir,
		LaunchURL:   strings.TrimSpace(*launchURL),
		Description: *description,
		Enabled:     !*disabled,
	}
	if t.ID == "" || t.Name == "" {
		fmt.Fprintln(os.Stderr, "--id and --name are required")
		return 1
	}
	if *port != 0 {
		if *port < 1 || *port > 65535 {
			fmt.Fprintf(os.Stderr, "--port must be between 1 and 65535, got %d\n", *port)
			return 1
		}
		p := *port
		t.Port = &p
	}
	if t.Command == "" && t.Port == nil && t.LaunchURL == "" {
		fmt.Fprintln(os.Stderr, "one of --command, --port or --url is required")
		return 1
	}

	ctx := context.Background()
	db, err := openWritableCatalog(ctx, *configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer db.Close()

	if err := db.Upsert(ctx, t); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to save tool: %v\n", err)
		return 1
	}
	fmt.Printf("Saved tool %s\n", t.ID)
	return 0
}

func runToolRemove(args []string) int {
	fs := flag.NewFlagSet("tool remove", flag.ContinueOnError)
	configPath := fs.String("config", "", "Path to configuration file or directory")
	if err := interleave(fs, args); err != nil {
		fmt.Fprintf(os.Stderr, "Flag error: %v\n", err)
		return 1
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Usage: toolhub tool remove <id> [--config PATH]")
		return 1
	}

	ctx := context.Background()
	db, err := openWritableCatalog(ctx, *configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer db.Close()

	removed, err := db.Delete(ctx, fs.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to remove tool: %v\n", err)
		return 1
	}
	if !removed {
		fmt.Fprintf(os.Stderr, "%v: %s\n", catalog.ErrToolNotFound, fs.Arg(0))
		return 1
	}
	fmt.Printf("Removed tool %s\n", fs.Arg(0))
	return 0
}

// --- config ---

func runConfigCheck(args []string) int {
	fs := flag.NewFlagSet("config check", flag.ContinueOnError)
	configPath := fs.String("config", "", "Path to configuration file or directory")
	jsonOut := fs.Bool("json", false, "Output as JSON")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Flag error: %v\n", err)
		return 1
	}

	type result struct {
		Valid     bool   `json:"valid"`
		Path      string `json:"path,omitempty"`
		Error     string `json:"error,omitempty"`
		Tools     int    `json:"tools"`
		Checksums string `json:"checksums"`
	}

	res := result{}
	cfg, err := loadConfig(*configPath)
	if err != nil {
		res.Error = err.Error()
	} else {
		res.Valid = true
		res.Path = cfg.Path
		res.Tools = len(cfg.Tools)
		res.Checksums = "verified"
		if _, err := config.LoadChecksums(filepath.Dir(cfg.Path)); errors.Is(err, config.ErrNoChecksums) {
			res.Checksums = "absent"
		}
	}

	if *jsonOut {
		printJSON(os.Stdout, res)
	} else if res.Valid {
		fmt.Printf("Configuration valid: %s\n", res.Path)
		fmt.Printf("  tools: %d\n", res.Tools)
		fmt.Printf("  checksums: %s\n", res.Checksums)
	} else {
		fmt.Fprintf(os.Stderr, "Configuration invalid: %s\n", res.Error)
	}
	if !res.Valid {
		return 1
	}
	return 0
}

func runConfigLock(args []string) int {
	fs := flag.NewFlagSet("config lock", flag.ContinueOnError)
	configPath := fs.String("config", "", "Path to configuration file or directory")
	dryRun := fs.Bool("dry-run", false, "Show hashes without writing the manifest")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Flag error: %v\n", err)
		return 1
	}

	path := *configPath
	if path == "" {
		discovered, err := config.DiscoverConfigPath()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to discover config: %v\n", err)
			return 1
		}
		path = discovered
	}
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		path = filepath.Join(path, "config.yaml")
	}

	// Refuse to bless a file that does not parse.
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read config: %v\n", err)
		return 1
	}
	if _, err := config.Parse(data); err != nil {
		fmt.Fprintf(os.Stderr, "Refusing to lock: %v\n", err)
		return 1
	}

	report, err := config.Lock(path, *dryRun)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Lock failed: %v\n", err)
		return 1
	}

	names := make([]string, 0, len(report.Files))
	for name := range report.Files {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Printf("%s  %s\n", report.Files[name], name)
	}
	if report.Written {
		fmt.Printf("Wrote %s\n", report.ChecksumPath)
	} else {
		fmt.Println("Dry run: manifest not written")
	}
	return 0
}

const redacted = "<redacted>"

func runConfigShow(args []string) int {
	fs := flag.NewFlagSet("config show", flag.ContinueOnError)
	configPath := fs.String("config", "", "Path to configuration file or directory")
	jsonOut := fs.Bool("json", false, "Output as JSON")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Flag error: %v\n", err)
		return 1
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}
	redactSecrets(cfg)

	if *jsonOut {
		return printJSON(os.Stdout, cfg)
	}
	out, err := yaml.Marshal(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to render config: %v\n", err)
		return 1
	}
	fmt.Print(string(out))
	return 0
}

func redactSecrets(cfg *config.Config) {
	if cfg.API.Auth.APIKey != "" {
		cfg.API.Auth.APIKey = redacted
	}
	for i := range cfg.API.Auth.Tokens {
		cfg.API.Auth.Tokens[i].Token = redacted
	}
}
