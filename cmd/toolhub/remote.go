package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/olekukonko/tablewriter"

	"github.com/mattjoyce/toolhub/internal/client"
	"github.com/mattjoyce/toolhub/internal/tui/watch"
)

const cliTimeout = 10 * time.Second

type remoteFlags struct {
	apiURL     *string
	apiKey     *string
	configPath *string
}

func addRemoteFlags(fs *flag.FlagSet) remoteFlags {
	return remoteFlags{
		apiURL:     fs.String("api-url", os.Getenv("TOOLHUB_API_URL"), "toolhub API URL (default from config api.listen)"),
		apiKey:     fs.String("api-key", os.Getenv("TOOLHUB_API_KEY"), "API bearer token (default from config api.auth.api_key)"),
		configPath: fs.String("config", "", "Path to configuration file or directory"),
	}
}

// client fills unset URL and key from the local config when one can be found.
func (f remoteFlags) client() *client.Client {
	url, key := strings.TrimSpace(*f.apiURL), strings.TrimSpace(*f.apiKey)
	if url == "" || key == "" {
		if cfg, err := loadConfig(*f.configPath); err == nil {
			if url == "" {
				url = listenURL(cfg.API.Listen)
			}
			if key == "" {
				key = cfg.API.Auth.APIKey
			}
		}
	}
	return client.New(url, key)
}

// listenURL turns a listen address into a dialable base URL.
func listenURL(listen string) string {
	host, port, err := net.SplitHostPort(listen)
	if err != nil {
		return client.DefaultURL
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}
	return "http://" + net.JoinHostPort(host, port)
}

func printJSON(w io.Writer, v any) int {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to render JSON: %v\n", err)
		return 1
	}
	fmt.Fprintln(w, string(data))
	return 0
}

func reportRemoteError(what string, err error) int {
	var apiErr *client.APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == 429 && apiErr.RetryAfter != "" {
		fmt.Fprintf(os.Stderr, "%s: rate limited, retry in %ss\n", what, apiErr.RetryAfter)
		return 1
	}
	fmt.Fprintf(os.Stderr, "%s: %v\n", what, err)
	return 1
}

func parsePIDArg(fs *flag.FlagSet, usage string) (int, bool) {
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, usage)
		return 0, false
	}
	pid, err := strconv.Atoi(fs.Arg(0))
	if err != nil || pid <= 0 {
		fmt.Fprintf(os.Stderr, "Invalid pid: %s\n", fs.Arg(0))
		return 0, false
	}
	return pid, true
}

// interleave lets flags follow positionals, e.g. `process stop 42 --api-key k`.
func interleave(fs *flag.FlagSet, args []string) error {
	var positionals []string
	for {
		if err := fs.Parse(args); err != nil {
			return err
		}
		if fs.NArg() == 0 {
			break
		}
		positionals = append(positionals, fs.Arg(0))
		args = fs.Args()[1:]
	}
	return fs.Parse(append([]string{"--"}, positionals...))
}

func runWatch(args []string) int {
	fs := flag.NewFlagSet("watch", flag.ContinueOnError)
	rf := addRemoteFlags(fs)
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Flag error: %v\n", err)
		return 1
	}

	m := watch.New(rf.client())
	if _, err := tea.NewProgram(m).Run(); err != nil {
		fmt.Fprintf(os.Stderr, "TUI error: %v\n", err)
		return 1
	}
	return 0
}

func runProcessList(args []string) int {
	fs := flag.NewFlagSet("process list", flag.ContinueOnError)
	rf := addRemoteFlags(fs)
	jsonOut := fs.Bool("json", false, "Output as JSON")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Flag error: %v\n", err)
		return 1
	}

	ctx, cancel := context.WithTimeout(context.Background(), cliTimeout)
	defer cancel()
	recs, err := rf.client().RunningStatus(ctx)
	if err != nil {
		return reportRemoteError("List processes", err)
	}

	if *jsonOut {
		return printJSON(os.Stdout, recs)
	}
	if len(recs) == 0 {
		fmt.Println("No tracked processes")
		return 0
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("PID", "Tool", "Port", "Started", "Launch ID")
	for _, rec := range recs {
		port := "-"
		if rec.Port != nil {
			port = strconv.Itoa(*rec.Port)
		}
		table.Append(
			strconv.Itoa(rec.PID),
			rec.ToolName,
			port,
			rec.StartTime.Local().Format(time.DateTime),
			rec.LaunchID,
		)
	}
	table.Render()
	fmt.Printf("\nTotal: %d\n", len(recs))
	return 0
}

func runProcessLaunch(args []string) int {
	fs := flag.NewFlagSet("process launch", flag.ContinueOnError)
	rf := addRemoteFlags(fs)
	noOpen := fs.Bool("no-open", false, "Do not open a browser for the tool")
	jsonOut := fs.Bool("json", false, "Output as JSON")
	if err := interleave(fs, args); err != nil {
		fmt.Fprintf(os.Stderr, "Flag error: %v\n", err)
		return 1
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Usage: toolhub process launch <tool_id> [--no-open] [--json]")
		return 1
	}

	ctx, cancel := context.WithTimeout(context.Background(), cliTimeout)
	defer cancel()
	res, err := rf.client().Launch(ctx, fs.Arg(0), *noOpen)
	if err != nil {
		return reportRemoteError("Launch failed", err)
	}

	if *jsonOut {
		return printJSON(os.Stdout, res)
	}
	fmt.Println(res.Message)
	if res.PID != nil {
		fmt.Printf("pid: %d\n", *res.PID)
	}
	if res.URL != nil {
		fmt.Printf("url: %s\n", *res.URL)
	}
	return 0
}

func runProcessStop(args []string) int {
	fs := flag.NewFlagSet("process stop", flag.ContinueOnError)
	rf := addRemoteFlags(fs)
	if err := interleave(fs, args); err != nil {
		fmt.Fprintf(os.Stderr, "Flag error: %v\n", err)
		return 1
	}
	pid, ok := parsePIDArg(fs, "Usage: toolhub process stop <pid>")
	if !ok {
		return 1
	}

	ctx, cancel := context.WithTimeout(context.Background(), cliTimeout)
	defer cancel()
	res, err := rf.client().Stop(ctx, pid)
	if err != nil {
		return reportRemoteError("Stop failed", err)
	}
	fmt.Println(res.Message)
	return 0
}

func runProcessInspect(args []string) int {
	fs := flag.NewFlagSet("process inspect", flag.ContinueOnError)
	rf := addRemoteFlags(fs)
	jsonOut := fs.Bool("json", false, "Output as JSON")
	if err := interleave(fs, args); err != nil {
		fmt.Fprintf(os.Stderr, "Flag error: %v\n", err)
		return 1
	}
	pid, ok := parsePIDArg(fs, "Usage: toolhub process inspect <pid> [--json]")
	if !ok {
		return 1
	}

	ctx, cancel := context.WithTimeout(context.Background(), cliTimeout)
	defer cancel()
	p, err := rf.client().Process(ctx, pid)
	if err != nil {
		return reportRemoteError("Inspect failed", err)
	}

	if *jsonOut {
		return printJSON(os.Stdout, p)
	}
	fmt.Printf("pid:        %d\n", p.PID)
	fmt.Printf("tool:       %s (%s)\n", p.ToolName, p.ToolID)
	if p.Port != nil {
		fmt.Printf("port:       %d\n", *p.Port)
	}
	fmt.Printf("started:    %s\n", p.StartTime.Local().Format(time.DateTime))
	fmt.Printf("alive:      %t\n", p.Alive)
	if s := p.Stats; s != nil {
		fmt.Printf("name:       %s\n", s.Name)
		fmt.Printf("status:     %s\n", strings.Join(s.Status, ","))
		fmt.Printf("cpu:        %.1f%%\n", s.CPUPercent)
		fmt.Printf("rss:        %d bytes\n", s.RSSBytes)
		fmt.Printf("threads:    %d\n", s.NumThreads)
	}
	return 0
}
