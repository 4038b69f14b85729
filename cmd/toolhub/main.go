package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"runtime/debug"
	"strings"
	"time"
)

var (
	version   = "0.1.0-dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

func main() {
	os.Exit(runCLI(os.Args[1:]))
}

func runCLI(cliArgs []string) int {
	if len(cliArgs) < 1 {
		printUsage()
		return 1
	}

	cmd := cliArgs[0]
	args := cliArgs[1:]

	switch cmd {
	case "system":
		return runSystemNoun(args)
	case "process":
		return runProcessNoun(args)
	case "tool":
		return runToolNoun(args)
	case "config":
		return runConfigNoun(args)

	// Root aliases.
	case "start":
		return runStart(args)
	case "version", "--version":
		return runVersion(args)
	case "help", "--help", "-h":
		printUsage()
		return 0

	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		printUsage()
		return 1
	}
}

type versionInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"build_time"`
}

func runVersion(args []string) int {
	fs := flag.NewFlagSet("version", flag.ContinueOnError)
	jsonOut := fs.Bool("json", false, "Output version metadata as JSON")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Flag error: %v\n", err)
		return 1
	}
	if fs.NArg() > 0 {
		fmt.Fprintln(os.Stderr, "Usage: toolhub version [--json]")
		return 1
	}

	info := currentVersionInfo()

	if *jsonOut {
		data, err := json.MarshalIndent(info, "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to render version JSON: %v\n", err)
			return 1
		}
		fmt.Println(string(data))
		return 0
	}

	fmt.Printf("toolhub %s\n", info.Version)
	fmt.Printf("commit: %s\n", info.Commit)
	fmt.Printf("built_at: %s\n", info.BuildTime)
	return 0
}

func currentVersionInfo() versionInfo {
	info := versionInfo{
		Version:   strings.TrimSpace(version),
		Commit:    "unknown",
		BuildTime: "unknown",
	}
	if info.Version == "" {
		info.Version = "0.0.0-dev"
	}

	commit := strings.TrimSpace(gitCommit)
	if commit == "" || commit == "unknown" {
		commit = strings.TrimSpace(readBuildSetting("vcs.revision"))
	}
	if commit != "" {
		info.Commit = shortenCommit(commit)
	}

	built := strings.TrimSpace(buildDate)
	if built == "" || built == "unknown" {
		built = strings.TrimSpace(readBuildSetting("vcs.time"))
	}
	if t, err := time.Parse(time.RFC3339Nano, built); err == nil {
		info.BuildTime = t.UTC().Format(time.RFC3339)
	}
	return info
}

func shortenCommit(commit string) string {
	if len(commit) <= 12 {
		return commit
	}
	return commit[:12]
}

func readBuildSetting(key string) string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}
	for _, setting := range info.Settings {
		if setting.Key == key {
			return setting.Value
		}
	}
	return ""
}

func printUsage() {
	fmt.Print(`toolhub - launch and supervise local developer tools

Usage:
  toolhub <noun> <action> [flags]

Resources (Nouns):
  system    Service lifecycle and health
  process   Processes launched by the running service
  tool      The tool catalog
  config    Configuration and integrity

System Commands:
  system start            Run the service in the foreground
  system status           Check config, catalog, instance lock and API
  system watch            Live TUI of processes, tools and events

Process Commands:
  process list            Show tracked processes
  process launch <tool>   Launch a catalog tool
  process stop <pid>      Force-kill a process and forget it
  process inspect <pid>   Show a tracked process with live OS stats

Tool Commands:
  tool list               Show the tool catalog
  tool add                Add or update a tool (sqlite catalog)
  tool remove <id>        Remove a tool (sqlite catalog)

Config Commands:
  config check            Validate syntax, values and integrity
  config lock             Write the BLAKE3 checksum manifest
  config show             Print the resolved configuration

General:
  version                 Show version information
  help                    Show this help message

Use 'toolhub <noun> help' for action flags.
`)
}

// --- NOUN DISPATCHERS ---

type action struct {
	run  func([]string) int
	help string
}

func dispatch(noun string, args []string, actions map[string]action, order []string) int {
	if len(args) < 1 {
		printNounHelp(os.Stderr, noun, actions, order)
		return 1
	}
	if isHelpToken(args[0]) {
		printNounHelp(os.Stdout, noun, actions, order)
		return 0
	}

	name, actionArgs := args[0], args[1:]
	a, ok := actions[name]
	if !ok {
		fmt.Fprintf(os.Stderr, "Unknown %s action: %s\n", noun, name)
		return 1
	}
	if hasHelpFlag(actionArgs) {
		fmt.Println(a.help)
		return 0
	}
	return a.run(actionArgs)
}

func printNounHelp(w *os.File, noun string, actions map[string]action, order []string) {
	fmt.Fprintf(w, "Usage: toolhub %s <action> [flags]\n\nActions:\n", noun)
	for _, name := range order {
		first, _, _ := strings.Cut(actions[name].help, "\n")
		fmt.Fprintf(w, "  %-10s %s\n", name, first)
	}
}

func runSystemNoun(args []string) int {
	return dispatch("system", args, map[string]action{
		"start": {runStart, "Usage: toolhub system start [--config PATH]\nRun the service in the foreground until SIGINT/SIGTERM."},
		"status": {runSystemStatus, "Usage: toolhub system status [--config PATH] [--json]\n" +
			"Check config, catalog, instance lock and API health."},
		"watch": {runWatch, "Usage: toolhub system watch [--api-url URL] [--api-key KEY] [--config PATH]\n" +
			"Keys: q quit, r refresh, tab switch pane, x stop process, enter launch tool."},
	}, []string{"start", "status", "watch"})
}

func runProcessNoun(args []string) int {
	return dispatch("process", args, map[string]action{
		"list":    {runProcessList, "Usage: toolhub process list [--api-url URL] [--api-key KEY] [--json]\nShow tracked processes."},
		"launch":  {runProcessLaunch, "Usage: toolhub process launch <tool_id> [--no-open] [--json]\nLaunch a catalog tool."},
		"stop":    {runProcessStop, "Usage: toolhub process stop <pid>\nForce-kill a process and forget it."},
		"inspect": {runProcessInspect, "Usage: toolhub process inspect <pid> [--json]\nShow a tracked process with live OS stats."},
	}, []string{"list", "launch", "stop", "inspect"})
}

func runToolNoun(args []string) int {
	return dispatch("tool", args, map[string]action{
		"list": {runToolList, "Usage: toolhub tool list [--config PATH] [--json]\nShow the tool catalog."},
		"add": {runToolAdd, "Usage: toolhub tool add --id ID --name NAME [--command CMD] [--port N] [--url URL] [--dir DIR] [--description TEXT] [--disabled]\n" +
			"Add or update a tool. Requires catalog.driver: sqlite."},
		"remove": {runToolRemove, "Usage: toolhub tool remove <id> [--config PATH]\nRemove a tool. Requires catalog.driver: sqlite."},
	}, []string{"list", "add", "remove"})
}

func runConfigNoun(args []string) int {
	return dispatch("config", args, map[string]action{
		"check": {runConfigCheck, "Usage: toolhub config check [--config PATH] [--json]\nValidate syntax, values and integrity."},
		"lock":  {runConfigLock, "Usage: toolhub config lock [--config PATH] [--dry-run]\nWrite the BLAKE3 checksum manifest beside the config file."},
		"show":  {runConfigShow, "Usage: toolhub config show [--config PATH] [--json]\nPrint the resolved configuration with secrets redacted."},
	}, []string{"check", "lock", "show"})
}

func isHelpToken(token string) bool {
	return token == "help" || token == "--help" || token == "-h"
}

func hasHelpFlag(args []string) bool {
	for _, arg := range args {
		if arg == "--help" || arg == "-h" {
			return true
		}
	}
	return false
}
