package main

import (
	"encoding/json"
	"flag"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mattjoyce/toolhub/internal/lock"
	"github.com/mattjoyce/toolhub/internal/registry"
)

func captureOutputWithExitCode(t *testing.T, run func() int) (int, string, string) {
	t.Helper()

	oldStdout := os.Stdout
	oldStderr := os.Stderr

	stdoutR, stdoutW, err := os.Pipe()
	if err != nil {
		t.Fatalf("os.Pipe stdout failed: %v", err)
	}
	stderrR, stderrW, err := os.Pipe()
	if err != nil {
		t.Fatalf("os.Pipe stderr failed: %v", err)
	}

	os.Stdout = stdoutW
	os.Stderr = stderrW

	code := run()

	_ = stdoutW.Close()
	_ = stderrW.Close()
	os.Stdout = oldStdout
	os.Stderr = oldStderr

	stdoutBytes, _ := io.ReadAll(stdoutR)
	stderrBytes, _ := io.ReadAll(stderrR)

	_ = stdoutR.Close()
	_ = stderrR.Close()

	return code, string(stdoutBytes), string(stderrBytes)
}

func captureCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	return captureOutputWithExitCode(t, func() int { return runCLI(args) })
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

const offlineConfig = `
service:
  lock_path: ./toolhub.lock
api:
  enabled: false
tools:
  - id: grafana
    name: Grafana
    command: grafana-server
    port: 3000
`

const sqliteConfig = `
service:
  lock_path: ./toolhub.lock
api:
  enabled: false
catalog:
  driver: sqlite
  path: ./catalog.db
tools:
  - id: grafana
    name: Grafana
    command: grafana-server
    port: 3000
`

func TestHelp(t *testing.T) {
	code, stdout, _ := captureCLI(t, "help")
	if code != 0 {
		t.Fatalf("exit code = %d, want 0", code)
	}
	for _, want := range []string{"system start", "process launch", "tool add", "config lock"} {
		if !strings.Contains(stdout, want) {
			t.Errorf("usage missing %q", want)
		}
	}
}

func TestNoArgsPrintsUsageAndFails(t *testing.T) {
	code, stdout, _ := captureCLI(t)
	if code != 1 {
		t.Fatalf("exit code = %d, want 1", code)
	}
	if !strings.Contains(stdout, "Usage:") {
		t.Fatalf("stdout = %q, want usage", stdout)
	}
}

func TestUnknownCommand(t *testing.T) {
	code, _, stderr := captureCLI(t, "frobnicate")
	if code != 1 {
		t.Fatalf("exit code = %d, want 1", code)
	}
	if !strings.Contains(stderr, "Unknown command: frobnicate") {
		t.Fatalf("stderr = %q", stderr)
	}
}

func TestUnknownNounAction(t *testing.T) {
	code, _, stderr := captureCLI(t, "process", "explode")
	if code != 1 {
		t.Fatalf("exit code = %d, want 1", code)
	}
	if !strings.Contains(stderr, "Unknown process action: explode") {
		t.Fatalf("stderr = %q", stderr)
	}
}

func TestNounHelp(t *testing.T) {
	code, stdout, _ := captureCLI(t, "tool", "help")
	if code != 0 {
		t.Fatalf("exit code = %d, want 0", code)
	}
	if !strings.Contains(stdout, "Usage: toolhub tool <action>") || !strings.Contains(stdout, "remove") {
		t.Fatalf("stdout = %q", stdout)
	}

	code, stdout, _ = captureCLI(t, "process", "stop", "--help")
	if code != 0 {
		t.Fatalf("exit code = %d, want 0", code)
	}
	if !strings.Contains(stdout, "Usage: toolhub process stop <pid>") {
		t.Fatalf("stdout = %q", stdout)
	}
}

func TestVersionJSON(t *testing.T) {
	code, stdout, _ := captureCLI(t, "version", "--json")
	if code != 0 {
		t.Fatalf("exit code = %d, want 0", code)
	}
	var info versionInfo
	if err := json.Unmarshal([]byte(stdout), &info); err != nil {
		t.Fatalf("decode version: %v (%q)", err, stdout)
	}
	if info.Version == "" || info.Commit == "" || info.BuildTime == "" {
		t.Fatalf("incomplete version info: %+v", info)
	}
}

func TestShortenCommit(t *testing.T) {
	if got := shortenCommit("0123456789abcdef"); got != "0123456789ab" {
		t.Fatalf("shortenCommit = %q", got)
	}
	if got := shortenCommit("abc"); got != "abc" {
		t.Fatalf("shortenCommit = %q", got)
	}
}

func TestConfigCheckValid(t *testing.T) {
	path := writeConfig(t, offlineConfig)

	code, stdout, stderr := captureCLI(t, "config", "check", "--config", path)
	if code != 0 {
		t.Fatalf("exit code = %d, stderr = %q", code, stderr)
	}
	if !strings.Contains(stdout, "Configuration valid") {
		t.Fatalf("stdout = %q", stdout)
	}
	if !strings.Contains(stdout, "checksums: absent") {
		t.Fatalf("stdout = %q, want absent checksums", stdout)
	}
}

func TestConfigCheckInvalid(t *testing.T) {
	path := writeConfig(t, "service:\n  log_level: loud\n")

	code, _, stderr := captureCLI(t, "config", "check", "--config", path)
	if code != 1 {
		t.Fatalf("exit code = %d, want 1", code)
	}
	if !strings.Contains(stderr, "log_level") {
		t.Fatalf("stderr = %q", stderr)
	}
}

func TestConfigCheckJSONUnknownField(t *testing.T) {
	path := writeConfig(t, "bogus: true\n")

	code, stdout, _ := captureCLI(t, "config", "check", "--config", path, "--json")
	if code != 1 {
		t.Fatalf("exit code = %d, want 1", code)
	}
	var res struct {
		Valid bool   `json:"valid"`
		Error string `json:"error"`
	}
	if err := json.Unmarshal([]byte(stdout), &res); err != nil {
		t.Fatalf("decode: %v (%q)", err, stdout)
	}
	if res.Valid || res.Error == "" {
		t.Fatalf("result = %+v", res)
	}
}

func TestConfigLockThenTamper(t *testing.T) {
	path := writeConfig(t, offlineConfig)

	code, stdout, _ := captureCLI(t, "config", "lock", "--config", path, "--dry-run")
	if code != 0 {
		t.Fatalf("dry run exit code = %d", code)
	}
	if !strings.Contains(stdout, "Dry run") {
		t.Fatalf("stdout = %q", stdout)
	}
	if _, err := os.Stat(filepath.Join(filepath.Dir(path), ".checksums")); !os.IsNotExist(err) {
		t.Fatalf("dry run wrote a manifest: %v", err)
	}

	code, stdout, stderr := captureCLI(t, "config", "lock", "--config", filepath.Dir(path))
	if code != 0 {
		t.Fatalf("lock exit code = %d, stderr = %q", code, stderr)
	}
	if !strings.Contains(stdout, "config.yaml") || !strings.Contains(stdout, "Wrote") {
		t.Fatalf("stdout = %q", stdout)
	}

	code, stdout, _ = captureCLI(t, "config", "check", "--config", path)
	if code != 0 || !strings.Contains(stdout, "checksums: verified") {
		t.Fatalf("check after lock: code=%d stdout=%q", code, stdout)
	}

	if err := os.WriteFile(path, []byte(offlineConfig+"\n# edited\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	code, _, stderr = captureCLI(t, "config", "check", "--config", path)
	if code != 1 || !strings.Contains(stderr, "hash mismatch") {
		t.Fatalf("check after tamper: code=%d stderr=%q", code, stderr)
	}
}

func TestConfigLockRefusesInvalidConfig(t *testing.T) {
	path := writeConfig(t, "catalog:\n  driver: redis\n")

	code, _, stderr := captureCLI(t, "config", "lock", "--config", path)
	if code != 1 || !strings.Contains(stderr, "Refusing to lock") {
		t.Fatalf("code=%d stderr=%q", code, stderr)
	}
}

func TestConfigShowRedactsSecrets(t *testing.T) {
	path := writeConfig(t, `
api:
  auth:
    api_key: super-secret
    tokens:
      - token: scoped-secret
        scopes: ["processes:ro"]
`)

	code, stdout, stderr := captureCLI(t, "config", "show", "--config", path)
	if code != 0 {
		t.Fatalf("exit code = %d, stderr = %q", code, stderr)
	}
	if strings.Contains(stdout, "super-secret") || strings.Contains(stdout, "scoped-secret") {
		t.Fatalf("secrets leaked: %q", stdout)
	}
	if !strings.Contains(stdout, redacted) || !strings.Contains(stdout, "processes:ro") {
		t.Fatalf("stdout = %q", stdout)
	}
}

func TestToolListFromConfig(t *testing.T) {
	path := writeConfig(t, offlineConfig)

	code, stdout, stderr := captureCLI(t, "tool", "list", "--config", path)
	if code != 0 {
		t.Fatalf("exit code = %d, stderr = %q", code, stderr)
	}
	if !strings.Contains(stdout, "grafana") || !strings.Contains(stdout, "3000") {
		t.Fatalf("stdout = %q", stdout)
	}
}

func TestToolAddRequiresSQLite(t *testing.T) {
	path := writeConfig(t, offlineConfig)

	code, _, stderr := captureCLI(t, "tool", "add", "--config", path, "--id", "docs", "--name", "Docs", "--url", "https://example.com")
	if code != 1 {
		t.Fatalf("exit code = %d, want 1", code)
	}
	if !strings.Contains(stderr, "read-only") {
		t.Fatalf("stderr = %q", stderr)
	}
}

func TestToolAddListRemoveSQLite(t *testing.T) {
	path := writeConfig(t, sqliteConfig)

	code, _, stderr := captureCLI(t, "tool", "add", "--config", path,
		"--id", "docs", "--name", "Docs", "--url", "https://example.com/docs", "--description", "Reference")
	if code != 0 {
		t.Fatalf("add exit code = %d, stderr = %q", code, stderr)
	}

	code, stdout, _ := captureCLI(t, "tool", "list", "--config", path, "--json")
	if code != 0 {
		t.Fatalf("list exit code = %d", code)
	}
	var tools []struct {
		ID      string `json:"id"`
		Enabled bool   `json:"enabled"`
	}
	if err := json.Unmarshal([]byte(stdout), &tools); err != nil {
		t.Fatalf("decode tools: %v (%q)", err, stdout)
	}
	ids := make([]string, 0, len(tools))
	for _, tool := range tools {
		ids = append(ids, tool.ID)
	}
	if strings.Join(ids, ",") != "docs,grafana" {
		t.Fatalf("ids = %v, want seeded grafana plus docs", ids)
	}

	code, stdout, _ = captureCLI(t, "tool", "remove", "docs", "--config", path)
	if code != 0 || !strings.Contains(stdout, "Removed tool docs") {
		t.Fatalf("remove: code=%d stdout=%q", code, stdout)
	}

	code, _, stderr = captureCLI(t, "tool", "remove", "docs", "--config", path)
	if code != 1 || !strings.Contains(stderr, "tool not found") {
		t.Fatalf("second remove: code=%d stderr=%q", code, stderr)
	}
}

func TestToolAddValidation(t *testing.T) {
	path := writeConfig(t, sqliteConfig)

	cases := []struct {
		name string
		args []string
		want string
	}{
		{"missing id", []string{"--name", "X", "--port", "1"}, "--id and --name are required"},
		{"bad port", []string{"--id", "x", "--name", "X", "--port", "70000"}, "--port must be between"},
		{"no target", []string{"--id", "x", "--name", "X"}, "one of --command, --port or --url"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			args := append([]string{"tool", "add", "--config", path}, tc.args...)
			code, _, stderr := captureCLI(t, args...)
			if code != 1 || !strings.Contains(stderr, tc.want) {
				t.Fatalf("code=%d stderr=%q, want %q", code, stderr, tc.want)
			}
		})
	}
}

func TestSystemStatusWithActiveInstance(t *testing.T) {
	path := writeConfig(t, offlineConfig)
	lk, err := lock.AcquirePIDLock(filepath.Join(filepath.Dir(path), "toolhub.lock"))
	if err != nil {
		t.Fatalf("acquire lock: %v", err)
	}
	defer lk.Release()

	code, stdout, stderr := captureCLI(t, "system", "status", "--config", path, "--json")
	if code != 0 {
		t.Fatalf("exit code = %d, stdout = %q, stderr = %q", code, stdout, stderr)
	}
	var report statusReport
	if err := json.Unmarshal([]byte(stdout), &report); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if !report.Healthy {
		t.Fatalf("report unhealthy: %+v", report)
	}
	checks := map[string]statusCheck{}
	for _, c := range report.Checks {
		checks[c.Name] = c
	}
	if got := checks["instance"].ActivePID; got != os.Getpid() {
		t.Fatalf("active_pid = %d, want %d", got, os.Getpid())
	}
	if checks["api"].Detail != "disabled" {
		t.Fatalf("api check = %+v", checks["api"])
	}
	if !strings.Contains(checks["catalog"].Detail, "1 tools") {
		t.Fatalf("catalog check = %+v", checks["catalog"])
	}
}

func TestSystemStatusNotRunning(t *testing.T) {
	path := writeConfig(t, offlineConfig)

	code, stdout, _ := captureCLI(t, "system", "status", "--config", path)
	if code != 1 {
		t.Fatalf("exit code = %d, want 1", code)
	}
	if !strings.Contains(stdout, "instance: FAIL (not running)") {
		t.Fatalf("stdout = %q", stdout)
	}
	if !strings.Contains(stdout, "config_load: OK") {
		t.Fatalf("stdout = %q", stdout)
	}
}

func TestSystemStatusBadConfig(t *testing.T) {
	code, stdout, _ := captureCLI(t, "system", "status", "--config", filepath.Join(t.TempDir(), "missing.yaml"))
	if code != 1 {
		t.Fatalf("exit code = %d, want 1", code)
	}
	if !strings.Contains(stdout, "config_load: FAIL") || !strings.Contains(stdout, "skipped") {
		t.Fatalf("stdout = %q", stdout)
	}
}

func TestProcessListAgainstServer(t *testing.T) {
	port := 3000
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer k" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"unauthorized"}`))
			return
		}
		if r.URL.Path != "/api/running-status" {
			http.NotFound(w, r)
			return
		}
		_ = json.NewEncoder(w).Encode([]registry.Record{{
			PID: 4242, ToolID: "grafana", ToolName: "Grafana", Port: &port,
			StartTime: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC), LaunchID: "abc",
		}})
	}))
	defer srv.Close()

	code, stdout, stderr := captureCLI(t, "process", "list", "--api-url", srv.URL, "--api-key", "k")
	if code != 0 {
		t.Fatalf("exit code = %d, stderr = %q", code, stderr)
	}
	for _, want := range []string{"4242", "Grafana", "3000", "Total: 1"} {
		if !strings.Contains(stdout, want) {
			t.Errorf("stdout missing %q: %q", want, stdout)
		}
	}

	code, _, stderr = captureCLI(t, "process", "list", "--api-url", srv.URL, "--api-key", "wrong")
	if code != 1 || !strings.Contains(stderr, "List processes") {
		t.Fatalf("bad key: code=%d stderr=%q", code, stderr)
	}
}

func TestProcessStopRateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "3")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":"rate limit exceeded"}`))
	}))
	defer srv.Close()

	code, _, stderr := captureCLI(t, "process", "stop", "12", "--api-url", srv.URL, "--api-key", "k")
	if code != 1 || !strings.Contains(stderr, "retry in 3s") {
		t.Fatalf("code=%d stderr=%q", code, stderr)
	}
}

func TestProcessStopBadPID(t *testing.T) {
	code, _, stderr := captureCLI(t, "process", "stop", "abc", "--api-url", "http://127.0.0.1:1", "--api-key", "k")
	if code != 1 || !strings.Contains(stderr, "Invalid pid: abc") {
		t.Fatalf("code=%d stderr=%q", code, stderr)
	}
}

func TestListenURL(t *testing.T) {
	cases := map[string]string{
		"127.0.0.1:8765": "http://127.0.0.1:8765",
		"0.0.0.0:9000":   "http://127.0.0.1:9000",
		":9001":          "http://127.0.0.1:9001",
		"[::]:9002":      "http://127.0.0.1:9002",
		"localhost:80":   "http://localhost:80",
		"garbage":        "http://127.0.0.1:8765",
	}
	for in, want := range cases {
		if got := listenURL(in); got != want {
			t.Errorf("listenURL(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestInterleaveAllowsTrailingFlags(t *testing.T) {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	key := fs.String("api-key", "", "")
	noOpen := fs.Bool("no-open", false, "")

	if err := interleave(fs, []string{"grafana", "--api-key", "k", "--no-open"}); err != nil {
		t.Fatalf("interleave: %v", err)
	}
	if fs.NArg() != 1 || fs.Arg(0) != "grafana" {
		t.Fatalf("args = %v", fs.Args())
	}
	if *key != "k" || !*noOpen {
		t.Fatalf("key=%q noOpen=%v", *key, *noOpen)
	}
}
