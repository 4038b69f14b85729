package api

import (
	"github.com/mattjoyce/toolhub/internal/procstat"
	"github.com/mattjoyce/toolhub/internal/registry"
)

// LaunchRequest is the JSON body for POST /api/launch-tool
type LaunchRequest struct {
	ToolID       string `json:"tool_id"`
	SuppressOpen bool   `json:"suppress_open"`
}

// LaunchResponse is returned on a successful launch or open.
type LaunchResponse struct {
	Success    bool    `json:"success"`
	Message    string  `json:"message"`
	Command    string  `json:"command,omitempty"`
	ToolName   string  `json:"tool_name"`
	PID        *int    `json:"pid,omitempty"`
	Port       *int    `json:"port"`
	Suppressed bool    `json:"suppressed"`
	URL        *string `json:"url"`
	LaunchID   string  `json:"launch_id"`
}

// StopRequest is the JSON body for POST /api/stop-tool
type StopRequest struct {
	PID *int `json:"pid"`
}

type StopResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// ProcessResponse is returned by GET /api/processes/{pid}
type ProcessResponse struct {
	registry.Record
	Alive bool            `json:"alive"`
	Stats *procstat.Stats `json:"stats,omitempty"`
}

// ErrorResponse is returned on errors
type ErrorResponse struct {
	Error string `json:"error"`
}

// HealthzResponse is returned by GET /healthz.
type HealthzResponse struct {
	Status           string `json:"status"`
	UptimeSeconds    int64  `json:"uptime_seconds"`
	TrackedProcesses int    `json:"tracked_processes"`
	ToolsLoaded      int    `json:"tools_loaded"`
}
