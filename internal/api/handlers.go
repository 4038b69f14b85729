package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mattjoyce/toolhub/internal/catalog"
	"github.com/mattjoyce/toolhub/internal/procstat"
	"github.com/mattjoyce/toolhub/internal/supervisor"
)

// handleHealthz handles GET /healthz (no auth).
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	tools, err := s.catalog.List(r.Context())
	if err != nil {
		s.logger.Error("failed to list tools", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to list tools")
		return
	}

	respondJSON(w, http.StatusOK, HealthzResponse{
		Status:           "ok",
		UptimeSeconds:    int64(time.Since(s.startedAt).Seconds()),
		TrackedProcesses: s.registry.Len(),
		ToolsLoaded:      len(tools),
	})
}

// handleLaunchTool handles POST /api/launch-tool.
func (s *Server) handleLaunchTool(w http.ResponseWriter, r *http.Request) {
	var req LaunchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	toolID := strings.TrimSpace(req.ToolID)
	if toolID == "" {
		s.writeError(w, http.StatusBadRequest, "tool_id is required")
		return
	}

	tool, err := catalog.Resolve(r.Context(), s.catalog, toolID)
	switch {
	case errors.Is(err, catalog.ErrToolNotFound):
		s.writeError(w, http.StatusNotFound, "Tool not found")
		return
	case errors.Is(err, catalog.ErrToolDisabled):
		s.writeError(w, http.StatusNotFound, "Tool is disabled")
		return
	case err != nil:
		s.logger.Error("catalog lookup failed", "tool_id", toolID, "error", err)
		s.writeError(w, http.StatusInternalServerError, "catalog lookup failed")
		return
	}

	res, err := s.launcher.Launch(r.Context(), supervisor.LaunchRequest{
		ToolID:       tool.ID,
		ToolName:     tool.Name,
		Command:      tool.Command,
		WorkingDir:   tool.WorkingDir,
		Port:         tool.Port,
		URL:          tool.LaunchURL,
		SuppressOpen: req.SuppressOpen,
	})
	if err != nil {
		s.writeLaunchError(w, err)
		return
	}

	resp := LaunchResponse{
		Success:    res.Success,
		Message:    res.Message,
		Command:    res.Command,
		ToolName:   res.ToolName,
		Port:       res.Port,
		Suppressed: res.Suppressed,
		LaunchID:   res.LaunchID,
	}
	if res.PID > 0 {
		pid := res.PID
		resp.PID = &pid
	}
	if res.URL != "" {
		u := res.URL
		resp.URL = &u
	}
	respondJSON(w, http.StatusOK, resp)
}

func (s *Server) writeLaunchError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, supervisor.ErrMissingLaunchTarget):
		s.writeError(w, http.StatusBadRequest, "Missing command and url/port")
	case errors.Is(err, supervisor.ErrShuttingDown):
		s.writeError(w, http.StatusServiceUnavailable, "toolhub is shutting down")
	case errors.Is(err, supervisor.ErrSpawnFailed), errors.Is(err, supervisor.ErrOpenFailed):
		s.writeError(w, http.StatusInternalServerError, err.Error())
	default:
		s.logger.Error("launch failed", "error", err)
		s.writeError(w, http.StatusInternalServerError, "launch failed")
	}
}

// handleStopTool handles POST /api/stop-tool.
func (s *Server) handleStopTool(w http.ResponseWriter, r *http.Request) {
	var req StopRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.PID == nil {
		s.writeError(w, http.StatusBadRequest, "PID is required")
		return
	}
	if !supervisor.ValidPID(*req.PID) {
		s.writeError(w, http.StatusBadRequest, "PID must be a positive integer")
		return
	}

	res, err := s.terminator.Terminate(*req.PID)
	switch {
	case errors.Is(err, supervisor.ErrInvalidProcessID):
		s.writeError(w, http.StatusBadRequest, "PID must be a positive integer")
		return
	case errors.Is(err, supervisor.ErrUnknownProcess):
		s.writeError(w, http.StatusNotFound, "process is not tracked")
		return
	case err != nil:
		s.logger.Error("terminate failed", "pid", *req.PID, "error", err)
		s.writeError(w, http.StatusInternalServerError, "terminate failed")
		return
	}

	respondJSON(w, http.StatusOK, StopResponse{Success: res.Success, Message: res.Message})
}

// handleRunningStatus handles GET /api/running-status.
func (s *Server) handleRunningStatus(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.registry.Snapshot())
}

// handleGetProcess handles GET /api/processes/{pid}.
func (s *Server) handleGetProcess(w http.ResponseWriter, r *http.Request) {
	pid, err := strconv.Atoi(chi.URLParam(r, "pid"))
	if err != nil || !supervisor.ValidPID(pid) {
		s.writeError(w, http.StatusBadRequest, "PID must be a positive integer")
		return
	}

	rec, ok := s.registry.Get(pid)
	if !ok {
		s.writeError(w, http.StatusNotFound, "process is not tracked")
		return
	}

	resp := ProcessResponse{Record: rec}
	stats, err := s.inspect(r.Context(), pid)
	switch {
	case err == nil:
		resp.Alive = stats.Running
		resp.Stats = &stats
	case errors.Is(err, procstat.ErrNotFound):
		// Tracked but gone: the registry is a cache.
	default:
		s.logger.Warn("failed to inspect process", "pid", pid, "error", err)
	}
	respondJSON(w, http.StatusOK, resp)
}

// handleListTools handles GET /api/tools.
func (s *Server) handleListTools(w http.ResponseWriter, r *http.Request) {
	tools, err := s.catalog.List(r.Context())
	if err != nil {
		s.logger.Error("failed to list tools", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to list tools")
		return
	}
	respondJSON(w, http.StatusOK, tools)
}

// handleOpenAPI handles GET /openapi.json.
func (s *Server) handleOpenAPI(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, buildOpenAPIDoc())
}

// respondJSON is a helper to write JSON responses
func respondJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error response
func (s *Server) writeError(w http.ResponseWriter, statusCode int, message string) {
	respondJSON(w, statusCode, ErrorResponse{Error: message})
}
