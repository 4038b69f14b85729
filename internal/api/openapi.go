package api

import "github.com/mattjoyce/toolhub/internal/auth"

type route struct {
	id      string
	method  string
	path    string
	summary string
	scope   string
	body    map[string]any
	codes   map[string]string
}

var apiRoutes = []route{
	{
		id: "launchTool", method: "post", path: "/api/launch-tool", scope: auth.ScopeToolsLaunch,
		summary: "Launch a catalog tool, or open its URL when it has no command",
		body: object(map[string]any{
			"tool_id":       map[string]any{"type": "string"},
			"suppress_open": map[string]any{"type": "boolean"},
		}, "tool_id"),
		codes: map[string]string{
			"200": "Launched or opened",
			"400": "Malformed request or tool has no command and no url/port",
			"404": "Unknown or disabled tool",
			"429": "Launch rate exceeded",
			"500": "Spawn or open failed",
		},
	},
	{
		id: "stopTool", method: "post", path: "/api/stop-tool", scope: auth.ScopeProcessWrite,
		summary: "Force-kill a process and forget it",
		body:    object(map[string]any{"pid": map[string]any{"type": "integer", "minimum": 1}}, "pid"),
		codes: map[string]string{
			"200": "Termination signal sent",
			"400": "Missing or invalid pid",
			"404": "Untracked pid (only when untracked terminate is disabled)",
		},
	},
	{
		id: "runningStatus", method: "get", path: "/api/running-status", scope: auth.ScopeProcessRead,
		summary: "List tracked processes",
		codes:   map[string]string{"200": "Tracked processes"},
	},
	{
		id: "getProcess", method: "get", path: "/api/processes/{pid}", scope: auth.ScopeProcessRead,
		summary: "A tracked process with live OS stats",
		codes:   map[string]string{"200": "Process", "400": "Invalid pid", "404": "Not tracked"},
	},
	{
		id: "listTools", method: "get", path: "/api/tools", scope: auth.ScopeToolsRead,
		summary: "List the tool catalog",
		codes:   map[string]string{"200": "Tools"},
	},
	{
		id: "streamEvents", method: "get", path: "/events", scope: auth.ScopeEventsRead,
		summary: "Server-sent lifecycle events",
		codes:   map[string]string{"200": "text/event-stream"},
	},
}

func object(props map[string]any, required ...string) map[string]any {
	return map[string]any{"type": "object", "properties": props, "required": required}
}

// buildOpenAPIDoc returns an OpenAPI 3.1 document for the authenticated routes.
func buildOpenAPIDoc() map[string]any {
	paths := map[string]any{}
	for _, rt := range apiRoutes {
		responses := map[string]any{
			"401": map[string]any{"description": "Missing or invalid bearer token"},
			"403": map[string]any{"description": "Insufficient scope"},
		}
		for code, desc := range rt.codes {
			responses[code] = map[string]any{"description": desc}
		}

		operation := map[string]any{
			"summary":     rt.summary,
			"responses":   responses,
			"security":    []any{map[string]any{"BearerAuth": []string{}}},
			"x-scope":     rt.scope,
			"operationId": rt.id,
		}
		if rt.body != nil {
			operation["requestBody"] = map[string]any{
				"required": true,
				"content": map[string]any{
					"application/json": map[string]any{"schema": rt.body},
				},
			}
		}

		item, _ := paths[rt.path].(map[string]any)
		if item == nil {
			item = map[string]any{}
			paths[rt.path] = item
		}
		item[rt.method] = operation
	}

	return map[string]any{
		"openapi": "3.1.0",
		"info": map[string]any{
			"title":   "toolhub",
			"version": "1.0",
		},
		"paths": paths,
		"components": map[string]any{
			"securitySchemes": map[string]any{
				"BearerAuth": map[string]any{
					"type":   "http",
					"scheme": "bearer",
				},
			},
		},
	}
}
