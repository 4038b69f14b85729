// Package catalog resolves tool ids to launchable definitions. Tools come
// either from the config file or from a SQLite table that the CLI edits.
package catalog

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/mattjoyce/toolhub/internal/config"
)

var (
	ErrToolNotFound = errors.New("tool not found")
	ErrToolDisabled = errors.New("tool is disabled")
	ErrReadOnly     = errors.New("catalog is read-only")
)

type Tool struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Command     string `json:"command,omitempty"`
	WorkingDir  string `json:"working_dir,omitempty"`
	Port        *int   `json:"port"`
	LaunchURL   string `json:"launch_url,omitempty"`
	Description string `json:"description,omitempty"`
	Enabled     bool   `json:"enabled"`
}

// Store is the read side used by the API.
type Store interface {
	Get(ctx context.Context, id string) (Tool, error)
	List(ctx context.Context) ([]Tool, error)
}

// Writer is implemented by stores that can be edited.
type Writer interface {
	Upsert(ctx context.Context, t Tool) error
	Delete(ctx context.Context, id string) (bool, error)
}

// Resolve returns an enabled tool or ErrToolNotFound / ErrToolDisabled.
func Resolve(ctx context.Context, s Store, id string) (Tool, error) {
	t, err := s.Get(ctx, strings.TrimSpace(id))
	if err != nil {
		return Tool{}, err
	}
	if !t.Enabled {
		return Tool{}, ErrToolDisabled
	}
	return t, nil
}

// Static serves the tools list from the config file.
type Static struct {
	tools map[string]Tool
}

func NewStatic(defs []config.ToolConfig) *Static {
	s := &Static{tools: make(map[string]Tool, len(defs))}
	for _, d := range defs {
		s.tools[d.ID] = FromConfig(d)
	}
	return s
}

// FromConfig converts a config entry to a Tool.
func FromConfig(d config.ToolConfig) Tool {
	t := Tool{
		ID:          d.ID,
		Name:        d.Name,
		Command:     d.Command,
		WorkingDir:  d.WorkingDir,
		LaunchURL:   d.LaunchURL,
		Description: d.Description,
		Enabled:     d.IsEnabled(),
	}
	if d.Port != nil {
		p := *d.Port
		t.Port = &p
	}
	return t
}

func (s *Static) Get(_ context.Context, id string) (Tool, error) {
	t, ok := s.tools[id]
	if !ok {
		return Tool{}, ErrToolNotFound
	}
	return t, nil
}

func (s *Static) List(context.Context) ([]Tool, error) {
	out := make([]Tool, 0, len(s.tools))
	for _, t := range s.tools {
		out = append(out, t)
	}
	sortTools(out)
	return out, nil
}

func sortTools(ts []Tool) {
	sort.Slice(ts, func(i, j int) bool {
		if ts[i].Name != ts[j].Name {
			return ts[i].Name < ts[j].Name
		}
		return ts[i].ID < ts[j].ID
	})
}
