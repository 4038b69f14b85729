package config

import "time"

// Config represents the complete toolhub configuration.
type Config struct {
	Service    ServiceConfig    `yaml:"service"`
	API        APIConfig        `yaml:"api"`
	Supervisor SupervisorConfig `yaml:"supervisor"`
	Catalog    CatalogConfig    `yaml:"catalog"`
	Tools      []ToolConfig     `yaml:"tools,omitempty"`

	// Path is the absolute file the config was loaded from.
	Path string `yaml:"-"`
}

type ServiceConfig struct {
	Name      string `yaml:"name"`
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
	LockPath  string `yaml:"lock_path"`
}

// APIConfig defines HTTP API server settings.
type APIConfig struct {
	Enabled    bool          `yaml:"enabled"`
	Listen     string        `yaml:"listen"`
	Auth       APIAuthConfig `yaml:"auth"`
	LaunchRate RateConfig    `yaml:"launch_rate"`
}

// APIAuthConfig defines API authentication settings.
type APIAuthConfig struct {
	// APIKey is a single bearer token with full access.
	// Prefer Tokens for scoped access.
	APIKey string     `yaml:"api_key"`
	Tokens []APIToken `yaml:"tokens,omitempty"`
}

// APIToken defines a bearer token and its scopes.
type APIToken struct {
	Token  string   `yaml:"token"`
	Scopes []string `yaml:"scopes"`
}

// RateConfig limits POST /api/launch-tool. RPS <= 0 disables limiting.
type RateConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

type SupervisorConfig struct {
	// Shell overrides the platform shell used to run tool commands.
	Shell                   string      `yaml:"shell,omitempty"`
	OpenBrowser             bool        `yaml:"open_browser"`
	AllowUntrackedTerminate bool        `yaml:"allow_untracked_terminate"`
	Probe                   ProbeConfig `yaml:"probe"`
}

type ProbeConfig struct {
	Interval       time.Duration `yaml:"interval"`
	MaxAttempts    int           `yaml:"max_attempts"`
	AttemptTimeout time.Duration `yaml:"attempt_timeout"`
	Host           string        `yaml:"host"`
}

// CatalogConfig selects where tool definitions come from: the tools list in
// this file ("config") or a SQLite database ("sqlite").
type CatalogConfig struct {
	Driver string `yaml:"driver"`
	Path   string `yaml:"path,omitempty"`
}

// ToolConfig is one launchable tool.
type ToolConfig struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	Command     string `yaml:"command,omitempty"`
	WorkingDir  string `yaml:"working_dir,omitempty"`
	Port        *int   `yaml:"port,omitempty"`
	LaunchURL   string `yaml:"launch_url,omitempty"`
	Description string `yaml:"description,omitempty"`
	Enabled     *bool  `yaml:"enabled,omitempty"`
}

// IsEnabled treats an absent enabled flag as true.
func (t ToolConfig) IsEnabled() bool {
	return t.Enabled == nil || *t.Enabled
}

const (
	CatalogDriverConfig = "config"
	CatalogDriverSQLite = "sqlite"
)

// Defaults returns a Config with the values used for any omitted key.
func Defaults() *Config {
	return &Config{
		Service: ServiceConfig{
			Name:      "toolhub",
			LogLevel:  "info",
			LogFormat: "json",
			LockPath:  "./data/toolhub.lock",
		},
		API: APIConfig{
			Enabled: true,
			Listen:  "127.0.0.1:8765",
			LaunchRate: RateConfig{
				RPS:   2,
				Burst: 5,
			},
		},
		Supervisor: SupervisorConfig{
			OpenBrowser:             true,
			AllowUntrackedTerminate: true,
			Probe: ProbeConfig{
				Interval:       500 * time.Millisecond,
				MaxAttempts:    180,
				AttemptTimeout: time.Second,
				Host:           "localhost",
			},
		},
		Catalog: CatalogConfig{
			Driver: CatalogDriverConfig,
			Path:   "./data/catalog.db",
		},
	}
}
