package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// Load reads, interpolates, defaults, integrity-checks, and validates the
// config at configPath. A directory is taken to contain config.yaml.
func Load(configPath string) (*Config, error) {
	absPath, err := filepath.Abs(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve config path %q: %w", configPath, err)
	}

	info, err := os.Stat(absPath)
	if err != nil {
		return nil, fmt.Errorf("config file not found: %s\n"+
			"Hint: Check the path or run with --config flag", absPath)
	}
	if info.IsDir() {
		absPath = filepath.Join(absPath, "config.yaml")
		if _, err := os.Stat(absPath); err != nil {
			return nil, fmt.Errorf("directory provided but config.yaml not found: %s", absPath)
		}
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := VerifyChecksums(absPath); err != nil {
		return nil, err
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", absPath, err)
	}
	cfg.Path = absPath
	resolveRelativePaths(cfg, filepath.Dir(absPath))
	return cfg, nil
}

// Parse decodes YAML over Defaults() and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Defaults()

	interpolated := interpolateEnv(string(data))
	dec := yaml.NewDecoder(bytes.NewReader([]byte(interpolated)))
	dec.KnownFields(true)
	// An empty document decodes to io.EOF and leaves the defaults in place.
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	applyDefaults(cfg)
	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// DiscoverConfigPath finds the config by checking standard locations.
// Priority order: $TOOLHUB_CONFIG_DIR, ~/.config/toolhub, /etc/toolhub, ./config.yaml
func DiscoverConfigPath() (string, error) {
	var candidates []string
	if dir := os.Getenv("TOOLHUB_CONFIG_DIR"); dir != "" {
		candidates = append(candidates, filepath.Join(dir, "config.yaml"))
	}
	if homeDir, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(homeDir, ".config", "toolhub", "config.yaml"))
	}
	candidates = append(candidates, "/etc/toolhub/config.yaml", "./config.yaml")

	for _, path := range candidates {
		if fileExists(path) {
			return path, nil
		}
	}
	return "", fmt.Errorf("no config found (checked: $TOOLHUB_CONFIG_DIR, ~/.config/toolhub, /etc/toolhub, ./config.yaml)")
}

// applyDefaults fills zero values that YAML may have explicitly cleared.
func applyDefaults(cfg *Config) {
	def := Defaults()
	if cfg.Service.Name == "" {
		cfg.Service.Name = def.Service.Name
	}
	cfg.Service.LogLevel = strings.ToLower(strings.TrimSpace(cfg.Service.LogLevel))
	if cfg.Service.LogLevel == "" {
		cfg.Service.LogLevel = def.Service.LogLevel
	}
	cfg.Service.LogFormat = strings.ToLower(strings.TrimSpace(cfg.Service.LogFormat))
	if cfg.Service.LogFormat == "" {
		cfg.Service.LogFormat = def.Service.LogFormat
	}
	if cfg.Service.LockPath == "" {
		cfg.Service.LockPath = def.Service.LockPath
	}
	if cfg.API.Listen == "" {
		cfg.API.Listen = def.API.Listen
	}

	p := &cfg.Supervisor.Probe
	if p.Interval <= 0 {
		p.Interval = def.Supervisor.Probe.Interval
	}
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = def.Supervisor.Probe.MaxAttempts
	}
	if p.AttemptTimeout <= 0 {
		p.AttemptTimeout = def.Supervisor.Probe.AttemptTimeout
	}
	if p.Host == "" {
		p.Host = def.Supervisor.Probe.Host
	}

	cfg.Catalog.Driver = strings.ToLower(strings.TrimSpace(cfg.Catalog.Driver))
	if cfg.Catalog.Driver == "" {
		cfg.Catalog.Driver = def.Catalog.Driver
	}
	if cfg.Catalog.Driver == CatalogDriverSQLite && cfg.Catalog.Path == "" {
		cfg.Catalog.Path = def.Catalog.Path
	}
}

func resolveRelativePaths(cfg *Config, baseDir string) {
	if cfg.Service.LockPath != "" && !filepath.IsAbs(cfg.Service.LockPath) {
		cfg.Service.LockPath = filepath.Join(baseDir, cfg.Service.LockPath)
	}
	if cfg.Catalog.Path != "" && cfg.Catalog.Path != ":memory:" && !filepath.IsAbs(cfg.Catalog.Path) {
		cfg.Catalog.Path = filepath.Join(baseDir, cfg.Catalog.Path)
	}
}

// interpolateEnv replaces ${VAR} with environment variable values.
// Undefined variables are left as-is (not expanded).
func interpolateEnv(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		varName := envVarPattern.FindStringSubmatch(match)[1]
		if value, exists := os.LookupEnv(varName); exists {
			return value
		}
		return match
	})
}

func unresolved(field, value string) error {
	if matches := envVarPattern.FindStringSubmatch(value); len(matches) > 1 {
		return fmt.Errorf("%s: environment variable ${%s} is not set", field, matches[1])
	}
	return nil
}

func validate(cfg *Config) error {
	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[cfg.Service.LogLevel] {
		return fmt.Errorf("service.log_level must be one of: debug, info, warn, error (got %q)", cfg.Service.LogLevel)
	}
	if cfg.Service.LogFormat != "json" && cfg.Service.LogFormat != "text" {
		return fmt.Errorf("service.log_format must be json or text (got %q)", cfg.Service.LogFormat)
	}

	if cfg.API.Enabled {
		if err := unresolved("api.auth.api_key", cfg.API.Auth.APIKey); err != nil {
			return err
		}
		for i, tok := range cfg.API.Auth.Tokens {
			field := fmt.Sprintf("api.auth.tokens[%d].token", i)
			if tok.Token == "" {
				return fmt.Errorf("%s is required", field)
			}
			if err := unresolved(field, tok.Token); err != nil {
				return err
			}
			if len(tok.Scopes) == 0 {
				return fmt.Errorf("api.auth.tokens[%d].scopes must be non-empty", i)
			}
		}
		if cfg.API.Auth.APIKey == "" && len(cfg.API.Auth.Tokens) == 0 {
			return fmt.Errorf("api.auth: api_key or tokens required when api is enabled")
		}
	}
	if cfg.API.LaunchRate.RPS > 0 && cfg.API.LaunchRate.Burst <= 0 {
		return fmt.Errorf("api.launch_rate.burst must be positive when rps is set")
	}

	switch cfg.Catalog.Driver {
	case CatalogDriverConfig:
	case CatalogDriverSQLite:
		if cfg.Catalog.Path == "" {
			return fmt.Errorf("catalog.path is required for the sqlite driver")
		}
	default:
		return fmt.Errorf("catalog.driver must be config or sqlite (got %q)", cfg.Catalog.Driver)
	}

	seen := make(map[string]bool, len(cfg.Tools))
	for i, tool := range cfg.Tools {
		if strings.TrimSpace(tool.ID) == "" {
			return fmt.Errorf("tools[%d].id is required", i)
		}
		if seen[tool.ID] {
			return fmt.Errorf("tools[%d]: duplicate id %q", i, tool.ID)
		}
		seen[tool.ID] = true
		if tool.Name == "" {
			return fmt.Errorf("tool %q: name is required", tool.ID)
		}
		if tool.Port != nil && (*tool.Port < 1 || *tool.Port > 65535) {
			return fmt.Errorf("tool %q: port must be between 1 and 65535 (got %d)", tool.ID, *tool.Port)
		}
		if strings.TrimSpace(tool.Command) == "" && tool.Port == nil && strings.TrimSpace(tool.LaunchURL) == "" {
			return fmt.Errorf("tool %q: one of command, port or launch_url is required", tool.ID)
		}
	}
	return nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
