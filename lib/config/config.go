// Copyright 2026 The Waybus Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the broker configuration.
type Config struct {
	// RuntimeDir anchors relative socket and state file paths.
	// Default: $XDG_RUNTIME_DIR, else /tmp.
	RuntimeDir string `yaml:"runtime_dir" json:"runtime_dir"`

	// Compositor configures the upstream compositor connection.
	Compositor CompositorConfig `yaml:"compositor" json:"compositor"`

	// Broadcast configures the subscriber-facing event sockets.
	Broadcast BroadcastConfig `yaml:"broadcast" json:"broadcast"`

	// Control configures the command socket.
	Control ControlConfig `yaml:"control" json:"control"`

	// Reconnect configures the connector's retry timing.
	Reconnect ReconnectConfig `yaml:"reconnect" json:"reconnect"`

	// StateFile is where the broker records its runtime state for
	// external monitors. Relative paths resolve under RuntimeDir;
	// empty disables the state file.
	// Default: waybus-state.json
	StateFile string `yaml:"state_file" json:"state_file"`

	// Log configures broker logging.
	Log LogConfig `yaml:"log" json:"log"`
}

// CompositorConfig configures the upstream compositor connection.
type CompositorConfig struct {
	// Socket is the compositor IPC socket path. Empty means discover
	// from the environment at connect time ($WAYFIRE_SOCKET, then
	// $SWAYSOCK).
	Socket string `yaml:"socket" json:"socket"`

	// ConfigFile is the compositor configuration file to watch.
	// A change to this file forces an immediate reconnect so the
	// event stream survives compositor option reloads. Empty
	// disables the watcher.
	ConfigFile string `yaml:"config_file" json:"config_file"`
}

// BroadcastConfig configures the subscriber-facing event sockets.
type BroadcastConfig struct {
	// Sockets lists the Unix socket paths that fan events out to
	// subscribers. Relative paths resolve under RuntimeDir. At least
	// one is required.
	// Default: [waybus.sock]
	Sockets []string `yaml:"sockets" json:"sockets"`
}

// ControlConfig configures the command socket.
type ControlConfig struct {
	// Socket is the Unix socket path for the command channel.
	// Relative paths resolve under RuntimeDir. Must differ from
	// every broadcast socket.
	// Default: waybus-ctl.sock
	Socket string `yaml:"socket" json:"socket"`
}

// ReconnectConfig configures the connector's retry timing. Values use
// Go duration syntax ("10s", "500ms").
type ReconnectConfig struct {
	// Backoff is the wait after a failed connection attempt.
	// Default: 10s
	Backoff string `yaml:"backoff" json:"backoff"`

	// ReadRetry is the wait after the event stream breaks before
	// reconnecting.
	// Default: 1s
	ReadRetry string `yaml:"read_retry" json:"read_retry"`
}

// LogConfig configures broker logging.
type LogConfig struct {
	// Level is the minimum log level: debug, info, warn, or error.
	// Default: info
	Level string `yaml:"level" json:"level"`
}

// Default returns the default configuration. The broker is fully
// functional on defaults alone; a config file only overrides them.
func Default() *Config {
	runtimeDir := os.Getenv("XDG_RUNTIME_DIR")
	if runtimeDir == "" {
		runtimeDir = "/tmp"
	}

	return &Config{
		RuntimeDir: runtimeDir,
		Broadcast: BroadcastConfig{
			Sockets: []string{"waybus.sock"},
		},
		Control: ControlConfig{
			Socket: "waybus-ctl.sock",
		},
		Reconnect: ReconnectConfig{
			Backoff:   "10s",
			ReadRetry: "1s",
		},
		StateFile: "waybus-state.json",
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from the file named by WAYBUS_CONFIG, or
// returns defaults when the variable is unset. Environment variables
// never override values from the file.
func Load() (*Config, error) {
	if path := os.Getenv("WAYBUS_CONFIG"); path != "" {
		return LoadFile(path)
	}

	cfg := Default()
	cfg.resolvePaths()
	return cfg, nil
}

// LoadFile loads configuration from a specific file path, overlaying
// the defaults. After loading, ${VAR} patterns in path fields are
// expanded and relative socket and state paths are resolved under
// RuntimeDir.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	cfg.expandVariables()
	cfg.resolvePaths()
	return cfg, nil
}

// expandVariables expands ${VAR} and ${VAR:-default} patterns in path
// fields.
func (c *Config) expandVariables() {
	vars := map[string]string{
		"HOME":            os.Getenv("HOME"),
		"XDG_RUNTIME_DIR": os.Getenv("XDG_RUNTIME_DIR"),
	}

	c.RuntimeDir = expandVars(c.RuntimeDir, vars)
	c.Compositor.Socket = expandVars(c.Compositor.Socket, vars)
	c.Compositor.ConfigFile = expandVars(c.Compositor.ConfigFile, vars)
	for i, socket := range c.Broadcast.Sockets {
		c.Broadcast.Sockets[i] = expandVars(socket, vars)
	}
	c.Control.Socket = expandVars(c.Control.Socket, vars)
	c.StateFile = expandVars(c.StateFile, vars)
}

// resolvePaths anchors relative socket and state file paths under
// RuntimeDir. Compositor paths are left alone: the compositor decides
// where its socket and config file live.
func (c *Config) resolvePaths() {
	for i, socket := range c.Broadcast.Sockets {
		c.Broadcast.Sockets[i] = c.resolve(socket)
	}
	c.Control.Socket = c.resolve(c.Control.Socket)
	c.StateFile = c.resolve(c.StateFile)
}

func (c *Config) resolve(path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(c.RuntimeDir, path)
}

// expandVars substitutes ${VAR} and ${VAR:-default} occurrences.
var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		name := parts[1]
		defaultValue := ""
		if len(parts) >= 3 {
			defaultValue = parts[2]
		}

		// The fixed map wins over the environment.
		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

// Validate checks the configuration for errors. All problems are
// reported together rather than one at a time.
func (c *Config) Validate() error {
	var errs []error

	if c.RuntimeDir == "" {
		errs = append(errs, fmt.Errorf("runtime_dir is required"))
	}

	if len(c.Broadcast.Sockets) == 0 {
		errs = append(errs, fmt.Errorf("broadcast.sockets must list at least one socket"))
	}
	seen := make(map[string]bool)
	for _, socket := range c.Broadcast.Sockets {
		if socket == "" {
			errs = append(errs, fmt.Errorf("broadcast.sockets entries must not be empty"))
			continue
		}
		if seen[socket] {
			errs = append(errs, fmt.Errorf("broadcast.sockets lists %s twice", socket))
		}
		seen[socket] = true
	}

	if c.Control.Socket == "" {
		errs = append(errs, fmt.Errorf("control.socket is required"))
	} else if seen[c.Control.Socket] {
		errs = append(errs, fmt.Errorf("control.socket %s collides with a broadcast socket", c.Control.Socket))
	}

	if err := validateDuration("reconnect.backoff", c.Reconnect.Backoff); err != nil {
		errs = append(errs, err)
	}
	if err := validateDuration("reconnect.read_retry", c.Reconnect.ReadRetry); err != nil {
		errs = append(errs, err)
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log.level must be one of: debug, info, warn, error"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

func validateDuration(field, value string) error {
	duration, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("%s: invalid duration %q", field, value)
	}
	if duration <= 0 {
		return fmt.Errorf("%s must be positive, got %s", field, value)
	}
	return nil
}

// ReconnectBackoff returns the parsed reconnect backoff. Falls back
// to the default when the configured value is invalid; Validate
// reports such values as errors.
func (c *Config) ReconnectBackoff() time.Duration {
	return parseDurationOr(c.Reconnect.Backoff, 10*time.Second)
}

// ReadRetryDelay returns the parsed read-retry delay. Falls back to
// the default when the configured value is invalid.
func (c *Config) ReadRetryDelay() time.Duration {
	return parseDurationOr(c.Reconnect.ReadRetry, time.Second)
}

func parseDurationOr(value string, fallback time.Duration) time.Duration {
	duration, err := time.ParseDuration(value)
	if err != nil || duration <= 0 {
		return fallback
	}
	return duration
}

// LogLevel maps the configured level name to a slog level. Unknown
// names map to info; Validate reports them as errors.
func (c *Config) LogLevel() slog.Level {
	switch c.Log.Level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// EnsureRuntimeDir creates the runtime directory if it does not
// exist. $XDG_RUNTIME_DIR normally exists already; this matters when
// a custom runtime_dir is configured.
func (c *Config) EnsureRuntimeDir() error {
	if err := os.MkdirAll(c.RuntimeDir, 0755); err != nil {
		return fmt.Errorf("creating %s: %w", c.RuntimeDir, err)
	}
	return nil
}
