// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvVar names the environment variable [Load] reads.
const EnvVar = "TASKBOARD_CONFIG"

// Environment represents the deployment environment.
type Environment string

const (
	Development Environment = "development"
	Production  Environment = "production"
)

// Store drivers.
const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
	DriverRemote = "remote"
)

// Config is the taskboard configuration.
type Config struct {
	Environment Environment `yaml:"environment"`

	Paths    PathsConfig    `yaml:"paths"`
	Store    StoreConfig    `yaml:"store"`
	Identity IdentityConfig `yaml:"identity"`
	View     ViewConfig     `yaml:"view"`
	Backup   BackupConfig   `yaml:"backup"`
	Log      LogConfig      `yaml:"log"`

	// Per-environment overrides, applied after the base config.
	Development *ConfigOverrides `yaml:"development,omitempty"`
	Production  *ConfigOverrides `yaml:"production,omitempty"`
}

// ConfigOverrides holds the sections an environment may override.
// Only non-empty fields replace base values.
type ConfigOverrides struct {
	Paths *PathsConfig `yaml:"paths,omitempty"`
	Store *StoreConfig `yaml:"store,omitempty"`
	View  *ViewConfig  `yaml:"view,omitempty"`
	Log   *LogConfig   `yaml:"log,omitempty"`
}

// PathsConfig configures directory locations.
type PathsConfig struct {
	// Root is the base directory for taskboard data.
	Root string `yaml:"root"`

	// State holds the database, the daemon socket, and its lock file.
	State string `yaml:"state"`

	// Backups is the default destination for backup archives.
	Backups string `yaml:"backups"`
}

// StoreConfig selects and configures the entity store.
type StoreConfig struct {
	// Driver is memory, sqlite, or remote. Default: remote.
	Driver string `yaml:"driver"`

	// Path is the SQLite database, used by the sqlite driver and the
	// store daemon.
	Path string `yaml:"path"`

	// Socket is the store daemon's unix socket.
	Socket string `yaml:"socket"`

	// Compression is none, zstd, or lz4. Default: zstd.
	Compression string `yaml:"compression"`

	// EncryptionKeyFile holds a hex-encoded 32-byte key. When set,
	// document bodies are encrypted at rest.
	EncryptionKeyFile string `yaml:"encryption_key_file"`

	// WriteTimeout bounds each remote write. Default: 10s.
	WriteTimeout string `yaml:"write_timeout"`

	// EchoPending makes the store publish writes before they commit.
	EchoPending bool `yaml:"echo_pending"`
}

// IdentityConfig configures the static identity and user provisioning.
type IdentityConfig struct {
	ID        string `yaml:"id"`
	Name      string `yaml:"name"`
	Email     string `yaml:"email"`
	AvatarURI string `yaml:"avatar_uri"`

	// AdminEmails are approved as administrators on first sign-in.
	AdminEmails []string `yaml:"admin_emails"`

	// AdminRecipient is the user id registration notices are addressed
	// to.
	AdminRecipient string `yaml:"admin_recipient"`
}

// ViewConfig configures view derivation.
type ViewConfig struct {
	// Refresh is how often overdue status is re-evaluated without a
	// table change. Default: 1m.
	Refresh string `yaml:"refresh"`
}

// BackupConfig configures backup archives.
type BackupConfig struct {
	// Recipients are age public keys every archive is sealed to.
	Recipients []string `yaml:"recipients"`

	// IdentityFile holds the age identity used by restore.
	IdentityFile string `yaml:"identity_file"`
}

// LogConfig configures structured logging.
type LogConfig struct {
	// Level is debug, info, warn, or error. Default: info.
	Level string `yaml:"level"`

	// Format is text or json. Default: text.
	Format string `yaml:"format"`
}

// Default returns the base configuration a file is loaded over.
func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	defaultRoot := filepath.Join(homeDir, ".cache", "taskboard")

	return &Config{
		Environment: Development,
		Paths: PathsConfig{
			Root:    defaultRoot,
			State:   "${TASKBOARD_ROOT}/state",
			Backups: "${TASKBOARD_ROOT}/backups",
		},
		Store: StoreConfig{
			Driver:       DriverRemote,
			Path:         "${TASKBOARD_STATE}/taskboard.db",
			Socket:       "${TASKBOARD_STATE}/store.sock",
			Compression:  "zstd",
			WriteTimeout: "10s",
		},
		View: ViewConfig{Refresh: "1m"},
		Log:  LogConfig{Level: "info", Format: "text"},
	}
}

// Load loads the file named by TASKBOARD_CONFIG.
func Load() (*Config, error) {
	configPath := os.Getenv(EnvVar)
	if configPath == "" {
		return nil, fmt.Errorf("%s environment variable not set; "+
			"set it to the path of your taskboard.yaml, or use --config", EnvVar)
	}
	return LoadFile(configPath)
}

// LoadOrDefault loads path when it is non-empty, else the file named by
// TASKBOARD_CONFIG when that is set, else the resolved defaults. The
// binaries call it with their --config flag.
func LoadOrDefault(path string) (*Config, error) {
	if path != "" {
		return LoadFile(path)
	}
	if os.Getenv(EnvVar) != "" {
		return Load()
	}
	cfg := Default()
	cfg.Resolve()
	return cfg, nil
}

// LoadFile loads configuration from path over [Default], applies the
// environment section, and expands path variables.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	cfg.Resolve()
	return cfg, nil
}

// Resolve applies the environment section and expands path variables.
// [LoadFile] calls it; callers running on [Default] alone call it
// themselves.
func (c *Config) Resolve() {
	c.applyEnvironmentOverrides()
	c.expandVariables()
}

func (c *Config) applyEnvironmentOverrides() {
	var overrides *ConfigOverrides
	switch c.Environment {
	case Development:
		overrides = c.Development
	case Production:
		overrides = c.Production
		if overrides == nil {
			overrides = &ConfigOverrides{Log: &LogConfig{Format: "json"}}
		}
	}
	if overrides == nil {
		return
	}

	if overrides.Paths != nil {
		override(&c.Paths.Root, overrides.Paths.Root)
		override(&c.Paths.State, overrides.Paths.State)
		override(&c.Paths.Backups, overrides.Paths.Backups)
	}
	if overrides.Store != nil {
		override(&c.Store.Driver, overrides.Store.Driver)
		override(&c.Store.Path, overrides.Store.Path)
		override(&c.Store.Socket, overrides.Store.Socket)
		override(&c.Store.Compression, overrides.Store.Compression)
		override(&c.Store.EncryptionKeyFile, overrides.Store.EncryptionKeyFile)
		override(&c.Store.WriteTimeout, overrides.Store.WriteTimeout)
		// A bool cannot be left unset, so the override always applies.
		c.Store.EchoPending = overrides.Store.EchoPending
	}
	if overrides.View != nil {
		override(&c.View.Refresh, overrides.View.Refresh)
	}
	if overrides.Log != nil {
		override(&c.Log.Level, overrides.Log.Level)
		override(&c.Log.Format, overrides.Log.Format)
	}
}

func override(field *string, value string) {
	if value != "" {
		*field = value
	}
}

// expandVariables expands ${VAR} and ${VAR:-default} in path fields.
// TASKBOARD_ROOT and TASKBOARD_STATE refer to the configured paths.
func (c *Config) expandVariables() {
	vars := map[string]string{
		"HOME": os.Getenv("HOME"),
	}

	c.Paths.Root = expandVars(c.Paths.Root, vars)
	vars["TASKBOARD_ROOT"] = c.Paths.Root
	c.Paths.State = expandVars(c.Paths.State, vars)
	vars["TASKBOARD_STATE"] = c.Paths.State
	c.Paths.Backups = expandVars(c.Paths.Backups, vars)

	c.Store.Path = expandVars(c.Store.Path, vars)
	c.Store.Socket = expandVars(c.Store.Socket, vars)
	c.Store.EncryptionKeyFile = expandVars(c.Store.EncryptionKeyFile, vars)
	c.Backup.IdentityFile = expandVars(c.Backup.IdentityFile, vars)
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// expandVars replaces ${VAR} and ${VAR:-default}, preferring vars over
// the process environment.
func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		name, defaultValue := parts[1], parts[2]
		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

// Validate reports every configuration error at once.
func (c *Config) Validate() error {
	var errs []error

	if c.Environment != Development && c.Environment != Production {
		errs = append(errs, fmt.Errorf("invalid environment: %s", c.Environment))
	}
	if c.Paths.Root == "" {
		errs = append(errs, errors.New("paths.root is required"))
	}

	switch c.Store.Driver {
	case DriverMemory:
	case DriverSQLite:
		if c.Store.Path == "" {
			errs = append(errs, errors.New("store.path is required for the sqlite driver"))
		}
	case DriverRemote:
		if c.Store.Socket == "" {
			errs = append(errs, errors.New("store.socket is required for the remote driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("store.driver must be one of memory, sqlite, remote; got %q", c.Store.Driver))
	}
	if !slices.Contains([]string{"", "none", "zstd", "lz4"}, c.Store.Compression) {
		errs = append(errs, fmt.Errorf("store.compression must be one of none, zstd, lz4; got %q", c.Store.Compression))
	}
	if _, err := c.WriteTimeout(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.RefreshInterval(); err != nil {
		errs = append(errs, err)
	}

	for _, email := range c.Identity.AdminEmails {
		if !strings.Contains(email, "@") {
			errs = append(errs, fmt.Errorf("identity.admin_emails: %q is not an email address", email))
		}
	}

	if _, err := c.LogLevel(); err != nil {
		errs = append(errs, err)
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		errs = append(errs, fmt.Errorf("log.format must be text or json; got %q", c.Log.Format))
	}

	return errors.Join(errs...)
}

// WriteTimeout parses store.write_timeout.
func (c *Config) WriteTimeout() (time.Duration, error) {
	return positiveDuration("store.write_timeout", c.Store.WriteTimeout)
}

// RefreshInterval parses view.refresh.
func (c *Config) RefreshInterval() (time.Duration, error) {
	return positiveDuration("view.refresh", c.View.Refresh)
}

func positiveDuration(name, value string) (time.Duration, error) {
	duration, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", name, err)
	}
	if duration <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %s", name, value)
	}
	return duration, nil
}

// LogLevel parses log.level.
func (c *Config) LogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return 0, fmt.Errorf("log.level: %w", err)
	}
	return level, nil
}

// EnsurePaths creates the configured directories.
func (c *Config) EnsurePaths() error {
	for _, path := range []string{c.Paths.Root, c.Paths.State, c.Paths.Backups} {
		if path == "" {
			continue
		}
		if err := os.MkdirAll(path, 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", path, err)
		}
	}
	return nil
}
