// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "taskboard.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	cfg.Resolve()

	if cfg.Environment != Development {
		t.Errorf("expected environment=development, got %s", cfg.Environment)
	}
	if cfg.Store.Driver != DriverRemote {
		t.Errorf("expected driver=remote, got %s", cfg.Store.Driver)
	}
	if want := filepath.Join(cfg.Paths.Root, "state", "store.sock"); cfg.Store.Socket != want {
		t.Errorf("expected socket=%s, got %s", want, cfg.Store.Socket)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}

func TestLoadRequiresEnvVar(t *testing.T) {
	t.Setenv(EnvVar, "")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error when TASKBOARD_CONFIG not set, got nil")
	}
	if !strings.HasPrefix(err.Error(), "TASKBOARD_CONFIG environment variable not set") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestLoadFromEnvVar(t *testing.T) {
	t.Setenv(EnvVar, writeConfig(t, `
environment: production
paths:
  root: /srv/taskboard
store:
  driver: sqlite
`))

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Environment != Production || cfg.Store.Driver != DriverSQLite {
		t.Errorf("loaded environment=%s driver=%s", cfg.Environment, cfg.Store.Driver)
	}
	if cfg.Store.Path != "/srv/taskboard/state/taskboard.db" {
		t.Errorf("expected derived store path, got %s", cfg.Store.Path)
	}
}

func TestLoadOrDefault(t *testing.T) {
	explicit := writeConfig(t, "store:\n  driver: memory\n")
	t.Setenv(EnvVar, writeConfig(t, "store:\n  driver: sqlite\n"))

	cfg, err := LoadOrDefault(explicit)
	if err != nil {
		t.Fatalf("LoadOrDefault(explicit) failed: %v", err)
	}
	if cfg.Store.Driver != DriverMemory {
		t.Errorf("explicit path: driver = %s, want memory", cfg.Store.Driver)
	}

	cfg, err = LoadOrDefault("")
	if err != nil {
		t.Fatalf("LoadOrDefault(env) failed: %v", err)
	}
	if cfg.Store.Driver != DriverSQLite {
		t.Errorf("env path: driver = %s, want sqlite", cfg.Store.Driver)
	}

	t.Setenv(EnvVar, "")
	cfg, err = LoadOrDefault("")
	if err != nil {
		t.Fatalf("LoadOrDefault(defaults) failed: %v", err)
	}
	if cfg.Store.Driver != DriverRemote || strings.Contains(cfg.Store.Socket, "${") {
		t.Errorf("defaults: driver = %s socket = %s", cfg.Store.Driver, cfg.Store.Socket)
	}

	if _, err := LoadOrDefault(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected an error for a missing explicit file")
	}
}

func TestLoadFile(t *testing.T) {
	cfg, err := LoadFile(writeConfig(t, `
paths:
  root: /custom/root
  state: /var/lib/taskboard
store:
  driver: sqlite
  compression: lz4
  encryption_key_file: ${TASKBOARD_STATE}/store.key
  write_timeout: 2s
identity:
  id: u-ada
  name: Ada
  email: ada@example.com
  admin_emails: [ada@example.com]
  admin_recipient: u-ada
view:
  refresh: 30s
backup:
  recipients: [age1example]
log:
  level: debug
`))
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}

	if cfg.Store.Path != "/var/lib/taskboard/taskboard.db" {
		t.Errorf("store.path = %s", cfg.Store.Path)
	}
	if cfg.Store.EncryptionKeyFile != "/var/lib/taskboard/store.key" {
		t.Errorf("store.encryption_key_file = %s", cfg.Store.EncryptionKeyFile)
	}
	if cfg.Paths.Backups != "/custom/root/backups" {
		t.Errorf("paths.backups = %s", cfg.Paths.Backups)
	}
	if cfg.Identity.AdminRecipient != "u-ada" || len(cfg.Identity.AdminEmails) != 1 {
		t.Errorf("identity = %+v", cfg.Identity)
	}
	if timeout, _ := cfg.WriteTimeout(); timeout != 2*time.Second {
		t.Errorf("write timeout = %s", timeout)
	}
	if refresh, _ := cfg.RefreshInterval(); refresh != 30*time.Second {
		t.Errorf("refresh = %s", refresh)
	}
	if level, _ := cfg.LogLevel(); level != slog.LevelDebug {
		t.Errorf("log level = %s", level)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestLoadFileErrors(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml")); !os.IsNotExist(err) {
		t.Errorf("missing file: err = %v", err)
	}
	if _, err := LoadFile(writeConfig(t, "store: [not, a, map]\n")); err == nil {
		t.Error("malformed file accepted")
	}
}

func TestEnvironmentOverrides(t *testing.T) {
	cfg, err := LoadFile(writeConfig(t, `
environment: production
paths:
  root: /default/root
store:
  echo_pending: true
log:
  level: debug
production:
  paths:
    root: /prod/root
  store:
    driver: sqlite
  log:
    format: json
`))
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}

	if cfg.Paths.Root != "/prod/root" || cfg.Paths.State != "/prod/root/state" {
		t.Errorf("paths = %+v", cfg.Paths)
	}
	if cfg.Store.Driver != DriverSQLite {
		t.Errorf("driver = %s", cfg.Store.Driver)
	}
	if cfg.Store.EchoPending {
		t.Error("expected echo_pending=false from production override")
	}
	if cfg.Log.Level != "debug" || cfg.Log.Format != "json" {
		t.Errorf("log = %+v", cfg.Log)
	}
}

func TestProductionDefaultsToJSONLogs(t *testing.T) {
	cfg, err := LoadFile(writeConfig(t, "environment: production\n"))
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if cfg.Log.Format != "json" {
		t.Errorf("log.format = %s, want json", cfg.Log.Format)
	}

	cfg, err = LoadFile(writeConfig(t, "environment: development\n"))
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if cfg.Log.Format != "text" {
		t.Errorf("development log.format = %s, want text", cfg.Log.Format)
	}
}

func TestEnvVarsDoNotOverride(t *testing.T) {
	t.Setenv("TASKBOARD_ROOT", "/env/root")
	t.Setenv("TASKBOARD_STATE", "/env/state")

	cfg, err := LoadFile(writeConfig(t, `
paths:
  root: /file/root
`))
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if cfg.Paths.Root != "/file/root" || cfg.Store.Socket != "/file/root/state/store.sock" {
		t.Errorf("root = %s, socket = %s; environment must not override the file", cfg.Paths.Root, cfg.Store.Socket)
	}
}

func TestExpandVars(t *testing.T) {
	t.Setenv("TASKBOARD_TEST_ONLY_ENV", "from-env")

	tests := []struct {
		input    string
		vars     map[string]string
		expected string
	}{
		{"${HOME}/taskboard", map[string]string{"HOME": "/home/user"}, "/home/user/taskboard"},
		{"${MISSING_TASKBOARD_VAR:-default}", map[string]string{}, "default"},
		{"${PRESENT:-default}", map[string]string{"PRESENT": "value"}, "value"},
		{"${A}/${B}", map[string]string{"A": "first", "B": "second"}, "first/second"},
		{"${TASKBOARD_TEST_ONLY_ENV}", map[string]string{}, "from-env"},
		{"no variables here", map[string]string{}, "no variables here"},
	}

	for _, tt := range tests {
		if result := expandVars(tt.input, tt.vars); result != tt.expected {
			t.Errorf("expandVars(%q) = %q, want %q", tt.input, result, tt.expected)
		}
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr string
	}{
		{"valid default config", func(c *Config) {}, ""},
		{"invalid environment", func(c *Config) { c.Environment = "staging" }, "invalid environment"},
		{"empty root path", func(c *Config) { c.Paths.Root = "" }, "paths.root"},
		{"unknown driver", func(c *Config) { c.Store.Driver = "postgres" }, "store.driver"},
		{"sqlite without path", func(c *Config) { c.Store.Driver, c.Store.Path = DriverSQLite, "" }, "store.path"},
		{"remote without socket", func(c *Config) { c.Store.Socket = "" }, "store.socket"},
		{"memory needs nothing", func(c *Config) { c.Store.Driver, c.Store.Socket = DriverMemory, "" }, ""},
		{"unknown compression", func(c *Config) { c.Store.Compression = "gzip" }, "store.compression"},
		{"bad timeout", func(c *Config) { c.Store.WriteTimeout = "soon" }, "store.write_timeout"},
		{"negative refresh", func(c *Config) { c.View.Refresh = "-1m" }, "view.refresh"},
		{"bad admin email", func(c *Config) { c.Identity.AdminEmails = []string{"root"} }, "admin_emails"},
		{"bad log level", func(c *Config) { c.Log.Level = "loud" }, "log.level"},
		{"bad log format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.Resolve()
			tt.modify(cfg)

			err := cfg.Validate()
			switch {
			case tt.wantErr == "" && err != nil:
				t.Errorf("Validate() = %v, want nil", err)
			case tt.wantErr != "" && (err == nil || !strings.Contains(err.Error(), tt.wantErr)):
				t.Errorf("Validate() = %v, want error mentioning %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidateJoinsErrors(t *testing.T) {
	cfg := Default()
	cfg.Resolve()
	cfg.Paths.Root = ""
	cfg.Log.Format = "xml"

	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "paths.root") || !strings.Contains(err.Error(), "log.format") {
		t.Errorf("Validate() = %v, want both errors", err)
	}
}

func TestEnsurePaths(t *testing.T) {
	root := filepath.Join(t.TempDir(), "taskboard")
	cfg := Default()
	cfg.Paths = PathsConfig{
		Root:    root,
		State:   filepath.Join(root, "state"),
		Backups: filepath.Join(root, "backups"),
	}

	if err := cfg.EnsurePaths(); err != nil {
		t.Fatalf("EnsurePaths failed: %v", err)
	}
	for _, path := range []string{cfg.Paths.Root, cfg.Paths.State, cfg.Paths.Backups} {
		info, err := os.Stat(path)
		if err != nil {
			t.Errorf("path %s not created: %v", path, err)
			continue
		}
		if !info.IsDir() {
			t.Errorf("path %s is not a directory", path)
		}
	}
}
