// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/bureau-foundation/sqliter/lib/sqliter"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Environment != Development {
		t.Errorf("expected environment=development, got %s", cfg.Environment)
	}
	if cfg.Database.JournalMode != "WAL" {
		t.Errorf("expected journal_mode=WAL, got %s", cfg.Database.JournalMode)
	}
	if cfg.Pool.Instances != 4 {
		t.Errorf("expected pool.instances=4, got %d", cfg.Pool.Instances)
	}
	if cfg.Pool.CacheSize != 200 {
		t.Errorf("expected pool.cache_size=200, got %d", cfg.Pool.CacheSize)
	}
}

func TestLoad_RequiresConfigVariable(t *testing.T) {
	t.Setenv(EnvironmentVariable, "")

	_, err := Load()
	if err == nil {
		t.Fatalf("expected error when %s not set, got nil", EnvironmentVariable)
	}

	expectedMsg := "SQLITER_CONFIG environment variable not set"
	if !strings.HasPrefix(err.Error(), expectedMsg) {
		t.Errorf("expected error message to start with %q, got %q", expectedMsg, err.Error())
	}
}

func TestLoad_WithConfigVariable(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "sqliter.yaml")
	writeFile(t, configPath, `
database:
  name: notes.db
  base_path: /var/lib/notes
  busy_timeout: 5s
`)
	t.Setenv(EnvironmentVariable, configPath)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Database.Name != "notes.db" {
		t.Errorf("expected name=notes.db, got %s", cfg.Database.Name)
	}
	if cfg.Database.BasePath != "/var/lib/notes" {
		t.Errorf("expected base_path=/var/lib/notes, got %s", cfg.Database.BasePath)
	}
	if cfg.Database.BusyTimeout != "5s" {
		t.Errorf("expected busy_timeout=5s, got %s", cfg.Database.BusyTimeout)
	}
}

func TestLoadFile_JSONC(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "sqliter.jsonc")
	writeFile(t, configPath, `{
  // Comments and trailing commas are allowed.
  "database": {
    "name": "events.db",
    "journal_mode": "delete",
    "foreign_keys": true,
  },
  "pool": {"instances": 2},
}`)

	cfg, err := LoadFile(configPath)
	if err != nil {
		t.Fatalf("LoadFile() failed: %v", err)
	}
	if cfg.Database.Name != "events.db" {
		t.Errorf("expected name=events.db, got %s", cfg.Database.Name)
	}
	if cfg.Pool.Instances != 2 {
		t.Errorf("expected pool.instances=2, got %d", cfg.Pool.Instances)
	}

	converted, err := cfg.SQLiter()
	if err != nil {
		t.Fatalf("SQLiter() failed: %v", err)
	}
	if converted.JournalMode != sqliter.JournalDelete {
		t.Errorf("expected journal mode DELETE, got %s", converted.JournalMode)
	}
	if !converted.ForeignKeyConstraints {
		t.Error("expected foreign key constraints enabled")
	}
}

func TestLoadFile_Missing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected ErrNotExist, got %v", err)
	}
}

func TestEnvironmentOverrides(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "sqliter.yaml")
	writeFile(t, configPath, `
environment: production
database:
  name: app.db
  foreign_keys: true
  verbose_data_logging: true
production:
  database:
    foreign_keys: false
    busy_timeout: 10s
  pool:
    instances: 16
`)

	cfg, err := LoadFile(configPath)
	if err != nil {
		t.Fatalf("LoadFile() failed: %v", err)
	}
	if cfg.Database.ForeignKeys == nil || *cfg.Database.ForeignKeys {
		t.Error("expected production override to disable foreign keys")
	}
	if cfg.Database.BusyTimeout != "10s" {
		t.Errorf("expected busy_timeout=10s, got %s", cfg.Database.BusyTimeout)
	}
	if cfg.Pool.Instances != 16 {
		t.Errorf("expected pool.instances=16, got %d", cfg.Pool.Instances)
	}
	if cfg.Database.VerboseDataLogging {
		t.Error("expected verbose data logging to be forced off in production")
	}
	if cfg.Database.Synchronous != "FULL" {
		t.Errorf("expected production synchronous=FULL, got %q", cfg.Database.Synchronous)
	}
}

func TestVariableExpansion(t *testing.T) {
	t.Setenv("SQLITER_TEST_DATA", "/srv/data")
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "sqliter.yaml")
	writeFile(t, configPath, `
database:
  name: app.db
  base_path: ${SQLITER_TEST_DATA}/app
  key_file: ${CONFIG_DIR}/key.age
  identity_file: ${SQLITER_TEST_UNSET:-/etc/sqliter/identity}
schema: migrations
`)

	cfg, err := LoadFile(configPath)
	if err != nil {
		t.Fatalf("LoadFile() failed: %v", err)
	}
	if cfg.Database.BasePath != "/srv/data/app" {
		t.Errorf("base_path = %q", cfg.Database.BasePath)
	}
	if cfg.Database.KeyFile != filepath.Join(tmpDir, "key.age") {
		t.Errorf("key_file = %q", cfg.Database.KeyFile)
	}
	if cfg.Database.IdentityFile != "/etc/sqliter/identity" {
		t.Errorf("identity_file = %q", cfg.Database.IdentityFile)
	}
	if cfg.Schema != filepath.Join(tmpDir, "migrations") {
		t.Errorf("schema = %q, expected it relative to the config file", cfg.Schema)
	}
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Database.Name = "nested/app.db"
	cfg.Database.JournalMode = "MEMORY"
	cfg.Database.BusyTimeout = "soon"
	cfg.Database.KeyFile = "/tmp/key.age"
	cfg.Pool.Instances = -1

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation errors")
	}
	for _, fragment := range []string{
		"path separator",
		"journal_mode",
		"busy_timeout",
		"key_file and database.identity_file",
		"pool.instances",
	} {
		if !strings.Contains(err.Error(), fragment) {
			t.Errorf("expected %q in validation error, got: %v", fragment, err)
		}
	}

	cfg = Default()
	cfg.Database.InMemory = true
	if err := cfg.Validate(); err != nil {
		t.Errorf("in-memory default should validate: %v", err)
	}
}

func TestSQLiter_NoSchema(t *testing.T) {
	cfg := Default()
	cfg.Database.Name = "plain.db"
	cfg.Database.BusyTimeout = "750ms"

	converted, err := cfg.SQLiter()
	if err != nil {
		t.Fatalf("SQLiter() failed: %v", err)
	}
	if converted.Version != sqliter.NoVersionCheck {
		t.Errorf("expected NoVersionCheck without a schema, got %d", converted.Version)
	}
	if converted.BusyTimeout != 750*time.Millisecond {
		t.Errorf("expected busy timeout 750ms, got %v", converted.BusyTimeout)
	}
	if converted.Create != nil || converted.Upgrade != nil {
		t.Error("expected no migration callbacks without a schema")
	}
}
