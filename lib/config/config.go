// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/bureau-foundation/sqliter/lib/sqliter"
)

// EnvironmentVariable names the configuration file used by Load.
const EnvironmentVariable = "SQLITER_CONFIG"

// Environment represents the deployment environment.
type Environment string

const (
	// Development is for local development machines.
	Development Environment = "development"
	// Staging is for pre-production testing.
	Staging Environment = "staging"
	// Production is for production deployments.
	Production Environment = "production"
)

// Config is one database configuration file.
type Config struct {
	// Environment selects which override section applies.
	Environment Environment `yaml:"environment"`

	// Database configures the database and its connections.
	Database DatabaseConfig `yaml:"database"`

	// Schema is a directory of migration scripts named <version>.sql.
	// Relative paths are resolved against the configuration file's
	// directory. Empty means the database is opened without version
	// checking.
	Schema string `yaml:"schema"`

	// Pool sizes the connection pool.
	Pool PoolConfig `yaml:"pool"`

	// EnvironmentOverrides contains per-environment overrides.
	// These are applied after the base config is loaded.
	Development *ConfigOverrides `yaml:"development,omitempty"`
	Staging     *ConfigOverrides `yaml:"staging,omitempty"`
	Production  *ConfigOverrides `yaml:"production,omitempty"`

	// directory holds the file that was loaded, for resolving Schema.
	directory string
}

// ConfigOverrides contains fields that can be overridden per environment.
type ConfigOverrides struct {
	Database *DatabaseConfig `yaml:"database,omitempty"`
	Pool     *PoolConfig     `yaml:"pool,omitempty"`
}

// DatabaseConfig mirrors the options of sqliter.Config that can be
// expressed in a file.
type DatabaseConfig struct {
	// Name is the database file name inside BasePath.
	Name string `yaml:"name"`

	// BasePath is the directory holding the database.
	// Default: ${HOME}
	BasePath string `yaml:"base_path"`

	// Version is the schema version. When zero and Schema is set, the
	// highest script number in the schema directory is used.
	Version int `yaml:"version"`

	InMemory bool `yaml:"in_memory"`

	// JournalMode is DELETE or WAL.
	// Default: WAL
	JournalMode string `yaml:"journal_mode"`

	// BusyTimeout is a duration string such as "2500ms".
	// Default: 2500ms
	BusyTimeout string `yaml:"busy_timeout"`

	// ForeignKeys and RecursiveTriggers are pointers so an override
	// section can turn them off.
	ForeignKeys       *bool `yaml:"foreign_keys"`
	RecursiveTriggers *bool `yaml:"recursive_triggers"`

	// Synchronous is OFF, NORMAL, FULL or EXTRA. Empty keeps the engine
	// default.
	Synchronous string `yaml:"synchronous"`

	PageSize int `yaml:"page_size"`

	Lookaside *LookasideConfig `yaml:"lookaside"`

	// KeyFile is an age-encrypted file holding the cipher key, and
	// IdentityFile the age identity that decrypts it.
	KeyFile      string `yaml:"key_file"`
	IdentityFile string `yaml:"identity_file"`

	VerboseDataLogging bool `yaml:"verbose_data_logging"`
}

// LookasideConfig sizes the lookaside allocator.
type LookasideConfig struct {
	SlotSize  int `yaml:"slot_size"`
	SlotCount int `yaml:"slot_count"`
}

// PoolConfig sizes the connection pool.
type PoolConfig struct {
	// Instances is the maximum number of connections.
	// Default: 4
	Instances int `yaml:"instances"`

	// CacheSize is the number of prepared statements per connection.
	// Default: 200
	CacheSize int `yaml:"cache_size"`
}

// Default returns the default configuration.
// These defaults are used as a base before loading the config file.
// They exist primarily to ensure all fields have sensible zero-values,
// not as a fallback - the config file is required.
func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	return &Config{
		Environment: Development,
		Database: DatabaseConfig{
			BasePath:    homeDir,
			JournalMode: string(sqliter.JournalWAL),
			BusyTimeout: sqliter.DefaultBusyTimeout.String(),
		},
		Pool: PoolConfig{
			Instances: 4,
			CacheSize: 200,
		},
	}
}

// Load loads configuration from the SQLITER_CONFIG environment
// variable.
//
// There are no fallbacks or defaults - if SQLITER_CONFIG is not set,
// this fails.
func Load() (*Config, error) {
	configPath := os.Getenv(EnvironmentVariable)
	if configPath == "" {
		return nil, fmt.Errorf("%s environment variable not set; "+
			"set it to the path of your database config file, or use --config flag", EnvironmentVariable)
	}

	return LoadFile(configPath)
}

// LoadFile loads configuration from a specific file path. Files ending
// in .json or .jsonc are read as JSON with comments; anything else as
// YAML.
//
// The only expansion performed is ${VAR} and ${VAR:-default} in path
// fields.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	if err := cfg.loadFile(path); err != nil {
		return nil, fmt.Errorf("config: loading %s: %w", path, err)
	}
	cfg.directory = filepath.Dir(path)

	// Apply environment-specific overrides (development/staging/production sections in the file).
	cfg.applyEnvironmentOverrides()

	cfg.expandVariables()

	return cfg, nil
}

// loadFile loads a single configuration file, merging into the current config.
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".jsonc":
		// JSON is a subset of YAML, so once comments and trailing
		// commas are stripped the YAML decoder reads it with the same
		// field tags.
		data = jsonc.ToJSON(data)
	}
	return yaml.Unmarshal(data, c)
}

// applyEnvironmentOverrides applies the environment-specific overrides.
func (c *Config) applyEnvironmentOverrides() {
	var overrides *ConfigOverrides

	switch c.Environment {
	case Development:
		overrides = c.Development
	case Staging:
		overrides = c.Staging
	case Production:
		overrides = c.Production
		// Production defaults: never log bound values, and fsync
		// every commit unless the file says otherwise.
		if overrides == nil {
			overrides = &ConfigOverrides{}
		}
		c.Database.VerboseDataLogging = false
		if c.Database.Synchronous == "" {
			c.Database.Synchronous = string(sqliter.SynchronousFull)
		}
	}

	if overrides == nil {
		return
	}

	if database := overrides.Database; database != nil {
		if database.Name != "" {
			c.Database.Name = database.Name
		}
		if database.BasePath != "" {
			c.Database.BasePath = database.BasePath
		}
		if database.Version != 0 {
			c.Database.Version = database.Version
		}
		if database.JournalMode != "" {
			c.Database.JournalMode = database.JournalMode
		}
		if database.BusyTimeout != "" {
			c.Database.BusyTimeout = database.BusyTimeout
		}
		if database.ForeignKeys != nil {
			c.Database.ForeignKeys = database.ForeignKeys
		}
		if database.RecursiveTriggers != nil {
			c.Database.RecursiveTriggers = database.RecursiveTriggers
		}
		if database.Synchronous != "" {
			c.Database.Synchronous = database.Synchronous
		}
		if database.PageSize != 0 {
			c.Database.PageSize = database.PageSize
		}
		if database.Lookaside != nil {
			c.Database.Lookaside = database.Lookaside
		}
		if database.KeyFile != "" {
			c.Database.KeyFile = database.KeyFile
		}
		if database.IdentityFile != "" {
			c.Database.IdentityFile = database.IdentityFile
		}
	}

	if pool := overrides.Pool; pool != nil {
		if pool.Instances != 0 {
			c.Pool.Instances = pool.Instances
		}
		if pool.CacheSize != 0 {
			c.Pool.CacheSize = pool.CacheSize
		}
	}
}

// expandVariables expands ${VAR} and ${VAR:-default} patterns in paths.
func (c *Config) expandVariables() {
	vars := map[string]string{
		"HOME":       os.Getenv("HOME"),
		"CONFIG_DIR": c.directory,
	}

	c.Database.BasePath = expandVars(c.Database.BasePath, vars)
	c.Database.KeyFile = expandVars(c.Database.KeyFile, vars)
	c.Database.IdentityFile = expandVars(c.Database.IdentityFile, vars)
	c.Schema = expandVars(c.Schema, vars)
	if c.Schema != "" && !filepath.IsAbs(c.Schema) && c.directory != "" {
		c.Schema = filepath.Join(c.directory, c.Schema)
	}
}

// expandVars expands ${VAR} and ${VAR:-default} patterns.
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

		// Check provided vars first, then environment.
		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if c.Environment != Development && c.Environment != Staging && c.Environment != Production {
		errs = append(errs, fmt.Errorf("invalid environment: %s", c.Environment))
	}

	if !c.Database.InMemory && c.Database.Name == "" {
		errs = append(errs, fmt.Errorf("database.name is required for an on-disk database"))
	}
	if strings.ContainsRune(c.Database.Name, '/') {
		errs = append(errs, fmt.Errorf("database.name must not contain a path separator: %q", c.Database.Name))
	}
	if c.Database.Version < 0 {
		errs = append(errs, fmt.Errorf("database.version must not be negative"))
	}

	journalModes := []string{string(sqliter.JournalDelete), string(sqliter.JournalWAL)}
	if !contains(journalModes, strings.ToUpper(c.Database.JournalMode)) {
		errs = append(errs, fmt.Errorf("database.journal_mode must be one of: %v", journalModes))
	}
	synchronousLevels := []string{"", "OFF", "NORMAL", "FULL", "EXTRA"}
	if !contains(synchronousLevels, strings.ToUpper(c.Database.Synchronous)) {
		errs = append(errs, fmt.Errorf("database.synchronous must be one of: %v", synchronousLevels[1:]))
	}
	if _, err := time.ParseDuration(c.Database.BusyTimeout); err != nil {
		errs = append(errs, fmt.Errorf("database.busy_timeout: %w", err))
	}
	if (c.Database.KeyFile == "") != (c.Database.IdentityFile == "") {
		errs = append(errs, fmt.Errorf("database.key_file and database.identity_file must be set together"))
	}

	if c.Pool.Instances < 0 {
		errs = append(errs, fmt.Errorf("pool.instances must not be negative"))
	}
	if c.Pool.CacheSize < 0 {
		errs = append(errs, fmt.Errorf("pool.cache_size must not be negative"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// SQLiter converts the file's database section into a sqliter.Config.
// When Schema is set its scripts become the Create and Upgrade
// callbacks; a zero Version then means the newest script. Without a
// schema the database is opened without version checking. The cipher
// key is not read here; see DatabaseConfig.KeyFile.
func (c *Config) SQLiter() (sqliter.Config, error) {
	if err := c.Validate(); err != nil {
		return sqliter.Config{}, err
	}
	busyTimeout, _ := time.ParseDuration(c.Database.BusyTimeout)

	result := sqliter.Config{
		Name:               c.Database.Name,
		BasePath:           c.Database.BasePath,
		Version:            c.Database.Version,
		InMemory:           c.Database.InMemory,
		JournalMode:        sqliter.JournalMode(strings.ToUpper(c.Database.JournalMode)),
		BusyTimeout:        busyTimeout,
		Synchronous:        sqliter.Synchronous(strings.ToUpper(c.Database.Synchronous)),
		PageSize:           c.Database.PageSize,
		VerboseDataLogging: c.Database.VerboseDataLogging,
	}
	if c.Database.ForeignKeys != nil {
		result.ForeignKeyConstraints = *c.Database.ForeignKeys
	}
	if c.Database.RecursiveTriggers != nil {
		result.RecursiveTriggers = *c.Database.RecursiveTriggers
	}
	if lookaside := c.Database.Lookaside; lookaside != nil {
		result.Lookaside = &sqliter.Lookaside{SlotSize: lookaside.SlotSize, SlotCount: lookaside.SlotCount}
	}

	if c.Schema == "" {
		if result.Version == 0 {
			result.Version = sqliter.NoVersionCheck
		}
		return result, nil
	}

	schema, err := LoadSchema(c.Schema)
	if err != nil {
		return sqliter.Config{}, err
	}
	if result.Version == 0 {
		result.Version = schema.Latest()
	}
	if err := schema.Covers(result.Version); err != nil {
		return sqliter.Config{}, err
	}
	result.Create = schema.Create(result.Version)
	result.Upgrade = schema.Upgrade
	return result, nil
}

func contains(slice []string, s string) bool {
	for _, v := range slice {
		if v == s {
			return true
		}
	}
	return false
}
