// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"fmt"
	"log/slog"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/sqliter/cmd/sqliter/cli"
	"github.com/bureau-foundation/sqliter/lib/config"
	"github.com/bureau-foundation/sqliter/lib/sealed"
	"github.com/bureau-foundation/sqliter/lib/sqliter"
	"github.com/bureau-foundation/sqliter/lib/sqlitepool"
)

// databaseFlags are the flags shared by every command that opens the
// configured database.
type databaseFlags struct {
	configPath string
	keyFile    string
	identity   string
	verbose    bool
}

func (f *databaseFlags) register(flagSet *pflag.FlagSet) {
	flagSet.StringVarP(&f.configPath, "config", "c", "", "database config file (default: $"+config.EnvironmentVariable+")")
	flagSet.StringVar(&f.keyFile, "key-file", "", "age-encrypted cipher key file (overrides database.key_file)")
	flagSet.StringVar(&f.identity, "identity", "", "age identity file that decrypts --key-file (overrides database.identity_file)")
	flagSet.BoolVarP(&f.verbose, "verbose", "v", false, "log debug messages, including every statement")
}

func (f *databaseFlags) logger(a *app) *slog.Logger {
	return cli.NewCommandLogger(a.stderr, f.verbose)
}

// load reads the configuration file and applies the key flags.
func (f *databaseFlags) load() (*config.Config, error) {
	var cfg *config.Config
	var err error
	if f.configPath != "" {
		cfg, err = config.LoadFile(f.configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}
	if f.keyFile != "" {
		cfg.Database.KeyFile = f.keyFile
	}
	if f.identity != "" {
		cfg.Database.IdentityFile = f.identity
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// databaseConfig converts cfg and decrypts its cipher key, if any.
func databaseConfig(cfg *config.Config, logger *slog.Logger) (sqliter.Config, error) {
	database, err := cfg.SQLiter()
	if err != nil {
		return sqliter.Config{}, err
	}
	database.Logger = logger

	if cfg.Database.KeyFile != "" {
		key, err := sealed.OpenKeyFile(cfg.Database.KeyFile, cfg.Database.IdentityFile)
		if err != nil {
			return sqliter.Config{}, err
		}
		// PRAGMA key takes a string, so this heap copy is unavoidable.
		database.EncryptionKey = key.String()
		if err := key.Close(); err != nil {
			return sqliter.Config{}, err
		}
	}
	return database, nil
}

// openPool loads the configuration and opens a pool on it.
func (f *databaseFlags) openPool(a *app) (*sqlitepool.Pool, *config.Config, error) {
	cfg, err := f.load()
	if err != nil {
		return nil, nil, err
	}
	logger := f.logger(a)
	database, err := databaseConfig(cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	pool, err := sqlitepool.Open(sqlitepool.Config{
		Database:  database,
		Instances: cfg.Pool.Instances,
		CacheSize: cfg.Pool.CacheSize,
		Logger:    logger,
	})
	if err != nil {
		return nil, nil, err
	}
	return pool, cfg, nil
}

// closePool closes pool and keeps the first error.
func closePool(pool *sqlitepool.Pool, err *error) {
	if closeErr := pool.Close(); *err == nil && closeErr != nil {
		*err = closeErr
	}
}
