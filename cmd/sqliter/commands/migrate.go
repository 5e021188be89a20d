// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/sqliter/cmd/sqliter/cli"
	"github.com/bureau-foundation/sqliter/lib/sqliter"
)

func (a *app) migrateCommand() *cli.Command {
	var (
		database databaseFlags
		schema   string
		version  int
	)
	return &cli.Command{
		Name:    "migrate",
		Summary: "Create or upgrade the schema",
		Description: `Open the database and bring its schema to the target version.

An empty database runs every script from 1.sql up to the target. An
existing database runs the scripts after its stored version. A database
newer than the target is refused and left untouched.`,
		Usage: "sqliter migrate [flags]",
		Examples: []cli.Example{
			{
				Description: "Upgrade to the newest script in the configured schema directory",
				Command:     "sqliter migrate --config app.yaml",
			},
			{
				Description: "Stop at version 3",
				Command:     "sqliter migrate --config app.yaml --schema ./migrations --version 3",
			},
		},
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("migrate", pflag.ContinueOnError)
			database.register(flagSet)
			flagSet.StringVar(&schema, "schema", "", "directory of <version>.sql scripts (overrides schema)")
			flagSet.IntVar(&version, "version", 0, "target schema version (default: newest script)")
			return flagSet
		},
		Run: func(ctx context.Context, args []string) (err error) {
			if len(args) > 0 {
				return fmt.Errorf("unexpected arguments: %v", args)
			}
			cfg, err := database.load()
			if err != nil {
				return err
			}
			if schema != "" {
				cfg.Schema = schema
			}
			if version != 0 {
				cfg.Database.Version = version
			}
			if cfg.Schema == "" {
				return fmt.Errorf("no schema directory: set schema in the config file or pass --schema")
			}

			logger := database.logger(a)
			databaseConfig, err := databaseConfig(cfg, logger)
			if err != nil {
				return err
			}
			manager, err := sqliter.NewManager(databaseConfig)
			if err != nil {
				return err
			}
			conn, err := manager.OpenExclusive()
			if err != nil {
				return err
			}
			defer func() {
				if closeErr := conn.Close(); err == nil && closeErr != nil {
					err = closeErr
				}
			}()

			current, err := sqliter.Version(conn)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.stdout, "%s: schema version %d\n", manager.Path(), current)
			return nil
		},
	}
}
