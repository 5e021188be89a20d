// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/sqliter/cmd/sqliter/cli"
	"github.com/bureau-foundation/sqliter/lib/process"
	"github.com/bureau-foundation/sqliter/lib/sqliter"
)

func (a *app) deleteCommand() *cli.Command {
	var (
		database databaseFlags
		yes      bool
	)
	return &cli.Command{
		Name:    "delete",
		Summary: "Delete the database and its journal files",
		Description: `Remove the configured database file together with its rollback
journal, write-ahead log, shared-memory index and master journals.
Nothing may have the database open.`,
		Usage: "sqliter delete --config FILE --yes",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("delete", pflag.ContinueOnError)
			database.register(flagSet)
			flagSet.BoolVar(&yes, "yes", false, "confirm the deletion")
			return flagSet
		},
		Run: func(ctx context.Context, args []string) error {
			cfg, err := database.load()
			if err != nil {
				return err
			}
			if cfg.Database.InMemory {
				return fmt.Errorf("in-memory databases have nothing on disk to delete")
			}
			path, err := sqliter.DatabasePath(cfg.Database.Name, cfg.Database.BasePath)
			if err != nil {
				return err
			}
			if !yes {
				return &process.ExitError{Code: 2, Err: fmt.Errorf("refusing to delete %s without --yes", path)}
			}
			if err := sqliter.DeleteDatabase(cfg.Database.Name, cfg.Database.BasePath); err != nil {
				return err
			}
			database.logger(a).Info("database deleted", "path", path)
			return nil
		},
	}
}
