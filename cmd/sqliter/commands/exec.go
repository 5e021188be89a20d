// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/sqliter/cmd/sqliter/cli"
)

func (a *app) execCommand() *cli.Command {
	var (
		database databaseFlags
		file     string
	)
	return &cli.Command{
		Name:    "exec",
		Summary: "Run SQL statements that return no rows",
		Description: `Run one or more SQL statements against the database. All statements
run as one unit: if any fails, none of them take effect.`,
		Usage: "sqliter exec [flags] SQL",
		Examples: []cli.Example{
			{Command: `sqliter exec --config app.yaml "DELETE FROM session WHERE expires < unixepoch()"`},
			{Description: "Run a script from standard input", Command: "sqliter exec --config app.yaml --file - < fixup.sql"},
		},
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("exec", pflag.ContinueOnError)
			database.register(flagSet)
			flagSet.StringVarP(&file, "file", "f", "", "read SQL from a file (- for standard input)")
			return flagSet
		},
		Run: func(ctx context.Context, args []string) (err error) {
			script, err := a.readScript(file, args)
			if err != nil {
				return err
			}
			if strings.TrimSpace(script) == "" {
				return fmt.Errorf("empty SQL script")
			}
			pool, _, err := database.openPool(a)
			if err != nil {
				return err
			}
			defer closePool(pool, &err)
			return pool.Transaction(ctx, func(ctx context.Context) error {
				return pool.Exec(ctx, script)
			})
		},
	}
}

// readScript returns the SQL given either as positional arguments or
// through --file.
func (a *app) readScript(file string, args []string) (string, error) {
	switch {
	case file != "" && len(args) > 0:
		return "", fmt.Errorf("give SQL either as an argument or with --file, not both")
	case file == "-":
		data, err := io.ReadAll(a.stdin)
		return string(data), err
	case file != "":
		data, err := os.ReadFile(file)
		return string(data), err
	case len(args) == 0:
		return "", fmt.Errorf("SQL required")
	default:
		return strings.Join(args, " "), nil
	}
}
