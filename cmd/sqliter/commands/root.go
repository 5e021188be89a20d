// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"io"

	"github.com/bureau-foundation/sqliter/cmd/sqliter/cli"
)

// app carries the output streams every command writes to.
type app struct {
	stdout io.Writer
	stderr io.Writer
	stdin  io.Reader
}

// Root returns the sqliter command tree writing to the given streams.
func Root(stdin io.Reader, stdout, stderr io.Writer) *cli.Command {
	a := &app{stdin: stdin, stdout: stdout, stderr: stderr}
	return &cli.Command{
		Name:    "sqliter",
		Summary: "Manage embedded SQL databases",
		Description: `sqliter opens databases through the same connection manager and pool
that services embed: pragmas, schema migration and busy retries behave
exactly as they do in production.

The database is described by a configuration file given with --config
or the SQLITER_CONFIG environment variable.`,
		HelpOutput: stderr,
		Subcommands: []*cli.Command{
			a.migrateCommand(),
			a.execCommand(),
			a.queryCommand(),
			a.snapshotCommand(),
			a.restoreCommand(),
			a.deleteCommand(),
			a.keyCommand(),
			a.versionCommand(),
		},
	}
}
