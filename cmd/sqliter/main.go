// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Command sqliter manages embedded SQL databases: schema migration,
// ad hoc statements and queries, snapshots, and encrypted key files.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/bureau-foundation/sqliter/cmd/sqliter/commands"
	"github.com/bureau-foundation/sqliter/lib/process"
)

func main() {
	if err := run(); err != nil {
		process.Fatal(err)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return commands.Root(os.Stdin, os.Stdout, os.Stderr).Execute(ctx, os.Args[1:])
}
