// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"
	"sort"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/sqliter/cmd/sqliter/cli"
	"github.com/bureau-foundation/sqliter/lib/sqliter"
	"github.com/bureau-foundation/sqliter/lib/version"
)

func (a *app) versionCommand() *cli.Command {
	var outputJSON bool
	return &cli.Command{
		Name:    "version",
		Summary: "Print version information",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("version", pflag.ContinueOnError)
			flagSet.BoolVar(&outputJSON, "json", false, "output as JSON")
			return flagSet
		},
		Run: func(ctx context.Context, args []string) error {
			build := version.Current()
			engine, err := engineVersion()
			if err != nil {
				return err
			}
			build.Engine = engine

			if outputJSON {
				return cli.WriteJSON(a.stdout, build)
			}
			fmt.Fprintf(a.stdout, "sqliter %s\n", version.Info())
			fmt.Fprintf(a.stdout, "  Go: %s\n  Platform: %s\n  Engine: %s\n", build.Go, build.Platform, build.Engine)
			modules := make([]string, 0, len(build.Modules))
			for module := range build.Modules {
				modules = append(modules, module)
			}
			sort.Strings(modules)
			for _, module := range modules {
				fmt.Fprintf(a.stdout, "  %s: %s\n", module, build.Modules[module])
			}
			return nil
		},
	}
}

// engineVersion asks the linked engine for its version.
func engineVersion() (_ string, err error) {
	manager, err := sqliter.NewManager(sqliter.Config{
		InMemory: true,
		Version:  sqliter.NoVersionCheck,
	})
	if err != nil {
		return "", err
	}
	conn, err := manager.OpenExclusive()
	if err != nil {
		return "", err
	}
	defer func() {
		if closeErr := conn.Close(); err == nil && closeErr != nil {
			err = closeErr
		}
	}()
	return sqliter.StringForQuery(conn, "SELECT sqlite_version()")
}
