// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/sqliter/cmd/sqliter/cli"
	"github.com/bureau-foundation/sqliter/lib/native"
	"github.com/bureau-foundation/sqliter/lib/sqliter"
	"github.com/bureau-foundation/sqliter/lib/sqlitepool"
)

func (a *app) queryCommand() *cli.Command {
	var (
		database databaseFlags
		format   string
	)
	return &cli.Command{
		Name:    "query",
		Summary: "Run a query and print its rows",
		Description: `Run one SQL statement and print the rows it returns. Extra arguments
are bound, as text, to the statement's parameters in order.

Output is a table on a terminal and JSON otherwise. --format cbor writes
a single CBOR map with "columns" and "rows".`,
		Usage: "sqliter query [flags] SQL [ARGS...]",
		Examples: []cli.Example{
			{Command: `sqliter query --config app.yaml "SELECT id, title FROM note WHERE owner = ?" alice`},
			{Description: "Feed a CBOR pipeline", Command: `sqliter query --format cbor "SELECT * FROM event" > events.cbor`},
		},
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("query", pflag.ContinueOnError)
			database.register(flagSet)
			flagSet.StringVar(&format, "format", "", "output format: table, json or cbor (default: table on a terminal, json otherwise)")
			return flagSet
		},
		Run: func(ctx context.Context, args []string) (err error) {
			if len(args) == 0 {
				return fmt.Errorf("SQL required")
			}
			outputFormat, err := cli.ParseFormat(format)
			if err != nil {
				return err
			}

			pool, _, err := database.openPool(a)
			if err != nil {
				return err
			}
			defer closePool(pool, &err)

			sql, parameters := args[0], args[1:]
			bind := func(stmt *sqlitepool.Statement) error {
				for _, parameter := range parameters {
					if err := stmt.Text(parameter); err != nil {
						return err
					}
				}
				return nil
			}
			result := &cli.ResultSet{}
			if err := pool.Query(ctx, sql, bind, func(cursor sqliter.Cursor) error {
				return collectRows(cursor, result)
			}); err != nil {
				return err
			}
			return cli.WriteResult(a.stdout, outputFormat, result)
		},
	}
}

// collectRows reads every row of cursor into result.
func collectRows(cursor sqliter.Cursor, result *cli.ResultSet) error {
	columns := cursor.ColumnCount()
	result.Columns = make([]string, columns)
	for col := range columns {
		result.Columns[col] = cursor.ColumnName(col)
	}
	for {
		more, err := cursor.Next()
		if err != nil {
			return err
		}
		if !more {
			return nil
		}
		row := make([]any, columns)
		for col := range columns {
			row[col] = columnValue(cursor, col)
		}
		result.Rows = append(result.Rows, row)
	}
}

func columnValue(cursor sqliter.Cursor, col int) any {
	switch cursor.ColumnType(col) {
	case native.TypeInteger:
		return cursor.Int64(col)
	case native.TypeFloat:
		return cursor.Float(col)
	case native.TypeText:
		return cursor.Text(col)
	case native.TypeBlob:
		return cursor.Blob(col)
	default:
		return nil
	}
}
