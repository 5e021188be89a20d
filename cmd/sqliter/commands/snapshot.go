// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/sqliter/cmd/sqliter/cli"
	"github.com/bureau-foundation/sqliter/lib/snapshot"
	"github.com/bureau-foundation/sqliter/lib/sqliter"
)

func (a *app) snapshotCommand() *cli.Command {
	var (
		database    databaseFlags
		out         string
		compression string
	)
	return &cli.Command{
		Name:    "snapshot",
		Summary: "Write a compressed copy of the live database",
		Description: `Copy the database with VACUUM INTO and write it, compressed, to a
snapshot file. Other connections keep working while the copy is taken.`,
		Usage: "sqliter snapshot [flags] --out PATH",
		Examples: []cli.Example{
			{Command: "sqliter snapshot --config app.yaml --out app-$(date +%F).snap"},
		},
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("snapshot", pflag.ContinueOnError)
			database.register(flagSet)
			flagSet.StringVarP(&out, "out", "o", "", "snapshot file to write (- for standard output)")
			flagSet.StringVar(&compression, "compression", "zstd", "zstd, lz4 or none")
			return flagSet
		},
		Run: func(ctx context.Context, args []string) (err error) {
			if out == "" {
				return fmt.Errorf("--out is required")
			}
			algorithm, err := snapshot.ParseCompression(compression)
			if err != nil {
				return err
			}

			pool, _, err := database.openPool(a)
			if err != nil {
				return err
			}
			defer closePool(pool, &err)

			ctx, instance, err := pool.Take(ctx)
			if err != nil {
				return err
			}
			defer pool.Put(ctx)

			return writeOutput(a.stdout, out, func(w io.Writer) error {
				manifest, err := snapshot.Create(instance.Connection(), w, snapshot.Options{
					Compression: algorithm,
					Source:      pool.Path(),
					TempDir:     snapshotTempDir(out),
					Logger:      database.logger(a),
				})
				if err != nil {
					return err
				}
				if out != "-" {
					fmt.Fprintf(a.stdout, "%s: schema version %d, %d bytes\n", out, manifest.SchemaVersion, manifest.Size)
				}
				return nil
			})
		},
	}
}

// snapshotTempDir keeps the intermediate image on the same filesystem
// as the output when there is one.
func snapshotTempDir(out string) string {
	if out == "-" {
		return ""
	}
	return filepath.Dir(out)
}

// writeOutput runs write against path, or stdout for "-". A file is
// written under a temporary name and renamed into place on success.
func writeOutput(stdout io.Writer, path string, write func(io.Writer) error) error {
	if path == "-" {
		return write(stdout)
	}
	file, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".partial-")
	if err != nil {
		return err
	}
	if err := write(file); err != nil {
		file.Close()
		os.Remove(file.Name())
		return err
	}
	if err := errors.Join(file.Sync(), file.Close()); err != nil {
		os.Remove(file.Name())
		return err
	}
	return os.Rename(file.Name(), path)
}

func (a *app) restoreCommand() *cli.Command {
	var (
		database   databaseFlags
		in         string
		to         string
		skipVerify bool
	)
	return &cli.Command{
		Name:    "restore",
		Summary: "Replace a database with a snapshot",
		Description: `Restore a snapshot written by "sqliter snapshot". The target is either
--to PATH or the database named by --config. The image is verified
before anything on disk is replaced. Stop every process using the
database first.`,
		Usage: "sqliter restore --in PATH (--to PATH | --config FILE)",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("restore", pflag.ContinueOnError)
			database.register(flagSet)
			flagSet.StringVarP(&in, "in", "i", "", "snapshot file to read (- for standard input)")
			flagSet.StringVar(&to, "to", "", "database file to write")
			flagSet.BoolVar(&skipVerify, "skip-verify", false, "skip the integrity check of the restored image")
			return flagSet
		},
		Run: func(ctx context.Context, args []string) error {
			if in == "" {
				return fmt.Errorf("--in is required")
			}
			options := snapshot.RestoreOptions{
				SkipVerify: skipVerify,
				Logger:     database.logger(a),
			}

			if to == "" {
				cfg, err := database.load()
				if err != nil {
					return fmt.Errorf("no --to given and no usable config: %w", err)
				}
				if cfg.Database.InMemory {
					return fmt.Errorf("cannot restore into an in-memory database")
				}
				to, err = sqliter.DatabasePath(cfg.Database.Name, cfg.Database.BasePath)
				if err != nil {
					return err
				}
				databaseConfig, err := databaseConfig(cfg, options.Logger)
				if err != nil {
					return err
				}
				options.EncryptionKey = databaseConfig.EncryptionKey
			}

			var source io.Reader = a.stdin
			if in != "-" {
				file, err := os.Open(in)
				if err != nil {
					return err
				}
				defer file.Close()
				source = file
			}

			manifest, err := snapshot.Restore(source, to, options)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.stdout, "%s: restored schema version %d from %s\n", to, manifest.SchemaVersion, in)
			return nil
		},
	}
}
