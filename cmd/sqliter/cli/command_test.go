// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/spf13/pflag"
)

func TestCommand_Execute_DispatchesToSubcommand(t *testing.T) {
	var called string

	root := &Command{
		Name: "sqliter",
		Subcommands: []*Command{
			{
				Name: "query",
				Run: func(ctx context.Context, args []string) error {
					called = "query"
					return nil
				},
			},
			{
				Name: "snapshot",
				Run: func(ctx context.Context, args []string) error {
					called = "snapshot"
					return nil
				},
			},
		},
	}

	if err := root.Execute(context.Background(), []string{"snapshot"}); err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if called != "snapshot" {
		t.Errorf("dispatched to %q, want %q", called, "snapshot")
	}
}

func TestCommand_Execute_NestedSubcommands(t *testing.T) {
	var receivedArgs []string

	root := &Command{
		Name: "sqliter",
		Subcommands: []*Command{
			{
				Name: "key",
				Subcommands: []*Command{
					{
						Name: "seal",
						Run: func(ctx context.Context, args []string) error {
							receivedArgs = args
							return nil
						},
					},
				},
			},
		},
	}

	if err := root.Execute(context.Background(), []string{"key", "seal", "extra-arg"}); err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if len(receivedArgs) != 1 || receivedArgs[0] != "extra-arg" {
		t.Errorf("args = %v, want [extra-arg]", receivedArgs)
	}
}

func TestCommand_Execute_PassesContext(t *testing.T) {
	type key struct{}
	ctx := context.WithValue(context.Background(), key{}, "marker")

	var seen any
	root := &Command{
		Name: "sqliter",
		Subcommands: []*Command{{
			Name: "exec",
			Run: func(ctx context.Context, args []string) error {
				seen = ctx.Value(key{})
				return nil
			},
		}},
	}
	if err := root.Execute(ctx, []string{"exec"}); err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if seen != "marker" {
		t.Errorf("context value = %v, want marker", seen)
	}
}

func TestCommand_Execute_FlagParsing(t *testing.T) {
	var configPath string
	var sql string

	command := &Command{
		Name: "query",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("query", pflag.ContinueOnError)
			flagSet.StringVar(&configPath, "config", "", "config file")
			return flagSet
		},
		Run: func(ctx context.Context, args []string) error {
			if len(args) > 0 {
				sql = args[0]
			}
			return nil
		},
	}

	if err := command.Execute(context.Background(), []string{"--config", "/etc/app.yaml", "SELECT 1"}); err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if configPath != "/etc/app.yaml" {
		t.Errorf("configPath = %q, want /etc/app.yaml", configPath)
	}
	if sql != "SELECT 1" {
		t.Errorf("sql = %q, want SELECT 1", sql)
	}
}

func TestCommand_Execute_UnknownFlagSuggestion(t *testing.T) {
	command := &Command{
		Name: "snapshot",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("snapshot", pflag.ContinueOnError)
			flagSet.String("compression", "zstd", "compression")
			flagSet.String("out", "", "output file")
			return flagSet
		},
		Run: func(ctx context.Context, args []string) error { return nil },
	}

	err := command.Execute(context.Background(), []string{"--compresion", "lz4"})
	if err == nil {
		t.Fatal("Execute() = nil, want error for unknown flag")
	}
	if !strings.Contains(err.Error(), "did you mean --compression") {
		t.Errorf("error = %q, want suggestion for --compression", err.Error())
	}
	if !strings.Contains(err.Error(), "--help") {
		t.Errorf("error = %q, should point to --help", err.Error())
	}
}

func TestCommand_Execute_UnknownSubcommandSuggestion(t *testing.T) {
	root := &Command{
		Name: "sqliter",
		Subcommands: []*Command{
			{Name: "migrate"},
			{Name: "restore"},
			{Name: "version"},
		},
	}

	err := root.Execute(context.Background(), []string{"restroe"})
	if err == nil {
		t.Fatal("Execute() = nil, want error for unknown subcommand")
	}
	if !strings.Contains(err.Error(), `did you mean "restore"`) {
		t.Errorf("error = %q, want suggestion for restore", err.Error())
	}

	err = root.Execute(context.Background(), []string{"zzzzzzz"})
	if err == nil || strings.Contains(err.Error(), "did you mean") {
		t.Errorf("error = %v, want no suggestion for distant input", err)
	}
}

func TestCommand_Execute_Help(t *testing.T) {
	for _, args := range [][]string{{"-h"}, {"--help"}, {"help"}, {"query", "--help"}} {
		t.Run(strings.Join(args, " "), func(t *testing.T) {
			var help bytes.Buffer
			root := &Command{
				Name:       "sqliter",
				Summary:    "Embedded database tool",
				HelpOutput: &help,
				Subcommands: []*Command{{
					Name:    "query",
					Summary: "Run a query",
					Flags: func() *pflag.FlagSet {
						flagSet := pflag.NewFlagSet("query", pflag.ContinueOnError)
						flagSet.String("format", "", "output format")
						return flagSet
					},
					Run: func(ctx context.Context, args []string) error {
						t.Fatal("Run should not be called for help")
						return nil
					},
				}},
			}

			if err := root.Execute(context.Background(), args); err != nil {
				t.Errorf("Execute(%v) error: %v", args, err)
			}
			if !strings.Contains(help.String(), "Usage:") {
				t.Errorf("help output missing usage: %q", help.String())
			}
		})
	}
}

func TestCommand_Execute_NoArgsShowsHelp(t *testing.T) {
	var help bytes.Buffer
	root := &Command{
		Name:        "sqliter",
		HelpOutput:  &help,
		Subcommands: []*Command{{Name: "exec", Summary: "Run a script"}},
	}

	if err := root.Execute(context.Background(), nil); err == nil {
		t.Fatal("Execute() = nil, want error for missing subcommand")
	}
	if !strings.Contains(help.String(), "exec") || !strings.Contains(help.String(), "Run a script") {
		t.Errorf("help should list subcommands, got %q", help.String())
	}
}

func TestCommand_Execute_UsageErrorExitCode(t *testing.T) {
	root := &Command{
		Name:        "sqliter",
		HelpOutput:  io.Discard,
		Subcommands: []*Command{{
			Name:  "query",
			Flags: func() *pflag.FlagSet { return pflag.NewFlagSet("query", pflag.ContinueOnError) },
			Run:   func(context.Context, []string) error { return nil },
		}},
	}

	for _, args := range [][]string{{"qeury"}, {}, {"query", "--bogus"}} {
		err := root.Execute(context.Background(), args)
		var usage *UsageError
		if !errors.As(err, &usage) {
			t.Errorf("Execute(%v) = %v, want a *UsageError", args, err)
			continue
		}
		if usage.ExitCode() != 2 {
			t.Errorf("ExitCode() = %d, want 2", usage.ExitCode())
		}
	}
}
