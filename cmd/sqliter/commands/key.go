// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/sqliter/cmd/sqliter/cli"
	"github.com/bureau-foundation/sqliter/lib/sealed"
	"github.com/bureau-foundation/sqliter/lib/secret"
)

func (a *app) keyCommand() *cli.Command {
	return &cli.Command{
		Name:    "key",
		Summary: "Manage age-encrypted cipher key files",
		Description: `Cipher keys for encrypted databases are stored as age-encrypted files
and decrypted at open time with --key-file and --identity.`,
		Subcommands: []*cli.Command{
			a.keyIdentityCommand(),
			a.keySealCommand(),
		},
	}
}

func (a *app) keyIdentityCommand() *cli.Command {
	var out string
	return &cli.Command{
		Name:    "identity",
		Summary: "Generate an age identity file",
		Description: `Generate an x25519 identity. The identity is written to --out with mode
0600 and its recipient is printed on standard output.`,
		Usage: "sqliter key identity --out PATH",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("identity", pflag.ContinueOnError)
			flagSet.StringVarP(&out, "out", "o", "", "identity file to create")
			return flagSet
		},
		Run: func(ctx context.Context, args []string) error {
			if out == "" {
				return fmt.Errorf("--out is required")
			}
			identity, err := sealed.GenerateIdentity()
			if err != nil {
				return err
			}
			defer identity.Close()

			file, err := os.OpenFile(out, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(file, "# recipient: %s\n", identity.Recipient)
			if err == nil {
				_, err = file.Write(identity.PrivateKey.Bytes())
			}
			if err == nil {
				_, err = file.WriteString("\n")
			}
			if closeErr := file.Close(); err == nil {
				err = closeErr
			}
			if err != nil {
				os.Remove(out)
				return err
			}
			fmt.Fprintln(a.stdout, identity.Recipient)
			return nil
		},
	}
}

func (a *app) keySealCommand() *cli.Command {
	var (
		in         string
		out        string
		recipients []string
	)
	return &cli.Command{
		Name:    "seal",
		Summary: "Encrypt a cipher key to age recipients",
		Usage:   "sqliter key seal --recipient AGE1... [--recipient ...] --in KEY --out PATH",
		Examples: []cli.Example{
			{
				Description: "Seal a fresh random key to a machine and an escrow recipient",
				Command:     "head -c 32 /dev/urandom | base64 | sqliter key seal -r age1machine... -r age1escrow... --in - --out db.key.age",
			},
		},
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("seal", pflag.ContinueOnError)
			flagSet.StringVarP(&in, "in", "i", "-", "plaintext key file (- for standard input)")
			flagSet.StringVarP(&out, "out", "o", "", "sealed key file to write (- for standard output)")
			flagSet.StringArrayVarP(&recipients, "recipient", "r", nil, "age recipient (repeatable)")
			return flagSet
		},
		Run: func(ctx context.Context, args []string) error {
			if out == "" {
				return fmt.Errorf("--out is required")
			}
			var key *secret.Buffer
			var err error
			if in == "-" {
				key, err = secret.Read(a.stdin)
			} else {
				key, err = secret.ReadFile(in)
			}
			if err != nil {
				return err
			}
			defer key.Close()

			return writeOutput(a.stdout, out, func(w io.Writer) error {
				return sealed.SealKey(w, key, recipients)
			})
		},
	}
}
