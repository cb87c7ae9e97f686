// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package keygen implements "taskboard keygen": key material for
// backup archives and at-rest store encryption.
package keygen

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/taskboard/cmd/taskboard/cli"
	"github.com/bureau-foundation/taskboard/lib/sealed"
	"github.com/bureau-foundation/taskboard/lib/secret"
	"github.com/bureau-foundation/taskboard/lib/store"
)

// Command returns the "keygen" subcommand group.
func Command() *cli.Command {
	return &cli.Command{
		Name:    "keygen",
		Summary: "Generate backup and store encryption keys",
		Subcommands: []*cli.Command{
			backupCommand(),
			storeCommand(),
		},
	}
}

type keyParams struct {
	cli.JSONOutput
	Output string `json:"output" flag:"output,o" desc:"file to write the private key to (must not exist)"`
}

type backupResult struct {
	IdentityFile string `json:"identityFile"`
	Recipient    string `json:"recipient"`
}

func backupCommand() *cli.Command {
	var params keyParams

	return &cli.Command{
		Name:    "backup",
		Summary: "Generate an age keypair for backups",
		Description: `Generate an age x25519 keypair. The private identity is written to
--output with mode 0600; the public recipient is printed. Add the
recipient to backup.recipients and point backup.identity_file at the
identity.`,
		Usage: "taskboard keygen backup --output PATH [flags]",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("backup", &params)
		},
		Run: func(args []string) error {
			if params.Output == "" {
				return errors.New("--output is required")
			}
			keypair, err := sealed.GenerateKeypair()
			if err != nil {
				return err
			}
			defer keypair.Close()

			identity := make([]byte, 0, keypair.PrivateKey.Len()+1)
			identity = append(append(identity, keypair.PrivateKey.Bytes()...), '\n')
			defer secret.Zero(identity)
			if err := writeKeyFile(params.Output, identity); err != nil {
				return err
			}
			if done, err := params.EmitJSON(backupResult{IdentityFile: params.Output, Recipient: keypair.PublicKey}); done {
				return err
			}
			_, err = fmt.Fprintln(cli.Output, keypair.PublicKey)
			return err
		},
	}
}

func storeCommand() *cli.Command {
	var params keyParams

	return &cli.Command{
		Name:    "store",
		Summary: "Generate a store encryption key",
		Description: fmt.Sprintf(`Generate a random %d-byte key, hex encoded, for at-rest encryption
of document bodies. Set store.encryption_key_file to the written
file. Documents written before the key was configured stay readable.`, store.KeySize),
		Usage: "taskboard keygen store --output PATH [flags]",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("store", &params)
		},
		Run: func(args []string) error {
			if params.Output == "" {
				return errors.New("--output is required")
			}
			key, err := secret.New(store.KeySize)
			if err != nil {
				return err
			}
			defer key.Close()
			if _, err := rand.Read(key.Bytes()); err != nil {
				return fmt.Errorf("generating key: %w", err)
			}

			encoded := make([]byte, hex.EncodedLen(store.KeySize)+1)
			defer secret.Zero(encoded)
			hex.Encode(encoded, key.Bytes())
			encoded[len(encoded)-1] = '\n'
			if err := writeKeyFile(params.Output, encoded); err != nil {
				return err
			}

			if done, err := params.EmitJSON(map[string]string{"keyFile": params.Output}); done {
				return err
			}
			_, err = fmt.Fprintf(cli.Output, "wrote %s\n", params.Output)
			return err
		},
	}
}

// writeKeyFile creates path with mode 0600, refusing to replace an
// existing key.
func writeKeyFile(path string, data []byte) error {
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if errors.Is(err, fs.ErrExist) {
		return fmt.Errorf("%s already exists; refusing to overwrite a key", path)
	}
	if err != nil {
		return err
	}
	if _, err := file.Write(data); err != nil {
		file.Close()
		os.Remove(path)
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return file.Close()
}
