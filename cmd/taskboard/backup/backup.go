// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package backup implements "taskboard backup": encrypted archives of
// the store's committed documents, and restoring them.
//
// Archives are sealed to age recipients (backup.recipients in the
// configuration plus any --recipient flags) and opened with the
// matching age identity file. Generate a keypair with "taskboard
// keygen backup".
package backup

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/taskboard/cmd/taskboard/cli"
	"github.com/bureau-foundation/taskboard/lib/schema"
	"github.com/bureau-foundation/taskboard/lib/secret"
	"github.com/bureau-foundation/taskboard/lib/store"
)

// archiveTimeLayout names archives so they sort chronologically.
const archiveTimeLayout = "20060102T150405Z"

// Command returns the "backup" subcommand group.
func Command() *cli.Command {
	return &cli.Command{
		Name:    "backup",
		Summary: "Encrypted backups of the board",
		Description: `Write and restore encrypted backups of the board.

A backup holds every committed task, user, and notification. Writes
still pending in the store are not included. Restoring creates each
document under its original id and leaves documents that already
exist untouched.`,
		Subcommands: []*cli.Command{
			createCommand(),
			restoreCommand(),
		},
	}
}

type createParams struct {
	cli.BoardConnection
	cli.JSONOutput
	Output     string   `json:"output"     flag:"output,o"  desc:"archive path (default: a timestamped file in paths.backups)"`
	Recipients []string `json:"recipients" flag:"recipient" desc:"additional age recipient (repeatable)"`
}

type createResult struct {
	Path      string              `json:"path"`
	Documents map[schema.Kind]int `json:"documents"`
}

func createCommand() *cli.Command {
	var params createParams

	return &cli.Command{
		Name:    "create",
		Summary: "Write an encrypted backup",
		Usage:   "taskboard backup create [--output PATH] [--recipient AGE-KEY]... [flags]",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("create", &params)
		},
		Run: func(args []string) error {
			ctx, cancel := cli.CallContext()
			defer cancel()
			board, err := params.OpenStore(ctx)
			if err != nil {
				return err
			}
			defer board.Close()

			recipients := slices.Concat(board.Config.Backup.Recipients, params.Recipients)
			now := board.Now().UTC()
			path := params.Output
			if path == "" {
				if err := board.Config.EnsurePaths(); err != nil {
					return err
				}
				path = filepath.Join(board.Config.Paths.Backups, "taskboard-"+now.Format(archiveTimeLayout)+".age")
			}

			stats, err := writeArchive(ctx, board.Store, path, recipients, now)
			if err != nil {
				return err
			}
			board.Logger.Info("backup written", "path", path, "documents", stats)

			if done, err := params.EmitJSON(createResult{Path: path, Documents: stats}); done {
				return err
			}
			_, err = fmt.Fprintf(cli.Output, "%s: %s\n", path, formatStats(stats))
			return err
		},
	}
}

// writeArchive writes the backup to a temporary file next to path and
// renames it into place once complete.
func writeArchive(ctx context.Context, source store.Store, path string, recipients []string, now time.Time) (store.BackupStats, error) {
	file, err := os.CreateTemp(filepath.Dir(path), ".taskboard-backup-*")
	if err != nil {
		return nil, fmt.Errorf("creating backup file: %w", err)
	}
	temporary := file.Name()
	defer os.Remove(temporary)

	stats, err := store.Backup(ctx, source, file, recipients, now)
	if closeErr := file.Close(); err == nil && closeErr != nil {
		err = fmt.Errorf("writing backup file: %w", closeErr)
	}
	if err != nil {
		return nil, err
	}
	if err := os.Rename(temporary, path); err != nil {
		return nil, fmt.Errorf("moving backup into place: %w", err)
	}
	return stats, nil
}

type restoreParams struct {
	cli.BoardConnection
	cli.JSONOutput
	IdentityFile string `json:"identity_file" flag:"identity-file,i" desc:"age identity file (default: backup.identity_file; - for stdin)"`
}

type restoreResult struct {
	Restored map[schema.Kind]int `json:"restored"`
	Skipped  map[schema.Kind]int `json:"skipped"`
}

func restoreCommand() *cli.Command {
	var params restoreParams

	return &cli.Command{
		Name:    "restore",
		Summary: "Restore documents from an encrypted backup",
		Usage:   "taskboard backup restore ARCHIVE [--identity-file PATH] [flags]",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("restore", &params)
		},
		Run: func(args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("usage: taskboard backup restore ARCHIVE")
			}
			ctx, cancel := cli.CallContext()
			defer cancel()
			board, err := params.OpenStore(ctx)
			if err != nil {
				return err
			}
			defer board.Close()

			identityFile := params.IdentityFile
			if identityFile == "" {
				identityFile = board.Config.Backup.IdentityFile
			}
			if identityFile == "" {
				return fmt.Errorf("no age identity: pass --identity-file or set backup.identity_file")
			}
			identity, err := secret.ReadFromPath(identityFile)
			if err != nil {
				return fmt.Errorf("reading age identity: %w", err)
			}
			defer identity.Close()

			archive, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer archive.Close()

			restored, skipped, err := store.Restore(ctx, board.Store, archive, identity)
			if err != nil {
				return err
			}
			board.Logger.Info("backup restored", "archive", args[0], "restored", restored, "skipped", skipped)

			if done, err := params.EmitJSON(restoreResult{Restored: restored, Skipped: skipped}); done {
				return err
			}
			_, err = fmt.Fprintf(cli.Output, "restored: %s\nskipped: %s\n", formatStats(restored), formatStats(skipped))
			return err
		},
	}
}

// formatStats renders per-collection counts as "tasks 3, users 2".
func formatStats(stats store.BackupStats) string {
	if len(stats) == 0 {
		return "nothing"
	}
	parts := make([]string, 0, len(stats))
	for kind, count := range stats {
		parts = append(parts, fmt.Sprintf("%s %d", kind, count))
	}
	sort.Strings(parts)
	return strings.Join(parts, ", ")
}
