// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package seed

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/taskboard/cmd/taskboard/cli"
	"github.com/bureau-foundation/taskboard/lib/schema"
	"github.com/bureau-foundation/taskboard/lib/store"
)

type seedParams struct {
	cli.BoardConnection
	cli.JSONOutput
	DryRun bool `json:"dry_run" flag:"dry-run" desc:"validate the fixture without writing"`
}

// Result counts the documents a seed run wrote and skipped.
type Result struct {
	Created map[schema.Kind]int `json:"created"`
	Skipped map[schema.Kind]int `json:"skipped"`
}

// Command returns the "seed" command.
func Command() *cli.Command {
	var params seedParams

	return &cli.Command{
		Name:    "seed",
		Summary: "Import users and tasks from a JSONC fixture",
		Description: `Import users and tasks from a JSONC fixture file. The whole file is
validated before anything is written. Documents whose id already
exists are skipped, so a fixture can be applied repeatedly.`,
		Usage: "taskboard seed FILE [flags]",
		Examples: []cli.Example{
			{Description: "Check a fixture without touching the store", Command: "taskboard seed demo.jsonc --dry-run"},
		},
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("seed", &params)
		},
		Run: func(args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("usage: taskboard seed FILE")
			}
			file, err := ReadFile(args[0])
			if err != nil {
				return err
			}

			ctx, cancel := cli.CallContext()
			defer cancel()
			board, err := params.OpenStore(ctx)
			if err != nil {
				return err
			}
			defer board.Close()

			documents, err := file.Documents(board.Now())
			if err != nil {
				return err
			}
			result := Result{Created: map[schema.Kind]int{}, Skipped: map[schema.Kind]int{}}
			if !params.DryRun {
				if result, err = Apply(ctx, board.Store, documents); err != nil {
					return err
				}
			}

			if done, err := params.EmitJSON(result); done {
				return err
			}
			if params.DryRun {
				_, err = fmt.Fprintf(cli.Output, "%s: %d users, %d tasks OK\n", args[0], len(file.Users), len(file.Tasks))
				return err
			}
			for _, kind := range []schema.Kind{schema.KindUsers, schema.KindTasks} {
				fmt.Fprintf(cli.Output, "%s: %d created, %d skipped\n", kind, result.Created[kind], result.Skipped[kind])
			}
			return nil
		},
	}
}

// Apply writes documents in order. A document whose id exists is
// counted as skipped; any other failure stops the import.
func Apply(ctx context.Context, target store.Store, documents []Document) (Result, error) {
	result := Result{Created: map[schema.Kind]int{}, Skipped: map[schema.Kind]int{}}
	for _, document := range documents {
		_, err := target.Create(ctx, document.Kind, document.Fields)
		switch {
		case err == nil:
			result.Created[document.Kind]++
		case errors.Is(err, store.ErrExists):
			result.Skipped[document.Kind]++
		default:
			return result, fmt.Errorf("writing %s: %w", document.Label, err)
		}
	}
	return result, nil
}
