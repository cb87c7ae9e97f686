// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package commands builds the complete taskboard CLI command tree.
package commands

import (
	"fmt"

	"github.com/bureau-foundation/taskboard/cmd/taskboard/backup"
	"github.com/bureau-foundation/taskboard/cmd/taskboard/cli"
	"github.com/bureau-foundation/taskboard/cmd/taskboard/keygen"
	"github.com/bureau-foundation/taskboard/cmd/taskboard/seed"
	"github.com/bureau-foundation/taskboard/cmd/taskboard/task"
	"github.com/bureau-foundation/taskboard/cmd/taskboard/user"
	"github.com/bureau-foundation/taskboard/lib/version"
)

// Root builds and returns the complete taskboard CLI command tree.
func Root() *cli.Command {
	return &cli.Command{
		Name: "taskboard",
		Description: `Taskboard: a shared task board with a review workflow.

Create tasks, move them through open, in progress, review, and
closed, and watch the board update live as other people work.`,
		Subcommands: []*cli.Command{
			task.Command(),
			user.Command(),
			seed.Command(),
			backup.Command(),
			keygen.Command(),
			{
				Name:    "version",
				Summary: "Print version information",
				Run: func(args []string) error {
					_, err := fmt.Fprintf(cli.Output, "taskboard %s\n", version.Full())
					return err
				},
			},
		},
	}
}
