// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package task

import "github.com/bureau-foundation/taskboard/cmd/taskboard/cli"

// Command returns the "task" subcommand group.
func Command() *cli.Command {
	return &cli.Command{
		Name:    "task",
		Summary: "Create, progress, and inspect tasks",
		Description: `Create, progress, and inspect tasks.

A task moves open -> in_progress -> in_review -> completed. The
assignee begins work and submits for review; the creator approves or
rejects; an admin may close a task from any status. Closed tasks
accept no further changes.`,
		Subcommands: []*cli.Command{
			createCommand(),
			transitionCommand(transitionBegin),
			transitionCommand(transitionSubmit),
			transitionCommand(transitionApprove),
			transitionCommand(transitionReject),
			transitionCommand(transitionClose),
			reassignCommand(),
			commentCommand(),
			showCommand(),
			listCommand(),
			searchCommand(),
			dashboardCommand(),
			watchCommand(),
		},
	}
}
