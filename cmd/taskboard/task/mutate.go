// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package task

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/taskboard/cmd/taskboard/cli"
	"github.com/bureau-foundation/taskboard/lib/lifecycle"
	"github.com/bureau-foundation/taskboard/lib/schema/task"
)

// --- create ---

type createParams struct {
	cli.BoardConnection
	cli.JSONOutput
	Title       string `json:"title"       flag:"title,t"       desc:"task title"`
	Description string `json:"description" flag:"description,d" desc:"task description (markdown)"`
	Assignee    string `json:"assignee"    flag:"assignee,a"    desc:"user id to assign (default: yourself)"`
	Due         string `json:"due"         flag:"due"           desc:"due date: RFC 3339, YYYY-MM-DD, 36h, or 3d"`
}

type createResult struct {
	ID string `json:"id"`
}

func createCommand() *cli.Command {
	var params createParams

	return &cli.Command{
		Name:    "create",
		Summary: "Create a task",
		Description: `Create an open task created by you. Title, description, and due
date are required; the assignee defaults to you.`,
		Usage: "taskboard task create --title TITLE --description TEXT --due WHEN [flags]",
		Examples: []cli.Example{
			{
				Description: "Assign a task due in three days",
				Command:     "taskboard task create -t 'Rotate TLS certs' -d 'Staging first.' --assignee grace --due 3d",
			},
		},
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("create", &params)
		},
		Run: func(args []string) error {
			if len(args) > 0 {
				return fmt.Errorf("unexpected argument %q", args[0])
			}
			return params.With(func(ctx context.Context, board *cli.Board) error {
				actor, err := board.RequireActor()
				if err != nil {
					return err
				}
				due, err := parseDue(params.Due, board.Now())
				if err != nil {
					return err
				}
				assignee := params.Assignee
				if assignee == "" {
					assignee = actor.ID
				}

				id, err := board.Engine.Create(ctx, lifecycle.Draft{
					Title:       params.Title,
					Description: params.Description,
					AssignedTo:  assignee,
					DueAt:       due,
				}, actor.ID)
				if err != nil {
					return err
				}

				if done, err := params.EmitJSON(createResult{ID: id}); done {
					return err
				}
				_, err = fmt.Fprintln(cli.Output, id)
				return err
			})
		},
	}
}

// --- begin, submit, approve, reject, close ---

type transition struct {
	op          lifecycle.Operation
	name        string
	summary     string
	description string
	apply       func(*lifecycle.Engine, context.Context, string, lifecycle.Actor) error
}

var (
	transitionBegin = transition{
		op:          lifecycle.OpBegin,
		name:        "begin",
		summary:     "Start work on an open task (assignee)",
		description: "Move an open task assigned to you to in_progress.",
		apply:       (*lifecycle.Engine).BeginWork,
	}
	transitionSubmit = transition{
		op:          lifecycle.OpSubmit,
		name:        "submit",
		summary:     "Submit a task for review (assignee)",
		description: "Move an in_progress task assigned to you to in_review.",
		apply:       (*lifecycle.Engine).SubmitForReview,
	}
	transitionApprove = transition{
		op:          lifecycle.OpApprove,
		name:        "approve",
		summary:     "Approve a task in review (creator)",
		description: "Complete an in_review task you created.",
		apply:       (*lifecycle.Engine).Approve,
	}
	transitionReject = transition{
		op:          lifecycle.OpReject,
		name:        "reject",
		summary:     "Send a task in review back to work (creator)",
		description: "Return an in_review task you created to in_progress.",
		apply:       (*lifecycle.Engine).Reject,
	}
	transitionClose = transition{
		op:      lifecycle.OpClose,
		name:    "close",
		summary: "Close a task (admin)",
		description: `Close a task from any status. Admins only. The closing admin and
time are recorded, and the task accepts no further changes.`,
		apply: (*lifecycle.Engine).Close,
	}
)

type transitionParams struct {
	cli.BoardConnection
	cli.JSONOutput
}

type transitionResult struct {
	ID        string              `json:"id"`
	Operation lifecycle.Operation `json:"operation"`
	From      task.Status         `json:"from"`
	To        task.Status         `json:"to"`
}

func transitionCommand(step transition) *cli.Command {
	var params transitionParams

	return &cli.Command{
		Name:        step.name,
		Summary:     step.summary,
		Description: step.description,
		Usage:       "taskboard task " + step.name + " TASK-ID [flags]",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams(step.name, &params)
		},
		Run: func(args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("usage: taskboard task %s TASK-ID", step.name)
			}
			taskID := args[0]
			return params.With(func(ctx context.Context, board *cli.Board) error {
				actor, err := board.RequireActor()
				if err != nil {
					return err
				}
				current, _ := board.Core.Settled(taskID)
				if err := step.apply(board.Engine, ctx, taskID, actor); err != nil {
					return err
				}
				target, _ := lifecycle.Target(step.op, current.Status)

				result := transitionResult{ID: taskID, Operation: step.op, From: current.Status, To: target}
				if done, err := params.EmitJSON(result); done {
					return err
				}
				_, err = fmt.Fprintf(cli.Output, "%s: %s -> %s\n", taskID, result.From, result.To)
				return err
			})
		},
	}
}

// --- reassign ---

type reassignParams struct {
	cli.BoardConnection
	cli.JSONOutput
}

type reassignResult struct {
	ID                string   `json:"id"`
	From              string   `json:"from"`
	To                string   `json:"to"`
	AssignmentHistory []string `json:"assignmentHistory"`
}

func reassignCommand() *cli.Command {
	var params reassignParams

	return &cli.Command{
		Name:    "reassign",
		Summary: "Hand a task to another user (creator or assignee)",
		Description: `Assign a task to another user. The new assignee is appended to the
task's assignment history. Reassigning to the current assignee fails.`,
		Usage: "taskboard task reassign TASK-ID USER-ID [flags]",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("reassign", &params)
		},
		Run: func(args []string) error {
			if len(args) != 2 {
				return fmt.Errorf("usage: taskboard task reassign TASK-ID USER-ID")
			}
			taskID, assignee := args[0], args[1]
			return params.With(func(ctx context.Context, board *cli.Board) error {
				actor, err := board.RequireActor()
				if err != nil {
					return err
				}
				current, _ := board.Core.Settled(taskID)
				if err := board.Engine.Reassign(ctx, taskID, actor, assignee); err != nil {
					return err
				}

				result := reassignResult{
					ID:                taskID,
					From:              current.AssignedTo,
					To:                assignee,
					AssignmentHistory: append(slices.Clone(current.AssignmentHistory), assignee),
				}
				if done, err := params.EmitJSON(result); done {
					return err
				}
				names := board.UserNames()
				_, err = fmt.Fprintf(cli.Output, "%s: %s -> %s\n", taskID,
					displayName(names, result.From), displayName(names, result.To))
				return err
			})
		},
	}
}

// --- comment ---

type commentParams struct {
	cli.BoardConnection
	cli.JSONOutput
}

type commentResult struct {
	ID      string `json:"id"`
	Comment string `json:"comment"`
}

func commentCommand() *cli.Command {
	var params commentParams

	return &cli.Command{
		Name:    "comment",
		Summary: "Comment on a task",
		Description: `Append a comment to a task. Remaining arguments are joined with
spaces to form the comment text. Comments are markdown.`,
		Usage: "taskboard task comment TASK-ID TEXT... [flags]",
		Examples: []cli.Example{
			{
				Description: "Leave a note for the reviewer",
				Command:     "taskboard task comment 6f1c 'Staging is done, see **runbook** step 4.'",
			},
		},
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("comment", &params)
		},
		Run: func(args []string) error {
			if len(args) < 2 {
				return fmt.Errorf("usage: taskboard task comment TASK-ID TEXT...")
			}
			taskID, text := args[0], strings.Join(args[1:], " ")
			return params.With(func(ctx context.Context, board *cli.Board) error {
				actor, err := board.RequireActor()
				if err != nil {
					return err
				}
				commentID, err := board.Engine.AddComment(ctx, taskID, actor, text)
				if err != nil {
					return err
				}
				if done, err := params.EmitJSON(commentResult{ID: taskID, Comment: commentID}); done {
					return err
				}
				_, err = fmt.Fprintln(cli.Output, commentID)
				return err
			})
		},
	}
}
