// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package task

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/charmbracelet/x/ansi"
	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/bureau-foundation/taskboard/cmd/taskboard/cli"
	"github.com/bureau-foundation/taskboard/lib/schema/task"
	"github.com/bureau-foundation/taskboard/lib/taskui"
	"github.com/bureau-foundation/taskboard/lib/taskview"
)

const defaultShowWidth = 80

// --- show ---

type showParams struct {
	cli.BoardConnection
	cli.JSONOutput
}

func showCommand() *cli.Command {
	var params showParams

	return &cli.Command{
		Name:    "show",
		Summary: "Show one task with its comments",
		Usage:   "taskboard task show TASK-ID [flags]",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("show", &params)
		},
		Run: func(args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("usage: taskboard task show TASK-ID")
			}
			return params.With(func(ctx context.Context, board *cli.Board) error {
				found, ok := board.Core.Task(args[0])
				if !ok {
					return fmt.Errorf("task %s not found", args[0])
				}
				if done, err := params.EmitJSON(found); done {
					return err
				}
				lines := taskui.RenderDetail(found, board.UserNames(), board.Now(), taskui.DefaultTheme, outputWidth())
				_, err := fmt.Fprintln(cli.Output, strings.Join(lines, "\n"))
				return err
			})
		},
	}
}

// outputWidth is the terminal width when stdout is a terminal.
func outputWidth() int {
	if file, ok := cli.Output.(*os.File); ok {
		if width, _, err := term.GetSize(int(file.Fd())); err == nil && width > 0 {
			return width
		}
	}
	return defaultShowWidth
}

// --- list ---

type listParams struct {
	cli.BoardConnection
	cli.JSONOutput
	Search string `json:"search" flag:"search,s" desc:"case-insensitive substring of title or description"`
	Status string `json:"status" flag:"status"   desc:"status filter: all, open, in_progress, in_review, completed, closed" default:"all"`
}

func listCommand() *cli.Command {
	var params listParams

	return &cli.Command{
		Name:    "list",
		Summary: "List tasks",
		Description: `List tasks in creation order. Tasks whose creation has not been
confirmed by the store are marked with "*" and listed after the rest.
Overdue due dates are marked with "!".`,
		Usage: "taskboard task list [--search TEXT] [--status STATUS] [flags]",
		Examples: []cli.Example{
			{Description: "Tasks waiting for review", Command: "taskboard task list --status in_review"},
		},
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("list", &params)
		},
		Run: func(args []string) error {
			if len(args) > 0 {
				return fmt.Errorf("unexpected argument %q", args[0])
			}
			if !taskview.ValidStatusFilter(params.Status) {
				return fmt.Errorf("--status %q: want %s or one of %v", params.Status, taskview.StatusAll, task.Statuses)
			}
			return params.With(func(ctx context.Context, board *cli.Board) error {
				projection := taskview.Derive(board.Core.State(), taskview.Session{
					SearchTerm:   params.Search,
					StatusFilter: params.Status,
					ActorID:      board.Actor.ID,
				}, board.Now())

				if done, err := params.EmitJSON(projection.Filtered); done {
					return err
				}
				if len(projection.Filtered) == 0 {
					_, err := fmt.Fprintln(cli.Output, "no matching tasks")
					return err
				}
				return writeTaskTable(cli.Output, projection.Filtered, board.UserNames(), projection.DerivedAt)
			})
		},
	}
}

// --- search ---

type searchParams struct {
	cli.BoardConnection
	cli.JSONOutput
	Limit int `json:"limit" flag:"limit,n" desc:"maximum results (0 for all)" default:"10"`
}

func searchCommand() *cli.Command {
	var params searchParams

	return &cli.Command{
		Name:    "search",
		Summary: "Rank tasks by relevance to a query",
		Description: `Rank tasks by relevance to the query words. Unlike "list --search",
which matches one exact substring, search scores every word against
titles and descriptions, a title match counting twice a description
match.`,
		Usage: "taskboard task search QUERY... [flags]",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("search", &params)
		},
		Run: func(args []string) error {
			if len(args) == 0 {
				return fmt.Errorf("usage: taskboard task search QUERY...")
			}
			query := strings.Join(args, " ")
			return params.With(func(ctx context.Context, board *cli.Board) error {
				ranked := taskview.Rank(board.Core.Tasks(), query, params.Limit)
				if done, err := params.EmitJSON(ranked); done {
					return err
				}
				if len(ranked) == 0 {
					_, err := fmt.Fprintln(cli.Output, "no matching tasks")
					return err
				}
				writer := tabwriter.NewWriter(cli.Output, 2, 0, 3, ' ', 0)
				fmt.Fprintln(writer, "SCORE\tID\tSTATUS\tTITLE")
				for _, result := range ranked {
					fmt.Fprintf(writer, "%.2f\t%s\t%s\t%s\n", result.Score, result.ID, result.Status,
						ansi.Truncate(result.Title, titleColumnWidth, "…"))
				}
				return writer.Flush()
			})
		},
	}
}

// --- dashboard ---

// exitCodeOverdue is returned by "dashboard --exit-overdue" when the
// actor has overdue tasks.
const exitCodeOverdue = 2

type dashboardParams struct {
	cli.BoardConnection
	cli.JSONOutput
	ExitOverdue bool `json:"exit_overdue" flag:"exit-overdue" desc:"exit with status 2 when you have overdue tasks"`
}

type dashboardResult struct {
	Actor   string              `json:"actor"`
	Buckets taskview.Buckets    `json:"buckets"`
	Counts  map[task.Status]int `json:"counts"`
}

func dashboardCommand() *cli.Command {
	var params dashboardParams

	return &cli.Command{
		Name:    "dashboard",
		Summary: "Your tasks: overdue, assigned, created, completed",
		Description: `Show your dashboard: open tasks assigned to you by due date (the
overdue ones again on their own), the open tasks you created, and
the closed tasks you created, followed by task counts per status.`,
		Usage: "taskboard task dashboard [--exit-overdue] [flags]",
		Examples: []cli.Example{
			{Description: "Fail a cron job while anything of yours is overdue", Command: "taskboard task dashboard --exit-overdue > /dev/null"},
		},
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("dashboard", &params)
		},
		Run: func(args []string) error {
			return params.With(func(ctx context.Context, board *cli.Board) error {
				actor, err := board.RequireActor()
				if err != nil {
					return err
				}
				projection := taskview.Derive(board.Core.State(), taskview.Session{ActorID: actor.ID}, board.Now())
				buckets := projection.Buckets

				result := dashboardResult{Actor: actor.ID, Buckets: buckets, Counts: projection.Counts}
				done, err := params.EmitJSON(result)
				if err != nil {
					return err
				}
				if !done {
					if err := writeDashboard(board, projection); err != nil {
						return err
					}
				}

				if params.ExitOverdue && len(buckets.Overdue) > 0 {
					return &cli.ExitError{Code: exitCodeOverdue}
				}
				return nil
			})
		},
	}
}

func writeDashboard(board *cli.Board, projection taskview.Projection) error {
	names := board.UserNames()
	sections := []struct {
		title string
		tasks []task.Task
	}{
		{"Overdue", projection.Buckets.Overdue},
		{"Assigned to me", projection.Buckets.AssignedToMe},
		{"Created by me", projection.Buckets.CreatedByMe},
		{"Completed by me", projection.Buckets.CompletedByMe},
	}
	for _, section := range sections {
		fmt.Fprintf(cli.Output, "%s (%d)\n", section.title, len(section.tasks))
		if len(section.tasks) > 0 {
			if err := writeTaskTable(cli.Output, section.tasks, names, projection.DerivedAt); err != nil {
				return err
			}
		}
		fmt.Fprintln(cli.Output)
	}

	counts := make([]string, 0, len(task.Statuses))
	for _, status := range task.Statuses {
		counts = append(counts, fmt.Sprintf("%s %d", status, projection.Counts[status]))
	}
	_, err := fmt.Fprintln(cli.Output, strings.Join(counts, "  "))
	return err
}
