// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package user implements the "taskboard user" command group: the
// users table, the signed-in identity, and registration notices.
package user

import (
	"context"
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/taskboard/cmd/taskboard/cli"
	"github.com/bureau-foundation/taskboard/lib/schema/task"
)

// Command returns the "user" subcommand group.
func Command() *cli.Command {
	return &cli.Command{
		Name:    "user",
		Summary: "Users and registration notices",
		Description: `Inspect users and registration notices.

Users are created the first time an identity opens the board. Users
whose email is listed in identity.admin_emails start approved as
admins; everyone else waits for approval, and the admin named by
identity.admin_recipient is sent a registration notice.`,
		Subcommands: []*cli.Command{
			listCommand(),
			whoamiCommand(),
			notificationsCommand(),
		},
	}
}

type listParams struct {
	cli.BoardConnection
	cli.JSONOutput
}

func listCommand() *cli.Command {
	var params listParams

	return &cli.Command{
		Name:    "list",
		Summary: "List users",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("list", &params)
		},
		Run: func(args []string) error {
			return params.With(func(ctx context.Context, board *cli.Board) error {
				users := board.Core.Users()
				if done, err := params.EmitJSON(users); done {
					return err
				}
				writer := tabwriter.NewWriter(cli.Output, 2, 0, 3, ' ', 0)
				fmt.Fprintln(writer, "ID\tNAME\tEMAIL\tAPPROVED\tADMIN")
				for _, user := range users {
					fmt.Fprintf(writer, "%s\t%s\t%s\t%s\t%s\n",
						user.ID, user.Name, orDash(user.Email), yesNo(user.Approved), yesNo(user.Admin))
				}
				return writer.Flush()
			})
		},
	}
}

type whoamiParams struct {
	cli.BoardConnection
	cli.JSONOutput
}

type whoamiResult struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Admin bool   `json:"admin"`
}

func whoamiCommand() *cli.Command {
	var params whoamiParams

	return &cli.Command{
		Name:    "whoami",
		Summary: "Show the acting user",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("whoami", &params)
		},
		Run: func(args []string) error {
			return params.With(func(ctx context.Context, board *cli.Board) error {
				actor, err := board.RequireActor()
				if err != nil {
					return err
				}
				result := whoamiResult{ID: actor.ID, Name: actor.Name, Admin: actor.Admin}
				if done, err := params.EmitJSON(result); done {
					return err
				}
				role := "member"
				if actor.Admin {
					role = "admin"
				}
				_, err = fmt.Fprintf(cli.Output, "%s (%s, %s)\n", actor.Name, actor.ID, role)
				return err
			})
		},
	}
}

type notificationsParams struct {
	cli.BoardConnection
	cli.JSONOutput
	Recipient string `json:"recipient" flag:"recipient" desc:"recipient user id (default: yourself)"`
}

func notificationsCommand() *cli.Command {
	var params notificationsParams

	return &cli.Command{
		Name:    "notifications",
		Summary: "List registration notices addressed to a user",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("notifications", &params)
		},
		Run: func(args []string) error {
			return params.With(func(ctx context.Context, board *cli.Board) error {
				if board.Emitter == nil {
					return errors.New("notifications are disabled: identity.admin_recipient is not configured")
				}
				recipient := params.Recipient
				if recipient == "" {
					actor, err := board.RequireActor()
					if err != nil {
						return err
					}
					recipient = actor.ID
				}

				notifications := board.Emitter.Notifications(recipient)
				if done, err := params.EmitJSON(notifications); done {
					return err
				}
				if len(notifications) == 0 {
					_, err := fmt.Fprintf(cli.Output, "no notifications for %s\n", recipient)
					return err
				}
				writer := tabwriter.NewWriter(cli.Output, 2, 0, 3, ' ', 0)
				fmt.Fprintln(writer, "USER\tREAD\tMESSAGE")
				for _, notification := range notifications {
					fmt.Fprintf(writer, "%s\t%s\t%s\n", notification.RelatedUserID, yesNo(notification.Read), message(notification))
				}
				return writer.Flush()
			})
		},
	}
}

func message(notification task.Notification) string {
	if notification.Pending {
		return notification.Message + " (saving)"
	}
	return notification.Message
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}

func orDash(value string) string {
	if value == "" {
		return "-"
	}
	return value
}
