// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package task

import (
	"context"
	"errors"
	"fmt"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/pflag"

	"github.com/bureau-foundation/taskboard/cmd/taskboard/cli"
	"github.com/bureau-foundation/taskboard/lib/taskui"
	"github.com/bureau-foundation/taskboard/lib/taskview"
)

type watchParams struct {
	cli.BoardConnection
	Search string `json:"search" flag:"search,s" desc:"initial search term"`
	Status string `json:"status" flag:"status"   desc:"initial status filter (cycle with s)" default:"all"`
}

func watchCommand() *cli.Command {
	var params watchParams

	return &cli.Command{
		Name:    "watch",
		Summary: "Live board in the terminal",
		Description: `Open a full-screen view of the board that follows every change as it
is committed. Press 1 for the task list and 2 for your dashboard,
/ to filter, s to cycle the status filter, tab to move between the
list and the detail pane, and q to quit.`,
		Usage: "taskboard task watch [flags]",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("watch", &params)
		},
		Run: func(args []string) error {
			if !taskview.ValidStatusFilter(params.Status) {
				return fmt.Errorf("--status %q is not a status filter", params.Status)
			}
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			openCtx, openCancel := cli.CallContext()
			board, err := params.Open(openCtx)
			openCancel()
			if err != nil {
				return err
			}
			defer board.Close()

			refresh, _ := board.Config.RefreshInterval()
			deriver := taskview.NewDeriver(taskview.DeriverConfig{
				Source: board.Core,
				Session: taskview.Session{
					SearchTerm:   params.Search,
					StatusFilter: params.Status,
					ActorID:      board.Actor.ID,
				},
				Clock:   board.Clock,
				Refresh: refresh,
				Logger:  board.Logger,
			})
			var running sync.WaitGroup
			running.Add(1)
			go func() {
				defer running.Done()
				deriver.Run(ctx)
			}()
			defer running.Wait()
			defer cancel()

			model := taskui.NewModel(deriver)
			defer model.Close()

			_, err = tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
			if errors.Is(err, tea.ErrProgramKilled) {
				return nil
			}
			return err
		},
	}
}
