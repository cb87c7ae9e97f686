// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package task

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/x/ansi"

	"github.com/bureau-foundation/taskboard/lib/schema/task"
	"github.com/bureau-foundation/taskboard/lib/taskview"
)

const (
	dueLayout        = "2006-01-02 15:04"
	titleColumnWidth = 48
)

// parseDue accepts an RFC 3339 time, a calendar date (due at the end
// of that day in now's location), or an offset from now: a Go duration
// such as "36h" or a whole number of days such as "3d".
func parseDue(value string, now time.Time) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, fmt.Errorf("--due is required")
	}
	if due, err := time.Parse(time.RFC3339, value); err == nil {
		return due, nil
	}
	if day, err := time.ParseInLocation(time.DateOnly, value, now.Location()); err == nil {
		return time.Date(day.Year(), day.Month(), day.Day(), 23, 59, 59, 0, now.Location()), nil
	}
	if days, ok := strings.CutSuffix(value, "d"); ok {
		count, err := strconv.Atoi(days)
		if err == nil && count > 0 {
			return now.AddDate(0, 0, count), nil
		}
	}
	if offset, err := time.ParseDuration(value); err == nil && offset > 0 {
		return now.Add(offset), nil
	}
	return time.Time{}, fmt.Errorf("--due %q: want RFC 3339, YYYY-MM-DD, a duration like 36h, or days like 3d", value)
}

func displayName(names map[string]string, userID string) string {
	if name := names[userID]; name != "" {
		return name
	}
	return userID
}

// formatDue renders the due date, flagging overdue tasks.
func formatDue(t task.Task, now time.Time) string {
	if t.DueAt.IsZero() {
		return "-"
	}
	due := t.DueAt.In(now.Location()).Format(dueLayout)
	if taskview.IsOverdue(t, now) {
		return due + " !"
	}
	return due
}

// writeTaskTable writes one row per task. Titles are truncated to keep
// rows on one line; pending tasks are marked with "*".
func writeTaskTable(w io.Writer, tasks []task.Task, names map[string]string, now time.Time) error {
	writer := tabwriter.NewWriter(w, 2, 0, 3, ' ', 0)
	fmt.Fprintln(writer, "ID\tSTATUS\tDUE\tASSIGNEE\tTITLE")
	for _, t := range tasks {
		id := t.ID
		if t.Pending {
			id += "*"
		}
		fmt.Fprintf(writer, "%s\t%s\t%s\t%s\t%s\n",
			id,
			t.Status,
			formatDue(t, now),
			displayName(names, t.AssignedTo),
			ansi.Truncate(t.Title, titleColumnWidth, "…"),
		)
	}
	return writer.Flush()
}
