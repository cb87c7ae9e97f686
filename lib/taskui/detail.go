// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package taskui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/bureau-foundation/taskboard/lib/schema/task"
	"github.com/bureau-foundation/taskboard/lib/taskview"
)

const detailTimeLayout = "2006-01-02 15:04"

// displayName returns the user's name, or the raw id for users the
// table does not (yet) hold.
func displayName(names map[string]string, userID string) string {
	if name := names[userID]; name != "" {
		return name
	}
	return userID
}

// RenderDetail renders one task as individual lines no wider than
// width. The watch view's detail pane and "task show" both use it.
func RenderDetail(t task.Task, names map[string]string, now time.Time, theme Theme, width int) []string {
	faint := lipgloss.NewStyle().Foreground(theme.FaintText)
	label := func(name string) string { return faint.Render(name + ": ") }

	var sections []string

	title := lipgloss.NewStyle().Bold(true).Foreground(theme.HeaderForeground).Render(t.Title)
	sections = append(sections, ansi.Wrap(title, width, wrapBreakpoints))

	status := lipgloss.NewStyle().Foreground(theme.StatusColor(t.Status)).Render(statusIcon(t.Status) + " " + string(t.Status))
	meta := []string{status, faint.Render(t.ID)}
	if t.Pending {
		meta = append(meta, faint.Render("saving…"))
	}
	sections = append(sections, strings.Join(meta, faint.Render(" · ")))

	due := t.DueAt.Local().Format(detailTimeLayout)
	if taskview.IsOverdue(t, now) {
		due += " " + lipgloss.NewStyle().Bold(true).Foreground(theme.Overdue).Render("OVERDUE")
	}
	facts := []string{
		label("assignee") + displayName(names, t.AssignedTo),
		label("due") + due,
		label("created by") + displayName(names, t.CreatedBy),
	}
	if !t.CreatedAt.IsZero() {
		facts = append(facts, label("created")+t.CreatedAt.Local().Format(detailTimeLayout))
	}
	if len(t.AssignmentHistory) > 1 {
		history := make([]string, len(t.AssignmentHistory))
		for index, userID := range t.AssignmentHistory {
			history[index] = displayName(names, userID)
		}
		facts = append(facts, label("history")+strings.Join(history, " → "))
	}
	if t.ClosedBy != "" {
		closed := label("closed by") + displayName(names, t.ClosedBy)
		if !t.ClosedAt.IsZero() {
			closed += faint.Render(" at ") + t.ClosedAt.Local().Format(detailTimeLayout)
		}
		facts = append(facts, closed)
	}
	sections = append(sections, ansi.Wrap(strings.Join(facts, "\n"), width, wrapBreakpoints))

	if description := renderMarkdown(t.Description, theme, width); description != "" {
		sections = append(sections, description)
	}

	if len(t.Comments) > 0 {
		heading := lipgloss.NewStyle().Bold(true).Foreground(theme.NormalText).
			Render(fmt.Sprintf("Comments (%d)", len(t.Comments)))
		sections = append(sections, heading)
		for _, comment := range t.Comments {
			author := comment.AuthorName
			if author == "" {
				author = displayName(names, comment.AuthorID)
			}
			byline := lipgloss.NewStyle().Foreground(theme.HeaderForeground).Render(author)
			if !comment.PostedAt.IsZero() {
				byline += faint.Render(" · " + comment.PostedAt.Local().Format(detailTimeLayout))
			}
			body := renderMarkdown(comment.Text, theme, width-2)
			sections = append(sections, byline+"\n"+indent(body, "  "))
		}
	}

	return strings.Split(strings.Join(sections, "\n\n"), "\n")
}

func indent(content, prefix string) string {
	if content == "" {
		return ""
	}
	return prefix + strings.ReplaceAll(content, "\n", "\n"+prefix)
}
