// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package taskview

import (
	"strings"

	"github.com/bureau-foundation/taskboard/lib/schema/task"
)

// StatusAll is the status filter that matches every task.
const StatusAll = "all"

// Session is the transient per-caller view state. The zero value shows
// every task to nobody in particular.
type Session struct {
	// SearchTerm is matched case-insensitively against title and
	// description. Surrounding whitespace is ignored; empty matches
	// everything.
	SearchTerm string

	// StatusFilter is a task status, or StatusAll (or empty) for no
	// status filter.
	StatusFilter string

	// ActorID selects whose dashboard to derive.
	ActorID string
}

// FilteredTasks returns the tasks matching both the search term and the
// status filter, in input order.
func FilteredTasks(tasks []task.Task, searchTerm, statusFilter string) []task.Task {
	needle := strings.ToLower(strings.TrimSpace(searchTerm))
	filtered := make([]task.Task, 0, len(tasks))
	for _, t := range tasks {
		if !matchesStatus(t, statusFilter) || !matchesSearch(t, needle) {
			continue
		}
		filtered = append(filtered, t)
	}
	return filtered
}

func matchesStatus(t task.Task, statusFilter string) bool {
	if statusFilter == "" || statusFilter == StatusAll {
		return true
	}
	return string(t.Status) == statusFilter
}

// matchesSearch expects needle already lowercased and trimmed.
func matchesSearch(t task.Task, needle string) bool {
	if needle == "" {
		return true
	}
	return strings.Contains(strings.ToLower(t.Title), needle) ||
		strings.Contains(strings.ToLower(t.Description), needle)
}

// ValidStatusFilter reports whether filter is StatusAll, empty, or a
// known status.
func ValidStatusFilter(filter string) bool {
	return filter == "" || filter == StatusAll || task.Status(filter).Valid()
}
